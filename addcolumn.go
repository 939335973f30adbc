package pubchem

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/bachi55/local-pubchem-db/schema"
	"github.com/bachi55/local-pubchem-db/sdf"
	"github.com/bachi55/local-pubchem-db/store"
)

// AddColumn extends an existing compounds table by one text column and
// backfills it by re-reading every source file, one transaction per file.
// The layout in use must declare a primary key so rows can be addressed by
// compound id. Only text columns are supported.
func (b *Builder) AddColumn(ctx context.Context, col schema.Column) error {
	if col.DType != schema.Text {
		return fmt.Errorf("%w: only text columns can be added after the build", ErrBadLayout)
	}
	if len(col.SDTags) == 0 {
		return fmt.Errorf("%w: column %s names no source tag", ErrBadLayout, col.Name)
	}
	pk, ok := b.spec.PrimaryKey()
	if !ok {
		return fmt.Errorf("%w: backfilling requires a primary key column", ErrBadLayout)
	}

	if err := b.store.AddColumn(ctx, col.Name, col.DType); err != nil {
		return err
	}

	files, err := filepath.Glob(filepath.Join(b.cfg.sdfDir(), b.cfg.sdfPattern()))
	if err != nil {
		return fmt.Errorf("listing source files: %w", err)
	}
	sort.Strings(files)
	slog.Info("addcolumn: backfilling", "column", col.Name, "files", len(files))

	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := filepath.Base(path)

		text, err := sdf.Open(path, b.cfg.Gzip)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrReadFailed, err)
		}
		records, err := sdf.Split(text)
		if err != nil {
			return fmt.Errorf("splitting %s: %w", name, err)
		}

		values := make([]store.ColumnValue, 0, len(records))
		for _, rec := range records {
			v, err := sdf.ExtractSingle(rec.Text, col.SDTags[0], col.DType)
			if err != nil || v == nil {
				continue
			}
			if col.Transform != nil {
				if v, err = col.Transform(v); err != nil {
					continue
				}
			}
			values = append(values, store.ColumnValue{CID: rec.CID, Value: v})
		}

		if err := b.store.UpdateColumn(ctx, col.Name, pk.Name, values); err != nil {
			return fmt.Errorf("backfilling %s: %w", name, err)
		}
		slog.Info("addcolumn: file backfilled",
			"file", name, "values", len(values), "progress", fmt.Sprintf("%d/%d", i+1, len(files)))
	}
	return nil
}
