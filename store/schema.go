package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/bachi55/local-pubchem-db/schema"
)

// ledgerDDL creates the append-only bookkeeping table of fully ingested
// source files.
const ledgerDDL = `
CREATE TABLE IF NOT EXISTS sdf_file (
    filename    TEXT NOT NULL PRIMARY KEY,
    lowest_cid  INTEGER NOT NULL,
    highest_cid INTEGER NOT NULL,
    date_added  TEXT NOT NULL,
    n_compounds INTEGER NOT NULL
)`

// columnDDL renders the compounds column list from the layout, in declared
// order. The layout is validated before it gets here, so at most one column
// carries the primary key.
func columnDDL(spec *schema.Spec) string {
	parts := make([]string, 0, len(spec.Columns))
	for _, c := range spec.Columns {
		col := c.Name + " " + c.DType.SQL()
		if c.NotNull || c.PrimaryKey {
			col += " NOT NULL"
		}
		if c.PrimaryKey {
			col += " PRIMARY KEY"
		}
		parts = append(parts, col)
	}
	return strings.Join(parts, ", ")
}

// Init creates the ledger and compounds tables, dropping both first when
// reset is set. Without reset it is idempotent and safe to call every run.
func (s *Store) Init(ctx context.Context, spec *schema.Spec, reset bool) error {
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("invalid layout: %w", err)
	}

	if reset {
		for _, stmt := range []string{
			"DROP TABLE IF EXISTS sdf_file",
			"DROP TABLE IF EXISTS compounds",
		} {
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("resetting tables: %w", err)
			}
		}
	}

	if _, err := s.db.ExecContext(ctx, ledgerDDL); err != nil {
		return fmt.Errorf("creating sdf_file table: %w", err)
	}

	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS compounds (%s)", columnDDL(spec))
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("creating compounds table: %w", err)
	}
	return nil
}

// BuildIndexes drops and recreates idx_<column> for every WITH_INDEX
// column. Run once after the bulk load so inserts never pay for index
// maintenance.
func (s *Store) BuildIndexes(ctx context.Context, spec *schema.Spec) error {
	for _, c := range spec.Columns {
		if !c.WithIndex {
			continue
		}
		name := "idx_" + c.Name
		if _, err := s.db.ExecContext(ctx, "DROP INDEX IF EXISTS "+name); err != nil {
			return fmt.Errorf("dropping index %s: %w", name, err)
		}
		stmt := fmt.Sprintf("CREATE INDEX %s ON compounds(%s)", name, c.Name)
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating index %s: %w", name, err)
		}
	}
	return nil
}
