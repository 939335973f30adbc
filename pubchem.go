// Package pubchem builds a local SQLite database from directories of
// PubChem SD files: it discovers source files, skips the ones already
// recorded in the ingestion ledger, loads the rest one transaction per
// file, and creates the declared indexes at the end.
package pubchem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/bachi55/local-pubchem-db/schema"
	"github.com/bachi55/local-pubchem-db/sdf"
	"github.com/bachi55/local-pubchem-db/store"
)

// Builder drives the full ingestion pipeline.
type Builder struct {
	cfg   Config
	spec  *schema.Spec
	store *store.Store
	ext   *sdf.Extractor
}

// FileResult describes one fully committed source file.
type FileResult struct {
	Filename    string
	Inserted    int
	SkippedNull int // records dropped for a missing NOT NULL field
	SkippedBad  int // records dropped for a type coercion failure
	Attempts    int
}

// FileFailure describes a file that exhausted its retry budget.
type FileFailure struct {
	Filename string
	Attempts int
	Err      error
}

// RunSummary reports the outcome of one Run.
type RunSummary struct {
	Ingested []FileResult
	Failed   []FileFailure
	Skipped  int // files already present in the ledger
}

// New validates the layout, opens the store and prepares the tables.
// Layout problems surface here, before any source file is touched.
func New(cfg Config) (*Builder, error) {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}

	spec := cfg.Layout
	if spec == nil {
		var err error
		spec, err = schema.Load(cfg.LayoutPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadLayout, err)
		}
	} else if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadLayout, err)
	}

	st, err := store.New(cfg.resolveDBPath())
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	if err := st.Init(context.Background(), spec, cfg.Reset); err != nil {
		st.Close()
		return nil, fmt.Errorf("initializing tables: %w", err)
	}

	return &Builder{
		cfg:   cfg,
		spec:  spec,
		store: st,
		ext:   sdf.NewExtractor(spec),
	}, nil
}

// Store returns the underlying store for diagnostic access.
func (b *Builder) Store() *store.Store {
	return b.store
}

// Spec returns the validated column layout in use.
func (b *Builder) Spec() *schema.Spec {
	return b.spec
}

// Close shuts down the underlying store.
func (b *Builder) Close() error {
	return b.store.Close()
}

// Run executes one full build: Discover -> Filter -> per-file ingest ->
// BuildIndexes. Transient failures re-queue the file up to the configured
// attempt budget; a file past its budget lands in the summary's Failed list
// without stopping the run. Any other error aborts immediately.
//
// Every file is one atomic commit unit, so an interrupted run leaves the
// ledger consistent with exactly the files that committed, and the next
// run resumes from there.
func (b *Builder) Run(ctx context.Context) (*RunSummary, error) {
	files, err := filepath.Glob(filepath.Join(b.cfg.sdfDir(), b.cfg.sdfPattern()))
	if err != nil {
		return nil, fmt.Errorf("listing source files: %w", err)
	}
	slog.Info("build: source files found", "count", len(files), "dir", b.cfg.sdfDir())

	done, err := b.store.LedgerFilenames(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading ledger: %w", err)
	}

	var work []string
	for _, f := range files {
		if done[filepath.Base(f)] {
			continue
		}
		work = append(work, f)
	}
	sort.Strings(work)

	summary := &RunSummary{Skipped: len(files) - len(work)}
	slog.Info("build: source files to process",
		"count", len(work), "already_ingested", summary.Skipped)

	// Work list with a per-file attempt counter. A retryable failure puts
	// the file back at the end of the list until its budget runs out.
	type workItem struct {
		path     string
		attempts int
	}
	queue := make([]workItem, len(work))
	for i, f := range work {
		queue[i] = workItem{path: f}
	}
	total := len(queue)

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		item := queue[0]
		queue = queue[1:]
		item.attempts++
		name := filepath.Base(item.path)

		start := time.Now()
		res, err := b.processFile(ctx, item.path)
		if err == nil {
			res.Attempts = item.attempts
			summary.Ingested = append(summary.Ingested, res)
			slog.Info("build: file committed",
				"file", name, "inserted", res.Inserted,
				"skipped_null", res.SkippedNull, "skipped_bad", res.SkippedBad,
				"attempts", item.attempts,
				"elapsed", time.Since(start).Round(time.Millisecond))
			b.reportProgress(summary, total, name)
			continue
		}

		if !retryable(err) {
			return summary, fmt.Errorf("processing %s: %w", name, err)
		}
		if item.attempts < b.cfg.MaxAttempts {
			slog.Warn("build: transient failure, file re-queued",
				"file", name, "attempt", item.attempts, "error", err)
			queue = append(queue, item)
			continue
		}

		slog.Warn("build: file permanently failed",
			"file", name, "attempts", item.attempts, "error", err)
		summary.Failed = append(summary.Failed, FileFailure{
			Filename: name,
			Attempts: item.attempts,
			Err:      err,
		})
		b.reportProgress(summary, total, name)
	}

	if err := b.store.BuildIndexes(ctx, b.spec); err != nil {
		return summary, fmt.Errorf("building indexes: %w", err)
	}

	if len(summary.Failed) > 0 {
		return summary, ErrFilesFailed
	}
	return summary, nil
}

// processFile opens, splits, extracts, filters and commits one source file.
// A record whose value text does not match its declared dtype is skipped;
// a record with a NOT NULL column left unresolved is skipped silently. Both
// are counted. A record without a compound id aborts the whole file.
func (b *Builder) processFile(ctx context.Context, path string) (FileResult, error) {
	name := filepath.Base(path)
	res := FileResult{Filename: name}

	text, err := sdf.Open(path, b.cfg.Gzip)
	if err != nil {
		return res, fmt.Errorf("%w: %v", ErrReadFailed, err)
	}

	records, err := sdf.Split(text)
	if err != nil {
		return res, err
	}
	if len(records) == 0 {
		slog.Warn("build: no records in file", "file", name)
	}

	var rows [][]any
	var lowest, highest int64
	for i, rec := range records {
		// The ledger range covers every record the file contains, not
		// only the rows that survive filtering.
		if i == 0 || rec.CID < lowest {
			lowest = rec.CID
		}
		if i == 0 || rec.CID > highest {
			highest = rec.CID
		}

		values, err := b.ext.Extract(rec.Text)
		if err != nil {
			res.SkippedBad++
			slog.Warn("build: record skipped", "file", name, "cid", rec.CID, "error", err)
			continue
		}
		if missingNotNull(b.spec, values) {
			res.SkippedNull++
			continue
		}
		rows = append(rows, values)
	}

	entry := store.LedgerEntry{
		Filename:   name,
		LowestCID:  lowest,
		HighestCID: highest,
		NCompounds: int64(len(rows)),
	}
	if err := b.store.InsertFile(ctx, b.spec, rows, entry); err != nil {
		return res, err
	}
	res.Inserted = len(rows)
	return res, nil
}

func (b *Builder) reportProgress(summary *RunSummary, total int, file string) {
	if b.cfg.Progress != nil {
		b.cfg.Progress(len(summary.Ingested)+len(summary.Failed), total, file)
	}
}

// missingNotNull reports whether any NOT NULL column stayed unresolved.
func missingNotNull(spec *schema.Spec, values []any) bool {
	for i, c := range spec.Columns {
		if c.NotNull && values[i] == nil {
			return true
		}
	}
	return false
}

// retryable reports whether a per-file error deserves another attempt:
// transient storage failures, source read failures, and malformed records
// (a corrupted read produces the same symptom as corrupt input).
func retryable(err error) bool {
	if store.IsTransient(err) {
		return true
	}
	return errors.Is(err, ErrReadFailed) || errors.Is(err, sdf.ErrMalformedRecord)
}
