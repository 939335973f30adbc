// Package store owns the SQLite database holding the compounds table and
// the sdf_file ingestion ledger.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/bachi55/local-pubchem-db/schema"
)

// LedgerEntry is one row of the sdf_file table: a source file that has been
// fully committed. The ledger is append-only; a file with an entry is never
// read again.
type LedgerEntry struct {
	Filename   string
	LowestCID  int64
	HighestCID int64
	DateAdded  string
	NCompounds int64
}

// Store wraps the SQLite database for all persistence.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// The pipeline is single-writer; one connection keeps every statement
	// on the same transaction boundary.
	db.SetMaxOpenConns(1)

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for diagnostic queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// --- Ledger operations ---

// LedgerContains reports whether filename already has a ledger entry.
func (s *Store) LedgerContains(ctx context.Context, filename string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sdf_file WHERE filename = ?", filename).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("querying ledger: %w", err)
	}
	return n > 0, nil
}

// LedgerFilenames returns the set of fully ingested file basenames. The
// discovery step filters candidate files against it in one pass.
func (s *Store) LedgerFilenames(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT filename FROM sdf_file")
	if err != nil {
		return nil, fmt.Errorf("querying ledger: %w", err)
	}
	defer rows.Close()

	names := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning ledger row: %w", err)
		}
		names[name] = true
	}
	return names, rows.Err()
}

// Ledger returns all entries ordered by filename.
func (s *Store) Ledger(ctx context.Context) ([]LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT filename, lowest_cid, highest_cid, date_added, n_compounds
		FROM sdf_file ORDER BY filename
	`)
	if err != nil {
		return nil, fmt.Errorf("querying ledger: %w", err)
	}
	defer rows.Close()

	var entries []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(&e.Filename, &e.LowestCID, &e.HighestCID, &e.DateAdded, &e.NCompounds); err != nil {
			return nil, fmt.Errorf("scanning ledger row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// --- Bulk insert ---

// InsertFile writes every row of one source file plus its ledger entry in a
// single transaction: either the file is fully committed and recorded, or
// nothing of it is. The entry's DateAdded is assigned by the database.
func (s *Store) InsertFile(ctx context.Context, spec *schema.Spec, rows [][]any, entry LedgerEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	names := spec.Names()
	insert := fmt.Sprintf("INSERT INTO compounds (%s) VALUES (%s)",
		strings.Join(names, ","), placeholders(len(names)))

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r...); err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting row: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sdf_file (filename, lowest_cid, highest_cid, date_added, n_compounds)
		VALUES (?, ?, ?, DATE('now'), ?)
	`, entry.Filename, entry.LowestCID, entry.HighestCID, entry.NCompounds); err != nil {
		tx.Rollback()
		return fmt.Errorf("appending ledger entry for %s: %w", entry.Filename, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing %s: %w", entry.Filename, err)
	}
	return nil
}

// --- Column backfill ---

// ColumnValue pairs a compound id with the value to backfill for it.
type ColumnValue struct {
	CID   int64
	Value any
}

// AddColumn extends the compounds table by one column.
func (s *Store) AddColumn(ctx context.Context, name string, dtype schema.DType) error {
	stmt := fmt.Sprintf("ALTER TABLE compounds ADD COLUMN %s %s", name, dtype.SQL())
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("adding column %s: %w", name, err)
	}
	return nil
}

// UpdateColumn backfills one column for a batch of compounds in a single
// transaction, keyed on the primary-key column.
func (s *Store) UpdateColumn(ctx context.Context, column, keyColumn string, values []ColumnValue) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	update := fmt.Sprintf("UPDATE compounds SET %s = ? WHERE %s = ?", column, keyColumn)
	stmt, err := tx.PrepareContext(ctx, update)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing update: %w", err)
	}
	defer stmt.Close()

	for _, v := range values {
		if _, err := stmt.ExecContext(ctx, v.Value, v.CID); err != nil {
			tx.Rollback()
			return fmt.Errorf("updating cid %d: %w", v.CID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing column backfill: %w", err)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimPrefix(strings.Repeat(",?", n), ",")
}
