//go:build cgo

package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/bachi55/local-pubchem-db/schema"
)

func testSpec() *schema.Spec {
	return &schema.Spec{Columns: []schema.Column{
		{Name: "cid", DType: schema.Integer, SDTags: []string{"PUBCHEM_COMPOUND_CID"}, NotNull: true, PrimaryKey: true},
		{Name: "inchikey", DType: schema.Text, SDTags: []string{"PUBCHEM_IUPAC_INCHIKEY"}, NotNull: true, WithIndex: true},
		{Name: "xlogp3", DType: schema.Real, SDTags: []string{"PUBCHEM_XLOGP3"}},
	}}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "pubchem.sqlite")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.Init(context.Background(), testSpec(), false); err != nil {
		t.Fatalf("initializing tables: %v", err)
	}
	return s
}

func countRows(t *testing.T, s *Store, table string) int {
	t.Helper()
	var n int
	if err := s.DB().QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("counting %s rows: %v", table, err)
	}
	return n
}

// ---------------------------------------------------------------------------
// Schema building
// ---------------------------------------------------------------------------

func TestColumnDDL(t *testing.T) {
	got := columnDDL(testSpec())
	want := "cid INTEGER NOT NULL PRIMARY KEY, inchikey TEXT NOT NULL, xlogp3 REAL"
	if got != want {
		t.Errorf("columnDDL:\n got %q\nwant %q", got, want)
	}
}

func TestInitIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	entry := LedgerEntry{Filename: "cmps_00_02.sdf", LowestCID: 31038, HighestCID: 31040, NCompounds: 1}
	rows := [][]any{{int64(31038), "JGUZOCJCNMVJHU-UHFFFAOYSA-N", 6.6}}
	if err := s.InsertFile(ctx, testSpec(), rows, entry); err != nil {
		t.Fatalf("inserting: %v", err)
	}

	// A second Init without reset must not touch existing data.
	if err := s.Init(ctx, testSpec(), false); err != nil {
		t.Fatalf("re-initializing: %v", err)
	}
	if n := countRows(t, s, "compounds"); n != 1 {
		t.Errorf("after re-init: got %d rows, want 1", n)
	}

	// With reset both tables start over.
	if err := s.Init(ctx, testSpec(), true); err != nil {
		t.Fatalf("resetting: %v", err)
	}
	if n := countRows(t, s, "compounds"); n != 0 {
		t.Errorf("after reset: got %d rows, want 0", n)
	}
	if n := countRows(t, s, "sdf_file"); n != 0 {
		t.Errorf("after reset: got %d ledger rows, want 0", n)
	}
}

func TestInitRejectsTwoPrimaryKeys(t *testing.T) {
	s := newTestStore(t)
	bad := &schema.Spec{Columns: []schema.Column{
		{Name: "a", DType: schema.Integer, SDTags: []string{"A"}, PrimaryKey: true},
		{Name: "b", DType: schema.Integer, SDTags: []string{"B"}, PrimaryKey: true},
	}}
	if err := s.Init(context.Background(), bad, false); err == nil {
		t.Fatal("expected error for two primary keys")
	}
}

func TestBuildIndexes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.BuildIndexes(ctx, testSpec()); err != nil {
		t.Fatalf("building indexes: %v", err)
	}
	var n int
	err := s.DB().QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = 'idx_inchikey'").Scan(&n)
	if err != nil {
		t.Fatalf("querying sqlite_master: %v", err)
	}
	if n != 1 {
		t.Fatalf("idx_inchikey not created")
	}

	// Rebuilding must drop and recreate, not fail on the existing index.
	if err := s.BuildIndexes(ctx, testSpec()); err != nil {
		t.Fatalf("rebuilding indexes: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Ledger and bulk insert
// ---------------------------------------------------------------------------

func TestInsertFileAndLedger(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rows := [][]any{
		{int64(31038), "JGUZOCJCNMVJHU-UHFFFAOYSA-N", 6.6},
		{int64(31039), "OAOUTNMJEFWJPO-UHFFFAOYSA-N", 3.3},
		{int64(31040), "YBGBJYVHJTVUSL-UHFFFAOYSA-L", nil},
	}
	entry := LedgerEntry{Filename: "cmps_00_02.sdf", LowestCID: 31038, HighestCID: 31040, NCompounds: 3}
	if err := s.InsertFile(ctx, testSpec(), rows, entry); err != nil {
		t.Fatalf("inserting file: %v", err)
	}

	if n := countRows(t, s, "compounds"); n != 3 {
		t.Errorf("got %d rows, want 3", n)
	}

	ok, err := s.LedgerContains(ctx, "cmps_00_02.sdf")
	if err != nil {
		t.Fatalf("querying ledger: %v", err)
	}
	if !ok {
		t.Error("ledger must contain the committed file")
	}

	entries, err := s.Ledger(ctx)
	if err != nil {
		t.Fatalf("reading ledger: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d ledger entries, want 1", len(entries))
	}
	e := entries[0]
	if e.LowestCID != 31038 || e.HighestCID != 31040 || e.NCompounds != 3 {
		t.Errorf("ledger entry: %+v", e)
	}
	if e.DateAdded == "" {
		t.Error("date_added must be set by the database")
	}

	names, err := s.LedgerFilenames(ctx)
	if err != nil {
		t.Fatalf("reading ledger filenames: %v", err)
	}
	if !names["cmps_00_02.sdf"] {
		t.Errorf("ledger filenames: %v", names)
	}
}

// A failed insert must roll back the rows and the ledger entry together.
func TestInsertFileIsAtomic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rows := [][]any{
		{int64(1), "AAAA-BBBB-C", nil},
		{int64(1), "AAAA-BBBB-C", nil}, // duplicate primary key
	}
	entry := LedgerEntry{Filename: "cmps_dup.sdf", LowestCID: 1, HighestCID: 1, NCompounds: 2}
	if err := s.InsertFile(ctx, testSpec(), rows, entry); err == nil {
		t.Fatal("expected constraint error")
	}

	if n := countRows(t, s, "compounds"); n != 0 {
		t.Errorf("rolled-back insert left %d rows", n)
	}
	ok, err := s.LedgerContains(ctx, "cmps_dup.sdf")
	if err != nil {
		t.Fatalf("querying ledger: %v", err)
	}
	if ok {
		t.Error("rolled-back file must not be in the ledger")
	}
}

func TestInsertEmptyFile(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	entry := LedgerEntry{Filename: "cmps_empty.sdf"}
	if err := s.InsertFile(ctx, testSpec(), nil, entry); err != nil {
		t.Fatalf("inserting empty file: %v", err)
	}
	ok, err := s.LedgerContains(ctx, "cmps_empty.sdf")
	if err != nil {
		t.Fatalf("querying ledger: %v", err)
	}
	if !ok {
		t.Error("an empty file still gets a ledger entry so it is never re-read")
	}
}

// ---------------------------------------------------------------------------
// Column backfill
// ---------------------------------------------------------------------------

func TestAddAndUpdateColumn(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rows := [][]any{{int64(31038), "JGUZOCJCNMVJHU-UHFFFAOYSA-N", 6.6}}
	entry := LedgerEntry{Filename: "cmps_00_00.sdf", LowestCID: 31038, HighestCID: 31038, NCompounds: 1}
	if err := s.InsertFile(ctx, testSpec(), rows, entry); err != nil {
		t.Fatalf("inserting: %v", err)
	}

	if err := s.AddColumn(ctx, "molecular_formula", schema.Text); err != nil {
		t.Fatalf("adding column: %v", err)
	}
	values := []ColumnValue{{CID: 31038, Value: "C18H31NO"}}
	if err := s.UpdateColumn(ctx, "molecular_formula", "cid", values); err != nil {
		t.Fatalf("backfilling: %v", err)
	}

	var formula string
	err := s.DB().QueryRow("SELECT molecular_formula FROM compounds WHERE cid = 31038").Scan(&formula)
	if err != nil {
		t.Fatalf("reading back: %v", err)
	}
	if formula != "C18H31NO" {
		t.Errorf("got %q, want C18H31NO", formula)
	}
}

// ---------------------------------------------------------------------------
// Error classification
// ---------------------------------------------------------------------------

func TestIsTransient(t *testing.T) {
	busy := sqlite3.Error{Code: sqlite3.ErrBusy}
	if !IsTransient(busy) {
		t.Error("SQLITE_BUSY must be transient")
	}
	if !IsTransient(fmt.Errorf("inserting row: %w", sqlite3.Error{Code: sqlite3.ErrIoErr})) {
		t.Error("wrapped SQLITE_IOERR must be transient")
	}
	if IsTransient(sqlite3.Error{Code: sqlite3.ErrError}) {
		t.Error("a plain SQL error indicates a programming defect, not a transient failure")
	}
	if IsTransient(errors.New("boom")) {
		t.Error("non-driver errors are not transient")
	}
	if IsTransient(os.ErrNotExist) {
		t.Error("os errors are classified by the caller, not the store")
	}
}
