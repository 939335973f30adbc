// Package sdf carves multi-record SD files into compound records and
// extracts typed column values from a record's tag blocks.
package sdf

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// recordSep delimits compound records inside an SD file.
const recordSep = "$$$$"

// cidPattern recovers the compound id: the identifier tag header followed
// by the value line.
var cidPattern = regexp.MustCompile(`<PUBCHEM_COMPOUND_CID>\n([0-9]+)`)

// ErrMalformedRecord is returned when a record carries no compound id tag.
// The whole containing file is suspect at that point, since the ledger's
// cid range depends on every record's identifier.
var ErrMalformedRecord = errors.New("sdf: record is missing the compound id tag")

// Record is one compound carved out of an SD file.
type Record struct {
	CID  int64
	Text string
}

// Scanner iterates the records of an SD file, in the bufio.Scanner mold:
//
//	sc := sdf.NewScanner(text)
//	for sc.Scan() {
//		rec := sc.Record()
//		...
//	}
//	if err := sc.Err(); err != nil { ... }
//
// Scanning the same text twice yields the identical sequence. Content
// after the last record separator is not a complete record and is
// discarded.
type Scanner struct {
	text string
	pos  int
	rec  Record
	err  error
}

// NewScanner returns a Scanner over the full text of one SD file.
func NewScanner(text string) *Scanner {
	return &Scanner{text: text}
}

// Scan advances to the next record. It returns false at the end of input
// or on the first malformed record; Err distinguishes the two.
func (s *Scanner) Scan() bool {
	if s.err != nil {
		return false
	}

	end := strings.Index(s.text[s.pos:], recordSep)
	if end < 0 {
		return false
	}
	end += s.pos

	// The record spans up to the byte before the separator (its leading
	// newline). Single quotes are stripped so raw record text can never
	// break SQL quoting downstream.
	stop := end - 1
	if stop < s.pos {
		stop = s.pos
	}
	raw := strings.ReplaceAll(s.text[s.pos:stop], "'", "")

	// Resume after the separator and its trailing newline.
	s.pos = end + len(recordSep) + 1
	if s.pos > len(s.text) {
		s.pos = len(s.text)
	}

	m := cidPattern.FindStringSubmatch(raw)
	if m == nil {
		s.err = fmt.Errorf("%w (record ending at byte %d)", ErrMalformedRecord, end)
		return false
	}
	cid, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		s.err = fmt.Errorf("%w: cid %q out of range", ErrMalformedRecord, m[1])
		return false
	}

	s.rec = Record{CID: cid, Text: raw}
	return true
}

// Record returns the record produced by the last successful Scan.
func (s *Scanner) Record() Record { return s.rec }

// Err returns the error that stopped the Scanner, if any.
func (s *Scanner) Err() error { return s.err }

// Split returns all records of an SD file at once.
func Split(text string) ([]Record, error) {
	var records []Record
	sc := NewScanner(text)
	for sc.Scan() {
		records = append(records, sc.Record())
	}
	return records, sc.Err()
}
