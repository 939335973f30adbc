package store

import (
	"errors"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// IsTransient reports whether err looks like a recoverable storage failure:
// lock contention, interrupted or failed I/O, resource exhaustion. Those
// warrant rolling back and retrying the file. Everything else coming out of
// the driver (malformed SQL, constraint misuse, schema mismatch) indicates
// a programming defect and must abort the run instead.
func IsTransient(err error) bool {
	var serr sqlite3.Error
	if !errors.As(err, &serr) {
		return false
	}
	switch serr.Code {
	case sqlite3.ErrBusy,
		sqlite3.ErrLocked,
		sqlite3.ErrIoErr,
		sqlite3.ErrInterrupt,
		sqlite3.ErrNomem,
		sqlite3.ErrCantOpen,
		sqlite3.ErrProtocol,
		sqlite3.ErrInternal:
		return true
	}
	return false
}
