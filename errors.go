package pubchem

import "errors"

var (
	// ErrBadLayout is returned when the database layout is invalid:
	// unknown dtype, unknown transform, duplicate primary keys. Raised
	// before any I/O happens.
	ErrBadLayout = errors.New("pubchem: invalid database layout")

	// ErrReadFailed is returned when a source file cannot be opened or
	// read. The file is retried, the cause may be transient.
	ErrReadFailed = errors.New("pubchem: reading source file failed")

	// ErrFilesFailed is returned by Run when one or more source files
	// exhausted their retry budget. The run itself completed; the failed
	// files are listed in the summary.
	ErrFilesFailed = errors.New("pubchem: some source files permanently failed")
)
