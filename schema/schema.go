// Package schema holds the in-memory model of the database layout: the
// ordered list of output columns, their data types, source SD-tags,
// constraints and optional value transforms.
package schema

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DType is the closed set of column data types.
type DType int

const (
	Integer DType = iota
	Real
	Text
)

// ParseDType maps the layout-file dtype aliases onto the enumeration.
func ParseDType(s string) (DType, error) {
	switch strings.ToLower(s) {
	case "integer", "int":
		return Integer, nil
	case "real", "float", "double":
		return Real, nil
	case "varchar", "character", "text":
		return Text, nil
	}
	return 0, fmt.Errorf("unknown dtype %q", s)
}

// SQL returns the SQLite column type for the dtype.
func (d DType) SQL() string {
	switch d {
	case Integer:
		return "INTEGER"
	case Real:
		return "REAL"
	default:
		return "TEXT"
	}
}

func (d DType) String() string { return strings.ToLower(d.SQL()) }

// ErrBadValue is returned when a raw tag value cannot be coerced to the
// column's declared dtype. Callers treat this as a record-local condition.
var ErrBadValue = errors.New("schema: value does not match column dtype")

// Coerce converts a raw value line into the Go representation of the dtype:
// int64 for Integer, float64 for Real, the unmodified string for Text.
func (d DType) Coerce(raw string) (any, error) {
	switch d {
	case Integer:
		v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", ErrBadValue, raw)
		}
		return v, nil
	case Real:
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a real number", ErrBadValue, raw)
		}
		return v, nil
	default:
		return raw, nil
	}
}

// Column describes one output column of the compounds table.
type Column struct {
	Name       string
	DType      DType
	SDTags     []string // alternate source tags, first one found in a record wins
	NotNull    bool
	PrimaryKey bool
	WithIndex  bool

	// Transform, if non-nil, is applied to the coerced value.
	Transform     Transform
	TransformName string
}

// Spec is the ordered column layout of the compounds table.
type Spec struct {
	Columns []Column
}

// Validate checks the structural invariants of the layout: every column
// needs at least one source tag and at most one column may be the primary
// key. Violations are configuration errors, raised before any I/O.
func (s *Spec) Validate() error {
	if len(s.Columns) == 0 {
		return errors.New("layout declares no columns")
	}
	seen := make(map[string]bool, len(s.Columns))
	primaryKeys := 0
	for _, c := range s.Columns {
		if c.Name == "" {
			return errors.New("layout contains a column without a name")
		}
		if seen[c.Name] {
			return fmt.Errorf("column %s declared twice", c.Name)
		}
		seen[c.Name] = true
		if len(c.SDTags) == 0 {
			return fmt.Errorf("column %s: SD_TAG must name at least one source tag", c.Name)
		}
		if c.PrimaryKey {
			primaryKeys++
		}
	}
	if primaryKeys > 1 {
		return errors.New("primary keys must be defined on a single column")
	}
	return nil
}

// PrimaryKey returns the primary-key column, if one is declared.
func (s *Spec) PrimaryKey() (*Column, bool) {
	for i := range s.Columns {
		if s.Columns[i].PrimaryKey {
			return &s.Columns[i], true
		}
	}
	return nil, false
}

// Names returns the column names in declaration order.
func (s *Spec) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}
