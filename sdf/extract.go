package sdf

import (
	"fmt"
	"strings"

	"github.com/bachi55/local-pubchem-db/schema"
)

// tagLine wraps an SD tag name in the header syntax used inside records.
func tagLine(tag string) string {
	return fmt.Sprintf("> <%s>", tag)
}

// Extractor resolves layout columns from record text. Build one per run and
// reuse it across records; resolution state is local to each Extract call.
type Extractor struct {
	spec *schema.Spec

	// byTag maps a tag header line to the indices of all columns that
	// accept it. Columns sharing a tag resolve from the same occurrence.
	byTag map[string][]int
}

// NewExtractor builds the reverse tag index for a validated layout.
func NewExtractor(spec *schema.Spec) *Extractor {
	byTag := make(map[string][]int)
	for i, col := range spec.Columns {
		for _, tag := range col.SDTags {
			line := tagLine(tag)
			byTag[line] = append(byTag[line], i)
		}
	}
	return &Extractor{spec: spec, byTag: byTag}
}

// Extract scans one record's text top to bottom and returns one value per
// layout column, in declaration order. The line after a matching tag
// header holds the raw value; it is coerced to the column's dtype and run
// through the column's transform. Columns whose tags never occur stay nil.
// For a column with alternate tags the first one encountered wins; later
// alternates are ignored. A value that cannot be coerced is an error and
// the caller skips the record.
func (e *Extractor) Extract(record string) ([]any, error) {
	values := make([]any, len(e.spec.Columns))
	resolved := make([]bool, len(e.spec.Columns))
	remaining := len(e.spec.Columns)

	lines := strings.Split(record, "\n")
	for i := 0; remaining > 0 && i < len(lines)-1; i++ {
		if lines[i] == "" {
			continue
		}
		hit := false
		for _, ci := range e.byTag[lines[i]] {
			if resolved[ci] {
				continue
			}
			col := &e.spec.Columns[ci]
			v, err := col.DType.Coerce(lines[i+1])
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", col.Name, err)
			}
			if col.Transform != nil {
				v, err = col.Transform(v)
				if err != nil {
					return nil, fmt.Errorf("column %s: %w", col.Name, err)
				}
			}
			values[ci] = v
			resolved[ci] = true
			remaining--
			hit = true
		}
		if hit {
			i++ // the value line is consumed
		}
	}
	return values, nil
}

// ExtractSingle resolves one tag from a record without a full layout. The
// add-column backfill uses it to pull exactly one field per record.
func ExtractSingle(record, tag string, dtype schema.DType) (any, error) {
	header := tagLine(tag)
	lines := strings.Split(record, "\n")
	for i := 0; i < len(lines)-1; i++ {
		if lines[i] != header {
			continue
		}
		v, err := dtype.Coerce(lines[i+1])
		if err != nil {
			return nil, fmt.Errorf("tag %s: %w", tag, err)
		}
		return v, nil
	}
	return nil, nil
}
