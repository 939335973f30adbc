package schema

import (
	"fmt"
	"math"
	"strings"
)

// Transform is a vetted pure function applied to a coerced column value.
// Transforms are selected by name in the layout file (CREATE_LIKE); unknown
// names fail layout validation, so no user-supplied code is ever evaluated.
type Transform func(any) (any, error)

var transforms = map[string]Transform{
	"double":          transformDouble,
	"round":           transformRound,
	"inchikey_block1": transformInChIKeyBlock1,
	"upper":           transformUpper,
	"lower":           transformLower,
}

// LookupTransform resolves a CREATE_LIKE name from the registry.
func LookupTransform(name string) (Transform, error) {
	t, ok := transforms[name]
	if !ok {
		return nil, fmt.Errorf("unknown transform %q", name)
	}
	return t, nil
}

func transformDouble(v any) (any, error) {
	switch x := v.(type) {
	case int64:
		return 2 * x, nil
	case float64:
		return 2 * x, nil
	}
	return nil, fmt.Errorf("transform double: need a numeric value, got %T", v)
}

func transformRound(v any) (any, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case float64:
		return math.Round(x), nil
	}
	return nil, fmt.Errorf("transform round: need a numeric value, got %T", v)
}

// transformInChIKeyBlock1 keeps the first block of an InChIKey, i.e.
// everything up to the first '-'.
func transformInChIKeyBlock1(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("transform inchikey_block1: need a text value, got %T", v)
	}
	return strings.SplitN(s, "-", 2)[0], nil
}

func transformUpper(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("transform upper: need a text value, got %T", v)
	}
	return strings.ToUpper(s), nil
}

func transformLower(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("transform lower: need a text value, got %T", v)
	}
	return strings.ToLower(s), nil
}
