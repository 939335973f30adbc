package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// rawColumn is one column entry as it appears in the layout file.
type rawColumn struct {
	DType      string     `yaml:"DTYPE"`
	SDTag      stringList `yaml:"SD_TAG"`
	NotNull    bool       `yaml:"NOT_NULL"`
	PrimaryKey bool       `yaml:"PRIMARY_KEY"`
	WithIndex  bool       `yaml:"WITH_INDEX"`
	CreateLike string     `yaml:"CREATE_LIKE"`
}

// stringList accepts either a single scalar or a sequence of strings.
type stringList []string

func (l *stringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*l = stringList{s}
		return nil
	case yaml.SequenceNode:
		var ss []string
		if err := node.Decode(&ss); err != nil {
			return err
		}
		*l = stringList(ss)
		return nil
	}
	return fmt.Errorf("SD_TAG must be a string or a list of strings")
}

// Load reads and validates a layout file. YAML is a superset of JSON, so
// both the .yaml layouts and the historical .json layouts parse here.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading layout file: %w", err)
	}
	spec, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("layout %s: %w", path, err)
	}
	return spec, nil
}

// Parse decodes layout bytes into a validated Spec. Column order follows
// the declaration order in the file; decoding via yaml.Node preserves it,
// which a plain map would not.
func Parse(data []byte) (*Spec, error) {
	var doc struct {
		Columns yaml.Node `yaml:"columns"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing layout: %w", err)
	}
	if doc.Columns.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("layout must contain a 'columns' mapping")
	}

	spec := &Spec{}
	content := doc.Columns.Content
	for i := 0; i+1 < len(content); i += 2 {
		name := content[i].Value
		var rc rawColumn
		if err := content[i+1].Decode(&rc); err != nil {
			return nil, fmt.Errorf("column %s: %w", name, err)
		}

		dt, err := ParseDType(rc.DType)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", name, err)
		}

		col := Column{
			Name:       name,
			DType:      dt,
			SDTags:     rc.SDTag,
			NotNull:    rc.NotNull || rc.PrimaryKey, // a primary key is always not null
			PrimaryKey: rc.PrimaryKey,
			WithIndex:  rc.WithIndex,
		}
		if rc.CreateLike != "" {
			t, err := LookupTransform(rc.CreateLike)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", name, err)
			}
			col.Transform = t
			col.TransformName = rc.CreateLike
		}
		spec.Columns = append(spec.Columns, col)
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}
