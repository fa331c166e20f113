package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseFile parses a schema from a YAML or JSON file.
func ParseFile(path string) (Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Schema{}, fmt.Errorf("read file %s: %w", path, err)
	}

	s, err := Parse(data)
	if err != nil {
		return Schema{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return s, nil
}

// Parse decodes a schema from YAML or JSON bytes and validates it.
// Key order of the document is preserved.
func Parse(data []byte) (Schema, error) {
	s, err := Decode(data)
	if err != nil {
		return Schema{}, err
	}

	if err := Validate(s); err != nil {
		return Schema{}, fmt.Errorf("validate schema: %w", err)
	}

	return s, nil
}

// Decode decodes a schema from YAML or JSON bytes without validating it.
// Errors are syntax or shape errors only.
func Decode(data []byte) (Schema, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Schema{}, fmt.Errorf("parse yaml: %w", err)
	}

	// Empty document
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return Schema{}, nil
	}

	return decodeSchema(doc.Content[0])
}

func decodeSchema(root *yaml.Node) (Schema, error) {
	if isNull(root) {
		return Schema{}, nil
	}
	if root.Kind != yaml.MappingNode {
		return Schema{}, fmt.Errorf("line %d: schema must be a mapping of collection names", root.Line)
	}

	var s Schema
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		if key.Kind != yaml.ScalarNode {
			return Schema{}, fmt.Errorf("line %d: collection name must be a string", key.Line)
		}

		c, err := decodeCollection(key.Value, value)
		if err != nil {
			return Schema{}, err
		}
		s.Collections = append(s.Collections, c)
	}

	return s, nil
}

func decodeCollection(name string, node *yaml.Node) (Collection, error) {
	c := Collection{Name: name}

	// "posts: {}" and "posts:" both declare an empty collection
	if isNull(node) {
		return c, nil
	}
	if node.Kind != yaml.MappingNode {
		return Collection{}, fmt.Errorf("line %d: collection %q must be a mapping of field names", node.Line, name)
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if key.Kind != yaml.ScalarNode {
			return Collection{}, fmt.Errorf("line %d: collection %q: field name must be a string", key.Line, name)
		}
		if value.Kind != yaml.ScalarNode || isNull(value) {
			return Collection{}, fmt.Errorf("line %d: collection %q: field %q must have a type string",
				value.Line, name, key.Value)
		}
		c.Fields = append(c.Fields, FieldSpec{Name: key.Value, Type: value.Value})
	}

	return c, nil
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}

// IsSchemaFile reports whether the file name has a supported schema extension.
func IsSchemaFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	default:
		return false
	}
}
