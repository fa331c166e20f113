package formatter

import (
	"fmt"
	"io"

	"github.com/artpar/simpleschema/core/compiler"
	"gopkg.in/yaml.v3"
)

// YAMLFormatter formats output as YAML.
type YAMLFormatter struct{}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

// Name returns the formatter name.
func (f *YAMLFormatter) Name() string {
	return "yaml"
}

// Description returns the formatter description.
func (f *YAMLFormatter) Description() string {
	return "YAML output format"
}

// FormatCollections formats compiled collections as a YAML sequence.
func (f *YAMLFormatter) FormatCollections(w io.Writer, docs []compiler.CollectionDoc, opts FormatOptions) error {
	filtered := filterCollections(docs, opts.Collections)
	if filtered == nil {
		filtered = []compiler.CollectionDoc{}
	}
	return f.encode(w, filtered)
}

// FormatUnresolved formats dropped joins as YAML.
func (f *YAMLFormatter) FormatUnresolved(w io.Writer, unresolved []compiler.Unresolved, opts FormatOptions) error {
	return f.encode(w, map[string]any{
		"unresolved": unresolvedRecords(unresolved),
		"count":      len(unresolved),
	})
}

// FormatError formats an error as YAML.
func (f *YAMLFormatter) FormatError(w io.Writer, err error) error {
	output := map[string]any{
		"error": err.Error(),
	}
	return f.encode(w, output)
}

// encode writes YAML to the writer.
func (f *YAMLFormatter) encode(w io.Writer, data any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()
	return encoder.Encode(data)
}

func init() {
	if err := Register(NewYAMLFormatter()); err != nil {
		fmt.Printf("failed to register yaml formatter: %v\n", err)
	}
}
