package formatter

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/artpar/simpleschema/core/compiler"
)

// JSONFormatter formats output as JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Name returns the formatter name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// Description returns the formatter description.
func (f *JSONFormatter) Description() string {
	return "JSON output format"
}

// FormatCollections formats compiled collections as a JSON array.
func (f *JSONFormatter) FormatCollections(w io.Writer, docs []compiler.CollectionDoc, opts FormatOptions) error {
	filtered := filterCollections(docs, opts.Collections)
	if filtered == nil {
		filtered = []compiler.CollectionDoc{}
	}
	return f.encode(w, filtered, opts.Compact)
}

// FormatUnresolved formats dropped joins as JSON.
func (f *JSONFormatter) FormatUnresolved(w io.Writer, unresolved []compiler.Unresolved, opts FormatOptions) error {
	return f.encode(w, map[string]any{
		"unresolved": unresolvedRecords(unresolved),
		"count":      len(unresolved),
	}, opts.Compact)
}

// FormatError formats an error as JSON.
func (f *JSONFormatter) FormatError(w io.Writer, err error) error {
	output := map[string]any{
		"error": err.Error(),
	}
	return f.encode(w, output, false)
}

// encode writes JSON to the writer.
func (f *JSONFormatter) encode(w io.Writer, data any, compact bool) error {
	encoder := json.NewEncoder(w)
	if !compact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// unresolvedRecords converts dropped joins to plain records.
func unresolvedRecords(unresolved []compiler.Unresolved) []map[string]any {
	records := make([]map[string]any, len(unresolved))
	for i, u := range unresolved {
		records[i] = map[string]any{
			"collection":  u.Collection,
			"join":        u.Join,
			"target":      u.Target,
			"sourceField": u.SourceField,
			"reason":      string(u.Reason),
		}
	}
	return records
}

func init() {
	if err := Register(NewJSONFormatter()); err != nil {
		fmt.Printf("failed to register json formatter: %v\n", err)
	}
}
