package formatter

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/artpar/simpleschema/core/compiler"
)

// TableFormatter formats output as aligned text tables, one row per field.
type TableFormatter struct{}

// NewTableFormatter creates a new table formatter.
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{}
}

// Name returns the formatter name.
func (f *TableFormatter) Name() string {
	return "table"
}

// Description returns the formatter description.
func (f *TableFormatter) Description() string {
	return "Aligned text table output"
}

var tableColumns = []string{"COLLECTION", "FIELD", "TYPE", "RELATION", "MANY", "DETAILS"}

// FormatCollections formats compiled collections as a table.
func (f *TableFormatter) FormatCollections(w io.Writer, docs []compiler.CollectionDoc, opts FormatOptions) error {
	docs = filterCollections(docs, opts.Collections)
	if len(docs) == 0 {
		fmt.Fprintln(w, "No collections found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if !opts.NoHeader {
		fmt.Fprintln(tw, strings.Join(tableColumns, "\t"))
	}

	for _, doc := range docs {
		if len(doc.Fields) == 0 {
			fmt.Fprintf(tw, "%s\t-\t-\t-\t-\t-\n", doc.Slug)
			continue
		}
		for _, fd := range doc.Fields {
			values := []string{
				doc.Slug,
				fd.Name,
				fd.Type,
				orDash(fd.RelationTo),
				yesNo(fd.HasMany),
				f.truncate(f.details(fd), opts.MaxWidth),
			}
			fmt.Fprintln(tw, strings.Join(values, "\t"))
		}
	}

	return tw.Flush()
}

// FormatUnresolved formats dropped joins as a table.
func (f *TableFormatter) FormatUnresolved(w io.Writer, unresolved []compiler.Unresolved, opts FormatOptions) error {
	if len(unresolved) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if !opts.NoHeader {
		fmt.Fprintln(tw, "COLLECTION\tJOIN\tTARGET\tSOURCE\tREASON")
	}
	for _, u := range unresolved {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			u.Collection, u.Join, u.Target, orDash(u.SourceField), u.Reason)
	}
	return tw.Flush()
}

// FormatError formats an error message.
func (f *TableFormatter) FormatError(w io.Writer, err error) error {
	fmt.Fprintf(w, "Error: %s\n", err.Error())
	return nil
}

// details summarizes options and join sub-fields.
func (f *TableFormatter) details(fd compiler.FieldDoc) string {
	var parts []string

	if fd.Options != nil {
		values := make([]string, len(*fd.Options))
		for i, o := range *fd.Options {
			values[i] = o.Value
		}
		parts = append(parts, "options=["+strings.Join(values, ",")+"]")
	}

	for _, sub := range fd.Fields {
		parts = append(parts, fmt.Sprintf("join %s<-%s", sub.Name, sub.RelationTo))
	}

	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " ")
}

// truncate shortens long values for display.
func (f *TableFormatter) truncate(s string, maxWidth int) string {
	if maxWidth > 3 && len(s) > maxWidth {
		return s[:maxWidth-3] + "..."
	}
	return s
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func init() {
	Register(NewTableFormatter())
}
