// Package storage materializes compiled collections as relational tables.
// Single relationships become foreign key columns and many relationships
// become join tables.
package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/artpar/simpleschema/core/compiler"
	"github.com/artpar/simpleschema/core/field"
)

// ColumnDef defines a database column.
type ColumnDef struct {
	Name       string
	Type       string
	PrimaryKey bool
	NotNull    bool
	Check      string
	ForeignKey string
}

// JoinTable links entries of a collection to entries of a many relationship.
type JoinTable struct {
	Name   string
	Parent string
	Field  string
	Target string
}

// PrimaryKey is the column every collection table is keyed by.
const PrimaryKey = "id"

// ErrNameCollision is returned when two generated tables or columns would
// share a name.
var ErrNameCollision = errors.New("name collision")

// BuildSchemaSQL returns CREATE TABLE statements for every collection,
// followed by the join tables of many relationships. It fails when generated
// names collide.
func BuildSchemaSQL(collections []compiler.Collection) ([]string, error) {
	if err := CheckNames(collections); err != nil {
		return nil, err
	}

	known := knownTables(collections)

	var tables, joins []string
	for _, c := range collections {
		tables = append(tables, BuildCreateTableSQL(c, known))
		for _, jt := range JoinTables(c) {
			joins = append(joins, BuildJoinTableSQL(jt, known))
		}
	}
	return append(tables, joins...), nil
}

// CheckNames reports every table or column name that more than one part of
// the schema would produce: a field named like the primary key, two fields
// differing only in case, or a collection named like another collection's
// join table. SQLite compares identifiers case-insensitively.
func CheckNames(collections []compiler.Collection) error {
	var result *multierror.Error

	tables := make(map[string]string)
	claim := func(name, owner string) {
		key := strings.ToLower(name)
		if prev, ok := tables[key]; ok {
			result = multierror.Append(result, fmt.Errorf("%w: table %q of %s is also the table of %s",
				ErrNameCollision, name, owner, prev))
			return
		}
		tables[key] = owner
	}

	for _, c := range collections {
		claim(c.Slug, fmt.Sprintf("collection %q", c.Slug))
	}
	for _, c := range collections {
		for _, jt := range JoinTables(c) {
			claim(jt.Name, fmt.Sprintf("field %s.%s", c.Slug, jt.Field))
		}
	}

	for _, c := range collections {
		columns := make(map[string]string)
		for _, col := range tableColumns(c) {
			key := strings.ToLower(col.Name)
			if prev, ok := columns[key]; ok {
				result = multierror.Append(result, fmt.Errorf("%w: collection %q: column %q clashes with %q",
					ErrNameCollision, c.Slug, col.Name, prev))
				continue
			}
			columns[key] = col.Name
		}
	}

	return result.ErrorOrNil()
}

// BuildCreateTableSQL generates CREATE TABLE SQL for a compiled collection.
// Foreign keys are only declared for targets present in known.
func BuildCreateTableSQL(c compiler.Collection, known map[string]bool) string {
	var columns, constraints []string

	for _, col := range tableColumns(c) {
		columns = append(columns, buildColumnDef(col))

		if col.ForeignKey != "" && known[col.ForeignKey] {
			constraints = append(constraints, fmt.Sprintf(
				"FOREIGN KEY(%s) REFERENCES %s(id)",
				QuoteIdent(col.Name), QuoteIdent(col.ForeignKey),
			))
		}
	}

	sql := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n  %s",
		QuoteIdent(c.Slug),
		strings.Join(columns, ",\n  "),
	)

	if len(constraints) > 0 {
		sql += ",\n  " + strings.Join(constraints, ",\n  ")
	}

	sql += "\n)"

	return sql
}

// BuildAddColumnSQL generates ALTER TABLE SQL adding one column to an
// existing collection table.
func BuildAddColumnSQL(table string, col ColumnDef, known map[string]bool) string {
	def := buildColumnDef(col)
	if col.ForeignKey != "" && known[col.ForeignKey] {
		def += fmt.Sprintf(" REFERENCES %s(id)", QuoteIdent(col.ForeignKey))
	}
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", QuoteIdent(table), def)
}

// MissingColumns returns the columns of c absent from existing, in field
// order. Existing columns are never changed or dropped.
func MissingColumns(c compiler.Collection, existing []string) []ColumnDef {
	have := make(map[string]bool, len(existing))
	for _, name := range existing {
		have[strings.ToLower(name)] = true
	}

	var missing []ColumnDef
	for _, col := range tableColumns(c) {
		if !have[strings.ToLower(col.Name)] {
			missing = append(missing, col)
		}
	}
	return missing
}

// JoinTables returns the join tables needed by c's many relationships.
func JoinTables(c compiler.Collection) []JoinTable {
	var tables []JoinTable
	for _, f := range c.Fields {
		rel, ok := f.(field.Relationship)
		if !ok || rel.Cardinality != field.Many {
			continue
		}
		tables = append(tables, JoinTable{
			Name:   c.Slug + "_" + rel.Name,
			Parent: c.Slug,
			Field:  rel.Name,
			Target: rel.RelationTo,
		})
	}
	return tables
}

// BuildJoinTableSQL generates CREATE TABLE SQL for a join table.
func BuildJoinTableSQL(jt JoinTable, known map[string]bool) string {
	target := "related_id TEXT NOT NULL"
	if known[jt.Target] {
		target += fmt.Sprintf(" REFERENCES %s(id) ON DELETE CASCADE", QuoteIdent(jt.Target))
	}

	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n  parent_id TEXT NOT NULL REFERENCES %s(id) ON DELETE CASCADE,\n  %s,\n  position INTEGER NOT NULL DEFAULT 0,\n  PRIMARY KEY(parent_id, related_id)\n)",
		QuoteIdent(jt.Name), QuoteIdent(jt.Parent), target,
	)
}

// tableColumns returns the primary key followed by the column of every field
// that has one.
func tableColumns(c compiler.Collection) []ColumnDef {
	columns := []ColumnDef{{Name: PrimaryKey, Type: "TEXT", PrimaryKey: true}}
	for _, f := range c.Fields {
		if col, ok := columnFor(f); ok {
			columns = append(columns, col)
		}
	}
	return columns
}

func knownTables(collections []compiler.Collection) map[string]bool {
	known := make(map[string]bool, len(collections))
	for _, c := range collections {
		known[c.Slug] = true
	}
	return known
}

// columnFor maps a compiled field to its column. Many relationships have no
// column of their own.
func columnFor(f field.Field) (ColumnDef, bool) {
	switch v := f.(type) {
	case field.Scalar:
		return ColumnDef{Name: v.Name, Type: sqlType(v.Type)}, true

	case field.OptionSet:
		col := ColumnDef{Name: v.Name, Type: "TEXT"}
		// many-valued sets are stored as a JSON array
		if v.Cardinality == field.Single && len(v.Options) > 0 {
			values := make([]string, len(v.Options))
			for i, o := range v.Options {
				values[i] = QuoteString(o.Value)
			}
			col.Check = fmt.Sprintf("%s IN (%s)", QuoteIdent(v.Name), strings.Join(values, ", "))
		}
		return col, true

	case field.Relationship:
		if v.Cardinality == field.Many {
			return ColumnDef{}, false
		}
		return ColumnDef{Name: v.Name, Type: "TEXT", ForeignKey: v.RelationTo}, true

	default:
		return ColumnDef{}, false
	}
}

// sqlType returns the SQLite column type for a scalar.
func sqlType(t field.ScalarType) string {
	switch t {
	case field.TypeNumber:
		return "REAL"
	case field.TypeCheckbox:
		return "INTEGER"
	default:
		return "TEXT"
	}
}

// buildColumnDef builds a column definition.
func buildColumnDef(c ColumnDef) string {
	parts := []string{QuoteIdent(c.Name), c.Type}

	if c.PrimaryKey {
		parts = append(parts, "PRIMARY KEY")
	}
	if c.NotNull {
		parts = append(parts, "NOT NULL")
	}
	if c.Check != "" {
		parts = append(parts, "CHECK("+c.Check+")")
	}

	return strings.Join(parts, " ")
}

// QuoteIdent quotes an SQL identifier. Collection and field names are not
// restricted, so every identifier is quoted.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteString quotes an SQL string literal.
func QuoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
