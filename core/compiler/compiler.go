package compiler

import (
	"github.com/artpar/simpleschema/core/field"
	"github.com/artpar/simpleschema/core/schema"
)

// Collection is a compiled collection: a slug and its ordered fields.
// After compilation Fields never contains a field.ReverseRelation.
type Collection struct {
	Slug   string
	Fields []field.Field
}

// Field returns the first field with the given name.
func (c Collection) Field(name string) (field.Field, bool) {
	for _, f := range c.Fields {
		if f.FieldName() == name {
			return f, true
		}
	}
	return nil, false
}

// Result is the outcome of Analyze.
type Result struct {
	Collections []Collection

	// Resolved lists every join that was attached to a counterpart field,
	// in the order it was applied.
	Resolved []Resolution

	// Unresolved lists joins that were dropped without a counterpart.
	Unresolved []Unresolved
}

// Compile expands and resolves a schema. The input is not modified, and equal
// inputs always produce equal outputs.
func Compile(s schema.Schema) []Collection {
	return Analyze(s).Collections
}

// Analyze compiles a schema and reports how each join was resolved.
func Analyze(s schema.Schema) Result {
	expanded := expand(s)
	resolved, unresolved := plan(expanded)

	return Result{
		Collections: apply(expanded, resolved),
		Resolved:    resolved,
		Unresolved:  unresolved,
	}
}

// expand compiles every field of every collection in declaration order.
func expand(s schema.Schema) []Collection {
	collections := make([]Collection, len(s.Collections))
	for i, c := range s.Collections {
		fields := make([]field.Field, len(c.Fields))
		for j, spec := range c.Fields {
			fields[j] = field.Transform(spec.Name, spec.Type)
		}
		collections[i] = Collection{Slug: c.Name, Fields: fields}
	}
	return collections
}
