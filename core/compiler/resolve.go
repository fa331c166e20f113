package compiler

import (
	"github.com/artpar/simpleschema/core/field"
)

// Reason explains why a join could not be resolved.
type Reason string

const (
	// ReasonMissingCollection means the join targets an undeclared collection.
	ReasonMissingCollection Reason = "missing-collection"

	// ReasonMissingField means the named source field does not exist in the target.
	ReasonMissingField Reason = "missing-field"

	// ReasonNoBackReference means the target has no relationship pointing back
	// at the declaring collection.
	ReasonNoBackReference Reason = "no-backreference"

	// ReasonReverseCounterpart means the named source field is itself a join,
	// which is removed at compile time and cannot carry the annotation.
	ReasonReverseCounterpart Reason = "reverse-counterpart"
)

// Resolution attaches a join to its counterpart field.
type Resolution struct {
	// Collection and Join identify the declaring collection and join field.
	Collection string
	Join       string

	// Target and Field identify the counterpart.
	Target string
	Field  string

	// SubField is the descriptor appended to the counterpart.
	SubField field.SubField

	targetIndex int
	fieldIndex  int
}

// Unresolved is a join dropped without a counterpart.
type Unresolved struct {
	Collection  string
	Join        string
	Target      string
	SourceField string
	Reason      Reason
}

// plan scans the expanded collections without modifying them and returns the
// resolution actions in collection, then field, declaration order.
func plan(collections []Collection) ([]Resolution, []Unresolved) {
	index := indexBySlug(collections)

	var resolved []Resolution
	var unresolved []Unresolved

	for _, c := range collections {
		for _, f := range c.Fields {
			join, ok := f.(field.ReverseRelation)
			if !ok {
				continue
			}

			r, reason := locate(collections, index, c.Slug, join)
			if reason != "" {
				unresolved = append(unresolved, Unresolved{
					Collection:  c.Slug,
					Join:        join.Name,
					Target:      join.RelationTo,
					SourceField: join.SourceField,
					Reason:      reason,
				})
				continue
			}
			resolved = append(resolved, r)
		}
	}

	return resolved, unresolved
}

// locate finds the counterpart of join, declared in collection slug.
func locate(collections []Collection, index map[string]int, slug string, join field.ReverseRelation) (Resolution, Reason) {
	ti, ok := index[join.RelationTo]
	if !ok {
		return Resolution{}, ReasonMissingCollection
	}
	target := collections[ti]

	fi := -1
	if join.HasSourceField() {
		// explicit source field matches by name, whatever its kind
		for i, f := range target.Fields {
			if f.FieldName() == join.SourceField {
				fi = i
				break
			}
		}
		if fi < 0 {
			return Resolution{}, ReasonMissingField
		}
		if _, ok := target.Fields[fi].(field.Annotatable); !ok {
			return Resolution{}, ReasonReverseCounterpart
		}
	} else {
		// first relationship pointing back at the declaring collection
		for i, f := range target.Fields {
			if rel, ok := f.(field.Relationship); ok && rel.RelationTo == slug {
				fi = i
				break
			}
		}
		if fi < 0 {
			return Resolution{}, ReasonNoBackReference
		}
	}

	return Resolution{
		Collection: slug,
		Join:       join.Name,
		Target:     target.Slug,
		Field:      target.Fields[fi].FieldName(),
		SubField: field.SubField{
			Name:        join.Name,
			RelationTo:  join.RelationTo,
			Cardinality: field.Many,
		},
		targetIndex: ti,
		fieldIndex:  fi,
	}, ""
}

// apply builds new collections with every resolution attached and every
// reverse relation removed. Relative field order is preserved.
func apply(collections []Collection, resolutions []Resolution) []Collection {
	fields := make([][]field.Field, len(collections))
	for i, c := range collections {
		fields[i] = make([]field.Field, len(c.Fields))
		copy(fields[i], c.Fields)
	}

	for _, r := range resolutions {
		counterpart := fields[r.targetIndex][r.fieldIndex].(field.Annotatable)
		fields[r.targetIndex][r.fieldIndex] = counterpart.Annotated(r.SubField)
	}

	out := make([]Collection, len(collections))
	for i, c := range collections {
		kept := make([]field.Field, 0, len(fields[i]))
		for _, f := range fields[i] {
			if f.Kind() == field.KindReverseRelation {
				continue
			}
			kept = append(kept, f)
		}
		out[i] = Collection{Slug: c.Slug, Fields: kept}
	}
	return out
}

// indexBySlug maps each slug to its first declaration.
func indexBySlug(collections []Collection) map[string]int {
	index := make(map[string]int, len(collections))
	for i, c := range collections {
		if _, exists := index[c.Slug]; !exists {
			index[c.Slug] = i
		}
	}
	return index
}
