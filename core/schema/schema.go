package schema

// Schema is an ordered list of collections.
type Schema struct {
	Collections []Collection
}

// Collection is a named, ordered list of field declarations.
type Collection struct {
	Name   string
	Fields []FieldSpec
}

// FieldSpec pairs a field name with its type string.
type FieldSpec struct {
	Name string
	Type string
}

// New builds a schema from collections in the given order.
func New(collections ...Collection) Schema {
	return Schema{Collections: collections}
}

// C builds a collection from fields in the given order.
func C(name string, fields ...FieldSpec) Collection {
	return Collection{Name: name, Fields: fields}
}

// F builds a field declaration.
func F(name, typ string) FieldSpec {
	return FieldSpec{Name: name, Type: typ}
}

// Names returns collection names in declaration order.
func (s Schema) Names() []string {
	names := make([]string, len(s.Collections))
	for i, c := range s.Collections {
		names[i] = c.Name
	}
	return names
}

// Lookup returns the first collection with the given name.
func (s Schema) Lookup(name string) (Collection, bool) {
	for _, c := range s.Collections {
		if c.Name == name {
			return c, true
		}
	}
	return Collection{}, false
}

// FieldCount returns the total number of declared fields.
func (s Schema) FieldCount() int {
	n := 0
	for _, c := range s.Collections {
		n += len(c.Fields)
	}
	return n
}

// Clone returns a deep copy of the schema.
func (s Schema) Clone() Schema {
	out := Schema{Collections: make([]Collection, len(s.Collections))}
	for i, c := range s.Collections {
		fields := make([]FieldSpec, len(c.Fields))
		copy(fields, c.Fields)
		out.Collections[i] = Collection{Name: c.Name, Fields: fields}
	}
	return out
}
