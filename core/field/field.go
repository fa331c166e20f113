// Package field compiles a single shorthand type string into a typed field definition.
package field

// Kind identifies the variant of a compiled field.
type Kind string

const (
	KindScalar          Kind = "scalar"
	KindOptionSet       Kind = "option-set"
	KindRelationship    Kind = "relationship"
	KindReverseRelation Kind = "reverse-relation"
)

// Cardinality is the reference multiplicity of a field.
type Cardinality string

const (
	Single Cardinality = "single"
	Many   Cardinality = "many"
)

// ScalarType is the storage type of a scalar field.
type ScalarType string

const (
	TypeText     ScalarType = "text"
	TypeTextarea ScalarType = "textarea"
	TypeRichText ScalarType = "richText"
	TypeNumber   ScalarType = "number"
	TypeDate     ScalarType = "date"
	TypeEmail    ScalarType = "email"
	TypeCheckbox ScalarType = "checkbox"
	TypeJSON     ScalarType = "json"
)

// Field is a compiled field definition. The concrete type is one of
// Scalar, OptionSet, Relationship or ReverseRelation.
type Field interface {
	FieldName() string
	Kind() Kind
	isField()
}

// Annotatable is implemented by every field that survives compilation.
// Annotated returns a copy carrying the join descriptor; the receiver is not modified.
type Annotatable interface {
	Field
	Annotated(sub SubField) Field
}

// Admin holds display hints for the hosting framework's admin UI.
type Admin struct {
	ReadOnly       bool
	EnableRichText bool
}

// SubField is a virtual relationship nested under a field, produced when a
// reverse relation resolves onto it.
type SubField struct {
	Name        string
	RelationTo  string
	Cardinality Cardinality
}

// Annotations are attached to a field by join resolution. Zero value means
// no join resolved onto the field.
type Annotations struct {
	Admin     Admin
	SubFields []SubField
}

// annotate returns a copy with rich nested editing enabled and sub appended.
func (a Annotations) annotate(sub SubField) Annotations {
	subs := make([]SubField, len(a.SubFields), len(a.SubFields)+1)
	copy(subs, a.SubFields)
	a.Admin.EnableRichText = true
	a.SubFields = append(subs, sub)
	return a
}

// Scalar is a plain value field.
type Scalar struct {
	Name string
	Type ScalarType
	Annotations
}

func (f Scalar) FieldName() string { return f.Name }
func (f Scalar) Kind() Kind        { return KindScalar }
func (Scalar) isField()            {}

// Annotated implements Annotatable.
func (f Scalar) Annotated(sub SubField) Field {
	f.Annotations = f.Annotations.annotate(sub)
	return f
}

// Option is one allowed value of an option set.
type Option struct {
	Label string
	Value string
}

// OptionSet restricts a field to a fixed list of labeled values.
type OptionSet struct {
	Name        string
	Cardinality Cardinality
	Options     []Option
	Annotations
}

func (f OptionSet) FieldName() string { return f.Name }
func (f OptionSet) Kind() Kind        { return KindOptionSet }
func (OptionSet) isField()            {}

// Annotated implements Annotatable.
func (f OptionSet) Annotated(sub SubField) Field {
	f.Annotations = f.Annotations.annotate(sub)
	return f
}

// Relationship stores one or many references to entries of another collection.
type Relationship struct {
	Name        string
	RelationTo  string
	Cardinality Cardinality
	Annotations
}

func (f Relationship) FieldName() string { return f.Name }
func (f Relationship) Kind() Kind        { return KindRelationship }
func (Relationship) isField()            {}

// Annotated implements Annotatable.
func (f Relationship) Annotated(sub SubField) Field {
	f.Annotations = f.Annotations.annotate(sub)
	return f
}

// ReverseRelation is the inverse side of a relationship declared on another
// collection. It is derived, never stored, and is removed at compile time.
type ReverseRelation struct {
	Name       string
	RelationTo string

	// SourceField names the counterpart field in RelationTo. Empty means the
	// first relationship pointing back at the declaring collection is used.
	SourceField string
}

func (f ReverseRelation) FieldName() string { return f.Name }
func (f ReverseRelation) Kind() Kind        { return KindReverseRelation }
func (ReverseRelation) isField()            {}

// Cardinality is always Many.
func (ReverseRelation) Cardinality() Cardinality { return Many }

// HasSourceField reports whether an explicit counterpart field was declared.
func (f ReverseRelation) HasSourceField() bool { return f.SourceField != "" }

// ReadOnly is always true: consumers must never persist this field.
func (ReverseRelation) ReadOnly() bool { return true }

// BeforeChange is the write hook for reverse relations. The incoming value is
// discarded unconditionally.
func (ReverseRelation) BeforeChange(value any) any { return nil }

// CardinalityOf returns the multiplicity of f, or Single for scalars.
func CardinalityOf(f Field) Cardinality {
	switch v := f.(type) {
	case OptionSet:
		return v.Cardinality
	case Relationship:
		return v.Cardinality
	case ReverseRelation:
		return Many
	default:
		return Single
	}
}

// RelationTarget returns the target collection of relationship and reverse
// relation fields.
func RelationTarget(f Field) (string, bool) {
	switch v := f.(type) {
	case Relationship:
		return v.RelationTo, true
	case ReverseRelation:
		return v.RelationTo, true
	default:
		return "", false
	}
}

// AnnotationsOf returns the join annotations carried by f.
func AnnotationsOf(f Field) Annotations {
	switch v := f.(type) {
	case Scalar:
		return v.Annotations
	case OptionSet:
		return v.Annotations
	case Relationship:
		return v.Annotations
	default:
		return Annotations{}
	}
}
