package compiler

import (
	"github.com/artpar/simpleschema/core/field"
)

// CollectionDoc is the serializable form of a compiled collection, shaped for
// a document-modeling framework's collection configuration.
type CollectionDoc struct {
	Slug   string     `json:"slug" yaml:"slug"`
	Fields []FieldDoc `json:"fields" yaml:"fields"`
}

// FieldDoc is the serializable form of a compiled field.
type FieldDoc struct {
	Name       string        `json:"name" yaml:"name"`
	Type       string        `json:"type" yaml:"type"`
	RelationTo string        `json:"relationTo,omitempty" yaml:"relationTo,omitempty"`
	HasMany    bool          `json:"hasMany,omitempty" yaml:"hasMany,omitempty"`
	Options    *[]OptionDoc  `json:"options,omitempty" yaml:"options,omitempty"`
	Admin      *AdminDoc     `json:"admin,omitempty" yaml:"admin,omitempty"`
	Fields     []SubFieldDoc `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// OptionDoc is one option of a select field.
type OptionDoc struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

// AdminDoc carries admin UI hints.
type AdminDoc struct {
	ReadOnly       bool `json:"readOnly,omitempty" yaml:"readOnly,omitempty"`
	EnableRichText bool `json:"enableRichText,omitempty" yaml:"enableRichText,omitempty"`
}

// SubFieldDoc is a virtual relationship nested under a field.
type SubFieldDoc struct {
	Name       string `json:"name" yaml:"name"`
	Type       string `json:"type" yaml:"type"`
	RelationTo string `json:"relationTo" yaml:"relationTo"`
	HasMany    bool   `json:"hasMany" yaml:"hasMany"`
}

// Field type names used by the framework.
const (
	DocTypeSelect       = "select"
	DocTypeRelationship = "relationship"
	DocTypeJoin         = "join"
)

// Export converts compiled collections to their serializable form.
func Export(collections []Collection) []CollectionDoc {
	docs := make([]CollectionDoc, len(collections))
	for i, c := range collections {
		docs[i] = ExportCollection(c)
	}
	return docs
}

// ExportCollection converts one compiled collection.
func ExportCollection(c Collection) CollectionDoc {
	fields := make([]FieldDoc, len(c.Fields))
	for i, f := range c.Fields {
		fields[i] = ExportField(f)
	}
	return CollectionDoc{Slug: c.Slug, Fields: fields}
}

// ExportField converts one compiled field.
func ExportField(f field.Field) FieldDoc {
	doc := FieldDoc{Name: f.FieldName()}

	switch v := f.(type) {
	case field.Scalar:
		doc.Type = string(v.Type)
	case field.OptionSet:
		doc.Type = DocTypeSelect
		doc.HasMany = v.Cardinality == field.Many
		options := make([]OptionDoc, len(v.Options))
		for i, o := range v.Options {
			options[i] = OptionDoc{Label: o.Label, Value: o.Value}
		}
		doc.Options = &options
	case field.Relationship:
		doc.Type = DocTypeRelationship
		doc.RelationTo = v.RelationTo
		doc.HasMany = v.Cardinality == field.Many
	case field.ReverseRelation:
		doc.Type = DocTypeJoin
		doc.RelationTo = v.RelationTo
		doc.HasMany = true
		doc.Admin = &AdminDoc{ReadOnly: v.ReadOnly()}
	}

	ann := field.AnnotationsOf(f)
	if ann.Admin.EnableRichText || ann.Admin.ReadOnly {
		doc.Admin = &AdminDoc{ReadOnly: ann.Admin.ReadOnly, EnableRichText: ann.Admin.EnableRichText}
	}
	for _, sub := range ann.SubFields {
		doc.Fields = append(doc.Fields, SubFieldDoc{
			Name:       sub.Name,
			Type:       DocTypeRelationship,
			RelationTo: sub.RelationTo,
			HasMany:    sub.Cardinality == field.Many,
		})
	}

	return doc
}
