package field

import (
	"reflect"
	"testing"
)

func TestAnnotated_DoesNotModifyReceiver(t *testing.T) {
	orig := Relationship{Name: "parent", RelationTo: "posts", Cardinality: Single}
	sub := SubField{Name: "children", RelationTo: "posts", Cardinality: Many}

	got := orig.Annotated(sub).(Relationship)

	if orig.Admin.EnableRichText || len(orig.SubFields) != 0 {
		t.Errorf("receiver modified: %+v", orig)
	}
	if !got.Admin.EnableRichText {
		t.Error("EnableRichText not set")
	}
	if !reflect.DeepEqual(got.SubFields, []SubField{sub}) {
		t.Errorf("SubFields = %+v", got.SubFields)
	}
	if got.RelationTo != "posts" || got.Cardinality != Single {
		t.Errorf("top-level relation changed: %+v", got)
	}
}

func TestAnnotated_AppendsWithoutAliasing(t *testing.T) {
	base := Relationship{Name: "contact", RelationTo: "contacts"}.
		Annotated(SubField{Name: "deals", RelationTo: "deals", Cardinality: Many}).(Relationship)

	a := base.Annotated(SubField{Name: "a", Cardinality: Many}).(Relationship)
	b := base.Annotated(SubField{Name: "b", Cardinality: Many}).(Relationship)

	if len(base.SubFields) != 1 {
		t.Fatalf("base SubFields = %+v", base.SubFields)
	}
	if a.SubFields[1].Name != "a" || b.SubFields[1].Name != "b" {
		t.Errorf("shared backing array: a=%+v b=%+v", a.SubFields, b.SubFields)
	}
}

func TestAnnotatable(t *testing.T) {
	sub := SubField{Name: "x", RelationTo: "y", Cardinality: Many}

	for _, f := range []Field{
		Scalar{Name: "s", Type: TypeText},
		OptionSet{Name: "o", Cardinality: Single},
		Relationship{Name: "r", RelationTo: "t", Cardinality: Many},
	} {
		a, ok := f.(Annotatable)
		if !ok {
			t.Fatalf("%T does not implement Annotatable", f)
		}
		got := AnnotationsOf(a.Annotated(sub))
		if !got.Admin.EnableRichText || len(got.SubFields) != 1 {
			t.Errorf("%T: annotations = %+v", f, got)
		}
		if a.Annotated(sub).Kind() != f.Kind() {
			t.Errorf("%T: kind changed", f)
		}
	}

	if _, ok := Field(ReverseRelation{}).(Annotatable); ok {
		t.Error("ReverseRelation must not be annotatable")
	}
}

func TestCardinalityOfAndRelationTarget(t *testing.T) {
	tests := []struct {
		typ         string
		cardinality Cardinality
		target      string
		hasTarget   bool
	}{
		{"text", Single, "", false},
		{"A | B", Single, "", false},
		{"tags", Many, "", false},
		{"users", Single, "users", true},
		{"users[]", Many, "users", true},
		{"<-posts.author", Many, "posts", true},
	}

	for _, tt := range tests {
		f := Transform("f", tt.typ)
		if got := CardinalityOf(f); got != tt.cardinality {
			t.Errorf("CardinalityOf(%q) = %q, want %q", tt.typ, got, tt.cardinality)
		}
		target, ok := RelationTarget(f)
		if target != tt.target || ok != tt.hasTarget {
			t.Errorf("RelationTarget(%q) = %q, %v", tt.typ, target, ok)
		}
	}
}
