package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaNamesAndLookup(t *testing.T) {
	s := New(
		C("posts", F("title", "text"), F("author", "users")),
		C("users", F("name", "text")),
	)

	assert.Equal(t, []string{"posts", "users"}, s.Names())
	assert.Equal(t, 3, s.FieldCount())

	users, ok := s.Lookup("users")
	require.True(t, ok)
	assert.Equal(t, "users", users.Name)

	_, ok = s.Lookup("missing")
	assert.False(t, ok)
}

func TestSchemaClone(t *testing.T) {
	s := New(C("posts", F("title", "text")))
	clone := s.Clone()
	clone.Collections[0].Fields[0].Type = "number"

	assert.Equal(t, "text", s.Collections[0].Fields[0].Type)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		schema  Schema
		wantErr []string
	}{
		{
			name:   "empty schema",
			schema: New(),
		},
		{
			name:   "empty collection",
			schema: New(C("posts")),
		},
		{
			name:   "reserved words are plain names",
			schema: New(C("constructor", F("type", "text"), F("__proto__", "text"))),
		},
		{
			name:    "missing collection name",
			schema:  New(C("", F("title", "text"))),
			wantErr: []string{"collections[0]: name is required"},
		},
		{
			name:    "duplicate collection",
			schema:  New(C("posts"), C("posts")),
			wantErr: []string{`collection "posts" declared more than once`},
		},
		{
			name: "duplicate fields reported together",
			schema: New(
				C("posts", F("title", "text"), F("title", "number")),
				C("users", F("name", "text"), F("name", "text")),
			),
			wantErr: []string{
				`collection "posts": field "title" declared more than once`,
				`collection "users": field "name" declared more than once`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.schema)
			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, msg := range tt.wantErr {
				assert.Contains(t, err.Error(), msg)
			}
		})
	}
}
