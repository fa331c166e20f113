package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/simpleschema/core/compiler"
	"github.com/artpar/simpleschema/core/schema"
)

func compile(collections ...schema.Collection) []compiler.Collection {
	return compiler.Compile(schema.New(collections...))
}

func TestBuildCreateTableSQL(t *testing.T) {
	out := compile(
		schema.C("posts",
			schema.F("title", "text"),
			schema.F("views", "number"),
			schema.F("published", "checkbox"),
			schema.F("status", "Draft | Published"),
			schema.F("tags", "tags[]"),
			schema.F("author", "users"),
			schema.F("editors", "users[]"),
			schema.F("comments", "<-comments"),
		),
		schema.C("users", schema.F("name", "text")),
	)

	sql := BuildCreateTableSQL(out[0], map[string]bool{"posts": true, "users": true})

	want := `CREATE TABLE IF NOT EXISTS "posts" (
  "id" TEXT PRIMARY KEY,
  "title" TEXT,
  "views" REAL,
  "published" INTEGER,
  "status" TEXT CHECK("status" IN ('draft', 'published')),
  "tags" TEXT,
  "author" TEXT,
  FOREIGN KEY("author") REFERENCES "users"(id)
)`
	assert.Equal(t, want, sql)
}

func TestBuildCreateTableSQL_UnknownTargetHasNoForeignKey(t *testing.T) {
	out := compile(schema.C("posts", schema.F("author", "users")))

	sql := BuildCreateTableSQL(out[0], map[string]bool{"posts": true})

	assert.Contains(t, sql, `"author" TEXT`)
	assert.NotContains(t, sql, "FOREIGN KEY")
}

func TestBuildSchemaSQL_JoinTablesLast(t *testing.T) {
	out := compile(
		schema.C("deals", schema.F("products", "products[]")),
		schema.C("products", schema.F("name", "text")),
	)

	stmts, err := BuildSchemaSQL(out)
	require.NoError(t, err)

	require.Len(t, stmts, 3)
	assert.True(t, strings.HasPrefix(stmts[0], `CREATE TABLE IF NOT EXISTS "deals"`))
	assert.True(t, strings.HasPrefix(stmts[1], `CREATE TABLE IF NOT EXISTS "products"`))
	assert.True(t, strings.HasPrefix(stmts[2], `CREATE TABLE IF NOT EXISTS "deals_products"`))
	assert.Contains(t, stmts[2], `REFERENCES "products"(id)`)
}

func TestJoinTables(t *testing.T) {
	out := compile(schema.C("kitchen", schema.F("children", "kitchen[]"), schema.F("parent", "kitchen")))

	assert.Equal(t, []JoinTable{{Name: "kitchen_children", Parent: "kitchen", Field: "children", Target: "kitchen"}}, JoinTables(out[0]))
}

func TestBuildSchemaSQL_NameCollisions(t *testing.T) {
	tests := []struct {
		name string
		in   []schema.Collection
		want string
	}{
		{
			"field named like the primary key",
			[]schema.Collection{schema.C("users", schema.F("id", "text"))},
			`collection "users": column "id" clashes with "id"`,
		},
		{
			"primary key in another case",
			[]schema.Collection{schema.C("users", schema.F("ID", "number"))},
			`column "ID" clashes with "id"`,
		},
		{
			"fields differing only in case",
			[]schema.Collection{schema.C("users", schema.F("Name", "text"), schema.F("name", "text"))},
			`column "name" clashes with "Name"`,
		},
		{
			"collection named like a join table",
			[]schema.Collection{
				schema.C("posts", schema.F("tags", "labels[]")),
				schema.C("posts_tags", schema.F("title", "text")),
			},
			`table "posts_tags" of field posts.tags is also the table of collection "posts_tags"`,
		},
		{
			"two join tables with one name",
			[]schema.Collection{
				schema.C("a", schema.F("b_c", "x[]")),
				schema.C("a_b", schema.F("c", "x[]")),
			},
			`table "a_b_c" of field a_b.c is also the table of field a.b_c`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmts, err := BuildSchemaSQL(compile(tt.in...))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrNameCollision)
			assert.Contains(t, err.Error(), tt.want)
			assert.Nil(t, stmts)
		})
	}
}

func TestCheckNames_ReverseRelationsAndManyFieldsHaveNoColumn(t *testing.T) {
	out := compile(
		schema.C("users", schema.F("posts", "<-posts.author"), schema.F("Posts", "posts[]")),
		schema.C("posts", schema.F("author", "users")),
	)
	assert.NoError(t, CheckNames(out))
}

func TestMissingColumns(t *testing.T) {
	out := compile(schema.C("posts",
		schema.F("title", "text"),
		schema.F("Views", "number"),
		schema.F("author", "users"),
		schema.F("editors", "users[]"),
	))

	missing := MissingColumns(out[0], []string{"id", "TITLE"})

	assert.Equal(t, []ColumnDef{
		{Name: "Views", Type: "REAL"},
		{Name: "author", Type: "TEXT", ForeignKey: "users"},
	}, missing)
	assert.Equal(t, `ALTER TABLE "posts" ADD COLUMN "author" TEXT REFERENCES "users"(id)`,
		BuildAddColumnSQL("posts", missing[1], map[string]bool{"users": true}))
	assert.Equal(t, `ALTER TABLE "posts" ADD COLUMN "author" TEXT`,
		BuildAddColumnSQL("posts", missing[1], nil))
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `"collection with spaces"`, QuoteIdent("collection with spaces"))
	assert.Equal(t, `"a""b"`, QuoteIdent(`a"b`))
	assert.Equal(t, `'it''s'`, QuoteString("it's"))
}
