/*
Package schema defines the compact, human-authored schema description that the
compiler expands into full collection definitions.

A schema is an ordered list of collections. Each collection is an ordered list of
fields, and every field carries a short type string:

	posts:
	  title:    text
	  body:     richtext
	  status:   Draft | Published | Archived
	  author:   users
	  tags:     tags[]
	  comments: <-comments.post

# Type Strings

Type strings are resolved by the field package in this order:

  - <-coll or <-coll.field: reverse relation (join), removed at compile time
  - coll[]:                 relationship to many entries (tags[] is an option set)
  - A | B | C:              option set
  - text, textarea, richtext, number, date, email, checkbox, json, tags
  - anything else:          relationship to a single entry of that collection

# Ordering

Declaration order is significant. Collections and fields are kept as ordered
slices rather than maps, and Parse preserves the key order of the YAML or JSON
document it reads.

# Parsing

	s, err := schema.ParseFile("schema.yaml")
	s, err := schema.Parse([]byte(`{"posts": {"title": "text"}}`))

Parse rejects documents whose shape is not collection -> field -> string and runs
Validate on the result.
*/
package schema
