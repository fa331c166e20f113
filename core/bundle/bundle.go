// Package bundle packages a compiled schema for the hosting framework.
package bundle

import (
	"github.com/artpar/simpleschema/core/compiler"
	"github.com/artpar/simpleschema/core/schema"
)

// Ref is a lightweight handle to a collection by name.
type Ref struct {
	CollectionName string `json:"collectionName" yaml:"collectionName"`
}

// HostConfig is the configuration handed to the hosting framework.
type HostConfig struct {
	Collections []compiler.Collection
	DB          any
	Extra       map[string]any
}

// Bundle is the result of DB.
type Bundle struct {
	Config      HostConfig
	Collections map[string]Ref
}

// GetConfig returns the hosting framework configuration.
func (b Bundle) GetConfig() HostConfig {
	return b.Config
}

// Docs returns the serializable form of the compiled collections.
func (b Bundle) Docs() []compiler.CollectionDoc {
	return compiler.Export(b.Config.Collections)
}

// DB compiles s and combines it with the database adapter and passthrough
// configuration. Extra is copied; its entries never replace the collections
// or the adapter.
func DB(s schema.Schema, db any, extra map[string]any) Bundle {
	return FromCollections(s, compiler.Compile(s), db, extra)
}

// FromCollections builds a bundle from collections already compiled from s.
func FromCollections(s schema.Schema, collections []compiler.Collection, db any, extra map[string]any) Bundle {
	copied := make(map[string]any, len(extra))
	for k, v := range extra {
		copied[k] = v
	}

	return Bundle{
		Config: HostConfig{
			Collections: collections,
			DB:          db,
			Extra:       copied,
		},
		Collections: Refs(s),
	}
}

// Refs returns one entry per declared collection, keyed and valued by name.
func Refs(s schema.Schema) map[string]Ref {
	refs := make(map[string]Ref, len(s.Collections))
	for _, c := range s.Collections {
		refs[c.Name] = Ref{CollectionName: c.Name}
	}
	return refs
}
