// Package adapter maps a database type to the adapter configuration the hosting
// framework expects.
package adapter

import (
	"errors"
	"fmt"
)

// ErrUnsupportedDatabase is returned for database types with no known adapter.
var ErrUnsupportedDatabase = errors.New("unsupported database type")

// Database types.
const (
	TypeMongoDB  = "mongodb"
	TypePostgres = "postgres"
	TypeSQLite   = "sqlite"
	TypeREST     = "rest"
)

// Config selects a database.
type Config struct {
	Type string `yaml:"type" json:"type"`
	URI  string `yaml:"uri" json:"uri"`
}

// Adapter is the adapter configuration handed to the hosting framework.
type Adapter struct {
	Adapter string `yaml:"adapter" json:"adapter"`
	URL     string `yaml:"url" json:"url"`
}

var drivers = map[string]string{
	TypeMongoDB:  "mongoose",
	TypePostgres: "postgres",
	TypeSQLite:   "sqlite",
	TypeREST:     "rest",
}

// Configure returns the adapter configuration for cfg.Type. Unknown types
// return an error wrapping ErrUnsupportedDatabase and no configuration.
func Configure(cfg Config) (Adapter, error) {
	driver, ok := drivers[cfg.Type]
	if !ok {
		return Adapter{}, fmt.Errorf("%w: %s", ErrUnsupportedDatabase, cfg.Type)
	}
	return Adapter{Adapter: driver, URL: cfg.URI}, nil
}

// SupportedTypes returns the accepted database types.
func SupportedTypes() []string {
	return []string{TypeMongoDB, TypePostgres, TypeSQLite, TypeREST}
}
