// Package ports defines the interfaces the application layer depends on.
// Implementations live under adapters/.
package ports

import (
	"context"
	"time"

	"github.com/artpar/simpleschema/core/compiler"
)

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// Migrator turns compiled collections into physical tables.
type Migrator interface {
	// Apply creates missing tables and returns the statements it executed.
	Apply(ctx context.Context, collections []compiler.Collection) ([]string, error)

	// Tables lists the user tables currently present.
	Tables(ctx context.Context) ([]string, error)

	Close() error
}
