// Package app contains the application services built on top of the core
// compiler: the schema catalog and its reload loop.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/artpar/simpleschema/adapters/clock"
	"github.com/artpar/simpleschema/adapters/idgen"
	"github.com/artpar/simpleschema/adapters/metrics"
	"github.com/artpar/simpleschema/core/adapter"
	"github.com/artpar/simpleschema/core/bundle"
	"github.com/artpar/simpleschema/core/compiler"
	"github.com/artpar/simpleschema/core/schema"
	"github.com/artpar/simpleschema/ports"
)

// ErrNoSchema is returned when the catalog has nothing compiled yet.
var ErrNoSchema = errors.New("no schema loaded")

// ErrNoMigrator is returned by Migrate when no migrator is configured.
var ErrNoMigrator = errors.New("no migrator configured")

// ErrAlreadyWatching is returned by Watch when a watcher is running.
var ErrAlreadyWatching = errors.New("already watching schema file")

// ErrStopped is returned by Watch after Stop.
var ErrStopped = errors.New("catalog stopped")

// Snapshot is one immutable compiled state of the schema.
type Snapshot struct {
	Revision   string
	Source     string
	Schema     schema.Schema
	Result     compiler.Result
	Bundle     bundle.Bundle
	CompiledAt time.Time
	Duration   time.Duration
}

// Docs returns the serializable form of the compiled collections.
func (s *Snapshot) Docs() []compiler.CollectionDoc {
	return compiler.Export(s.Result.Collections)
}

// Collection returns the compiled collection with the given slug.
func (s *Snapshot) Collection(slug string) (compiler.Collection, bool) {
	for _, c := range s.Result.Collections {
		if c.Slug == slug {
			return c, true
		}
	}
	return compiler.Collection{}, false
}

// CatalogConfig configures a Catalog.
type CatalogConfig struct {
	Database adapter.Config
	Extra    map[string]any

	Logger   zerolog.Logger
	Metrics  *metrics.Collector
	Migrator ports.Migrator
	Clock    ports.Clock
	IDGen    ports.IDGenerator
}

// Catalog holds the latest compiled schema and recompiles it on demand,
// on file changes and on SIGHUP.
type Catalog struct {
	// loadMu serializes loads so revisions are installed in build order.
	loadMu sync.Mutex

	mu       sync.RWMutex
	current  *Snapshot
	path     string
	onChange []func(*Snapshot)

	db       adapter.Adapter
	extra    map[string]any
	logger   zerolog.Logger
	metrics  *metrics.Collector
	migrator ports.Migrator
	clock    ports.Clock
	idgen    ports.IDGenerator

	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCatalog validates the database configuration and returns an empty catalog.
func NewCatalog(cfg CatalogConfig) (*Catalog, error) {
	db, err := adapter.Configure(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("configure database: %w", err)
	}

	c := &Catalog{
		db:       db,
		extra:    cfg.Extra,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		migrator: cfg.Migrator,
		clock:    cfg.Clock,
		idgen:    cfg.IDGen,
		stopCh:   make(chan struct{}),
	}
	if c.clock == nil {
		c.clock = clock.Real{}
	}
	if c.idgen == nil {
		c.idgen = idgen.UUID{}
	}
	return c, nil
}

// Adapter returns the configured database adapter.
func (c *Catalog) Adapter() adapter.Adapter {
	return c.db
}

// Current returns the latest snapshot, or nil before the first compile.
func (c *Catalog) Current() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Path returns the schema file the catalog was loaded from.
func (c *Catalog) Path() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.path
}

// OnChange registers a callback invoked after every successful install.
func (c *Catalog) OnChange(fn func(*Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = append(c.onChange, fn)
}

// Build compiles s without installing the result.
func (c *Catalog) Build(source string, s schema.Schema) (*Snapshot, error) {
	if err := schema.Validate(s); err != nil {
		if c.metrics != nil {
			c.metrics.ObserveCompileError()
		}
		return nil, fmt.Errorf("invalid schema: %w", err)
	}

	began := time.Now()
	result := compiler.Analyze(s)
	elapsed := time.Since(began)

	snap := &Snapshot{
		Revision:   c.idgen.New(),
		Source:     source,
		Schema:     s.Clone(),
		Result:     result,
		Bundle:     bundle.FromCollections(s, result.Collections, c.db, c.extra),
		CompiledAt: c.clock.Now(),
		Duration:   elapsed,
	}

	if c.metrics != nil {
		fieldCount := 0
		for _, col := range result.Collections {
			fieldCount += len(col.Fields)
		}
		c.metrics.ObserveCompile(metrics.CompileStats{
			Collections: len(result.Collections),
			Fields:      fieldCount,
			Resolved:    len(result.Resolved),
			Unresolved:  len(result.Unresolved),
			Duration:    elapsed,
		})
	}

	for _, u := range result.Unresolved {
		c.logger.Warn().
			Str("collection", u.Collection).
			Str("join", u.Join).
			Str("target", u.Target).
			Str("reason", string(u.Reason)).
			Msg("join dropped without counterpart")
	}

	return snap, nil
}

// Compile compiles s and installs it as the current snapshot.
func (c *Catalog) Compile(source string, s schema.Schema) (*Snapshot, error) {
	snap, err := c.Build(source, s)
	if err != nil {
		return nil, err
	}
	c.install(snap)
	return snap, nil
}

// Load parses, compiles and installs the schema file at path.
// Later reloads read the same file. Concurrent loads run one at a time.
func (c *Catalog) Load(path string) (*Snapshot, error) {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}

	s, err := schema.ParseFile(absPath)
	if err != nil {
		if c.metrics != nil {
			c.metrics.ObserveCompileError()
		}
		return nil, fmt.Errorf("load schema: %w", err)
	}

	snap, err := c.Compile(absPath, s)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.path = absPath
	c.mu.Unlock()

	return snap, nil
}

// Reload recompiles the schema file. On failure the previous snapshot stays.
func (c *Catalog) Reload() error {
	path := c.Path()
	if path == "" {
		return ErrNoSchema
	}

	c.logger.Info().Str("path", path).Msg("reloading schema")

	snap, err := c.Load(path)
	if c.metrics != nil {
		c.metrics.ObserveReload(err, c.clock.Now())
	}
	if err != nil {
		c.logger.Error().Err(err).Msg("schema reload failed, keeping previous revision")
		return fmt.Errorf("reload schema: %w", err)
	}

	c.logger.Info().
		Str("revision", snap.Revision).
		Int("collections", len(snap.Result.Collections)).
		Msg("schema reloaded")
	return nil
}

// Migrate applies the current snapshot to the configured migrator.
func (c *Catalog) Migrate(ctx context.Context) ([]string, error) {
	if c.migrator == nil {
		return nil, ErrNoMigrator
	}
	snap := c.Current()
	if snap == nil {
		return nil, ErrNoSchema
	}

	stmts, err := c.migrator.Apply(ctx, snap.Result.Collections)
	if err != nil {
		return nil, fmt.Errorf("migrate revision %s: %w", snap.Revision, err)
	}

	c.logger.Info().
		Str("revision", snap.Revision).
		Int("statements", len(stmts)).
		Msg("schema migrated")
	return stmts, nil
}

func (c *Catalog) install(snap *Snapshot) {
	c.mu.Lock()
	old := c.current
	c.current = snap
	listeners := make([]func(*Snapshot), len(c.onChange))
	copy(listeners, c.onChange)
	c.mu.Unlock()

	c.logChanges(old, snap)

	for _, fn := range listeners {
		fn(snap)
	}
}

func (c *Catalog) logChanges(old, snap *Snapshot) {
	if old == nil {
		c.logger.Info().
			Str("revision", snap.Revision).
			Int("collections", len(snap.Result.Collections)).
			Msg("schema compiled")
		return
	}

	if len(old.Result.Collections) != len(snap.Result.Collections) {
		c.logger.Info().
			Int("old", len(old.Result.Collections)).
			Int("new", len(snap.Result.Collections)).
			Msg("collections count changed")
	}

	if len(old.Result.Unresolved) != len(snap.Result.Unresolved) {
		c.logger.Info().
			Int("old", len(old.Result.Unresolved)).
			Int("new", len(snap.Result.Unresolved)).
			Msg("unresolved joins count changed")
	}
}

// Watch starts watching the schema file for changes. It fails with
// ErrAlreadyWatching while a previous watcher is running.
func (c *Catalog) Watch() error {
	path := c.Path()
	if path == "" {
		return ErrNoSchema
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.watcher != nil {
		return ErrAlreadyWatching
	}
	select {
	case <-c.stopCh:
		return ErrStopped
	default:
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	// Editors that save atomically replace the file, so watch the directory.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}

	c.watcher = watcher

	go c.watchLoop(watcher, filepath.Base(path))

	c.logger.Info().Str("path", path).Msg("watching schema file for changes")
	return nil
}

// WatchSignals reloads the schema on SIGHUP until Stop is called.
func (c *Catalog) WatchSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)

	go func() {
		for {
			select {
			case <-sigCh:
				c.logger.Info().Msg("received SIGHUP, reloading schema")
				if err := c.Reload(); err != nil {
					c.logger.Error().Err(err).Msg("SIGHUP reload failed")
				}
			case <-c.stopCh:
				signal.Stop(sigCh)
				return
			}
		}
	}()

	c.logger.Info().Msg("listening for SIGHUP to reload schema")
}

// Stop stops watching for file changes and signals. It is safe to call twice.
func (c *Catalog) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		c.mu.Lock()
		if c.watcher != nil {
			c.watcher.Close()
		}
		c.mu.Unlock()
	})
}

func (c *Catalog) watchLoop(watcher *fsnotify.Watcher, filename string) {
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			if filepath.Base(event.Name) != filename {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				c.logger.Debug().
					Str("event", event.Op.String()).
					Str("file", event.Name).
					Msg("schema file changed")

				if err := c.Reload(); err != nil {
					c.logger.Error().Err(err).Msg("file watch reload failed")
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			c.logger.Error().Err(err).Msg("file watcher error")

		case <-c.stopCh:
			return
		}
	}
}
