package app_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/simpleschema/adapters/clock"
	"github.com/artpar/simpleschema/adapters/idgen"
	"github.com/artpar/simpleschema/adapters/metrics"
	"github.com/artpar/simpleschema/app"
	"github.com/artpar/simpleschema/core/adapter"
	"github.com/artpar/simpleschema/core/compiler"
	"github.com/artpar/simpleschema/core/field"
	"github.com/artpar/simpleschema/core/schema"
	"github.com/artpar/simpleschema/core/storage"
)

const crmYAML = `
companies:
  name: text
  contacts: <-contacts.company
contacts:
  name: text
  company: companies
  tags: tags
`

func newCatalog(t *testing.T, opts ...func(*app.CatalogConfig)) *app.Catalog {
	t.Helper()

	cfg := app.CatalogConfig{
		Database: adapter.Config{Type: adapter.TypeSQLite, URI: "file.db"},
		Extra:    map[string]any{"serverURL": "http://localhost:3000"},
		Logger:   zerolog.Nop(),
		Clock:    clock.NewFake(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)),
		IDGen:    idgen.NewSequential("rev-"),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	c, err := app.NewCatalog(cfg)
	require.NoError(t, err)
	t.Cleanup(c.Stop)
	return c
}

func writeSchema(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNewCatalog_UnsupportedDatabase(t *testing.T) {
	_, err := app.NewCatalog(app.CatalogConfig{
		Database: adapter.Config{Type: "mysql", URI: "x"},
		Logger:   zerolog.Nop(),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, adapter.ErrUnsupportedDatabase)
}

func TestCatalog_CurrentBeforeLoad(t *testing.T) {
	c := newCatalog(t)
	assert.Nil(t, c.Current())
	assert.ErrorIs(t, c.Reload(), app.ErrNoSchema)
	assert.ErrorIs(t, c.Watch(), app.ErrNoSchema)
}

func TestCatalog_Load(t *testing.T) {
	c := newCatalog(t)
	path := writeSchema(t, t.TempDir(), crmYAML)

	snap, err := c.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "rev-1", snap.Revision)
	assert.Equal(t, path, snap.Source)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), snap.CompiledAt)
	assert.Same(t, snap, c.Current())
	assert.Equal(t, path, c.Path())

	companies, ok := snap.Collection("companies")
	require.True(t, ok)
	_, hasJoin := companies.Field("contacts")
	assert.False(t, hasJoin, "reverse relations are removed")

	contacts, ok := snap.Collection("contacts")
	require.True(t, ok)
	company, ok := contacts.Field("company")
	require.True(t, ok)
	rel, ok := company.(field.Relationship)
	require.True(t, ok)
	require.Len(t, rel.SubFields, 1)
	assert.Equal(t, field.SubField{Name: "contacts", RelationTo: "contacts", Cardinality: field.Many}, rel.SubFields[0])

	require.Len(t, snap.Result.Resolved, 1)
	assert.Empty(t, snap.Result.Unresolved)

	assert.Equal(t, map[string]any{"serverURL": "http://localhost:3000"}, snap.Bundle.GetConfig().Extra)
	assert.Equal(t, adapter.Adapter{Adapter: adapter.TypeSQLite, URL: "file.db"}, snap.Bundle.GetConfig().DB)
	assert.Len(t, snap.Bundle.Collections, 2)
	assert.Len(t, snap.Docs(), 2)
}

func TestCatalog_LoadErrors(t *testing.T) {
	c := newCatalog(t)

	_, err := c.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := writeSchema(t, t.TempDir(), "posts: [1, 2]\n")
	_, err = c.Load(path)
	assert.Error(t, err)

	assert.Nil(t, c.Current())
}

func TestCatalog_CompileInvalidSchema(t *testing.T) {
	c := newCatalog(t)

	_, err := c.Compile("inline", schema.New(
		schema.C("posts", schema.F("title", "text"), schema.F("title", "number")),
	))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid schema")
	assert.Nil(t, c.Current())
}

func TestCatalog_BuildDoesNotInstall(t *testing.T) {
	c := newCatalog(t)

	snap, err := c.Build("preview", schema.New(schema.C("posts", schema.F("title", "text"))))
	require.NoError(t, err)
	assert.Equal(t, "preview", snap.Source)
	assert.Nil(t, c.Current())
}

func TestCatalog_ReloadKeepsPreviousOnFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)
	c := newCatalog(t, func(cfg *app.CatalogConfig) { cfg.Metrics = m })

	dir := t.TempDir()
	path := writeSchema(t, dir, crmYAML)
	first, err := c.Load(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("companies: [\n"), 0644))
	require.Error(t, c.Reload())
	assert.Same(t, first, c.Current())

	require.NoError(t, os.WriteFile(path, []byte("posts:\n  title: text\n"), 0644))
	require.NoError(t, c.Reload())
	assert.Equal(t, "rev-2", c.Current().Revision)
	assert.Len(t, c.Current().Result.Collections, 1)

	assert.Equal(t, 1, counterValue(t, reg, "simpleschema_schema_reloads_total"))
	assert.Equal(t, 1, counterValue(t, reg, "simpleschema_schema_reload_errors_total"))
}

func TestCatalog_OnChange(t *testing.T) {
	c := newCatalog(t)

	var got []string
	c.OnChange(func(s *app.Snapshot) { got = append(got, s.Revision) })

	_, err := c.Compile("a", schema.New(schema.C("posts")))
	require.NoError(t, err)
	_, err = c.Compile("b", schema.New(schema.C("posts")))
	require.NoError(t, err)

	assert.Equal(t, []string{"rev-1", "rev-2"}, got)
}

func TestCatalog_UnresolvedJoinsRecorded(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := newCatalog(t, func(cfg *app.CatalogConfig) { cfg.Metrics = metrics.NewWithRegistry(reg) })

	snap, err := c.Compile("inline", schema.New(
		schema.C("companies", schema.F("contacts", "<-contacts")),
	))
	require.NoError(t, err)

	require.Len(t, snap.Result.Unresolved, 1)
	assert.Equal(t, compiler.ReasonMissingCollection, snap.Result.Unresolved[0].Reason)
	assert.Equal(t, 1, counterValue(t, reg, "simpleschema_compiles_total"))
}

func TestCatalog_Watch(t *testing.T) {
	c := newCatalog(t)
	path := writeSchema(t, t.TempDir(), crmYAML)
	_, err := c.Load(path)
	require.NoError(t, err)

	var calls atomic.Int32
	c.OnChange(func(*app.Snapshot) { calls.Add(1) })

	require.NoError(t, c.Watch())

	require.NoError(t, os.WriteFile(path, []byte("posts:\n  title: text\n"), 0644))

	require.Eventually(t, func() bool {
		snap := c.Current()
		_, ok := snap.Collection("posts")
		return ok
	}, 2*time.Second, 10*time.Millisecond, "file watcher did not trigger reload")
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
}

func TestCatalog_WatchTwice(t *testing.T) {
	c := newCatalog(t)
	_, err := c.Load(writeSchema(t, t.TempDir(), crmYAML))
	require.NoError(t, err)

	require.NoError(t, c.Watch())
	assert.ErrorIs(t, c.Watch(), app.ErrAlreadyWatching)

	c.Stop()
	assert.ErrorIs(t, c.Watch(), app.ErrStopped)
}

func TestCatalog_ConcurrentReloadsInstallInOrder(t *testing.T) {
	c := newCatalog(t)
	_, err := c.Load(writeSchema(t, t.TempDir(), crmYAML))
	require.NoError(t, err)

	var mu sync.Mutex
	var installed []string
	c.OnChange(func(s *app.Snapshot) {
		mu.Lock()
		installed = append(installed, s.Revision)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, c.Reload())
		}()
	}
	wg.Wait()

	// revisions are generated in build order, so installs must follow it
	require.Len(t, installed, 20)
	for i, rev := range installed {
		assert.Equal(t, fmt.Sprintf("rev-%d", i+2), rev)
	}
	assert.Equal(t, "rev-21", c.Current().Revision)
}

func TestCatalog_ConcurrentAccess(t *testing.T) {
	c := newCatalog(t, func(cfg *app.CatalogConfig) { cfg.IDGen = idgen.UUID{} })
	path := writeSchema(t, t.TempDir(), crmYAML)
	_, err := c.Load(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if c.Current() == nil {
					t.Error("concurrent Current returned nil")
				}
			}
		}()
	}
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Reload()
		}()
	}
	wg.Wait()
}

func TestCatalog_Migrate(t *testing.T) {
	m, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	defer m.Close()

	c := newCatalog(t, func(cfg *app.CatalogConfig) { cfg.Migrator = m })

	_, err = c.Migrate(context.Background())
	assert.ErrorIs(t, err, app.ErrNoSchema)

	_, err = c.Load(writeSchema(t, t.TempDir(), crmYAML))
	require.NoError(t, err)

	stmts, err := c.Migrate(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, stmts)

	tables, err := m.Tables(context.Background())
	require.NoError(t, err)
	assert.Contains(t, tables, "companies")
	assert.Contains(t, tables, "contacts")
}

type failingMigrator struct{}

func (failingMigrator) Apply(context.Context, []compiler.Collection) ([]string, error) {
	return nil, errors.New("disk full")
}
func (failingMigrator) Tables(context.Context) ([]string, error) { return nil, nil }
func (failingMigrator) Close() error                             { return nil }

func TestCatalog_MigrateErrors(t *testing.T) {
	c := newCatalog(t)
	_, err := c.Migrate(context.Background())
	assert.ErrorIs(t, err, app.ErrNoMigrator)

	c = newCatalog(t, func(cfg *app.CatalogConfig) { cfg.Migrator = failingMigrator{} })
	_, err = c.Compile("inline", schema.New(schema.C("posts")))
	require.NoError(t, err)

	_, err = c.Migrate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rev-1")
	assert.Contains(t, err.Error(), "disk full")
}

func TestCatalog_StopTwice(t *testing.T) {
	c := newCatalog(t)
	c.WatchSignals()
	c.Stop()
	c.Stop()
}

// counterValue sums every sample of a counter family.
func counterValue(t *testing.T, reg *prometheus.Registry, name string) int {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)

	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		var total float64
		for _, m := range f.GetMetric() {
			total += m.GetCounter().GetValue()
		}
		return int(total)
	}
	return 0
}
