package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `
companies:
  name: text
  contacts: <-contacts.company
contacts:
  name: text
  email: email
  company: companies
  stage: Lead | Customer
  notes: <-notes
`

// run executes the root command with fresh flag state.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	cfgFile, schemaFile = "", ""
	compileFormat, compileCollections, compileCompact, compileNoHeader, compileMaxWidth = "", nil, false, false, 0
	bundleFormat = "json"
	adapterType, adapterURI = "", ""
	validateStrict = false
	migrateDSN, migrateDryRun = "", false

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFiles(t *testing.T) (configPath, schemaPath, dir string) {
	t.Helper()
	dir = t.TempDir()

	schemaPath = filepath.Join(dir, "schema.yaml")
	require.NoError(t, os.WriteFile(schemaPath, []byte(testSchema), 0644))

	configPath = filepath.Join(dir, "simpleschema.yaml")
	content := "schema:\n  path: " + schemaPath + "\n" +
		"database:\n  type: sqlite\n  uri: " + filepath.Join(dir, "app.db") + "\n" +
		"extra:\n  serverURL: http://localhost:3000\n"
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	return configPath, schemaPath, dir
}

func TestVersionCommand(t *testing.T) {
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "simpleschema dev")
}

func TestCompileCommand_Table(t *testing.T) {
	configPath, _, _ := writeFiles(t)

	out, stderr, err := run(t, "compile", "-c", configPath)
	require.NoError(t, err)

	assert.Contains(t, out, "COLLECTION")
	assert.Contains(t, out, "companies")
	assert.Contains(t, out, "contacts<-contacts")
	assert.Contains(t, stderr, "notes", "unresolved joins go to stderr")
}

func TestCompileCommand_JSON(t *testing.T) {
	configPath, _, _ := writeFiles(t)

	out, _, err := run(t, "compile", "-c", configPath, "-o", "json", "--collection", "contacts")
	require.NoError(t, err)

	var docs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, "contacts", docs[0]["slug"])

	fields := docs[0]["fields"].([]any)
	require.Len(t, fields, 4, "reverse relations are removed")
	stage := fields[3].(map[string]any)
	assert.Equal(t, "select", stage["type"])
}

func TestCompileCommand_SchemaFlagOverridesConfig(t *testing.T) {
	configPath, _, dir := writeFiles(t)
	other := filepath.Join(dir, "other.json")
	require.NoError(t, os.WriteFile(other, []byte(`{"posts": {"title": "text"}}`), 0644))

	out, _, err := run(t, "compile", "-c", configPath, "-s", other, "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "slug: posts")
	assert.NotContains(t, out, "companies")
}

func TestSchemaFileArgument(t *testing.T) {
	configPath, _, dir := writeFiles(t)
	other := filepath.Join(dir, "other.yaml")
	require.NoError(t, os.WriteFile(other, []byte("widgets:\n  label: text\n"), 0644))

	out, _, err := run(t, "compile", other, "-c", configPath, "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"widgets"`)
	assert.NotContains(t, out, "companies")

	out, _, err = run(t, "bundle", other, "-c", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, `"widgets"`)
	assert.NotContains(t, out, "companies")

	out, _, err = run(t, "validate", other, "-c", configPath, "--strict")
	require.NoError(t, err)
	assert.Contains(t, out, "Schema valid: 1 collections")

	out, _, err = run(t, "migrate", other, "-c", configPath, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, `CREATE TABLE IF NOT EXISTS "widgets"`)
	assert.NotContains(t, out, "companies")

	// the argument wins over --schema
	out, _, err = run(t, "compile", other, "-c", configPath, "-s", filepath.Join(dir, "schema.yaml"), "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "slug: widgets")

	_, _, err = run(t, "compile", other, other, "-c", configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts at most 1 arg")
}

func TestCompileCommand_Errors(t *testing.T) {
	configPath, _, _ := writeFiles(t)

	_, _, err := run(t, "compile", "-c", configPath, "-o", "csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")

	_, _, err = run(t, "compile", "-c", configPath, "-s", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestBundleCommand(t *testing.T) {
	configPath, _, _ := writeFiles(t)

	out, _, err := run(t, "bundle", "-c", configPath)
	require.NoError(t, err)

	var doc struct {
		Collections []map[string]any          `json:"collections"`
		DB          map[string]string         `json:"db"`
		Extra       map[string]any            `json:"extra"`
		Refs        map[string]map[string]any `json:"refs"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))

	assert.Len(t, doc.Collections, 2)
	assert.Equal(t, "sqlite", doc.DB["adapter"])
	assert.Equal(t, "http://localhost:3000", doc.Extra["serverURL"])
	assert.Equal(t, "contacts", doc.Refs["contacts"]["collectionName"])
}

func TestAdapterCommand(t *testing.T) {
	configPath, _, _ := writeFiles(t)

	out, _, err := run(t, "adapter", "-c", configPath, "--type", "mongodb", "--uri", "mongodb://db/app")
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, map[string]string{"adapter": "mongoose", "url": "mongodb://db/app"}, got)

	_, _, err = run(t, "adapter", "-c", configPath, "--type", "oracle", "--uri", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database type: oracle")
}

func TestValidateCommand(t *testing.T) {
	configPath, _, _ := writeFiles(t)

	out, _, err := run(t, "validate", "-c", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Schema valid: 2 collections")
	assert.Contains(t, out, "Joins resolved: 1")
	assert.Contains(t, out, "contacts.notes -> notes dropped (missing-collection)")

	_, _, err = run(t, "validate", "-c", configPath, "--strict")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 unresolved joins")
}

func TestMigrateCommand(t *testing.T) {
	configPath, _, dir := writeFiles(t)

	out, _, err := run(t, "migrate", "-c", configPath, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, `CREATE TABLE IF NOT EXISTS "companies"`)

	dsn := filepath.Join(dir, "migrated.db")
	out, _, err = run(t, "migrate", "-c", configPath, "--dsn", dsn)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Applied "), out)

	_, err = os.Stat(dsn)
	assert.NoError(t, err)
}
