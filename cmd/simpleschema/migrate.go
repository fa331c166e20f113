package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/artpar/simpleschema/core/adapter"
	"github.com/artpar/simpleschema/core/compiler"
	"github.com/artpar/simpleschema/core/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate [schema-file]",
	Short: "Create SQLite tables for the compiled schema",
	Long: `Create one table per compiled collection, plus join tables for
multi-valued relationships and select fields.

Existing tables are left untouched.

Examples:
  simpleschema migrate schema.yaml --dsn app.db
  simpleschema migrate -s schema.yaml --dry-run`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMigrate,
}

var (
	migrateDSN    string
	migrateDryRun bool
)

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().StringVar(&migrateDSN, "dsn", "", "sqlite database path (default: database.uri)")
	migrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "print the statements without executing them")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	s, err := loadSchema(cfg)
	if err != nil {
		return err
	}
	collections := compiler.Compile(s)

	out := cmd.OutOrStdout()

	if migrateDryRun {
		stmts, err := storage.BuildSchemaSQL(collections)
		if err != nil {
			return err
		}
		for _, stmt := range stmts {
			fmt.Fprintf(out, "%s;\n\n", stmt)
		}
		return nil
	}

	dsn := migrateDSN
	if dsn == "" {
		if cfg.Database.Type != adapter.TypeSQLite {
			return fmt.Errorf("migrate needs a sqlite database, got %q (use --dsn)", cfg.Database.Type)
		}
		dsn = cfg.Database.URI
	}

	m, err := storage.OpenSQLite(dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	stmts, err := m.Apply(cmd.Context(), collections)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Applied %d statements to %s\n", len(stmts), dsn)
	return nil
}
