package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/artpar/simpleschema/core/compiler"
)

var validateCmd = &cobra.Command{
	Use:   "validate [schema-file]",
	Short: "Validate configuration and schema before deployment",
	Long: `Validate the configuration and the schema it points at.

Checks:
  - Configuration is valid (file or SIMPLESCHEMA_* environment)
  - Schema file exists and parses as YAML or JSON
  - Collection and field names are unique
  - Every reverse relation resolves to a counterpart (warning, or error with --strict)

Examples:
  simpleschema validate
  simpleschema validate schema.yaml --strict`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

var validateStrict bool

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateStrict, "strict", false, "fail when a reverse relation has no counterpart")
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
	warnMark  = "\033[33m!\033[0m"
)

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(args)
	if err != nil {
		fmt.Fprintf(out, "  %s Configuration valid\n", crossMark)
		return fmt.Errorf("config error: %w", err)
	}
	fmt.Fprintf(out, "  %s Configuration valid\n", checkMark)
	fmt.Fprintf(out, "  %s Database: %s (%s)\n", checkMark, cfg.Database.URI, cfg.Database.Type)

	if _, err := os.Stat(cfg.Schema.Path); err != nil {
		fmt.Fprintf(out, "  %s Schema file exists\n", crossMark)
		return fmt.Errorf("schema file not found: %s", cfg.Schema.Path)
	}
	fmt.Fprintf(out, "  %s Schema file exists\n", checkMark)

	s, err := loadSchema(cfg)
	if err != nil {
		fmt.Fprintf(out, "  %s Schema valid\n", crossMark)
		return err
	}
	fmt.Fprintf(out, "  %s Schema valid: %d collections, %d fields\n", checkMark, len(s.Collections), s.FieldCount())

	result := compiler.Analyze(s)
	fmt.Fprintf(out, "  %s Joins resolved: %d\n", checkMark, len(result.Resolved))

	if len(result.Unresolved) == 0 {
		return nil
	}

	mark := warnMark
	if validateStrict {
		mark = crossMark
	}
	for _, u := range result.Unresolved {
		fmt.Fprintf(out, "  %s %s.%s -> %s dropped (%s)\n", mark, u.Collection, u.Join, u.Target, u.Reason)
	}

	if validateStrict {
		return fmt.Errorf("%d unresolved joins", len(result.Unresolved))
	}
	return nil
}
