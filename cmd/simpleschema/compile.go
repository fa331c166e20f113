package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/artpar/simpleschema/core/compiler"
	"github.com/artpar/simpleschema/core/formatter"
)

var compileCmd = &cobra.Command{
	Use:   "compile [schema-file]",
	Short: "Compile the schema and print the collection configuration",
	Long: `Compile the schema and print one entry per collection.

Reverse relations ("<-target.field") are removed from their collection and
attached as joins to the counterpart relationship. Joins without a
counterpart are dropped and reported on stderr.

Examples:
  simpleschema compile schema.yaml
  simpleschema compile -s schema.yaml
  simpleschema compile -s schema.yaml -o json --compact
  simpleschema compile -s schema.yaml --collection posts --collection users`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCompile,
}

var (
	compileFormat      string
	compileCollections []string
	compileCompact     bool
	compileNoHeader    bool
	compileMaxWidth    int
)

func init() {
	rootCmd.AddCommand(compileCmd)

	compileCmd.Flags().StringVarP(&compileFormat, "output", "o", "", "output format: table, json, yaml (default: output.format)")
	compileCmd.Flags().StringSliceVar(&compileCollections, "collection", nil, "only print these collections")
	compileCmd.Flags().BoolVar(&compileCompact, "compact", false, "compact json output")
	compileCmd.Flags().BoolVar(&compileNoHeader, "no-header", false, "omit the table header")
	compileCmd.Flags().IntVar(&compileMaxWidth, "max-width", 0, "truncate table cells to this width")
}

func runCompile(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	name := compileFormat
	if name == "" {
		name = cfg.Output.Format
	}
	f, ok := formatter.Get(name)
	if !ok {
		return fmt.Errorf("unknown output format %q (available: %v)", name, formatter.List())
	}

	s, err := loadSchema(cfg)
	if err != nil {
		return err
	}

	result := compiler.Analyze(s)
	opts := formatter.FormatOptions{
		Collections: compileCollections,
		NoHeader:    compileNoHeader,
		Compact:     compileCompact,
		MaxWidth:    compileMaxWidth,
	}

	if err := f.FormatCollections(cmd.OutOrStdout(), compiler.Export(result.Collections), opts); err != nil {
		return err
	}

	if len(result.Unresolved) > 0 {
		return f.FormatUnresolved(cmd.ErrOrStderr(), result.Unresolved, opts)
	}
	return nil
}
