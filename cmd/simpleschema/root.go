package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/artpar/simpleschema/config"
	"github.com/artpar/simpleschema/core/schema"
)

var (
	// Global flags
	cfgFile    string
	schemaFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "simpleschema",
	Short: "Compile compact schema descriptions into collection configurations",
	Long: `simpleschema turns a compact YAML or JSON schema into the collection
configuration a document-modeling framework expects.

Each collection maps field names to a short type string:
  title: text            scalar field
  author: users          relationship to another collection
  tags: tags             free-form tag list
  stage: Lead | Won      select field
  posts: <-posts.author  reverse relation, resolved into a join

Quick start:
  simpleschema compile schema.yaml        # Print the compiled collections
  simpleschema validate schema.yaml       # Check schema and configuration
  simpleschema serve                      # Serve the compiled schema over HTTP`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "simpleschema.yaml", "config file path")
	rootCmd.PersistentFlags().StringVarP(&schemaFile, "schema", "s", "", "schema file path (overrides schema.path)")
}

// loadConfig reads the config file when present, otherwise the environment.
// A positional schema file takes precedence over --schema and schema.path.
func loadConfig(args []string) (*config.Config, error) {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return nil, err
	}
	if schemaFile != "" {
		cfg.Schema.Path = schemaFile
	}
	if len(args) > 0 && args[0] != "" {
		cfg.Schema.Path = args[0]
	}
	return cfg, nil
}

// loadSchema parses and validates the configured schema file.
func loadSchema(cfg *config.Config) (schema.Schema, error) {
	s, err := schema.ParseFile(cfg.Schema.Path)
	if err != nil {
		return schema.Schema{}, err
	}
	if err := schema.Validate(s); err != nil {
		return schema.Schema{}, fmt.Errorf("invalid schema %s: %w", cfg.Schema.Path, err)
	}
	return s, nil
}
