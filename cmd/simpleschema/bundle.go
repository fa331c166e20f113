package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/artpar/simpleschema/core/adapter"
	"github.com/artpar/simpleschema/core/bundle"
	"github.com/artpar/simpleschema/core/compiler"
)

var bundleCmd = &cobra.Command{
	Use:   "bundle [schema-file]",
	Short: "Print the full hosting configuration: collections, database adapter and extras",
	Long: `Print the configuration handed to the hosting framework.

The output combines the compiled collections, the database adapter selected by
database.type and database.uri, the passthrough "extra" settings and the
collection reference handles.

Examples:
  simpleschema bundle schema.yaml
  simpleschema bundle -s schema.yaml
  simpleschema bundle -s schema.yaml -o yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBundle,
}

var bundleFormat string

func init() {
	rootCmd.AddCommand(bundleCmd)

	bundleCmd.Flags().StringVarP(&bundleFormat, "output", "o", "json", "output format: json or yaml")
}

// bundleDoc is the serializable form of a bundle.
type bundleDoc struct {
	Collections []compiler.CollectionDoc `json:"collections" yaml:"collections"`
	DB          adapter.Adapter          `json:"db" yaml:"db"`
	Extra       map[string]any           `json:"extra,omitempty" yaml:"extra,omitempty"`
	Refs        map[string]bundle.Ref    `json:"refs" yaml:"refs"`
}

func runBundle(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	db, err := adapter.Configure(cfg.Database)
	if err != nil {
		return err
	}

	s, err := loadSchema(cfg)
	if err != nil {
		return err
	}

	b := bundle.DB(s, db, cfg.Extra)
	doc := bundleDoc{
		Collections: b.Docs(),
		DB:          db,
		Extra:       b.GetConfig().Extra,
		Refs:        b.Collections,
	}

	out := cmd.OutOrStdout()
	switch bundleFormat {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(doc)
	default:
		return fmt.Errorf("unknown output format %q (available: json, yaml)", bundleFormat)
	}
}
