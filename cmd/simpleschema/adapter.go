package main

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/artpar/simpleschema/core/adapter"
)

var adapterCmd = &cobra.Command{
	Use:   "adapter",
	Short: "Print the database adapter configuration",
	Long: `Print the adapter configuration for a database type and URI.

Supported types: ` + strings.Join(adapter.SupportedTypes(), ", ") + `

Examples:
  simpleschema adapter
  simpleschema adapter --type postgres --uri postgres://localhost/app`,
	RunE: runAdapter,
}

var (
	adapterType string
	adapterURI  string
)

func init() {
	rootCmd.AddCommand(adapterCmd)

	adapterCmd.Flags().StringVar(&adapterType, "type", "", "database type (default: database.type)")
	adapterCmd.Flags().StringVar(&adapterURI, "uri", "", "database URI (default: database.uri)")
}

func runAdapter(cmd *cobra.Command, args []string) error {
	dbCfg := adapter.Config{Type: adapterType, URI: adapterURI}

	if dbCfg.Type == "" || dbCfg.URI == "" {
		cfg, err := loadConfig(nil)
		if err != nil {
			return err
		}
		if dbCfg.Type == "" {
			dbCfg.Type = cfg.Database.Type
		}
		if dbCfg.URI == "" {
			dbCfg.URI = cfg.Database.URI
		}
	}

	db, err := adapter.Configure(dbCfg)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(db)
}
