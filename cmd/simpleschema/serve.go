package main

import (
	"github.com/spf13/cobra"

	"github.com/artpar/simpleschema/bootstrap"
)

var (
	serveWatch     bool
	serveNoMigrate bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the compiled schema over HTTP",
	Long: `Start the simpleschema HTTP server.

The server will:
  - Load configuration from simpleschema.yaml (or --config)
  - Or load configuration from SIMPLESCHEMA_* environment variables
  - Compile the schema file and, for sqlite, create its tables
  - Recompile on SIGHUP and, with --watch, when the schema file changes

Endpoints:
  GET  /healthz              Liveness, with the current revision
  GET  /collections          Compiled collections (JSON:API, or ?format=)
  GET  /collections/{slug}   One compiled collection
  GET  /refs                 Collection reference handles
  GET  /unresolved           Joins dropped by the last compile
  GET  /adapter              Database adapter configuration
  POST /compile              Compile a YAML or JSON body without installing it
  POST /reload               Recompile the schema file
  GET  /metrics              Prometheus metrics (when enabled)

Examples:
  simpleschema serve
  simpleschema serve -s schema.yaml --watch
  SIMPLESCHEMA_SERVER_PORT=9000 simpleschema serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "recompile when the schema file changes")
	serveCmd.Flags().BoolVar(&serveNoMigrate, "no-migrate", false, "do not create sqlite tables")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}
	if serveWatch {
		cfg.Schema.Watch = true
	}

	app, err := bootstrap.New(cfg, bootstrap.Options{
		Version:     version,
		LogOutput:   cmd.ErrOrStderr(),
		SkipMigrate: serveNoMigrate,
	})
	if err != nil {
		return err
	}

	return app.Run(cmd.Context())
}
