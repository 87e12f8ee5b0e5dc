package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/repochat/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/repochat/internal/core/services"
)

var (
	serveAddr       string
	serveAllowLocal bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Starts the HTTP API used by the web front end:

  POST /upload-file    multipart field "files"; ingests the uploaded files
  POST /upload-github  form field "repo_url"; ingests a repository
  POST /chat           {"message": "..."} -> {"response": "..."}
  GET  /status         chunk count of the session namespace
  GET  /healthz        liveness

Each client picks its namespace with the X-Session-ID header. Requests
without it share the server session: session.namespace when configured,
otherwise a fresh session-<id> generated at start.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default server.addr, :8000)")
	serveCmd.Flags().BoolVar(&serveAllowLocal, "allow-local", false, "let /upload-github ingest directories on this host")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	rt, err := loadRuntime(cmd)
	if err != nil {
		return err
	}

	addr := serveAddr
	if addr == "" {
		addr = settings.ServerAddr
	}

	server, err := httpapi.NewServer(httpapi.Config{
		Assistant:       rt.Assistant,
		Namespace:       serverNamespace(),
		Addr:            addr,
		AllowLocalPaths: serveAllowLocal,
	})
	if err != nil {
		return err
	}

	cmd.Printf("Listening on %s (session %s)\n", addr, server.Namespace())
	if err := server.Run(cmd.Context()); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// serverNamespace is the --namespace flag or an explicitly configured
// session.namespace. Empty lets the server generate one.
func serverNamespace() string {
	if namespaceFlag != "" {
		return namespaceFlag
	}
	store, _, err := loadSettingsService()
	if err != nil || store == nil {
		return ""
	}
	if _, ok := store.Get(services.KeyNamespace); ok {
		return store.GetString(services.KeyNamespace)
	}
	return ""
}
