package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <path|url>",
	Short: "Index a directory or repository",
	Long: `Loads source files from a local directory or a git repository URL,
splits them into overlapping chunks, embeds them and stores them in the
session namespace.

Repository URLs are shallow-cloned with git. github.com repositories are
fetched through the GitHub API instead when github.api is set or git is
not installed.

Examples:
  repochat ingest ./my-project
  repochat ingest https://github.com/owner/repo --namespace demo`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	root := args[0]

	ns, err := sessionNamespace()
	if err != nil {
		return err
	}
	rt, err := loadRuntime(cmd)
	if err != nil {
		return err
	}

	start := time.Now()
	cmd.Printf("Ingesting %s into %s...\n", root, ns)
	n, err := rt.Assistant.IngestSource(cmd.Context(), root, ns)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	cmd.Printf("Stored %d chunks in %s.\n", n, time.Since(start).Round(time.Millisecond))
	return nil
}
