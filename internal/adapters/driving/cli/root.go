// Package cli provides the repochat command line interface built on cobra.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/repochat/internal/logger"
)

// version is set at build time with -ldflags "-X .../cli.version=...".
var version = "dev"

var (
	configPath    string
	verbose       bool
	namespaceFlag string
)

var rootCmd = &cobra.Command{
	Use:   "repochat",
	Short: "Chat with a code repository",
	Long: `repochat indexes a local directory or a git repository into a vector
index and answers questions about the code using the most relevant chunks
as context for a language model.

Each session namespace keeps its own chunks; --namespace selects one.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.repochat/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print pipeline details to stderr")
	rootCmd.PersistentFlags().StringVarP(&namespaceFlag, "namespace", "n", "", "session namespace (default from config)")
}

// Execute runs the root command and releases services afterwards.
func Execute(ctx context.Context) error {
	defer closeRuntime()
	return rootCmd.ExecuteContext(ctx)
}

// SetVersion overrides the version reported by `repochat version`.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Root returns the root command, for documentation generators and tests.
func Root() *cobra.Command {
	return rootCmd
}
