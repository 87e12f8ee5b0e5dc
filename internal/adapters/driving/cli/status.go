package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the chunk count of the session namespace",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	ns, err := sessionNamespace()
	if err != nil {
		return err
	}
	rt, err := loadRuntime(cmd)
	if err != nil {
		return err
	}

	stats, err := rt.Assistant.Status(cmd.Context(), ns)
	if err != nil {
		return fmt.Errorf("status failed: %w", err)
	}

	if statusJSON {
		data, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("Index:     %s\n", stats.Index)
	cmd.Printf("Namespace: %s\n", stats.Namespace)
	cmd.Printf("Chunks:    %d\n", stats.Count)
	if stats.Dimension > 0 {
		cmd.Printf("Dimension: %d\n", stats.Dimension)
	}
	return nil
}
