package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/repochat/internal/core/domain"
)

var (
	askJSON        bool
	askShowSources bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question about the indexed code",
	Long: `Retrieves the chunks most similar to the question from the session
namespace and asks the language model to answer using them as context.

Without a configured language model the retrieved context is printed instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	askCmd.Flags().BoolVarP(&askShowSources, "sources", "s", true, "list the files used as context")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}

	ns, err := sessionNamespace()
	if err != nil {
		return err
	}
	rt, err := loadRuntime(cmd)
	if err != nil {
		return err
	}

	answer, err := rt.Assistant.Ask(cmd.Context(), question, ns)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		data, err := json.MarshalIndent(answer, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	printAnswer(cmd, answer, askShowSources)
	return nil
}

// printAnswer writes the answer text, then its distinct source files.
func printAnswer(cmd *cobra.Command, answer *domain.Answer, showSources bool) {
	cmd.Println()
	cmd.Println("Answer:")
	cmd.Println(answer.Text)

	if !answer.HasContext() {
		cmd.Println()
		cmd.Println("(no indexed code matched; run 'repochat ingest' first)")
		return
	}
	if !showSources {
		return
	}

	cmd.Println()
	cmd.Println("Sources:")
	for _, origin := range distinctOrigins(answer.Sources) {
		cmd.Printf("  - %s\n", origin)
	}
}

func distinctOrigins(chunks []domain.RetrievedChunk) []string {
	seen := make(map[string]bool, len(chunks))
	var origins []string
	for _, c := range chunks {
		if c.Origin == "" || seen[c.Origin] {
			continue
		}
		seen[c.Origin] = true
		origins = append(origins, c.Origin)
	}
	return origins
}
