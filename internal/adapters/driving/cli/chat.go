package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/repochat/internal/adapters/driving/tui"
	"github.com/custodia-labs/repochat/internal/core/ports/driving"
)

var chatPlain bool

// isTerminal reports whether the chat input is an interactive terminal.
var isTerminal = func(in io.Reader) bool {
	f, ok := in.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

var chatCmd = &cobra.Command{
	Use:   "chat [path|url]",
	Short: "Start an interactive chat about the code",
	Long: `Starts an interactive question and answer session over the session
namespace. When a path or repository URL is given it is ingested first.

On a terminal the full-screen interface is used; otherwise, or with
--plain, questions are read line by line from stdin.

Commands inside the chat:
  /ingest <path|url>  index another directory or repository
  /status             show the session chunk count
  q, quit, exit       leave the chat`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&chatPlain, "plain", false, "read questions line by line instead of the full-screen UI")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ns, err := sessionNamespace()
	if err != nil {
		return err
	}
	rt, err := loadRuntime(cmd)
	if err != nil {
		return err
	}

	if len(args) == 1 {
		cmd.Printf("Ingesting %s...\n", args[0])
		n, err := rt.Assistant.IngestSource(cmd.Context(), args[0], ns)
		if err != nil {
			return fmt.Errorf("ingest failed: %w", err)
		}
		cmd.Printf("Stored %d chunks.\n", n)
	}

	if !chatPlain && isTerminal(cmd.InOrStdin()) {
		return runChatTUI(cmd.Context(), rt.Assistant, ns)
	}
	return runChatLoop(cmd, rt.Assistant, ns)
}

func runChatTUI(ctx context.Context, assistant driving.AssistantService, ns string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = fmt.Errorf("TUI panic: %v", r)
		}
	}()

	app, err := tui.NewApp(&tui.Ports{Assistant: assistant, Namespace: ns})
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	if err := app.WithContext(ctx).Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// runChatLoop reads one question per line until a quit word or end of input.
// A failed question is reported and the loop continues.
func runChatLoop(cmd *cobra.Command, assistant driving.AssistantService, ns string) error {
	ctx := cmd.Context()
	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for {
		cmd.Print("\nAsk a question about the code (or 'q' to quit): ")
		if !scanner.Scan() {
			cmd.Println()
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "q", "quit", "exit":
			return nil
		}

		if root, ok := strings.CutPrefix(line, "/ingest"); ok {
			root = strings.TrimSpace(root)
			if root == "" {
				cmd.Println("usage: /ingest <path|url>")
				continue
			}
			n, err := assistant.IngestSource(ctx, root, ns)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				cmd.PrintErrf("Error: %v\n", err)
				continue
			}
			cmd.Printf("Ingested %d chunks from %s\n", n, root)
			continue
		}

		if line == "/status" {
			stats, err := assistant.Status(ctx, ns)
			if err != nil {
				cmd.PrintErrf("Error: %v\n", err)
				continue
			}
			cmd.Printf("%s: %d chunks\n", stats.Namespace, stats.Count)
			continue
		}

		answer, err := assistant.Ask(ctx, line, ns)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			cmd.PrintErrf("Error: %v\n", err)
			continue
		}
		printAnswer(cmd, answer, true)
	}
}
