package cli

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/repochat/internal/core/domain"
	"github.com/custodia-labs/repochat/internal/logger"
)

var (
	watchDebounce  time.Duration
	watchNoInitial bool
)

var watchCmd = &cobra.Command{
	Use:   "watch <path>",
	Short: "Re-ingest files as they change",
	Long: `Ingests a local directory, then watches it and re-ingests changed files
into the session namespace. Changes arriving within the debounce window are
batched into one ingest.

Deleted files are reported but stay in the index; with the random id scheme
every save adds new chunks, so prefer retrieval.id_scheme = "content".`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "wait this long for more changes before ingesting")
	watchCmd.Flags().BoolVar(&watchNoInitial, "no-initial", false, "skip the initial full ingest")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	root := args[0]
	ctx := cmd.Context()

	ns, err := sessionNamespace()
	if err != nil {
		return err
	}
	rt, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	if rt.Watcher == nil {
		return errors.New("watching is not supported by the configured sources")
	}

	if !watchNoInitial {
		n, err := rt.Assistant.IngestSource(ctx, root, ns)
		if err != nil {
			return fmt.Errorf("initial ingest failed: %w", err)
		}
		cmd.Printf("Stored %d chunks from %s.\n", n, root)
	}

	changes, err := rt.Watcher.Watch(ctx, root)
	if err != nil {
		return err
	}
	cmd.Printf("Watching %s (ctrl+c to stop)\n", root)

	pending := make(map[string]domain.Document)
	timer := time.NewTimer(watchDebounce)
	timer.Stop()

	flush := func() {
		if len(pending) == 0 {
			return
		}
		docs := make([]domain.Document, 0, len(pending))
		for _, doc := range pending {
			docs = append(docs, doc)
		}
		sort.Slice(docs, func(i, j int) bool { return docs[i].Source < docs[j].Source })
		clear(pending)

		n, err := rt.Assistant.Ingest(ctx, docs, ns)
		if err != nil {
			if ctx.Err() == nil {
				cmd.PrintErrf("Error: re-ingest of %d files failed: %v\n", len(docs), err)
			}
			return
		}
		cmd.Printf("Re-ingested %d files (%d chunks).\n", len(docs), n)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case change, ok := <-changes:
			if !ok {
				flush()
				return nil
			}
			if change.Removed {
				delete(pending, change.Document.Source)
				cmd.Printf("Removed %s (its chunks stay in the index).\n", change.Document.Source)
				continue
			}
			logger.Debugw("file changed", "source", change.Document.Source)
			pending[change.Document.Source] = change.Document
			timer.Reset(watchDebounce)

		case <-timer.C:
			flush()
		}
	}
}
