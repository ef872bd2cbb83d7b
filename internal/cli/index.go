package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dshills/wsindex/internal/indexer"
)

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Run one incremental indexing pass",
		Long:  "Index new and changed files under the workspace root and prune deleted ones. Ctrl-C cancels at the next chunk boundary and keeps completed work.",
		RunE:  runIndex,
	}

	cmd.Flags().Bool("progress", false, "Print per-chunk progress to stderr")
	cmd.Flags().Bool("json", false, "Print the run summary as JSON")

	return cmd
}

func runIndex(cmd *cobra.Command, args []string) error {
	showProgress, _ := cmd.Flags().GetBool("progress")
	asJSON, _ := cmd.Flags().GetBool("json")

	var opts appOptions
	if showProgress {
		opts.onProgress = progressPrinter(cmd.ErrOrStderr())
	}

	a, err := newApp(cmd, opts)
	if err != nil {
		return err
	}
	defer a.close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-sigChan:
			a.log.Info().Msg("interrupt received, cancelling after the current chunk")
			a.indexer.RequestCancellation()
		case <-done:
		}
	}()

	summary, err := a.indexer.StartRun(cmd.Context(), a.root)
	if err != nil {
		return err
	}

	if asJSON {
		return writeJSON(cmd.OutOrStdout(), summary)
	}
	printSummary(cmd.OutOrStdout(), summary)
	return nil
}

// progressPrinter reports once per chunk rather than once per file
func progressPrinter(w io.Writer) indexer.ProgressFunc {
	lastChunk := -1
	return func(p indexer.Progress) {
		if p.ChunkIndex == lastChunk || p.TotalChunks == 0 {
			return
		}
		lastChunk = p.ChunkIndex
		_, _ = fmt.Fprintf(w, "[%d/%d] %d/%d files (%.0f%%) eta %s\n",
			p.ChunkIndex+1, p.TotalChunks, p.ProcessedFiles, p.TotalFiles,
			p.Percentage, p.EstimatedTimeRemaining.Round(time.Second))
	}
}

func printSummary(w io.Writer, s *indexer.RunSummary) {
	_, _ = fmt.Fprintf(w, "Outcome:     %s\n", s.Outcome)
	_, _ = fmt.Fprintf(w, "Candidates:  %d (new %d, changed %d, unchanged %d, deleted %d)\n",
		s.Candidates, s.New, s.Changed, s.Unchanged, s.Deleted)
	_, _ = fmt.Fprintf(w, "Indexed:     %d (skipped %d)\n", s.Indexed, s.Skipped)
	_, _ = fmt.Fprintf(w, "Chunks:      %d/%d\n", s.ChunksCompleted, s.TotalChunks)
	_, _ = fmt.Fprintf(w, "Index size:  %s\n", humanize.IBytes(uint64(max(s.TotalSize, 0))))
	_, _ = fmt.Fprintf(w, "Duration:    %s\n", s.Duration)
	if s.Mitigations > 0 {
		_, _ = fmt.Fprintf(w, "Memory:      %d mitigations, %d entries trimmed\n", s.Mitigations, s.EntriesTrimmed)
	}
	for _, msg := range s.ErrorMessages {
		_, _ = fmt.Fprintf(w, "  error: %s\n", msg)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
