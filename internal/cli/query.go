package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dshills/wsindex/pkg/types"
)

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed symbol names",
		Args:  cobra.ExactArgs(1),
		RunE:  runSearch,
	}

	cmd.Flags().Int("limit", 0, "Maximum number of results (defaults to search.max_results)")
	cmd.Flags().Bool("json", false, "Print results as JSON")

	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	asJSON, _ := cmd.Flags().GetBool("json")
	if strings.TrimSpace(args[0]) == "" {
		return types.ErrEmptyQuery
	}

	a, err := newApp(cmd, appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	if limit <= 0 {
		limit = a.searcher.MaxResults()
	}
	matches := a.searcher.Search(args[0], limit)

	if asJSON {
		return writeJSON(cmd.OutOrStdout(), matches)
	}
	if len(matches) == 0 {
		cmd.Println("No matching symbols.")
		return nil
	}
	for _, m := range matches {
		cmd.Printf("%s:%d\t%s\t%s\n", m.Path, m.Symbol.Range.Start.Line, m.Symbol.Kind, m.Symbol.Name)
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		RunE:  runStats,
	}

	cmd.Flags().Bool("json", false, "Print statistics as JSON")

	return cmd
}

func runStats(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	a, err := newApp(cmd, appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	stats := a.searcher.GetProjectStatistics()
	if asJSON {
		return writeJSON(cmd.OutOrStdout(), stats)
	}

	cmd.Printf("Root:          %s\n", a.root)
	cmd.Printf("Files:         %d (%d indexed)\n", stats.TotalFiles, stats.IndexedFiles)
	cmd.Printf("Size:          %s\n", stats.TotalSize)
	cmd.Printf("Symbols:       %d\n", stats.SymbolCount)
	cmd.Printf("Dependencies:  %d\n", stats.DependencyCount)
	if !stats.LastUpdated.IsZero() {
		cmd.Printf("Last updated:  %s\n", humanize.Time(stats.LastUpdated))
	}
	if len(stats.Languages) > 0 {
		cmd.Printf("Languages:     %s\n", formatLanguages(stats.Languages))
	}
	return nil
}

// formatLanguages renders counts in descending order, ties by name
func formatLanguages(counts map[string]int) string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%d", name, counts[name])
	}
	return strings.Join(parts, " ")
}

func newFileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "file <path>",
		Short: "Show the stored index entry for one file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, appOptions{})
			if err != nil {
				return err
			}
			defer a.close()

			entry, ok := a.searcher.GetIndexedFile(args[0])
			if !ok {
				return fmt.Errorf("%s is not indexed", args[0])
			}
			return writeJSON(cmd.OutOrStdout(), entry)
		},
	}
}

func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Drop every entry from the workspace index",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, appOptions{})
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.indexer.ClearIndex(cmd.Context()); err != nil {
				if errors.Is(err, types.ErrIndexingInProgress) {
					return err
				}
				return fmt.Errorf("failed to persist cleared index: %w", err)
			}
			cmd.Printf("Cleared index for %s\n", a.root)
			return nil
		},
	}
}

func newSnapshotsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshots",
		Short: "List every workspace stored in the index database",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, appOptions{})
			if err != nil {
				return err
			}
			defer a.close()

			infos, err := a.persistence.ListSnapshots(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list snapshots: %w", err)
			}
			if len(infos) == 0 {
				cmd.Println("No snapshots stored.")
				return nil
			}
			for _, info := range infos {
				cmd.Printf("%s\t%s\t%s\n", info.RootPath, humanize.IBytes(uint64(max(info.SizeBytes, 0))), humanize.Time(info.UpdatedAt))
			}
			return nil
		},
	}
}
