package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/wsindex/internal/indexer"
	"github.com/dshills/wsindex/internal/mcp"
	"github.com/dshills/wsindex/internal/watcher"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server on stdio",
		Long:  "Start the Model Context Protocol server for the workspace. stdout carries protocol messages, logs go to stderr.",
		RunE:  runServe,
	}

	cmd.Flags().Bool("watch", false, "Also reindex automatically when files change")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	watch, _ := cmd.Flags().GetBool("watch")

	a, err := newApp(cmd, appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server, err := mcp.NewServer(mcp.Options{
		Indexer:  a.indexer,
		Searcher: a.searcher,
		Root:     a.root,
		Logger:   a.log.Component("mcp"),
	})
	if err != nil {
		return err
	}

	if watch {
		stopWatch, err := startWatching(ctx, a, nil)
		if err != nil {
			return err
		}
		defer stopWatch()
	}

	a.log.Info().Str("root", a.root).Str("version", Version).Msg("MCP server ready, listening on stdio")

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Serve(ctx)
	}()

	select {
	case <-ctx.Done():
		a.log.Info().Msg("shutting down")
		a.indexer.RequestCancellation()
		return nil
	case err := <-errChan:
		return err
	}
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Index once, then reindex whenever files change",
		RunE:  runWatch,
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		a.indexer.RequestCancellation()
	}()

	printRun := func(s *indexer.RunSummary) {
		cmd.Printf("%s  %s: %d indexed, %d deleted, %d unchanged\n",
			time.Now().Format(time.TimeOnly), s.Outcome, s.Indexed, s.Deleted, s.Unchanged)
	}

	summary, err := a.indexer.StartRun(ctx, a.root)
	if err != nil {
		return err
	}
	printRun(summary)

	stopWatch, err := startWatching(ctx, a, printRun)
	if err != nil {
		return err
	}
	defer stopWatch()

	cmd.Printf("Watching %s (Ctrl-C to stop)\n", a.root)
	<-ctx.Done()
	return nil
}

// startWatching runs a filesystem watcher feeding incremental runs until ctx
// is done. The returned func stops the watcher and waits for the runner.
func startWatching(ctx context.Context, a *app, onRun func(*indexer.RunSummary)) (func(), error) {
	debounce := time.Duration(a.cfg.Watch.DebounceMS) * time.Millisecond
	w, err := watcher.NewWatcher(a.root, a.enumerator, debounce, a.log.Component("watcher"))
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	go w.Start(runCtx)

	runner := watcher.NewRunner(w, a.indexer, watcher.RunnerOptions{
		Root:       a.root,
		RetryDelay: debounce,
		OnRun:      onRun,
		Logger:     a.log.Component("watcher"),
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := runner.Run(runCtx); err != nil {
			a.log.Warn().Err(err).Msg("watch runner stopped")
		}
	}()

	return func() {
		cancel()
		_ = w.Close()
		<-done
	}, nil
}
