// Package watcher keeps an index current by turning file system changes
// into incremental indexing runs.
//
// A Watcher registers every non-excluded directory under the root with
// fsnotify and collapses bursts of events into batches with a Debouncer.
// A Runner consumes the batches and calls StartRun; when the indexer is
// busy the rerun stays pending and is retried after a short delay, so
// changes made during a run are never lost.
//
//	w, err := watcher.NewWatcher(root, enum, 300*time.Millisecond, logger)
//	if err != nil {
//	    return err
//	}
//	defer w.Close()
//	go w.Start(ctx)
//
//	runner := watcher.NewRunner(w, idx, watcher.RunnerOptions{Root: root})
//	return runner.Run(ctx)
package watcher
