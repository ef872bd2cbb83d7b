// Package indexer runs incremental, memory-bounded indexing passes over a
// workspace.
//
// # Basic Usage
//
//	store := storage.NewStore(ctx, persistence, root, logger)
//	idx, err := indexer.New(indexer.Options{
//	    Store:              store,
//	    ChunkSize:          50,
//	    MaxConcurrentFiles: 8,
//	    CheckpointInterval: 5,
//	    OnProgress: func(p indexer.Progress) {
//	        fmt.Printf("%.0f%% %s\n", p.Percentage, p.Message)
//	    },
//	})
//
//	summary, err := idx.StartRun(ctx, root)
//	fmt.Printf("%s: %d indexed, %d skipped\n", summary.Outcome, summary.Indexed, summary.Skipped)
//
// # Run Pipeline
//
//  1. Enumerate: list candidate files under the root
//  2. Detect changes: new and changed files form the work list, files that
//     vanished from disk are pruned from the store immediately
//  3. Partition the work list into chunks of ChunkSize files
//  4. For each chunk: report progress, stop if cancellation was requested,
//     index the chunk's files in batches of at most MaxConcurrentFiles,
//     commit the entries, let the memory governor mitigate, and checkpoint
//     every CheckpointInterval chunks
//  5. Save the store unconditionally
//
// # Incremental Indexing
//
// A file is reindexed only when it has no entry or its modification time
// differs from the stored one. Unchanged files are never read:
//
//	s1, _ := idx.StartRun(ctx, root) // New: 247
//	s2, _ := idx.StartRun(ctx, root) // Unchanged: 247, Indexed: 0
//
// # Concurrency
//
// Only one run is active per Indexer. StartRun during an active run returns
// OutcomeBusy immediately; nothing is queued. Within a chunk, files are
// processed in bounded batches with an errgroup, and the scheduler waits
// for the whole batch before starting the next one.
//
// Cancellation is cooperative. RequestCancellation is observed between
// chunks only, so a chunk that has started always completes and is
// committed.
//
// # Error Handling
//
// Per-file failures (stat, read, size limit, binary content, symbol
// extraction, panics) are returned as *PerFileError, logged, and counted in
// RunSummary.Skipped. The file's prior entry, if any, is left untouched.
// Persistence failures are logged and the run continues in memory.
package indexer
