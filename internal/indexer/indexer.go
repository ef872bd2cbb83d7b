package indexer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/wsindex/internal/enumerator"
	"github.com/dshills/wsindex/internal/memory"
	"github.com/dshills/wsindex/internal/parser"
	"github.com/dshills/wsindex/internal/storage"
	"github.com/dshills/wsindex/pkg/types"
)

// Defaults for run scheduling
const (
	DefaultChunkSize          = 50
	DefaultMaxConcurrentFiles = 8
	DefaultCheckpointInterval = 5

	maxErrorMessages = 20
)

// State is the scheduler state
type State int32

const (
	StateIdle State = iota
	StateRunning
)

func (s State) String() string {
	if s == StateRunning {
		return "running"
	}
	return "idle"
}

// Outcome is the terminal result of a StartRun call
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeBusy      Outcome = "busy"
	OutcomeFailed    Outcome = "failed"
)

// Enumerator produces candidate paths for a root
type Enumerator interface {
	Enumerate(ctx context.Context, root string) []string
}

// Options configures an Indexer
type Options struct {
	Store      *storage.Store // Required
	Enumerator Enumerator     // Defaults to enumerator.New with default patterns
	FileSystem FileSystem     // Defaults to OSFileSystem
	Extractor  parser.Extractor
	Processor  FileProcessor // Overrides the FileIndexer built from FileSystem and Extractor
	Governor   *memory.Governor

	ChunkSize          int
	MaxConcurrentFiles int
	CheckpointInterval int
	MaxFileSize        int64

	OnProgress ProgressFunc
	Logger     zerolog.Logger
}

// RunSummary is the end-of-run report
type RunSummary struct {
	RunID   string  `json:"runId"`
	Root    string  `json:"root"`
	Outcome Outcome `json:"outcome"`

	// Change detection
	Candidates int `json:"candidates"`
	New        int `json:"new"`
	Changed    int `json:"changed"`
	Unchanged  int `json:"unchanged"`
	Deleted    int `json:"deleted"`

	// Processing
	Indexed         int `json:"indexed"`
	Skipped         int `json:"skipped"`
	ChunksCompleted int `json:"chunksCompleted"`
	TotalChunks     int `json:"totalChunks"`
	Checkpoints     int `json:"checkpoints"`
	Mitigations     int `json:"mitigations"`
	EntriesTrimmed  int `json:"entriesTrimmed"`

	TotalSize     int64         `json:"totalSize"`
	Duration      time.Duration `json:"duration"`
	ErrorMessages []string      `json:"errorMessages,omitempty"`
}

// Indexer runs incremental indexing passes over one workspace
type Indexer struct {
	store      *storage.Store
	fs         FileSystem
	enumerator Enumerator
	detector   *ChangeDetector
	processor  FileProcessor
	governor   *memory.Governor

	chunkSize          int
	maxConcurrentFiles int
	checkpointInterval int

	lock            IndexLock
	state           atomic.Int32
	cancelRequested atomic.Bool
	lastOutcome     atomic.Value // Outcome
	progress        *progressTracker

	logger zerolog.Logger
}

// New creates an Indexer, filling unset collaborators with defaults
func New(opts Options) (*Indexer, error) {
	if opts.Store == nil {
		return nil, errors.New("indexer requires a store")
	}
	if opts.FileSystem == nil {
		opts.FileSystem = OSFileSystem{}
	}
	if opts.Enumerator == nil {
		opts.Enumerator = enumerator.New(enumerator.Options{Logger: opts.Logger})
	}
	if opts.Extractor == nil {
		opts.Extractor = parser.NewDefaultRegistry()
	}
	if opts.Processor == nil {
		opts.Processor = NewFileIndexer(opts.FileSystem, opts.Extractor, FileIndexerOptions{
			MaxFileSize: opts.MaxFileSize,
			Logger:      opts.Logger,
		})
	}
	if opts.Governor == nil {
		opts.Governor = memory.NewGovernor(nil, memory.Options{Ceiling: memory.DefaultCeiling, Logger: opts.Logger})
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.MaxConcurrentFiles <= 0 {
		opts.MaxConcurrentFiles = DefaultMaxConcurrentFiles
	}
	if opts.CheckpointInterval <= 0 {
		opts.CheckpointInterval = DefaultCheckpointInterval
	}

	idx := &Indexer{
		store:              opts.Store,
		fs:                 opts.FileSystem,
		enumerator:         opts.Enumerator,
		detector:           NewChangeDetector(opts.FileSystem, opts.Logger),
		processor:          opts.Processor,
		governor:           opts.Governor,
		chunkSize:          opts.ChunkSize,
		maxConcurrentFiles: opts.MaxConcurrentFiles,
		checkpointInterval: opts.CheckpointInterval,
		progress:           newProgressTracker(opts.OnProgress),
		logger:             opts.Logger,
	}
	idx.lastOutcome.Store(Outcome(""))
	return idx, nil
}

// Store returns the index store the Indexer writes to
func (idx *Indexer) Store() *storage.Store {
	return idx.store
}

// IsIndexingInProgress reports whether a run is active
func (idx *Indexer) IsIndexingInProgress() bool {
	return idx.State() == StateRunning
}

// State returns the current scheduler state
func (idx *Indexer) State() State {
	return State(idx.state.Load())
}

// LastOutcome returns the outcome of the most recent finished run, or ""
func (idx *Indexer) LastOutcome() Outcome {
	return idx.lastOutcome.Load().(Outcome)
}

// Progress returns the active run's progress, or the zero value when idle
func (idx *Indexer) Progress() Progress {
	return idx.progress.snapshot()
}

// RequestCancellation asks the active run to stop before its next chunk.
// It is a no-op when no run is active.
func (idx *Indexer) RequestCancellation() {
	if idx.IsIndexingInProgress() {
		idx.cancelRequested.Store(true)
		idx.logger.Info().Msg("indexing cancellation requested")
	}
}

// ClearIndex resets the index and persists the empty state. It fails with
// types.ErrIndexingInProgress while a run is active.
func (idx *Indexer) ClearIndex(ctx context.Context) error {
	if !idx.lock.TryAcquire() {
		return types.ErrIndexingInProgress
	}
	defer idx.lock.Release()
	return idx.store.Clear(ctx)
}

// StartRun performs one incremental indexing pass over root.
//
// A call made while another run is active returns OutcomeBusy immediately
// with a nil error. OutcomeFailed is returned, with an error, only when the
// run cannot start at all. Per-file and persistence failures are logged and
// counted but never fail the run.
func (idx *Indexer) StartRun(ctx context.Context, root string) (*RunSummary, error) {
	if !idx.lock.TryAcquire() {
		idx.logger.Debug().Str("root", root).Msg("indexing already in progress, start request ignored")
		return &RunSummary{Root: root, Outcome: OutcomeBusy}, nil
	}
	defer idx.lock.Release()

	idx.cancelRequested.Store(false)
	idx.state.Store(int32(StateRunning))
	defer idx.state.Store(int32(StateIdle))

	startTime := time.Now()
	summary := &RunSummary{
		RunID:         uuid.NewString(),
		Root:          root,
		ErrorMessages: make([]string, 0),
	}
	logger := idx.logger.With().Str("run_id", summary.RunID).Str("root", root).Logger()
	logger.Info().Msg("indexing run started")

	defer func() {
		summary.TotalSize = idx.store.TotalSize()
		summary.Duration = time.Since(startTime)
		idx.lastOutcome.Store(summary.Outcome)
		idx.progress.end()
		logSummary(logger, summary)
	}()

	if err := idx.checkRoot(ctx, root); err != nil {
		if ctx.Err() != nil {
			summary.Outcome = OutcomeCancelled
			return summary, nil
		}
		summary.Outcome = OutcomeFailed
		return summary, err
	}

	summary.Outcome = idx.run(ctx, root, summary, logger)

	// The final save runs even when the caller's context is done
	if err := idx.store.Save(context.WithoutCancel(ctx)); err == nil {
		summary.Checkpoints++
	}

	return summary, nil
}

func (idx *Indexer) checkRoot(ctx context.Context, root string) error {
	if !filepath.IsAbs(root) {
		return fmt.Errorf("%w: %s is not absolute", types.ErrInvalidRoot, root)
	}
	info, err := idx.fs.Stat(ctx, root)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrInvalidRoot, err)
	}
	if !info.IsDir {
		return fmt.Errorf("%w: %s is not a directory", types.ErrInvalidRoot, root)
	}
	return nil
}

// run enumerates, detects changes and processes the work list. Cancellation
// is honoured after enumeration, after detection and before every chunk.
func (idx *Indexer) run(ctx context.Context, root string, summary *RunSummary, logger zerolog.Logger) Outcome {
	candidates := idx.enumerator.Enumerate(ctx, root)
	summary.Candidates = len(candidates)
	if idx.cancelled(ctx) {
		logger.Info().Msg("indexing cancelled before change detection")
		return OutcomeCancelled
	}

	work := idx.detector.Detect(ctx, root, candidates, idx.store)
	summary.New = len(work.New)
	summary.Changed = len(work.Changed)
	summary.Unchanged = work.Unchanged
	summary.Deleted = len(work.Deleted)
	if idx.cancelled(ctx) {
		logger.Info().Msg("indexing cancelled during change detection")
		return OutcomeCancelled
	}

	chunks := partition(work.Paths, idx.chunkSize)
	summary.TotalChunks = len(chunks)
	idx.progress.begin(len(work.Paths), len(chunks))

	return idx.runChunks(ctx, root, chunks, summary, logger)
}

func (idx *Indexer) cancelled(ctx context.Context) bool {
	return idx.cancelRequested.Load() || ctx.Err() != nil
}

// runChunks processes chunks in order and returns the terminal outcome
func (idx *Indexer) runChunks(ctx context.Context, root string, chunks [][]string, summary *RunSummary, logger zerolog.Logger) Outcome {
	for i, chunk := range chunks {
		idx.progress.chunk(i, fmt.Sprintf("Indexing chunk %d of %d (%d files)", i+1, len(chunks), len(chunk)))

		if idx.cancelled(ctx) {
			logger.Info().Int("chunk", i).Msg("indexing cancelled before chunk")
			return OutcomeCancelled
		}

		entries := idx.processChunk(ctx, root, chunk, summary, logger)
		idx.store.UpsertBatch(entries)
		summary.ChunksCompleted++

		if m := idx.governor.Mitigate(ctx, idx.store); m.Triggered() {
			summary.Mitigations++
			summary.EntriesTrimmed += m.EntriesTrimmed
		}

		if (i+1)%idx.checkpointInterval == 0 {
			if err := idx.store.Save(ctx); err == nil {
				summary.Checkpoints++
			}
		}
	}
	return OutcomeCompleted
}

// fileResult is the outcome of one per-file operation
type fileResult struct {
	entry *types.FileIndexEntry
	err   error
}

// processChunk runs the chunk as sequential batches of at most
// maxConcurrentFiles concurrent operations, waiting for each batch.
func (idx *Indexer) processChunk(ctx context.Context, root string, chunk []string, summary *RunSummary, logger zerolog.Logger) []types.FileIndexEntry {
	results := make([]fileResult, len(chunk))

	for start := 0; start < len(chunk); start += idx.maxConcurrentFiles {
		end := min(start+idx.maxConcurrentFiles, len(chunk))

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				results[i] = idx.processFile(ctx, root, chunk[i])
				idx.progress.fileDone(chunk[i])
				return nil
			})
		}
		_ = g.Wait() // Workers never return errors
	}

	entries := make([]types.FileIndexEntry, 0, len(chunk))
	for i, res := range results {
		if res.err != nil {
			summary.Skipped++
			if len(summary.ErrorMessages) < maxErrorMessages {
				summary.ErrorMessages = append(summary.ErrorMessages, res.err.Error())
			}
			logFileError(logger, chunk[i], res.err)
			continue
		}
		summary.Indexed++
		entries = append(entries, *res.entry)
	}
	return entries
}

// processFile runs the processor for one path, converting panics and
// missing entries into per-file errors.
func (idx *Indexer) processFile(ctx context.Context, root, path string) (res fileResult) {
	defer func() {
		if r := recover(); r != nil {
			res = fileResult{err: &PerFileError{Path: path, Stage: StagePanic, Err: fmt.Errorf("%v", r)}}
		}
	}()

	entry, err := idx.processor.IndexFile(ctx, root, path)
	if err != nil {
		return fileResult{err: err}
	}
	if entry == nil {
		return fileResult{err: &PerFileError{Path: path, Stage: StageRead, Err: errors.New("no entry produced")}}
	}
	entry.Path = path
	return fileResult{entry: entry}
}

// partition splits paths into chunks of at most size, preserving order
func partition(paths []string, size int) [][]string {
	if len(paths) == 0 {
		return nil
	}
	chunks := make([][]string, 0, (len(paths)+size-1)/size)
	for i := 0; i < len(paths); i += size {
		end := min(i+size, len(paths))
		chunks = append(chunks, paths[i:end])
	}
	return chunks
}

func logFileError(logger zerolog.Logger, path string, err error) {
	var fileErr *PerFileError
	if errors.As(err, &fileErr) && (fileErr.Stage == StageSize || fileErr.Stage == StageBinary) {
		logger.Debug().Str("path", path).Str("stage", string(fileErr.Stage)).Msg("file skipped")
		return
	}
	logger.Warn().Err(err).Str("path", path).Msg("failed to index file")
}

func logSummary(logger zerolog.Logger, summary *RunSummary) {
	event := logger.Info()
	if summary.Outcome == OutcomeFailed {
		event = logger.Error()
	}
	event.
		Str("outcome", string(summary.Outcome)).
		Int("candidates", summary.Candidates).
		Int("new", summary.New).
		Int("changed", summary.Changed).
		Int("unchanged", summary.Unchanged).
		Int("deleted", summary.Deleted).
		Int("indexed", summary.Indexed).
		Int("skipped", summary.Skipped).
		Int("chunks", summary.ChunksCompleted).
		Int("checkpoints", summary.Checkpoints).
		Dur("duration", summary.Duration).
		Msg("indexing run finished")
}
