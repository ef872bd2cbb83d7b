package indexer

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/wsindex/internal/memory"
	"github.com/dshills/wsindex/internal/parser"
	"github.com/dshills/wsindex/internal/storage"
	"github.com/dshills/wsindex/pkg/types"
)

type harness struct {
	fs          *memFS
	proc        *countingProcessor
	persistence *countingPersistence
	store       *storage.Store
	idx         *Indexer
}

func newHarness(t *testing.T, configure func(*Options)) *harness {
	t.Helper()
	h := &harness{
		fs:          newMemFS(),
		persistence: newCountingPersistence(),
	}
	h.proc = &countingProcessor{
		next: NewFileIndexer(h.fs, parser.NewDefaultRegistry(), FileIndexerOptions{Logger: zerolog.Nop()}),
	}
	h.store = storage.NewStore(context.Background(), h.persistence, testRoot, zerolog.Nop())

	opts := Options{
		Store:              h.store,
		Enumerator:         h.fs,
		FileSystem:         h.fs,
		Processor:          h.proc,
		ChunkSize:          2,
		MaxConcurrentFiles: 2,
		CheckpointInterval: 100,
		Logger:             zerolog.Nop(),
	}
	if configure != nil {
		configure(&opts)
	}

	idx, err := New(opts)
	require.NoError(t, err)
	h.idx = idx
	return h
}

func (h *harness) run(t *testing.T) *RunSummary {
	t.Helper()
	summary, err := h.idx.StartRun(context.Background(), testRoot)
	require.NoError(t, err)
	require.NotNil(t, summary)
	return summary
}

func (h *harness) seedFiles(n int) {
	for i := 0; i < n; i++ {
		h.fs.write(fmt.Sprintf("src/file%02d.ts", i), fmt.Sprintf("export function fn%d() {}\n", i), baseTime)
	}
}

func TestNew_RequiresStore(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestStartRun_IndexesAllFiles(t *testing.T) {
	h := newHarness(t, nil)
	h.fs.write("a.ts", "import { x } from './x'\nexport function alpha() {}\n", baseTime)
	h.fs.write("b.go", "package b\n\nimport \"fmt\"\n\nfunc Beta() { fmt.Println() }\n", baseTime)
	h.fs.write("c.py", "import os\n\ndef gamma():\n    pass\n", baseTime)

	summary := h.run(t)

	assert.Equal(t, OutcomeCompleted, summary.Outcome)
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 3, summary.Candidates)
	assert.Equal(t, 3, summary.New)
	assert.Equal(t, 3, summary.Indexed)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, 2, summary.TotalChunks)
	assert.Equal(t, 2, summary.ChunksCompleted)

	a, ok := h.store.Get("a.ts")
	require.True(t, ok)
	assert.True(t, a.Indexed)
	assert.Equal(t, "TypeScript", a.Language)
	assert.Equal(t, []string{"./x"}, a.Dependencies)
	require.Len(t, a.Symbols, 1)
	assert.Equal(t, "alpha", a.Symbols[0].Name)

	b, ok := h.store.Get("b.go")
	require.True(t, ok)
	assert.Equal(t, []string{"fmt"}, b.Dependencies)
	assert.Equal(t, "Beta", b.Symbols[0].Name)

	snap := h.store.Snapshot()
	assert.Equal(t, snap.SumSizes(), h.store.TotalSize())
	assert.Equal(t, h.store.TotalSize(), summary.TotalSize)
	assert.Equal(t, OutcomeCompleted, h.idx.LastOutcome())
	assert.Equal(t, StateIdle, h.idx.State())
}

func TestStartRun_Idempotent(t *testing.T) {
	h := newHarness(t, nil)
	h.seedFiles(7)

	first := h.run(t)
	require.Equal(t, 7, first.Indexed)
	before := h.store.Snapshot()

	h.proc.reset()
	readsBefore := h.fs.reads.Load()
	second := h.run(t)

	assert.Equal(t, OutcomeCompleted, second.Outcome)
	assert.Equal(t, int32(0), h.proc.calls.Load(), "no file should be reindexed")
	assert.Equal(t, readsBefore, h.fs.reads.Load(), "unchanged files are never read")
	assert.Equal(t, 7, second.Unchanged)
	assert.Equal(t, 0, second.Indexed)
	assert.Equal(t, before.Files, h.store.Snapshot().Files)
}

func TestStartRun_IncrementalSingleChange(t *testing.T) {
	h := newHarness(t, nil)
	h.seedFiles(5)
	h.run(t)
	before := h.store.Snapshot()

	h.fs.write("src/file03.ts", "export function changed() {}\nexport class Extra {}\n", baseTime.Add(time.Minute))
	h.proc.reset()
	summary := h.run(t)

	assert.Equal(t, int32(1), h.proc.calls.Load())
	assert.Equal(t, []string{"src/file03.ts"}, h.proc.seen())
	assert.Equal(t, 1, summary.Changed)

	after := h.store.Snapshot()
	for path, entry := range before.Files {
		if path == "src/file03.ts" {
			assert.NotEqual(t, entry.Fingerprint, after.Files[path].Fingerprint)
			assert.Len(t, after.Files[path].Symbols, 2)
			continue
		}
		assert.Equal(t, entry, after.Files[path], "entry %s should be untouched", path)
	}
	assert.Equal(t, after.SumSizes(), after.TotalSize)
}

func TestStartRun_DeletionPruning(t *testing.T) {
	h := newHarness(t, nil)
	h.seedFiles(4)
	h.run(t)

	removed, ok := h.store.Get("src/file02.ts")
	require.True(t, ok)
	totalBefore := h.store.TotalSize()

	h.fs.remove("src/file02.ts")
	summary := h.run(t)

	_, ok = h.store.Get("src/file02.ts")
	assert.False(t, ok)
	assert.Equal(t, 1, summary.Deleted)
	assert.Equal(t, totalBefore-removed.Size, h.store.TotalSize())
}

func TestStartRun_ConcurrencyBound(t *testing.T) {
	h := newHarness(t, func(o *Options) {
		o.ChunkSize = 10
		o.MaxConcurrentFiles = 3
	})
	h.proc.delay = 5 * time.Millisecond
	h.seedFiles(25)

	summary := h.run(t)

	assert.Equal(t, 25, summary.Indexed)
	assert.LessOrEqual(t, h.proc.peak.Load(), int32(3))
	assert.Greater(t, h.proc.peak.Load(), int32(0))
}

func TestStartRun_CancellationBetweenChunks(t *testing.T) {
	var idx *Indexer
	h := newHarness(t, func(o *Options) {
		o.ChunkSize = 2
		o.OnProgress = func(p Progress) {
			// Chunk 2 is announced after chunks 0 and 1 are committed
			if p.ChunkIndex == 2 && p.ProcessedFiles == 4 {
				idx.RequestCancellation()
			}
		}
	})
	idx = h.idx
	h.seedFiles(6)

	summary := h.run(t)

	assert.Equal(t, OutcomeCancelled, summary.Outcome)
	assert.Equal(t, 2, summary.ChunksCompleted)
	assert.Equal(t, 4, h.store.Len())
	assert.Equal(t, []string{"src/file00.ts", "src/file01.ts", "src/file02.ts", "src/file03.ts"}, h.store.Paths())
	assert.Equal(t, OutcomeCancelled, h.idx.LastOutcome())

	// The final save happened, so a reload sees the committed chunks
	reloaded := storage.NewStore(context.Background(), h.persistence, testRoot, zerolog.Nop())
	assert.Equal(t, 4, reloaded.Len())

	// The next run picks up the rest
	h.proc.reset()
	next := h.run(t)
	assert.Equal(t, OutcomeCompleted, next.Outcome)
	assert.Equal(t, int32(2), h.proc.calls.Load())
	assert.Equal(t, 6, h.store.Len())
}

func TestStartRun_ProgressCallbackMayQueryIndexer(t *testing.T) {
	var (
		idx  *Indexer
		mu   sync.Mutex
		seen []int
	)
	h := newHarness(t, func(o *Options) {
		o.OnProgress = func(Progress) {
			live := idx.Progress()
			mu.Lock()
			seen = append(seen, live.ProcessedFiles)
			mu.Unlock()
		}
	})
	idx = h.idx
	h.seedFiles(5)

	done := make(chan *RunSummary, 1)
	go func() {
		summary, _ := idx.StartRun(context.Background(), testRoot)
		done <- summary
	}()

	select {
	case summary := <-done:
		require.NotNil(t, summary)
		assert.Equal(t, OutcomeCompleted, summary.Outcome)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not finish, progress callback blocked")
	}

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)
	assert.Equal(t, 5, seen[len(seen)-1])
}

func TestStartRun_ContextCancelled(t *testing.T) {
	h := newHarness(t, nil)
	h.seedFiles(4)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary, err := h.idx.StartRun(ctx, testRoot)

	require.NoError(t, err)
	assert.Equal(t, OutcomeCancelled, summary.Outcome)
	assert.Equal(t, 0, h.store.Len())
}

func TestStartRun_CancelledDuringDetection(t *testing.T) {
	interrupting := &interruptingFS{}
	h := newHarness(t, func(o *Options) {
		interrupting.memFS = o.FileSystem.(*memFS)
		o.FileSystem = interrupting
	})
	h.seedFiles(3)
	h.run(t)
	sizeBefore := h.store.TotalSize()
	h.fs.write("src/file00.ts", "export function changed() {}\n", baseTime.Add(time.Minute))
	h.proc.reset()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	interrupting.arm(cancel)
	summary, err := h.idx.StartRun(ctx, testRoot)

	require.NoError(t, err)
	assert.Equal(t, OutcomeCancelled, summary.Outcome)
	assert.Equal(t, OutcomeCancelled, h.idx.LastOutcome())
	assert.Equal(t, 0, summary.Deleted)
	assert.Equal(t, int32(0), h.proc.calls.Load())
	assert.Equal(t, 3, h.store.Len(), "live entries survive a cancelled detection")
	assert.Equal(t, sizeBefore, h.store.TotalSize())
}

func TestStartRun_CancelledBeforeRootCheck(t *testing.T) {
	root := t.TempDir()
	store := storage.NewStore(context.Background(), nil, root, zerolog.Nop())
	idx, err := New(Options{Store: store, Logger: zerolog.Nop()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary, err := idx.StartRun(ctx, root)

	require.NoError(t, err)
	assert.Equal(t, OutcomeCancelled, summary.Outcome)
}

func TestRequestCancellation_IdleIsNoop(t *testing.T) {
	h := newHarness(t, nil)
	h.seedFiles(3)

	h.idx.RequestCancellation()
	summary := h.run(t)

	assert.Equal(t, OutcomeCompleted, summary.Outcome)
	assert.Equal(t, 3, h.store.Len())
}

func TestStartRun_BusyGuard(t *testing.T) {
	h := newHarness(t, nil)
	h.seedFiles(4)

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	h.proc.onCall = func(string) {
		once.Do(func() { close(started) })
		<-release
	}

	done := make(chan *RunSummary, 1)
	go func() {
		summary, _ := h.idx.StartRun(context.Background(), testRoot)
		done <- summary
	}()

	<-started
	assert.True(t, h.idx.IsIndexingInProgress())
	progressBefore := h.idx.Progress()

	busy, err := h.idx.StartRun(context.Background(), testRoot)
	require.NoError(t, err)
	assert.Equal(t, OutcomeBusy, busy.Outcome)
	assert.Equal(t, progressBefore, h.idx.Progress())
	assert.ErrorIs(t, h.idx.ClearIndex(context.Background()), types.ErrIndexingInProgress)

	close(release)
	first := <-done
	assert.Equal(t, OutcomeCompleted, first.Outcome)
	assert.Equal(t, 4, first.Indexed)
	assert.False(t, h.idx.IsIndexingInProgress())
	assert.Equal(t, Progress{}, h.idx.Progress())
}

func TestStartRun_Scenario(t *testing.T) {
	h := newHarness(t, nil)
	h.fs.write("b.ts", "export function beta() {}\n", baseTime)
	h.fs.write("c.ts", "export function gamma() {}\nexport function delta() {}\n", baseTime)
	h.run(t)

	bBefore, _ := h.store.Get("b.ts")
	cBefore, _ := h.store.Get("c.ts")
	totalBefore := h.store.TotalSize()

	h.fs.write("a.ts", "export function alpha() {}\n", baseTime.Add(time.Hour))
	h.fs.remove("c.ts")

	var processed int
	h.idx.progress.callback = func(p Progress) { processed = p.ProcessedFiles }
	h.proc.reset()
	summary := h.run(t)

	a, ok := h.store.Get("a.ts")
	require.True(t, ok)
	assert.True(t, a.Indexed)

	b, ok := h.store.Get("b.ts")
	require.True(t, ok)
	assert.Equal(t, bBefore, b)

	_, ok = h.store.Get("c.ts")
	assert.False(t, ok)

	assert.Equal(t, 1, processed)
	assert.Equal(t, 1, summary.Indexed)
	assert.Equal(t, totalBefore-cBefore.Size+a.Size, h.store.TotalSize())
}

func TestStartRun_Checkpoints(t *testing.T) {
	h := newHarness(t, func(o *Options) {
		o.ChunkSize = 2
		o.CheckpointInterval = 2
	})
	h.seedFiles(10)

	summary := h.run(t)

	// Chunks 2 and 4 plus the final save
	assert.Equal(t, 5, summary.ChunksCompleted)
	assert.Equal(t, 3, summary.Checkpoints)
	assert.Equal(t, int32(3), h.persistence.saves.Load())
}

func TestStartRun_PersistenceFailureIsNotFatal(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.CheckpointInterval = 1 })
	h.persistence.fail.Store(true)
	h.seedFiles(4)

	summary := h.run(t)

	assert.Equal(t, OutcomeCompleted, summary.Outcome)
	assert.Equal(t, 0, summary.Checkpoints)
	assert.Equal(t, 4, h.store.Len())
}

func TestStartRun_PerFileErrorsSkipFile(t *testing.T) {
	fsys := newMemFS()
	extractor := &failingExtractor{}
	h := newHarness(t, func(o *Options) {
		o.Processor = nil
		o.FileSystem = fsys
		o.Enumerator = fsys
		o.Extractor = extractor
	})
	fsys.write("good.ts", "export function ok() {}\n", baseTime)
	fsys.write("bad.ts", "export function bad() {}\n", baseTime)
	h.run(t)
	prior, ok := h.store.Get("bad.ts")
	require.True(t, ok)

	// The changed file fails extraction; its prior entry survives
	fsys.write("bad.ts", "export function worse() {}\n", baseTime.Add(time.Minute))
	extractor.failPath = "bad.ts"
	summary := h.run(t)

	assert.Equal(t, OutcomeCompleted, summary.Outcome)
	assert.Equal(t, 1, summary.Skipped)
	require.Len(t, summary.ErrorMessages, 1)
	assert.Contains(t, summary.ErrorMessages[0], "bad.ts")

	after, ok := h.store.Get("bad.ts")
	require.True(t, ok)
	assert.Equal(t, prior, after)

	// A new file that fails never gets an entry
	fsys.write("new.ts", "export function n() {}\n", baseTime)
	extractor.failPath = "new.ts"
	h.run(t)
	_, ok = h.store.Get("new.ts")
	assert.False(t, ok)
}

func TestStartRun_PanicIsPerFile(t *testing.T) {
	h := newHarness(t, nil)
	h.seedFiles(3)
	h.proc.onCall = func(path string) {
		if path == "src/file01.ts" {
			panic("boom")
		}
	}

	summary := h.run(t)

	assert.Equal(t, OutcomeCompleted, summary.Outcome)
	assert.Equal(t, 2, summary.Indexed)
	assert.Equal(t, 1, summary.Skipped)
	assert.Contains(t, summary.ErrorMessages[0], "panic")
}

func TestStartRun_MemoryMitigation(t *testing.T) {
	probe := &fakeProbe{usage: 10}
	h := newHarness(t, func(o *Options) {
		o.Governor = memory.NewGovernor(probe, memory.Options{Ceiling: 100, SymbolCap: 2, Logger: zerolog.Nop()})
	})

	var big string
	for i := 0; i < 6; i++ {
		big += fmt.Sprintf("export function f%d() {}\n", i)
	}
	h.fs.write("big.ts", big, baseTime)
	h.fs.write("small.ts", "export function only() {}\n", baseTime)

	summary := h.run(t)
	assert.Equal(t, 0, summary.Mitigations)
	bigEntry, _ := h.store.Get("big.ts")
	require.Len(t, bigEntry.Symbols, 6)
	smallBefore, _ := h.store.Get("small.ts")

	// Report pressure and trigger another run with one changed file
	probe.usage = 500
	h.fs.write("other.ts", "export function other() {}\n", baseTime)
	summary = h.run(t)

	assert.Equal(t, 1, summary.Mitigations)
	assert.Equal(t, 1, summary.EntriesTrimmed)
	bigEntry, _ = h.store.Get("big.ts")
	assert.Len(t, bigEntry.Symbols, 2)
	assert.Equal(t, "f0", bigEntry.Symbols[0].Name)
	smallAfter, _ := h.store.Get("small.ts")
	assert.Equal(t, smallBefore, smallAfter)
	snap := h.store.Snapshot()
	assert.Equal(t, snap.SumSizes(), h.store.TotalSize())
}

func TestStartRun_InvalidRootFails(t *testing.T) {
	h := newHarness(t, nil)

	summary, err := h.idx.StartRun(context.Background(), "/missing")
	assert.ErrorIs(t, err, types.ErrInvalidRoot)
	assert.Equal(t, OutcomeFailed, summary.Outcome)
	assert.Equal(t, OutcomeFailed, h.idx.LastOutcome())

	summary, err = h.idx.StartRun(context.Background(), "relative/path")
	assert.ErrorIs(t, err, types.ErrInvalidRoot)
	assert.Equal(t, OutcomeFailed, summary.Outcome)
}

func TestStartRun_EmptyWorkspace(t *testing.T) {
	h := newHarness(t, nil)

	summary := h.run(t)

	assert.Equal(t, OutcomeCompleted, summary.Outcome)
	assert.Equal(t, 0, summary.TotalChunks)
	assert.Equal(t, 1, summary.Checkpoints)
}

func TestClearIndex(t *testing.T) {
	h := newHarness(t, nil)
	h.seedFiles(3)
	h.run(t)

	require.NoError(t, h.idx.ClearIndex(context.Background()))
	assert.Equal(t, 0, h.store.Len())
	assert.Equal(t, int64(0), h.store.TotalSize())

	// Everything is new again
	summary := h.run(t)
	assert.Equal(t, 3, summary.New)
}

func TestPartition(t *testing.T) {
	paths := []string{"a", "b", "c", "d", "e"}
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, partition(paths, 2))
	assert.Equal(t, [][]string{{"a", "b", "c", "d", "e"}}, partition(paths, 10))
	assert.Nil(t, partition(nil, 3))
}

func TestEstimateRemaining(t *testing.T) {
	assert.Equal(t, time.Duration(0), estimateRemaining(time.Second, 0, 10))
	assert.Equal(t, 8*time.Second, estimateRemaining(2*time.Second, 2, 10))
	assert.Equal(t, time.Duration(0), estimateRemaining(time.Second, 10, 10))
}

func TestProgressTracker(t *testing.T) {
	var updates []Progress
	p := newProgressTracker(func(pr Progress) { updates = append(updates, pr) })
	now := baseTime
	p.now = func() time.Time { return now }

	assert.Equal(t, Progress{}, p.snapshot())

	p.begin(4, 2)
	p.chunk(0, "chunk 1 of 2")
	now = now.Add(2 * time.Second)
	p.fileDone("a.ts")

	snap := p.snapshot()
	assert.Equal(t, 1, snap.ProcessedFiles)
	assert.Equal(t, "a.ts", snap.CurrentFile)
	assert.InDelta(t, 25.0, snap.Percentage, 0.001)
	assert.Equal(t, 6*time.Second, snap.EstimatedTimeRemaining)
	assert.Len(t, updates, 2)
	assert.Equal(t, "chunk 1 of 2", updates[0].Message)

	p.end()
	assert.Equal(t, Progress{}, p.snapshot())
}
