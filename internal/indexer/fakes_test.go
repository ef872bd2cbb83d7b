package indexer

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/wsindex/internal/language"
	"github.com/dshills/wsindex/internal/storage"
	"github.com/dshills/wsindex/pkg/types"
)

const testRoot = "/ws"

var baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type memFile struct {
	content []byte
	modTime time.Time
}

// memFS is an in-memory FileSystem rooted at testRoot
type memFS struct {
	mu    sync.Mutex
	files map[string]memFile // Keyed by workspace-relative path
	stats atomic.Int32
	reads atomic.Int32
}

func newMemFS() *memFS {
	return &memFS{files: make(map[string]memFile)}
}

func (m *memFS) write(path, content string, modTime time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = memFile{content: []byte(content), modTime: modTime}
}

func (m *memFS) remove(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
}

func (m *memFS) rel(path string) (string, bool) {
	rel, err := filepath.Rel(testRoot, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func (m *memFS) Stat(_ context.Context, path string) (FileInfo, error) {
	m.stats.Add(1)
	if path == testRoot {
		return FileInfo{IsDir: true, ModTime: baseTime}, nil
	}
	rel, ok := m.rel(path)
	if !ok {
		return FileInfo{}, fs.ErrNotExist
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[rel]
	if !ok {
		return FileInfo{}, fs.ErrNotExist
	}
	return FileInfo{Size: int64(len(f.content)), ModTime: f.modTime}, nil
}

func (m *memFS) ReadFile(_ context.Context, path string) ([]byte, error) {
	m.reads.Add(1)
	rel, ok := m.rel(path)
	if !ok {
		return nil, fs.ErrNotExist
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[rel]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return append([]byte(nil), f.content...), nil
}

// Enumerate lists every file in lexicographic order
func (m *memFS) Enumerate(_ context.Context, _ string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	paths := make([]string, 0, len(m.files))
	for path := range m.files {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// countingProcessor wraps a FileProcessor and records invocations and
// the peak number of concurrent calls.
type countingProcessor struct {
	next     FileProcessor
	delay    time.Duration
	calls    atomic.Int32
	inFlight atomic.Int32
	peak     atomic.Int32

	mu    sync.Mutex
	paths []string

	onCall func(path string)
}

func (c *countingProcessor) IndexFile(ctx context.Context, root, path string) (*types.FileIndexEntry, error) {
	c.calls.Add(1)
	current := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		peak := c.peak.Load()
		if current <= peak || c.peak.CompareAndSwap(peak, current) {
			break
		}
	}

	c.mu.Lock()
	c.paths = append(c.paths, path)
	c.mu.Unlock()

	if c.onCall != nil {
		c.onCall(path)
	}
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	return c.next.IndexFile(ctx, root, path)
}

func (c *countingProcessor) reset() {
	c.calls.Store(0)
	c.peak.Store(0)
	c.mu.Lock()
	c.paths = nil
	c.mu.Unlock()
}

func (c *countingProcessor) seen() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := append([]string(nil), c.paths...)
	sort.Strings(out)
	return out
}

// countingPersistence counts successful saves
type countingPersistence struct {
	*storage.MemoryPersistence
	saves atomic.Int32
	fail  atomic.Bool
}

func newCountingPersistence() *countingPersistence {
	return &countingPersistence{MemoryPersistence: storage.NewMemoryPersistence()}
}

func (c *countingPersistence) SaveSnapshot(ctx context.Context, key string, data []byte) error {
	if c.fail.Load() {
		return errors.New("persistence unavailable")
	}
	c.saves.Add(1)
	return c.MemoryPersistence.SaveSnapshot(ctx, key, data)
}

// failingExtractor fails for one path and returns no symbols otherwise
type failingExtractor struct {
	failPath string
}

func (f *failingExtractor) ExtractSymbols(_ context.Context, path string, _ []byte, _ language.Language) ([]types.SymbolInfo, error) {
	if path == f.failPath {
		return nil, errors.New("extractor crashed")
	}
	return nil, nil
}

// fakeProbe reports a fixed usage
type fakeProbe struct {
	usage uint64
}

func (p *fakeProbe) Usage() uint64 { return p.usage }
func (p *fakeProbe) Collect()      {}

// interruptingFS wraps memFS. Once armed, the first stat of a workspace file
// cancels the run's context and fails the way OSFileSystem does.
type interruptingFS struct {
	*memFS
	mu     sync.Mutex
	cancel context.CancelFunc
}

func (f *interruptingFS) arm(cancel context.CancelFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancel = cancel
}

func (f *interruptingFS) Stat(ctx context.Context, path string) (FileInfo, error) {
	f.mu.Lock()
	cancel := f.cancel
	f.cancel = nil
	f.mu.Unlock()

	if cancel != nil && path != testRoot {
		cancel()
		return FileInfo{}, ctx.Err()
	}
	if cancel != nil {
		f.arm(cancel)
	}
	return f.memFS.Stat(ctx, path)
}

// erroringFS fails stat for one path with an error other than not-exist
type erroringFS struct {
	*memFS
	failPath string
}

func (f *erroringFS) Stat(ctx context.Context, path string) (FileInfo, error) {
	if rel, ok := f.rel(path); ok && rel == f.failPath {
		return FileInfo{}, fs.ErrPermission
	}
	return f.memFS.Stat(ctx, path)
}

// fixedExtractor returns the same symbols for every file
type fixedExtractor struct {
	symbols []types.SymbolInfo
}

func (f *fixedExtractor) ExtractSymbols(_ context.Context, _ string, _ []byte, _ language.Language) ([]types.SymbolInfo, error) {
	return f.symbols, nil
}
