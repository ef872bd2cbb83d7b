package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/wsindex/internal/memory"
	"github.com/dshills/wsindex/pkg/types"
)

// Store is the canonical in-memory index for one workspace.
//
// Writes come from a single indexing run at a time; reads may happen
// concurrently and observe the state as of the most recent write.
type Store struct {
	mu         sync.RWMutex
	index      *types.ProjectIndex
	generation uint64

	persistence Persistence // May be nil for memory-only stores
	key         string
	logger      zerolog.Logger
}

// NewStore creates a store for key and loads any persisted snapshot.
// A missing, unreadable or incompatible snapshot yields an empty store.
func NewStore(ctx context.Context, persistence Persistence, key string, logger zerolog.Logger) *Store {
	s := &Store{
		index:       types.NewProjectIndex(IndexVersion),
		persistence: persistence,
		key:         key,
		logger:      logger,
	}
	s.Load(ctx)
	return s
}

// Key returns the persistence key (the workspace root)
func (s *Store) Key() string {
	return s.key
}

// Get returns the entry for path
func (s *Store) Get(path string) (types.FileIndexEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.index.Files[path]
	return entry, ok
}

// Len returns the number of entries
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.index.Files)
}

// Paths returns every key in lexicographic order
func (s *Store) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	paths := make([]string, 0, len(s.index.Files))
	for path := range s.index.Files {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Upsert replaces the entry for path, adjusting the aggregate size by the
// difference between the new and any prior entry.
func (s *Store) Upsert(path string, entry types.FileIndexEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertLocked(path, entry)
	s.touchLocked()
}

// UpsertBatch replaces several entries under one write lock
func (s *Store) UpsertBatch(entries []types.FileIndexEntry) {
	if len(entries) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range entries {
		s.upsertLocked(entry.Path, entry)
	}
	s.touchLocked()
}

func (s *Store) upsertLocked(path string, entry types.FileIndexEntry) {
	entry.Path = path
	if prior, ok := s.index.Files[path]; ok {
		s.index.TotalSize -= prior.Size
	}
	s.index.Files[path] = entry
	s.index.TotalSize += entry.Size
}

// Remove deletes the entry for path and reports whether it existed
func (s *Store) Remove(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	prior, ok := s.index.Files[path]
	if !ok {
		return false
	}
	delete(s.index.Files, path)
	s.index.TotalSize -= prior.Size
	s.touchLocked()
	return true
}

// TrimSymbols truncates every entry's symbols to limit and returns the
// number of entries changed. Sizes are not affected.
func (s *Store) TrimSymbols(limit int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := memory.TrimEntries(s.index.Files, limit)
	for path, entry := range changed {
		s.index.Files[path] = entry
	}
	if len(changed) > 0 {
		s.generation++
	}
	return len(changed)
}

// Clear resets the index to its initial state and persists it immediately
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.index = types.NewProjectIndex(IndexVersion)
	s.generation++
	s.mu.Unlock()

	return s.Save(ctx)
}

// Snapshot returns a copy of the index. Entry slices are shared; entries
// are replaced wholesale and never mutated in place.
func (s *Store) Snapshot() types.ProjectIndex {
	s.mu.RLock()
	defer s.mu.RUnlock()
	files := make(map[string]types.FileIndexEntry, len(s.index.Files))
	for path, entry := range s.index.Files {
		files[path] = entry
	}
	return types.ProjectIndex{
		Files:       files,
		LastUpdated: s.index.LastUpdated,
		Version:     s.index.Version,
		TotalSize:   s.index.TotalSize,
	}
}

// TotalSize returns the aggregate size of all entries
func (s *Store) TotalSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.TotalSize
}

// LastUpdated returns the time of the last mutation
func (s *Store) LastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.LastUpdated
}

// Generation increases on every mutation, including trimming and clearing
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

func (s *Store) touchLocked() {
	s.index.LastUpdated = time.Now().UTC()
	s.generation++
}

// Save writes the full index to persistence. Failures are logged and
// returned; the in-memory index is unaffected.
func (s *Store) Save(ctx context.Context) error {
	if s.persistence == nil {
		return nil
	}

	s.mu.RLock()
	data, err := EncodeSnapshot(s.index)
	files := len(s.index.Files)
	s.mu.RUnlock()
	if err != nil {
		s.logger.Warn().Err(err).Str("workspace", s.key).Msg("failed to encode index snapshot")
		return err
	}

	if err := s.persistence.SaveSnapshot(ctx, s.key, data); err != nil {
		s.logger.Warn().Err(err).Str("workspace", s.key).Msg("failed to persist index snapshot")
		return fmt.Errorf("failed to save index: %w", err)
	}

	s.logger.Debug().Str("workspace", s.key).Int("files", files).Int("bytes", len(data)).Msg("index snapshot saved")
	return nil
}

// Load replaces the in-memory index with the persisted snapshot. It reports
// whether a snapshot was loaded; every failure leaves an empty index.
func (s *Store) Load(ctx context.Context) bool {
	loaded := s.load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if loaded == nil {
		s.index = types.NewProjectIndex(IndexVersion)
	} else {
		s.index = loaded
	}
	s.generation++
	return loaded != nil
}

func (s *Store) load(ctx context.Context) *types.ProjectIndex {
	if s.persistence == nil {
		return nil
	}

	data, err := s.persistence.LoadSnapshot(ctx, s.key)
	if errors.Is(err, ErrNotFound) {
		s.logger.Debug().Str("workspace", s.key).Msg("no persisted index, starting empty")
		return nil
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("workspace", s.key).Msg("failed to load index, starting empty")
		return nil
	}

	index, err := DecodeSnapshot(data, IndexVersion)
	if err != nil {
		s.logger.Warn().Err(err).Str("workspace", s.key).Msg("discarding persisted index, starting empty")
		return nil
	}

	s.logger.Info().Str("workspace", s.key).Int("files", len(index.Files)).Msg("loaded persisted index")
	return index
}
