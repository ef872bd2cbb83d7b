package searcher

import (
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/dshills/wsindex/internal/enumerator"
	"github.com/dshills/wsindex/internal/storage"
	"github.com/dshills/wsindex/pkg/types"
)

const (
	// DefaultMaxResults caps the number of symbol matches returned
	DefaultMaxResults = 100

	// DefaultCacheSize is the number of cached queries
	DefaultCacheSize = 256
)

// Options configures a Searcher
type Options struct {
	MaxResults int
	CacheSize  int
	Logger     zerolog.Logger
}

// cacheKey scopes cached results to one store generation, so any
// mutation of the index makes earlier entries unreachable.
type cacheKey struct {
	query      string
	limit      int
	generation uint64
}

// Searcher answers read-only queries over a Store. It never mutates the
// store and is safe to use while an indexing run is active.
type Searcher struct {
	store      *storage.Store
	maxResults int
	cache      *lru.Cache[cacheKey, []types.SymbolMatch]
	logger     zerolog.Logger
}

// New creates a Searcher over store
func New(store *storage.Store, opts Options) *Searcher {
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultMaxResults
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}

	// Cache will automatically evict least recently used entries
	cache, err := lru.New[cacheKey, []types.SymbolMatch](opts.CacheSize)
	if err != nil {
		// Only returned for non-positive sizes
		panic(err)
	}

	return &Searcher{
		store:      store,
		maxResults: opts.MaxResults,
		cache:      cache,
		logger:     opts.Logger,
	}
}

// MaxResults returns the configured result cap
func (s *Searcher) MaxResults() int {
	return s.maxResults
}

// SearchSymbols returns symbols whose name contains query, ignoring case,
// capped at the configured maximum. An empty query matches nothing.
func (s *Searcher) SearchSymbols(query string) []types.SymbolMatch {
	return s.Search(query, s.maxResults)
}

// Search is SearchSymbols with a caller-chosen limit, clamped to the
// configured maximum.
func (s *Searcher) Search(query string, limit int) []types.SymbolMatch {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return []types.SymbolMatch{}
	}
	if limit <= 0 || limit > s.maxResults {
		limit = s.maxResults
	}

	key := cacheKey{query: needle, limit: limit, generation: s.store.Generation()}
	if cached, ok := s.cache.Get(key); ok {
		return append([]types.SymbolMatch(nil), cached...)
	}

	matches := s.scan(needle, limit)
	s.cache.Add(key, matches)
	s.logger.Debug().Str("query", query).Int("matches", len(matches)).Msg("symbol search")

	return append([]types.SymbolMatch(nil), matches...)
}

// scan walks entries in path order, then symbols in source order
func (s *Searcher) scan(needle string, limit int) []types.SymbolMatch {
	snapshot := s.store.Snapshot()
	paths := make([]string, 0, len(snapshot.Files))
	for path := range snapshot.Files {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	matches := make([]types.SymbolMatch, 0)
	for _, path := range paths {
		entry := snapshot.Files[path]
		for _, sym := range entry.Symbols {
			if !strings.Contains(strings.ToLower(sym.Name), needle) {
				continue
			}
			matches = append(matches, types.SymbolMatch{
				Path:     path,
				Language: entry.Language,
				Symbol:   sym,
			})
			if len(matches) >= limit {
				return matches
			}
		}
	}
	return matches
}

// GetIndexedFile returns the entry for a workspace-relative path
func (s *Searcher) GetIndexedFile(path string) (*types.FileIndexEntry, bool) {
	entry, ok := s.store.Get(enumerator.Normalize(path))
	if !ok {
		return nil, false
	}
	return &entry, true
}

// GetProjectStatistics summarises the current index. During a run it
// reflects the most recently committed chunk.
func (s *Searcher) GetProjectStatistics() types.ProjectStatistics {
	snapshot := s.store.Snapshot()

	stats := types.ProjectStatistics{
		TotalFiles:     len(snapshot.Files),
		TotalSizeBytes: snapshot.TotalSize,
		TotalSize:      humanize.IBytes(uint64(max(snapshot.TotalSize, 0))),
		Languages:      make(map[string]int),
		LastUpdated:    snapshot.LastUpdated,
		Version:        snapshot.Version,
	}

	for _, entry := range snapshot.Files {
		if entry.Indexed {
			stats.IndexedFiles++
		}
		stats.Languages[entry.Language]++
		stats.SymbolCount += len(entry.Symbols)
		stats.DependencyCount += len(entry.Dependencies)
	}

	return stats
}
