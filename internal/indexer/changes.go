package indexer

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/dshills/wsindex/internal/storage"
)

// WorkList is the result of change detection for one run
type WorkList struct {
	// Paths holds new and changed files in candidate order
	Paths []string

	// Classification
	New       []string
	Changed   []string
	Unchanged int
	Deleted   []string

	// Vanished counts candidates that could not be stat'ed and had no entry
	Vanished int
}

// ChangeDetector reduces a candidate list to the files that need indexing
type ChangeDetector struct {
	fs     FileSystem
	logger zerolog.Logger
}

// NewChangeDetector creates a ChangeDetector
func NewChangeDetector(fs FileSystem, logger zerolog.Logger) *ChangeDetector {
	if fs == nil {
		fs = OSFileSystem{}
	}
	return &ChangeDetector{fs: fs, logger: logger}
}

// Detect classifies every candidate against store. Stored entries whose
// file no longer exists are removed from store immediately, whether or not
// the path was enumerated. Unchanged files are neither read nor hashed.
// Any other stat failure leaves the stored entry untouched. Detection stops
// early when ctx is done, so callers must check ctx before using the result.
func (c *ChangeDetector) Detect(ctx context.Context, root string, candidates []string, store *storage.Store) WorkList {
	var work WorkList
	seen := make(map[string]struct{}, len(candidates))

	for _, path := range candidates {
		if ctx.Err() != nil {
			return work
		}
		seen[path] = struct{}{}

		entry, stored := store.Get(path)
		info, err := c.fs.Stat(ctx, absolute(root, path))
		if err != nil {
			if ctx.Err() != nil {
				return work
			}
			switch {
			case !isGone(err):
				c.logger.Warn().Err(err).Str("path", path).Msg("failed to stat file, keeping stored entry")
			case stored:
				c.prune(store, path, &work)
			default:
				work.Vanished++
			}
			continue
		}

		switch {
		case !stored:
			work.New = append(work.New, path)
			work.Paths = append(work.Paths, path)
		case !info.ModTime.Equal(entry.LastModified):
			work.Changed = append(work.Changed, path)
			work.Paths = append(work.Paths, path)
		default:
			work.Unchanged++
		}
	}

	// Stored entries that were not enumerated still need a deletion check
	for _, path := range store.Paths() {
		if ctx.Err() != nil {
			return work
		}
		if _, ok := seen[path]; ok {
			continue
		}
		if _, err := c.fs.Stat(ctx, absolute(root, path)); err != nil {
			if ctx.Err() != nil {
				return work
			}
			if isGone(err) {
				c.prune(store, path, &work)
			}
		}
	}

	return work
}

func (c *ChangeDetector) prune(store *storage.Store, path string, work *WorkList) {
	if store.Remove(path) {
		work.Deleted = append(work.Deleted, path)
		c.logger.Debug().Str("path", path).Msg("pruned deleted file")
	}
}

// isGone reports whether a stat error means the path no longer exists.
// ENOTDIR covers a parent directory that was replaced by a file.
func isGone(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}

func absolute(root, path string) string {
	return filepath.Join(root, filepath.FromSlash(path))
}
