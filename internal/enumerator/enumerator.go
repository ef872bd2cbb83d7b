// Package enumerator discovers candidate files under a workspace root.
package enumerator

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/denormal/go-gitignore"
	"github.com/rs/zerolog"
)

// DefaultInclude matches every extension the language table knows how to index.
var DefaultInclude = []string{
	"**/*.{go,ts,tsx,mts,cts,js,jsx,mjs,cjs,py,pyi,rs,java,kt,kts,c,h,cpp,cc,cxx,hpp,hxx,cs,rb,php}",
}

// DefaultExclude covers dependency-manager, build-output and VCS metadata directories.
var DefaultExclude = []string{
	// Version control
	"**/.git", "**/.svn", "**/.hg",
	// Dependencies
	"**/node_modules", "**/vendor", "**/bower_components", "**/.venv", "**/venv", "**/__pycache__",
	// Build output
	"**/dist", "**/build", "**/out", "**/target", "**/bin", "**/obj", "**/.next",
	// IDE
	"**/.idea", "**/.vscode",
}

// Finder is the file-enumeration capability.
// It returns paths relative to root, using forward slashes.
type Finder interface {
	Find(ctx context.Context, root string, include, exclude []string, maxResults int) ([]string, error)
}

// Options configures an Enumerator
type Options struct {
	Include          []string
	Exclude          []string
	MaxResults       int
	RespectGitignore bool
	Finder           Finder // Defaults to a WalkFinder
	Logger           zerolog.Logger
}

// Enumerator produces a deduplicated, lexicographically ordered candidate list
type Enumerator struct {
	include    []string
	exclude    []string
	maxResults int
	finder     Finder
	logger     zerolog.Logger
}

// New creates an Enumerator, filling unset options with defaults
func New(opts Options) *Enumerator {
	e := &Enumerator{
		include:    opts.Include,
		exclude:    opts.Exclude,
		maxResults: opts.MaxResults,
		finder:     opts.Finder,
		logger:     opts.Logger,
	}
	if len(e.include) == 0 {
		e.include = DefaultInclude
	}
	if len(e.exclude) == 0 {
		e.exclude = DefaultExclude
	}
	if e.finder == nil {
		e.finder = &WalkFinder{RespectGitignore: opts.RespectGitignore}
	}
	return e
}

// Enumerate returns candidate paths under root. Enumeration failures are
// logged and produce an empty list rather than an error. MaxResults keeps
// the first paths in sorted key order, so the finder runs uncapped.
func (e *Enumerator) Enumerate(ctx context.Context, root string) []string {
	paths, err := e.finder.Find(ctx, root, e.include, e.exclude, 0)
	if err != nil {
		e.logger.Warn().Err(err).Str("root", root).Msg("file enumeration failed, continuing with no candidates")
		return []string{}
	}

	seen := make(map[string]struct{}, len(paths))
	result := make([]string, 0, len(paths))
	for _, p := range paths {
		key := Normalize(p)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, key)
	}
	sort.Strings(result)

	if e.maxResults > 0 && len(result) > e.maxResults {
		e.logger.Debug().Int("found", len(result)).Int("max_results", e.maxResults).Msg("candidate list truncated")
		result = result[:e.maxResults]
	}
	return result
}

// Normalize converts a relative path into the canonical index key
func Normalize(path string) string {
	key := filepath.ToSlash(filepath.Clean(path))
	key = strings.TrimPrefix(key, "./")
	if key == "." || key == "/" {
		return ""
	}
	return key
}

// WalkFinder enumerates files with filepath.WalkDir
type WalkFinder struct {
	RespectGitignore bool
}

// Find walks root in lexical order, never descending into excluded
// directories, and stops once maxResults matches have been collected.
// Walk order is per directory, so a capped result is not the first
// maxResults paths in sorted key order.
func (w *WalkFinder) Find(ctx context.Context, root string, include, exclude []string, maxResults int) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, errors.New("root is not a directory")
	}

	var ignore gitignore.GitIgnore
	if w.RespectGitignore {
		ignore = loadIgnoreFile(filepath.Join(root, ".gitignore"), root)
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			// Unreadable subtrees are skipped, not fatal
			if d != nil && d.IsDir() && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if matchesAny(exclude, rel) || ignored(ignore, rel, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if !matchesAny(include, rel) || matchesAny(exclude, rel) || ignored(ignore, rel, false) {
			return nil
		}

		files = append(files, rel)
		if maxResults > 0 && len(files) >= maxResults {
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func matchesAny(patterns []string, rel string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

func ignored(ignore gitignore.GitIgnore, rel string, isDir bool) bool {
	if ignore == nil {
		return false
	}
	match := ignore.Relative(rel, isDir)
	return match != nil && match.Ignore()
}

// loadIgnoreFile reads an ignore file and creates a GitIgnore matcher from it.
func loadIgnoreFile(filePath string, baseDir string) gitignore.GitIgnore {
	f, err := os.Open(filePath)
	if err != nil {
		return nil
	}
	defer func() { _ = f.Close() }()

	return gitignore.New(f, baseDir, nil)
}

// Excluded reports whether a workspace-relative path is filtered out by
// the exclude patterns. Files must also match an include pattern.
func (e *Enumerator) Excluded(rel string, isDir bool) bool {
	rel = Normalize(rel)
	if rel == "" {
		return false
	}
	if matchesAny(e.exclude, rel) {
		return true
	}
	// Any excluded ancestor excludes the path
	for dir := pathDir(rel); dir != ""; dir = pathDir(dir) {
		if matchesAny(e.exclude, dir) {
			return true
		}
	}
	if isDir {
		return false
	}
	return !matchesAny(e.include, rel)
}

func pathDir(rel string) string {
	i := strings.LastIndexByte(rel, '/')
	if i <= 0 {
		return ""
	}
	return rel[:i]
}
