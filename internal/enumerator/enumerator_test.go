package enumerator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestEnumerate_DefaultsAndOrdering(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/z.ts", "export const z = 1")
	writeFile(t, root, "src/a.go", "package a")
	writeFile(t, root, "main.py", "print(1)")
	writeFile(t, root, "README.md", "# readme")
	writeFile(t, root, "node_modules/lib/index.js", "module.exports = {}")
	writeFile(t, root, "pkg/vendor/dep.go", "package dep")
	writeFile(t, root, ".git/config.js", "x")
	writeFile(t, root, "dist/bundle.js", "x")

	e := New(Options{Logger: zerolog.Nop()})
	got := e.Enumerate(context.Background(), root)

	assert.Equal(t, []string{"main.py", "src/a.go", "src/z.ts"}, got)
}

func TestEnumerate_CustomPatterns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.ts", "")
	writeFile(t, root, "b.ts", "")
	writeFile(t, root, "skip/c.ts", "")
	writeFile(t, root, "d.go", "")

	e := New(Options{
		Include: []string{"**/*.ts"},
		Exclude: []string{"skip"},
		Logger:  zerolog.Nop(),
	})
	got := e.Enumerate(context.Background(), root)

	assert.Equal(t, []string{"a.ts", "b.ts"}, got)
}

func TestEnumerate_MaxResults(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a.go", "b.go", "c.go", "d.go"} {
		writeFile(t, root, name, "package x")
	}

	e := New(Options{MaxResults: 2, Logger: zerolog.Nop()})
	got := e.Enumerate(context.Background(), root)

	assert.Len(t, got, 2)
}

func TestEnumerate_MaxResultsKeepsSortedPrefix(t *testing.T) {
	root := t.TempDir()
	// The walk visits a/ before a.go, but "a.go" sorts first
	writeFile(t, root, "a/b.go", "package a")
	writeFile(t, root, "a.go", "package x")

	e := New(Options{MaxResults: 1, Logger: zerolog.Nop()})
	got := e.Enumerate(context.Background(), root)

	assert.Equal(t, []string{"a.go"}, got)
}

func TestEnumerate_Gitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "generated/\n*.gen.go\n")
	writeFile(t, root, "keep.go", "package k")
	writeFile(t, root, "model.gen.go", "package k")
	writeFile(t, root, "generated/out.go", "package g")

	withIgnore := New(Options{RespectGitignore: true, Logger: zerolog.Nop()})
	assert.Equal(t, []string{"keep.go"}, withIgnore.Enumerate(context.Background(), root))

	without := New(Options{Logger: zerolog.Nop()})
	assert.Equal(t, []string{"generated/out.go", "keep.go", "model.gen.go"}, without.Enumerate(context.Background(), root))
}

func TestEnumerate_MissingRootIsEmpty(t *testing.T) {
	e := New(Options{Logger: zerolog.Nop()})
	got := e.Enumerate(context.Background(), filepath.Join(t.TempDir(), "missing"))

	assert.NotNil(t, got)
	assert.Empty(t, got)
}

type stubFinder struct {
	paths []string
	err   error
}

func (s *stubFinder) Find(_ context.Context, _ string, _, _ []string, _ int) ([]string, error) {
	return s.paths, s.err
}

func TestEnumerate_DeduplicatesFinderOutput(t *testing.T) {
	e := New(Options{
		Finder: &stubFinder{paths: []string{"b.ts", "./a.ts", "a.ts", "b.ts"}},
		Logger: zerolog.Nop(),
	})
	got := e.Enumerate(context.Background(), "/ignored")

	assert.Equal(t, []string{"a.ts", "b.ts"}, got)
}

func TestEnumerate_FinderErrorIsEmpty(t *testing.T) {
	e := New(Options{
		Finder: &stubFinder{err: errors.New("boom")},
		Logger: zerolog.Nop(),
	})
	got := e.Enumerate(context.Background(), "/ignored")

	assert.Empty(t, got)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "a/b.go", Normalize("./a/b.go"))
	assert.Equal(t, "a/b.go", Normalize("a//b.go"))
	assert.Equal(t, "", Normalize("."))
}

func TestExcluded(t *testing.T) {
	e := New(Options{Logger: zerolog.Nop()})

	assert.True(t, e.Excluded("node_modules", true))
	assert.True(t, e.Excluded("web/node_modules/react/index.js", false))
	assert.True(t, e.Excluded("README.md", false))
	assert.False(t, e.Excluded("src", true))
	assert.False(t, e.Excluded("src/main.go", false))
	assert.False(t, e.Excluded(".", true))
}
