package indexer

import (
	"context"
	"io/fs"
	"syscall"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/dshills/wsindex/internal/storage"
	"github.com/dshills/wsindex/pkg/types"
)

func storedEntry(path string, size int64, modTime time.Time) types.FileIndexEntry {
	return types.FileIndexEntry{Path: path, Size: size, LastModified: modTime, Fingerprint: "f", Language: "TypeScript", Indexed: true}
}

func TestChangeDetector_Classification(t *testing.T) {
	fsys := newMemFS()
	fsys.write("new.ts", "n", baseTime)
	fsys.write("changed.ts", "c2", baseTime.Add(time.Second))
	fsys.write("same.ts", "s", baseTime)
	fsys.write("outside.ts", "o", baseTime)

	store := storage.NewStore(context.Background(), nil, testRoot, zerolog.Nop())
	store.Upsert("changed.ts", storedEntry("changed.ts", 1, baseTime))
	store.Upsert("same.ts", storedEntry("same.ts", 1, baseTime))
	store.Upsert("gone.ts", storedEntry("gone.ts", 7, baseTime))
	store.Upsert("vanished.ts", storedEntry("vanished.ts", 3, baseTime))
	store.Upsert("outside.ts", storedEntry("outside.ts", 1, baseTime))

	detector := NewChangeDetector(fsys, zerolog.Nop())
	// vanished.ts is enumerated but gone before stat; outside.ts is no longer enumerated but exists
	work := detector.Detect(context.Background(), testRoot, []string{"changed.ts", "new.ts", "same.ts", "vanished.ts"}, store)

	assert.Equal(t, []string{"changed.ts", "new.ts"}, work.Paths)
	assert.Equal(t, []string{"new.ts"}, work.New)
	assert.Equal(t, []string{"changed.ts"}, work.Changed)
	assert.Equal(t, 1, work.Unchanged)
	assert.ElementsMatch(t, []string{"vanished.ts", "gone.ts"}, work.Deleted)

	_, ok := store.Get("gone.ts")
	assert.False(t, ok, "deleted entries are pruned during detection")
	_, ok = store.Get("outside.ts")
	assert.True(t, ok, "existing entries outside the candidate list are left alone")
	assert.Equal(t, int64(3), store.TotalSize())
	assert.Equal(t, int32(0), fsys.reads.Load(), "detection never reads content")
}

func TestChangeDetector_NewFileVanished(t *testing.T) {
	fsys := newMemFS()
	store := storage.NewStore(context.Background(), nil, testRoot, zerolog.Nop())

	work := NewChangeDetector(fsys, zerolog.Nop()).Detect(context.Background(), testRoot, []string{"ghost.ts"}, store)

	assert.Empty(t, work.Paths)
	assert.Empty(t, work.Deleted)
	assert.Equal(t, 1, work.Vanished)
}

func TestChangeDetector_TimezoneInsensitive(t *testing.T) {
	fsys := newMemFS()
	fsys.write("a.ts", "a", baseTime)
	store := storage.NewStore(context.Background(), nil, testRoot, zerolog.Nop())
	store.Upsert("a.ts", storedEntry("a.ts", 1, baseTime.In(time.FixedZone("X", 3600))))

	work := NewChangeDetector(fsys, zerolog.Nop()).Detect(context.Background(), testRoot, []string{"a.ts"}, store)

	assert.Empty(t, work.Paths)
	assert.Equal(t, 1, work.Unchanged)
}

func TestChangeDetector_CancelledStatKeepsEntry(t *testing.T) {
	fsys := &interruptingFS{memFS: newMemFS()}
	fsys.write("live.ts", "l", baseTime)
	store := storage.NewStore(context.Background(), nil, testRoot, zerolog.Nop())
	store.Upsert("live.ts", storedEntry("live.ts", 1, baseTime))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fsys.arm(cancel)

	work := NewChangeDetector(fsys, zerolog.Nop()).Detect(ctx, testRoot, []string{"live.ts"}, store)

	assert.Empty(t, work.Deleted)
	assert.Empty(t, work.Paths)
	_, ok := store.Get("live.ts")
	assert.True(t, ok, "a cancelled stat is not a deletion")
	assert.Equal(t, int64(1), store.TotalSize())
}

func TestChangeDetector_StatErrorKeepsEntry(t *testing.T) {
	fsys := &erroringFS{memFS: newMemFS(), failPath: "locked.ts"}
	fsys.write("locked.ts", "l", baseTime)
	fsys.write("other.ts", "o", baseTime)
	store := storage.NewStore(context.Background(), nil, testRoot, zerolog.Nop())
	store.Upsert("locked.ts", storedEntry("locked.ts", 4, baseTime))

	work := NewChangeDetector(fsys, zerolog.Nop()).Detect(context.Background(), testRoot, []string{"locked.ts", "other.ts"}, store)

	assert.Empty(t, work.Deleted)
	assert.Equal(t, []string{"other.ts"}, work.New)
	assert.Equal(t, 0, work.Vanished)
	_, ok := store.Get("locked.ts")
	assert.True(t, ok)
}

func TestIsGone(t *testing.T) {
	assert.True(t, isGone(fs.ErrNotExist))
	assert.True(t, isGone(&fs.PathError{Op: "stat", Path: "x", Err: syscall.ENOTDIR}))
	assert.False(t, isGone(fs.ErrPermission))
	assert.False(t, isGone(context.Canceled))
}
