package indexer

import (
	"context"
	"os"
	"time"
)

// FileInfo is the subset of stat data the indexer needs
type FileInfo struct {
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// FileSystem is the file I/O capability used for change detection and indexing
type FileSystem interface {
	Stat(ctx context.Context, path string) (FileInfo, error)
	ReadFile(ctx context.Context, path string) ([]byte, error)
}

// defaultReadRetryDelay covers editors that briefly lock files while saving
const defaultReadRetryDelay = 50 * time.Millisecond

// OSFileSystem reads from the local disk
type OSFileSystem struct {
	RetryDelay time.Duration // Zero uses 50ms
}

// Stat returns size and modification time for path
func (o OSFileSystem) Stat(ctx context.Context, path string) (FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return FileInfo{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{Size: info.Size(), ModTime: info.ModTime(), IsDir: info.IsDir()}, nil
}

// ReadFile reads path, retrying once after a short delay
func (o OSFileSystem) ReadFile(ctx context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		return data, nil
	}

	delay := o.RetryDelay
	if delay <= 0 {
		delay = defaultReadRetryDelay
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}

	return os.ReadFile(path)
}
