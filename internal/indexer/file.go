package indexer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/zeebo/xxh3"

	"github.com/dshills/wsindex/internal/language"
	"github.com/dshills/wsindex/internal/parser"
	"github.com/dshills/wsindex/pkg/types"
)

// DefaultMaxFileSize is the largest file indexed by default (1 MiB)
const DefaultMaxFileSize int64 = 1024 * 1024

// Stage names the step of per-file indexing that failed
type Stage string

const (
	StageStat    Stage = "stat"
	StageSize    Stage = "size"
	StageRead    Stage = "read"
	StageBinary  Stage = "binary"
	StageExtract Stage = "extract"
	StagePanic   Stage = "panic"
)

// PerFileError is a failure confined to one file. The file is skipped for
// the current run and any prior entry is left untouched.
type PerFileError struct {
	Path  string
	Stage Stage
	Err   error
}

func (e *PerFileError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Path, e.Stage, e.Err)
}

func (e *PerFileError) Unwrap() error {
	return e.Err
}

var (
	errTooLarge = errors.New("file exceeds maximum size")
	errBinary   = errors.New("binary content")
)

// FileProcessor produces an index entry for one workspace-relative path
type FileProcessor interface {
	IndexFile(ctx context.Context, root, path string) (*types.FileIndexEntry, error)
}

// FileIndexerOptions configures a FileIndexer
type FileIndexerOptions struct {
	MaxFileSize int64 // Zero uses DefaultMaxFileSize
	Logger      zerolog.Logger
}

// FileIndexer builds a FileIndexEntry from a single file
type FileIndexer struct {
	fs          FileSystem
	extractor   parser.Extractor
	maxFileSize int64
	logger      zerolog.Logger
}

// NewFileIndexer creates a FileIndexer. A nil extractor disables symbol extraction.
func NewFileIndexer(fs FileSystem, extractor parser.Extractor, opts FileIndexerOptions) *FileIndexer {
	if fs == nil {
		fs = OSFileSystem{}
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	return &FileIndexer{
		fs:          fs,
		extractor:   extractor,
		maxFileSize: opts.MaxFileSize,
		logger:      opts.Logger,
	}
}

// IndexFile stats, reads, fingerprints and analyses root/path.
// Every failure is returned as a *PerFileError.
func (f *FileIndexer) IndexFile(ctx context.Context, root, path string) (*types.FileIndexEntry, error) {
	absolutePath := filepath.Join(root, filepath.FromSlash(path))

	info, err := f.fs.Stat(ctx, absolutePath)
	if err != nil {
		return nil, &PerFileError{Path: path, Stage: StageStat, Err: err}
	}
	if info.Size > f.maxFileSize {
		return nil, &PerFileError{Path: path, Stage: StageSize, Err: fmt.Errorf("%w: %d > %d", errTooLarge, info.Size, f.maxFileSize)}
	}

	content, err := f.fs.ReadFile(ctx, absolutePath)
	if err != nil {
		return nil, &PerFileError{Path: path, Stage: StageRead, Err: err}
	}
	if language.IsBinaryContent(content) {
		return nil, &PerFileError{Path: path, Stage: StageBinary, Err: errBinary}
	}

	lang := language.Detect(path)
	entry := &types.FileIndexEntry{
		Path:         path,
		Size:         int64(len(content)),
		LastModified: info.ModTime,
		Fingerprint:  Fingerprint(content),
		Language:     lang.Name,
		Indexed:      true,
	}

	if lang.Capability.ExtractsSymbols() && f.extractor != nil {
		symbols, err := f.extractor.ExtractSymbols(ctx, path, content, lang)
		switch {
		case errors.Is(err, parser.ErrUnsupportedLanguage):
			// No extractor registered; index without symbols
		case err != nil:
			return nil, &PerFileError{Path: path, Stage: StageExtract, Err: err}
		default:
			entry.Symbols = f.validSymbols(path, symbols)
		}
	}

	entry.Dependencies = language.ExtractDependencies(lang, content)

	f.logger.Debug().
		Str("path", path).
		Str("language", lang.Name).
		Int("symbols", len(entry.Symbols)).
		Int("dependencies", len(entry.Dependencies)).
		Msg("file indexed")

	return entry, nil
}

// validSymbols drops extractor output that would break search or trimming
func (f *FileIndexer) validSymbols(path string, symbols []types.SymbolInfo) []types.SymbolInfo {
	valid := symbols[:0:0]
	for i := range symbols {
		if err := symbols[i].Validate(); err != nil {
			f.logger.Debug().Err(err).Str("path", path).Str("symbol", symbols[i].Name).Msg("dropping invalid symbol")
			continue
		}
		valid = append(valid, symbols[i])
	}
	return valid
}

// Fingerprint returns a non-cryptographic content digest used only for
// change detection.
func Fingerprint(content []byte) string {
	return fmt.Sprintf("%016x", xxh3.Hash(content))
}
