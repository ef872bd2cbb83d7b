package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dshills/wsindex/internal/config"
	"github.com/dshills/wsindex/internal/enumerator"
	"github.com/dshills/wsindex/internal/indexer"
	"github.com/dshills/wsindex/internal/logger"
	"github.com/dshills/wsindex/internal/memory"
	"github.com/dshills/wsindex/internal/searcher"
	"github.com/dshills/wsindex/internal/storage"
)

// app is the fully wired indexing stack for one workspace root
type app struct {
	cfg         *config.Config
	root        string
	log         *logger.Logger
	persistence *storage.SQLitePersistence
	store       *storage.Store
	enumerator  *enumerator.Enumerator
	indexer     *indexer.Indexer
	searcher    *searcher.Searcher
}

// appOptions lets a command hook into construction
type appOptions struct {
	onProgress indexer.ProgressFunc
}

// newApp loads configuration and builds the stack from the command's flags
func newApp(cmd *cobra.Command, opts appOptions) (*app, error) {
	configPath, _ := cmd.Flags().GetString(flagConfig)
	rootOverride, _ := cmd.Flags().GetString(flagRoot)
	levelOverride, _ := cmd.Flags().GetString(flagLogLevel)

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if levelOverride != "" {
		cfg.Logging.Level = levelOverride
	}

	root, err := cfg.ResolveRoot(rootOverride)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		File:   cfg.Logging.File,
		Pretty: cfg.Logging.Pretty,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		_ = log.Close()
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	persistence, err := storage.NewSQLitePersistence(ctx, cfg.DBPath)
	if err != nil {
		_ = log.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	store := storage.NewStore(ctx, persistence, root, log.Component("store"))

	enum := enumerator.New(enumerator.Options{
		Include:          cfg.Include,
		Exclude:          cfg.Exclude,
		MaxResults:       cfg.MaxResults,
		RespectGitignore: cfg.RespectGitignore,
		Logger:           log.Component("enumerator"),
	})

	governor := memory.NewGovernor(memory.RuntimeProbe{}, memory.Options{
		Ceiling:   cfg.CeilingBytes(),
		SymbolCap: cfg.Memory.SymbolCap,
		Logger:    log.Component("memory"),
	})

	idx, err := indexer.New(indexer.Options{
		Store:              store,
		Enumerator:         enum,
		Governor:           governor,
		ChunkSize:          cfg.ChunkSize,
		MaxConcurrentFiles: cfg.MaxConcurrentFiles,
		CheckpointInterval: cfg.CheckpointInterval,
		MaxFileSize:        cfg.MaxFileSize,
		OnProgress:         opts.onProgress,
		Logger:             log.Component("indexer"),
	})
	if err != nil {
		_ = persistence.Close()
		_ = log.Close()
		return nil, err
	}

	srch := searcher.New(store, searcher.Options{
		MaxResults: cfg.Search.MaxResults,
		CacheSize:  cfg.Search.CacheSize,
		Logger:     log.Component("searcher"),
	})

	return &app{
		cfg:         cfg,
		root:        root,
		log:         log,
		persistence: persistence,
		store:       store,
		enumerator:  enum,
		indexer:     idx,
		searcher:    srch,
	}, nil
}

// close releases the database and log file
func (a *app) close() {
	if err := a.persistence.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close database")
	}
	_ = a.log.Close()
}
