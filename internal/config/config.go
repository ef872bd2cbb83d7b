// Package config loads wsindex configuration from defaults, an optional
// YAML file and WSINDEX_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. WSINDEX_DB_PATH
const EnvPrefix = "WSINDEX"

// Config is the complete runtime configuration
type Config struct {
	Root               string   `mapstructure:"root"`
	DBPath             string   `mapstructure:"db_path"`
	Include            []string `mapstructure:"include"`
	Exclude            []string `mapstructure:"exclude"`
	RespectGitignore   bool     `mapstructure:"respect_gitignore"`
	MaxResults         int      `mapstructure:"max_results"`
	MaxFileSize        int64    `mapstructure:"max_file_size"`
	ChunkSize          int      `mapstructure:"chunk_size"`
	MaxConcurrentFiles int      `mapstructure:"max_concurrent_files"`
	CheckpointInterval int      `mapstructure:"checkpoint_interval"`

	Memory  MemoryConfig  `mapstructure:"memory"`
	Search  SearchConfig  `mapstructure:"search"`
	Watch   WatchConfig   `mapstructure:"watch"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// MemoryConfig configures the memory governor
type MemoryConfig struct {
	CeilingMB int `mapstructure:"ceiling_mb"`
	SymbolCap int `mapstructure:"symbol_cap"`
}

// SearchConfig configures symbol search
type SearchConfig struct {
	MaxResults int `mapstructure:"max_results"`
	CacheSize  int `mapstructure:"cache_size"`
}

// WatchConfig configures watch mode
type WatchConfig struct {
	DebounceMS int `mapstructure:"debounce_ms"`
}

// LoggingConfig configures logging
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	File   string `mapstructure:"file"`
	Pretty bool   `mapstructure:"pretty"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Root:               ".",
		DBPath:             defaultDBPath(),
		RespectGitignore:   true,
		MaxResults:         20000,
		MaxFileSize:        1024 * 1024,
		ChunkSize:          50,
		MaxConcurrentFiles: 8,
		CheckpointInterval: 5,
		Memory: MemoryConfig{
			CeilingMB: 1024,
			SymbolCap: 50,
		},
		Search: SearchConfig{
			MaxResults: 100,
			CacheSize:  256,
		},
		Watch: WatchConfig{
			DebounceMS: 300,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".wsindex", "index.db")
	}
	return filepath.Join(home, ".wsindex", "index.db")
}

// Load reads configuration. An empty configPath skips the file; a named
// file that does not exist is an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so environment overrides are seen by Unmarshal
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("root", cfg.Root)
	v.SetDefault("db_path", cfg.DBPath)
	v.SetDefault("include", cfg.Include)
	v.SetDefault("exclude", cfg.Exclude)
	v.SetDefault("respect_gitignore", cfg.RespectGitignore)
	v.SetDefault("max_results", cfg.MaxResults)
	v.SetDefault("max_file_size", cfg.MaxFileSize)
	v.SetDefault("chunk_size", cfg.ChunkSize)
	v.SetDefault("max_concurrent_files", cfg.MaxConcurrentFiles)
	v.SetDefault("checkpoint_interval", cfg.CheckpointInterval)
	v.SetDefault("memory.ceiling_mb", cfg.Memory.CeilingMB)
	v.SetDefault("memory.symbol_cap", cfg.Memory.SymbolCap)
	v.SetDefault("search.max_results", cfg.Search.MaxResults)
	v.SetDefault("search.cache_size", cfg.Search.CacheSize)
	v.SetDefault("watch.debounce_ms", cfg.Watch.DebounceMS)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.pretty", cfg.Logging.Pretty)
}

// Validate rejects non-positive sizes and limits
func (c *Config) Validate() error {
	var errs []error
	positive := map[string]int64{
		"max_results":          int64(c.MaxResults),
		"max_file_size":        c.MaxFileSize,
		"chunk_size":           int64(c.ChunkSize),
		"max_concurrent_files": int64(c.MaxConcurrentFiles),
		"checkpoint_interval":  int64(c.CheckpointInterval),
		"memory.ceiling_mb":    int64(c.Memory.CeilingMB),
		"memory.symbol_cap":    int64(c.Memory.SymbolCap),
		"search.max_results":   int64(c.Search.MaxResults),
		"search.cache_size":    int64(c.Search.CacheSize),
		"watch.debounce_ms":    int64(c.Watch.DebounceMS),
	}
	for key, value := range positive {
		if value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", key, value))
		}
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("db_path cannot be empty"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// CeilingBytes returns the memory ceiling in bytes
func (c *Config) CeilingBytes() uint64 {
	return uint64(c.Memory.CeilingMB) * 1024 * 1024
}

// ResolveRoot returns the absolute workspace root, preferring override
func (c *Config) ResolveRoot(override string) (string, error) {
	root := c.Root
	if override != "" {
		root = override
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve root %s: %w", root, err)
	}
	return abs, nil
}
