package types

import "time"

// SymbolMatch is a single symbol search hit
type SymbolMatch struct {
	Path     string     `json:"path"`
	Language string     `json:"language"`
	Symbol   SymbolInfo `json:"symbol"`
}

// ProjectStatistics is a point-in-time summary of an index
type ProjectStatistics struct {
	TotalFiles      int            `json:"totalFiles"`
	IndexedFiles    int            `json:"indexedFiles"`
	TotalSize       string         `json:"totalSize"` // Human-readable
	TotalSizeBytes  int64          `json:"totalSizeBytes"`
	Languages       map[string]int `json:"languages"`
	SymbolCount     int            `json:"symbolCount"`
	DependencyCount int            `json:"dependencyCount"`
	LastUpdated     time.Time      `json:"lastUpdated"`
	Version         string         `json:"version"`
}
