package types

import "time"

// FileIndexEntry is the per-file metadata kept in a ProjectIndex.
// An entry is replaced wholesale whenever its file is reindexed.
type FileIndexEntry struct {
	// Identification
	Path string `json:"path"` // Workspace-relative, forward slashes

	// Change detection
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
	Fingerprint  string    `json:"fingerprint"`

	// Extracted data
	Language     string       `json:"language"`
	Symbols      []SymbolInfo `json:"symbols,omitempty"`
	Dependencies []string     `json:"dependencies,omitempty"`

	Indexed bool `json:"indexed"`
}

// ProjectIndex is the persisted map from path to entry plus aggregate metadata.
// TotalSize equals the sum of Files[*].Size after every successful mutation.
type ProjectIndex struct {
	Files       map[string]FileIndexEntry `json:"files"`
	LastUpdated time.Time                 `json:"lastUpdated"`
	Version     string                    `json:"version"`
	TotalSize   int64                     `json:"totalSize"`
}

// NewProjectIndex returns an empty index stamped with version
func NewProjectIndex(version string) *ProjectIndex {
	return &ProjectIndex{
		Files:   make(map[string]FileIndexEntry),
		Version: version,
	}
}

// SumSizes recomputes the aggregate size from the entries
func (pi *ProjectIndex) SumSizes() int64 {
	var total int64
	for _, entry := range pi.Files {
		total += entry.Size
	}
	return total
}
