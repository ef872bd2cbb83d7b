// Package types provides shared type definitions for wsindex.
//
// This package defines the domain types used across the enumerator, indexer,
// storage, and searcher packages.
//
// # Core Types
//
// ProjectIndex is the persisted map from workspace-relative path to
// FileIndexEntry, plus the aggregate TotalSize, Version, and LastUpdated:
//
//	idx := types.NewProjectIndex("1.0.0")
//	idx.Files["src/app.ts"] = types.FileIndexEntry{
//	    Path:        "src/app.ts",
//	    Size:        812,
//	    Fingerprint: "9f2c1d7a5be03e41",
//	    Language:    "TypeScript",
//	    Indexed:     true,
//	}
//
// SymbolInfo is produced by a symbol extractor and never mutated afterwards,
// except that memory mitigation may drop trailing symbols from an entry:
//
//	sym := types.SymbolInfo{
//	    Name:  "handleRequest",
//	    Kind:  types.KindFunction,
//	    Range: types.Range{Start: types.Position{Line: 10, Column: 1}, End: types.Position{Line: 42, Column: 2}},
//	}
//
// # Invariants
//
// TotalSize equals the sum of every entry's Size after any successful mutation.
// Trimming symbols never changes Size, Fingerprint, or Dependencies.
package types
