// Package memory bounds the index's memory footprint.
//
// A Governor samples usage through an injected Probe after each indexing
// chunk. When usage exceeds the configured ceiling it asks the probe to
// collect, and if usage is still above 80% of the ceiling it truncates the
// symbol list of every index entry to a fixed cap. Dependencies, sizes and
// fingerprints are never touched, and truncated symbols only come back when
// the file is reindexed.
//
// The decision itself is pure:
//
//	memory.Decide(usage, ceiling)             // ActionNone or ActionCollect
//	memory.DecideAfterCollect(usage, ceiling) // ActionNone or ActionTrim
//	memory.TrimSymbols(entry, cap)            // idempotent truncation
//
// Usage:
//
//	gov := memory.NewGovernor(memory.RuntimeProbe{}, memory.Options{
//		Ceiling:   512 << 20,
//		SymbolCap: 50,
//	})
//	m := gov.Mitigate(ctx, store)
package memory
