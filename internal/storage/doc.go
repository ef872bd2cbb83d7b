// Package storage holds the canonical project index and persists it.
//
// A Store owns the path → entry map and the aggregate size for one
// workspace. It is loaded from a Persistence backend at construction and
// written back with Save. Persistence is best-effort: a missing, corrupt or
// incompatible snapshot starts an empty index, and save failures are logged
// without touching the in-memory state.
//
// # Backends
//
//   - SQLitePersistence: one row per workspace root in the snapshots table.
//     Built on modernc.org/sqlite by default, or github.com/mattn/go-sqlite3
//     with the sqlite_cgo build tag.
//   - MemoryPersistence: process-local, used by tests and memory-only runs.
//
// # Basic Usage
//
//	p, err := storage.NewSQLitePersistence(ctx, "~/.wsindex/index.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Close()
//
//	store := storage.NewStore(ctx, p, "/path/to/workspace", logger)
//	store.Upsert("src/main.go", entry)
//	if err := store.Save(ctx); err != nil {
//	    // logged; the index is still usable in memory
//	}
//
// # Schema Migrations
//
// Migrations are versioned with semantic versions and applied in order by
// ApplyMigrations when a database is opened.
//
// # Snapshot Versions
//
// Snapshots carry the IndexVersion they were written with. Loading a
// snapshot whose major version differs from IndexVersion discards it.
package storage
