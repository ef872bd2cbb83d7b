package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLitePersistence implements Persistence using SQLite
type SQLitePersistence struct {
	db *sql.DB
}

// SnapshotInfo describes a stored snapshot without its payload
type SnapshotInfo struct {
	RootPath  string
	SizeBytes int64
	UpdatedAt time.Time
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return db, nil
}

// NewSQLitePersistence opens (creating if needed) a snapshot database
func NewSQLitePersistence(ctx context.Context, dbPath string) (*SQLitePersistence, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLitePersistence{db: db}, nil
}

// Close closes the database connection
func (s *SQLitePersistence) Close() error {
	return s.db.Close()
}

// SaveSnapshot inserts or replaces the snapshot for key
func (s *SQLitePersistence) SaveSnapshot(ctx context.Context, key string, data []byte) error {
	query := `
		INSERT INTO snapshots (root_path, data, size_bytes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(root_path) DO UPDATE SET
			data = excluded.data,
			size_bytes = excluded.size_bytes,
			updated_at = excluded.updated_at
	`
	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx, query, key, data, len(data), now, now); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot returns the snapshot for key or ErrNotFound
func (s *SQLitePersistence) LoadSnapshot(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM snapshots WHERE root_path = ?", key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return data, nil
}

// DeleteSnapshot removes the snapshot for key
func (s *SQLitePersistence) DeleteSnapshot(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM snapshots WHERE root_path = ?", key); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

// ListSnapshots returns metadata for every stored workspace, ordered by root
func (s *SQLitePersistence) ListSnapshots(ctx context.Context) ([]SnapshotInfo, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT root_path, size_bytes, updated_at FROM snapshots ORDER BY root_path")
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var infos []SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		if err := rows.Scan(&info.RootPath, &info.SizeBytes, &info.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}
