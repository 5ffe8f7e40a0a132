// Package sqlite provides the SQLite-backed local force cache.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mekforge/forcesync/internal/force"
	"github.com/mekforge/forcesync/internal/platform/storage/sqlitemigrate"
	"github.com/mekforge/forcesync/internal/storage"
	"github.com/mekforge/forcesync/internal/storage/sqlite/migrations"

	_ "modernc.org/sqlite"
)

// Store persists force records in a local SQLite cache.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// Open opens the SQLite force cache and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("cache path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Get fetches one cached record by id.
func (s *Store) Get(ctx context.Context, id string) (storage.Record, error) {
	if s == nil || s.sqlDB == nil {
		return storage.Record{}, fmt.Errorf("cache is not configured")
	}
	var payload string
	var owned int
	err := s.sqlDB.QueryRowContext(ctx, `SELECT payload, owned FROM forces WHERE id = ?`, id).Scan(&payload, &owned)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Record{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Record{}, fmt.Errorf("get force %s: %w", id, err)
	}
	snap, err := force.UnmarshalSnapshot([]byte(payload))
	if err != nil {
		return storage.Record{}, fmt.Errorf("decode force %s: %w", id, err)
	}
	return storage.Record{Snapshot: snap, Owned: owned != 0}, nil
}

// Put inserts or replaces one cached record.
func (s *Store) Put(ctx context.Context, rec storage.Record) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("cache is not configured")
	}
	instanceID := strings.TrimSpace(rec.Snapshot.InstanceID)
	if instanceID == "" {
		return fmt.Errorf("instance id is required")
	}
	payload, err := rec.Snapshot.MarshalJSONString()
	if err != nil {
		return err
	}
	owned := 0
	if rec.Owned {
		owned = 1
	}
	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT OR REPLACE INTO forces (id, owned, updated_at, payload) VALUES (?, ?, ?, ?)`,
		instanceID,
		owned,
		toMillis(rec.Snapshot.Timestamp()),
		payload,
	)
	if err != nil {
		return fmt.Errorf("put force %s: %w", instanceID, err)
	}
	return nil
}

// PutSnapshot caches a snapshot, preserving an existing ownership flag.
func (s *Store) PutSnapshot(ctx context.Context, snap force.Snapshot) error {
	owned := false
	if existing, err := s.Get(ctx, snap.InstanceID); err == nil {
		owned = existing.Owned
	}
	return s.Put(ctx, storage.Record{Snapshot: snap, Owned: owned})
}

// Delete removes one cached record. Deleting a missing record is not an
// error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("cache is not configured")
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM forces WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete force %s: %w", id, err)
	}
	return nil
}
