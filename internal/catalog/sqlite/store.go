// Package sqlite provides a SQLite-backed unit catalog.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mekforge/forcesync/internal/catalog"
	"github.com/mekforge/forcesync/internal/catalog/sqlite/migrations"
	"github.com/mekforge/forcesync/internal/platform/storage/sqlitemigrate"

	_ "modernc.org/sqlite"
)

// Store reads unit definitions from a SQLite catalog database.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a SQLite catalog store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("catalog path is required")
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

// PutUnit inserts or replaces one unit definition.
func (s *Store) PutUnit(ctx context.Context, unit catalog.Unit) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("catalog is not configured")
	}
	if err := unit.Validate(); err != nil {
		return err
	}
	gameSystem := unit.GameSystem
	if gameSystem == "" {
		gameSystem = catalog.GameSystemClassic
	}
	crewSize := unit.CrewSize
	if crewSize <= 0 {
		crewSize = 1
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT OR REPLACE INTO units (name, faction, era, tech, game_system, crew_size)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		unit.Name,
		unit.Faction,
		unit.Era,
		unit.Tech,
		string(gameSystem),
		crewSize,
	)
	if err != nil {
		return fmt.Errorf("put unit %q: %w", unit.Name, err)
	}
	return nil
}

// Lookup implements catalog.Catalog.
func (s *Store) Lookup(name string) (catalog.Unit, bool) {
	if s == nil || s.sqlDB == nil {
		return catalog.Unit{}, false
	}
	var unit catalog.Unit
	var gameSystem string
	err := s.sqlDB.QueryRow(
		`SELECT name, faction, era, tech, game_system, crew_size FROM units WHERE name = ?`,
		name,
	).Scan(&unit.Name, &unit.Faction, &unit.Era, &unit.Tech, &gameSystem, &unit.CrewSize)
	if err != nil {
		return catalog.Unit{}, false
	}
	unit.GameSystem = catalog.ParseGameSystem(gameSystem)
	return unit, true
}
