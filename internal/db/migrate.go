// Package db provides database schema migration management.
package db

import (
	"database/sql"
	"fmt"
	"time"
)

// Migration represents one versioned schema step. Statements only add
// tables and indices; upgrades never drop or rewrite existing collections,
// so data in untouched collections is preserved across versions.
type migration struct {
	Version     int
	Description string
	Statements  []string
}

// migrations is the ordered schema history of the offline store.
var migrations = []migration{
	{
		Version:     1,
		Description: "initial offline collections",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS photos (
				id TEXT PRIMARY KEY,
				album_id TEXT NOT NULL DEFAULT '',
				pet_id TEXT NOT NULL DEFAULT '',
				payload TEXT NOT NULL
			);`,
			`CREATE INDEX IF NOT EXISTS idx_photos_album_id ON photos(album_id);`,
			`CREATE TABLE IF NOT EXISTS albums (
				id TEXT PRIMARY KEY,
				pet_id TEXT NOT NULL DEFAULT '',
				payload TEXT NOT NULL
			);`,
			`CREATE INDEX IF NOT EXISTS idx_albums_pet_id ON albums(pet_id);`,
			`CREATE TABLE IF NOT EXISTS offline_pets (
				id TEXT PRIMARY KEY,
				owner_id TEXT NOT NULL DEFAULT '',
				payload TEXT NOT NULL
			);`,
			`CREATE INDEX IF NOT EXISTS idx_offline_pets_owner_id ON offline_pets(owner_id);`,
			`CREATE TABLE IF NOT EXISTS offline_chats (
				id TEXT PRIMARY KEY,
				pet_id TEXT NOT NULL DEFAULT '',
				payload TEXT NOT NULL
			);`,
			`CREATE INDEX IF NOT EXISTS idx_offline_chats_pet_id ON offline_chats(pet_id);`,
			`CREATE TABLE IF NOT EXISTS pending_sync (
				seq INTEGER PRIMARY KEY AUTOINCREMENT,
				id TEXT NOT NULL UNIQUE,
				type TEXT NOT NULL,
				store TEXT NOT NULL,
				data TEXT NOT NULL,
				timestamp INTEGER NOT NULL,
				retry_count INTEGER NOT NULL DEFAULT 0
			);`,
			`CREATE INDEX IF NOT EXISTS idx_pending_sync_order ON pending_sync(timestamp, seq);`,
			`CREATE TABLE IF NOT EXISTS sync_settings (
				key TEXT PRIMARY KEY,
				value TEXT NOT NULL
			);`,
		},
	},
	{
		Version:     2,
		Description: "photo lookups by pet",
		Statements: []string{
			`CREATE INDEX IF NOT EXISTS idx_photos_pet_id ON photos(pet_id);`,
		},
	},
}

// Migrator handles database schema migrations.
type Migrator struct {
	db *sql.DB
}

// NewMigrator creates a new Migrator instance.
func NewMigrator(db *sql.DB) *Migrator {
	return &Migrator{db: db}
}

// Initialize creates the schema_migrations table if it doesn't exist.
func (m *Migrator) Initialize() error {
	query := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY CHECK(version > 0),
		applied_at INTEGER NOT NULL CHECK(applied_at > 0),
		description TEXT NOT NULL CHECK(length(description) > 0)
	);`
	_, err := m.db.Exec(query)
	return err
}

// CurrentVersion returns the current schema version.
func (m *Migrator) CurrentVersion() (int, error) {
	var version int
	err := m.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	return version, err
}

// Up applies all pending migrations in version order. Already-applied
// versions are skipped, so Up is safe to call on every startup.
func (m *Migrator) Up() error {
	if err := m.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize migrations table: %w", err)
	}

	current, err := m.CurrentVersion()
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	for _, mig := range migrations {
		if mig.Version <= current {
			continue
		}
		if err := m.apply(mig); err != nil {
			return fmt.Errorf("failed to apply migration V%d: %w", mig.Version, err)
		}
	}

	return nil
}

// apply runs one migration inside a transaction and records it.
func (m *Migrator) apply(mig migration) error {
	tx, err := m.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range mig.Statements {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}

	_, err = tx.Exec(
		"INSERT INTO schema_migrations (version, applied_at, description) VALUES (?, ?, ?)",
		mig.Version, time.Now().Unix(), mig.Description,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}
