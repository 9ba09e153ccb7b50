// Package store provides the durable local store for offline collections.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/araeLaver/petchecky-sub002/internal/db"
	"github.com/araeLaver/petchecky-sub002/internal/errors"
	"github.com/araeLaver/petchecky-sub002/internal/models"
)

// SQLite is the primary Store backend. Each collection maps to its own
// table with an id column, the collection's secondary-index columns, and
// the full record payload as JSON.
type SQLite struct {
	db *db.DB

	// Prepared statement cache for frequently used queries.
	// Statements are prepared on first use and cached for reuse.
	stmtCache sync.Map // map[string]*sql.Stmt
}

// NewSQLite creates a Store over an opened database. The caller is expected
// to have run migrations (db.Migrator) beforehand.
func NewSQLite(database *db.DB) *SQLite {
	return &SQLite{db: database}
}

// prepareStmt gets or creates a prepared statement from the cache.
func (s *SQLite) prepareStmt(query string) (*sql.Stmt, error) {
	if stmt, ok := s.stmtCache.Load(query); ok {
		return stmt.(*sql.Stmt), nil
	}

	stmt, err := s.db.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}

	actual, loaded := s.stmtCache.LoadOrStore(query, stmt)
	if loaded {
		// Another goroutine already prepared this, close our duplicate
		stmt.Close()
		return actual.(*sql.Stmt), nil
	}

	return stmt, nil
}

// Close closes all cached prepared statements and the database.
func (s *SQLite) Close() error {
	s.stmtCache.Range(func(key, value any) bool {
		value.(*sql.Stmt).Close()
		return true
	})
	return s.db.Close()
}

// validate checks the collection (and optionally index) against the
// registry in models. Table and column names are only ever taken from that
// registry, never from caller input directly.
func validate(collection models.Collection, index string) error {
	found := false
	for _, c := range models.DataCollections() {
		if c == collection {
			found = true
			break
		}
	}
	if !found {
		return errors.New(errors.ErrUnknownCollection, string(collection))
	}
	if index == "" {
		return nil
	}
	for _, idx := range collection.Indexes() {
		if idx == index {
			return nil
		}
	}
	return errors.New(errors.ErrUnknownIndex, fmt.Sprintf("%s has no index %q", collection, index))
}

// Put upserts a record, fully replacing any existing record with the same id.
func (s *SQLite) Put(collection models.Collection, id string, record Record) error {
	if err := validate(collection, ""); err != nil {
		return err
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(errors.ErrStorageWrite, "failed to encode record", err)
	}

	indexes := collection.Indexes()
	cols := append([]string{"id"}, indexes...)
	cols = append(cols, "payload")

	assignments := make([]string, 0, len(cols)-1)
	for _, c := range cols[1:] {
		assignments = append(assignments, c+"=excluded."+c)
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(id) DO UPDATE SET %s",
		collection,
		strings.Join(cols, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "),
		strings.Join(assignments, ", "),
	)

	args := make([]any, 0, len(cols))
	args = append(args, id)
	for _, idx := range indexes {
		args = append(args, indexValue(record, idx))
	}
	args = append(args, string(payload))

	stmt, err := s.prepareStmt(query)
	if err != nil {
		return errors.Wrap(errors.ErrStorageWrite, "put failed", err)
	}
	if _, err := stmt.Exec(args...); err != nil {
		return errors.Wrap(errors.ErrStorageWrite, "put failed", err)
	}
	return nil
}

// Get retrieves a record by id.
func (s *SQLite) Get(collection models.Collection, id string) (Record, error) {
	if err := validate(collection, ""); err != nil {
		return nil, err
	}

	stmt, err := s.prepareStmt(fmt.Sprintf("SELECT payload FROM %s WHERE id = ?", collection))
	if err != nil {
		return nil, errors.Wrap(errors.ErrStorageRead, "get failed", err)
	}

	var payload string
	err = stmt.QueryRow(id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrStorageRead, "get failed", err)
	}

	return decodeRecord(payload)
}

// GetByIndex returns all records whose index column equals value.
func (s *SQLite) GetByIndex(collection models.Collection, index string, value string) ([]Record, error) {
	if err := validate(collection, index); err != nil {
		return nil, err
	}

	stmt, err := s.prepareStmt(fmt.Sprintf("SELECT payload FROM %s WHERE %s = ?", collection, index))
	if err != nil {
		return nil, errors.Wrap(errors.ErrStorageRead, "index lookup failed", err)
	}

	rows, err := stmt.Query(value)
	if err != nil {
		return nil, errors.Wrap(errors.ErrStorageRead, "index lookup failed", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

// GetAll returns every record in the collection.
func (s *SQLite) GetAll(collection models.Collection) ([]Record, error) {
	if err := validate(collection, ""); err != nil {
		return nil, err
	}

	stmt, err := s.prepareStmt(fmt.Sprintf("SELECT payload FROM %s", collection))
	if err != nil {
		return nil, errors.Wrap(errors.ErrStorageRead, "getAll failed", err)
	}

	rows, err := stmt.Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrStorageRead, "getAll failed", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

// Remove deletes a record by id. Missing ids are not an error.
func (s *SQLite) Remove(collection models.Collection, id string) error {
	if err := validate(collection, ""); err != nil {
		return err
	}

	stmt, err := s.prepareStmt(fmt.Sprintf("DELETE FROM %s WHERE id = ?", collection))
	if err != nil {
		return errors.Wrap(errors.ErrStorageWrite, "remove failed", err)
	}
	if _, err := stmt.Exec(id); err != nil {
		return errors.Wrap(errors.ErrStorageWrite, "remove failed", err)
	}
	return nil
}

// RemoveMany deletes all listed ids in one statement.
func (s *SQLite) RemoveMany(collection models.Collection, ids []string) error {
	if err := validate(collection, ""); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	query := fmt.Sprintf("DELETE FROM %s WHERE id IN (%s)", collection, placeholders)

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	// Not cached: the placeholder count varies per call.
	if _, err := s.db.Exec(query, args...); err != nil {
		return errors.Wrap(errors.ErrStorageWrite, "removeMany failed", err)
	}
	return nil
}

// Clear deletes every record in the collection.
func (s *SQLite) Clear(collection models.Collection) error {
	if err := validate(collection, ""); err != nil {
		return err
	}
	if _, err := s.db.Exec(fmt.Sprintf("DELETE FROM %s", collection)); err != nil {
		return errors.Wrap(errors.ErrStorageWrite, "clear failed", err)
	}
	return nil
}

// DeleteAlbumCascade removes all photos referencing the album, then the
// album itself. The two phases run sequentially; the cascade completes
// before the parent delete so no orphaned photos can remain.
func (s *SQLite) DeleteAlbumCascade(albumID string) error {
	photos, err := s.GetByIndex(models.CollectionPhotos, "album_id", albumID)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(photos))
	for _, p := range photos {
		if id, ok := p["id"].(string); ok {
			ids = append(ids, id)
		}
	}

	if err := s.RemoveMany(models.CollectionPhotos, ids); err != nil {
		return err
	}
	return s.Remove(models.CollectionAlbums, albumID)
}

// GetSetting returns the value for a sync settings key.
func (s *SQLite) GetSetting(key string) (string, bool, error) {
	stmt, err := s.prepareStmt("SELECT value FROM sync_settings WHERE key = ?")
	if err != nil {
		return "", false, errors.Wrap(errors.ErrStorageRead, "setting read failed", err)
	}

	var value string
	err = stmt.QueryRow(key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(errors.ErrStorageRead, "setting read failed", err)
	}
	return value, true, nil
}

// SetSetting upserts a sync settings key.
func (s *SQLite) SetSetting(key string, value string) error {
	stmt, err := s.prepareStmt(
		"INSERT INTO sync_settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value")
	if err != nil {
		return errors.Wrap(errors.ErrStorageWrite, "setting write failed", err)
	}
	if _, err := stmt.Exec(key, value); err != nil {
		return errors.Wrap(errors.ErrStorageWrite, "setting write failed", err)
	}
	return nil
}

// decodeRecord unmarshals a stored payload.
func decodeRecord(payload string) (Record, error) {
	var record Record
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return nil, errors.Wrap(errors.ErrStorageRead, "corrupt record payload", err)
	}
	return record, nil
}

// collectRecords drains a payload result set.
func collectRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, errors.Wrap(errors.ErrStorageRead, "scan failed", err)
		}
		record, err := decodeRecord(payload)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrStorageRead, "iteration failed", err)
	}
	return records, nil
}
