// Package store provides the durable local store for offline collections.
//
// Records are opaque JSON-serializable payloads keyed by a synthetic string
// id. Each collection supports lookup by at least one secondary index
// relevant to its foreign key (album id, pet id, owner id). Put is a full
// replace, not a field-level merge.
package store

import (
	stderrors "errors"

	"github.com/araeLaver/petchecky-sub002/internal/models"
)

// Record is one collection entry as a decoded JSON object.
type Record = map[string]any

// ErrNotFound is returned by Get when no record exists for the id.
var ErrNotFound = stderrors.New("store: record not found")

// Store is the durable local store contract. All implementations are safe
// for concurrent use. The SQLite implementation is the primary backend; the
// flat-file Fallback is used when SQLite initialization fails and must not
// be treated as an error by callers.
type Store interface {
	// Put upserts a record. An existing record with the same id is fully
	// replaced.
	Put(collection models.Collection, id string, record Record) error

	// Get returns the record for id, or ErrNotFound.
	Get(collection models.Collection, id string) (Record, error)

	// GetByIndex returns all records whose index field equals value.
	// The index must be one of the collection's declared secondary indexes.
	GetByIndex(collection models.Collection, index string, value string) ([]Record, error)

	// GetAll returns every record in the collection.
	GetAll(collection models.Collection) ([]Record, error)

	// Remove deletes the record for id. Removing a missing id is not an
	// error.
	Remove(collection models.Collection, id string) error

	// RemoveMany deletes all listed ids.
	RemoveMany(collection models.Collection, ids []string) error

	// Clear deletes every record in the collection.
	Clear(collection models.Collection) error

	// DeleteAlbumCascade deletes an album and, first, every photo whose
	// album_id references it. The cascade completes before the call
	// returns; no orphaned photos remain afterwards.
	DeleteAlbumCascade(albumID string) error

	// Close releases the underlying storage.
	Close() error
}

// Settings is flat key/value persistence for sync bookkeeping
// (lastSync_* timestamps). Both store backends implement it.
type Settings interface {
	// GetSetting returns the value for key and whether it was present.
	GetSetting(key string) (string, bool, error)

	// SetSetting upserts a key/value pair.
	SetSetting(key string, value string) error
}

// indexValue extracts a string index field from a record. Non-string values
// are ignored; index columns hold "" for records missing the field.
func indexValue(record Record, field string) string {
	if v, ok := record[field]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
