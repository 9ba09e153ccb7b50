package queue

import (
	"database/sql"

	"github.com/araeLaver/petchecky-sub002/internal/db"
	"github.com/araeLaver/petchecky-sub002/internal/errors"
	"github.com/araeLaver/petchecky-sub002/internal/models"
)

// SQLiteBackend stores queue items in the pending_sync table. The seq
// column is AUTOINCREMENT, which gives a monotonic creation order even
// when two items share a millisecond timestamp.
type SQLiteBackend struct {
	db *db.DB
}

// NewSQLiteBackend creates a Backend over an opened, migrated database.
func NewSQLiteBackend(database *db.DB) *SQLiteBackend {
	return &SQLiteBackend{db: database}
}

// Append inserts the item and reads back its assigned sequence number.
func (b *SQLiteBackend) Append(item *models.PendingSyncItem) error {
	res, err := b.db.Exec(
		`INSERT INTO pending_sync (id, type, store, data, timestamp, retry_count)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		item.ID, string(item.Type), string(item.Store), string(item.Data),
		item.Timestamp, item.RetryCount,
	)
	if err != nil {
		return errors.Wrap(errors.ErrStorageWrite, "failed to enqueue item", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(errors.ErrStorageWrite, "failed to read item seq", err)
	}
	item.Seq = seq
	return nil
}

// All returns every item ordered by (timestamp, seq) ascending.
func (b *SQLiteBackend) All() ([]*models.PendingSyncItem, error) {
	rows, err := b.db.Query(
		`SELECT seq, id, type, store, data, timestamp, retry_count
		 FROM pending_sync ORDER BY timestamp ASC, seq ASC`)
	if err != nil {
		return nil, errors.Wrap(errors.ErrStorageRead, "failed to list queue", err)
	}
	defer rows.Close()

	var items []*models.PendingSyncItem
	for rows.Next() {
		var item models.PendingSyncItem
		var mutation, store, data string
		if err := rows.Scan(&item.Seq, &item.ID, &mutation, &store, &data,
			&item.Timestamp, &item.RetryCount); err != nil {
			return nil, errors.Wrap(errors.ErrStorageRead, "failed to scan queue item", err)
		}
		item.Type = models.MutationType(mutation)
		item.Store = models.Collection(store)
		item.Data = []byte(data)
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrStorageRead, "failed to iterate queue", err)
	}
	return items, nil
}

// Remove deletes an item by id.
func (b *SQLiteBackend) Remove(id string) error {
	if _, err := b.db.Exec("DELETE FROM pending_sync WHERE id = ?", id); err != nil {
		return errors.Wrap(errors.ErrStorageWrite, "failed to remove queue item", err)
	}
	return nil
}

// IncrementRetry adds exactly one to the item's retry counter.
func (b *SQLiteBackend) IncrementRetry(id string) error {
	res, err := b.db.Exec(
		"UPDATE pending_sync SET retry_count = retry_count + 1 WHERE id = ?", id)
	if err != nil {
		return errors.Wrap(errors.ErrStorageWrite, "failed to increment retry", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.New(errors.ErrNotFound, "queue item "+id)
	}
	return nil
}

// Count returns the number of pending items.
func (b *SQLiteBackend) Count() (int, error) {
	var count int
	err := b.db.QueryRow("SELECT COUNT(*) FROM pending_sync").Scan(&count)
	if err != nil && err != sql.ErrNoRows {
		return 0, errors.Wrap(errors.ErrStorageRead, "failed to count queue", err)
	}
	return count, nil
}

// Clear removes all pending items.
func (b *SQLiteBackend) Clear() error {
	if _, err := b.db.Exec("DELETE FROM pending_sync"); err != nil {
		return errors.Wrap(errors.ErrStorageWrite, "failed to clear queue", err)
	}
	return nil
}
