// Package queue provides the durable pending-sync queue of mutation
// intents awaiting upload.
package queue

import (
	"encoding/json"
	"time"

	"github.com/araeLaver/petchecky-sub002/internal/errors"
	"github.com/araeLaver/petchecky-sub002/internal/logging"
	"github.com/araeLaver/petchecky-sub002/internal/models"
	"github.com/araeLaver/petchecky-sub002/internal/uuid"
)

// Backend is the durable storage behind the queue. The SQLite backend is
// primary; the file backend serves the degraded flat-storage mode.
type Backend interface {
	// Append durably stores a new item and assigns its sequence number.
	Append(item *models.PendingSyncItem) error

	// All returns every item ordered ascending by (timestamp, seq).
	All() ([]*models.PendingSyncItem, error)

	// Remove deletes an item by id. Missing ids are not an error.
	Remove(id string) error

	// IncrementRetry adds exactly one to an item's retry counter.
	IncrementRetry(id string) error

	// Count returns the number of stored items.
	Count() (int, error)

	// Clear removes all items.
	Clear() error
}

// Queue is the ordered durable list of pending mutation intents. It does
// not deduplicate: if the caller enqueues the same logical mutation twice,
// both items are uploaded and the server's upsert semantics absorb the
// duplicate.
type Queue struct {
	backend Backend
	now     func() time.Time
}

// Option configures a Queue.
type Option func(*Queue)

// WithNow injects a clock, used by tests to force timestamp collisions.
func WithNow(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

// New creates a Queue over the given backend.
func New(backend Backend, opts ...Option) *Queue {
	q := &Queue{
		backend: backend,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue appends a mutation intent for a collection. The payload is
// serialized as the item's opaque data. The returned item carries the
// generated id and the backend-assigned sequence number.
func (q *Queue) Enqueue(mutation models.MutationType, collection models.Collection, payload any) (*models.PendingSyncItem, error) {
	if !mutation.Valid() {
		return nil, errors.New(errors.ErrInvalid, "unknown mutation type "+string(mutation))
	}
	if !collection.Valid() {
		return nil, errors.New(errors.ErrUnknownCollection, string(collection))
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalid, "failed to encode payload", err)
	}

	item := &models.PendingSyncItem{
		ID:         uuid.New(),
		Type:       mutation,
		Store:      collection,
		Data:       data,
		Timestamp:  q.now().UnixMilli(),
		RetryCount: 0,
	}

	if err := q.backend.Append(item); err != nil {
		return nil, err
	}

	logging.Debug("Enqueued pending mutation",
		map[string]any{"id": item.ID, "type": item.Type, "store": item.Store})

	return item, nil
}

// DequeueAllOrdered returns all pending items in drain order: ascending
// timestamp, sequence number breaking ties. Items are not removed; the
// sync engine removes each item only after its upload succeeds.
func (q *Queue) DequeueAllOrdered() ([]*models.PendingSyncItem, error) {
	return q.backend.All()
}

// Remove deletes an item by id.
func (q *Queue) Remove(id string) error {
	return q.backend.Remove(id)
}

// IncrementRetry adds one to an item's retry counter after a failed
// upload attempt.
func (q *Queue) IncrementRetry(id string) error {
	return q.backend.IncrementRetry(id)
}

// Count returns the number of pending items.
func (q *Queue) Count() (int, error) {
	return q.backend.Count()
}

// Clear removes all pending items.
func (q *Queue) Clear() error {
	return q.backend.Clear()
}
