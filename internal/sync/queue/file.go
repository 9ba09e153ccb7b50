package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/araeLaver/petchecky-sub002/internal/errors"
	"github.com/araeLaver/petchecky-sub002/internal/logging"
	"github.com/araeLaver/petchecky-sub002/internal/models"
)

// FileBackend is the degraded queue backend used alongside the flat-file
// fallback store when SQLite is unavailable. Items live in one serialized
// JSON array; sequence numbers come from an in-process counter seeded from
// the highest persisted seq.
type FileBackend struct {
	path string

	mu      sync.Mutex
	items   []*models.PendingSyncItem
	nextSeq int64
}

// NewFileBackend opens (or creates) the flat pending-sync value in dataDir.
// A malformed persisted value degrades to an empty queue.
func NewFileBackend(dataDir string) (*FileBackend, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, errors.Wrap(errors.ErrStorageUnavailable, "queue directory unavailable", err)
	}

	b := &FileBackend{
		path:    filepath.Join(dataDir, "petchecky_pending_sync.json"),
		nextSeq: 1,
	}

	data, err := os.ReadFile(b.path)
	if err == nil {
		if jsonErr := json.Unmarshal(data, &b.items); jsonErr != nil {
			logging.Warn("Malformed flat pending-sync value, starting empty",
				map[string]any{"path": b.path})
			b.items = nil
		}
	}

	for _, item := range b.items {
		if item.Seq >= b.nextSeq {
			b.nextSeq = item.Seq + 1
		}
	}

	return b, nil
}

// persist writes the queue back to its flat key. Caller holds b.mu.
func (b *FileBackend) persist() error {
	data, err := json.Marshal(b.items)
	if err != nil {
		return errors.Wrap(errors.ErrStorageWrite, "failed to encode queue", err)
	}
	if err := os.WriteFile(b.path, data, 0644); err != nil {
		return errors.Wrap(errors.ErrStorageWrite, "failed to write queue", err)
	}
	return nil
}

// Append stores a new item and assigns the next sequence number.
func (b *FileBackend) Append(item *models.PendingSyncItem) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	item.Seq = b.nextSeq
	b.nextSeq++
	b.items = append(b.items, item)
	return b.persist()
}

// All returns every item ordered ascending by (timestamp, seq).
func (b *FileBackend) All() ([]*models.PendingSyncItem, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]*models.PendingSyncItem, len(b.items))
	copy(out, b.items)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp < out[j].Timestamp
		}
		return out[i].Seq < out[j].Seq
	})
	return out, nil
}

// Remove deletes an item by id.
func (b *FileBackend) Remove(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	kept := b.items[:0]
	for _, item := range b.items {
		if item.ID != id {
			kept = append(kept, item)
		}
	}
	b.items = kept
	return b.persist()
}

// IncrementRetry adds exactly one to the item's retry counter.
func (b *FileBackend) IncrementRetry(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, item := range b.items {
		if item.ID == id {
			item.RetryCount++
			return b.persist()
		}
	}
	return errors.New(errors.ErrNotFound, "queue item "+id)
}

// Count returns the number of stored items.
func (b *FileBackend) Count() (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items), nil
}

// Clear removes all items.
func (b *FileBackend) Clear() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items = nil
	return b.persist()
}
