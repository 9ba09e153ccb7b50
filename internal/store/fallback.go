// Package store provides the durable local store for offline collections.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/araeLaver/petchecky-sub002/internal/errors"
	"github.com/araeLaver/petchecky-sub002/internal/logging"
	"github.com/araeLaver/petchecky-sub002/internal/models"
)

// flatKeyPrefix is the fixed key pattern of the legacy flat storage. The
// Fallback store writes the same keys, so data written while degraded is
// picked up by the one-time legacy migration once SQLite becomes available.
const flatKeyPrefix = "petchecky_"

// FlatKeyPath returns the on-disk location of a collection's flat value.
func FlatKeyPath(dataDir string, collection models.Collection) string {
	return filepath.Join(dataDir, flatKeyPrefix+string(collection)+".json")
}

// Fallback is the degraded Store used when SQLite initialization fails.
// Each collection is one serialized JSON array under a fixed key pattern.
// There are no secondary indexes; GetByIndex filters linearly.
type Fallback struct {
	dataDir string

	mu          sync.RWMutex
	collections map[models.Collection][]Record
	settings    map[string]string
}

// NewFallback opens (or creates) the flat keyed storage in dataDir.
// Malformed persisted JSON degrades to an empty collection rather than
// failing: the fallback itself must never be a fatal error.
func NewFallback(dataDir string) (*Fallback, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, errors.Wrap(errors.ErrStorageUnavailable, "fallback directory unavailable", err)
	}

	f := &Fallback{
		dataDir:     dataDir,
		collections: make(map[models.Collection][]Record),
		settings:    make(map[string]string),
	}

	for _, c := range models.DataCollections() {
		f.collections[c] = readFlatArray(FlatKeyPath(dataDir, c))
	}

	data, err := os.ReadFile(FlatKeyPath(dataDir, models.CollectionSyncSettings))
	if err == nil {
		if jsonErr := json.Unmarshal(data, &f.settings); jsonErr != nil {
			logging.Warn("Malformed fallback settings, starting empty",
				map[string]any{"path": FlatKeyPath(dataDir, models.CollectionSyncSettings)})
			f.settings = make(map[string]string)
		}
	}

	return f, nil
}

// readFlatArray loads one flat collection value, treating any read or
// parse failure as "no data available".
func readFlatArray(path string) []Record {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		logging.Warn("Malformed flat collection value, starting empty",
			map[string]any{"path": path})
		return nil
	}
	return records
}

// persist writes one collection back to its flat key. Caller holds f.mu.
func (f *Fallback) persist(collection models.Collection) error {
	data, err := json.Marshal(f.collections[collection])
	if err != nil {
		return errors.Wrap(errors.ErrStorageWrite, "failed to encode flat collection", err)
	}
	if err := os.WriteFile(FlatKeyPath(f.dataDir, collection), data, 0644); err != nil {
		return errors.Wrap(errors.ErrStorageWrite, "failed to write flat collection", err)
	}
	return nil
}

// Put upserts by id, replacing the whole record.
func (f *Fallback) Put(collection models.Collection, id string, record Record) error {
	if err := validate(collection, ""); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	stored := cloneRecord(record)
	stored["id"] = id

	records := f.collections[collection]
	replaced := false
	for i, r := range records {
		if r["id"] == id {
			records[i] = stored
			replaced = true
			break
		}
	}
	if !replaced {
		records = append(records, stored)
	}
	f.collections[collection] = records

	return f.persist(collection)
}

// Get returns the record for id, or ErrNotFound.
func (f *Fallback) Get(collection models.Collection, id string) (Record, error) {
	if err := validate(collection, ""); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, r := range f.collections[collection] {
		if r["id"] == id {
			return cloneRecord(r), nil
		}
	}
	return nil, ErrNotFound
}

// GetByIndex filters linearly; the flat storage has no real indexes.
func (f *Fallback) GetByIndex(collection models.Collection, index string, value string) ([]Record, error) {
	if err := validate(collection, index); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	var out []Record
	for _, r := range f.collections[collection] {
		if indexValue(r, index) == value {
			out = append(out, cloneRecord(r))
		}
	}
	return out, nil
}

// GetAll returns every record in the collection.
func (f *Fallback) GetAll(collection models.Collection) ([]Record, error) {
	if err := validate(collection, ""); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]Record, 0, len(f.collections[collection]))
	for _, r := range f.collections[collection] {
		out = append(out, cloneRecord(r))
	}
	return out, nil
}

// Remove deletes by id; missing ids are not an error.
func (f *Fallback) Remove(collection models.Collection, id string) error {
	return f.RemoveMany(collection, []string{id})
}

// RemoveMany deletes all listed ids.
func (f *Fallback) RemoveMany(collection models.Collection, ids []string) error {
	if err := validate(collection, ""); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	records := f.collections[collection]
	kept := records[:0]
	for _, r := range records {
		id, _ := r["id"].(string)
		if !drop[id] {
			kept = append(kept, r)
		}
	}
	f.collections[collection] = kept

	return f.persist(collection)
}

// Clear deletes every record in the collection.
func (f *Fallback) Clear(collection models.Collection) error {
	if err := validate(collection, ""); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.collections[collection] = nil
	return f.persist(collection)
}

// DeleteAlbumCascade deletes the album's photos, then the album.
func (f *Fallback) DeleteAlbumCascade(albumID string) error {
	photos, err := f.GetByIndex(models.CollectionPhotos, "album_id", albumID)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(photos))
	for _, p := range photos {
		if id, ok := p["id"].(string); ok {
			ids = append(ids, id)
		}
	}

	if err := f.RemoveMany(models.CollectionPhotos, ids); err != nil {
		return err
	}
	return f.Remove(models.CollectionAlbums, albumID)
}

// GetSetting returns the value for a sync settings key.
func (f *Fallback) GetSetting(key string) (string, bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	v, ok := f.settings[key]
	return v, ok, nil
}

// SetSetting upserts a sync settings key.
func (f *Fallback) SetSetting(key string, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.settings[key] = value

	data, err := json.Marshal(f.settings)
	if err != nil {
		return errors.Wrap(errors.ErrStorageWrite, "failed to encode settings", err)
	}
	path := FlatKeyPath(f.dataDir, models.CollectionSyncSettings)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(errors.ErrStorageWrite, "failed to write settings", err)
	}
	return nil
}

// Close is a no-op; the fallback has no open handles between operations.
func (f *Fallback) Close() error {
	return nil
}

// cloneRecord shallow-copies a record so callers cannot mutate stored state.
func cloneRecord(r Record) Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
