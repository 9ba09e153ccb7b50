// Package store tests for the flat-file fallback store.
package store

import (
	"os"
	"testing"

	"github.com/araeLaver/petchecky-sub002/internal/models"
)

// TestFallback_PutGet verifies basic round-trips through the flat store.
func TestFallback_PutGet(t *testing.T) {
	f, err := NewFallback(t.TempDir())
	if err != nil {
		t.Fatalf("NewFallback() error = %v", err)
	}

	record := Record{"id": "pet-1", "name": "Mochi", "owner_id": "owner-1"}
	if err := f.Put(models.CollectionOfflinePets, "pet-1", record); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := f.Get(models.CollectionOfflinePets, "pet-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got["name"] != "Mochi" {
		t.Errorf("name = %v, want 'Mochi'", got["name"])
	}

	if _, err := f.Get(models.CollectionOfflinePets, "missing"); err != ErrNotFound {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

// TestFallback_persistsAcrossReopen verifies records survive a restart.
func TestFallback_persistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	f, err := NewFallback(dir)
	if err != nil {
		t.Fatalf("NewFallback() error = %v", err)
	}
	if err := f.Put(models.CollectionAlbums, "album-1", Record{"id": "album-1", "pet_id": "pet-1", "title": "Trip"}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	reopened, err := NewFallback(dir)
	if err != nil {
		t.Fatalf("NewFallback() reopen error = %v", err)
	}
	got, err := reopened.Get(models.CollectionAlbums, "album-1")
	if err != nil {
		t.Fatalf("Get() after reopen error = %v", err)
	}
	if got["title"] != "Trip" {
		t.Errorf("title = %v, want 'Trip'", got["title"])
	}
}

// TestFallback_malformedFile verifies a corrupt flat value degrades to an
// empty collection instead of failing.
func TestFallback_malformedFile(t *testing.T) {
	dir := t.TempDir()
	path := FlatKeyPath(dir, models.CollectionPhotos)
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	f, err := NewFallback(dir)
	if err != nil {
		t.Fatalf("NewFallback() error = %v", err)
	}

	records, err := f.GetAll(models.CollectionPhotos)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("records from corrupt file = %d, want 0", len(records))
	}
}

// TestFallback_GetByIndex verifies the linear-scan index lookup.
func TestFallback_GetByIndex(t *testing.T) {
	f, err := NewFallback(t.TempDir())
	if err != nil {
		t.Fatalf("NewFallback() error = %v", err)
	}

	for _, r := range []Record{
		{"id": "photo-1", "album_id": "album-1", "pet_id": "pet-1"},
		{"id": "photo-2", "album_id": "album-1", "pet_id": "pet-2"},
		{"id": "photo-3", "album_id": "album-2", "pet_id": "pet-1"},
	} {
		if err := f.Put(models.CollectionPhotos, r["id"].(string), r); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}

	got, err := f.GetByIndex(models.CollectionPhotos, "album_id", "album-1")
	if err != nil {
		t.Fatalf("GetByIndex() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("GetByIndex() returned %d records, want 2", len(got))
	}
}

// TestFallback_DeleteAlbumCascade verifies the cascade in flat mode.
func TestFallback_DeleteAlbumCascade(t *testing.T) {
	f, err := NewFallback(t.TempDir())
	if err != nil {
		t.Fatalf("NewFallback() error = %v", err)
	}

	if err := f.Put(models.CollectionAlbums, "album-1", Record{"id": "album-1", "pet_id": "pet-1"}); err != nil {
		t.Fatalf("Put(album) error = %v", err)
	}
	for _, id := range []string{"photo-1", "photo-2"} {
		if err := f.Put(models.CollectionPhotos, id, Record{"id": id, "album_id": "album-1", "pet_id": "pet-1"}); err != nil {
			t.Fatalf("Put(photo) error = %v", err)
		}
	}

	if err := f.DeleteAlbumCascade("album-1"); err != nil {
		t.Fatalf("DeleteAlbumCascade() error = %v", err)
	}

	if _, err := f.Get(models.CollectionAlbums, "album-1"); err != ErrNotFound {
		t.Errorf("album after cascade error = %v, want ErrNotFound", err)
	}
	photos, err := f.GetByIndex(models.CollectionPhotos, "album_id", "album-1")
	if err != nil {
		t.Fatalf("GetByIndex() error = %v", err)
	}
	if len(photos) != 0 {
		t.Errorf("orphaned photos = %d, want 0", len(photos))
	}
}

// TestFallback_recordIsolation verifies callers cannot mutate stored
// records through returned maps.
func TestFallback_recordIsolation(t *testing.T) {
	f, err := NewFallback(t.TempDir())
	if err != nil {
		t.Fatalf("NewFallback() error = %v", err)
	}

	if err := f.Put(models.CollectionOfflinePets, "pet-1", Record{"id": "pet-1", "name": "Mochi", "owner_id": "o"}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := f.Get(models.CollectionOfflinePets, "pet-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	got["name"] = "mutated"

	again, err := f.Get(models.CollectionOfflinePets, "pet-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if again["name"] != "Mochi" {
		t.Errorf("stored record mutated through returned map: name = %v", again["name"])
	}
}

// TestFallback_Settings verifies key/value settings in flat mode.
func TestFallback_Settings(t *testing.T) {
	f, err := NewFallback(t.TempDir())
	if err != nil {
		t.Fatalf("NewFallback() error = %v", err)
	}

	if err := f.SetSetting(models.LastSyncKey(models.CollectionPhotos), "123"); err != nil {
		t.Fatalf("SetSetting() error = %v", err)
	}
	value, ok, err := f.GetSetting(models.LastSyncKey(models.CollectionPhotos))
	if err != nil {
		t.Fatalf("GetSetting() error = %v", err)
	}
	if !ok || value != "123" {
		t.Errorf("GetSetting() = %q, %v, want '123', true", value, ok)
	}
}
