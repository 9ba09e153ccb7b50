// Package sync tests for the HTTP upload handlers.
package sync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/araeLaver/petchecky-sub002/internal/models"
)

func petItem(t *testing.T, mutation models.MutationType, payload map[string]any) *models.PendingSyncItem {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	return &models.PendingSyncItem{
		ID:        "item-1",
		Type:      mutation,
		Store:     models.CollectionOfflinePets,
		Data:      data,
		Timestamp: 1_700_000_000_000,
	}
}

// TestHTTPUploader_create verifies creates POST to the collection path.
func TestHTTPUploader_create(t *testing.T) {
	var gotMethod, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	u := NewHTTPUploader(server.Client(), server.URL, "/api/pets", models.CollectionOfflinePets)
	item := petItem(t, models.MutationCreate, map[string]any{"id": "pet-1", "name": "Mochi"})

	if err := u.Upload(context.Background(), item); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if gotMethod != http.MethodPost || gotPath != "/api/pets" {
		t.Errorf("request = %s %s, want POST /api/pets", gotMethod, gotPath)
	}
}

// TestHTTPUploader_update verifies updates PUT to the record path.
func TestHTTPUploader_update(t *testing.T) {
	var gotMethod, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	u := NewHTTPUploader(server.Client(), server.URL, "/api/pets", models.CollectionOfflinePets)
	item := petItem(t, models.MutationUpdate, map[string]any{"id": "pet-1", "name": "Mochi"})

	if err := u.Upload(context.Background(), item); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if gotMethod != http.MethodPut || gotPath != "/api/pets/pet-1" {
		t.Errorf("request = %s %s, want PUT /api/pets/pet-1", gotMethod, gotPath)
	}
}

// TestHTTPUploader_delete verifies deletes DELETE the record path with no
// body.
func TestHTTPUploader_delete(t *testing.T) {
	var gotMethod, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	u := NewHTTPUploader(server.Client(), server.URL, "/api/pets", models.CollectionOfflinePets)
	item := petItem(t, models.MutationDelete, map[string]any{"id": "pet-1"})

	if err := u.Upload(context.Background(), item); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/api/pets/pet-1" {
		t.Errorf("request = %s %s, want DELETE /api/pets/pet-1", gotMethod, gotPath)
	}
}

// TestHTTPUploader_serverError verifies non-2xx responses surface as
// retryable failures.
func TestHTTPUploader_serverError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	u := NewHTTPUploader(server.Client(), server.URL, "/api/pets", models.CollectionOfflinePets)
	item := petItem(t, models.MutationCreate, map[string]any{"id": "pet-1"})

	err := u.Upload(context.Background(), item)
	if err == nil {
		t.Fatal("Upload() error = nil, want failure on 500")
	}
	if _, ok := err.(*ConflictError); ok {
		t.Error("500 should not decode as a conflict")
	}
}

// TestHTTPUploader_conflict verifies a 409 decodes into ConflictError
// with the server's record.
func TestHTTPUploader_conflict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]any{
			"record":    map[string]any{"id": "pet-1", "name": "Server Name"},
			"updatedAt": 1_700_000_999_999,
		})
	}))
	defer server.Close()

	u := NewHTTPUploader(server.Client(), server.URL, "/api/pets", models.CollectionOfflinePets)
	item := petItem(t, models.MutationUpdate, map[string]any{"id": "pet-1", "name": "Local Name"})

	err := u.Upload(context.Background(), item)
	ce, ok := err.(*ConflictError)
	if !ok {
		t.Fatalf("Upload() error = %v, want *ConflictError", err)
	}
	if ce.ServerData["name"] != "Server Name" {
		t.Errorf("ServerData name = %v, want 'Server Name'", ce.ServerData["name"])
	}
	if ce.ServerTimestamp != 1_700_000_999_999 {
		t.Errorf("ServerTimestamp = %d, want 1700000999999", ce.ServerTimestamp)
	}
}

// TestHTTPUploader_deleteWithoutID verifies a delete payload missing its
// id is rejected before any request.
func TestHTTPUploader_deleteWithoutID(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer server.Close()

	u := NewHTTPUploader(server.Client(), server.URL, "/api/pets", models.CollectionOfflinePets)
	item := petItem(t, models.MutationDelete, map[string]any{"name": "no id"})

	if err := u.Upload(context.Background(), item); err == nil {
		t.Error("Upload() error = nil, want rejection")
	}
	if requests != 0 {
		t.Errorf("requests = %d, want 0", requests)
	}
}

// TestHTTPUploader_wrongCollection verifies routing mismatches are
// rejected.
func TestHTTPUploader_wrongCollection(t *testing.T) {
	u := NewHTTPUploader(nil, "http://localhost", "/api/pets", models.CollectionOfflinePets)
	item := petItem(t, models.MutationCreate, map[string]any{"id": "x"})
	item.Store = models.CollectionPhotos

	if err := u.Upload(context.Background(), item); err == nil {
		t.Error("Upload() error = nil, want collection mismatch rejection")
	}
}

// TestNewUploaders verifies every syncable collection gets a handler.
func TestNewUploaders(t *testing.T) {
	uploaders := NewUploaders(nil, "http://localhost:8080")

	for _, c := range models.DataCollections() {
		if _, ok := uploaders[c]; !ok {
			t.Errorf("no uploader for collection %s", c)
		}
	}
}
