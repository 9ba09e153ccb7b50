// Package models tests for queue item helpers.
package models

import (
	"encoding/json"
	"testing"
)

// TestPendingSyncItem_RecordID verifies id extraction from the opaque
// payload.
func TestPendingSyncItem_RecordID(t *testing.T) {
	item := &PendingSyncItem{Data: json.RawMessage(`{"id":"pet-1","name":"Mochi"}`)}
	if got := item.RecordID(); got != "pet-1" {
		t.Errorf("RecordID() = %q, want pet-1", got)
	}

	item.Data = json.RawMessage(`{"name":"no id"}`)
	if got := item.RecordID(); got != "" {
		t.Errorf("RecordID() without id = %q, want empty", got)
	}

	item.Data = json.RawMessage(`not json`)
	if got := item.RecordID(); got != "" {
		t.Errorf("RecordID() on bad payload = %q, want empty", got)
	}
}

// TestMutationType_Valid verifies mutation name validation.
func TestMutationType_Valid(t *testing.T) {
	for _, m := range []MutationType{MutationCreate, MutationUpdate, MutationDelete} {
		if !m.Valid() {
			t.Errorf("Valid(%s) = false, want true", m)
		}
	}
	if MutationType("upsert").Valid() {
		t.Error("Valid(upsert) = true, want false")
	}
}

// TestCollection_Indexes verifies each data collection declares its
// foreign-key indexes.
func TestCollection_Indexes(t *testing.T) {
	cases := []struct {
		collection Collection
		want       []string
	}{
		{CollectionPhotos, []string{"album_id", "pet_id"}},
		{CollectionAlbums, []string{"pet_id"}},
		{CollectionOfflinePets, []string{"owner_id"}},
		{CollectionOfflineChats, []string{"pet_id"}},
		{CollectionPendingSync, nil},
	}
	for _, tc := range cases {
		got := tc.collection.Indexes()
		if len(got) != len(tc.want) {
			t.Errorf("Indexes(%s) = %v, want %v", tc.collection, got, tc.want)
			continue
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("Indexes(%s)[%d] = %s, want %s", tc.collection, i, got[i], tc.want[i])
			}
		}
	}
}

// TestLastSyncKey verifies the settings key format.
func TestLastSyncKey(t *testing.T) {
	if got := LastSyncKey(CollectionPhotos); got != "lastSync_photos" {
		t.Errorf("LastSyncKey(photos) = %q, want lastSync_photos", got)
	}
	if LastSyncGlobalKey != "lastSync_global" {
		t.Errorf("LastSyncGlobalKey = %q, want lastSync_global", LastSyncGlobalKey)
	}
}
