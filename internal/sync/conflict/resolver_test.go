// Package conflict tests for the resolution strategies.
package conflict

import (
	"reflect"
	"testing"

	"github.com/araeLaver/petchecky-sub002/internal/models"
)

func newConflict(localNewer bool) *models.SyncConflict {
	c := &models.SyncConflict{
		ID:    "pet-1",
		Store: models.CollectionOfflinePets,
		LocalData: map[string]any{
			"id":    "pet-1",
			"name":  "Mochi local",
			"notes": "local only",
		},
		ServerData: map[string]any{
			"id":     "pet-1",
			"name":   "Mochi server",
			"weight": 4.2,
		},
	}
	if localNewer {
		c.LocalTimestamp = 2000
		c.ServerTimestamp = 1000
	} else {
		c.LocalTimestamp = 1000
		c.ServerTimestamp = 2000
	}
	return c
}

// TestResolve_useLocal verifies the local record survives verbatim.
func TestResolve_useLocal(t *testing.T) {
	c := newConflict(false)

	got := Resolve(c, StrategyUseLocal)
	if !reflect.DeepEqual(got, c.LocalData) {
		t.Errorf("Resolve(use_local) = %v, want local data", got)
	}
}

// TestResolve_useServer verifies the server record survives verbatim.
func TestResolve_useServer(t *testing.T) {
	c := newConflict(true)

	got := Resolve(c, StrategyUseServer)
	if !reflect.DeepEqual(got, c.ServerData) {
		t.Errorf("Resolve(use_server) = %v, want server data", got)
	}
}

// TestResolve_unknownStrategy verifies fallback to use_server.
func TestResolve_unknownStrategy(t *testing.T) {
	c := newConflict(true)

	got := Resolve(c, Strategy("manual"))
	if !reflect.DeepEqual(got, c.ServerData) {
		t.Errorf("Resolve(unknown) = %v, want server data", got)
	}
}

// TestResolve_merge_localNewer verifies local fields win on overlap when
// local is chronologically newer, with server-only fields preserved.
func TestResolve_merge_localNewer(t *testing.T) {
	c := newConflict(true)

	got := Resolve(c, StrategyMerge)

	if got["name"] != "Mochi local" {
		t.Errorf("name = %v, want local value", got["name"])
	}
	if got["notes"] != "local only" {
		t.Errorf("notes = %v, want preserved", got["notes"])
	}
	if got["weight"] != 4.2 {
		t.Errorf("weight = %v, want server field preserved", got["weight"])
	}
}

// TestResolve_merge_serverNewer verifies server fields win on overlap
// when server is newer or timestamps tie.
func TestResolve_merge_serverNewer(t *testing.T) {
	c := newConflict(false)

	got := Resolve(c, StrategyMerge)
	if got["name"] != "Mochi server" {
		t.Errorf("name = %v, want server value", got["name"])
	}
	if got["notes"] != "local only" {
		t.Errorf("notes = %v, want local field preserved", got["notes"])
	}

	// Equal timestamps count as server-newer.
	c.LocalTimestamp = 1000
	c.ServerTimestamp = 1000
	tied := Resolve(c, StrategyMerge)
	if tied["name"] != "Mochi server" {
		t.Errorf("name on tie = %v, want server value", tied["name"])
	}
}

// TestResolve_merge_shallow verifies nested objects are replaced
// wholesale, not deep-merged.
func TestResolve_merge_shallow(t *testing.T) {
	c := &models.SyncConflict{
		ID:    "chat-1",
		Store: models.CollectionOfflineChats,
		LocalData: map[string]any{
			"id":   "chat-1",
			"meta": map[string]any{"local": true},
		},
		ServerData: map[string]any{
			"id":   "chat-1",
			"meta": map[string]any{"server": true},
		},
		LocalTimestamp:  2000,
		ServerTimestamp: 1000,
	}

	got := Resolve(c, StrategyMerge)
	meta, ok := got["meta"].(map[string]any)
	if !ok {
		t.Fatalf("meta = %T, want map", got["meta"])
	}
	if _, ok := meta["server"]; ok {
		t.Error("nested maps should be replaced wholesale, not deep-merged")
	}
	if _, ok := meta["local"]; !ok {
		t.Error("winner's nested map should survive intact")
	}
}

// TestResolve_idempotent verifies resolving the same conflict twice
// yields identical results.
func TestResolve_idempotent(t *testing.T) {
	c := newConflict(true)

	first := Resolve(c, StrategyMerge)
	second := Resolve(c, StrategyMerge)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Resolve() not idempotent: %v != %v", first, second)
	}
}

// TestResolve_inputIsolation verifies mutating the result does not leak
// into the conflict's inputs.
func TestResolve_inputIsolation(t *testing.T) {
	c := newConflict(false)

	got := Resolve(c, StrategyUseServer)
	got["name"] = "mutated"

	if c.ServerData["name"] != "Mochi server" {
		t.Errorf("server data mutated through result: %v", c.ServerData["name"])
	}
}

// TestStrategy_Valid verifies strategy name validation.
func TestStrategy_Valid(t *testing.T) {
	for _, s := range []Strategy{StrategyUseLocal, StrategyUseServer, StrategyMerge} {
		if !s.Valid() {
			t.Errorf("Valid(%s) = false, want true", s)
		}
	}
	if Strategy("manual").Valid() {
		t.Error("Valid(manual) = true, want false")
	}
}
