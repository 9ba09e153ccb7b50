// Package connectivity tests for transition handling.
package connectivity

import (
	"context"
	"sync/atomic"
	"testing"
)

type countingSyncer struct {
	calls atomic.Int32
}

func (s *countingSyncer) Sync(ctx context.Context) error {
	s.calls.Add(1)
	return nil
}

type countingFlusher struct {
	calls atomic.Int32
}

func (f *countingFlusher) Flush() { f.calls.Add(1) }

// TestWatcher_offlineToOnline verifies exactly one sync per restore edge.
func TestWatcher_offlineToOnline(t *testing.T) {
	syncer := &countingSyncer{}
	w := New(syncer)
	ctx := context.Background()

	w.SetOnline(ctx, false)
	if w.Online() {
		t.Error("Online() = true after going offline")
	}
	if syncer.calls.Load() != 0 {
		t.Errorf("Sync calls after going offline = %d, want 0", syncer.calls.Load())
	}

	w.SetOnline(ctx, true)
	if !w.Online() {
		t.Error("Online() = false after restore")
	}
	if syncer.calls.Load() != 1 {
		t.Errorf("Sync calls after restore = %d, want 1", syncer.calls.Load())
	}
}

// TestWatcher_repeatedState verifies redundant reports trigger nothing.
func TestWatcher_repeatedState(t *testing.T) {
	syncer := &countingSyncer{}
	w := New(syncer)
	ctx := context.Background()

	// Already online at start; repeating it must not sync.
	w.SetOnline(ctx, true)
	w.SetOnline(ctx, true)
	if syncer.calls.Load() != 0 {
		t.Errorf("Sync calls = %d, want 0 for redundant online reports", syncer.calls.Load())
	}

	w.SetOnline(ctx, false)
	w.SetOnline(ctx, false)
	w.SetOnline(ctx, true)
	if syncer.calls.Load() != 1 {
		t.Errorf("Sync calls = %d, want 1 for a single restore edge", syncer.calls.Load())
	}
}

// TestWatcher_lifecycleFlush verifies hide and unload both flush
// telemetry.
func TestWatcher_lifecycleFlush(t *testing.T) {
	flusher := &countingFlusher{}
	w := New(&countingSyncer{}, WithFlusher(flusher))

	w.NotifyHidden()
	w.NotifyUnload()
	if flusher.calls.Load() != 2 {
		t.Errorf("Flush calls = %d, want 2", flusher.calls.Load())
	}
}

// TestWatcher_lifecycleWithoutFlusher verifies nil flusher is tolerated.
func TestWatcher_lifecycleWithoutFlusher(t *testing.T) {
	w := New(&countingSyncer{})
	w.NotifyHidden()
	w.NotifyUnload()
}
