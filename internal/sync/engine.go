// Package sync drains the pending-sync queue against the server when
// connectivity allows, reconciling conflicts on the way.
package sync

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/araeLaver/petchecky-sub002/internal/errors"
	"github.com/araeLaver/petchecky-sub002/internal/logging"
	"github.com/araeLaver/petchecky-sub002/internal/metrics"
	"github.com/araeLaver/petchecky-sub002/internal/models"
	"github.com/araeLaver/petchecky-sub002/internal/store"
	"github.com/araeLaver/petchecky-sub002/internal/sync/conflict"
	"github.com/araeLaver/petchecky-sub002/internal/sync/queue"
)

// State is the engine's coarse state.
type State string

const (
	StateIdle    State = "idle"
	StateSyncing State = "syncing"
)

// DefaultMaxRetries bounds upload attempts per queue item. An item whose
// retry count reaches the ceiling is discarded on the next drain pass.
const DefaultMaxRetries = 3

// Uploader sends one queue item to the server. Exactly one request per
// attempt; a nil return means the server acknowledged with a 2xx. An
// uploader may return *ConflictError to hand the server's current version
// back to the engine for reconciliation.
type Uploader interface {
	Upload(ctx context.Context, item *models.PendingSyncItem) error
}

// ConflictError reports that the server holds a diverged version of the
// record being uploaded.
type ConflictError struct {
	ServerData      map[string]any
	ServerTimestamp int64 // unix milliseconds
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return "sync: server record diverged"
}

// DeadLetterFunc observes items discarded after exhausting their retries.
// Optional; the default behavior is a log line and nothing else.
type DeadLetterFunc func(item *models.PendingSyncItem)

// Status is a snapshot of the engine for the control channel.
type Status struct {
	State    State      `json:"state"`
	LastSync *time.Time `json:"last_sync,omitempty"`
	Pending  int        `json:"pending"`
	LastErr  string     `json:"last_error,omitempty"`
}

// Config tunes an Engine. Zero values select the defaults.
type Config struct {
	MaxRetries int
	Strategy   conflict.Strategy

	// Online reports whether connectivity is currently available. The
	// engine refuses to leave Idle while it returns false. Defaults to
	// always-online.
	Online func() bool

	// DeadLetter, if set, receives retry-exhausted items before they are
	// dropped.
	DeadLetter DeadLetterFunc

	// OnStatus, if set, is invoked after every state change with a fresh
	// snapshot (used to broadcast sync events over the control channel).
	OnStatus func(Status)

	Metrics *metrics.Metrics
	Now     func() time.Time
}

// Engine drains the pending-sync queue. It owns the queue and the
// lastSync settings; nothing else mutates them.
type Engine struct {
	queue     *queue.Queue
	store     store.Store
	settings  store.Settings
	uploaders map[models.Collection]Uploader

	maxRetries int
	strategy   conflict.Strategy
	online     func() bool
	deadLetter DeadLetterFunc
	onStatus   func(Status)
	metrics    *metrics.Metrics
	now        func() time.Time

	mu       sync.Mutex
	syncing  bool
	lastSync *time.Time
	lastErr  error
	pending  int
}

// NewEngine creates an Engine. uploaders maps each syncable collection to
// its upload handler; collections without a handler fail their items (and
// eventually drop them) rather than halting the drain.
func NewEngine(q *queue.Queue, st store.Store, settings store.Settings,
	uploaders map[models.Collection]Uploader, cfg *Config) *Engine {

	if cfg == nil {
		cfg = &Config{}
	}

	e := &Engine{
		queue:      q,
		store:      st,
		settings:   settings,
		uploaders:  uploaders,
		maxRetries: cfg.MaxRetries,
		strategy:   cfg.Strategy,
		online:     cfg.Online,
		deadLetter: cfg.DeadLetter,
		onStatus:   cfg.OnStatus,
		metrics:    cfg.Metrics,
		now:        cfg.Now,
	}

	if e.maxRetries <= 0 {
		e.maxRetries = DefaultMaxRetries
	}
	if !e.strategy.Valid() {
		e.strategy = conflict.Default
	}
	if e.online == nil {
		e.online = func() bool { return true }
	}
	if e.now == nil {
		e.now = time.Now
	}

	return e
}

// Sync runs one drain pass. It is the single entry point for all triggers
// (offline→online transition, periodic timer, manual invocation). Calling
// Sync while a pass is in flight is a no-op that returns immediately, as is
// calling it while connectivity is reported unavailable. The returned error
// is the last failure of this pass only; errors never accumulate across
// passes.
func (e *Engine) Sync(ctx context.Context) error {
	if !e.online() {
		logging.Debug("Skipping sync - offline")
		return nil
	}

	e.mu.Lock()
	if e.syncing {
		e.mu.Unlock()
		logging.Debug("Sync already in progress, skipping")
		return nil
	}
	e.syncing = true
	e.lastErr = nil
	e.mu.Unlock()

	e.publish()

	passErr := e.drain(ctx)

	e.mu.Lock()
	e.syncing = false
	e.lastErr = passErr
	now := e.now()
	e.lastSync = &now
	e.mu.Unlock()

	e.metrics.RecordPass()
	e.publish()

	return passErr
}

// drain processes every currently-queued item in (timestamp, seq) order.
// Items are handled strictly sequentially so two mutations of the same
// server record can never race out of order. One item's failure never
// halts the pass.
func (e *Engine) drain(ctx context.Context) error {
	items, err := e.queue.DequeueAllOrdered()
	if err != nil {
		return err
	}

	var passErr error
	touched := make(map[models.Collection]bool)

	for _, item := range items {
		select {
		case <-ctx.Done():
			e.recordLastSync(touched)
			e.refreshPending()
			return ctx.Err()
		default:
		}

		if item.RetryCount >= e.maxRetries {
			e.drop(item)
			continue
		}

		if err := e.syncItem(ctx, item); err != nil {
			if incErr := e.queue.IncrementRetry(item.ID); incErr != nil {
				logging.Error("Failed to increment retry count", incErr,
					map[string]any{"item_id": item.ID})
			}
			e.metrics.RecordFailed()
			logging.Warn("Upload attempt failed",
				map[string]any{
					"item_id": item.ID,
					"store":   item.Store,
					"retry":   item.RetryCount + 1,
					"error":   err.Error(),
				})
			passErr = err
			continue
		}

		if err := e.queue.Remove(item.ID); err != nil {
			logging.Error("Failed to remove synced item", err,
				map[string]any{"item_id": item.ID})
		}
		e.metrics.RecordSynced()
		touched[item.Store] = true
	}

	e.recordLastSync(touched)
	e.refreshPending()

	return passErr
}

// syncItem uploads one item, reconciling a server conflict if reported.
func (e *Engine) syncItem(ctx context.Context, item *models.PendingSyncItem) error {
	uploader, ok := e.uploaders[item.Store]
	if !ok {
		return errors.New(errors.ErrNoUploadHandler, string(item.Store))
	}

	err := uploader.Upload(ctx, item)
	if err == nil {
		return nil
	}

	conflictErr, ok := err.(*ConflictError)
	if !ok {
		return err
	}

	return e.reconcile(ctx, uploader, item, conflictErr)
}

// reconcile resolves a divergence between the item's payload and the
// server's current record, writes the resolved record back into the
// durable store, and retries the upload once with the resolved payload.
func (e *Engine) reconcile(ctx context.Context, uploader Uploader,
	item *models.PendingSyncItem, ce *ConflictError) error {

	var localData map[string]any
	if err := json.Unmarshal(item.Data, &localData); err != nil {
		return errors.Wrap(errors.ErrSyncConflict, "undecodable local payload", err)
	}

	c := &models.SyncConflict{
		ID:              item.RecordID(),
		Store:           item.Store,
		LocalData:       localData,
		ServerData:      ce.ServerData,
		LocalTimestamp:  item.Timestamp,
		ServerTimestamp: ce.ServerTimestamp,
	}

	resolved := conflict.Resolve(c, e.strategy)

	logging.Info("Conflict resolved",
		map[string]any{
			"id":       c.ID,
			"store":    c.Store,
			"strategy": e.strategy,
		})

	recordID := c.ID
	if id, ok := resolved["id"].(string); ok && id != "" {
		recordID = id
	}
	if recordID != "" {
		if err := e.store.Put(item.Store, recordID, resolved); err != nil {
			return err
		}
	}

	data, err := json.Marshal(resolved)
	if err != nil {
		return errors.Wrap(errors.ErrSyncConflict, "failed to encode resolved record", err)
	}

	retry := *item
	retry.Data = data
	return uploader.Upload(ctx, &retry)
}

// drop discards a retry-exhausted item. By policy this is silent beyond a
// log line; the optional dead-letter hook is the only other observer.
func (e *Engine) drop(item *models.PendingSyncItem) {
	if err := e.queue.Remove(item.ID); err != nil {
		logging.Error("Failed to drop exhausted item", err,
			map[string]any{"item_id": item.ID})
		return
	}

	e.metrics.RecordDropped()
	logging.Warn("Dropping item after max retries",
		map[string]any{
			"item_id":     item.ID,
			"store":       item.Store,
			"type":        item.Type,
			"retry_count": item.RetryCount,
		})

	if e.deadLetter != nil {
		e.deadLetter(item)
	}
}

// recordLastSync upserts the global lastSync timestamp plus one per
// collection touched during the pass.
func (e *Engine) recordLastSync(touched map[models.Collection]bool) {
	ms := strconv.FormatInt(e.now().UnixMilli(), 10)

	if err := e.settings.SetSetting(models.LastSyncGlobalKey, ms); err != nil {
		logging.Error("Failed to record global lastSync", err)
	}
	for c := range touched {
		if err := e.settings.SetSetting(models.LastSyncKey(c), ms); err != nil {
			logging.Error("Failed to record collection lastSync", err,
				map[string]any{"collection": c})
		}
	}
}

// refreshPending recomputes and publishes the pending-item count.
func (e *Engine) refreshPending() {
	count, err := e.queue.Count()
	if err != nil {
		logging.Error("Failed to count pending items", err)
		return
	}

	e.mu.Lock()
	e.pending = count
	e.mu.Unlock()

	e.metrics.SetPending(count)
}

// publish pushes a status snapshot to the configured observer.
func (e *Engine) publish() {
	if e.onStatus == nil {
		return
	}
	e.onStatus(e.Status())
}

// State returns Idle or Syncing.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.syncing {
		return StateSyncing
	}
	return StateIdle
}

// LastSync returns the end time of the most recent drain pass, or nil.
func (e *Engine) LastSync() *time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSync
}

// LastError returns the last pass's final error, or nil.
func (e *Engine) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// PendingCount returns the published pending-item count.
func (e *Engine) PendingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending
}

// Status returns a consistent snapshot for the control channel.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Status{
		Pending:  e.pending,
		LastSync: e.lastSync,
		State:    StateIdle,
	}
	if e.syncing {
		s.State = StateSyncing
	}
	if e.lastErr != nil {
		s.LastErr = e.lastErr.Error()
	}
	return s
}
