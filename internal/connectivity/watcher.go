// Package connectivity tracks whether the network is reachable and turns
// transitions into sync triggers.
package connectivity

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/araeLaver/petchecky-sub002/internal/logging"
)

// DefaultProbeInterval is the gap between reachability probes when the
// probe loop is running.
const DefaultProbeInterval = 15 * time.Second

// Syncer is the engine surface the watcher triggers.
type Syncer interface {
	Sync(ctx context.Context) error
}

// Flusher is the telemetry surface drained on hide/unload.
type Flusher interface {
	Flush()
}

// Watcher holds the current online flag and fires exactly one sync pass
// per offline-to-online transition. Transitions arrive either from the
// embedding environment via SetOnline or from the optional HTTP probe
// loop.
type Watcher struct {
	syncer   Syncer
	flusher  Flusher
	probeURL string
	interval time.Duration
	client   *http.Client

	mu     sync.Mutex
	online bool

	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithProbe enables the background reachability probe against url.
func WithProbe(url string, interval time.Duration) Option {
	return func(w *Watcher) {
		w.probeURL = url
		if interval > 0 {
			w.interval = interval
		}
	}
}

// WithFlusher attaches a telemetry client to drain on hide/unload.
func WithFlusher(f Flusher) Option {
	return func(w *Watcher) { w.flusher = f }
}

// New creates a Watcher that starts in the online state.
func New(syncer Syncer, opts ...Option) *Watcher {
	w := &Watcher{
		syncer:   syncer,
		interval: DefaultProbeInterval,
		online:   true,
		client:   &http.Client{Timeout: 5 * time.Second},
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Online reports the current connectivity flag.
func (w *Watcher) Online() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.online
}

// SetOnline records a connectivity change. The offline-to-online edge
// triggers one sync pass; repeated reports of the same state do nothing.
func (w *Watcher) SetOnline(ctx context.Context, online bool) {
	w.mu.Lock()
	wasOnline := w.online
	w.online = online
	w.mu.Unlock()

	if online == wasOnline {
		return
	}

	if online {
		logging.Info("Connection restored, triggering sync")
		if err := w.syncer.Sync(ctx); err != nil {
			logging.Warn("Reconnect sync pass ended with error",
				map[string]any{"error": err.Error()})
		}
	} else {
		logging.Info("Connection lost")
	}
}

// NotifyHidden handles the app moving to the background: telemetry is
// flushed fire-and-forget so nothing is lost if the process is killed.
func (w *Watcher) NotifyHidden() {
	if w.flusher != nil {
		w.flusher.Flush()
	}
}

// NotifyUnload handles imminent shutdown. Same contract as NotifyHidden.
func (w *Watcher) NotifyUnload() {
	if w.flusher != nil {
		w.flusher.Flush()
	}
}

// StartProbe launches the reachability loop, if a probe URL was
// configured. Each probe HEADs the URL; any response at all counts as
// reachable, only a transport error counts as offline.
func (w *Watcher) StartProbe(ctx context.Context) {
	if w.probeURL == "" {
		return
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				w.SetOnline(ctx, w.probe(ctx))
			case <-w.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (w *Watcher) probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, w.probeURL, nil)
	if err != nil {
		return false
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

// Stop halts the probe loop.
func (w *Watcher) Stop() {
	w.once.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}
