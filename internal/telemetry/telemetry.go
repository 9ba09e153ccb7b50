// Package telemetry buffers usage events and ships them in the
// background. Collection is opt-in and disabled by default; a disabled
// client accepts events and silently discards them.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/araeLaver/petchecky-sub002/internal/logging"
)

const (
	defaultBufferSize = 256
	defaultTimeout    = 5 * time.Second
)

// Event is one usage data point.
type Event struct {
	Name      string         `json:"name"`
	Timestamp int64          `json:"timestamp"` // unix milliseconds
	Props     map[string]any `json:"props,omitempty"`
}

// Config tunes a Client.
type Config struct {
	// Enabled turns collection on. Off by default.
	Enabled bool

	// Endpoint receives batched events via POST.
	Endpoint string

	Client *http.Client
	Now    func() time.Time
}

// Client buffers events in memory and flushes them fire-and-forget. It
// never blocks the caller: a full buffer drops the newest event.
type Client struct {
	enabled  bool
	endpoint string
	client   *http.Client
	now      func() time.Time

	mu     sync.Mutex
	buf    []Event
	closed bool
}

// New creates a Client. A nil config yields a disabled client.
func New(cfg *Config) *Client {
	if cfg == nil {
		cfg = &Config{}
	}
	c := &Client{
		enabled:  cfg.Enabled && cfg.Endpoint != "",
		endpoint: cfg.Endpoint,
		client:   cfg.Client,
		now:      cfg.Now,
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: defaultTimeout}
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Enabled reports whether events are being collected.
func (c *Client) Enabled() bool {
	return c.enabled
}

// Track records one event. Never blocks.
func (c *Client) Track(name string, props map[string]any) {
	if !c.enabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || len(c.buf) >= defaultBufferSize {
		return
	}
	c.buf = append(c.buf, Event{
		Name:      name,
		Timestamp: c.now().UnixMilli(),
		Props:     props,
	})
}

// Flush ships buffered events in a background goroutine and returns
// immediately. Delivery failure discards the batch; events are usage
// data, not ledger entries.
func (c *Client) Flush() {
	if !c.enabled {
		return
	}

	c.mu.Lock()
	batch := c.buf
	c.buf = nil
	c.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	go c.send(batch)
}

func (c *Client) send(batch []Event) {
	data, err := json.Marshal(batch)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(data))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		logging.Debug("Telemetry batch dropped", map[string]any{"error": err.Error()})
		return
	}
	resp.Body.Close()
}

// Shutdown flushes whatever remains and marks the client closed.
func (c *Client) Shutdown() {
	c.Flush()

	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}
