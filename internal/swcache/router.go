package swcache

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/araeLaver/petchecky-sub002/internal/logging"
	"github.com/araeLaver/petchecky-sub002/internal/metrics"
)

// DefaultAPITimeout bounds the network leg of an allow-listed API request
// before the router falls back to cache.
const DefaultAPITimeout = 5 * time.Second

// imageExtensions are the request paths served cache-first.
var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
	".svg":  true,
	".ico":  true,
}

// OfflineEnvelope is the JSON body returned when a request cannot be
// served from network or cache. The field set and names are part of the
// client contract.
type OfflineEnvelope struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// Config tunes a Router.
type Config struct {
	// UpstreamURL is the origin requests are proxied to.
	UpstreamURL string

	// APIAllowList holds path prefixes of read-only API routes that may be
	// served from the api cache when the network fails.
	APIAllowList []string

	// ShellPaths are precached at startup into the app-shell cache. The
	// first entry doubles as the navigation fallback document.
	ShellPaths []string

	// OfflinePagePath, if precached, is served for navigations that miss
	// both network and cache.
	OfflinePagePath string

	ImageLimit   int
	APILimit     int
	DynamicLimit int
	APITimeout   time.Duration

	Client  *http.Client
	Metrics *metrics.Metrics
	Now     func() time.Time
}

// Router serves requests offline-first. Each request is classified once
// (navigation, image, allow-listed API, other) and handed to that class's
// strategy.
type Router struct {
	upstream   string
	allowList  []string
	shellPaths []string
	offline    string
	apiTimeout time.Duration

	client  *http.Client
	metrics *metrics.Metrics
	now     func() time.Time

	shell   *BoundedCache
	images  *BoundedCache
	api     *BoundedCache
	dynamic *BoundedCache
	manager *Manager
}

// NewRouter creates a Router over mgr's standard caches.
func NewRouter(mgr *Manager, cfg *Config) *Router {
	if cfg == nil {
		cfg = &Config{}
	}

	imageLimit := cfg.ImageLimit
	if imageLimit <= 0 {
		imageLimit = DefaultImageLimit
	}
	apiLimit := cfg.APILimit
	if apiLimit <= 0 {
		apiLimit = DefaultAPILimit
	}
	dynamicLimit := cfg.DynamicLimit
	if dynamicLimit <= 0 {
		dynamicLimit = DefaultDynamicLimit
	}

	r := &Router{
		upstream:   strings.TrimSuffix(cfg.UpstreamURL, "/"),
		allowList:  cfg.APIAllowList,
		shellPaths: cfg.ShellPaths,
		offline:    cfg.OfflinePagePath,
		apiTimeout: cfg.APITimeout,
		client:     cfg.Client,
		metrics:    cfg.Metrics,
		now:        cfg.Now,
		shell:      mgr.Cache(CacheShell, 0),
		images:     mgr.Cache(CacheImages, imageLimit),
		api:        mgr.Cache(CacheAPI, apiLimit),
		dynamic:    mgr.Cache(CacheDynamic, dynamicLimit),
		manager:    mgr,
	}

	if r.apiTimeout <= 0 {
		r.apiTimeout = DefaultAPITimeout
	}
	if r.client == nil {
		r.client = &http.Client{}
	}
	if r.now == nil {
		r.now = time.Now
	}

	return r
}

// Precache fills the app-shell cache with the configured shell paths plus
// the offline page. Failures are logged and skipped; a partially warmed
// shell is better than none.
func (r *Router) Precache(ctx context.Context) {
	paths := r.shellPaths
	if r.offline != "" {
		paths = append(append([]string{}, paths...), r.offline)
	}
	for _, p := range paths {
		entry, err := r.fetch(ctx, http.MethodGet, p, 0)
		if err != nil {
			logging.Warn("Precache fetch failed",
				map[string]any{"path": p, "error": err.Error()})
			continue
		}
		r.shell.Put(p, entry)
	}
	logging.Info("App shell precached", map[string]any{"entries": r.shell.Len()})
}

// ServeHTTP classifies the request and applies the matching strategy.
// Non-GET requests always go straight to the network.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		r.passThrough(w, req)
		return
	}

	switch {
	case isNavigation(req):
		r.serveNavigation(w, req)
	case isImage(req.URL.Path):
		r.serveCacheFirst(w, req, r.images, CacheImages)
	case r.isAllowedAPI(req.URL.Path):
		r.serveAPI(w, req)
	default:
		r.serveStaleWhileRevalidate(w, req)
	}
}

// serveNavigation is network-first for page loads: fresh document when
// reachable, then the cached copy, then the offline page, then the app
// shell root document.
func (r *Router) serveNavigation(w http.ResponseWriter, req *http.Request) {
	key := req.URL.Path

	entry, err := r.fetch(req.Context(), req.Method, requestKey(req), 0)
	if err == nil {
		r.shell.Put(key, entry)
		writeEntry(w, entry)
		return
	}

	if cached := r.shell.Get(key); cached != nil {
		r.metrics.RecordCacheHit(CacheShell)
		writeEntry(w, cached)
		return
	}
	r.metrics.RecordCacheMiss(CacheShell)

	if r.offline != "" {
		if page := r.shell.Get(r.offline); page != nil {
			writeEntry(w, page)
			return
		}
	}
	if len(r.shellPaths) > 0 {
		if root := r.shell.Get(r.shellPaths[0]); root != nil {
			writeEntry(w, root)
			return
		}
	}

	r.writeOffline(w, "Page unavailable offline")
}

// serveCacheFirst answers from cache when possible and only then touches
// the network, storing the fresh response for next time.
func (r *Router) serveCacheFirst(w http.ResponseWriter, req *http.Request, cache *BoundedCache, name string) {
	key := requestKey(req)

	if cached := cache.Get(key); cached != nil {
		r.metrics.RecordCacheHit(name)
		writeEntry(w, cached)
		return
	}
	r.metrics.RecordCacheMiss(name)

	entry, err := r.fetch(req.Context(), req.Method, key, 0)
	if err != nil {
		r.writeOffline(w, "Resource unavailable offline")
		return
	}
	if entry.StatusCode == http.StatusOK {
		cache.Put(key, entry)
	}
	writeEntry(w, entry)
}

// serveAPI is network-first with a hard timeout: a reachable-but-slow
// server must not hang an offline-capable client, so after the timeout the
// cached snapshot (if any) is served and the request abandoned.
func (r *Router) serveAPI(w http.ResponseWriter, req *http.Request) {
	key := requestKey(req)

	entry, err := r.fetch(req.Context(), req.Method, key, r.apiTimeout)
	if err == nil {
		if entry.StatusCode == http.StatusOK {
			r.api.Put(key, entry)
		}
		writeEntry(w, entry)
		return
	}

	if cached := r.api.Get(key); cached != nil {
		r.metrics.RecordCacheHit(CacheAPI)
		writeEntry(w, cached)
		return
	}
	r.metrics.RecordCacheMiss(CacheAPI)

	r.writeOffline(w, "API unavailable offline")
}

// serveStaleWhileRevalidate answers from cache immediately when possible
// and refreshes the entry in the background. A miss falls through to the
// network synchronously.
func (r *Router) serveStaleWhileRevalidate(w http.ResponseWriter, req *http.Request) {
	key := requestKey(req)

	if cached := r.dynamic.Get(key); cached != nil {
		r.metrics.RecordCacheHit(CacheDynamic)
		writeEntry(w, cached)

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), r.apiTimeout)
			defer cancel()
			if entry, err := r.fetch(ctx, http.MethodGet, key, 0); err == nil && entry.StatusCode == http.StatusOK {
				r.dynamic.Put(key, entry)
			}
		}()
		return
	}
	r.metrics.RecordCacheMiss(CacheDynamic)

	entry, err := r.fetch(req.Context(), req.Method, key, 0)
	if err != nil {
		r.writeOffline(w, "Resource unavailable offline")
		return
	}
	if entry.StatusCode == http.StatusOK {
		r.dynamic.Put(key, entry)
	}
	writeEntry(w, entry)
}

// CacheURLs prefetches each URL path into the dynamic cache. Individual
// failures are logged and skipped.
func (r *Router) CacheURLs(ctx context.Context, urls []string) {
	for _, u := range urls {
		entry, err := r.fetch(ctx, http.MethodGet, u, 0)
		if err != nil {
			logging.Warn("CacheURLs fetch failed",
				map[string]any{"url": u, "error": err.Error()})
			continue
		}
		if entry.StatusCode == http.StatusOK {
			r.dynamic.Put(u, entry)
		}
	}
}

// ClearCaches empties every cache.
func (r *Router) ClearCaches() {
	r.manager.ClearAll()
	logging.Info("All caches cleared")
}

// Status returns per-cache entry counts.
func (r *Router) Status() map[string]int {
	return r.manager.Status()
}

// passThrough proxies a mutating request without caching.
func (r *Router) passThrough(w http.ResponseWriter, req *http.Request) {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		r.writeOffline(w, "Request body unreadable")
		return
	}

	out, err := http.NewRequestWithContext(req.Context(), req.Method,
		r.upstream+requestKey(req), bytes.NewReader(body))
	if err != nil {
		r.writeOffline(w, "Request unavailable offline")
		return
	}
	out.Header = req.Header.Clone()

	resp, err := r.client.Do(out)
	if err != nil {
		r.writeOffline(w, "Request unavailable offline")
		return
	}
	defer resp.Body.Close()

	entry, err := snapshot(resp)
	if err != nil {
		r.writeOffline(w, "Response unreadable")
		return
	}
	writeEntry(w, entry)
}

// fetch proxies one GET/HEAD to the upstream and snapshots the response.
// timeout 0 means the request context's own deadline applies.
func (r *Router) fetch(ctx context.Context, method, key string, timeout time.Duration) (*Entry, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, r.upstream+key, nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return snapshot(resp)
}

func snapshot(resp *http.Response) (*Entry, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &Entry{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       body,
		StoredAt:   time.Now(),
	}, nil
}

func writeEntry(w http.ResponseWriter, e *Entry) {
	for k, vs := range e.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(e.StatusCode)
	w.Write(e.Body)
}

// writeOffline emits the offline JSON envelope with HTTP 503.
func (r *Router) writeOffline(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusServiceUnavailable)
	json.NewEncoder(w).Encode(OfflineEnvelope{
		Error:     "offline",
		Message:   message,
		Timestamp: r.now().UnixMilli(),
	})
}

func (r *Router) isAllowedAPI(p string) bool {
	for _, prefix := range r.allowList {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

func isNavigation(req *http.Request) bool {
	return req.Method == http.MethodGet &&
		strings.Contains(req.Header.Get("Accept"), "text/html")
}

func isImage(p string) bool {
	return imageExtensions[strings.ToLower(path.Ext(p))]
}

func requestKey(req *http.Request) string {
	if req.URL.RawQuery != "" {
		return req.URL.Path + "?" + req.URL.RawQuery
	}
	return req.URL.Path
}
