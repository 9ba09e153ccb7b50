// Package main runs the offline daemon: durable local store, pending-sync
// queue and engine, request cache layer, and the localhost control
// channel.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/araeLaver/petchecky-sub002/internal/config"
	"github.com/araeLaver/petchecky-sub002/internal/connectivity"
	"github.com/araeLaver/petchecky-sub002/internal/db"
	"github.com/araeLaver/petchecky-sub002/internal/logging"
	"github.com/araeLaver/petchecky-sub002/internal/metrics"
	"github.com/araeLaver/petchecky-sub002/internal/store"
	"github.com/araeLaver/petchecky-sub002/internal/swcache"
	isync "github.com/araeLaver/petchecky-sub002/internal/sync"
	"github.com/araeLaver/petchecky-sub002/internal/sync/conflict"
	"github.com/araeLaver/petchecky-sub002/internal/sync/queue"
	"github.com/araeLaver/petchecky-sub002/internal/sync/scheduler"
	"github.com/araeLaver/petchecky-sub002/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Error("Failed to load configuration", err)
		os.Exit(1)
	}
	logging.Init(os.Stderr, logging.ParseLevel(cfg.LogLevel))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage: SQLite with a flat-file fallback. Store init failure must
	// never be fatal.
	var (
		st       store.Store
		settings store.Settings
		backend  queue.Backend
		database *db.DB
	)
	database, err = openDatabase(cfg.Storage.DataDir)
	if err != nil {
		logging.Warn("SQLite unavailable, using flat-file fallback store",
			map[string]any{"error": err.Error()})
		fb, fbErr := store.NewFallback(cfg.Storage.DataDir)
		if fbErr != nil {
			logging.Error("Fallback store unavailable", fbErr)
			os.Exit(1)
		}
		st = fb
		settings = fb
		fileBackend, qErr := queue.NewFileBackend(cfg.Storage.DataDir)
		if qErr != nil {
			logging.Error("Queue backend unavailable", qErr)
			os.Exit(1)
		}
		backend = fileBackend
	} else {
		defer database.Close()
		sq := store.NewSQLite(database)
		st = sq
		settings = sq
		backend = queue.NewSQLiteBackend(database)
		store.MigrateLegacy(sq, cfg.Storage.DataDir)
	}

	q := queue.New(backend)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	tel := telemetry.New(&telemetry.Config{
		Enabled:  cfg.Telemetry.Enabled,
		Endpoint: cfg.Telemetry.Endpoint,
	})

	// Cache layer in front of the upstream API.
	mgr := swcache.NewManager()
	router := swcache.NewRouter(mgr, &swcache.Config{
		UpstreamURL:     cfg.Sync.APIBaseURL,
		APIAllowList:    cfg.Cache.APIAllowList,
		ShellPaths:      cfg.Cache.ShellPaths,
		OfflinePagePath: cfg.Cache.OfflinePagePath,
		ImageLimit:      cfg.Cache.ImageLimit,
		APILimit:        cfg.Cache.APILimit,
		DynamicLimit:    cfg.Cache.DynamicLimit,
		APITimeout:      cfg.Cache.APITimeout,
		Metrics:         m,
	})

	var watcher *connectivity.Watcher
	var hub *WSHub

	uploaders := isync.NewUploaders(nil, cfg.Sync.APIBaseURL)
	engine := isync.NewEngine(q, st, settings, uploaders, &isync.Config{
		MaxRetries: cfg.Sync.MaxRetries,
		Strategy:   conflict.Strategy(cfg.Sync.Strategy),
		Online:     func() bool { return watcher.Online() },
		Metrics:    m,
		OnStatus: func(s isync.Status) {
			if hub == nil {
				return
			}
			switch {
			case s.State == isync.StateSyncing:
				hub.BroadcastSyncStarted(s.Pending)
			case s.LastErr != "":
				hub.BroadcastSyncFailed(s.Pending, s.LastErr)
			default:
				hub.BroadcastSyncCompleted(s.Pending)
			}
		},
	})

	watcher = connectivity.New(engine,
		connectivity.WithFlusher(tel),
		connectivity.WithProbe(cfg.Sync.APIBaseURL+"/api/health", 0),
	)

	hub = NewWSHub(&daemonController{router: router})

	sched := scheduler.New(engine, scheduler.WithInterval(cfg.Sync.Interval))
	sched.Start(ctx)
	watcher.StartProbe(ctx)
	go router.Precache(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", handleHealth(engine))
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/ws", HandleWebSocket(hub))
	mux.Handle("/", router)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
	}

	go func() {
		logging.Info("Offline daemon listening",
			map[string]any{"addr": cfg.ListenAddr})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("HTTP server failed", err)
			cancel()
		}
	}()

	// One sync pass at startup clears any backlog from the previous run.
	go func() {
		if err := engine.Sync(ctx); err != nil {
			logging.Warn("Startup sync pass ended with error",
				map[string]any{"error": err.Error()})
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logging.Info("Shutting down", map[string]any{"signal": sig.String()})
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	sched.Stop()
	watcher.NotifyUnload()
	watcher.Stop()
	tel.Shutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Warn("HTTP shutdown incomplete", map[string]any{"error": err.Error()})
	}
	if err := st.Close(); err != nil {
		logging.Warn("Store close failed", map[string]any{"error": err.Error()})
	}
}

// openDatabase opens and migrates the SQLite store.
func openDatabase(dataDir string) (*db.DB, error) {
	database, err := db.Open(dataDir)
	if err != nil {
		return nil, err
	}
	migrator := db.NewMigrator(database.DB)
	if err := migrator.Initialize(); err != nil {
		database.Close()
		return nil, err
	}
	if err := migrator.Up(); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

// daemonController adapts the cache router to the WS control surface.
type daemonController struct {
	router *swcache.Router
}

// SkipWaiting is the activation handshake. The daemon has no versioned
// worker to swap, so activation is immediate.
func (c *daemonController) SkipWaiting() {
	logging.Info("Activation requested, already active")
}

func (c *daemonController) CacheURLs(urls []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	c.router.CacheURLs(ctx, urls)
}

func (c *daemonController) ClearCaches() {
	c.router.ClearCaches()
}

func (c *daemonController) CacheStatus() map[string]int {
	return c.router.Status()
}

// handleHealth reports liveness plus a sync status snapshot.
func handleHealth(engine *isync.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status": "ok",
			"sync":   engine.Status(),
		})
	}
}
