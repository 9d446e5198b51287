package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"variant-server/internal/handlers"
	"variant-server/internal/ledger"
	"variant-server/internal/logging"
	"variant-server/internal/metrics"
	"variant-server/internal/middleware"
	"variant-server/internal/queue"
	"variant-server/internal/service"
	"variant-server/internal/srcset"
	"variant-server/internal/startup"
	"variant-server/internal/transform"
	"variant-server/internal/variant"
	"variant-server/internal/watcher"

	"github.com/gorilla/mux"
)

func main() {
	startTime := time.Now()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	// Initialize the transform engine: pure Go codecs handle the classic
	// formats, libvips backs webp and avif encodes.
	if err := transform.InitVips(); err != nil {
		logging.Warn("libvips initialization failed: %v", err)
	}
	defer transform.ShutdownVips()

	vipsOK := transform.IsVipsAvailable()
	startup.LogEngineInit(vipsOK, vipsOK)
	if err := transform.RequireVips(config.Defaults.Format); err != nil {
		startup.LogFatal("Transform engine: %v", err)
	}

	// Initialize the variation ledger. Bookkeeping is advisory: a broken
	// ledger degrades stats, never serving.
	var led *ledger.Ledger
	if config.LedgerEnabled {
		ledgerStart := time.Now()
		led, err = ledger.Open(context.Background(), config.LedgerPath)
		if err != nil {
			logging.Warn("Ledger unavailable, continuing without bookkeeping: %v", err)
			led = nil
		} else {
			defer led.Close()
			startup.LogLedgerInit(time.Since(ledgerStart))
		}
	}

	metrics.InitializeMetrics()
	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)

	var collector *metrics.Collector
	if led != nil {
		collector = metrics.NewCollector(led, 30*time.Second)
		collector.Start()
	}

	// Named sizes come from the responsive profile: every breakpoint,
	// ratio, and fraction combination gets a key.
	sizes := variant.NewSizes()
	srcset.RegisterNamedSizes(sizes, config.Profile, config.Fractions)

	engine := transform.NewEngine(config.MediaDir)
	svc := service.New(service.Config{
		Root:      config.MediaDir,
		URLPrefix: config.URLPrefix,
		Deferred:  config.Deferred,
		Timeout:   config.GenerationTimeout,
		Profile:   config.Profile,
		Factors:   config.Factors,
		Resolver:  variant.NewResolver(config.Defaults, sizes, config.MediaDir),
		Engine:    engine,
		Queue:     queue.New(config.MediaDir, engine, config.GenerationTimeout),
		Ledger:    led,
	})

	// Watch the media tree so deleting a source sweeps its derivatives
	var watch *watcher.Watcher
	if config.WatcherEnabled {
		watch = watcher.New(config.MediaDir, svc)
		go watch.Watch()
	}
	startup.LogWatcherInit(config.WatcherEnabled)

	// Initialize handlers
	h := handlers.New(svc, led, config)

	// Setup router
	router := setupRouter(h, config.URLPrefix)

	// Log routes dynamically
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	// Apply metrics middleware innermost so it sees the final status codes
	var handler http.Handler = router
	if config.MetricsEnabled {
		handler = middleware.Metrics(middleware.DefaultMetricsConfig())(handler)
	}

	// Apply logging middleware
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler = middleware.Logger(loggingConfig)(handler)

	// Apply compression middleware; image responses pass through untouched
	handler = middleware.Compression(middleware.DefaultCompressionConfig())(handler)

	// Metrics are served on their own port, away from the public surface
	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", h.MetricsHandler())
		metricsSrv = &http.Server{
			Addr:        ":" + config.MetricsPort,
			Handler:     metricsMux,
			ReadTimeout: 15 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != http.ErrServerClosed {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	// Create server. WriteTimeout stays 0 because on-miss fulfillment runs
	// inside the request; the generation timeout bounds it instead.
	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	// Start graceful shutdown handler
	go handleShutdown(srv, metricsSrv, watch, collector)

	h.SetReady()

	// Start server
	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
}

func setupRouter(h *handlers.Handlers, urlPrefix string) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	// Derivative API
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/resolve/{path:.*}", h.Resolve).Methods("GET")
	api.HandleFunc("/srcset/{path:.*}", h.Srcset).Methods("GET")
	api.HandleFunc("/stats", h.Stats).Methods("GET")

	// The media tree; a miss on a derivative name generates on the fly
	r.HandleFunc(urlPrefix+"/{path:.*}", h.ServeMedia).Methods("GET", "HEAD")

	return r
}

func handleShutdown(srv, metricsSrv *http.Server, watch *watcher.Watcher, collector *metrics.Collector) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if watch != nil {
		startup.LogShutdownStep("Stopping source watcher")
		watch.Stop()
		startup.LogShutdownStepComplete("Source watcher stopped")
	}

	if collector != nil {
		startup.LogShutdownStep("Stopping metrics collector")
		collector.Stop()
		startup.LogShutdownStepComplete("Metrics collector stopped")
	}

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownComplete()
}
