package main

import (
	"context"
	"flag"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"intenserp-api/internal/config"
	"intenserp-api/internal/contentcache"
	"intenserp-api/internal/debug"
	"intenserp-api/internal/driver"
	"intenserp-api/internal/handler"
	"intenserp-api/internal/markdown"
	"intenserp-api/internal/middleware"
	"intenserp-api/internal/pipeline"
	"intenserp-api/internal/state"
	"intenserp-api/internal/store"
	"intenserp-api/pkg/logger"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 15 * time.Second

func main() {
	configPath := flag.String("config", "", "Path to config.yaml/config.json")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load config")
	}

	log, err := logger.New(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize logger")
	}

	if cfg.GetBool("debug.enabled", false) {
		debug.CleanupAllLogs(cfg.GetString("debug.dump_dir", "debug-logs"))
		log.Info("Cleared debug dump directory")
	}

	bus := state.NewBus()
	defer bus.Close()
	go logEvents(log, bus.Subscribe(16))

	st := state.NewManager(bus)

	stats := contentcache.NewStats()
	cache, err := contentcache.New(cfg, stats)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize content cache")
	}
	log.WithField("mode", cfg.GetString("cache.mode", "memory")).Info("Content cache initialized")

	converter := markdown.NewConverter(cache, log)

	history, err := store.New(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize history store")
	}
	if history != nil {
		defer history.Close()
		log.WithField("path", cfg.GetString("history.path", "")).Info("History store initialized")
	}

	remote := driver.NewRemote(cfg, log)
	defer remote.Close()
	st.SetDriver(remote)
	log.WithField("bridge", cfg.GetString("driver.bridge_url", "")).Info("Browser driver attached")

	h := handler.New(cfg, log, pipeline.New(cfg), converter, st, history, stats)

	r := mux.NewRouter()
	r.HandleFunc("/chat/completions", h.ChatCompletions).Methods(http.MethodPost)
	r.HandleFunc("/v1/chat/completions", h.ChatCompletions).Methods(http.MethodPost)
	r.HandleFunc("/models", h.Models).Methods(http.MethodGet)
	r.HandleFunc("/v1/models", h.Models).Methods(http.MethodGet)
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/history", h.History).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	if cfg.GetBool("debug.enabled", false) {
		r.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)
		log.WithField("path", "/debug/pprof/").Info("pprof enabled")
	}

	wrap := middleware.Chain(
		middleware.Trace,
		middleware.Logging(log),
		middleware.Metrics,
	)

	port := cfg.GetString("server.port", "5000")
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           wrap(r),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		sig := <-quit
		log.WithField("signal", sig.String()).Info("Received signal, starting graceful shutdown")

		st.ClearDriver()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("Server shutdown error")
		}
		close(idleConnsClosed)
	}()

	log.WithField("port", port).Info("Server running")
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.WithError(err).Fatal("Server start failed")
	}
	<-idleConnsClosed
	log.Info("Server stopped")
}

// logEvents mirrors lifecycle events onto the application log so operators
// can follow generation turnover without scraping request logs.
func logEvents(log *logrus.Logger, events <-chan state.Event) {
	for e := range events {
		fields := logrus.Fields{"event": string(e.Type)}
		if e.ResponseID != 0 {
			fields["response_id"] = e.ResponseID
		}
		if e.Model != "" {
			fields["model"] = e.Model
		}
		if e.Outcome != "" {
			fields["outcome"] = e.Outcome
		}
		log.WithFields(fields).Debug("State event")
	}
}
