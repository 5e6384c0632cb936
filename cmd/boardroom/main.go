package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	brhttp "github.com/Strob0t/Boardroom/internal/adapter/http"
	"github.com/Strob0t/Boardroom/internal/adapter/litellm"
	brnats "github.com/Strob0t/Boardroom/internal/adapter/nats"
	brotel "github.com/Strob0t/Boardroom/internal/adapter/otel"
	"github.com/Strob0t/Boardroom/internal/adapter/postgres"
	llmreviewer "github.com/Strob0t/Boardroom/internal/adapter/reviewer"
	"github.com/Strob0t/Boardroom/internal/adapter/ristretto"
	"github.com/Strob0t/Boardroom/internal/adapter/ws"
	"github.com/Strob0t/Boardroom/internal/config"
	"github.com/Strob0t/Boardroom/internal/logger"
	"github.com/Strob0t/Boardroom/internal/resilience"
	"github.com/Strob0t/Boardroom/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log := logger.New(cfg.Logging)
	log.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"panel_max_parallel", cfg.Deliberation.PanelMaxParallel,
	)

	ctx := context.Background()

	shutdownTelemetry, err := brotel.Init(ctx, cfg.Telemetry, cfg.Logging.Service)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = shutdownTelemetry(context.Background()) }()

	// --- Infrastructure ---

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	log.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	log.Info("migrations applied")

	queue, err := brnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer queue.Close()

	previewCache, err := ristretto.New(cfg.Cache.MaxSizeMB<<20, cfg.Cache.PreviewTTL)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer previewCache.Close()

	metrics, err := brotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Engine ---

	llmClient := litellm.NewClient(cfg.LiteLLM.URL, cfg.LiteLLM.MasterKey)
	llmClient.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))
	collab := llmreviewer.NewLLM(llmClient, cfg.Deliberation)

	hub := ws.NewHub()
	store := postgres.NewStore(pool)

	gateway := service.NewGateway(collab, cfg.Deliberation.CallTimeout, log)
	collector := service.NewCollector(gateway, cfg.Deliberation.PanelMaxParallel, cfg.Deliberation.PhaseTimeout, log)
	rebuttal := service.NewRebuttal(collector, log)
	engine := service.NewDeliberation(store, collector, rebuttal, queue, hub, previewCache, metrics, cfg.Deliberation, log)

	// --- HTTP ---

	handlers := brhttp.NewHandlers(engine)

	r := chi.NewRouter()
	r.Use(brhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(brhttp.SecurityHeaders)
	r.Use(brhttp.RequestID)
	r.Use(brhttp.Logger)
	r.Use(brotel.HTTPMiddleware(cfg.Logging.Service))
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(10 * time.Minute))

	brhttp.MountRoutes(r, handlers, hub.HandleWS)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      10 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "error", err)
		}
	}()

	<-done
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
