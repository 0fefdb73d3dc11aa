package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/marginscope/analytics-engine/internal/config"
	"github.com/marginscope/analytics-engine/internal/dashboard"
	"github.com/marginscope/analytics-engine/internal/ingest"
	"github.com/marginscope/analytics-engine/internal/metrics"
	"github.com/marginscope/analytics-engine/internal/source"
	"github.com/marginscope/analytics-engine/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", "err", err)
		os.Exit(1)
	}

	// --- Initialize store ---
	var st store.Store
	var cleanup []func()

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		st = store.NewPostgresStore(pool)
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if cfg.RedisURL != "" {
			opt, err := redis.ParseURL(cfg.RedisURL)
			if err != nil {
				slog.Error("invalid REDIS_URL", "err", err)
				os.Exit(1)
			}
			rdb := redis.NewClient(opt)
			cleanup = append(cleanup, func() { rdb.Close() })
			st = store.NewCachedStore(st, rdb, cfg.CacheTTL)
			slog.Info("Redis cache enabled")
		}
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory store (data will not persist)")
		st = store.NewMemoryStore()
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Data source ---
	var src source.Source
	switch cfg.DataSource {
	case config.SourceIndexer:
		src = source.NewIndexerClient(cfg.IndexerURL, cfg.FetchTimeout)
		slog.Info("using indexer source", "url", cfg.IndexerURL)
	case config.SourceSnapshot:
		src = source.NewSnapshotFile(cfg.SnapshotPath)
		slog.Info("using snapshot source", "path", cfg.SnapshotPath)
	}

	// --- WebSocket hub ---
	wsHub := dashboard.NewWSHub()
	go wsHub.Run()

	// --- Snapshot refresher ---
	refresher := ingest.NewRefresher(src, st, wsHub, cfg.RefreshInterval)
	refreshCtx, stopRefresh := context.WithCancel(context.Background())
	defer stopRefresh()
	go refresher.Run(refreshCtx)

	// --- Dashboard service ---
	svc := dashboard.NewService(st, refresher, decimal.NewFromFloat(cfg.MaxPoolShare))

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	// CORS middleware for frontend cross-origin requests.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"analytics-engine"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoint for snapshot refresh notifications.
		r.Get("/ws", wsHub.HandleWS)

		// Borrower analytics.
		r.Get("/borrowers", svc.ListBorrowers)
		r.Get("/borrowers/{managerID}", svc.GetBorrower)
		r.Get("/borrowers/{managerID}/durations", svc.GetBorrowerDurations)
		r.Get("/borrowers/{managerID}/risk", svc.GetBorrowerRisk)

		// Rollups.
		r.Get("/pools", svc.ListPools)
		r.Get("/stats", svc.GetStats)
		r.Get("/risk/concentration", svc.GetConcentration)

		// Manual snapshot refresh.
		r.Post("/refresh", svc.Refresh)
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("analytics-engine listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	stopRefresh()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down analytics-engine...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("analytics-engine stopped")
}
