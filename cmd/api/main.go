// Package main implements the story graph API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"golang.org/x/time/rate"

	"github.com/storygraph/storygraph/engine/activity"
	"github.com/storygraph/storygraph/engine/explore"
	"github.com/storygraph/storygraph/engine/schema"
	"github.com/storygraph/storygraph/pkg/metrics"
	"github.com/storygraph/storygraph/pkg/mid"
	"github.com/storygraph/storygraph/pkg/repo"
	"github.com/storygraph/storygraph/pkg/resilience"
)

// Config holds all environment-based configuration.
type Config struct {
	Port             string
	Neo4jURL         string
	Neo4jUser        string
	Neo4jPass        string
	SchemaGeneration string
	NATSURL          string
	CORSOrigin       string
	QueryRate        float64
	QueryBurst       int
}

func loadConfig() Config {
	return Config{
		Port:             envOr("PORT", "8080"),
		Neo4jURL:         envOr("NEO4J_URL", "neo4j://localhost:7687"),
		Neo4jUser:        envOr("NEO4J_USER", "neo4j"),
		Neo4jPass:        envOr("NEO4J_PASS", "password"),
		SchemaGeneration: envOr("SCHEMA_GENERATION", "v1"),
		NATSURL:          envOr("NATS_URL", ""),
		CORSOrigin:       envOr("CORS_ORIGIN", "*"),
		QueryRate:        envFloat("QUERY_RATE", 100),
		QueryBurst:       envInt("QUERY_BURST", 20),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Local development reads a .env file; absence is fine.
	_ = godotenv.Load()

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	adapter, err := schema.Select(cfg.SchemaGeneration)
	if err != nil {
		return err
	}
	logger.Info("schema generation selected", "generation", adapter.Generation())

	// --- Connect to Neo4j ---
	driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURL, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPass, ""))
	if err != nil {
		return fmt.Errorf("neo4j driver: %w", err)
	}
	defer driver.Close(ctx)

	m := metrics.New()

	exec := repo.NewExecutor(driver,
		repo.WithLogger(logger),
		repo.WithRate(rate.Limit(cfg.QueryRate), cfg.QueryBurst),
		repo.WithBreaker(resilience.NewBreaker(resilience.DefaultBreakerOpts)),
		repo.WithRetryCounter(m.StoreRetries),
	)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := exec.Ping(pingCtx); err != nil {
		// The executor retries per query, so a cold store at boot is not fatal.
		logger.Warn("store unreachable at startup", "url", cfg.Neo4jURL, "err", err)
	}
	cancel()

	// --- Activity events over NATS (optional) ---
	var events activity.Recorder = activity.Noop{}
	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL, nats.Name("storygraph-api"))
		if err != nil {
			logger.Warn("nats unavailable, activity events disabled", "err", err)
		} else {
			defer nc.Drain()
			events = activity.NewNATSRecorder(nc, "storygraph.activity", logger)
		}
	}

	svc := explore.New(exec, adapter, events, m, logger)

	// --- Build HTTP server ---
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handleHealth(exec))
	mux.Handle("GET /metrics", m.Handler())
	mux.HandleFunc("GET /api/stories", handleStories(svc, logger))
	mux.HandleFunc("GET /api/stories/{id}/statistics", handleStoryStatistics(svc, logger))
	mux.HandleFunc("GET /api/graph/{section}", handleGraph(svc, logger))
	mux.HandleFunc("GET /api/graph/{section}/country/{name}", handleGraphByCountry(svc, logger))
	mux.HandleFunc("GET /api/graph", handleGraphByPath(svc, logger))
	mux.HandleFunc("GET /api/calendar", handleCalendar(svc, logger))
	mux.HandleFunc("GET /api/cluster", handleCluster(svc, logger))
	mux.HandleFunc("GET /api/node-types", handleNodeTypes(svc, logger))
	mux.HandleFunc("POST /api/cypher/execute", handleCypherExecute(svc, logger))

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.RequestID(),
		mid.Logger(logger),
		mid.Metrics(m, mux),
		mid.CORS(cfg.CORSOrigin),
		mid.OTel("storygraph-api"),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port, "generation", adapter.Generation())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}
