package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/simplyliz/searchd/internal/api"
	"github.com/simplyliz/searchd/internal/backend/rediscache"
	"github.com/simplyliz/searchd/internal/backend/sqlitedb"
	"github.com/simplyliz/searchd/internal/config"
	"github.com/simplyliz/searchd/internal/governance"
	"github.com/simplyliz/searchd/internal/logging"
	"github.com/simplyliz/searchd/internal/merge"
	"github.com/simplyliz/searchd/internal/orchestrator"
	"github.com/simplyliz/searchd/internal/seed"
	"github.com/simplyliz/searchd/internal/version"
)

var (
	serveConfigPath    string
	serveAddr          string
	serveAuthToken     string
	serveCORSAllow     string
	serveReseedCron    string
	serveReseedDataset string
	serveReseedCount   int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the searchd HTTP API server",
	Long: `Start the searchd HTTP API server, exposing /health, /search, /tables,
/seed, /progress, and /metrics over a governed, circuit-breaker-protected
facade in front of the database and (optional) cache backends.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to a searchd config file (YAML or TOML)")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Override the configured listen address (host:port)")
	serveCmd.Flags().StringVar(&serveAuthToken, "auth-token", "", "Bearer token required on requests (env: SEARCHD_AUTH_TOKEN)")
	serveCmd.Flags().StringVar(&serveCORSAllow, "cors-allow", "", "Comma-separated allowed CORS origins (empty=same-origin only, '*'=all)")
	serveCmd.Flags().StringVar(&serveReseedCron, "reseed-cron", "", "5-field cron spec for periodic re-seeding (e.g. '0 */6 * * *'); empty disables")
	serveCmd.Flags().StringVar(&serveReseedDataset, "reseed-dataset", "", "Dataset to re-seed on the reseed-cron schedule")
	serveCmd.Flags().IntVar(&serveReseedCount, "reseed-count", 100, "Document count per scheduled re-seed")
}

func runServe(cmd *cobra.Command, args []string) error {
	result, err := config.Load(serveConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := result.Config
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.New(logging.Config{Format: logging.Format(cfg.Logging.Format), Level: logging.Level(cfg.Logging.Level)})

	addr := cfg.Server.ListenAddr
	if serveAddr != "" {
		addr = serveAddr
	}

	ctx := context.Background()

	database := sqlitedb.New(sqlitedb.Config{
		DSN:      cfg.Backends.Database.DSN,
		MinConns: cfg.Backends.Database.MinConns,
		MaxConns: cfg.Backends.Database.MaxConns,
	}, logger.With(map[string]interface{}{"component": "database"}))
	if err := database.Connect(ctx); err != nil {
		return fmt.Errorf("connecting to database backend: %w", err)
	}

	var cache *rediscache.Backend
	if cfg.Backends.Cache.Enabled {
		cache = rediscache.New(rediscache.Config{Addr: cfg.Backends.Cache.Addr}, logger.With(map[string]interface{}{"component": "cache"}))
		if err := cache.Connect(ctx); err != nil {
			logger.Warn("cache backend unavailable at startup, continuing without it", map[string]interface{}{"error": err.Error()})
			cache = nil
		}
	}

	gov, err := governance.NewEngine(governance.Config{
		PolicyDir:       cfg.Governance.PolicyDir,
		RegoFallback:    cfg.Governance.RegoFallback,
		RegoModule:      cfg.Governance.RegoModule,
		TokenizerSize:   cfg.Governance.TokenizerSize,
		AuditBufferSize: cfg.Governance.AuditBufferSize,
	}, nil)
	if err != nil {
		return fmt.Errorf("constructing governance engine: %w", err)
	}

	mergeAlgorithm := merge.Algorithm(cfg.Merge.Algorithm)
	orch := orchestrator.New(orchestrator.Config{
		HybridEnabled: cfg.HybridSearch.Enabled,
		Merge: merge.Config{
			Algorithm:   mergeAlgorithm,
			CacheWeight: cfg.Merge.CacheWeight,
			DBWeight:    cfg.Merge.DBWeight,
		},
		SlowQueryThreshold: time.Duration(cfg.SlowQuery.ThresholdMs) * time.Millisecond,
		LogQueries:         cfg.SlowQuery.LogQueries,
		DefaultCacheTTL:    time.Duration(cfg.Cache.DefaultTTLSeconds) * time.Second,
	}, database, cacheBackendOrNil(cache), orchestrator.BreakerConfig{
		FailureThreshold: cfg.CircuitBreaker.FailureThreshold,
		SuccessThreshold: cfg.CircuitBreaker.SuccessThreshold,
		RecoveryTimeout:  time.Duration(cfg.CircuitBreaker.RecoveryTimeoutSecs) * time.Second,
	}, time.Duration(cfg.HealthCache.TTLSeconds)*time.Second, logger.With(map[string]interface{}{"component": "orchestrator"}))

	jobs := seed.NewJobStore()
	seeder := seed.NewSeeder(database, jobs, logger.With(map[string]interface{}{"component": "seed"}), nil)

	var scheduler *seed.Scheduler
	if serveReseedCron != "" {
		if serveReseedDataset == "" {
			return fmt.Errorf("--reseed-dataset is required when --reseed-cron is set")
		}
		scheduler = seed.NewScheduler(seeder, logger.With(map[string]interface{}{"component": "scheduler"}))
		if _, err := scheduler.Schedule(serveReseedCron, serveReseedDataset, serveReseedCount); err != nil {
			return fmt.Errorf("scheduling periodic re-seed: %w", err)
		}
		scheduler.Start()
	}

	serverConfig := api.ServerConfig{
		Auth:        api.AuthConfig{Enabled: false},
		CORS:        api.DefaultCORSConfig(),
		Metrics:     api.DefaultMetricsConfig(),
		Compression: true,
		Debug:       cfg.SlowQuery.LogQueries,
	}

	token := serveAuthToken
	if token == "" {
		token = os.Getenv("SEARCHD_AUTH_TOKEN")
	}
	if token != "" {
		hash, err := api.HashToken(token)
		if err != nil {
			return fmt.Errorf("hashing auth token: %w", err)
		}
		serverConfig.Auth = api.AuthConfig{Enabled: true, TokenHash: hash}
	} else {
		logger.Warn("auth disabled - set --auth-token or SEARCHD_AUTH_TOKEN to require a bearer token", nil)
	}

	if serveCORSAllow != "" {
		origins := strings.Split(serveCORSAllow, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		serverConfig.CORS.AllowedOrigins = origins
	}

	server := api.NewServer(addr, orch, gov, database, cacheBackendOrNil(cache), jobs, seeder, serverConfig, logger.With(map[string]interface{}{"component": "api"}))

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		fmt.Printf("searchd %s listening on http://%s\n", version.Version, addr)
		fmt.Println("Press Ctrl+C to stop")
		serverErr <- server.Start()
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Error("server error", map[string]interface{}{"error": err.Error()})
			return err
		}
	case sig := <-shutdown:
		logger.Info("received shutdown signal", map[string]interface{}{"signal": sig.String()})

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if scheduler != nil {
			<-scheduler.Stop().Done()
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("error during shutdown", map[string]interface{}{"error": err.Error()})
			return err
		}
		if database != nil {
			_ = database.Disconnect(shutdownCtx)
		}
		if cache != nil {
			_ = cache.Disconnect(shutdownCtx)
		}

		logger.Info("server stopped gracefully", nil)
	}

	return nil
}
