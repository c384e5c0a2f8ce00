package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/simplyliz/searchd/internal/backend"
	"github.com/simplyliz/searchd/internal/backend/sqlitedb"
	"github.com/simplyliz/searchd/internal/governance"
	"github.com/simplyliz/searchd/internal/logging"
	"github.com/simplyliz/searchd/internal/orchestrator"
	"github.com/simplyliz/searchd/internal/seed"
)

// ServerConfig bundles every cross-cutting setting the HTTP surface
// needs at construction time.
type ServerConfig struct {
	Auth        AuthConfig
	CORS        CORSConfig
	Metrics     MetricsConfig
	Compression bool
	// Debug enables wrapped-cause disclosure in error responses; wire
	// this from slowQuery.logQueries, never leave it on by default.
	Debug bool
}

// Server wires the orchestrator, governance engine, and seed subsystem
// behind a chi-routed HTTP surface.
type Server struct {
	router chi.Router
	server *http.Server
	addr   string
	logger *logging.Logger

	orch     *orchestrator.Orchestrator
	gov      *governance.Engine
	database backend.Backend
	cache    backend.CacheBackend
	tables   tableLister

	jobs   *seed.JobStore
	seeder *seed.Seeder

	config  ServerConfig
	metrics *MetricsCollector
}

// tableLister is implemented by the reference database backend; kept
// as a narrow interface so Server does not need the concrete
// sqlitedb.Backend type beyond this one call.
type tableLister interface {
	Tables(ctx context.Context) ([]sqlitedb.TableStats, error)
}

// NewServer constructs a Server. database must be non-nil; cache may
// be nil per the orchestrator's "cache backend is optional" invariant.
func NewServer(addr string, orch *orchestrator.Orchestrator, gov *governance.Engine, database backend.Backend, cache backend.CacheBackend, jobs *seed.JobStore, seeder *seed.Seeder, config ServerConfig, logger *logging.Logger) *Server {
	router := chi.NewRouter()

	s := &Server{
		router:  router,
		addr:    addr,
		logger:  logger,
		orch:    orch,
		gov:     gov,
		database: database,
		cache:   cache,
		jobs:    jobs,
		seeder:  seeder,
		config:  config,
		metrics: NewMetricsCollector(),
	}

	if lister, ok := database.(tableLister); ok {
		s.tables = lister
	}

	SetDebugMode(config.Debug)

	s.applyMiddleware()
	s.routes()

	s.server = &http.Server{
		Addr:    addr,
		Handler: router,
	}

	return s
}

// applyMiddleware installs the middleware chain in order: recovery
// (outermost, so a panic anywhere still gets a clean 500), logging,
// auth, request ID, CORS, then optional compression closest to the
// handlers it compresses responses for.
func (s *Server) applyMiddleware() {
	s.router.Use(RecoveryMiddleware(s.logger))
	s.router.Use(LoggingMiddleware(s.logger))
	s.router.Use(AuthMiddleware(s.config.Auth, s.logger))
	s.router.Use(RequestIDMiddleware())
	s.router.Use(CORSMiddleware(s.config.CORS))
	if s.config.Compression {
		s.router.Use(CompressionMiddleware())
	}
}

// Start begins serving HTTP requests; it blocks until Shutdown is
// called or the server errors.
func (s *Server) Start() error {
	s.logger.Info("searchd api listening", map[string]interface{}{"addr": s.addr})
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// ServeHTTP lets Server itself be used as an http.Handler, e.g. in tests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
