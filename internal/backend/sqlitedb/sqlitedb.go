// Package sqlitedb is the reference Database backend, a pure-Go
// SQLite provider implementing backend.Backend over a single
// "search_documents" table.
package sqlitedb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/simplyliz/searchd/internal/backend"
	searcherrors "github.com/simplyliz/searchd/internal/errors"
	"github.com/simplyliz/searchd/internal/logging"
)

// Config configures the pool the Database backend owns. Per the
// spec's connection pool model, the orchestrator never manages
// individual connections.
type Config struct {
	DSN      string
	MinConns int
	MaxConns int
}

// Backend is the reference Database provider.
type Backend struct {
	cfg       Config
	logger    *logging.Logger
	conn      *sql.DB
	connected bool
}

// New constructs a Backend without opening a connection; call
// Connect to open the pool.
func New(cfg Config, logger *logging.Logger) *Backend {
	return &Backend{cfg: cfg, logger: logger}
}

// Connect opens the pool and sets the pragmas needed for concurrent-safe
// access over a single file (WAL journaling, a busy timeout).
func (b *Backend) Connect(ctx context.Context) error {
	conn, err := sql.Open("sqlite", b.cfg.DSN)
	if err != nil {
		return searcherrors.NewConnectionError("database", err)
	}

	conn.SetMaxOpenConns(b.cfg.MaxConns)
	conn.SetMaxIdleConns(b.cfg.MinConns)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := conn.ExecContext(ctx, p); err != nil {
			conn.Close()
			return searcherrors.NewConnectionError("database", err)
		}
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return searcherrors.NewConnectionError("database", err)
	}

	if err := ensureSchema(ctx, conn); err != nil {
		conn.Close()
		return searcherrors.NewConfigError("failed to initialize search_documents schema", err)
	}

	b.conn = conn
	b.connected = true
	b.logger.Info("database backend connected", map[string]interface{}{"dsn": redactDSN(b.cfg.DSN)})
	return nil
}

// Disconnect closes the pool.
func (b *Backend) Disconnect(ctx context.Context) error {
	if b.conn == nil {
		return nil
	}
	b.connected = false
	return b.conn.Close()
}

// IsConnected reports the last-known connection state.
func (b *Backend) IsConnected() bool {
	return b.connected
}

// Health probes the pool with a cheap round trip and reports row
// counts as the opaque "memory usage" reading.
func (b *Backend) Health(ctx context.Context) (backend.HealthStatus, error) {
	if !b.connected {
		return backend.Unhealthy("not connected"), nil
	}

	start := time.Now()
	var count int64
	err := b.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM search_documents").Scan(&count)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return backend.HealthStatus{
			IsConnected:       true,
			IsSearchAvailable: false,
			LatencyMs:         -1,
			Status:            backend.HealthDegraded,
			Errors:            []string{err.Error()},
		}, nil
	}

	return backend.HealthStatus{
		IsConnected:       true,
		IsSearchAvailable: true,
		LatencyMs:         latency,
		KeyCount:          count,
		MemoryUsage:       fmt.Sprintf("%d rows", count),
		Status:            backend.HealthHealthy,
	}, nil
}

// Search runs a LIKE-based full-text query honoring limit, offset,
// and sort order. opts.Filters is ignored: no filter is translated into
// SQL, and nothing downstream re-applies it.
func (b *Backend) Search(ctx context.Context, query string, opts backend.SearchOptions) ([]backend.SearchResult, error) {
	if !b.connected {
		return nil, searcherrors.NewConnectionError("database", fmt.Errorf("not connected"))
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}

	orderBy := "relevance_score DESC"
	switch opts.SortBy {
	case backend.SortDate:
		orderBy = "updated_at"
	case backend.SortName:
		orderBy = "title"
	}
	if opts.SortOrder == backend.SortAsc {
		orderBy = strings.TrimSuffix(orderBy, " DESC")
	} else if !strings.HasSuffix(orderBy, "DESC") {
		orderBy += " DESC"
	}

	stmt := fmt.Sprintf(`
		SELECT id, kind, custom_kind, title, relevance_score, match_type,
		       custom_match_type, description, author, category, language,
		       visibility, tags, created_at, updated_at
		FROM search_documents
		WHERE title LIKE ? OR description LIKE ? OR author LIKE ?
		ORDER BY %s
		LIMIT ? OFFSET ?`, orderBy)

	like := "%" + query + "%"
	rows, err := b.conn.QueryContext(ctx, stmt, like, like, like, limit, opts.Offset)
	if err != nil {
		return nil, searcherrors.NewSearchError("database", err)
	}
	defer rows.Close()

	var results []backend.SearchResult
	for rows.Next() {
		var r backend.SearchResult
		var tags string
		var createdAt, updatedAt sql.NullTime
		if err := rows.Scan(&r.ID, &r.Kind, &r.CustomKind, &r.Title, &r.RelevanceScore,
			&r.MatchType, &r.CustomMatchType, &r.Description, &r.Author, &r.Category,
			&r.Language, &r.Visibility, &tags, &createdAt, &updatedAt); err != nil {
			return nil, searcherrors.NewSearchError("database", err)
		}
		if tags != "" {
			r.Tags = strings.Split(tags, ",")
		}
		if createdAt.Valid {
			r.CreatedAt = createdAt.Time
		}
		if updatedAt.Valid {
			r.UpdatedAt = updatedAt.Time
		}
		r.ClampScore()
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, searcherrors.NewSearchError("database", err)
	}
	return results, nil
}

// Conn exposes the underlying pool for the seeding sidecar.
func (b *Backend) Conn() *sql.DB {
	return b.conn
}

// InsertDocument upserts a single search document, the write path the
// seeding sidecar uses to materialize synthetic or live rows.
func (b *Backend) InsertDocument(ctx context.Context, r backend.SearchResult) error {
	if !b.connected {
		return searcherrors.NewConnectionError("database", fmt.Errorf("not connected"))
	}
	_, err := b.conn.ExecContext(ctx, `
		INSERT INTO search_documents
			(id, kind, custom_kind, title, relevance_score, match_type, custom_match_type,
			 description, author, category, language, visibility, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, relevance_score=excluded.relevance_score,
			description=excluded.description, updated_at=excluded.updated_at`,
		r.ID, r.Kind, r.CustomKind, r.Title, r.RelevanceScore, r.MatchType, r.CustomMatchType,
		r.Description, r.Author, r.Category, r.Language, r.Visibility, strings.Join(r.Tags, ","),
		r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return searcherrors.NewSearchError("database", err)
	}
	return nil
}

// TableStats describes one dataset's row count and most recent write,
// as reported by the /tables endpoint.
type TableStats struct {
	Dataset      string    `json:"dataset"`
	DocumentCount int64    `json:"documentCount"`
	LastUpdated  time.Time `json:"lastUpdated,omitempty"`
}

// Tables lists the datasets (custom_kind, or kind where custom_kind is
// empty) currently materialized
// in search_documents, with row counts and last-write time.
func (b *Backend) Tables(ctx context.Context) ([]TableStats, error) {
	if !b.connected {
		return nil, searcherrors.NewConnectionError("database", fmt.Errorf("not connected"))
	}

	rows, err := b.conn.QueryContext(ctx, `
		SELECT COALESCE(NULLIF(custom_kind, ''), kind) AS dataset, COUNT(*), MAX(updated_at)
		FROM search_documents
		GROUP BY dataset
		ORDER BY dataset`)
	if err != nil {
		return nil, searcherrors.NewSearchError("database", err)
	}
	defer rows.Close()

	var stats []TableStats
	for rows.Next() {
		var s TableStats
		var lastUpdated sql.NullTime
		if err := rows.Scan(&s.Dataset, &s.DocumentCount, &lastUpdated); err != nil {
			return nil, searcherrors.NewSearchError("database", err)
		}
		if lastUpdated.Valid {
			s.LastUpdated = lastUpdated.Time
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, searcherrors.NewSearchError("database", err)
	}
	return stats, nil
}

func ensureSchema(ctx context.Context, conn *sql.DB) error {
	_, err := conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS search_documents (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			custom_kind TEXT,
			title TEXT NOT NULL,
			relevance_score INTEGER NOT NULL DEFAULT 0,
			match_type TEXT,
			custom_match_type TEXT,
			description TEXT,
			author TEXT,
			category TEXT,
			language TEXT,
			visibility TEXT,
			tags TEXT,
			created_at DATETIME,
			updated_at DATETIME
		)`)
	return err
}

func redactDSN(dsn string) string {
	if i := strings.Index(dsn, "?"); i >= 0 {
		return dsn[:i]
	}
	return dsn
}
