package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzhttp"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/bcrypt"

	"github.com/simplyliz/searchd/internal/logging"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const requestIDKey contextKey = "requestID"

// LoggingMiddleware logs HTTP requests and responses.
func LoggingMiddleware(logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			reqID := GetRequestID(r.Context())

			next.ServeHTTP(wrapped, r)

			logger.Info("http request", map[string]interface{}{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     wrapped.statusCode,
				"durationMs": time.Since(start).Milliseconds(),
				"requestId":  reqID,
			})
		})
	}
}

// RecoveryMiddleware recovers from panics and logs them as 500s.
func RecoveryMiddleware(logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered", map[string]interface{}{
						"error":     fmt.Sprintf("%v", err),
						"stack":     string(debug.Stack()),
						"requestId": GetRequestID(r.Context()),
					})
					InternalError(w, "internal server error", fmt.Errorf("%v", err))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// CORSConfig contains CORS configuration.
type CORSConfig struct {
	AllowedOrigins []string // empty means no CORS (same-origin only)
	AllowedMethods []string
	AllowedHeaders []string
}

// DefaultCORSConfig returns a restrictive default CORS configuration.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins: []string{},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-ID", "X-User-Role", "X-User-Context"},
	}
}

// CORSMiddleware adds CORS headers based on configuration.
func CORSMiddleware(config CORSConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowedOrigin := ""
			switch {
			case len(config.AllowedOrigins) == 0:
			case len(config.AllowedOrigins) == 1 && config.AllowedOrigins[0] == "*":
				allowedOrigin = "*"
			default:
				for _, allowed := range config.AllowedOrigins {
					if allowed == origin {
						allowedOrigin = origin
						break
					}
				}
			}

			if allowedOrigin != "" {
				w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
				if allowedOrigin != "*" {
					w.Header().Set("Vary", "Origin")
				}
				w.Header().Set("Access-Control-Allow-Methods", strings.Join(config.AllowedMethods, ", "))
				w.Header().Set("Access-Control-Allow-Headers", strings.Join(config.AllowedHeaders, ", "))
				w.Header().Set("Access-Control-Max-Age", "86400")
			}

			if r.Method == http.MethodOptions {
				if allowedOrigin != "" {
					w.WriteHeader(http.StatusOK)
				} else {
					w.WriteHeader(http.StatusForbidden)
				}
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AuthConfig configures bearer-token authentication. TokenHash is a
// bcrypt hash of a single shared service token (no per-key scopes —
// every caller that holds the token gets the role it presents via
// X-User-Role, governance does the rest).
type AuthConfig struct {
	Enabled   bool
	TokenHash string // bcrypt hash; empty disables comparison and always denies
}

// AuthMiddleware enforces bearer-token authentication against a
// bcrypt-hashed service token. Read-only requests still authenticate,
// since /search passes through governance data that must not be
// reachable anonymously.
func AuthMiddleware(config AuthConfig, logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !config.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(authHeader, bearerPrefix) {
				logger.Warn("missing or malformed authorization header", map[string]interface{}{
					"path": r.URL.Path, "requestId": GetRequestID(r.Context()),
				})
				WriteError(w, fmt.Errorf("missing or malformed Authorization header, expected 'Bearer <token>'"), http.StatusUnauthorized)
				return
			}

			token := strings.TrimPrefix(authHeader, bearerPrefix)
			if err := bcrypt.CompareHashAndPassword([]byte(config.TokenHash), []byte(token)); err != nil {
				logger.Warn("invalid auth token", map[string]interface{}{
					"path": r.URL.Path, "requestId": GetRequestID(r.Context()),
				})
				WriteError(w, fmt.Errorf("invalid token"), http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// CompressionMiddleware negotiates gzip or zstd response compression
// for large /search bodies, per Accept-Encoding preference. zstd is
// tried first when advertised since it beats gzip on both ratio and
// CPU for the JSON payloads this façade returns.
func CompressionMiddleware() func(http.Handler) http.Handler {
	gzipWrap, _ := gzhttp.NewWrapper(gzhttp.CompressionLevel(gzhttp.DefaultCompression))
	return func(next http.Handler) http.Handler {
		gzipped := gzipWrap(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accept := r.Header.Get("Accept-Encoding")
			if strings.Contains(accept, "zstd") {
				zw := &zstdResponseWriter{ResponseWriter: w}
				defer zw.Close()
				w.Header().Set("Content-Encoding", "zstd")
				w.Header().Add("Vary", "Accept-Encoding")
				next.ServeHTTP(zw, r)
				return
			}
			gzipped.ServeHTTP(w, r)
		})
	}
}

// zstdResponseWriter streams response bytes through a zstd encoder.
type zstdResponseWriter struct {
	http.ResponseWriter
	enc *zstd.Encoder
}

func (z *zstdResponseWriter) Write(p []byte) (int, error) {
	if z.enc == nil {
		enc, err := zstd.NewWriter(z.ResponseWriter)
		if err != nil {
			return z.ResponseWriter.Write(p)
		}
		z.enc = enc
	}
	return z.enc.Write(p)
}

func (z *zstdResponseWriter) Close() error {
	if z.enc != nil {
		return z.enc.Close()
	}
	return nil
}

// RequestIDMiddleware adds a unique request ID to each request.
func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get("X-Request-ID")
			if reqID == "" {
				reqID = uuid.New().String()
			}
			ctx := context.WithValue(r.Context(), requestIDKey, reqID)
			r = r.WithContext(ctx)
			w.Header().Set("X-Request-ID", reqID)
			next.ServeHTTP(w, r)
		})
	}
}

// GetRequestID retrieves the request ID from context.
func GetRequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey).(string); ok {
		return reqID
	}
	return ""
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *responseWriter) Write(data []byte) (int, error) {
	if rw.statusCode == 0 {
		rw.statusCode = http.StatusOK
	}
	return rw.ResponseWriter.Write(data)
}

// HashToken bcrypt-hashes a plaintext token for storage in AuthConfig.TokenHash.
func HashToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing auth token: %w", err)
	}
	return string(hash), nil
}

var _ io.Writer = (*zstdResponseWriter)(nil)
