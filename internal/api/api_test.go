package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/simplyliz/searchd/internal/backend/sqlitedb"
	"github.com/simplyliz/searchd/internal/governance"
	"github.com/simplyliz/searchd/internal/logging"
	"github.com/simplyliz/searchd/internal/orchestrator"
	"github.com/simplyliz/searchd/internal/seed"
)

func testLogger() *logging.Logger {
	return logging.New(logging.Config{Level: logging.ErrorLevel, Output: &bytes.Buffer{}})
}

func writeTestPolicy(t *testing.T, dir, dataset, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, dataset+".yaml"), []byte(body), 0o600); err != nil {
		t.Fatalf("writing test policy: %v", err)
	}
}

func newTestServer(t *testing.T) (*Server, *sqlitedb.Backend) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db := sqlitedb.New(sqlitedb.Config{DSN: dsn, MinConns: 1, MaxConns: 1}, testLogger())
	if err := db.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	policyDir := t.TempDir()
	writeTestPolicy(t, policyDir, "books", `
version: "1"
roles:
  - id: analyst
    row_filter: "true"
    column_masks: {}
`)
	gov, err := governance.NewEngine(governance.Config{PolicyDir: policyDir, TokenizerSize: 128, AuditBufferSize: 100}, nil)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	orch := orchestrator.New(orchestrator.Config{DefaultCacheTTL: time.Minute}, db, nil, orchestrator.DefaultBreakerConfig(), time.Second, testLogger())

	jobs := seed.NewJobStore()
	seeder := seed.NewSeeder(db, jobs, testLogger(), nil)

	config := ServerConfig{
		Auth:        AuthConfig{Enabled: false},
		CORS:        DefaultCORSConfig(),
		Metrics:     DefaultMetricsConfig(),
		Compression: false,
	}

	s := NewServer(":0", orch, gov, db, nil, jobs, seeder, config, testLogger())
	return s, db
}

func TestHandleHealthReturnsHealthyWhenDatabaseConnected(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body = %s", rec.Code, rec.Body.String())
	}

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("Status = %q, want healthy", resp.Status)
	}
	if resp.Backends["database"].Status != "healthy" {
		t.Errorf("database backend status = %q, want healthy", resp.Backends["database"].Status)
	}
}

func TestHandleSearchRequiresUserRoleHeader(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/search?q=test&dataset=books", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body = %s", rec.Code, rec.Body.String())
	}
}

func TestHandleSearchReturnsItemsForSeededDataset(t *testing.T) {
	s, db := newTestServer(t)

	if err := db.InsertDocument(context.Background(), seed.Document{ID: "b1", Title: "Go in Action", RelevanceScore: 90}); err != nil {
		t.Fatalf("InsertDocument() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/search?q=Go&dataset=books&limit=10", nil)
	req.Header.Set("X-User-Role", "analyst")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body = %s", rec.Code, rec.Body.String())
	}

	var resp SearchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].ID != "b1" {
		t.Fatalf("Items = %+v, want one item with id b1", resp.Items)
	}
	if resp.Page != 1 {
		t.Errorf("Page = %d, want 1", resp.Page)
	}
}

func TestHandleSearchRejectsInvalidLimit(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/search?q=x&limit=notanumber", nil)
	req.Header.Set("X-User-Role", "analyst")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleSearchReturnsErrorForUnknownDatasetPolicy(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/search?q=x&dataset=missing-dataset", nil)
	req.Header.Set("X-User-Role", "analyst")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code == http.StatusOK {
		t.Fatalf("expected a non-200 status for a dataset with no policy, got %d", rec.Code)
	}
}

func TestHandleTablesListsSeededDataset(t *testing.T) {
	s, db := newTestServer(t)

	if err := db.InsertDocument(context.Background(), seed.Document{ID: "b1", CustomKind: "books", Title: "Go in Action"}); err != nil {
		t.Fatalf("InsertDocument() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/tables", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body = %s", rec.Code, rec.Body.String())
	}
}

func TestHandleSeedStartsJobAndProgressReportsCompletion(t *testing.T) {
	s, _ := newTestServer(t)

	body, _ := json.Marshal(SeedRequest{Dataset: "books", Count: 3})
	req := httptest.NewRequest(http.MethodPost, "/seed", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202, body = %s", rec.Code, rec.Body.String())
	}

	var seedResp SeedResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &seedResp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if seedResp.JobID == "" {
		t.Fatal("expected a non-empty jobId")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		progressReq := httptest.NewRequest(http.MethodGet, "/progress?jobId="+seedResp.JobID, nil)
		progressRec := httptest.NewRecorder()
		s.ServeHTTP(progressRec, progressReq)

		var job seed.Job
		if err := json.Unmarshal(progressRec.Body.Bytes(), &job); err != nil {
			t.Fatalf("decoding progress response: %v", err)
		}
		if job.Status == seed.StatusCompleted {
			if job.RowsWritten != 3 {
				t.Errorf("RowsWritten = %d, want 3", job.RowsWritten)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("seed job did not complete in time")
}

func TestHandleProgressReturnsNotFoundForUnknownJob(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/progress?jobId=does-not-exist", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleMetricsServesPrometheusExposition(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("searchd_")) {
		t.Errorf("expected exposition to contain a searchd_ metric, got: %s", rec.Body.String())
	}
}

func TestNotFoundRouteReturns404(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/nonexistent", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
