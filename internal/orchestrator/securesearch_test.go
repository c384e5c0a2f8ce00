package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/simplyliz/searchd/internal/backend"
	"github.com/simplyliz/searchd/internal/governance"
)

func writeTestPolicy(t *testing.T, dir, dataset, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, dataset+".yaml"), []byte(body), 0o600); err != nil {
		t.Fatalf("writing test policy: %v", err)
	}
}

func newTestEngine(t *testing.T, dir string) *governance.Engine {
	t.Helper()
	eng, err := governance.NewEngine(governance.Config{PolicyDir: dir, TokenizerSize: 128, AuditBufferSize: 100}, nil)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return eng
}

func TestSecureSearchFiltersRowsByAllowedRegionSeedScenarioS4(t *testing.T) {
	dir := t.TempDir()
	writeTestPolicy(t, dir, "records", `
version: "1"
roles:
  - id: analyst
    row_filter: "region in ${user.allowed_regions}"
    column_masks: {}
`)
	eng := newTestEngine(t, dir)

	db := &mockBackend{searchFn: func(ctx context.Context, q string, o backend.SearchOptions) ([]backend.SearchResult, error) {
		return []backend.SearchResult{
			{ID: "a", RelevanceScore: 80, Metadata: map[string]interface{}{"region": "us-east"}},
			{ID: "b", RelevanceScore: 70, Metadata: map[string]interface{}{"region": "eu-west"}},
		}, nil
	}}

	o := newTestOrchestrator(db, nil)
	secCtx := governance.SecurityContext{UserID: "u1", UserRole: "analyst", AllowedRegions: []string{"us-east"}}

	resp, err := o.SecureSearch(context.Background(), "records", secCtx, "q", backend.DefaultSearchOptions(), eng)
	if err != nil {
		t.Fatalf("SecureSearch() error = %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].ID != "a" {
		t.Fatalf("expected only region-allowed row a, got %+v", resp.Results)
	}
}

func TestSecureSearchMasksSSNWithRedactPartSeedScenarioS5(t *testing.T) {
	dir := t.TempDir()
	writeTestPolicy(t, dir, "patients", `
version: "1"
roles:
  - id: clinician
    row_filter: "true"
    column_masks:
      description: "redact_part(keep=4)"
`)
	eng := newTestEngine(t, dir)

	db := &mockBackend{searchFn: func(ctx context.Context, q string, o backend.SearchOptions) ([]backend.SearchResult, error) {
		return []backend.SearchResult{{ID: "a", RelevanceScore: 90, Description: "123-45-6789"}}, nil
	}}

	o := newTestOrchestrator(db, nil)
	secCtx := governance.SecurityContext{UserID: "u1", UserRole: "clinician"}

	resp, err := o.SecureSearch(context.Background(), "patients", secCtx, "q", backend.DefaultSearchOptions(), eng)
	if err != nil {
		t.Fatalf("SecureSearch() error = %v", err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(resp.Results))
	}
	if got := resp.Results[0].Description; got != "*******6789" {
		t.Errorf("Description = %q, want *******6789", got)
	}
	if len(resp.MaskedFields) != 1 || resp.MaskedFields[0] != "description" {
		t.Errorf("MaskedFields = %v, want [description]", resp.MaskedFields)
	}
}

func TestSecureSearchRecordsAuditEntryRetrievableByID(t *testing.T) {
	dir := t.TempDir()
	writeTestPolicy(t, dir, "records", `
version: "1"
roles:
  - id: analyst
    row_filter: "true"
    column_masks: {}
`)
	eng := newTestEngine(t, dir)

	db := &mockBackend{searchFn: func(ctx context.Context, q string, o backend.SearchOptions) ([]backend.SearchResult, error) {
		return []backend.SearchResult{{ID: "a", RelevanceScore: 50}}, nil
	}}

	o := newTestOrchestrator(db, nil)
	secCtx := governance.SecurityContext{UserID: "u1", UserRole: "analyst"}

	resp, err := o.SecureSearch(context.Background(), "records", secCtx, "q", backend.DefaultSearchOptions(), eng)
	if err != nil {
		t.Fatalf("SecureSearch() error = %v", err)
	}
	if resp.AuditID == "" {
		t.Fatal("expected a non-empty AuditID")
	}

	entry, ok, err := eng.AuditEntryByID(context.Background(), resp.AuditID)
	if err != nil {
		t.Fatalf("AuditEntryByID() error = %v", err)
	}
	if !ok {
		t.Fatal("expected audit entry to be retrievable by ID")
	}
	if !entry.Success || entry.UserID != "u1" {
		t.Errorf("unexpected audit entry: %+v", entry)
	}
}

func TestSecureSearchReturnsErrorForDatasetWithNoPolicyFile(t *testing.T) {
	dir := t.TempDir()
	eng := newTestEngine(t, dir)

	db := &mockBackend{searchFn: func(ctx context.Context, q string, o backend.SearchOptions) ([]backend.SearchResult, error) {
		return []backend.SearchResult{{ID: "a", RelevanceScore: 50}}, nil
	}}
	o := newTestOrchestrator(db, nil)
	secCtx := governance.SecurityContext{UserID: "u1", UserRole: "analyst"}

	_, err := o.SecureSearch(context.Background(), "unknown-dataset", secCtx, "q", backend.DefaultSearchOptions(), eng)
	if err == nil {
		t.Fatal("expected an error for a dataset with no policy file")
	}
}
