package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/simplyliz/searchd/internal/backend"
	searcherrors "github.com/simplyliz/searchd/internal/errors"
	"github.com/simplyliz/searchd/internal/governance"
	"github.com/simplyliz/searchd/internal/seed"
)

// SearchResponse is the JSON body returned by GET /search:
// {items, page, total, maskedFields, strategy}.
type SearchResponse struct {
	Items        []backend.SearchResult `json:"items"`
	Page         int                    `json:"page"`
	Total        int                    `json:"total"`
	MaskedFields []string               `json:"maskedFields,omitempty"`
	Strategy     string                 `json:"strategy"`
	AuditID      string                 `json:"auditId,omitempty"`
}

// userContextHeader is the shape the X-User-Context header's JSON body
// decodes into; UserRole travels separately, via X-User-Role, since
// it is the one field governance.RoleFor consults before anything else.
type userContextHeader struct {
	UserID         string   `json:"userId"`
	InstitutionID  string   `json:"institutionId"`
	ClearanceLevel string   `json:"clearanceLevel"`
	SessionID      string   `json:"sessionId"`
	AllowedRegions []string `json:"allowedRegions"`
}

// handleSearch invokes SecureSearch for the caller's dataset and role,
// reading X-User-Role and X-User-Context (JSON). The dataset query
// parameter selects the governance policy and defaults to "default"
// when absent, since secure_search otherwise has no way to learn which
// dataset's policy applies.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			BadRequest(w, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	offset := 0
	if v := r.URL.Query().Get("offset"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			BadRequest(w, "offset must be a non-negative integer")
			return
		}
		offset = parsed
	}

	dataset := r.URL.Query().Get("dataset")
	if dataset == "" {
		dataset = "default"
	}

	role := r.Header.Get("X-User-Role")
	if role == "" {
		BadRequest(w, "X-User-Role header is required")
		return
	}

	secCtx := governance.SecurityContext{
		UserRole:  role,
		IPAddress: r.RemoteAddr,
		UserAgent: r.Header.Get("User-Agent"),
	}
	if raw := r.Header.Get("X-User-Context"); raw != "" {
		var uc userContextHeader
		if err := json.Unmarshal([]byte(raw), &uc); err != nil {
			BadRequest(w, "X-User-Context must be valid JSON")
			return
		}
		secCtx.UserID = uc.UserID
		secCtx.InstitutionID = uc.InstitutionID
		secCtx.ClearanceLevel = uc.ClearanceLevel
		secCtx.SessionID = uc.SessionID
		secCtx.AllowedRegions = uc.AllowedRegions
	}

	opts := backend.DefaultSearchOptions()
	opts.Limit = limit
	opts.Offset = offset

	start := time.Now()
	resp, err := s.orch.SecureSearch(r.Context(), dataset, secCtx, query, opts, s.gov)
	if err != nil {
		s.metrics.RecordError(string(searcherrors.CodeOf(err)))
		WriteError(w, err, MapCodeToStatus(searcherrors.CodeOf(err)))
		return
	}

	s.metrics.RecordSearch(dataset, string(resp.Performance.Strategy), time.Since(start), resp.Performance.ResultCount, len(resp.MaskedFields))
	// cacheHits/cacheMisses only mean something once a cache backend is
	// registered; a database-only deployment never attempts cache, so
	// it would be noise to count every such search as a "miss".
	if s.cache != nil {
		if resp.Performance.CacheHit {
			s.metrics.RecordCacheHit()
		} else {
			s.metrics.RecordCacheMiss()
		}
	}

	page := 1
	if limit > 0 {
		page = offset/limit + 1
	}

	WriteJSON(w, SearchResponse{
		Items:        resp.Results,
		Page:         page,
		Total:        resp.Performance.ResultCount,
		MaskedFields: resp.MaskedFields,
		Strategy:     string(resp.Performance.Strategy),
		AuditID:      resp.AuditID,
	}, http.StatusOK)
}

// handleTables lists known datasets and their row-count stats, from
// the reference database backend's search_documents table.
func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	stats, err := s.tables.Tables(r.Context())
	if err != nil {
		InternalError(w, "failed to list tables", err)
		return
	}
	WriteJSON(w, map[string]interface{}{"tables": stats}, http.StatusOK)
}

// SeedRequest is the JSON body POST /seed accepts.
type SeedRequest struct {
	Dataset string `json:"dataset"`
	Count   int    `json:"count"`
}

// SeedResponse is returned immediately once the seed job is started;
// progress is polled via GET /progress?jobId=.
type SeedResponse struct {
	JobID string `json:"jobId"`
}

// handleSeed delegates to internal/seed.Seeder to asynchronously
// materialize count synthetic documents for dataset.
func (s *Server) handleSeed(w http.ResponseWriter, r *http.Request) {
	var req SeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid JSON body")
		return
	}
	if req.Dataset == "" {
		BadRequest(w, "dataset is required")
		return
	}
	if req.Count <= 0 {
		BadRequest(w, "count must be a positive integer")
		return
	}

	job := s.seeder.Start(r.Context(), req.Dataset, req.Count)
	WriteJSON(w, SeedResponse{JobID: job.ID}, http.StatusAccepted)
}

// handleProgress reports a seed job's current progress by jobId.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	jobID := r.URL.Query().Get("jobId")
	if jobID == "" {
		BadRequest(w, "jobId query parameter is required")
		return
	}

	job, err := s.jobs.Get(jobID)
	if err != nil {
		NotFound(w, "no seed job with id "+jobID)
		return
	}

	if job.Status == seed.StatusCompleted || job.Status == seed.StatusFailed {
		s.metrics.RecordSeedJob(job.Dataset, string(job.Status), job.RowsWritten)
	}

	WriteJSON(w, job, http.StatusOK)
}
