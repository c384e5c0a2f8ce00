package orchestrator

import (
	"context"
	"time"

	"github.com/simplyliz/searchd/internal/backend"
	"github.com/simplyliz/searchd/internal/governance"
)

// SecureResponse is the result of a SecureSearch call: the plain
// Response plus governance metadata.
type SecureResponse struct {
	Response
	MaskedFields []string
	AuditID      string
}

// SecureSearch looks up the caller's role, runs Search, drops rows the
// role's row filter rejects, masks result fields per the role, and
// records an audit entry — success or failure. dataset names the
// policy to load; a role with no rule in that policy gets no row filter
// and no masks, so every row is returned unmasked.
func (o *Orchestrator) SecureSearch(ctx context.Context, dataset string, secCtx governance.SecurityContext, query string, opts backend.SearchOptions, gov *governance.Engine) (*SecureResponse, error) {
	start := time.Now()

	role, _, err := gov.RoleFor(dataset, secCtx.UserRole)
	if err != nil {
		entry := governance.NewAuditEntry(secCtx, dataset, query)
		entry.SearchTimeMs = time.Since(start).Milliseconds()
		entry.Success = false
		entry.ErrorMessage = err.Error()
		gov.RecordAudit(ctx, entry)
		return nil, err
	}

	resp, searchErr := o.Search(ctx, query, opts)

	entry := governance.NewAuditEntry(secCtx, dataset, query)
	entry.SearchTimeMs = time.Since(start).Milliseconds()

	if searchErr != nil {
		entry.Success = false
		entry.ErrorMessage = searchErr.Error()
		gov.RecordAudit(ctx, entry)
		return nil, searchErr
	}

	filtered := filterByRowSecurity(resp.Results, role.RowFilter, secCtx, gov)
	masked, maskedFields := gov.MaskResults(filtered, role)
	resp.Results = masked
	resp.Performance.ResultCount = len(masked)

	entry.Success = true
	entry.ResultCount = len(masked)
	gov.RecordAudit(ctx, entry)

	return &SecureResponse{
		Response:     *resp,
		MaskedFields: maskedFields,
		AuditID:      entry.ID,
	}, nil
}

// filterByRowSecurity evaluates rowFilter against each result's
// metadata (the closest analogue to a database row this layer has
// visibility into once results have already been fetched).
func filterByRowSecurity(results []backend.SearchResult, rowFilter string, secCtx governance.SecurityContext, gov *governance.Engine) []backend.SearchResult {
	if rowFilter == "" {
		return results
	}
	rows := make([]governance.Row, len(results))
	for i, r := range results {
		row := governance.Row{}
		for k, v := range r.Metadata {
			row[k] = v
		}
		row["id"] = r.ID
		rows[i] = row
	}

	kept := make(map[string]bool, len(results))
	for _, row := range gov.FilterRows(rows, rowFilter, secCtx) {
		if id, ok := row["id"].(string); ok {
			kept[id] = true
		}
	}

	filtered := make([]backend.SearchResult, 0, len(results))
	for _, r := range results {
		if kept[r.ID] {
			filtered = append(filtered, r)
		}
	}
	return filtered
}
