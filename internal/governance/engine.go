package governance

import (
	"context"

	"github.com/simplyliz/searchd/internal/backend"
	searcherrors "github.com/simplyliz/searchd/internal/errors"
)

// Config configures the governance Engine.
type Config struct {
	PolicyDir       string
	RegoFallback    bool
	RegoModule      string
	TokenizerSize   int
	AuditBufferSize int
}

// Engine applies row-level security and column masking from a
// per-dataset policy store, and records audit entries for every
// secure_search call.
type Engine struct {
	policies  *PolicyStore
	tokenizer *Tokenizer
	fallback  *RegoFallback
	sink      Sink
}

// NewEngine constructs an Engine from cfg. sink defaults to a
// RingBufferSink when nil.
func NewEngine(cfg Config, sink Sink) (*Engine, error) {
	var fallback *RegoFallback
	if cfg.RegoFallback && cfg.RegoModule != "" {
		f, err := NewRegoFallback(cfg.RegoModule)
		if err != nil {
			return nil, searcherrors.NewConfigError("compiling rego row-filter fallback", err)
		}
		fallback = f
	}

	if sink == nil {
		sink = NewRingBufferSink(cfg.AuditBufferSize)
	}

	return &Engine{
		policies:  NewPolicyStore(cfg.PolicyDir),
		tokenizer: NewTokenizer(cfg.TokenizerSize),
		fallback:  fallback,
		sink:      sink,
	}, nil
}

// RoleFor loads dataset's policy and returns the compiled rule for
// role, with false when the policy has no rule for it. A policy that
// cannot be loaded is reported as an ErrConfig. The role's row filter
// is applied afterwards by FilterRows, per row, once results are back.
func (e *Engine) RoleFor(dataset, role string) (Role, bool, error) {
	policy, err := e.policies.Get(dataset)
	if err != nil {
		return Role{}, false, searcherrors.NewConfigError("loading governance policy for dataset "+dataset, err)
	}
	r, ok := policy.RoleFor(role)
	return r, ok, nil
}

// FilterRows drops rows that fail the role's row filter expression.
func (e *Engine) FilterRows(rows []Row, rowFilter string, secCtx SecurityContext) []Row {
	filtered := make([]Row, 0, len(rows))
	for _, row := range rows {
		if EvaluateRowFilter(rowFilter, row, secCtx, e.fallback) {
			filtered = append(filtered, row)
		}
	}
	return filtered
}

// MaskResults applies role's column masks to every result's
// description, author and category fields and its metadata entries,
// returning the masked results and the set of field names
// that were masked on at least one result.
func (e *Engine) MaskResults(results []backend.SearchResult, role Role) ([]backend.SearchResult, []string) {
	if len(role.ColumnMasks) == 0 {
		return results, nil
	}

	maskedFieldSet := make(map[string]bool, len(role.ColumnMasks))
	masked := make([]backend.SearchResult, len(results))
	for i, r := range results {
		masked[i] = maskOne(r, role.ColumnMasks, e.tokenizer, maskedFieldSet)
	}

	fields := make([]string, 0, len(maskedFieldSet))
	for f := range maskedFieldSet {
		fields = append(fields, f)
	}
	return masked, fields
}

func maskOne(r backend.SearchResult, masks map[string]MaskSpec, tokenizer *Tokenizer, touched map[string]bool) backend.SearchResult {
	out := r
	out.Metadata = cloneMetadata(r.Metadata)

	applyStructField := func(field string, get func() string, set func(string)) {
		spec, ok := masks[field]
		if !ok {
			return
		}
		touched[field] = true
		maskedVal := ApplyMask(spec, get(), tokenizer)
		if s, ok := maskedVal.(string); ok {
			set(s)
		} else {
			set("")
		}
	}

	applyStructField("description", func() string { return out.Description }, func(s string) { out.Description = s })
	applyStructField("author", func() string { return out.Author }, func(s string) { out.Author = s })
	applyStructField("category", func() string { return out.Category }, func(s string) { out.Category = s })

	for field, spec := range masks {
		if field == "description" || field == "author" || field == "category" {
			continue
		}
		if val, ok := out.Metadata[field]; ok {
			touched[field] = true
			out.Metadata[field] = ApplyMask(spec, val, tokenizer)
		}
	}

	return out
}

func cloneMetadata(base map[string]interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(base))
	for k, v := range base {
		m[k] = v
	}
	return m
}

// RecordAudit writes an audit entry via the configured sink.
func (e *Engine) RecordAudit(ctx context.Context, entry AuditEntry) error {
	return e.sink.Record(ctx, entry)
}

// AuditEntryByID retrieves a previously recorded audit entry.
func (e *Engine) AuditEntryByID(ctx context.Context, id string) (AuditEntry, bool, error) {
	return e.sink.Get(ctx, id)
}
