package governance

import (
	"context"
	"fmt"
	"strings"

	"github.com/open-policy-agent/opa/rego"
)

// SecurityContext carries the caller identity and clearance the row
// filter and mask plan are evaluated against.
type SecurityContext struct {
	UserID         string
	UserRole       string
	InstitutionID  string
	ClearanceLevel string
	SessionID      string
	IPAddress      string
	UserAgent      string
	AllowedRegions []string
}

// Row is a single database row as a field-name → value map, the
// shape row filters and column masks operate over.
type Row map[string]interface{}

// EvaluateRowFilter decides whether row is visible to ctx under
// expr. Only the three named forms are evaluated directly; anything
// else defaults to allow unless a Rego fallback evaluator is
// configured, in which case it is consulted instead of the
// default-allow.
func EvaluateRowFilter(expr string, row Row, ctx SecurityContext, fallback *RegoFallback) bool {
	trimmed := strings.TrimSpace(expr)

	switch trimmed {
	case "", "true", `"true"`, `"1"`:
		return true
	}

	if rest, ok := matchForm(trimmed, "region in ${user.allowed_regions}"); ok {
		_ = rest
		region, _ := row["region"].(string)
		return contains(ctx.AllowedRegions, region)
	}

	if _, ok := matchForm(trimmed, "clinician_id == ${user.id}"); ok {
		clinicianID, _ := row["clinician_id"].(string)
		return clinicianID == ctx.UserID
	}

	if fallback != nil {
		allow, err := fallback.Eval(context.Background(), trimmed, row, ctx)
		if err == nil {
			return allow
		}
	}

	// Any other expression defaults to allow.
	return true
}

func matchForm(expr, form string) (string, bool) {
	if expr == form {
		return "", true
	}
	return "", false
}

func contains(haystack []string, needle string) bool {
	for _, h := range haystack {
		if h == needle {
			return true
		}
	}
	return false
}

// RegoFallback evaluates row-filter expressions that aren't one of
// the three named forms, via a Rego policy module, when an operator
// opts into `governance.regoFallback: true`.
type RegoFallback struct {
	module string
}

// NewRegoFallback compiles a Rego module exposing `data.searchd.rowfilter.allow`.
func NewRegoFallback(module string) (*RegoFallback, error) {
	if _, err := rego.New(
		rego.Query("data.searchd.rowfilter.allow"),
		rego.Module("rowfilter.rego", module),
	).PrepareForEval(context.Background()); err != nil {
		return nil, fmt.Errorf("compiling rego module: %w", err)
	}
	return &RegoFallback{module: module}, nil
}

// Eval evaluates the row filter expression against row and ctx,
// passing both plus the raw expr as Rego input.
func (f *RegoFallback) Eval(ctx context.Context, expr string, row Row, secCtx SecurityContext) (bool, error) {
	input := map[string]interface{}{
		"expr": expr,
		"row":  map[string]interface{}(row),
		"user": map[string]interface{}{
			"id":              secCtx.UserID,
			"role":            secCtx.UserRole,
			"allowed_regions": secCtx.AllowedRegions,
		},
	}

	r := rego.New(
		rego.Query("data.searchd.rowfilter.allow"),
		rego.Module("rowfilter.rego", f.module),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return false, fmt.Errorf("preparing rego query: %w", err)
	}

	results, err := query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, fmt.Errorf("evaluating rego query: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return false, nil
	}
	allow, ok := results[0].Expressions[0].Value.(bool)
	if !ok {
		return false, fmt.Errorf("rego query did not return a boolean")
	}
	return allow, nil
}
