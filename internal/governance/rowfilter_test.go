package governance

import "testing"

func TestEvaluateRowFilterAllowsTrueLiterals(t *testing.T) {
	for _, expr := range []string{"", "true", `"true"`, `"1"`} {
		if !EvaluateRowFilter(expr, Row{}, SecurityContext{}, nil) {
			t.Errorf("expr %q should allow", expr)
		}
	}
}

func TestEvaluateRowFilterRegionInAllowedRegionsSeedScenarioS4(t *testing.T) {
	secCtx := SecurityContext{AllowedRegions: []string{"NE"}}
	expr := "region in ${user.allowed_regions}"

	allowed := Row{"region": "NE"}
	if !EvaluateRowFilter(expr, allowed, secCtx, nil) {
		t.Error("row with region NE should be allowed")
	}

	dropped := Row{"region": "SW"}
	if EvaluateRowFilter(expr, dropped, secCtx, nil) {
		t.Error("row with region SW should be dropped")
	}
}

func TestEvaluateRowFilterClinicianIDEqualsUserID(t *testing.T) {
	secCtx := SecurityContext{UserID: "u1"}
	expr := "clinician_id == ${user.id}"

	if !EvaluateRowFilter(expr, Row{"clinician_id": "u1"}, secCtx, nil) {
		t.Error("matching clinician_id should be allowed")
	}
	if EvaluateRowFilter(expr, Row{"clinician_id": "u2"}, secCtx, nil) {
		t.Error("mismatched clinician_id should be dropped")
	}
}

func TestEvaluateRowFilterUnknownExpressionDefaultsToAllow(t *testing.T) {
	if !EvaluateRowFilter("some_unsupported_expr(foo)", Row{}, SecurityContext{}, nil) {
		t.Error("unrecognized expression should default to allow")
	}
}

func TestFilterRowsDropsNonMatchingRows(t *testing.T) {
	engine, err := NewEngine(Config{PolicyDir: t.TempDir(), TokenizerSize: 10}, nil)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	secCtx := SecurityContext{AllowedRegions: []string{"NE"}}
	rows := []Row{{"region": "NE", "id": "1"}, {"region": "SW", "id": "2"}}

	filtered := engine.FilterRows(rows, "region in ${user.allowed_regions}", secCtx)
	if len(filtered) != 1 || filtered[0]["id"] != "1" {
		t.Errorf("unexpected filtered rows: %#v", filtered)
	}
}
