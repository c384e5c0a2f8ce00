package merge

import (
	"testing"

	"github.com/simplyliz/searchd/internal/backend"
)

func sr(id string, score int) backend.SearchResult {
	return backend.SearchResult{ID: id, RelevanceScore: score}
}

func TestUnionCollectsAllUniqueIDsOrderedByScore(t *testing.T) {
	cache := []backend.SearchResult{sr("a", 40), sr("b", 90)}
	db := []backend.SearchResult{sr("b", 10), sr("c", 60)}

	got := mergeUnion(cache, db)
	if len(got) != 3 {
		t.Fatalf("len(got) = %d, want 3", len(got))
	}
	ids := []string{got[0].ID, got[1].ID, got[2].ID}
	if ids[0] != "b" || ids[1] != "c" || ids[2] != "a" {
		t.Errorf("unexpected order: %v", ids)
	}
}

func TestUnionDedupesCachePreferredOnConflict(t *testing.T) {
	cache := []backend.SearchResult{sr("a", 40)}
	db := []backend.SearchResult{sr("a", 90)}

	got := mergeUnion(cache, db)
	if len(got) != 1 {
		t.Fatalf("len(got) = %d, want 1", len(got))
	}
	if got[0].RelevanceScore != 40 {
		t.Errorf("expected cache-first value retained, got score %d", got[0].RelevanceScore)
	}
}

func TestIntersectionKeepsOnlyIDsInBoth(t *testing.T) {
	cache := []backend.SearchResult{sr("a", 40), sr("b", 90)}
	db := []backend.SearchResult{sr("b", 10), sr("c", 60)}

	got := mergeIntersection(cache, db)
	if len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("unexpected intersection: %#v", got)
	}
	if got[0].RelevanceScore != 90 {
		t.Errorf("expected higher score retained, got %d", got[0].RelevanceScore)
	}
}

func TestWeightedMergeSeedScenarioS3(t *testing.T) {
	cache := []backend.SearchResult{sr("A", 80), sr("B", 60)}
	db := []backend.SearchResult{sr("B", 90), sr("C", 50)}
	cfg := Config{Algorithm: Weighted, CacheWeight: 0.7, DBWeight: 0.3}

	got := mergeWeighted(cache, db, cfg)
	if len(got) != 3 {
		t.Fatalf("len(got) = %d, want 3", len(got))
	}

	ids := []string{got[0].ID, got[1].ID, got[2].ID}
	if ids[0] != "B" || ids[1] != "A" || ids[2] != "C" {
		t.Fatalf("unexpected order: %v", ids)
	}

	scores := map[string]int{got[0].ID: got[0].RelevanceScore, got[1].ID: got[1].RelevanceScore, got[2].ID: got[2].RelevanceScore}
	if scores["A"] != 56 {
		t.Errorf("score(A) = %d, want 56", scores["A"])
	}
	if scores["B"] != 69 {
		t.Errorf("score(B) = %d, want 69 (round(60*0.7)=42 + round(90*0.3)=27)", scores["B"])
	}
	if scores["C"] != 15 {
		t.Errorf("score(C) = %d, want 15", scores["C"])
	}

	if got[0].Metadata["source"] != sourceHybrid {
		t.Errorf("B.source = %v, want hybrid", got[0].Metadata["source"])
	}
}

func TestWeightedMergeAnnotatesSourceForSingleOriginResults(t *testing.T) {
	cache := []backend.SearchResult{sr("a", 50)}
	db := []backend.SearchResult{sr("b", 50)}
	cfg := DefaultConfig()

	got := mergeWeighted(cache, db, cfg)
	byID := map[string]backend.SearchResult{}
	for _, r := range got {
		byID[r.ID] = r
	}
	if byID["a"].Metadata["source"] != sourceCache {
		t.Errorf("a.source = %v, want cache", byID["a"].Metadata["source"])
	}
	if byID["b"].Metadata["source"] != sourceDatabase {
		t.Errorf("b.source = %v, want database", byID["b"].Metadata["source"])
	}
}

func TestMergeDispatchesOnAlgorithm(t *testing.T) {
	cache := []backend.SearchResult{sr("a", 40)}
	db := []backend.SearchResult{sr("b", 60)}

	union := Merge(cache, db, Config{Algorithm: Union})
	if len(union) != 2 {
		t.Errorf("union len = %d, want 2", len(union))
	}

	intersection := Merge(cache, db, Config{Algorithm: Intersection})
	if len(intersection) != 0 {
		t.Errorf("intersection len = %d, want 0", len(intersection))
	}
}

func TestWeightedMergeClampsScoreInto0To100(t *testing.T) {
	cache := []backend.SearchResult{sr("a", 100)}
	db := []backend.SearchResult{sr("a", 100)}
	cfg := Config{Algorithm: Weighted, CacheWeight: 0.7, DBWeight: 0.3}

	got := mergeWeighted(cache, db, cfg)
	if len(got) != 1 {
		t.Fatalf("len(got) = %d, want 1", len(got))
	}
	if got[0].RelevanceScore < 0 || got[0].RelevanceScore > 100 {
		t.Errorf("score out of bounds: %d", got[0].RelevanceScore)
	}
}
