// Package merge implements the three hybrid result-merging algorithms
// — union, intersection, weighted — over two backend result lists
// keyed by result id, combining relevance scores by algorithm.
package merge

import (
	"math"
	"sort"

	"github.com/simplyliz/searchd/internal/backend"
)

// Algorithm names one of the three merge strategies.
type Algorithm string

const (
	Union        Algorithm = "union"
	Intersection Algorithm = "intersection"
	Weighted     Algorithm = "weighted"
)

// Config selects the algorithm and, for Weighted, the per-source weights.
type Config struct {
	Algorithm   Algorithm
	CacheWeight float64
	DBWeight    float64
}

// DefaultConfig returns the weighted algorithm with a 0.7/0.3 cache/db split.
func DefaultConfig() Config {
	return Config{Algorithm: Weighted, CacheWeight: 0.7, DBWeight: 0.3}
}

// Source identifies which backend(s) contributed a merged result.
const (
	sourceCache    = "cache"
	sourceDatabase = "database"
	sourceHybrid   = "hybrid"
)

// Merge combines cacheResults and dbResults per cfg.Algorithm.
func Merge(cacheResults, dbResults []backend.SearchResult, cfg Config) []backend.SearchResult {
	switch cfg.Algorithm {
	case Intersection:
		return mergeIntersection(cacheResults, dbResults)
	case Union:
		return mergeUnion(cacheResults, dbResults)
	default:
		return mergeWeighted(cacheResults, dbResults, cfg)
	}
}

// mergeUnion collects every unique id (cache-first for stable
// dedup), then orders the merged set by relevance score descending.
func mergeUnion(cacheResults, dbResults []backend.SearchResult) []backend.SearchResult {
	seen := make(map[string]bool, len(cacheResults)+len(dbResults))
	merged := make([]backend.SearchResult, 0, len(cacheResults)+len(dbResults))

	for _, r := range cacheResults {
		if !seen[r.ID] {
			seen[r.ID] = true
			merged = append(merged, r)
		}
	}
	for _, r := range dbResults {
		if !seen[r.ID] {
			seen[r.ID] = true
			merged = append(merged, r)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].RelevanceScore > merged[j].RelevanceScore
	})
	return merged
}

// mergeIntersection keeps only ids present in both lists, taking the
// higher-scoring instance, ordered by score descending.
func mergeIntersection(cacheResults, dbResults []backend.SearchResult) []backend.SearchResult {
	dbByID := make(map[string]backend.SearchResult, len(dbResults))
	for _, r := range dbResults {
		dbByID[r.ID] = r
	}

	merged := make([]backend.SearchResult, 0)
	for _, c := range cacheResults {
		d, ok := dbByID[c.ID]
		if !ok {
			continue
		}
		if d.RelevanceScore > c.RelevanceScore {
			merged = append(merged, d)
		} else {
			merged = append(merged, c)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].RelevanceScore > merged[j].RelevanceScore
	})
	return merged
}

// mergeWeighted computes a combined weighted score per id: a
// cache-only id gets round(score*cacheWeight), a database-only id
// round(score*dbWeight), and an id in both sums the two weighted
// scores. Rounding is half-away-from-zero (math.Round), applied
// consistently to every id. Ties keep stable input order, cache first.
func mergeWeighted(cacheResults, dbResults []backend.SearchResult, cfg Config) []backend.SearchResult {
	type entry struct {
		result backend.SearchResult
		order  int
	}

	byID := make(map[string]*entry, len(cacheResults)+len(dbResults))
	order := 0

	for _, c := range cacheResults {
		r := c
		weighted := int(math.Round(float64(c.RelevanceScore) * cfg.CacheWeight))
		r.Metadata = withSourceMetadata(r.Metadata, sourceCache, c.RelevanceScore, 0, weighted)
		r.RelevanceScore = weighted
		byID[c.ID] = &entry{result: r, order: order}
		order++
	}

	for _, d := range dbResults {
		weighted := int(math.Round(float64(d.RelevanceScore) * cfg.DBWeight))
		if existing, ok := byID[d.ID]; ok {
			cacheScore := existing.result.Metadata["cacheScore"].(int)
			combined := existing.result.RelevanceScore + weighted
			merged := existing.result
			merged.RelevanceScore = combined
			merged.Metadata = withBothSourceMetadata(cacheScore, d.RelevanceScore, combined)
			byID[d.ID] = &entry{result: merged, order: existing.order}
			continue
		}
		r := d
		r.Metadata = withSourceMetadata(r.Metadata, sourceDatabase, 0, d.RelevanceScore, weighted)
		r.RelevanceScore = weighted
		byID[d.ID] = &entry{result: r, order: order}
		order++
	}

	entries := make([]*entry, 0, len(byID))
	for _, e := range byID {
		entries = append(entries, e)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].result.RelevanceScore != entries[j].result.RelevanceScore {
			return entries[i].result.RelevanceScore > entries[j].result.RelevanceScore
		}
		return entries[i].order < entries[j].order
	})

	merged := make([]backend.SearchResult, 0, len(entries))
	for _, e := range entries {
		e.result.ClampScore()
		merged = append(merged, e.result)
	}
	return merged
}

func withSourceMetadata(base map[string]interface{}, source string, cacheScore, dbScore, combined int) map[string]interface{} {
	m := cloneMetadata(base)
	m["source"] = source
	if source == sourceCache {
		m["cacheScore"] = cacheScore
	} else {
		m["dbScore"] = dbScore
	}
	m["combinedScore"] = combined
	return m
}

func withBothSourceMetadata(cacheScore, dbScore, combined int) map[string]interface{} {
	return map[string]interface{}{
		"source":        sourceHybrid,
		"cacheScore":    cacheScore,
		"dbScore":       dbScore,
		"combinedScore": combined,
	}
}

func cloneMetadata(base map[string]interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(base)+2)
	for k, v := range base {
		m[k] = v
	}
	return m
}
