// Package fusion merges ranked result lists with Reciprocal Rank Fusion.
//
// All functions are pure and deterministic for a given input order: equal
// fused scores keep first-seen order, so the same inputs always produce the
// same output.
package fusion

import (
	"sort"
	"strconv"

	"github.com/BaSui01/corrag/types"
)

// DefaultK is the standard RRF smoothing constant.
const DefaultK = 60

// Source labels attached to results merged by MergeLexicalVector.
const (
	SourceLexical = "lexical"
	SourceVector  = "vector"
)

// RRFScore computes the reciprocal rank contribution 1/(k+rank).
// rank is 1-indexed.
func RRFScore(rank, k int) float64 {
	return 1.0 / float64(k+rank)
}

type fusedEntry struct {
	result  types.SearchResult
	score   float64
	sources []string
}

// MergeRRF merges any number of ranked lists into a single deduplicated list
// ordered by accumulated RRF score. The payload of each result is taken from
// its first occurrence. A single-list input short-circuits to that list's
// native order with scores carried through unchanged. topK <= 0 means no cap.
func MergeRRF(lists [][]types.SearchResult, topK, k int) []types.SearchResult {
	if k <= 0 {
		k = DefaultK
	}
	if len(lists) == 0 {
		return nil
	}
	if len(lists) == 1 {
		return truncate(copyResults(lists[0]), topK)
	}

	entries := make(map[string]*fusedEntry)
	var order []string

	for listIdx, list := range lists {
		label := sourceLabel(listIdx)
		for rank, r := range list {
			key := r.StableKey()
			e, ok := entries[key]
			if !ok {
				e = &fusedEntry{result: r}
				entries[key] = e
				order = append(order, key)
			}
			e.score += RRFScore(rank+1, k)
			e.sources = appendUnique(e.sources, label)
		}
	}

	merged := make([]types.SearchResult, 0, len(order))
	for _, key := range order {
		e := entries[key]
		r := e.result
		r.FinalScore = e.score
		r.Sources = e.sources
		r.Hybrid = len(e.sources) > 1
		merged = append(merged, r)
	}

	// Stable sort keeps first-seen order on ties.
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].FinalScore > merged[j].FinalScore
	})

	return truncate(merged, topK)
}

// MergeLexicalVector merges a lexical and a vector result list with weighted
// RRF so the two sources can be balanced independently of list length. If one
// side is empty the other side's native order is returned up to topK. Merged
// results carry the hybrid flag plus the original per-source scores.
func MergeLexicalVector(lexical, vector []types.SearchResult, topK, k int, lexWeight, vecWeight float64) []types.SearchResult {
	if k <= 0 {
		k = DefaultK
	}
	if len(lexical) == 0 {
		return truncate(copyResults(vector), topK)
	}
	if len(vector) == 0 {
		return truncate(copyResults(lexical), topK)
	}

	entries := make(map[string]*fusedEntry)
	var order []string

	accumulate := func(list []types.SearchResult, weight float64, label string) {
		for rank, r := range list {
			key := r.StableKey()
			e, ok := entries[key]
			if !ok {
				e = &fusedEntry{result: r}
				entries[key] = e
				order = append(order, key)
			}
			e.score += weight * RRFScore(rank+1, k)
			e.sources = appendUnique(e.sources, label)
			switch label {
			case SourceLexical:
				e.result.LexicalScore = r.EffectiveScore()
			case SourceVector:
				e.result.VectorScore = r.EffectiveScore()
			}
		}
	}

	accumulate(lexical, lexWeight, SourceLexical)
	accumulate(vector, vecWeight, SourceVector)

	merged := make([]types.SearchResult, 0, len(order))
	for _, key := range order {
		e := entries[key]
		r := e.result
		r.FinalScore = e.score
		r.Sources = e.sources
		r.Hybrid = len(e.sources) > 1
		merged = append(merged, r)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].FinalScore > merged[j].FinalScore
	})

	return truncate(merged, topK)
}

func sourceLabel(idx int) string {
	return "list_" + strconv.Itoa(idx)
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}

func copyResults(in []types.SearchResult) []types.SearchResult {
	out := make([]types.SearchResult, len(in))
	copy(out, in)
	return out
}

func truncate(in []types.SearchResult, topK int) []types.SearchResult {
	if topK > 0 && len(in) > topK {
		return in[:topK]
	}
	return in
}
