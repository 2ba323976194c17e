// Package stats holds the pure aggregation helpers used by the KPI engine
// and chart summaries.
package stats

import (
	"cmp"
	"math"
	"slices"
	"sort"
)

// UnknownKey collects records whose grouping key is empty.
const UnknownKey = "Unknown"

// GroupBy buckets rs by key. Order within each group follows rs. Records
// with an empty key land under UnknownKey; nothing is dropped.
func GroupBy[T any](rs []T, key func(T) string) map[string][]T {
	out := make(map[string][]T)
	for _, r := range rs {
		k := key(r)
		if k == "" {
			k = UnknownKey
		}
		out[k] = append(out[k], r)
	}
	return out
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Sum adds sel(r) over rs.
func Sum[T any](rs []T, sel func(T) float64) float64 {
	var total float64
	for _, r := range rs {
		total += sel(r)
	}
	return total
}

// SumFloats is Sum with the identity selector.
func SumFloats(xs []float64) float64 {
	return Sum(xs, func(x float64) float64 { return x })
}

// Mean is the arithmetic mean of sel over rs, or 0 for empty input.
func Mean[T any](rs []T, sel func(T) float64) float64 {
	if len(rs) == 0 {
		return 0
	}
	return finite(Sum(rs, sel) / float64(len(rs)))
}

// Count returns how many records satisfy pred.
func Count[T any](rs []T, pred func(T) bool) int {
	n := 0
	for _, r := range rs {
		if pred(r) {
			n++
		}
	}
	return n
}

// Rate is 100*count(pred)/len(rs), or 0 for empty input.
func Rate[T any](rs []T, pred func(T) bool) float64 {
	return Percent(float64(Count(rs, pred)), float64(len(rs)))
}

// Percent is 100*num/den with a zero denominator masked to 0.
func Percent(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return finite(num / den * 100)
}

// Percentile picks the nearest-rank value at floor(q*(n-1)) from an
// ascending slice. q is clamped to [0,1]; empty input yields 0.
func Percentile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if math.IsNaN(q) || q < 0 {
		q = 0
	}
	if q > 1 {
		q = 1
	}
	return sorted[int(math.Floor(q*float64(n-1)))]
}

// Sorted returns an ascending copy of xs.
func Sorted(xs []float64) []float64 {
	out := slices.Clone(xs)
	slices.Sort(out)
	return out
}

// Histogram counts values into half-open buckets [edges[i], edges[i+1]).
// Values below the first edge or at/above the last edge are dropped.
func Histogram(values, edges []float64) []int {
	if len(edges) < 2 {
		return nil
	}
	counts := make([]int, len(edges)-1)
	for _, v := range values {
		for i := 0; i < len(edges)-1; i++ {
			if v >= edges[i] && v < edges[i+1] {
				counts[i]++
				break
			}
		}
	}
	return counts
}

// Ranked pairs a row with its score.
type Ranked[T any] struct {
	Row   T
	Score float64
}

// TopN sorts rows by score descending, ties kept in input order, and
// returns at most n of them.
func TopN[T any](rows []T, score func(T) float64, n int) []Ranked[T] {
	ranked := make([]Ranked[T], 0, len(rows))
	for _, r := range rows {
		ranked = append(ranked, Ranked[T]{Row: r, Score: score(r)})
	}
	slices.SortStableFunc(ranked, func(a, b Ranked[T]) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if n < 0 {
		n = 0
	}
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
