package stats

import (
	"math"
	"sort"
)

// Pearson returns the correlation coefficient of x and y. It returns 0 when
// the lengths differ, are zero, or either series has no variance.
func Pearson(x, y []float64) float64 {
	n := len(x)
	if n == 0 || n != len(y) {
		return 0
	}
	var sumX, sumY float64
	for i := 0; i < n; i++ {
		sumX += x[i]
		sumY += y[i]
	}
	meanX := sumX / float64(n)
	meanY := sumY / float64(n)

	var num, denX, denY float64
	for i := 0; i < n; i++ {
		dx := x[i] - meanX
		dy := y[i] - meanY
		num += dx * dy
		denX += dx * dx
		denY += dy * dy
	}
	if denX == 0 || denY == 0 {
		return 0
	}
	r := finite(num / math.Sqrt(denX*denY))
	// rounding can push |r| a hair past 1
	return math.Max(-1, math.Min(1, r))
}

// MonthlySeries maps each month key to the mean of field over the records
// in that month. Records without a month are skipped.
func MonthlySeries[T any](rs []T, month func(T) string, field func(T) float64) map[string]float64 {
	groups := make(map[string][]T)
	for _, r := range rs {
		m := month(r)
		if m == "" {
			continue
		}
		groups[m] = append(groups[m], r)
	}
	out := make(map[string]float64, len(groups))
	for m, g := range groups {
		out[m] = Mean(g, field)
	}
	return out
}

// MonthlyMeans is MonthlySeries flattened in ascending month order.
// YYYY-MM keys sort chronologically as strings.
func MonthlyMeans[T any](rs []T, month func(T) string, field func(T) float64) []float64 {
	series := MonthlySeries(rs, month, field)
	keys := SortedKeys(series)
	out := make([]float64, 0, len(keys))
	for _, k := range keys {
		out = append(out, series[k])
	}
	return out
}

// AlignedPearson correlates two month-keyed series over the months they
// share.
func AlignedPearson(a, b map[string]float64) float64 {
	shared := make([]string, 0, len(a))
	for m := range a {
		if _, ok := b[m]; ok {
			shared = append(shared, m)
		}
	}
	sort.Strings(shared)
	x := make([]float64, 0, len(shared))
	y := make([]float64, 0, len(shared))
	for _, m := range shared {
		x = append(x, a[m])
		y = append(y, b[m])
	}
	return Pearson(x, y)
}
