package kpi

import (
	"kpiboard/internal/records"
	"kpiboard/internal/stats"
)

// ExpiryEdges bucket days-to-expiry for the aging histogram.
var ExpiryEdges = []float64{0, 30, 60, 90, 180, 365}

// TopSupplierCount is how many suppliers the ranking keeps.
const TopSupplierCount = 5

// GroupRate is a rate computed within one group.
type GroupRate struct {
	Key   string  `json:"key"`
	Rate  float64 `json:"rate"`
	Count int     `json:"count"`
}

// MonthValue is one point of a monthly trend.
type MonthValue struct {
	Month string  `json:"month"`
	Value float64 `json:"value"`
}

// Bucketed is a histogram with its edges.
type Bucketed struct {
	Edges  []float64 `json:"edges"`
	Counts []int     `json:"counts"`
}

// SupplierRank is one row of the supplier leaderboard.
type SupplierRank struct {
	SupplierID   string  `json:"supplier_id"`
	SupplierName string  `json:"supplier_name"`
	Score        float64 `json:"score"`
}

// Summary holds the grouped series that back dashboard charts.
type Summary struct {
	FulfillmentBySite       []GroupRate    `json:"fulfillment_by_site"`
	BatchReleaseByCategory  []GroupRate    `json:"batch_release_by_category"`
	ApprovalCoverageCountry []GroupRate    `json:"approval_coverage_by_country"`
	OTIFTrend               []MonthValue   `json:"otif_trend"`
	LabTATP50               float64        `json:"lab_tat_p50"`
	LabTATP90               float64        `json:"lab_tat_p90"`
	ExpiryHistogram         Bucketed       `json:"expiry_histogram"`
	TopSuppliers            []SupplierRank `json:"top_suppliers"`
	DeviationsBySeverity    map[string]int `json:"deviations_by_severity"`
	DeviationsByRootCause   map[string]int `json:"deviations_by_root_cause"`
}

// Summarize derives chart groupings from the filtered collections of s.
func Summarize(s *Set) *Summary {
	if s == nil {
		s = &Set{}
	}
	c := s.Filtered
	sum := &Summary{
		FulfillmentBySite: groupRates(c.Orders,
			func(r records.Order) string { return r.Site },
			func(r records.Order) bool { return r.OrderFulfilled }),
		BatchReleaseByCategory: groupRates(c.Batches,
			func(r records.Batch) string { return r.Category },
			func(r records.Batch) bool { return r.Status == records.BatchPass }),
		ApprovalCoverageCountry: groupRates(c.Approvals,
			func(r records.Approval) string { return r.Country },
			isCovered),
		DeviationsBySeverity: groupCounts(c.Deviations,
			func(r records.Deviation) string { return severityKey(r.Severity) }),
		DeviationsByRootCause: groupCounts(c.Deviations,
			func(r records.Deviation) string { return r.RootCause }),
	}

	otif := stats.MonthlySeries(c.Orders, orderMonth, func(r records.Order) float64 {
		if isOTIF(r) {
			return 100
		}
		return 0
	})
	for _, m := range stats.SortedKeys(otif) {
		sum.OTIFTrend = append(sum.OTIFTrend, MonthValue{Month: m, Value: otif[m]})
	}

	tats := make([]float64, 0, len(c.Labs))
	for _, l := range c.Labs {
		tats = append(tats, l.TAT)
	}
	tats = stats.Sorted(tats)
	sum.LabTATP50 = stats.Percentile(tats, 0.5)
	sum.LabTATP90 = stats.Percentile(tats, 0.9)

	expiry := make([]float64, 0, len(c.Inventory))
	for _, inv := range c.Inventory {
		expiry = append(expiry, inv.DaysToExpiry)
	}
	sum.ExpiryHistogram = Bucketed{
		Edges:  append([]float64(nil), ExpiryEdges...),
		Counts: stats.Histogram(expiry, ExpiryEdges),
	}

	sum.TopSuppliers = topSuppliers(c.SupplierPerf, TopSupplierCount)
	return sum
}

func groupRates[T any](rs []T, key func(T) string, pred func(T) bool) []GroupRate {
	groups := stats.GroupBy(rs, key)
	out := make([]GroupRate, 0, len(groups))
	for _, k := range stats.SortedKeys(groups) {
		g := groups[k]
		out = append(out, GroupRate{Key: k, Rate: stats.Rate(g, pred), Count: len(g)})
	}
	return out
}

func groupCounts[T any](rs []T, key func(T) string) map[string]int {
	groups := stats.GroupBy(rs, key)
	out := make(map[string]int, len(groups))
	for k, g := range groups {
		out[k] = len(g)
	}
	return out
}

func severityKey(s records.Severity) string {
	switch s {
	case records.SeverityCritical, records.SeverityMajor, records.SeverityMinor:
		return s.String()
	case records.SeverityUnknown:
		return ""
	}
	return ""
}

func topSuppliers(rs []records.SupplierPerf, n int) []SupplierRank {
	groups := stats.GroupBy(rs, func(r records.SupplierPerf) string { return r.SupplierID })
	rows := make([]SupplierRank, 0, len(groups))
	// sorted ids keep tie order deterministic
	for _, id := range stats.SortedKeys(groups) {
		g := groups[id]
		rows = append(rows, SupplierRank{
			SupplierID:   id,
			SupplierName: g[0].SupplierName,
			Score:        stats.Mean(g, func(r records.SupplierPerf) float64 { return r.OverallPerformanceScore }),
		})
	}
	ranked := stats.TopN(rows, func(r SupplierRank) float64 { return r.Score }, n)
	out := make([]SupplierRank, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, r.Row)
	}
	return out
}
