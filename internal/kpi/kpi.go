// Package kpi computes the dashboard KPI set from a filtered record store.
package kpi

import (
	"time"

	"kpiboard/internal/filter"
	"kpiboard/internal/records"
	"kpiboard/internal/stats"
)

// ApprovalCoverageThreshold is the approval pct at or above which a
// brand/country pair counts as covered.
const ApprovalCoverageThreshold = 90

// Set is the result of one computation. Every field is defined for empty
// inputs; degenerate ratios are 0.
type Set struct {
	Filter     filter.Filter `json:"filter"`
	Window     []string      `json:"window"`
	ComputedAt time.Time     `json:"computed_at"`
	StoreAt    time.Time     `json:"store_loaded_at"`

	OrderCount        int     `json:"order_count"`
	FulfillmentRate   float64 `json:"fulfillment_rate"`
	OTIFRate          float64 `json:"otif_rate"`
	PerfectOrderRate  float64 `json:"perfect_order_rate"`
	BackorderRate     float64 `json:"backorder_rate"`
	AvgCycleTimeDays  float64 `json:"avg_cycle_time_days"`
	AvgLeadTimeDays   float64 `json:"avg_lead_time_days"`
	AvgCostPerOrder   float64 `json:"avg_cost_per_order"`
	TotalOrderCost    float64 `json:"total_order_cost"`
	AvgCashToCashDays float64 `json:"avg_cash_to_cash_days"`
	VisibilityPct     float64 `json:"visibility_pct"`
	SupplierScore     float64 `json:"supplier_score"`

	InventoryTurnover    float64 `json:"inventory_turnover"`
	InventoryAccuracyPct float64 `json:"inventory_accuracy_pct"`
	BlockedStockPct      float64 `json:"blocked_stock_pct"`
	InventoryAgingDays   float64 `json:"inventory_aging_days"`
	InventoryValue       float64 `json:"inventory_value"`

	BatchReleaseRate   float64 `json:"batch_release_rate"`
	AvgQADays          float64 `json:"avg_qa_days"`
	AvgLabTATDays      float64 `json:"avg_lab_tat_days"`
	CriticalDeviations int     `json:"critical_deviations"`
	AvgDaysToResolve   float64 `json:"avg_days_to_resolve"`

	ApprovalCoverageRate  float64 `json:"approval_coverage_rate"`
	AvgTimeToApprovalDays float64 `json:"avg_time_to_approval_days"`
	PendingSubmissions    int     `json:"pending_submissions"`

	SupplierOTIFCorrelation float64 `json:"supplier_otif_correlation"`
	LabQACorrelation        float64 `json:"lab_qa_correlation"`

	Filtered records.Collections `json:"-"`
}

// Compute filters store with f relative to now and aggregates the result.
func Compute(store *records.Store, f filter.Filter, now time.Time) *Set {
	if store == nil {
		store = records.Empty()
	}
	pred := filter.Compile(f, now)
	c := pred.Store(store)

	set := &Set{
		Filter:     f,
		Window:     pred.Window(),
		ComputedAt: now,
		StoreAt:    store.LoadedAt,
		Filtered:   c,
	}
	supply(set, c)
	inventory(set, c)
	quality(set, c)
	regulatory(set, c)
	correlations(set, c)
	return set
}

func supply(s *Set, c records.Collections) {
	o := c.Orders
	s.OrderCount = len(o)
	s.FulfillmentRate = stats.Rate(o, func(r records.Order) bool { return r.OrderFulfilled })
	s.OTIFRate = stats.Rate(o, isOTIF)
	s.PerfectOrderRate = stats.Rate(o, func(r records.Order) bool { return r.PerfectOrder })
	s.BackorderRate = stats.Rate(o, func(r records.Order) bool { return r.Backorder })
	s.AvgCycleTimeDays = stats.Mean(o, func(r records.Order) float64 { return r.CycleTimeDays })
	s.AvgLeadTimeDays = stats.Mean(o, func(r records.Order) float64 { return r.SupplierLeadTime })
	s.AvgCostPerOrder = stats.Mean(o, func(r records.Order) float64 { return r.CostPerOrder })
	s.TotalOrderCost = stats.Sum(o, func(r records.Order) float64 { return r.TotalOrderCost })
	s.AvgCashToCashDays = stats.Mean(o, func(r records.Order) float64 { return r.CashToCashCycle })
	s.VisibilityPct = stats.Mean(o, func(r records.Order) float64 { return r.VisibilityScore }) * 100
	s.SupplierScore = stats.Mean(c.SupplierPerf, func(r records.SupplierPerf) float64 { return r.OverallPerformanceScore })
}

func inventory(s *Set, c records.Collections) {
	s.InventoryTurnover = stats.Mean(c.Turnover, func(r records.Turnover) float64 { return r.TurnoverRatio })
	s.InventoryAccuracyPct = stats.Mean(c.Turnover, func(r records.Turnover) float64 { return r.InventoryAccuracy }) * 100

	blocked := stats.Sum(c.Inventory, func(r records.Inventory) float64 {
		if r.Status == records.StockBlocked {
			return r.Qty
		}
		return 0
	})
	total := stats.Sum(c.Inventory, func(r records.Inventory) float64 { return r.Qty })
	s.BlockedStockPct = stats.Percent(blocked, total)
	s.InventoryAgingDays = stats.Mean(c.Inventory, func(r records.Inventory) float64 { return r.DaysToExpiry })
	s.InventoryValue = stats.Sum(c.Inventory, func(r records.Inventory) float64 { return r.InventoryValue })
}

func quality(s *Set, c records.Collections) {
	s.BatchReleaseRate = stats.Rate(c.Batches, func(r records.Batch) bool { return r.Status == records.BatchPass })
	s.AvgQADays = stats.Mean(c.Batches, func(r records.Batch) float64 { return r.QADays })
	s.AvgLabTATDays = stats.Mean(c.Labs, func(r records.Lab) float64 { return r.TAT })
	s.CriticalDeviations = stats.Count(c.Deviations, func(r records.Deviation) bool { return r.Severity == records.SeverityCritical })
	s.AvgDaysToResolve = stats.Mean(c.Deviations, func(r records.Deviation) float64 { return r.DaysToResolve })
}

func regulatory(s *Set, c records.Collections) {
	s.ApprovalCoverageRate = stats.Rate(c.Approvals, isCovered)
	s.AvgTimeToApprovalDays = stats.Mean(c.Submissions, func(r records.Submission) float64 { return r.TTA })
	s.PendingSubmissions = stats.Count(c.Submissions, func(r records.Submission) bool { return r.Status == records.SubmissionPending })
}

func correlations(s *Set, c records.Collections) {
	supplierScore := stats.MonthlySeries(c.SupplierPerf,
		func(r records.SupplierPerf) string { return r.Month },
		func(r records.SupplierPerf) float64 { return r.OverallPerformanceScore })
	otif := stats.MonthlySeries(c.Orders, orderMonth, func(r records.Order) float64 {
		if isOTIF(r) {
			return 100
		}
		return 0
	})
	s.SupplierOTIFCorrelation = stats.AlignedPearson(supplierScore, otif)

	labTAT := stats.MonthlySeries(c.Labs,
		func(r records.Lab) string { return r.Month },
		func(r records.Lab) float64 { return r.TAT })
	qaDays := stats.MonthlySeries(c.Batches,
		func(r records.Batch) string { return r.Month },
		func(r records.Batch) float64 { return r.QADays })
	s.LabQACorrelation = stats.AlignedPearson(labTAT, qaDays)
}

func isOTIF(r records.Order) bool { return r.OrderFulfilled && r.OnTime }

func isCovered(r records.Approval) bool { return r.Pct >= ApprovalCoverageThreshold }

func orderMonth(r records.Order) string { return r.Month }
