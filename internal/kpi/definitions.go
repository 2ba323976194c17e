package kpi

// Definition names one KPI of a Set.
type Definition struct {
	Name  string
	Unit  string
	Help  string
	value func(*Set) float64
}

var definitions = []Definition{
	{"order_count", "count", "Orders in the filtered window", func(s *Set) float64 { return float64(s.OrderCount) }},
	{"fulfillment_rate", "pct", "Orders fulfilled", func(s *Set) float64 { return s.FulfillmentRate }},
	{"otif_rate", "pct", "Orders fulfilled and on time", func(s *Set) float64 { return s.OTIFRate }},
	{"perfect_order_rate", "pct", "Perfect orders", func(s *Set) float64 { return s.PerfectOrderRate }},
	{"backorder_rate", "pct", "Orders on backorder", func(s *Set) float64 { return s.BackorderRate }},
	{"avg_cycle_time_days", "days", "Mean order cycle time", func(s *Set) float64 { return s.AvgCycleTimeDays }},
	{"avg_lead_time_days", "days", "Mean supplier lead time", func(s *Set) float64 { return s.AvgLeadTimeDays }},
	{"avg_cost_per_order", "currency", "Mean cost per order", func(s *Set) float64 { return s.AvgCostPerOrder }},
	{"total_order_cost", "currency", "Total order cost", func(s *Set) float64 { return s.TotalOrderCost }},
	{"avg_cash_to_cash_days", "days", "Mean cash-to-cash cycle", func(s *Set) float64 { return s.AvgCashToCashDays }},
	{"visibility_pct", "pct", "Mean supply chain visibility", func(s *Set) float64 { return s.VisibilityPct }},
	{"supplier_score", "score", "Mean supplier overall performance", func(s *Set) float64 { return s.SupplierScore }},
	{"inventory_turnover", "ratio", "Mean inventory turnover", func(s *Set) float64 { return s.InventoryTurnover }},
	{"inventory_accuracy_pct", "pct", "Mean inventory accuracy", func(s *Set) float64 { return s.InventoryAccuracyPct }},
	{"blocked_stock_pct", "pct", "Blocked share of stock quantity", func(s *Set) float64 { return s.BlockedStockPct }},
	{"inventory_aging_days", "days", "Mean days to expiry", func(s *Set) float64 { return s.InventoryAgingDays }},
	{"inventory_value", "currency", "Total inventory value", func(s *Set) float64 { return s.InventoryValue }},
	{"batch_release_rate", "pct", "Batches passing QA", func(s *Set) float64 { return s.BatchReleaseRate }},
	{"avg_qa_days", "days", "Mean QA release time", func(s *Set) float64 { return s.AvgQADays }},
	{"avg_lab_tat_days", "days", "Mean lab turnaround time", func(s *Set) float64 { return s.AvgLabTATDays }},
	{"critical_deviations", "count", "Critical deviations", func(s *Set) float64 { return float64(s.CriticalDeviations) }},
	{"avg_days_to_resolve", "days", "Mean deviation resolution time", func(s *Set) float64 { return s.AvgDaysToResolve }},
	{"approval_coverage_rate", "pct", "Approvals at or above 90%", func(s *Set) float64 { return s.ApprovalCoverageRate }},
	{"avg_time_to_approval_days", "days", "Mean time to approval", func(s *Set) float64 { return s.AvgTimeToApprovalDays }},
	{"pending_submissions", "count", "Submissions pending approval", func(s *Set) float64 { return float64(s.PendingSubmissions) }},
	{"supplier_otif_correlation", "r", "Monthly supplier score vs OTIF", func(s *Set) float64 { return s.SupplierOTIFCorrelation }},
	{"lab_qa_correlation", "r", "Monthly lab TAT vs QA days", func(s *Set) float64 { return s.LabQACorrelation }},
}

// Definitions lists every KPI in display order.
func Definitions() []Definition {
	return append([]Definition(nil), definitions...)
}

// Names lists KPI names in display order.
func Names() []string {
	out := make([]string, 0, len(definitions))
	for _, d := range definitions {
		out = append(out, d.Name)
	}
	return out
}

// Lookup returns the definition for name.
func Lookup(name string) (Definition, bool) {
	for _, d := range definitions {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}

// Value evaluates the definition against s.
func (d Definition) Value(s *Set) float64 {
	if s == nil || d.value == nil {
		return 0
	}
	return d.value(s)
}

// Values flattens s into name -> number.
func (s *Set) Values() map[string]float64 {
	out := make(map[string]float64, len(definitions))
	for _, d := range definitions {
		out[d.Name] = d.value(s)
	}
	return out
}
