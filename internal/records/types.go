package records

// Dims are the filterable attributes shared by every record kind.
// Empty strings mean the field was absent.
type Dims struct {
	Site     string
	Category string
	Month    string
}

// Scoped is implemented by every record kind.
type Scoped interface {
	Dims() Dims
}

// Order is a supply order line.
type Order struct {
	Site             string  `json:"site"`
	SiteName         string  `json:"site_name,omitempty"`
	Category         string  `json:"category"`
	Brand            string  `json:"brand,omitempty"`
	Month            string  `json:"month"`
	OrderFulfilled   bool    `json:"order_fulfilled"`
	OnTime           bool    `json:"on_time"`
	PerfectOrder     bool    `json:"perfect_order"`
	Backorder        bool    `json:"backorder"`
	CycleTimeDays    float64 `json:"cycle_time_days"`
	SupplierLeadTime float64 `json:"supplier_lead_time"`
	CostPerOrder     float64 `json:"cost_per_order"`
	TotalOrderCost   float64 `json:"total_order_cost"`
	CashToCashCycle  float64 `json:"cash_to_cash_cycle"`
	VisibilityScore  float64 `json:"visibility_score"`
}

func (r Order) Dims() Dims { return Dims{Site: r.Site, Category: r.Category, Month: r.Month} }

// Batch is a manufactured batch and its QA outcome.
type Batch struct {
	Site     string      `json:"site"`
	SiteName string      `json:"site_name,omitempty"`
	Category string      `json:"category"`
	Month    string      `json:"month"`
	Status   BatchStatus `json:"status"`
	QADays   float64     `json:"qa_days"`
}

func (r Batch) Dims() Dims { return Dims{Site: r.Site, Category: r.Category, Month: r.Month} }

// Lab is a completed lab test.
type Lab struct {
	Site     string  `json:"site"`
	SiteName string  `json:"site_name,omitempty"`
	Category string  `json:"category"`
	Month    string  `json:"month"`
	TAT      float64 `json:"tat"`
}

func (r Lab) Dims() Dims { return Dims{Site: r.Site, Category: r.Category, Month: r.Month} }

// Inventory is a stock lot.
type Inventory struct {
	Site           string      `json:"site"`
	SiteName       string      `json:"site_name,omitempty"`
	Category       string      `json:"category"`
	Month          string      `json:"month"`
	Status         StockStatus `json:"status"`
	Qty            float64     `json:"qty"`
	UnitCost       float64     `json:"unit_cost"`
	InventoryValue float64     `json:"inventory_value"`
	DaysToExpiry   float64     `json:"days_to_expiry"`
}

func (r Inventory) Dims() Dims { return Dims{Site: r.Site, Category: r.Category, Month: r.Month} }

// Turnover is a monthly inventory turnover observation.
type Turnover struct {
	Site              string  `json:"site"`
	SiteName          string  `json:"site_name,omitempty"`
	Category          string  `json:"category"`
	Month             string  `json:"month"`
	TurnoverRatio     float64 `json:"turnover_ratio"`
	InventoryAccuracy float64 `json:"inventory_accuracy"`
}

func (r Turnover) Dims() Dims { return Dims{Site: r.Site, Category: r.Category, Month: r.Month} }

// Approval is the share of a brand approved in a country.
type Approval struct {
	Site     string  `json:"site"`
	SiteName string  `json:"site_name,omitempty"`
	Category string  `json:"category"`
	Month    string  `json:"month"`
	Country  string  `json:"country"`
	Brand    string  `json:"brand"`
	Pct      float64 `json:"pct"`
}

func (r Approval) Dims() Dims { return Dims{Site: r.Site, Category: r.Category, Month: r.Month} }

// Submission is a regulatory submission.
type Submission struct {
	Site     string           `json:"site"`
	SiteName string           `json:"site_name,omitempty"`
	Category string           `json:"category"`
	Month    string           `json:"month"`
	Brand    string           `json:"brand,omitempty"`
	Status   SubmissionStatus `json:"status"`
	TTA      float64          `json:"tta"`
}

func (r Submission) Dims() Dims { return Dims{Site: r.Site, Category: r.Category, Month: r.Month} }

// SupplierPerf is a monthly supplier scorecard.
type SupplierPerf struct {
	Site                    string  `json:"site"`
	Category                string  `json:"category"`
	Month                   string  `json:"month"`
	SupplierID              string  `json:"supplier_id"`
	SupplierName            string  `json:"supplier_name"`
	Region                  string  `json:"region,omitempty"`
	SupplierCategory        string  `json:"supplier_category,omitempty"`
	OnTimeDeliveryPct       float64 `json:"on_time_delivery_pct"`
	QualityScorePct         float64 `json:"quality_score_pct"`
	ResponsivenessPct       float64 `json:"responsiveness_pct"`
	FlexibilityPct          float64 `json:"flexibility_pct"`
	OverallPerformanceScore float64 `json:"overall_performance_score"`
}

func (r SupplierPerf) Dims() Dims { return Dims{Site: r.Site, Category: r.Category, Month: r.Month} }

// Deviation is a recorded quality deviation.
type Deviation struct {
	Site          string   `json:"site"`
	SiteName      string   `json:"site_name,omitempty"`
	Category      string   `json:"category"`
	Month         string   `json:"month"`
	Severity      Severity `json:"severity"`
	RootCause     string   `json:"root_cause,omitempty"`
	DaysToResolve float64  `json:"days_to_resolve"`
}

func (r Deviation) Dims() Dims { return Dims{Site: r.Site, Category: r.Category, Month: r.Month} }
