// Package filter narrows record collections by site, category and a
// month window.
package filter

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"kpiboard/internal/records"
)

// All disables the site or category axis.
const All = "all"

// ErrUnknownRange is returned by ParseDateRange for tokens outside the enum.
var ErrUnknownRange = errors.New("unknown date range")

// DateRange is the closed set of time windows.
type DateRange string

const (
	Range30d DateRange = "30d"
	Range90d DateRange = "90d"
	Range1y  DateRange = "1y"

	DefaultRange = Range90d
)

// Months is the number of calendar months the range covers.
func (r DateRange) Months() int {
	switch r {
	case Range30d:
		return 1
	case Range90d:
		return 3
	case Range1y:
		return 12
	}
	return DefaultRange.Months()
}

// ParseDateRange validates a range token. An empty token yields the default.
func ParseDateRange(v string) (DateRange, error) {
	switch DateRange(strings.TrimSpace(v)) {
	case "":
		return DefaultRange, nil
	case Range30d:
		return Range30d, nil
	case Range90d:
		return Range90d, nil
	case Range1y:
		return Range1y, nil
	}
	return "", fmt.Errorf("%w %q (want 30d, 90d or 1y)", ErrUnknownRange, v)
}

// Filter is the stateless query triple.
type Filter struct {
	Site      string    `json:"site" yaml:"site"`
	Category  string    `json:"category" yaml:"category"`
	DateRange DateRange `json:"dateRange" yaml:"date_range"`
}

// Default matches every site and category over the default window.
func Default() Filter {
	return Filter{Site: All, Category: All, DateRange: DefaultRange}
}

// ExpandWindow returns the month keys covered by r, oldest first, ending at
// the month containing now.
func ExpandWindow(now time.Time, r DateRange) []string {
	n := r.Months()
	anchor := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, anchor.AddDate(0, -i, 0).Format("2006-01"))
	}
	// generated newest first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Predicate is a Filter compiled against a clock reading.
type Predicate struct {
	site     string
	category string
	window   []string
	months   map[string]struct{}
}

// Compile resolves the filter's window relative to now.
func Compile(f Filter, now time.Time) Predicate {
	window := ExpandWindow(now, f.DateRange)
	months := make(map[string]struct{}, len(window))
	for _, m := range window {
		months[m] = struct{}{}
	}
	return Predicate{
		site:     active(f.Site),
		category: active(f.Category),
		window:   window,
		months:   months,
	}
}

// Window returns the expanded month keys, oldest first.
func (p Predicate) Window() []string {
	return append([]string(nil), p.window...)
}

// Match reports whether a record with dims passes. caps describe the
// record's collection.
func (p Predicate) Match(caps records.Capabilities, d records.Dims) bool {
	if p.site != "" && d.Site != p.site {
		return false
	}
	if p.category != "" && caps.HasCategory && d.Category != "" && d.Category != p.category {
		return false
	}
	if d.Month != "" {
		if _, ok := p.months[d.Month]; !ok {
			return false
		}
	}
	return true
}

// Apply returns the records of rs that match, preserving input order.
func Apply[T records.Scoped](p Predicate, caps records.Capabilities, rs []T) []T {
	out := make([]T, 0, len(rs))
	for _, r := range rs {
		if p.Match(caps, r.Dims()) {
			out = append(out, r)
		}
	}
	return out
}

// Store filters every collection of s.
func (p Predicate) Store(s *records.Store) records.Collections {
	return records.Collections{
		Orders:       Apply(p, s.Capabilities(records.KindOrders), s.Orders),
		Batches:      Apply(p, s.Capabilities(records.KindBatches), s.Batches),
		Labs:         Apply(p, s.Capabilities(records.KindLabs), s.Labs),
		Inventory:    Apply(p, s.Capabilities(records.KindInventory), s.Inventory),
		Turnover:     Apply(p, s.Capabilities(records.KindTurnover), s.Turnover),
		Approvals:    Apply(p, s.Capabilities(records.KindApprovals), s.Approvals),
		Submissions:  Apply(p, s.Capabilities(records.KindSubmissions), s.Submissions),
		SupplierPerf: Apply(p, s.Capabilities(records.KindSupplierPerf), s.SupplierPerf),
		Deviations:   Apply(p, s.Capabilities(records.KindDeviations), s.Deviations),
	}
}

func active(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, All) {
		return ""
	}
	return v
}
