package metrics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"kpiboard/internal/filter"
	"kpiboard/internal/kpi"
)

// SourceEngine marks points computed from the record store.
const SourceEngine = "engine"

// CollectAll runs providers and merges their points.
func CollectAll(ctx context.Context, providers []Provider) ([]MetricPoint, error) {
	var all []MetricPoint
	for _, provider := range providers {
		if provider == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		points, err := provider.Collect(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s provider: %w", provider.Name(), err)
		}
		all = append(all, points...)
	}
	return CanonicalizePoints(all), nil
}

// FromSet flattens a KPI set into one point per definition.
func FromSet(set *kpi.Set, preset string, ts string) []MetricPoint {
	if set == nil {
		return nil
	}
	dims := FilterDimensions(preset, set.Filter)
	defs := kpi.Definitions()
	points := make([]MetricPoint, 0, len(defs))
	for _, d := range defs {
		points = append(points, MetricPoint{
			Key:        d.Name,
			Value:      d.Value(set),
			Unit:       d.Unit,
			Timestamp:  ts,
			Source:     SourceEngine,
			Dimensions: append([]Dimension(nil), dims...),
		})
	}
	return points
}

// KPIProvider computes every KPI for each named filter preset. A non-zero
// AsOf anchors the month windows as well as the point timestamps.
type KPIProvider struct {
	Engine  *kpi.Engine
	Filters map[string]filter.Filter
	AsOf    time.Time
}

func (p *KPIProvider) Name() string { return SourceEngine }

func (p *KPIProvider) Collect(ctx context.Context) ([]MetricPoint, error) {
	if p.Engine == nil {
		return nil, fmt.Errorf("kpi engine is required")
	}
	filters := p.Filters
	if len(filters) == 0 {
		filters = map[string]filter.Filter{"default": filter.Default()}
	}
	ts := AsOfTimestamp(p.AsOf)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var sets map[string]*kpi.Set
	if p.AsOf.IsZero() {
		_, sets = p.Engine.ComputeEach(filters)
	} else {
		_, sets = p.Engine.ComputeEachAt(filters, p.AsOf)
	}
	var points []MetricPoint
	for _, name := range sortedFilterNames(filters) {
		points = append(points, FromSet(sets[name], name, ts)...)
	}
	return points, nil
}

func sortedFilterNames(filters map[string]filter.Filter) []string {
	names := make([]string, 0, len(filters))
	for name := range filters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
