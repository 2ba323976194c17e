package metrics

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"kpiboard/internal/kpi"
)

// SourceManual marks points entered by hand in metrics/manual.yml.
const SourceManual = "manual"

// ManualProvider reads KPIs that are reported outside the record feeds,
// such as audit findings or complaint counts.
type ManualProvider struct {
	Path string
	AsOf time.Time
}

func (p *ManualProvider) Name() string { return SourceManual }

type manualFile struct {
	Metrics []manualMetric `yaml:"metrics"`
}

type manualMetric struct {
	Key        string            `yaml:"key"`
	Value      float64           `yaml:"value"`
	Unit       string            `yaml:"unit"`
	Preset     string            `yaml:"preset"`
	Evidence   []string          `yaml:"evidence"`
	Dimensions map[string]string `yaml:"dimensions"`
}

// Collect returns nothing when the file is absent. Keys that shadow an
// engine KPI are rejected.
func (p *ManualProvider) Collect(ctx context.Context) ([]MetricPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.Path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(p.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read manual metrics: %w", err)
	}

	var file manualFile
	if err := yaml.Unmarshal(data, &file); err == nil && file.Metrics != nil {
		return p.pointsFrom(file.Metrics)
	}

	var list []manualMetric
	if err := yaml.Unmarshal(data, &list); err == nil && list != nil {
		return p.pointsFrom(list)
	}

	return nil, fmt.Errorf("manual metrics file must contain `metrics:` list or a top-level list")
}

func (p *ManualProvider) pointsFrom(metrics []manualMetric) ([]MetricPoint, error) {
	ts := AsOfTimestamp(p.AsOf)

	points := make([]MetricPoint, 0, len(metrics))
	for _, metric := range metrics {
		if metric.Key == "" {
			continue
		}
		if _, ok := kpi.Lookup(metric.Key); ok {
			return nil, fmt.Errorf("manual metric %q shadows a computed KPI", metric.Key)
		}

		keys := make([]string, 0, len(metric.Dimensions))
		for k := range metric.Dimensions {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var dims []Dimension
		if metric.Preset != "" {
			dims = append(dims, Dimension{Key: DimPreset, Value: metric.Preset})
		}
		for _, k := range keys {
			dims = append(dims, Dimension{Key: k, Value: metric.Dimensions[k]})
		}

		points = append(points, MetricPoint{
			Key:        metric.Key,
			Value:      metric.Value,
			Unit:       metric.Unit,
			Timestamp:  ts,
			Source:     p.Name(),
			Evidence:   metric.Evidence,
			Dimensions: CanonicalizeDimensions(dims),
		})
	}

	return points, nil
}
