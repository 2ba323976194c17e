package metrics

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Target statuses.
const (
	StatusAchieved   = "achieved"
	StatusInProgress = "in_progress"
	StatusNotStarted = "not_started"
	StatusNoData     = "no_data"
)

// Target is one KPI goal from targets.yml.
type Target struct {
	ID          string  `yaml:"id" json:"id"`
	KPI         string  `yaml:"kpi" json:"kpi"`
	Preset      string  `yaml:"preset" json:"preset"`
	Description string  `yaml:"description" json:"description,omitempty"`
	Baseline    float64 `yaml:"baseline" json:"baseline"`
	Target      float64 `yaml:"target" json:"target"`
}

type targetsFile struct {
	Targets []Target `yaml:"targets"`
}

// LoadTargets reads a targets file. A missing file yields no targets.
func LoadTargets(path string) ([]Target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read targets: %w", err)
	}
	var file targetsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse targets %s: %w", path, err)
	}
	seen := make(map[string]struct{}, len(file.Targets))
	for i := range file.Targets {
		t := &file.Targets[i]
		t.KPI = strings.TrimSpace(t.KPI)
		if t.KPI == "" {
			return nil, fmt.Errorf("target %d: kpi is required", i+1)
		}
		if t.ID == "" {
			t.ID = t.KPI
		}
		if t.Preset == "" {
			t.Preset = "default"
		}
		if _, dup := seen[t.ID]; dup {
			return nil, fmt.Errorf("duplicate target id %q", t.ID)
		}
		seen[t.ID] = struct{}{}
	}
	return file.Targets, nil
}

// KPIScore is the progress of one target.
type KPIScore struct {
	ID              string   `json:"id"`
	KPI             string   `json:"kpi"`
	Preset          string   `json:"preset"`
	Description     string   `json:"description,omitempty"`
	Baseline        float64  `json:"baseline"`
	Target          float64  `json:"target"`
	Current         *float64 `json:"current,omitempty"`
	Unit            string   `json:"unit,omitempty"`
	PercentToTarget float64  `json:"percent_to_target"`
	Status          string   `json:"status"`
}

type ScoreReport struct {
	SchemaVersion int        `json:"schema_version"`
	AsOf          string     `json:"as_of"`
	SnapshotPath  string     `json:"snapshot_path"`
	Results       []KPIScore `json:"results"`
	MissingKPIs   []string   `json:"missing_kpis,omitempty"`
}

const ScoreSchemaVersion = 1

// ScoreKPIs computes a deterministic percent-to-target for each target
// based on snapshot points from the engine.
func ScoreKPIs(targets []Target, snapshot *Snapshot, snapshotPath string) (*ScoreReport, error) {
	if snapshot == nil {
		return nil, fmt.Errorf("snapshot is required")
	}

	// kpi name + preset -> point
	values := make(map[string]MetricPoint)
	for _, point := range snapshot.Points {
		if point.Key == "" {
			continue
		}
		k := point.Key + "\x00" + point.Dimension(DimPreset)
		if existing, ok := values[k]; ok {
			return nil, fmt.Errorf("duplicate kpi %q for preset %q from sources %q and %q",
				point.Key, point.Dimension(DimPreset), existing.Source, point.Source)
		}
		values[k] = point
	}

	results := make([]KPIScore, 0, len(targets))
	missing := make(map[string]struct{})
	for _, t := range targets {
		score := KPIScore{
			ID:          t.ID,
			KPI:         t.KPI,
			Preset:      t.Preset,
			Description: t.Description,
			Baseline:    t.Baseline,
			Target:      t.Target,
			Status:      StatusNoData,
		}
		if point, ok := values[t.KPI+"\x00"+t.Preset]; ok {
			score.Current = ptr(point.Value)
			score.Unit = point.Unit
			score.PercentToTarget = percentToTarget(t.Baseline, t.Target, point.Value)
			score.Status = determineStatus(score.PercentToTarget)
		} else {
			missing[t.KPI] = struct{}{}
		}
		results = append(results, score)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Preset != results[j].Preset {
			return results[i].Preset < results[j].Preset
		}
		return results[i].ID < results[j].ID
	})

	var missingKeys []string
	for k := range missing {
		missingKeys = append(missingKeys, k)
	}
	sort.Strings(missingKeys)

	return &ScoreReport{
		SchemaVersion: ScoreSchemaVersion,
		AsOf:          snapshot.AsOf,
		SnapshotPath:  snapshotPath,
		Results:       results,
		MissingKPIs:   missingKeys,
	}, nil
}

// percentToTarget handles both rising (target > baseline) and falling goals.
func percentToTarget(baseline, target, current float64) float64 {
	if baseline == target {
		if current >= target {
			return 100
		}
		return 0
	}

	var progress float64
	if target > baseline {
		progress = (current - baseline) / (target - baseline)
	} else {
		progress = (baseline - current) / (baseline - target)
	}

	if math.IsNaN(progress) || math.IsInf(progress, 0) {
		return 0
	}
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	return progress * 100
}

func determineStatus(percent float64) string {
	switch {
	case percent >= 100:
		return StatusAchieved
	case percent > 0:
		return StatusInProgress
	default:
		return StatusNotStarted
	}
}
