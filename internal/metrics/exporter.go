package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"kpiboard/internal/filter"
	"kpiboard/internal/kpi"
	"kpiboard/internal/records"
)

const namespace = "kpiboard"

// Exporter is a prometheus.Collector that computes KPIs at scrape time for
// each filter preset. All values of one scrape come from one store.
type Exporter struct {
	engine  *kpi.Engine
	filters map[string]filter.Filter

	kpiDesc     *prometheus.Desc
	recordsDesc *prometheus.Desc
	loadedDesc  *prometheus.Desc
}

// NewExporter returns a collector over engine.
func NewExporter(engine *kpi.Engine, filters map[string]filter.Filter) *Exporter {
	if len(filters) == 0 {
		filters = map[string]filter.Filter{"default": filter.Default()}
	}
	return &Exporter{
		engine:  engine,
		filters: filters,
		kpiDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "kpi_value"),
			"Current value of a dashboard KPI.",
			[]string{"kpi", "unit", DimPreset, DimSite, DimCategory, DimRange}, nil,
		),
		recordsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "store", "records"),
			"Records held in the loaded store by kind.",
			[]string{"kind"}, nil,
		),
		loadedDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "store", "loaded_timestamp_seconds"),
			"Unix time the current store was loaded.",
			nil, nil,
		),
	}
}

func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	ch <- e.kpiDesc
	ch <- e.recordsDesc
	ch <- e.loadedDesc
}

func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	store, sets := e.engine.ComputeEach(e.filters)

	for _, k := range records.Kinds() {
		ch <- prometheus.MustNewConstMetric(e.recordsDesc, prometheus.GaugeValue, float64(store.Len(k)), k.String())
	}
	if !store.LoadedAt.IsZero() {
		ch <- prometheus.MustNewConstMetric(e.loadedDesc, prometheus.GaugeValue, float64(store.LoadedAt.Unix()))
	}

	for _, name := range sortedFilterNames(e.filters) {
		set := sets[name]
		f := set.Filter
		for _, d := range kpi.Definitions() {
			ch <- prometheus.MustNewConstMetric(e.kpiDesc, prometheus.GaugeValue, d.Value(set),
				d.Name, d.Unit, name, orAll(f.Site), orAll(f.Category), string(f.DateRange))
		}
	}
}
