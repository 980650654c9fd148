package umm

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metric descriptor indices and descriptor table.
const (
	migrationOpsDesc = iota
	migrationBytesDesc
	runsDesc
)

var descriptors = []*prometheus.Desc{
	migrationOpsDesc: prometheus.NewDesc(
		"unimem_migration_ops_total",
		"Migration operations since engine creation, per trigger kind and direction",
		[]string{
			"trigger",
			"direction",
		}, nil,
	),
	migrationBytesDesc: prometheus.NewDesc(
		"unimem_migration_bytes_total",
		"Bytes migrated since engine creation, per trigger kind and direction",
		[]string{
			"trigger",
			"direction",
		}, nil,
	),
	runsDesc: prometheus.NewDesc(
		"unimem_profile_runs_total",
		"Profiling runs begun since engine creation",
		nil, nil,
	),
}

// Label values are fixed per enum value so dashboards can rely on them.
var (
	triggerLabels   = map[TriggerKind]string{TriggerOnDemand: "on_demand", TriggerPrefetch: "prefetch"}
	directionLabels = map[Direction]string{ToDevice: "to_device", ToHost: "to_host"}
)

// Collector exposes a Recorder's cumulative migration counters as Prometheus metrics. It
// implements prometheus.Collector and can be registered on any registry:
//
//	registry.MustRegister(umm.NewCollector(engine.Recorder()))
type Collector struct {
	rec *Recorder
}

// NewCollector creates a Collector reading from the given recorder.
func NewCollector(rec *Recorder) *Collector {
	return &Collector{rec: rec}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, desc := range descriptors {
		ch <- desc
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ops, bytes, runs := c.rec.totalsSnapshot()
	for _, trigger := range TriggerKindValues() {
		for _, direction := range DirectionValues() {
			ch <- prometheus.MustNewConstMetric(
				descriptors[migrationOpsDesc],
				prometheus.CounterValue,
				float64(ops[trigger][direction]),
				triggerLabels[trigger], directionLabels[direction],
			)
			ch <- prometheus.MustNewConstMetric(
				descriptors[migrationBytesDesc],
				prometheus.CounterValue,
				float64(bytes[trigger][direction]),
				triggerLabels[trigger], directionLabels[direction],
			)
		}
	}
	ch <- prometheus.MustNewConstMetric(
		descriptors[runsDesc],
		prometheus.CounterValue,
		float64(runs),
	)
}
