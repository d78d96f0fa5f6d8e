package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrEthical07/contentauth"
	"github.com/MrEthical07/contentauth/metrics/export/internaldefs"
)

type metricsSource interface {
	MetricsSnapshot() contentauth.MetricsSnapshot
	AuditDropped() uint64
}

type counterDesc struct {
	id   contentauth.MetricID
	desc *prometheus.Desc
}

// Collector reads an engine snapshot on every scrape and emits constant
// metrics. Histogram sums are not tracked by the engine and are reported
// as zero.
type Collector struct {
	source     metricsSource
	counters   []counterDesc
	histograms []counterDesc
	dropped    *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector builds a collector over source, usually a *contentauth.Engine.
func NewCollector(source metricsSource) *Collector {
	c := &Collector{
		source:  source,
		dropped: prometheus.NewDesc("contentauth_audit_dropped_total", "Audit events dropped under dispatcher backpressure.", nil, nil),
	}
	for _, def := range internaldefs.CounterDefs {
		c.counters = append(c.counters, counterDesc{id: def.ID, desc: prometheus.NewDesc(def.Name, def.Help, nil, nil)})
	}
	for _, def := range internaldefs.HistogramDefs {
		c.histograms = append(c.histograms, counterDesc{id: def.ID, desc: prometheus.NewDesc(def.Name, def.Help, nil, nil)})
	}
	return c
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.counters {
		ch <- d.desc
	}
	for _, d := range c.histograms {
		ch <- d.desc
	}
	ch <- c.dropped
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.source == nil {
		return
	}
	snap := c.source.MetricsSnapshot()

	for _, d := range c.counters {
		ch <- prometheus.MustNewConstMetric(d.desc, prometheus.CounterValue, float64(snap.Counters[d.id]))
	}
	for _, d := range c.histograms {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snap.Histograms[d.id]))
		buckets := make(map[float64]uint64, len(internaldefs.HistogramUpperBounds))
		for i, le := range internaldefs.HistogramUpperBounds {
			buckets[le] = cumulative[i]
		}
		ch <- prometheus.MustNewConstHistogram(d.desc, cumulative[internaldefs.BucketCount-1], 0, buckets)
	}
	ch <- prometheus.MustNewConstMetric(c.dropped, prometheus.CounterValue, float64(c.source.AuditDropped()))
}

// NewRegistry returns a private registry holding the engine collector and
// the Go runtime and process collectors.
func NewRegistry(source metricsSource) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	for _, col := range []prometheus.Collector{
		NewCollector(source),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Handler serves the registry built by NewRegistry in the text exposition
// format.
func Handler(source metricsSource) (http.Handler, error) {
	reg, err := NewRegistry(source)
	if err != nil {
		return nil, err
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}), nil
}
