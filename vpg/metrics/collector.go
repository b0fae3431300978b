// Package metrics exports timeline load counters and job runner stats to
// Prometheus.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ZanzyTHEbar/virtual-photogrid/vpg/grid"
	"github.com/ZanzyTHEbar/virtual-photogrid/vpg/ingest"
)

const namespace = "vpg"

// GridSource is satisfied by *grid.Store.
type GridSource interface {
	Metrics() grid.LoadMetrics
	TimelineHeight() float64
}

// RunnerSource is satisfied by *ingest.Runner.
type RunnerSource interface {
	Stats() ingest.Stats
}

// Collector reads its sources on every scrape. Either source may be nil.
type Collector struct {
	grid   GridSource
	runner RunnerSource

	fetches        *prometheus.Desc
	staleDiscarded *prometheus.Desc
	fetchSeconds   *prometheus.Desc
	timelineHeight *prometheus.Desc
	jobs           *prometheus.Desc
	jobsQueued     *prometheus.Desc
}

func NewCollector(g GridSource, r RunnerSource) *Collector {
	return &Collector{
		grid:   g,
		runner: r,
		fetches: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "grid", "fetches_total"),
			"Bucket fetches by outcome", []string{"outcome"}, nil),
		staleDiscarded: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "grid", "stale_results_total"),
			"Fetch results discarded because the bucket was cancelled or reset", nil, nil),
		fetchSeconds: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "grid", "fetch_seconds_total"),
			"Cumulative time spent in bucket fetches", nil, nil),
		timelineHeight: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "grid", "timeline_height_pixels"),
			"Tracked total timeline height", nil, nil),
		jobs: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "jobs", "total"),
			"Background jobs by outcome", []string{"outcome"}, nil),
		jobsQueued: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "jobs", "queued"),
			"Jobs waiting in the runner queue", nil, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.fetches
	ch <- c.staleDiscarded
	ch <- c.fetchSeconds
	ch <- c.timelineHeight
	ch <- c.jobs
	ch <- c.jobsQueued
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.grid != nil {
		m := c.grid.Metrics()
		for outcome, v := range map[string]int64{
			"issued":    m.FetchesIssued,
			"loaded":    m.FetchesLoaded,
			"empty":     m.FetchesEmpty,
			"cancelled": m.FetchesCancelled,
			"failed":    m.FetchesFailed,
		} {
			ch <- prometheus.MustNewConstMetric(c.fetches, prometheus.CounterValue, float64(v), outcome)
		}
		ch <- prometheus.MustNewConstMetric(c.staleDiscarded, prometheus.CounterValue, float64(m.StaleDiscarded))
		ch <- prometheus.MustNewConstMetric(c.fetchSeconds, prometheus.CounterValue, m.TotalFetchTime.Seconds())
		ch <- prometheus.MustNewConstMetric(c.timelineHeight, prometheus.GaugeValue, c.grid.TimelineHeight())
	}
	if c.runner != nil {
		s := c.runner.Stats()
		ch <- prometheus.MustNewConstMetric(c.jobs, prometheus.CounterValue, float64(s.Processed), "processed")
		ch <- prometheus.MustNewConstMetric(c.jobs, prometheus.CounterValue, float64(s.Failed), "failed")
		ch <- prometheus.MustNewConstMetric(c.jobs, prometheus.CounterValue, float64(s.Skipped), "skipped")
		ch <- prometheus.MustNewConstMetric(c.jobsQueued, prometheus.GaugeValue, float64(s.Queued))
	}
}

// Register adds c to reg, reusing a collector already registered there.
func Register(reg prometheus.Registerer, c prometheus.Collector) prometheus.Collector {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector
		}
		panic(err)
	}
	return c
}
