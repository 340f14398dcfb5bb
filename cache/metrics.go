package cache

import (
	"github.com/prometheus/client_golang/prometheus"
)

// StatsSource is anything that can report cache statistics.
type StatsSource interface {
	Stats() Stats
}

// StatsCollector exports a StatsSource as prometheus metrics. Values are read
// on every scrape, so a ResetStats shows up as a counter reset.
type StatsCollector struct {
	source  StatsSource
	hits    *prometheus.Desc
	misses  *prometheus.Desc
	sets    *prometheus.Desc
	deletes *prometheus.Desc
	errors  *prometheus.Desc
	hitRate *prometheus.Desc
}

var _ prometheus.Collector = (*StatsCollector)(nil)

// NewStatsCollector builds a collector for source under namespace.
func NewStatsCollector(namespace string, source StatsSource) *StatsCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "cache", name), help, nil, nil)
	}
	return &StatsCollector{
		source:  source,
		hits:    desc("hits_total", "Cache lookups served from the cache."),
		misses:  desc("misses_total", "Cache lookups that fell through to the source."),
		sets:    desc("sets_total", "Values written to the cache."),
		deletes: desc("deletes_total", "Keys removed by invalidation."),
		errors:  desc("errors_total", "Cache-tier failures absorbed by the service."),
		hitRate: desc("hit_rate", "Hit rate as a percentage of lookups."),
	}
}

// Describe implements prometheus.Collector.
func (c *StatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.sets
	ch <- c.deletes
	ch <- c.errors
	ch <- c.hitRate
}

// Collect implements prometheus.Collector.
func (c *StatsCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.source.Stats()
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(s.Hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(s.Misses))
	ch <- prometheus.MustNewConstMetric(c.sets, prometheus.CounterValue, float64(s.Sets))
	ch <- prometheus.MustNewConstMetric(c.deletes, prometheus.CounterValue, float64(s.Deletes))
	ch <- prometheus.MustNewConstMetric(c.errors, prometheus.CounterValue, float64(s.Errors))
	ch <- prometheus.MustNewConstMetric(c.hitRate, prometheus.GaugeValue, s.HitRate)
}
