package cache

import (
	"github.com/puzpuzpuz/xsync/v3"
)

// Stats is a point-in-time snapshot of the service counters. HitRate is a
// percentage in [0, 100].
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Sets    int64   `json:"sets"`
	Deletes int64   `json:"deletes"`
	Errors  int64   `json:"errors"`
	HitRate float64 `json:"hitRate"`
}

// counters are the process-lifetime statistics of a service. Each counter is
// striped so concurrent increments never lose updates.
type counters struct {
	hits    *xsync.Counter
	misses  *xsync.Counter
	sets    *xsync.Counter
	deletes *xsync.Counter
	errors  *xsync.Counter
}

func newCounters() *counters {
	return &counters{
		hits:    xsync.NewCounter(),
		misses:  xsync.NewCounter(),
		sets:    xsync.NewCounter(),
		deletes: xsync.NewCounter(),
		errors:  xsync.NewCounter(),
	}
}

func (c *counters) snapshot() Stats {
	s := Stats{
		Hits:    c.hits.Value(),
		Misses:  c.misses.Value(),
		Sets:    c.sets.Value(),
		Deletes: c.deletes.Value(),
		Errors:  c.errors.Value(),
	}
	s.HitRate = hitRate(s.Hits, s.Misses)
	return s
}

func (c *counters) reset() {
	c.hits.Reset()
	c.misses.Reset()
	c.sets.Reset()
	c.deletes.Reset()
	c.errors.Reset()
}

func hitRate(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}
