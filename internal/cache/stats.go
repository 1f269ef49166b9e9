package cache

import "sync/atomic"

// Stats tracks cache effectiveness counters. Always enabled.
type Stats struct {
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

func (s *Stats) hit()      { s.hits.Add(1) }
func (s *Stats) miss()     { s.misses.Add(1) }
func (s *Stats) eviction() { s.evictions.Add(1) }

func (s *Stats) snapshot() StatsSnapshot {
	return StatsSnapshot{
		Hits:      s.hits.Load(),
		Misses:    s.misses.Load(),
		Evictions: s.evictions.Load(),
	}
}

// StatsSnapshot is a point-in-time view of the counters.
type StatsSnapshot struct {
	Hits      int64
	Misses    int64
	Evictions int64
}
