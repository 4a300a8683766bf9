package batch

import (
	"sync"
)

type Stats struct {
	EventsQueued  int
	EventsSent    int
	EventsDropped int
	BatchesSent   int
	BatchesFailed int
	mu            sync.RWMutex
}

// StatsStamp is a point-in-time copy of Stats.
type StatsStamp struct {
	EventsQueued  int
	EventsSent    int
	EventsDropped int
	BatchesSent   int
	BatchesFailed int
	QueueLength   int
}

func (s *Stats) IncEventsQueued() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.EventsQueued++
}

func (s *Stats) IncEventsDropped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.EventsDropped++
}

func (s *Stats) AddBatchSent(events int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.BatchesSent++
	s.EventsSent += events
}

func (s *Stats) IncBatchesFailed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.BatchesFailed++
}

func (s *Stats) GetStatsStamp() StatsStamp {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return StatsStamp{
		EventsQueued:  s.EventsQueued,
		EventsSent:    s.EventsSent,
		EventsDropped: s.EventsDropped,
		BatchesSent:   s.BatchesSent,
		BatchesFailed: s.BatchesFailed,
	}
}
