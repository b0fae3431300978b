package grid

import (
	"sync"
	"time"
)

// LoadMetrics counts bucket fetch outcomes for observability.
type LoadMetrics struct {
	FetchesIssued    int64
	FetchesLoaded    int64
	FetchesEmpty     int64
	FetchesCancelled int64
	FetchesFailed    int64
	StaleDiscarded   int64
	TotalFetchTime   time.Duration
	LastFetch        time.Time
}

type loadMetrics struct {
	mu sync.RWMutex
	m  LoadMetrics
}

func (lm *loadMetrics) issued() {
	lm.mu.Lock()
	lm.m.FetchesIssued++
	lm.mu.Unlock()
}

func (lm *loadMetrics) record(start time.Time, update func(m *LoadMetrics)) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	update(&lm.m)
	lm.m.TotalFetchTime += time.Since(start)
	lm.m.LastFetch = time.Now()
}

func (lm *loadMetrics) get() LoadMetrics {
	lm.mu.RLock()
	defer lm.mu.RUnlock()
	return lm.m
}

// AverageFetchTime returns the mean duration of completed fetches.
func (m LoadMetrics) AverageFetchTime() time.Duration {
	completed := m.FetchesLoaded + m.FetchesEmpty + m.FetchesCancelled + m.FetchesFailed + m.StaleDiscarded
	if completed == 0 {
		return 0
	}
	return m.TotalFetchTime / time.Duration(completed)
}
