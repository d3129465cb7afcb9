package analytics

import (
	"sync"
	"time"

	"github.com/August26/proxycheck-api/internal/model"
)

// Tracker accumulates statistics over every report the service produced.
// It is safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	started time.Time
	now     func() time.Time

	total          int
	alive          int
	tcpFailures    int
	httpFailures   int
	totalLatencyMs int64
	latencyCount   int64
}

func NewTracker() *Tracker {
	return newTrackerAt(time.Now)
}

func newTrackerAt(now func() time.Time) *Tracker {
	return &Tracker{started: now(), now: now}
}

// Record adds one finished check. Latency of alive proxies is TCP connect
// time plus the cumulative HTTP time.
func (t *Tracker) Record(r model.VerificationReport) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.total++
	switch {
	case !r.TCP.Alive:
		t.tcpFailures++
	case r.HTTP != nil && !r.HTTP.Alive:
		t.httpFailures++
	}

	if r.Alive {
		t.alive++
		latency := r.TCP.LatencyMs
		if r.HTTP != nil {
			latency += r.HTTP.LatencyMs
		}
		t.totalLatencyMs += latency
		t.latencyCount++
	}
}

// Snapshot returns the current aggregate.
func (t *Tracker) Snapshot() model.ServiceStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	stats := model.ServiceStats{
		TotalChecks:  t.total,
		AliveProxies: t.alive,
		TCPFailures:  t.tcpFailures,
		HTTPFailures: t.httpFailures,
		UptimeSec:    int64(t.now().Sub(t.started).Seconds()),
	}
	if t.latencyCount > 0 {
		stats.AvgLatencyMs = float64(t.totalLatencyMs) / float64(t.latencyCount)
	}
	if t.total > 0 {
		stats.SuccessRatePct = (float64(t.alive) / float64(t.total)) * 100.0
	}
	return stats
}
