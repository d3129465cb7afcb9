package analytics

import (
	"sync"
	"testing"
	"time"

	"github.com/August26/proxycheck-api/internal/model"
)

func report(tcpAlive bool, http *model.HTTPProbeResult, tcpMs int64) model.VerificationReport {
	r := model.VerificationReport{
		TCP:  model.TCPProbeResult{Alive: tcpAlive, LatencyMs: tcpMs},
		HTTP: http,
	}
	if http != nil {
		r.Alive = http.Alive
	}
	return r
}

func TestTracker_Snapshot(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start
	tr := newTrackerAt(func() time.Time { return now })

	tr.Record(report(false, nil, 20))
	tr.Record(report(true, &model.HTTPProbeResult{Alive: false, LatencyMs: 900, Tries: 2}, 10))
	tr.Record(report(true, &model.HTTPProbeResult{Alive: true, LatencyMs: 190, Tries: 1}, 10))
	tr.Record(report(true, &model.HTTPProbeResult{Alive: true, LatencyMs: 390, Tries: 2}, 10))

	now = start.Add(90 * time.Second)
	got := tr.Snapshot()
	want := model.ServiceStats{
		TotalChecks:    4,
		AliveProxies:   2,
		TCPFailures:    1,
		HTTPFailures:   1,
		AvgLatencyMs:   300,
		SuccessRatePct: 50,
		UptimeSec:      90,
	}
	if got != want {
		t.Fatalf("got %#v want %#v", got, want)
	}
}

func TestTracker_Empty(t *testing.T) {
	got := NewTracker().Snapshot()
	if got.TotalChecks != 0 || got.AvgLatencyMs != 0 || got.SuccessRatePct != 0 {
		t.Fatalf("unexpected %#v", got)
	}
}

func TestTracker_Concurrent(t *testing.T) {
	tr := NewTracker()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Record(report(false, nil, 1))
		}()
	}
	wg.Wait()
	if got := tr.Snapshot(); got.TotalChecks != 50 || got.TCPFailures != 50 {
		t.Fatalf("unexpected %#v", got)
	}
}
