package metrics

import (
	"net/http"
	"sync"
	"testing"
	"time"
)

func TestRecordAndSnapshot(t *testing.T) {
	c := New()
	c.Record(http.StatusOK, 10*time.Millisecond)
	c.Record(http.StatusInternalServerError, 30*time.Millisecond)
	c.Record(http.StatusTooManyRequests, 0)

	snap := c.Snapshot()
	if snap["requestsTotal"] != uint64(3) {
		t.Fatalf("expected 3 requests, got %v", snap["requestsTotal"])
	}
	if snap["errorsTotal"] != uint64(1) {
		t.Fatalf("expected 1 error, got %v", snap["errorsTotal"])
	}
	if snap["rateLimitedTotal"] != uint64(1) {
		t.Fatalf("expected 1 rate limited, got %v", snap["rateLimitedTotal"])
	}
}

func TestIncIsConcurrencySafe(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Inc(LeaveSubmitted)
		}()
	}
	wg.Wait()
	if got := c.Count(LeaveSubmitted); got != 50 {
		t.Fatalf("expected 50, got %d", got)
	}
	events := c.Snapshot()["events"].(map[string]uint64)
	if events[LeaveSubmitted] != 50 {
		t.Fatalf("expected snapshot to carry events, got %v", events)
	}
}

func TestNilCollectorIncIsNoop(t *testing.T) {
	var c *Collector
	c.Inc(LeaveSubmitted)
}
