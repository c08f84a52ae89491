package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Event names counted by the approval flow.
const (
	LeaveSubmitted        = "leaveSubmitted"
	ApprovalEmailsSent    = "approvalEmailsSent"
	DecisionsAccepted     = "decisionsAccepted"
	DecisionsRejected     = "decisionsRejected"
	DecisionsUnauthorized = "decisionsUnauthorized"
	OutcomesRecorded      = "outcomesRecorded"
	OutcomeEmailsSent     = "outcomeEmailsSent"
	DependencyFailures    = "dependencyFailures"
)

type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	rateLimited     uint64
	totalDurationMs uint64

	mu     sync.Mutex
	events map[string]*uint64
}

func New() *Collector {
	return &Collector{events: make(map[string]*uint64)}
}

func (c *Collector) Record(status int, duration time.Duration) {
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	if status == 429 {
		atomic.AddUint64(&c.rateLimited, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

// Inc bumps a named event counter. A nil collector ignores the call.
func (c *Collector) Inc(name string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	counter, ok := c.events[name]
	if !ok {
		counter = new(uint64)
		c.events[name] = counter
	}
	c.mu.Unlock()
	atomic.AddUint64(counter, 1)
}

func (c *Collector) Count(name string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if counter, ok := c.events[name]; ok {
		return atomic.LoadUint64(counter)
	}
	return 0
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	errs := atomic.LoadUint64(&c.errorRequests)
	limited := atomic.LoadUint64(&c.rateLimited)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	events := make(map[string]uint64)
	c.mu.Lock()
	for name, counter := range c.events {
		events[name] = atomic.LoadUint64(counter)
	}
	c.mu.Unlock()
	return map[string]any{
		"requestsTotal":    total,
		"errorsTotal":      errs,
		"rateLimitedTotal": limited,
		"avgDurationMs":    avg,
		"totalDurationMs":  totalMs,
		"events":           events,
	}
}
