package leave

import (
	"strconv"
	"sync"
	"time"
)

const RequestIDPrefix = "LEAVE-"

// IDGenerator issues LEAVE-<unix millis> identifiers. Within one process the
// numeric suffix is strictly increasing even when the clock stalls or steps back.
type IDGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewIDGenerator(now func() time.Time) *IDGenerator {
	if now == nil {
		now = time.Now
	}
	return &IDGenerator{now: now}
}

func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	ms := g.now().UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return RequestIDPrefix + strconv.FormatInt(ms, 10)
}
