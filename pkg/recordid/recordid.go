// Package recordid issues report identifiers of the form PREFIX-<epoch-millis>.
package recordid

import (
	"strconv"
	"sync"
	"time"
)

// Generator hands out ids that are strictly increasing within the process.
// Two calls landing in the same millisecond get consecutive values.
type Generator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// New returns a generator reading the wall clock.
func New() *Generator {
	return &Generator{now: time.Now}
}

// NewWithClock is New with an injected clock.
func NewWithClock(now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{now: now}
}

// Next returns prefix-<millis>.
func (g *Generator) Next(prefix string) string {
	g.mu.Lock()
	millis := g.now().UnixMilli()
	if millis <= g.last {
		millis = g.last + 1
	}
	g.last = millis
	g.mu.Unlock()

	return prefix + "-" + strconv.FormatInt(millis, 10)
}
