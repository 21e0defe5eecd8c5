package factgraph

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Clock numbers facts in arrival order. The Graph stores every new fact
// at the clock's next value.
type Clock interface {
	Next() int64
}

// SeqClock is a monotonic logical clock.
//
// Thread-safety: SeqClock is safe for concurrent use (atomic operations).
type SeqClock struct {
	seq atomic.Int64
}

// NewClockAt creates a clock whose next value is start+1. The Graph uses it
// to resume numbering after the last seq of a reopened fact log.
func NewClockAt(start int64) *SeqClock {
	c := &SeqClock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number.
func (c *SeqClock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last sequence number handed out.
func (c *SeqClock) Current() int64 {
	return c.seq.Load()
}

// UUIDv7Generator generates time-sortable subscription IDs.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
