package feed

import "time"

// Backoff produces exponentially growing reconnect delays. The feed is
// not on the critical path, so there is no attempt cap: callers retry
// forever and Reset after any successful connection.
type Backoff struct {
	Base       time.Duration
	Multiplier float64
	Max        time.Duration

	current time.Duration
}

// DefaultBackoff matches the live feed's reconnect policy.
func DefaultBackoff() *Backoff {
	return &Backoff{Base: time.Second, Multiplier: 2, Max: 30 * time.Second}
}

// Next returns the delay to wait before the next attempt and advances the
// schedule.
func (b *Backoff) Next() time.Duration {
	if b.current <= 0 {
		b.current = b.Base
	}
	d := b.current
	next := time.Duration(float64(b.current) * b.Multiplier)
	if next > b.Max {
		next = b.Max
	}
	b.current = next
	return d
}

// Reset restores the schedule to the base delay.
func (b *Backoff) Reset() {
	b.current = b.Base
}
