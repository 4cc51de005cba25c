package core

import "time"

// Clock is the elapsed-time source the stepping loop polls. Micros must be
// monotonically non-decreasing within a session and is expected to wrap at
// 2^32; consumers compute intervals with unsigned subtraction so wraparound
// is harmless. Read from a single goroutine only.
type Clock interface {
	Micros() uint32
}

// SystemClock implements Clock from the runtime's monotonic clock. Targets
// with a hardware microsecond counter register their own implementation
// instead.
type SystemClock struct {
	start time.Time
}

func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

func (c *SystemClock) Micros() uint32 {
	return uint32(time.Since(c.start).Microseconds())
}

// Global singleton used by the command layer.
var clock Clock

// SetClock is called by target-specific code to register its time source.
func SetClock(c Clock) {
	clock = c
}

// MustClock returns the configured time source or panics if missing.
func MustClock() Clock {
	if clock == nil {
		panic("clock not configured")
	}
	return clock
}
