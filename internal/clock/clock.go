// Package clock provides an injectable time source so that scheduling,
// backoff jitter, and cooldown arithmetic can be driven deterministically
// in tests (spec §5, "Determinism").
package clock

import "time"

// Clock is the capability every timing-sensitive component depends on
// instead of calling time.Now/time.Sleep directly.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
	After(d time.Duration) <-chan time.Time
}

// Real is the production Clock backed by the wall clock.
type Real struct{}

// NewReal returns the production Clock.
func NewReal() Clock { return Real{} }

func (Real) Now() time.Time                  { return time.Now() }
func (Real) Sleep(d time.Duration)            { time.Sleep(d) }
func (Real) After(d time.Duration) <-chan time.Time { return time.After(d) }
