package httpfabric

import (
	"sync"
	"time"

	"github.com/marketwatch/agentcore/internal/clock"
)

// RateRule is a sliding-window rate limit: at most maxRequests in any
// window of length windowMs (spec §4.B).
type RateRule struct {
	MaxRequests int
	WindowMS    int64
}

// hostLimiter enforces one RateRule for one host using a sliding log of
// request timestamps. It is driven by an injected Clock so tests can
// advance time deterministically instead of sleeping in real time.
type hostLimiter struct {
	mu    sync.Mutex
	rule  RateRule
	clk   clock.Clock
	times []time.Time
}

func newHostLimiter(rule RateRule, clk clock.Clock) *hostLimiter {
	return &hostLimiter{rule: rule, clk: clk}
}

// wait blocks until a request slot under the sliding window is free.
func (h *hostLimiter) wait() {
	for {
		h.mu.Lock()
		now := h.clk.Now()
		cutoff := now.Add(-time.Duration(h.rule.WindowMS) * time.Millisecond)
		h.times = pruneBefore(h.times, cutoff)

		if len(h.times) < h.rule.MaxRequests {
			h.times = append(h.times, now)
			h.mu.Unlock()
			return
		}

		oldest := h.times[0]
		waitFor := oldest.Add(time.Duration(h.rule.WindowMS) * time.Millisecond).Sub(now)
		h.mu.Unlock()
		if waitFor <= 0 {
			continue
		}
		h.clk.Sleep(waitFor)
	}
}

func pruneBefore(times []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(times) && times[i].Before(cutoff) {
		i++
	}
	return times[i:]
}
