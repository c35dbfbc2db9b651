package httpfabric

import (
	"math"
	"math/rand"
	"strconv"
	"time"
)

// backoffDelay implements spec §4.B step 4:
//
//	delay_n = min(maxDelay, minDelay * mult^(n-1)) * uniform(1-j, 1+j)
//
// attempt is 1-indexed (the first retry is attempt 1). rng may be nil,
// in which case the package default source is used; tests inject a
// seeded *rand.Rand for reproducibility.
func backoffDelay(attempt int, minDelay, maxDelay time.Duration, mult, jitter float64, rng *rand.Rand) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	raw := float64(minDelay) * math.Pow(mult, float64(attempt-1))
	capped := math.Min(float64(maxDelay), raw)

	lo, hi := 1-jitter, 1+jitter
	var factor float64
	if rng != nil {
		factor = lo + rng.Float64()*(hi-lo)
	} else {
		factor = lo + rand.Float64()*(hi-lo)
	}
	return time.Duration(capped * factor)
}

// parseRetryAfter parses the Retry-After header, which may be either a
// number of seconds or an HTTP-date (spec §4.B step 3).
func parseRetryAfter(header string, now time.Time) (time.Duration, bool) {
	if header == "" {
		return 0, false
	}
	if secs, err := strconv.ParseInt(header, 10, 64); err == nil {
		return time.Duration(secs) * time.Second, true
	}
	if t, err := time.Parse(time.RFC1123, header); err == nil {
		d := t.Sub(now)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}
