package jobs

import "time"

const jitterFraction = 0.1

// Backoff returns the delay before retry number attempt (1-based):
// base * 2^(attempt-1), capped at max, then spread by +-10% using r in [0,1).
func Backoff(attempt int, base, max time.Duration, r float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt && d < max; i++ {
		d *= 2
	}
	if d > max {
		d = max
	}
	spread := 1 - jitterFraction + 2*jitterFraction*r
	return time.Duration(float64(d) * spread)
}
