package supervisor

import "time"

// Backoff computes the delay before the next automatic respawn as a pure
// function of the consecutive-crash count inside the sliding window:
// base doubled per extra crash, capped at max. It is deliberately free of
// side effects so the policy is testable apart from the scheduling loop.
func Backoff(consecutive int, base, max time.Duration) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	d := base
	for i := 1; i < consecutive; i++ {
		d *= 2
		if max > 0 && d >= max {
			return max
		}
	}
	if max > 0 && d > max {
		d = max
	}
	return d
}

// pruneWindow drops crash timestamps older than the sliding window.
func pruneWindow(crashes []time.Time, now time.Time, window time.Duration) []time.Time {
	if window <= 0 {
		return crashes
	}
	cutoff := now.Add(-window)
	i := 0
	for i < len(crashes) && crashes[i].Before(cutoff) {
		i++
	}
	return crashes[i:]
}
