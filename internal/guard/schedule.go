package guard

import "time"

// lockoutThreshold is the cumulative failure count at which lockouts begin.
const lockoutThreshold = 5

// lockoutDuration returns the lockout applied after n cumulative failed
// submissions. The schedule escalates monotonically with the failure count.
func lockoutDuration(n int) time.Duration {
	switch {
	case n < lockoutThreshold:
		return 0
	case n <= 7:
		return time.Minute
	case n <= 9:
		return 5 * time.Minute
	case n <= 14:
		return 15 * time.Minute
	default:
		return 60 * time.Minute
	}
}
