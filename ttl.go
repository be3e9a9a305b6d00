package rediset

import "time"

// resolveTTL returns the explicit override when one was given, zero
// included, and def otherwise.
func resolveTTL(override *time.Duration, def time.Duration) time.Duration {
	if override != nil {
		return *override
	}
	return def
}
