package hashcache

import "time"

const (
	DefaultConnection   = "default"
	DefaultBaseLocation = "general"
	CriticalLocation    = "critical"

	defaultLockRetry = 250 * time.Millisecond
)

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

// wholeSeconds rounds ttl up to whole seconds, the resolution of EXPIRE,
// HEXPIRE and SET EX.
func wholeSeconds(ttl time.Duration) time.Duration {
	if r := ttl % time.Second; r != 0 {
		ttl += time.Second - r
	}
	return max(ttl, time.Second)
}
