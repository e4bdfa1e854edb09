package auth

import (
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// limiterIdleTTL is how long an idle client's limiter is remembered
const limiterIdleTTL = 15 * time.Minute

// LoginLimiter throttles login attempts per client key (the remote IP).
type LoginLimiter struct {
	limiters *cache.Cache
	limit    rate.Limit
	burst    int
}

// NewLoginLimiter allows perMinute attempts per client with the given burst.
func NewLoginLimiter(perMinute float64, burst int) *LoginLimiter {
	return &LoginLimiter{
		// no janitor goroutine; expired entries are dropped in Allow
		limiters: cache.New(limiterIdleTTL, 0),
		limit:    rate.Limit(perMinute / 60),
		burst:    burst,
	}
}

// Blocked reports whether key has used up its budget, without spending
// from it.
func (l *LoginLimiter) Blocked(key string) bool {
	v, ok := l.limiters.Get(key)
	if !ok {
		return false
	}
	return v.(*rate.Limiter).Tokens() < 1
}

// Allow reports whether key may attempt a login now.
func (l *LoginLimiter) Allow(key string) bool {
	if v, ok := l.limiters.Get(key); ok {
		lim := v.(*rate.Limiter)
		l.limiters.SetDefault(key, lim)
		return lim.Allow()
	}

	if l.limiters.ItemCount() > 1024 {
		l.limiters.DeleteExpired()
	}
	lim := rate.NewLimiter(l.limit, l.burst)
	// Add fails when a concurrent request stored one first
	if err := l.limiters.Add(key, lim, cache.DefaultExpiration); err != nil {
		if v, ok := l.limiters.Get(key); ok {
			lim = v.(*rate.Limiter)
		}
	}
	return lim.Allow()
}
