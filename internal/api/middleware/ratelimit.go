package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter hands out one token bucket per session. A bucket idle long
// enough to have refilled is dropped; a fresh one behaves the same.
type RateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*visitor
	limit     rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	l := &RateLimiter{
		limiters: make(map[string]*visitor),
		limit:    rate.Limit(perSecond),
		burst:    burst,
		now:      time.Now,
	}
	if perSecond > 0 {
		l.idle = time.Duration(float64(burst) / perSecond * float64(time.Second))
	}
	return l
}

// Allow reports whether key may proceed now
func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweepLocked(now)

	v, ok := l.limiters[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

func (l *RateLimiter) sweepLocked(now time.Time) {
	if l.idle <= 0 || now.Sub(l.lastSweep) < l.idle/2 {
		return
	}
	l.lastSweep = now
	for key, v := range l.limiters {
		if now.Sub(v.lastSeen) > l.idle {
			delete(l.limiters, key)
		}
	}
}

// Len is the number of buckets held
func (l *RateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// Middleware rejects requests over the per-session limit with 429.
// Requests without a session share one bucket.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(GetSessionID(r.Context())) {
			w.Header().Set("Retry-After", l.retryAfter())
			respondError(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *RateLimiter) retryAfter() string {
	secs := 1
	if l.limit > 0 && l.limit < 1 {
		secs = int(math.Ceil(1 / float64(l.limit)))
	}
	return strconv.Itoa(secs)
}
