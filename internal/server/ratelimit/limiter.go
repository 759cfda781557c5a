// Package ratelimit throttles API clients with per-key token buckets.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleTTL is how long a full bucket stays in memory after its last use.
const idleTTL = 10 * time.Minute

// Result contains the outcome of a rate limit check.
type Result struct {
	Allowed    bool
	Limit      int           // requests per minute
	Remaining  int           // whole tokens left in the bucket
	ResetAt    time.Time     // when the bucket is full again
	RetryAfter time.Duration // 0 when allowed
}

// Limiter keeps one token bucket per key. All buckets share the same rate and
// burst.
type Limiter struct {
	perMin int
	rate   rate.Limit
	burst  int
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
	stop    chan struct{}
	once    sync.Once
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewLimiter returns a limiter allowing perMin requests per minute per key.
// perMin must be positive.
// burst defaults to perMin when not positive. Call Close to stop the
// background eviction of idle buckets.
func NewLimiter(perMin, burst int) *Limiter {
	if burst <= 0 {
		burst = perMin
	}
	l := &Limiter{
		perMin:  perMin,
		rate:    rate.Limit(float64(perMin) / 60),
		burst:   burst,
		now:     time.Now,
		buckets: make(map[string]*bucket),
		stop:    make(chan struct{}),
	}
	go l.evictLoop()
	return l
}

// Allow consumes one token from key's bucket if available.
func (l *Limiter) Allow(key string) Result {
	now := l.now()
	l.mu.Lock()
	b := l.buckets[key]
	if b == nil {
		b = &bucket{lim: rate.NewLimiter(l.rate, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	l.mu.Unlock()

	res := Result{Allowed: true, Limit: l.perMin}
	r := b.lim.ReserveN(now, 1)
	if delay := r.DelayFrom(now); !r.OK() || delay > 0 {
		r.CancelAt(now)
		res.Allowed = false
		res.RetryAfter = max(delay.Round(time.Second), time.Second)
	}
	tokens := b.lim.TokensAt(now)
	res.Remaining = max(int(tokens), 0)
	missing := float64(l.burst) - tokens
	res.ResetAt = now.Add(time.Duration(missing / float64(l.rate) * float64(time.Second)))
	return res
}

// Close stops the eviction goroutine. It is safe to call more than once.
func (l *Limiter) Close() {
	l.once.Do(func() { close(l.stop) })
}

func (l *Limiter) evictLoop() {
	t := time.NewTicker(idleTTL)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			l.evict()
		case <-l.stop:
			return
		}
	}
}

// evict drops buckets that are idle and full, so forgetting them is
// indistinguishable from keeping them.
func (l *Limiter) evict() {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > idleTTL && b.lim.TokensAt(now) >= float64(l.burst) {
			delete(l.buckets, key)
		}
	}
}

func (l *Limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
