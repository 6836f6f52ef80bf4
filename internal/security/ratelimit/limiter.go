// Package ratelimit is a sliding-window request limiter keyed by caller.
package ratelimit

import (
	"sync"
	"time"
)

type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	maxReqs int
	window  time.Duration
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

type bucket struct {
	requests []time.Time
	lastSeen time.Time
}

// NewLimiter allows maxRequests per window per key. A background sweep drops
// keys idle for longer than 15 minutes until Stop is called.
func NewLimiter(maxRequests int, window time.Duration) *Limiter {
	l := &Limiter{
		buckets: make(map[string]*bucket),
		maxReqs: maxRequests,
		window:  window,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go l.sweep(5 * time.Minute)
	return l
}

// Allow applies the default limit to key. An empty key is never limited.
func (l *Limiter) Allow(key string) bool {
	if key == "" {
		return true
	}
	return l.take(key, l.maxReqs, l.window)
}

// AllowStrict applies a tighter limit in a separate bucket namespace, used
// for login and registration attempts.
func (l *Limiter) AllowStrict(key string, maxReqs int, window time.Duration) bool {
	return l.take("strict:"+key, maxReqs, window)
}

func (l *Limiter) take(key string, maxReqs int, window time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{}
		l.buckets[key] = b
	}
	b.lastSeen = now

	cutoff := now.Add(-window)
	kept := b.requests[:0]
	for _, t := range b.requests {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	b.requests = kept

	if len(b.requests) >= maxReqs {
		return false
	}
	b.requests = append(b.requests, now)
	return true
}

func (l *Limiter) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.prune(15 * time.Minute)
		}
	}
}

func (l *Limiter) prune(idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	threshold := l.now().Add(-idle)
	n := 0
	for key, b := range l.buckets {
		if b.lastSeen.Before(threshold) {
			delete(l.buckets, key)
			n++
		}
	}
	return n
}

// Stop ends the background sweep. Safe to call more than once.
func (l *Limiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}
