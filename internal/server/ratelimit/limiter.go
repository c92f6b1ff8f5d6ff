// Package ratelimit counts requests per key in fixed windows, either in
// process memory or in Redis when several server instances share limits.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	DefaultWindow = time.Minute
	sweepInterval = 5 * time.Minute
)

// Limiter decides whether one more request for key fits into limit per
// window. A non-positive limit disables limiting.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) Decision
	Close() error
}

type Decision struct {
	Allowed   bool
	Count     int
	WindowEnd time.Time
}

// Remaining is the number of requests still allowed in the current window.
func (d Decision) Remaining(limit int) int {
	if r := limit - d.Count; r > 0 {
		return r
	}
	return 0
}

type memoryLimiter struct {
	mu      sync.Mutex
	entries map[string]window
	now     func() time.Time
	stopCh  chan struct{}
	once    sync.Once
}

type window struct {
	count int
	end   time.Time
}

// NewMemory returns a process-local Limiter with a background sweeper that
// drops expired windows. Close stops the sweeper.
func NewMemory() Limiter {
	l := &memoryLimiter{
		entries: make(map[string]window),
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
	go l.sweepLoop()
	return l
}

func (l *memoryLimiter) Allow(_ context.Context, key string, limit int, win time.Duration) Decision {
	if limit <= 0 {
		return Decision{Allowed: true}
	}
	if win <= 0 {
		win = DefaultWindow
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.entries[key]
	if !ok || now.After(st.end) {
		st = window{count: 1, end: now.Add(win)}
		l.entries[key] = st
		return Decision{Allowed: true, Count: st.count, WindowEnd: st.end}
	}
	if st.count >= limit {
		return Decision{Allowed: false, Count: st.count, WindowEnd: st.end}
	}
	st.count++
	l.entries[key] = st
	return Decision{Allowed: true, Count: st.count, WindowEnd: st.end}
}

func (l *memoryLimiter) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.cleanup(l.now())
		case <-l.stopCh:
			return
		}
	}
}

func (l *memoryLimiter) cleanup(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, st := range l.entries {
		if now.After(st.end) {
			delete(l.entries, key)
		}
	}
}

func (l *memoryLimiter) Close() error {
	l.once.Do(func() { close(l.stopCh) })
	return nil
}
