// Package ratelimit provides in-process sliding-window request admission.
// State lives in memory only; a restart resets all windows. That is
// acceptable for abuse mitigation, which is the only thing this guards.
package ratelimit

import (
	"sync"
	"time"
)

// Result reports an admission decision. ResetIn is the time until the
// oldest request leaves the window and a new request would be admitted;
// it is zero when the request was allowed.
type Result struct {
	Allowed bool
	ResetIn time.Duration
}

type window struct {
	mu         sync.Mutex
	timestamps []time.Time
}

// Limiter keeps one sliding window of request timestamps per
// (user, action) pair. Safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	windows map[key]*window
	now     func() time.Time
	stop    chan struct{}
}

type key struct {
	userID uint
	action string
}

// New creates a limiter with a background eviction pass that drops windows
// idle longer than maxIdle, every cleanupInterval. Call Stop on shutdown.
func New(cleanupInterval, maxIdle time.Duration) *Limiter {
	l := &Limiter{
		windows: make(map[key]*window),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go l.cleanup(cleanupInterval, maxIdle)
	return l
}

// Stop terminates the background eviction goroutine.
func (l *Limiter) Stop() {
	close(l.stop)
}

// Allow admits or rejects one request for (userID, action). At most max
// requests are admitted per sliding windowSize; an admitted call records
// its timestamp as a side effect.
func (l *Limiter) Allow(userID uint, action string, windowSize time.Duration, max int) Result {
	if max <= 0 {
		return Result{Allowed: false, ResetIn: windowSize}
	}

	w := l.getWindow(key{userID: userID, action: action})
	now := l.now()
	cutoff := now.Add(-windowSize)

	w.mu.Lock()
	defer w.mu.Unlock()

	kept := w.timestamps[:0]
	for _, ts := range w.timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	w.timestamps = kept

	if len(w.timestamps) >= max {
		oldest := w.timestamps[0]
		return Result{Allowed: false, ResetIn: oldest.Add(windowSize).Sub(now)}
	}

	w.timestamps = append(w.timestamps, now)
	return Result{Allowed: true}
}

func (l *Limiter) getWindow(k key) *window {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.windows[k]
	if !ok {
		w = &window{}
		l.windows[k] = w
	}
	return w
}

func (l *Limiter) cleanup(interval, maxIdle time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.evictIdle(maxIdle)
		}
	}
}

func (l *Limiter) evictIdle(maxIdle time.Duration) {
	cutoff := l.now().Add(-maxIdle)
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, w := range l.windows {
		w.mu.Lock()
		idle := len(w.timestamps) == 0 || w.timestamps[len(w.timestamps)-1].Before(cutoff)
		w.mu.Unlock()
		if idle {
			delete(l.windows, k)
		}
	}
}
