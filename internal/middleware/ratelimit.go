package middleware

import (
	"sync"
	"time"
)

// FailureLimiter counts failed attempts per key within a fixed window.
// A key is blocked once it reaches maxFailures until its window expires.
type FailureLimiter struct {
	maxFailures int
	window      time.Duration
	now         func() time.Time

	mu      sync.Mutex
	entries map[string]*failureEntry

	stop chan struct{}
	once sync.Once
}

type failureEntry struct {
	count       int
	windowStart time.Time
}

// NewFailureLimiter creates a limiter and starts its cleanup loop.
// Call Close to stop the loop.
func NewFailureLimiter(maxFailures int, window time.Duration) *FailureLimiter {
	l := &FailureLimiter{
		maxFailures: maxFailures,
		window:      window,
		now:         time.Now,
		entries:     make(map[string]*failureEntry),
		stop:        make(chan struct{}),
	}
	go l.cleanup()
	return l
}

// Blocked reports whether key has exhausted its failures for the current window.
func (l *FailureLimiter) Blocked(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[key]
	if !ok || l.expired(entry) {
		return false
	}
	return entry.count >= l.maxFailures
}

// RecordFailure counts one failed attempt against key.
func (l *FailureLimiter) RecordFailure(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[key]
	if !ok || l.expired(entry) {
		l.entries[key] = &failureEntry{count: 1, windowStart: l.now()}
		return
	}
	entry.count++
}

// Reset forgets key, e.g. after a successful attempt.
func (l *FailureLimiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}

// RetryAfter returns how long until key's window resets.
func (l *FailureLimiter) RetryAfter(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[key]
	if !ok {
		return 0
	}
	remaining := l.window - l.now().Sub(entry.windowStart)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Close stops the cleanup loop. It is safe to call more than once.
func (l *FailureLimiter) Close() {
	l.once.Do(func() { close(l.stop) })
}

// expired must be called with mu held.
func (l *FailureLimiter) expired(entry *failureEntry) bool {
	return l.now().Sub(entry.windowStart) >= l.window
}

func (l *FailureLimiter) cleanup() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.mu.Lock()
			for key, entry := range l.entries {
				if l.expired(entry) {
					delete(l.entries, key)
				}
			}
			l.mu.Unlock()
		}
	}
}
