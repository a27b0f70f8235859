package server

import (
	"strings"
	"sync"
	"time"
)

// RateLimiter implements sliding-window admission control per
// (user, action) key. Each key owns its own lock, so concurrent requests
// for different users never contend. Stale timestamps are pruned lazily on
// the key's next call; an idle user's list never grows, so no background
// sweep runs.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*rateWindow
	now     func() time.Time
}

type rateWindow struct {
	mu     sync.Mutex
	stamps []time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		windows: make(map[string]*rateWindow),
		now:     time.Now,
	}
}

// Allow reports whether the action is admitted. It prunes timestamps older
// than the trailing window, rejects when maxCount are still inside it, and
// records the call otherwise. A rejection is a throttling signal for the
// caller, not an error.
func (l *RateLimiter) Allow(userID, actionKind string, maxCount int, window time.Duration) bool {
	if maxCount <= 0 || window <= 0 {
		return false
	}

	key := strings.TrimSpace(userID) + ":" + strings.TrimSpace(actionKind)

	l.mu.Lock()
	entry, ok := l.windows[key]
	if !ok {
		entry = &rateWindow{}
		l.windows[key] = entry
	}
	l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-window)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	kept := entry.stamps[:0]
	for _, stamp := range entry.stamps {
		if stamp.After(cutoff) {
			kept = append(kept, stamp)
		}
	}
	entry.stamps = kept

	if len(entry.stamps) >= maxCount {
		return false
	}
	entry.stamps = append(entry.stamps, now)
	return true
}
