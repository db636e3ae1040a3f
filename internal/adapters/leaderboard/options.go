package leaderboard

import (
	"time"

	"github.com/questforge/questforge/pkg/logger"
)

// Option applies a configuration option to the Tracker.
type Option func(*Tracker)

// WithSnapshotInterval sets the snapshot publish cadence.
func WithSnapshotInterval(interval time.Duration) Option {
	return func(t *Tracker) {
		if interval > 0 {
			t.snapshotInterval = interval
		}
	}
}

// WithIdleWait sets how long a subscription stays quiet before it receives
// a no-data update.
func WithIdleWait(wait time.Duration) Option {
	return func(t *Tracker) {
		if wait > 0 {
			t.idleWait = wait
		}
	}
}

// WithTopCacheSize bounds how many ranked rows each snapshot materializes
// for push delivery.
func WithTopCacheSize(size int) Option {
	return func(t *Tracker) {
		if size > 0 {
			t.topCacheSize = size
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.log = l.Named("leaderboard")
		}
	}
}
