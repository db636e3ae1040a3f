package journal

import "github.com/questforge/questforge/pkg/logger"

// Option applies a configuration option to the Journal.
type Option func(*Journal)

// WithQueueSize bounds the number of completions waiting to be written.
func WithQueueSize(size int) Option {
	return func(j *Journal) {
		if size > 0 {
			j.size = size
		}
	}
}

// WithWorkers sets the writer pool size.
func WithWorkers(n int) Option {
	return func(j *Journal) {
		if n > 0 {
			j.workers = n
		}
	}
}

// WithWriteRetries sets how many times a failed store write is retried.
func WithWriteRetries(n int) Option {
	return func(j *Journal) {
		if n >= 0 {
			j.retries = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(j *Journal) {
		if l != nil {
			j.log = l.Named("journal")
		}
	}
}
