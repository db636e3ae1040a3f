// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load(ctx) layers defaults, optional YAML file, and env vars.
// - External errors are wrapped via this package's sentinel errors.
package config

import (
	"runtime"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StorePath selects the document store backend: a SQLite file path,
	// or empty for the in-memory store.
	StorePath string `koanf:"store_path"`

	// LeaderboardLimit caps how many entries a leaderboard snapshot carries.
	LeaderboardLimit int `koanf:"leaderboard_limit"`

	// NearbyWindow sets how many neighbours surround a user in rank queries.
	NearbyWindow int `koanf:"nearby_window"`

	// StoreTimeoutMS bounds a single document-store round trip.
	StoreTimeoutMS int `koanf:"store_timeout_ms"`

	// SubmitTimeoutMS bounds a whole quest-submission call.
	SubmitTimeoutMS int `koanf:"submit_timeout_ms"`

	// ConflictRetries bounds conditional-update retries before ErrConflict.
	ConflictRetries int `koanf:"conflict_retries"`

	// IdleWaitMS is the leaderboard subscription's no-data signal window.
	IdleWaitMS int `koanf:"idle_wait_ms"`

	// SnapshotIntervalMS throttles leaderboard snapshot publication.
	SnapshotIntervalMS int `koanf:"snapshot_interval_ms"`

	// JournalQueueSize bounds the completion journal queue.
	JournalQueueSize int `koanf:"journal_queue_size"`

	// JournalWorkers sets the number of journal writer goroutines.
	JournalWorkers int `koanf:"journal_workers"`

	// DedupeSize sets the size of the submission-id dedupe cache.
	DedupeSize int `koanf:"dedupe_size"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		Addr:               ":8090",
		StorePath:          "",
		LeaderboardLimit:   50,
		NearbyWindow:       3,
		StoreTimeoutMS:     3_000,
		SubmitTimeoutMS:    10_000,
		ConflictRetries:    5,
		IdleWaitMS:         5_000,
		SnapshotIntervalMS: 250,
		JournalQueueSize:   4_096,
		JournalWorkers:     runtime.NumCPU(),
		DedupeSize:         50_000,
	}
}
