// Package docstore defines the keyed-document storage port and its errors.
//
// The port models the storage contract the progression engine needs: opaque
// string keys grouped into collections, JSON document payloads, versioned
// compare-and-swap updates, and change notification for read models. Every
// mutation of gamification state (XP, quest set, badges) goes through
// ConditionalUpdate; plain overwrites of those documents are a correctness
// bug.
package docstore

import (
	"context"
	"time"
)

// Document is one stored record. Version increases by one on every write
// and is the basis of optimistic concurrency.
type Document struct {
	Collection string
	Key        string
	Version    int64
	Data       []byte
	UpdatedAt  time.Time
}

// Change notifies watchers of a committed write.
type Change struct {
	Collection string
	Key        string
	Document   Document
}

// MutateFunc transforms the current document body into the next one. It may
// be invoked multiple times during conflict retries and must be free of side
// effects. Returning ErrNoChange keeps the document untouched while still
// handing the current document back to the caller.
type MutateFunc func(current []byte) ([]byte, error)

// Store provides read/write access to keyed documents.
type Store interface {
	// Get returns the document at collection/key, or ErrNotFound.
	Get(ctx context.Context, collection, key string) (Document, error)

	// Put unconditionally creates or replaces a document. It is reserved for
	// record bootstrap and non-gamification fields; XP-bearing documents are
	// mutated through ConditionalUpdate only.
	Put(ctx context.Context, collection, key string, data []byte) (Document, error)

	// ConditionalUpdate applies fn under optimistic concurrency: read the
	// current version, mutate, and commit only if the version is unchanged.
	// Retries on conflict up to maxRetries, then fails with ErrConflict.
	// Returns ErrNotFound if no document exists at collection/key.
	ConditionalUpdate(ctx context.Context, collection, key string, fn MutateFunc, maxRetries int) (Document, error)

	// List returns every document in a collection, in unspecified order.
	List(ctx context.Context, collection string) ([]Document, error)

	// Watch streams committed changes for a collection until cancel is
	// called or ctx is done. Slow consumers may miss intermediate changes;
	// the stream guarantees delivery of a change at or after the latest
	// committed state, not an event log.
	Watch(ctx context.Context, collection string) (<-chan Change, func())

	// Close releases the store and tears down all watchers.
	Close() error
}
