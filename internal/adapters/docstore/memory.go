package docstore

import (
	"context"
	"sync"
	"time"

	"github.com/questforge/questforge/pkg/metrics"
)

// MemoryStore is a mutex-guarded in-process Store. It is the default
// backend in tests and local development and the reference for the port's
// concurrency semantics.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]map[string]Document // collection -> key -> document
	hub    *hub
	closed bool
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]map[string]Document),
		hub:  newHub(),
	}
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (s *MemoryStore) snapshot(collection, key string) (Document, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return Document{}, false, ErrClosed
	}
	doc, ok := s.data[collection][key]
	if !ok {
		return Document{}, false, nil
	}
	doc.Data = cloneBytes(doc.Data)
	return doc, true, nil
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, collection, key string) (Document, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreReadLatency(float64(time.Since(start).Milliseconds()))
	}()

	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	doc, ok, err := s.snapshot(collection, key)
	if err != nil {
		return Document{}, err
	}
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

// Put implements Store.
func (s *MemoryStore) Put(ctx context.Context, collection, key string, data []byte) (Document, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	if err := ctx.Err(); err != nil {
		return Document{}, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Document{}, ErrClosed
	}
	if s.data[collection] == nil {
		s.data[collection] = make(map[string]Document)
	}
	prev := s.data[collection][key]
	doc := Document{
		Collection: collection,
		Key:        key,
		Version:    prev.Version + 1,
		Data:       cloneBytes(data),
		UpdatedAt:  time.Now().UTC(),
	}
	s.data[collection][key] = doc
	count := len(s.data[collection])
	s.mu.Unlock()

	metrics.UpdateStoreDocuments(collection, count)
	s.hub.broadcast(Change{Collection: collection, Key: key, Document: doc})
	return doc, nil
}

// ConditionalUpdate implements Store with an optimistic read-mutate-CAS loop.
func (s *MemoryStore) ConditionalUpdate(ctx context.Context, collection, key string, fn MutateFunc, maxRetries int) (Document, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	if maxRetries < 0 {
		maxRetries = 0
	}

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return Document{}, err
		}

		cur, ok, err := s.snapshot(collection, key)
		if err != nil {
			return Document{}, err
		}
		if !ok {
			return Document{}, ErrNotFound
		}

		// Mutate outside the lock; fn must be side-effect free.
		next, err := fn(cur.Data)
		if err == ErrNoChange {
			return cur, nil
		}
		if err != nil {
			return Document{}, err
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return Document{}, ErrClosed
		}
		live, exists := s.data[collection][key]
		if !exists {
			s.mu.Unlock()
			return Document{}, ErrNotFound
		}
		if live.Version != cur.Version {
			s.mu.Unlock()
			metrics.RecordStoreConflictRetry()
			continue
		}
		doc := Document{
			Collection: collection,
			Key:        key,
			Version:    cur.Version + 1,
			Data:       cloneBytes(next),
			UpdatedAt:  time.Now().UTC(),
		}
		s.data[collection][key] = doc
		s.mu.Unlock()

		s.hub.broadcast(Change{Collection: collection, Key: key, Document: doc})
		return doc, nil
	}

	metrics.RecordStoreConflict()
	return Document{}, ErrConflict
}

// List implements Store.
func (s *MemoryStore) List(ctx context.Context, collection string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	out := make([]Document, 0, len(s.data[collection]))
	for _, doc := range s.data[collection] {
		doc.Data = cloneBytes(doc.Data)
		out = append(out, doc)
	}
	return out, nil
}

// Watch implements Store.
func (s *MemoryStore) Watch(ctx context.Context, collection string) (<-chan Change, func()) {
	return s.hub.watch(ctx, collection)
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.hub.close()
	return nil
}
