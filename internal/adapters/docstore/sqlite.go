package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver

	"github.com/questforge/questforge/pkg/metrics"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	collection  TEXT    NOT NULL,
	key         TEXT    NOT NULL,
	version     INTEGER NOT NULL,
	data        BLOB    NOT NULL,
	updated_at  INTEGER NOT NULL,
	PRIMARY KEY (collection, key)
);
`

// SQLiteStore persists documents in a single-file SQLite database. Version
// checks ride on an UPDATE ... WHERE version = ? compare-and-swap; change
// notification is in-process via the shared hub (the service owns its
// database file, so no cross-process feed is needed).
type SQLiteStore struct {
	db  *sql.DB
	hub *hub
}

// OpenSQLite opens (and if needed creates) the document database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: storage path is required", ErrUnavailable)
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite db: %w", ErrUnavailable, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping sqlite db: %w", ErrUnavailable, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: apply schema: %w", ErrUnavailable, err)
	}
	return &SQLiteStore{db: db, hub: newHub()}, nil
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, collection, key string) (Document, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreReadLatency(float64(time.Since(start).Milliseconds()))
	}()

	row := s.db.QueryRowContext(ctx,
		`SELECT version, data, updated_at FROM documents WHERE collection = ? AND key = ?`,
		collection, key)

	var (
		version   int64
		data      []byte
		updatedAt int64
	)
	if err := row.Scan(&version, &data, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		if ctx.Err() != nil {
			return Document{}, ctx.Err()
		}
		return Document{}, fmt.Errorf("%w: read document: %w", ErrUnavailable, err)
	}
	return Document{
		Collection: collection,
		Key:        key,
		Version:    version,
		Data:       data,
		UpdatedAt:  fromMillis(updatedAt),
	}, nil
}

// Put implements Store.
func (s *SQLiteStore) Put(ctx context.Context, collection, key string, data []byte) (Document, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, key, version, data, updated_at)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT (collection, key) DO UPDATE SET
			version = documents.version + 1,
			data = excluded.data,
			updated_at = excluded.updated_at`,
		collection, key, data, toMillis(now))
	if err != nil {
		if ctx.Err() != nil {
			return Document{}, ctx.Err()
		}
		return Document{}, fmt.Errorf("%w: write document: %w", ErrUnavailable, err)
	}

	doc, err := s.Get(ctx, collection, key)
	if err != nil {
		return Document{}, err
	}
	s.hub.broadcast(Change{Collection: collection, Key: key, Document: doc})
	return doc, nil
}

// ConditionalUpdate implements Store.
func (s *SQLiteStore) ConditionalUpdate(ctx context.Context, collection, key string, fn MutateFunc, maxRetries int) (Document, error) {
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

		cur, err := s.Get(ctx, collection, key)
		if err != nil {
			return Document{}, err
		}

		next, err := fn(cur.Data)
		if err == ErrNoChange {
			return cur, nil
		}
		if err != nil {
			return Document{}, err
		}

		now := time.Now().UTC()
		res, err := s.db.ExecContext(ctx, `
			UPDATE documents SET version = version + 1, data = ?, updated_at = ?
			WHERE collection = ? AND key = ? AND version = ?`,
			next, toMillis(now), collection, key, cur.Version)
		if err != nil {
			if ctx.Err() != nil {
				return Document{}, ctx.Err()
			}
			return Document{}, fmt.Errorf("%w: conditional write: %w", ErrUnavailable, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return Document{}, fmt.Errorf("%w: rows affected: %w", ErrUnavailable, err)
		}
		if affected == 0 {
			// Version moved (or the row vanished); the next attempt re-reads
			// and reports ErrNotFound in the latter case.
			metrics.RecordStoreConflictRetry()
			continue
		}

		doc := Document{
			Collection: collection,
			Key:        key,
			Version:    cur.Version + 1,
			Data:       next,
			UpdatedAt:  now,
		}
		s.hub.broadcast(Change{Collection: collection, Key: key, Document: doc})
		return doc, nil
	}

	metrics.RecordStoreConflict()
	return Document{}, ErrConflict
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context, collection string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, version, data, updated_at FROM documents WHERE collection = ?`, collection)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: list documents: %w", ErrUnavailable, err)
	}
	defer func() { _ = rows.Close() }()

	var out []Document
	for rows.Next() {
		var (
			key       string
			version   int64
			data      []byte
			updatedAt int64
		)
		if err := rows.Scan(&key, &version, &data, &updatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan document: %w", ErrUnavailable, err)
		}
		out = append(out, Document{
			Collection: collection,
			Key:        key,
			Version:    version,
			Data:       data,
			UpdatedAt:  fromMillis(updatedAt),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate documents: %w", ErrUnavailable, err)
	}
	return out, nil
}

// Watch implements Store.
func (s *SQLiteStore) Watch(ctx context.Context, collection string) (<-chan Change, func()) {
	return s.hub.watch(ctx, collection)
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.hub.close()
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
