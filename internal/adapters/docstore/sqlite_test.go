package docstore_test

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/questforge/questforge/internal/adapters/docstore"
	. "github.com/smartystreets/goconvey/convey"
)

func openTestSQLite(t *testing.T) *docstore.SQLiteStore {
	t.Helper()
	store, err := docstore.OpenSQLite(filepath.Join(t.TempDir(), "docs.db"))
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenSQLiteValidation(t *testing.T) {
	Convey("Given an empty storage path", t, func() {
		_, err := docstore.OpenSQLite("  ")
		So(err, ShouldNotBeNil)
		So(errors.Is(err, docstore.ErrUnavailable), ShouldBeTrue)
	})
}

func TestSQLiteStoreCRUD(t *testing.T) {
	Convey("Given a SQLite-backed store", t, func() {
		ctx := context.Background()
		store := openTestSQLite(t)

		Convey("When reading a missing document", func() {
			_, err := store.Get(ctx, "users", "u1")
			So(errors.Is(err, docstore.ErrNotFound), ShouldBeTrue)
		})

		Convey("When writing and reading back", func() {
			doc, err := store.Put(ctx, "users", "u1", []byte(`{"n":1}`))
			So(err, ShouldBeNil)
			So(doc.Version, ShouldEqual, int64(1))

			got, err := store.Get(ctx, "users", "u1")
			So(err, ShouldBeNil)
			So(string(got.Data), ShouldEqual, `{"n":1}`)
			So(got.UpdatedAt.IsZero(), ShouldBeFalse)

			Convey("And an upsert bumps the version", func() {
				doc2, err := store.Put(ctx, "users", "u1", []byte(`{"n":2}`))
				So(err, ShouldBeNil)
				So(doc2.Version, ShouldEqual, int64(2))
			})
		})

		Convey("When listing collections", func() {
			_, _ = store.Put(ctx, "completions", "u1/q1", []byte(`{}`))
			_, _ = store.Put(ctx, "completions", "u1/q2", []byte(`{}`))

			docs, err := store.List(ctx, "completions")
			So(err, ShouldBeNil)
			So(len(docs), ShouldEqual, 2)

			empty, err := store.List(ctx, "nothing")
			So(err, ShouldBeNil)
			So(empty, ShouldBeEmpty)
		})
	})
}

func TestSQLiteStoreConditionalUpdate(t *testing.T) {
	Convey("Given a SQLite-backed document", t, func() {
		ctx := context.Background()
		store := openTestSQLite(t)

		_, err := store.Put(ctx, "users", "u1", []byte(`{"n":10}`))
		So(err, ShouldBeNil)

		Convey("When applying an increment", func() {
			doc, err := store.ConditionalUpdate(ctx, "users", "u1", incrementBy(5), 3)
			So(err, ShouldBeNil)
			So(doc.Version, ShouldEqual, int64(2))

			var c counterDoc
			So(json.Unmarshal(doc.Data, &c), ShouldBeNil)
			So(c.N, ShouldEqual, int64(15))
		})

		Convey("When updating a missing key", func() {
			_, err := store.ConditionalUpdate(ctx, "users", "nope", incrementBy(1), 3)
			So(errors.Is(err, docstore.ErrNotFound), ShouldBeTrue)
		})

		Convey("When the mutation reports no change", func() {
			doc, err := store.ConditionalUpdate(ctx, "users", "u1", func(current []byte) ([]byte, error) {
				return nil, docstore.ErrNoChange
			}, 3)
			So(err, ShouldBeNil)
			So(doc.Version, ShouldEqual, int64(1))
		})
	})
}

func TestSQLiteStoreWatch(t *testing.T) {
	Convey("Given a watcher on a SQLite store", t, func() {
		ctx := context.Background()
		store := openTestSQLite(t)

		ch, cancel := store.Watch(ctx, "users")
		defer cancel()

		Convey("When a conditional update commits", func() {
			_, err := store.Put(ctx, "users", "u1", []byte(`{"n":1}`))
			So(err, ShouldBeNil)

			select {
			case change := <-ch:
				So(change.Key, ShouldEqual, "u1")
			case <-time.After(time.Second):
				t.Fatal("no change delivered")
			}

			_, err = store.ConditionalUpdate(ctx, "users", "u1", incrementBy(1), 3)
			So(err, ShouldBeNil)

			select {
			case change := <-ch:
				So(change.Document.Version, ShouldEqual, int64(2))
			case <-time.After(time.Second):
				t.Fatal("no change delivered")
			}
		})
	})
}
