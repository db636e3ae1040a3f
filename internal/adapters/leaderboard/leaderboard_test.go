package leaderboard_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/questforge/questforge/internal/adapters/docstore"
	"github.com/questforge/questforge/internal/adapters/leaderboard"
	"github.com/questforge/questforge/internal/domain/model"
	"github.com/questforge/questforge/internal/domain/rank"
	. "github.com/smartystreets/goconvey/convey"
)

func putUser(t *testing.T, store docstore.Store, userID, name string, xp int64) {
	t.Helper()
	p := model.NewProgress(userID, time.Now().UTC())
	p.Name = name
	p.TotalXP = xp
	p.Recalculate()
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal user: %v", err)
	}
	if _, err := store.Put(context.Background(), model.CollectionUsers, userID, data); err != nil {
		t.Fatalf("put user: %v", err)
	}
}

func newTestTracker(t *testing.T, store docstore.Store) *leaderboard.Tracker {
	t.Helper()
	tracker := leaderboard.NewTracker(store,
		leaderboard.WithSnapshotInterval(10*time.Millisecond),
		leaderboard.WithIdleWait(60*time.Millisecond),
	)
	if err := tracker.Start(context.Background()); err != nil {
		t.Fatalf("start tracker: %v", err)
	}
	t.Cleanup(func() { _ = tracker.Close() })
	return tracker
}

func TestTrackerRanking(t *testing.T) {
	Convey("Given a board bootstrapped from the document store", t, func() {
		ctx := context.Background()
		store := docstore.NewMemoryStore()
		defer func() { _ = store.Close() }()

		putUser(t, store, "carol", "Carol", 3000)
		putUser(t, store, "alice", "Alice", 500)
		putUser(t, store, "bob", "Bob", 3000)
		putUser(t, store, "dave", "Dave", 10)

		tracker := newTestTracker(t, store)

		Convey("TopN orders by XP descending with ties sharing a rank", func() {
			entries, err := tracker.TopN(ctx, 10)
			So(err, ShouldBeNil)
			So(len(entries), ShouldEqual, 4)

			// Tied at 3000, bob before carol by id.
			So(entries[0].UserID, ShouldEqual, "bob")
			So(entries[0].Rank, ShouldEqual, 1)
			So(entries[1].UserID, ShouldEqual, "carol")
			So(entries[1].Rank, ShouldEqual, 1)
			So(entries[2].UserID, ShouldEqual, "alice")
			So(entries[2].Rank, ShouldEqual, 2)
			So(entries[3].UserID, ShouldEqual, "dave")
			So(entries[3].Rank, ShouldEqual, 3)

			So(entries[0].Level, ShouldEqual, 4)
			So(entries[0].Tier, ShouldEqual, rank.SilverI)
		})

		Convey("TopN truncates at the requested limit", func() {
			entries, err := tracker.TopN(ctx, 2)
			So(err, ShouldBeNil)
			So(len(entries), ShouldEqual, 2)
		})

		Convey("TopN rejects a non-positive limit", func() {
			_, err := tracker.TopN(ctx, 0)
			So(errors.Is(err, leaderboard.ErrInvalidLimit), ShouldBeTrue)
		})

		Convey("Rank returns the shared rank for a tied user", func() {
			entry, err := tracker.Rank(ctx, "carol")
			So(err, ShouldBeNil)
			So(entry.Rank, ShouldEqual, 1)
			So(entry.TotalXP, ShouldEqual, int64(3000))

			entry, err = tracker.Rank(ctx, "dave")
			So(err, ShouldBeNil)
			So(entry.Rank, ShouldEqual, 3)
		})

		Convey("Rank of an untracked user is ErrNotFound", func() {
			_, err := tracker.Rank(ctx, "ghost")
			So(errors.Is(err, leaderboard.ErrNotFound), ShouldBeTrue)
		})

		Convey("Nearby clips at the board edges", func() {
			entries, err := tracker.Nearby(ctx, "bob", 3)
			So(err, ShouldBeNil)
			So(len(entries), ShouldEqual, 4)
			So(entries[0].UserID, ShouldEqual, "bob")

			entries, err = tracker.Nearby(ctx, "alice", 1)
			So(err, ShouldBeNil)
			So(len(entries), ShouldEqual, 3)
			So(entries[0].UserID, ShouldEqual, "carol")
			So(entries[1].UserID, ShouldEqual, "alice")
			So(entries[1].Rank, ShouldEqual, 2)
			So(entries[2].UserID, ShouldEqual, "dave")
		})

		Convey("Count tracks the number of users", func() {
			So(tracker.Count(ctx), ShouldEqual, 4)
		})
	})
}

func TestTrackerFollowsChanges(t *testing.T) {
	Convey("Given a running tracker", t, func() {
		ctx := context.Background()
		store := docstore.NewMemoryStore()
		defer func() { _ = store.Close() }()

		putUser(t, store, "alice", "Alice", 100)
		tracker := newTestTracker(t, store)

		Convey("A store write moves the user on the board", func() {
			putUser(t, store, "bob", "Bob", 900)

			So(func() bool {
				deadline := time.Now().Add(2 * time.Second)
				for time.Now().Before(deadline) {
					if entry, err := tracker.Rank(ctx, "bob"); err == nil && entry.Rank == 1 {
						return true
					}
					time.Sleep(5 * time.Millisecond)
				}
				return false
			}(), ShouldBeTrue)
			So(tracker.Count(ctx), ShouldEqual, 2)
		})
	})
}

func TestTrackerSubscriptions(t *testing.T) {
	Convey("Given a running tracker with one user", t, func() {
		store := docstore.NewMemoryStore()
		defer func() { _ = store.Close() }()

		putUser(t, store, "alice", "Alice", 100)
		tracker := newTestTracker(t, store)

		Convey("A subscriber receives the current board immediately", func() {
			sub, err := tracker.Subscribe(10)
			So(err, ShouldBeNil)
			defer sub.Unsubscribe()

			select {
			case u := <-sub.Updates:
				So(u.NoData, ShouldBeFalse)
				So(len(u.Entries), ShouldEqual, 1)
				So(u.Entries[0].UserID, ShouldEqual, "alice")
			case <-time.After(2 * time.Second):
				t.Fatal("no initial update")
			}

			Convey("And a board change pushes a fresh update", func() {
				putUser(t, store, "bob", "Bob", 900)

				got := false
				deadline := time.After(2 * time.Second)
				for !got {
					select {
					case u := <-sub.Updates:
						if !u.NoData && len(u.Entries) == 2 && u.Entries[0].UserID == "bob" {
							got = true
						}
					case <-deadline:
						t.Fatal("no update after store write")
					}
				}
				So(got, ShouldBeTrue)
			})

			Convey("And a quiet board produces a no-data update", func() {
				select {
				case u := <-sub.Updates:
					So(u.NoData, ShouldBeTrue)
					So(u.Entries, ShouldBeEmpty)
				case <-time.After(2 * time.Second):
					t.Fatal("no idle signal")
				}
			})
		})

		Convey("A subscription honors its row limit", func() {
			for i := 0; i < 5; i++ {
				putUser(t, store, fmt.Sprintf("user-%d", i), "", int64(100*(i+1)))
			}
			sub, err := tracker.Subscribe(3)
			So(err, ShouldBeNil)
			defer sub.Unsubscribe()

			deadline := time.After(2 * time.Second)
			for {
				select {
				case u := <-sub.Updates:
					if !u.NoData && u.Players == 6 {
						So(len(u.Entries), ShouldEqual, 3)
						return
					}
				case <-deadline:
					t.Fatal("never saw the full board")
				}
			}
		})

		Convey("Unsubscribe closes the update channel", func() {
			sub, err := tracker.Subscribe(10)
			So(err, ShouldBeNil)
			sub.Unsubscribe()

			deadline := time.After(2 * time.Second)
			for {
				select {
				case _, ok := <-sub.Updates:
					if !ok {
						return
					}
				case <-deadline:
					t.Fatal("channel never closed")
				}
			}
		})

		Convey("Subscribe rejects a non-positive limit", func() {
			_, err := tracker.Subscribe(0)
			So(errors.Is(err, leaderboard.ErrInvalidLimit), ShouldBeTrue)
		})
	})
}
