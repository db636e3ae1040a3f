package achievement_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/questforge/questforge/internal/adapters/docstore"
	"github.com/questforge/questforge/internal/domain/achievement"
	"github.com/questforge/questforge/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func seedUser(t *testing.T, store docstore.Store, p *model.Progress) {
	t.Helper()
	p.Recalculate()
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal user: %v", err)
	}
	if _, err := store.Put(context.Background(), model.CollectionUsers, p.UserID, data); err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func loadUser(t *testing.T, store docstore.Store, userID string) model.Progress {
	t.Helper()
	doc, err := store.Get(context.Background(), model.CollectionUsers, userID)
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	var p model.Progress
	if err := json.Unmarshal(doc.Data, &p); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	return p
}

func badgeIDs(defs []achievement.Definition) []string {
	ids := make([]string, 0, len(defs))
	for _, d := range defs {
		ids = append(ids, d.ID)
	}
	return ids
}

func TestEvaluateAndUnlock(t *testing.T) {
	Convey("Given an engine over an in-memory store", t, func() {
		ctx := context.Background()
		store := docstore.NewMemoryStore()
		defer func() { _ = store.Close() }()
		engine := achievement.NewEngine(store)
		now := time.Now().UTC()

		Convey("A user with one quest and 150 XP earns first-step and the 100 XP badge", func() {
			p := model.NewProgress("u1", now)
			p.TotalXP = 150
			p.QuestsCompleted = []string{"counter-app"}
			seedUser(t, store, p)

			unlocked := engine.EvaluateAndUnlock(ctx, "u1")
			So(badgeIDs(unlocked), ShouldResemble, []string{"first-step", "100-xp"})

			got := loadUser(t, store, "u1")
			So(got.HasBadge("first-step"), ShouldBeTrue)
			So(got.HasBadge("100-xp"), ShouldBeTrue)
			So(got.TotalXP, ShouldEqual, int64(200))

			Convey("And a second evaluation awards nothing new", func() {
				So(engine.EvaluateAndUnlock(ctx, "u1"), ShouldBeEmpty)
				again := loadUser(t, store, "u1")
				So(len(again.Badges), ShouldEqual, 2)
				So(again.TotalXP, ShouldEqual, int64(200))
			})
		})

		Convey("Reward XP does not cascade into further unlocks in the same pass", func() {
			// 99 XP plus the 50 XP first-step reward crosses 100, but the
			// 100-xp condition sees the pre-reward snapshot.
			p := model.NewProgress("u2", now)
			p.TotalXP = 99
			p.QuestsCompleted = []string{"counter-app"}
			seedUser(t, store, p)

			unlocked := engine.EvaluateAndUnlock(ctx, "u2")
			So(badgeIDs(unlocked), ShouldResemble, []string{"first-step"})

			got := loadUser(t, store, "u2")
			So(got.TotalXP, ShouldEqual, int64(149))
			So(got.HasBadge("100-xp"), ShouldBeFalse)

			Convey("And the next pass picks up the crossed threshold", func() {
				unlocked = engine.EvaluateAndUnlock(ctx, "u2")
				So(badgeIDs(unlocked), ShouldResemble, []string{"100-xp"})
			})
		})

		Convey("Five quests unlock first-step and speed-demon together", func() {
			p := model.NewProgress("u3", now)
			p.QuestsCompleted = []string{"a", "b", "c", "d", "e"}
			seedUser(t, store, p)

			unlocked := engine.EvaluateAndUnlock(ctx, "u3")
			So(badgeIDs(unlocked), ShouldResemble, []string{"first-step", "speed-demon"})

			got := loadUser(t, store, "u3")
			// 50 + 75 in rewards, still short of 100-xp in this pass
			// because the snapshot had zero XP.
			So(got.TotalXP, ShouldEqual, int64(125))
			So(got.HasBadge("100-xp"), ShouldBeFalse)
		})

		Convey("A seven day streak unlocks the streak badge", func() {
			p := model.NewProgress("u4", now)
			p.Streak = 7
			seedUser(t, store, p)

			unlocked := engine.EvaluateAndUnlock(ctx, "u4")
			So(badgeIDs(unlocked), ShouldResemble, []string{"7-day-streak"})
			So(loadUser(t, store, "u4").TotalXP, ShouldEqual, int64(200))
		})

		Convey("A missing user record yields no unlocks and no error", func() {
			So(engine.EvaluateAndUnlock(ctx, "ghost"), ShouldBeEmpty)
		})
	})
}

func TestEngineOptions(t *testing.T) {
	Convey("Given a custom catalog", t, func() {
		ctx := context.Background()
		store := docstore.NewMemoryStore()
		defer func() { _ = store.Close() }()

		custom := []achievement.Definition{{
			ID:        "night-owl",
			Name:      "Night Owl",
			XPReward:  10,
			Condition: func(s achievement.Stats) bool { return s.QuestsCompleted >= 1 },
		}}
		engine := achievement.NewEngine(store, achievement.WithCatalog(custom), achievement.WithMaxRetries(2))
		So(badgeIDs(engine.Catalog()), ShouldResemble, []string{"night-owl"})

		p := model.NewProgress("u1", time.Now().UTC())
		p.QuestsCompleted = []string{"counter-app"}
		seedUser(t, store, p)

		So(badgeIDs(engine.EvaluateAndUnlock(ctx, "u1")), ShouldResemble, []string{"night-owl"})
		got := loadUser(t, store, "u1")
		So(got.HasBadge("night-owl"), ShouldBeTrue)
		So(got.TotalXP, ShouldEqual, int64(10))
	})
}
