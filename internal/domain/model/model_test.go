package model_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/questforge/questforge/internal/domain/model"
	"github.com/questforge/questforge/internal/domain/rank"
	. "github.com/smartystreets/goconvey/convey"
)

func TestProgress(t *testing.T) {
	Convey("Given a fresh progression record", t, func() {
		now := time.Now().UTC()
		p := model.NewProgress("u1", now)

		Convey("Then it is zero-initialized with derived fields set", func() {
			So(p.TotalXP, ShouldEqual, 0)
			So(p.Level, ShouldEqual, 1)
			So(p.Rank, ShouldEqual, rank.BronzeI)
			So(p.QuestsCompleted, ShouldBeEmpty)
			So(p.Badges, ShouldBeEmpty)
		})

		Convey("When XP changes, Recalculate refreshes level and rank", func() {
			p.TotalXP = 1050
			p.Recalculate()
			So(p.Level, ShouldEqual, 2)
			So(p.Rank, ShouldEqual, rank.BronzeIII)
		})

		Convey("When adding quests, the set stays duplicate-free", func() {
			So(p.AddQuest("q1"), ShouldBeTrue)
			So(p.AddQuest("q1"), ShouldBeFalse)
			So(p.AddQuest("q2"), ShouldBeTrue)
			So(p.QuestsCompleted, ShouldResemble, []string{"q1", "q2"})
			So(p.HasQuest("q1"), ShouldBeTrue)
			So(p.HasQuest("q3"), ShouldBeFalse)
		})

		Convey("When checking badges", func() {
			p.Badges = append(p.Badges, model.Badge{BadgeID: "first-step", UnlockedAt: now})
			So(p.HasBadge("first-step"), ShouldBeTrue)
			So(p.HasBadge("7-day-streak"), ShouldBeFalse)
		})

		Convey("When round-tripping through JSON", func() {
			p.TotalXP = 2500
			p.Recalculate()
			raw, err := json.Marshal(p)
			So(err, ShouldBeNil)

			var got model.Progress
			So(json.Unmarshal(raw, &got), ShouldBeNil)
			So(got.TotalXP, ShouldEqual, int64(2500))
			So(got.Rank, ShouldEqual, rank.SilverI)
			So(got.UserID, ShouldEqual, "u1")
		})
	})
}
