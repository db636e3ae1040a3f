package rank_test

import (
	"testing"

	"github.com/questforge/questforge/internal/domain/rank"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLevel(t *testing.T) {
	Convey("Given the level formula", t, func() {
		Convey("Then level is floor(xp/1000)+1", func() {
			So(rank.Level(0), ShouldEqual, 1)
			So(rank.Level(999), ShouldEqual, 1)
			So(rank.Level(1000), ShouldEqual, 2)
			So(rank.Level(1050), ShouldEqual, 2)
			So(rank.Level(9999), ShouldEqual, 10)
			So(rank.Level(25000), ShouldEqual, 26)
		})

		Convey("And negative XP clamps to level 1", func() {
			So(rank.Level(-5), ShouldEqual, 1)
		})
	})
}

func TestOf(t *testing.T) {
	Convey("Given the rank thresholds", t, func() {
		Convey("Then exact boundary values resolve correctly", func() {
			So(rank.Of(0), ShouldEqual, rank.BronzeI)
			So(rank.Of(499), ShouldEqual, rank.BronzeI)
			So(rank.Of(500), ShouldEqual, rank.BronzeII)
			So(rank.Of(999), ShouldEqual, rank.BronzeII)
			So(rank.Of(1000), ShouldEqual, rank.BronzeIII)
			So(rank.Of(1999), ShouldEqual, rank.BronzeIII)
			So(rank.Of(2000), ShouldEqual, rank.SilverI)
			So(rank.Of(3500), ShouldEqual, rank.SilverII)
			So(rank.Of(5000), ShouldEqual, rank.SilverIII)
			So(rank.Of(7500), ShouldEqual, rank.GoldI)
			So(rank.Of(10000), ShouldEqual, rank.GoldII)
			So(rank.Of(15000), ShouldEqual, rank.GoldIII)
			So(rank.Of(24999), ShouldEqual, rank.GoldIII)
			So(rank.Of(25000), ShouldEqual, rank.Platinum)
		})

		Convey("And the tier never decreases as XP grows", func() {
			prev := rank.Ordinal(rank.Of(0))
			for xp := int64(1); xp <= 30000; xp += 97 {
				cur := rank.Ordinal(rank.Of(xp))
				So(cur, ShouldBeGreaterThanOrEqualTo, prev)
				prev = cur
			}
		})
	})
}

func TestOrdinal(t *testing.T) {
	Convey("Given the tier ordering", t, func() {
		Convey("Then tiers are totally ordered from Bronze I to Platinum", func() {
			So(rank.Ordinal(rank.BronzeI), ShouldEqual, 0)
			So(rank.Ordinal(rank.Platinum), ShouldEqual, 9)
			So(rank.Ordinal(rank.Tier("Copper")), ShouldEqual, -1)
		})
	})
}
