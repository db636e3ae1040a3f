package quest_test

import (
	"context"
	"errors"
	"testing"

	"github.com/questforge/questforge/internal/domain/model"
	"github.com/questforge/questforge/internal/domain/quest"
	. "github.com/smartystreets/goconvey/convey"
)

func TestStaticCatalog(t *testing.T) {
	Convey("Given the default catalog", t, func() {
		ctx := context.Background()
		catalog := quest.NewStaticCatalog()

		Convey("Then known quests resolve with their base XP", func() {
			q, err := catalog.Get(ctx, "counter-app")
			So(err, ShouldBeNil)
			So(q.Title, ShouldEqual, "Build a Counter App")
			So(q.BaseXP, ShouldEqual, int64(100))
		})

		Convey("Then unknown ids return ErrNotFound", func() {
			_, err := catalog.Get(ctx, "missing")
			So(errors.Is(err, quest.ErrNotFound), ShouldBeTrue)
		})

		Convey("Then List returns every quest ordered by id", func() {
			all := catalog.List(ctx)
			So(len(all), ShouldEqual, 10)
			for i := 1; i < len(all); i++ {
				So(all[i-1].ID, ShouldBeLessThan, all[i].ID)
			}
		})
	})

	Convey("Given a catalog with custom quests", t, func() {
		ctx := context.Background()
		catalog := quest.NewStaticCatalog(quest.WithQuests([]model.Quest{
			{ID: "q1", Title: "Quest One", BaseXP: 42, Difficulty: "Easy"},
		}))

		Convey("Then only the custom set is visible", func() {
			So(len(catalog.List(ctx)), ShouldEqual, 1)
			_, err := catalog.Get(ctx, "counter-app")
			So(errors.Is(err, quest.ErrNotFound), ShouldBeTrue)
		})
	})
}
