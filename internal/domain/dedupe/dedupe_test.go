package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/questforge/questforge/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given an in-memory deduper", t, func() {
		ctx := context.Background()

		Convey("A new submission id is recorded once", func() {
			d := dedupe.NewInMemoryDeduper()
			So(d.SeenAndRecord(ctx, "sub-1"), ShouldBeFalse)
			So(d.SeenAndRecord(ctx, "sub-1"), ShouldBeTrue)
			So(d.Size(), ShouldEqual, 1)
		})

		Convey("Unrecord allows a retry", func() {
			d := dedupe.NewInMemoryDeduper()
			d.SeenAndRecord(ctx, "sub-1")
			d.Unrecord(ctx, "sub-1")
			So(d.Size(), ShouldEqual, 0)
			So(d.SeenAndRecord(ctx, "sub-1"), ShouldBeFalse)
		})

		Convey("Unrecord of an unknown id is a no-op", func() {
			d := dedupe.NewInMemoryDeduper()
			d.Unrecord(ctx, "never-seen")
			So(d.Size(), ShouldEqual, 0)
		})

		Convey("A bounded deduper evicts the oldest id when full", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
			for i := 0; i < 3; i++ {
				So(d.SeenAndRecord(ctx, fmt.Sprintf("sub-%d", i)), ShouldBeFalse)
			}
			So(d.Size(), ShouldEqual, 3)

			// Fourth id pushes out sub-0.
			So(d.SeenAndRecord(ctx, "sub-3"), ShouldBeFalse)
			So(d.Size(), ShouldEqual, 3)
			So(d.SeenAndRecord(ctx, "sub-0"), ShouldBeFalse)

			// sub-1 was evicted by re-recording sub-0, sub-2 survives.
			So(d.SeenAndRecord(ctx, "sub-2"), ShouldBeTrue)
		})

		Convey("An unbounded deduper never evicts", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
			for i := 0; i < 1000; i++ {
				d.SeenAndRecord(ctx, fmt.Sprintf("sub-%d", i))
			}
			So(d.Size(), ShouldEqual, 1000)
			So(d.SeenAndRecord(ctx, "sub-0"), ShouldBeTrue)
		})
	})
}

func TestDeduperConcurrency(t *testing.T) {
	Convey("Concurrent recording of the same id admits exactly one caller", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper()

		const workers = 32
		var wg sync.WaitGroup
		firsts := make(chan struct{}, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if !d.SeenAndRecord(ctx, "contested") {
					firsts <- struct{}{}
				}
			}()
		}
		wg.Wait()
		close(firsts)

		n := 0
		for range firsts {
			n++
		}
		So(n, ShouldEqual, 1)
		So(d.Size(), ShouldEqual, 1)
	})
}
