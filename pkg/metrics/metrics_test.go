package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerConstruction(t *testing.T) {
	Convey("Given metrics manager options", t, func() {
		Convey("When creating a manager on a private registry", func() {
			reg := prometheus.NewRegistry()
			m := NewManager(
				WithNamespace("test"),
				WithSubsystem("suite"),
				WithPrometheusRegistry(reg),
			)

			Convey("Then the manager should be configured", func() {
				So(m, ShouldNotBeNil)
				So(m.namespace, ShouldEqual, "test")
				So(m.subsystem, ShouldEqual, "suite")
			})

			Convey("And the registry should hold the registered metrics", func() {
				families, err := reg.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When options carry zero values", func() {
			reg := prometheus.NewRegistry()
			m := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithRefreshInterval(0),
				WithPrometheusRegistry(reg),
			)

			Convey("Then defaults should be preserved", func() {
				So(m.namespace, ShouldEqual, "questforge")
				So(m.subsystem, ShouldEqual, "progression")
				So(m.refreshInterval, ShouldEqual, defaultRefreshInterval)
			})
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording domain events", func() {
			// These must never panic regardless of call order.
			RecordSubmissionAccepted()
			RecordSubmissionRejected("validation")
			RecordSubmissionDuplicate()
			RecordSubmissionLatency(12.5)
			RecordXPAwarded(150)
			RecordXPAwarded(0)
			RecordBadgeUnlocked("first-step")
			RecordStoreConflictRetry()
			RecordStoreConflict()
			RecordStoreUpdateLatency(3)
			RecordStoreReadLatency(1)
			UpdateStoreDocuments("users", 10)
			RecordLeaderboardUpdate()
			UpdateLeaderboardSubscribers(2)
			UpdateLeaderboardPlayers(10)
			RecordSnapshotRebuildLatency(0.4)
			RecordSnapshotPublished()
			RecordSnapshotCoalesced()
			UpdateJournalQueueDepth(1)
			UpdateJournalQueueCapacity(100)
			RecordJournalWrite()
			RecordJournalWriteError()
			RecordJournalDropped()
			RecordJournalWriteLatency(2)
			RecordHTTPRequest("completions", "POST", "200")
			RecordHTTPRequestDuration("completions", "POST", "200", 7)
			RecordErrorByComponent("docstore", "conflict")
			UpdateSystemMemoryUsage(1 << 20)
			UpdateSystemGoroutineCount(8)

			Convey("Then the backing registry should gather without error", func() {
				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})
	})
}
