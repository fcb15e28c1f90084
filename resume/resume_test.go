package resume

import (
	"testing"
	"time"

	"github.com/aniplay-cli/aniplay/position"
	. "github.com/smartystreets/goconvey/convey"
)

// memBackend keeps the record set in memory for coordinator tests.
type memBackend struct {
	records map[string]position.Record
	subs    []func()
}

func newMemBackend() *memBackend {
	return &memBackend{records: make(map[string]position.Record)}
}

func (b *memBackend) ReadAll() (map[string]position.Record, error) {
	out := make(map[string]position.Record, len(b.records))
	for id, rec := range b.records {
		out[id] = rec
	}
	return out, nil
}

func (b *memBackend) WriteAll(records map[string]position.Record) error {
	b.records = records
	return nil
}

func (b *memBackend) Notify() {
	for _, fn := range b.subs {
		fn()
	}
}

func (b *memBackend) OnChange(fn func()) {
	b.subs = append(b.subs, fn)
}

func seed(backend *memBackend, id string, progress, total float64, lastWatched time.Time) {
	rec := position.Record{
		Progress:      progress,
		TotalDuration: total,
		LastWatched:   lastWatched,
		Completed:     total > 0 && progress/total >= position.CompletionRatio,
	}
	backend.records[id] = rec
}

func TestShouldOfferResume(t *testing.T) {
	Convey("Given a coordinator over seeded watch positions", t, func() {
		backend := newMemBackend()
		now := time.Now()

		seed(backend, "started", 300, 1440, now)
		seed(backend, "barely", 10, 1440, now)
		seed(backend, "just-past", 10.5, 1440, now)
		seed(backend, "finished", 1369, 1440, now) // just over 95%
		seed(backend, "at-ratio", 1368, 1440, now) // exactly 95%
		seed(backend, "no-duration", 300, 0, now)

		coordinator := New(position.New(backend))

		Convey("A meaningfully started episode gets an offer at its position", func() {
			offer := coordinator.ShouldOfferResume("started")
			So(offer.Offer, ShouldBeTrue)
			So(offer.At, ShouldEqual, 300)
		})

		Convey("Ten seconds or less is not meaningfully started", func() {
			So(coordinator.ShouldOfferResume("barely").Offer, ShouldBeFalse)
			So(coordinator.ShouldOfferResume("just-past").Offer, ShouldBeTrue)
		})

		Convey("An effectively finished episode gets no offer", func() {
			So(coordinator.ShouldOfferResume("finished").Offer, ShouldBeFalse)
		})

		Convey("Exactly the completion ratio still gets an offer", func() {
			So(coordinator.ShouldOfferResume("at-ratio").Offer, ShouldBeTrue)
		})

		Convey("Unknown duration or unknown episode gets no offer", func() {
			So(coordinator.ShouldOfferResume("no-duration").Offer, ShouldBeFalse)
			So(coordinator.ShouldOfferResume("never-seen").Offer, ShouldBeFalse)
		})
	})
}

func TestContinueWatching(t *testing.T) {
	Convey("Given a mix of watch states", t, func() {
		backend := newMemBackend()
		base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

		seed(backend, "old", 300, 1440, base)
		seed(backend, "newest", 600, 1440, base.Add(2*time.Hour))
		seed(backend, "middle", 450, 1440, base.Add(time.Hour))
		seed(backend, "completed", 1400, 1440, base.Add(3*time.Hour))
		seed(backend, "barely", 5, 1440, base.Add(4*time.Hour))
		seed(backend, "no-duration", 300, 0, base.Add(5*time.Hour))

		coordinator := New(position.New(backend))

		Convey("Only in-progress episodes qualify, most recent first", func() {
			entries := coordinator.ContinueWatching(0)

			ids := make([]string, len(entries))
			for i, e := range entries {
				ids[i] = e.EpisodeID
			}
			So(ids, ShouldResemble, []string{"newest", "middle", "old"})
		})

		Convey("The limit truncates after sorting", func() {
			entries := coordinator.ContinueWatching(2)
			So(entries, ShouldHaveLength, 2)
			So(entries[0].EpisodeID, ShouldEqual, "newest")
			So(entries[1].EpisodeID, ShouldEqual, "middle")
		})

		Convey("A finished episode disappears from the shelf", func() {
			store := position.New(backend)
			store.Put("newest", position.ProgressPatch(1440, 1440))

			entries := New(store).ContinueWatching(0)
			for _, e := range entries {
				So(e.EpisodeID, ShouldNotEqual, "newest")
			}
		})

		Convey("An episode exactly at the completion ratio is excluded", func() {
			seed(backend, "at-ratio", 1368, 1440, base.Add(6*time.Hour))

			entries := New(position.New(backend)).ContinueWatching(0)
			for _, e := range entries {
				So(e.EpisodeID, ShouldNotEqual, "at-ratio")
			}
		})
	})
}
