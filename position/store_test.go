package position

import (
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

// memBackend is an in-memory Backend with injectable failures.
type memBackend struct {
	records  map[string]Record
	readErr  error
	writeErr error
	writes   int
	reads    int
	subs     []func()
}

func newMemBackend() *memBackend {
	return &memBackend{records: make(map[string]Record)}
}

func (b *memBackend) ReadAll() (map[string]Record, error) {
	b.reads++
	if b.readErr != nil {
		return nil, b.readErr
	}
	out := make(map[string]Record, len(b.records))
	for id, rec := range b.records {
		out[id] = rec
	}
	return out, nil
}

func (b *memBackend) WriteAll(records map[string]Record) error {
	if b.writeErr != nil {
		return b.writeErr
	}
	b.writes++
	out := make(map[string]Record, len(records))
	for id, rec := range records {
		out[id] = rec
	}
	b.records = out
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

// testClock is a manually advanced clock injected into the store.
type testClock struct {
	at time.Time
}

func (c *testClock) now() time.Time { return c.at }

func (c *testClock) advance(d time.Duration) { c.at = c.at.Add(d) }

func newTestStore(backend Backend) (*Store, *testClock) {
	clock := &testClock{at: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}
	s := New(backend)
	s.now = clock.now
	return s, clock
}

func TestPut(t *testing.T) {
	Convey("Given a store over a healthy backend", t, func() {
		backend := newMemBackend()
		store, clock := newTestStore(backend)

		Convey("A progress write persists synchronously", func() {
			store.Put("ep-1", ProgressPatch(120, 1440))

			So(backend.writes, ShouldEqual, 1)
			rec, ok := store.Get("ep-1")
			So(ok, ShouldBeTrue)
			So(rec.Progress, ShouldEqual, 120)
			So(rec.TotalDuration, ShouldEqual, 1440)
			So(rec.LastWatched, ShouldHappenOnOrAfter, clock.now())
			So(rec.Completed, ShouldBeFalse)
		})

		Convey("Patches merge field-wise over the stored record", func() {
			store.Put("ep-1", ProgressPatch(700, 1440))
			store.Put("ep-1", MetadataPatch("Episode 1", "https://img.example/1.jpg", "Some Show"))

			rec, _ := store.Get("ep-1")
			So(rec.Progress, ShouldEqual, 700)
			So(rec.Name, ShouldEqual, "Episode 1")
			So(rec.SeriesName, ShouldEqual, "Some Show")

			Convey("Empty metadata fields never erase known values", func() {
				store.Put("ep-1", MetadataPatch("", "", ""))
				rec, _ := store.Get("ep-1")
				So(rec.Name, ShouldEqual, "Episode 1")
				So(rec.Thumbnail, ShouldEqual, "https://img.example/1.jpg")
			})
		})

		Convey("Completion is derived from the watched ratio", func() {
			store.Put("ep-1", ProgressPatch(1368, 1440)) // exactly 95%
			rec, _ := store.Get("ep-1")
			So(rec.Completed, ShouldBeTrue)

			store.Put("ep-2", ProgressPatch(1367, 1440))
			rec, _ = store.Get("ep-2")
			So(rec.Completed, ShouldBeFalse)

			Convey("An unknown duration never counts as completed", func() {
				store.Put("ep-3", ProgressPatch(5000, 0))
				rec, _ := store.Get("ep-3")
				So(rec.Completed, ShouldBeFalse)
			})
		})

		Convey("LastWatched never moves backwards", func() {
			store.Put("ep-1", ProgressPatch(10, 1440))
			first, _ := store.Get("ep-1")

			clock.advance(-time.Hour)
			store.Put("ep-1", ProgressPatch(20, 1440))

			rec, _ := store.Get("ep-1")
			So(rec.Progress, ShouldEqual, 20)
			So(rec.LastWatched.Equal(first.LastWatched), ShouldBeTrue)
		})

		Convey("Writes with an empty episode id are dropped", func() {
			store.Put("", ProgressPatch(10, 100))
			So(backend.writes, ShouldEqual, 0)
		})

		Convey("Subscribers sharing the backend hear about the write", func() {
			var notified int
			store.OnChange(func() { notified++ })

			store.Put("ep-1", ProgressPatch(10, 100))
			So(notified, ShouldEqual, 1)
		})
	})
}

func TestPersistenceFailure(t *testing.T) {
	Convey("Given a backend that starts failing writes", t, func() {
		backend := newMemBackend()
		store, _ := newTestStore(backend)

		store.Put("ep-1", ProgressPatch(100, 1440))
		backend.writeErr = errors.New("disk full")

		Convey("The failed write is dropped and the cache keeps the last persisted state", func() {
			store.Put("ep-1", ProgressPatch(500, 1440))

			rec, ok := store.Get("ep-1")
			So(ok, ShouldBeTrue)
			So(rec.Progress, ShouldEqual, 100)
			So(backend.records["ep-1"].Progress, ShouldEqual, 100)
		})

		Convey("No change hint is broadcast for a dropped write", func() {
			var notified int
			store.OnChange(func() { notified++ })

			store.Put("ep-1", ProgressPatch(500, 1440))
			So(notified, ShouldEqual, 0)
		})

		Convey("Writes resume once the backend recovers", func() {
			store.Put("ep-1", ProgressPatch(500, 1440))
			backend.writeErr = nil
			store.Put("ep-1", ProgressPatch(600, 1440))

			rec, _ := store.Get("ep-1")
			So(rec.Progress, ShouldEqual, 600)
		})
	})

	Convey("Given a backend that fails reads", t, func() {
		backend := newMemBackend()
		store, clock := newTestStore(backend)

		store.Put("ep-1", ProgressPatch(100, 1440))
		backend.readErr = errors.New("corrupt blob")

		Convey("Reads are served from the previous snapshot", func() {
			clock.advance(time.Minute)

			rec, ok := store.Get("ep-1")
			So(ok, ShouldBeTrue)
			So(rec.Progress, ShouldEqual, 100)
		})
	})
}

func TestReadCache(t *testing.T) {
	Convey("Given a populated store", t, func() {
		backend := newMemBackend()
		store, clock := newTestStore(backend)
		store.Put("ep-1", ProgressPatch(100, 1440))
		baseline := backend.reads

		Convey("Reads inside the TTL are served from the cache", func() {
			store.Get("ep-1")
			store.All()
			So(backend.reads, ShouldEqual, baseline)
		})

		Convey("A write leaves the cache primed with the persisted value", func() {
			store.Put("ep-1", ProgressPatch(200, 1440))

			rec, ok := store.Get("ep-1")
			So(ok, ShouldBeTrue)
			So(rec.Progress, ShouldEqual, 200)
			So(backend.reads, ShouldEqual, baseline)
		})

		Convey("Clearing primes the cache with the empty set", func() {
			store.Clear()

			_, ok := store.Get("ep-1")
			So(ok, ShouldBeFalse)
			So(backend.reads, ShouldEqual, baseline)
		})

		Convey("An expired cache reloads from the backend", func() {
			backend.records["ep-2"] = Record{Progress: 50, TotalDuration: 100}

			clock.advance(store.ttl)
			rec, ok := store.Get("ep-2")
			So(ok, ShouldBeTrue)
			So(rec.Progress, ShouldEqual, 50)
		})

		Convey("A change hint invalidates the cache immediately", func() {
			backend.records["ep-2"] = Record{Progress: 50, TotalDuration: 100}
			backend.Notify()

			_, ok := store.Get("ep-2")
			So(ok, ShouldBeTrue)
		})
	})
}

func TestMarkWatched(t *testing.T) {
	Convey("Given a store with one partially watched episode", t, func() {
		backend := newMemBackend()
		store, _ := newTestStore(backend)
		store.Put("ep-1", ProgressPatch(100, 1440))

		Convey("Marking watched pushes progress past the completion ratio", func() {
			store.MarkWatched("ep-1", true)

			rec, _ := store.Get("ep-1")
			So(rec.Progress, ShouldEqual, 1440*0.99)
			So(rec.Completed, ShouldBeTrue)
		})

		Convey("Marking unwatched resets progress", func() {
			store.MarkWatched("ep-1", true)
			store.MarkWatched("ep-1", false)

			rec, _ := store.Get("ep-1")
			So(rec.Progress, ShouldEqual, 0)
			So(rec.Completed, ShouldBeFalse)
		})

		Convey("Unknown episodes are left untouched", func() {
			store.MarkWatched("ep-404", true)
			_, ok := store.Get("ep-404")
			So(ok, ShouldBeFalse)
		})

		Convey("Episodes without a known duration are left untouched", func() {
			store.Put("ep-2", Patch{})
			writes := backend.writes

			store.MarkWatched("ep-2", true)
			So(backend.writes, ShouldEqual, writes)
		})
	})
}

func TestClear(t *testing.T) {
	Convey("Clear erases everything and broadcasts", t, func() {
		backend := newMemBackend()
		store, _ := newTestStore(backend)
		store.Put("ep-1", ProgressPatch(100, 1440))
		store.Put("ep-2", ProgressPatch(200, 1440))

		var notified int
		store.OnChange(func() { notified++ })

		store.Clear()

		So(store.All(), ShouldBeEmpty)
		So(backend.records, ShouldBeEmpty)
		So(notified, ShouldEqual, 1)
	})
}
