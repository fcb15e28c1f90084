package position

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/aniplay-cli/aniplay/key"
	"github.com/aniplay-cli/aniplay/log"
	"github.com/samber/mo"
	"github.com/spf13/viper"
)

// DefaultCacheTTL bounds how long a read may be served from the in-process
// cache before the persisted set is reloaded.
const DefaultCacheTTL = 3 * time.Second

// Store is a cached read/write layer over a persistence backend. One store
// instance is constructed per process and shared by reference; the cache it
// owns is the only cross-call-site state, mutated exclusively through Put,
// MarkWatched and Clear.
//
// Concurrent writers on distinct backends racing on the same episode are
// last-write-wins; within one store, writes are serialized.
type Store struct {
	backend Backend
	ttl     time.Duration
	now     func() time.Time

	// notifying is set while the store broadcasts its own change hint, so
	// the self-subscription below does not drop the cache a write just
	// primed. Backend.Notify delivers synchronously on the calling
	// goroutine, which makes the flag sufficient.
	notifying atomic.Bool

	mu        sync.Mutex
	cache     map[string]Record
	fetchedAt time.Time
	valid     bool
}

// New creates a store over the given backend. The cache TTL is taken from
// configuration, falling back to DefaultCacheTTL. The store invalidates its
// cache on any backend change hint.
func New(backend Backend) *Store {
	ttl := DefaultCacheTTL
	if ms := viper.GetInt(key.PositionsCacheTTL); ms > 0 {
		ttl = time.Duration(ms) * time.Millisecond
	}

	s := &Store{
		backend: backend,
		ttl:     ttl,
		now:     time.Now,
	}
	backend.OnChange(func() {
		// The store's own writes leave the cache holding the persisted
		// value; only hints from other writers force a reload.
		if s.notifying.Load() {
			return
		}
		s.Invalidate()
	})
	return s
}

// Invalidate drops the read cache; the next read reloads from the backend.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.valid = false
	s.mu.Unlock()
}

// OnChange registers a subscriber for change hints from any writer sharing
// the backend.
func (s *Store) OnChange(fn func()) {
	s.backend.OnChange(fn)
}

// Get returns the record for an episode, if one exists.
func (s *Store) Get(episodeID string) (Record, bool) {
	if episodeID == "" {
		return Record{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.loadLocked()[episodeID]
	return rec, ok
}

// All returns a snapshot of every persisted record keyed by episode ID.
func (s *Store) All() map[string]Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.loadLocked()
	out := make(map[string]Record, len(records))
	for id, rec := range records {
		out[id] = rec
	}
	return out
}

// Put merges a partial update over the stored record (creating one with zero
// defaults if absent), refreshes LastWatched and the completion flag,
// persists synchronously and broadcasts a change hint.
//
// A persistence failure is logged and the write dropped; the cache keeps the
// last successfully persisted state so readers never observe an update that
// did not land.
func (s *Store) Put(episodeID string, patch Patch) {
	if episodeID == "" {
		log.Warn("position store: put with empty episode id dropped")
		return
	}

	s.mu.Lock()

	current := s.loadLocked()
	next := make(map[string]Record, len(current)+1)
	for id, rec := range current {
		next[id] = rec
	}

	rec := next[episodeID]
	patch.apply(&rec)
	// Ticks are serialized per session, so wall-clock ordering holds; the
	// guard only defends against clock steps between writes.
	if lw := s.now(); lw.After(rec.LastWatched) {
		rec.LastWatched = lw
	}
	rec.recompute()
	next[episodeID] = rec

	if err := s.backend.WriteAll(next); err != nil {
		s.mu.Unlock()
		log.Errorf("position store: persist %s: %v", episodeID, err)
		return
	}

	s.cache = next
	s.fetchedAt = s.now()
	s.valid = true
	s.mu.Unlock()

	s.notify()
}

// MarkWatched forces an episode's completion state: watched sets the
// progress just shy of the full duration, unwatched resets it to zero. An
// episode never ticked before is left untouched.
func (s *Store) MarkWatched(episodeID string, watched bool) {
	rec, ok := s.Get(episodeID)
	if !ok || rec.TotalDuration <= 0 {
		return
	}

	progress := 0.0
	if watched {
		progress = rec.TotalDuration * 0.99
	}
	s.Put(episodeID, Patch{Progress: mo.Some(progress)})
}

// Clear erases all persisted state and broadcasts the change.
func (s *Store) Clear() {
	s.mu.Lock()

	empty := make(map[string]Record)
	if err := s.backend.WriteAll(empty); err != nil {
		s.mu.Unlock()
		log.Errorf("position store: clear: %v", err)
		return
	}

	s.cache = empty
	s.fetchedAt = s.now()
	s.valid = true
	s.mu.Unlock()

	s.notify()
}

// notify broadcasts a change hint without tripping the store's own
// cache-invalidating subscription.
func (s *Store) notify() {
	s.notifying.Store(true)
	s.backend.Notify()
	s.notifying.Store(false)
}

// loadLocked returns the cached record set, reloading from the backend when
// the cache is stale. A read failure is logged and served from the previous
// snapshot, matching the store's never-break-playback contract.
func (s *Store) loadLocked() map[string]Record {
	if s.valid && s.now().Sub(s.fetchedAt) < s.ttl {
		return s.cache
	}

	records, err := s.backend.ReadAll()
	if err != nil {
		log.Errorf("position store: load: %v", err)
		if s.cache == nil {
			s.cache = make(map[string]Record)
		}
		return s.cache
	}

	s.cache = records
	s.fetchedAt = s.now()
	s.valid = true
	return s.cache
}
