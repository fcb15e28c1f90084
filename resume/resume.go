// Package resume decides when playback should offer to continue from a saved
// position and which in-progress episodes qualify for the continue-watching
// shelf.
package resume

import (
	"github.com/aniplay-cli/aniplay/position"
	"github.com/samber/lo"
	"golang.org/x/exp/slices"
)

// MinStartedSeconds is the minimum watched time before an episode counts as
// meaningfully started.
const MinStartedSeconds = 10

// Offer is the result of a resume decision.
type Offer struct {
	// Offer reports whether a resume prompt should be shown.
	Offer bool
	// At is the position in seconds to resume from when Offer holds.
	At float64
}

// Entry pairs an episode identifier with its watch record for list rendering.
type Entry struct {
	EpisodeID string `json:"episodeId"`
	position.Record
}

// Coordinator evaluates resume eligibility against the position store.
type Coordinator struct {
	store *position.Store
}

// New creates a coordinator reading from the given store.
func New(store *position.Store) *Coordinator {
	return &Coordinator{store: store}
}

// ShouldOfferResume reports whether a session start for the episode should
// prompt to resume: the episode must be meaningfully started (beyond
// MinStartedSeconds) yet not effectively finished.
func (c *Coordinator) ShouldOfferResume(episodeID string) Offer {
	rec, ok := c.store.Get(episodeID)
	if !ok || rec.TotalDuration <= 0 {
		return Offer{}
	}

	if rec.Progress <= MinStartedSeconds || rec.Progress/rec.TotalDuration > position.CompletionRatio {
		return Offer{}
	}

	return Offer{Offer: true, At: rec.Progress}
}

// ContinueWatching returns the in-progress episodes, most recently watched
// first, truncated to limit. The result is recomputed fresh on every call;
// there is no stateful cursor.
func (c *Coordinator) ContinueWatching(limit int) []Entry {
	all := c.store.All()

	entries := make([]Entry, 0, len(all))
	for id, rec := range all {
		entries = append(entries, Entry{EpisodeID: id, Record: rec})
	}

	entries = lo.Filter(entries, func(e Entry, _ int) bool {
		return e.TotalDuration > 0 &&
			!e.Completed &&
			e.Progress > MinStartedSeconds &&
			e.Progress/e.TotalDuration < position.CompletionRatio
	})

	slices.SortFunc(entries, func(a, b Entry) int {
		return b.LastWatched.Compare(a.LastWatched)
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}
