// Package position implements the cached, persistent store for per-episode
// watch positions.
package position

import (
	"time"

	"github.com/samber/mo"
)

// CompletionRatio is the watched fraction at which an episode counts as
// completed.
const CompletionRatio = 0.95

// Record is the persisted watch state of a single episode. Readers treat
// records as immutable snapshots; the store is the sole writer.
type Record struct {
	// Progress is the playhead position in seconds.
	Progress float64 `json:"progress"`
	// TotalDuration is the media length in seconds, zero when unknown.
	TotalDuration float64 `json:"totalDuration"`
	// LastWatched is the wall-clock time of the most recent update.
	LastWatched time.Time `json:"lastWatched"`
	// Completed is derived: it holds iff the duration is known and at least
	// CompletionRatio of it has been watched. Recomputed on every write.
	Completed bool `json:"completed"`

	// Denormalized display metadata.
	Name       string `json:"name,omitempty"`
	Thumbnail  string `json:"img,omitempty"`
	SeriesName string `json:"animeName,omitempty"`
}

// recompute refreshes the derived completion flag.
func (r *Record) recompute() {
	r.Completed = r.TotalDuration > 0 && r.Progress/r.TotalDuration >= CompletionRatio
}

// Patch is a field-wise partial update merged over an existing record.
// Absent fields leave the stored value untouched, so metadata-only updates
// never clobber an advanced progress pair.
type Patch struct {
	Progress      mo.Option[float64]
	TotalDuration mo.Option[float64]
	Name          mo.Option[string]
	Thumbnail     mo.Option[string]
	SeriesName    mo.Option[string]
}

// ProgressPatch builds the patch emitted by playback ticks.
func ProgressPatch(progress, total float64) Patch {
	return Patch{
		Progress:      mo.Some(progress),
		TotalDuration: mo.Some(total),
	}
}

// MetadataPatch builds a display-metadata-only patch. Empty strings are
// treated as absent so partial metadata never erases known values.
func MetadataPatch(name, thumbnail, seriesName string) Patch {
	p := Patch{}
	if name != "" {
		p.Name = mo.Some(name)
	}
	if thumbnail != "" {
		p.Thumbnail = mo.Some(thumbnail)
	}
	if seriesName != "" {
		p.SeriesName = mo.Some(seriesName)
	}
	return p
}

// apply merges the patch over the record.
func (p Patch) apply(r *Record) {
	if v, ok := p.Progress.Get(); ok {
		r.Progress = v
	}
	if v, ok := p.TotalDuration.Get(); ok {
		r.TotalDuration = v
	}
	if v, ok := p.Name.Get(); ok {
		r.Name = v
	}
	if v, ok := p.Thumbnail.Get(); ok {
		r.Thumbnail = v
	}
	if v, ok := p.SeriesName.Get(); ok {
		r.SeriesName = v
	}
}
