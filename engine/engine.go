// Package engine defines the boundary contracts between the playback session
// controller and the external media machinery: the adaptive-bitrate streaming
// engine and the media sink it renders into.
//
// The engine is treated as a black box. The session controller's only
// obligations toward it are correct lifecycle sequencing (attach, load,
// destroy) and discarding events delivered after teardown; bitrate estimation
// and segment scheduling stay inside the implementation.
//
// Implementations must deliver handler events asynchronously: never from
// within an Engine or Sink method invoked by the controller.
package engine

import (
	"github.com/aniplay-cli/aniplay/stream"
	"github.com/samber/mo"
)

// AutoLevel requests engine-driven automatic quality selection.
const AutoLevel = -1

// Level describes one quality rendition reported by the engine.
type Level struct {
	// Level is the engine-assigned index used for pinning.
	Level int `json:"level"`
	// Height is the vertical resolution in pixels.
	Height int `json:"height"`
	// Bitrate is the advertised bandwidth in bits per second, zero when unknown.
	Bitrate int `json:"bitrate,omitempty"`
}

// Handler receives asynchronous engine events. Implementations must tolerate
// delivery from arbitrary goroutines.
type Handler interface {
	// ManifestParsed fires once the manifest has been fetched and the quality
	// ladder is known.
	ManifestParsed(levels []Level)

	// LevelSwitched fires whenever the active rendition changes, whether
	// user-pinned or engine-driven.
	LevelSwitched(level int)

	// EngineError reports a failure. Fatal errors leave the engine unusable;
	// non-fatal errors are advisory and playback continues.
	EngineError(fatal bool, err error)
}

// Engine is the adaptive streaming engine boundary.
type Engine interface {
	// Attach binds the engine to a media sink and registers the event handler.
	// An engine serves exactly one sink for its whole lifetime.
	Attach(sink Sink, handler Handler) error

	// Load begins the asynchronous fetch and parse of the manifest at url.
	// Completion is signaled through Handler.ManifestParsed or a fatal
	// Handler.EngineError.
	Load(url string, drm mo.Option[stream.ClearKey]) error

	// SetLevel pins the active rendition, or requests auto selection when
	// passed AutoLevel. The switch is reflected via Handler.LevelSwitched.
	SetLevel(level int)

	// Level reports the currently active rendition index.
	Level() int

	// Destroy releases all engine resources. After Destroy returns no further
	// events may be delivered to the handler.
	Destroy() error
}

// SinkHandler receives asynchronous media element events.
type SinkHandler interface {
	// MetadataLoaded fires when the sink knows the media duration.
	MetadataLoaded(duration float64)

	// Waiting fires when playback stalls waiting for data.
	Waiting()

	// Resumed fires when playback continues after a stall or seek.
	Resumed()

	// Tick reports the playhead position at a coarse interval while playing.
	Tick(seconds float64)

	// Ended fires when the playhead reaches the end of the media.
	Ended()

	// SinkError reports a media element failure; always fatal for the session.
	SinkError(err error)
}

// Sink is the media element boundary: the surface a session renders into.
type Sink interface {
	// SetSource binds a progressive URL directly to the sink.
	SetSource(url string) error

	// ClearSource detaches any bound source.
	ClearSource()

	// Bind registers the event handler. A sink holds at most one handler;
	// binding replaces the previous one.
	Bind(handler SinkHandler)

	// Unbind detaches the current handler. Events occurring afterwards are
	// dropped by the sink.
	Unbind()

	Play() error
	Pause() error

	// Seek moves the playhead to an absolute position in seconds. Completion
	// is observed through SinkHandler Waiting/Resumed pairs.
	Seek(seconds float64) error

	// SetVolume sets the playback volume in [0, 1].
	SetVolume(v float64) error

	// SetRate sets the playback speed multiplier.
	SetRate(r float64) error

	// Position reports the current playhead and total duration in seconds.
	Position() (current, duration float64)
}
