// Package session implements the adaptive playback session controller.
//
// A controller owns at most one live engine instance and one media sink
// binding at a time. Opening a new source fully releases the previous
// session before the next one is created, and every asynchronous engine or
// sink callback carries the generation it was created under: callbacks from
// a superseded generation are discarded before they can mutate state. The
// generation guard is the cancellation mechanism for in-flight loads.
package session

import (
	"sync"

	"github.com/aniplay-cli/aniplay/engine"
	"github.com/aniplay-cli/aniplay/log"
	"github.com/aniplay-cli/aniplay/stream"
)

// State is the lifecycle phase of a playback session.
type State int

const (
	Idle State = iota
	Loading
	Ready
	Buffering
	Playing
	Paused
	Errored
)

// String returns the lowercase identifier of the state.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Buffering:
		return "buffering"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

// Snapshot is an immutable view of session state handed to observers.
type Snapshot struct {
	State         State
	Levels        []engine.Level
	SelectedLevel int
	CurrentTime   float64
	Duration      float64
	Volume        float64
	Err           *PlaybackError
}

// Options parameterize one Open call.
type Options struct {
	// Autoplay starts playback as soon as the session reaches Ready.
	Autoplay bool
	// StartAt seeks to an absolute position before playback begins. Callers
	// offering a resume prompt pass the accepted position here.
	StartAt float64
	// Title is a display name forwarded to the sink where supported.
	Title string
	// Progress, when set, receives playhead ticks while the session is
	// playing. Callers wire it to the position store.
	Progress func(current, duration float64)
}

// Controller drives the lifecycle of playback sessions against one sink.
type Controller struct {
	mu        sync.Mutex
	sink      engine.Sink
	newEngine func() engine.Engine
	onChange  func(Snapshot)

	// generation tags the current session; asynchronous callbacks compare
	// their captured value against it before touching anything.
	generation uint64

	eng      engine.Engine
	state    State
	levels   []engine.Level
	selected int
	current  float64
	duration float64
	volume   float64
	lastErr  *PlaybackError
	opts     Options
}

// New creates a controller bound to the given sink. The factory is invoked
// once per segmented Open to supply a fresh engine instance.
func New(sink engine.Sink, newEngine func() engine.Engine) *Controller {
	return &Controller{
		sink:      sink,
		newEngine: newEngine,
		state:     Idle,
		selected:  engine.AutoLevel,
		volume:    1,
	}
}

// OnChange registers the state observer. Only one observer is held; the
// callback is invoked outside the controller lock.
func (c *Controller) OnChange(fn func(Snapshot)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Snapshot returns a copy of the current session state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	levels := make([]engine.Level, len(c.levels))
	copy(levels, c.levels)
	return Snapshot{
		State:         c.state,
		Levels:        levels,
		SelectedLevel: c.selected,
		CurrentTime:   c.current,
		Duration:      c.duration,
		Volume:        c.volume,
		Err:           c.lastErr,
	}
}

// Open starts a fresh session for the given source, releasing any previous
// one first. A fatal failure is reported both through the returned error and
// the Errored snapshot state.
func (c *Controller) Open(src stream.MediaSource, opts Options) error {
	c.mu.Lock()
	c.teardownLocked()

	c.generation++
	gen := c.generation
	c.opts = opts
	c.state = Loading
	c.selected = engine.AutoLevel
	c.levels = nil
	c.current = opts.StartAt
	c.duration = 0
	c.lastErr = nil

	var err *PlaybackError
	switch src.Kind {
	case stream.Segmented:
		eng := c.newEngine()
		c.eng = eng
		c.sink.Bind(&sinkEvents{c: c, gen: gen})
		if attachErr := eng.Attach(c.sink, &engineEvents{c: c, gen: gen}); attachErr != nil {
			err = newError(EngineFatal, "attach engine: %v", attachErr)
		} else if loadErr := eng.Load(src.URL, src.DRM); loadErr != nil {
			err = newError(Transport, "load manifest: %v", loadErr)
		}

	case stream.Progressive:
		c.sink.Bind(&sinkEvents{c: c, gen: gen})
		if bindErr := c.sink.SetSource(src.URL); bindErr != nil {
			err = newError(Transport, "bind source: %v", bindErr)
		}

	default:
		err = newError(UnsupportedSource, "cannot play %s source %q", src.Kind, src.URL)
	}

	if err != nil {
		c.failLocked(err)
	}
	c.emit(c.unlock())
	if err != nil {
		return err
	}
	return nil
}

// Close tears the current session down. It is safe to call on an idle or
// already-closed controller.
func (c *Controller) Close() error {
	c.mu.Lock()
	c.generation++
	c.teardownLocked()
	c.state = Idle
	c.current = 0
	c.duration = 0
	c.lastErr = nil
	c.emit(c.unlock())
	return nil
}

// teardownLocked releases the live session in the mandated order: stop
// playback, detach listeners, destroy the engine, then clear quality state.
// A destroy failure is logged and teardown proceeds; local state must never
// be left pointing at a half-dead engine.
func (c *Controller) teardownLocked() {
	if c.eng == nil && c.state == Idle {
		return
	}

	_ = c.sink.Pause()
	c.sink.Unbind()
	c.sink.ClearSource()

	if c.eng != nil {
		if err := c.eng.Destroy(); err != nil {
			log.Errorf("engine destroy failed: %v", err)
		}
		c.eng = nil
	}

	c.levels = nil
	c.selected = engine.AutoLevel
}

// SetQuality pins the active rendition, or requests auto selection with
// engine.AutoLevel. The selected level is reflected back asynchronously via
// the engine's level-switch event, never assumed synchronously.
func (c *Controller) SetQuality(level int) {
	c.mu.Lock()
	eng := c.eng
	c.mu.Unlock()
	if eng != nil {
		eng.SetLevel(level)
	}
}

// Seek moves the playhead. Stall and recovery around the seek surface as
// Buffering/Playing transitions through the sink events.
func (c *Controller) Seek(seconds float64) error {
	c.mu.Lock()
	if !c.activeLocked() {
		c.mu.Unlock()
		return newError(Transport, "seek on inactive session")
	}
	c.mu.Unlock()
	return c.sink.Seek(seconds)
}

// Play resumes playback of a ready or paused session.
func (c *Controller) Play() error {
	c.mu.Lock()
	if !c.activeLocked() {
		c.mu.Unlock()
		return newError(Transport, "play on inactive session")
	}
	if err := c.sink.Play(); err != nil {
		c.mu.Unlock()
		return newError(Transport, "play: %v", err)
	}
	c.state = Playing
	c.emit(c.unlock())
	return nil
}

// Pause suspends playback.
func (c *Controller) Pause() error {
	c.mu.Lock()
	if !c.activeLocked() {
		c.mu.Unlock()
		return newError(Transport, "pause on inactive session")
	}
	if err := c.sink.Pause(); err != nil {
		c.mu.Unlock()
		return newError(Transport, "pause: %v", err)
	}
	c.state = Paused
	c.emit(c.unlock())
	return nil
}

// SetVolume adjusts playback volume, clamped to [0, 1].
func (c *Controller) SetVolume(v float64) error {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	if err := c.sink.SetVolume(v); err != nil {
		return newError(Transport, "set volume: %v", err)
	}
	c.mu.Lock()
	c.volume = v
	c.emit(c.unlock())
	return nil
}

// SetRate adjusts the playback speed multiplier.
func (c *Controller) SetRate(r float64) error {
	if err := c.sink.SetRate(r); err != nil {
		return newError(Transport, "set rate: %v", err)
	}
	return nil
}

func (c *Controller) activeLocked() bool {
	switch c.state {
	case Ready, Playing, Paused, Buffering:
		return true
	default:
		return false
	}
}

// failLocked transitions to Errored, releasing engine resources immediately.
func (c *Controller) failLocked(err *PlaybackError) {
	log.Errorf("playback session failed: %v", err)
	c.teardownLocked()
	c.state = Errored
	c.lastErr = err
}

// unlock releases the controller lock and returns the observer callback and
// snapshot captured under it, so emission happens without holding the lock.
func (c *Controller) unlock() (func(Snapshot), Snapshot) {
	cb := c.onChange
	snap := c.snapshotLocked()
	c.mu.Unlock()
	return cb, snap
}

func (c *Controller) emit(cb func(Snapshot), snap Snapshot) {
	if cb != nil {
		cb(snap)
	}
}

// beginPlaybackLocked honors StartAt and Autoplay once the session is Ready.
func (c *Controller) beginPlaybackLocked() {
	if c.opts.StartAt > 0 {
		if err := c.sink.Seek(c.opts.StartAt); err != nil {
			log.Warnf("resume seek failed: %v", err)
		}
	}
	if c.opts.Autoplay {
		if err := c.sink.Play(); err != nil {
			log.Warnf("autoplay failed: %v", err)
			return
		}
		c.state = Playing
	}
}

// engineEvents adapts engine callbacks onto the controller, guarded by the
// generation captured at Open time.
type engineEvents struct {
	c   *Controller
	gen uint64
}

func (e *engineEvents) ManifestParsed(levels []engine.Level) {
	c := e.c
	c.mu.Lock()
	if e.gen != c.generation || c.state != Loading {
		c.mu.Unlock()
		return
	}
	c.levels = append([]engine.Level(nil), levels...)
	c.state = Ready
	c.beginPlaybackLocked()
	c.emit(c.unlock())
}

func (e *engineEvents) LevelSwitched(level int) {
	c := e.c
	c.mu.Lock()
	if e.gen != c.generation || c.state == Errored {
		c.mu.Unlock()
		return
	}
	c.selected = level
	c.emit(c.unlock())
}

func (e *engineEvents) EngineError(fatal bool, err error) {
	c := e.c
	c.mu.Lock()
	if e.gen != c.generation {
		c.mu.Unlock()
		return
	}
	if !fatal {
		log.Warnf("engine advisory: %v", err)
		c.mu.Unlock()
		return
	}
	c.failLocked(newError(EngineFatal, "%v", err))
	c.emit(c.unlock())
}

// sinkEvents adapts media sink callbacks onto the controller with the same
// generation discipline.
type sinkEvents struct {
	c   *Controller
	gen uint64
}

func (s *sinkEvents) MetadataLoaded(duration float64) {
	c := s.c
	c.mu.Lock()
	if s.gen != c.generation || c.state == Errored {
		c.mu.Unlock()
		return
	}
	c.duration = duration
	// Progressive sources have no manifest; metadata is their readiness signal.
	if c.state == Loading && c.eng == nil {
		c.state = Ready
		c.beginPlaybackLocked()
	}
	c.emit(c.unlock())
}

func (s *sinkEvents) Waiting() {
	c := s.c
	c.mu.Lock()
	if s.gen != c.generation || c.state == Errored {
		c.mu.Unlock()
		return
	}
	c.state = Buffering
	c.emit(c.unlock())
}

func (s *sinkEvents) Resumed() {
	c := s.c
	c.mu.Lock()
	if s.gen != c.generation || c.state == Errored {
		c.mu.Unlock()
		return
	}
	c.state = Playing
	c.emit(c.unlock())
}

func (s *sinkEvents) Tick(seconds float64) {
	c := s.c
	c.mu.Lock()
	if s.gen != c.generation || c.state == Errored {
		c.mu.Unlock()
		return
	}
	c.current = seconds
	var progress func(float64, float64)
	var cur, dur float64
	if c.state == Playing && c.opts.Progress != nil {
		progress = c.opts.Progress
		cur, dur = c.current, c.duration
	}
	c.mu.Unlock()
	if progress != nil {
		progress(cur, dur)
	}
}

func (s *sinkEvents) Ended() {
	c := s.c
	c.mu.Lock()
	if s.gen != c.generation || c.state == Errored {
		c.mu.Unlock()
		return
	}
	c.current = c.duration
	c.state = Paused
	var progress func(float64, float64)
	var cur, dur float64
	if c.opts.Progress != nil {
		progress = c.opts.Progress
		cur, dur = c.current, c.duration
	}
	cb, snap := c.unlock()
	if progress != nil {
		progress(cur, dur)
	}
	c.emit(cb, snap)
}

func (s *sinkEvents) SinkError(err error) {
	c := s.c
	c.mu.Lock()
	if s.gen != c.generation || c.state == Errored {
		c.mu.Unlock()
		return
	}
	c.failLocked(newError(Transport, "%v", err))
	c.emit(c.unlock())
}
