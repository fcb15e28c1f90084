package session

import (
	"errors"
	"testing"

	"github.com/aniplay-cli/aniplay/engine"
	"github.com/aniplay-cli/aniplay/stream"
	"github.com/samber/mo"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeSink records every call so tests can assert ordering and arguments.
type fakeSink struct {
	calls   []string
	handler engine.SinkHandler
	source  string
	seeks   []float64
	volume  float64
	rate    float64
	cur     float64
	dur     float64

	positionQueries int

	setSourceErr error
	playErr      error
}

func (s *fakeSink) SetSource(url string) error {
	s.calls = append(s.calls, "setSource")
	if s.setSourceErr != nil {
		return s.setSourceErr
	}
	s.source = url
	return nil
}

func (s *fakeSink) ClearSource() {
	s.calls = append(s.calls, "clearSource")
	s.source = ""
}

func (s *fakeSink) Bind(handler engine.SinkHandler) {
	s.calls = append(s.calls, "bind")
	s.handler = handler
}

func (s *fakeSink) Unbind() {
	s.calls = append(s.calls, "unbind")
	s.handler = nil
}

func (s *fakeSink) Play() error {
	s.calls = append(s.calls, "play")
	return s.playErr
}

func (s *fakeSink) Pause() error {
	s.calls = append(s.calls, "pause")
	return nil
}

func (s *fakeSink) Seek(seconds float64) error {
	s.calls = append(s.calls, "seek")
	s.seeks = append(s.seeks, seconds)
	return nil
}

func (s *fakeSink) SetVolume(v float64) error {
	s.volume = v
	return nil
}

func (s *fakeSink) SetRate(r float64) error {
	s.rate = r
	return nil
}

func (s *fakeSink) Position() (current, duration float64) {
	s.positionQueries++
	return s.cur, s.dur
}

// fakeEngine records lifecycle calls and exposes its handler so tests can
// inject events.
type fakeEngine struct {
	calls     []string
	sink      engine.Sink
	handler   engine.Handler
	loaded    []string
	level     int
	destroyed int

	loadErr    error
	destroyErr error
}

func (e *fakeEngine) Attach(sink engine.Sink, handler engine.Handler) error {
	e.calls = append(e.calls, "attach")
	e.sink = sink
	e.handler = handler
	return nil
}

func (e *fakeEngine) Load(url string, drm mo.Option[stream.ClearKey]) error {
	e.calls = append(e.calls, "load")
	if e.loadErr != nil {
		return e.loadErr
	}
	e.loaded = append(e.loaded, url)
	return nil
}

func (e *fakeEngine) SetLevel(level int) {
	e.calls = append(e.calls, "setLevel")
	e.level = level
}

func (e *fakeEngine) Level() int { return e.level }

func (e *fakeEngine) Destroy() error {
	e.calls = append(e.calls, "destroy")
	e.destroyed++
	return e.destroyErr
}

func newFixture() (*Controller, *fakeSink, *fakeEngine, *[]*fakeEngine) {
	sink := &fakeSink{}
	eng := &fakeEngine{level: engine.AutoLevel}
	created := &[]*fakeEngine{}
	ctrl := New(sink, func() engine.Engine {
		*created = append(*created, eng)
		return eng
	})
	return ctrl, sink, eng, created
}

var segmented = stream.MediaSource{URL: "https://cdn.example.com/master.m3u8", Kind: stream.Segmented}
var progressive = stream.MediaSource{URL: "https://cdn.example.com/episode.mp4", Kind: stream.Progressive}

var ladder = []engine.Level{
	{Level: 0, Height: 480, Bitrate: 800_000},
	{Level: 1, Height: 720, Bitrate: 1_600_000},
	{Level: 2, Height: 1080, Bitrate: 3_000_000},
}

func TestSegmentedSession(t *testing.T) {
	Convey("Given a controller opening a segmented source", t, func() {
		ctrl, sink, eng, _ := newFixture()

		So(ctrl.Open(segmented, Options{}), ShouldBeNil)

		Convey("The session is loading and the engine holds the manifest URL", func() {
			So(ctrl.Snapshot().State, ShouldEqual, Loading)
			So(eng.loaded, ShouldResemble, []string{segmented.URL})
			So(eng.sink, ShouldEqual, engine.Sink(sink))
		})

		Convey("When the manifest is parsed", func() {
			eng.handler.ManifestParsed(ladder)
			snap := ctrl.Snapshot()

			Convey("The session becomes ready with the full ladder on auto", func() {
				So(snap.State, ShouldEqual, Ready)
				So(snap.Levels, ShouldHaveLength, 3)
				So(snap.SelectedLevel, ShouldEqual, engine.AutoLevel)
			})

			Convey("Pinning a quality is reflected only after the engine confirms", func() {
				ctrl.SetQuality(1)
				So(ctrl.Snapshot().SelectedLevel, ShouldEqual, engine.AutoLevel)

				eng.handler.LevelSwitched(1)
				So(ctrl.Snapshot().SelectedLevel, ShouldEqual, 1)
			})

			Convey("Play and pause drive the sink and the state", func() {
				So(ctrl.Play(), ShouldBeNil)
				So(ctrl.Snapshot().State, ShouldEqual, Playing)

				So(ctrl.Pause(), ShouldBeNil)
				So(ctrl.Snapshot().State, ShouldEqual, Paused)
			})

			Convey("A stall surfaces as buffering and recovery as playing", func() {
				So(ctrl.Play(), ShouldBeNil)
				sink.handler.Waiting()
				So(ctrl.Snapshot().State, ShouldEqual, Buffering)

				sink.handler.Resumed()
				So(ctrl.Snapshot().State, ShouldEqual, Playing)
			})
		})

		Convey("With autoplay and a resume position", func() {
			ctrl2, sink2, eng2, _ := newFixture()
			So(ctrl2.Open(segmented, Options{Autoplay: true, StartAt: 42}), ShouldBeNil)
			eng2.handler.ManifestParsed(ladder)

			So(sink2.seeks, ShouldResemble, []float64{42})
			So(ctrl2.Snapshot().State, ShouldEqual, Playing)
		})
	})
}

func TestProgressiveSession(t *testing.T) {
	Convey("Given a controller opening a progressive source", t, func() {
		ctrl, sink, _, created := newFixture()

		So(ctrl.Open(progressive, Options{}), ShouldBeNil)

		Convey("No engine is created and the sink holds the URL", func() {
			So(*created, ShouldBeEmpty)
			So(sink.source, ShouldEqual, progressive.URL)
			So(ctrl.Snapshot().State, ShouldEqual, Loading)
		})

		Convey("Metadata is the readiness signal", func() {
			sink.handler.MetadataLoaded(1440)
			snap := ctrl.Snapshot()
			So(snap.State, ShouldEqual, Ready)
			So(snap.Duration, ShouldEqual, 1440)
			So(snap.Levels, ShouldBeEmpty)
		})

		Convey("A sink bind failure is a transport error", func() {
			ctrl2, sink2, _, _ := newFixture()
			sink2.setSourceErr = errors.New("connection refused")

			err := ctrl2.Open(progressive, Options{})
			So(err, ShouldNotBeNil)

			var perr *PlaybackError
			So(errors.As(err, &perr), ShouldBeTrue)
			So(perr.Kind, ShouldEqual, Transport)
			So(ctrl2.Snapshot().State, ShouldEqual, Errored)
		})
	})
}

func TestUnsupportedSource(t *testing.T) {
	Convey("Opening an unclassifiable source fails without touching the engine", t, func() {
		ctrl, _, _, created := newFixture()

		err := ctrl.Open(stream.MediaSource{URL: "garbage"}, Options{})
		So(err, ShouldNotBeNil)

		var perr *PlaybackError
		So(errors.As(err, &perr), ShouldBeTrue)
		So(perr.Kind, ShouldEqual, UnsupportedSource)
		So(ctrl.Snapshot().State, ShouldEqual, Errored)
		So(*created, ShouldBeEmpty)
	})
}

func TestTeardown(t *testing.T) {
	Convey("Given an active segmented session", t, func() {
		ctrl, sink, eng, _ := newFixture()
		So(ctrl.Open(segmented, Options{}), ShouldBeNil)
		eng.handler.ManifestParsed(ladder)

		Convey("Close stops playback, detaches, destroys and resets", func() {
			sink.calls = nil
			So(ctrl.Close(), ShouldBeNil)

			So(sink.calls, ShouldResemble, []string{"pause", "unbind", "clearSource"})
			So(eng.destroyed, ShouldEqual, 1)

			snap := ctrl.Snapshot()
			So(snap.State, ShouldEqual, Idle)
			So(snap.Levels, ShouldBeEmpty)
			So(snap.SelectedLevel, ShouldEqual, engine.AutoLevel)
		})

		Convey("Close is idempotent", func() {
			So(ctrl.Close(), ShouldBeNil)
			So(ctrl.Close(), ShouldBeNil)
			So(eng.destroyed, ShouldEqual, 1)
		})

		Convey("A destroy failure still clears local state", func() {
			eng.destroyErr = errors.New("ipc gone")
			So(ctrl.Close(), ShouldBeNil)
			So(ctrl.Snapshot().State, ShouldEqual, Idle)
			So(eng.destroyed, ShouldEqual, 1)
		})

		Convey("Events from a superseded session are discarded", func() {
			stale := eng.handler
			So(ctrl.Close(), ShouldBeNil)

			stale.ManifestParsed(ladder)
			stale.LevelSwitched(2)

			snap := ctrl.Snapshot()
			So(snap.State, ShouldEqual, Idle)
			So(snap.Levels, ShouldBeEmpty)
			So(snap.SelectedLevel, ShouldEqual, engine.AutoLevel)
		})

		Convey("Reopening releases the previous engine exactly once", func() {
			staleSink := sink.handler
			So(ctrl.Open(segmented, Options{}), ShouldBeNil)
			So(eng.destroyed, ShouldEqual, 1)

			// The superseded sink binding must not leak ticks into the
			// fresh session.
			staleSink.Tick(999)
			So(ctrl.Snapshot().CurrentTime, ShouldEqual, 0)
		})
	})
}

func TestEngineErrors(t *testing.T) {
	Convey("Given an active segmented session", t, func() {
		ctrl, _, eng, _ := newFixture()
		So(ctrl.Open(segmented, Options{}), ShouldBeNil)
		eng.handler.ManifestParsed(ladder)

		Convey("A fatal engine error moves the session to errored and destroys", func() {
			eng.handler.EngineError(true, errors.New("level load timeout"))

			snap := ctrl.Snapshot()
			So(snap.State, ShouldEqual, Errored)
			So(snap.Err, ShouldNotBeNil)
			So(snap.Err.Kind, ShouldEqual, EngineFatal)
			So(eng.destroyed, ShouldEqual, 1)

			Convey("Later engine events are ignored", func() {
				eng.handler.LevelSwitched(2)
				So(ctrl.Snapshot().SelectedLevel, ShouldEqual, engine.AutoLevel)
			})
		})

		Convey("An advisory error leaves the session running", func() {
			eng.handler.EngineError(false, errors.New("fragment retry"))
			So(ctrl.Snapshot().State, ShouldEqual, Ready)
			So(eng.destroyed, ShouldEqual, 0)
		})

		Convey("A load failure is a transport error", func() {
			ctrl2, _, eng2, _ := newFixture()
			eng2.loadErr = errors.New("dns failure")

			err := ctrl2.Open(segmented, Options{})
			var perr *PlaybackError
			So(errors.As(err, &perr), ShouldBeTrue)
			So(perr.Kind, ShouldEqual, Transport)
		})
	})
}

func TestProgressTicks(t *testing.T) {
	Convey("Given a playing session with a progress callback", t, func() {
		var ticks [][2]float64
		ctrl, sink, eng, _ := newFixture()

		So(ctrl.Open(segmented, Options{
			Autoplay: true,
			Progress: func(current, duration float64) {
				ticks = append(ticks, [2]float64{current, duration})
			},
		}), ShouldBeNil)
		eng.handler.ManifestParsed(ladder)
		sink.handler.MetadataLoaded(1440)

		Convey("Ticks update the playhead and reach the callback", func() {
			sink.handler.Tick(30)
			So(sink.positionQueries, ShouldEqual, 0)

			snap := ctrl.Snapshot()
			So(snap.CurrentTime, ShouldEqual, 30)
			So(snap.Duration, ShouldEqual, 1440)
			So(ticks, ShouldResemble, [][2]float64{{30, 1440}})
		})

		Convey("Ending pins the playhead to the duration and pauses", func() {
			sink.handler.Tick(1439)
			sink.handler.Ended()

			snap := ctrl.Snapshot()
			So(snap.State, ShouldEqual, Paused)
			So(snap.CurrentTime, ShouldEqual, 1440)
			So(ticks[len(ticks)-1], ShouldResemble, [2]float64{1440, 1440})
		})

		Convey("Paused sessions do not report progress", func() {
			So(ctrl.Pause(), ShouldBeNil)
			sink.handler.Tick(55)
			So(ticks, ShouldBeEmpty)
		})
	})
}

func TestVolume(t *testing.T) {
	Convey("Volume is clamped to the unit range", t, func() {
		ctrl, sink, _, _ := newFixture()

		So(ctrl.SetVolume(1.8), ShouldBeNil)
		So(sink.volume, ShouldEqual, 1.0)
		So(ctrl.Snapshot().Volume, ShouldEqual, 1.0)

		So(ctrl.SetVolume(-3), ShouldBeNil)
		So(sink.volume, ShouldEqual, 0.0)
	})
}
