package mpv

import "github.com/aniplay-cli/aniplay/engine"

// The sink side of Player. Progressive sources bypass the engine
// boundary and bind mpv directly.

// SetSource spawns mpv for a progressive media URL.
func (p *Player) SetSource(url string) error {
	return p.spawn(url, nil)
}

// ClearSource detaches the bound source by shutting the process down.
// mpv cannot outlive its media without a window lingering around.
func (p *Player) ClearSource() {
	_ = p.shutdown()
}

// Bind registers the sink event handler, replacing any previous one.
func (p *Player) Bind(handler engine.SinkHandler) {
	p.mu.Lock()
	p.sinkHandler = handler
	p.mu.Unlock()
}

// Unbind detaches the sink event handler. Events observed afterwards
// are dropped.
func (p *Player) Unbind() {
	p.mu.Lock()
	p.sinkHandler = nil
	p.mu.Unlock()
}

func (p *Player) Play() error {
	return p.setProperty("pause", false)
}

func (p *Player) Pause() error {
	return p.setProperty("pause", true)
}

// Seek moves the playhead to an absolute position in seconds.
func (p *Player) Seek(seconds float64) error {
	_, err := p.sendCommand([]interface{}{"seek", seconds, "absolute"})
	return err
}

// SetVolume sets the volume. mpv's volume scale is 0-100.
func (p *Player) SetVolume(v float64) error {
	return p.setProperty("volume", v*100)
}

// SetRate sets the playback speed multiplier.
func (p *Player) SetRate(r float64) error {
	return p.setProperty("speed", r)
}

// Position reports the current playhead and total duration in seconds.
// Either value is zero when mpv cannot report it.
func (p *Player) Position() (current, duration float64) {
	current, _ = p.getFloatProperty("time-pos")
	duration, _ = p.getFloatProperty("duration")
	return current, duration
}
