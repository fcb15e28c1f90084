// Package mpv drives a local mpv process over its JSON-IPC socket,
// exposing it as both the streaming engine and the media sink of a
// playback session. One Player owns one mpv process.
package mpv

import (
	"crypto/rand"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/aniplay-cli/aniplay/constant"
	"github.com/aniplay-cli/aniplay/engine"
	"github.com/aniplay-cli/aniplay/log"
	"github.com/aniplay-cli/aniplay/stream"
	"github.com/samber/mo"
)

const (
	socketWaitRetries = 10
	socketWaitDelay   = 300 * time.Millisecond
	quitGracePeriod   = 3 * time.Second
)

// Player is an mpv process handle. It implements engine.Engine and
// engine.Sink over the same process: mpv demuxes adaptive manifests and
// renders them itself, so the two boundaries collapse into one binary.
type Player struct {
	cmd      *exec.Cmd
	exited   chan struct{} // closed when mpv exits
	listener *eventListener

	ipcMu      sync.Mutex // serializes IPC round-trips and guards socketPath
	socketPath string

	mu          sync.Mutex
	handler     engine.Handler
	sinkHandler engine.SinkHandler
	level       int
	running     bool
	title       string
}

// New creates an idle Player. No process is spawned until Load or
// SetSource is called.
func New(title string) *Player {
	return &Player{
		level: engine.AutoLevel,
		title: title,
	}
}

// Attach binds the engine side to its sink. mpv renders into itself, so
// the only valid sink is the Player's own sink surface.
func (p *Player) Attach(sink engine.Sink, handler engine.Handler) error {
	if sink != engine.Sink(p) {
		return fmt.Errorf("mpv engine renders into its own process, foreign sink not supported")
	}

	p.mu.Lock()
	p.handler = handler
	p.mu.Unlock()
	return nil
}

// Load spawns mpv for the given manifest URL. The quality ladder is
// reported through Handler.ManifestParsed once mpv has loaded the file.
func (p *Player) Load(url string, drm mo.Option[stream.ClearKey]) error {
	var extra []string
	if key, ok := drm.Get(); ok {
		extra = append(extra, fmt.Sprintf("--demuxer-lavf-o=decryption_key=%s", key.Key))
	}
	return p.spawn(url, extra)
}

// SetLevel pins a video track, or hands selection back to mpv when
// passed engine.AutoLevel. mpv track ids are 1-based.
func (p *Player) SetLevel(level int) {
	var value interface{}
	if level == engine.AutoLevel {
		value = "auto"
	} else {
		value = level + 1
	}

	if err := p.setProperty("vid", value); err != nil {
		log.Warnf("mpv: set vid: %v", err)
	}
}

// Level reports the currently active track index.
func (p *Player) Level() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

// Wait returns a channel that is closed when the mpv process exits.
// Only valid once a source has been loaded.
func (p *Player) Wait() <-chan struct{} {
	return p.exited
}

// Destroy shuts mpv down and drops the event handler. It tries a
// graceful quit over IPC first and kills the process group after a
// grace period.
func (p *Player) Destroy() error {
	p.mu.Lock()
	p.handler = nil
	p.mu.Unlock()
	return p.shutdown()
}

func (p *Player) shutdown() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	listener := p.listener
	p.listener = nil
	p.mu.Unlock()

	if listener != nil {
		listener.stop()
	}

	_, _ = p.sendCommand([]interface{}{"quit"})

	select {
	case <-p.exited:
	case <-time.After(quitGracePeriod):
		_ = killProcess(p.cmd)
	}

	if sock := p.clearSocket(); sock != "" {
		_ = os.Remove(sock)
	}
	return nil
}

// spawn starts the mpv process for the given media target and brings up
// the IPC socket and event listener.
func (p *Player) spawn(rawURL string, extraArgs []string) error {
	safeURL, err := sanitizeMediaTarget(rawURL)
	if err != nil {
		return fmt.Errorf("invalid media target: %w", err)
	}

	randomBytes := make([]byte, 4)
	if _, err := rand.Read(randomBytes); err != nil {
		return fmt.Errorf("generate socket name: %w", err)
	}
	sock := filepath.Join(os.TempDir(), fmt.Sprintf("%s-%x.sock", constant.Aniplay, randomBytes))
	p.setSocketPath(sock)

	// Pass only the socket, title and URL. --vo, --profile and --hwdec
	// stay with the user's mpv.conf.
	args := []string{
		"--no-terminal",
		"--really-quiet",
		fmt.Sprintf("--input-ipc-server=%s", sock),
		fmt.Sprintf("--force-media-title=%s", sanitizeTitle(p.title)),
		fmt.Sprintf("--title=%s", sanitizeTitle(p.title)),
		fmt.Sprintf("--user-agent=%s", constant.UserAgent),
		"--force-window=yes",
		"--pause=yes",
		"--idle=yes",
	}
	args = append(args, extraArgs...)
	args = append(args, safeURL)

	p.cmd = exec.Command("mpv", args...)
	p.cmd.SysProcAttr = sysProcAttr()
	p.cmd.Stdout = nil
	p.cmd.Stderr = nil
	p.cmd.Stdin = nil

	if err := p.cmd.Start(); err != nil {
		return fmt.Errorf("start mpv: %w", err)
	}

	p.exited = make(chan struct{})
	go func(cmd *exec.Cmd, exited chan struct{}) {
		_ = cmd.Wait()
		close(exited)
	}(p.cmd, p.exited)

	if err := p.waitForSocket(sock); err != nil {
		if p.cmd.Process != nil {
			select {
			case <-p.exited:
			default:
				log.Warnf("killing mpv: socket never became ready")
				_ = p.cmd.Process.Kill()
			}
		}
		return fmt.Errorf("mpv socket not ready: %w", err)
	}

	listener := newEventListener(sock, p.handleEvent)
	if err := listener.start(); err != nil {
		_ = killProcess(p.cmd)
		return fmt.Errorf("mpv event listener: %w", err)
	}

	p.mu.Lock()
	p.listener = listener
	p.running = true
	p.level = engine.AutoLevel
	p.mu.Unlock()

	return nil
}

// waitForSocket polls until the IPC socket accepts connections.
func (p *Player) waitForSocket(sock string) error {
	for i := 0; i < socketWaitRetries; i++ {
		time.Sleep(socketWaitDelay)

		select {
		case <-p.exited:
			return fmt.Errorf("mpv exited before socket was ready")
		default:
		}

		conn, err := net.Dial("unix", sock)
		if err == nil {
			conn.Close()
			return nil
		}
	}
	return fmt.Errorf("socket %s not ready after %d attempts", sock, socketWaitRetries)
}

// trackLevels queries mpv's track list and converts the video tracks
// into the session's quality ladder.
func (p *Player) trackLevels() []engine.Level {
	data, err := p.sendCommand([]interface{}{"get_property", "track-list"})
	if err != nil {
		log.Warnf("mpv: track-list: %v", err)
		return nil
	}

	tracks, ok := data.([]interface{})
	if !ok {
		return nil
	}

	var levels []engine.Level
	for _, raw := range tracks {
		track, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		if kind, _ := track["type"].(string); kind != "video" {
			continue
		}

		id, _ := track["id"].(float64)
		height, _ := track["demux-h"].(float64)
		bitrate, _ := track["demux-bitrate"].(float64)

		levels = append(levels, engine.Level{
			Level:   int(id) - 1,
			Height:  int(height),
			Bitrate: int(bitrate),
		})
	}

	return levels
}
