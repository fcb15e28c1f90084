package mpv

import (
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/aniplay-cli/aniplay/engine"
	"github.com/aniplay-cli/aniplay/log"
)

// eventCallback receives mpv event notifications. For property changes
// name is the property and data its new value; for other events name is
// the event type and data the raw event object.
type eventCallback func(name string, data interface{})

// eventListener monitors mpv over a persistent IPC connection using
// observe_property.
type eventListener struct {
	socketPath string
	conn       net.Conn
	callback   eventCallback
	stopCh     chan struct{}
	mu         sync.Mutex
	listening  bool
}

func newEventListener(socketPath string, callback eventCallback) *eventListener {
	return &eventListener{
		socketPath: socketPath,
		callback:   callback,
		stopCh:     make(chan struct{}),
	}
}

// start subscribes to the property set the session cares about and
// begins the read loop.
func (el *eventListener) start() error {
	el.mu.Lock()
	defer el.mu.Unlock()

	if el.listening {
		return nil
	}

	properties := []struct {
		id   int
		name string
	}{
		{1, "time-pos"},
		{2, "duration"},
		{3, "seeking"},
		{4, "paused-for-cache"},
		{5, "eof-reached"},
		{6, "vid"},
	}

	for _, prop := range properties {
		_, err := doSendCommand(el.socketPath, []interface{}{"observe_property", prop.id, prop.name})
		if err != nil {
			return fmt.Errorf("observe %s: %w", prop.name, err)
		}
	}

	conn, err := net.Dial("unix", el.socketPath)
	if err != nil {
		return fmt.Errorf("event listener connect: %w", err)
	}
	el.conn = conn
	el.listening = true

	go el.readLoop()

	log.Debugf("mpv event listener started on %s", el.socketPath)
	return nil
}

func (el *eventListener) stop() {
	el.mu.Lock()
	defer el.mu.Unlock()

	if !el.listening {
		return
	}

	close(el.stopCh)
	if el.conn != nil {
		el.conn.Close()
	}
	el.listening = false
}

// readLoop reads newline-delimited JSON events from the persistent
// connection until stopped.
func (el *eventListener) readLoop() {
	defer func() {
		el.mu.Lock()
		el.listening = false
		el.mu.Unlock()
	}()

	buf := make([]byte, 4096)
	var remainder []byte

	for {
		select {
		case <-el.stopCh:
			return
		default:
		}

		if err := el.conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
			return
		}

		n, err := el.conn.Read(buf)
		if err != nil {
			if strings.Contains(err.Error(), "timeout") || strings.Contains(err.Error(), "deadline") {
				continue
			}
			select {
			case <-el.stopCh:
			default:
				log.Warnf("mpv event listener read error: %v", err)
			}
			return
		}

		data := append(remainder, buf[:n]...)
		remainder = nil

		lines := strings.Split(string(data), "\n")
		for i, line := range lines {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}

			// Last incomplete line carries over to the next read
			if i == len(lines)-1 && !strings.HasSuffix(string(data), "\n") {
				remainder = []byte(line)
				continue
			}

			el.processEvent(line)
		}
	}
}

// processEvent parses and dispatches a single mpv event JSON line.
func (el *eventListener) processEvent(line string) {
	var event map[string]interface{}
	if err := json.Unmarshal([]byte(line), &event); err != nil {
		return
	}

	eventType, ok := event["event"].(string)
	if !ok || el.callback == nil {
		return
	}

	switch eventType {
	case "property-change":
		name, _ := event["name"].(string)
		if name != "" {
			el.callback(name, event["data"])
		}
	default:
		el.callback(eventType, event)
	}
}

// handleEvent maps raw mpv events onto the engine and sink handler
// boundaries. It always runs on the listener goroutine, never from a
// controller-invoked method.
func (p *Player) handleEvent(name string, data interface{}) {
	p.mu.Lock()
	handler := p.handler
	sinkHandler := p.sinkHandler
	p.mu.Unlock()

	switch name {
	case "time-pos":
		if pos, ok := data.(float64); ok && sinkHandler != nil {
			sinkHandler.Tick(pos)
		}

	case "duration":
		if dur, ok := data.(float64); ok && dur > 0 && sinkHandler != nil {
			sinkHandler.MetadataLoaded(dur)
		}

	case "seeking", "paused-for-cache":
		stalled, ok := data.(bool)
		if !ok || sinkHandler == nil {
			return
		}
		if stalled {
			sinkHandler.Waiting()
		} else {
			sinkHandler.Resumed()
		}

	case "eof-reached":
		if reached, ok := data.(bool); ok && reached && sinkHandler != nil {
			sinkHandler.Ended()
		}

	case "vid":
		level := engine.AutoLevel
		if id, ok := data.(float64); ok && id >= 1 {
			level = int(id) - 1
		}
		p.mu.Lock()
		p.level = level
		p.mu.Unlock()
		if handler != nil {
			handler.LevelSwitched(level)
		}

	case "file-loaded":
		if handler != nil {
			handler.ManifestParsed(p.trackLevels())
		}

	case "end-file":
		event, ok := data.(map[string]interface{})
		if !ok {
			return
		}
		reason, _ := event["reason"].(string)
		if reason != "error" {
			return
		}
		detail, _ := event["file_error"].(string)
		err := fmt.Errorf("mpv playback failed: %s", detail)
		switch {
		case handler != nil:
			handler.EngineError(true, err)
		case sinkHandler != nil:
			sinkHandler.SinkError(err)
		}
	}
}
