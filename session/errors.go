package session

import "fmt"

// ErrorKind partitions playback failures by origin and severity.
type ErrorKind int

const (
	// UnsupportedSource marks a URL whose transport kind cannot be played.
	UnsupportedSource ErrorKind = iota
	// Transport marks a network or manifest fetch failure.
	Transport
	// EngineFatal marks an unrecoverable adaptive-engine failure.
	EngineFatal
	// EngineAdvisory marks a non-fatal engine error; the session continues.
	EngineAdvisory
)

// String returns the lowercase identifier of the kind.
func (k ErrorKind) String() string {
	switch k {
	case UnsupportedSource:
		return "unsupported source"
	case Transport:
		return "transport"
	case EngineFatal:
		return "engine fatal"
	case EngineAdvisory:
		return "engine advisory"
	default:
		return "unknown"
	}
}

// PlaybackError is the structured failure result surfaced at the controller
// boundary. Fatal errors terminate the session; they are never raised as
// panics across the caller boundary.
type PlaybackError struct {
	Kind    ErrorKind
	Message string
}

func (e *PlaybackError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newError(kind ErrorKind, format string, args ...interface{}) *PlaybackError {
	return &PlaybackError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
