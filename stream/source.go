// Package stream classifies media URLs into transport kinds and carries the
// resolved source descriptor consumed by the playback session controller.
package stream

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/samber/mo"
)

// Kind is the closed set of supported media transport kinds.
type Kind int

const (
	// Unknown marks a source that could not be classified. Unknown sources are
	// non-playable; the session controller surfaces them as an unsupported
	// source error.
	Unknown Kind = iota
	// Segmented marks a manifest-driven adaptive stream (HLS/DASH style).
	Segmented
	// Progressive marks a single-file direct stream.
	Progressive
)

// String returns the lowercase identifier of the kind.
func (k Kind) String() string {
	switch k {
	case Segmented:
		return "segmented"
	case Progressive:
		return "progressive"
	default:
		return "unknown"
	}
}

// manifestExtensions are the playlist suffixes that identify a segmented stream.
var manifestExtensions = []string{".m3u8", ".mpd"}

// ClearKey is a clear-key DRM pair applied to a segmented source.
type ClearKey struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

// ParseClearKey parses the "keyId:keyValue" wire form used by the catalog.
func ParseClearKey(raw string) (ClearKey, error) {
	parts := strings.SplitN(raw, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return ClearKey{}, fmt.Errorf("malformed clear key %q: expected keyId:keyValue", raw)
	}
	return ClearKey{ID: parts[0], Key: parts[1]}, nil
}

// MediaSource is the immutable result of resolving a media URL.
type MediaSource struct {
	URL  string
	Kind Kind
	DRM  mo.Option[ClearKey]
}

// WithClearKey returns a copy of the source carrying the given DRM pair.
// Only segmented streams negotiate keys; other kinds are returned unchanged.
func (s MediaSource) WithClearKey(key ClearKey) MediaSource {
	if s.Kind != Segmented {
		return s
	}
	s.DRM = mo.Some(key)
	return s
}

// Resolve deterministically classifies a media URL into a transport kind.
// It performs no I/O: classification is by manifest suffix only. Empty or
// malformed URLs resolve to Unknown rather than an error.
func Resolve(rawURL string) MediaSource {
	rawURL = strings.TrimSpace(rawURL)
	src := MediaSource{URL: rawURL, Kind: Unknown, DRM: mo.None[ClearKey]()}

	if rawURL == "" {
		return src
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return src
	}

	ext := strings.ToLower(path.Ext(u.Path))
	lower := strings.ToLower(rawURL)
	for _, manifest := range manifestExtensions {
		// Proxied playlists hide the manifest name in the query string, so the
		// full URL is inspected when the path extension is inconclusive.
		if ext == manifest || containsManifestToken(lower, manifest) {
			src.Kind = Segmented
			return src
		}
	}

	src.Kind = Progressive
	return src
}

// containsManifestToken reports whether the lowercased URL embeds the
// manifest suffix as a complete token. A trailing letter or digit extends
// the extension into a different one (".mpdata" is not ".mpd"), so such
// occurrences do not count.
func containsManifestToken(lowerURL, manifest string) bool {
	for start := 0; ; {
		idx := strings.Index(lowerURL[start:], manifest)
		if idx < 0 {
			return false
		}
		end := start + idx + len(manifest)
		if end == len(lowerURL) || !isExtensionByte(lowerURL[end]) {
			return true
		}
		start = end
	}
}

func isExtensionByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}
