package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aniplay-cli/aniplay/auth"
	"github.com/aniplay-cli/aniplay/constant"
	"github.com/aniplay-cli/aniplay/key"
	"github.com/aniplay-cli/aniplay/network"
	"github.com/spf13/viper"
)

// ErrEpisodeNotFound is returned when an episode lookup fails for any
// reason. The client performs no retry; callers re-invoke explicitly.
var ErrEpisodeNotFound = errors.New("episode not found")

// Client talks to the remote catalog API.
type Client struct {
	base string
	http *http.Client
}

// NewClient builds a client from global configuration. When the TLS
// fingerprint option is enabled, requests go through the browser-mimicking
// transport to stay reachable behind anti-bot CDNs.
func NewClient() *Client {
	base := strings.TrimRight(viper.GetString(key.APIBaseURL), "/")

	httpClient := network.Client
	if viper.GetBool(key.APITLSFingerprint) {
		timeout := time.Duration(viper.GetInt(key.APITimeoutSeconds)) * time.Second
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = network.FingerprintedClient(timeout)
	}

	return &Client{base: base, http: httpClient}
}

// get fetches a JSON document from the API into target.
func (c *Client) get(path string, target any) error {
	req, err := http.NewRequest(http.MethodGet, c.base+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("User-Agent", constant.UserAgent)
	req.Header.Set("Accept", "application/json")
	if token := auth.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: unexpected status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// Home returns the catalog's landing selection.
func (c *Client) Home() ([]Anime, error) {
	var home []Anime
	if err := c.get("/home", &home); err != nil {
		return nil, err
	}
	return home, nil
}

// Anime returns a single catalog entry by ID.
func (c *Client) Anime(id string) (*Anime, error) {
	var anime Anime
	if err := c.get("/id/"+id, &anime); err != nil {
		return nil, err
	}
	return &anime, nil
}

// Episode returns a playable episode by ID. Any failure surfaces as
// ErrEpisodeNotFound with the cause attached.
func (c *Client) Episode(id string) (*Episode, error) {
	var episode Episode
	if err := c.get("/episode/"+id, &episode); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEpisodeNotFound, err)
	}
	return &episode, nil
}

// Quality returns the stream variants offered for an episode.
func (c *Client) Quality(id string) (*Quality, error) {
	var quality Quality
	if err := c.get("/quality/"+id, &quality); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEpisodeNotFound, err)
	}
	return &quality, nil
}

// Slideshow returns the catalog's featured rotation.
func (c *Client) Slideshow() ([]Anime, error) {
	var slides []Anime
	if err := c.get("/slideshow", &slides); err != nil {
		return nil, err
	}
	return slides, nil
}
