// Package api implements the client for the remote anime catalog service.
package api

// Anime is a catalog entry as returned by the home, slideshow and detail
// endpoints.
type Anime struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Poster   string `json:"img"`
	Overview string `json:"overview,omitempty"`
	Dubbed   bool   `json:"dubbed,omitempty"`
}

// Episode is a playable catalog entry.
type Episode struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	StreamURL string `json:"streamUrl"`
	PosterURL string `json:"posterUrl"`
	AnimeID   string `json:"animeId"`
	AnimeName string `json:"animeName"`
}

// QualitySource is one stream variant offered for an episode.
type QualitySource struct {
	URL     string `json:"url"`
	Quality string `json:"quality"`
}

// Quality is the set of stream variants offered for an episode.
type Quality struct {
	Sources []QualitySource `json:"sources"`
}

// BestSource returns the first offered stream variant. The catalog orders
// sources best-first; an empty set reports false.
func (q *Quality) BestSource() (QualitySource, bool) {
	if q == nil || len(q.Sources) == 0 {
		return QualitySource{}, false
	}
	return q.Sources[0], true
}
