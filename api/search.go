package api

import (
	"strings"

	levenshtein "github.com/ka-weihe/fast-levenshtein"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/exp/slices"
)

// Search filters the catalog by title, client-side. The API exposes no
// search endpoint; the landing selection is fetched and fuzzy-matched, with
// candidates ordered by edit distance from the query.
func (c *Client) Search(query string) ([]Anime, error) {
	catalog, err := c.Home()
	if err != nil {
		return nil, err
	}

	query = strings.TrimSpace(strings.ToLower(query))
	if query == "" {
		return catalog, nil
	}

	var matches []Anime
	for _, anime := range catalog {
		if fuzzy.MatchNormalizedFold(query, anime.Name) {
			matches = append(matches, anime)
		}
	}

	slices.SortStableFunc(matches, func(a, b Anime) int {
		da := levenshtein.Distance(query, strings.ToLower(a.Name))
		db := levenshtein.Distance(query, strings.ToLower(b.Name))
		return da - db
	})

	return matches, nil
}
