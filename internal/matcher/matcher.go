// Package matcher resolves a source track to a best-guess candidate on the other platform.
//
// Matching is heuristic: a query is built from the track metadata (or parsed out of a video title)
// and the top search result is taken as the match.
package matcher

import (
	"context"
	"strings"

	"github.com/desertthunder/songbridge/internal/models"
)

// delimiters are tried in priority order when splitting "Artist - Title" video titles.
var delimiters = []string{" - ", " — ", "|"}

// ArtistTitle is a video title split into its artist and title parts. Artist is empty when no delimiter was found.
type ArtistTitle struct {
	Artist string
	Title  string
}

// Searcher runs a search on a destination platform and returns up to limit candidates, best first.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]models.Candidate, error)
}

// ParseArtistTitle splits raw on the first occurrence of the highest-priority delimiter it contains.
func ParseArtistTitle(raw string) ArtistTitle {
	for _, d := range delimiters {
		if artist, title, ok := strings.Cut(raw, d); ok {
			return ArtistTitle{Artist: strings.TrimSpace(artist), Title: strings.TrimSpace(title)}
		}
	}
	return ArtistTitle{Title: strings.TrimSpace(raw)}
}

// BuildQuery builds a search query for t: title, first artist and ISRC when an ISRC is known,
// otherwise title and every artist. Empty parts are omitted.
func BuildQuery(t models.SourceTrack) string {
	var parts []string
	if t.ISRC != "" {
		parts = []string{t.Title, t.FirstArtist(), t.ISRC}
	} else {
		parts = append([]string{t.Title}, t.Artists...)
	}
	return joinNonEmpty(parts, " ")
}

// SpotifyQuery builds a Spotify field-filter query. Empty clauses are omitted.
func SpotifyQuery(at ArtistTitle) string {
	var parts []string
	if at.Title != "" {
		parts = append(parts, "track:"+at.Title)
	}
	if at.Artist != "" {
		parts = append(parts, "artist:"+at.Artist)
	}
	return strings.Join(parts, " ")
}

// Resolve returns the top search result for query, or [models.NoCandidate] when there is none.
//
// An empty query resolves to no candidate without calling s.
func Resolve(ctx context.Context, s Searcher, query string) (models.Candidate, error) {
	if strings.TrimSpace(query) == "" {
		return models.NoCandidate, nil
	}

	results, err := s.Search(ctx, query, 1)
	if err != nil {
		return models.NoCandidate, err
	}
	if len(results) == 0 {
		return models.NoCandidate, nil
	}
	return results[0], nil
}

func joinNonEmpty(parts []string, sep string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
