// Spotify Web API client
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/desertthunder/songbridge/internal/models"
)

const (
	spotifyPlaylistPage = 50
	spotifyTrackPage    = 100
)

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

type externalIDs struct {
	ISRC string `json:"isrc"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	ExternalIDs externalIDs     `json:"external_ids"`
	URI         string          `json:"uri"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type simplePlaylistTrack struct {
	Total int `json:"total"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID     string              `json:"id"`
	Name   string              `json:"name"`
	Tracks simplePlaylistTrack `json:"tracks"`
}

// SpotifyPlaylistTrack represents a track within a playlist context. Track is null for removed or local items.
type SpotifyPlaylistTrack struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

type spotifyPaging[T any] struct {
	Items []T     `json:"items"`
	Total int     `json:"total"`
	Next  *string `json:"next"`
}

func (p spotifyPaging[T]) next() string {
	if p.Next == nil {
		return ""
	}
	return *p.Next
}

// SpotifyClient calls the Spotify Web API with one access token.
type SpotifyClient struct {
	client
}

// NewSpotifyClient creates a [SpotifyClient] against the public API using [http.DefaultClient].
func NewSpotifyClient(token string) *SpotifyClient {
	return Factory{}.Spotify(token)
}

// CurrentUser retrieves the current authenticated user's profile.
func (s *SpotifyClient) CurrentUser(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CurrentUserID returns the Spotify user id of the token owner.
func (s *SpotifyClient) CurrentUserID(ctx context.Context) (string, error) {
	user, err := s.CurrentUser(ctx)
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

// MyPlaylists retrieves every playlist of the current user, following next links.
func (s *SpotifyClient) MyPlaylists(ctx context.Context) ([]models.PlaylistRef, error) {
	return FetchAll(ctx, func(ctx context.Context, cursor string) (Page[models.PlaylistRef], error) {
		endpoint := cursor
		if endpoint == "" {
			endpoint = fmt.Sprintf("/me/playlists?limit=%d", spotifyPlaylistPage)
		}

		var resp spotifyPaging[SpotifySimplePlaylist]
		if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
			return Page[models.PlaylistRef]{}, err
		}

		refs := make([]models.PlaylistRef, 0, len(resp.Items))
		for _, p := range resp.Items {
			refs = append(refs, models.PlaylistRef{ID: p.ID, Name: p.Name, ItemCount: p.Tracks.Total})
		}
		return Page[models.PlaylistRef]{Items: refs, Next: resp.next()}, nil
	})
}

// PlaylistTracks retrieves every track of a playlist. Items without a track are skipped.
func (s *SpotifyClient) PlaylistTracks(ctx context.Context, playlistID string) ([]models.SourceTrack, error) {
	return FetchAll(ctx, func(ctx context.Context, cursor string) (Page[models.SourceTrack], error) {
		endpoint := cursor
		if endpoint == "" {
			endpoint = fmt.Sprintf("/playlists/%s/tracks?limit=%d", url.PathEscape(playlistID), spotifyTrackPage)
		}

		var resp spotifyPaging[SpotifyPlaylistTrack]
		if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
			return Page[models.SourceTrack]{}, err
		}

		tracks := make([]models.SourceTrack, 0, len(resp.Items))
		for _, item := range resp.Items {
			if item.Track == nil {
				continue
			}
			artists := make([]string, 0, len(item.Track.Artists))
			for _, a := range item.Track.Artists {
				artists = append(artists, a.Name)
			}
			tracks = append(tracks, models.SourceTrack{
				Title:   item.Track.Name,
				Artists: artists,
				ISRC:    item.Track.ExternalIDs.ISRC,
			})
		}
		return Page[models.SourceTrack]{Items: tracks, Next: resp.next()}, nil
	})
}

// Search returns the URIs of up to limit tracks matching query.
func (s *SpotifyClient) Search(ctx context.Context, query string, limit int) ([]models.Candidate, error) {
	endpoint := fmt.Sprintf("/search?type=track&limit=%d&q=%s", limit, url.QueryEscape(query))

	var resp struct {
		Tracks spotifyPaging[SpotifyTrack] `json:"tracks"`
	}
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}

	out := make([]models.Candidate, 0, len(resp.Tracks.Items))
	for _, t := range resp.Tracks.Items {
		if t.URI != "" {
			out = append(out, models.Candidate(t.URI))
		}
	}
	return out, nil
}

// CreatePlaylist creates a private playlist owned by the current user and returns its id.
func (s *SpotifyClient) CreatePlaylist(ctx context.Context, name, description string) (string, error) {
	userID, err := s.CurrentUserID(ctx)
	if err != nil {
		return "", err
	}

	body := map[string]any{"name": name, "description": description, "public": false}

	var created struct {
		ID string `json:"id"`
	}
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(userID))
	if err := s.doRequest(ctx, http.MethodPost, endpoint, body, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

// AddTracks appends uris to a playlist in one call. The API accepts at most 100 per call.
func (s *SpotifyClient) AddTracks(ctx context.Context, playlistID string, uris []string) error {
	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	return s.doRequest(ctx, http.MethodPost, endpoint, map[string]any{"uris": uris}, nil)
}
