// YouTube Data API v3 client
//
// Response types based on https://developers.google.com/youtube/v3/docs
package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/songbridge/internal/models"
	"github.com/desertthunder/songbridge/internal/shared"
)

// MusicCategoryID is the YouTube video category for music.
const MusicCategoryID = "10"

// Video is a playlist item reduced to what the reverse transfer needs.
type Video struct {
	ID    string `json:"videoId"`
	Title string `json:"title"`
}

type youtubeResourceID struct {
	Kind    string `json:"kind"`
	VideoID string `json:"videoId"`
}

// YouTubePlaylist represents a playlist resource.
type YouTubePlaylist struct {
	ID      string `json:"id"`
	Snippet struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	} `json:"snippet"`
	ContentDetails struct {
		ItemCount int `json:"itemCount"`
	} `json:"contentDetails"`
}

// YouTubePlaylistItem represents a playlistItems resource with snippet and contentDetails parts.
type YouTubePlaylistItem struct {
	Snippet struct {
		Title      string            `json:"title"`
		ResourceID youtubeResourceID `json:"resourceId"`
	} `json:"snippet"`
	ContentDetails struct {
		VideoID string `json:"videoId"`
	} `json:"contentDetails"`
}

type youtubeList[T any] struct {
	Items         []T    `json:"items"`
	NextPageToken string `json:"nextPageToken"`
}

// YouTubeClient calls the YouTube Data API with one Google access token.
type YouTubeClient struct {
	client
	userInfoURL string
}

// NewYouTubeClient creates a [YouTubeClient] against the public API using [http.DefaultClient].
func NewYouTubeClient(token string) *YouTubeClient {
	return Factory{}.YouTube(token)
}

// Subject returns the OpenID subject of the token owner, used as the external account id.
func (y *YouTubeClient) Subject(ctx context.Context) (string, error) {
	var info struct {
		Sub string `json:"sub"`
	}
	if err := y.doRequest(ctx, http.MethodGet, y.userInfoURL, nil, &info); err != nil {
		return "", err
	}
	if info.Sub == "" {
		return "", fmt.Errorf("%w: google userinfo has no subject", shared.ErrAPIRequest)
	}
	return info.Sub, nil
}

// MyPlaylists retrieves every playlist of the current user.
func (y *YouTubeClient) MyPlaylists(ctx context.Context) ([]models.PlaylistRef, error) {
	return FetchAll(ctx, func(ctx context.Context, cursor string) (Page[models.PlaylistRef], error) {
		q := url.Values{}
		q.Set("part", "snippet,contentDetails")
		q.Set("mine", "true")
		q.Set("maxResults", fmt.Sprint(defaultPageSize))
		if cursor != "" {
			q.Set("pageToken", cursor)
		}

		var resp youtubeList[YouTubePlaylist]
		if err := y.doRequest(ctx, http.MethodGet, "/playlists?"+q.Encode(), nil, &resp); err != nil {
			return Page[models.PlaylistRef]{}, err
		}

		refs := make([]models.PlaylistRef, 0, len(resp.Items))
		for _, p := range resp.Items {
			refs = append(refs, models.PlaylistRef{ID: p.ID, Name: p.Snippet.Title, ItemCount: p.ContentDetails.ItemCount})
		}
		return Page[models.PlaylistRef]{Items: refs, Next: resp.NextPageToken}, nil
	})
}

// PlaylistVideos retrieves up to max videos of a playlist. Items without a video id or title are skipped.
func (y *YouTubeClient) PlaylistVideos(ctx context.Context, playlistID string, max int) ([]Video, error) {
	return FetchUpTo(ctx, max, defaultPageSize, func(ctx context.Context, cursor string, size int) (Page[Video], error) {
		q := url.Values{}
		q.Set("part", "snippet")
		q.Set("playlistId", playlistID)
		q.Set("maxResults", fmt.Sprint(size))
		if cursor != "" {
			q.Set("pageToken", cursor)
		}

		var resp youtubeList[YouTubePlaylistItem]
		if err := y.doRequest(ctx, http.MethodGet, "/playlistItems?"+q.Encode(), nil, &resp); err != nil {
			return Page[Video]{}, err
		}

		videos := make([]Video, 0, len(resp.Items))
		for _, it := range resp.Items {
			if it.Snippet.ResourceID.VideoID == "" || it.Snippet.Title == "" {
				continue
			}
			videos = append(videos, Video{ID: it.Snippet.ResourceID.VideoID, Title: it.Snippet.Title})
		}
		return Page[Video]{Items: videos, Next: resp.NextPageToken}, nil
	})
}

// Search returns the ids of up to limit videos matching query.
func (y *YouTubeClient) Search(ctx context.Context, query string, limit int) ([]models.Candidate, error) {
	q := url.Values{}
	q.Set("part", "snippet")
	q.Set("type", "video")
	q.Set("maxResults", fmt.Sprint(limit))
	q.Set("q", query)

	var resp youtubeList[struct {
		ID youtubeResourceID `json:"id"`
	}]
	if err := y.doRequest(ctx, http.MethodGet, "/search?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	out := make([]models.Candidate, 0, len(resp.Items))
	for _, it := range resp.Items {
		if it.ID.VideoID != "" {
			out = append(out, models.Candidate(it.ID.VideoID))
		}
	}
	return out, nil
}

// CreatePlaylist creates a playlist with the given privacy status and returns its id.
func (y *YouTubeClient) CreatePlaylist(ctx context.Context, title, description, privacy string) (string, error) {
	body := map[string]any{
		"snippet": map[string]string{"title": title, "description": description},
		"status":  map[string]string{"privacyStatus": privacy},
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := y.doRequest(ctx, http.MethodPost, "/playlists?part="+url.QueryEscape("snippet,status"), body, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

// AddVideo appends one video to a playlist.
func (y *YouTubeClient) AddVideo(ctx context.Context, playlistID, videoID string) error {
	body := map[string]any{
		"snippet": map[string]any{
			"playlistId": playlistID,
			"resourceId": youtubeResourceID{Kind: "youtube#video", VideoID: videoID},
		},
	}
	return y.doRequest(ctx, http.MethodPost, "/playlistItems?part=snippet", body, nil)
}

// SampleVideoIDs returns the ids of up to n videos from the start of a playlist.
func (y *YouTubeClient) SampleVideoIDs(ctx context.Context, playlistID string, n int) ([]string, error) {
	q := url.Values{}
	q.Set("part", "contentDetails")
	q.Set("playlistId", playlistID)
	q.Set("maxResults", fmt.Sprint(n))

	var resp youtubeList[YouTubePlaylistItem]
	if err := y.doRequest(ctx, http.MethodGet, "/playlistItems?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(resp.Items))
	for _, it := range resp.Items {
		if it.ContentDetails.VideoID != "" {
			ids = append(ids, it.ContentDetails.VideoID)
		}
	}
	return ids, nil
}

// VideoCategories returns the category id of each video found for ids, in reply order.
func (y *YouTubeClient) VideoCategories(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	q := url.Values{}
	q.Set("part", "snippet")
	q.Set("id", strings.Join(ids, ","))

	var resp youtubeList[struct {
		Snippet struct {
			CategoryID string `json:"categoryId"`
		} `json:"snippet"`
	}]
	if err := y.doRequest(ctx, http.MethodGet, "/videos?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	categories := make([]string, 0, len(resp.Items))
	for _, v := range resp.Items {
		categories = append(categories, v.Snippet.CategoryID)
	}
	return categories, nil
}
