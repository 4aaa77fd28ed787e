package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
)

func newYouTubeTestServer(t *testing.T, mux *http.ServeMux) *YouTubeClient {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return Factory{HTTPClient: srv.Client(), YouTubeBaseURL: srv.URL, UserInfoURL: srv.URL + "/userinfo"}.YouTube("token")
}

func playlistItem(id, title string) map[string]any {
	return map[string]any{
		"snippet":        map[string]any{"title": title, "resourceId": map[string]string{"kind": "youtube#video", "videoId": id}},
		"contentDetails": map[string]string{"videoId": id},
	}
}

func TestYouTubeClient(t *testing.T) {
	ctx := context.Background()

	t.Run("MyPlaylists follows page tokens", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /playlists", func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("mine") != "true" || q.Get("part") != "snippet,contentDetails" || q.Get("maxResults") != "50" {
				t.Errorf("unexpected query %s", r.URL.RawQuery)
			}
			if q.Get("pageToken") == "" {
				writeJSON(t, w, map[string]any{
					"items":         []any{map[string]any{"id": "y1", "snippet": map[string]string{"title": "Music"}, "contentDetails": map[string]int{"itemCount": 4}}},
					"nextPageToken": "tok",
				})
				return
			}
			writeJSON(t, w, map[string]any{
				"items": []any{map[string]any{"id": "y2", "snippet": map[string]string{"title": "Talks"}}},
			})
		})
		client := newYouTubeTestServer(t, mux)

		playlists, err := client.MyPlaylists(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(playlists) != 2 || playlists[0].ItemCount != 4 || playlists[1].ID != "y2" {
			t.Errorf("unexpected playlists %+v", playlists)
		}
	})

	t.Run("PlaylistVideos caps the item count", func(t *testing.T) {
		mux := http.NewServeMux()
		var sizes []string
		mux.HandleFunc("GET /playlistItems", func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			sizes = append(sizes, q.Get("maxResults"))
			n, _ := strconv.Atoi(q.Get("maxResults"))
			items := make([]any, 0, n)
			for i := range n {
				items = append(items, playlistItem(fmt.Sprintf("%s-%d", q.Get("pageToken"), i), "Artist - Song"))
			}
			writeJSON(t, w, map[string]any{"items": items, "nextPageToken": q.Get("pageToken") + "n"})
		})
		client := newYouTubeTestServer(t, mux)

		videos, err := client.PlaylistVideos(ctx, "pl", 70)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(videos) != 70 {
			t.Errorf("expected 70 videos, got %d", len(videos))
		}
		if fmt.Sprint(sizes) != "[50 20]" {
			t.Errorf("expected page sizes [50 20], got %v", sizes)
		}
	})

	t.Run("PlaylistVideos skips incomplete items", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /playlistItems", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, map[string]any{"items": []any{
				playlistItem("v1", "Song"),
				playlistItem("", "Deleted video"),
				playlistItem("v3", ""),
			}})
		})
		client := newYouTubeTestServer(t, mux)

		videos, err := client.PlaylistVideos(ctx, "pl", 100)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(videos) != 1 || videos[0].ID != "v1" {
			t.Errorf("unexpected videos %+v", videos)
		}
	})

	t.Run("Search", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /search", func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("type") != "video" || q.Get("maxResults") != "1" || q.Get("q") != "One More Time Daft Punk" {
				t.Errorf("unexpected query %s", r.URL.RawQuery)
			}
			writeJSON(t, w, map[string]any{"items": []any{map[string]any{"id": map[string]string{"videoId": "vid"}}}})
		})
		client := newYouTubeTestServer(t, mux)

		got, err := client.Search(ctx, "One More Time Daft Punk", 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 || got[0] != "vid" {
			t.Errorf("unexpected candidates %v", got)
		}
	})

	t.Run("CreatePlaylist and AddVideo", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("POST /playlists", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("part") != "snippet,status" {
				t.Errorf("unexpected part %q", r.URL.Query().Get("part"))
			}
			var body struct {
				Snippet struct{ Title, Description string }
				Status  struct {
					PrivacyStatus string `json:"privacyStatus"`
				}
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if body.Snippet.Title != "Imported — Mix" || body.Status.PrivacyStatus != "unlisted" || body.Snippet.Description != "Imported from Spotify" {
				t.Errorf("unexpected body %+v", body)
			}
			writeJSON(t, w, map[string]string{"id": "yt-new"})
		})
		mux.HandleFunc("POST /playlistItems", func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				Snippet struct {
					PlaylistID string            `json:"playlistId"`
					ResourceID youtubeResourceID `json:"resourceId"`
				} `json:"snippet"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if body.Snippet.PlaylistID != "yt-new" || body.Snippet.ResourceID.VideoID != "vid" || body.Snippet.ResourceID.Kind != "youtube#video" {
				t.Errorf("unexpected body %+v", body)
			}
			writeJSON(t, w, map[string]string{"id": "item"})
		})
		client := newYouTubeTestServer(t, mux)

		id, err := client.CreatePlaylist(ctx, "Imported — Mix", "Imported from Spotify", "unlisted")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := client.AddVideo(ctx, id, "vid"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("SampleVideoIDs and VideoCategories", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /playlistItems", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("part") != "contentDetails" || r.URL.Query().Get("maxResults") != "5" {
				t.Errorf("unexpected query %s", r.URL.RawQuery)
			}
			writeJSON(t, w, map[string]any{"items": []any{playlistItem("a", "x"), playlistItem("b", "y")}})
		})
		mux.HandleFunc("GET /videos", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("id") != "a,b" {
				t.Errorf("unexpected ids %q", r.URL.Query().Get("id"))
			}
			writeJSON(t, w, map[string]any{"items": []any{
				map[string]any{"snippet": map[string]string{"categoryId": "10"}},
				map[string]any{"snippet": map[string]string{"categoryId": "22"}},
			}})
		})
		client := newYouTubeTestServer(t, mux)

		ids, err := client.SampleVideoIDs(ctx, "pl", 5)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		categories, err := client.VideoCategories(ctx, ids)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if fmt.Sprint(categories) != "[10 22]" {
			t.Errorf("unexpected categories %v", categories)
		}
	})

	t.Run("Subject", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /userinfo", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, map[string]string{"sub": "1234"})
		})
		client := newYouTubeTestServer(t, mux)

		sub, err := client.Subject(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sub != "1234" {
			t.Errorf("expected 1234, got %s", sub)
		}
	})
}
