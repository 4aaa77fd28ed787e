package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/songbridge/internal/models"
	"github.com/desertthunder/songbridge/internal/shared"
	"golang.org/x/oauth2"
)

func tokenServer(t *testing.T, check func(*http.Request), reply map[string]any, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse form: %v", err)
		}
		check(r)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(reply)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOAuthRefresher(t *testing.T) {
	ctx := context.Background()

	t.Run("spotify sends basic auth", func(t *testing.T) {
		srv := tokenServer(t, func(r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok || user != "spotify-id" || pass != "spotify-secret" {
				t.Errorf("expected basic auth credentials, got %q %q %v", user, pass, ok)
			}
			if r.PostForm.Get("grant_type") != "refresh_token" {
				t.Errorf("expected refresh_token grant, got %q", r.PostForm.Get("grant_type"))
			}
			if r.PostForm.Get("refresh_token") != "old-refresh" {
				t.Errorf("expected refresh token in body, got %q", r.PostForm.Get("refresh_token"))
			}
		}, map[string]any{"access_token": "fresh", "token_type": "Bearer", "expires_in": 3600}, http.StatusOK)

		endpoint := SpotifyEndpoint
		endpoint.TokenURL = srv.URL
		conf := &oauth2.Config{ClientID: "spotify-id", ClientSecret: "spotify-secret", Endpoint: endpoint}

		before := time.Now()
		b, err := NewOAuthRefresher(conf, srv.Client()).Refresh(ctx, "old-refresh")
		if err != nil {
			t.Fatalf("refresh failed: %v", err)
		}

		if b.AccessToken != "fresh" {
			t.Errorf("expected access token fresh, got %q", b.AccessToken)
		}
		if b.RefreshToken != "old-refresh" {
			t.Errorf("expected old refresh token to be kept, got %q", b.RefreshToken)
		}
		if b.ExpiresAt < before.Add(59*time.Minute).UnixMilli() {
			t.Errorf("expected expiry about an hour out, got %d", b.ExpiresAt)
		}
	})

	t.Run("google sends client credentials in params", func(t *testing.T) {
		srv := tokenServer(t, func(r *http.Request) {
			if _, _, ok := r.BasicAuth(); ok {
				t.Error("expected no basic auth header")
			}
			if r.PostForm.Get("client_id") != "google-id" || r.PostForm.Get("client_secret") != "google-secret" {
				t.Errorf("expected client credentials in body, got %v", r.PostForm)
			}
		}, map[string]any{"access_token": "g-fresh", "token_type": "Bearer", "expires_in": 60, "refresh_token": "rotated"}, http.StatusOK)

		endpoint := GoogleEndpoint
		endpoint.TokenURL = srv.URL
		conf := &oauth2.Config{ClientID: "google-id", ClientSecret: "google-secret", Endpoint: endpoint}

		b, err := NewOAuthRefresher(conf, srv.Client()).Refresh(ctx, "old")
		if err != nil {
			t.Fatalf("refresh failed: %v", err)
		}
		if b.AccessToken != "g-fresh" || b.RefreshToken != "rotated" {
			t.Errorf("unexpected bundle: %+v", b)
		}
	})

	t.Run("error response", func(t *testing.T) {
		srv := tokenServer(t, func(*http.Request) {}, map[string]any{"error": "invalid_grant"}, http.StatusBadRequest)

		endpoint := GoogleEndpoint
		endpoint.TokenURL = srv.URL
		conf := &oauth2.Config{ClientID: "id", ClientSecret: "secret", Endpoint: endpoint}

		_, err := NewOAuthRefresher(conf, srv.Client()).Refresh(ctx, "revoked")
		if !errors.Is(err, shared.ErrRefreshFailed) {
			t.Fatalf("expected ErrRefreshFailed, got %v", err)
		}
	})

	t.Run("empty refresh token", func(t *testing.T) {
		_, err := NewOAuthRefresher(&oauth2.Config{}, nil).Refresh(ctx, "")
		if !errors.Is(err, shared.ErrNoRefreshToken) {
			t.Fatalf("expected ErrNoRefreshToken, got %v", err)
		}
	})
}

func TestOAuthConfig(t *testing.T) {
	creds := shared.OAuthClientConfig{ClientID: "id", ClientSecret: "secret", RedirectURI: "http://localhost/cb"}

	t.Run("spotify", func(t *testing.T) {
		conf, err := OAuthConfig(models.Spotify, creds)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if conf.Endpoint.AuthStyle != oauth2.AuthStyleInHeader {
			t.Errorf("expected header auth style, got %v", conf.Endpoint.AuthStyle)
		}
	})

	t.Run("google consent url", func(t *testing.T) {
		conf, err := OAuthConfig(models.Google, creds)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		u := conf.AuthCodeURL("state", AuthCodeOptions(models.Google)...)
		for _, want := range []string{"access_type=offline", "prompt=consent", "state=state"} {
			if !strings.Contains(u, want) {
				t.Errorf("expected %q in %s", want, u)
			}
		}
	})

	t.Run("missing credentials", func(t *testing.T) {
		if _, err := OAuthConfig(models.Google, shared.OAuthClientConfig{}); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("unknown provider", func(t *testing.T) {
		if _, err := OAuthConfig("tidal", creds); !errors.Is(err, shared.ErrUnknownProvider) {
			t.Errorf("expected ErrUnknownProvider, got %v", err)
		}
	})
}
