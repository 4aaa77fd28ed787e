// package services defines the provider clients used by the transfer pipeline
//
// Spotify Web API, YouTube Data API v3
package services

import (
	"net/http"

	"github.com/desertthunder/songbridge/internal/models"
)

const (
	SpotifyBaseURL  = "https://api.spotify.com/v1"
	YouTubeBaseURL  = "https://www.googleapis.com/youtube/v3"
	GoogleUserInfo  = "https://openidconnect.googleapis.com/v1/userinfo"
	defaultPageSize = 50
)

// Factory builds provider clients for an access token.
//
// Empty base URLs fall back to the public APIs and a nil HTTPClient to [http.DefaultClient].
type Factory struct {
	HTTPClient     *http.Client
	SpotifyBaseURL string
	YouTubeBaseURL string
	UserInfoURL    string
}

func (f Factory) httpClient() *http.Client {
	if f.HTTPClient == nil {
		return http.DefaultClient
	}
	return f.HTTPClient
}

// Spotify returns a [SpotifyClient] for token.
func (f Factory) Spotify(token string) *SpotifyClient {
	base := f.SpotifyBaseURL
	if base == "" {
		base = SpotifyBaseURL
	}
	return &SpotifyClient{client: client{provider: models.Spotify, baseURL: base, token: token, httpClient: f.httpClient()}}
}

// YouTube returns a [YouTubeClient] for token.
func (f Factory) YouTube(token string) *YouTubeClient {
	base := f.YouTubeBaseURL
	if base == "" {
		base = YouTubeBaseURL
	}
	userInfo := f.UserInfoURL
	if userInfo == "" {
		userInfo = GoogleUserInfo
	}
	return &YouTubeClient{
		client:      client{provider: models.Google, baseURL: base, token: token, httpClient: f.httpClient()},
		userInfoURL: userInfo,
	}
}
