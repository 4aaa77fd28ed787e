package auth

import (
	"fmt"

	"github.com/desertthunder/songbridge/internal/models"
	"github.com/desertthunder/songbridge/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	googleAuthURL   = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL  = "https://oauth2.googleapis.com/token"
)

// SpotifyEndpoint sends client credentials as HTTP Basic auth.
var SpotifyEndpoint = oauth2.Endpoint{
	AuthURL:   spotifyAuthURL,
	TokenURL:  spotifyTokenURL,
	AuthStyle: oauth2.AuthStyleInHeader,
}

// GoogleEndpoint sends client credentials in the form body.
var GoogleEndpoint = oauth2.Endpoint{
	AuthURL:   googleAuthURL,
	TokenURL:  googleTokenURL,
	AuthStyle: oauth2.AuthStyleInParams,
}

var (
	spotifyScopes = []string{
		"playlist-read-private",
		"playlist-read-collaborative",
		"playlist-modify-private",
		"playlist-modify-public",
		"user-read-email",
	}
	googleScopes = []string{
		"openid",
		"profile",
		"email",
		"https://www.googleapis.com/auth/youtube",
		"https://www.googleapis.com/auth/youtube.readonly",
	}
)

// OAuthConfig builds the [oauth2.Config] for p from its client registration.
func OAuthConfig(p models.Provider, c shared.OAuthClientConfig) (*oauth2.Config, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("%w: %s client id and secret", shared.ErrMissingCredentials, p)
	}

	conf := &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURI,
	}

	switch p {
	case models.Spotify:
		conf.Endpoint, conf.Scopes = SpotifyEndpoint, spotifyScopes
	case models.Google:
		conf.Endpoint, conf.Scopes = GoogleEndpoint, googleScopes
	default:
		return nil, fmt.Errorf("%w: %s", shared.ErrUnknownProvider, p)
	}
	return conf, nil
}

// AuthCodeOptions returns the extra consent URL parameters for p.
//
// Google only issues a refresh token with offline access and an explicit consent prompt.
func AuthCodeOptions(p models.Provider) []oauth2.AuthCodeOption {
	if p == models.Google {
		return []oauth2.AuthCodeOption{oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent")}
	}
	return nil
}

// BundleFromToken converts an [oauth2.Token] to a [models.TokenBundle]. A zero expiry stays zero.
func BundleFromToken(tok *oauth2.Token) models.TokenBundle {
	b := models.TokenBundle{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken}
	if !tok.Expiry.IsZero() {
		b.ExpiresAt = tok.Expiry.UnixMilli()
	}
	return b
}
