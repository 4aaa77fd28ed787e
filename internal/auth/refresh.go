package auth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/desertthunder/songbridge/internal/models"
	"github.com/desertthunder/songbridge/internal/shared"
	"golang.org/x/oauth2"
)

// OAuthRefresher implements [Refresher] with the OAuth2 refresh_token grant.
type OAuthRefresher struct {
	config *oauth2.Config
	client *http.Client
}

// NewOAuthRefresher creates a refresher for config. A nil client uses [http.DefaultClient].
func NewOAuthRefresher(config *oauth2.Config, client *http.Client) *OAuthRefresher {
	return &OAuthRefresher{config: config, client: client}
}

// Refresh exchanges refreshToken for a new access token.
//
// When the provider does not rotate the refresh token, the returned bundle carries the one passed in.
func (r *OAuthRefresher) Refresh(ctx context.Context, refreshToken string) (models.TokenBundle, error) {
	if refreshToken == "" {
		return models.TokenBundle{}, shared.ErrNoRefreshToken
	}

	if r.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, r.client)
	}

	tok, err := r.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return models.TokenBundle{}, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	b := BundleFromToken(tok)
	if b.RefreshToken == "" {
		b.RefreshToken = refreshToken
	}
	return b, nil
}
