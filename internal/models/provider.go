package models

import (
	"fmt"
	"strings"
)

// Provider names a linkable music platform.
type Provider string

const (
	Spotify Provider = "spotify" // source platform
	Google  Provider = "google"  // destination platform (YouTube)
)

// Providers returns the closed set of supported providers in a fixed order.
func Providers() []Provider {
	return []Provider{Spotify, Google}
}

// ParseProvider returns the [Provider] named by s, or an error when s is not a supported provider.
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case Spotify, Google:
		return p, nil
	default:
		return "", fmt.Errorf("unknown provider %q", s)
	}
}

// DisplayName returns the name shown to users when asking them to connect an account.
func (p Provider) DisplayName() string {
	switch p {
	case Spotify:
		return "Spotify"
	case Google:
		return "Google (YouTube)"
	default:
		return string(p)
	}
}

func (p Provider) String() string {
	return string(p)
}
