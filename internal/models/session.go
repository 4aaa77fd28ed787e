package models

import "time"

// TokenBundle holds one provider's credentials. ExpiresAt is a unix timestamp in milliseconds; zero means unknown.
type TokenBundle struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresAt    int64  `json:"expiresAt,omitempty"`
}

// HasAccess reports whether the bundle carries an access token.
func (b TokenBundle) HasAccess() bool {
	return b.AccessToken != ""
}

// Expiry returns ExpiresAt as a [time.Time], or the zero time when unknown.
func (b TokenBundle) Expiry() time.Time {
	if b.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.UnixMilli(b.ExpiresAt)
}

// SessionState is the credential state carried by a session: a stable subject and one bundle per linked provider.
type SessionState struct {
	Subject   string
	Providers map[Provider]TokenBundle
}

// NewSessionState returns an empty state with an initialised provider map.
func NewSessionState() SessionState {
	return SessionState{Providers: make(map[Provider]TokenBundle)}
}

// Clone returns a copy that shares no map with s.
func (s SessionState) Clone() SessionState {
	out := SessionState{Subject: s.Subject, Providers: make(map[Provider]TokenBundle, len(s.Providers))}
	for p, b := range s.Providers {
		out.Providers[p] = b
	}
	return out
}

// Bundle returns the bundle for p and whether it exists.
func (s SessionState) Bundle(p Provider) (TokenBundle, bool) {
	b, ok := s.Providers[p]
	return b, ok
}

// AccessToken returns the access token for p, empty when the provider is not linked.
func (s SessionState) AccessToken(p Provider) string {
	return s.Providers[p].AccessToken
}

// Equal reports whether s and o carry the same subject and bundles.
func (s SessionState) Equal(o SessionState) bool {
	if s.Subject != o.Subject || len(s.Providers) != len(o.Providers) {
		return false
	}
	for p, b := range s.Providers {
		if ob, ok := o.Providers[p]; !ok || ob != b {
			return false
		}
	}
	return true
}

// ProviderAccount is the provider data delivered by a sign-in or re-link event.
//
// Empty RefreshToken and zero ExpiresAt (unix ms) mean "not supplied".
type ProviderAccount struct {
	Provider     Provider
	ExternalID   string
	AccessToken  string
	RefreshToken string
	ExpiresAt    int64
}
