package models

import (
	"fmt"
	"time"
)

// User owns one or more linked provider accounts.
type User struct {
	id        string
	sequence  int
	name      string
	createdAt time.Time
	updatedAt time.Time
}

// NewUser creates a new [User] with the given name. The ID is assigned by the repository.
func NewUser(name string) *User {
	now := time.Now()
	return &User{name: name, createdAt: now, updatedAt: now}
}

func (u *User) ID() string           { return u.id }
func (u *User) Sequence() int        { return u.sequence }
func (u *User) Name() string         { return u.name }
func (u *User) CreatedAt() time.Time { return u.createdAt }
func (u *User) UpdatedAt() time.Time { return u.updatedAt }

func (u *User) SetID(id string)          { u.id = id }
func (u *User) SetSequence(seq int)      { u.sequence = seq }
func (u *User) SetCreatedAt(t time.Time) { u.createdAt = t }
func (u *User) SetUpdatedAt(t time.Time) { u.updatedAt = t }

// Validate checks that the user has an ID.
func (u *User) Validate() error {
	if u.id == "" {
		return fmt.Errorf("user id is required")
	}
	return nil
}

// Account is one linked provider account with its stored credentials.
//
// The stored expiry is unix seconds; [Account.Bundle] converts it to the milliseconds carried in a session.
type Account struct {
	id           string
	userID       string
	provider     Provider
	externalID   string
	accessToken  string
	refreshToken string
	expiresAt    int64
	createdAt    time.Time
	updatedAt    time.Time
}

// NewAccount creates an [Account] for userID from the data delivered by a sign-in.
func NewAccount(userID string, pa ProviderAccount) *Account {
	now := time.Now()
	return &Account{
		userID:       userID,
		provider:     pa.Provider,
		externalID:   pa.ExternalID,
		accessToken:  pa.AccessToken,
		refreshToken: pa.RefreshToken,
		expiresAt:    pa.ExpiresAt / 1000,
		createdAt:    now,
		updatedAt:    now,
	}
}

func (a *Account) ID() string           { return a.id }
func (a *Account) UserID() string       { return a.userID }
func (a *Account) Provider() Provider   { return a.provider }
func (a *Account) ExternalID() string   { return a.externalID }
func (a *Account) AccessToken() string  { return a.accessToken }
func (a *Account) RefreshToken() string { return a.refreshToken }
func (a *Account) ExpiresAt() int64     { return a.expiresAt }
func (a *Account) CreatedAt() time.Time { return a.createdAt }
func (a *Account) UpdatedAt() time.Time { return a.updatedAt }

func (a *Account) SetID(id string)          { a.id = id }
func (a *Account) SetUserID(id string)      { a.userID = id }
func (a *Account) SetCreatedAt(t time.Time) { a.createdAt = t }
func (a *Account) SetUpdatedAt(t time.Time) { a.updatedAt = t }

// SetTokens replaces the stored credentials from b, keeping the current refresh token when b has none.
func (a *Account) SetTokens(b TokenBundle) {
	a.accessToken = b.AccessToken
	if b.RefreshToken != "" {
		a.refreshToken = b.RefreshToken
	}
	a.expiresAt = b.ExpiresAt / 1000
}

// Restore sets the stored fields read back from the database.
func (a *Account) Restore(provider Provider, externalID, accessToken, refreshToken string, expiresAt int64) {
	a.provider = provider
	a.externalID = externalID
	a.accessToken = accessToken
	a.refreshToken = refreshToken
	a.expiresAt = expiresAt
}

// Bundle returns the account credentials as a [TokenBundle] with the expiry in milliseconds.
func (a *Account) Bundle() TokenBundle {
	return TokenBundle{
		AccessToken:  a.accessToken,
		RefreshToken: a.refreshToken,
		ExpiresAt:    a.expiresAt * 1000,
	}
}

// Validate checks the account has an owner, a supported provider and an external id.
func (a *Account) Validate() error {
	if a.id == "" {
		return fmt.Errorf("account id is required")
	}
	if a.userID == "" {
		return fmt.Errorf("account user id is required")
	}
	if _, err := ParseProvider(string(a.provider)); err != nil {
		return err
	}
	if a.externalID == "" {
		return fmt.Errorf("account external id is required")
	}
	return nil
}
