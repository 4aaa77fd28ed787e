// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/desertthunder/songbridge/internal/models"
	"github.com/desertthunder/songbridge/internal/shared"
)

// MemoryAccountStore is an in-memory account store keyed by (provider, external id).
//
// The *Err fields, when set, are returned by the matching method.
type MemoryAccountStore struct {
	mu       sync.Mutex
	accounts []*models.Account

	FindErr   error
	ListErr   error
	UpdateErr error

	Updates []TokenUpdate
}

// TokenUpdate records one call to [MemoryAccountStore.UpdateTokens].
type TokenUpdate struct {
	UserID   string
	Provider models.Provider
	Bundle   models.TokenBundle
}

// NewMemoryAccountStore creates a store seeded with accounts.
func NewMemoryAccountStore(accounts ...*models.Account) *MemoryAccountStore {
	return &MemoryAccountStore{accounts: accounts}
}

// Add stores an account for userID built from pa.
func (m *MemoryAccountStore) Add(userID string, pa models.ProviderAccount) *models.Account {
	m.mu.Lock()
	defer m.mu.Unlock()

	a := models.NewAccount(userID, pa)
	a.SetID(fmt.Sprintf("account-%d", len(m.accounts)+1))
	m.accounts = append(m.accounts, a)
	return a
}

func (m *MemoryAccountStore) FindUserID(_ context.Context, provider models.Provider, externalID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FindErr != nil {
		return "", m.FindErr
	}
	for _, a := range m.accounts {
		if a.Provider() == provider && a.ExternalID() == externalID {
			return a.UserID(), nil
		}
	}
	return "", shared.ErrAccountNotFound
}

func (m *MemoryAccountStore) ListByUser(_ context.Context, userID string) ([]*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListErr != nil {
		return nil, m.ListErr
	}
	var out []*models.Account
	for _, a := range m.accounts {
		if a.UserID() == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *MemoryAccountStore) UpdateTokens(_ context.Context, userID string, provider models.Provider, bundle models.TokenBundle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	for _, a := range m.accounts {
		if a.UserID() == userID && a.Provider() == provider {
			a.SetTokens(bundle)
			m.Updates = append(m.Updates, TokenUpdate{UserID: userID, Provider: provider, Bundle: bundle})
			return nil
		}
	}
	return shared.ErrAccountNotFound
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

// CountingTransport counts requests that pass through it. A nil Base uses [http.DefaultTransport].
type CountingTransport struct {
	mu    sync.Mutex
	Base  http.RoundTripper
	count int
}

func (c *CountingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	c.mu.Lock()
	c.count++
	c.mu.Unlock()

	base := c.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(r)
}

// Count returns how many requests were sent.
func (c *CountingTransport) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}
