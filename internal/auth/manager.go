package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songbridge/internal/models"
	"github.com/desertthunder/songbridge/internal/shared"
)

// ExpirySkew is how long before its expiry a bundle is treated as expired. A bundle is refreshed only when
// it expires strictly before now+ExpirySkew.
const ExpirySkew = 60 * time.Second

// AccountStore is the persisted-account collaborator used by [Manager].
type AccountStore interface {
	FindUserID(ctx context.Context, provider models.Provider, externalID string) (string, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Account, error)
	UpdateTokens(ctx context.Context, userID string, provider models.Provider, bundle models.TokenBundle) error
}

// Refresher exchanges a refresh token for a new bundle.
//
// The returned bundle may carry an empty RefreshToken when the provider did not rotate it.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (models.TokenBundle, error)
}

// SignIn is the data delivered by a sign-in or re-link event. Both fields are optional.
type SignIn struct {
	UserID  string
	Account *models.ProviderAccount
}

// Step names a stage of [Manager.Resolve].
type Step string

const (
	StepIdentity Step = "identity"
	StepMerge    Step = "merge"
	StepHydrate  Step = "hydrate"
	StepRefresh  Step = "refresh"
	StepPersist  Step = "persist"
)

// OutcomeKind reports what a step did.
type OutcomeKind int

const (
	Applied OutcomeKind = iota
	Skipped
	Degraded
)

func (k OutcomeKind) String() string {
	switch k {
	case Applied:
		return "applied"
	case Skipped:
		return "skipped"
	case Degraded:
		return "degraded"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// Outcome is the result of one step, optionally scoped to a provider.
type Outcome struct {
	Step     Step
	Kind     OutcomeKind
	Provider models.Provider
	Err      error
}

// Manager runs the credential lifecycle for a session.
type Manager struct {
	store      AccountStore
	refreshers map[models.Provider]Refresher
	persist    bool
	logger     *log.Logger
	now        func() time.Time
}

// ManagerOption configures a [Manager].
type ManagerOption func(*Manager)

// WithRefresher registers r as the refresher for p.
func WithRefresher(p models.Provider, r Refresher) ManagerOption {
	return func(m *Manager) { m.refreshers[p] = r }
}

// WithPersistRefreshed controls whether refreshed bundles are written back to the store.
func WithPersistRefreshed(on bool) ManagerOption {
	return func(m *Manager) { m.persist = on }
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a [Manager]. A nil store disables identity lookup, hydration and persistence.
func NewManager(store AccountStore, logger *log.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	m := &Manager{
		store:      store,
		refreshers: make(map[models.Provider]Refresher),
		persist:    true,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Resolve returns the credential state for the current request. The input state is never mutated.
func (m *Manager) Resolve(ctx context.Context, state models.SessionState, signIn *SignIn) (models.SessionState, []Outcome) {
	next := state.Clone()
	outcomes := []Outcome{
		m.identify(ctx, &next, signIn),
		m.merge(&next, signIn),
		m.hydrate(ctx, &next),
	}

	refreshed, results := m.refresh(ctx, &next)
	outcomes = append(outcomes, results...)
	outcomes = append(outcomes, m.persistRefreshed(ctx, next, refreshed)...)

	return next, outcomes
}

func (m *Manager) identify(ctx context.Context, s *models.SessionState, signIn *SignIn) Outcome {
	out := Outcome{Step: StepIdentity, Kind: Skipped}
	switch {
	case signIn != nil && signIn.UserID != "":
		s.Subject = signIn.UserID
		out.Kind = Applied
	case signIn != nil && signIn.Account != nil && s.Subject == "" && m.store != nil:
		out.Provider = signIn.Account.Provider
		userID, err := m.store.FindUserID(ctx, signIn.Account.Provider, signIn.Account.ExternalID)
		if errors.Is(err, shared.ErrAccountNotFound) {
			return out
		}
		if err != nil {
			m.logger.Warn("account owner lookup failed", "provider", signIn.Account.Provider, "error", err)
			out.Kind, out.Err = Degraded, err
			return out
		}
		s.Subject = userID
		out.Kind = Applied
	}
	return out
}

func (m *Manager) merge(s *models.SessionState, signIn *SignIn) Outcome {
	if signIn == nil || signIn.Account == nil {
		return Outcome{Step: StepMerge, Kind: Skipped}
	}

	acct := signIn.Account
	p, err := models.ParseProvider(string(acct.Provider))
	if err != nil {
		return Outcome{Step: StepMerge, Kind: Degraded, Provider: acct.Provider, Err: fmt.Errorf("%w: %v", shared.ErrUnknownProvider, err)}
	}

	b := s.Providers[p]
	if acct.AccessToken != "" {
		b.AccessToken = acct.AccessToken
	}
	if acct.RefreshToken != "" {
		b.RefreshToken = acct.RefreshToken
	}
	if acct.ExpiresAt != 0 {
		b.ExpiresAt = acct.ExpiresAt
	}
	s.Providers[p] = b

	return Outcome{Step: StepMerge, Kind: Applied, Provider: p}
}

func (m *Manager) hydrate(ctx context.Context, s *models.SessionState) Outcome {
	out := Outcome{Step: StepHydrate, Kind: Skipped}
	if s.Subject == "" || m.store == nil {
		return out
	}

	accounts, err := m.store.ListByUser(ctx, s.Subject)
	if err != nil {
		m.logger.Warn("hydrate from store failed", "user", s.Subject, "error", err)
		out.Kind, out.Err = Degraded, err
		return out
	}

	for _, a := range accounts {
		p, err := models.ParseProvider(string(a.Provider()))
		if err != nil {
			m.logger.Debug("skipping account with unknown provider", "provider", a.Provider())
			continue
		}
		if s.Providers[p].HasAccess() {
			continue
		}
		s.Providers[p] = a.Bundle()
		out.Kind = Applied
	}
	return out
}

func (m *Manager) refresh(ctx context.Context, s *models.SessionState) ([]models.Provider, []Outcome) {
	var (
		refreshed []models.Provider
		outcomes  []Outcome
	)

	deadline := m.now().Add(ExpirySkew).UnixMilli()
	for _, p := range models.Providers() {
		b, ok := s.Providers[p]
		if !ok || b.RefreshToken == "" || b.ExpiresAt == 0 || deadline <= b.ExpiresAt {
			continue
		}

		r, ok := m.refreshers[p]
		if !ok {
			outcomes = append(outcomes, Outcome{Step: StepRefresh, Kind: Skipped, Provider: p})
			continue
		}

		nb, err := r.Refresh(ctx, b.RefreshToken)
		if err != nil {
			m.logger.Warn("token refresh failed, keeping stale credentials", "provider", p, "error", err)
			outcomes = append(outcomes, Outcome{Step: StepRefresh, Kind: Degraded, Provider: p, Err: err})
			continue
		}

		b.AccessToken = nb.AccessToken
		b.ExpiresAt = nb.ExpiresAt
		if nb.RefreshToken != "" {
			b.RefreshToken = nb.RefreshToken
		}
		s.Providers[p] = b
		refreshed = append(refreshed, p)
		outcomes = append(outcomes, Outcome{Step: StepRefresh, Kind: Applied, Provider: p})
	}

	if len(outcomes) == 0 {
		outcomes = append(outcomes, Outcome{Step: StepRefresh, Kind: Skipped})
	}
	return refreshed, outcomes
}

func (m *Manager) persistRefreshed(ctx context.Context, s models.SessionState, refreshed []models.Provider) []Outcome {
	if !m.persist || s.Subject == "" || m.store == nil || len(refreshed) == 0 {
		return []Outcome{{Step: StepPersist, Kind: Skipped}}
	}

	outcomes := make([]Outcome, 0, len(refreshed))
	for _, p := range refreshed {
		if err := m.store.UpdateTokens(ctx, s.Subject, p, s.Providers[p]); err != nil {
			m.logger.Warn("failed to persist refreshed tokens", "provider", p, "user", s.Subject, "error", err)
			outcomes = append(outcomes, Outcome{Step: StepPersist, Kind: Degraded, Provider: p, Err: err})
			continue
		}
		outcomes = append(outcomes, Outcome{Step: StepPersist, Kind: Applied, Provider: p})
	}
	return outcomes
}

// DegradedOutcomes returns the outcomes in outs that were degraded.
func DegradedOutcomes(outs []Outcome) []Outcome {
	var d []Outcome
	for _, o := range outs {
		if o.Kind == Degraded {
			d = append(d, o)
		}
	}
	return d
}
