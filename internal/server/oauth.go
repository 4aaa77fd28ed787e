package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songbridge/internal/auth"
	"github.com/desertthunder/songbridge/internal/models"
	"github.com/desertthunder/songbridge/internal/services"
	"github.com/desertthunder/songbridge/internal/shared"
	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/oauth2"
)

const (
	// StateTTL is how long a link attempt may take between redirect and callback.
	StateTTL = 10 * time.Minute
	// DefaultStateCapacity bounds the pending link attempts; the oldest is dropped first.
	DefaultStateCapacity = 10_000
)

// UserStore creates the owning user of a first-time link.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
}

// AccountUpserter stores linked accounts.
type AccountUpserter interface {
	FindUserID(ctx context.Context, provider models.Provider, externalID string) (string, error)
	Upsert(ctx context.Context, account *models.Account) error
}

// LinkHandler implements the OAuth2 authorization code flow that links a provider account to the session.
//
// GET /auth/{provider} redirects to the consent page; GET /auth/{provider}/callback completes the link.
type LinkHandler struct {
	configs    map[models.Provider]*oauth2.Config
	states     *ttlcache.Cache[string, models.Provider]
	users      UserStore
	accounts   AccountUpserter
	sessions   *Sessions
	factory    services.Factory
	httpClient *http.Client
	logger     *log.Logger

	stateCookie string
	stateTTL    time.Duration
	capacity    uint64
	unsubscribe func()
	stopOnce    sync.Once
}

// LinkOption configures a [LinkHandler].
type LinkOption func(*LinkHandler)

// WithStateCapacity bounds the number of pending link attempts.
func WithStateCapacity(n uint64) LinkOption {
	return func(h *LinkHandler) { h.capacity = n }
}

// WithStateTTL overrides [StateTTL].
func WithStateTTL(d time.Duration) LinkOption {
	return func(h *LinkHandler) { h.stateTTL = d }
}

// NewLinkHandler creates a LinkHandler for the providers in configs and starts
// the expiry loop of its state cache. Call [LinkHandler.Stop] to end it.
func NewLinkHandler(configs map[models.Provider]*oauth2.Config, users UserStore, accounts AccountUpserter, sessions *Sessions, factory services.Factory, logger *log.Logger, opts ...LinkOption) *LinkHandler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	h := &LinkHandler{
		configs:     configs,
		users:       users,
		accounts:    accounts,
		sessions:    sessions,
		factory:     factory,
		httpClient:  factory.HTTPClient,
		logger:      shared.WithLogger(logger, "component", "link"),
		stateCookie: sessions.name + "_link_state",
		stateTTL:    StateTTL,
		capacity:    DefaultStateCapacity,
	}
	for _, opt := range opts {
		opt(h)
	}

	h.states = ttlcache.New(
		ttlcache.WithTTL[string, models.Provider](h.stateTTL),
		ttlcache.WithCapacity[string, models.Provider](h.capacity),
		ttlcache.WithDisableTouchOnHit[string, models.Provider](),
	)
	h.unsubscribe = h.states.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, models.Provider]) {
		switch reason {
		case ttlcache.EvictionReasonExpired:
			h.logger.Debug("link attempt expired", "provider", item.Value())
		case ttlcache.EvictionReasonCapacityReached:
			h.logger.Warn("link attempt dropped at capacity", "provider", item.Value(), "capacity", h.capacity)
		}
	})
	go h.states.Start()
	return h
}

// Stop ends the state expiry loop and waits for pending eviction hooks.
// It is safe to call more than once.
func (h *LinkHandler) Stop() {
	h.stopOnce.Do(func() {
		h.states.Stop()
		h.unsubscribe()
	})
}

// Routes returns the HTTP routes this handler serves.
func (h *LinkHandler) Routes() []string {
	return []string{"/auth/{provider}", "/auth/{provider}/callback"}
}

// ServeHTTP dispatches to the start or callback half of the flow.
func (h *LinkHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
		return
	}

	provider, err := models.ParseProvider(r.PathValue("provider"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Unknown provider")
		return
	}
	conf, ok := h.configs[provider]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("%s is not configured", provider.DisplayName()))
		return
	}

	if strings.HasSuffix(r.URL.Path, "/callback") {
		h.callback(w, r, provider, conf)
		return
	}
	h.start(w, r, provider, conf)
}

func (h *LinkHandler) start(w http.ResponseWriter, r *http.Request, provider models.Provider, conf *oauth2.Config) {
	state, err := shared.GenerateState()
	if err != nil {
		h.logger.Error("failed to generate state", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to start authorization")
		return
	}
	h.states.Set(state, provider, ttlcache.DefaultTTL)

	http.SetCookie(w, &http.Cookie{
		Name:     h.stateCookie,
		Value:    state,
		Path:     "/auth",
		MaxAge:   int(h.stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.sessions.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, conf.AuthCodeURL(state, auth.AuthCodeOptions(provider)...), http.StatusFound)
}

func (h *LinkHandler) callback(w http.ResponseWriter, r *http.Request, provider models.Provider, conf *oauth2.Config) {
	q := r.URL.Query()

	state := q.Get("state")
	bound := h.boundState(r, state)
	h.clearStateCookie(w)
	if !bound {
		h.logger.Warn("callback state not bound to this browser", "provider", provider)
		writeError(w, http.StatusBadRequest, "Invalid state parameter")
		return
	}

	item := h.states.Get(state)
	if item == nil || item.Value() != provider {
		h.logger.Warn("callback with unknown state", "provider", provider)
		writeError(w, http.StatusBadRequest, "Invalid state parameter")
		return
	}
	h.states.Delete(state)

	code := q.Get("code")
	if code == "" {
		h.logger.Warn("authorization denied", "provider", provider, "error", q.Get("error"), "description", q.Get("error_description"))
		writeError(w, http.StatusBadRequest, "Authorization failed")
		return
	}

	ctx := r.Context()
	if h.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, h.httpClient)
	}
	token, err := conf.Exchange(ctx, code)
	if err != nil {
		h.logger.Error("token exchange failed", "provider", provider, "error", err)
		writeError(w, http.StatusInternalServerError, "Token exchange failed")
		return
	}

	bundle := auth.BundleFromToken(token)
	externalID, err := h.externalID(r.Context(), provider, bundle.AccessToken)
	if err != nil {
		h.logger.Error("failed to resolve account id", "provider", provider, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	account := models.ProviderAccount{
		Provider:     provider,
		ExternalID:   externalID,
		AccessToken:  bundle.AccessToken,
		RefreshToken: bundle.RefreshToken,
		ExpiresAt:    bundle.ExpiresAt,
	}

	userID, err := h.owner(r.Context(), SessionFrom(r.Context()), account)
	if err != nil {
		h.logger.Error("failed to resolve owning user", "provider", provider, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to link account")
		return
	}

	if err := h.accounts.Upsert(r.Context(), models.NewAccount(userID, account)); err != nil {
		h.logger.Error("failed to store account", "provider", provider, "user", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to link account")
		return
	}

	next := h.sessions.Resolve(r, &auth.SignIn{UserID: userID, Account: &account})
	if err := h.sessions.Write(w, next); err != nil {
		h.logger.Error("failed to write session", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to link account")
		return
	}

	h.logger.Info("account linked", "provider", provider, "user", userID)
	http.Redirect(w, r, "/", http.StatusFound)
}

// boundState reports whether the state cookie set by start carries state.
func (h *LinkHandler) boundState(r *http.Request, state string) bool {
	c, err := r.Cookie(h.stateCookie)
	if err != nil || c.Value == "" || state == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(c.Value), []byte(state)) == 1
}

func (h *LinkHandler) clearStateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.stateCookie,
		Value:    "",
		Path:     "/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.sessions.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *LinkHandler) externalID(ctx context.Context, provider models.Provider, token string) (string, error) {
	switch provider {
	case models.Spotify:
		return h.factory.Spotify(token).CurrentUserID(ctx)
	case models.Google:
		return h.factory.YouTube(token).Subject(ctx)
	default:
		return "", fmt.Errorf("%w: %s", shared.ErrUnknownProvider, provider)
	}
}

// owner picks the user a linked account belongs to: the session subject, the stored owner, or a new user.
func (h *LinkHandler) owner(ctx context.Context, state models.SessionState, account models.ProviderAccount) (string, error) {
	if state.Subject != "" {
		return state.Subject, nil
	}

	userID, err := h.accounts.FindUserID(ctx, account.Provider, account.ExternalID)
	if err == nil {
		return userID, nil
	}
	if !errors.Is(err, shared.ErrAccountNotFound) {
		return "", err
	}

	user := models.NewUser(fmt.Sprintf("%s:%s", account.Provider, account.ExternalID))
	if err := h.users.Create(ctx, user); err != nil {
		return "", err
	}
	return user.ID(), nil
}
