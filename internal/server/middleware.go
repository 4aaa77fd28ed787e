package server

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songbridge/internal/auth"
	"github.com/desertthunder/songbridge/internal/models"
	"github.com/desertthunder/songbridge/internal/shared"
)

type sessionKey struct{}

// WithSession returns a copy of ctx carrying state.
func WithSession(ctx context.Context, state models.SessionState) context.Context {
	return context.WithValue(ctx, sessionKey{}, state)
}

// SessionFrom returns the state stored by the session middleware, or an empty state.
func SessionFrom(ctx context.Context) models.SessionState {
	if s, ok := ctx.Value(sessionKey{}).(models.SessionState); ok {
		return s
	}
	return models.NewSessionState()
}

// Sessions reads and writes the session cookie and runs the credential lifecycle on each request.
type Sessions struct {
	codec   *auth.SessionCodec
	manager *auth.Manager
	name    string
	secure  bool
	logger  *log.Logger
}

// NewSessions creates a Sessions for the configured cookie.
func NewSessions(codec *auth.SessionCodec, manager *auth.Manager, cfg shared.SessionConfig, logger *log.Logger) *Sessions {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Sessions{
		codec:   codec,
		manager: manager,
		name:    cfg.CookieName,
		secure:  cfg.Secure,
		logger:  shared.WithLogger(logger, "component", "session"),
	}
}

// Middleware decodes the cookie, resolves credentials, and rewrites the cookie when the state changed.
//
// A missing or invalid cookie is treated as an empty session.
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		current := s.read(r)

		state, outcomes := s.manager.Resolve(r.Context(), current, nil)
		for _, o := range auth.DegradedOutcomes(outcomes) {
			s.logger.Debug("credential step degraded", "step", o.Step, "provider", o.Provider, "error", o.Err)
		}

		if !state.Equal(current) {
			if err := s.Write(w, state); err != nil {
				s.logger.Error("failed to write session", "error", err)
			}
		}

		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), state)))
	})
}

// Resolve runs the credential lifecycle for a sign-in against the request's session.
func (s *Sessions) Resolve(r *http.Request, signIn *auth.SignIn) models.SessionState {
	state, outcomes := s.manager.Resolve(r.Context(), SessionFrom(r.Context()), signIn)
	for _, o := range auth.DegradedOutcomes(outcomes) {
		s.logger.Warn("sign-in step degraded", "step", o.Step, "provider", o.Provider, "error", o.Err)
	}
	return state
}

// Write encodes state into the session cookie.
func (s *Sessions) Write(w http.ResponseWriter, state models.SessionState) error {
	value, err := s.codec.Encode(state)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(s.codec.TTL().Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear expires the session cookie.
func (s *Sessions) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Sessions) read(r *http.Request) models.SessionState {
	c, err := r.Cookie(s.name)
	if err != nil || c.Value == "" {
		return models.NewSessionState()
	}

	state, err := s.codec.Decode(c.Value)
	if err != nil {
		s.logger.Debug("discarding invalid session", "error", err)
		return models.NewSessionState()
	}
	return state
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// LoggingMiddleware logs method, path, status, and duration of every request.
func LoggingMiddleware(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			logger.Info("request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
		})
	}
}
