// package server contains middleware & handlers for the songbridge web service
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songbridge/internal/services"
	"github.com/desertthunder/songbridge/internal/shared"
	"github.com/desertthunder/songbridge/internal/tasks"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler is an [http.Handler] that knows the path patterns it serves.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// Options collects the collaborators of a [Server].
type Options struct {
	Sessions   *Sessions
	Links      *LinkHandler // nil disables the /auth/{provider} routes
	Factory    services.Factory
	Pipeline   *tasks.Pipeline
	Classifier *tasks.Classifier
	Logger     *log.Logger
}

// Server serves the playlist and transfer API.
type Server struct {
	router     *MethodRouter
	sessions   *Sessions
	factory    services.Factory
	pipeline   *tasks.Pipeline
	classifier *tasks.Classifier
	links      *LinkHandler
	logger     *log.Logger
}

// New wires the routes and middleware.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	s := &Server{
		router:     NewMethodRouter(),
		sessions:   opts.Sessions,
		factory:    opts.Factory,
		pipeline:   opts.Pipeline,
		classifier: opts.Classifier,
		links:      opts.Links,
		logger:     logger,
	}
	if s.pipeline == nil {
		s.pipeline = tasks.NewPipeline(logger)
	}
	if s.classifier == nil {
		s.classifier = tasks.NewClassifier(tasks.ClassifierConfig{}, logger)
	}

	s.router.Use(LoggingMiddleware(logger))
	if s.sessions != nil {
		s.router.Use(s.sessions.Middleware)
	}

	s.router.Handle(http.MethodGet, "/health", http.HandlerFunc(s.handleHealth))
	s.router.Handle(http.MethodGet, "/playlists/source", http.HandlerFunc(s.handleSourcePlaylists))
	s.router.Handle(http.MethodGet, "/playlists/destination", http.HandlerFunc(s.handleDestinationPlaylists))
	s.router.Handle(http.MethodPost, "/transfer", http.HandlerFunc(s.handleTransfer))
	s.router.Handle(http.MethodPost, "/transfer-reverse", http.HandlerFunc(s.handleTransferReverse))
	if s.sessions != nil {
		s.router.Handle(http.MethodPost, "/auth/logout", http.HandlerFunc(s.handleLogout))
	}
	if s.links != nil {
		s.router.Handler(s.links)
	}

	return s
}

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.logger.Info("shutting down server")
	err := srv.Shutdown(shutdownCtx)
	s.stopCaches()
	return err
}

// stopCaches ends the expiry loops of the classifier and link state caches.
func (s *Server) stopCaches() {
	s.classifier.Stop()
	if s.links != nil {
		s.links.Stop()
	}
}
