package server

import (
	"net/http"
	"slices"
	"strings"
	"sync"
)

const msgMethodNotAllowed = "Method not allowed"

var _ Router = (*MethodRouter)(nil)

// MethodRouter is an [http.ServeMux] backed [Router] that keeps a method table per path.
//
// A path registered for several methods is dispatched from one mux entry. A request with a method the
// path does not serve gets a JSON 405 with an Allow header naming every registered method. GET routes
// also answer HEAD.
type MethodRouter struct {
	mux         *http.ServeMux
	middlewares []Middleware

	mu     sync.RWMutex
	routes map[string]map[string]http.Handler
}

// NewMethodRouter creates an empty [MethodRouter].
func NewMethodRouter() *MethodRouter {
	return &MethodRouter{
		mux:    http.NewServeMux(),
		routes: make(map[string]map[string]http.Handler),
	}
}

// Use appends middleware; it wraps handlers registered after the call.
func (r *MethodRouter) Use(middleware ...Middleware) {
	r.middlewares = append(r.middlewares, middleware...)
}

// Handle registers handler for method on path. Registering the same method and path twice panics,
// mirroring [http.ServeMux].
func (r *MethodRouter) Handle(method, path string, handler http.Handler) {
	method = strings.ToUpper(method)

	r.mu.Lock()
	defer r.mu.Unlock()

	methods, ok := r.routes[path]
	if !ok {
		methods = make(map[string]http.Handler)
		r.routes[path] = methods
		r.mux.Handle(path, r.dispatch(path))
	}
	if _, dup := methods[method]; dup {
		panic("server: duplicate route " + method + " " + path)
	}
	methods[method] = r.Apply(handler)
}

// Handler registers a [Handler] for every pattern in its Routes. The handler checks methods itself.
func (r *MethodRouter) Handler(handler Handler) {
	wrapped := r.Apply(handler)
	for _, route := range handler.Routes() {
		r.mux.Handle(route, wrapped)
	}
}

// ServeHTTP implements [http.Handler].
func (r *MethodRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Apply wraps handler with the middleware stack; the first middleware added is outermost.
func (r *MethodRouter) Apply(handler http.Handler) http.Handler {
	wrapped := handler
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		wrapped = r.middlewares[i](wrapped)
	}
	return wrapped
}

// Allowed returns the sorted methods registered for path.
func (r *MethodRouter) Allowed(path string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	methods := r.routes[path]
	allowed := make([]string, 0, len(methods)+1)
	for m := range methods {
		allowed = append(allowed, m)
	}
	if _, ok := methods[http.MethodGet]; ok {
		if _, ok := methods[http.MethodHead]; !ok {
			allowed = append(allowed, http.MethodHead)
		}
	}
	slices.Sort(allowed)
	return allowed
}

func (r *MethodRouter) dispatch(path string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if h := r.lookup(path, req.Method); h != nil {
			h.ServeHTTP(w, req)
			return
		}
		w.Header().Set("Allow", strings.Join(r.Allowed(path), ", "))
		writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
	})
}

func (r *MethodRouter) lookup(path, method string) http.Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	methods := r.routes[path]
	if h, ok := methods[method]; ok {
		return h
	}
	if method == http.MethodHead {
		return methods[http.MethodGet]
	}
	return nil
}
