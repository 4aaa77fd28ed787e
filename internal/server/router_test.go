package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func named(name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(name))
	})
}

func TestMethodRouter(t *testing.T) {
	r := NewMethodRouter()
	r.Handle(http.MethodGet, "/items", named("list"))
	r.Handle("post", "/items", named("create"))
	r.Handle(http.MethodDelete, "/items/{id}", named("delete"))

	t.Run("dispatches by method", func(t *testing.T) {
		tt := []struct {
			method string
			path   string
			want   string
		}{
			{http.MethodGet, "/items", "list"},
			{http.MethodPost, "/items", "create"},
			{http.MethodHead, "/items", ""},
			{http.MethodDelete, "/items/7", "delete"},
		}

		for _, tc := range tt {
			t.Run(tc.method+" "+tc.path, func(t *testing.T) {
				rec := httptest.NewRecorder()
				r.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
				if rec.Code != http.StatusOK {
					t.Fatalf("status = %d, want 200", rec.Code)
				}
				if tc.method != http.MethodHead && rec.Body.String() != tc.want {
					t.Errorf("body = %q, want %q", rec.Body.String(), tc.want)
				}
			})
		}
	})

	t.Run("405 lists every registered method", func(t *testing.T) {
		tt := []struct {
			method string
			path   string
			allow  string
		}{
			{http.MethodPut, "/items", "GET, HEAD, POST"},
			{http.MethodPatch, "/items", "GET, HEAD, POST"},
			{http.MethodGet, "/items/7", "DELETE"},
		}

		for _, tc := range tt {
			t.Run(tc.method+" "+tc.path, func(t *testing.T) {
				rec := httptest.NewRecorder()
				r.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
				if rec.Code != http.StatusMethodNotAllowed {
					t.Fatalf("status = %d, want 405", rec.Code)
				}
				if got := rec.Header().Get("Allow"); got != tc.allow {
					t.Errorf("Allow = %q, want %q", got, tc.allow)
				}
				if !strings.Contains(rec.Body.String(), msgMethodNotAllowed) {
					t.Errorf("body = %q", rec.Body.String())
				}
			})
		}
	})

	t.Run("unknown path", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("duplicate route panics", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Error("expected a panic")
			}
		}()
		r.Handle(http.MethodGet, "/items", named("again"))
	})
}

func TestMethodRouterMiddleware(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	r := NewMethodRouter()
	r.Use(mark("outer"), mark("inner"))
	r.Handle(http.MethodGet, "/items", named("list"))

	t.Run("first added runs first", func(t *testing.T) {
		order = nil
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items", nil))
		if strings.Join(order, ",") != "outer,inner" {
			t.Errorf("order = %v", order)
		}
	})

	t.Run("405 skips middleware", func(t *testing.T) {
		order = nil
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/items", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want 405", rec.Code)
		}
		if len(order) != 0 {
			t.Errorf("middleware ran: %v", order)
		}
	})
}
