// Package apitest runs a fake marketplace API for tests. It issues and checks
// CSRF tokens the way the real API does and records every call.
package apitest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	// BasePath is where the API is mounted, matching the production layout.
	BasePath = "/api"
	// CSRFCode is returned with 403 for a missing or wrong token.
	CSRFCode   = "EBADCSRFTOKEN"
	csrfCookie = "_csrf"
)

// Call is one recorded request. Path is relative to BasePath.
type Call struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// Decode unmarshals the recorded JSON body.
func (c Call) Decode(v any) error {
	return json.Unmarshal(c.Body, v)
}

// Server is the fake API.
type Server struct {
	*httptest.Server
	router chi.Router

	mu          sync.Mutex
	handlers    chi.Router
	calls       []Call
	tokenSeq    int
	token       string
	rejectCSRF  int
	tokenFail   bool
	csrfFetches int
}

// New starts a server closed by t.Cleanup.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{router: chi.NewRouter()}
	s.router.Use(middleware.Recoverer)
	s.router.Route(BasePath, func(r chi.Router) {
		r.Use(s.record)
		r.Get("/csrf-token", s.issueToken)
		r.Group(func(r chi.Router) {
			r.Use(s.checkCSRF)
			r.Mount("/", s.endpoints())
		})
	})

	s.Server = httptest.NewServer(s.router)
	t.Cleanup(s.Close)
	return s
}

// URL of the API root, e.g. http://127.0.0.1:1234/api.
func (s *Server) APIURL() string {
	return s.Server.URL + BasePath
}

func (s *Server) endpoints() chi.Router {
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusNotFound, map[string]string{"message": "route not found"})
	})
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = r
	return r
}

// Handle registers h for method and path (relative to BasePath).
func (s *Server) Handle(method, path string, h http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers.Method(method, path, h)
}

// Calls returns the recorded calls, csrf-token fetches included.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallsTo returns the recorded calls for method and path.
func (s *Server) CallsTo(method, path string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Method == method && c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

// CSRFFetches counts GET /csrf-token calls.
func (s *Server) CSRFFetches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.csrfFetches
}

// RejectCSRF makes the next n state-changing requests fail the CSRF check
// even with a valid token, as after a server-side token rotation.
func (s *Server) RejectCSRF(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectCSRF = n
}

// FailTokenEndpoint makes GET /csrf-token answer 500.
func (s *Server) FailTokenEndpoint(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenFail = fail
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		s.mu.Lock()
		s.calls = append(s.calls, Call{
			Method: r.Method,
			Path:   r.URL.Path[len(BasePath):],
			Header: r.Header.Clone(),
			Body:   body,
		})
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) issueToken(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	s.csrfFetches++
	if s.tokenFail {
		s.mu.Unlock()
		WriteJSON(w, http.StatusInternalServerError, map[string]string{"message": "token store down"})
		return
	}
	s.tokenSeq++
	s.token = fmt.Sprintf("csrf-%d", s.tokenSeq)
	token := s.token
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: csrfCookie, Value: token, Path: "/", HttpOnly: true})
	WriteJSON(w, http.StatusOK, map[string]string{"csrfToken": token})
}

func (s *Server) checkCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		default:
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("X-CSRF-Token")
		cookie, _ := r.Cookie(csrfCookie)

		s.mu.Lock()
		ok := header != "" && header == s.token && cookie != nil && cookie.Value == header
		if ok && s.rejectCSRF > 0 {
			s.rejectCSRF--
			ok = false
		}
		s.mu.Unlock()

		if !ok {
			WriteJSON(w, http.StatusForbidden, map[string]string{
				"code":    CSRFCode,
				"message": "invalid csrf token",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WriteJSON writes v with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// JSON returns a handler that always answers status with v.
func JSON(status int, v any) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, status, v)
	}
}

// Sequence answers with each handler in turn, repeating the last one.
func Sequence(handlers ...http.HandlerFunc) http.HandlerFunc {
	var (
		mu sync.Mutex
		i  int
	)
	return func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		h := handlers[min(i, len(handlers)-1)]
		i++
		mu.Unlock()
		h(w, r)
	}
}
