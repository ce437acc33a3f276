// Package fakeapi runs an in-process stand-in for the Assigno REST API so client packages
// can be tested against real HTTP round trips.
package fakeapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// Prefix is the path prefix the fake API is served under.
const Prefix = "/api"

// Recorded is a request as seen by the server.
type Recorded struct {
	Method   string
	Path     string // without Prefix
	RawQuery string
	Header   http.Header
	Body     []byte
}

// Server is a chi-routed httptest server recording every request it receives.
type Server struct {
	*httptest.Server
	router *chi.Mux

	mu       sync.Mutex
	requests []Recorded
}

// New starts a server that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{router: chi.NewRouter()}
	s.router.Use(s.record)
	s.Server = httptest.NewServer(s.router)
	t.Cleanup(s.Close)
	return s
}

// URL returns the API base URL to configure clients with.
func (s *Server) URL() string {
	return s.Server.URL + Prefix
}

// Handle registers h for method and a chi pattern relative to Prefix.
func (s *Server) Handle(method, pattern string, h http.HandlerFunc) {
	s.router.MethodFunc(method, Prefix+pattern, h)
}

// Reply registers a handler answering with a fixed status and JSON body.
func (s *Server) Reply(method, pattern string, status int, body any) {
	s.Handle(method, pattern, func(w http.ResponseWriter, r *http.Request) {
		JSON(w, status, body)
	})
}

// Requests returns a copy of the recorded requests.
func (s *Server) Requests() []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Recorded, len(s.requests))
	copy(out, s.requests)
	return out
}

// Count returns how many requests matched method and path.
func (s *Server) Count(method, path string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// Last returns the most recent request for method and path.
func (s *Server) Last(method, path string) (Recorded, bool) {
	reqs := s.Requests()
	for i := len(reqs) - 1; i >= 0; i-- {
		if reqs[i].Method == method && reqs[i].Path == path {
			return reqs[i], true
		}
	}
	return Recorded{}, false
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))

		s.mu.Lock()
		s.requests = append(s.requests, Recorded{
			Method:   r.Method,
			Path:     strings.TrimPrefix(r.URL.Path, Prefix),
			RawQuery: r.URL.RawQuery,
			Header:   r.Header.Clone(),
			Body:     body,
		})
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

// JSON writes v as a JSON response.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// M is shorthand for a JSON object.
type M = map[string]any
