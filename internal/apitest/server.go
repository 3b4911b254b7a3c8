// Package apitest is an in-memory stand-in for the events REST backend,
// served over httptest for client, view model and frontend tests.
package apitest

import (
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/Shivanand-hulikatti/eventhub/internal/model"
)

// Route keys accepted by Calls and Fail.
const (
	RouteList        = "GET /events"
	RouteGet         = "GET /events/{id}"
	RouteCreate      = "POST /events"
	RouteUpdate      = "PUT /events/{id}"
	RouteDelete      = "DELETE /events/{id}"
	RouteCheck       = "GET /events/{id}/subscriptions/check"
	RouteSubscribe   = "POST /events/{id}/subscriptions"
	RouteUnsubscribe = "DELETE /events/{id}/subscriptions"
)

type fault struct {
	status int
	msg    string
}

// Server is a running REST double.
type Server struct {
	*httptest.Server
	Store *Store

	mu     sync.Mutex
	calls  map[string]int
	faults map[string]fault
	tokens map[string]string // bearer token -> viewer email
	auth   []string          // Authorization header of every request, in order
}

// NewServer starts a double with numeric event ids.
func NewServer() *Server {
	return NewServerWithStore(NewStore(false))
}

// NewServerWithStore starts a double backed by store.
func NewServerWithStore(store *Store) *Server {
	s := &Server{
		Store:  store,
		calls:  make(map[string]int),
		faults: make(map[string]fault),
		tokens: make(map[string]string),
	}
	h := &eventHandler{svc: &eventService{store: store}, viewer: s.viewer}

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Get("/events", s.track(RouteList, h.listEvents))
	r.Post("/events", s.track(RouteCreate, h.createEvent))
	r.Route("/events/{id}", func(r chi.Router) {
		r.Get("/", s.track(RouteGet, h.getEvent))
		r.Put("/", s.track(RouteUpdate, h.updateEvent))
		r.Delete("/", s.track(RouteDelete, h.deleteEvent))
		r.Get("/subscriptions/check", s.track(RouteCheck, h.checkSubscription))
		r.Post("/subscriptions", s.track(RouteSubscribe, h.subscribe))
		r.Delete("/subscriptions", s.track(RouteUnsubscribe, h.unsubscribe))
	})

	s.Server = httptest.NewServer(r)
	return s
}

// AddToken makes token authenticate as email. Unregistered non-empty
// tokens authenticate as the token string itself.
func (s *Server) AddToken(token, email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = email
}

// Seed inserts an event directly into the store.
func (s *Server) Seed(in model.EventInput) model.Event {
	return s.Store.Create(in)
}

// Calls reports how many requests hit route.
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// TotalCalls reports the number of requests across all routes.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

// AuthHeaders returns the Authorization header of every request so far.
func (s *Server) AuthHeaders() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.auth...)
}

// Fail makes every later request to route answer status with msg as the
// JSON message. An empty msg sends no body.
func (s *Server) Fail(route string, status int, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[route] = fault{status: status, msg: msg}
}

// Heal removes an injected failure.
func (s *Server) Heal(route string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.faults, route)
}

func (s *Server) track(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[route]++
		s.auth = append(s.auth, r.Header.Get("Authorization"))
		f, failing := s.faults[route]
		s.mu.Unlock()

		if failing {
			if f.msg == "" {
				w.WriteHeader(f.status)
				return
			}
			writeError(w, f.status, f.msg)
			return
		}
		next(w, r)
	}
}

func (s *Server) viewer(r *http.Request) (string, bool) {
	tok := bearerToken(r)
	if tok == "" {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if email, ok := s.tokens[tok]; ok {
		return email, true
	}
	return tok, true
}
