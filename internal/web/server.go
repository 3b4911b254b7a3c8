// Package web is the server-rendered frontend. Each page is backed by a
// view model; HTTP handlers translate form posts into view model
// operations and navigation requests into redirects.
package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"

	"github.com/Shivanand-hulikatti/eventhub/internal/auth"
	"github.com/Shivanand-hulikatti/eventhub/internal/config"
	"github.com/Shivanand-hulikatti/eventhub/internal/log"
	"github.com/Shivanand-hulikatti/eventhub/internal/model"
	"github.com/Shivanand-hulikatti/eventhub/internal/route"
)

//go:embed templates/*.html
var templateFS embed.FS

// idleVisit is how long a browser's view models are kept without requests.
const idleVisit = 30 * time.Minute

// Server serves the frontend.
type Server struct {
	cfg     *config.Config
	authn   auth.Authenticator
	log     *log.Logger
	http    *http.Client
	now     func() time.Time
	cookies *sessions.CookieStore
	visits  *registry
	pages   map[string]*template.Template
}

// Option customises a Server.
type Option func(*Server)

// WithHTTPClient sets the client used to reach the REST backend.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Server) { s.http = hc }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New builds the frontend for cfg. Sign-in is delegated to authn.
func New(cfg *config.Config, authn auth.Authenticator, logger *log.Logger, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("web: nil config")
	}
	if logger == nil {
		logger = log.Nop()
	}
	s := &Server{
		cfg:    cfg,
		authn:  authn,
		log:    logger,
		http:   &http.Client{},
		now:    time.Now,
		visits: newRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}

	key := []byte(cfg.Session.Secret)
	if len(key) == 0 {
		key = securecookie.GenerateRandomKey(32)
		logger.Warn("session.secret not set, using a random key; sessions end on restart")
	}
	s.cookies = sessions.NewCookieStore(key)
	s.cookies.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.Session.MaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	s.pages = pages
	return s, nil
}

// Handler returns the routed frontend.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Logger(s.log))
	r.Use(s.requireViewer)

	r.Get("/health", HealthCheck)

	r.Get(route.Home, s.home)
	r.Get(route.Login, s.loginPage)
	r.Post(route.Login, s.login)
	r.Post("/logout", s.logout)
	r.Post("/notices/{nid}/dismiss", s.dismissNotice)

	r.Route(route.Events, func(r chi.Router) {
		r.Get("/", s.listEvents)
		r.Post("/new", s.newEvent)
		r.Get("/create", s.createPage)
		r.Post("/create", s.createEvent)
		r.Get("/edit/{id}", s.editPage)
		r.Post("/edit/{id}", s.editEvent)

		r.Get("/{id}", s.eventDetails)
		r.Get("/{id}/calendar.ics", s.calendar)
		r.Post("/{id}/subscription", s.toggleSubscription)
		r.Post("/{id}/delete", s.requestDelete)
		r.Post("/{id}/delete/confirm", s.confirmDelete)
		r.Post("/{id}/delete/cancel", s.cancelDelete)
	})
	return r
}

// Sweep forgets idle visits every interval until ctx is done.
func (s *Server) Sweep(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if n := s.visits.sweep(s.now().Add(-idleVisit)); n > 0 {
				s.log.Debug("swept idle visits", "count", n, "remaining", s.visits.len())
			}
		}
	}
}

// requireViewer redirects anonymous visitors of private pages to the
// login page.
func (s *Server) requireViewer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !route.RequiresViewer(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		v := s.visitFor(w, r)
		if _, ok := v.auth.CurrentViewer(); !ok {
			http.Redirect(w, r, route.LoginPath(r.URL.Path), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func eventID(r *http.Request) model.ID {
	return model.ID(chi.URLParam(r, "id"))
}

// detached keeps a mutation running when the browser goes away mid-request.
func detached(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}
