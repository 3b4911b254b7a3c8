// Package auth holds the signed-in viewer. A Context is created explicitly
// and handed to whoever needs to read or change the session; there is no
// package-level state.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Shivanand-hulikatti/eventhub/internal/log"
	"github.com/Shivanand-hulikatti/eventhub/internal/model"
)

// ErrInvalidCredentials is returned by an Authenticator for a wrong email
// or password.
var ErrInvalidCredentials = errors.New("invalid email or password")

// Viewers reports the current viewer. Implementations answer locally and
// never block on the network.
type Viewers interface {
	CurrentViewer() (model.Viewer, bool)
}

// Authenticator exchanges credentials for a viewer carrying a token.
type Authenticator interface {
	Authenticate(ctx context.Context, creds model.Credentials) (model.Viewer, error)
}

// Session is the persisted form of a signed-in viewer.
type Session struct {
	Viewer    model.Viewer `yaml:"viewer"`
	ExpiresAt time.Time    `yaml:"expires_at,omitempty"`
}

// Expired reports whether the session is past its expiry at now. A zero
// ExpiresAt never expires.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Store persists a session between runs. Load returns nil, nil when
// nothing is stored.
type Store interface {
	Load() (*Session, error)
	Save(s *Session) error
	Clear() error
}

// Context is the auth capability passed to view models and the API client.
type Context struct {
	store Store
	authn Authenticator
	log   *log.Logger
	now   func() time.Time

	mu      sync.RWMutex
	session *Session
}

// Option customises a Context.
type Option func(*Context)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Context) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Context) { c.log = l }
}

// NewContext returns a signed-out context. Call Init to restore a
// persisted session.
func NewContext(store Store, authn Authenticator, opts ...Option) *Context {
	c := &Context{
		store: store,
		authn: authn,
		log:   log.Nop(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Init restores the persisted session. An unreadable or expired session
// is cleared and the context stays signed out; only failing to clear it
// is reported.
func (c *Context) Init() error {
	s, err := c.store.Load()
	if err != nil {
		c.log.Warn("discarding unreadable session", "err", err)
		return c.clear()
	}
	if s == nil || s.Viewer.Email == "" {
		return nil
	}
	if s.ExpiresAt.IsZero() {
		if exp, ok := TokenExpiry(s.Viewer.Token); ok {
			s.ExpiresAt = exp
		}
	}
	if s.Expired(c.now()) {
		c.log.Info("session expired", "email", s.Viewer.Email)
		return c.clear()
	}

	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
	return nil
}

// Login authenticates and persists the new session.
func (c *Context) Login(ctx context.Context, creds model.Credentials) (model.Viewer, error) {
	v, err := c.authn.Authenticate(ctx, creds)
	if err != nil {
		return model.Viewer{}, err
	}
	s := &Session{Viewer: v}
	if exp, ok := TokenExpiry(v.Token); ok {
		s.ExpiresAt = exp
	}
	if err := c.store.Save(s); err != nil {
		return model.Viewer{}, fmt.Errorf("save session: %w", err)
	}

	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
	c.log.Info("signed in", "email", v.Email)
	return v, nil
}

// Logout forgets the viewer in memory and in the store.
func (c *Context) Logout() error {
	return c.clear()
}

func (c *Context) clear() error {
	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()
	if err := c.store.Clear(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// CurrentViewer implements Viewers. An expired session reads as signed out.
func (c *Context) CurrentViewer() (model.Viewer, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil || c.session.Expired(c.now()) {
		return model.Viewer{}, false
	}
	return c.session.Viewer, true
}

// Token returns the bearer token of the current viewer, or "".
func (c *Context) Token() string {
	v, ok := c.CurrentViewer()
	if !ok {
		return ""
	}
	return v.Token
}

// Session returns a copy of the live session.
func (c *Context) Session() (Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return Session{}, false
	}
	return *c.session, true
}

// TokenExpiry reads the exp claim of a JWT without verifying its
// signature. Opaque or exp-less tokens report false.
func TokenExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
