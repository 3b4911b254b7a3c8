package view

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/eventhub/internal/auth"
	"github.com/Shivanand-hulikatti/eventhub/internal/model"
	"github.com/Shivanand-hulikatti/eventhub/internal/notify"
	"github.com/Shivanand-hulikatti/eventhub/internal/route"
)

// Signer signs a viewer in. *auth.Context implements it.
type Signer interface {
	Login(ctx context.Context, creds model.Credentials) (model.Viewer, error)
}

var _ Signer = (*auth.Context)(nil)

// LoginState is a snapshot of the login page.
type LoginState struct {
	Email   string
	Next    string
	Loading bool
	Err     *Failure
}

// Login drives the login page.
type Login struct {
	deps   Deps
	signer Signer
	rep    reporter

	mu sync.Mutex
	st LoginState
}

// NewLogin returns a login view that continues to next once signed in.
func NewLogin(d Deps, s Signer, next string) *Login {
	d = d.withDefaults()
	return &Login{
		deps:   d,
		signer: s,
		rep:    reporter{notices: d.Notices, log: d.Log},
		st:     LoginState{Next: route.SafeNext(next)},
	}
}

// State returns a snapshot for rendering.
func (l *Login) State() LoginState {
	l.mu.Lock()
	defer l.mu.Unlock()
	st := l.st
	st.Err = copyFailure(l.st.Err)
	return st
}

// Submit signs in. A second call while signing in is ignored.
func (l *Login) Submit(ctx context.Context, creds model.Credentials) {
	l.mu.Lock()
	if l.st.Loading {
		l.mu.Unlock()
		return
	}
	l.st.Email = strings.TrimSpace(creds.Email)
	if l.st.Email == "" || creds.Password == "" {
		l.st.Err = l.rep.fail(l.st.Err, ValidationFailed, "Email and password are required.", nil)
		l.mu.Unlock()
		return
	}
	l.st.Err = l.rep.dismiss(l.st.Err)
	l.st.Loading = true
	l.mu.Unlock()

	v, err := l.signer.Login(ctx, creds)

	l.mu.Lock()
	l.st.Loading = false
	if err != nil {
		msg := "Could not sign in. Please try again."
		if errors.Is(err, auth.ErrInvalidCredentials) {
			msg = "Invalid email or password."
		}
		l.st.Err = l.rep.fail(l.st.Err, LoginFailed, msg, err)
		l.mu.Unlock()
		return
	}
	next := l.st.Next
	l.mu.Unlock()

	name := v.Name
	if name == "" {
		name = v.Email
	}
	l.deps.Notices.Post("SignedIn", notify.Success, "Signed in as "+name+".", notify.SuccessTTL)
	l.deps.Nav.Navigate(next)
}

// DismissError clears the error and its notice.
func (l *Login) DismissError() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.st.Err = l.rep.dismiss(l.st.Err)
}

// Tick expires due notices.
func (l *Login) Tick(now time.Time) {
	l.deps.Notices.Expire(now)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.st.Err = l.rep.expired(l.st.Err)
}
