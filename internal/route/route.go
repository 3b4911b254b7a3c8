// Package route names the client's pages and the navigation capability
// view models use to move between them.
package route

import (
	"net/url"
	"strings"
	"sync"

	"github.com/Shivanand-hulikatti/eventhub/internal/model"
)

// Page paths.
const (
	Home        = "/"
	Events      = "/events"
	CreateEvent = "/events/create"
	Login       = "/login"
)

// EventPath is the detail page of id.
func EventPath(id model.ID) string {
	return Events + "/" + url.PathEscape(id.String())
}

// EditPath is the edit page of id.
func EditPath(id model.ID) string {
	return Events + "/edit/" + url.PathEscape(id.String())
}

// LoginPath is the login page that returns to next after signing in.
func LoginPath(next string) string {
	if next == "" || next == Events || SafeNext(next) != next {
		return Login
	}
	return Login + "?next=" + url.QueryEscape(next)
}

// SafeNext returns next when it is a path on this host, else Events.
// Browsers treat a backslash like a slash, so "/\\host" is as foreign as
// "//host".
func SafeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.ContainsRune(next, '\\') {
		return Events
	}
	if len(next) > 1 && next[1] == '/' {
		return Events
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" || u.Opaque != "" {
		return Events
	}
	return next
}

// RequiresViewer reports whether path is a private page.
func RequiresViewer(path string) bool {
	return path == CreateEvent || strings.HasPrefix(path, Events+"/edit/")
}

// Navigator moves the UI to another page.
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

// Navigate implements Navigator.
func (f NavigatorFunc) Navigate(path string) { f(path) }

// Latch records navigation requests so a request/response binding can
// turn them into redirects.
type Latch struct {
	mu      sync.Mutex
	pending string
	history []string
}

// Navigate implements Navigator.
func (l *Latch) Navigate(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending = path
	l.history = append(l.history, path)
}

// Take returns and clears the pending target.
func (l *Latch) Take() (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p := l.pending
	l.pending = ""
	return p, p != ""
}

// History returns every target requested so far.
func (l *Latch) History() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.history...)
}
