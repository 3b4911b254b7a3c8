package view

import (
	"context"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/eventhub/internal/model"
	"github.com/Shivanand-hulikatti/eventhub/internal/route"
)

// ListState is a snapshot of the event list page.
type ListState struct {
	Events  []model.Event
	Loading bool
	Err     *Failure
}

// List drives the event list page.
type List struct {
	deps Deps
	rep  reporter

	mu  sync.Mutex
	gen uint64
	st  ListState
}

// NewList returns an empty list view.
func NewList(d Deps) *List {
	d = d.withDefaults()
	return &List{deps: d, rep: reporter{notices: d.Notices, log: d.Log}}
}

// State returns a snapshot for rendering.
func (l *List) State() ListState {
	l.mu.Lock()
	defer l.mu.Unlock()
	st := l.st
	st.Events = append([]model.Event(nil), l.st.Events...)
	st.Err = copyFailure(l.st.Err)
	return st
}

// Load fetches all events. The previous list stays visible while loading.
func (l *List) Load(ctx context.Context) {
	l.mu.Lock()
	l.gen++
	gen := l.gen
	l.st.Loading = true
	l.mu.Unlock()

	events, err := l.deps.Events.ListEvents(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		return
	}
	l.st.Loading = false
	if err != nil {
		l.st.Err = l.rep.fail(l.st.Err, LoadFailed, messageFor(err, "Could not load events. Please try again."), err)
		return
	}
	l.st.Err = l.rep.dismiss(l.st.Err)
	l.st.Events = events
}

// Open navigates to the detail page of id.
func (l *List) Open(id model.ID) {
	l.deps.Nav.Navigate(route.EventPath(id))
}

// Create navigates to the create page, through the login page when no
// viewer is signed in.
func (l *List) Create() {
	if _, ok := l.viewer(); !ok {
		l.deps.Nav.Navigate(route.LoginPath(route.CreateEvent))
		return
	}
	l.deps.Nav.Navigate(route.CreateEvent)
}

func (l *List) viewer() (model.Viewer, bool) {
	if l.deps.Viewers == nil {
		return model.Viewer{}, false
	}
	return l.deps.Viewers.CurrentViewer()
}

// DismissError clears the error and its notice.
func (l *List) DismissError() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.st.Err = l.rep.dismiss(l.st.Err)
}

// Tick expires due notices.
func (l *List) Tick(now time.Time) {
	l.deps.Notices.Expire(now)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.st.Err = l.rep.expired(l.st.Err)
}
