// Package view holds the state machines behind each page. They know
// nothing about rendering: a frontend calls the operations, then renders
// the snapshot returned by State.
//
// Operations block on the network and may be called from several
// goroutines. State is guarded by a mutex that is never held across a
// network call; results that arrive after the view moved on are dropped.
package view

import (
	"context"
	"errors"
	"fmt"

	"github.com/Shivanand-hulikatti/eventhub/internal/api"
	"github.com/Shivanand-hulikatti/eventhub/internal/auth"
	"github.com/Shivanand-hulikatti/eventhub/internal/log"
	"github.com/Shivanand-hulikatti/eventhub/internal/model"
	"github.com/Shivanand-hulikatti/eventhub/internal/notify"
	"github.com/Shivanand-hulikatti/eventhub/internal/route"
)

// EventService is the part of the REST client the view models use.
// *api.Client implements it.
type EventService interface {
	ListEvents(ctx context.Context) ([]model.Event, error)
	GetEvent(ctx context.Context, id model.ID) (*model.Event, error)
	CreateEvent(ctx context.Context, in model.EventInput) (*model.Event, error)
	UpdateEvent(ctx context.Context, id model.ID, in model.EventInput) (*model.Event, error)
	DeleteEvent(ctx context.Context, id model.ID) error
	CheckSubscription(ctx context.Context, id model.ID) (bool, error)
	Subscribe(ctx context.Context, id model.ID) error
	Unsubscribe(ctx context.Context, id model.ID) error
}

var _ EventService = (*api.Client)(nil)

// Deps are the collaborators shared by every view model.
type Deps struct {
	Events  EventService
	Viewers auth.Viewers
	Nav     route.Navigator
	Notices *notify.Center
	Log     *log.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Notices == nil {
		d.Notices = notify.New(nil)
	}
	if d.Log == nil {
		d.Log = log.Nop()
	}
	if d.Nav == nil {
		d.Nav = route.NavigatorFunc(func(string) {})
	}
	return d
}

// ErrorKind classifies a failure shown to the viewer.
type ErrorKind int

const (
	NoError ErrorKind = iota
	LoadFailed
	SubscriptionFailed
	DeleteFailed
	ValidationFailed
	LoginFailed
)

func (k ErrorKind) String() string {
	switch k {
	case LoadFailed:
		return "LoadFailed"
	case SubscriptionFailed:
		return "SubscriptionFailed"
	case DeleteFailed:
		return "DeleteFailed"
	case ValidationFailed:
		return "ValidationFailed"
	case LoginFailed:
		return "LoginFailed"
	default:
		return "NoError"
	}
}

// Failure is the error field of a view state.
type Failure struct {
	Kind    ErrorKind
	Message string // human readable, safe to display
	Notice  int    // id of the matching notify.Notice
	Err     error  // underlying cause, may be nil
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Failure) Unwrap() error { return f.Err }

// reporter owns the error field of one view model. Callers hold the view
// model's mutex.
type reporter struct {
	notices *notify.Center
	log     *log.Logger
}

func (r reporter) fail(prev *Failure, kind ErrorKind, msg string, err error) *Failure {
	if prev != nil {
		r.notices.Dismiss(prev.Notice)
	}
	f := &Failure{Kind: kind, Message: msg, Err: err}
	f.Notice = r.notices.Post(kind.String(), notify.Error, msg, notify.ErrorTTL)
	if err != nil {
		r.log.Warn("view failure", "kind", kind.String(), "msg", msg, "err", err)
	}
	return f
}

func (r reporter) dismiss(f *Failure) *Failure {
	if f != nil {
		r.notices.Dismiss(f.Notice)
	}
	return nil
}

// expired returns nil when the notice behind f is gone, else f.
func (r reporter) expired(f *Failure) *Failure {
	if f != nil && !r.notices.Has(f.Notice) {
		return nil
	}
	return f
}

// messageFor prefers the message the server sent, then a not-found hint,
// then fallback.
func messageFor(err error, fallback string) string {
	if msg := api.ServerMessage(err); msg != "" {
		return msg
	}
	if errors.Is(err, api.ErrNotFound) {
		return "Event not found."
	}
	return fallback
}

func copyEvent(e *model.Event) *model.Event {
	if e == nil {
		return nil
	}
	cp := *e
	return &cp
}

func copyFailure(f *Failure) *Failure {
	if f == nil {
		return nil
	}
	cp := *f
	return &cp
}
