package view

import (
	"context"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/eventhub/internal/log"
	"github.com/Shivanand-hulikatti/eventhub/internal/model"
	"github.com/Shivanand-hulikatti/eventhub/internal/notify"
	"github.com/Shivanand-hulikatti/eventhub/internal/route"
)

// DeleteState is the position in the two-step delete flow.
type DeleteState int

const (
	DeleteIdle DeleteState = iota
	DeleteConfirmPending
	DeleteDeleting
	DeleteDone
)

func (s DeleteState) String() string {
	switch s {
	case DeleteConfirmPending:
		return "ConfirmPending"
	case DeleteDeleting:
		return "Deleting"
	case DeleteDone:
		return "Deleted"
	default:
		return "Idle"
	}
}

// SubscribeAction is the subscription button to offer, if any.
type SubscribeAction int

const (
	ActionNone SubscribeAction = iota
	ActionSubscribe
	ActionUnsubscribe
)

// DetailState is a snapshot of the event detail page.
type DetailState struct {
	EventID      model.ID
	Event        *model.Event
	Loading      bool
	Err          *Failure
	IsSubscribed bool
	Subscribing  bool
	Delete       DeleteState
}

// Deleting reports whether the delete request is in flight.
func (s DetailState) Deleting() bool { return s.Delete == DeleteDeleting }

// DeleteConfirmationOpen reports whether the confirmation dialog is shown.
func (s DetailState) DeleteConfirmationOpen() bool { return s.Delete == DeleteConfirmPending }

// Deleted reports whether the event was deleted. The view is frozen.
func (s DetailState) Deleted() bool { return s.Delete == DeleteDone }

// Unavailable reports whether the page has nothing to show but a way back
// to the list.
func (s DetailState) Unavailable() bool { return !s.Loading && s.Event == nil }

// SubscribeAction hides subscribing once the event is full; a subscribed
// viewer may always unsubscribe.
func (s DetailState) SubscribeAction() SubscribeAction {
	switch {
	case s.Event == nil:
		return ActionNone
	case s.IsSubscribed:
		return ActionUnsubscribe
	case s.Event.IsFull():
		return ActionNone
	default:
		return ActionSubscribe
	}
}

// Detail drives the event detail page: load, subscribe toggle and the
// confirmation-gated delete.
type Detail struct {
	events  EventService
	viewers viewerFunc
	nav     route.Navigator
	notices *notify.Center
	log     *log.Logger
	rep     reporter

	mu     sync.Mutex
	gen    uint64
	closed bool
	st     DetailState
}

type viewerFunc func() (model.Viewer, bool)

// NewDetail returns an idle detail view. Call Load to fetch an event.
func NewDetail(d Deps) *Detail {
	d = d.withDefaults()
	v := &Detail{
		events:  d.Events,
		nav:     d.Nav,
		notices: d.Notices,
		log:     d.Log,
		rep:     reporter{notices: d.Notices, log: d.Log},
	}
	v.viewers = func() (model.Viewer, bool) { return model.Viewer{}, false }
	if d.Viewers != nil {
		v.viewers = d.Viewers.CurrentViewer
	}
	return v
}

// State returns a snapshot for rendering.
func (d *Detail) State() DetailState {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := d.st
	st.Event = copyEvent(d.st.Event)
	st.Err = copyFailure(d.st.Err)
	return st
}

// live reports whether results of generation gen may still be applied.
func (d *Detail) live(gen uint64) bool {
	return !d.closed && gen == d.gen
}

// Load fetches the event and, for a signed-in viewer, its subscription
// status. Both are committed together or not at all. A newer Load, Close
// or a completed delete discards the results.
func (d *Detail) Load(ctx context.Context, id model.ID) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.gen++
	gen := d.gen
	d.st = DetailState{EventID: id, Loading: true, Err: d.rep.dismiss(d.st.Err)}
	d.mu.Unlock()

	e, err := d.events.GetEvent(ctx, id)
	subscribed := false
	if err == nil {
		if _, ok := d.viewers(); ok {
			subscribed, err = d.events.CheckSubscription(ctx, id)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.live(gen) {
		d.log.Debug("discarding stale load", "event", id)
		return
	}
	d.st.Loading = false
	if err != nil {
		d.st.Event = nil
		d.st.IsSubscribed = false
		d.st.Err = d.rep.fail(d.st.Err, LoadFailed, messageFor(err, "Could not load the event. Please try again."), err)
		return
	}
	d.st.Event = e
	d.st.IsSubscribed = subscribed
}

// ToggleSubscription subscribes or unsubscribes the viewer. Without a
// viewer it navigates to the login page instead. A call made while a
// toggle is running is ignored.
func (d *Detail) ToggleSubscription(ctx context.Context) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	if _, ok := d.viewers(); !ok {
		target := route.LoginPath(route.EventPath(d.st.EventID))
		d.mu.Unlock()
		d.nav.Navigate(target)
		return
	}
	if d.st.Subscribing || d.st.Loading || d.st.Delete == DeleteDeleting || d.st.SubscribeAction() == ActionNone {
		d.mu.Unlock()
		return
	}
	d.st.Subscribing = true
	gen, id, was := d.gen, d.st.EventID, d.st.IsSubscribed
	d.mu.Unlock()

	var err error
	if was {
		err = d.events.Unsubscribe(ctx, id)
	} else {
		err = d.events.Subscribe(ctx, id)
	}

	d.mu.Lock()
	if !d.live(gen) {
		d.mu.Unlock()
		return
	}
	if err != nil {
		d.st.Subscribing = false
		d.st.Err = d.rep.fail(d.st.Err, SubscriptionFailed, messageFor(err, "Could not update your subscription. Please try again."), err)
		d.mu.Unlock()
		return
	}
	d.st.IsSubscribed = !was
	d.mu.Unlock()

	// The server is the source of truth for the counter and the status;
	// ask again only after the toggle has been answered.
	e, ferr := d.events.GetEvent(ctx, id)
	subscribed, cerr := !was, error(nil)
	if ferr == nil {
		subscribed, cerr = d.events.CheckSubscription(ctx, id)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.live(gen) {
		return
	}
	d.st.Subscribing = false
	if ferr == nil {
		d.st.Event = e
	}
	if ferr == nil && cerr == nil {
		d.st.IsSubscribed = subscribed
	}
	if err := firstErr(ferr, cerr); err != nil {
		d.st.Err = d.rep.fail(d.st.Err, LoadFailed, messageFor(err, "Could not refresh the event. Please reload the page."), err)
		return
	}
	msg := "You are subscribed to this event."
	if was {
		msg = "Your subscription was cancelled."
	}
	d.notices.Post("Subscription", notify.Success, msg, notify.SuccessTTL)
}

// RequestDelete opens the confirmation dialog. Without a viewer it
// navigates to the login page instead.
func (d *Detail) RequestDelete() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	if _, ok := d.viewers(); !ok {
		target := route.LoginPath(route.EventPath(d.st.EventID))
		d.mu.Unlock()
		d.nav.Navigate(target)
		return
	}
	if d.st.Event != nil && d.st.Delete == DeleteIdle && !d.st.Subscribing {
		d.st.Delete = DeleteConfirmPending
	}
	d.mu.Unlock()
}

// CancelDelete closes the confirmation dialog.
func (d *Detail) CancelDelete() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed && d.st.Delete == DeleteConfirmPending {
		d.st.Delete = DeleteIdle
	}
}

// ConfirmDelete deletes the event. It only acts while the confirmation
// dialog is open. On success the view navigates to the event list once
// and stops accepting operations.
func (d *Detail) ConfirmDelete(ctx context.Context) {
	d.mu.Lock()
	if d.closed || d.st.Delete != DeleteConfirmPending {
		d.mu.Unlock()
		return
	}
	d.st.Delete = DeleteDeleting
	gen, id := d.gen, d.st.EventID
	d.mu.Unlock()

	err := d.events.DeleteEvent(ctx, id)

	d.mu.Lock()
	if !d.live(gen) {
		d.mu.Unlock()
		return
	}
	if err != nil {
		d.st.Delete = DeleteIdle
		d.st.Err = d.rep.fail(d.st.Err, DeleteFailed, messageFor(err, "Could not delete the event. Please try again."), err)
		d.mu.Unlock()
		return
	}
	d.st.Delete = DeleteDone
	d.closed = true
	d.mu.Unlock()

	d.log.Info("event deleted", "event", id)
	d.notices.Post("Deleted", notify.Success, "Event deleted.", notify.SuccessTTL)
	d.nav.Navigate(route.Events)
}

// Edit navigates to the edit page, or to the login page without a viewer.
func (d *Detail) Edit() {
	d.mu.Lock()
	if d.closed || d.st.Event == nil {
		d.mu.Unlock()
		return
	}
	target := route.EditPath(d.st.EventID)
	if _, ok := d.viewers(); !ok {
		target = route.LoginPath(target)
	}
	d.mu.Unlock()
	d.nav.Navigate(target)
}

// BackToList leaves the page for the event list. In-flight results are
// discarded.
func (d *Detail) BackToList() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()
	d.nav.Navigate(route.Events)
}

// DismissError clears the error and its notice.
func (d *Detail) DismissError() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		d.st.Err = d.rep.dismiss(d.st.Err)
	}
}

// Tick expires due notices; an error whose notice expired is cleared.
func (d *Detail) Tick(now time.Time) {
	d.notices.Expire(now)
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		d.st.Err = d.rep.expired(d.st.Err)
	}
}

// Close tears the view down. Results of requests still in flight are
// dropped and no further navigation happens.
func (d *Detail) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.gen++
}

// Closed reports whether the view was torn down or deleted its event.
func (d *Detail) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
