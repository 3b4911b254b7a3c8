package view

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/eventhub/internal/api"
	"github.com/Shivanand-hulikatti/eventhub/internal/model"
	"github.com/Shivanand-hulikatti/eventhub/internal/notify"
)

func loaded(t *testing.T, fx *fixture, id model.ID) *Detail {
	t.Helper()
	d := NewDetail(fx.deps())
	d.Load(context.Background(), id)
	require.NotNil(t, d.State().Event)
	return d
}

func TestLoadSignedIn(t *testing.T) {
	fx := newFixture(t, signedIn(), workshop("1", 50, 30))
	fx.events.subscribed["1"] = true

	d := loaded(t, fx, "1")
	st := d.State()
	assert.False(t, st.Loading)
	assert.Nil(t, st.Err)
	assert.True(t, st.IsSubscribed)
	assert.Equal(t, 30, st.Event.SubscribedCount)
	assert.Equal(t, []string{"get", "check"}, fx.events.Calls())
}

func TestLoadAnonymousSkipsSubscriptionCheck(t *testing.T) {
	fx := newFixture(t, anonymous(), workshop("1", 50, 30))
	fx.events.subscribed["1"] = true

	d := loaded(t, fx, "1")
	assert.False(t, d.State().IsSubscribed)
	assert.Equal(t, []string{"get"}, fx.events.Calls())
}

func TestLoadIsIdempotent(t *testing.T) {
	fx := newFixture(t, signedIn(), workshop("1", 50, 30))
	d := loaded(t, fx, "1")
	first := d.State()

	d.Load(context.Background(), "1")
	second := d.State()
	assert.Equal(t, first.Event, second.Event)
	assert.Equal(t, first.IsSubscribed, second.IsSubscribed)
}

func TestLoadNotFound(t *testing.T) {
	fx := newFixture(t, signedIn())
	d := NewDetail(fx.deps())

	d.Load(context.Background(), "42")
	st := d.State()
	require.NotNil(t, st.Err)
	assert.Equal(t, LoadFailed, st.Err.Kind)
	assert.Equal(t, "Event not found.", st.Err.Message)
	assert.ErrorIs(t, st.Err, api.ErrNotFound)
	assert.Nil(t, st.Event)
	assert.True(t, st.Unavailable())

	active := fx.notices.Active()
	require.Len(t, active, 1)
	assert.Equal(t, notify.Error, active[0].Severity)

	d.BackToList()
	assert.Equal(t, []string{"/events"}, fx.nav.History())
}

func TestLoadCheckFailureLeavesEventAbsent(t *testing.T) {
	fx := newFixture(t, signedIn(), workshop("1", 50, 30))
	fx.events.fail("check", errors.New("connection reset"))

	d := NewDetail(fx.deps())
	d.Load(context.Background(), "1")
	st := d.State()
	require.NotNil(t, st.Err)
	assert.Equal(t, LoadFailed, st.Err.Kind)
	assert.Nil(t, st.Event)
}

func TestStaleLoadIsDiscarded(t *testing.T) {
	fx := newFixture(t, signedIn(), workshop("1", 50, 30), workshop("2", 10, 0))
	d := NewDetail(fx.deps())

	release := fx.events.hold("get")
	done := make(chan struct{})
	go func() {
		d.Load(context.Background(), "1")
		close(done)
	}()
	fx.await(t, "get")

	d.Load(context.Background(), "2")
	release()
	<-done

	st := d.State()
	assert.Equal(t, model.ID("2"), st.EventID)
	require.NotNil(t, st.Event)
	assert.Equal(t, model.ID("2"), st.Event.ID)
	assert.False(t, st.Loading)
}

func TestSubscribeRoundTrip(t *testing.T) {
	fx := newFixture(t, signedIn(), workshop("1", 50, 30))
	d := loaded(t, fx, "1")
	ctx := context.Background()

	d.ToggleSubscription(ctx)
	st := d.State()
	assert.True(t, st.IsSubscribed)
	assert.Equal(t, 31, st.Event.SubscribedCount)
	assert.False(t, st.Subscribing)
	assert.Equal(t, ActionUnsubscribe, st.SubscribeAction())

	d.ToggleSubscription(ctx)
	st = d.State()
	assert.False(t, st.IsSubscribed)
	assert.Equal(t, 30, st.Event.SubscribedCount)
	assert.Equal(t, ActionSubscribe, st.SubscribeAction())
}

func TestToggleRefetchesAfterResponse(t *testing.T) {
	fx := newFixture(t, signedIn(), workshop("1", 50, 30))
	d := loaded(t, fx, "1")
	before := len(fx.events.Calls())

	d.ToggleSubscription(context.Background())
	assert.Equal(t, []string{"subscribe", "get", "check"}, fx.events.Calls()[before:])
}

func TestReentrantToggleIssuesOneCall(t *testing.T) {
	fx := newFixture(t, signedIn(), workshop("1", 50, 30))
	d := loaded(t, fx, "1")
	ctx := context.Background()

	release := fx.events.hold("subscribe")
	done := make(chan struct{})
	go func() {
		d.ToggleSubscription(ctx)
		close(done)
	}()
	fx.await(t, "subscribe")

	for i := 0; i < 5; i++ {
		d.ToggleSubscription(ctx)
	}
	assert.True(t, d.State().Subscribing)

	release()
	<-done
	assert.Equal(t, 1, fx.events.count("subscribe"))
	assert.False(t, d.State().Subscribing)
	assert.True(t, d.State().IsSubscribed)
}

func TestToggleWithoutViewerGoesToLogin(t *testing.T) {
	fx := newFixture(t, anonymous(), workshop("1", 50, 30))
	d := loaded(t, fx, "1")
	before := len(fx.events.Calls())

	d.ToggleSubscription(context.Background())
	assert.Len(t, fx.events.Calls(), before)
	assert.Equal(t, []string{"/login?next=%2Fevents%2F1"}, fx.nav.History())
	assert.False(t, d.State().Subscribing)
}

func TestToggleFailureKeepsStatus(t *testing.T) {
	fx := newFixture(t, signedIn(), workshop("1", 50, 30))
	d := loaded(t, fx, "1")
	fx.events.fail("subscribe", &api.StatusError{Method: "POST", Status: http.StatusConflict, Message: "event is fully booked"})

	d.ToggleSubscription(context.Background())
	st := d.State()
	assert.False(t, st.IsSubscribed)
	assert.False(t, st.Subscribing)
	require.NotNil(t, st.Err)
	assert.Equal(t, SubscriptionFailed, st.Err.Kind)
	assert.Equal(t, "event is fully booked", st.Err.Message)
	assert.Equal(t, 30, st.Event.SubscribedCount)
}

func TestRefetchFailureKeepsFlippedStatus(t *testing.T) {
	fx := newFixture(t, signedIn(), workshop("1", 50, 30))
	d := loaded(t, fx, "1")
	fx.events.fail("get", errors.New("timeout"))

	d.ToggleSubscription(context.Background())
	st := d.State()
	assert.True(t, st.IsSubscribed)
	assert.False(t, st.Subscribing)
	require.NotNil(t, st.Err)
	assert.Equal(t, LoadFailed, st.Err.Kind)
	require.NotNil(t, st.Event)
	assert.Equal(t, 30, st.Event.SubscribedCount)
}

func TestSubscribeAction(t *testing.T) {
	tests := []struct {
		name       string
		event      *model.Event
		subscribed bool
		want       SubscribeAction
	}{
		{name: "not loaded", want: ActionNone},
		{name: "open seats", event: eventPtr(workshop("1", 50, 30)), want: ActionSubscribe},
		{name: "full, not subscribed", event: eventPtr(workshop("1", 50, 50)), want: ActionNone},
		{name: "full, subscribed", event: eventPtr(workshop("1", 50, 50)), subscribed: true, want: ActionUnsubscribe},
		{name: "open, subscribed", event: eventPtr(workshop("1", 50, 3)), subscribed: true, want: ActionUnsubscribe},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := DetailState{Event: tt.event, IsSubscribed: tt.subscribed}
			assert.Equal(t, tt.want, st.SubscribeAction())
		})
	}
}

func TestToggleOnFullEventIsIgnored(t *testing.T) {
	fx := newFixture(t, signedIn(), workshop("1", 50, 50))
	d := loaded(t, fx, "1")
	before := len(fx.events.Calls())

	d.ToggleSubscription(context.Background())
	assert.Len(t, fx.events.Calls(), before)
}

func TestCloseDiscardsInFlightToggle(t *testing.T) {
	fx := newFixture(t, signedIn(), workshop("1", 50, 30))
	d := loaded(t, fx, "1")

	release := fx.events.hold("subscribe")
	done := make(chan struct{})
	go func() {
		d.ToggleSubscription(context.Background())
		close(done)
	}()
	fx.await(t, "subscribe")
	d.Close()
	release()
	<-done

	assert.False(t, d.State().IsSubscribed)
	assert.Equal(t, 1, fx.events.count("get"))
	assert.Empty(t, fx.nav.History())
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	fx := newFixture(t, signedIn(), workshop("1", 50, 30))
	d := loaded(t, fx, "1")
	ctx := context.Background()

	d.ConfirmDelete(ctx)
	assert.Equal(t, DeleteIdle, d.State().Delete)
	assert.Zero(t, fx.events.count("delete"))

	d.RequestDelete()
	assert.True(t, d.State().DeleteConfirmationOpen())
	d.CancelDelete()
	assert.Equal(t, DeleteIdle, d.State().Delete)
	assert.Zero(t, fx.events.count("delete"))
	assert.Empty(t, fx.nav.History())
}

func TestDeleteSuccessNavigatesOnce(t *testing.T) {
	fx := newFixture(t, signedIn(), workshop("1", 50, 30))
	d := loaded(t, fx, "1")
	ctx := context.Background()

	d.RequestDelete()
	d.ConfirmDelete(ctx)
	st := d.State()
	assert.True(t, st.Deleted())
	assert.Equal(t, []string{"/events"}, fx.nav.History())

	calls := len(fx.events.Calls())
	d.ConfirmDelete(ctx)
	d.ToggleSubscription(ctx)
	d.RequestDelete()
	d.Load(ctx, "1")
	d.BackToList()
	d.DismissError()

	assert.Equal(t, st, d.State())
	assert.Len(t, fx.events.Calls(), calls)
	assert.Equal(t, []string{"/events"}, fx.nav.History())
	assert.True(t, d.Closed())
}

func TestReentrantConfirmIssuesOneCall(t *testing.T) {
	fx := newFixture(t, signedIn(), workshop("1", 50, 30))
	d := loaded(t, fx, "1")
	ctx := context.Background()
	d.RequestDelete()

	release := fx.events.hold("delete")
	done := make(chan struct{})
	go func() {
		d.ConfirmDelete(ctx)
		close(done)
	}()
	fx.await(t, "delete")

	assert.True(t, d.State().Deleting())
	d.ConfirmDelete(ctx)
	d.CancelDelete()
	d.ToggleSubscription(ctx)
	assert.True(t, d.State().Deleting())

	release()
	<-done
	assert.Equal(t, 1, fx.events.count("delete"))
	assert.Zero(t, fx.events.count("subscribe"))
	assert.Equal(t, []string{"/events"}, fx.nav.History())
}

func TestDeleteFailureReturnsToIdle(t *testing.T) {
	fx := newFixture(t, signedIn(), workshop("1", 50, 30))
	d := loaded(t, fx, "1")
	ctx := context.Background()
	fx.events.fail("delete", &api.StatusError{Method: "DELETE", Status: http.StatusForbidden})

	d.RequestDelete()
	d.ConfirmDelete(ctx)
	st := d.State()
	assert.Equal(t, DeleteIdle, st.Delete)
	assert.False(t, st.DeleteConfirmationOpen())
	require.NotNil(t, st.Err)
	assert.Equal(t, DeleteFailed, st.Err.Kind)
	assert.Equal(t, "Could not delete the event. Please try again.", st.Err.Message)
	assert.Empty(t, fx.nav.History())

	d.RequestDelete()
	assert.True(t, d.State().DeleteConfirmationOpen())
}

func TestDeleteWithoutViewerGoesToLogin(t *testing.T) {
	fx := newFixture(t, anonymous(), workshop("1", 50, 30))
	d := loaded(t, fx, "1")

	d.RequestDelete()
	assert.Equal(t, DeleteIdle, d.State().Delete)
	assert.Equal(t, []string{"/login?next=%2Fevents%2F1"}, fx.nav.History())
}

func TestDeleteBlockedWhileSubscribing(t *testing.T) {
	fx := newFixture(t, signedIn(), workshop("1", 50, 30))
	d := loaded(t, fx, "1")

	release := fx.events.hold("subscribe")
	done := make(chan struct{})
	go func() {
		d.ToggleSubscription(context.Background())
		close(done)
	}()
	fx.await(t, "subscribe")

	d.RequestDelete()
	assert.Equal(t, DeleteIdle, d.State().Delete)

	release()
	<-done
}

func TestErrorNoticeExpires(t *testing.T) {
	fx := newFixture(t, signedIn())
	d := NewDetail(fx.deps())
	d.Load(context.Background(), "404")
	require.NotNil(t, d.State().Err)

	d.Tick(fx.now.Add(notify.ErrorTTL - time.Millisecond))
	assert.NotNil(t, d.State().Err)

	d.Tick(fx.now.Add(notify.ErrorTTL))
	assert.Nil(t, d.State().Err)
	assert.Empty(t, fx.notices.Active())
	assert.True(t, d.State().Unavailable())
}

func TestDismissError(t *testing.T) {
	fx := newFixture(t, signedIn())
	d := NewDetail(fx.deps())
	d.Load(context.Background(), "404")
	require.NotNil(t, d.State().Err)

	d.DismissError()
	assert.Nil(t, d.State().Err)
	assert.Empty(t, fx.notices.Active())
}

func TestEditNavigation(t *testing.T) {
	tests := []struct {
		name    string
		viewers *viewerStub
		want    string
	}{
		{name: "signed in", viewers: signedIn(), want: "/events/edit/1"},
		{name: "anonymous", viewers: anonymous(), want: "/login?next=%2Fevents%2Fedit%2F1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t, tt.viewers, workshop("1", 5, 0))
			d := loaded(t, fx, "1")
			d.Edit()
			assert.Equal(t, []string{tt.want}, fx.nav.History())
		})
	}
}

func eventPtr(e model.Event) *model.Event { return &e }
