package view

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/eventhub/internal/api"
	"github.com/Shivanand-hulikatti/eventhub/internal/model"
	"github.com/Shivanand-hulikatti/eventhub/internal/notify"
	"github.com/Shivanand-hulikatti/eventhub/internal/route"
)

// fakeEvents is an EventService that records calls and can fail or hold
// any operation.
type fakeEvents struct {
	mu         sync.Mutex
	events     map[model.ID]model.Event
	subscribed map[model.ID]bool
	calls      []string
	errs       map[string]error
	holds      map[string]chan struct{}
	started    chan string
	nextID     int
	created    *model.EventInput
	updated    *model.EventInput
	noBody     bool
}

func newFakeEvents(events ...model.Event) *fakeEvents {
	f := &fakeEvents{
		events:     make(map[model.ID]model.Event),
		subscribed: make(map[model.ID]bool),
		errs:       make(map[string]error),
		holds:      make(map[string]chan struct{}),
		started:    make(chan string, 16),
		nextID:     100,
	}
	for _, e := range events {
		f.events[e.ID] = e
	}
	return f
}

// hold makes the next call of op block until release is called. Later
// calls pass through.
func (f *fakeEvents) hold(op string) (release func()) {
	ch := make(chan struct{})
	f.mu.Lock()
	f.holds[op] = ch
	f.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

func (f *fakeEvents) fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[op] = err
}

func (f *fakeEvents) enter(op string) error {
	f.mu.Lock()
	f.calls = append(f.calls, op)
	ch := f.holds[op]
	delete(f.holds, op)
	err := f.errs[op]
	f.mu.Unlock()
	if ch != nil {
		f.started <- op
		<-ch
	}
	return err
}

func (f *fakeEvents) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeEvents) count(op string) int {
	n := 0
	for _, c := range f.Calls() {
		if c == op {
			n++
		}
	}
	return n
}

func (f *fakeEvents) ListEvents(ctx context.Context) ([]model.Event, error) {
	if err := f.enter("list"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Event, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeEvents) GetEvent(ctx context.Context, id model.ID) (*model.Event, error) {
	if err := f.enter("get"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return nil, &api.StatusError{Method: "GET", Path: "/events/" + string(id), Status: 404}
	}
	return &e, nil
}

func (f *fakeEvents) CreateEvent(ctx context.Context, in model.EventInput) (*model.Event, error) {
	if err := f.enter("create"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = &in
	if f.noBody {
		return nil, nil
	}
	f.nextID++
	e := model.Event{ID: model.ID(strconv.Itoa(f.nextID)), Title: in.Title, Date: in.Date, Location: in.Location, Description: in.Description, Capacity: in.Capacity}
	f.events[e.ID] = e
	return &e, nil
}

func (f *fakeEvents) UpdateEvent(ctx context.Context, id model.ID, in model.EventInput) (*model.Event, error) {
	if err := f.enter("update"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = &in
	e := f.events[id]
	e.Title, e.Date, e.Location, e.Description, e.Capacity = in.Title, in.Date, in.Location, in.Description, in.Capacity
	f.events[id] = e
	return &e, nil
}

func (f *fakeEvents) DeleteEvent(ctx context.Context, id model.ID) error {
	if err := f.enter("delete"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.events, id)
	return nil
}

func (f *fakeEvents) CheckSubscription(ctx context.Context, id model.ID) (bool, error) {
	if err := f.enter("check"); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subscribed[id], nil
}

func (f *fakeEvents) Subscribe(ctx context.Context, id model.ID) error {
	if err := f.enter("subscribe"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	e := f.events[id]
	e.SubscribedCount++
	f.events[id] = e
	f.subscribed[id] = true
	return nil
}

func (f *fakeEvents) Unsubscribe(ctx context.Context, id model.ID) error {
	if err := f.enter("unsubscribe"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	e := f.events[id]
	e.SubscribedCount--
	f.events[id] = e
	f.subscribed[id] = false
	return nil
}

// viewerStub is an auth.Viewers with a settable viewer.
type viewerStub struct {
	mu sync.Mutex
	v  *model.Viewer
}

func signedIn() *viewerStub {
	return &viewerStub{v: &model.Viewer{Email: "ana@example.com", Name: "Ana", Token: "tok"}}
}

func anonymous() *viewerStub { return &viewerStub{} }

func (s *viewerStub) CurrentViewer() (model.Viewer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.v == nil {
		return model.Viewer{}, false
	}
	return *s.v, true
}

type fixture struct {
	events  *fakeEvents
	viewers *viewerStub
	nav     *route.Latch
	notices *notify.Center
	now     time.Time
}

func newFixture(t *testing.T, viewers *viewerStub, events ...model.Event) *fixture {
	t.Helper()
	fx := &fixture{
		events:  newFakeEvents(events...),
		viewers: viewers,
		nav:     &route.Latch{},
		now:     time.Date(2024, 12, 1, 9, 0, 0, 0, time.Local),
	}
	fx.notices = notify.New(func() time.Time { return fx.now })
	return fx
}

func (fx *fixture) deps() Deps {
	return Deps{Events: fx.events, Viewers: fx.viewers, Nav: fx.nav, Notices: fx.notices}
}

func (fx *fixture) await(t *testing.T, op string) {
	t.Helper()
	select {
	case got := <-fx.events.started:
		if got != op {
			t.Fatalf("started %q, want %q", got, op)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %q", op)
	}
}

func workshop(id model.ID, capacity, subscribed int) model.Event {
	when, _ := model.ParseDateTime("2024-12-01T10:00:00")
	return model.Event{
		ID:              id,
		Title:           "Workshop de React",
		Date:            when,
		Location:        "Auditório Principal",
		Description:     "Hooks, context and good practices.",
		Capacity:        capacity,
		SubscribedCount: subscribed,
	}
}
