package view

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/eventhub/internal/model"
	"github.com/Shivanand-hulikatti/eventhub/internal/notify"
	"github.com/Shivanand-hulikatti/eventhub/internal/route"
)

// DefaultRedirectDelay is how long the success notice stays up before the
// form navigates away.
const DefaultRedirectDelay = 2 * time.Second

// Form field layouts.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// FormMode tells a create form from an edit form.
type FormMode int

const (
	CreateMode FormMode = iota
	EditMode
)

// FormFields are the raw inputs as typed by the viewer.
type FormFields struct {
	Title       string
	Date        string // YYYY-MM-DD
	Time        string // HH:MM
	Location    string
	Description string
	Capacity    string
}

// FieldsFromEvent fills the form from an existing event. The date and
// time are the wall clock of the event's own zone, so saving an unchanged
// form sends the same local date-time back.
func FieldsFromEvent(e *model.Event) FormFields {
	t := e.Date.Time
	return FormFields{
		Title:       e.Title,
		Date:        t.Format(DateLayout),
		Time:        t.Format(TimeLayout),
		Location:    e.Location,
		Description: e.Description,
		Capacity:    strconv.Itoa(e.Capacity),
	}
}

// Input validates the fields and builds the request body. The first
// failing rule wins, checked in the order title, date, time, location,
// capacity. A field's format is checked right after its presence.
func (f FormFields) Input() (model.EventInput, error) {
	title := strings.TrimSpace(f.Title)
	date := strings.TrimSpace(f.Date)
	clock := strings.TrimSpace(f.Time)
	location := strings.TrimSpace(f.Location)
	switch {
	case title == "":
		return model.EventInput{}, formError("Title is required.")
	case date == "":
		return model.EventInput{}, formError("Date is required.")
	case !matches(DateLayout, date):
		return model.EventInput{}, formError("Date must be in YYYY-MM-DD format.")
	case clock == "":
		return model.EventInput{}, formError("Time is required.")
	case !matches(TimeLayout, clock):
		return model.EventInput{}, formError("Time must be in HH:MM format.")
	case location == "":
		return model.EventInput{}, formError("Location is required.")
	}
	capacity, err := strconv.Atoi(strings.TrimSpace(f.Capacity))
	if err != nil || capacity <= 0 {
		return model.EventInput{}, formError("Capacity must be greater than zero.")
	}
	when, err := model.ParseDateTime(date + "T" + clock + ":00")
	if err != nil {
		return model.EventInput{}, err
	}

	in := model.EventInput{
		Title:       title,
		Date:        when,
		Location:    location,
		Description: strings.TrimSpace(f.Description),
		Capacity:    capacity,
	}
	if err := in.Validate(); err != nil {
		return model.EventInput{}, err
	}
	return in, nil
}

func matches(layout, s string) bool {
	_, err := time.Parse(layout, s)
	return err == nil
}

// formError is a validation message meant for display as is.
type formError string

func (e formError) Error() string { return string(e) }

// FormState is a snapshot of the create or edit page.
type FormState struct {
	Mode    FormMode
	EventID model.ID // edit mode only
	Fields  FormFields
	Loading bool
	Saving  bool
	Saved   bool
	Err     *Failure
	// Target is where the form navigates after a successful save.
	Target string
	// RedirectAt is when that navigation is due.
	RedirectAt time.Time
}

// Form drives the create and edit pages.
type Form struct {
	// RedirectDelay separates a successful save from the navigation. Zero
	// navigates immediately.
	RedirectDelay time.Duration

	deps Deps
	rep  reporter

	mu     sync.Mutex
	gen    uint64
	closed bool
	st     FormState
}

// NewCreateForm returns an empty create form.
func NewCreateForm(d Deps) *Form {
	d = d.withDefaults()
	return &Form{
		RedirectDelay: DefaultRedirectDelay,
		deps:          d,
		rep:           reporter{notices: d.Notices, log: d.Log},
		st:            FormState{Mode: CreateMode},
	}
}

// NewEditForm returns an edit form for id. Call Load to fill it.
func NewEditForm(d Deps, id model.ID) *Form {
	f := NewCreateForm(d)
	f.st = FormState{Mode: EditMode, EventID: id, Loading: true}
	return f
}

// State returns a snapshot for rendering.
func (f *Form) State() FormState {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := f.st
	st.Err = copyFailure(f.st.Err)
	return st
}

// Load fills an edit form from the server.
func (f *Form) Load(ctx context.Context) {
	f.mu.Lock()
	if f.closed || f.st.Mode != EditMode || f.st.Saving {
		f.mu.Unlock()
		return
	}
	f.gen++
	gen, id := f.gen, f.st.EventID
	f.st.Loading = true
	f.mu.Unlock()

	e, err := f.deps.Events.GetEvent(ctx, id)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || gen != f.gen {
		return
	}
	f.st.Loading = false
	if err != nil {
		f.st.Err = f.rep.fail(f.st.Err, LoadFailed, messageFor(err, "Could not load the event. Please try again."), err)
		return
	}
	f.st.Fields = FieldsFromEvent(e)
}

// SetFields replaces the inputs. It is ignored while saving.
func (f *Form) SetFields(fields FormFields) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed && !f.st.Saving && !f.st.Saved {
		f.st.Fields = fields
	}
}

// Submit validates and saves the form. A second call while saving is
// ignored.
func (f *Form) Submit(ctx context.Context) {
	f.mu.Lock()
	if f.closed || f.st.Saving || f.st.Saved || f.st.Loading {
		f.mu.Unlock()
		return
	}
	if f.deps.Viewers != nil {
		if _, ok := f.deps.Viewers.CurrentViewer(); !ok {
			target := route.LoginPath(f.pagePath())
			f.mu.Unlock()
			f.deps.Nav.Navigate(target)
			return
		}
	}
	in, err := f.st.Fields.Input()
	if err != nil {
		f.st.Err = f.rep.fail(f.st.Err, ValidationFailed, validationMessage(err), nil)
		f.mu.Unlock()
		return
	}
	f.st.Err = f.rep.dismiss(f.st.Err)
	f.st.Saving = true
	gen, mode, id := f.gen, f.st.Mode, f.st.EventID
	f.mu.Unlock()

	var saved *model.Event
	if mode == EditMode {
		saved, err = f.deps.Events.UpdateEvent(ctx, id, in)
	} else {
		saved, err = f.deps.Events.CreateEvent(ctx, in)
	}

	f.mu.Lock()
	if f.closed || gen != f.gen {
		f.mu.Unlock()
		return
	}
	f.st.Saving = false
	if err != nil {
		fallback := "Could not create the event. Please try again."
		if mode == EditMode {
			fallback = "Could not update the event. Please try again."
		}
		f.st.Err = f.rep.fail(f.st.Err, ValidationFailed, messageFor(err, fallback), err)
		f.mu.Unlock()
		return
	}

	f.st.Saved = true
	msg := "Event created."
	switch {
	case mode == EditMode:
		msg = "Event updated."
		f.st.Target = route.EventPath(id)
	case saved != nil && saved.ID != "":
		f.st.Target = route.EventPath(saved.ID)
	default:
		f.st.Target = route.Events
	}
	f.deps.Notices.Post("Saved", notify.Success, msg, notify.SuccessTTL)
	f.deps.Log.Info("event saved", "mode", mode, "target", f.st.Target)

	if f.RedirectDelay <= 0 {
		target := f.st.Target
		f.closed = true
		f.mu.Unlock()
		f.deps.Nav.Navigate(target)
		return
	}
	f.st.RedirectAt = f.deps.Notices.Now().Add(f.RedirectDelay)
	f.mu.Unlock()
}

// Tick expires notices and performs a due redirect, once.
func (f *Form) Tick(now time.Time) {
	f.deps.Notices.Expire(now)

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.st.Err = f.rep.expired(f.st.Err)
	if !f.st.Saved || now.Before(f.st.RedirectAt) {
		f.mu.Unlock()
		return
	}
	target := f.st.Target
	f.closed = true
	f.mu.Unlock()
	f.deps.Nav.Navigate(target)
}

// Cancel leaves the form without saving. It is ignored while saving.
func (f *Form) Cancel() {
	f.mu.Lock()
	if f.closed || f.st.Saving {
		f.mu.Unlock()
		return
	}
	target := route.Events
	if f.st.Mode == EditMode {
		target = route.EventPath(f.st.EventID)
	}
	f.closed = true
	f.mu.Unlock()
	f.deps.Nav.Navigate(target)
}

// DismissError clears the error and its notice.
func (f *Form) DismissError() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.st.Err = f.rep.dismiss(f.st.Err)
}

// Close drops in-flight results and pending redirects.
func (f *Form) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

// Closed reports whether the form navigated away or was torn down.
func (f *Form) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *Form) pagePath() string {
	if f.st.Mode == EditMode {
		return route.EditPath(f.st.EventID)
	}
	return route.CreateEvent
}

func validationMessage(err error) string {
	var verr *model.ValidationError
	if errors.As(err, &verr) && len(verr.Fields) > 0 {
		return verr.Fields[0].Message()
	}
	return err.Error()
}
