package view

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/eventhub/internal/api"
	"github.com/Shivanand-hulikatti/eventhub/internal/model"
	"github.com/Shivanand-hulikatti/eventhub/internal/notify"
)

var validFields = FormFields{
	Title:       "  Hackathon de Inovação ",
	Date:        "2024-12-20",
	Time:        "14:30",
	Location:    " Lab 3 ",
	Description: " Maratona de programação. ",
	Capacity:    "40",
}

func TestFormFieldsValidationOrder(t *testing.T) {
	tests := []struct {
		name   string
		fields FormFields
		want   string
	}{
		{name: "everything empty", fields: FormFields{}, want: "Title is required."},
		{name: "blank title", fields: FormFields{Title: "   ", Date: "2024-12-20"}, want: "Title is required."},
		{name: "missing date", fields: FormFields{Title: "t", Time: "10:00"}, want: "Date is required."},
		{name: "missing time", fields: FormFields{Title: "t", Date: "2024-12-20"}, want: "Time is required."},
		{name: "missing location", fields: FormFields{Title: "t", Date: "2024-12-20", Time: "10:00", Capacity: "0"}, want: "Location is required."},
		{name: "zero capacity", fields: FormFields{Title: "t", Date: "2024-12-20", Time: "10:00", Location: "l", Capacity: "0"}, want: "Capacity must be greater than zero."},
		{name: "non numeric capacity", fields: FormFields{Title: "t", Date: "2024-12-20", Time: "10:00", Location: "l", Capacity: "many"}, want: "Capacity must be greater than zero."},
		{name: "bad date", fields: FormFields{Title: "t", Date: "20/12/2024", Time: "10:00", Location: "l", Capacity: "1"}, want: "Date must be in YYYY-MM-DD format."},
		{name: "bad time", fields: FormFields{Title: "t", Date: "2024-12-20", Time: "10h", Location: "l", Capacity: "1"}, want: "Time must be in HH:MM format."},
		{name: "bad date before zero capacity", fields: FormFields{Title: "t", Date: "20/12/2024", Time: "10:00", Location: "l", Capacity: "0"}, want: "Date must be in YYYY-MM-DD format."},
		{name: "bad date before missing time", fields: FormFields{Title: "t", Date: "2024-13-01"}, want: "Date must be in YYYY-MM-DD format."},
		{name: "bad time before missing location", fields: FormFields{Title: "t", Date: "2024-12-20", Time: "25:00", Capacity: "0"}, want: "Time must be in HH:MM format."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.fields.Input()
			require.Error(t, err)
			assert.Equal(t, tt.want, validationMessage(err))
		})
	}
}

func TestFormFieldsInput(t *testing.T) {
	in, err := validFields.Input()
	require.NoError(t, err)
	assert.Equal(t, "Hackathon de Inovação", in.Title)
	assert.Equal(t, "Lab 3", in.Location)
	assert.Equal(t, "Maratona de programação.", in.Description)
	assert.Equal(t, 40, in.Capacity)
	assert.Equal(t, "2024-12-20T14:30:00", in.Date.String())
}

func TestCreateSubmitValidationFailure(t *testing.T) {
	fx := newFixture(t, signedIn())
	f := NewCreateForm(fx.deps())
	f.SetFields(FormFields{Title: "t"})

	f.Submit(context.Background())
	st := f.State()
	require.NotNil(t, st.Err)
	assert.Equal(t, ValidationFailed, st.Err.Kind)
	assert.Equal(t, "Date is required.", st.Err.Message)
	assert.Empty(t, fx.events.Calls())
}

func TestCreateSubmitRedirectsAfterDelay(t *testing.T) {
	fx := newFixture(t, signedIn())
	f := NewCreateForm(fx.deps())
	f.SetFields(validFields)

	f.Submit(context.Background())
	st := f.State()
	require.Nil(t, st.Err)
	assert.True(t, st.Saved)
	assert.Equal(t, "/events/101", st.Target)
	assert.Equal(t, fx.now.Add(DefaultRedirectDelay), st.RedirectAt)
	require.NotNil(t, fx.events.created)
	assert.Equal(t, "2024-12-20T14:30:00", fx.events.created.Date.String())

	active := fx.notices.Active()
	require.Len(t, active, 1)
	assert.Equal(t, notify.Success, active[0].Severity)
	assert.Equal(t, fx.now.Add(notify.SuccessTTL), active[0].Deadline)

	f.Tick(fx.now.Add(time.Second))
	assert.Empty(t, fx.nav.History())

	f.Tick(fx.now.Add(DefaultRedirectDelay))
	f.Tick(fx.now.Add(2 * DefaultRedirectDelay))
	assert.Equal(t, []string{"/events/101"}, fx.nav.History())
	assert.True(t, f.Closed())
}

func TestCreateWithoutBodyGoesToList(t *testing.T) {
	fx := newFixture(t, signedIn())
	fx.events.noBody = true
	f := NewCreateForm(fx.deps())
	f.RedirectDelay = 0
	f.SetFields(validFields)

	f.Submit(context.Background())
	assert.Equal(t, []string{"/events"}, fx.nav.History())
}

func TestSubmitSurfacesServerMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "server message",
			err:  &api.StatusError{Method: "PUT", Status: http.StatusBadRequest, Message: "capacity cannot be lower than the number of subscribers"},
			want: "capacity cannot be lower than the number of subscribers",
		},
		{
			name: "no message",
			err:  &api.StatusError{Method: "PUT", Status: http.StatusInternalServerError},
			want: "Could not update the event. Please try again.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t, signedIn(), workshop("7", 50, 30))
			f := NewEditForm(fx.deps(), "7")
			f.Load(context.Background())
			fx.events.fail("update", tt.err)

			f.Submit(context.Background())
			st := f.State()
			require.NotNil(t, st.Err)
			assert.Equal(t, ValidationFailed, st.Err.Kind)
			assert.Equal(t, tt.want, st.Err.Message)
			assert.False(t, st.Saving)
			assert.False(t, st.Saved)
			assert.Empty(t, fx.nav.History())
		})
	}
}

func TestEditLoadAndSave(t *testing.T) {
	fx := newFixture(t, signedIn(), workshop("7", 50, 30))
	f := NewEditForm(fx.deps(), "7")
	f.RedirectDelay = 0
	assert.True(t, f.State().Loading)

	f.Load(context.Background())
	st := f.State()
	assert.False(t, st.Loading)
	assert.Equal(t, "2024-12-01", st.Fields.Date)
	assert.Equal(t, "10:00", st.Fields.Time)
	assert.Equal(t, "50", st.Fields.Capacity)

	fields := st.Fields
	fields.Title = "Workshop de Go"
	f.SetFields(fields)
	f.Submit(context.Background())

	require.NotNil(t, fx.events.updated)
	assert.Equal(t, "Workshop de Go", fx.events.updated.Title)
	assert.Equal(t, "2024-12-01T10:00:00", fx.events.updated.Date.String())
	assert.Equal(t, []string{"/events/7"}, fx.nav.History())
}

func TestEditKeepsZonedWallClock(t *testing.T) {
	for _, raw := range []string{"2024-12-01T23:30:00Z", "2024-12-01T23:30:00-03:00", "2024-12-01T23:30:00+09:00"} {
		t.Run(raw, func(t *testing.T) {
			e := workshop("7", 50, 30)
			when, err := model.ParseDateTime(raw)
			require.NoError(t, err)
			e.Date = when

			fields := FieldsFromEvent(&e)
			assert.Equal(t, "2024-12-01", fields.Date)
			assert.Equal(t, "23:30", fields.Time)

			fx := newFixture(t, signedIn(), e)
			f := NewEditForm(fx.deps(), "7")
			f.RedirectDelay = 0
			f.Load(context.Background())
			f.Submit(context.Background())

			require.NotNil(t, fx.events.updated)
			assert.Equal(t, "2024-12-01T23:30:00", fx.events.updated.Date.String())
		})
	}
}

func TestEditLoadFailure(t *testing.T) {
	fx := newFixture(t, signedIn())
	f := NewEditForm(fx.deps(), "9")
	f.Load(context.Background())

	st := f.State()
	require.NotNil(t, st.Err)
	assert.Equal(t, LoadFailed, st.Err.Kind)
	assert.False(t, st.Loading)
}

func TestReentrantSubmitSavesOnce(t *testing.T) {
	fx := newFixture(t, signedIn())
	f := NewCreateForm(fx.deps())
	f.SetFields(validFields)

	release := fx.events.hold("create")
	done := make(chan struct{})
	go func() {
		f.Submit(context.Background())
		close(done)
	}()
	fx.await(t, "create")

	assert.True(t, f.State().Saving)
	f.Submit(context.Background())
	f.Cancel()
	f.SetFields(FormFields{})

	release()
	<-done
	assert.Equal(t, 1, fx.events.count("create"))
	assert.Equal(t, "40", f.State().Fields.Capacity)
}

func TestSubmitWithoutViewerGoesToLogin(t *testing.T) {
	fx := newFixture(t, anonymous())
	f := NewCreateForm(fx.deps())
	f.SetFields(validFields)

	f.Submit(context.Background())
	assert.Empty(t, fx.events.Calls())
	assert.Equal(t, []string{"/login?next=%2Fevents%2Fcreate"}, fx.nav.History())
}

func TestCancel(t *testing.T) {
	fx := newFixture(t, signedIn(), workshop("7", 50, 30))
	edit := NewEditForm(fx.deps(), "7")
	edit.Cancel()

	create := NewCreateForm(fx.deps())
	create.Cancel()
	assert.Equal(t, []string{"/events/7", "/events"}, fx.nav.History())
}
