package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDUnmarshal(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected ID
		wantErr  bool
	}{
		{name: "Number", body: `42`, expected: "42"},
		{name: "String", body: `"a1b2"`, expected: "a1b2"},
		{name: "Null", body: `null`, expected: ""},
		{name: "Object", body: `{}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id ID
			err := json.Unmarshal([]byte(tt.body), &id)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, id)
		})
	}
}

func TestIDRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "Number", body: `42`},
		{name: "Negative", body: `-3`},
		{name: "Zero", body: `0`},
		{name: "String", body: `"3f2a"`},
		{name: "LeadingZeros", body: `"007"`},
		{name: "PlusSign", body: `"+5"`},
		{name: "NegativeZero", body: `"-0"`},
		{name: "Padded", body: `" 12"`},
		{name: "Overflow", body: `"99999999999999999999"`},
		{name: "Empty", body: `""`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id ID
			require.NoError(t, json.Unmarshal([]byte(tt.body), &id))
			b, err := json.Marshal(id)
			require.NoError(t, err)
			assert.Equal(t, tt.body, string(b))

			var back ID
			require.NoError(t, json.Unmarshal(b, &back))
			assert.Equal(t, id, back)
		})
	}
}

func TestIDMarshalInStruct(t *testing.T) {
	b, err := json.Marshal(struct {
		A ID `json:"a"`
		B ID `json:"b"`
	}{A: "7", B: "007"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":7,"b":"007"}`, string(b))
}

func TestEventDecode(t *testing.T) {
	body := `{"id":7,"title":"Workshop","date":"2024-12-01T10:30:00","location":"Main hall","description":"Hooks","capacity":50,"subscribedCount":30}`

	var e Event
	require.NoError(t, json.Unmarshal([]byte(body), &e))

	assert.Equal(t, ID("7"), e.ID)
	assert.Equal(t, 2024, e.Date.Year())
	assert.Equal(t, time.December, e.Date.Month())
	assert.Equal(t, 10, e.Date.Hour())
	assert.Equal(t, 30, e.Date.Minute())
	assert.Equal(t, 20, e.Remaining())
	assert.False(t, e.IsFull())
}

func TestParseDateTime(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{name: "Local date-time", in: "2024-12-01T10:00:00"},
		{name: "Without seconds", in: "2024-12-01T10:00"},
		{name: "RFC3339", in: "2024-12-01T10:00:00Z"},
		{name: "RFC3339 offset", in: "2024-12-01T10:00:00+02:00"},
		{name: "Date only", in: "2024-12-01"},
		{name: "Garbage", in: "tomorrow", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseDateTime(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, 2024, d.Year())
		})
	}
}

func TestDateTimeMarshal(t *testing.T) {
	d := DateTime{time.Date(2025, 3, 4, 9, 5, 0, 0, time.Local)}
	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2025-03-04T09:05:00"`, string(b))
}

func TestIsFull(t *testing.T) {
	e := Event{Capacity: 2, SubscribedCount: 2}
	assert.True(t, e.IsFull())
	assert.Equal(t, 0, e.Remaining())
}

func TestEventInputValidate(t *testing.T) {
	valid := EventInput{
		Title:    "React workshop",
		Date:     DateTime{time.Now()},
		Location: "Auditorium",
		Capacity: 10,
	}

	tests := []struct {
		name       string
		mutate     func(in *EventInput)
		wantFields []string
	}{
		{name: "Valid", mutate: func(in *EventInput) {}},
		{name: "Missing title", mutate: func(in *EventInput) { in.Title = "" }, wantFields: []string{"title"}},
		{name: "Missing date", mutate: func(in *EventInput) { in.Date = DateTime{} }, wantFields: []string{"date"}},
		{name: "Zero capacity", mutate: func(in *EventInput) { in.Capacity = 0 }, wantFields: []string{"capacity"}},
		{name: "Negative capacity", mutate: func(in *EventInput) { in.Capacity = -3 }, wantFields: []string{"capacity"}},
		{
			name:       "Several",
			mutate:     func(in *EventInput) { in.Title = ""; in.Location = "" },
			wantFields: []string{"title", "location"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			err := in.Validate()
			if len(tt.wantFields) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid))

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			var got []string
			for _, f := range verr.Fields {
				got = append(got, f.Field)
			}
			assert.Equal(t, tt.wantFields, got)
		})
	}
}
