// Package model defines the core domain types shared by the API client,
// the view models and the frontends.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ID is an opaque event identifier. The backend may send it as a JSON
// number or a JSON string; both decode into the same value.
type ID string

// UnmarshalJSON accepts both numeric and string identifiers.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("event id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON encodes canonical decimal integers as JSON numbers, which
// is how a numeric backend issues them. Anything else, including "007"
// and "+5", stays a JSON string so the value survives a round trip.
func (id ID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// String implements fmt.Stringer.
func (id ID) String() string { return string(id) }

// DateTimeLayout is the wire layout for event date-times: ISO 8601 local
// date-time without a zone designator.
const DateTimeLayout = "2006-01-02T15:04:05"

var dateTimeLayouts = []string{
	DateTimeLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02",
}

// DateTime is an event date-time as exchanged with the backend.
type DateTime struct {
	time.Time
}

// ParseDateTime parses any accepted ISO 8601 form. Values without a zone
// are interpreted in time.Local.
func ParseDateTime(s string) (DateTime, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateTimeLayouts {
		var t time.Time
		var err error
		if strings.Contains(layout, "Z07") {
			t, err = time.Parse(layout, s)
		} else {
			t, err = time.ParseInLocation(layout, s, time.Local)
		}
		if err == nil {
			return DateTime{t}, nil
		}
	}
	return DateTime{}, fmt.Errorf("invalid date-time %q", s)
}

// String formats the value using DateTimeLayout.
func (d DateTime) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateTimeLayout)
}

// MarshalJSON implements json.Marshaler.
func (d DateTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *DateTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("event date: %w", err)
	}
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	parsed, err := ParseDateTime(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Event is an academic event with capacity-limited subscription.
type Event struct {
	ID              ID       `json:"id"`
	Title           string   `json:"title"`
	Date            DateTime `json:"date"`
	Location        string   `json:"location"`
	Description     string   `json:"description"`
	Capacity        int      `json:"capacity"`
	SubscribedCount int      `json:"subscribedCount"`
}

// Remaining returns the number of free places.
func (e *Event) Remaining() int {
	if r := e.Capacity - e.SubscribedCount; r > 0 {
		return r
	}
	return 0
}

// IsFull returns true when no places remain.
func (e *Event) IsFull() bool {
	return e.SubscribedCount >= e.Capacity
}

// Input returns the writable part of the event.
func (e *Event) Input() EventInput {
	return EventInput{
		Title:       e.Title,
		Date:        e.Date,
		Location:    e.Location,
		Description: e.Description,
		Capacity:    e.Capacity,
	}
}

// EventInput is the payload for creating or updating an event.
type EventInput struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Date        DateTime `json:"date" validate:"required"`
	Location    string   `json:"location" validate:"required,max=200"`
	Description string   `json:"description" validate:"max=5000"`
	Capacity    int      `json:"capacity" validate:"required,gt=0"`
}

// SubscriptionStatus is the response of the subscription check endpoint.
type SubscriptionStatus struct {
	IsSubscribed bool `json:"isSubscribed"`
}

// Viewer is the person operating the client once authenticated.
type Viewer struct {
	Email string `json:"email" yaml:"email"`
	Name  string `json:"name" yaml:"name"`
	Token string `json:"token" yaml:"token"`
}

// Credentials is the login payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ErrorResponse is the JSON error envelope returned by the backend.
type ErrorResponse struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}
