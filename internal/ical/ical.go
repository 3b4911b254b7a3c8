// Package ical exports events as iCalendar documents.
package ical

import (
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/Shivanand-hulikatti/eventhub/internal/model"
	"github.com/Shivanand-hulikatti/eventhub/internal/route"
)

// DefaultDuration is used for DTEND since events carry only a start.
const DefaultDuration = time.Hour

// ProductID identifies the exporter in PRODID.
const ProductID = "-//eventhub//events//EN"

// Calendar builds a one-event calendar. baseURL, when set, is the public
// root of the web frontend and fills the URL property.
func Calendar(e model.Event, baseURL string, stamp time.Time) *ics.Calendar {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(ProductID)

	ev := cal.AddEvent(UID(e.ID, baseURL))
	ev.SetDtStampTime(stamp.UTC())
	ev.SetStartAt(e.Date.UTC())
	ev.SetEndAt(e.Date.Add(DefaultDuration).UTC())
	ev.SetSummary(e.Title)
	if e.Location != "" {
		ev.SetLocation(e.Location)
	}
	if e.Description != "" {
		ev.SetDescription(e.Description)
	}
	if baseURL != "" {
		ev.SetURL(strings.TrimRight(baseURL, "/") + route.EventPath(e.ID))
	}
	return cal
}

// Render serializes the calendar for e.
func Render(e model.Event, baseURL string) string {
	return Calendar(e, baseURL, time.Now()).Serialize()
}

// UID is the stable identifier of an event in exported calendars.
func UID(id model.ID, baseURL string) string {
	host := "eventhub"
	if i := strings.Index(baseURL, "://"); i >= 0 {
		host = strings.SplitN(baseURL[i+3:], "/", 2)[0]
	}
	return "event-" + id.String() + "@" + host
}

// Filename is a download name for the event's calendar file.
func Filename(e model.Event) string {
	return "event-" + e.ID.String() + ".ics"
}
