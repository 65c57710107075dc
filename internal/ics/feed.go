// Package ics exports broadcasts as an iCalendar feed so viewers can
// subscribe to upcoming services from their own calendar app.
package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"

	"livekeeper/internal/model"
	"livekeeper/internal/status"
)

// DefaultDuration is the event length used when FeedOptions.Duration is zero.
// The platform has no scheduled end for a broadcast.
const DefaultDuration = time.Hour

// FeedOptions controls calendar-level properties.
type FeedOptions struct {
	Name     string
	Timezone string
	Duration time.Duration
	// Stamp is written as DTSTAMP on every event.
	Stamp time.Time
}

// Feed renders events as a VCALENDAR. Events without a start time are left
// out; revoked broadcasts are kept with STATUS:CANCELLED so subscribers
// drop them.
func Feed(events []model.Event, opts FeedOptions) string {
	if opts.Duration <= 0 {
		opts.Duration = DefaultDuration
	}
	if opts.Stamp.IsZero() {
		opts.Stamp = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//livekeeper//broadcast feed//EN")
	if opts.Name != "" {
		cal.SetXWRCalName(opts.Name)
	}
	if opts.Timezone != "" {
		cal.SetXWRTimezone(opts.Timezone)
	}

	for _, e := range events {
		start, ok := e.Start()
		if !ok || e.ID == "" {
			continue
		}
		ve := cal.AddEvent(e.ID + "@livekeeper")
		ve.SetDtStampTime(opts.Stamp.UTC())
		ve.SetStartAt(start.UTC())
		ve.SetEndAt(start.Add(opts.Duration).UTC())
		ve.SetSummary(e.Title)
		ve.SetURL(model.WatchURL(e.ID))

		desc := status.Of(e).String() + "\n" + model.WatchURL(e.ID)
		if e.Description != "" {
			desc = e.Description + "\n\n" + desc
		}
		ve.SetDescription(desc)

		if e.Lifecycle == model.LifecycleRevoked {
			ve.SetStatus(ical.ObjectStatusCancelled)
		} else {
			ve.SetStatus(ical.ObjectStatusConfirmed)
		}
	}

	return cal.Serialize()
}
