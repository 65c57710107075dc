package ics

import (
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"

	"livekeeper/internal/model"
)

func TestFeedParsesBack(t *testing.T) {
	london, err := time.LoadLocation("Europe/London")
	if err != nil {
		t.Fatal(err)
	}
	start := time.Date(2025, 10, 19, 10, 0, 0, 0, london)
	events := []model.Event{
		{ID: "vid-1", Title: "Sunday Service - 19 October 2025", ScheduledStart: start, Lifecycle: model.LifecycleReady, Recording: model.RecordingNotRecording},
		{ID: "vid-2", Title: "Cancelled", ScheduledStart: start.AddDate(0, 0, 7), Lifecycle: model.LifecycleRevoked},
		{ID: "vid-3", Title: "No start", Lifecycle: model.LifecycleCreated},
	}

	out := Feed(events, FeedOptions{Name: "Sunday Services", Timezone: "Europe/London", Stamp: start})

	cal, err := ical.ParseCalendar(strings.NewReader(out))
	if err != nil {
		t.Fatalf("ParseCalendar: %v\n%s", err, out)
	}
	got := cal.Events()
	if len(got) != 2 {
		t.Fatalf("events = %d, want 2 (no-start event dropped)", len(got))
	}

	first := got[0]
	if first.Id() != "vid-1@livekeeper" {
		t.Errorf("uid = %q", first.Id())
	}
	if p := first.GetProperty(ical.ComponentPropertySummary); p == nil || p.Value != events[0].Title {
		t.Errorf("summary = %+v", p)
	}
	gotStart, err := first.GetStartAt()
	if err != nil {
		t.Fatalf("GetStartAt: %v", err)
	}
	if !gotStart.Equal(start) {
		t.Errorf("start = %v, want %v", gotStart, start)
	}
	gotEnd, err := first.GetEndAt()
	if err != nil {
		t.Fatalf("GetEndAt: %v", err)
	}
	if gotEnd.Sub(gotStart) != DefaultDuration {
		t.Errorf("duration = %v", gotEnd.Sub(gotStart))
	}
	if p := first.GetProperty(ical.ComponentPropertyUrl); p == nil || p.Value != model.WatchURL("vid-1") {
		t.Errorf("url = %+v", p)
	}

	if p := got[1].GetProperty(ical.ComponentPropertyStatus); p == nil || p.Value != string(ical.ObjectStatusCancelled) {
		t.Errorf("revoked status = %+v", p)
	}
	if !strings.Contains(out, "X-WR-CALNAME:Sunday Services") {
		t.Errorf("calendar name missing:\n%s", out)
	}
}

func TestFeedEmpty(t *testing.T) {
	out := Feed(nil, FeedOptions{})
	cal, err := ical.ParseCalendar(strings.NewReader(out))
	if err != nil {
		t.Fatalf("ParseCalendar: %v", err)
	}
	if len(cal.Events()) != 0 {
		t.Errorf("events = %d", len(cal.Events()))
	}
}
