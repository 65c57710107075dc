// Package clock supplies the current time to the planner and reconciler.
// Callers inject a Clock instead of reading time.Now directly so runs can be
// replayed at a fixed instant.
package clock

import "time"

// Clock reports the current instant.
type Clock interface {
	// NowUTC returns the current time in UTC.
	NowUTC() time.Time
	// NowIn returns the current time in loc (UTC when loc is nil).
	NowIn(loc *time.Location) time.Time
}

// System is the wall clock shifted by Offset. A non-zero Offset lets a
// developer preview how the schedule looks days ahead.
type System struct {
	Offset time.Duration
}

func (s System) NowUTC() time.Time {
	return time.Now().Add(s.Offset).UTC()
}

func (s System) NowIn(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Now().Add(s.Offset).In(loc)
}

type fixed struct {
	t time.Time
}

// Fixed returns a Clock that always reports t.
func Fixed(t time.Time) Clock {
	return fixed{t: t}
}

func (f fixed) NowUTC() time.Time {
	return f.t.UTC()
}

func (f fixed) NowIn(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return f.t.In(loc)
}
