// Package schedule computes the broadcast slots that should exist.
package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	appLog "livekeeper/internal/log"
)

// Rule is a weekly recurrence: one slot per week on Weekday at the given
// time of day, interpreted in Location.
type Rule struct {
	Weekday  time.Weekday
	Hour     int
	Minute   int
	Second   int
	Location *time.Location
}

func (r Rule) String() string {
	loc := "UTC"
	if r.Location != nil {
		loc = r.Location.String()
	}
	return fmt.Sprintf("%s %02d:%02d:%02d %s", r.Weekday, r.Hour, r.Minute, r.Second, loc)
}

// Validate reports configuration contract violations.
func (r Rule) Validate() error {
	if r.Weekday < time.Sunday || r.Weekday > time.Saturday {
		return fmt.Errorf("schedule: weekday %d out of range", r.Weekday)
	}
	if r.Hour < 0 || r.Hour > 23 || r.Minute < 0 || r.Minute > 59 || r.Second < 0 || r.Second > 59 {
		return fmt.Errorf("schedule: invalid time of day %02d:%02d:%02d", r.Hour, r.Minute, r.Second)
	}
	if r.Location == nil {
		return errors.New("schedule: timezone is not set")
	}
	return nil
}

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// ParseWeekday accepts a weekday name or a digit where 0 is Monday and 6 is
// Sunday.
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if wd, ok := weekdayNames[s]; ok {
		return wd, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 6 {
		return 0, fmt.Errorf("schedule: unknown day of week %q", s)
	}
	return time.Weekday((n + 1) % 7), nil
}

// ParseRule builds a Rule from its configuration strings. timeOfDay is
// HH:MM or HH:MM:SS; timezone is an IANA name.
func ParseRule(dayOfWeek, timeOfDay, timezone string) (Rule, error) {
	wd, err := ParseWeekday(dayOfWeek)
	if err != nil {
		return Rule{}, err
	}

	parts := strings.Split(strings.TrimSpace(timeOfDay), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return Rule{}, fmt.Errorf("schedule: time %q is not HH:MM[:SS]", timeOfDay)
	}
	nums := []int{0, 0, 0}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Rule{}, fmt.Errorf("schedule: time %q is not HH:MM[:SS]", timeOfDay)
		}
		nums[i] = n
	}

	if strings.TrimSpace(timezone) == "" {
		return Rule{}, errors.New("schedule: timezone is empty")
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return Rule{}, fmt.Errorf("schedule: load timezone %q: %w", timezone, err)
	}

	r := Rule{Weekday: wd, Hour: nums[0], Minute: nums[1], Second: nums[2], Location: loc}
	if err := r.Validate(); err != nil {
		return Rule{}, err
	}
	return r, nil
}

// mondayIndex orders weekdays Monday=0 ... Sunday=6.
func mondayIndex(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

// Anchor returns the first slot on or after the next occurrence of the
// rule's weekday. When now already falls on that weekday the anchor is a
// week later, even if the time of day has not been reached yet; existing
// broadcasts are matched against slots computed this way.
func Anchor(rule Rule, now time.Time) time.Time {
	local := now.In(rule.Location)
	daysAhead := mondayIndex(rule.Weekday) - mondayIndex(local.Weekday())
	if daysAhead <= 0 {
		daysAhead += 7
	}
	d := local.AddDate(0, 0, daysAhead)
	return time.Date(d.Year(), d.Month(), d.Day(), rule.Hour, rule.Minute, rule.Second, 0, rule.Location)
}

// PlanSlots returns lookahead weekly slots starting at Anchor(rule, now).
// Slots keep the rule's wall-clock time across DST changes.
func PlanSlots(rule Rule, lookahead int, now time.Time) []time.Time {
	if lookahead <= 0 || rule.Location == nil {
		return []time.Time{}
	}
	anchor := Anchor(rule, now)

	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.WEEKLY,
		Count:   lookahead,
		Dtstart: anchor,
	})
	if err != nil {
		appLog.Error("schedule: failed to build weekly rule; falling back to date arithmetic", err, "rule", rule.String())
		return addWeeks(anchor, lookahead)
	}

	slots := r.All()
	if len(slots) != lookahead {
		appLog.Error("schedule: unexpected rrule expansion size", errors.New("slot count mismatch"),
			"want", lookahead, "got", len(slots))
		return addWeeks(anchor, lookahead)
	}
	out := make([]time.Time, len(slots))
	for i, s := range slots {
		out[i] = s.In(rule.Location)
	}
	return out
}

func addWeeks(anchor time.Time, n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = anchor.AddDate(0, 0, 7*i)
	}
	return out
}

// SlotKey identifies the minute a broadcast starts in, independent of the
// zone the time is expressed in. Two times occupy the same slot iff their
// keys are equal.
func SlotKey(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04Z")
}

// FormatTitle substitutes {date} in template with the slot's local date.
func FormatTitle(template string, slot time.Time) string {
	return strings.ReplaceAll(template, "{date}", slot.Format("2006-01-02"))
}

// BackupTitle names the n-th backup broadcast of a slot.
func BackupTitle(title string, n int) string {
	return fmt.Sprintf("%s - SPARE %d", title, n)
}
