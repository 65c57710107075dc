// Package rank orders broadcasts the way the platform picks which one
// receives an incoming stream: a live broadcast always wins, then the ready
// broadcast closest to now in either direction, then testing, then created.
package rank

import (
	"slices"
	"time"

	"livekeeper/internal/model"
)

// Priority tiers for streamable events; lower wins.
const (
	priorityLive    = 0
	priorityReady   = 1
	priorityTesting = 2
	priorityCreated = 3
	priorityOther   = 99
)

func lifecyclePriority(l model.LifecycleStatus) int {
	switch l {
	case model.LifecycleLive:
		return priorityLive
	case model.LifecycleReady:
		return priorityReady
	case model.LifecycleTesting:
		return priorityTesting
	case model.LifecycleCreated:
		return priorityCreated
	default:
		return priorityOther
	}
}

// IsHistorical reports whether an event can no longer carry video.
func IsHistorical(e model.Event) bool {
	return e.Lifecycle == model.LifecycleComplete || e.Lifecycle == model.LifecycleRevoked
}

type streamKey struct {
	priority int
	known    bool
	distance time.Duration
}

type keyedEvent struct {
	event model.Event
	key   streamKey
}

func keyOf(e model.Event, now time.Time) streamKey {
	k := streamKey{priority: lifecyclePriority(e.Lifecycle)}
	if start, ok := e.Start(); ok {
		k.known = true
		k.distance = start.Sub(now).Abs()
	}
	return k
}

// compareStream orders by priority, then by distance from now; an unknown
// start counts as infinitely far away.
func compareStream(a, b streamKey) int {
	if a.priority != b.priority {
		return a.priority - b.priority
	}
	switch {
	case a.known && !b.known:
		return -1
	case !a.known && b.known:
		return 1
	case !a.known && !b.known:
		return 0
	}
	switch {
	case a.distance < b.distance:
		return -1
	case a.distance > b.distance:
		return 1
	default:
		return 0
	}
}

// Rank splits events into streamable and historical lists. Streamable events
// are ordered by lifecycle priority then by distance of their start from
// now; historical events newest first with unknown starts last. Both sorts
// are stable and events is left untouched.
func Rank(events []model.Event, now time.Time) (streamable, historical []model.Event) {
	streamable = make([]model.Event, 0, len(events))
	historical = make([]model.Event, 0)

	for _, e := range events {
		if IsHistorical(e) {
			historical = append(historical, e)
		} else {
			streamable = append(streamable, e)
		}
	}

	keyed := make([]keyedEvent, len(streamable))
	for i, e := range streamable {
		keyed[i] = keyedEvent{event: e, key: keyOf(e, now)}
	}
	slices.SortStableFunc(keyed, func(a, b keyedEvent) int {
		return compareStream(a.key, b.key)
	})
	for i, ke := range keyed {
		streamable[i] = ke.event
	}

	slices.SortStableFunc(historical, func(a, b model.Event) int {
		sa, oka := a.Start()
		sb, okb := b.Start()
		switch {
		case oka && !okb:
			return -1
		case !oka && okb:
			return 1
		case !oka && !okb:
			return 0
		}
		// Newest first.
		return sb.Compare(sa)
	})

	return streamable, historical
}

// Current returns the event a viewer should be sent to: the head of the
// streamable list.
func Current(events []model.Event, now time.Time) (model.Event, bool) {
	streamable, _ := Rank(events, now)
	if len(streamable) == 0 {
		return model.Event{}, false
	}
	return streamable[0], true
}

// RecentHistorical keeps historical events that started within the last
// days days. Events without a start time are dropped.
func RecentHistorical(historical []model.Event, now time.Time, days int) []model.Event {
	boundary := now.AddDate(0, 0, -days)
	out := make([]model.Event, 0, len(historical))
	for _, e := range historical {
		start, ok := e.Start()
		if !ok {
			continue
		}
		if !start.Before(boundary) {
			out = append(out, e)
		}
	}
	return out
}
