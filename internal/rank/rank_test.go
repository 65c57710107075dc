package rank

import (
	"testing"
	"time"

	"livekeeper/internal/model"
)

var now = time.Date(2025, 10, 19, 10, 0, 0, 0, time.UTC)

func ev(id string, l model.LifecycleStatus, start time.Time) model.Event {
	return model.Event{ID: id, Lifecycle: l, ScheduledStart: start}
}

func ids(events []model.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}

func assertOrder(t *testing.T, label string, got []model.Event, want ...string) {
	t.Helper()
	g := ids(got)
	if len(g) != len(want) {
		t.Fatalf("%s: got %v, want %v", label, g, want)
	}
	for i := range want {
		if g[i] != want[i] {
			t.Fatalf("%s: got %v, want %v", label, g, want)
		}
	}
}

func TestRankLiveThenClosestReady(t *testing.T) {
	events := []model.Event{
		ev("testing", model.LifecycleTesting, now.Add(5*time.Minute)),
		ev("ready-2h", model.LifecycleReady, now.Add(2*time.Hour)),
		ev("live", model.LifecycleLive, now.Add(-30*time.Minute)),
		ev("ready-10m", model.LifecycleReady, now.Add(10*time.Minute)),
	}
	streamable, historical := Rank(events, now)
	assertOrder(t, "streamable", streamable, "live", "ready-10m", "ready-2h", "testing")
	if len(historical) != 0 {
		t.Errorf("historical = %v", ids(historical))
	}
}

func TestRankReadyDistanceIsTwoSided(t *testing.T) {
	events := []model.Event{
		ev("ready-future-1h", model.LifecycleReady, now.Add(time.Hour)),
		ev("ready-past-5m", model.LifecycleReady, now.Add(-5*time.Minute)),
	}
	streamable, _ := Rank(events, now)
	assertOrder(t, "streamable", streamable, "ready-past-5m", "ready-future-1h")
}

func TestRankTierOrderAndUnknownStartLast(t *testing.T) {
	events := []model.Event{
		ev("other", model.LifecycleUnknown, now),
		ev("created", model.LifecycleCreated, now.Add(time.Minute)),
		ev("ready-nostart", model.LifecycleReady, time.Time{}),
		ev("ready", model.LifecycleReady, now.Add(72*time.Hour)),
		ev("testing", model.LifecycleTesting, now),
	}
	streamable, _ := Rank(events, now)
	assertOrder(t, "streamable", streamable, "ready", "ready-nostart", "testing", "created", "other")
}

func TestRankHistoricalNewestFirst(t *testing.T) {
	t1 := now.Add(-72 * time.Hour)
	t2 := now.Add(-48 * time.Hour)
	t3 := now.Add(-24 * time.Hour)
	events := []model.Event{
		ev("t2", model.LifecycleComplete, t2),
		ev("nostart", model.LifecycleRevoked, time.Time{}),
		ev("t1", model.LifecycleComplete, t1),
		ev("t3", model.LifecycleComplete, t3),
	}
	streamable, historical := Rank(events, now)
	if len(streamable) != 0 {
		t.Errorf("streamable = %v", ids(streamable))
	}
	assertOrder(t, "historical", historical, "t3", "t2", "t1", "nostart")
}

func TestRankStableOnTies(t *testing.T) {
	start := now.Add(time.Hour)
	events := []model.Event{
		ev("a", model.LifecycleCreated, start),
		ev("b", model.LifecycleCreated, start),
		ev("c", model.LifecycleCreated, start),
		ev("x", model.LifecycleCreated, time.Time{}),
		ev("y", model.LifecycleCreated, time.Time{}),
		ev("h1", model.LifecycleComplete, start),
		ev("h2", model.LifecycleComplete, start),
	}
	streamable, historical := Rank(events, now)
	assertOrder(t, "streamable", streamable, "a", "b", "c", "x", "y")
	assertOrder(t, "historical", historical, "h1", "h2")
}

func TestRankDoesNotMutateInput(t *testing.T) {
	events := []model.Event{
		ev("created", model.LifecycleCreated, now),
		ev("live", model.LifecycleLive, now),
	}
	Rank(events, now)
	if events[0].ID != "created" || events[1].ID != "live" {
		t.Errorf("input reordered: %v", ids(events))
	}
}

func TestCurrent(t *testing.T) {
	if _, ok := Current(nil, now); ok {
		t.Errorf("no events should yield no current event")
	}
	events := []model.Event{
		ev("done", model.LifecycleComplete, now),
		ev("ready", model.LifecycleReady, now.Add(time.Hour)),
	}
	cur, ok := Current(events, now)
	if !ok || cur.ID != "ready" {
		t.Errorf("Current = %v, %v", cur.ID, ok)
	}
}

func TestRecentHistorical(t *testing.T) {
	historical := []model.Event{
		ev("1d", model.LifecycleComplete, now.Add(-24*time.Hour)),
		ev("2d", model.LifecycleComplete, now.AddDate(0, 0, -2)),
		ev("3d", model.LifecycleComplete, now.Add(-73*time.Hour)),
		ev("nostart", model.LifecycleRevoked, time.Time{}),
	}
	assertOrder(t, "recent", RecentHistorical(historical, now, 2), "1d", "2d")
}
