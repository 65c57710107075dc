package status

import (
	"testing"

	"livekeeper/internal/model"
)

func TestClassifyTable(t *testing.T) {
	cases := []struct {
		lifecycle model.LifecycleStatus
		recording model.RecordingStatus
		want      Kind
	}{
		{model.LifecycleLive, model.RecordingRecording, LiveNow},
		{model.LifecycleLive, model.RecordingUnknown, LiveNow},
		{model.LifecycleComplete, model.RecordingRecorded, CompleteRecorded},
		{model.LifecycleComplete, model.RecordingNotRecording, Complete},
		{model.LifecycleComplete, model.RecordingUnknown, Complete},
		{model.LifecycleReady, model.RecordingNotRecording, ScheduledReady},
		{model.LifecycleReady, model.RecordingRecording, Unknown},
		{model.LifecycleCreated, model.RecordingRecorded, ScheduledNotReady},
		{model.LifecycleTesting, model.RecordingNotRecording, Testing},
		{model.LifecycleRevoked, model.RecordingNotRecording, Cancelled},
		{model.LifecycleUnknown, model.RecordingUnknown, Unknown},
	}
	for _, tc := range cases {
		got := Classify(tc.lifecycle, tc.recording)
		if got.Kind != tc.want {
			t.Errorf("Classify(%s, %s) = %s, want %s", tc.lifecycle, tc.recording, got.Kind, tc.want)
		}
		if got.Lifecycle != tc.lifecycle || got.Recording != tc.recording {
			t.Errorf("raw pair not preserved: %+v", got)
		}
	}
}

func TestUnknownLabelShowsRawPair(t *testing.T) {
	s := Classify(model.LifecycleReady, model.RecordingRecording)
	if got := s.String(); got != "❓ ready/recording" {
		t.Errorf("label = %q", got)
	}
}

func TestSummarize(t *testing.T) {
	events := []model.Event{
		{Lifecycle: model.LifecycleLive},
		{Lifecycle: model.LifecycleCreated},
		{Lifecycle: model.LifecycleCreated},
		{Lifecycle: model.LifecycleComplete, Recording: model.RecordingRecorded},
	}
	got := Summarize(events)
	if got["📅 Scheduled (Not Ready)"] != 2 {
		t.Errorf("created count = %d", got["📅 Scheduled (Not Ready)"])
	}
	if got["🔴 LIVE NOW"] != 1 || got["✅ Complete (Recorded)"] != 1 {
		t.Errorf("unexpected summary: %v", got)
	}
}
