// Package status maps raw lifecycle/recording pairs onto the small status
// taxonomy shown to operators and viewers.
package status

import (
	"livekeeper/internal/model"
)

// Kind is a human-facing broadcast status.
type Kind int

const (
	Unknown Kind = iota
	LiveNow
	CompleteRecorded
	Complete
	ScheduledReady
	ScheduledNotReady
	Testing
	Cancelled
)

func (k Kind) String() string {
	switch k {
	case LiveNow:
		return "live_now"
	case CompleteRecorded:
		return "complete_recorded"
	case Complete:
		return "complete"
	case ScheduledReady:
		return "scheduled_ready"
	case ScheduledNotReady:
		return "scheduled_not_ready"
	case Testing:
		return "testing"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Status is the classification result. Lifecycle and Recording keep the raw
// pair so Unknown results can still be reported precisely.
type Status struct {
	Kind      Kind
	Lifecycle model.LifecycleStatus
	Recording model.RecordingStatus
}

// Classify applies the fixed mapping table. Rows are checked top to bottom.
func Classify(lifecycle model.LifecycleStatus, recording model.RecordingStatus) Status {
	s := Status{Lifecycle: lifecycle, Recording: recording}
	switch {
	case lifecycle == model.LifecycleLive:
		s.Kind = LiveNow
	case lifecycle == model.LifecycleComplete && recording == model.RecordingRecorded:
		s.Kind = CompleteRecorded
	case lifecycle == model.LifecycleComplete:
		s.Kind = Complete
	case lifecycle == model.LifecycleReady && recording == model.RecordingNotRecording:
		s.Kind = ScheduledReady
	case lifecycle == model.LifecycleCreated:
		s.Kind = ScheduledNotReady
	case lifecycle == model.LifecycleTesting:
		s.Kind = Testing
	case lifecycle == model.LifecycleRevoked:
		s.Kind = Cancelled
	default:
		s.Kind = Unknown
	}
	return s
}

// Of classifies an event.
func Of(e model.Event) Status {
	return Classify(e.Lifecycle, e.Recording)
}

// String renders the operator-facing label.
func (s Status) String() string {
	switch s.Kind {
	case LiveNow:
		return "🔴 LIVE NOW"
	case CompleteRecorded:
		return "✅ Complete (Recorded)"
	case Complete:
		return "✅ Complete"
	case ScheduledReady:
		return "📅 Scheduled (Ready)"
	case ScheduledNotReady:
		return "📅 Scheduled (Not Ready)"
	case Testing:
		return "🧪 Testing"
	case Cancelled:
		return "❌ Cancelled"
	default:
		return "❓ " + string(s.Lifecycle) + "/" + string(s.Recording)
	}
}

// Summarize counts events per rendered status label.
func Summarize(events []model.Event) map[string]int {
	counts := make(map[string]int)
	for _, e := range events {
		counts[Of(e).String()]++
	}
	return counts
}
