package model

import (
	"fmt"
	"slices"
	"time"
)

// LifecycleStatus is the platform-driven state of a broadcast.
type LifecycleStatus string

const (
	LifecycleCreated  LifecycleStatus = "created"
	LifecycleReady    LifecycleStatus = "ready"
	LifecycleTesting  LifecycleStatus = "testing"
	LifecycleLive     LifecycleStatus = "live"
	LifecycleComplete LifecycleStatus = "complete"
	LifecycleRevoked  LifecycleStatus = "revoked"
	LifecycleUnknown  LifecycleStatus = "unknown"
)

// ParseLifecycle maps a raw platform value onto LifecycleStatus. Values the
// platform may add later collapse to LifecycleUnknown.
func ParseLifecycle(s string) LifecycleStatus {
	switch l := LifecycleStatus(s); l {
	case LifecycleCreated, LifecycleReady, LifecycleTesting, LifecycleLive,
		LifecycleComplete, LifecycleRevoked:
		return l
	default:
		return LifecycleUnknown
	}
}

// RecordingStatus is the platform's recording state for a broadcast.
type RecordingStatus string

const (
	RecordingNotRecording RecordingStatus = "notRecording"
	RecordingRecording    RecordingStatus = "recording"
	RecordingRecorded     RecordingStatus = "recorded"
	RecordingUnknown      RecordingStatus = "unknown"
)

func ParseRecording(s string) RecordingStatus {
	switch r := RecordingStatus(s); r {
	case RecordingNotRecording, RecordingRecording, RecordingRecorded:
		return r
	default:
		return RecordingUnknown
	}
}

// Labels attached to every broadcast livekeeper creates. Only events carrying
// LabelAutoDelete are ever removed automatically.
const (
	LabelAutoCreated = "auto_created"
	LabelAutoDelete  = "auto_delete"
)

// ManagedLabels returns a fresh copy of the labels put on created events.
func ManagedLabels() []string {
	return []string{LabelAutoCreated, LabelAutoDelete}
}

// Event is a scheduled broadcast as seen through the repository.
type Event struct {
	// ID is assigned by the repository on creation.
	ID          string
	Title       string
	Description string

	// ScheduledStart is the zero time when the platform reported no start
	// time or one that could not be parsed.
	ScheduledStart time.Time

	Lifecycle LifecycleStatus
	Recording RecordingStatus

	// BoundStreamID is the ingest endpoint the broadcast is attached to.
	BoundStreamID string

	Labels []string
}

// Start returns the scheduled start and whether one is known.
func (e Event) Start() (time.Time, bool) {
	if e.ScheduledStart.IsZero() {
		return time.Time{}, false
	}
	return e.ScheduledStart, true
}

func (e Event) HasLabel(label string) bool {
	return slices.Contains(e.Labels, label)
}

// WatchURL is the public viewer URL of a broadcast.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

// EmbedURL is the iframe URL of a broadcast.
func EmbedURL(id string, autoplay bool) string {
	ap := 0
	if autoplay {
		ap = 1
	}
	return fmt.Sprintf("https://www.youtube.com/embed/%s?autoplay=%d", id, ap)
}

// EditURL points at the studio page where an operator can fix a broadcast.
func EditURL(id string) string {
	return "https://studio.youtube.com/video/" + id + "/edit"
}
