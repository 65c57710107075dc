// Package repository defines the event repository port the reconciler and
// the display depend on. Adapters live in subpackages.
package repository

import (
	"context"
	"errors"
	"time"

	"livekeeper/internal/model"
)

// MaxLabelBatch is the largest number of event IDs a single FetchLabels call
// may carry. The YouTube videos.list endpoint accepts at most 50 IDs.
const MaxLabelBatch = 50

var (
	// ErrNotFound is returned when an event or endpoint does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrNotMaterialized marks an event whose backing video resource does
	// not exist yet; callers treat it as a warning.
	ErrNotMaterialized = errors.New("repository: event not yet materialized")
	// ErrTransient marks a server-side failure that may succeed on retry.
	ErrTransient = errors.New("repository: transient server error")
	// ErrBatchTooLarge is returned by FetchLabels for more than MaxLabelBatch IDs.
	ErrBatchTooLarge = errors.New("repository: label batch too large")
)

// Settings are the broadcast/video options applied on creation and after
// binding.
type Settings struct {
	CategoryID      string
	PrivacyStatus   string
	EnableAutoStart bool
	EnableAutoStop  bool
	EnableDVR       bool
	EnableEmbed     bool
	Language        string
	HideViewCount   bool
	Labels          []string
}

// NewEvent is the input to CreateEvent.
type NewEvent struct {
	Title       string
	Description string
	Start       time.Time
	Settings    Settings
}

// Repository is the capability the core needs from the broadcasting
// platform. Implementations map platform payloads into model.Event at this
// boundary.
type Repository interface {
	// ResolveIngestEndpoint returns the ID of the reusable ingest endpoint
	// identified by key, creating it if needed.
	ResolveIngestEndpoint(ctx context.Context, key string) (string, error)

	// ListEvents returns every event bound to endpointID, following
	// pagination to the end.
	ListEvents(ctx context.Context, endpointID string) ([]model.Event, error)

	// CreateEvent creates a broadcast; the returned event carries its ID.
	CreateEvent(ctx context.Context, ev NewEvent) (model.Event, error)

	// BindEvent attaches an event to an ingest endpoint.
	BindEvent(ctx context.Context, eventID, endpointID string) (model.Event, error)

	// UpdateEventSettings applies settings that can only be set once the
	// event exists. It may return ErrNotMaterialized.
	UpdateEventSettings(ctx context.Context, eventID string, s Settings) error

	DeleteEvent(ctx context.Context, eventID string) error

	// FetchLabels returns labels per event ID for at most MaxLabelBatch IDs.
	// IDs unknown to the platform are absent from the result.
	FetchLabels(ctx context.Context, eventIDs []string) (map[string][]string, error)
}

// Batches splits ids into consecutive groups of at most size elements.
// A size outside 1..MaxLabelBatch is clamped to MaxLabelBatch.
func Batches(ids []string, size int) [][]string {
	if size <= 0 || size > MaxLabelBatch {
		size = MaxLabelBatch
	}
	out := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		out = append(out, ids[start:end])
	}
	return out
}
