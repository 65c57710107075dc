package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"livekeeper/internal/model"
	"livekeeper/internal/repository"
)

// EventRepository implements repository.Repository with SQLite.
type EventRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ repository.Repository = (*EventRepository)(nil)

// NewEventRepository creates a sandbox repository. The schema must already
// exist (see Open).
func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db, now: time.Now}
}

const eventColumns = "id, title, description, scheduled_start, lifecycle, recording, COALESCE(endpoint_id, '')"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ResolveIngestEndpoint returns the endpoint registered for key, creating it
// on first use.
func (r *EventRepository) ResolveIngestEndpoint(ctx context.Context, key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", errors.New("empty stream key")
	}

	var id string
	err := r.db.QueryRowContext(ctx, "SELECT id FROM endpoints WHERE stream_key = ?", key).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("failed to look up endpoint: %w", err)
	}

	id = uuid.NewString()
	_, err = r.db.ExecContext(ctx,
		"INSERT INTO endpoints (id, stream_key, created_at) VALUES (?, ?, ?)",
		id, key, formatTime(r.now()),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create endpoint: %w", err)
	}
	return id, nil
}

// ListEvents returns events bound to endpointID in creation order.
func (r *EventRepository) ListEvents(ctx context.Context, endpointID string) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+eventColumns+" FROM events WHERE endpoint_id = ? ORDER BY rowid ASC",
		endpointID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	events := make([]model.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}

	labels, err := r.labelsFor(ctx, eventIDs(events))
	if err != nil {
		return nil, err
	}
	for i := range events {
		events[i].Labels = labels[events[i].ID]
	}
	return events, nil
}

func (r *EventRepository) CreateEvent(ctx context.Context, ev repository.NewEvent) (model.Event, error) {
	e := model.Event{
		ID:             uuid.NewString(),
		Title:          ev.Title,
		Description:    ev.Description,
		ScheduledStart: ev.Start.UTC(),
		Lifecycle:      model.LifecycleCreated,
		Recording:      model.RecordingNotRecording,
		Labels:         ev.Settings.Labels,
	}
	if err := r.Put(ctx, e, ev.Settings); err != nil {
		return model.Event{}, err
	}
	return e, nil
}

// Put inserts a fully specified event. The sandbox uses it to seed past or
// manually created broadcasts.
func (r *EventRepository) Put(ctx context.Context, e model.Event, s repository.Settings) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var endpoint sql.NullString
	if e.BoundStreamID != "" {
		endpoint = sql.NullString{String: e.BoundStreamID, Valid: true}
	}
	lifecycle, recording := e.Lifecycle, e.Recording
	if lifecycle == "" {
		lifecycle = model.LifecycleCreated
	}
	if recording == "" {
		recording = model.RecordingNotRecording
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO events (id, title, description, scheduled_start, lifecycle, recording, endpoint_id,
			category_id, privacy_status, language, enable_auto_start, enable_auto_stop,
			enable_dvr, enable_embed, hide_view_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Title, e.Description, formatTime(e.ScheduledStart), string(lifecycle), string(recording), endpoint,
		s.CategoryID, s.PrivacyStatus, s.Language, boolInt(s.EnableAutoStart), boolInt(s.EnableAutoStop),
		boolInt(s.EnableDVR), boolInt(s.EnableEmbed), boolInt(s.HideViewCount), formatTime(r.now()),
	)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	if err := replaceLabels(ctx, tx, e.ID, e.Labels); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit event: %w", err)
	}
	return nil
}

func (r *EventRepository) BindEvent(ctx context.Context, eventID, endpointID string) (model.Event, error) {
	var exists int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM endpoints WHERE id = ?", endpointID).Scan(&exists)
	if err != nil {
		return model.Event{}, fmt.Errorf("failed to check endpoint: %w", err)
	}
	if exists == 0 {
		return model.Event{}, fmt.Errorf("endpoint %s: %w", endpointID, repository.ErrNotFound)
	}

	res, err := r.db.ExecContext(ctx, "UPDATE events SET endpoint_id = ? WHERE id = ?", endpointID, eventID)
	if err != nil {
		return model.Event{}, fmt.Errorf("failed to bind event: %w", err)
	}
	if err := expectOneRow(res, eventID); err != nil {
		return model.Event{}, err
	}
	return r.Get(ctx, eventID)
}

func (r *EventRepository) UpdateEventSettings(ctx context.Context, eventID string, s repository.Settings) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE events SET category_id = ?, privacy_status = ?, language = ?,
			enable_embed = ?, hide_view_count = ?
		WHERE id = ?`,
		s.CategoryID, s.PrivacyStatus, s.Language, boolInt(s.EnableEmbed), boolInt(s.HideViewCount), eventID,
	)
	if err != nil {
		return fmt.Errorf("failed to update event settings: %w", err)
	}
	if err := expectOneRow(res, eventID); err != nil {
		return err
	}
	if err := replaceLabels(ctx, tx, eventID, s.Labels); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit settings: %w", err)
	}
	return nil
}

func (r *EventRepository) DeleteEvent(ctx context.Context, eventID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM event_labels WHERE event_id = ?", eventID); err != nil {
		return fmt.Errorf("failed to delete event labels: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM events WHERE id = ?", eventID)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if err := expectOneRow(res, eventID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

func (r *EventRepository) FetchLabels(ctx context.Context, eventIDs []string) (map[string][]string, error) {
	if len(eventIDs) > repository.MaxLabelBatch {
		return nil, fmt.Errorf("%d ids: %w", len(eventIDs), repository.ErrBatchTooLarge)
	}
	return r.labelsFor(ctx, eventIDs)
}

// SetLifecycle moves an event to another platform state, standing in for
// the transitions the real platform makes on its own.
func (r *EventRepository) SetLifecycle(ctx context.Context, eventID string, l model.LifecycleStatus, rec model.RecordingStatus) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE events SET lifecycle = ?, recording = ? WHERE id = ?",
		string(l), string(rec), eventID,
	)
	if err != nil {
		return fmt.Errorf("failed to set lifecycle: %w", err)
	}
	return expectOneRow(res, eventID)
}

// Get returns a single event with its labels.
func (r *EventRepository) Get(ctx context.Context, eventID string) (model.Event, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+eventColumns+" FROM events WHERE id = ?", eventID)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Event{}, fmt.Errorf("event %s: %w", eventID, repository.ErrNotFound)
	}
	if err != nil {
		return model.Event{}, err
	}
	labels, err := r.labelsFor(ctx, []string{eventID})
	if err != nil {
		return model.Event{}, err
	}
	e.Labels = labels[eventID]
	return e, nil
}

// labelsFor returns labels keyed by event ID. Existing events without labels
// map to an empty slice; unknown IDs are absent.
func (r *EventRepository) labelsFor(ctx context.Context, ids []string) (map[string][]string, error) {
	out := make(map[string][]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT e.id, l.label FROM events e
		LEFT JOIN event_labels l ON l.event_id = e.id
		WHERE e.id IN (`+placeholders+`)
		ORDER BY e.id, l.label`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch labels: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id    string
			label sql.NullString
		)
		if err := rows.Scan(&id, &label); err != nil {
			return nil, fmt.Errorf("failed to scan label: %w", err)
		}
		if _, ok := out[id]; !ok {
			out[id] = []string{}
		}
		if label.Valid {
			out[id] = append(out[id], label.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate labels: %w", err)
	}
	return out, nil
}

func replaceLabels(ctx context.Context, tx *sql.Tx, eventID string, labels []string) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM event_labels WHERE event_id = ?", eventID); err != nil {
		return fmt.Errorf("failed to clear labels: %w", err)
	}
	for _, l := range labels {
		_, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO event_labels (event_id, label) VALUES (?, ?)",
			eventID, l,
		)
		if err != nil {
			return fmt.Errorf("failed to add label %q: %w", l, err)
		}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(s scanner) (model.Event, error) {
	var (
		e                    model.Event
		start                string
		lifecycle, recording string
	)
	err := s.Scan(&e.ID, &e.Title, &e.Description, &start, &lifecycle, &recording, &e.BoundStreamID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Event{}, err
	}
	if err != nil {
		return model.Event{}, fmt.Errorf("failed to scan event: %w", err)
	}
	e.ScheduledStart = parseTime(start)
	e.Lifecycle = model.ParseLifecycle(lifecycle)
	e.Recording = model.ParseRecording(recording)
	return e, nil
}

func expectOneRow(res sql.Result, eventID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("event %s: %w", eventID, repository.ErrNotFound)
	}
	return nil
}

func eventIDs(events []model.Event) []string {
	ids := make([]string, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	return ids
}
