// Package reconcile keeps the platform's broadcast list in line with the
// weekly schedule: it creates broadcasts for missing slots and removes aged
// broadcasts that carry the deletion label.
//
// A run is synchronous and self-contained. Every decision is recomputed from
// the repository's current state, so a run can be repeated at any time.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"livekeeper/internal/clock"
	appLog "livekeeper/internal/log"
	"livekeeper/internal/model"
	"livekeeper/internal/repository"
	"livekeeper/internal/schedule"
	"livekeeper/internal/status"
)

// Plan describes the broadcasts that should exist.
type Plan struct {
	// StreamKey names the reusable ingest endpoint; only broadcasts bound to
	// it are visible to a run.
	StreamKey string
	Rule      schedule.Rule
	// Lookahead is the number of weekly slots kept ahead of now.
	Lookahead int
	// Backups is the number of spare broadcasts per slot, started one
	// minute apart after the primary.
	Backups       int
	TitleTemplate string
	Description   string
	Settings      repository.Settings
}

// Validate checks the plan before any repository call is made.
func (p Plan) Validate() error {
	if strings.TrimSpace(p.StreamKey) == "" {
		return errors.New("stream key is empty")
	}
	if err := p.Rule.Validate(); err != nil {
		return err
	}
	if p.Lookahead < 0 {
		return fmt.Errorf("lookahead %d is negative", p.Lookahead)
	}
	if p.Backups < 0 {
		return fmt.Errorf("backup count %d is negative", p.Backups)
	}
	if strings.TrimSpace(p.TitleTemplate) == "" {
		return errors.New("title template is empty")
	}
	return nil
}

// AgePolicy decides when a broadcast is old enough to be removed.
type AgePolicy struct {
	HoursThreshold int
}

// Reconciler runs reconciliation against a repository.
type Reconciler struct {
	repo       repository.Repository
	clock      clock.Clock
	labelBatch int
	newRunID   func() string
}

// Option customizes a Reconciler.
type Option func(*Reconciler)

// WithLabelBatchSize lowers the number of IDs sent per label lookup. Values
// above repository.MaxLabelBatch are clamped.
func WithLabelBatchSize(n int) Option {
	return func(r *Reconciler) {
		r.labelBatch = n
	}
}

// WithRunID overrides run ID generation.
func WithRunID(fn func() string) Option {
	return func(r *Reconciler) {
		r.newRunID = fn
	}
}

// New creates a Reconciler. A nil clock means the system clock.
func New(repo repository.Repository, clk clock.Clock, opts ...Option) *Reconciler {
	if clk == nil {
		clk = clock.System{}
	}
	r := &Reconciler{
		repo:       repo,
		clock:      clk,
		labelBatch: repository.MaxLabelBatch,
		newRunID:   uuid.NewString,
	}
	for _, o := range opts {
		o(r)
	}
	if r.labelBatch <= 0 || r.labelBatch > repository.MaxLabelBatch {
		r.labelBatch = repository.MaxLabelBatch
	}
	return r
}

// Reconcile performs one run. The returned error is non-nil only when the
// run could not start: an invalid plan, or a failure resolving the endpoint
// or listing its broadcasts. Per-broadcast failures are counted in the
// Outcome instead. With dryRun set no mutating repository call is made and
// the Outcome reports what would have been done.
func (r *Reconciler) Reconcile(ctx context.Context, plan Plan, age AgePolicy, dryRun bool) (Outcome, error) {
	if err := plan.Validate(); err != nil {
		return Outcome{}, fmt.Errorf("reconcile: invalid plan: %w", err)
	}
	if age.HoursThreshold < 0 {
		return Outcome{}, fmt.Errorf("reconcile: age threshold %d is negative", age.HoursThreshold)
	}

	out := Outcome{
		RunID:     r.newRunID(),
		DryRun:    dryRun,
		StartedAt: r.clock.NowUTC(),
	}
	appLog.Info("reconcile start", "run_id", out.RunID, "dry_run", dryRun, "rule", plan.Rule.String(),
		"lookahead", plan.Lookahead, "backups", plan.Backups, "delete_after_hours", age.HoursThreshold)

	endpointID, err := r.repo.ResolveIngestEndpoint(ctx, plan.StreamKey)
	if err != nil {
		return out, fmt.Errorf("reconcile: resolve ingest endpoint: %w", err)
	}
	out.EndpointID = endpointID

	events, err := r.repo.ListEvents(ctx, endpointID)
	if err != nil {
		return out, fmt.Errorf("reconcile: list events for endpoint %s: %w", endpointID, err)
	}
	events = uniqueEvents(events)
	out.Existing = len(events)
	out.StatusCounts = status.Summarize(events)
	logStatusBreakdown(out.StatusCounts, endpointID, len(events))

	out.Planned = schedule.PlanSlots(plan.Rule, plan.Lookahead, r.clock.NowIn(plan.Rule.Location))
	existing := existingSlots(events, &out)

	for _, slot := range out.Planned {
		if existing[schedule.SlotKey(slot)] {
			out.AlreadyExists++
			appLog.Info("slot already covered", "slot", slot.Format(time.RFC3339))
			continue
		}
		r.createSlot(ctx, plan, endpointID, slot, dryRun, &out)
	}

	r.removeAged(ctx, events, age, dryRun, &out)

	out.FinishedAt = r.clock.NowUTC()
	appLog.Info("reconcile done", "run_id", out.RunID, "dry_run", dryRun,
		"created", out.Created, "create_failed", out.CreateFailed,
		"deleted", out.Deleted, "delete_failed", out.DeleteFailed,
		"skipped_no_label", out.SkippedNoLabel, "skipped_unparsable", out.SkippedUnparsable)
	return out, nil
}

// uniqueEvents drops repeated IDs, keeping the first occurrence. Paged
// listings can return the same broadcast twice when it changes mid-scan.
func uniqueEvents(events []model.Event) []model.Event {
	seen := make(map[string]bool, len(events))
	out := events[:0:0]
	for _, e := range events {
		if e.ID != "" {
			if seen[e.ID] {
				appLog.Warn("duplicate broadcast in listing; ignoring", "event_id", e.ID, "title", e.Title)
				continue
			}
			seen[e.ID] = true
		}
		out = append(out, e)
	}
	return out
}

// existingSlots indexes events by slot key. Events without a start time
// cannot cover a slot; they are counted and reported.
func existingSlots(events []model.Event, out *Outcome) map[string]bool {
	keys := make(map[string]bool, len(events))
	for _, e := range events {
		start, ok := e.Start()
		if !ok {
			out.SkippedUnparsable++
			appLog.Warn("broadcast has no usable scheduled start; skipping",
				"event_id", e.ID, "title", e.Title, "edit_url", model.EditURL(e.ID))
			continue
		}
		keys[schedule.SlotKey(start)] = true
	}
	return keys
}

// createSlot creates the primary broadcast for slot and its backups. A
// failure on one broadcast never stops the others.
func (r *Reconciler) createSlot(ctx context.Context, plan Plan, endpointID string, slot time.Time, dryRun bool, out *Outcome) {
	title := schedule.FormatTitle(plan.TitleTemplate, slot)
	r.createOne(ctx, plan, endpointID, title, slot, 0, dryRun, out)

	for n := 1; n <= plan.Backups; n++ {
		start := slot.Add(time.Duration(n) * time.Minute)
		r.createOne(ctx, plan, endpointID, schedule.BackupTitle(title, n), start, n, dryRun, out)
	}
}

func (r *Reconciler) createOne(ctx context.Context, plan Plan, endpointID, title string, start time.Time, backup int, dryRun bool, out *Outcome) {
	action := Action{Kind: ActionCreate, Title: title, Start: start, Backup: backup}

	if dryRun {
		appLog.Info("[dry run] would create broadcast", "title", title, "start", start.Format(time.RFC3339))
		out.Created++
		out.Actions = append(out.Actions, action)
		return
	}

	settings := plan.Settings
	settings.Labels = withManagedLabels(plan.Settings.Labels)

	appLog.Info("creating broadcast", "title", title, "start", start.Format(time.RFC3339))
	created, err := r.repo.CreateEvent(ctx, repository.NewEvent{
		Title:       title,
		Description: plan.Description,
		Start:       start,
		Settings:    settings,
	})
	if err != nil {
		appLog.Error("create broadcast failed", err, "title", title, "start", start.Format(time.RFC3339))
		out.failCreate(action, err)
		return
	}
	action.EventID = created.ID

	if _, err := r.repo.BindEvent(ctx, created.ID, endpointID); err != nil {
		appLog.Error("bind broadcast failed", err, "event_id", created.ID, "title", title, "endpoint_id", endpointID)
		out.failCreate(action, err)
		return
	}

	if err := r.repo.UpdateEventSettings(ctx, created.ID, settings); err != nil {
		if errors.Is(err, repository.ErrNotMaterialized) {
			appLog.Warn("video not available yet; settings will apply later", "event_id", created.ID)
		} else {
			appLog.Error("update broadcast settings failed", err, "event_id", created.ID)
			out.SettingsFailed++
		}
	}

	out.Created++
	out.Actions = append(out.Actions, action)
	appLog.Info("created broadcast", "event_id", created.ID, "url", model.WatchURL(created.ID))
}

// removeAged deletes broadcasts older than the threshold, but only once the
// deletion label has been confirmed through a label lookup.
func (r *Reconciler) removeAged(ctx context.Context, events []model.Event, age AgePolicy, dryRun bool, out *Outcome) {
	now := r.clock.NowUTC()
	threshold := time.Duration(age.HoursThreshold) * time.Hour

	old := make([]model.Event, 0)
	for _, e := range events {
		start, ok := e.Start()
		if !ok {
			continue
		}
		if now.Sub(start) > threshold {
			old = append(old, e)
		}
	}
	if len(old) == 0 {
		appLog.Info("no old broadcasts to clean up")
		return
	}
	appLog.Info("checking old broadcasts for deletion label", "count", len(old), "label", model.LabelAutoDelete)

	labels := r.confirmLabels(ctx, old, out)

	for _, e := range old {
		if !slices.Contains(labels[e.ID], model.LabelAutoDelete) {
			out.SkippedNoLabel++
			appLog.Info("skipping broadcast without deletion label", "event_id", e.ID, "title", e.Title)
			continue
		}

		st := status.Of(e)
		action := Action{Kind: ActionDelete, EventID: e.ID, Title: e.Title, Start: e.ScheduledStart}

		if dryRun {
			appLog.Info("[dry run] would delete broadcast", "event_id", e.ID, "title", e.Title, "status", st.String())
			out.Deleted++
			out.Actions = append(out.Actions, action)
			continue
		}

		appLog.Info("deleting broadcast", "event_id", e.ID, "title", e.Title, "status", st.String())
		if err := r.repo.DeleteEvent(ctx, e.ID); err != nil {
			appLog.Error("delete broadcast failed", err, "event_id", e.ID, "title", e.Title)
			out.failDelete(action, err)
			continue
		}
		out.Deleted++
		out.Actions = append(out.Actions, action)
	}
}

// confirmLabels looks labels up in bounded batches. Events of a failed batch
// are left without labels, which keeps them from being deleted.
func (r *Reconciler) confirmLabels(ctx context.Context, events []model.Event, out *Outcome) map[string][]string {
	ids := make([]string, 0, len(events))
	for _, e := range events {
		if e.ID != "" {
			ids = append(ids, e.ID)
		}
	}

	labels := make(map[string][]string, len(ids))
	for _, batch := range repository.Batches(ids, r.labelBatch) {
		got, err := r.repo.FetchLabels(ctx, batch)
		if err != nil {
			out.LabelFetchFailed += len(batch)
			appLog.Error("label lookup failed; batch protected from deletion", err, "batch_size", len(batch))
			continue
		}
		for id, l := range got {
			labels[id] = l
		}
	}
	return labels
}

func withManagedLabels(labels []string) []string {
	out := slices.Clone(labels)
	for _, l := range model.ManagedLabels() {
		if !slices.Contains(out, l) {
			out = append(out, l)
		}
	}
	return out
}

func logStatusBreakdown(counts map[string]int, endpointID string, total int) {
	appLog.Info("existing broadcasts", "endpoint_id", endpointID, "count", total)
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		appLog.Info("status breakdown", "status", k, "count", counts[k])
	}
}
