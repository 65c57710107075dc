package reconcile

import (
	"time"
)

type ActionKind string

const (
	ActionCreate ActionKind = "create"
	ActionDelete ActionKind = "delete"
)

// Action records one intended or performed mutation. Err is empty on
// success.
type Action struct {
	Kind    ActionKind `json:"kind"`
	EventID string     `json:"event_id,omitempty"`
	Title   string     `json:"title"`
	Start   time.Time  `json:"start,omitempty"`
	// Backup is 0 for the primary broadcast of a slot and n for SPARE n.
	Backup int    `json:"backup,omitempty"`
	Err    string `json:"error,omitempty"`
}

// Outcome summarizes one reconciliation run.
type Outcome struct {
	RunID      string    `json:"run_id"`
	DryRun     bool      `json:"dry_run"`
	EndpointID string    `json:"endpoint_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Planned  []time.Time `json:"planned"`
	Existing int         `json:"existing"`

	Created        int `json:"created"`
	CreateFailed   int `json:"create_failed"`
	SettingsFailed int `json:"settings_failed"`
	AlreadyExists  int `json:"already_exists"`

	Deleted      int `json:"deleted"`
	DeleteFailed int `json:"delete_failed"`

	SkippedNoLabel    int `json:"skipped_no_label"`
	SkippedUnparsable int `json:"skipped_unparsable"`
	LabelFetchFailed  int `json:"label_fetch_failed"`

	StatusCounts map[string]int `json:"status_counts"`
	Actions      []Action       `json:"actions"`
}

// Failed reports whether any per-event operation failed during the run.
func (o Outcome) Failed() bool {
	return o.CreateFailed > 0 || o.SettingsFailed > 0 || o.DeleteFailed > 0 || o.LabelFetchFailed > 0
}

func (o *Outcome) failCreate(a Action, err error) {
	a.Err = err.Error()
	o.CreateFailed++
	o.Actions = append(o.Actions, a)
}

func (o *Outcome) failDelete(a Action, err error) {
	a.Err = err.Error()
	o.DeleteFailed++
	o.Actions = append(o.Actions, a)
}
