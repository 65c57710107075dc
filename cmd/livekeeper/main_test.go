package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	appLog "livekeeper/internal/log"
	"livekeeper/internal/model"
	"livekeeper/internal/reconcile"
)

func TestMain(m *testing.M) {
	appLog.SetOutput(io.Discard)
	color.NoColor = true
	os.Exit(m.Run())
}

func writeSandboxConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
stream_key: sunday-key
backend: sqlite
sqlite_path: ` + filepath.Join(dir, "sandbox.db") + `
scheduling:
  day_of_week: sunday
  time: "10:00"
  timezone: Europe/London
  buffer_weeks_ahead: 2
  num_spare_broadcasts: 1
log:
  level: error
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func decodeOutcome(t *testing.T, s string) reconcile.Outcome {
	t.Helper()
	var out reconcile.Outcome
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		t.Fatalf("decode outcome: %v\n%s", err, s)
	}
	return out
}

func TestReconcileCommandAgainstSandbox(t *testing.T) {
	path := writeSandboxConfig(t)

	// A dry run writes nothing, so it reports the same plan twice.
	for range 2 {
		s, err := execute(t, "reconcile", "--config", path, "--dry-run", "--json")
		if err != nil {
			t.Fatalf("dry run: %v", err)
		}
		out := decodeOutcome(t, s)
		if !out.DryRun || out.Created != 4 || len(out.Actions) != 4 {
			t.Fatalf("dry run outcome = %+v", out)
		}
	}

	s, err := execute(t, "reconcile", "--config", path, "--json")
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	out := decodeOutcome(t, s)
	if out.Created != 4 || out.Failed() {
		t.Fatalf("first run = %+v", out)
	}

	s, err = execute(t, "reconcile", "--config", path, "--json")
	if err != nil {
		t.Fatalf("second reconcile: %v", err)
	}
	out = decodeOutcome(t, s)
	if out.Created != 0 || out.AlreadyExists != 2 || out.Existing != 4 {
		t.Fatalf("second run = %+v", out)
	}

	s, err = execute(t, "rank", "--config", path)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if !strings.Contains(s, "Streamable (4)") || !strings.Contains(s, "SPARE") {
		t.Errorf("rank output:\n%s", s)
	}
}

func TestReconcileCommandRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	// First run writes defaults, which lack a stream key.
	_, err := execute(t, "reconcile", "--config", path)
	if err == nil || !strings.Contains(err.Error(), "stream_key") {
		t.Fatalf("err = %v", err)
	}
	if _, statErr := os.Stat(path); statErr != nil {
		t.Errorf("default config not written: %v", statErr)
	}
}

func TestVersion(t *testing.T) {
	s, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(s) != "livekeeper "+version {
		t.Errorf("version output = %q", s)
	}
}

func TestPrintOutcome(t *testing.T) {
	start := time.Date(2025, 10, 19, 9, 0, 0, 0, time.UTC)
	out := reconcile.Outcome{
		RunID:          "run-1",
		EndpointID:     "stream-1",
		Planned:        []time.Time{start},
		Existing:       1,
		Created:        1,
		CreateFailed:   1,
		SkippedNoLabel: 2,
		StatusCounts:   map[string]int{"✅ Complete": 1},
		Actions: []reconcile.Action{
			{Kind: reconcile.ActionCreate, EventID: "vid-1", Title: "Service", Start: start},
			{Kind: reconcile.ActionCreate, Title: "Service - SPARE 1", Start: start.Add(time.Minute), Backup: 1, Err: "quota exceeded"},
		},
	}

	london, _ := time.LoadLocation("Europe/London")
	var buf bytes.Buffer
	printOutcome(&buf, out, london)
	got := buf.String()

	for _, want := range []string{
		"Reconciliation run-1",
		"Sun 19 Oct 2025 10:00 BST",
		"✅ Complete",
		"create failed",
		"✓ create 2025-10-19 10:00  Service [vid-1]",
		"✗ create 2025-10-19 10:01  Service - SPARE 1: quota exceeded",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if !out.Failed() {
		t.Errorf("outcome with a create failure should report Failed")
	}
}

func TestRankedLine(t *testing.T) {
	e := model.Event{ID: "vid-1", Title: "Service", Lifecycle: model.LifecycleCreated}
	line := rankedLine(e, time.UTC)
	if !strings.Contains(line, "no start time") || !strings.Contains(line, model.WatchURL("vid-1")) {
		t.Errorf("line = %q", line)
	}
}
