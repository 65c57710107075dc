package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"livekeeper/internal/reconcile"
)

// errRunFailed makes the process exit non-zero when a run completed but
// some per-event operation failed.
var errRunFailed = errors.New("reconciliation finished with failures")

func reconcileCmd(configPath *string) *cobra.Command {
	var (
		dryRun  bool
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Create upcoming broadcasts and remove old ones",
		Long: `Run one reconciliation pass: make sure every weekly slot within the
lookahead window has its broadcast plus spares, then delete old broadcasts
that carry the auto_delete label.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			out, err := runReconcile(ctx, a, dryRun)
			if err != nil {
				return err
			}
			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(out); err != nil {
					return err
				}
			} else {
				printOutcome(cmd.OutOrStdout(), out, a.clockLocation())
			}
			if out.Failed() {
				return errRunFailed
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "report intended changes without touching the platform")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the outcome as JSON")
	return cmd
}

func runReconcile(ctx context.Context, a *app, dryRun bool) (reconcile.Outcome, error) {
	plan, age, err := a.cfg.Plan()
	if err != nil {
		return reconcile.Outcome{}, err
	}
	return reconcile.New(a.repo, a.clock).Reconcile(ctx, plan, age, dryRun)
}

// clockLocation is the timezone used for printing; the schedule's zone.
func (a *app) clockLocation() *time.Location {
	rule, err := a.cfg.Rule()
	if err != nil || rule.Location == nil {
		return time.UTC
	}
	return rule.Location
}

func printOutcome(w io.Writer, out reconcile.Outcome, loc *time.Location) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)

	header := "Reconciliation " + out.RunID
	if out.DryRun {
		header += " " + yellow.Sprint("(dry run)")
	}
	bold.Fprintln(w, header)
	fmt.Fprintf(w, "  endpoint:  %s\n", out.EndpointID)
	fmt.Fprintf(w, "  duration:  %s\n", out.FinishedAt.Sub(out.StartedAt).Round(time.Millisecond))
	fmt.Fprintln(w)

	bold.Fprintln(w, "Planned slots")
	for _, p := range out.Planned {
		fmt.Fprintf(w, "  %s\n", p.In(loc).Format("Mon 02 Jan 2006 15:04 MST"))
	}
	fmt.Fprintln(w)

	if len(out.StatusCounts) > 0 {
		bold.Fprintf(w, "Existing broadcasts (%d)\n", out.Existing)
		labels := make([]string, 0, len(out.StatusCounts))
		for l := range out.StatusCounts {
			labels = append(labels, l)
		}
		slices.Sort(labels)
		for _, l := range labels {
			fmt.Fprintf(w, "  %-28s %d\n", l, out.StatusCounts[l])
		}
		fmt.Fprintln(w)
	}

	count := func(label string, n int, c *color.Color) {
		v := fmt.Sprint(n)
		if n > 0 && c != nil {
			v = c.Sprint(n)
		}
		fmt.Fprintf(w, "  %-20s %s\n", label, v)
	}
	bold.Fprintln(w, "Result")
	count("created", out.Created, green)
	count("already present", out.AlreadyExists, nil)
	count("deleted", out.Deleted, green)
	count("kept (no label)", out.SkippedNoLabel, nil)
	count("no start time", out.SkippedUnparsable, yellow)
	count("create failed", out.CreateFailed, red)
	count("settings failed", out.SettingsFailed, red)
	count("delete failed", out.DeleteFailed, red)
	count("label lookup failed", out.LabelFetchFailed, red)

	if len(out.Actions) > 0 {
		fmt.Fprintln(w)
		bold.Fprintln(w, "Actions")
		for _, act := range out.Actions {
			mark := green.Sprint("✓")
			if act.Err != "" {
				mark = red.Sprint("✗")
			}
			fmt.Fprintf(w, "  %s %-6s %s  %s", mark, act.Kind, act.Start.In(loc).Format("2006-01-02 15:04"), act.Title)
			if act.EventID != "" {
				fmt.Fprintf(w, " [%s]", act.EventID)
			}
			if act.Err != "" {
				fmt.Fprintf(w, ": %s", red.Sprint(act.Err))
			}
			fmt.Fprintln(w)
		}
	}
}
