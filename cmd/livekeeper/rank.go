package main

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"livekeeper/internal/model"
	"livekeeper/internal/rank"
	"livekeeper/internal/status"
)

func rankCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rank",
		Short: "Show broadcasts in the order viewers are sent to them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			endpointID, err := a.repo.ResolveIngestEndpoint(ctx, a.cfg.StreamKey)
			if err != nil {
				return fmt.Errorf("resolve ingest endpoint: %w", err)
			}
			events, err := a.repo.ListEvents(ctx, endpointID)
			if err != nil {
				return fmt.Errorf("list events: %w", err)
			}

			now := a.clock.NowUTC()
			streamable, historical := rank.Rank(events, now)
			historical = rank.RecentHistorical(historical, now, a.cfg.WebServer.HistoricalDays)
			printRanked(cmd.OutOrStdout(), streamable, historical, a.clockLocation())
			return nil
		},
	}
}

func printRanked(w io.Writer, streamable, historical []model.Event, loc *time.Location) {
	bold := color.New(color.Bold)

	bold.Fprintf(w, "Streamable (%d)\n", len(streamable))
	if len(streamable) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for i, e := range streamable {
		marker := "  "
		if i == 0 {
			marker = color.New(color.FgHiMagenta).Sprint("→ ")
		}
		fmt.Fprintf(w, "%s%s\n", marker, rankedLine(e, loc))
	}

	fmt.Fprintln(w)
	bold.Fprintf(w, "Recent (%d)\n", len(historical))
	if len(historical) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, e := range historical {
		fmt.Fprintf(w, "  %s\n", rankedLine(e, loc))
	}
}

func rankedLine(e model.Event, loc *time.Location) string {
	start := "no start time   "
	if t, ok := e.Start(); ok {
		start = t.In(loc).Format("2006-01-02 15:04")
	}

	st := status.Of(e)
	label := st.String()
	switch st.Kind {
	case status.LiveNow:
		label = color.New(color.FgRed, color.Bold).Sprint(label)
	case status.ScheduledReady:
		label = color.New(color.FgGreen).Sprint(label)
	case status.Unknown, status.Cancelled:
		label = color.New(color.FgYellow).Sprint(label)
	}
	return fmt.Sprintf("%s  %-40s %s  %s", start, e.Title, label, model.WatchURL(e.ID))
}
