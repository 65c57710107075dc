package main

import (
	"context"
	"errors"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"livekeeper/internal/cache"
	appLog "livekeeper/internal/log"
	"livekeeper/internal/web"
)

func serveCmd(configPath *string) *cobra.Command {
	var (
		listen      string
		noCron      bool
		previewPath string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the viewer page and reconcile on a schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			if listen == "" {
				listen = a.cfg.WebServer.Listen
			}

			c, closeCache, err := openCache(ctx, a.cfg.WebServer.RedisURL)
			if err != nil {
				return err
			}
			defer closeCache()

			srv := web.NewServer(a.cfg, a.repo, web.Options{
				Cache:       c,
				Clock:       a.clock,
				PreviewPath: previewPath,
			})

			if !noCron {
				sched, err := startReconcileCron(ctx, a, srv)
				if err != nil {
					return err
				}
				defer func() { <-sched.Stop().Done() }()
			}

			return srv.Run(ctx, listen)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config)")
	cmd.Flags().BoolVar(&noCron, "no-cron", false, "serve only; do not reconcile periodically")
	cmd.Flags().StringVar(&previewPath, "preview", "preview.png", "PNG served at /preview.png (written by `livekeeper snapshot`)")
	return cmd
}

func openCache(ctx context.Context, redisURL string) (cache.Cache, func(), error) {
	if redisURL == "" {
		return cache.NewMemory(), func() {}, nil
	}
	r, err := cache.NewRedis(ctx, redisURL)
	if err != nil {
		return nil, nil, err
	}
	appLog.Info("using redis listing cache")
	return r, func() {
		if err := r.Close(); err != nil {
			appLog.Error("failed to close redis", err)
		}
	}, nil
}

// startReconcileCron runs reconciliation on scheduling.reconcile_cron in the
// schedule's timezone. Runs never overlap.
func startReconcileCron(ctx context.Context, a *app, srv *web.Server) (*cron.Cron, error) {
	logger := cronLogger{}
	sched := cron.New(
		cron.WithLocation(a.clockLocation()),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	_, err := sched.AddFunc(a.cfg.Scheduling.ReconcileCron, func() {
		out, err := runReconcile(ctx, a, false)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				appLog.Error("scheduled reconcile failed", err)
			}
			return
		}
		srv.Invalidate(ctx)
		if out.Failed() {
			appLog.Warn("scheduled reconcile finished with failures", "run_id", out.RunID,
				"create_failed", out.CreateFailed, "settings_failed", out.SettingsFailed,
				"delete_failed", out.DeleteFailed, "label_fetch_failed", out.LabelFetchFailed)
		}
	})
	if err != nil {
		return nil, err
	}

	sched.Start()
	appLog.Info("reconcile cron started", "spec", a.cfg.Scheduling.ReconcileCron)
	return sched, nil
}

// cronLogger routes cron's own messages into the application log.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...any) {
	appLog.Debug("cron: "+msg, kv...)
}

func (cronLogger) Error(err error, msg string, kv ...any) {
	appLog.Error("cron: "+msg, err, kv...)
}
