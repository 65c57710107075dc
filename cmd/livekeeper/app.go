package main

import (
	"context"
	"fmt"
	"os"

	"livekeeper/internal/auth"
	"livekeeper/internal/clock"
	"livekeeper/internal/config"
	appLog "livekeeper/internal/log"
	"livekeeper/internal/repository"
	"livekeeper/internal/repository/sqlite"
	"livekeeper/internal/repository/youtube"
)

// app bundles what every config-driven command needs.
type app struct {
	cfg   *config.Config
	repo  repository.Repository
	clock clock.Clock
	close func() error
}

// loadConfig reads .env, the YAML file and environment overrides, then
// configures logging and validates.
func loadConfig(path string) (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	cfg.ApplyEnv(os.Getenv)

	appLog.SetLevel(appLog.ParseLevel(cfg.Log.Level))
	appLog.SetFormat(appLog.Format(cfg.Log.Format))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	appLog.Debug("effective config",
		"backend", cfg.Backend,
		"auth_method", cfg.AuthMethod,
		"day_of_week", cfg.Scheduling.DayOfWeek,
		"time", cfg.Scheduling.Time,
		"timezone", cfg.Scheduling.Timezone,
		"buffer_weeks_ahead", cfg.Scheduling.BufferWeeksAhead,
		"num_spare_broadcasts", cfg.Scheduling.NumSpareBroadcasts,
		"delete_after_hours", cfg.Scheduling.DeleteAfterHours,
		"clock_offset", cfg.ClockOffset.String(),
	)
	return cfg, nil
}

// openRepository builds the repository selected by cfg.Backend.
func openRepository(ctx context.Context, cfg *config.Config) (repository.Repository, func() error, error) {
	switch cfg.Backend {
	case "sqlite":
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		appLog.Info("using sqlite sandbox", "path", cfg.SQLitePath)
		return sqlite.NewEventRepository(db), db.Close, nil
	default:
		hc, err := auth.NewHTTPClient(ctx, auth.Options{
			Method:               cfg.AuthMethod,
			ServiceAccountFile:   cfg.ServiceAccountFile,
			OAuthCredentialsFile: cfg.OAuthCredentialsFile,
			OAuthTokenFile:       cfg.OAuthTokenFile,
		})
		if err != nil {
			return nil, nil, err
		}
		return youtube.New(hc), func() error { return nil }, nil
	}
}

func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	repo, closeFn, err := openRepository(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:   cfg,
		repo:  repo,
		clock: clock.System{Offset: cfg.ClockOffset},
		close: closeFn,
	}, nil
}

func (a *app) Close() {
	if err := a.close(); err != nil {
		appLog.Error("failed to close repository", err)
	}
}
