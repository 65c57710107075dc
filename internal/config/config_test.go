package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"livekeeper/internal/model"
)

func validConfig() *Config {
	c := DefaultConfig()
	c.StreamKey = "sunday-key"
	return c
}

func TestDefaultConfigNeedsOnlyAStreamKey(t *testing.T) {
	err := DefaultConfig().Validate()
	if err == nil || !strings.Contains(err.Error(), "stream_key") {
		t.Fatalf("expected stream_key error, got %v", err)
	}
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	c := validConfig()
	c.Broadcasts.PrivacyStatus = "friends"
	c.Scheduling.DayOfWeek = "someday"
	c.Scheduling.ReconcileCron = "every hour"
	c.Scheduling.NumSpareBroadcasts = 50

	err := c.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"broadcasts.privacy_status", "scheduling.num_spare_broadcasts", "scheduling:", "reconcile_cron"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestValidateConditionalFields(t *testing.T) {
	c := validConfig()
	c.AuthMethod = "oauth"
	if err := c.Validate(); err == nil || !strings.Contains(err.Error(), "oauth_token_file") {
		t.Errorf("oauth without token file: %v", err)
	}

	// The sandbox needs no credentials.
	c.Backend = "sqlite"
	if err := c.Validate(); err != nil {
		t.Errorf("sqlite backend: %v", err)
	}

	c.SQLitePath = ""
	if err := c.Validate(); err == nil || !strings.Contains(err.Error(), "sqlite_path") {
		t.Errorf("sqlite without path: %v", err)
	}

	c = validConfig()
	c.AuthMethod = "api_key"
	if err := c.Validate(); err == nil || !strings.Contains(err.Error(), "auth_method") {
		t.Errorf("unknown auth method: %v", err)
	}
}

func TestLoadCreatesDefaultsOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WebServer.HistoricalDays != 2 || cfg.Scheduling.BufferWeeksAhead != 4 {
		t.Errorf("defaults = %+v", cfg)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("perm = %o, want 600", perm)
	}
}

func TestLoadNormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
stream_key: sunday-key
scheduling:
  day_of_week: 6
  time: "10:30"
  timezone: Europe/London
  num_spare_broadcasts: 2
web_server:
  cache_ttl: 45s
  support_contact:
    name: AV team
    link: https://example.org/help
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.AuthMethod != "service_account" || cfg.ServiceAccountFile != "service-account.json" {
		t.Errorf("auth = %q %q", cfg.AuthMethod, cfg.ServiceAccountFile)
	}
	if cfg.Scheduling.DayOfWeek != "6" || cfg.Scheduling.NumSpareBroadcasts != 2 {
		t.Errorf("scheduling = %+v", cfg.Scheduling)
	}
	if cfg.Scheduling.DeleteAfterHours != 72 || cfg.Broadcasts.PrivacyStatus != "public" {
		t.Errorf("defaults not applied: %+v %+v", cfg.Scheduling, cfg.Broadcasts)
	}
	if cfg.WebServer.CacheTTL != 45*time.Second || cfg.WebServer.Listen != "127.0.0.1:8080" {
		t.Errorf("web server = %+v", cfg.WebServer)
	}
	if cfg.WebServer.SupportContact == nil || cfg.WebServer.SupportContact.Name != "AV team" {
		t.Errorf("support contact = %+v", cfg.WebServer.SupportContact)
	}

	rule, err := cfg.Rule()
	if err != nil {
		t.Fatalf("Rule: %v", err)
	}
	if rule.Weekday != time.Sunday || rule.Hour != 10 || rule.Minute != 30 {
		t.Errorf("rule = %s", rule)
	}
}

func TestLoadDefaultsOAuthFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("stream_key: k\nauth_method: oauth\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.OAuthCredentialsFile != "oauth_credentials.json" || cfg.OAuthTokenFile != "token.json" {
		t.Errorf("oauth files = %q %q", cfg.OAuthCredentialsFile, cfg.OAuthTokenFile)
	}
	if cfg.ServiceAccountFile != "" {
		t.Errorf("service account file = %q, want empty in oauth mode", cfg.ServiceAccountFile)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	c := validConfig()
	c.WebServer.BasicAuth = &BasicAuthConfig{Username: "av", Password: "secret"}
	c.ClockOffset = 36 * time.Hour

	if err := c.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.StreamKey != "sunday-key" || got.ClockOffset != 36*time.Hour {
		t.Errorf("round trip = %+v", got)
	}
	if got.WebServer.BasicAuth == nil || got.WebServer.BasicAuth.Password != "secret" {
		t.Errorf("basic auth lost: %+v", got.WebServer.BasicAuth)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{"PORT": "9000", "LOG_LEVEL": "DEBUG"}
	c := validConfig()
	c.ApplyEnv(func(k string) string { return env[k] })
	if c.WebServer.Listen != "127.0.0.1:9000" {
		t.Errorf("listen = %q", c.WebServer.Listen)
	}
	if c.Log.Level != "debug" {
		t.Errorf("log level = %q", c.Log.Level)
	}

	env = map[string]string{"HOST": "0.0.0.0"}
	c.ApplyEnv(func(k string) string { return env[k] })
	if c.WebServer.Listen != "0.0.0.0:9000" {
		t.Errorf("listen = %q", c.WebServer.Listen)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("LIVEKEEPER_TEST_VAR=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LIVEKEEPER_TEST_VAR", "")
	os.Unsetenv("LIVEKEEPER_TEST_VAR")

	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("LIVEKEEPER_TEST_VAR"); got != "from-file" {
		t.Errorf("LIVEKEEPER_TEST_VAR = %q", got)
	}
}

func TestPlan(t *testing.T) {
	c := validConfig()
	c.Scheduling.NumSpareBroadcasts = 2
	plan, age, err := c.Plan()
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if err := plan.Validate(); err != nil {
		t.Fatalf("plan.Validate: %v", err)
	}
	if plan.Lookahead != 4 || plan.Backups != 2 || age.HoursThreshold != 72 {
		t.Errorf("plan = %+v, age = %+v", plan, age)
	}
	if len(plan.Settings.Labels) != 2 || plan.Settings.Labels[1] != model.LabelAutoDelete {
		t.Errorf("labels = %v", plan.Settings.Labels)
	}
}
