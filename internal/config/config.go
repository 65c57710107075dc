package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the display and API.
type BasicAuthConfig struct {
	Username string `yaml:"username" validate:"required"`
	Password string `yaml:"password" validate:"required"`
}

// SupportContact is shown on the display page so viewers can report
// problems.
type SupportContact struct {
	Name string `yaml:"name"`
	Link string `yaml:"link" validate:"omitempty,url"`
}

// BroadcastConfig holds the settings applied to every created broadcast.
type BroadcastConfig struct {
	// TitleTemplate may contain {date}, replaced with the slot's YYYY-MM-DD.
	TitleTemplate   string `yaml:"title_template" validate:"required"`
	Description     string `yaml:"description"`
	CategoryID      string `yaml:"category_id" validate:"omitempty,numeric"`
	PrivacyStatus   string `yaml:"privacy_status" validate:"oneof=public private unlisted"`
	EnableAutoStart bool   `yaml:"enable_auto_start"`
	EnableAutoStop  bool   `yaml:"enable_auto_stop"`
	EnableDVR       bool   `yaml:"enable_dvr"`
	EnableEmbed     bool   `yaml:"enable_embed"`
	Language        string `yaml:"language"`
	HideViewCount   bool   `yaml:"hide_view_count"`
}

// SchedulingConfig describes the weekly slot and the cleanup policy.
type SchedulingConfig struct {
	// DayOfWeek is a weekday name ("sunday") or a digit where 0 is Monday
	// and 6 is Sunday.
	DayOfWeek string `yaml:"day_of_week" validate:"required"`
	// Time is HH:MM or HH:MM:SS in Timezone.
	Time     string `yaml:"time" validate:"required"`
	Timezone string `yaml:"timezone" validate:"required"`

	BufferWeeksAhead   int `yaml:"buffer_weeks_ahead" validate:"min=0,max=52"`
	DeleteAfterHours   int `yaml:"delete_after_hours" validate:"min=0"`
	NumSpareBroadcasts int `yaml:"num_spare_broadcasts" validate:"min=0,max=10"`

	// ReconcileCron is the standard 5-field schedule `serve` reconciles on.
	// Empty disables periodic reconciliation.
	ReconcileCron string `yaml:"reconcile_cron"`
}

// WebServerConfig configures the viewer display.
type WebServerConfig struct {
	// Listen is the HTTP listen address. PORT and HOST override it.
	Listen         string          `yaml:"listen" validate:"required"`
	PageTitle      string          `yaml:"page_title"`
	HistoricalDays int             `yaml:"historical_days" validate:"min=0"`
	SupportContact *SupportContact `yaml:"support_contact,omitempty"`

	// CacheTTL bounds how long listing results are reused between requests.
	CacheTTL time.Duration `yaml:"cache_ttl" validate:"min=0"`
	// RedisURL, when set, shares the listing cache through Redis.
	RedisURL string `yaml:"redis_url,omitempty" validate:"omitempty,url"`

	// CORSOrigins lists origins allowed to call the JSON API.
	CORSOrigins []string `yaml:"cors_origins"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=console json"`
}

// Config is the top-level application configuration.
type Config struct {
	AuthMethod           string `yaml:"auth_method" validate:"oneof=service_account oauth"`
	ServiceAccountFile   string `yaml:"service_account_file" validate:"required_if=AuthMethod service_account Backend youtube"`
	OAuthCredentialsFile string `yaml:"oauth_credentials_file,omitempty" validate:"required_if=AuthMethod oauth Backend youtube"`
	OAuthTokenFile       string `yaml:"oauth_token_file,omitempty" validate:"required_if=AuthMethod oauth Backend youtube"`
	ChannelID            string `yaml:"channel_id"`
	StreamKey            string `yaml:"stream_key" validate:"required"`

	// Backend selects the event repository: "youtube" or the local
	// "sqlite" sandbox.
	Backend    string `yaml:"backend" validate:"oneof=youtube sqlite"`
	SQLitePath string `yaml:"sqlite_path" validate:"required_if=Backend sqlite"`

	Broadcasts BroadcastConfig  `yaml:"broadcasts"`
	Scheduling SchedulingConfig `yaml:"scheduling"`
	WebServer  WebServerConfig  `yaml:"web_server"`
	Log        LogConfig        `yaml:"log"`

	// ClockOffset shifts "now" for every run. Development use only.
	ClockOffset time.Duration `yaml:"clock_offset,omitempty"`
}

const (
	defaultListen         = "127.0.0.1:8080"
	defaultTitleTemplate  = "Live Stream - {date}"
	defaultPrivacy        = "public"
	defaultTimezone       = "Europe/London"
	defaultDayOfWeek      = "sunday"
	defaultTime           = "10:00:00"
	defaultBufferWeeks    = 4
	defaultDeleteAfter    = 72
	defaultHistoricalDays = 2
	defaultCacheTTL       = 30 * time.Second

	defaultServiceAccountFile   = "service-account.json"
	defaultOAuthCredentialsFile = "oauth_credentials.json"
	defaultOAuthTokenFile       = "token.json"
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		AuthMethod:         "service_account",
		ServiceAccountFile: defaultServiceAccountFile,
		StreamKey:          "",
		Backend:            "youtube",
		SQLitePath:         "./var/livekeeper.db",
		Broadcasts: BroadcastConfig{
			TitleTemplate:   defaultTitleTemplate,
			CategoryID:      "29",
			PrivacyStatus:   defaultPrivacy,
			EnableAutoStart: true,
			EnableAutoStop:  true,
			EnableDVR:       true,
			EnableEmbed:     true,
			Language:        "en-GB",
		},
		Scheduling: SchedulingConfig{
			DayOfWeek:          defaultDayOfWeek,
			Time:               defaultTime,
			Timezone:           defaultTimezone,
			BufferWeeksAhead:   defaultBufferWeeks,
			DeleteAfterHours:   defaultDeleteAfter,
			NumSpareBroadcasts: 1,
			ReconcileCron:      "0 * * * *",
		},
		WebServer: WebServerConfig{
			Listen:         defaultListen,
			PageTitle:      "Live Stream",
			HistoricalDays: defaultHistoricalDays,
			CacheTTL:       defaultCacheTTL,
			CORSOrigins:    []string{},
		},
		Log: LogConfig{Level: "info", Format: "console"},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly. Booleans are left as
// written.
func (c *Config) Normalize() {
	if c.AuthMethod == "" {
		c.AuthMethod = "service_account"
	}
	switch c.AuthMethod {
	case "service_account":
		if c.ServiceAccountFile == "" {
			c.ServiceAccountFile = defaultServiceAccountFile
		}
	case "oauth":
		if c.OAuthCredentialsFile == "" {
			c.OAuthCredentialsFile = defaultOAuthCredentialsFile
		}
		if c.OAuthTokenFile == "" {
			c.OAuthTokenFile = defaultOAuthTokenFile
		}
	}
	if c.Backend == "" {
		c.Backend = "youtube"
	}
	if c.SQLitePath == "" {
		c.SQLitePath = "./var/livekeeper.db"
	}

	b := &c.Broadcasts
	if b.TitleTemplate == "" {
		b.TitleTemplate = defaultTitleTemplate
	}
	if b.PrivacyStatus == "" {
		b.PrivacyStatus = defaultPrivacy
	}

	s := &c.Scheduling
	if s.DayOfWeek == "" {
		s.DayOfWeek = defaultDayOfWeek
	}
	if s.Time == "" {
		s.Time = defaultTime
	}
	if s.Timezone == "" {
		s.Timezone = defaultTimezone
	}
	if s.BufferWeeksAhead <= 0 {
		s.BufferWeeksAhead = defaultBufferWeeks
	}
	if s.DeleteAfterHours <= 0 {
		s.DeleteAfterHours = defaultDeleteAfter
	}
	if s.NumSpareBroadcasts < 0 {
		s.NumSpareBroadcasts = 0
	}

	w := &c.WebServer
	if w.Listen == "" {
		w.Listen = defaultListen
	}
	if w.HistoricalDays <= 0 {
		w.HistoricalDays = defaultHistoricalDays
	}
	if w.CacheTTL <= 0 {
		w.CacheTTL = defaultCacheTTL
	}
	if w.CORSOrigins == nil {
		w.CORSOrigins = []string{}
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
//
// Load does not validate; callers run Validate once overrides are applied.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".livekeeper-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	// Credentials paths and basic auth live here; keep it private.
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func (c *Config) Save(path string) error {
	return Save(path, c)
}
