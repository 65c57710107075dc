package config

import (
	"livekeeper/internal/model"
	"livekeeper/internal/reconcile"
	"livekeeper/internal/repository"
	"livekeeper/internal/schedule"
)

// Settings converts the broadcast section into repository settings. Created
// broadcasts always carry the managed labels.
func (b BroadcastConfig) Settings() repository.Settings {
	return repository.Settings{
		CategoryID:      b.CategoryID,
		PrivacyStatus:   b.PrivacyStatus,
		EnableAutoStart: b.EnableAutoStart,
		EnableAutoStop:  b.EnableAutoStop,
		EnableDVR:       b.EnableDVR,
		EnableEmbed:     b.EnableEmbed,
		Language:        b.Language,
		HideViewCount:   b.HideViewCount,
		Labels:          model.ManagedLabels(),
	}
}

// Rule parses the weekly slot from the scheduling section.
func (c *Config) Rule() (schedule.Rule, error) {
	s := c.Scheduling
	return schedule.ParseRule(s.DayOfWeek, s.Time, s.Timezone)
}

// Plan builds the reconciliation plan and age policy.
func (c *Config) Plan() (reconcile.Plan, reconcile.AgePolicy, error) {
	rule, err := c.Rule()
	if err != nil {
		return reconcile.Plan{}, reconcile.AgePolicy{}, err
	}
	plan := reconcile.Plan{
		StreamKey:     c.StreamKey,
		Rule:          rule,
		Lookahead:     c.Scheduling.BufferWeeksAhead,
		Backups:       c.Scheduling.NumSpareBroadcasts,
		TitleTemplate: c.Broadcasts.TitleTemplate,
		Description:   c.Broadcasts.Description,
		Settings:      c.Broadcasts.Settings(),
	}
	age := reconcile.AgePolicy{HoursThreshold: c.Scheduling.DeleteAfterHours}
	return plan, age, nil
}
