package config

import (
	"fmt"
	"strings"
	"time"

	"care-connect/internal/platform/httpclient"

	"github.com/robfig/cron/v3"
)

// Validate revisa reglas de negocio y resuelve la zona horaria de referencia.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range (got %d)", c.Server.Port)
	}

	loc, err := time.LoadLocation(strings.TrimSpace(c.Clock.Timezone))
	if err != nil {
		return fmt.Errorf("clock.timezone: %w", err)
	}
	c.Clock.location = loc

	if err := c.Doses.validate(); err != nil {
		return fmt.Errorf("doses: %w", err)
	}
	if err := c.Adherence.validate(); err != nil {
		return fmt.Errorf("adherence: %w", err)
	}

	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters (got %d)", len(c.Auth.JWTSecret))
	}

	if u := strings.TrimSpace(c.Notify.WebhookURL); u != "" {
		if err := httpclient.ValidateURL(u); err != nil {
			return fmt.Errorf("notify.webhook_url: %w", err)
		}
	}
	return nil
}

func (d *DosesConfig) validate() error {
	if d.GenerateAheadDays < 0 {
		return fmt.Errorf("generate_ahead_days must be >= 0 (got %d)", d.GenerateAheadDays)
	}
	if d.MissGrace < 0 {
		return fmt.Errorf("miss_grace must be >= 0 (got %s)", d.MissGrace)
	}
	if _, err := cron.ParseStandard(d.GenerationCron); err != nil {
		return fmt.Errorf("generation_cron: %w", err)
	}
	if d.MissGrace > 0 {
		if _, err := cron.ParseStandard(d.SweepCron); err != nil {
			return fmt.Errorf("sweep_cron: %w", err)
		}
	}
	return nil
}

func (a *AdherenceConfig) validate() error {
	if a.DefaultDays <= 0 {
		return fmt.Errorf("default_days must be > 0 (got %d)", a.DefaultDays)
	}
	if a.AlertThreshold < 0 || a.SuccessThreshold > 100 {
		return fmt.Errorf("thresholds must be within 0..100")
	}
	if a.AlertThreshold >= a.SuccessThreshold {
		return fmt.Errorf("alert_threshold (%d) must be below success_threshold (%d)", a.AlertThreshold, a.SuccessThreshold)
	}
	return nil
}
