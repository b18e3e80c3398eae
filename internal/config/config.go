package config

import (
	"fmt"
	"time"

	"github.com/sceneshift/sceneshift/internal/policy"
)

// Config is the effective daemon configuration after builtin defaults and the
// user file have been merged.
type Config struct {
	// HideDesktopIcons controls whether scene switches touch desktop icon
	// visibility at all. When false the desktop-click toggle is disabled too.
	HideDesktopIcons bool

	// FadeDuration is the total length of the show animation; FadeSteps is the
	// number of discrete alpha increments it is divided into.
	FadeDuration time.Duration
	FadeSteps    int

	// ReentrancyWindow suppresses switching back to the immediately prior
	// scene for this long after a switch.
	ReentrancyWindow time.Duration
	// ShortClickMax is the longest press still counted as a desktop click.
	ShortClickMax time.Duration
	// ToggleDebounce drops repeated desktop-click toggles closer than this.
	ToggleDebounce time.Duration
	// DestroyGrace is the settle delay before destroy-triggered fallbacks.
	DestroyGrace time.Duration
	// ReconcileInterval is the period of the stale-handle maintenance pass.
	ReconcileInterval time.Duration

	// Policy is the classification ruleset (builtin merged with user entries).
	Policy *policy.Ruleset
}

// Validate checks the effective configuration for values the engine cannot
// run with.
func (c *Config) Validate() error {
	if c.FadeSteps <= 0 {
		return fmt.Errorf("fade_steps must be positive, got %d", c.FadeSteps)
	}
	if c.FadeDuration <= 0 {
		return fmt.Errorf("fade_duration_ms must be positive, got %s", c.FadeDuration)
	}
	if c.ReentrancyWindow < 0 {
		return fmt.Errorf("reentrancy_window_ms must not be negative")
	}
	if c.ShortClickMax <= 0 {
		return fmt.Errorf("short_click_max_ms must be positive")
	}
	if c.ToggleDebounce < 0 {
		return fmt.Errorf("toggle_debounce_ms must not be negative")
	}
	if c.DestroyGrace < 0 {
		return fmt.Errorf("destroy_grace_ms must not be negative")
	}
	if c.ReconcileInterval <= 0 {
		return fmt.Errorf("reconcile_interval_s must be positive")
	}
	if c.Policy == nil {
		return fmt.Errorf("classification policy missing")
	}
	return nil
}

// Default returns the builtin configuration used when no config file exists.
func Default() *Config {
	return &Config{
		HideDesktopIcons:  true,
		FadeDuration:      180 * time.Millisecond,
		FadeSteps:         9,
		ReentrancyWindow:  time.Second,
		ShortClickMax:     250 * time.Millisecond,
		ToggleDebounce:    100 * time.Millisecond,
		DestroyGrace:      300 * time.Millisecond,
		ReconcileInterval: 10 * time.Second,
		Policy:            policy.Builtin(),
	}
}
