package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sceneshift/sceneshift/internal/policy"
)

// rawConfig mirrors the YAML file. Pointer fields distinguish "absent" from
// zero so file values overlay builtin defaults field by field.
type rawConfig struct {
	HideDesktopIcons *bool `yaml:"hide_desktop_icons"`

	FadeDurationMS *int `yaml:"fade_duration_ms"`
	FadeSteps      *int `yaml:"fade_steps"`

	ReentrancyWindowMS *int `yaml:"reentrancy_window_ms"`
	ShortClickMaxMS    *int `yaml:"short_click_max_ms"`
	ToggleDebounceMS   *int `yaml:"toggle_debounce_ms"`
	DestroyGraceMS     *int `yaml:"destroy_grace_ms"`
	ReconcileIntervalS *int `yaml:"reconcile_interval_s"`

	Policy rawPolicy `yaml:"policy"`
}

type rawPolicy struct {
	// Replace drops the builtin lists entirely; by default user entries extend
	// the builtins.
	Replace         bool                `yaml:"replace"`
	ClassDenylist   []string            `yaml:"class_denylist"`
	ProcessDenylist []string            `yaml:"process_denylist"`
	DesktopClasses  []string            `yaml:"desktop_classes"`
	Persistent      []rawPersistentRule `yaml:"persistent_windows"`
}

type rawPersistentRule struct {
	Executable    string `yaml:"executable"`
	TitleContains string `yaml:"title_contains"`
}

// DefaultConfigPath returns the standard user config file location.
func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "sceneshift", "config.yaml"), nil
}

// Load reads the merged configuration from the standard location. A missing
// file yields the builtin defaults.
func Load() (*Config, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads the config file at path and overlays it on the builtin
// defaults. The file may be absent.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	applyRaw(cfg, raw)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func applyRaw(cfg *Config, raw rawConfig) {
	if raw.HideDesktopIcons != nil {
		cfg.HideDesktopIcons = *raw.HideDesktopIcons
	}
	if raw.FadeDurationMS != nil {
		cfg.FadeDuration = time.Duration(*raw.FadeDurationMS) * time.Millisecond
	}
	if raw.FadeSteps != nil {
		cfg.FadeSteps = *raw.FadeSteps
	}
	if raw.ReentrancyWindowMS != nil {
		cfg.ReentrancyWindow = time.Duration(*raw.ReentrancyWindowMS) * time.Millisecond
	}
	if raw.ShortClickMaxMS != nil {
		cfg.ShortClickMax = time.Duration(*raw.ShortClickMaxMS) * time.Millisecond
	}
	if raw.ToggleDebounceMS != nil {
		cfg.ToggleDebounce = time.Duration(*raw.ToggleDebounceMS) * time.Millisecond
	}
	if raw.DestroyGraceMS != nil {
		cfg.DestroyGrace = time.Duration(*raw.DestroyGraceMS) * time.Millisecond
	}
	if raw.ReconcileIntervalS != nil {
		cfg.ReconcileInterval = time.Duration(*raw.ReconcileIntervalS) * time.Second
	}

	persistent := make([]policy.PersistentRule, 0, len(raw.Policy.Persistent))
	for _, r := range raw.Policy.Persistent {
		persistent = append(persistent, policy.PersistentRule{
			Executable:    r.Executable,
			TitleContains: r.TitleContains,
		})
	}

	if raw.Policy.Replace {
		cfg.Policy = &policy.Ruleset{
			ClassDenylist:   raw.Policy.ClassDenylist,
			ProcessDenylist: raw.Policy.ProcessDenylist,
			DesktopClasses:  raw.Policy.DesktopClasses,
			Persistent:      persistent,
		}
		return
	}

	cfg.Policy = cfg.Policy.Extend(
		raw.Policy.ClassDenylist,
		raw.Policy.ProcessDenylist,
		raw.Policy.DesktopClasses,
		persistent,
	)
}

// Print renders the effective config in YAML form for `config print`.
func Print(cfg *Config) (string, error) {
	out := rawFromConfig(cfg)
	data, err := yaml.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("failed to render config: %w", err)
	}
	return string(data), nil
}

type printableConfig struct {
	HideDesktopIcons   bool      `yaml:"hide_desktop_icons"`
	FadeDurationMS     int       `yaml:"fade_duration_ms"`
	FadeSteps          int       `yaml:"fade_steps"`
	ReentrancyWindowMS int       `yaml:"reentrancy_window_ms"`
	ShortClickMaxMS    int       `yaml:"short_click_max_ms"`
	ToggleDebounceMS   int       `yaml:"toggle_debounce_ms"`
	DestroyGraceMS     int       `yaml:"destroy_grace_ms"`
	ReconcileIntervalS int       `yaml:"reconcile_interval_s"`
	Policy             rawPolicy `yaml:"policy"`
}

func rawFromConfig(cfg *Config) printableConfig {
	persistent := make([]rawPersistentRule, 0, len(cfg.Policy.Persistent))
	for _, r := range cfg.Policy.Persistent {
		persistent = append(persistent, rawPersistentRule{
			Executable:    r.Executable,
			TitleContains: r.TitleContains,
		})
	}
	return printableConfig{
		HideDesktopIcons:   cfg.HideDesktopIcons,
		FadeDurationMS:     int(cfg.FadeDuration / time.Millisecond),
		FadeSteps:          cfg.FadeSteps,
		ReentrancyWindowMS: int(cfg.ReentrancyWindow / time.Millisecond),
		ShortClickMaxMS:    int(cfg.ShortClickMax / time.Millisecond),
		ToggleDebounceMS:   int(cfg.ToggleDebounce / time.Millisecond),
		DestroyGraceMS:     int(cfg.DestroyGrace / time.Millisecond),
		ReconcileIntervalS: int(cfg.ReconcileInterval / time.Second),
		Policy: rawPolicy{
			ClassDenylist:   cfg.Policy.ClassDenylist,
			ProcessDenylist: cfg.Policy.ProcessDenylist,
			DesktopClasses:  cfg.Policy.DesktopClasses,
			Persistent:      persistent,
		},
	}
}
