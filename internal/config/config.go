package config

import (
	"embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/matheuskafuri/highlights/internal/score"
	"gopkg.in/yaml.v3"
)

//go:embed default_config.yaml
var defaultConfigFS embed.FS

const appName = "highlights"

type HighlightsConfig struct {
	Limit        int      `yaml:"limit"`
	MinVisits    int      `yaml:"min_visits"`
	Window       string   `yaml:"window"`
	ExcludeHosts []string `yaml:"exclude_hosts"`
}

type WeightsConfig struct {
	Recency    float64 `yaml:"recency"`
	Frequency  float64 `yaml:"frequency"`
	Engagement float64 `yaml:"engagement"`
	Richness   float64 `yaml:"richness"`
}

type ImportConfig struct {
	Paths []string `yaml:"paths"`
}

type Config struct {
	Retention  string           `yaml:"retention"`
	LogLevel   string           `yaml:"log_level"`
	Highlights HighlightsConfig `yaml:"highlights"`
	Weights    WeightsConfig    `yaml:"weights"`
	Import     ImportConfig     `yaml:"import"`
}

// RetentionDuration defaults to 90 days.
func (c *Config) RetentionDuration() time.Duration {
	d, err := ParseDuration(c.Retention)
	if err != nil || d <= 0 {
		return 90 * 24 * time.Hour
	}
	return d
}

// Window returns the highlight window, or zero for all history.
func (c *Config) Window() time.Duration {
	if c.Highlights.Window == "" {
		return 0
	}
	d, err := ParseDuration(c.Highlights.Window)
	if err != nil {
		return 0
	}
	return d
}

// Limit returns the highlight count, defaulting to 8.
func (c *Config) Limit() int {
	if c.Highlights.Limit <= 0 {
		return 8
	}
	return c.Highlights.Limit
}

func (c *Config) ScoreWeights() score.Weights {
	return score.Weights{
		Recency:    c.Weights.Recency,
		Frequency:  c.Weights.Frequency,
		Engagement: c.Weights.Engagement,
		Richness:   c.Weights.Richness,
	}
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseDuration extends time.ParseDuration with an "Nd" day suffix.
func ParseDuration(s string) (time.Duration, error) {
	if len(s) > 1 && s[len(s)-1] == 'd' {
		days, err := strconv.Atoi(s[:len(s)-1])
		if err != nil {
			return 0, fmt.Errorf("invalid day duration %q", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.yaml")
}

func DataPath() string {
	return filepath.Join(xdg.DataHome, appName, "history.db")
}

func LogPath() string {
	return filepath.Join(xdg.StateHome, appName, appName+".log")
}

func loadDefaults() (*Config, error) {
	data, err := defaultConfigFS.ReadFile("default_config.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded config: %w", err)
	}
	return &cfg, nil
}

// Load reads path on top of the embedded defaults, so keys missing from the
// file keep their default values. A missing file is created from defaults.
func Load(path string) (*Config, error) {
	defaults, err := loadDefaults()
	if err != nil {
		return nil, err
	}

	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Non-fatal: the embedded defaults still apply
			_ = writeDefaults(path)
			return defaults, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := *defaults
	cfg.Highlights.ExcludeHosts = append([]string(nil), defaults.Highlights.ExcludeHosts...)
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	return &cfg, nil
}

func writeDefaults(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, _ := defaultConfigFS.ReadFile("default_config.yaml")
	return os.WriteFile(path, data, 0o644)
}

func validate(cfg *Config) error {
	if cfg.Retention != "" {
		if d, err := ParseDuration(cfg.Retention); err != nil || d <= 0 {
			return fmt.Errorf("retention: invalid duration %q", cfg.Retention)
		}
	}
	if cfg.Highlights.Window != "" {
		if d, err := ParseDuration(cfg.Highlights.Window); err != nil || d < 0 {
			return fmt.Errorf("highlights.window: invalid duration %q", cfg.Highlights.Window)
		}
	}
	if cfg.Highlights.Limit < 0 {
		return fmt.Errorf("highlights.limit: must not be negative, got %d", cfg.Highlights.Limit)
	}
	if cfg.Highlights.MinVisits < 0 {
		return fmt.Errorf("highlights.min_visits: must not be negative, got %d", cfg.Highlights.MinVisits)
	}

	for i, h := range cfg.Highlights.ExcludeHosts {
		if h == "" {
			return fmt.Errorf("highlights.exclude_hosts[%d]: empty host", i)
		}
		if strings.ContainsAny(h, "/:") {
			return fmt.Errorf("highlights.exclude_hosts[%d]: %q must be a bare host name", i, h)
		}
	}

	w := cfg.Weights
	for name, v := range map[string]float64{
		"recency":    w.Recency,
		"frequency":  w.Frequency,
		"engagement": w.Engagement,
		"richness":   w.Richness,
	} {
		if v < 0 {
			return fmt.Errorf("weights.%s: must not be negative, got %v", name, v)
		}
	}

	switch strings.ToLower(cfg.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log_level: unknown level %q (valid: debug, info, warn, error)", cfg.LogLevel)
	}
	return nil
}
