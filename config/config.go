package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"monitoroff/internal/power"

	"github.com/spf13/viper"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// EnvKeyReplacer maps nested keys to environment variables, e.g. ui.mode to MONITOROFF_UI_MODE
var EnvKeyReplacer = strings.NewReplacer(".", "_")

const (
	UIModeConsole = "console"
	UIModeWeb     = "web"
)

// Config represents the application configuration
type Config struct {
	Debug    bool
	DryRun   bool
	Log      LogConfig
	Settings SettingsConfig
	History  HistoryConfig
	UI       UIConfig
	Flow     FlowConfig
	Wake     WakeConfig
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string
	Format string // "json" or "text"
	Path   string // empty logs to stderr
}

// SettingsConfig locates the settings INI file
type SettingsConfig struct {
	Path string // empty means settings.ini next to the executable
}

// HistoryConfig contains run history settings
type HistoryConfig struct {
	Enabled bool
	Path    string
}

// UIConfig selects the front-end
type UIConfig struct {
	Mode string
	Addr string
}

// FlowConfig tunes the prompt session
type FlowConfig struct {
	Countdown time.Duration
	Grace     time.Duration
}

// WakeConfig controls wake key detection
type WakeConfig struct {
	Key  string
	Poll time.Duration
}

// SetDefaults registers the default value of every key
func SetDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("dry_run", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.path", "")
	v.SetDefault("settings.path", "")
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", "")
	v.SetDefault("ui.mode", UIModeConsole)
	v.SetDefault("ui.addr", "127.0.0.1:8765")
	v.SetDefault("flow.countdown", time.Duration(0))
	v.SetDefault("flow.grace", time.Second)
	v.SetDefault("wake.key", "space")
	v.SetDefault("wake.poll", 50*time.Millisecond)
}

// FromViper reads the configuration and validates it
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Debug:  v.GetBool("debug"),
		DryRun: v.GetBool("dry_run"),
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Path:   v.GetString("log.path"),
		},
		Settings: SettingsConfig{
			Path: v.GetString("settings.path"),
		},
		History: HistoryConfig{
			Enabled: v.GetBool("history.enabled"),
			Path:    v.GetString("history.path"),
		},
		UI: UIConfig{
			Mode: v.GetString("ui.mode"),
			Addr: v.GetString("ui.addr"),
		},
		Flow: FlowConfig{
			Countdown: v.GetDuration("flow.countdown"),
			Grace:     v.GetDuration("flow.grace"),
		},
		Wake: WakeConfig{
			Key:  v.GetString("wake.key"),
			Poll: v.GetDuration("wake.poll"),
		},
	}
	if cfg.Debug {
		cfg.Log.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.Log.Level)
	}

	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("%w: log format must be json or text", ErrInvalidConfig)
	}

	switch c.UI.Mode {
	case UIModeConsole:
	case UIModeWeb:
		if _, _, err := net.SplitHostPort(c.UI.Addr); err != nil {
			return fmt.Errorf("%w: invalid ui address %q: %v", ErrInvalidConfig, c.UI.Addr, err)
		}
	default:
		return fmt.Errorf("%w: ui mode must be %s or %s", ErrInvalidConfig, UIModeConsole, UIModeWeb)
	}

	if c.Flow.Countdown < 0 {
		return fmt.Errorf("%w: countdown cannot be negative", ErrInvalidConfig)
	}

	if c.Flow.Grace < 0 {
		return fmt.Errorf("%w: grace delay cannot be negative", ErrInvalidConfig)
	}

	if _, err := power.ParseKey(c.Wake.Key); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if c.Wake.Poll <= 0 {
		return fmt.Errorf("%w: wake poll interval must be positive", ErrInvalidConfig)
	}

	return nil
}

// WakeKey returns the parsed wake key
func (c *Config) WakeKey() power.Key {
	key, err := power.ParseKey(c.Wake.Key)
	if err != nil {
		return power.DefaultWakeKey
	}
	return key
}
