// Package config loads habitual's config.yaml, with HABITUAL_* environment
// variables and an optional .env file layered on top.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/utils"
)

const envPrefix = "HABITUAL"

// KeyringDatabase selects the connection string stored in the OS keyring.
const KeyringDatabase = "keyring"

type NotifyConfig struct {
	GracePeriodMin int `mapstructure:"grace_period_min" yaml:"grace_period_min"`
	MaxRetries     int `mapstructure:"max_retries" yaml:"max_retries"`
	RetryDelayMs   int `mapstructure:"retry_delay_ms" yaml:"retry_delay_ms"`
	DurationMs     int `mapstructure:"duration_ms" yaml:"duration_ms"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
	// Secret authenticates action callbacks. When empty the keyring is consulted.
	Secret string `mapstructure:"secret" yaml:"secret"`
}

// Config is the top-level application configuration.
type Config struct {
	// Database is a SQLite path, a PostgreSQL URL without password, or "keyring".
	Database string       `mapstructure:"database" yaml:"database"`
	Timezone string       `mapstructure:"timezone" yaml:"timezone"`
	Debug    bool         `mapstructure:"debug" yaml:"debug"`
	Notify   NotifyConfig `mapstructure:"notify" yaml:"notify"`
	Server   ServerConfig `mapstructure:"server" yaml:"server"`
}

// DefaultPath returns ~/.config/habitual/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", constants.AppName, "config.yaml")
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Database: constants.DefaultConfigPath,
		Timezone: constants.DefaultTimezone,
		Notify: NotifyConfig{
			GracePeriodMin: constants.DefaultNotificationGracePeriodMin,
			MaxRetries:     constants.NotifyMaxRetries,
			RetryDelayMs:   int(constants.NotifyRetryDelay / time.Millisecond),
			DurationMs:     constants.NotificationDurationMs,
		},
		Server: ServerConfig{
			Addr: constants.DefaultServerAddr,
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("database", d.Database)
	v.SetDefault("timezone", d.Timezone)
	v.SetDefault("debug", d.Debug)
	v.SetDefault("notify.grace_period_min", d.Notify.GracePeriodMin)
	v.SetDefault("notify.max_retries", d.Notify.MaxRetries)
	v.SetDefault("notify.retry_delay_ms", d.Notify.RetryDelayMs)
	v.SetDefault("notify.duration_ms", d.Notify.DurationMs)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.secret", d.Server.Secret)
}

// LoadDotEnv loads .env files into the process environment. Missing files
// are not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// Load reads the config file at path. A missing file yields the defaults,
// still subject to environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *os.PathError
		if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.Database = ExpandHome(cfg.Database)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg as YAML, creating parent directories if needed.
func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("database", cfg.Database)
	v.Set("timezone", cfg.Timezone)
	v.Set("debug", cfg.Debug)
	v.Set("notify", map[string]any{
		"grace_period_min": cfg.Notify.GracePeriodMin,
		"max_retries":      cfg.Notify.MaxRetries,
		"retry_delay_ms":   cfg.Notify.RetryDelayMs,
		"duration_ms":      cfg.Notify.DurationMs,
	})
	v.Set("server", map[string]any{
		"addr":   cfg.Server.Addr,
		"secret": cfg.Server.Secret,
	})

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database) == "" {
		return errors.New("database cannot be empty")
	}
	if !utils.ValidateTimezone(c.Timezone) {
		return fmt.Errorf("unknown timezone %q", c.Timezone)
	}
	if c.Notify.GracePeriodMin <= 0 {
		return fmt.Errorf("notify.grace_period_min must be positive, got %d", c.Notify.GracePeriodMin)
	}
	if c.Notify.MaxRetries < 1 {
		return fmt.Errorf("notify.max_retries must be at least 1, got %d", c.Notify.MaxRetries)
	}
	if c.Notify.RetryDelayMs < 0 {
		return fmt.Errorf("notify.retry_delay_ms cannot be negative, got %d", c.Notify.RetryDelayMs)
	}
	if c.Notify.DurationMs <= 0 {
		return fmt.Errorf("notify.duration_ms must be positive, got %d", c.Notify.DurationMs)
	}
	return nil
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	return utils.LoadLocation(c.Timezone)
}

func (c *Config) GracePeriod() time.Duration {
	return time.Duration(c.Notify.GracePeriodMin) * time.Minute
}

// RetryPolicy is the backoff used for notification backend calls.
func (c *Config) RetryPolicy() utils.RetryPolicy {
	return utils.RetryPolicy{
		Attempts: c.Notify.MaxRetries,
		Delay:    time.Duration(c.Notify.RetryDelayMs) * time.Millisecond,
	}
}

// CallbackURL is where the tray posts notification actions.
func (c *Config) CallbackURL() string {
	return "http://" + c.Server.Addr + "/actions"
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
