// Package config loads the notification system's startup configuration:
// the backend list, site identity, templates and translations from a YAML
// file, and connection settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	pkgconfig "notice-dispatch/internal/pkg/config"
	"notice-dispatch/internal/usecase/notify"
)

// Store drivers.
const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreMemory   = "memory"
)

// Lock backends.
const (
	LockFile     = "file"
	LockPostgres = "postgres"
	LockRedis    = "redis"
)

// Config is the full startup configuration.
type Config struct {
	Site          notify.Site           `yaml:"site"`
	DefaultLocale string                `yaml:"default_locale"`
	QueueAll      bool                  `yaml:"queue_all"`
	Admins        []string              `yaml:"admins"`
	Backends      []notify.BackendEntry `yaml:"backends"`
	// TemplatesDir holds <label>/<format>[.<locale>].txt files.
	TemplatesDir string `yaml:"templates_dir"`
	// Translations maps locale to message key to text.
	Translations map[string]map[string]string `yaml:"translations"`

	Store StoreConfig `yaml:"store"`
	Lock  LockConfig  `yaml:"lock"`
	SMTP  SMTPConfig  `yaml:"smtp"`
	Slack SlackConfig `yaml:"slack"`
}

type StoreConfig struct {
	Driver      string `yaml:"driver"`
	DatabaseURL string `yaml:"-"`
	SQLitePath  string `yaml:"sqlite_path"`
	// Migrate applies the schema at startup.
	Migrate bool `yaml:"migrate"`
}

type LockConfig struct {
	Backend  string        `yaml:"backend"`
	Dir      string        `yaml:"dir"`
	RedisURL string        `yaml:"-"`
	RedisTTL time.Duration `yaml:"redis_ttl"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"-"`
	From     string `yaml:"from"`
}

// Enabled reports whether an SMTP relay is configured.
func (c SMTPConfig) Enabled() bool { return c.Host != "" }

type SlackConfig struct {
	WebhookURL        string        `yaml:"-"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
}

// Default returns the configuration used when no file is given: a single
// email backend, the filesystem lock and the postgres store.
func Default() Config {
	return Config{
		Site:          notify.Site{Name: "example.com", Domain: "example.com", Protocol: "https"},
		DefaultLocale: "en",
		Backends:      []notify.BackendEntry{{Label: "email", Backend: "email"}},
		Store:         StoreConfig{Driver: StorePostgres, SQLitePath: "notices.db"},
		Lock:          LockConfig{Backend: LockFile, Dir: os.TempDir()},
		SMTP:          SMTPConfig{Port: 25, From: "webmaster@localhost"},
		Slack:         SlackConfig{Timeout: 10 * time.Second},
	}
}

// Load reads the YAML file at path, when path is not empty, then applies
// environment overrides and validates the result. Warnings describe
// environment values that were ignored in favor of defaults.
func Load(path string) (*Config, []string, error) {
	cfg := Default()
	if path != "" {
		// #nosec G304 -- path comes from the operator's environment
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	warnings := applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, warnings, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, warnings, nil
}

// LoadFromEnv loads the file named by NOTIFICATION_CONFIG, if any.
func LoadFromEnv() (*Config, []string, error) {
	return Load(os.Getenv("NOTIFICATION_CONFIG"))
}

func applyEnv(cfg *Config) []string {
	var warnings []string
	str := func(key string, dst *string) {
		*dst = pkgconfig.LoadEnvString(key, *dst)
	}

	str("NOTIFICATION_STORE", &cfg.Store.Driver)
	str("DATABASE_URL", &cfg.Store.DatabaseURL)
	str("SQLITE_PATH", &cfg.Store.SQLitePath)
	str("NOTIFICATION_LOCK_BACKEND", &cfg.Lock.Backend)
	str("NOTIFICATION_LOCK_DIR", &cfg.Lock.Dir)
	str("REDIS_URL", &cfg.Lock.RedisURL)
	str("NOTIFICATION_DEFAULT_LOCALE", &cfg.DefaultLocale)
	str("SMTP_HOST", &cfg.SMTP.Host)
	str("SMTP_USERNAME", &cfg.SMTP.Username)
	str("SMTP_PASSWORD", &cfg.SMTP.Password)
	str("SMTP_FROM", &cfg.SMTP.From)
	str("SLACK_WEBHOOK_URL", &cfg.Slack.WebhookURL)

	if v := os.Getenv("NOTIFICATION_ADMINS"); v != "" {
		cfg.Admins = splitList(v)
	}

	queueAll := pkgconfig.LoadEnvBool("NOTIFICATION_QUEUE_ALL", cfg.QueueAll)
	cfg.QueueAll = queueAll.Value
	warnings = append(warnings, queueAll.Warnings...)

	migrate := pkgconfig.LoadEnvBool("NOTIFICATION_MIGRATE", cfg.Store.Migrate)
	cfg.Store.Migrate = migrate.Value
	warnings = append(warnings, migrate.Warnings...)

	port := pkgconfig.LoadEnvInt("SMTP_PORT", cfg.SMTP.Port, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 1, 65535)
	})
	cfg.SMTP.Port = port.Value
	warnings = append(warnings, port.Warnings...)

	ttl := pkgconfig.LoadEnvDuration("NOTIFICATION_LOCK_TTL", cfg.Lock.RedisTTL, pkgconfig.ValidatePositiveDuration)
	cfg.Lock.RedisTTL = ttl.Value
	warnings = append(warnings, ttl.Warnings...)

	return warnings
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks cross-field requirements. Backend labels and factory
// references are checked when the registry is built.
func (c *Config) Validate() error {
	var errs []error

	if err := pkgconfig.OneOf(StorePostgres, StoreSQLite, StoreMemory)(c.Store.Driver); err != nil {
		errs = append(errs, fmt.Errorf("store driver: %w", err))
	}
	if c.Store.Driver == StorePostgres && c.Store.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
	}
	if c.Store.Driver == StoreSQLite && c.Store.SQLitePath == "" {
		errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite store"))
	}

	if err := pkgconfig.OneOf(LockFile, LockPostgres, LockRedis)(c.Lock.Backend); err != nil {
		errs = append(errs, fmt.Errorf("lock backend: %w", err))
	}
	switch c.Lock.Backend {
	case LockFile:
		if c.Lock.Dir == "" {
			errs = append(errs, errors.New("NOTIFICATION_LOCK_DIR is required for the file lock"))
		}
	case LockPostgres:
		if c.Store.Driver != StorePostgres {
			errs = append(errs, errors.New("the postgres lock requires the postgres store"))
		}
	case LockRedis:
		if err := pkgconfig.ValidateURL(c.Lock.RedisURL, "redis", "rediss"); err != nil {
			errs = append(errs, fmt.Errorf("REDIS_URL: %w", err))
		}
	}

	if c.DefaultLocale == "" {
		errs = append(errs, errors.New("default locale cannot be empty"))
	}

	for _, b := range c.Backends {
		switch b.Backend {
		case "email":
			if !c.SMTP.Enabled() {
				errs = append(errs, fmt.Errorf("backend %q: SMTP_HOST is required", b.Label))
			}
		case "slack":
			if err := pkgconfig.ValidateURL(c.Slack.WebhookURL, "https"); err != nil {
				errs = append(errs, fmt.Errorf("backend %q: SLACK_WEBHOOK_URL: %w", b.Label, err))
			}
		}
	}

	if len(c.Admins) > 0 && !c.SMTP.Enabled() {
		errs = append(errs, errors.New("admins are configured but SMTP_HOST is not set"))
	}

	return errors.Join(errs...)
}
