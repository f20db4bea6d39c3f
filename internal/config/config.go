// ABOUTME: Configuration loading and parsing for askai-gateway
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/2389/askai-gateway/internal/ratelimit"
	"github.com/2389/askai-gateway/internal/realtime"
	"github.com/2389/askai-gateway/internal/worker"
)

// Config represents the complete askai-gateway configuration
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Tailscale   TailscaleConfig   `yaml:"tailscale"`
	Database    DatabaseConfig    `yaml:"database"`
	SignalR     SignalRConfig     `yaml:"signalr"`
	Moderation  ModerationConfig  `yaml:"moderation"`
	Completion  CompletionConfig  `yaml:"completion"`
	Worker      WorkerConfig      `yaml:"worker"`
	Submissions SubmissionsConfig `yaml:"submissions"`
	Admin       AdminConfig       `yaml:"admin"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// TailscaleConfig holds Tailscale tsnet configuration
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Hostname  string `yaml:"hostname"`
	AuthKey   string `yaml:"auth_key"`
	StateDir  string `yaml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral"`
	HTTPS     bool   `yaml:"https"`  // serve TLS with Tailscale-provisioned certs
	Funnel    bool   `yaml:"funnel"` // Enable public Funnel (implies HTTPS)
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// SignalRConfig holds broadcast broker configuration
type SignalRConfig struct {
	// Endpoint is the broker base URL, e.g. https://askai.service.signalr.net
	Endpoint string `yaml:"endpoint"`
	// Hub is the logical channel all sessions share
	Hub string `yaml:"hub"`
	// AccessKey signs the tokens the broker accepts
	AccessKey string `yaml:"access_key"`

	TokenTTL    time.Duration `yaml:"-"`
	TokenTTLRaw string        `yaml:"token_ttl"`
}

// ModerationConfig holds content moderation configuration.
// Leaving the endpoint empty disables moderation entirely.
type ModerationConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
}

// CompletionConfig holds AI completion backend configuration
type CompletionConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`

	Timeout    time.Duration `yaml:"-"`
	TimeoutRaw string        `yaml:"timeout"`
}

// WorkerConfig holds answer worker configuration.
// Disable the in-process ticker when an external scheduler drives the
// `tick` subcommand instead.
type WorkerConfig struct {
	Enabled bool `yaml:"enabled"`

	Interval    time.Duration `yaml:"-"`
	IntervalRaw string        `yaml:"interval"`
}

// SubmissionsConfig holds submission throttling configuration
type SubmissionsConfig struct {
	Cooldown    time.Duration `yaml:"-"`
	CooldownRaw string        `yaml:"cooldown"`
}

// AdminConfig holds operator-facing configuration
type AdminConfig struct {
	// ModeratorKeyHash is the bcrypt hash of the key the hide endpoint
	// requires. Empty leaves hide unprotected (logged at startup).
	ModeratorKeyHash string `yaml:"moderator_key_hash"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Defaults applied after parsing. Duration defaults come from the packages
// that own the behavior, so the config and the runtime cannot drift.
const (
	DefaultHub               = "askai"
	DefaultTokenTTL          = realtime.DefaultTokenTTL
	DefaultWorkerInterval    = worker.DefaultInterval
	DefaultCooldown          = ratelimit.DefaultCooldown
	DefaultCompletionTimeout = worker.DefaultCompletionTimeout
)

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyDefaults fills in values the file may omit.
func (c *Config) applyDefaults() {
	if c.SignalR.Hub == "" {
		c.SignalR.Hub = DefaultHub
	}
	if c.SignalR.TokenTTL == 0 {
		c.SignalR.TokenTTL = DefaultTokenTTL
	}
	if c.Worker.Interval == 0 {
		c.Worker.Interval = DefaultWorkerInterval
	}
	if c.Submissions.Cooldown == 0 {
		c.Submissions.Cooldown = DefaultCooldown
	}
	if c.Completion.Timeout == 0 {
		c.Completion.Timeout = DefaultCompletionTimeout
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	// The HTTP address is required unless Tailscale provides the listener
	if !c.Tailscale.Enabled && c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required (or enable tailscale)")
	}

	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.SignalR.Endpoint == "" {
		return fmt.Errorf("signalr.endpoint is required")
	}
	if c.SignalR.AccessKey == "" {
		return fmt.Errorf("signalr.access_key is required")
	}

	if c.Worker.Enabled && c.Completion.Endpoint == "" {
		return fmt.Errorf("completion.endpoint is required when the worker is enabled")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	durations := []struct {
		raw  string
		out  *time.Duration
		name string
	}{
		{cfg.SignalR.TokenTTLRaw, &cfg.SignalR.TokenTTL, "signalr.token_ttl"},
		{cfg.Completion.TimeoutRaw, &cfg.Completion.Timeout, "completion.timeout"},
		{cfg.Worker.IntervalRaw, &cfg.Worker.Interval, "worker.interval"},
		{cfg.Submissions.CooldownRaw, &cfg.Submissions.Cooldown, "submissions.cooldown"},
	}

	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", d.name, d.raw, err)
		}
		*d.out = parsed
	}

	return nil
}
