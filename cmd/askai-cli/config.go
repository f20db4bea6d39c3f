// ABOUTME: Configuration loading for the askai command line client
// ABOUTME: Loads TOML config from XDG path with environment variable expansion

package main

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
)

type Config struct {
	Gateway   GatewayConfig   `toml:"gateway"`
	Session   SessionConfig   `toml:"session"`
	Author    AuthorConfig    `toml:"author"`
	Moderator ModeratorConfig `toml:"moderator"`
}

type GatewayConfig struct {
	URL string `toml:"url"`
}

type SessionConfig struct {
	ID       string `toml:"id"`
	Industry string `toml:"industry"`
}

type AuthorConfig struct {
	Token string `toml:"token"`
	Email string `toml:"email"`
}

type ModeratorConfig struct {
	Key string `toml:"key"`
}

// configPath returns the CLI config file path.
// Priority: ASKAI_CLI_CONFIG env var > XDG_CONFIG_HOME/askai/cli.toml > ~/.config/askai/cli.toml
func configPath() string {
	if envPath := os.Getenv("ASKAI_CLI_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "cli.toml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "askai", "cli.toml")
}

// Load reads config from the given path, expanding environment variables.
// A missing author token is generated and persisted next to the config so
// repeat runs keep the same question history.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables (${VAR} syntax)
	expanded := expandEnvVars(string(data))

	var cfg Config
	if _, err := toml.Decode(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Author.Token == "" {
		token, err := loadOrCreateAuthorToken(filepath.Dir(path))
		if err != nil {
			return nil, err
		}
		cfg.Author.Token = token
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// loadOrCreateAuthorToken reads the persisted author token, generating a
// fresh one on first use.
func loadOrCreateAuthorToken(dir string) (string, error) {
	tokenPath := filepath.Join(dir, "author-token")

	if data, err := os.ReadFile(tokenPath); err == nil {
		token := strings.TrimSpace(string(data))
		if token != "" {
			return token, nil
		}
	}

	token := uuid.NewString()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(tokenPath, []byte(token+"\n"), 0600); err != nil {
		return "", fmt.Errorf("writing author token: %w", err)
	}
	return token, nil
}

// expandEnvVars replaces ${VAR} with environment variable values.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		return os.Getenv(varName)
	})
}

// Validate checks that required config fields are present and valid.
func (c *Config) Validate() error {
	if c.Gateway.URL == "" {
		return fmt.Errorf("gateway.url is required")
	}
	u, err := url.Parse(c.Gateway.URL)
	if err != nil {
		return fmt.Errorf("gateway.url is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("gateway.url must use http or https scheme")
	}
	if c.Session.ID == "" {
		return fmt.Errorf("session.id is required")
	}
	return nil
}
