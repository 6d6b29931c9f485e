// Package config provides application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	Port          int
	WebhookSecret string // empty disables deploy request signing
	LogLevel      string

	// GitHub App credentials (optional). When set, repositories on
	// github.com are fetched as API tarballs instead of through git.
	GitHubAppID          int64
	GitHubInstallationID int64
	GitHubPrivateKey     string // PEM file contents

	// OpenTelemetry (optional)
	OTelEnabled bool // OTEL_ENABLED feature flag
}

// GitHubConfigured reports whether the GitHub App credential set is complete.
func (c Config) GitHubConfigured() bool {
	return c.GitHubAppID != 0 && c.GitHubInstallationID != 0 && c.GitHubPrivateKey != ""
}

// Load reads configuration from environment variables and applies defaults
// for Port (9000) and LogLevel ("info"). The GitHub App credentials must be
// set all together or not at all.
func Load() (Config, error) {
	cfg := Config{
		Port:     9000,
		LogLevel: "info",
	}

	if err := loadCoreConfig(&cfg); err != nil {
		return Config{}, err
	}

	if err := loadGitHubConfig(&cfg); err != nil {
		return Config{}, err
	}

	cfg.OTelEnabled = os.Getenv("OTEL_ENABLED") == "true"

	return cfg, nil
}

func loadCoreConfig(cfg *Config) error {
	if v := os.Getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Port = p
	}

	cfg.WebhookSecret = os.Getenv("DEPLOY_WEBHOOK_SECRET")

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	return nil
}

func loadGitHubConfig(cfg *Config) error {
	appID, installationID := os.Getenv("GITHUB_APP_ID"), os.Getenv("GITHUB_INSTALLATION_ID")
	cfg.GitHubPrivateKey = os.Getenv("GITHUB_PRIVATE_KEY")

	if appID == "" && installationID == "" && cfg.GitHubPrivateKey == "" {
		return nil // GitHub App integration is optional
	}
	if appID == "" || installationID == "" || cfg.GitHubPrivateKey == "" {
		return fmt.Errorf(
			"GITHUB_APP_ID, GITHUB_INSTALLATION_ID and GITHUB_PRIVATE_KEY must be set together",
		)
	}

	var err error
	cfg.GitHubAppID, err = parseInt64("GITHUB_APP_ID", appID)
	if err != nil {
		return err
	}
	cfg.GitHubInstallationID, err = parseInt64("GITHUB_INSTALLATION_ID", installationID)
	return err
}

func parseInt64(envKey, v string) (int64, error) {
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", envKey, v, err)
	}
	return id, nil
}
