package config

import (
	"fmt"
	"strings"
)

// Validate checks the config for errors.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Cluster.Name == "" {
		errs = append(errs, "cluster.name is required")
	}
	if cfg.Cluster.Region == "" {
		errs = append(errs, "cluster.region is required")
	}
	if cfg.Cluster.Endpoint != "" && !strings.HasPrefix(cfg.Cluster.Endpoint, "https://") {
		errs = append(errs, fmt.Sprintf("cluster.endpoint must be an https URL (got %q)", cfg.Cluster.Endpoint))
	}
	if (cfg.Cluster.Endpoint == "") != (cfg.Cluster.CAData == "") {
		errs = append(errs, "cluster.endpoint and cluster.caData must be set together")
	}

	if cfg.Executor.Timeout <= 0 {
		errs = append(errs, "executor.timeout must be positive")
	}
	if cfg.Executor.FieldManager == "" {
		errs = append(errs, "executor.fieldManager is required")
	}
	if cfg.Executor.DefaultNamespace == "" {
		errs = append(errs, "executor.defaultNamespace is required")
	}

	if cfg.Audit.Enabled && cfg.Audit.Path == "" {
		errs = append(errs, "audit.path is required when audit is enabled")
	}

	if cfg.Slack.Enabled {
		if cfg.Slack.BotToken == "" {
			errs = append(errs, "slack.botToken is required when slack is enabled")
		}
		if cfg.Slack.Channel == "" {
			errs = append(errs, "slack.channel is required when slack is enabled")
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, fmt.Sprintf("logging.level must be debug, info, warn, or error (got %q)", cfg.Logging.Level))
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, fmt.Sprintf("logging.format must be json or text (got %q)", cfg.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}
