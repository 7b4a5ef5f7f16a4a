package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Cluster  ClusterConfig  `yaml:"cluster"`
	Executor ExecutorConfig `yaml:"executor"`
	Audit    AuditConfig    `yaml:"audit"`
	Slack    SlackConfig    `yaml:"slack"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ClusterConfig identifies the single target cluster. Endpoint and CAData
// are optional overrides; when empty they are resolved through the EKS API
// at startup.
type ClusterConfig struct {
	Name     string `yaml:"name"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
	CAData   string `yaml:"caData"`
}

type ExecutorConfig struct {
	Timeout          time.Duration `yaml:"timeout"`
	FieldManager     string        `yaml:"fieldManager"`
	DefaultNamespace string        `yaml:"defaultNamespace"`
}

type AuditConfig struct {
	Enabled           bool   `yaml:"enabled"`
	Path              string `yaml:"path"`
	MaxOpenConns      int    `yaml:"maxOpenConns"`
	PragmaJournalMode string `yaml:"pragmaJournalMode"`
	PragmaBusyTimeout int    `yaml:"pragmaBusyTimeout"`
}

type SlackConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"botToken"`
	Channel  string `yaml:"channel"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a YAML config file and returns a Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadFromEnv builds a Config from EKSOPS_* environment variables. Used in
// environments without a config file, such as Lambda.
func LoadFromEnv() (*Config, error) {
	cfg := DefaultConfig()

	cfg.Cluster.Name = envOr("EKSOPS_CLUSTER_NAME", cfg.Cluster.Name)
	cfg.Cluster.Region = envOr("EKSOPS_REGION", cfg.Cluster.Region)
	cfg.Cluster.Endpoint = envOr("EKSOPS_CLUSTER_ENDPOINT", cfg.Cluster.Endpoint)
	cfg.Cluster.CAData = envOr("EKSOPS_CLUSTER_CA_DATA", cfg.Cluster.CAData)

	if v := os.Getenv("EKSOPS_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("parsing EKSOPS_TIMEOUT: %w", err)
		}
		cfg.Executor.Timeout = d
	}
	cfg.Executor.FieldManager = envOr("EKSOPS_FIELD_MANAGER", cfg.Executor.FieldManager)
	cfg.Executor.DefaultNamespace = envOr("EKSOPS_DEFAULT_NAMESPACE", cfg.Executor.DefaultNamespace)

	if v := os.Getenv("EKSOPS_AUDIT_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("parsing EKSOPS_AUDIT_ENABLED: %w", err)
		}
		cfg.Audit.Enabled = b
	}
	cfg.Audit.Path = envOr("EKSOPS_AUDIT_PATH", cfg.Audit.Path)

	if v := os.Getenv("EKSOPS_SLACK_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("parsing EKSOPS_SLACK_ENABLED: %w", err)
		}
		cfg.Slack.Enabled = b
	}
	cfg.Slack.BotToken = envOr("EKSOPS_SLACK_BOT_TOKEN", cfg.Slack.BotToken)
	cfg.Slack.Channel = envOr("EKSOPS_SLACK_CHANNEL", cfg.Slack.Channel)

	cfg.Logging.Level = envOr("EKSOPS_LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = envOr("EKSOPS_LOG_FORMAT", cfg.Logging.Format)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Cluster: ClusterConfig{
			Name:   "django-cluster",
			Region: "us-east-1",
		},
		Executor: ExecutorConfig{
			Timeout:          60 * time.Second,
			FieldManager:     "eksops",
			DefaultNamespace: "prod",
		},
		Audit: AuditConfig{
			Enabled:           false,
			Path:              "/data/eksops.db",
			MaxOpenConns:      1,
			PragmaJournalMode: "wal",
			PragmaBusyTimeout: 5000,
		},
		Slack: SlackConfig{
			Enabled: false,
			Channel: "#eks-ops",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// expandEnvVars replaces ${VAR} patterns with environment variable values.
func expandEnvVars(s string) string {
	return os.Expand(s, func(key string) string {
		if val, ok := os.LookupEnv(key); ok {
			return val
		}
		return "${" + key + "}"
	})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
