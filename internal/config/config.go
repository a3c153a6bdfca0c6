package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration for cvvin.
type Config struct {
	StorePath    string // SQLite file holding session, profile and latest result
	TaxonomyPath string // optional override of the embedded skill taxonomy
	Analysis     AnalysisConfig
	Auth         AuthConfig
	Notification NotificationConfig
	JobPosting   JobPostingConfig
	Watch        WatchConfig
}

// AnalysisConfig bounds a single analysis run.
type AnalysisConfig struct {
	Timeout        time.Duration // upper bound on normalization, extraction and scoring
	MaxUploadBytes int64         // files larger than this are refused before reading
}

// AuthConfig controls the local account and session token.
type AuthConfig struct {
	Secret     string        // HS256 signing secret; generated and persisted when empty
	Issuer     string        // token issuer claim
	TokenTTL   time.Duration // session lifetime
	BcryptCost int           // password hashing cost
}

// NotificationConfig controls where completed analyses are reported.
type NotificationConfig struct {
	Type       string        // "log" or "slack"
	WebhookURL string        // required if type is "slack"
	MinDelay   time.Duration // minimum gap between two posts to the same sink
	MaxRetries int           // additional attempts on transient webhook failures
}

// JobPostingConfig controls fetching job descriptions from posting links.
type JobPostingConfig struct {
	Timeout    time.Duration // per request
	MinDelay   time.Duration // minimum gap between two requests to the same host
	MaxRetries int
}

// WatchConfig controls `analyze --watch`.
type WatchConfig struct {
	Interval time.Duration
}

const (
	defaultStorePath      = "cvvin.db"
	defaultTimeout        = 30 * time.Second
	defaultMaxUploadBytes = 15 << 20
	defaultIssuer         = "cvvin"
	defaultTokenTTL       = 30 * 24 * time.Hour
	defaultBcryptCost     = 10
	defaultMinDelay       = 500 * time.Millisecond
	defaultMaxRetries     = 2
	defaultWatchInterval  = 5 * time.Second
	defaultPostingTimeout = 15 * time.Second
	defaultPostingDelay   = time.Second
)

// rawConfig is used for YAML unmarshaling (snake_case fields and duration as string).
type rawConfig struct {
	StorePath    string            `yaml:"store_path"`
	TaxonomyPath string            `yaml:"taxonomy_path"`
	Analysis     rawAnalysisConfig `yaml:"analysis"`
	Auth         rawAuthConfig     `yaml:"auth"`
	Notification rawNotification   `yaml:"notification"`
	JobPosting   rawJobPosting     `yaml:"job_posting"`
	Watch        rawWatchConfig    `yaml:"watch"`
}

type rawAnalysisConfig struct {
	Timeout        string `yaml:"timeout"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

type rawAuthConfig struct {
	Secret     string `yaml:"secret"`
	Issuer     string `yaml:"issuer"`
	TokenTTL   string `yaml:"token_ttl"`
	BcryptCost int    `yaml:"bcrypt_cost"`
}

type rawNotification struct {
	Type       string `yaml:"type"`
	WebhookURL string `yaml:"webhook_url"`
	MinDelay   string `yaml:"min_delay"`
	MaxRetries *int   `yaml:"max_retries"`
}

type rawJobPosting struct {
	Timeout    string `yaml:"timeout"`
	MinDelay   string `yaml:"min_delay"`
	MaxRetries *int   `yaml:"max_retries"`
}

type rawWatchConfig struct {
	Interval string `yaml:"interval"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	cfg, _ := build(rawConfig{})
	return cfg
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
// A .env file next to the working directory, when present, is loaded into the
// environment first so ${VARS} in the YAML can refer to it.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg, err := build(raw)
	if err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func build(raw rawConfig) (*Config, error) {
	timeout, err := parseDuration("analysis.timeout", raw.Analysis.Timeout, defaultTimeout)
	if err != nil {
		return nil, err
	}
	ttl, err := parseDuration("auth.token_ttl", raw.Auth.TokenTTL, defaultTokenTTL)
	if err != nil {
		return nil, err
	}
	minDelay, err := parseDuration("notification.min_delay", raw.Notification.MinDelay, defaultMinDelay)
	if err != nil {
		return nil, err
	}
	interval, err := parseDuration("watch.interval", raw.Watch.Interval, defaultWatchInterval)
	if err != nil {
		return nil, err
	}
	postingTimeout, err := parseDuration("job_posting.timeout", raw.JobPosting.Timeout, defaultPostingTimeout)
	if err != nil {
		return nil, err
	}
	postingDelay, err := parseDuration("job_posting.min_delay", raw.JobPosting.MinDelay, defaultPostingDelay)
	if err != nil {
		return nil, err
	}

	storePath := raw.StorePath
	if storePath == "" {
		storePath = defaultStorePath
	}
	maxUpload := raw.Analysis.MaxUploadBytes
	if maxUpload == 0 {
		maxUpload = defaultMaxUploadBytes
	}
	issuer := raw.Auth.Issuer
	if issuer == "" {
		issuer = defaultIssuer
	}
	cost := raw.Auth.BcryptCost
	if cost == 0 {
		cost = defaultBcryptCost
	}
	notifyType := strings.ToLower(raw.Notification.Type)
	if notifyType == "" {
		notifyType = "log"
	}
	retries := defaultMaxRetries
	if raw.Notification.MaxRetries != nil {
		retries = *raw.Notification.MaxRetries
	}
	postingRetries := defaultMaxRetries
	if raw.JobPosting.MaxRetries != nil {
		postingRetries = *raw.JobPosting.MaxRetries
	}

	return &Config{
		StorePath:    storePath,
		TaxonomyPath: raw.TaxonomyPath,
		Analysis: AnalysisConfig{
			Timeout:        timeout,
			MaxUploadBytes: maxUpload,
		},
		Auth: AuthConfig{
			Secret:     raw.Auth.Secret,
			Issuer:     issuer,
			TokenTTL:   ttl,
			BcryptCost: cost,
		},
		Notification: NotificationConfig{
			Type:       notifyType,
			WebhookURL: raw.Notification.WebhookURL,
			MinDelay:   minDelay,
			MaxRetries: retries,
		},
		JobPosting: JobPostingConfig{
			Timeout:    postingTimeout,
			MinDelay:   postingDelay,
			MaxRetries: postingRetries,
		},
		Watch: WatchConfig{Interval: interval},
	}, nil
}

func parseDuration(field, value string, def time.Duration) (time.Duration, error) {
	if value == "" {
		return def, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, value, err)
	}
	return d, nil
}

func validate(cfg *Config) error {
	if cfg.Analysis.Timeout <= 0 {
		return fmt.Errorf("analysis.timeout must be positive, got %v", cfg.Analysis.Timeout)
	}
	if cfg.Analysis.MaxUploadBytes < 0 {
		return fmt.Errorf("analysis.max_upload_bytes must not be negative, got %d", cfg.Analysis.MaxUploadBytes)
	}
	if cfg.Auth.TokenTTL < time.Minute {
		return fmt.Errorf("auth.token_ttl must be at least 1m, got %v", cfg.Auth.TokenTTL)
	}
	if cfg.Auth.Secret != "" && len(cfg.Auth.Secret) < 16 {
		return fmt.Errorf("auth.secret must be at least 16 characters")
	}
	// bcrypt accepts 4..31
	if cfg.Auth.BcryptCost < 4 || cfg.Auth.BcryptCost > 31 {
		return fmt.Errorf("auth.bcrypt_cost must be between 4 and 31, got %d", cfg.Auth.BcryptCost)
	}
	if cfg.Watch.Interval < time.Second {
		return fmt.Errorf("watch.interval must be at least 1s, got %v", cfg.Watch.Interval)
	}
	if cfg.JobPosting.Timeout <= 0 {
		return fmt.Errorf("job_posting.timeout must be positive, got %v", cfg.JobPosting.Timeout)
	}
	if cfg.JobPosting.MaxRetries < 0 {
		return fmt.Errorf("job_posting.max_retries must not be negative, got %d", cfg.JobPosting.MaxRetries)
	}
	if cfg.Notification.MaxRetries < 0 {
		return fmt.Errorf("notification.max_retries must not be negative, got %d", cfg.Notification.MaxRetries)
	}

	switch cfg.Notification.Type {
	case "log":
	case "slack":
		if cfg.Notification.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required when type is \"slack\"")
		}
		if !strings.HasPrefix(cfg.Notification.WebhookURL, "https://hooks.slack.com/") {
			return fmt.Errorf("notification.webhook_url must start with https://hooks.slack.com/")
		}
	default:
		return fmt.Errorf("notification.type must be \"log\" or \"slack\", got %q", cfg.Notification.Type)
	}

	return nil
}
