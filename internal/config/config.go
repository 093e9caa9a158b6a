package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/docker/go-units"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	BackendProcess = "process"
	BackendDocker  = "docker"
)

// MaxTimeoutLimit is the largest accepted sandbox.max_timeout, in seconds.
const MaxTimeoutLimit = 24 * 60 * 60

type SandboxConfig struct {
	Enabled           bool   `yaml:"enabled"`
	User              string `yaml:"user"`
	Home              string `yaml:"home"`
	TimeoutSeconds    int    `yaml:"timeout"`
	// MaxTimeoutSeconds bounds the per-request timeout.
	MaxTimeoutSeconds int    `yaml:"max_timeout"`
	TempRoot          string `yaml:"temp_root"` // empty = os.TempDir()
	MaxOutput         string `yaml:"max_output"`
	Backend           string `yaml:"backend"`
}

type DockerConfig struct {
	Image       string  `yaml:"image"`
	Memory      string  `yaml:"memory"`
	CPULimit    float64 `yaml:"cpu_limit"`
	PidsLimit   int     `yaml:"pids_limit"`
	NetworkMode string  `yaml:"network_mode"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"` // <= 0 disables limiting
	Burst             int     `yaml:"burst"`
}

type ReaperConfig struct {
	IntervalSeconds  int `yaml:"interval_seconds"`
	RetentionSeconds int `yaml:"retention_seconds"`
}

type Config struct {
	Listen       string          `yaml:"listen"`
	DBPath       string          `yaml:"db_path"`
	SettingsPath string          `yaml:"settings_path"`
	LogLevel     string          `yaml:"log_level"`
	Sandbox      SandboxConfig   `yaml:"sandbox"`
	Docker       DockerConfig    `yaml:"docker"`
	RateLimit    RateLimitConfig `yaml:"rate_limit"`
	Reaper       ReaperConfig    `yaml:"reaper"`
}

func Default() *Config {
	return &Config{
		Listen:       "127.0.0.1:7788",
		DBPath:       "./shellbox.db",
		SettingsPath: "./config.json",
		LogLevel:     "info",
		Sandbox: SandboxConfig{
			Enabled:           false,
			User:              "sandbox",
			Home:              "/home/sandbox",
			TimeoutSeconds:    300,
			MaxTimeoutSeconds: 3600,
			MaxOutput:         "10MiB",
			Backend:           BackendProcess,
		},
		Docker: DockerConfig{
			Image:       "alpine:3.20",
			Memory:      "512m",
			CPULimit:    1.0,
			PidsLimit:   256,
			NetworkMode: "none",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 5,
			Burst:             10,
		},
		Reaper: ReaperConfig{
			IntervalSeconds:  60,
			RetentionSeconds: 3600,
		},
	}
}

// Load builds the configuration from defaults, the optional YAML (or JSON)
// file at path, a .env file in the working directory and the process
// environment, in increasing order of precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	loadDotEnv()
	applyEnvOverrides(cfg)

	return cfg, nil
}

// loadDotEnv loads .env style files without overriding variables that are
// already set. Missing files are ignored.
func loadDotEnv(files ...string) {
	_ = godotenv.Load(files...)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ENABLE_SANDBOX"); v != "" {
		cfg.Sandbox.Enabled = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("SANDBOX_USER"); v != "" {
		cfg.Sandbox.User = v
	}
	if v := os.Getenv("SANDBOX_HOME"); v != "" {
		cfg.Sandbox.Home = v
	}
	if v := os.Getenv("SANDBOX_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Sandbox.TimeoutSeconds = n
		}
	}
	if v := os.Getenv("SANDBOX_MAX_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Sandbox.MaxTimeoutSeconds = n
		}
	}
	if v := os.Getenv("SHELLBOX_TEMP_ROOT"); v != "" {
		cfg.Sandbox.TempRoot = v
	}
	if v := os.Getenv("SHELLBOX_MAX_OUTPUT"); v != "" {
		cfg.Sandbox.MaxOutput = v
	}
	if v := os.Getenv("SHELLBOX_BACKEND"); v != "" {
		cfg.Sandbox.Backend = v
	}
	if v := os.Getenv("SHELLBOX_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("SHELLBOX_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("SHELLBOX_SETTINGS_PATH"); v != "" {
		cfg.SettingsPath = v
	}
	if v := os.Getenv("SHELLBOX_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("SHELLBOX_DOCKER_IMAGE"); v != "" {
		cfg.Docker.Image = v
	}
	if v := os.Getenv("SHELLBOX_DOCKER_MEMORY"); v != "" {
		cfg.Docker.Memory = v
	}
	if v := os.Getenv("SHELLBOX_EXEC_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimit.RequestsPerSecond = f
		}
	}
	if v := os.Getenv("SHELLBOX_EXEC_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimit.Burst = n
		}
	}
	if v := os.Getenv("SHELLBOX_REAPER_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Reaper.IntervalSeconds = n
		}
	}
	if v := os.Getenv("SHELLBOX_REAPER_RETENTION_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Reaper.RetentionSeconds = n
		}
	}
}

// MaxOutputBytes parses Sandbox.MaxOutput ("10MiB", "512k", "1048576").
func (c *Config) MaxOutputBytes() (int64, error) {
	return units.RAMInBytes(c.Sandbox.MaxOutput)
}

func (c *Config) DockerMemoryBytes() (int64, error) {
	return units.RAMInBytes(c.Docker.Memory)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Listen == "" {
		errs = append(errs, errors.New("listen address is required"))
	}
	if c.Sandbox.TimeoutSeconds < 1 {
		errs = append(errs, fmt.Errorf("sandbox timeout must be at least 1 second, got %d", c.Sandbox.TimeoutSeconds))
	}
	if c.Sandbox.MaxTimeoutSeconds < 1 || c.Sandbox.MaxTimeoutSeconds > MaxTimeoutLimit {
		errs = append(errs, fmt.Errorf("sandbox max_timeout must be between 1 and %d seconds, got %d", MaxTimeoutLimit, c.Sandbox.MaxTimeoutSeconds))
	} else if c.Sandbox.TimeoutSeconds > c.Sandbox.MaxTimeoutSeconds {
		errs = append(errs, fmt.Errorf("sandbox timeout %d exceeds max_timeout %d", c.Sandbox.TimeoutSeconds, c.Sandbox.MaxTimeoutSeconds))
	}
	if c.Reaper.IntervalSeconds < 1 {
		errs = append(errs, fmt.Errorf("reaper interval must be at least 1 second, got %d", c.Reaper.IntervalSeconds))
	}
	if c.Reaper.RetentionSeconds < 0 {
		errs = append(errs, fmt.Errorf("reaper retention must not be negative, got %d", c.Reaper.RetentionSeconds))
	}
	switch c.Sandbox.Backend {
	case BackendProcess, BackendDocker:
	default:
		errs = append(errs, fmt.Errorf("unknown sandbox backend %q", c.Sandbox.Backend))
	}
	if n, err := c.MaxOutputBytes(); err != nil {
		errs = append(errs, fmt.Errorf("sandbox max_output: %w", err))
	} else if n <= 0 {
		errs = append(errs, fmt.Errorf("sandbox max_output must be positive"))
	}
	if c.Sandbox.Backend == BackendDocker {
		if c.Docker.Image == "" {
			errs = append(errs, errors.New("docker image is required for the docker backend"))
		}
		if _, err := c.DockerMemoryBytes(); err != nil {
			errs = append(errs, fmt.Errorf("docker memory: %w", err))
		}
	}
	return errors.Join(errs...)
}

// SandboxOverrides are sandbox settings saved from the UI. Nil fields were
// never saved.
type SandboxOverrides struct {
	Enabled *bool   `json:"enabled,omitempty"`
	User    *string `json:"user,omitempty"`
	Timeout *int    `json:"timeout,omitempty"`
}

// ApplySandboxOverrides applies saved settings below the environment: a field
// whose variable is set in the environment keeps the environment's value. A
// saved timeout is capped at MaxTimeoutSeconds.
func (c *Config) ApplySandboxOverrides(o SandboxOverrides) {
	if _, ok := os.LookupEnv("ENABLE_SANDBOX"); !ok && o.Enabled != nil {
		c.Sandbox.Enabled = *o.Enabled
	}
	if _, ok := os.LookupEnv("SANDBOX_USER"); !ok && o.User != nil && *o.User != "" {
		c.Sandbox.User = *o.User
	}
	if _, ok := os.LookupEnv("SANDBOX_TIMEOUT"); !ok && o.Timeout != nil && *o.Timeout > 0 {
		c.Sandbox.TimeoutSeconds = *o.Timeout
		if m := c.Sandbox.MaxTimeoutSeconds; m > 0 && c.Sandbox.TimeoutSeconds > m {
			c.Sandbox.TimeoutSeconds = m
		}
	}
}
