package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	configPathEnv    = "MICROLOAN_CONFIG"
	dotEnvPathEnv    = "MICROLOAN_DOTENV"
	listenAddrEnv    = "MICROLOAN_LISTEN_ADDR"
	creditURLEnv     = "CREDIT_SERVICE_URL"
	fraudURLEnv      = "FRAUD_SERVICE_URL"
	statsURLEnv      = "STATS_SERVICE_URL"
	serviceAPIKeyEnv = "SCORING_API_KEY"
	logLevelEnv      = "LOG_LEVEL"
	defaultDotEnv    = ".env"
	defaultBaseURL   = "http://localhost:5000"
)

// Config holds high-level settings required across the application.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Services     ServicesConfig     `yaml:"services"`
	Underwriting UnderwritingConfig `yaml:"underwriting"`
	Dashboard    DashboardConfig    `yaml:"dashboard"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	ListenAddr string `yaml:"listenAddr"`
}

// ServicesConfig locates the remote scoring and stats services.
type ServicesConfig struct {
	CreditBaseURL string   `yaml:"creditBaseUrl"`
	FraudBaseURL  string   `yaml:"fraudBaseUrl"`
	StatsBaseURL  string   `yaml:"statsBaseUrl"`
	APIKey        string   `yaml:"apiKey"`
	Timeout       Duration `yaml:"timeout"`
}

// UnderwritingConfig tunes the orchestrator.
type UnderwritingConfig struct {
	// Mode is "concurrent" (default) or "sequential".
	Mode string `yaml:"mode"`
}

// DashboardConfig tunes the portfolio stats poller.
type DashboardConfig struct {
	PollInterval    Duration `yaml:"pollInterval"`
	ActivateOnStart *bool    `yaml:"activateOnStart"`
}

// LoggingConfig selects the slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Duration decodes YAML strings such as "30s" or "1500ms".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std converts to time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// ActivateDashboardOnStart reports whether the dashboard poller runs from boot.
func (c DashboardConfig) ActivateDashboardOnStart() bool {
	return c.ActivateOnStart != nil && *c.ActivateOnStart
}

// Load reads .env and YAML configuration (if present) and applies
// environment overrides.
func Load() Config {
	loadDotEnv()

	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

// loadDotEnv populates unset environment variables from a .env file.
// Variables already set in the process environment win.
func loadDotEnv() {
	path := os.Getenv(dotEnvPathEnv)
	if path == "" {
		path = defaultDotEnv
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("config: cannot load %s: %v", path, err)
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(listenAddrEnv); v != "" {
		c.Server.ListenAddr = v
	}

	if v := os.Getenv(creditURLEnv); v != "" {
		c.Services.CreditBaseURL = v
	}

	if v := os.Getenv(fraudURLEnv); v != "" {
		c.Services.FraudBaseURL = v
	}

	if v := os.Getenv(statsURLEnv); v != "" {
		c.Services.StatsBaseURL = v
	}

	if v := os.Getenv(serviceAPIKeyEnv); v != "" {
		c.Services.APIKey = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Server.ListenAddr != "" {
		base.Server.ListenAddr = override.Server.ListenAddr
	}

	if override.Services.CreditBaseURL != "" {
		base.Services.CreditBaseURL = override.Services.CreditBaseURL
	}
	if override.Services.FraudBaseURL != "" {
		base.Services.FraudBaseURL = override.Services.FraudBaseURL
	}
	if override.Services.StatsBaseURL != "" {
		base.Services.StatsBaseURL = override.Services.StatsBaseURL
	}
	if override.Services.APIKey != "" {
		base.Services.APIKey = override.Services.APIKey
	}
	if override.Services.Timeout > 0 {
		base.Services.Timeout = override.Services.Timeout
	}

	if override.Underwriting.Mode != "" {
		base.Underwriting.Mode = override.Underwriting.Mode
	}

	if override.Dashboard.PollInterval > 0 {
		base.Dashboard.PollInterval = override.Dashboard.PollInterval
	}
	if override.Dashboard.ActivateOnStart != nil {
		base.Dashboard.ActivateOnStart = override.Dashboard.ActivateOnStart
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	return base
}

func defaultConfig() Config {
	activate := false
	return Config{
		Server: ServerConfig{ListenAddr: ":8080"},
		Services: ServicesConfig{
			CreditBaseURL: defaultBaseURL,
			FraudBaseURL:  defaultBaseURL,
			StatsBaseURL:  defaultBaseURL,
			Timeout:       Duration(10 * time.Second),
		},
		Underwriting: UnderwritingConfig{Mode: "concurrent"},
		Dashboard: DashboardConfig{
			PollInterval:    Duration(30 * time.Second),
			ActivateOnStart: &activate,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}
