package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the care engine.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Baby     BabyConfig     `yaml:"baby"`
	Store    StoreConfig    `yaml:"store"`
	Profiles ProfilesConfig `yaml:"profiles"`
	Forecast ForecastConfig `yaml:"forecast"`
	Solver   SolverConfig   `yaml:"solver"`
	Notify   NotifyConfig   `yaml:"notify"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig controls HTTP listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
	Debug           bool          `yaml:"debug"`
}

// BabyConfig identifies the tracked baby.
type BabyConfig struct {
	// BirthDate in YYYY-MM-DD. Assumed valid; age math is not defended
	// against absurd dates.
	BirthDate string `yaml:"birthDate"`
}

// StoreConfig selects and locates the persistence backend.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

// ProfilesConfig points at an optional age-guideline YAML pack.
type ProfilesConfig struct {
	Path string `yaml:"path"`
}

// ForecastConfig tunes history windows for predictions.
type ForecastConfig struct {
	LookbackDays int     `yaml:"lookbackDays"`
	HorizonHours float64 `yaml:"horizonHours"`
}

// SolverConfig provides solve defaults when a request omits them.
type SolverConfig struct {
	TargetSleepHours  float64 `yaml:"targetSleepHours"`
	MomPreferredStart float64 `yaml:"momPreferredStart"`
	DadPreferredStart float64 `yaml:"dadPreferredStart"`
	AllowOverlap      bool    `yaml:"allowOverlap"`
}

// NotifyConfig controls the desktop notification watcher.
type NotifyConfig struct {
	Enabled      bool          `yaml:"enabled"`
	LeadMinutes  int           `yaml:"leadMinutes"`
	PollInterval time.Duration `yaml:"pollInterval"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// BirthDateTime parses the configured birth date.
func (c BabyConfig) BirthDateTime() (time.Time, error) {
	t, err := time.Parse("2006-01-02", c.BirthDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse baby.birthDate: %w", err)
	}
	return t, nil
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CARE_ENGINE_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8490",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Store: StoreConfig{
			Driver: "sqlite",
			Path:   "data/care-engine.db",
		},
		Forecast: ForecastConfig{
			LookbackDays: 10,
			HorizonHours: 24,
		},
		Solver: SolverConfig{
			TargetSleepHours:  7,
			MomPreferredStart: 22,
			DadPreferredStart: 6,
		},
		Notify: NotifyConfig{
			Enabled:      false,
			LeadMinutes:  15,
			PollInterval: time.Minute,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CARE_ENGINE_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("CARE_ENGINE_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("CARE_ENGINE_SERVER_DEBUG"); isTrue(v) {
		cfg.Server.Debug = true
	}
	if v := os.Getenv("CARE_ENGINE_BIRTH_DATE"); v != "" {
		cfg.Baby.BirthDate = v
	}
	if v := os.Getenv("CARE_ENGINE_STORE_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv("CARE_ENGINE_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("CARE_ENGINE_PROFILES_PATH"); v != "" {
		cfg.Profiles.Path = v
	}
	if v := os.Getenv("CARE_ENGINE_LOOKBACK_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Forecast.LookbackDays = n
		}
	}
	if v := os.Getenv("CARE_ENGINE_HORIZON_HOURS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Forecast.HorizonHours = f
		}
	}
	if v := os.Getenv("CARE_ENGINE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CARE_ENGINE_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("CARE_ENGINE_NOTIFY_ENABLED"); v != "" {
		cfg.Notify.Enabled = isTrue(v)
	}
	if v := os.Getenv("CARE_ENGINE_NOTIFY_LEAD_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Notify.LeadMinutes = n
		}
	}
	if v := os.Getenv("CARE_ENGINE_NOTIFY_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Notify.PollInterval = d
		}
	}
}

func isTrue(v string) bool {
	return strings.EqualFold(v, "true") || strings.EqualFold(v, "1")
}
