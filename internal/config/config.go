package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"bart-backend/internal/models"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
		Env  string `yaml:"env"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Auth struct {
		JWTSecret    string `yaml:"jwt_secret"`
		TokenTTLHour int    `yaml:"token_ttl_hours"`
	} `yaml:"auth"`
	Task struct {
		// TaskSeed fixes every explosion threshold; leave empty to draw a
		// fresh random seed at startup (logged, so runs stay auditable).
		TaskSeed string `yaml:"task_seed"`
		// SequenceSeed fixes the shuffled balloon presentation order.
		SequenceSeed int64 `yaml:"sequence_seed"`
		Repetitions  int   `yaml:"repetitions"`
		BlockSize    int   `yaml:"block_size"`
		// IdleTimeoutSec is how long a participant may sit on an inflated
		// balloon before it deflates and the temp bank is lost.
		IdleTimeoutSec int                  `yaml:"idle_timeout_sec"`
		Currency       string               `yaml:"currency"`
		Balloons       []models.BalloonType `yaml:"balloons"`
	} `yaml:"task"`
	Recorder struct {
		Backend    string `yaml:"backend"` // "csv", "sqlite" or "none"
		CSVDir     string `yaml:"csv_dir"`
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"recorder"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides, then fills defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.Server.Env = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = db
		}
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("TASK_SEED"); v != "" {
		cfg.Task.TaskSeed = v
	}
	if v := os.Getenv("SEQUENCE_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Task.SequenceSeed = seed
		}
	}
	if v := os.Getenv("RECORDER_BACKEND"); v != "" {
		cfg.Recorder.Backend = v
	}
	if v := os.Getenv("CSV_DIR"); v != "" {
		cfg.Recorder.CSVDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Recorder.SQLitePath = v
	}

	// Defaults
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Auth.TokenTTLHour == 0 {
		cfg.Auth.TokenTTLHour = 24
	}
	if cfg.Task.SequenceSeed == 0 {
		cfg.Task.SequenceSeed = 52472
	}
	if cfg.Task.Repetitions == 0 {
		cfg.Task.Repetitions = 20
	}
	if cfg.Task.BlockSize == 0 {
		cfg.Task.BlockSize = 20
	}
	if cfg.Task.IdleTimeoutSec == 0 {
		cfg.Task.IdleTimeoutSec = 15
	}
	if cfg.Task.Currency == "" {
		cfg.Task.Currency = "€"
	}
	if len(cfg.Task.Balloons) == 0 {
		cfg.Task.Balloons = models.DefaultBalloonTypes()
	}
	if cfg.Recorder.Backend == "" {
		cfg.Recorder.Backend = "csv"
	}
	if cfg.Recorder.CSVDir == "" {
		cfg.Recorder.CSVDir = "data"
	}
	if cfg.Recorder.SQLitePath == "" {
		cfg.Recorder.SQLitePath = "data/bart.db"
	}

	return cfg, nil
}

// Validate checks that all required fields are set and consistent.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Task.Repetitions <= 0 {
		return fmt.Errorf("task.repetitions must be positive")
	}
	if c.Task.BlockSize <= 0 {
		return fmt.Errorf("task.block_size must be positive")
	}
	total := len(c.Task.Balloons) * c.Task.Repetitions
	if total%c.Task.BlockSize != 0 {
		return fmt.Errorf("block_size %d does not divide %d total trials",
			c.Task.BlockSize, total)
	}
	seen := map[string]bool{}
	for _, b := range c.Task.Balloons {
		if b.Name == "" {
			return fmt.Errorf("balloon with empty name")
		}
		if seen[b.Name] {
			return fmt.Errorf("duplicate balloon name: %s", b.Name)
		}
		seen[b.Name] = true
		if b.MaxPumps < 1 {
			return fmt.Errorf("balloon %s: max_pumps must be at least 1", b.Name)
		}
		if b.RewardPerPump <= 0 {
			return fmt.Errorf("balloon %s: reward_per_pump must be positive", b.Name)
		}
	}
	switch c.Recorder.Backend {
	case "csv", "sqlite", "none":
	default:
		return fmt.Errorf("unknown recorder backend: %s", c.Recorder.Backend)
	}
	return nil
}
