package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port            string   `yaml:"port"`
		AllowedOrigins  []string `yaml:"allowed_origins"`
		ShutdownTimeout string   `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Log struct {
		Mode string `yaml:"mode"` // dev or prod
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Cache struct {
		ChoicesTTL string `yaml:"choices_ttl"`
	} `yaml:"cache"`
	Admin struct {
		Email        string `yaml:"email"`
		PasswordHash string `yaml:"password_hash"`
		SessionTTL   string `yaml:"session_ttl"`
		CookieSecure bool   `yaml:"cookie_secure"`
	} `yaml:"admin"`
	Quiz struct {
		ResultsPolicy string `yaml:"results_policy"`
		SeedSample    *bool  `yaml:"seed_sample"`
	} `yaml:"quiz"`
}

// Load reads YAML config from path. A missing file yields defaults; environment
// variables override both.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("ADMIN_EMAIL"); v != "" {
		cfg.Admin.Email = v
	}
	if v := os.Getenv("ADMIN_PASSWORD_HASH"); v != "" {
		cfg.Admin.PasswordHash = v
	}
	if v := os.Getenv("ADMIN_COOKIE_SECURE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Admin.CookieSecure = b
		}
	}
}

// SeedSample reports whether the in-memory store should be filled with sample
// questions. Defaults to true.
func (c Config) SeedSample() bool {
	if c.Quiz.SeedSample == nil {
		return true
	}
	return *c.Quiz.SeedSample
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
