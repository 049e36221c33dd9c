package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type HTTPConfig struct {
	Port           int           `yaml:"port"`
	PreparePath    string        `yaml:"prepare_path"`
	CompletePath   string        `yaml:"complete_path"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RateLimitRPS   float64       `yaml:"rate_limit_rps"` // 0 disables the limiter
	RateLimitBurst int           `yaml:"rate_limit_burst"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type ClickConfig struct {
	ServiceID  int64  `yaml:"service_id"`
	MerchantID int64  `yaml:"merchant_id"`
	SecretKey  string `yaml:"secret_key"`
}

type SchedulerConfig struct {
	MembershipExpiryInterval time.Duration `yaml:"membership_expiry_interval"`
	PoolStatsInterval        time.Duration `yaml:"pool_stats_interval"`
}

type Config struct {
	Log       LogConfig       `yaml:"log"`
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Click     ClickConfig     `yaml:"click"`
	Scheduler SchedulerConfig `yaml:"scheduler"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path, applies defaults and validates the
// settings the service cannot start without. CLICK_SECRET_KEY, when set,
// overrides click.secret_key.
func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b, dev)
}

// Parse is LoadConfig without the file read.
func Parse(b []byte, dev bool) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.PreparePath == "" {
		cfg.HTTP.PreparePath = "/click/prepare"
	}
	if cfg.HTTP.CompletePath == "" {
		cfg.HTTP.CompletePath = "/click/complete"
	}
	if cfg.HTTP.RequestTimeout <= 0 {
		cfg.HTTP.RequestTimeout = 10 * time.Second
	}
	if cfg.HTTP.RateLimitRPS > 0 && cfg.HTTP.RateLimitBurst <= 0 {
		cfg.HTTP.RateLimitBurst = int(cfg.HTTP.RateLimitRPS) + 1
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
	if cfg.Scheduler.MembershipExpiryInterval <= 0 {
		cfg.Scheduler.MembershipExpiryInterval = time.Hour
	}
	if cfg.Scheduler.PoolStatsInterval <= 0 {
		cfg.Scheduler.PoolStatsInterval = 15 * time.Second
	}
	if v := os.Getenv("CLICK_SECRET_KEY"); v != "" {
		cfg.Click.SecretKey = v
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Click.ServiceID <= 0 {
		return nil, errors.New("click.service_id is required")
	}
	if cfg.Click.SecretKey == "" {
		return nil, errors.New("click.secret_key is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
