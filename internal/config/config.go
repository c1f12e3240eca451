// File: internal/config/config.go
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev  bool
	Once bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"` // plan cache TTL
}

type AMQPConfig struct {
	URL        string `yaml:"url"` // empty disables publishing; notifications are logged instead
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
}

type BillingConfig struct {
	Cron        string        `yaml:"cron"`
	SweepCron   string        `yaml:"sweep_cron"`
	PremiumFee  int64         `yaml:"premium_fee"`
	Concurrency int           `yaml:"concurrency"` // accounts settled in parallel; 1 = sequential
	LockTTL     time.Duration `yaml:"lock_ttl"`
	RunTimeout  time.Duration `yaml:"run_timeout"`
	SweepBatch  int           `yaml:"sweep_batch"`
}

type NotificationConfig struct {
	Language string `yaml:"language"`
	Workers  int    `yaml:"workers"`
	Queue    int    `yaml:"queue"`
}

type SecurityConfig struct {
	AdminAPIKey string `yaml:"admin_api_key"`
	JWTSecret   string `yaml:"jwt_secret"`
}

type Config struct {
	Log           LogConfig          `yaml:"log"`
	HTTP          HTTPConfig         `yaml:"http"`
	Database      DatabaseConfig     `yaml:"database"`
	Redis         RedisConfig        `yaml:"redis"`
	AMQP          AMQPConfig         `yaml:"amqp"`
	Billing       BillingConfig      `yaml:"billing"`
	Notifications NotificationConfig `yaml:"notifications"`
	Security      SecurityConfig     `yaml:"security"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig parses the command line flags and loads the referenced file.
func LoadConfig() (*Config, error) {
	var configPath string
	var dev, once bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config yaml")
	flag.BoolVar(&dev, "dev", false, "development mode")
	flag.BoolVar(&once, "once", false, "run a single billing cycle and exit")
	flag.Parse()

	cfg, err := Load(configPath, dev)
	if err != nil {
		return nil, err
	}
	cfg.Runtime.Once = once
	return cfg, nil
}

// Load reads a YAML file, expands ${VAR} references from the environment
// (after loading an optional .env next to the process) and applies defaults.
func Load(path string, dev bool) (*Config, error) {
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b, dev)
}

func Parse(b []byte, dev bool) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(b))), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&cfg)

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Billing.PremiumFee < 0 {
		return nil, errors.New("billing.premium_fee must not be negative")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.HTTP.ReadTimeout <= 0 {
		cfg.HTTP.ReadTimeout = 10 * time.Second
	}
	if cfg.HTTP.WriteTimeout <= 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout <= 0 {
		cfg.HTTP.ShutdownTimeout = 10 * time.Second
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)

	if cfg.AMQP.Exchange == "" {
		cfg.AMQP.Exchange = "cityguide.billing"
	}
	if cfg.AMQP.RoutingKey == "" {
		cfg.AMQP.RoutingKey = "notifications"
	}

	if cfg.Billing.Cron == "" {
		cfg.Billing.Cron = "0 * * * *"
	}
	if cfg.Billing.SweepCron == "" {
		cfg.Billing.SweepCron = "*/15 * * * *"
	}
	if cfg.Billing.PremiumFee == 0 {
		cfg.Billing.PremiumFee = 8
	}
	if cfg.Billing.Concurrency <= 0 {
		cfg.Billing.Concurrency = 1
	}
	if cfg.Billing.LockTTL <= 0 {
		cfg.Billing.LockTTL = 30 * time.Minute
	}
	if cfg.Billing.RunTimeout <= 0 {
		cfg.Billing.RunTimeout = 20 * time.Minute
	}
	if cfg.Billing.SweepBatch <= 0 {
		cfg.Billing.SweepBatch = 500
	}

	if cfg.Notifications.Language == "" {
		cfg.Notifications.Language = "en"
	}
	if cfg.Notifications.Workers <= 0 {
		cfg.Notifications.Workers = 4
	}
	if cfg.Notifications.Queue <= 0 {
		cfg.Notifications.Queue = 256
	}
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
