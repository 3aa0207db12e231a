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
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type AdminConfig struct {
	Port int `yaml:"port"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type AuthConfig struct {
	JWTSecret   string `yaml:"jwt_secret"`
	AdminAPIKey string `yaml:"admin_api_key"`
}

type WebhookConfig struct {
	APIKey    string `yaml:"api_key"`    // shared secret the gateway sends
	RateLimit int    `yaml:"rate_limit"` // requests per minute per remote addr
}

type BankConfig struct {
	Name          string `yaml:"name"`
	Code          string `yaml:"code"` // VietQR bank code, e.g. MB
	AccountNumber string `yaml:"account_number"`
	AccountName   string `yaml:"account_name"`
}

type OrdersConfig struct {
	Expiry        time.Duration `yaml:"expiry"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type Config struct {
	Log      LogConfig      `yaml:"log"`
	Server   ServerConfig   `yaml:"server"`
	Admin    AdminConfig    `yaml:"admin"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	Bank     BankConfig     `yaml:"bank"`
	Orders   OrdersConfig   `yaml:"orders"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig() (*Config, error) {
	var configPath string = ""
	var dev bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config yaml")
	flag.BoolVar(&dev, "dev", false, "development mode")
	flag.Parse()

	if dev {
		// Optional .env for local secrets; missing file is fine.
		_ = godotenv.Load()
	}

	b, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("auth.jwt_secret is required")
	}
	if cfg.Webhook.APIKey == "" {
		return nil, errors.New("webhook.api_key is required")
	}
	if cfg.Bank.AccountNumber == "" {
		return nil, errors.New("bank.account_number is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

// applyEnv lets secrets come from the environment so the yaml file can be
// committed without them.
func (c *Config) applyEnv() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Redis.URL = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("ADMIN_API_KEY"); v != "" {
		c.Auth.AdminAPIKey = v
	}
	if v := os.Getenv("WEBHOOK_API_KEY"); v != "" {
		c.Webhook.APIKey = v
	}
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Server.Port <= 0 {
		c.Server.Port = 8080
	}
	if c.Webhook.RateLimit <= 0 {
		c.Webhook.RateLimit = 60
	}
	if c.Orders.Expiry <= 0 {
		c.Orders.Expiry = 24 * time.Hour
	}
	if c.Orders.SweepInterval <= 0 {
		c.Orders.SweepInterval = 5 * time.Minute
	}
	if c.Bank.Code == "" {
		c.Bank.Code = "MB"
	}
	c.Redis.TTL = normalizeTTL(c.Redis.TTL)
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
