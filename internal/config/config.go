package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	HTTPAddr               string        `mapstructure:"http_addr"`
	HTTPTimeoutSeconds     int64         `mapstructure:"http_timeout_seconds"`
	ShutdownTimeoutSeconds int64         `mapstructure:"shutdown_timeout_seconds"`
	HTTPTimeout            time.Duration `mapstructure:"-"`
	ShutdownTimeout        time.Duration `mapstructure:"-"`

	RemotesFile        string `mapstructure:"remotes_file"`
	CatalogBaseURL     string `mapstructure:"catalog_base_url"`
	MarketplaceBaseURL string `mapstructure:"marketplace_base_url"`
	ExchangeHeader     string `mapstructure:"exchange_header"`

	CredentialName   string `mapstructure:"credential_name"`
	CredentialSecret string `mapstructure:"credential_secret" json:"-"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "catalog-relay")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("http_timeout_seconds", 10)
	v.SetDefault("shutdown_timeout_seconds", 10)
	v.SetDefault("remotes_file", "./configs/remotes.yaml")
	v.SetDefault("catalog_base_url", "http://localhost:7070")
	v.SetDefault("marketplace_base_url", "https://openapi.naver.com")
	v.SetDefault("exchange_header", "X-Authorization")
	v.SetDefault("credential_name", "")
	v.SetDefault("credential_secret", "")

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	if c.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid http_timeout_seconds (must be positive seconds)")
	}
	if c.ShutdownTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid shutdown_timeout_seconds (must be positive seconds)")
	}
	c.HTTPTimeout = time.Duration(c.HTTPTimeoutSeconds) * time.Second
	c.ShutdownTimeout = time.Duration(c.ShutdownTimeoutSeconds) * time.Second

	c.HTTPAddr = strings.TrimSpace(c.HTTPAddr)
	if c.HTTPAddr == "" {
		return fmt.Errorf("http_addr is required")
	}
	c.ExchangeHeader = strings.TrimSpace(c.ExchangeHeader)
	if c.ExchangeHeader == "" {
		return fmt.Errorf("exchange_header is required")
	}
	c.RemotesFile = strings.TrimSpace(c.RemotesFile)
	c.CatalogBaseURL = strings.TrimSpace(c.CatalogBaseURL)
	c.MarketplaceBaseURL = strings.TrimSpace(c.MarketplaceBaseURL)
	return nil
}
