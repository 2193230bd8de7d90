// Package config loads server configuration from YAML with environment
// variable overrides for deployment secrets.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location, relative to the working
// directory. Override with the CONFIG_PATH environment variable.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port          string `yaml:"port"`
	DatabaseURL   string `yaml:"databaseURL"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	SessionTTL    string `yaml:"sessionTTL"`
	LogLevel      string `yaml:"logLevel"`

	LoginRateLimitPerMinute int `yaml:"loginRateLimitPerMinute"`

	JWTSecret string `yaml:"jwtSecret"`
	TokenTTL  string `yaml:"tokenTTL"`

	WechatAppID    string `yaml:"wechatAppId"`
	WechatSecret   string `yaml:"wechatSecret"`
	WechatLoginURL string `yaml:"wechatLoginURL"`
	WechatTimeout  string `yaml:"wechatTimeout"`

	DrugAPIHost        string `yaml:"drugApiHost"`
	DrugAPIAppCode     string `yaml:"drugApiAppCode"`
	DrugAPIBarcodePath string `yaml:"drugApiBarcodePath"`
	DrugAPISearchPath  string `yaml:"drugApiSearchPath"`
	DrugAPIDetailPath  string `yaml:"drugApiDetailPath"`
	DrugAPITimeout     string `yaml:"drugApiTimeout"`
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	// Override with environment variables
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("WECHAT_APP_ID"); v != "" {
		cfg.WechatAppID = v
	}
	if v := os.Getenv("WECHAT_SECRET"); v != "" {
		cfg.WechatSecret = v
	}
	if v := os.Getenv("DRUG_API_HOST"); v != "" {
		cfg.DrugAPIHost = v
	}
	if v := os.Getenv("DRUG_API_APP_CODE"); v != "" {
		cfg.DrugAPIAppCode = v
	}
	if v := os.Getenv("LOGIN_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.LoginRateLimitPerMinute = n
		}
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("config: databaseURL is required (set DATABASE_URL)")
	}
	if cfg.JWTSecret == "" {
		return errors.New("config: jwtSecret is required (set JWT_SECRET)")
	}
	if cfg.WechatAppID == "" || cfg.WechatSecret == "" {
		return errors.New("config: wechatAppId and wechatSecret are required")
	}
	if cfg.DrugAPIHost != "" && cfg.DrugAPIAppCode == "" {
		return errors.New("config: drugApiAppCode is required when drugApiHost is set")
	}
	if cfg.LoginRateLimitPerMinute < 0 {
		return errors.New("config: loginRateLimitPerMinute must be >= 0")
	}
	if cfg.LoginRateLimitPerMinute > 0 && strings.TrimSpace(cfg.RedisAddr) == "" {
		return errors.New("config: redisAddr is required when loginRateLimitPerMinute is set")
	}
	return nil
}

// ParseSessionTTL parses the optional session TTL duration string.
func ParseSessionTTL(ttlStr string) (time.Duration, error) {
	if ttlStr == "" {
		return 0, nil
	}
	dur, err := time.ParseDuration(ttlStr)
	if err != nil {
		return 0, fmt.Errorf("invalid sessionTTL duration: %w", err)
	}
	return dur, nil
}

// ParseTokenTTL parses the optional access token TTL duration string.
func ParseTokenTTL(ttlStr string) (time.Duration, error) {
	if ttlStr == "" {
		return 0, nil
	}
	dur, err := time.ParseDuration(ttlStr)
	if err != nil {
		return 0, fmt.Errorf("invalid tokenTTL duration: %w", err)
	}
	return dur, nil
}

// ParseWechatTimeout parses the optional WeChat client timeout duration string.
func ParseWechatTimeout(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	dur, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid wechatTimeout duration: %w", err)
	}
	return dur, nil
}

// ParseDrugAPITimeout parses the optional upstream timeout duration string.
func ParseDrugAPITimeout(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	dur, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid drugApiTimeout duration: %w", err)
	}
	return dur, nil
}
