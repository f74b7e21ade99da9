package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/NeuralTrust/TrustGuard/pkg/domain/admission"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Redis     RedisConfig     `mapstructure:"redis"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
}

type ServerConfig struct {
	Port              int    `mapstructure:"port"`
	MetricsPort       int    `mapstructure:"metrics_port"`
	TrustProxyHeaders bool   `mapstructure:"trust_proxy_headers"`
	CorsAllowOrigins  string `mapstructure:"cors_allow_origins"`
}

type MetricsConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	EnableLatency     bool `mapstructure:"enable_latency"`
	EnableConnections bool `mapstructure:"enable_connections"`
	EnableStore       bool `mapstructure:"enable_store"`
}

type RateLimitConfig struct {
	BurstLimit         int           `mapstructure:"burst_limit"`
	BurstWindow        time.Duration `mapstructure:"burst_window"`
	SustainedLimit     int           `mapstructure:"sustained_limit"`
	SustainedWindow    time.Duration `mapstructure:"sustained_window"`
	Store              string        `mapstructure:"store"`
	StorePath          string        `mapstructure:"store_path"`
	StoreTimeout       time.Duration `mapstructure:"store_timeout"`
	BreakerTimeout     time.Duration `mapstructure:"breaker_timeout"`
	BreakerMaxFailures uint32        `mapstructure:"breaker_max_failures"`
}

func (c RateLimitConfig) Limits() admission.Limits {
	return admission.Limits{
		BurstLimit:      c.BurstLimit,
		BurstWindow:     c.BurstWindow,
		SustainedLimit:  c.SustainedLimit,
		SustainedWindow: c.SustainedWindow,
	}
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	TLS      bool   `mapstructure:"tls"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

var globalConfig Config

// Load reads config.yaml from configPath (or ./config, or the working
// directory) and overlays environment variables, so SERVER_PORT overrides
// server.port. A missing file is not an error.
func Load(configPath string) error {
	cfg, err := LoadFrom(viper.New(), configPath)
	if err != nil {
		return err
	}
	globalConfig = *cfg
	return nil
}

func LoadFrom(v *viper.Viper, configPath string) (*Config, error) {
	setDefaultValues(v)

	var cfg Config
	if err := loadConfigFile(v, configPath, "config", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.RateLimit.Limits().Validate(); err != nil {
		return nil, fmt.Errorf("invalid rate_limit config: %w", err)
	}
	return &cfg, nil
}

func loadConfigFile(v *viper.Viper, configPath, fileName string, out interface{}) error {
	v.SetConfigName(fileName)
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("error reading config file %s.yaml: %w", fileName, err)
		}
	}

	if err := v.Unmarshal(out); err != nil {
		return fmt.Errorf("failed to unmarshal %s config: %w", fileName, err)
	}

	return nil
}

// Defaults are registered before reading so AutomaticEnv can resolve every key
// even when no file is present.
func setDefaultValues(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.metrics_port", 9090)
	v.SetDefault("server.trust_proxy_headers", false)
	v.SetDefault("server.cors_allow_origins", "*")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.enable_latency", true)
	v.SetDefault("metrics.enable_connections", true)
	v.SetDefault("metrics.enable_store", true)

	v.SetDefault("rate_limit.burst_limit", admission.DefaultBurstLimit)
	v.SetDefault("rate_limit.burst_window", admission.DefaultBurstWindow)
	v.SetDefault("rate_limit.sustained_limit", admission.DefaultSustainedLimit)
	v.SetDefault("rate_limit.sustained_window", admission.DefaultSustainedWindow)
	v.SetDefault("rate_limit.store", "memory")
	v.SetDefault("rate_limit.store_path", "data/rate_limits.json")
	v.SetDefault("rate_limit.store_timeout", 2*time.Second)
	v.SetDefault("rate_limit.breaker_timeout", 30*time.Second)
	v.SetDefault("rate_limit.breaker_max_failures", 5)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.tls", false)

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model", "gpt-4o-mini")
}

func GetConfig() *Config {
	return &globalConfig
}
