package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName              string
	AppEnv               string
	AppPort              string
	DatabaseURL          string
	RedisURL             string
	NATSURL              string
	JWTSecret            string
	JWTTTL               time.Duration
	PasswordRotationDays int
	PasswordWarnDays     int
	MagicLinkBaseURL     string
	MagicLinkAPIKey      string
	MagicLinkSubject     string
	MagicLinkTimeout     time.Duration
	MagicLinkRetryBurned bool
	LoginRateLimit       int
	LoginRateWindow      time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("WARTA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Warta API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("jwt.ttl", "24h")
	v.SetDefault("password.rotation_days", 90)
	v.SetDefault("password.warn_days", 14)
	v.SetDefault("magiclink.subject", "warta.magiclink.signin")
	v.SetDefault("magiclink.timeout", "15s")
	v.SetDefault("magiclink.retry_burned", false)
	v.SetDefault("login.rate_limit", 10)
	v.SetDefault("login.rate_window", "1m")

	ttl, err := time.ParseDuration(v.GetString("jwt.ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid jwt ttl: %w", err)
	}

	providerTimeout, err := time.ParseDuration(v.GetString("magiclink.timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid magic link timeout: %w", err)
	}

	rateWindow, err := time.ParseDuration(v.GetString("login.rate_window"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid login rate window: %w", err)
	}

	cfg := Config{
		AppName:              v.GetString("app.name"),
		AppEnv:               v.GetString("app.env"),
		AppPort:              v.GetString("app.port"),
		DatabaseURL:          v.GetString("database.url"),
		RedisURL:             v.GetString("redis.url"),
		NATSURL:              v.GetString("nats.url"),
		JWTSecret:            v.GetString("jwt.secret"),
		JWTTTL:               ttl,
		PasswordRotationDays: v.GetInt("password.rotation_days"),
		PasswordWarnDays:     v.GetInt("password.warn_days"),
		MagicLinkBaseURL:     v.GetString("magiclink.base_url"),
		MagicLinkAPIKey:      v.GetString("magiclink.api_key"),
		MagicLinkSubject:     v.GetString("magiclink.subject"),
		MagicLinkTimeout:     providerTimeout,
		MagicLinkRetryBurned: v.GetBool("magiclink.retry_burned"),
		LoginRateLimit:       v.GetInt("login.rate_limit"),
		LoginRateWindow:      rateWindow,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.PasswordRotationDays <= 0 {
		cfg.PasswordRotationDays = 90
	}

	if cfg.PasswordWarnDays <= 0 {
		cfg.PasswordWarnDays = 14
	}

	return cfg, nil
}
