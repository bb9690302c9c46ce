package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingSecret is returned by Load when no token signing secret is configured.
var ErrMissingSecret = errors.New("JWT_SECRET is required")

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr string
	}
	Database struct {
		URL string
	}
	Redis struct {
		URL string
	}
	Auth struct {
		JWTSecret string
		TokenTTL  string
	}
	Log struct {
		Level string
	}
	App struct {
		Env string
	}
}

// TokenLifetime parses Auth.TokenTTL.
func (c Config) TokenLifetime() (time.Duration, error) {
	return ParseLifetime(c.Auth.TokenTTL)
}

// Load reads configuration from environment variables, an optional .env
// file and an optional config file. Variables already set in the
// environment take precedence over .env.
func Load() (Config, error) {
	_ = godotenv.Load() // optional file

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindings := map[string]string{
		"server.addr":    "SERVER_ADDR",
		"database.url":   "DATABASE_URL",
		"redis.url":      "REDIS_URL",
		"auth.jwtsecret": "JWT_SECRET",
		"auth.tokenttl":  "JWT_EXPIRES_IN",
		"log.level":      "LOG_LEVEL",
		"app.env":        "APP_ENV",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	v.SetDefault("server.addr", "0.0.0.0:3000")
	v.SetDefault("database.url", "sqlite:./database.sqlite")
	v.SetDefault("redis.url", "redis://localhost:6379")
	v.SetDefault("auth.tokenttl", "7d")
	v.SetDefault("log.level", "info")
	v.SetDefault("app.env", "development")

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		return Config{}, ErrMissingSecret
	}
	if _, err := cfg.TokenLifetime(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// ParseLifetime accepts "7d", Go durations such as "12h30m", or a bare
// number of seconds.
func ParseLifetime(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("token lifetime is empty")
	}

	var d time.Duration
	if days, ok := strings.CutSuffix(raw, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid token lifetime %q", raw)
		}
		d = time.Duration(n) * 24 * time.Hour
	} else if secs, err := strconv.Atoi(raw); err == nil {
		d = time.Duration(secs) * time.Second
	} else {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return 0, fmt.Errorf("invalid token lifetime %q", raw)
		}
		d = parsed
	}

	if d <= 0 {
		return 0, fmt.Errorf("token lifetime must be positive, got %q", raw)
	}
	return d, nil
}
