package config

import (
	"errors"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	DBDSN         string
	ServerPort    string
	SessionSecret string

	MediaRoot string
	MediaURL  string

	LogLevel  string
	LogFormat string

	// RedisURL, если задан, хранит счётчики rate limit в Redis.
	RedisURL       string
	LoginRateLimit string

	AdminUsername string
	AdminPassword string
	AdminEmail    string
	SeedFile      string

	// SiteTitle задаётся один раз при старте.
	SiteTitle string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("DB_DSN", "")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SESSION_SECRET", "")
	v.SetDefault("MEDIA_ROOT", "./media")
	v.SetDefault("MEDIA_URL", "/media")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("LOGIN_RATE_LIMIT", "10-M")
	v.SetDefault("ADMIN_USERNAME", "admin")
	v.SetDefault("ADMIN_PASSWORD", "admin")
	v.SetDefault("ADMIN_EMAIL", "admin@designpro.ru")
	v.SetDefault("SEED_FILE", "")
	v.SetDefault("SITE_TITLE", "Design.pro")
	v.AutomaticEnv()

	cfg := &Config{
		DBDSN:          v.GetString("DB_DSN"),
		ServerPort:     v.GetString("SERVER_PORT"),
		SessionSecret:  v.GetString("SESSION_SECRET"),
		MediaRoot:      v.GetString("MEDIA_ROOT"),
		MediaURL:       v.GetString("MEDIA_URL"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		LogFormat:      v.GetString("LOG_FORMAT"),
		RedisURL:       v.GetString("REDIS_URL"),
		LoginRateLimit: v.GetString("LOGIN_RATE_LIMIT"),
		AdminUsername:  v.GetString("ADMIN_USERNAME"),
		AdminPassword:  v.GetString("ADMIN_PASSWORD"),
		AdminEmail:     v.GetString("ADMIN_EMAIL"),
		SeedFile:       v.GetString("SEED_FILE"),
		SiteTitle:      v.GetString("SITE_TITLE"),
	}

	if cfg.DBDSN == "" {
		return nil, errors.New("DB_DSN is not set")
	}
	if cfg.SessionSecret == "" {
		return nil, errors.New("SESSION_SECRET is not set")
	}
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	return cfg, nil
}
