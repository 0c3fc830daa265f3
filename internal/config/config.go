package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment    string
	ServiceName    string
	LogLevel       string
	DBDSN          string
	HTTPAddr       string
	JWTSecret      string
	TokenTTL       time.Duration
	RedisURL       string
	CacheTTL       time.Duration
	TelegramToken  string
	MigrationsAuto bool

	// EnvFileLoaded reports whether a .env file was found.
	EnvFileLoaded bool
}

const (
	defaultServiceName = "edu-core"
	defaultHTTPAddr    = ":8080"
	defaultCacheTTL    = 30 * time.Minute
	defaultTokenTTL    = 12 * time.Hour
)

// Load reads .env when present and then the process environment.
func Load() (*Config, error) {
	loaded := godotenv.Load(".env") == nil

	cfg := &Config{
		Environment:    getEnv("ENV", "development"),
		ServiceName:    getEnv("SERVICE_NAME", defaultServiceName),
		LogLevel:       os.Getenv("LOG_LEVEL"),
		DBDSN:          os.Getenv("DB_DSN"),
		HTTPAddr:       getEnv("HTTP_ADDR", defaultHTTPAddr),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		RedisURL:       os.Getenv("REDIS_URL"),
		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
		EnvFileLoaded:  loaded,
		MigrationsAuto: true,
	}

	var err error
	if cfg.CacheTTL, err = durationEnv("CACHE_TTL", defaultCacheTTL); err != nil {
		return nil, err
	}
	if cfg.TokenTTL, err = durationEnv("TOKEN_TTL", defaultTokenTTL); err != nil {
		return nil, err
	}
	if v := os.Getenv("MIGRATIONS_AUTO"); v != "" {
		if cfg.MigrationsAuto, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("MIGRATIONS_AUTO: %w", err)
		}
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required but not set")
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}
