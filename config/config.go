package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Server    Server
	Mongo     Mongo
	Redis     Redis
	JWT       JWT
	Cache     Cache
	RateLimit RateLimit
	Voucher   Voucher
}

type Server struct {
	Port        string   `env:"PORT" env-default:"5000"`
	Environment string   `env:"APP_ENV" env-default:"development"`
	LogLevel    string   `env:"LOG_LEVEL" env-default:"info"`
	CORSOrigins []string `env:"CORS_ORIGINS" env-separator:"," env-default:"http://localhost:5173"`
}

type Mongo struct {
	URI      string `env:"MONGO_URI" env-default:"mongodb://localhost:27017"`
	Database string `env:"MONGO_DB" env-default:"trailhead"`
}

type Redis struct {
	Addr     string `env:"REDIS_ADDR" env-default:""`
	Password string `env:"REDIS_PASSWORD" env-default:""`
	DB       int    `env:"REDIS_DB" env-default:"0"`
}

type JWT struct {
	Secret   string        `env:"JWT_SECRET" env-default:"change-me"`
	TokenTTL time.Duration `env:"JWT_TTL" env-default:"720h"`
}

type Cache struct {
	TTL time.Duration `env:"CACHE_TTL" env-default:"100s"`
}

type RateLimit struct {
	PerSecond float64 `env:"RATE_LIMIT_RPS" env-default:"5"`
	Burst     int     `env:"RATE_LIMIT_BURST" env-default:"10"`
}

type Voucher struct {
	Secret string `env:"VOUCHER_SECRET" env-default:"change-me-too"`
}

// IsProduction reports whether error details such as stack traces must be hidden.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Addr returns the listen address in host:port form.
func (c *Config) Addr() string {
	if c.Server.Port != "" && c.Server.Port[0] == ':' {
		return c.Server.Port
	}
	return ":" + c.Server.Port
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	if cfg.Server.Environment == "production" && cfg.JWT.Secret == "change-me" {
		return nil, fmt.Errorf("config error: JWT_SECRET must be set in production")
	}
	return cfg, nil
}
