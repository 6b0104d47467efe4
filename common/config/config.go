package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the whole service configuration, read from the environment.
type Config struct {
	Env  string `env:"APP_ENV" envDefault:"development"`
	Port string `env:"PORT" envDefault:"8080"`

	DB         DBConfig         `envPrefix:"DB_"`
	Razorpay   RazorpayConfig   `envPrefix:"RAZORPAY_"`
	SMTP       SMTPConfig       `envPrefix:"SMTP_"`
	Cloudinary CloudinaryConfig `envPrefix:"CLOUDINARY_"`
	Redis      RedisConfig      `envPrefix:"REDIS_"`
	JWT        JWTConfig        `envPrefix:"JWT_"`
	Booking    BookingConfig    `envPrefix:"BOOKING_"`
	RateLimit  RateLimitConfig  `envPrefix:"RATE_LIMIT_"`
}

type DBConfig struct {
	Driver          string        `env:"DRIVER" envDefault:"sqlite"`
	DSN             string        `env:"DSN" envDefault:"fusionx.db"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"5m"`
}

type RazorpayConfig struct {
	KeyID     string        `env:"KEY_ID"`
	KeySecret string        `env:"KEY_SECRET"`
	BaseURL   string        `env:"BASE_URL" envDefault:"https://api.razorpay.com"`
	Timeout   time.Duration `env:"TIMEOUT" envDefault:"10s"`
	Currency  string        `env:"CURRENCY" envDefault:"INR"`
}

type SMTPConfig struct {
	Host     string `env:"HOST" envDefault:"smtp.gmail.com"`
	Port     int    `env:"PORT" envDefault:"587"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	From     string `env:"FROM" envDefault:"fusionx@glitzfusion.in"`
	FromName string `env:"FROM_NAME" envDefault:"GLITZFUSION Academy"`
}

type CloudinaryConfig struct {
	CloudName string `env:"CLOUD_NAME"`
	APIKey    string `env:"API_KEY"`
	APISecret string `env:"API_SECRET"`
	Folder    string `env:"FOLDER" envDefault:"fusionx"`
}

// Enabled reports whether media uploads can be performed.
func (c CloudinaryConfig) Enabled() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

type RedisConfig struct {
	Addr     string `env:"ADDR"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
	Prefix   string `env:"PREFIX" envDefault:"glitz:content"`
}

type JWTConfig struct {
	Secret string        `env:"SECRET" envDefault:"fusionx-dev-secret-change-me"`
	Issuer string        `env:"ISSUER" envDefault:"glitzfusion"`
	TTL    time.Duration `env:"TTL" envDefault:"12h"`
}

type BookingConfig struct {
	// PendingTTL of zero keeps unpaid bookings holding capacity indefinitely.
	PendingTTL     time.Duration `env:"PENDING_TTL" envDefault:"0s"`
	ExpiryInterval time.Duration `env:"EXPIRY_INTERVAL" envDefault:"1m"`
}

type RateLimitConfig struct {
	RPS   float64 `env:"RPS" envDefault:"5"`
	Burst int     `env:"BURST" envDefault:"10"`
}

// Load reads an optional .env file and then parses the environment.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", file, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects combinations the service cannot run with.
func (c *Config) Validate() error {
	switch strings.ToLower(c.DB.Driver) {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("DB_DRIVER must be mysql or sqlite, got %q", c.DB.Driver)
	}
	if c.Booking.PendingTTL < 0 {
		return fmt.Errorf("BOOKING_PENDING_TTL must not be negative")
	}
	if c.Booking.PendingTTL > 0 && c.Booking.ExpiryInterval <= 0 {
		return fmt.Errorf("BOOKING_EXPIRY_INTERVAL must be positive when BOOKING_PENDING_TTL is set")
	}
	if c.IsProduction() && (c.Razorpay.KeyID == "" || c.Razorpay.KeySecret == "") {
		return fmt.Errorf("RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET are required in production")
	}
	if c.IsProduction() && c.JWT.Secret == "fusionx-dev-secret-change-me" {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}
