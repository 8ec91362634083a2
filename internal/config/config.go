// Package config reads process configuration from the environment, after
// loading an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
)

const (
	BackendMemory    = "memory"
	BackendPostgres  = "postgres"
	BackendFirestore = "firestore"
)

type Postgres struct {
	DB       string
	User     string
	Password string
	Host     string
	Port     string
}

func (p Postgres) ConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", p.User, p.Password, p.Host, p.Port, p.DB)
}

type Config struct {
	HTTPAddr           string
	StoreBackend       string
	Postgres           Postgres
	FirestoreProjectID string
	GoogleCredentials  string
	NotifyWebhookURL   string
	NotifyTimeout      time.Duration
	TickInterval       time.Duration
	ReminderWindow     time.Duration
	JWTSecret          string
	CORSAllowedOrigins []string
	SweepConcurrency   int
	LogLevel           string
	LogFormat          string
}

// Load reads .env when present and then the environment. Values that fail
// to parse are reported together.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function such as os.Getenv.
func FromEnv(getenv func(string) string) (Config, error) {
	var errs *multierror.Error

	duration := func(key string, def time.Duration) time.Duration {
		raw := getenv(key)
		if raw == "" {
			return def
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", key, err))
			return def
		}
		return d
	}
	integer := func(key string, def int) int {
		raw := getenv(key)
		if raw == "" {
			return def
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", key, err))
			return def
		}
		return n
	}
	str := func(key, def string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		HTTPAddr:     str("HTTP_ADDR", "0.0.0.0:8080"),
		StoreBackend: strings.ToLower(str("STORE_BACKEND", BackendMemory)),
		Postgres: Postgres{
			DB:       getenv("POSTGRES_DB"),
			User:     getenv("POSTGRES_USER"),
			Password: getenv("POSTGRES_PASSWORD"),
			Host:     str("POSTGRES_HOST", "localhost"),
			Port:     str("POSTGRES_PORT", "5432"),
		},
		FirestoreProjectID: getenv("FIRESTORE_PROJECT_ID"),
		GoogleCredentials:  getenv("GOOGLE_CREDENTIALS"),
		NotifyWebhookURL:   getenv("NOTIFY_WEBHOOK_URL"),
		NotifyTimeout:      duration("NOTIFY_TIMEOUT", 10*time.Second),
		TickInterval:       duration("TICK_INTERVAL", 10*time.Second),
		ReminderWindow:     duration("REMINDER_WINDOW", 24*time.Hour),
		JWTSecret:          getenv("JWT_SECRET"),
		CORSAllowedOrigins: splitList(getenv("CORS_ALLOWED_ORIGINS")),
		SweepConcurrency:   integer("SWEEP_CONCURRENCY", 8),
		LogLevel:           str("LOG_LEVEL", "info"),
		LogFormat:          str("LOG_FORMAT", "json"),
	}

	if err := errs.ErrorOrNil(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements. needHTTP adds the checks only
// the API server cares about.
func (c Config) Validate(needHTTP bool) error {
	var errs *multierror.Error

	switch c.StoreBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.Postgres.DB == "" || c.Postgres.User == "" {
			errs = multierror.Append(errs, errors.New("POSTGRES_DB and POSTGRES_USER are required for the postgres backend"))
		}
	case BackendFirestore:
		if c.FirestoreProjectID == "" {
			errs = multierror.Append(errs, errors.New("FIRESTORE_PROJECT_ID is required for the firestore backend"))
		}
	default:
		errs = multierror.Append(errs, fmt.Errorf("STORE_BACKEND: unknown backend %q", c.StoreBackend))
	}

	if c.TickInterval <= 0 {
		errs = multierror.Append(errs, errors.New("TICK_INTERVAL must be positive"))
	}
	if c.ReminderWindow < 0 {
		errs = multierror.Append(errs, errors.New("REMINDER_WINDOW must not be negative"))
	}
	if c.SweepConcurrency <= 0 {
		errs = multierror.Append(errs, errors.New("SWEEP_CONCURRENCY must be positive"))
	}
	if needHTTP && c.JWTSecret == "" {
		errs = multierror.Append(errs, errors.New("JWT_SECRET is required"))
	}

	return errs.ErrorOrNil()
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
