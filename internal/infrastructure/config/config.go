package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig encapsulates all runtime configuration knobs.
type AppConfig struct {
	App         AppSettings
	HTTP        HTTPSettings
	Log         LogSettings
	Correlation CorrelationSettings
	Downstream  DownstreamSettings
	WorkerPool  WorkerPoolSettings
	Metrics     MetricsSettings
	Database    DatabaseSettings
}

type AppSettings struct {
	Name        string
	Version     string
	Environment string
}

type HTTPSettings struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RequestTimeout  time.Duration // Bounds the context handlers run with; 0 disables
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type LogSettings struct {
	Level string
}

type CorrelationSettings struct {
	LoggingScopeKey   string
	RequestHeaders    []string
	IncludeInResponse bool
	IDStrategy        string // "guid" or "request_id"
}

// DownstreamSettings configures the correlated outgoing client. An empty URL
// disables downstream calls from the fan-out endpoint.
type DownstreamSettings struct {
	URL          string
	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

type WorkerPoolSettings struct {
	Size   int
	MaxJob int // Largest fan-out accepted per request
}

type MetricsSettings struct {
	Enabled bool
	Path    string
}

// DatabaseSettings is optional; the database is only used when Host is set.
type DatabaseSettings struct {
	Host            string
	Port            int
	Database        string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	SlowQuery       time.Duration
	ConnectRetries  int
}

// Enabled reports whether a database was configured.
func (d DatabaseSettings) Enabled() bool {
	return d.Host != ""
}

// Load resolves the application configuration from environment variables.
// It first attempts to load variables from a .env file if it exists.
// Environment variables set in the system take precedence over .env file values.
func Load() (AppConfig, error) {
	// A missing .env file is fine; containers configure through the environment.
	_ = godotenv.Load()

	cfg := AppConfig{
		App: AppSettings{
			Name:        getEnv("APP_NAME", "correlate"),
			Version:     getEnv("APP_VERSION", "0.1.0"),
			Environment: getEnv("APP_ENV", "local"),
		},
		HTTP: HTTPSettings{
			Port:            getEnvAsInt("APP_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("HTTP_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("HTTP_WRITE_TIMEOUT", 30*time.Second),
			RequestTimeout:  getEnvAsDuration("HTTP_REQUEST_TIMEOUT", 25*time.Second),
			IdleTimeout:     getEnvAsDuration("HTTP_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvAsDuration("HTTP_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Log: LogSettings{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Correlation: CorrelationSettings{
			LoggingScopeKey:   getEnv("CORRELATION_LOGGING_SCOPE_KEY", "CorrelationId"),
			RequestHeaders:    getEnvAsCSV("CORRELATION_REQUEST_HEADERS", []string{"X-Correlation-ID"}),
			IncludeInResponse: getEnvAsBool("CORRELATION_INCLUDE_IN_RESPONSE", true),
			IDStrategy:        strings.ToLower(getEnv("CORRELATION_ID_STRATEGY", "guid")),
		},
		Downstream: DownstreamSettings{
			URL:          strings.TrimSpace(os.Getenv("DOWNSTREAM_URL")),
			Timeout:      getEnvAsDuration("DOWNSTREAM_TIMEOUT", 10*time.Second),
			RetryMax:     getEnvAsInt("DOWNSTREAM_RETRY_MAX", 2),
			RetryWaitMin: getEnvAsDuration("DOWNSTREAM_RETRY_WAIT_MIN", 100*time.Millisecond),
			RetryWaitMax: getEnvAsDuration("DOWNSTREAM_RETRY_WAIT_MAX", 2*time.Second),
		},
		WorkerPool: WorkerPoolSettings{
			Size:   getEnvAsInt("WORKER_POOL_SIZE", 10),
			MaxJob: getEnvAsInt("WORKER_POOL_MAX_FANOUT", 100),
		},
		Metrics: MetricsSettings{
			Enabled: getEnvAsBool("METRICS_ENABLED", true),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
		Database: DatabaseSettings{
			Host:            strings.TrimSpace(os.Getenv("DB_HOST")),
			Port:            getEnvAsInt("DB_PORT", 5432),
			Database:        getEnv("DB_NAME", "correlate"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			SlowQuery:       getEnvAsDuration("DB_SLOW_QUERY", 200*time.Millisecond),
			ConnectRetries:  getEnvAsInt("DB_CONNECT_RETRIES", 5),
		},
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (cfg AppConfig) validate() error {
	if strings.TrimSpace(cfg.Correlation.LoggingScopeKey) == "" {
		return errors.New("invalid config: CORRELATION_LOGGING_SCOPE_KEY must not be empty")
	}
	switch cfg.Correlation.IDStrategy {
	case "guid", "request_id":
	default:
		return fmt.Errorf("invalid config: CORRELATION_ID_STRATEGY must be 'guid' or 'request_id', got %q", cfg.Correlation.IDStrategy)
	}
	if cfg.WorkerPool.Size <= 0 {
		return errors.New("invalid config: WORKER_POOL_SIZE must be greater than 0")
	}
	if cfg.WorkerPool.MaxJob <= 0 {
		return errors.New("invalid config: WORKER_POOL_MAX_FANOUT must be greater than 0")
	}
	if cfg.Downstream.RetryMax < 0 {
		return errors.New("invalid config: DOWNSTREAM_RETRY_MAX cannot be negative")
	}
	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return errors.New("invalid config: METRICS_PATH must start with '/'")
	}
	return nil
}

// Address returns the HTTP listen address in host:port form.
func (h HTTPSettings) Address() string {
	return fmt.Sprintf(":%d", h.Port)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsCSV(key string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			values = append(values, trimmed)
		}
	}
	if len(values) == 0 {
		return fallback
	}
	return values
}
