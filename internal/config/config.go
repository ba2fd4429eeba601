package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"coderoom/internal/models"
)

// relay config, read from the environment
type Config struct {
	Port            string
	Env             string
	AllowedOrigins  []string
	StaticDir       string
	DefaultLanguage models.Language

	MaxMessageSize int64
	SendBuffer     int
	PingInterval   time.Duration
	WriteTimeout   time.Duration

	RedisAddr     string
	EventsChannel string
	EventsBuffer  int

	ShutdownTimeout time.Duration
}

var (
	ErrInvalidPort     = errors.New("invalid port")
	ErrInvalidLanguage = errors.New("unsupported default language")
	ErrInvalidLimit    = errors.New("limits must be positive")
	ErrInvalidValue    = errors.New("invalid value")
)

// loads configuration from environment variables
func LoadConfig() (*Config, error) {
	env := &envReader{}
	config := &Config{
		Port:            getEnvOrDefault("PORT", "4000"),
		Env:             getEnvOrDefault("APP_ENV", "dev"),
		AllowedOrigins:  splitCSV(getEnvOrDefault("ALLOWED_ORIGINS", "*")),
		StaticDir:       os.Getenv("STATIC_DIR"),
		DefaultLanguage: models.Language(strings.ToLower(getEnvOrDefault("DEFAULT_LANGUAGE", string(models.LangC)))),
		MaxMessageSize:  int64(env.Int("MAX_MESSAGE_SIZE", 1<<20)),
		SendBuffer:      env.Int("SEND_BUFFER", 256),
		PingInterval:    env.Duration("PING_INTERVAL", 30*time.Second),
		WriteTimeout:    env.Duration("WRITE_TIMEOUT", 10*time.Second),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		EventsChannel:   getEnvOrDefault("EVENTS_CHANNEL", "coderoom:events"),
		EventsBuffer:    env.Int("EVENTS_BUFFER", 1024),
		ShutdownTimeout: env.Duration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
	if err := env.Err(); err != nil {
		return nil, err
	}
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

func validateConfig(config *Config) error {
	if p, err := strconv.Atoi(config.Port); err != nil || p <= 0 || p > 65535 {
		return fmt.Errorf("%w: %q", ErrInvalidPort, config.Port)
	}
	if !config.DefaultLanguage.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidLanguage, config.DefaultLanguage)
	}
	if config.MaxMessageSize <= 0 || config.SendBuffer <= 0 || config.PingInterval <= 0 || config.WriteTimeout <= 0 ||
		config.EventsBuffer <= 0 || config.ShutdownTimeout <= 0 {
		return ErrInvalidLimit
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string { return ":" + c.Port }

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%w: %s=%q", ErrInvalidValue, key, value)
	}
	return i, nil
}

// getEnvDuration accepts Go durations ("15s") or bare seconds ("15").
func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d, nil
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return defaultValue, fmt.Errorf("%w: %s=%q", ErrInvalidValue, key, value)
}

// envReader collects parse errors so every bad variable is reported at once.
type envReader struct {
	errs []error
}

func (e *envReader) Int(key string, defaultValue int) int {
	v, err := getEnvInt(key, defaultValue)
	e.errs = append(e.errs, err)
	return v
}

func (e *envReader) Duration(key string, defaultValue time.Duration) time.Duration {
	v, err := getEnvDuration(key, defaultValue)
	e.errs = append(e.errs, err)
	return v
}

func (e *envReader) Err() error { return errors.Join(e.errs...) }

// splitCSV trims and filters a comma-separated list
func splitCSV(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
