package config

import (
	"errors"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Config struct {
	LocalDBPath string
	DBDebug     bool
	LogLevel    slog.Level

	RemoteBaseURL string
	RemoteAPIKey  string
	RemoteTimeout time.Duration

	PushInterval     time.Duration
	PushInitialDelay time.Duration
	TenantUUID       uuid.UUID

	Port      string
	JWTSecret string

	// Reference remote server
	RemoteDatabaseURL string
	RemotePort        string
}

// Load reads configuration from the environment with defaults.
// Precedence: explicit env var > .env file (if loaded by the caller) > default.
func Load() *Config {
	cfg := &Config{
		LocalDBPath:       getEnv("LOCAL_DB_PATH", "pos.db"),
		DBDebug:           getBool("DB_DEBUG", false),
		LogLevel:          parseLevel(getEnv("LOG_LEVEL", "info")),
		RemoteBaseURL:     strings.TrimRight(getEnv("REMOTE_BASE_URL", ""), "/"),
		RemoteAPIKey:      getEnv("REMOTE_API_KEY", ""),
		RemoteTimeout:     getDuration("REMOTE_TIMEOUT", 60*time.Second),
		PushInterval:      getDuration("PUSH_INTERVAL", 5*time.Minute),
		PushInitialDelay:  getDuration("PUSH_INITIAL_DELAY", 30*time.Second),
		Port:              getEnv("PORT", "3000"),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		RemoteDatabaseURL: getEnv("REMOTE_DATABASE_URL", ""),
		RemotePort:        getEnv("REMOTE_PORT", "8080"),
	}

	if raw := getEnv("TENANT_UUID", ""); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			log.Printf("[WARN] TENANT_UUID %q is not a uuid, ignoring", raw)
		} else {
			cfg.TenantUUID = id
		}
	}

	if cfg.JWTSecret == "" {
		log.Println("[WARN] JWT_SECRET is not set, local sessions use a built-in secret")
	}

	return cfg
}

// Validate reports the settings the sync agent cannot run without.
func (c *Config) Validate() error {
	var errs []error
	if c.RemoteBaseURL == "" {
		errs = append(errs, errors.New("REMOTE_BASE_URL is required"))
	}
	if c.RemoteAPIKey == "" {
		errs = append(errs, errors.New("REMOTE_API_KEY is required"))
	}
	if c.PushInterval <= 0 {
		errs = append(errs, errors.New("PUSH_INTERVAL must be positive"))
	}
	return errors.Join(errs...)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			log.Printf("invalid boolean for %s: %s", key, v)
			return def
		}
		return b
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Printf("invalid duration for %s: %s", key, v)
			return def
		}
		return d
	}
	return def
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
