package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName      string
	HTTPPort         string
	PostgresDSN      string
	AuditPostgresDSN string
	RealmConfigPath  string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int

	EnableAuditOutbox    bool
	EnableAccountLockout bool
}

func Load() (Config, error) {
	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "userrealm"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	primary := os.Getenv("POSTGRES_DSN")
	audit := os.Getenv("AUDIT_POSTGRES_DSN")
	if audit == "" {
		audit = primary
	}

	return Config{
		ServiceName:      service,
		HTTPPort:         port,
		PostgresDSN:      primary,
		AuditPostgresDSN: audit,
		RealmConfigPath:  strings.TrimSpace(os.Getenv("REALM_CONFIG")),

		OutboxPollInterval: envDuration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		OutboxBatchSize:    envInt("OUTBOX_BATCH_SIZE", 100),

		EnableAuditOutbox:    envBool("ENABLE_AUDIT_OUTBOX", true),
		EnableAccountLockout: envBool("ENABLE_ACCOUNT_LOCKOUT", true),
	}, nil
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
