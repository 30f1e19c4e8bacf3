// Package config builds process configuration from environment variables
// so main stays lean.
package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr string

	// PostgresDSN enables the Postgres audit store and transactional
	// privileged procedures. Empty selects the in-memory store.
	PostgresDSN string

	// RedisURL enables the read-through claim cache. Empty disables it.
	RedisURL string

	// JWTSigningKey verifies bearer tokens fed to the JWT claim source.
	JWTSigningKey string
	// JWTIssuer, when set, must match the token's iss claim.
	JWTIssuer string

	// ClaimFreshness bounds how old claim-derived context may be before
	// it is flagged stale. Must not exceed the claim-sync staleness
	// window.
	ClaimFreshness time.Duration

	// KafkaBrokers enables the audit outbox publisher. Empty disables it.
	KafkaBrokers []string
	// KafkaAuditTopic receives published audit records.
	KafkaAuditTopic string
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	cfg := Server{
		Addr:            envOr("TENANTGUARD_ADDR", ":8080"),
		PostgresDSN:     os.Getenv("TENANTGUARD_POSTGRES_DSN"),
		RedisURL:        os.Getenv("TENANTGUARD_REDIS_URL"),
		JWTSigningKey:   envOr("TENANTGUARD_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:       os.Getenv("TENANTGUARD_JWT_ISSUER"),
		ClaimFreshness:  durationOr("TENANTGUARD_CLAIM_FRESHNESS", 5*time.Minute),
		KafkaAuditTopic: envOr("TENANTGUARD_KAFKA_AUDIT_TOPIC", "tenantguard.audit"),
	}
	if brokers := os.Getenv("TENANTGUARD_KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
