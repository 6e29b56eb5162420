// Package config builds the server configuration from the environment so
// main stays lean. A .env file is loaded when present (development); real
// environments set variables directly.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Server captures the full gateway configuration.
type Server struct {
	Addr string

	// Store backend: "postgres" or "sqlite".
	DBDriver string
	DBDSN    string

	// Bearer-token verification. The identity provider itself is external;
	// the gateway only needs the shared signing key to verify claims.
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string

	// Audit trail. Empty brokers disable publishing.
	AuditBrokers []string
	AuditTopic   string

	// "json" or "text".
	LogFormat string
}

// FromEnv reads configuration from the environment, applying development
// defaults where a variable is unset.
func FromEnv() Server {
	_ = godotenv.Load()

	cfg := Server{
		Addr:          envOr("SDEP_ADDR", ":8080"),
		DBDriver:      envOr("SDEP_DB_DRIVER", "postgres"),
		DBDSN:         os.Getenv("SDEP_DB_DSN"),
		JWTSigningKey: envOr("SDEP_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:     envOr("SDEP_JWT_ISSUER", "sdep-gateway"),
		JWTAudience:   envOr("SDEP_JWT_AUDIENCE", "sdep-api"),
		AuditTopic:    envOr("SDEP_AUDIT_TOPIC", "sdep.audit"),
		LogFormat:     envOr("SDEP_LOG_FORMAT", "text"),
	}

	if brokers := os.Getenv("SDEP_AUDIT_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.AuditBrokers = append(cfg.AuditBrokers, b)
			}
		}
	}

	if cfg.DBDSN == "" {
		cfg.DBDSN = postgresDSNFromParts()
	}
	return cfg
}

// postgresDSNFromParts assembles a lib/pq DSN from the discrete SDEP_PG_*
// variables used by the deployment manifests.
func postgresDSNFromParts() string {
	host := envOr("SDEP_PG_HOST", "localhost")
	port := envOr("SDEP_PG_PORT", "5432")
	name := envOr("SDEP_PG_DB", "sdep")
	user := envOr("SDEP_PG_USER", "sdep")
	password := os.Getenv("SDEP_PG_PASSWORD")
	sslmode := envOr("SDEP_PG_SSLMODE", "disable")

	dsn := fmt.Sprintf("host=%s port=%s dbname=%s user=%s sslmode=%s", host, port, name, user, sslmode)
	if password != "" {
		dsn += " password=" + password
	}
	return dsn
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
