package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures console server level configuration.
type Server struct {
	Addr                string
	SessionSigningKey   string
	AdminCredentialHash string
	SessionTTL          time.Duration
	RegistrationsPage   int
	NoticeTTL           time.Duration
	TracingEnabled      bool
}

// Defaults tuned for the demo environment; override via environment in production.
var SessionTTL = 12 * time.Hour
var NoticeTTL = 3 * time.Second
var RegistrationsPageSize = 10

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("ATELIER_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	sessionTTLStr := os.Getenv("ATELIER_SESSION_TTL")
	if sessionTTLStr != "" {
		if duration, err := time.ParseDuration(sessionTTLStr); err == nil {
			SessionTTL = duration
		}
	}

	noticeTTLStr := os.Getenv("ATELIER_NOTICE_TTL")
	if noticeTTLStr != "" {
		if duration, err := time.ParseDuration(noticeTTLStr); err == nil {
			NoticeTTL = duration
		}
	}

	pageSize := RegistrationsPageSize
	if pageStr := os.Getenv("ATELIER_REGISTRATIONS_PAGE_SIZE"); pageStr != "" {
		if n, err := strconv.Atoi(pageStr); err == nil && n > 0 {
			pageSize = n
		}
	}

	signingKey := os.Getenv("ATELIER_SESSION_SIGNING_KEY")
	if signingKey == "" {
		// Use a default for development - should be overridden in production
		signingKey = "dev-secret-key-change-in-production"
	}

	// bcrypt hash of the admin credential; empty disables the login endpoint.
	credentialHash := os.Getenv("ATELIER_ADMIN_CREDENTIAL_HASH")

	tracingEnabled, _ := strconv.ParseBool(os.Getenv("ATELIER_TRACING_ENABLED"))

	return Server{
		Addr:                addr,
		SessionSigningKey:   signingKey,
		AdminCredentialHash: credentialHash,
		SessionTTL:          SessionTTL,
		RegistrationsPage:   pageSize,
		NoticeTTL:           NoticeTTL,
		TracingEnabled:      tracingEnabled,
	}
}
