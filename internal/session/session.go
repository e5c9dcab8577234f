// Package session authenticates the console operator and carries the
// resulting session object through requests. A session is a signed claim set
// with an expiry and a device description, not a boolean flag: expiry and
// principal travel with every request.
package session

import (
	"errors"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/mssola/useragent"
	"golang.org/x/crypto/bcrypt"

	dErrors "atelier/pkg/domain-errors"
)

// PrincipalAdmin is the single operator principal of the console.
const PrincipalAdmin = "admin"

// Session is an authenticated console session.
type Session struct {
	ID        string
	Principal string
	Device    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Claims is the JWT claim set backing a session.
type Claims struct {
	Principal string `json:"principal"`
	Device    string `json:"device,omitempty"`
	jwt.RegisteredClaims
}

// Service issues and verifies console sessions.
type Service struct {
	signingKey     []byte
	credentialHash []byte
	ttl            time.Duration
	logger         *slog.Logger
	now            func() time.Time
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock injects the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a session service. credentialHash is the bcrypt hash of
// the operator password.
func NewService(signingKey, credentialHash string, ttl time.Duration, opts ...Option) *Service {
	s := &Service{
		signingKey:     []byte(signingKey),
		credentialHash: []byte(credentialHash),
		ttl:            ttl,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue verifies the operator password and mints a signed session token.
// The user agent is kept as a display string on the session for the audit
// trail; it carries no authorization weight.
func (s *Service) Issue(password, rawUserAgent string) (Session, string, error) {
	if err := bcrypt.CompareHashAndPassword(s.credentialHash, []byte(password)); err != nil {
		if s.logger != nil {
			s.logger.Warn("console login rejected")
		}
		return Session{}, "", dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}

	now := s.now()
	session := Session{
		ID:        uuid.New().String(),
		Principal: PrincipalAdmin,
		Device:    DeviceDisplay(rawUserAgent),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Principal: session.Principal,
		Device:    session.Device,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Subject:   session.Principal,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	})
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return Session{}, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign session token")
	}

	if s.logger != nil {
		s.logger.Info("console session issued",
			"session_id", session.ID,
			"device", session.Device,
			"expires_at", session.ExpiresAt,
		)
	}
	return session, signed, nil
}

// Verify parses and validates a session token. Expired sessions map to their
// own code so the console can distinguish re-login from rejection.
func (s *Service) Verify(tokenString string) (Session, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) {
			return s.signingKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return Session{}, dErrors.New(dErrors.CodeSessionExpired, "session has expired")
	case err != nil || !token.Valid:
		return Session{}, dErrors.New(dErrors.CodeUnauthorized, "invalid session token")
	}

	if claims.Principal != PrincipalAdmin {
		return Session{}, dErrors.New(dErrors.CodeUnauthorized, "unknown principal")
	}

	session := Session{
		ID:        claims.ID,
		Principal: claims.Principal,
		Device:    claims.Device,
	}
	if claims.IssuedAt != nil {
		session.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, nil
}

// DeviceDisplay renders a user agent as a short display string.
func DeviceDisplay(rawUserAgent string) string {
	if rawUserAgent == "" {
		return "unknown device"
	}
	ua := useragent.New(rawUserAgent)
	name, version := ua.Browser()
	if name == "" {
		return "unknown device"
	}
	out := name
	if version != "" {
		out += " " + version
	}
	if os := ua.OS(); os != "" {
		out += " on " + os
	}
	return out
}
