package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind distinguishes access tokens from refresh tokens through the typ claim.
type TokenKind string

const (
	// KindAccess marks a short-lived access token.
	KindAccess TokenKind = "access"
	// KindRefresh marks a single-use refresh token.
	KindRefresh TokenKind = "refresh"
)

var (
	// ErrUnexpectedKind is returned when a token of one kind is presented where the other is required.
	ErrUnexpectedKind = errors.New("unexpected token kind")
	// ErrMissingSubject is returned when a token carries no subject claim.
	ErrMissingSubject = errors.New("token subject is missing")
	// ErrMissingSecret is returned when signing or verification is attempted without a key.
	ErrMissingSecret = errors.New("signing secret is empty")
)

// Config holds the signing secrets and lifetimes used by [Manager].
//
// RefreshSecret may be left empty, in which case refresh tokens are signed with
// AccessSecret and told apart only by their typ claim.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Leeway        time.Duration
	MaxFutureIAT  time.Duration

	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// Claims is the claim set carried by both token kinds.
type Claims struct {
	Email    string    `json:"email"`
	UserType string    `json:"tipoUsuario"`
	Kind     TokenKind `json:"typ"`
	jwt.RegisteredClaims
}

// Manager signs and verifies HS256 tokens.
//
// Manager is immutable after construction and safe for concurrent use.
type Manager struct {
	config Config
	now    func() time.Time
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.AccessSecret) == 0 {
		return nil, fmt.Errorf("access %w", ErrMissingSecret)
	}
	if len(cfg.RefreshSecret) == 0 {
		cfg.RefreshSecret = cfg.AccessSecret
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("invalid MaxFutureIAT configuration")
	}
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)

	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{config: cfg, now: now}, nil
}

// AccessTTL returns the configured access-token lifetime.
func (m *Manager) AccessTTL() time.Duration { return m.config.AccessTTL }

// RefreshTTL returns the configured refresh-token lifetime.
func (m *Manager) RefreshTTL() time.Duration { return m.config.RefreshTTL }

// Sign stamps claims with iat, exp (iat+ttl), a random jti when absent and the
// configured issuer, then signs them with secret.
func (m *Manager) Sign(claims Claims, ttl time.Duration, secret []byte) (string, error) {
	if len(secret) == 0 {
		return "", ErrMissingSecret
	}
	if ttl <= 0 {
		return "", errors.New("ttl must be > 0")
	}
	if claims.Subject == "" {
		return "", ErrMissingSubject
	}

	now := m.now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
	if claims.Issuer == "" {
		claims.Issuer = m.config.Issuer
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// Verify checks the signature, algorithm, expiry and issuer of token against secret.
func (m *Manager) Verify(token string, secret []byte) (*Claims, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parsed, err := jwt.NewParser(options...).ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}
	if claims.IssuedAt != nil && claims.IssuedAt.Time.After(m.now().Add(m.config.MaxFutureIAT)) {
		return nil, errors.New("token iat too far in the future")
	}

	return claims, nil
}

// DecodeUnverified returns the claims of token without checking its signature or
// expiry. The result is only fit for inspecting exp; it must never drive a trust decision.
func (m *Manager) DecodeUnverified(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// IssueAccess signs an access token for the given identity.
func (m *Manager) IssueAccess(subject, email, userType string) (string, *Claims, error) {
	return m.issue(KindAccess, subject, email, userType, m.config.AccessTTL, m.config.AccessSecret)
}

// IssueRefresh signs a refresh token for the given identity.
func (m *Manager) IssueRefresh(subject, email, userType string) (string, *Claims, error) {
	return m.issue(KindRefresh, subject, email, userType, m.config.RefreshTTL, m.config.RefreshSecret)
}

// ParseAccess verifies token with the access secret and requires typ=access.
func (m *Manager) ParseAccess(token string) (*Claims, error) {
	return m.parseKind(token, KindAccess, m.config.AccessSecret)
}

// ParseRefresh verifies token with the refresh secret and requires typ=refresh.
func (m *Manager) ParseRefresh(token string) (*Claims, error) {
	return m.parseKind(token, KindRefresh, m.config.RefreshSecret)
}

func (m *Manager) issue(kind TokenKind, subject, email, userType string, ttl time.Duration, secret []byte) (string, *Claims, error) {
	claims := Claims{
		Email:            email,
		UserType:         userType,
		Kind:             kind,
		RegisteredClaims: jwt.RegisteredClaims{Subject: subject},
	}
	token, err := m.Sign(claims, ttl, secret)
	if err != nil {
		return "", nil, err
	}

	// Sign works on a copy; read back what was actually stamped.
	signed, err := m.DecodeUnverified(token)
	if err != nil {
		return "", nil, err
	}
	return token, signed, nil
}

func (m *Manager) parseKind(token string, kind TokenKind, secret []byte) (*Claims, error) {
	claims, err := m.Verify(token, secret)
	if err != nil {
		return nil, err
	}
	if claims.Kind != kind {
		return nil, ErrUnexpectedKind
	}
	return claims, nil
}

// IsExpired reports whether err came from a token whose exp has passed. The
// signature was already checked by then, so the claims were authentic.
func IsExpired(err error) bool {
	return errors.Is(err, jwt.ErrTokenExpired)
}
