package carnet

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/carnet-digital/carnet/internal/audit"
	"github.com/carnet-digital/carnet/jwt"
)

// CredentialRecord is the slice of a user-service record the auth engine reads.
type CredentialRecord struct {
	ID             string
	Email          string
	PasswordHash   string
	UserTypeCode   int
	StateCode      int
	FailedAttempts int
}

// CredentialUpdate is a partial update of a credential record. Nil fields are left untouched.
type CredentialUpdate struct {
	FailedAttempts *int
	StateCode      *int
}

// State is one entry of the account-state catalog.
type State struct {
	Code int
	Name string
}

// UserProvider is the engine's view of the user service.
//
// Implementations must wrap [ErrNotFound] when no record exists and
// [ErrDownstreamUnavailable] when the service cannot answer.
type UserProvider interface {
	FindByEmail(ctx context.Context, email string) (CredentialRecord, error)
	UpdateCredentials(ctx context.Context, userID string, update CredentialUpdate) error
}

// CatalogProvider is the engine's view of the catalog service.
//
// Error wrapping follows the same rules as [UserProvider].
type CatalogProvider interface {
	UserTypeName(ctx context.Context, code int) (string, error)
	States(ctx context.Context) ([]State, error)
}

// TokenValidator answers whether an access token is currently acceptable.
// Any fault must collapse to false.
type TokenValidator interface {
	Validate(ctx context.Context, token string) bool
}

// LoginRequest carries the three login inputs.
type LoginRequest struct {
	Email    string
	Password string
	UserType string
}

// TokenPair is returned by [Engine.Login] and [Engine.Refresh].
//
// ExpiresIn is the access token lifetime (exp-iat); ExpiresAt is its absolute expiry.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
	ExpiresAt    time.Time
	UserID       string
	UserType     string
}

// Claims is the verified claim set of an access token.
type Claims = jwt.Claims

// AuditEvent is one bitácora entry emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an io.Writer.
type JSONWriterSink = internalaudit.JSONWriterSink

// LogrusSink is an [AuditSink] that writes events as structured log entries.
type LogrusSink = internalaudit.LogrusSink

// NewChannelSink creates a [ChannelSink] with the given buffer size.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] writing to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
