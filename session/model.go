package session

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrRecordCorrupt is returned when a stored refresh record cannot be decoded.
var ErrRecordCorrupt = errors.New("refresh record corrupt")

// RefreshRecord is the claims snapshot stored for every outstanding refresh token.
//
// The JSON field names match what the auth service has always written under
// refresh_token keys so records survive a rolling deploy.
type RefreshRecord struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	UserType  string    `json:"tipoUsuario"`
	TokenID   string    `json:"jti,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// EncodeRecord serializes rec for storage.
func EncodeRecord(rec *RefreshRecord) ([]byte, error) {
	if rec == nil || rec.UserID == "" {
		return nil, errors.New("refresh record requires a user id")
	}
	return json.Marshal(rec)
}

// DecodeRecord parses a stored refresh record.
func DecodeRecord(data []byte) (*RefreshRecord, error) {
	var rec RefreshRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, ErrRecordCorrupt
	}
	if rec.UserID == "" {
		return nil, ErrRecordCorrupt
	}
	return &rec, nil
}
