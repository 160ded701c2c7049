package jwt

import (
	"errors"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		AccessSecret:  []byte("access-secret-access-secret-0001"),
		RefreshSecret: []byte("refresh-secret-refresh-secret-01"),
		AccessTTL:     5 * time.Minute,
		RefreshTTL:    15 * time.Minute,
		Issuer:        "carnet-auth",
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestSignVerifyRoundTrip(t *testing.T) {
	m := newTestManager(t)
	secret := []byte("round-trip-secret")

	in := Claims{
		Email:            "juan@cuc.cr",
		UserType:         "estudiante",
		Kind:             KindAccess,
		RegisteredClaims: gjwt.RegisteredClaims{Subject: "0b6f5c1e-2d0a-4c56-9d0b-8d1c5b8e4a11"},
	}
	token, err := m.Sign(in, time.Minute, secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	out, err := m.Verify(token, secret)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if out.Subject != in.Subject || out.Email != in.Email || out.UserType != in.UserType {
		t.Fatalf("claims not preserved: %+v", out)
	}
	if out.ID == "" {
		t.Fatal("expected jti to be set")
	}
	if out.Issuer != "carnet-auth" {
		t.Fatalf("expected issuer carnet-auth, got %q", out.Issuer)
	}
}

func TestVerifyFailsAfterTTL(t *testing.T) {
	m := newTestManager(t)
	secret := []byte("expiry-secret")

	token, err := m.Sign(Claims{RegisteredClaims: gjwt.RegisteredClaims{Subject: "u1"}}, time.Minute, secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	m.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = m.Verify(token, secret)
	if !errors.Is(err, gjwt.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	m := newTestManager(t)

	token, err := m.Sign(Claims{RegisteredClaims: gjwt.RegisteredClaims{Subject: "u1"}}, time.Minute, []byte("one"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := m.Verify(token, []byte("two")); err == nil {
		t.Fatal("expected signature mismatch to be rejected")
	}
}

func TestVerifyRejectsNoneAlgorithm(t *testing.T) {
	m := newTestManager(t)

	claims := Claims{RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodNone, claims).SignedString(gjwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := m.Verify(token, []byte("anything")); err == nil {
		t.Fatal("expected alg=none to be rejected")
	}
}

func TestVerifyRejectsFutureIssuedAt(t *testing.T) {
	m := newTestManager(t)
	secret := []byte("iat-secret")

	m.now = func() time.Time { return time.Now().Add(time.Hour) }
	token, err := m.Sign(Claims{RegisteredClaims: gjwt.RegisteredClaims{Subject: "u1"}}, 2*time.Hour, secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	m.now = time.Now
	if _, err := m.Verify(token, secret); err == nil {
		t.Fatal("expected far-future iat to be rejected")
	}
}

func TestAccessAndRefreshKindsAreNotInterchangeable(t *testing.T) {
	m := newTestManager(t)

	access, _, err := m.IssueAccess("u1", "a@cuc.cr", "docente")
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	refresh, _, err := m.IssueRefresh("u1", "a@cuc.cr", "docente")
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}

	if _, err := m.ParseAccess(access); err != nil {
		t.Fatalf("parse access: %v", err)
	}
	if _, err := m.ParseRefresh(refresh); err != nil {
		t.Fatalf("parse refresh: %v", err)
	}
	if _, err := m.ParseRefresh(access); err == nil {
		t.Fatal("access token must not parse as refresh")
	}
	if _, err := m.ParseAccess(refresh); err == nil {
		t.Fatal("refresh token must not parse as access")
	}
}

func TestSharedSecretStillSeparatesKinds(t *testing.T) {
	m, err := NewManager(Config{
		AccessSecret: []byte("single-secret"),
		AccessTTL:    time.Minute,
		RefreshTTL:   time.Minute,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	access, _, err := m.IssueAccess("u1", "a@cuc.cr", "docente")
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	if _, err := m.ParseRefresh(access); !errors.Is(err, ErrUnexpectedKind) {
		t.Fatalf("expected ErrUnexpectedKind, got %v", err)
	}
}

func TestIssueAccessReturnsStampedClaims(t *testing.T) {
	m := newTestManager(t)

	_, claims, err := m.IssueAccess("u1", "a@cuc.cr", "docente")
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		t.Fatal("expected exp and iat on issued claims")
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != 5*time.Minute {
		t.Fatalf("expected exp-iat of 5m, got %v", got)
	}
}

func TestDecodeUnverifiedIgnoresSignatureAndExpiry(t *testing.T) {
	m := newTestManager(t)

	token, err := m.Sign(Claims{RegisteredClaims: gjwt.RegisteredClaims{Subject: "u1"}}, time.Minute, []byte("unknown"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	m.now = func() time.Time { return time.Now().Add(time.Hour) }
	claims, err := m.DecodeUnverified(token)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if claims.Subject != "u1" || claims.ExpiresAt == nil {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if _, err := m.DecodeUnverified("not-a-token"); err == nil {
		t.Fatal("expected malformed token to fail decoding")
	}
}

func TestNewManagerValidation(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"missing secret", Config{AccessTTL: time.Minute, RefreshTTL: time.Minute}},
		{"zero access ttl", Config{AccessSecret: []byte("s"), RefreshTTL: time.Minute}},
		{"zero refresh ttl", Config{AccessSecret: []byte("s"), AccessTTL: time.Minute}},
		{"leeway too large", Config{AccessSecret: []byte("s"), AccessTTL: time.Minute, RefreshTTL: time.Minute, Leeway: time.Hour}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewManager(tc.cfg); err == nil {
				t.Fatal("expected configuration error")
			}
		})
	}
}
