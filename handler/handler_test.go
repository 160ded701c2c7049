package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/carnet-digital/carnet"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	loginReq   carnet.LoginRequest
	loginCtx   context.Context
	loginErr   error
	loginCalls int

	refreshed  string
	refreshErr error

	loggedOut [2]string
	logoutErr error
	unlocked  string
	unlockErr error
	attempts  int
	pingErr   error
}

var testPair = &carnet.TokenPair{
	AccessToken:  "access.jwt",
	RefreshToken: "refresh.jwt",
	ExpiresIn:    5 * time.Minute,
	ExpiresAt:    time.Date(2026, 5, 1, 12, 5, 0, 0, time.UTC),
	UserID:       "7b1c",
	UserType:     "estudiante",
}

func (f *fakeService) Login(ctx context.Context, req carnet.LoginRequest) (*carnet.TokenPair, error) {
	f.loginCalls++
	f.loginReq = req
	f.loginCtx = ctx
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return testPair, nil
}

func (f *fakeService) Refresh(_ context.Context, token string) (*carnet.TokenPair, error) {
	f.refreshed = token
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return testPair, nil
}

func (f *fakeService) Validate(_ context.Context, token string) bool {
	return token == "good" || token == "admin"
}

func (f *fakeService) ValidateClaims(_ context.Context, token string) (*carnet.Claims, error) {
	switch token {
	case "good":
		return &carnet.Claims{Email: "juan@cuc.cr", UserType: "estudiante"}, nil
	case "admin":
		return &carnet.Claims{Email: "admin@cuc.cr", UserType: "Administrador"}, nil
	}
	return nil, carnet.ErrTokenInvalid
}

func (f *fakeService) Logout(_ context.Context, access, refresh string) error {
	f.loggedOut = [2]string{access, refresh}
	return f.logoutErr
}

func (f *fakeService) UnlockAccount(_ context.Context, email string) error {
	f.unlocked = email
	return f.unlockErr
}

func (f *fakeService) FailedAttempts(context.Context, string) (int, error) {
	return f.attempts, nil
}

func (f *fakeService) IsAdmin(c *carnet.Claims) bool {
	return c != nil && strings.EqualFold(c.UserType, "administrador")
}

func (f *fakeService) Ping(context.Context) (time.Duration, error) {
	return time.Millisecond, f.pingErr
}

func newRouter(svc Service, opts ...Option) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return New(svc, opts...).Router()
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func loginRequestWithHeaders(email, pass, typ string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.Header.Set("correo", email)
	req.Header.Set("contrasena", pass)
	req.Header.Set("tipousuario", typ)
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestLoginFromHeaders(t *testing.T) {
	svc := &fakeService{}
	r := newRouter(svc)

	req := loginRequestWithHeaders("juan@cuc.cr", "correct", "estudiante")
	req.Header.Set(HeaderRequestID, "req-1")
	req.RemoteAddr = "10.0.0.9:5555"
	rec := serve(r, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{
		"access_token":"access.jwt",
		"refresh_token":"refresh.jwt",
		"expires_in":300,
		"expires_at":"2026-05-01T12:05:00Z",
		"usuarioID":"7b1c"
	}`, rec.Body.String())
	assert.Equal(t, carnet.LoginRequest{Email: "juan@cuc.cr", Password: "correct", UserType: "estudiante"}, svc.loginReq)
	assert.Equal(t, "req-1", rec.Header().Get(HeaderRequestID))
	assert.Equal(t, "req-1", carnet.RequestIDFromContext(svc.loginCtx))
	assert.Equal(t, "10.0.0.9", carnet.ClientIPFromContext(svc.loginCtx))
}

func TestLoginFromJSONBody(t *testing.T) {
	svc := &fakeService{}
	r := newRouter(svc)

	body := `{"correo":" juan@cuc.cr ","contrasena":"correct","tipoUsuario":"estudiante"}`
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := serve(r, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "juan@cuc.cr", svc.loginReq.Email)
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))
}

func TestLoginValidation(t *testing.T) {
	tests := []struct {
		name   string
		req    *http.Request
		fields []string
	}{
		{
			name:   "missing password",
			req:    loginRequestWithHeaders("juan@cuc.cr", "", "estudiante"),
			fields: []string{"contrasena"},
		},
		{
			name:   "bad email",
			req:    loginRequestWithHeaders("juan", "x", "estudiante"),
			fields: []string{"correo"},
		},
		{
			name:   "nothing",
			req:    httptest.NewRequest(http.MethodPost, "/login", nil),
			fields: []string{"correo", "contrasena", "tipoUsuario"},
		},
		{
			name:   "malformed body",
			req:    httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("{")),
			fields: []string{"body"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{}
			rec := serve(newRouter(svc), tt.req)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			body := decodeError(t, rec)
			for _, f := range tt.fields {
				assert.Contains(t, body.Errors, f)
			}
			assert.Zero(t, svc.loginCalls, "no engine call before validation passes")
		})
	}
}

func TestLoginErrorMapping(t *testing.T) {
	tests := []struct {
		err     error
		status  int
		message string
	}{
		{err: carnet.ErrInvalidCredentials, status: http.StatusUnauthorized, message: "incorrect credentials"},
		{err: carnet.ErrAccountBlocked, status: http.StatusUnauthorized, message: "account blocked"},
		{err: carnet.ErrAccountInactive, status: http.StatusUnauthorized, message: "account inactive"},
		{err: carnet.ErrAccountLocked, status: http.StatusUnauthorized, message: "account locked"},
		{err: fmt.Errorf("%w: email domain", carnet.ErrValidation), status: http.StatusBadRequest, message: "incomplete or invalid data"},
		{err: carnet.ErrLoginRateLimited, status: http.StatusTooManyRequests, message: "too many requests"},
		{err: fmt.Errorf("%w: user-service answered 500: pq secret", carnet.ErrDownstreamUnavailable), status: http.StatusBadGateway, message: "service unavailable"},
		{err: errors.New("boom"), status: http.StatusInternalServerError, message: "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			rec := serve(newRouter(&fakeService{loginErr: tt.err}), loginRequestWithHeaders("juan@cuc.cr", "x", "estudiante"))
			assert.Equal(t, tt.status, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, tt.message, body.Message)
			assert.NotContains(t, rec.Body.String(), "pq secret")
		})
	}
}

func TestRefresh(t *testing.T) {
	svc := &fakeService{}
	r := newRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/refresh", nil)
	req.Header.Set("refresh_token", "refresh.old")
	rec := serve(r, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "refresh.old", svc.refreshed)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "access.jwt", body["access_token"])
	assert.NotContains(t, body, "usuarioID")

	req = httptest.NewRequest(http.MethodPost, "/refresh", strings.NewReader(`{"refresh_token":"from.body"}`))
	rec = serve(r, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "from.body", svc.refreshed)

	rec = serve(r, httptest.NewRequest(http.MethodPost, "/refresh", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	svc.refreshErr = carnet.ErrRefreshInvalid
	req = httptest.NewRequest(http.MethodPost, "/refresh", nil)
	req.Header.Set("refresh_token", "refresh.used")
	rec = serve(r, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid refresh token", decodeError(t, rec).Message)
}

func TestValidate(t *testing.T) {
	r := newRouter(&fakeService{})

	cases := map[string]*http.Request{}
	byHeader := httptest.NewRequest(http.MethodGet, "/validate", nil)
	byHeader.Header.Set("token", "good")
	cases["header"] = byHeader
	byBearer := httptest.NewRequest(http.MethodGet, "/validate", nil)
	byBearer.Header.Set("Authorization", "Bearer good")
	cases["bearer"] = byBearer
	cases["query"] = httptest.NewRequest(http.MethodGet, "/validate?token=good", nil)

	for name, req := range cases {
		rec := serve(r, req)
		assert.Equal(t, http.StatusOK, rec.Code, name)
		assert.Equal(t, "true", strings.TrimSpace(rec.Body.String()), name)
	}

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/validate?token=forged", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "false", strings.TrimSpace(rec.Body.String()))

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/validate", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "false", strings.TrimSpace(rec.Body.String()))
}

func TestLogout(t *testing.T) {
	svc := &fakeService{}
	r := newRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/logout", strings.NewReader(`{"refresh_token":"r1"}`))
	req.Header.Set("Authorization", "Bearer a1")
	rec := serve(r, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, [2]string{"a1", "r1"}, svc.loggedOut)

	req = httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.Header.Set("token", "a2")
	rec = serve(r, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, [2]string{"a2", ""}, svc.loggedOut)

	rec = serve(r, httptest.NewRequest(http.MethodPost, "/logout", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Errors, "token")

	svc.logoutErr = carnet.ErrTokenInvalid
	req = httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.Header.Set("Authorization", "Bearer forged")
	rec = serve(r, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUnlockRequiresAdmin(t *testing.T) {
	svc := &fakeService{}
	r := newRouter(svc)

	unlock := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/unlock", strings.NewReader(`{"correo":"juan@cuc.cr"}`))
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		return serve(r, req)
	}

	assert.Equal(t, http.StatusUnauthorized, unlock("").Code)
	assert.Equal(t, http.StatusUnauthorized, unlock("forged").Code)
	assert.Equal(t, http.StatusForbidden, unlock("good").Code)
	assert.Empty(t, svc.unlocked)

	rec := unlock("admin")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "juan@cuc.cr", svc.unlocked)

	svc.unlockErr = fmt.Errorf("%w: no account", carnet.ErrNotFound)
	assert.Equal(t, http.StatusNotFound, unlock("admin").Code)
}

func TestAttempts(t *testing.T) {
	r := newRouter(&fakeService{attempts: 2})

	req := httptest.NewRequest(http.MethodGet, "/attempts?correo=juan@cuc.cr", nil)
	req.Header.Set("Authorization", "Bearer admin")
	rec := serve(r, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"correo":"juan@cuc.cr","intentos_fallidos":2}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/attempts", nil)
	req.Header.Set("Authorization", "Bearer admin")
	assert.Equal(t, http.StatusBadRequest, serve(r, req).Code)
}

func TestHealthAndMetrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("carnet_login_success_total 1\n"))
	})
	svc := &fakeService{}
	r := newRouter(svc, WithMetrics(metrics))

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "carnet_login_success_total 1")

	svc.pingErr = carnet.ErrSessionStoreUnavailable
	rec = serve(r, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsRouteAbsentByDefault(t *testing.T) {
	rec := serve(newRouter(&fakeService{}), httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusForbidden, StatusOf(carnet.ErrForbidden))
	assert.Equal(t, http.StatusBadGateway, StatusOf(carnet.ErrSessionStoreUnavailable))
	assert.Equal(t, http.StatusBadRequest, StatusOf(&ValidationError{Fields: map[string]string{"x": "y"}}))
	assert.Equal(t, http.StatusUnauthorized, StatusOf(carnet.ErrTokenRevoked))
}
