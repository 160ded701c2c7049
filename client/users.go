package client

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/carnet-digital/carnet"
)

// UserClient talks to the user service. It implements [carnet.UserProvider].
type UserClient struct {
	base
}

var _ carnet.UserProvider = (*UserClient)(nil)

// NewUserClient returns a client for the user service at baseURL.
func NewUserClient(baseURL string, opts ...Option) *UserClient {
	return &UserClient{base: newBase("user-service", baseURL, opts)}
}

type usuario struct {
	ID               string `json:"idUsuario"`
	Correo           string `json:"correo"`
	Contrasena       string `json:"contrasena"`
	TipoUsuario      int    `json:"tipoUsuario"`
	EstadoUsuario    int    `json:"estadoUsuario"`
	IntentosFallidos int    `json:"intentos_fallidos"`
}

type usuarioUpdate struct {
	IntentosFallidos *int `json:"intentos_fallidos,omitempty"`
	EstadoUsuario    *int `json:"estadoUsuario,omitempty"`
}

// FindByEmail implements [carnet.UserProvider].
func (c *UserClient) FindByEmail(ctx context.Context, email string) (carnet.CredentialRecord, error) {
	var u usuario
	if err := c.do(ctx, http.MethodGet, "/usuario/email/"+url.PathEscape(email), nil, &u, nil); err != nil {
		return carnet.CredentialRecord{}, err
	}
	if u.ID == "" || !strings.EqualFold(u.Correo, email) {
		return carnet.CredentialRecord{}, carnet.ErrNotFound
	}

	return carnet.CredentialRecord{
		ID:             u.ID,
		Email:          u.Correo,
		PasswordHash:   u.Contrasena,
		UserTypeCode:   u.TipoUsuario,
		StateCode:      u.EstadoUsuario,
		FailedAttempts: u.IntentosFallidos,
	}, nil
}

// UpdateCredentials implements [carnet.UserProvider] with a partial PUT.
func (c *UserClient) UpdateCredentials(ctx context.Context, userID string, update carnet.CredentialUpdate) error {
	body := usuarioUpdate{
		IntentosFallidos: update.FailedAttempts,
		EstadoUsuario:    update.StateCode,
	}
	return c.do(ctx, http.MethodPut, "/usuario/"+url.PathEscape(userID), body, nil, nil)
}
