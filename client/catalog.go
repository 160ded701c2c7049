package client

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/carnet-digital/carnet"
)

// CatalogClient talks to the catalog service. It implements [carnet.CatalogProvider].
type CatalogClient struct {
	base
}

var _ carnet.CatalogProvider = (*CatalogClient)(nil)

// NewCatalogClient returns a client for the catalog service at baseURL.
func NewCatalogClient(baseURL string, opts ...Option) *CatalogClient {
	return &CatalogClient{base: newBase("catalog-service", baseURL, opts)}
}

type tipoUsuario struct {
	ID     int    `json:"idTipoUsuario"`
	Nombre string `json:"nombre"`
}

type estado struct {
	ID     int    `json:"idEstado"`
	Nombre string `json:"nombre"`
}

// UserTypeName implements [carnet.CatalogProvider].
func (c *CatalogClient) UserTypeName(ctx context.Context, code int) (string, error) {
	var t tipoUsuario
	if err := c.do(ctx, http.MethodGet, "/tiposusuario/"+strconv.Itoa(code), nil, &t, nil); err != nil {
		return "", err
	}
	name := strings.TrimSpace(t.Nombre)
	if name == "" {
		return "", carnet.ErrNotFound
	}
	return name, nil
}

// States implements [carnet.CatalogProvider].
func (c *CatalogClient) States(ctx context.Context) ([]carnet.State, error) {
	var list []estado
	if err := c.do(ctx, http.MethodGet, "/estados", nil, &list, nil); err != nil {
		return nil, err
	}

	out := make([]carnet.State, 0, len(list))
	for _, e := range list {
		out = append(out, carnet.State{Code: e.ID, Name: e.Nombre})
	}
	return out, nil
}
