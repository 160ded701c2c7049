package client

import (
	"context"
	"net/http"
	"time"

	"github.com/carnet-digital/carnet"
)

// BitacoraSink posts bitácora entries to the user service. It is meant to run
// behind the engine's async dispatcher; delivery failures are logged and dropped.
type BitacoraSink struct {
	base
}

var _ carnet.AuditSink = (*BitacoraSink)(nil)

// NewBitacoraSink returns a sink posting to baseURL + "/bitacora".
func NewBitacoraSink(baseURL string, opts ...Option) *BitacoraSink {
	return &BitacoraSink{base: newBase("bitacora", baseURL, opts)}
}

type bitacoraEntry struct {
	Usuario     string              `json:"usuario"`
	Descripcion bitacoraDescripcion `json:"descripcion"`
}

type bitacoraDescripcion struct {
	Evento    string            `json:"evento"`
	Exito     bool              `json:"exito"`
	Error     string            `json:"error,omitempty"`
	Correo    string            `json:"correo,omitempty"`
	IP        string            `json:"ip,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	Fecha     time.Time         `json:"fecha"`
	Detalle   map[string]string `json:"detalle,omitempty"`
}

// Emit implements [carnet.AuditSink].
func (s *BitacoraSink) Emit(ctx context.Context, event carnet.AuditEvent) {
	usuario := event.UserID
	if usuario == "" {
		usuario = event.Email
	}
	if usuario == "" {
		usuario = "anonimo"
	}

	entry := bitacoraEntry{
		Usuario: usuario,
		Descripcion: bitacoraDescripcion{
			Evento:    event.EventType,
			Exito:     event.Success,
			Error:     event.Error,
			Correo:    event.Email,
			IP:        event.IP,
			RequestID: event.RequestID,
			Fecha:     event.Timestamp,
			Detalle:   event.Metadata,
		},
	}
	if err := s.do(ctx, http.MethodPost, "/bitacora", entry, nil, nil); err != nil {
		s.logger.WithError(err).WithField("event", event.EventType).Warn("bitacora entry dropped")
	}
}
