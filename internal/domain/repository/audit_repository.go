package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// AuditRepository destino de escritura de eventos de auditoría.
// Búsqueda y retención quedan fuera de este núcleo.
type AuditRepository interface {
	Create(ctx context.Context, event *entity.AuditEvent) error
}
