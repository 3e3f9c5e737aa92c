package memory

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.AuditRepository = (*AuditRepo)(nil)

// AuditRepo guarda los eventos en memoria (inspección en tests y modo sin BD).
type AuditRepo base

// Create agrega el evento; la auditoría no participa de unidades de trabajo.
func (r *AuditRepo) Create(ctx context.Context, event *entity.AuditEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.s.inject("audit.create"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.audit = append(r.s.audit, *event)
	return nil
}
