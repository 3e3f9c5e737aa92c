package postgres

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.AuditRepository = (*AuditRepo)(nil)

// AuditRepo escribe eventos en audit_logs (JSONB para instantáneas y metadatos).
type AuditRepo struct {
	q Querier
}

// NewAuditRepository construye el adaptador de auditoría. Pasar pool o tx (Querier).
func NewAuditRepository(q Querier) *AuditRepo {
	return &AuditRepo{q: q}
}

// Create inserta el evento; before, after, changes y metadata se guardan como JSONB.
func (r *AuditRepo) Create(ctx context.Context, e *entity.AuditEvent) error {
	query := `
		INSERT INTO audit_logs (id, action, entity_type, entity_id, actor_id, store_id, before, after, changes, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.Exec(ctx, query,
		e.ID, e.Action, e.EntityType, e.EntityID, e.ActorID, e.StoreID,
		jsonOrNil(e.Before), jsonOrNil(e.After), jsonOrNil(e.Changes), jsonOrNil(e.Metadata), e.CreatedAt,
	)
	return mapError("insert audit event", err)
}
