package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.SequenceRepository = (*SequenceRepo)(nil)

// SequenceRepo contadores por prefijo en sequence_counters.
type SequenceRepo struct {
	q Querier
}

// NewSequenceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSequenceRepository(q Querier) *SequenceRepo {
	return &SequenceRepo{q: q}
}

// Increment crea el contador en 1 o lo incrementa. El upsert deja la fila bloqueada
// hasta el fin de la tx, así que asignaciones concurrentes del mismo prefijo se serializan.
func (r *SequenceRepo) Increment(ctx context.Context, prefix string) (int64, error) {
	query := `
		INSERT INTO sequence_counters (prefix, last_value, updated_at)
		VALUES ($1, 1, now())
		ON CONFLICT (prefix)
		DO UPDATE SET last_value = sequence_counters.last_value + 1, updated_at = now()
		RETURNING last_value`
	var v int64
	if err := r.q.QueryRow(ctx, query, prefix).Scan(&v); err != nil {
		return 0, mapError("increment sequence", err)
	}
	return v, nil
}

// Current último valor asignado del prefijo, sin bloquear ni crear el contador (0 si no existe).
func (r *SequenceRepo) Current(ctx context.Context, prefix string) (int64, error) {
	var v int64
	err := r.q.QueryRow(ctx, `SELECT last_value FROM sequence_counters WHERE prefix = $1`, prefix).Scan(&v)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, mapError("current sequence", err)
	}
	return v, nil
}
