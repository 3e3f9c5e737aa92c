package memory

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.SequenceRepository = (*SequenceRepo)(nil)

// SequenceRepo contador por prefijo con bloqueo de fila hasta el fin de la unidad.
type SequenceRepo base

// Increment bloquea el contador del prefijo hasta el fin de la unidad, lo crea en 0 si no existe y suma 1.
func (r *SequenceRepo) Increment(ctx context.Context, prefix string) (int64, error) {
	var next int64
	err := base(*r).do(ctx, func(u *unit) error {
		if err := u.lock(ctx, "seq:"+prefix); err != nil {
			return err
		}
		if err := r.s.inject("sequence.increment"); err != nil {
			return err
		}
		cur, err := (&SequenceRepo{s: r.s, u: u}).Current(ctx, prefix)
		if err != nil {
			return err
		}
		next = cur + 1
		u.seqs[prefix] = next
		return nil
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}

// Current último valor confirmado (o pendiente en la unidad) del prefijo; 0 si no existe.
func (r *SequenceRepo) Current(ctx context.Context, prefix string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if r.u != nil {
		if v, ok := r.u.seqs[prefix]; ok {
			return v, nil
		}
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.sequences[prefix], nil
}
