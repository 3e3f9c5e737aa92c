package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.LedgerRepository = (*LedgerRepo)(nil)

// LedgerRepo implementación en memoria de LedgerRepository.
type LedgerRepo base

func ledgerLockKey(k ledgerKey) string { return "ledger:" + k.store + "/" + k.product }

// lookup busca primero en las escrituras pendientes de la unidad y luego en lo confirmado.
func (r *LedgerRepo) lookup(k ledgerKey) (entity.StockLedger, bool) {
	if r.u != nil {
		if l, ok := r.u.ledgers[k]; ok {
			return l, true
		}
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.ledgers[k]
	return l, ok
}

// GetForUpdate toma el bloqueo exclusivo del ledger hasta el fin de la unidad y devuelve una copia.
func (r *LedgerRepo) GetForUpdate(ctx context.Context, storeID, productID string) (*entity.StockLedger, error) {
	k := ledgerKey{storeID, productID}
	var out *entity.StockLedger
	err := base(*r).do(ctx, func(u *unit) error {
		if err := u.lock(ctx, ledgerLockKey(k)); err != nil {
			return err
		}
		l, ok := (&LedgerRepo{s: r.s, u: u}).lookup(k)
		if !ok {
			return domain.NotFound("ledger", storeID+"/"+productID)
		}
		out = &l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get lectura sin bloqueo de lo confirmado (o de lo pendiente si el repo está atado a una unidad).
func (r *LedgerRepo) Get(ctx context.Context, storeID, productID string) (*entity.StockLedger, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l, ok := r.lookup(ledgerKey{storeID, productID})
	if !ok {
		return nil, domain.NotFound("ledger", storeID+"/"+productID)
	}
	return &l, nil
}

// Create inserta el ledger con versión 1. ErrDuplicate si el par (tienda, producto) ya existe.
func (r *LedgerRepo) Create(ctx context.Context, l *entity.StockLedger) error {
	k := ledgerKey{l.StoreID, l.ProductID}
	return base(*r).do(ctx, func(u *unit) error {
		if err := u.lock(ctx, ledgerLockKey(k)); err != nil {
			return err
		}
		if _, ok := (&LedgerRepo{s: r.s, u: u}).lookup(k); ok {
			return domain.ErrDuplicate
		}
		if err := r.s.inject("ledger.create"); err != nil {
			return err
		}
		l.Version = 1
		u.ledgers[k] = *l
		return nil
	})
}

// Update reemplaza el ledger e incrementa su versión (l.Version queda actualizada).
func (r *LedgerRepo) Update(ctx context.Context, l *entity.StockLedger) error {
	k := ledgerKey{l.StoreID, l.ProductID}
	return base(*r).do(ctx, func(u *unit) error {
		if err := u.lock(ctx, ledgerLockKey(k)); err != nil {
			return err
		}
		prev, ok := (&LedgerRepo{s: r.s, u: u}).lookup(k)
		if !ok {
			return domain.NotFound("ledger", l.StoreID+"/"+l.ProductID)
		}
		if err := r.s.inject("ledger.update"); err != nil {
			return err
		}
		l.Version = prev.Version + 1
		u.ledgers[k] = *l
		return nil
	})
}

// ListByStore ledgers confirmados de la tienda ordenados por fecha de alta y producto.
func (r *LedgerRepo) ListByStore(ctx context.Context, storeID string, limit, offset int) ([]*entity.StockLedger, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	var all []entity.StockLedger
	for k, l := range r.s.ledgers {
		if k.store == storeID {
			all = append(all, l)
		}
	}
	r.s.mu.Unlock()
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ProductID < all[j].ProductID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	list := make([]*entity.StockLedger, 0, limit)
	for i := offset; i < len(all) && len(list) < limit; i++ {
		l := all[i]
		list = append(list, &l)
	}
	return list, nil
}
