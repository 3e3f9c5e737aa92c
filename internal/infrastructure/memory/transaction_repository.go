package memory

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.TransactionRepository = (*TransactionRepo)(nil)

// TransactionRepo implementación append-only en memoria.
type TransactionRepo base

// Create agrega la transacción a la unidad. La clave de idempotencia se bloquea y debe ser única.
func (r *TransactionRepo) Create(ctx context.Context, t *entity.Transaction) error {
	return base(*r).do(ctx, func(u *unit) error {
		if t.IdempotencyKey != "" {
			if err := u.lock(ctx, "idem:"+t.IdempotencyKey); err != nil {
				return err
			}
			prev, err := (&TransactionRepo{s: r.s, u: u}).GetByIdempotencyKey(ctx, t.IdempotencyKey)
			if err != nil {
				return err
			}
			if prev != nil {
				return domain.ErrDuplicate
			}
		}
		if err := r.s.inject("transaction.create"); err != nil {
			return err
		}
		u.txs = append(u.txs, *t)
		return nil
	})
}

// GetByID obtiene una transacción por ID (nil, nil si no existe).
func (r *TransactionRepo) GetByID(ctx context.Context, id string) (*entity.Transaction, error) {
	return r.find(ctx, func(t *entity.Transaction) bool { return t.ID == id }, func(s *Store) (int, bool) {
		i, ok := s.txByID[id]
		return i, ok
	})
}

// GetByIdempotencyKey busca por clave de idempotencia (nil, nil si no existe o la clave es vacía).
func (r *TransactionRepo) GetByIdempotencyKey(ctx context.Context, key string) (*entity.Transaction, error) {
	if key == "" {
		return nil, nil
	}
	return r.find(ctx, func(t *entity.Transaction) bool { return t.IdempotencyKey == key }, func(s *Store) (int, bool) {
		i, ok := s.txByKey[key]
		return i, ok
	})
}

func (r *TransactionRepo) find(ctx context.Context, match func(*entity.Transaction) bool, index func(*Store) (int, bool)) (*entity.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.u != nil {
		for i := range r.u.txs {
			if match(&r.u.txs[i]) {
				t := r.u.txs[i]
				return &t, nil
			}
		}
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i, ok := index(r.s)
	if !ok {
		return nil, nil
	}
	t := r.s.txs[i]
	return &t, nil
}

// List más recientes primero (orden de confirmación).
func (r *TransactionRepo) List(ctx context.Context, f repository.TransactionFilter) ([]*entity.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list := make([]*entity.Transaction, 0, f.Limit)
	skipped := 0
	for i := len(r.s.txs) - 1; i >= 0 && len(list) < f.Limit; i-- {
		t := r.s.txs[i]
		if t.StoreID != f.StoreID || (f.ProductID != "" && t.ProductID != f.ProductID) {
			continue
		}
		if f.From != nil && t.Timestamp.Before(*f.From) {
			continue
		}
		if f.To != nil && !t.Timestamp.Before(*f.To) {
			continue
		}
		if skipped < f.Offset {
			skipped++
			continue
		}
		list = append(list, &t)
	}
	return list, nil
}

// SumDeltas suma las cantidades con signo de las transacciones del ledger.
func (r *TransactionRepo) SumDeltas(ctx context.Context, storeID, productID string) (int64, error) {
	var sum int64
	err := r.each(ctx, storeID, productID, func(t *entity.Transaction) bool {
		sum += t.Quantity
		return true
	})
	return sum, err
}

// Exists indica si el ledger tiene al menos una transacción.
func (r *TransactionRepo) Exists(ctx context.Context, storeID, productID string) (bool, error) {
	found := false
	err := r.each(ctx, storeID, productID, func(*entity.Transaction) bool {
		found = true
		return false
	})
	return found, err
}

// each recorre las transacciones del ledger (confirmadas y pendientes de la unidad).
func (r *TransactionRepo) each(ctx context.Context, storeID, productID string, fn func(*entity.Transaction) bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.txs {
		t := &r.s.txs[i]
		if t.StoreID == storeID && t.ProductID == productID && !fn(t) {
			return nil
		}
	}
	if r.u != nil {
		for i := range r.u.txs {
			t := &r.u.txs[i]
			if t.StoreID == storeID && t.ProductID == productID && !fn(t) {
				return nil
			}
		}
	}
	return nil
}

// Totals agrega ventas y compras confirmadas de la tienda en [from, to).
func (r *TransactionRepo) Totals(ctx context.Context, storeID string, from, to time.Time) (repository.StoreTotals, error) {
	if err := ctx.Err(); err != nil {
		return repository.StoreTotals{}, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var totals repository.StoreTotals
	for i := range r.s.txs {
		t := &r.s.txs[i]
		if t.StoreID != storeID || t.Timestamp.Before(from) || !t.Timestamp.Before(to) {
			continue
		}
		totals.TransactionCount++
		switch t.Type {
		case entity.TransactionTypeSale:
			totals.Revenue = totals.Revenue.Add(t.TotalAmount)
			if t.Discount != nil {
				totals.Discounts = totals.Discounts.Add(*t.Discount)
			}
			if t.CostOfGoodsSold != nil {
				totals.CostOfGoodsSold = totals.CostOfGoodsSold.Add(*t.CostOfGoodsSold)
			}
			totals.UnitsSold += -t.Quantity
		case entity.TransactionTypePurchase:
			totals.PurchaseSpend = totals.PurchaseSpend.Add(t.TotalAmount)
			totals.UnitsPurchased += t.Quantity
		}
	}
	return totals, nil
}
