package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// LedgerRepository puerto de persistencia del StockLedger (tienda, producto).
// Dentro de una transacción, GetForUpdate bloquea la fila hasta Commit o Rollback.
type LedgerRepository interface {
	// GetForUpdate bloquea la fila (SELECT FOR UPDATE). domain.ErrNotFound si no existe.
	GetForUpdate(ctx context.Context, storeID, productID string) (*entity.StockLedger, error)
	// Get lectura sin bloqueo. domain.ErrNotFound si no existe.
	Get(ctx context.Context, storeID, productID string) (*entity.StockLedger, error)
	Create(ctx context.Context, ledger *entity.StockLedger) error
	// Update persiste cantidad, último costo, precio y estado del ledger.
	Update(ctx context.Context, ledger *entity.StockLedger) error
	ListByStore(ctx context.Context, storeID string, limit, offset int) ([]*entity.StockLedger, error)
}
