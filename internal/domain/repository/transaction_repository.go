package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// TransactionFilter filtros para listar transacciones de una tienda.
type TransactionFilter struct {
	StoreID   string
	ProductID string // opcional
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

// StoreTotals agregados financieros de una tienda en un rango.
type StoreTotals struct {
	Revenue          decimal.Decimal
	Discounts        decimal.Decimal
	CostOfGoodsSold  decimal.Decimal
	PurchaseSpend    decimal.Decimal
	UnitsSold        int64
	UnitsPurchased   int64
	TransactionCount int64
}

// TransactionRepository puerto append-only del ledger: no hay Update ni Delete.
type TransactionRepository interface {
	Create(ctx context.Context, tx *entity.Transaction) error
	GetByID(ctx context.Context, id string) (*entity.Transaction, error)
	// GetByIdempotencyKey retorna nil, nil si la clave no existe.
	GetByIdempotencyKey(ctx context.Context, key string) (*entity.Transaction, error)
	List(ctx context.Context, filter TransactionFilter) ([]*entity.Transaction, error)
	// SumDeltas suma las cantidades con signo de todas las transacciones del ledger.
	SumDeltas(ctx context.Context, storeID, productID string) (int64, error)
	// Exists indica si el ledger tiene al menos una transacción.
	Exists(ctx context.Context, storeID, productID string) (bool, error)
	Totals(ctx context.Context, storeID string, from, to time.Time) (StoreTotals, error)
}
