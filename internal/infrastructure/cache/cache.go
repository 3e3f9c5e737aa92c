package cache

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

var _ ledger.LedgerCache = NoopLedgerCache{}

// NoopLedgerCache caché deshabilitada: siempre miss.
type NoopLedgerCache struct{}

// Get siempre es miss.
func (NoopLedgerCache) Get(_ context.Context, _, _ string) (*entity.StockLedger, bool, error) {
	return nil, false, nil
}

// Set no guarda nada.
func (NoopLedgerCache) Set(_ context.Context, _ *entity.StockLedger) error {
	return nil
}

// Invalidate no hace nada.
func (NoopLedgerCache) Invalidate(_ context.Context, _ *entity.StockLedger) error {
	return nil
}
