package stock

import (
	"math"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// ApplyDelta devuelve una copia del ledger con la cantidad ajustada por delta.
// Mutación solo en memoria; la persistencia la decide el llamador.
// Si el resultado fuera negativo retorna *domain.InsufficientStockError; si no
// cabe en int64 la solicitud es inválida.
func ApplyDelta(l entity.StockLedger, delta int64) (entity.StockLedger, error) {
	if delta == math.MinInt64 {
		return l, domain.Invalid("la cantidad %d está fuera de rango", delta)
	}
	if delta > 0 && l.Quantity > math.MaxInt64-delta {
		return l, domain.Invalid("la cantidad resultante desborda el máximo permitido (%d + %d)", l.Quantity, delta)
	}
	next := l.Quantity + delta
	if next < 0 {
		return l, &domain.InsufficientStockError{Available: l.Quantity, Required: -delta}
	}
	l.Quantity = next
	return l, nil
}
