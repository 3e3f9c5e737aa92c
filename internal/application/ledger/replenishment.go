package ledger

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

const (
	replenishmentWindow = 90 * 24 * time.Hour
	scanPageSize        = 100
)

// ReplenishmentSuggestion producto en o bajo su punto de pedido con la cantidad sugerida.
type ReplenishmentSuggestion struct {
	ProductID          string
	CurrentQuantity    int64
	ReorderPoint       int64
	IdealQuantity      int64
	SuggestedOrderQty  int64
	UnitCost           decimal.Decimal // último precio de compra, cero si nunca hubo compra
	EstimatedOrderCost decimal.Decimal
	GrossMarginPct     decimal.Decimal
	UnitsSoldWindow    int64
	Priority           int
}

// ReplenishmentList sugerencias de reposición para la tienda. Es informativa: el
// procesador nunca bloquea ventas ni compras por el punto de pedido.
// Orden: mayor margen, luego mayor venta en 90 días, luego mayor déficit.
func (uc *LedgerUseCase) ReplenishmentList(ctx context.Context, storeID string) ([]ReplenishmentSuggestion, error) {
	if storeID == "" {
		return nil, domain.Invalid("store_id es obligatorio")
	}

	// 1. Ledgers activos en o bajo el punto de pedido
	var low []*entity.StockLedger
	for offset := 0; ; offset += scanPageSize {
		page, err := uc.ledgerRepo.ListByStore(ctx, storeID, scanPageSize, offset)
		if err != nil {
			return nil, err
		}
		for _, l := range page {
			if l.IsActive() && l.ReorderPoint > 0 && l.Quantity <= l.ReorderPoint {
				low = append(low, l)
			}
		}
		if len(page) < scanPageSize {
			break
		}
	}
	if len(low) == 0 {
		return []ReplenishmentSuggestion{}, nil
	}

	// 2. Unidades vendidas en la ventana
	from := uc.now().UTC().Add(-replenishmentWindow)
	sold, err := uc.unitsSoldSince(ctx, storeID, from)
	if err != nil {
		return nil, err
	}

	// 3. Sugerencias
	hundred := decimal.NewFromInt(100)
	suggestions := make([]ReplenishmentSuggestion, 0, len(low))
	for _, l := range low {
		ideal := l.MaxQuantity
		if ideal <= 0 {
			ideal = decimal.NewFromInt(l.ReorderPoint).Mul(decimal.NewFromFloat(1.5)).Ceil().IntPart()
		}
		suggested := ideal - l.Quantity
		if suggested < 0 {
			suggested = 0
		}
		cost := l.CostBasis()
		var margin decimal.Decimal
		if l.SellingPrice.IsPositive() {
			margin = l.SellingPrice.Sub(cost).Div(l.SellingPrice).Mul(hundred).Round(2)
		}
		suggestions = append(suggestions, ReplenishmentSuggestion{
			ProductID:          l.ProductID,
			CurrentQuantity:    l.Quantity,
			ReorderPoint:       l.ReorderPoint,
			IdealQuantity:      ideal,
			SuggestedOrderQty:  suggested,
			UnitCost:           cost,
			EstimatedOrderCost: cost.Mul(decimal.NewFromInt(suggested)),
			GrossMarginPct:     margin,
			UnitsSoldWindow:    sold[l.ProductID],
		})
	}

	// 4. Orden y prioridad (1 = más urgente)
	sort.SliceStable(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		if !a.GrossMarginPct.Equal(b.GrossMarginPct) {
			return a.GrossMarginPct.GreaterThan(b.GrossMarginPct)
		}
		if a.UnitsSoldWindow != b.UnitsSoldWindow {
			return a.UnitsSoldWindow > b.UnitsSoldWindow
		}
		return a.ReorderPoint-a.CurrentQuantity > b.ReorderPoint-b.CurrentQuantity
	})
	for i := range suggestions {
		suggestions[i].Priority = i + 1
	}
	return suggestions, nil
}

func (uc *LedgerUseCase) unitsSoldSince(ctx context.Context, storeID string, from time.Time) (map[string]int64, error) {
	sold := map[string]int64{}
	for offset := 0; ; offset += scanPageSize {
		page, err := uc.txRepo.List(ctx, repository.TransactionFilter{
			StoreID: storeID,
			From:    &from,
			Limit:   scanPageSize,
			Offset:  offset,
		})
		if err != nil {
			return nil, err
		}
		for _, t := range page {
			if t.Type == entity.TransactionTypeSale {
				sold[t.ProductID] += -t.Quantity
			}
		}
		if len(page) < scanPageSize {
			return sold, nil
		}
	}
}
