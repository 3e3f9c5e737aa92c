package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerStatus es el estado de vida de un StockLedger: Active o Deactivated.
// La interfaz está sellada; no hay estados intermedios.
type LedgerStatus interface {
	isLedgerStatus()
	IsActive() bool
}

// Active ledger vigente, acepta transacciones.
type Active struct{}

func (Active) isLedgerStatus() {}
func (Active) IsActive() bool  { return true }

// Deactivated ledger dado de baja (nunca se borra físicamente).
type Deactivated struct {
	At time.Time
	By string
}

func (Deactivated) isLedgerStatus() {}
func (Deactivated) IsActive() bool  { return false }

// StockLedger registro autoritativo de stock y precio para un par (tienda, producto).
// Solo el procesador de transacciones modifica Quantity y LastPurchasePrice.
type StockLedger struct {
	ID                string
	StoreID           string
	ProductID         string
	Quantity          int64           // siempre >= 0 tras un commit
	InitialQuantity   int64           // cantidad al vincular el producto a la tienda
	SellingPrice      decimal.Decimal // precio de venta, nunca lo envía el cliente
	LastPurchasePrice *decimal.Decimal
	ReorderPoint      int64 // informativo
	MaxQuantity       int64 // informativo
	Status            LedgerStatus
	Version           int64 // crece en cada Update confirmado; lo asigna el repositorio
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsActive indica si el ledger acepta nuevas transacciones.
func (l *StockLedger) IsActive() bool {
	return l.Status == nil || l.Status.IsActive()
}

// CostBasis devuelve el último precio de compra o cero si nunca hubo compra.
func (l *StockLedger) CostBasis() decimal.Decimal {
	if l.LastPurchasePrice == nil {
		return decimal.Zero
	}
	return *l.LastPurchasePrice
}

// Snapshot representación plana para auditoría y caché.
func (l *StockLedger) Snapshot() map[string]any {
	snap := map[string]any{
		"id":               l.ID,
		"store_id":         l.StoreID,
		"product_id":       l.ProductID,
		"quantity":         l.Quantity,
		"initial_quantity": l.InitialQuantity,
		"selling_price":    l.SellingPrice.String(),
		"reorder_point":    l.ReorderPoint,
		"max_quantity":     l.MaxQuantity,
		"active":           l.IsActive(),
	}
	if l.LastPurchasePrice != nil {
		snap["last_purchase_price"] = l.LastPurchasePrice.String()
	}
	if d, ok := l.Status.(Deactivated); ok {
		snap["deactivated_at"] = d.At.UTC().Format(time.RFC3339)
		snap["deactivated_by"] = d.By
	}
	return snap
}
