package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType tipo de movimiento registrado en el ledger.
type TransactionType string

// Tipos de transacción.
const (
	TransactionTypeSale       TransactionType = "SALE"       // venta
	TransactionTypePurchase   TransactionType = "PURCHASE"   // compra
	TransactionTypeAdjustment TransactionType = "ADJUSTMENT" // ajuste (+/-)
)

// ParseTransactionType valida el tipo recibido desde fuera del dominio.
func ParseTransactionType(s string) (TransactionType, bool) {
	switch t := TransactionType(s); t {
	case TransactionTypeSale, TransactionTypePurchase, TransactionTypeAdjustment:
		return t, true
	}
	return "", false
}

// Transaction entrada inmutable del ledger. Nunca se actualiza ni se borra;
// las correcciones son nuevos ADJUSTMENT.
type Transaction struct {
	ID              string
	StoreID         string
	ProductID       string
	Type            TransactionType
	Quantity        int64            // negativo en SALE, positivo en PURCHASE, con signo en ADJUSTMENT
	UnitCost        *decimal.Decimal // solo PURCHASE
	UnitPriceAtSale *decimal.Decimal // solo SALE, copiado del ledger al confirmar
	Discount        *decimal.Decimal // solo SALE
	TotalAmount     decimal.Decimal
	CostOfGoodsSold *decimal.Decimal // solo SALE
	QuantityAfter   int64            // cantidad del ledger justo después de esta entrada
	Notes           string
	IdempotencyKey  string
	RecordedBy      string
	Timestamp       time.Time
}

// Payload representación plana para auditoría.
func (t *Transaction) Payload() map[string]any {
	p := map[string]any{
		"id":             t.ID,
		"store_id":       t.StoreID,
		"product_id":     t.ProductID,
		"type":           string(t.Type),
		"quantity":       t.Quantity,
		"total_amount":   t.TotalAmount.String(),
		"quantity_after": t.QuantityAfter,
		"recorded_by":    t.RecordedBy,
		"timestamp":      t.Timestamp.UTC().Format(time.RFC3339Nano),
	}
	putDecimal(p, "unit_cost", t.UnitCost)
	putDecimal(p, "unit_price_at_sale", t.UnitPriceAtSale)
	putDecimal(p, "discount", t.Discount)
	putDecimal(p, "cost_of_goods_sold", t.CostOfGoodsSold)
	if t.Notes != "" {
		p["notes"] = t.Notes
	}
	if t.IdempotencyKey != "" {
		p["idempotency_key"] = t.IdempotencyKey
	}
	return p
}

func putDecimal(m map[string]any, key string, d *decimal.Decimal) {
	if d != nil {
		m[key] = d.String()
	}
}
