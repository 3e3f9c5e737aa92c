package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// RecordTransactionRequest body para POST /api/transactions.
// No existe campo de precio de venta: lo fija el ledger.
type RecordTransactionRequest struct {
	ProductID      string           `json:"product_id"`
	Type           string           `json:"type"` // SALE | PURCHASE | ADJUSTMENT
	Quantity       int64            `json:"quantity"`
	UnitCost       *decimal.Decimal `json:"unit_cost,omitempty"`
	Discount       *decimal.Decimal `json:"discount,omitempty"`
	Notes          string           `json:"notes,omitempty"`
	IdempotencyKey string           `json:"idempotency_key,omitempty"`
}

// TransactionResponse salida de una transacción.
type TransactionResponse struct {
	ID              string           `json:"id"`
	StoreID         string           `json:"store_id"`
	ProductID       string           `json:"product_id"`
	Type            string           `json:"type"`
	Quantity        int64            `json:"quantity"`
	UnitCost        *decimal.Decimal `json:"unit_cost,omitempty"`
	UnitPriceAtSale *decimal.Decimal `json:"unit_price_at_sale,omitempty"`
	Discount        *decimal.Decimal `json:"discount,omitempty"`
	TotalAmount     decimal.Decimal  `json:"total_amount"`
	CostOfGoodsSold *decimal.Decimal `json:"cost_of_goods_sold,omitempty"`
	QuantityAfter   int64            `json:"quantity_after"`
	Notes           string           `json:"notes,omitempty"`
	IdempotencyKey  string           `json:"idempotency_key,omitempty"`
	RecordedBy      string           `json:"recorded_by"`
	Timestamp       time.Time        `json:"timestamp"`
}

// RecordTransactionResponse salida de POST /api/transactions.
type RecordTransactionResponse struct {
	Transaction TransactionResponse `json:"transaction"`
	NewQuantity int64               `json:"new_quantity"`
	Replayed    bool                `json:"replayed"`
}

// LinkProductRequest body para POST /api/ledgers.
type LinkProductRequest struct {
	ProductID       string          `json:"product_id"`
	SellingPrice    decimal.Decimal `json:"selling_price"`
	InitialQuantity int64           `json:"initial_quantity"`
	ReorderPoint    int64           `json:"reorder_point"`
	MaxQuantity     int64           `json:"max_quantity"`
}

// UpdateLedgerRequest body para PATCH /api/ledgers/:productId. Campos ausentes no cambian.
type UpdateLedgerRequest struct {
	SellingPrice *decimal.Decimal `json:"selling_price,omitempty"`
	ReorderPoint *int64           `json:"reorder_point,omitempty"`
	MaxQuantity  *int64           `json:"max_quantity,omitempty"`
}

// LedgerResponse salida de un ledger.
type LedgerResponse struct {
	ID                string           `json:"id"`
	StoreID           string           `json:"store_id"`
	ProductID         string           `json:"product_id"`
	Quantity          int64            `json:"quantity"`
	InitialQuantity   int64            `json:"initial_quantity"`
	SellingPrice      decimal.Decimal  `json:"selling_price"`
	LastPurchasePrice *decimal.Decimal `json:"last_purchase_price,omitempty"`
	ReorderPoint      int64            `json:"reorder_point"`
	MaxQuantity       int64            `json:"max_quantity"`
	BelowReorderPoint bool             `json:"below_reorder_point"`
	Active            bool             `json:"active"`
	DeactivatedAt     *time.Time       `json:"deactivated_at,omitempty"`
	DeactivatedBy     string           `json:"deactivated_by,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// ReconcileResponse salida de la conciliación de un ledger.
type ReconcileResponse struct {
	StoreID         string `json:"store_id"`
	ProductID       string `json:"product_id"`
	InitialQuantity int64  `json:"initial_quantity"`
	CurrentQuantity int64  `json:"current_quantity"`
	SumDeltas       int64  `json:"sum_deltas"`
	Consistent      bool   `json:"consistent"`
}

// StoreSummaryResponse totales financieros de una tienda.
type StoreSummaryResponse struct {
	StoreID          string          `json:"store_id"`
	From             time.Time       `json:"from"`
	To               time.Time       `json:"to"`
	Revenue          decimal.Decimal `json:"revenue"`
	Discounts        decimal.Decimal `json:"discounts"`
	CostOfGoodsSold  decimal.Decimal `json:"cost_of_goods_sold"`
	GrossProfit      decimal.Decimal `json:"gross_profit"`
	PurchaseSpend    decimal.Decimal `json:"purchase_spend"`
	UnitsSold        int64           `json:"units_sold"`
	UnitsPurchased   int64           `json:"units_purchased"`
	TransactionCount int64           `json:"transaction_count"`
}

// ToTransactionResponse mapea la entidad.
func ToTransactionResponse(t *entity.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:              t.ID,
		StoreID:         t.StoreID,
		ProductID:       t.ProductID,
		Type:            string(t.Type),
		Quantity:        t.Quantity,
		UnitCost:        t.UnitCost,
		UnitPriceAtSale: t.UnitPriceAtSale,
		Discount:        t.Discount,
		TotalAmount:     t.TotalAmount,
		CostOfGoodsSold: t.CostOfGoodsSold,
		QuantityAfter:   t.QuantityAfter,
		Notes:           t.Notes,
		IdempotencyKey:  t.IdempotencyKey,
		RecordedBy:      t.RecordedBy,
		Timestamp:       t.Timestamp,
	}
}

// ToLedgerResponse mapea la entidad.
func ToLedgerResponse(l *entity.StockLedger) LedgerResponse {
	r := LedgerResponse{
		ID:                l.ID,
		StoreID:           l.StoreID,
		ProductID:         l.ProductID,
		Quantity:          l.Quantity,
		InitialQuantity:   l.InitialQuantity,
		SellingPrice:      l.SellingPrice,
		LastPurchasePrice: l.LastPurchasePrice,
		ReorderPoint:      l.ReorderPoint,
		MaxQuantity:       l.MaxQuantity,
		BelowReorderPoint: l.Quantity <= l.ReorderPoint,
		Active:            l.IsActive(),
		CreatedAt:         l.CreatedAt,
		UpdatedAt:         l.UpdatedAt,
	}
	if d, ok := l.Status.(entity.Deactivated); ok {
		at := d.At
		r.DeactivatedAt = &at
		r.DeactivatedBy = d.By
	}
	return r
}

// ReplenishmentSuggestionResponse sugerencia de reposición de un producto.
type ReplenishmentSuggestionResponse struct {
	ProductID          string          `json:"product_id"`
	CurrentQuantity    int64           `json:"current_quantity"`
	ReorderPoint       int64           `json:"reorder_point"`
	IdealQuantity      int64           `json:"ideal_quantity"`
	SuggestedOrderQty  int64           `json:"suggested_order_qty"`
	UnitCost           decimal.Decimal `json:"unit_cost"`
	EstimatedOrderCost decimal.Decimal `json:"estimated_order_cost"`
	GrossMarginPct     decimal.Decimal `json:"gross_margin_pct"`
	UnitsSoldLast90    int64           `json:"units_sold_last_90_days"`
	Priority           int             `json:"priority"`
}
