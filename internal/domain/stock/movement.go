package stock

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// Movement variante sellada de movimiento de stock: Sale, Purchase o Adjustment.
// Cada variante calcula sus campos contra el ledger bloqueado y devuelve un Computed uniforme.
type Movement interface {
	Type() entity.TransactionType
	Compute(l entity.StockLedger) (Computed, error)
	sealed()
}

// Computed resultado uniforme de aplicar un movimiento a un ledger.
type Computed struct {
	Delta             int64
	UnitCost          *decimal.Decimal
	UnitPriceAtSale   *decimal.Decimal
	Discount          *decimal.Decimal
	TotalAmount       decimal.Decimal
	CostOfGoodsSold   *decimal.Decimal
	LastPurchasePrice *decimal.Decimal // no nil solo si el movimiento actualiza el costo base
	Ledger            entity.StockLedger
}

// Sale venta: descuenta stock al precio vigente del ledger.
type Sale struct {
	Quantity int64
	Discount decimal.Decimal
}

// Purchase compra: suma stock y fija el último precio de compra.
type Purchase struct {
	Quantity int64
	UnitCost decimal.Decimal
}

// Adjustment ajuste con signo (conteo físico, merma, corrección).
type Adjustment struct {
	Delta int64
}

func (Sale) sealed()       {}
func (Purchase) sealed()   {}
func (Adjustment) sealed() {}

func (Sale) Type() entity.TransactionType       { return entity.TransactionTypeSale }
func (Purchase) Type() entity.TransactionType   { return entity.TransactionTypePurchase }
func (Adjustment) Type() entity.TransactionType { return entity.TransactionTypeAdjustment }

// Compute SALE: total = q * precio - descuento; COGS = q * último costo de compra (o 0).
func (s Sale) Compute(l entity.StockLedger) (Computed, error) {
	if l.Quantity < s.Quantity {
		return Computed{}, &domain.InsufficientStockError{Available: l.Quantity, Required: s.Quantity}
	}
	qty := decimal.NewFromInt(s.Quantity)
	price := l.SellingPrice
	gross := qty.Mul(price)
	if s.Discount.GreaterThan(gross) {
		return Computed{}, domain.Invalid("el descuento %s supera el total bruto %s", s.Discount, gross)
	}
	updated, err := ApplyDelta(l, -s.Quantity)
	if err != nil {
		return Computed{}, err
	}
	discount := s.Discount
	cogs := qty.Mul(l.CostBasis())
	return Computed{
		Delta:           -s.Quantity,
		UnitPriceAtSale: &price,
		Discount:        &discount,
		TotalAmount:     gross.Sub(discount),
		CostOfGoodsSold: &cogs,
		Ledger:          updated,
	}, nil
}

// Compute PURCHASE: total = q * costo unitario; actualiza LastPurchasePrice.
func (p Purchase) Compute(l entity.StockLedger) (Computed, error) {
	updated, err := ApplyDelta(l, p.Quantity)
	if err != nil {
		return Computed{}, err
	}
	cost := p.UnitCost
	updated.LastPurchasePrice = &cost
	return Computed{
		Delta:             p.Quantity,
		UnitCost:          &cost,
		TotalAmount:       decimal.NewFromInt(p.Quantity).Mul(cost),
		LastPurchasePrice: &cost,
		Ledger:            updated,
	}, nil
}

// Compute ADJUSTMENT: solo cantidad, montos en cero.
func (a Adjustment) Compute(l entity.StockLedger) (Computed, error) {
	updated, err := ApplyDelta(l, a.Delta)
	if err != nil {
		return Computed{}, err
	}
	return Computed{
		Delta:       a.Delta,
		TotalAmount: decimal.Zero,
		Ledger:      updated,
	}, nil
}

// Request datos crudos de un movimiento tal como llegan del llamador.
type Request struct {
	Type     string
	Quantity int64
	UnitCost *decimal.Decimal
	Discount *decimal.Decimal
}

// NewMovement valida los campos permitidos por tipo y construye la variante.
// El precio de venta nunca se acepta del cliente: un SALE con UnitCost se rechaza.
func NewMovement(r Request) (Movement, error) {
	t, ok := entity.ParseTransactionType(r.Type)
	if !ok {
		return nil, domain.Invalid("tipo de transacción desconocido '%s'", r.Type)
	}
	switch t {
	case entity.TransactionTypePurchase:
		if r.Quantity <= 0 {
			return nil, domain.Invalid("la cantidad de una compra debe ser positiva")
		}
		if r.UnitCost == nil {
			return nil, domain.Invalid("unit_cost es obligatorio en compras")
		}
		if r.UnitCost.IsNegative() {
			return nil, domain.Invalid("unit_cost no puede ser negativo")
		}
		if r.Discount != nil {
			return nil, domain.Invalid("discount solo aplica a ventas")
		}
		return Purchase{Quantity: r.Quantity, UnitCost: *r.UnitCost}, nil
	case entity.TransactionTypeSale:
		if r.Quantity <= 0 {
			return nil, domain.Invalid("la cantidad de una venta debe ser positiva")
		}
		if r.UnitCost != nil {
			return nil, domain.Invalid("el precio de venta lo fija el ledger; unit_cost no se acepta en ventas")
		}
		discount := decimal.Zero
		if r.Discount != nil {
			if r.Discount.IsNegative() {
				return nil, domain.Invalid("discount no puede ser negativo")
			}
			discount = *r.Discount
		}
		return Sale{Quantity: r.Quantity, Discount: discount}, nil
	default:
		if r.Quantity == 0 {
			return nil, domain.Invalid("un ajuste requiere una cantidad distinta de cero")
		}
		if r.Quantity == math.MinInt64 {
			return nil, domain.Invalid("la cantidad del ajuste está fuera de rango")
		}
		if r.UnitCost != nil || r.Discount != nil {
			return nil, domain.Invalid("un ajuste no lleva montos")
		}
		return Adjustment{Delta: r.Quantity}, nil
	}
}
