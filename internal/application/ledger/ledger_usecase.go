package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/application/audit"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// Deps dependencias de LedgerUseCase. Los repositorios sueltos se usan solo para lecturas fuera de tx.
type Deps struct {
	TxRunner    TxRunner
	LedgerRepo  repository.LedgerRepository
	TxRepo      repository.TransactionRepository
	ProductRepo repository.ProductRepository
	StoreRepo   repository.StoreRepository
	Cache       LedgerCache
	Sink        audit.Sink
	Logger      *logger.Logger
}

// LedgerUseCase consultas y ciclo de vida del ledger (vincular, dar de baja, conciliar, resumir).
type LedgerUseCase struct {
	txRunner    TxRunner
	ledgerRepo  repository.LedgerRepository
	txRepo      repository.TransactionRepository
	productRepo repository.ProductRepository
	storeRepo   repository.StoreRepository
	cache       LedgerCache
	sink        audit.Sink
	log         *logger.Logger
	now         func() time.Time
}

// NewLedgerUseCase construye el caso de uso.
func NewLedgerUseCase(d Deps) *LedgerUseCase {
	return &LedgerUseCase{
		txRunner:    d.TxRunner,
		ledgerRepo:  d.LedgerRepo,
		txRepo:      d.TxRepo,
		productRepo: d.ProductRepo,
		storeRepo:   d.StoreRepo,
		cache:       d.Cache,
		sink:        d.Sink,
		log:         d.Logger.Component("ledger"),
		now:         time.Now,
	}
}

// GetLedger lectura con caché (read-through). Un error de caché nunca falla la lectura.
func (uc *LedgerUseCase) GetLedger(ctx context.Context, storeID, productID string) (*entity.StockLedger, error) {
	if storeID == "" || productID == "" {
		return nil, domain.Invalid("store_id y product_id son obligatorios")
	}
	if l, ok, err := uc.cache.Get(ctx, storeID, productID); err != nil {
		uc.log.Warn().Err(err).Str("store_id", storeID).Str("product_id", productID).Msg("error leyendo caché de ledger")
	} else if ok {
		return l, nil
	}
	l, err := uc.ledgerRepo.Get(ctx, storeID, productID)
	if err != nil {
		return nil, err
	}
	if err := uc.cache.Set(ctx, l); err != nil {
		uc.log.Warn().Err(err).Str("store_id", storeID).Str("product_id", productID).Msg("error guardando ledger en caché")
	}
	return l, nil
}

// ListLedgers ledgers de una tienda, paginados.
func (uc *LedgerUseCase) ListLedgers(ctx context.Context, storeID string, limit, offset int) ([]*entity.StockLedger, error) {
	if storeID == "" {
		return nil, domain.Invalid("store_id es obligatorio")
	}
	limit, offset = normalizePage(limit, offset)
	return uc.ledgerRepo.ListByStore(ctx, storeID, limit, offset)
}

// LinkInput datos para vincular un producto a una tienda.
type LinkInput struct {
	StoreID         string
	ProductID       string
	SellingPrice    decimal.Decimal
	InitialQuantity int64
	ReorderPoint    int64
	MaxQuantity     int64
	LinkedBy        string
}

// LinkProduct crea el ledger (tienda, producto). Un ledger existente, activo o no, es Conflict.
func (uc *LedgerUseCase) LinkProduct(ctx context.Context, in LinkInput) (*entity.StockLedger, error) {
	if in.StoreID == "" || in.ProductID == "" {
		return nil, domain.Invalid("store_id y product_id son obligatorios")
	}
	if !in.SellingPrice.IsPositive() {
		return nil, domain.Invalid("selling_price debe ser mayor que cero")
	}
	if in.InitialQuantity < 0 {
		return nil, domain.Invalid("las cantidades no pueden ser negativas")
	}
	if err := validateStockLevels(in.ReorderPoint, in.MaxQuantity); err != nil {
		return nil, err
	}

	ok, err := uc.storeRepo.Exists(ctx, in.StoreID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.NotFound("store", in.StoreID)
	}
	product, err := uc.productRepo.GetByID(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.NotFound("product", in.ProductID)
	}
	if product.StoreID != in.StoreID {
		return nil, domain.Invalid("el producto no pertenece a la tienda")
	}

	now := uc.now().UTC()
	l := &entity.StockLedger{
		ID:              uuid.New().String(),
		StoreID:         in.StoreID,
		ProductID:       in.ProductID,
		Quantity:        in.InitialQuantity,
		InitialQuantity: in.InitialQuantity,
		SellingPrice:    in.SellingPrice,
		ReorderPoint:    in.ReorderPoint,
		MaxQuantity:     in.MaxQuantity,
		Status:          entity.Active{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	err = uc.txRunner.Run(ctx, func(ledgerRepo repository.LedgerRepository, _ repository.TransactionRepository) error {
		return ledgerRepo.Create(ctx, l)
	})
	if errors.Is(err, domain.ErrDuplicate) {
		return nil, domain.Conflict("el producto ya está vinculado a la tienda")
	}
	if err != nil {
		return nil, err
	}

	uc.log.Info().Str("ledger_id", l.ID).Str("store_id", l.StoreID).Str("product_id", l.ProductID).Msg("producto vinculado a la tienda")
	uc.sink.Record(entity.AuditEvent{
		Action:     entity.AuditActionLedgerLinked,
		EntityType: "stock_ledger",
		EntityID:   l.ID,
		ActorID:    in.LinkedBy,
		StoreID:    l.StoreID,
		After:      l.Snapshot(),
		Metadata:   map[string]any{"source": "ledger"},
	})
	return l, nil
}

// validateStockLevels niveles informativos: no negativos y máximo >= punto de pedido (0 = sin máximo).
func validateStockLevels(reorderPoint, maxQuantity int64) error {
	if reorderPoint < 0 || maxQuantity < 0 {
		return domain.Invalid("las cantidades no pueden ser negativas")
	}
	if maxQuantity > 0 && maxQuantity < reorderPoint {
		return domain.Invalid("max_quantity no puede ser menor que reorder_point")
	}
	return nil
}

// UpdateInput cambios a los datos comerciales de un ledger. Campos nil no se tocan.
type UpdateInput struct {
	StoreID      string
	ProductID    string
	SellingPrice *decimal.Decimal
	ReorderPoint *int64
	MaxQuantity  *int64
	UpdatedBy    string
}

// UpdateLedger cambia precio de venta, punto de pedido y cantidad máxima.
// La cantidad y el costo de compra solo los mueve el procesador de transacciones.
// Las ventas ya registradas conservan el precio con que se hicieron.
func (uc *LedgerUseCase) UpdateLedger(ctx context.Context, in UpdateInput) (*entity.StockLedger, error) {
	if in.StoreID == "" || in.ProductID == "" || strings.TrimSpace(in.UpdatedBy) == "" {
		return nil, domain.Invalid("store_id, product_id y usuario son obligatorios")
	}
	if in.SellingPrice == nil && in.ReorderPoint == nil && in.MaxQuantity == nil {
		return nil, domain.Invalid("no hay cambios que aplicar")
	}
	if in.SellingPrice != nil && !in.SellingPrice.IsPositive() {
		return nil, domain.Invalid("selling_price debe ser mayor que cero")
	}

	var before, after entity.StockLedger
	err := uc.txRunner.Run(ctx, func(ledgerRepo repository.LedgerRepository, _ repository.TransactionRepository) error {
		l, err := ledgerRepo.GetForUpdate(ctx, in.StoreID, in.ProductID)
		if err != nil {
			return err
		}
		if !l.IsActive() {
			return domain.NotFound("ledger", in.StoreID+"/"+in.ProductID)
		}
		before = *l
		if in.SellingPrice != nil {
			l.SellingPrice = *in.SellingPrice
		}
		if in.ReorderPoint != nil {
			l.ReorderPoint = *in.ReorderPoint
		}
		if in.MaxQuantity != nil {
			l.MaxQuantity = *in.MaxQuantity
		}
		if err := validateStockLevels(l.ReorderPoint, l.MaxQuantity); err != nil {
			return err
		}
		l.UpdatedAt = uc.now().UTC()
		if err := ledgerRepo.Update(ctx, l); err != nil {
			return err
		}
		after = *l
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := uc.cache.Invalidate(ctx, &after); err != nil {
		uc.log.Warn().Err(err).Str("store_id", in.StoreID).Str("product_id", in.ProductID).Msg("no se pudo invalidar la caché del ledger")
	}
	uc.log.Info().
		Str("ledger_id", after.ID).
		Str("selling_price", after.SellingPrice.String()).
		Int64("reorder_point", after.ReorderPoint).
		Int64("max_quantity", after.MaxQuantity).
		Str("by", in.UpdatedBy).
		Msg("ledger actualizado")
	uc.sink.Record(entity.AuditEvent{
		Action:     entity.AuditActionLedgerUpdated,
		EntityType: "stock_ledger",
		EntityID:   after.ID,
		ActorID:    in.UpdatedBy,
		StoreID:    in.StoreID,
		Before:     before.Snapshot(),
		After:      after.Snapshot(),
		Metadata:   map[string]any{"source": "ledger"},
	})
	return &after, nil
}

// DeactivateLedger da de baja el ledger. Solo se permite con cantidad cero y
// sin historial de transacciones; el ledger nunca se borra.
func (uc *LedgerUseCase) DeactivateLedger(ctx context.Context, storeID, productID, by string) (*entity.StockLedger, error) {
	if storeID == "" || productID == "" || strings.TrimSpace(by) == "" {
		return nil, domain.Invalid("store_id, product_id y usuario son obligatorios")
	}
	var before, after entity.StockLedger
	err := uc.txRunner.Run(ctx, func(ledgerRepo repository.LedgerRepository, txRepo repository.TransactionRepository) error {
		l, err := ledgerRepo.GetForUpdate(ctx, storeID, productID)
		if err != nil {
			return err
		}
		if !l.IsActive() {
			return domain.NotFound("ledger", storeID+"/"+productID)
		}
		if l.Quantity > 0 {
			return domain.Conflict("el ledger aún tiene %d unidades; ajuste a cero antes de dar de baja", l.Quantity)
		}
		used, err := txRepo.Exists(ctx, storeID, productID)
		if err != nil {
			return err
		}
		if used {
			return domain.Conflict("el producto tiene transacciones registradas y no se puede desvincular")
		}
		before = *l
		now := uc.now().UTC()
		l.Status = entity.Deactivated{At: now, By: by}
		l.UpdatedAt = now
		if err := ledgerRepo.Update(ctx, l); err != nil {
			return err
		}
		after = *l
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := uc.cache.Invalidate(ctx, &after); err != nil {
		uc.log.Warn().Err(err).Str("store_id", storeID).Str("product_id", productID).Msg("no se pudo invalidar la caché del ledger")
	}
	uc.log.Info().Str("ledger_id", after.ID).Str("by", by).Msg("ledger dado de baja")
	uc.sink.Record(entity.AuditEvent{
		Action:     entity.AuditActionLedgerDeactivated,
		EntityType: "stock_ledger",
		EntityID:   after.ID,
		ActorID:    by,
		StoreID:    storeID,
		Before:     before.Snapshot(),
		After:      after.Snapshot(),
		Metadata:   map[string]any{"source": "ledger"},
	})
	return &after, nil
}

// ReconcileReport resultado de conciliar la cantidad del ledger con sus transacciones.
type ReconcileReport struct {
	StoreID         string
	ProductID       string
	InitialQuantity int64
	CurrentQuantity int64
	SumDeltas       int64
	Consistent      bool
}

// Reconcile verifica Quantity == InitialQuantity + Σ deltas. Toma el bloqueo del
// ledger para leer cantidad y suma en el mismo instante lógico.
func (uc *LedgerUseCase) Reconcile(ctx context.Context, storeID, productID string) (*ReconcileReport, error) {
	if storeID == "" || productID == "" {
		return nil, domain.Invalid("store_id y product_id son obligatorios")
	}
	var report *ReconcileReport
	err := uc.txRunner.Run(ctx, func(ledgerRepo repository.LedgerRepository, txRepo repository.TransactionRepository) error {
		l, err := ledgerRepo.GetForUpdate(ctx, storeID, productID)
		if err != nil {
			return err
		}
		sum, err := txRepo.SumDeltas(ctx, storeID, productID)
		if err != nil {
			return err
		}
		report = &ReconcileReport{
			StoreID:         storeID,
			ProductID:       productID,
			InitialQuantity: l.InitialQuantity,
			CurrentQuantity: l.Quantity,
			SumDeltas:       sum,
			Consistent:      l.Quantity == l.InitialQuantity+sum,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !report.Consistent {
		uc.log.Error().
			Str("store_id", storeID).
			Str("product_id", productID).
			Int64("initial", report.InitialQuantity).
			Int64("current", report.CurrentQuantity).
			Int64("sum_deltas", report.SumDeltas).
			Msg("ledger inconsistente con sus transacciones")
	}
	return report, nil
}

// ListTransactions historial de transacciones de una tienda (opcionalmente de un producto), más recientes primero.
func (uc *LedgerUseCase) ListTransactions(ctx context.Context, filter repository.TransactionFilter) ([]*entity.Transaction, error) {
	if filter.StoreID == "" {
		return nil, domain.Invalid("store_id es obligatorio")
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, domain.Invalid("el rango de fechas es inválido")
	}
	filter.Limit, filter.Offset = normalizePage(filter.Limit, filter.Offset)
	return uc.txRepo.List(ctx, filter)
}

// GetTransaction una transacción por ID, restringida a la tienda del llamador.
func (uc *LedgerUseCase) GetTransaction(ctx context.Context, storeID, id string) (*entity.Transaction, error) {
	t, err := uc.txRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil || t.StoreID != storeID {
		return nil, domain.NotFound("transaction", id)
	}
	return t, nil
}

// StoreSummary totales financieros de la tienda en [from, to).
type StoreSummary struct {
	StoreID          string
	From             time.Time
	To               time.Time
	Revenue          decimal.Decimal
	Discounts        decimal.Decimal
	CostOfGoodsSold  decimal.Decimal
	GrossProfit      decimal.Decimal
	PurchaseSpend    decimal.Decimal
	UnitsSold        int64
	UnitsPurchased   int64
	TransactionCount int64
}

// StoreSummary agrega ventas, costos y compras del rango. to cero = ahora; from cero = sin límite inferior.
func (uc *LedgerUseCase) StoreSummary(ctx context.Context, storeID string, from, to time.Time) (*StoreSummary, error) {
	if storeID == "" {
		return nil, domain.Invalid("store_id es obligatorio")
	}
	if to.IsZero() {
		to = uc.now().UTC()
	}
	if to.Before(from) {
		return nil, domain.Invalid("el rango de fechas es inválido")
	}
	totals, err := uc.txRepo.Totals(ctx, storeID, from, to)
	if err != nil {
		return nil, err
	}
	return &StoreSummary{
		StoreID:          storeID,
		From:             from,
		To:               to,
		Revenue:          totals.Revenue,
		Discounts:        totals.Discounts,
		CostOfGoodsSold:  totals.CostOfGoodsSold,
		GrossProfit:      totals.Revenue.Sub(totals.CostOfGoodsSold),
		PurchaseSpend:    totals.PurchaseSpend,
		UnitsSold:        totals.UnitsSold,
		UnitsPurchased:   totals.UnitsPurchased,
		TransactionCount: totals.TransactionCount,
	}, nil
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
