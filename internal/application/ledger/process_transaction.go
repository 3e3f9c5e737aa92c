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
	"github.com/jhoicas/stock-ledger/internal/domain/stock"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// ProcessTransactionUseCase registra ventas, compras y ajustes contra el ledger
// con bloqueo de fila (SELECT FOR UPDATE) y Commit/Rollback atómico.
type ProcessTransactionUseCase struct {
	txRunner TxRunner
	cache    LedgerCache
	sink     audit.Sink
	log      *logger.Logger
	now      func() time.Time
}

// NewProcessTransactionUseCase construye el caso de uso.
func NewProcessTransactionUseCase(txRunner TxRunner, cache LedgerCache, sink audit.Sink, log *logger.Logger) *ProcessTransactionUseCase {
	return &ProcessTransactionUseCase{
		txRunner: txRunner,
		cache:    cache,
		sink:     sink,
		log:      log.Component("ledger"),
		now:      time.Now,
	}
}

// TransactionInput entrada para registrar una transacción.
// Quantity es positiva en SALE y PURCHASE; en ADJUSTMENT es el delta con signo.
// El precio de venta nunca viene del cliente.
type TransactionInput struct {
	StoreID        string
	ProductID      string
	Type           string
	Quantity       int64
	UnitCost       *decimal.Decimal
	Discount       *decimal.Decimal
	RecordedBy     string
	Notes          string
	IdempotencyKey string
}

// ProcessResult transacción registrada y cantidad del ledger tras aplicarla.
// Replayed indica que la clave de idempotencia ya existía y no hubo mutación.
type ProcessResult struct {
	Transaction *entity.Transaction
	NewQuantity int64
	Replayed    bool
}

// Process valida, bloquea el ledger, calcula montos y persiste ledger y transacción en una sola unidad de trabajo.
// Tras el commit invalida la caché y encola la auditoría; ninguno de los dos puede hacer fallar la solicitud.
func (uc *ProcessTransactionUseCase) Process(ctx context.Context, in TransactionInput) (*ProcessResult, error) {
	if strings.TrimSpace(in.StoreID) == "" || strings.TrimSpace(in.ProductID) == "" {
		return nil, domain.Invalid("store_id y product_id son obligatorios")
	}
	if strings.TrimSpace(in.RecordedBy) == "" {
		return nil, domain.Invalid("recorded_by es obligatorio")
	}
	mv, err := stock.NewMovement(stock.Request{
		Type:     in.Type,
		Quantity: in.Quantity,
		UnitCost: in.UnitCost,
		Discount: in.Discount,
	})
	if err != nil {
		return nil, err
	}

	var (
		result        *ProcessResult
		before, after entity.StockLedger
	)
	err = uc.txRunner.Run(ctx, func(ledgerRepo repository.LedgerRepository, txRepo repository.TransactionRepository) error {
		result = nil

		// Bloquea la fila del ledger; las solicitudes concurrentes sobre el mismo par se serializan aquí.
		l, err := ledgerRepo.GetForUpdate(ctx, in.StoreID, in.ProductID)
		if err != nil {
			return err
		}
		if !l.IsActive() {
			return domain.NotFound("ledger", in.StoreID+"/"+in.ProductID)
		}

		if in.IdempotencyKey != "" {
			prev, err := txRepo.GetByIdempotencyKey(ctx, in.IdempotencyKey)
			if err != nil {
				return err
			}
			if prev != nil {
				if !sameRequest(prev, in, mv) {
					return domain.Conflict("la clave de idempotencia '%s' ya se usó con otra solicitud", in.IdempotencyKey)
				}
				result = &ProcessResult{Transaction: prev, NewQuantity: prev.QuantityAfter, Replayed: true}
				return nil
			}
		}

		computed, err := mv.Compute(*l)
		if err != nil {
			return err
		}
		now := uc.now().UTC()
		updated := computed.Ledger
		updated.UpdatedAt = now
		if err := ledgerRepo.Update(ctx, &updated); err != nil {
			return err
		}

		t := &entity.Transaction{
			ID:              uuid.New().String(),
			StoreID:         in.StoreID,
			ProductID:       in.ProductID,
			Type:            mv.Type(),
			Quantity:        computed.Delta,
			UnitCost:        computed.UnitCost,
			UnitPriceAtSale: computed.UnitPriceAtSale,
			Discount:        computed.Discount,
			TotalAmount:     computed.TotalAmount,
			CostOfGoodsSold: computed.CostOfGoodsSold,
			QuantityAfter:   updated.Quantity,
			Notes:           strings.TrimSpace(in.Notes),
			IdempotencyKey:  in.IdempotencyKey,
			RecordedBy:      in.RecordedBy,
			Timestamp:       now,
		}
		if err := txRepo.Create(ctx, t); err != nil {
			if errors.Is(err, domain.ErrDuplicate) {
				return domain.Conflict("la clave de idempotencia '%s' ya existe", in.IdempotencyKey)
			}
			return err
		}

		before, after = *l, updated
		result = &ProcessResult{Transaction: t, NewQuantity: updated.Quantity}
		return nil
	})
	if err != nil {
		uc.logFailure(in, err)
		return nil, err
	}
	if result.Replayed {
		uc.log.Info().
			Str("transaction_id", result.Transaction.ID).
			Str("idempotency_key", in.IdempotencyKey).
			Msg("transacción repetida, se devuelve la original")
		return result, nil
	}

	t := result.Transaction
	uc.log.Info().
		Str("transaction_id", t.ID).
		Str("store_id", t.StoreID).
		Str("product_id", t.ProductID).
		Str("type", string(t.Type)).
		Int64("delta", t.Quantity).
		Int64("quantity_after", t.QuantityAfter).
		Str("total", t.TotalAmount.String()).
		Msg("transacción registrada")

	if err := uc.cache.Invalidate(ctx, &after); err != nil {
		uc.log.Warn().Err(err).Str("store_id", t.StoreID).Str("product_id", t.ProductID).Msg("no se pudo invalidar la caché del ledger")
	}
	uc.sink.Record(entity.AuditEvent{
		Action:     entity.AuditActionTransactionRecorded,
		EntityType: "stock_ledger",
		EntityID:   after.ID,
		ActorID:    t.RecordedBy,
		StoreID:    t.StoreID,
		Before:     before.Snapshot(),
		After:      after.Snapshot(),
		Metadata:   map[string]any{"source": "ledger", "transaction": t.Payload()},
	})
	return result, nil
}

func (uc *ProcessTransactionUseCase) logFailure(in TransactionInput, err error) {
	ev := uc.log.Warn()
	if kind := domain.Kind(err); kind == "STORAGE_FAILURE" || kind == "INTERNAL" {
		ev = uc.log.Error()
	}
	ev.Err(err).
		Str("kind", domain.Kind(err)).
		Str("store_id", in.StoreID).
		Str("product_id", in.ProductID).
		Str("type", in.Type).
		Int64("quantity", in.Quantity).
		Msg("transacción rechazada")
}

// sameRequest compara la transacción guardada con la solicitud repetida.
func sameRequest(prev *entity.Transaction, in TransactionInput, mv stock.Movement) bool {
	if prev.StoreID != in.StoreID || prev.ProductID != in.ProductID || prev.Type != mv.Type() {
		return false
	}
	switch m := mv.(type) {
	case stock.Sale:
		return prev.Quantity == -m.Quantity && prev.Discount != nil && prev.Discount.Equal(m.Discount)
	case stock.Purchase:
		return prev.Quantity == m.Quantity && prev.UnitCost != nil && prev.UnitCost.Equal(m.UnitCost)
	case stock.Adjustment:
		return prev.Quantity == m.Delta
	}
	return false
}
