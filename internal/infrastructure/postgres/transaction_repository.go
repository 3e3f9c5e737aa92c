package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.TransactionRepository = (*TransactionRepo)(nil)

// TransactionRepo ledger_transactions es append-only: este adaptador solo inserta y lee.
type TransactionRepo struct {
	q Querier
}

// NewTransactionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewTransactionRepository(q Querier) *TransactionRepo {
	return &TransactionRepo{q: q}
}

const transactionColumns = `id, store_id, product_id, type, quantity, unit_cost, unit_price_at_sale, discount,
	total_amount, cost_of_goods_sold, quantity_after, notes, COALESCE(idempotency_key, ''), recorded_by, recorded_at`

func scanTransaction(row scanner) (*entity.Transaction, error) {
	var (
		t   entity.Transaction
		typ string
	)
	err := row.Scan(
		&t.ID, &t.StoreID, &t.ProductID, &typ, &t.Quantity, &t.UnitCost, &t.UnitPriceAtSale, &t.Discount,
		&t.TotalAmount, &t.CostOfGoodsSold, &t.QuantityAfter, &t.Notes, &t.IdempotencyKey, &t.RecordedBy, &t.Timestamp,
	)
	if err != nil {
		return nil, err
	}
	t.Type = entity.TransactionType(typ)
	return &t, nil
}

// Create inserta la transacción. ErrDuplicate si la clave de idempotencia ya existe.
func (r *TransactionRepo) Create(ctx context.Context, t *entity.Transaction) error {
	query := `
		INSERT INTO ledger_transactions (id, store_id, product_id, type, quantity, unit_cost, unit_price_at_sale,
			discount, total_amount, cost_of_goods_sold, quantity_after, notes, idempotency_key, recorded_by, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := r.q.Exec(ctx, query,
		t.ID, t.StoreID, t.ProductID, string(t.Type), t.Quantity, t.UnitCost, t.UnitPriceAtSale,
		t.Discount, t.TotalAmount, t.CostOfGoodsSold, t.QuantityAfter, t.Notes, nullString(t.IdempotencyKey),
		t.RecordedBy, t.Timestamp,
	)
	return mapError("insert transaction", err)
}

// GetByID obtiene una transacción por ID (nil, nil si no existe).
func (r *TransactionRepo) GetByID(ctx context.Context, id string) (*entity.Transaction, error) {
	return r.getOne(ctx, "id", id)
}

// GetByIdempotencyKey busca por clave de idempotencia (nil, nil si no existe o la clave es vacía).
func (r *TransactionRepo) GetByIdempotencyKey(ctx context.Context, key string) (*entity.Transaction, error) {
	if key == "" {
		return nil, nil
	}
	return r.getOne(ctx, "idempotency_key", key)
}

func (r *TransactionRepo) getOne(ctx context.Context, column, value string) (*entity.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM ledger_transactions WHERE ` + column + ` = $1`
	t, err := scanTransaction(r.q.QueryRow(ctx, query, value))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get transaction", err)
	}
	return t, nil
}

// List filtra por tienda, producto y rango [From, To); más recientes primero.
func (r *TransactionRepo) List(ctx context.Context, f repository.TransactionFilter) ([]*entity.Transaction, error) {
	conds := []string{"store_id = $1"}
	args := []any{f.StoreID}
	if f.ProductID != "" {
		args = append(args, f.ProductID)
		conds = append(conds, fmt.Sprintf("product_id = $%d", len(args)))
	}
	if f.From != nil {
		args = append(args, *f.From)
		conds = append(conds, fmt.Sprintf("recorded_at >= $%d", len(args)))
	}
	if f.To != nil {
		args = append(args, *f.To)
		conds = append(conds, fmt.Sprintf("recorded_at < $%d", len(args)))
	}
	args = append(args, f.Limit, f.Offset)
	query := fmt.Sprintf(`SELECT %s FROM ledger_transactions WHERE %s
		ORDER BY recorded_at DESC, seq DESC
		LIMIT $%d OFFSET $%d`, transactionColumns, strings.Join(conds, " AND "), len(args)-1, len(args))

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("list transactions", err)
	}
	defer rows.Close()
	var list []*entity.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, mapError("scan transaction", err)
		}
		list = append(list, t)
	}
	return list, mapError("list transactions", rows.Err())
}

// SumDeltas suma las cantidades con signo de todas las transacciones del ledger.
func (r *TransactionRepo) SumDeltas(ctx context.Context, storeID, productID string) (int64, error) {
	query := `SELECT COALESCE(SUM(quantity), 0)::bigint FROM ledger_transactions WHERE store_id = $1 AND product_id = $2`
	var sum int64
	if err := r.q.QueryRow(ctx, query, storeID, productID).Scan(&sum); err != nil {
		return 0, mapError("sum deltas", err)
	}
	return sum, nil
}

// Exists indica si el ledger tiene al menos una transacción registrada.
func (r *TransactionRepo) Exists(ctx context.Context, storeID, productID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM ledger_transactions WHERE store_id = $1 AND product_id = $2)`
	var ok bool
	if err := r.q.QueryRow(ctx, query, storeID, productID).Scan(&ok); err != nil {
		return false, mapError("exists transactions", err)
	}
	return ok, nil
}

// Totals agrega ventas y compras de la tienda en [from, to).
func (r *TransactionRepo) Totals(ctx context.Context, storeID string, from, to time.Time) (repository.StoreTotals, error) {
	query := `
		SELECT
			COALESCE(SUM(total_amount) FILTER (WHERE type = 'SALE'), 0),
			COALESCE(SUM(discount) FILTER (WHERE type = 'SALE'), 0),
			COALESCE(SUM(cost_of_goods_sold) FILTER (WHERE type = 'SALE'), 0),
			COALESCE(SUM(total_amount) FILTER (WHERE type = 'PURCHASE'), 0),
			COALESCE(-SUM(quantity) FILTER (WHERE type = 'SALE'), 0)::bigint,
			COALESCE(SUM(quantity) FILTER (WHERE type = 'PURCHASE'), 0)::bigint,
			COUNT(*)
		FROM ledger_transactions
		WHERE store_id = $1 AND recorded_at >= $2 AND recorded_at < $3`
	var t repository.StoreTotals
	err := r.q.QueryRow(ctx, query, storeID, from, to).Scan(
		&t.Revenue, &t.Discounts, &t.CostOfGoodsSold, &t.PurchaseSpend,
		&t.UnitsSold, &t.UnitsPurchased, &t.TransactionCount,
	)
	if err != nil {
		return repository.StoreTotals{}, mapError("store totals", err)
	}
	return t, nil
}
