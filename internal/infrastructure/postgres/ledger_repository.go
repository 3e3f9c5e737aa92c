package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.LedgerRepository = (*LedgerRepo)(nil)

// LedgerRepo implementación de LedgerRepository sobre PostgreSQL (usable con pool o tx).
type LedgerRepo struct {
	q Querier
}

// NewLedgerRepository construye el adaptador de ledgers. Pasar pool o tx (Querier).
func NewLedgerRepository(q Querier) *LedgerRepo {
	return &LedgerRepo{q: q}
}

const ledgerColumns = `id, store_id, product_id, quantity, initial_quantity, selling_price, last_purchase_price,
	reorder_point, max_quantity, deactivated_at, deactivated_by, version, created_at, updated_at`

func scanLedger(row scanner) (*entity.StockLedger, error) {
	var (
		l             entity.StockLedger
		deactivatedAt *time.Time
		deactivatedBy *string
		lastPurchase  *decimal.Decimal
	)
	err := row.Scan(
		&l.ID, &l.StoreID, &l.ProductID, &l.Quantity, &l.InitialQuantity, &l.SellingPrice, &lastPurchase,
		&l.ReorderPoint, &l.MaxQuantity, &deactivatedAt, &deactivatedBy, &l.Version, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	l.LastPurchasePrice = lastPurchase
	l.Status = entity.Active{}
	if deactivatedAt != nil {
		d := entity.Deactivated{At: *deactivatedAt}
		if deactivatedBy != nil {
			d.By = *deactivatedBy
		}
		l.Status = d
	}
	return &l, nil
}

// GetForUpdate obtiene el ledger y bloquea la fila hasta el fin de la tx (SELECT FOR UPDATE).
func (r *LedgerRepo) GetForUpdate(ctx context.Context, storeID, productID string) (*entity.StockLedger, error) {
	query := `SELECT ` + ledgerColumns + `
		FROM stock_ledgers WHERE store_id = $1 AND product_id = $2
		FOR UPDATE`
	l, err := scanLedger(r.q.QueryRow(ctx, query, storeID, productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFound("ledger", storeID+"/"+productID)
		}
		return nil, mapError("get ledger for update", err)
	}
	return l, nil
}

// Get lectura sin bloqueo.
func (r *LedgerRepo) Get(ctx context.Context, storeID, productID string) (*entity.StockLedger, error) {
	query := `SELECT ` + ledgerColumns + `
		FROM stock_ledgers WHERE store_id = $1 AND product_id = $2`
	l, err := scanLedger(r.q.QueryRow(ctx, query, storeID, productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFound("ledger", storeID+"/"+productID)
		}
		return nil, mapError("get ledger", err)
	}
	return l, nil
}

// Create inserta el ledger. ErrDuplicate si el par (tienda, producto) ya existe.
func (r *LedgerRepo) Create(ctx context.Context, l *entity.StockLedger) error {
	query := `
		INSERT INTO stock_ledgers (id, store_id, product_id, quantity, initial_quantity, selling_price,
			last_purchase_price, reorder_point, max_quantity, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1, $10, $11)`
	_, err := r.q.Exec(ctx, query,
		l.ID, l.StoreID, l.ProductID, l.Quantity, l.InitialQuantity, l.SellingPrice,
		l.LastPurchasePrice, l.ReorderPoint, l.MaxQuantity, l.CreatedAt, l.UpdatedAt,
	)
	if err == nil {
		l.Version = 1
	}
	return mapError("insert ledger", err)
}

// Update persiste cantidad, precios y estado e incrementa la versión (l.Version queda actualizada).
func (r *LedgerRepo) Update(ctx context.Context, l *entity.StockLedger) error {
	var (
		deactivatedAt *time.Time
		deactivatedBy *string
	)
	if d, ok := l.Status.(entity.Deactivated); ok {
		at := d.At
		deactivatedAt = &at
		deactivatedBy = nullString(d.By)
	}
	query := `
		UPDATE stock_ledgers
		SET quantity = $3, selling_price = $4, last_purchase_price = $5, reorder_point = $6,
			max_quantity = $7, deactivated_at = $8, deactivated_by = $9, updated_at = $10,
			version = version + 1
		WHERE store_id = $1 AND product_id = $2
		RETURNING version`
	err := r.q.QueryRow(ctx, query,
		l.StoreID, l.ProductID, l.Quantity, l.SellingPrice, l.LastPurchasePrice, l.ReorderPoint,
		l.MaxQuantity, deactivatedAt, deactivatedBy, l.UpdatedAt,
	).Scan(&l.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NotFound("ledger", l.StoreID+"/"+l.ProductID)
	}
	return mapError("update ledger", err)
}

// ListByStore lista los ledgers de una tienda con paginación.
func (r *LedgerRepo) ListByStore(ctx context.Context, storeID string, limit, offset int) ([]*entity.StockLedger, error) {
	query := `SELECT ` + ledgerColumns + `
		FROM stock_ledgers WHERE store_id = $1
		ORDER BY created_at, product_id
		LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, storeID, limit, offset)
	if err != nil {
		return nil, mapError("list ledgers", err)
	}
	defer rows.Close()
	var list []*entity.StockLedger
	for rows.Next() {
		l, err := scanLedger(rows)
		if err != nil {
			return nil, mapError("scan ledger", err)
		}
		list = append(list, l)
	}
	return list, mapError("list ledgers", rows.Err())
}
