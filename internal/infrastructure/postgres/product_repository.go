package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

// ProductRepo implementación del puerto ProductRepository sobre PostgreSQL.
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador de persistencia para productos. Pasar pool o tx.
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

const productColumns = `id, store_id, category_id, name, description, sku, unit_measure, created_at, updated_at`

func scanProduct(row scanner) (*entity.Product, error) {
	var p entity.Product
	err := row.Scan(&p.ID, &p.StoreID, &p.CategoryID, &p.Name, &p.Description, &p.SKU, &p.UnitMeasure, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserta dentro de un savepoint: una violación de SKU único deshace solo el
// savepoint y la tx del llamador sigue utilizable para reintentar.
func (r *ProductRepo) Create(ctx context.Context, p *entity.Product) error {
	sp, err := r.q.Begin(ctx)
	if err != nil {
		return mapError("savepoint product", err)
	}
	defer func() { _ = sp.Rollback(ctx) }()

	query := `
		INSERT INTO products (id, store_id, category_id, name, description, sku, unit_measure, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err = sp.Exec(ctx, query,
		p.ID, p.StoreID, p.CategoryID, p.Name, p.Description, p.SKU, p.UnitMeasure, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return mapError("insert product", err)
	}
	return mapError("release savepoint product", sp.Commit(ctx))
}

// GetByID obtiene un producto por ID (nil, nil si no existe).
func (r *ProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	p, err := scanProduct(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get product", err)
	}
	return p, nil
}

// GetByStoreAndSKU obtiene un producto por tienda y SKU (nil, nil si no existe).
func (r *ProductRepo) GetByStoreAndSKU(ctx context.Context, storeID, sku string) (*entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE store_id = $1 AND sku = $2`
	p, err := scanProduct(r.q.QueryRow(ctx, query, storeID, sku))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get product by sku", err)
	}
	return p, nil
}
