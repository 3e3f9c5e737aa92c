package repository

import "context"

// StoreRepository consulta de existencia de tiendas (CRUD externo).
type StoreRepository interface {
	Exists(ctx context.Context, storeID string) (bool, error)
}
