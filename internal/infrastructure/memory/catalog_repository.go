package memory

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var (
	_ repository.ProductRepository  = (*ProductRepo)(nil)
	_ repository.CategoryRepository = (*CategoryRepo)(nil)
	_ repository.UserRepository     = (*UserRepo)(nil)
	_ repository.StoreRepository    = (*StoreRepo)(nil)
)

// ProductRepo productos con SKU único por tienda.
type ProductRepo base

// Create un SKU repetido devuelve ErrDuplicate sin invalidar la unidad de trabajo.
func (r *ProductRepo) Create(ctx context.Context, p *entity.Product) error {
	return base(*r).do(ctx, func(u *unit) error {
		if err := u.lock(ctx, "sku:"+skuKey(p.StoreID, p.SKU)); err != nil {
			return err
		}
		existing, err := (&ProductRepo{s: r.s, u: u}).GetByStoreAndSKU(ctx, p.StoreID, p.SKU)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrDuplicate
		}
		if err := r.s.inject("product.create"); err != nil {
			return err
		}
		u.products = append(u.products, *p)
		return nil
	})
}

// GetByID obtiene un producto por ID, incluidos los pendientes de la unidad (nil, nil si no existe).
func (r *ProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.u != nil {
		for _, p := range r.u.products {
			if p.ID == id {
				return &p, nil
			}
		}
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// GetByStoreAndSKU busca un producto por SKU dentro de la tienda (nil, nil si no existe).
func (r *ProductRepo) GetByStoreAndSKU(ctx context.Context, storeID, sku string) (*entity.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.u != nil {
		for _, p := range r.u.products {
			if p.StoreID == storeID && p.SKU == sku {
				return &p, nil
			}
		}
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.skus[skuKey(storeID, sku)]
	if !ok {
		return nil, nil
	}
	p := r.s.products[id]
	return &p, nil
}

// CategoryRepo lectura de categorías.
type CategoryRepo base

// GetByID obtiene una categoría por ID (nil, nil si no existe).
func (r *CategoryRepo) GetByID(ctx context.Context, id string) (*entity.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.categories[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

// UserRepo usuarios con email y código únicos.
type UserRepo base

// Create inserta el usuario. Email y código son únicos: ErrDuplicate.
func (r *UserRepo) Create(ctx context.Context, usr *entity.User) error {
	return base(*r).do(ctx, func(u *unit) error {
		if err := u.lock(ctx, "email:"+usr.Email); err != nil {
			return err
		}
		if err := u.lock(ctx, "user_code:"+usr.UserCode); err != nil {
			return err
		}
		for _, pending := range u.users {
			if pending.Email == usr.Email || pending.UserCode == usr.UserCode {
				return domain.ErrDuplicate
			}
		}
		r.s.mu.Lock()
		_, emailTaken := r.s.emails[usr.Email]
		_, codeTaken := r.s.userCodes[usr.UserCode]
		r.s.mu.Unlock()
		if emailTaken || codeTaken {
			return domain.ErrDuplicate
		}
		if err := r.s.inject("user.create"); err != nil {
			return err
		}
		u.users = append(u.users, *usr)
		return nil
	})
}

// GetByID obtiene un usuario por ID (nil, nil si no existe).
func (r *UserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	usr, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	return &usr, nil
}

// GetByEmail busca por email exacto (nil, nil si no existe).
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.emails[email]
	if !ok {
		return nil, nil
	}
	usr := r.s.users[id]
	return &usr, nil
}

// StoreRepo existencia de tiendas.
type StoreRepo base

// Exists indica si la tienda fue registrada con SeedStore.
func (r *StoreRepo) Exists(ctx context.Context, storeID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.stores[storeID]
	return ok, nil
}
