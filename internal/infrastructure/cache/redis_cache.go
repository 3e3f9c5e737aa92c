package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

var _ ledger.LedgerCache = (*RedisLedgerCache)(nil)

// Cada ledger es un hash con dos campos: "v" (versión mínima aceptable) y
// "data" (snapshot JSON). Una invalidación borra "data" y deja "v" como lápida.

// setScript escribe el snapshot solo si su versión no es menor que la registrada.
var setScript = redis.NewScript(`
local v = tonumber(redis.call('HGET', KEYS[1], 'v') or '-1')
if tonumber(ARGV[1]) < v then
	return 0
end
redis.call('HSET', KEYS[1], 'v', ARGV[1], 'data', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

// invalidateScript borra el snapshot y eleva la versión mínima (nunca la baja).
var invalidateScript = redis.NewScript(`
local v = tonumber(redis.call('HGET', KEYS[1], 'v') or '-1')
if tonumber(ARGV[1]) > v then
	redis.call('HSET', KEYS[1], 'v', ARGV[1])
end
redis.call('HDEL', KEYS[1], 'data')
redis.call('PEXPIRE', KEYS[1], ARGV[2])
return 1
`)

// RedisLedgerCache caché de lectura de ledgers en Redis con TTL.
// Es solo para lecturas: el procesador siempre lee la fila bloqueada de la BD.
type RedisLedgerCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisLedgerCache crea el cliente; no abre conexión hasta el primer comando (ver Ping).
func NewRedisLedgerCache(addr string, password string, db int, ttl time.Duration) *RedisLedgerCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLedgerCache{client: client, ttl: ttl, prefix: "ledger:"}
}

// Ping verifica la conexión con Redis.
func (c *RedisLedgerCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close cierra el pool de conexiones.
func (c *RedisLedgerCache) Close() error {
	return c.client.Close()
}

func (c *RedisLedgerCache) key(storeID, productID string) string {
	return c.prefix + storeID + ":" + productID
}

// Get devuelve el snapshot cacheado. Una lápida o una clave ausente son miss.
func (c *RedisLedgerCache) Get(ctx context.Context, storeID, productID string) (*entity.StockLedger, bool, error) {
	val, err := c.client.HGet(ctx, c.key(storeID, productID), "data").Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var cl cachedLedger
	if err := json.Unmarshal([]byte(val), &cl); err != nil {
		return nil, false, err
	}
	return cl.toEntity(), true, nil
}

// Set guarda el snapshot salvo que ya exista una versión o lápida más nueva.
func (c *RedisLedgerCache) Set(ctx context.Context, l *entity.StockLedger) error {
	if l == nil {
		return nil
	}
	payload, err := json.Marshal(fromEntity(l))
	if err != nil {
		return err
	}
	return setScript.Run(ctx, c.client, []string{c.key(l.StoreID, l.ProductID)},
		l.Version, payload, c.ttl.Milliseconds()).Err()
}

// Invalidate reemplaza el snapshot por una lápida con la versión confirmada.
func (c *RedisLedgerCache) Invalidate(ctx context.Context, committed *entity.StockLedger) error {
	if committed == nil {
		return nil
	}
	return invalidateScript.Run(ctx, c.client, []string{c.key(committed.StoreID, committed.ProductID)},
		committed.Version, c.ttl.Milliseconds()).Err()
}

// cachedLedger forma serializable del ledger (el estado es una interfaz sellada).
type cachedLedger struct {
	ID                string           `json:"id"`
	StoreID           string           `json:"store_id"`
	ProductID         string           `json:"product_id"`
	Quantity          int64            `json:"quantity"`
	InitialQuantity   int64            `json:"initial_quantity"`
	SellingPrice      decimal.Decimal  `json:"selling_price"`
	LastPurchasePrice *decimal.Decimal `json:"last_purchase_price,omitempty"`
	ReorderPoint      int64            `json:"reorder_point"`
	MaxQuantity       int64            `json:"max_quantity"`
	DeactivatedAt     *time.Time       `json:"deactivated_at,omitempty"`
	DeactivatedBy     string           `json:"deactivated_by,omitempty"`
	Version           int64            `json:"version"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

func fromEntity(l *entity.StockLedger) cachedLedger {
	cl := cachedLedger{
		ID:                l.ID,
		StoreID:           l.StoreID,
		ProductID:         l.ProductID,
		Quantity:          l.Quantity,
		InitialQuantity:   l.InitialQuantity,
		SellingPrice:      l.SellingPrice,
		LastPurchasePrice: l.LastPurchasePrice,
		ReorderPoint:      l.ReorderPoint,
		MaxQuantity:       l.MaxQuantity,
		Version:           l.Version,
		CreatedAt:         l.CreatedAt,
		UpdatedAt:         l.UpdatedAt,
	}
	if d, ok := l.Status.(entity.Deactivated); ok {
		at := d.At
		cl.DeactivatedAt = &at
		cl.DeactivatedBy = d.By
	}
	return cl
}

func (cl cachedLedger) toEntity() *entity.StockLedger {
	l := &entity.StockLedger{
		ID:                cl.ID,
		StoreID:           cl.StoreID,
		ProductID:         cl.ProductID,
		Quantity:          cl.Quantity,
		InitialQuantity:   cl.InitialQuantity,
		SellingPrice:      cl.SellingPrice,
		LastPurchasePrice: cl.LastPurchasePrice,
		ReorderPoint:      cl.ReorderPoint,
		MaxQuantity:       cl.MaxQuantity,
		Status:            entity.Active{},
		Version:           cl.Version,
		CreatedAt:         cl.CreatedAt,
		UpdatedAt:         cl.UpdatedAt,
	}
	if cl.DeactivatedAt != nil {
		l.Status = entity.Deactivated{At: *cl.DeactivatedAt, By: cl.DeactivatedBy}
	}
	return l
}
