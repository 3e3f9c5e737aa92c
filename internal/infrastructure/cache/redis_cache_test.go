package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

func TestCachedLedger_ConservaEstadoDeBaja(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	cost := decimal.RequireFromString("2.00")
	l := &entity.StockLedger{
		ID:                "l1",
		StoreID:           "s1",
		ProductID:         "p1",
		SellingPrice:      decimal.RequireFromString("5.00"),
		LastPurchasePrice: &cost,
		Status:            entity.Deactivated{At: at, By: "SIE001"},
	}

	got := fromEntity(l).toEntity()

	require.False(t, got.IsActive())
	d, ok := got.Status.(entity.Deactivated)
	require.True(t, ok)
	assert.True(t, d.At.Equal(at))
	assert.Equal(t, "SIE001", d.By)
	assert.True(t, got.LastPurchasePrice.Equal(cost))
}

func TestCachedLedger_ActivoPorDefecto(t *testing.T) {
	l := &entity.StockLedger{ID: "l1", Quantity: 7, SellingPrice: decimal.NewFromInt(3)}

	got := fromEntity(l).toEntity()

	assert.True(t, got.IsActive())
	assert.Equal(t, int64(7), got.Quantity)
	assert.Nil(t, got.LastPurchasePrice)
}

func TestRedisLedgerCache_Clave(t *testing.T) {
	c := NewRedisLedgerCache("localhost:0", "", 0, time.Second)
	defer c.Close()

	assert.Equal(t, "ledger:s1:p1", c.key("s1", "p1"))
}

func TestCachedLedger_ConservaVersion(t *testing.T) {
	got := fromEntity(&entity.StockLedger{ID: "l1", Version: 9}).toEntity()
	assert.Equal(t, int64(9), got.Version)
}

// Requiere un Redis real; se omite si TEST_REDIS_ADDR no está definido.
func TestRedisLedgerCache_SetNoReemplazaVersionMasNueva(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR no definido")
	}
	ctx := context.Background()
	c := NewRedisLedgerCache(addr, "", 0, time.Minute)
	defer c.Close()
	require.NoError(t, c.Ping(ctx))

	store, product := "s-"+uuid.NewString(), "p-"+uuid.NewString()
	defer c.client.Del(ctx, c.key(store, product))
	snapshot := func(version, qty int64) *entity.StockLedger {
		return &entity.StockLedger{StoreID: store, ProductID: product, Quantity: qty, Version: version, Status: entity.Active{}}
	}

	// Lector lento: leyó la versión 1, mientras tanto se confirmó la 2 y se invalidó.
	require.NoError(t, c.Invalidate(ctx, snapshot(2, 7)))
	require.NoError(t, c.Set(ctx, snapshot(1, 10)))
	_, ok, err := c.Get(ctx, store, product)
	require.NoError(t, err)
	assert.False(t, ok, "la lápida rechaza el snapshot viejo")

	require.NoError(t, c.Set(ctx, snapshot(2, 7)))
	got, ok, err := c.Get(ctx, store, product)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(7), got.Quantity)

	// Una invalidación atrasada no baja la versión mínima.
	require.NoError(t, c.Invalidate(ctx, snapshot(1, 10)))
	require.NoError(t, c.Set(ctx, snapshot(1, 10)))
	_, ok, err = c.Get(ctx, store, product)
	require.NoError(t, err)
	assert.False(t, ok)
}
