package ledger_test

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/cache"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

const (
	storeID   = "tienda-1"
	productID = "prod-1"
	cajero    = "cajero-1"
)

// recordingSink guarda los eventos de auditoría en orden de llegada.
type recordingSink struct {
	mu     sync.Mutex
	events []entity.AuditEvent
}

func (s *recordingSink) Record(e entity.AuditEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *recordingSink) Events() []entity.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.AuditEvent(nil), s.events...)
}

type fixture struct {
	store   *memory.Store
	sink    *recordingSink
	process *ledger.ProcessTransactionUseCase
	ledgers *ledger.LedgerUseCase
}

// newFixture tienda con un producto vinculado: cantidad inicial qty a precio price.
func newFixture(t *testing.T, qty int64, price string, opts ...memory.Option) *fixture {
	t.Helper()
	return newFixtureWithCache(t, qty, price, cache.NoopLedgerCache{}, opts...)
}

// newFixtureWithCache igual que newFixture pero con la caché indicada en ambos casos de uso.
func newFixtureWithCache(t *testing.T, qty int64, price string, c ledger.LedgerCache, opts ...memory.Option) *fixture {
	t.Helper()
	store := memory.NewStore(opts...)
	store.SeedStore(storeID)
	store.SeedProduct(entity.Product{ID: productID, StoreID: storeID, CategoryID: "cat-1", Name: "Parle-G Biscuit", SKU: "GROC-PGB71-001"})

	sink := &recordingSink{}
	log := logger.Nop()
	f := &fixture{
		store:   store,
		sink:    sink,
		process: ledger.NewProcessTransactionUseCase(store, c, sink, log),
		ledgers: ledger.NewLedgerUseCase(ledger.Deps{
			TxRunner:    store,
			LedgerRepo:  store.Ledgers(),
			TxRepo:      store.Transactions(),
			ProductRepo: store.Products(),
			StoreRepo:   store.Stores(),
			Cache:       c,
			Sink:        sink,
			Logger:      log,
		}),
	}
	_, err := f.ledgers.LinkProduct(context.Background(), ledger.LinkInput{
		StoreID:         storeID,
		ProductID:       productID,
		SellingPrice:    decimal.RequireFromString(price),
		InitialQuantity: qty,
		LinkedBy:        "dueno-1",
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) quantity(t *testing.T) int64 {
	t.Helper()
	l, err := f.store.Ledgers().Get(context.Background(), storeID, productID)
	require.NoError(t, err)
	return l.Quantity
}

func sale(qty int64) ledger.TransactionInput {
	return ledger.TransactionInput{StoreID: storeID, ProductID: productID, Type: "SALE", Quantity: qty, RecordedBy: cajero}
}

func purchase(qty int64, unitCost string) ledger.TransactionInput {
	c := decimal.RequireFromString(unitCost)
	return ledger.TransactionInput{StoreID: storeID, ProductID: productID, Type: "PURCHASE", Quantity: qty, UnitCost: &c, RecordedBy: cajero}
}

func adjustment(delta int64) ledger.TransactionInput {
	return ledger.TransactionInput{StoreID: storeID, ProductID: productID, Type: "ADJUSTMENT", Quantity: delta, RecordedBy: cajero}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// versionedCache caché en memoria con la misma regla que la de Redis: Set no
// reemplaza una versión ni una invalidación más nuevas. beforeSet permite
// intercalar trabajo entre la lectura del repositorio y el Set del lector.
type versionedCache struct {
	mu        sync.Mutex
	entries   map[string]versionedEntry
	beforeSet func()
}

type versionedEntry struct {
	version int64
	ledger  *entity.StockLedger
}

func newVersionedCache() *versionedCache {
	return &versionedCache{entries: map[string]versionedEntry{}}
}

func (c *versionedCache) Get(_ context.Context, storeID, productID string) (*entity.StockLedger, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[storeID+"/"+productID]
	if !ok || e.ledger == nil {
		return nil, false, nil
	}
	l := *e.ledger
	return &l, true, nil
}

func (c *versionedCache) Set(_ context.Context, l *entity.StockLedger) error {
	if hook := c.beforeSet; hook != nil {
		c.beforeSet = nil
		hook()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	k := l.StoreID + "/" + l.ProductID
	if e, ok := c.entries[k]; ok && l.Version < e.version {
		return nil
	}
	cp := *l
	c.entries[k] = versionedEntry{version: l.Version, ledger: &cp}
	return nil
}

func (c *versionedCache) Invalidate(_ context.Context, l *entity.StockLedger) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := l.StoreID + "/" + l.ProductID
	v := l.Version
	if e, ok := c.entries[k]; ok && e.version > v {
		v = e.version
	}
	c.entries[k] = versionedEntry{version: v}
	return nil
}
