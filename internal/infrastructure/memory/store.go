package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jhoicas/stock-ledger/internal/application/catalog"
	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/application/sequence"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var (
	_ ledger.TxRunner   = (*Store)(nil)
	_ sequence.TxRunner = (*Store)(nil)
	_ catalog.TxRunner  = (*Store)(nil)
)

var errLockTimeout = errors.New("tiempo de espera de bloqueo agotado")

// Option configura el Store.
type Option func(*Store)

// WithLockTimeout limita la espera por un bloqueo de fila; 0 = sin límite (solo ctx).
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) { s.lockTimeout = d }
}

// WithFault inyecta fallas por operación ("ledger.update", "transaction.create", "commit", ...).
func WithFault(fn func(op string) error) Option {
	return func(s *Store) { s.fault = fn }
}

type ledgerKey struct{ store, product string }

// Store almacenamiento en memoria con la misma disciplina que PostgreSQL:
// bloqueos exclusivos por fila que duran hasta el fin de la unidad de trabajo y
// escrituras que solo se vuelven visibles al confirmar.
type Store struct {
	mu    sync.Mutex
	locks map[string]chan struct{}

	ledgers    map[ledgerKey]entity.StockLedger
	txs        []entity.Transaction
	txByID     map[string]int
	txByKey    map[string]int
	sequences  map[string]int64
	products   map[string]entity.Product
	skus       map[string]string
	categories map[string]entity.Category
	users      map[string]entity.User
	emails     map[string]string
	userCodes  map[string]string
	stores     map[string]struct{}
	audit      []entity.AuditEvent

	lockTimeout time.Duration
	fault       func(op string) error
}

// NewStore crea un Store vacío.
func NewStore(opts ...Option) *Store {
	s := &Store{
		locks:      map[string]chan struct{}{},
		ledgers:    map[ledgerKey]entity.StockLedger{},
		txByID:     map[string]int{},
		txByKey:    map[string]int{},
		sequences:  map[string]int64{},
		products:   map[string]entity.Product{},
		skus:       map[string]string{},
		categories: map[string]entity.Category{},
		users:      map[string]entity.User{},
		emails:     map[string]string{},
		userCodes:  map[string]string{},
		stores:     map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetFault reemplaza la función de fallas inyectadas (nil la desactiva).
func (s *Store) SetFault(fn func(op string) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = fn
}

func (s *Store) inject(op string) error {
	s.mu.Lock()
	fn := s.fault
	s.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(op)
}

// Run implementa ledger.TxRunner.
func (s *Store) Run(ctx context.Context, fn func(
	ledgerRepo repository.LedgerRepository,
	txRepo repository.TransactionRepository,
) error) error {
	return s.inUnit(ctx, func(u *unit) error {
		return fn(&LedgerRepo{s: s, u: u}, &TransactionRepo{s: s, u: u})
	})
}

// RunSequence implementa sequence.TxRunner.
func (s *Store) RunSequence(ctx context.Context, fn func(seqRepo repository.SequenceRepository) error) error {
	return s.inUnit(ctx, func(u *unit) error {
		return fn(&SequenceRepo{s: s, u: u})
	})
}

// RunCatalog implementa catalog.TxRunner.
func (s *Store) RunCatalog(ctx context.Context, fn func(
	seqRepo repository.SequenceRepository,
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
) error) error {
	return s.inUnit(ctx, func(u *unit) error {
		return fn(&SequenceRepo{s: s, u: u}, &ProductRepo{s: s, u: u}, &UserRepo{s: s, u: u})
	})
}

func (s *Store) inUnit(ctx context.Context, fn func(u *unit) error) error {
	u := s.begin()
	defer u.rollback()
	if err := fn(u); err != nil {
		return err
	}
	return u.commit(ctx)
}

// unit unidad de trabajo: bloqueos tomados y escrituras pendientes.
type unit struct {
	s        *Store
	held     []chan struct{}
	heldKeys map[string]bool
	ledgers  map[ledgerKey]entity.StockLedger
	txs      []entity.Transaction
	seqs     map[string]int64
	products []entity.Product
	users    []entity.User
	closed   bool
}

func (s *Store) begin() *unit {
	return &unit{
		s:        s,
		heldKeys: map[string]bool{},
		ledgers:  map[ledgerKey]entity.StockLedger{},
		seqs:     map[string]int64{},
	}
}

// lock toma el bloqueo exclusivo de la fila key; es reentrante dentro de la unidad.
func (u *unit) lock(ctx context.Context, key string) error {
	if u.heldKeys[key] {
		return nil
	}
	u.s.mu.Lock()
	ch, ok := u.s.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		u.s.locks[key] = ch
	}
	u.s.mu.Unlock()

	var timeout <-chan time.Time
	if u.s.lockTimeout > 0 {
		t := time.NewTimer(u.s.lockTimeout)
		defer t.Stop()
		timeout = t.C
	}
	select {
	case ch <- struct{}{}:
		u.held = append(u.held, ch)
		u.heldKeys[key] = true
		return nil
	case <-ctx.Done():
		return fmt.Errorf("esperando bloqueo %s: %w", key, ctx.Err())
	case <-timeout:
		return domain.StorageFailure("bloqueo "+key, errLockTimeout)
	}
}

func (u *unit) release() {
	for _, ch := range u.held {
		<-ch
	}
	u.held = nil
	u.heldKeys = map[string]bool{}
}

func (u *unit) rollback() {
	if u.closed {
		return
	}
	u.closed = true
	u.release()
}

func (u *unit) commit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	if err := u.s.inject("commit"); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	s := u.s
	s.mu.Lock()
	for k, l := range u.ledgers {
		s.ledgers[k] = l
	}
	for _, t := range u.txs {
		s.txs = append(s.txs, t)
		idx := len(s.txs) - 1
		s.txByID[t.ID] = idx
		if t.IdempotencyKey != "" {
			s.txByKey[t.IdempotencyKey] = idx
		}
	}
	for prefix, v := range u.seqs {
		s.sequences[prefix] = v
	}
	for _, p := range u.products {
		s.products[p.ID] = p
		s.skus[skuKey(p.StoreID, p.SKU)] = p.ID
	}
	for _, usr := range u.users {
		s.users[usr.ID] = usr
		s.emails[usr.Email] = usr.ID
		s.userCodes[usr.UserCode] = usr.ID
	}
	s.mu.Unlock()
	u.closed = true
	u.release()
	return nil
}

// base comparte la lógica de repositorios: dentro de una unidad o en autocommit.
type base struct {
	s *Store
	u *unit
}

func (b base) do(ctx context.Context, fn func(u *unit) error) error {
	if b.u != nil {
		return fn(b.u)
	}
	return b.s.inUnit(ctx, fn)
}

// SeedStore registra una tienda (el CRUD de tiendas es externo).
func (s *Store) SeedStore(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stores[id] = struct{}{}
}

// SeedCategory registra una categoría.
func (s *Store) SeedCategory(c entity.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[c.ID] = c
}

// SeedProduct registra un producto ya confirmado.
func (s *Store) SeedProduct(p entity.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
	s.skus[skuKey(p.StoreID, p.SKU)] = p.ID
}

// SeedUser registra un usuario ya confirmado.
func (s *Store) SeedUser(u entity.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
	s.emails[u.Email] = u.ID
	s.userCodes[u.UserCode] = u.ID
}

// AuditEvents copia de los eventos de auditoría escritos.
func (s *Store) AuditEvents() []entity.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.AuditEvent(nil), s.audit...)
}

// Repositorios en autocommit para lecturas y escrituras sueltas.
func (s *Store) Ledgers() *LedgerRepo           { return &LedgerRepo{s: s} }
func (s *Store) Transactions() *TransactionRepo { return &TransactionRepo{s: s} }
func (s *Store) Sequences() *SequenceRepo       { return &SequenceRepo{s: s} }
func (s *Store) Products() *ProductRepo         { return &ProductRepo{s: s} }
func (s *Store) Categories() *CategoryRepo      { return &CategoryRepo{s: s} }
func (s *Store) Users() *UserRepo               { return &UserRepo{s: s} }
func (s *Store) Stores() *StoreRepo             { return &StoreRepo{s: s} }
func (s *Store) Audit() *AuditRepo              { return &AuditRepo{s: s} }

func skuKey(storeID, sku string) string { return storeID + "|" + sku }
