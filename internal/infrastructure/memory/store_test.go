package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
)

func seedLedger(t *testing.T, s *memory.Store, qty int64) {
	t.Helper()
	require.NoError(t, s.Ledgers().Create(context.Background(), &entity.StockLedger{
		ID: "l-1", StoreID: "t-1", ProductID: "p-1", Quantity: qty, InitialQuantity: qty,
		SellingPrice: decimal.NewFromInt(1), Status: entity.Active{},
	}))
}

func TestStore_EscriturasInvisiblesHastaElCommit(t *testing.T) {
	s := memory.NewStore()
	seedLedger(t, s, 5)
	ctx := context.Background()

	inside := make(chan struct{})
	proceed := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, func(lr repository.LedgerRepository, _ repository.TransactionRepository) error {
			l, err := lr.GetForUpdate(ctx, "t-1", "p-1")
			if err != nil {
				return err
			}
			l.Quantity = 1
			if err := lr.Update(ctx, l); err != nil {
				return err
			}
			close(inside)
			<-proceed
			return nil
		})
	}()
	<-inside

	l, err := s.Ledgers().Get(ctx, "t-1", "p-1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), l.Quantity, "lectura sin bloqueo ve lo confirmado")

	close(proceed)
	require.NoError(t, <-done)
	l, err = s.Ledgers().Get(ctx, "t-1", "p-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), l.Quantity)
}

func TestStore_BloqueoReentranteDentroDeLaUnidad(t *testing.T) {
	s := memory.NewStore(memory.WithLockTimeout(50 * time.Millisecond))
	seedLedger(t, s, 5)
	ctx := context.Background()

	err := s.Run(ctx, func(lr repository.LedgerRepository, _ repository.TransactionRepository) error {
		if _, err := lr.GetForUpdate(ctx, "t-1", "p-1"); err != nil {
			return err
		}
		_, err := lr.GetForUpdate(ctx, "t-1", "p-1")
		return err
	})
	assert.NoError(t, err)
}

func TestStore_EsperaDeBloqueoRespetaCancelacion(t *testing.T) {
	s := memory.NewStore()
	seedLedger(t, s, 5)

	locked := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = s.Run(context.Background(), func(lr repository.LedgerRepository, _ repository.TransactionRepository) error {
			_, _ = lr.GetForUpdate(context.Background(), "t-1", "p-1")
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.Ledgers().GetForUpdate(ctx, "t-1", "p-1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, domain.IsRetryable(err))
}

func TestStore_GetForUpdateInexistente(t *testing.T) {
	s := memory.NewStore()
	_, err := s.Ledgers().GetForUpdate(context.Background(), "t-1", "nada")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_ClaveIdempotenteUnica(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()
	tx := &entity.Transaction{ID: "tx-1", StoreID: "t-1", ProductID: "p-1", Quantity: 1, IdempotencyKey: "k"}
	require.NoError(t, s.Transactions().Create(ctx, tx))

	dup := *tx
	dup.ID = "tx-2"
	assert.ErrorIs(t, s.Transactions().Create(ctx, &dup), domain.ErrDuplicate)

	got, err := s.Transactions().GetByIdempotencyKey(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "tx-1", got.ID)
}

func TestStore_ClaveIdempotenteConContextoCancelado(t *testing.T) {
	s := memory.NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tx := &entity.Transaction{ID: "tx-1", StoreID: "t-1", ProductID: "p-1", Quantity: 1, IdempotencyKey: "k"}
	err := s.Transactions().Create(ctx, tx)
	assert.ErrorIs(t, err, context.Canceled)

	got, err := s.Transactions().GetByIdempotencyKey(context.Background(), "k")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_UsuarioEmailYCodigoUnicos(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, s.Users().Create(ctx, &entity.User{ID: "u-1", Email: "a@b.co", UserCode: "SIE001"}))

	assert.ErrorIs(t, s.Users().Create(ctx, &entity.User{ID: "u-2", Email: "a@b.co", UserCode: "SIE002"}), domain.ErrDuplicate)
	assert.ErrorIs(t, s.Users().Create(ctx, &entity.User{ID: "u-3", Email: "c@b.co", UserCode: "SIE001"}), domain.ErrDuplicate)
}

func TestStore_FallaInyectadaRevierteTodaLaUnidad(t *testing.T) {
	boom := errors.New("falla")
	s := memory.NewStore()
	seedLedger(t, s, 5)
	ctx := context.Background()
	s.SetFault(func(op string) error {
		if op == "sequence.increment" {
			return boom
		}
		return nil
	})

	err := s.RunCatalog(ctx, func(seq repository.SequenceRepository, pr repository.ProductRepository, _ repository.UserRepository) error {
		if err := pr.Create(ctx, &entity.Product{ID: "p-9", StoreID: "t-1", SKU: "X-001"}); err != nil {
			return err
		}
		_, err := seq.Increment(ctx, "X-")
		return err
	})
	require.ErrorIs(t, err, boom)

	p, err := s.Products().GetByID(ctx, "p-9")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestStore_AuditoriaEnMemoria(t *testing.T) {
	s := memory.NewStore()
	require.NoError(t, s.Audit().Create(context.Background(), &entity.AuditEvent{ID: "a-1", Action: "x"}))
	assert.Len(t, s.AuditEvents(), 1)
}

func TestStore_UpdateIncrementaLaVersion(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()
	l := &entity.StockLedger{ID: "l-1", StoreID: "t-1", ProductID: "p-1", Quantity: 2, Status: entity.Active{}}
	require.NoError(t, s.Ledgers().Create(ctx, l))
	assert.Equal(t, int64(1), l.Version)

	l.Quantity = 5
	require.NoError(t, s.Ledgers().Update(ctx, l))
	assert.Equal(t, int64(2), l.Version)

	got, err := s.Ledgers().Get(ctx, "t-1", "p-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
	assert.Equal(t, int64(5), got.Quantity)
}
