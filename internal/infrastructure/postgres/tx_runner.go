package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/stock-ledger/internal/application/catalog"
	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/application/sequence"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// Ensure TxRunner implements ledger.TxRunner, sequence.TxRunner and catalog.TxRunner.
var (
	_ ledger.TxRunner   = (*TxRunner)(nil)
	_ sequence.TxRunner = (*TxRunner)(nil)
	_ catalog.TxRunner  = (*TxRunner)(nil)
)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
// lockTimeout > 0 acota la espera por bloqueos de fila (SET LOCAL lock_timeout).
type TxRunner struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool, lockTimeout time.Duration) *TxRunner {
	return &TxRunner{pool: pool, lockTimeout: lockTimeout}
}

// Run inicia una transacción, ejecuta fn con repos de ledger atados a la tx y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(
	ledgerRepo repository.LedgerRepository,
	txRepo repository.TransactionRepository,
) error) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		return fn(NewLedgerRepository(tx), NewTransactionRepository(tx))
	})
}

// RunSequence inicia una transacción con el repositorio de secuencias.
func (r *TxRunner) RunSequence(ctx context.Context, fn func(seqRepo repository.SequenceRepository) error) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		return fn(NewSequenceRepository(tx))
	})
}

// RunCatalog inicia una transacción con secuencias, productos y usuarios (altas con código generado).
func (r *TxRunner) RunCatalog(ctx context.Context, fn func(
	seqRepo repository.SequenceRepository,
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
) error) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		return fn(NewSequenceRepository(tx), NewProductRepository(tx), NewUserRepository(tx))
	})
}

func (r *TxRunner) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return mapError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if r.lockTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return mapError("set lock_timeout", err)
		}
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapError("commit transaction", err)
	}
	return nil
}
