package ledger

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Los bloqueos tomados con GetForUpdate duran hasta Commit o Rollback.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		ledgerRepo repository.LedgerRepository,
		txRepo repository.TransactionRepository,
	) error) error
}

// LedgerCache caché de lectura de ledgers. Nunca participa en escrituras:
// el procesador solo invalida tras el commit.
//
// Las entradas se versionan con StockLedger.Version: Set no debe reemplazar
// una versión más nueva ni una invalidación posterior a la lectura, así un
// lector lento no puede reinstalar un snapshot anterior al commit.
type LedgerCache interface {
	// Get retorna (nil, false, nil) en un miss.
	Get(ctx context.Context, storeID, productID string) (*entity.StockLedger, bool, error)
	Set(ctx context.Context, ledger *entity.StockLedger) error
	// Invalidate descarta la entrada y recuerda committed.Version como mínimo aceptable.
	Invalidate(ctx context.Context, committed *entity.StockLedger) error
}
