package catalog

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// TxRunner unidad de trabajo para altas que consumen una secuencia:
// el contador y la fila nueva se confirman juntos o no se confirman.
type TxRunner interface {
	RunCatalog(ctx context.Context, fn func(
		seqRepo repository.SequenceRepository,
		productRepo repository.ProductRepository,
		userRepo repository.UserRepository,
	) error) error
}
