package sequence

import (
	"context"
	"strings"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/identifier"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// MaxPrefixLength largo máximo de un prefijo de secuencia.
const MaxPrefixLength = 32

// TxRunner abre una unidad de trabajo con el repositorio de secuencias atado a la tx.
type TxRunner interface {
	RunSequence(ctx context.Context, fn func(seqRepo repository.SequenceRepository) error) error
}

// Allocator emite identificadores secuenciales sin colisiones por prefijo.
// El contador queda bloqueado hasta el fin de la unidad de trabajo que lo incrementó,
// así que dos asignaciones concurrentes del mismo prefijo se serializan.
type Allocator struct {
	txRunner TxRunner
	log      *logger.Logger
}

// NewAllocator construye el asignador. txRunner solo es necesario para Next.
func NewAllocator(txRunner TxRunner, log *logger.Logger) *Allocator {
	return &Allocator{txRunner: txRunner, log: log.Component("sequence")}
}

// NextInTx incrementa el contador dentro de la unidad de trabajo del llamador y devuelve
// prefix + valor con relleno de ceros. Si la tx del llamador hace rollback, el valor no se consume.
func (a *Allocator) NextInTx(ctx context.Context, seqRepo repository.SequenceRepository, prefix string) (string, error) {
	if err := ValidatePrefix(prefix); err != nil {
		return "", err
	}
	value, err := seqRepo.Increment(ctx, prefix)
	if err != nil {
		return "", err
	}
	a.log.Debug().Str("prefix", prefix).Int64("value", value).Msg("secuencia asignada")
	return identifier.Format(prefix, value), nil
}

// Next asigna en su propia unidad de trabajo.
func (a *Allocator) Next(ctx context.Context, prefix string) (string, error) {
	if err := ValidatePrefix(prefix); err != nil {
		return "", err
	}
	var code string
	err := a.txRunner.RunSequence(ctx, func(seqRepo repository.SequenceRepository) error {
		var err error
		code, err = a.NextInTx(ctx, seqRepo, prefix)
		return err
	})
	if err != nil {
		return "", err
	}
	return code, nil
}

// ValidatePrefix rechaza prefijos vacíos, con espacios o demasiado largos.
func ValidatePrefix(prefix string) error {
	switch {
	case strings.TrimSpace(prefix) == "":
		return domain.Invalid("el prefijo de secuencia es obligatorio")
	case len(prefix) > MaxPrefixLength:
		return domain.Invalid("el prefijo de secuencia supera %d caracteres", MaxPrefixLength)
	case strings.ContainsAny(prefix, " \t\n"):
		return domain.Invalid("el prefijo de secuencia no puede contener espacios")
	}
	return nil
}
