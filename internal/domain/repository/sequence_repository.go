package repository

import "context"

// SequenceRepository puerto del contador de secuencias por prefijo.
type SequenceRepository interface {
	// Increment bloquea (o crea en 0) el contador del prefijo, lo incrementa y
	// devuelve el nuevo valor. El bloqueo dura hasta el fin de la transacción.
	Increment(ctx context.Context, prefix string) (int64, error)
	// Current devuelve el último valor emitido (0 si el prefijo no existe).
	Current(ctx context.Context, prefix string) (int64, error)
}
