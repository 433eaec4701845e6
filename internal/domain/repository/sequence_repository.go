package repository

import "context"

// SequenceRepository persiste el contador de facturas por prefijo.
type SequenceRepository interface {
	// Get devuelve el último consecutivo emitido. found=false si no hay fila;
	// domain.ErrCorruptCounter si el valor guardado no es un entero no negativo.
	Get(ctx context.Context, prefix string) (last int64, found bool, err error)
	// Set crea o actualiza el contador.
	Set(ctx context.Context, prefix string, last int64) error
	// MaxIssued mayor consecutivo ya usado por una factura con ese prefijo (0 si ninguna).
	MaxIssued(ctx context.Context, prefix string) (int64, error)
}
