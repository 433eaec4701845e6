package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jhoicas/kmc-invoice/internal/domain"
	"github.com/jhoicas/kmc-invoice/internal/domain/numbering"
	"github.com/jhoicas/kmc-invoice/internal/domain/repository"
)

// Allocation número asignado en un commit.
type Allocation struct {
	Prefix   string
	Sequence int64
	Number   string
}

// NumberAllocator emite números de factura únicos y crecientes por prefijo.
//
// PeekNext es de solo lectura (para mostrar el número antes de guardar);
// CommitNext/CommitIn incrementan el contador. Un número visto con PeekNext
// puede no llegar a usarse si el usuario abandona la edición.
type NumberAllocator struct {
	tx       TxRunner
	seq      repository.SequenceRepository
	settings SettingsProvider
	log      zerolog.Logger
}

// NewNumberAllocator construye el asignador. seq se usa para las lecturas fuera de transacción.
func NewNumberAllocator(tx TxRunner, seq repository.SequenceRepository, settings SettingsProvider, log zerolog.Logger) *NumberAllocator {
	return &NumberAllocator{tx: tx, seq: seq, settings: settings, log: log}
}

// PeekNext devuelve el próximo número sin modificar el contador.
func (a *NumberAllocator) PeekNext(ctx context.Context) (string, error) {
	s := a.settings.Current()
	next, err := a.next(ctx, a.seq, s.InvoicePrefix, s.NumberStart)
	if err != nil {
		return "", fmt.Errorf("numeración: leer contador: %w", err)
	}
	return numbering.Format(s.InvoicePrefix, next, s.NumberWidth), nil
}

// CommitNext incrementa el contador en su propia transacción y devuelve el número emitido.
func (a *NumberAllocator) CommitNext(ctx context.Context) (string, error) {
	var alloc Allocation
	err := a.tx.RunBilling(ctx, func(
		_ repository.CustomerRepository,
		_ repository.InvoiceRepository,
		seqRepo repository.SequenceRepository,
	) error {
		var err error
		alloc, err = a.CommitIn(ctx, seqRepo)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return alloc.Number, nil
}

// CommitIn incrementa el contador usando el repositorio de la transacción del caller.
// El incremento solo queda firme si esa transacción hace commit.
func (a *NumberAllocator) CommitIn(ctx context.Context, seqRepo repository.SequenceRepository) (Allocation, error) {
	s := a.settings.Current()
	next, err := a.next(ctx, seqRepo, s.InvoicePrefix, s.NumberStart)
	if err != nil {
		return Allocation{}, fmt.Errorf("numeración: leer contador: %w", err)
	}
	if err := seqRepo.Set(ctx, s.InvoicePrefix, next); err != nil {
		return Allocation{}, fmt.Errorf("numeración: guardar contador: %w", err)
	}
	a.log.Debug().Str("prefix", s.InvoicePrefix).Int64("sequence", next).Msg("consecutivo reservado")
	return Allocation{
		Prefix:   s.InvoicePrefix,
		Sequence: next,
		Number:   numbering.Format(s.InvoicePrefix, next, s.NumberWidth),
	}, nil
}

// next calcula el siguiente consecutivo. Un contador ausente o corrupto se siembra con
// start-1; en cualquier caso nunca se baja del mayor consecutivo ya usado por una factura.
func (a *NumberAllocator) next(ctx context.Context, seqRepo repository.SequenceRepository, prefix string, start int64) (int64, error) {
	last, found, err := seqRepo.Get(ctx, prefix)
	switch {
	case errors.Is(err, domain.ErrCorruptCounter):
		a.log.Warn().Err(err).Str("prefix", prefix).Int64("start", start).Msg("contador corrupto, se reinicia")
		last = start - 1
	case err != nil:
		return 0, err
	case !found:
		last = start - 1
	}
	if last < 0 {
		last = 0
	}

	issued, err := seqRepo.MaxIssued(ctx, prefix)
	if err != nil {
		return 0, err
	}
	if issued > last {
		if found {
			a.log.Warn().Str("prefix", prefix).Int64("last", last).Int64("issued", issued).
				Msg("contador por debajo de facturas existentes, se ajusta")
		}
		last = issued
	}
	return last + 1, nil
}
