package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/kmc-invoice/internal/domain"
	"github.com/jhoicas/kmc-invoice/internal/domain/repository"
)

var _ repository.SequenceRepository = (*SequenceRepo)(nil)

// SequenceRepo contador de facturas por prefijo. La columna last es TEXT
// para poder detectar valores corruptos en lugar de fallar al escanear.
type SequenceRepo struct {
	q Querier
}

// NewSequenceRepository construye el adaptador.
func NewSequenceRepository(q Querier) *SequenceRepo {
	return &SequenceRepo{q: q}
}

// Get lee el último consecutivo. Bloquea la fila hasta el fin de la tx.
func (r *SequenceRepo) Get(ctx context.Context, prefix string) (int64, bool, error) {
	var raw *string
	err := r.q.QueryRow(ctx, `SELECT last FROM invoice_sequences WHERE prefix = $1 FOR UPDATE`, prefix).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("get sequence: %w", err)
	}
	if raw == nil {
		return 0, true, fmt.Errorf("%w: valor nulo", domain.ErrCorruptCounter)
	}
	v, err := strconv.ParseInt(strings.TrimSpace(*raw), 10, 64)
	if err != nil || v < 0 {
		return 0, true, fmt.Errorf("%w: %q", domain.ErrCorruptCounter, *raw)
	}
	return v, true, nil
}

// Set crea o actualiza el contador del prefijo.
func (r *SequenceRepo) Set(ctx context.Context, prefix string, last int64) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO invoice_sequences (prefix, last) VALUES ($1, $2)
		ON CONFLICT (prefix) DO UPDATE SET last = EXCLUDED.last`, prefix, strconv.FormatInt(last, 10))
	if err != nil {
		return fmt.Errorf("set sequence: %w", err)
	}
	return nil
}

// MaxIssued mayor consecutivo usado por una factura del prefijo.
func (r *SequenceRepo) MaxIssued(ctx context.Context, prefix string) (int64, error) {
	var max int64
	if err := r.q.QueryRow(ctx,
		`SELECT COALESCE(MAX(sequence), 0) FROM invoices WHERE prefix = $1`, prefix).Scan(&max); err != nil {
		return 0, fmt.Errorf("max issued sequence: %w", err)
	}
	return max, nil
}
