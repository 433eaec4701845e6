package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/jhoicas/kmc-invoice/internal/domain"
	"github.com/jhoicas/kmc-invoice/internal/domain/repository"
)

var _ repository.SequenceRepository = (*SequenceRepo)(nil)

// SequenceRepo contador de facturas por prefijo en invoice_sequences.
type SequenceRepo struct {
	q sqlx.ExtContext
}

// NewSequenceRepository construye el adaptador.
func NewSequenceRepository(q sqlx.ExtContext) *SequenceRepo {
	return &SequenceRepo{q: q}
}

// Get lee el último consecutivo. El valor se lee como texto para detectar corrupción.
func (r *SequenceRepo) Get(ctx context.Context, prefix string) (int64, bool, error) {
	var raw sql.NullString
	err := sqlx.GetContext(ctx, r.q, &raw, `SELECT CAST(last AS TEXT) FROM invoice_sequences WHERE prefix = ?`, prefix)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("get sequence: %w", err)
	}
	last, err := parseCounter(raw)
	if err != nil {
		return 0, true, err
	}
	return last, true, nil
}

// Set crea o actualiza el contador del prefijo.
func (r *SequenceRepo) Set(ctx context.Context, prefix string, last int64) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO invoice_sequences (prefix, last) VALUES (?, ?)
		ON CONFLICT (prefix) DO UPDATE SET last = excluded.last`, prefix, last)
	if err != nil {
		return fmt.Errorf("set sequence: %w", err)
	}
	return nil
}

// MaxIssued mayor consecutivo usado por una factura del prefijo.
func (r *SequenceRepo) MaxIssued(ctx context.Context, prefix string) (int64, error) {
	var max int64
	if err := sqlx.GetContext(ctx, r.q, &max,
		`SELECT COALESCE(MAX(sequence), 0) FROM invoices WHERE prefix = ?`, prefix); err != nil {
		return 0, fmt.Errorf("max issued sequence: %w", err)
	}
	return max, nil
}

func parseCounter(raw sql.NullString) (int64, error) {
	if !raw.Valid {
		return 0, fmt.Errorf("%w: valor nulo", domain.ErrCorruptCounter)
	}
	v, err := strconv.ParseInt(strings.TrimSpace(raw.String), 10, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: %q", domain.ErrCorruptCounter, raw.String)
	}
	return v, nil
}
