package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/kmc-invoice/internal/domain"
	"github.com/jhoicas/kmc-invoice/internal/domain/entity"
	"github.com/jhoicas/kmc-invoice/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implementación de InvoiceRepository (usable con db o tx).
// Los importes se guardan como TEXT decimal para no perder precisión.
type InvoiceRepo struct {
	q sqlx.ExtContext
}

// NewInvoiceRepository construye el adaptador.
func NewInvoiceRepository(q sqlx.ExtContext) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

type invoiceRow struct {
	ID         string          `db:"id"`
	Number     string          `db:"number"`
	Prefix     string          `db:"prefix"`
	Sequence   int64           `db:"sequence"`
	Date       string          `db:"date"`
	CustomerID string          `db:"customer_id"`
	Subtotal   decimal.Decimal `db:"subtotal"`
	TaxRate    decimal.Decimal `db:"tax_rate"`
	Tax        decimal.Decimal `db:"tax"`
	Total      decimal.Decimal `db:"total"`
	Notes      string          `db:"notes"`
	Status     string          `db:"status"`
	CreatedAt  string          `db:"created_at"`
	UpdatedAt  string          `db:"updated_at"`
}

func (r invoiceRow) toEntity() (*entity.Invoice, error) {
	date, err := parseDate(r.Date)
	if err != nil {
		return nil, err
	}
	created, err := parseTime(r.CreatedAt)
	if err != nil {
		return nil, err
	}
	updated, err := parseTime(r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &entity.Invoice{
		ID:         r.ID,
		Number:     r.Number,
		Prefix:     r.Prefix,
		Sequence:   r.Sequence,
		Date:       date,
		CustomerID: r.CustomerID,
		Subtotal:   r.Subtotal,
		TaxRate:    r.TaxRate,
		Tax:        r.Tax,
		Total:      r.Total,
		Notes:      r.Notes,
		Status:     r.Status,
		CreatedAt:  created,
		UpdatedAt:  updated,
	}, nil
}

const invoiceColumns = `id, number, prefix, sequence, date, customer_id, subtotal, tax_rate, tax, total, notes, status, created_at, updated_at`

// Create persiste la cabecera de la factura.
func (r *InvoiceRepo) Create(ctx context.Context, inv *entity.Invoice) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO invoices (`+invoiceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.Number, inv.Prefix, inv.Sequence, inv.Date.Format(dateLayout), inv.CustomerID,
		inv.Subtotal, inv.TaxRate, inv.Tax, inv.Total, inv.Notes, inv.Status,
		formatTime(inv.CreatedAt), formatTime(inv.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: factura %s", domain.ErrDuplicate, inv.Number)
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

// CreateItem persiste una línea de factura.
func (r *InvoiceRepo) CreateItem(ctx context.Context, it *entity.InvoiceItem) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO invoice_items (id, invoice_id, position, description, quantity, unit_price, amount)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		it.ID, it.InvoiceID, it.Position, it.Description, it.Quantity, it.UnitPrice, it.Amount,
	)
	if err != nil {
		return fmt.Errorf("insert invoice item: %w", err)
	}
	return nil
}

// UpdateStatus cambia el estado de la factura.
func (r *InvoiceRepo) UpdateStatus(ctx context.Context, id, status string, at time.Time) error {
	res, err := r.q.ExecContext(ctx, `UPDATE invoices SET status = ?, updated_at = ? WHERE id = ?`,
		status, formatTime(at), id)
	if err != nil {
		return fmt.Errorf("update invoice status: %w", err)
	}
	return requireAffected(res)
}

// GetByID obtiene la cabecera por ID.
func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	return r.getOne(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = ?`, id)
}

// GetByNumber obtiene la cabecera por número (KMC-0001).
func (r *InvoiceRepo) GetByNumber(ctx context.Context, number string) (*entity.Invoice, error) {
	return r.getOne(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE number = ?`, number)
}

func (r *InvoiceRepo) getOne(ctx context.Context, query string, arg string) (*entity.Invoice, error) {
	var row invoiceRow
	if err := sqlx.GetContext(ctx, r.q, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return row.toEntity()
}

type itemRow struct {
	ID          string          `db:"id"`
	InvoiceID   string          `db:"invoice_id"`
	Position    int             `db:"position"`
	Description string          `db:"description"`
	Quantity    decimal.Decimal `db:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price"`
	Amount      decimal.Decimal `db:"amount"`
}

// GetItemsByInvoiceID devuelve las líneas en orden de captura.
func (r *InvoiceRepo) GetItemsByInvoiceID(ctx context.Context, invoiceID string) ([]*entity.InvoiceItem, error) {
	var rows []itemRow
	err := sqlx.SelectContext(ctx, r.q, &rows, `
		SELECT id, invoice_id, position, description, quantity, unit_price, amount
		FROM invoice_items WHERE invoice_id = ? ORDER BY position`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list invoice items: %w", err)
	}
	out := make([]*entity.InvoiceItem, 0, len(rows))
	for _, row := range rows {
		out = append(out, &entity.InvoiceItem{
			ID:          row.ID,
			InvoiceID:   row.InvoiceID,
			Position:    row.Position,
			Description: row.Description,
			Quantity:    row.Quantity,
			UnitPrice:   row.UnitPrice,
			Amount:      row.Amount,
		})
	}
	return out, nil
}

type summaryRow struct {
	ID           string          `db:"id"`
	Number       string          `db:"number"`
	Date         string          `db:"date"`
	CustomerID   string          `db:"customer_id"`
	CustomerName string          `db:"customer_name"`
	Total        decimal.Decimal `db:"total"`
	Status       string          `db:"status"`
}

// List devuelve las facturas más recientes primero; query filtra por número o cliente.
func (r *InvoiceRepo) List(ctx context.Context, query string, limit int) ([]*entity.InvoiceSummary, error) {
	var rows []summaryRow
	err := sqlx.SelectContext(ctx, r.q, &rows, `
		SELECT i.id, i.number, i.date, i.customer_id, c.name AS customer_name, i.total, i.status
		FROM invoices i
		JOIN customers c ON c.id = i.customer_id
		WHERE (? = '' OR i.number LIKE ? OR c.name LIKE ?)
		ORDER BY i.date DESC, i.sequence DESC
		LIMIT ?`, query, likePattern(query), likePattern(query), limit)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	out := make([]*entity.InvoiceSummary, 0, len(rows))
	for _, row := range rows {
		date, err := parseDate(row.Date)
		if err != nil {
			return nil, err
		}
		out = append(out, &entity.InvoiceSummary{
			ID:           row.ID,
			Number:       row.Number,
			Date:         date,
			CustomerID:   row.CustomerID,
			CustomerName: row.CustomerName,
			Total:        row.Total,
			Status:       row.Status,
		})
	}
	return out, nil
}

// ListIDsByCustomer IDs de las facturas de un cliente.
func (r *InvoiceRepo) ListIDsByCustomer(ctx context.Context, customerID string) ([]string, error) {
	var ids []string
	if err := sqlx.SelectContext(ctx, r.q, &ids,
		`SELECT id FROM invoices WHERE customer_id = ? ORDER BY sequence`, customerID); err != nil {
		return nil, fmt.Errorf("list invoice ids: %w", err)
	}
	return ids, nil
}

// CountByCustomer cuántas facturas referencian al cliente.
func (r *InvoiceRepo) CountByCustomer(ctx context.Context, customerID string) (int, error) {
	var n int
	if err := sqlx.GetContext(ctx, r.q, &n, `SELECT COUNT(*) FROM invoices WHERE customer_id = ?`, customerID); err != nil {
		return 0, fmt.Errorf("count invoices: %w", err)
	}
	return n, nil
}

// DeleteItemsByInvoiceID borra todas las líneas de una factura.
func (r *InvoiceRepo) DeleteItemsByInvoiceID(ctx context.Context, invoiceID string) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM invoice_items WHERE invoice_id = ?`, invoiceID); err != nil {
		return fmt.Errorf("delete invoice items: %w", err)
	}
	return nil
}

// Delete borra la cabecera. Las líneas deben borrarse antes.
func (r *InvoiceRepo) Delete(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM invoices WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	return requireAffected(res)
}
