package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jhoicas/kmc-invoice/internal/domain"
	"github.com/jhoicas/kmc-invoice/internal/domain/entity"
	"github.com/jhoicas/kmc-invoice/internal/domain/repository"
)

var _ repository.CustomerRepository = (*CustomerRepo)(nil)

// CustomerRepo implementación de CustomerRepository (usable con db o tx).
type CustomerRepo struct {
	q sqlx.ExtContext
}

// NewCustomerRepository construye el adaptador. Pasar *sqlx.DB o *sqlx.Tx.
func NewCustomerRepository(q sqlx.ExtContext) *CustomerRepo {
	return &CustomerRepo{q: q}
}

type customerRow struct {
	ID        string `db:"id"`
	Name      string `db:"name"`
	Phone     string `db:"phone"`
	Address   string `db:"address"`
	TaxID     string `db:"tax_id"`
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

func (r customerRow) toEntity() (*entity.Customer, error) {
	created, err := parseTime(r.CreatedAt)
	if err != nil {
		return nil, err
	}
	updated, err := parseTime(r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &entity.Customer{
		ID:        r.ID,
		Name:      r.Name,
		Phone:     r.Phone,
		Address:   r.Address,
		TaxID:     r.TaxID,
		CreatedAt: created,
		UpdatedAt: updated,
	}, nil
}

const customerColumns = `id, name, phone, address, tax_id, created_at, updated_at`

// Create persiste un nuevo cliente.
func (r *CustomerRepo) Create(ctx context.Context, c *entity.Customer) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO customers (id, name, phone, address, tax_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Phone, c.Address, c.TaxID, formatTime(c.CreatedAt), formatTime(c.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

// GetByID obtiene un cliente por ID.
func (r *CustomerRepo) GetByID(ctx context.Context, id string) (*entity.Customer, error) {
	var row customerRow
	err := sqlx.GetContext(ctx, r.q, &row, `SELECT `+customerColumns+` FROM customers WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return row.toEntity()
}

// FindByName busca por nombre exacto sin distinguir mayúsculas (y teléfono si se indica).
// Si hay varios devuelve el más antiguo.
func (r *CustomerRepo) FindByName(ctx context.Context, name, phone string) (*entity.Customer, error) {
	var row customerRow
	err := sqlx.GetContext(ctx, r.q, &row, `
		SELECT `+customerColumns+` FROM customers
		WHERE name = ? COLLATE NOCASE AND (? = '' OR phone = ?)
		ORDER BY created_at, id
		LIMIT 1`, name, phone, phone)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find customer by name: %w", err)
	}
	return row.toEntity()
}

// List lista clientes por nombre; query filtra por nombre o teléfono.
func (r *CustomerRepo) List(ctx context.Context, query string, limit, offset int) ([]*entity.Customer, error) {
	var rows []customerRow
	err := sqlx.SelectContext(ctx, r.q, &rows, `
		SELECT `+customerColumns+` FROM customers
		WHERE (? = '' OR name LIKE ? OR phone LIKE ?)
		ORDER BY name COLLATE NOCASE, id
		LIMIT ? OFFSET ?`, query, likePattern(query), likePattern(query), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	out := make([]*entity.Customer, 0, len(rows))
	for _, row := range rows {
		c, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Update actualiza los datos de contacto.
func (r *CustomerRepo) Update(ctx context.Context, c *entity.Customer) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE customers SET name = ?, phone = ?, address = ?, tax_id = ?, updated_at = ?
		WHERE id = ?`,
		c.Name, c.Phone, c.Address, c.TaxID, formatTime(c.UpdatedAt), c.ID,
	)
	if err != nil {
		return fmt.Errorf("update customer: %w", err)
	}
	return requireAffected(res)
}

// Delete elimina el cliente. Falla por clave foránea si aún tiene facturas.
func (r *CustomerRepo) Delete(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM customers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
