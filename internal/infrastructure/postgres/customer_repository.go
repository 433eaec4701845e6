package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/kmc-invoice/internal/domain"
	"github.com/jhoicas/kmc-invoice/internal/domain/entity"
	"github.com/jhoicas/kmc-invoice/internal/domain/repository"
)

var _ repository.CustomerRepository = (*CustomerRepo)(nil)

// CustomerRepo implementación de CustomerRepository (usable con pool o tx).
type CustomerRepo struct {
	q Querier
}

// NewCustomerRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCustomerRepository(q Querier) *CustomerRepo {
	return &CustomerRepo{q: q}
}

const customerColumns = `id, name, phone, address, tax_id, created_at, updated_at`

func scanCustomer(row pgx.Row) (*entity.Customer, error) {
	var c entity.Customer
	if err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Address, &c.TaxID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// Create persiste un nuevo cliente.
func (r *CustomerRepo) Create(ctx context.Context, c *entity.Customer) error {
	query := `
		INSERT INTO customers (` + customerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, query,
		c.ID, c.Name, c.Phone, c.Address, c.TaxID, c.CreatedAt, c.UpdatedAt,
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
	c, err := scanCustomer(r.q.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return c, nil
}

// FindByName busca por nombre sin distinguir mayúsculas (y teléfono si se indica).
func (r *CustomerRepo) FindByName(ctx context.Context, name, phone string) (*entity.Customer, error) {
	query := `
		SELECT ` + customerColumns + ` FROM customers
		WHERE lower(name) = lower($1) AND ($2 = '' OR phone = $2)
		ORDER BY created_at, id
		LIMIT 1`
	c, err := scanCustomer(r.q.QueryRow(ctx, query, name, phone))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find customer by name: %w", err)
	}
	return c, nil
}

// List lista clientes por nombre; query filtra por nombre o teléfono.
func (r *CustomerRepo) List(ctx context.Context, query string, limit, offset int) ([]*entity.Customer, error) {
	sql := `
		SELECT ` + customerColumns + ` FROM customers
		WHERE ($1 = '' OR name ILIKE $2 OR phone ILIKE $2)
		ORDER BY lower(name), id
		LIMIT $3 OFFSET $4`
	rows, err := r.q.Query(ctx, sql, query, likePattern(query), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var list []*entity.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// Update actualiza los datos de contacto.
func (r *CustomerRepo) Update(ctx context.Context, c *entity.Customer) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE customers SET name = $1, phone = $2, address = $3, tax_id = $4, updated_at = $5
		WHERE id = $6`,
		c.Name, c.Phone, c.Address, c.TaxID, c.UpdatedAt, c.ID,
	)
	if err != nil {
		return fmt.Errorf("update customer: %w", err)
	}
	return requireAffected(tag)
}

// Delete elimina el cliente. Falla por clave foránea si aún tiene facturas.
func (r *CustomerRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	return requireAffected(tag)
}
