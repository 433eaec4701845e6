package repository

import (
	"context"

	"github.com/jhoicas/kmc-invoice/internal/domain/entity"
)

// CustomerRepository define el puerto de persistencia para Customer.
// Los Get/Find devuelven (nil, nil) cuando no existe el registro.
type CustomerRepository interface {
	Create(ctx context.Context, customer *entity.Customer) error
	GetByID(ctx context.Context, id string) (*entity.Customer, error)
	// FindByName busca por nombre sin distinguir mayúsculas; si phone no está vacío también filtra por teléfono.
	FindByName(ctx context.Context, name, phone string) (*entity.Customer, error)
	// List filtra por nombre/teléfono (query vacío = todos), ordenado por nombre.
	List(ctx context.Context, query string, limit, offset int) ([]*entity.Customer, error)
	Update(ctx context.Context, customer *entity.Customer) error
	Delete(ctx context.Context, id string) error
}
