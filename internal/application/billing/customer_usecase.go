package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/kmc-invoice/internal/application/dto"
	"github.com/jhoicas/kmc-invoice/internal/domain"
	"github.com/jhoicas/kmc-invoice/internal/domain/entity"
	"github.com/jhoicas/kmc-invoice/internal/domain/repository"
)

// CustomerUseCase casos de uso para clientes.
type CustomerUseCase struct {
	tx       TxRunner
	repo     repository.CustomerRepository
	invoices repository.InvoiceRepository
	log      zerolog.Logger
	now      func() time.Time
}

// NewCustomerUseCase construye el caso de uso.
func NewCustomerUseCase(tx TxRunner, repo repository.CustomerRepository, invoices repository.InvoiceRepository, log zerolog.Logger) *CustomerUseCase {
	return &CustomerUseCase{tx: tx, repo: repo, invoices: invoices, log: log, now: time.Now}
}

// Create crea un nuevo cliente. El nombre es obligatorio.
func (uc *CustomerUseCase) Create(ctx context.Context, in dto.CustomerRequest) (*dto.CustomerResponse, error) {
	in = trimCustomer(in)
	if in.Name == "" {
		return nil, fmt.Errorf("%w: el nombre del cliente es obligatorio", domain.ErrInvalidInput)
	}
	now := uc.now()
	customer := &entity.Customer{
		ID:        uuid.New().String(),
		Name:      in.Name,
		Phone:     in.Phone,
		Address:   in.Address,
		TaxID:     in.TaxID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.repo.Create(ctx, customer); err != nil {
		return nil, err
	}
	uc.log.Info().Str("customer_id", customer.ID).Str("name", customer.Name).Msg("cliente creado")
	return toCustomerResponse(customer), nil
}

// Update edita los datos de un cliente existente.
func (uc *CustomerUseCase) Update(ctx context.Context, id string, in dto.CustomerRequest) (*dto.CustomerResponse, error) {
	in = trimCustomer(in)
	if in.Name == "" {
		return nil, fmt.Errorf("%w: el nombre del cliente es obligatorio", domain.ErrInvalidInput)
	}
	customer, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, domain.ErrNotFound
	}
	customer.Name = in.Name
	customer.Phone = in.Phone
	customer.Address = in.Address
	customer.TaxID = in.TaxID
	customer.UpdatedAt = uc.now()
	if err := uc.repo.Update(ctx, customer); err != nil {
		return nil, err
	}
	return toCustomerResponse(customer), nil
}

// Get obtiene un cliente por ID.
func (uc *CustomerUseCase) Get(ctx context.Context, id string) (*dto.CustomerResponse, error) {
	customer, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, domain.ErrNotFound
	}
	return toCustomerResponse(customer), nil
}

// List lista clientes filtrando por nombre o teléfono.
func (uc *CustomerUseCase) List(ctx context.Context, page dto.PageRequest) ([]*dto.CustomerResponse, error) {
	page.DefaultPage()
	list, err := uc.repo.List(ctx, strings.TrimSpace(page.Query), page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.CustomerResponse, 0, len(list))
	for _, c := range list {
		out = append(out, toCustomerResponse(c))
	}
	return out, nil
}

// Delete borra un cliente en dos fases: primero cuenta sus facturas; si tiene y force es
// false devuelve domain.ErrHasDependents sin tocar nada. Con force borra, en una sola
// transacción, las líneas, las facturas y por último el cliente.
func (uc *CustomerUseCase) Delete(ctx context.Context, id string, force bool) (*dto.DeleteCustomerResponse, error) {
	customer, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, domain.ErrNotFound
	}

	count, err := uc.invoices.CountByCustomer(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("contar facturas del cliente: %w", err)
	}
	if count > 0 && !force {
		return nil, fmt.Errorf("%w: el cliente %q tiene %d factura(s)", domain.ErrHasDependents, customer.Name, count)
	}

	deleted := 0
	err = uc.tx.RunBilling(ctx, func(
		customerRepo repository.CustomerRepository,
		invoiceRepo repository.InvoiceRepository,
		_ repository.SequenceRepository,
	) error {
		ids, err := invoiceRepo.ListIDsByCustomer(ctx, id)
		if err != nil {
			return err
		}
		for _, invoiceID := range ids {
			if err := invoiceRepo.DeleteItemsByInvoiceID(ctx, invoiceID); err != nil {
				return err
			}
			if err := invoiceRepo.Delete(ctx, invoiceID); err != nil {
				return err
			}
		}
		deleted = len(ids)
		return customerRepo.Delete(ctx, id)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: borrar cliente: %w", domain.ErrPersistence, err)
	}
	uc.log.Info().Str("customer_id", id).Int("invoices", deleted).Bool("force", force).Msg("cliente eliminado")
	return &dto.DeleteCustomerResponse{CustomerID: id, Invoices: deleted}, nil
}

// getOrCreate busca el cliente por nombre (y teléfono si viene) o lo crea con el repositorio dado.
func (uc *CustomerUseCase) getOrCreate(ctx context.Context, repo repository.CustomerRepository, in dto.CustomerRequest) (*entity.Customer, error) {
	in = trimCustomer(in)
	if in.Name == "" {
		return nil, fmt.Errorf("%w: el nombre del cliente es obligatorio", domain.ErrInvalidInput)
	}
	existing, err := repo.FindByName(ctx, in.Name, in.Phone)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	now := uc.now()
	customer := &entity.Customer{
		ID:        uuid.New().String(),
		Name:      in.Name,
		Phone:     in.Phone,
		Address:   in.Address,
		TaxID:     in.TaxID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.Create(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

func trimCustomer(in dto.CustomerRequest) dto.CustomerRequest {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Address = strings.TrimSpace(strings.ReplaceAll(in.Address, "\r", ""))
	in.TaxID = strings.TrimSpace(in.TaxID)
	return in
}

func toCustomerResponse(c *entity.Customer) *dto.CustomerResponse {
	return &dto.CustomerResponse{
		ID:      c.ID,
		Name:    c.Name,
		Phone:   c.Phone,
		Address: c.Address,
		TaxID:   c.TaxID,
	}
}
