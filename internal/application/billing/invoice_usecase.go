package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/kmc-invoice/internal/application/dto"
	"github.com/jhoicas/kmc-invoice/internal/domain"
	"github.com/jhoicas/kmc-invoice/internal/domain/entity"
	"github.com/jhoicas/kmc-invoice/internal/domain/money"
	"github.com/jhoicas/kmc-invoice/internal/domain/repository"
)

// DateLayout formato de fecha de entrada y salida en la API/CLI.
const DateLayout = "2006-01-02"

// InvoiceUseCase guarda, consulta y elimina facturas.
type InvoiceUseCase struct {
	tx           TxRunner
	allocator    *NumberAllocator
	customers    *CustomerUseCase
	invoiceRepo  repository.InvoiceRepository
	customerRepo repository.CustomerRepository
	settings     SettingsProvider
	log          zerolog.Logger
	now          func() time.Time
}

// NewInvoiceUseCase construye el caso de uso.
func NewInvoiceUseCase(
	tx TxRunner,
	allocator *NumberAllocator,
	customers *CustomerUseCase,
	invoiceRepo repository.InvoiceRepository,
	customerRepo repository.CustomerRepository,
	settings SettingsProvider,
	log zerolog.Logger,
) *InvoiceUseCase {
	return &InvoiceUseCase{
		tx:           tx,
		allocator:    allocator,
		customers:    customers,
		invoiceRepo:  invoiceRepo,
		customerRepo: customerRepo,
		settings:     settings,
		log:          log,
		now:          time.Now,
	}
}

// NextNumber vista previa del número que recibirá la próxima factura. No consume el contador.
func (uc *InvoiceUseCase) NextNumber(ctx context.Context) (*dto.NextNumberResponse, error) {
	number, err := uc.allocator.PeekNext(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.NextNumberResponse{Number: number}, nil
}

// Save valida la factura y la persiste junto con sus líneas y el incremento del contador
// en una sola transacción. Si algo falla no queda nada guardado y el error envuelve
// domain.ErrPersistence (o domain.ErrInvalidInput si la entrada no es válida, o
// domain.ErrDuplicate si el número formateado ya existe).
func (uc *InvoiceUseCase) Save(ctx context.Context, in dto.SaveInvoiceRequest) (*dto.InvoiceResponse, error) {
	date, err := uc.parseDate(in.Date)
	if err != nil {
		return nil, err
	}
	lines, err := normalizeItems(in.Items)
	if err != nil {
		return nil, err
	}
	if in.CustomerID == "" && (in.Customer == nil || strings.TrimSpace(in.Customer.Name) == "") {
		return nil, fmt.Errorf("%w: indique el cliente", domain.ErrInvalidInput)
	}

	s := uc.settings.Current()
	rate := money.NormalizeRate(s.TaxRate)
	amounts := make([]decimal.Decimal, len(lines))
	for i, l := range lines {
		amounts[i] = money.LineAmount(l.Quantity, l.UnitPrice)
	}
	totals := money.ComputeTotals(amounts, rate)

	now := uc.now()
	var (
		inv      *entity.Invoice
		customer *entity.Customer
		items    []*entity.InvoiceItem
	)
	err = uc.tx.RunBilling(ctx, func(
		customerRepo repository.CustomerRepository,
		invoiceRepo repository.InvoiceRepository,
		seqRepo repository.SequenceRepository,
	) error {
		// 1) Cliente: por ID o buscar/crear por nombre
		if in.CustomerID != "" {
			c, err := customerRepo.GetByID(ctx, in.CustomerID)
			if err != nil {
				return err
			}
			if c == nil {
				return fmt.Errorf("%w: cliente %s", domain.ErrNotFound, in.CustomerID)
			}
			customer = c
		} else {
			c, err := uc.customers.getOrCreate(ctx, customerRepo, *in.Customer)
			if err != nil {
				return err
			}
			customer = c
		}

		// 2) Consecutivo (solo queda firme si la transacción hace commit)
		alloc, err := uc.allocator.CommitIn(ctx, seqRepo)
		if err != nil {
			return err
		}

		// 3) Cabecera
		inv = &entity.Invoice{
			ID:         uuid.New().String(),
			Number:     alloc.Number,
			Prefix:     alloc.Prefix,
			Sequence:   alloc.Sequence,
			Date:       date,
			CustomerID: customer.ID,
			Subtotal:   totals.Subtotal,
			TaxRate:    rate,
			Tax:        totals.Tax,
			Total:      totals.Total,
			Notes:      strings.TrimSpace(in.Notes),
			Status:     entity.InvoiceStatusSaved,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := invoiceRepo.Create(ctx, inv); err != nil {
			return err
		}

		// 4) Líneas en orden de captura
		items = make([]*entity.InvoiceItem, 0, len(lines))
		for i, l := range lines {
			item := &entity.InvoiceItem{
				ID:          uuid.New().String(),
				InvoiceID:   inv.ID,
				Position:    i + 1,
				Description: l.Description,
				Quantity:    l.Quantity,
				UnitPrice:   l.UnitPrice,
				Amount:      amounts[i],
			}
			if err := invoiceRepo.CreateItem(ctx, item); err != nil {
				return err
			}
			items = append(items, item)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		// Prefijos y anchos distintos pueden formatear el mismo número (A + 10 y A0 + 10 → A0010).
		if errors.Is(err, domain.ErrDuplicate) {
			uc.log.Warn().Err(err).Msg("número de factura ya usado por otra numeración")
			return nil, fmt.Errorf("%w; ajuste invoice_prefix o number_width para no repetir números", err)
		}
		uc.log.Error().Err(err).Msg("no se pudo guardar la factura")
		return nil, fmt.Errorf("%w: guardar factura: %w", domain.ErrPersistence, err)
	}

	uc.log.Info().
		Str("number", inv.Number).
		Str("customer_id", customer.ID).
		Int("items", len(items)).
		Str("total", inv.Total.StringFixed(2)).
		Msg("factura guardada")
	return toInvoiceResponse(inv, customer, items), nil
}

// Get devuelve la factura con su cliente y líneas.
func (uc *InvoiceUseCase) Get(ctx context.Context, number string) (*dto.InvoiceResponse, error) {
	doc, err := uc.load(ctx, number)
	if err != nil {
		return nil, err
	}
	return toInvoiceResponse(doc.Invoice, doc.Customer, doc.Items), nil
}

// List lista facturas recientes; Query filtra por número o nombre del cliente.
func (uc *InvoiceUseCase) List(ctx context.Context, page dto.PageRequest) ([]*dto.InvoiceSummaryResponse, error) {
	page.DefaultPage()
	list, err := uc.invoiceRepo.List(ctx, strings.TrimSpace(page.Query), page.Limit)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.InvoiceSummaryResponse, 0, len(list))
	for _, s := range list {
		out = append(out, &dto.InvoiceSummaryResponse{
			Number:       s.Number,
			Date:         s.Date.Format(DateLayout),
			CustomerName: s.CustomerName,
			Total:        s.Total,
			Status:       s.Status,
		})
	}
	return out, nil
}

// Delete elimina la factura y sus líneas en una transacción. El contador no retrocede.
func (uc *InvoiceUseCase) Delete(ctx context.Context, number string) error {
	inv, err := uc.invoiceRepo.GetByNumber(ctx, number)
	if err != nil {
		return err
	}
	if inv == nil {
		return domain.ErrNotFound
	}
	err = uc.tx.RunBilling(ctx, func(
		_ repository.CustomerRepository,
		invoiceRepo repository.InvoiceRepository,
		_ repository.SequenceRepository,
	) error {
		if err := invoiceRepo.DeleteItemsByInvoiceID(ctx, inv.ID); err != nil {
			return err
		}
		return invoiceRepo.Delete(ctx, inv.ID)
	})
	if err != nil {
		return fmt.Errorf("%w: borrar factura: %w", domain.ErrPersistence, err)
	}
	uc.log.Info().Str("number", number).Msg("factura eliminada")
	return nil
}

// load reúne factura, cliente, líneas y configuración vigente.
func (uc *InvoiceUseCase) load(ctx context.Context, number string) (InvoiceDocument, error) {
	inv, err := uc.invoiceRepo.GetByNumber(ctx, strings.TrimSpace(number))
	if err != nil {
		return InvoiceDocument{}, fmt.Errorf("obtener factura: %w", err)
	}
	if inv == nil {
		return InvoiceDocument{}, domain.ErrNotFound
	}
	customer, err := uc.customerRepo.GetByID(ctx, inv.CustomerID)
	if err != nil {
		return InvoiceDocument{}, fmt.Errorf("obtener cliente: %w", err)
	}
	if customer == nil {
		return InvoiceDocument{}, fmt.Errorf("%w: cliente %s de la factura %s", domain.ErrNotFound, inv.CustomerID, inv.Number)
	}
	items, err := uc.invoiceRepo.GetItemsByInvoiceID(ctx, inv.ID)
	if err != nil {
		return InvoiceDocument{}, fmt.Errorf("obtener líneas: %w", err)
	}
	return InvoiceDocument{
		Settings: uc.settings.Current(),
		Invoice:  inv,
		Customer: customer,
		Items:    items,
	}, nil
}

func (uc *InvoiceUseCase) parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		n := uc.now()
		return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: fecha %q, use aaaa-mm-dd", domain.ErrInvalidInput, s)
	}
	return d, nil
}

// normalizeItems descarta filas vacías y valida cantidad y precio (≥ 0).
func normalizeItems(in []dto.InvoiceItemRequest) ([]dto.InvoiceItemRequest, error) {
	out := make([]dto.InvoiceItemRequest, 0, len(in))
	for i, it := range in {
		it.Description = strings.TrimSpace(it.Description)
		if it.Description == "" && it.Quantity.IsZero() && it.UnitPrice.IsZero() {
			continue
		}
		if it.Description == "" {
			return nil, fmt.Errorf("%w: la línea %d no tiene descripción", domain.ErrInvalidInput, i+1)
		}
		if it.Quantity.IsNegative() || it.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("%w: la línea %d tiene cantidad o precio negativo", domain.ErrInvalidInput, i+1)
		}
		out = append(out, it)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: la factura no tiene líneas", domain.ErrInvalidInput)
	}
	return out, nil
}

func toInvoiceResponse(inv *entity.Invoice, c *entity.Customer, items []*entity.InvoiceItem) *dto.InvoiceResponse {
	resp := &dto.InvoiceResponse{
		ID:       inv.ID,
		Number:   inv.Number,
		Date:     inv.Date.Format(DateLayout),
		Status:   inv.Status,
		Customer: *toCustomerResponse(c),
		Subtotal: inv.Subtotal,
		TaxRate:  inv.TaxRate,
		Tax:      inv.Tax,
		Total:    inv.Total,
		Notes:    inv.Notes,
		Items:    make([]dto.InvoiceItemResponse, 0, len(items)),
	}
	for _, it := range items {
		resp.Items = append(resp.Items, dto.InvoiceItemResponse{
			Position:    it.Position,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Amount:      it.Amount,
		})
	}
	return resp
}
