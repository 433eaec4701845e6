package billing

import (
	"context"

	"github.com/jhoicas/kmc-invoice/internal/domain/entity"
	"github.com/jhoicas/kmc-invoice/internal/domain/repository"
)

// TxRunner ejecuta fn dentro de una transacción con repositorios atados a ella.
// Si fn devuelve error se hace rollback de todo (contador incluido).
type TxRunner interface {
	RunBilling(ctx context.Context, fn func(
		customerRepo repository.CustomerRepository,
		invoiceRepo repository.InvoiceRepository,
		sequenceRepo repository.SequenceRepository,
	) error) error
}

// SettingsProvider entrega la configuración vigente del negocio.
type SettingsProvider interface {
	Current() entity.Settings
}

// InvoiceDocument datos que necesita el generador de PDF para una factura ya guardada.
type InvoiceDocument struct {
	Settings entity.Settings
	Invoice  *entity.Invoice
	Customer *entity.Customer
	Items    []*entity.InvoiceItem
}

// InvoicePDFGenerator genera el PDF de una factura.
type InvoicePDFGenerator interface {
	GenerateInvoicePDF(ctx context.Context, doc InvoiceDocument) ([]byte, error)
}

// Printer envía un PDF ya escrito en disco a la impresora o lo abre con el visor del sistema.
type Printer interface {
	Print(ctx context.Context, path string) error
	Open(ctx context.Context, path string) error
}

// StaticSettings SettingsProvider de valor fijo (CLI de un solo uso y tests).
type StaticSettings entity.Settings

// Current implementa SettingsProvider.
func (s StaticSettings) Current() entity.Settings { return entity.Settings(s).Normalize() }
