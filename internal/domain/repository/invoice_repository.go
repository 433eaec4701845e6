package repository

import (
	"context"
	"time"

	"github.com/jhoicas/kmc-invoice/internal/domain/entity"
)

// InvoiceRepository define el puerto de persistencia para Invoice y sus líneas.
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *entity.Invoice) error
	CreateItem(ctx context.Context, item *entity.InvoiceItem) error
	UpdateStatus(ctx context.Context, id, status string, at time.Time) error
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)
	GetByNumber(ctx context.Context, number string) (*entity.Invoice, error)
	// GetItemsByInvoiceID devuelve las líneas en el orden de captura.
	GetItemsByInvoiceID(ctx context.Context, invoiceID string) ([]*entity.InvoiceItem, error)
	// List ordena por fecha e id descendentes; query filtra por número o nombre de cliente.
	List(ctx context.Context, query string, limit int) ([]*entity.InvoiceSummary, error)
	ListIDsByCustomer(ctx context.Context, customerID string) ([]string, error)
	CountByCustomer(ctx context.Context, customerID string) (int, error)
	DeleteItemsByInvoiceID(ctx context.Context, invoiceID string) error
	Delete(ctx context.Context, id string) error
}
