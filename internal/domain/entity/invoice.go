package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de la factura.
const (
	InvoiceStatusDraft   = "DRAFT"   // Solo en memoria, mientras se edita
	InvoiceStatusSaved   = "SAVED"   // Persistida con número asignado
	InvoiceStatusPrinted = "PRINTED" // Ya se generó el PDF en disco
)

// Invoice representa la cabecera de una factura.
// Number = Prefix + Sequence con relleno de ceros; es único.
type Invoice struct {
	ID         string
	Number     string
	Prefix     string
	Sequence   int64
	Date       time.Time
	CustomerID string
	Subtotal   decimal.Decimal
	TaxRate    decimal.Decimal // fracción: 0.10 = 10%
	Tax        decimal.Decimal
	Total      decimal.Decimal
	Notes      string
	Status     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// InvoiceSummary fila de listado (factura + nombre del cliente).
type InvoiceSummary struct {
	ID           string
	Number       string
	Date         time.Time
	CustomerID   string
	CustomerName string
	Total        decimal.Decimal
	Status       string
}
