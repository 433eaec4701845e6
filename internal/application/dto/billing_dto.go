package dto

import "github.com/shopspring/decimal"

// CustomerRequest body para crear/editar un cliente.
type CustomerRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
	TaxID   string `json:"tax_id,omitempty"`
}

// CustomerResponse cliente en respuestas.
type CustomerResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
	TaxID   string `json:"tax_id,omitempty"`
}

// DeleteCustomerResponse resultado del borrado (Invoices = facturas eliminadas en cascada).
type DeleteCustomerResponse struct {
	CustomerID string `json:"customer_id"`
	Invoices   int    `json:"invoices_deleted"`
}

// SaveInvoiceRequest body para guardar una factura.
// Se indica CustomerID o bien Customer (se busca por nombre/teléfono o se crea).
type SaveInvoiceRequest struct {
	CustomerID string               `json:"customer_id,omitempty"`
	Customer   *CustomerRequest     `json:"customer,omitempty"`
	Date       string               `json:"date,omitempty"` // yyyy-mm-dd; vacío = hoy
	Notes      string               `json:"notes,omitempty"`
	Items      []InvoiceItemRequest `json:"items"`
}

// InvoiceItemRequest línea de factura.
type InvoiceItemRequest struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// InvoiceResponse factura completa con cliente y líneas.
type InvoiceResponse struct {
	ID       string                `json:"id"`
	Number   string                `json:"number"`
	Date     string                `json:"date"`
	Status   string                `json:"status"`
	Customer CustomerResponse      `json:"customer"`
	Subtotal decimal.Decimal       `json:"subtotal"`
	TaxRate  decimal.Decimal       `json:"tax_rate"`
	Tax      decimal.Decimal       `json:"tax"`
	Total    decimal.Decimal       `json:"total"`
	Notes    string                `json:"notes,omitempty"`
	Items    []InvoiceItemResponse `json:"items"`
}

// InvoiceItemResponse línea en la respuesta.
type InvoiceItemResponse struct {
	Position    int             `json:"position"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
}

// InvoiceSummaryResponse fila del listado de facturas.
type InvoiceSummaryResponse struct {
	Number       string          `json:"number"`
	Date         string          `json:"date"`
	CustomerName string          `json:"customer_name"`
	Total        decimal.Decimal `json:"total"`
	Status       string          `json:"status"`
}

// NextNumberResponse vista previa del próximo número (no lo consume).
type NextNumberResponse struct {
	Number string `json:"number"`
}

// PrintResponse resultado de exportar/imprimir el PDF.
type PrintResponse struct {
	Number  string `json:"number"`
	Path    string `json:"path"`
	Printed bool   `json:"printed"` // false = se abrió para impresión manual
}

// PrintResult impresión pedida al guardar: el PDF generado o el error que lo impidió.
type PrintResult struct {
	*PrintResponse
	Error *ErrorResponse `json:"error,omitempty"`
}

// SavedInvoiceResponse factura recién guardada más el resultado de imprimirla, si se pidió.
type SavedInvoiceResponse struct {
	*InvoiceResponse
	Print *PrintResult `json:"print,omitempty"`
}
