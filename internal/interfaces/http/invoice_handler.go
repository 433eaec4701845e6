package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/kmc-invoice/internal/application/billing"
	"github.com/jhoicas/kmc-invoice/internal/application/dto"
)

// InvoiceHandler maneja numeración, facturas y su PDF.
type InvoiceHandler struct {
	invoices  *billing.InvoiceUseCase
	pdf       *billing.PDFUseCase
	autoPrint bool
	log       zerolog.Logger
}

// NewInvoiceHandler construye el handler. Con autoPrint cada factura guardada se imprime.
func NewInvoiceHandler(invoices *billing.InvoiceUseCase, pdf *billing.PDFUseCase, autoPrint bool, log zerolog.Logger) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices, pdf: pdf, autoPrint: autoPrint, log: log}
}

// NextNumber vista previa del próximo número; no lo consume.
// GET /api/invoices/next-number
func (h *InvoiceHandler) NextNumber(c *fiber.Ctx) error {
	res, err := h.invoices.NextNumber(c.Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(res)
}

// Save guarda la factura asignándole número.
// POST /api/invoices?print=true
func (h *InvoiceHandler) Save(c *fiber.Ctx) error {
	var in dto.SaveInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	invoice, err := h.invoices.Save(c.Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	res := dto.SavedInvoiceResponse{InvoiceResponse: invoice}
	// La factura ya está guardada: un fallo al generar el PDF se informa en "print", sin deshacerla.
	if c.QueryBool("print", h.autoPrint) {
		printed, err := h.pdf.Print(c.Context(), invoice.Number)
		if err != nil {
			h.log.Warn().Err(err).Str("number", invoice.Number).Msg("impresión tras guardar falló")
			_, code := errorStatus(err)
			res.Print = &dto.PrintResult{Error: &dto.ErrorResponse{Code: code, Message: err.Error()}}
		} else {
			res.Print = &dto.PrintResult{PrintResponse: printed}
		}
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

// List GET /api/invoices?q=&limit=20
func (h *InvoiceHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return badBody(c)
	}
	list, err := h.invoices.List(c.Context(), page)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(list)
}

// GetByNumber GET /api/invoices/:number
func (h *InvoiceHandler) GetByNumber(c *fiber.Ctx) error {
	invoice, err := h.invoices.Get(c.Context(), c.Params("number"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(invoice)
}

// Delete DELETE /api/invoices/:number
func (h *InvoiceHandler) Delete(c *fiber.Ctx) error {
	if err := h.invoices.Delete(c.Context(), c.Params("number")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// PDF devuelve el documento sin escribirlo en disco.
// GET /api/invoices/:number/pdf
func (h *InvoiceHandler) PDF(c *fiber.Ctx) error {
	body, filename, err := h.pdf.Render(c.Context(), c.Params("number"))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", filename))
	return c.Send(body)
}

// Export escribe el PDF en la carpeta de salida.
// POST /api/invoices/:number/export
func (h *InvoiceHandler) Export(c *fiber.Ctx) error {
	number := c.Params("number")
	path, err := h.pdf.Export(c.Context(), number, "")
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.PrintResponse{Number: number, Path: path})
}

// Print exporta y manda a la impresora; si falla se abre el PDF (printed=false).
// POST /api/invoices/:number/print
func (h *InvoiceHandler) Print(c *fiber.Ctx) error {
	res, err := h.pdf.Print(c.Context(), c.Params("number"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(res)
}
