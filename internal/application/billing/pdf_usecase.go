package billing

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/kmc-invoice/internal/application/dto"
	"github.com/jhoicas/kmc-invoice/internal/domain"
	"github.com/jhoicas/kmc-invoice/internal/domain/entity"
	"github.com/jhoicas/kmc-invoice/internal/domain/repository"
)

// PDFUseCase genera el PDF de una factura guardada, lo escribe en disco y lo manda a imprimir.
// Los fallos aquí nunca deshacen el guardado de la factura.
type PDFUseCase struct {
	invoices    *InvoiceUseCase
	invoiceRepo repository.InvoiceRepository
	generator   InvoicePDFGenerator
	printer     Printer
	outputDir   string
	log         zerolog.Logger
}

// NewPDFUseCase construye el caso de uso. outputDir es la carpeta por defecto de los PDF.
func NewPDFUseCase(
	invoices *InvoiceUseCase,
	invoiceRepo repository.InvoiceRepository,
	generator InvoicePDFGenerator,
	printer Printer,
	outputDir string,
	log zerolog.Logger,
) *PDFUseCase {
	if outputDir == "" {
		outputDir = "invoices"
	}
	return &PDFUseCase{
		invoices:    invoices,
		invoiceRepo: invoiceRepo,
		generator:   generator,
		printer:     printer,
		outputDir:   outputDir,
		log:         log,
	}
}

// Render genera el PDF de la factura y devuelve los bytes junto con el nombre de archivo sugerido.
//
// Retorna:
//   - domain.ErrNotFound si la factura no existe.
//   - un error que envuelve domain.ErrRender (y domain.ErrUnrenderableText si aplica).
func (uc *PDFUseCase) Render(ctx context.Context, number string) (pdfBytes []byte, filename string, err error) {
	doc, err := uc.invoices.load(ctx, number)
	if err != nil {
		return nil, "", err
	}
	pdfBytes, err = uc.generator.GenerateInvoicePDF(ctx, doc)
	if err != nil {
		uc.log.Error().Err(err).Str("number", doc.Invoice.Number).Msg("no se pudo generar el PDF")
		return nil, "", fmt.Errorf("%w: factura %s: %w", domain.ErrRender, doc.Invoice.Number, err)
	}
	return pdfBytes, FileName(doc.Invoice), nil
}

// Export escribe el PDF en dir (o en la carpeta por defecto) y marca la factura como impresa.
// Devuelve la ruta del archivo.
func (uc *PDFUseCase) Export(ctx context.Context, number, dir string) (string, error) {
	number = strings.TrimSpace(number)
	pdfBytes, filename, err := uc.Render(ctx, number)
	if err != nil {
		return "", err
	}
	if dir == "" {
		dir = uc.outputDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("crear carpeta de salida: %w", err)
	}
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, pdfBytes, 0o644); err != nil {
		return "", fmt.Errorf("escribir PDF: %w", err)
	}

	inv, err := uc.invoiceRepo.GetByNumber(ctx, number)
	if err == nil && inv != nil && inv.Status != entity.InvoiceStatusPrinted {
		if err := uc.invoiceRepo.UpdateStatus(ctx, inv.ID, entity.InvoiceStatusPrinted, time.Now()); err != nil {
			uc.log.Warn().Err(err).Str("number", number).Msg("no se pudo marcar la factura como impresa")
		}
	}
	uc.log.Info().Str("number", number).Str("path", path).Int("bytes", len(pdfBytes)).Msg("PDF generado")
	return path, nil
}

// Print exporta el PDF y lo envía a la impresora. Si la impresión falla se abre el
// archivo para imprimirlo a mano; esos fallos se registran pero no se devuelven.
func (uc *PDFUseCase) Print(ctx context.Context, number string) (*dto.PrintResponse, error) {
	number = strings.TrimSpace(number)
	path, err := uc.Export(ctx, number, "")
	if err != nil {
		return nil, err
	}
	resp := &dto.PrintResponse{Number: number, Path: path}
	if uc.printer == nil {
		return resp, nil
	}
	if err := uc.printer.Print(ctx, path); err != nil {
		uc.log.Warn().Err(err).Str("path", path).Msg("impresión automática falló, se abre el PDF")
		if err := uc.printer.Open(ctx, path); err != nil {
			uc.log.Error().Err(err).Str("path", path).Msg("no se pudo abrir el PDF")
		}
		return resp, nil
	}
	resp.Printed = true
	return resp, nil
}

// FileName nombre determinista del PDF: <número>_<aaaa-mm-dd>.pdf.
func FileName(inv *entity.Invoice) string {
	return sanitizeFileName(inv.Number) + "_" + inv.Date.Format(DateLayout) + ".pdf"
}

func sanitizeFileName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, s)
}
