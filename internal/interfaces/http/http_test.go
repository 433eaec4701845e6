package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/kmc-invoice/internal/application/billing"
	"github.com/jhoicas/kmc-invoice/internal/application/dto"
	"github.com/jhoicas/kmc-invoice/internal/domain/entity"
	infrapdf "github.com/jhoicas/kmc-invoice/internal/infrastructure/pdf"
	"github.com/jhoicas/kmc-invoice/internal/infrastructure/sqlite"
	apphttp "github.com/jhoicas/kmc-invoice/internal/interfaces/http"
	"github.com/jhoicas/kmc-invoice/pkg/config"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

type generadorFalso struct{}

func (generadorFalso) GenerateInvoicePDF(_ context.Context, doc billing.InvoiceDocument) ([]byte, error) {
	return []byte("%PDF-1.3 " + doc.Invoice.Number), nil
}

type impresoraFalsa struct{ printed []string }

func (p *impresoraFalsa) Print(_ context.Context, path string) error {
	p.printed = append(p.printed, path)
	return nil
}

func (p *impresoraFalsa) Open(context.Context, string) error { return nil }

type app struct {
	fiber   *fiber.App
	printer *impresoraFalsa
	outDir  string
}

// buildTestApp arma la API sobre SQLite en un directorio temporal.
// Usa Router directamente: app.Test no llega desde loopback y LoopbackOnly lo rechazaría.
func buildTestApp(t *testing.T) *app {
	t.Helper()
	return buildTestAppCon(t, generadorFalso{})
}

func buildTestAppCon(t *testing.T, gen billing.InvoicePDFGenerator) *app {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	db, err := sqlite.Open(ctx, filepath.Join(dir, "kmc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlite.Migrate(ctx, db))

	store, err := config.NewSettingsStore(filepath.Join(dir, "settings.json"))
	require.NoError(t, err)

	log := zerolog.Nop()
	tx := sqlite.NewTxRunner(db)
	customerRepo := sqlite.NewCustomerRepository(db)
	invoiceRepo := sqlite.NewInvoiceRepository(db)
	allocator := billing.NewNumberAllocator(tx, sqlite.NewSequenceRepository(db), store, log)
	customers := billing.NewCustomerUseCase(tx, customerRepo, invoiceRepo, log)
	invoices := billing.NewInvoiceUseCase(tx, allocator, customers, invoiceRepo, customerRepo, store, log)
	printer := &impresoraFalsa{}
	outDir := filepath.Join(dir, "invoices")
	pdfUC := billing.NewPDFUseCase(invoices, invoiceRepo, gen, printer, outDir, log)

	f := fiber.New()
	apphttp.Router(f, apphttp.RouterDeps{
		CustomerUC: customers,
		InvoiceUC:  invoices,
		PDFUC:      pdfUC,
		Settings:   store,
		Log:        log,
	})
	return &app{fiber: f, printer: printer, outDir: outDir}
}

func (a *app) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := a.fiber.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func facturaEjemplo() dto.SaveInvoiceRequest {
	return dto.SaveInvoiceRequest{
		Customer: &dto.CustomerRequest{Name: "Ramesh Patel", Phone: "9000000001"},
		Date:     "2024-03-15",
		Items: []dto.InvoiceItemRequest{
			{Description: "Widget", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.RequireFromString("50.00")},
			{Description: "Gadget", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("100.00")},
		},
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Facturas
// ──────────────────────────────────────────────────────────────────────────────

func TestInvoices_FlujoCompleto(t *testing.T) {
	a := buildTestApp(t)

	resp := a.do(t, http.MethodPut, "/api/settings", map[string]any{"tax_rate": "0.10"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var next dto.NextNumberResponse
	resp = a.do(t, http.MethodGet, "/api/invoices/next-number", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decode(t, resp, &next)
	assert.Equal(t, "KMC-0001", next.Number)

	var saved dto.InvoiceResponse
	resp = a.do(t, http.MethodPost, "/api/invoices", facturaEjemplo())
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	decode(t, resp, &saved)
	assert.Equal(t, "KMC-0001", saved.Number)
	assert.True(t, saved.Total.Equal(decimal.RequireFromString("220.00")), saved.Total.String())
	assert.Empty(t, a.printer.printed, "sin autoPrint no se imprime")

	var got dto.InvoiceResponse
	resp = a.do(t, http.MethodGet, "/api/invoices/KMC-0001", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decode(t, resp, &got)
	assert.Len(t, got.Items, 2)
	assert.Equal(t, "Ramesh Patel", got.Customer.Name)

	var list []dto.InvoiceSummaryResponse
	resp = a.do(t, http.MethodGet, "/api/invoices?q=ramesh", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decode(t, resp, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "2024-03-15", list[0].Date)

	resp = a.do(t, http.MethodGet, "/api/invoices/KMC-0001/pdf", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "KMC-0001_2024-03-15.pdf")

	var printed dto.PrintResponse
	resp = a.do(t, http.MethodPost, "/api/invoices/KMC-0001/print", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decode(t, resp, &printed)
	assert.True(t, printed.Printed)
	assert.Equal(t, filepath.Join(a.outDir, "KMC-0001_2024-03-15.pdf"), printed.Path)

	resp = a.do(t, http.MethodGet, "/api/invoices/KMC-0001", nil)
	decode(t, resp, &got)
	assert.Equal(t, entity.InvoiceStatusPrinted, got.Status)

	resp = a.do(t, http.MethodDelete, "/api/invoices/KMC-0001", nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	resp = a.do(t, http.MethodGet, "/api/invoices/KMC-0001", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	// El contador no retrocede al borrar.
	resp = a.do(t, http.MethodGet, "/api/invoices/next-number", nil)
	decode(t, resp, &next)
	assert.Equal(t, "KMC-0002", next.Number)
}

func TestInvoices_GuardarConAutoImpresion(t *testing.T) {
	a := buildTestApp(t)

	resp := a.do(t, http.MethodPost, "/api/invoices?print=true", facturaEjemplo())
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Len(t, a.printer.printed, 1)

	var saved dto.SavedInvoiceResponse
	decode(t, resp, &saved)
	assert.Equal(t, "KMC-0001", saved.Number)
	require.NotNil(t, saved.Print)
	assert.Nil(t, saved.Print.Error)
	require.NotNil(t, saved.Print.PrintResponse)
	assert.True(t, saved.Print.Printed)
	assert.Equal(t, filepath.Join(a.outDir, "KMC-0001_2024-03-15.pdf"), saved.Print.Path)
}

func TestInvoices_GuardarEImprimir_FalloDelPDFSeInforma(t *testing.T) {
	a := buildTestAppCon(t, infrapdf.NewMarotoPDFGenerator())

	in := facturaEjemplo()
	in.Customer.Name = "Ωmega Traders"
	resp := a.do(t, http.MethodPost, "/api/invoices?print=true", in)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, "la factura se guarda aunque el PDF falle")

	var saved dto.SavedInvoiceResponse
	decode(t, resp, &saved)
	assert.Equal(t, "KMC-0001", saved.Number)
	assert.Equal(t, entity.InvoiceStatusSaved, saved.Status)
	require.NotNil(t, saved.Print)
	assert.Nil(t, saved.Print.PrintResponse)
	require.NotNil(t, saved.Print.Error)
	assert.Equal(t, "UNRENDERABLE_TEXT", saved.Print.Error.Code)
	assert.NotEmpty(t, saved.Print.Error.Message)
	assert.Empty(t, a.printer.printed)

	resp = a.do(t, http.MethodGet, "/api/invoices/KMC-0001", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestInvoices_GuardarSinImprimir_SinBloquePrint(t *testing.T) {
	a := buildTestApp(t)

	resp := a.do(t, http.MethodPost, "/api/invoices", facturaEjemplo())
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var body map[string]any
	decode(t, resp, &body)
	assert.NotContains(t, body, "print")
	assert.Equal(t, "KMC-0001", body["number"])
}

func TestInvoices_Errores(t *testing.T) {
	a := buildTestApp(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"sin líneas", http.MethodPost, "/api/invoices", dto.SaveInvoiceRequest{Customer: &dto.CustomerRequest{Name: "X"}}, fiber.StatusBadRequest, "VALIDATION"},
		{"cliente inexistente", http.MethodPost, "/api/invoices", dto.SaveInvoiceRequest{
			CustomerID: "no-existe",
			Items:      []dto.InvoiceItemRequest{{Description: "A", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(1)}},
		}, fiber.StatusNotFound, "NOT_FOUND"},
		{"factura inexistente", http.MethodGet, "/api/invoices/KMC-9999", nil, fiber.StatusNotFound, "NOT_FOUND"},
		{"pdf inexistente", http.MethodGet, "/api/invoices/KMC-9999/pdf", nil, fiber.StatusNotFound, "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := a.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			var e dto.ErrorResponse
			decode(t, resp, &e)
			assert.Equal(t, tt.code, e.Code)
		})
	}
}

func TestInvoices_CuerpoInvalido(t *testing.T) {
	a := buildTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/invoices", bytes.NewBufferString("{no json"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.fiber.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

// ──────────────────────────────────────────────────────────────────────────────
// Clientes
// ──────────────────────────────────────────────────────────────────────────────

func TestCustomers_BorradoSeguroYForzado(t *testing.T) {
	a := buildTestApp(t)

	var saved dto.InvoiceResponse
	resp := a.do(t, http.MethodPost, "/api/invoices", facturaEjemplo())
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	decode(t, resp, &saved)
	id := saved.Customer.ID

	resp = a.do(t, http.MethodDelete, "/api/customers/"+id, nil)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	var e dto.ErrorResponse
	decode(t, resp, &e)
	assert.Equal(t, "HAS_DEPENDENTS", e.Code)

	var del dto.DeleteCustomerResponse
	resp = a.do(t, http.MethodDelete, "/api/customers/"+id+"?force=true", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decode(t, resp, &del)
	assert.Equal(t, 1, del.Invoices)

	resp = a.do(t, http.MethodGet, "/api/invoices/"+saved.Number, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	resp = a.do(t, http.MethodGet, "/api/customers/"+id, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestCustomers_CrearEditarListar(t *testing.T) {
	a := buildTestApp(t)

	var c dto.CustomerResponse
	resp := a.do(t, http.MethodPost, "/api/customers", dto.CustomerRequest{Name: "  Anita Shah ", Phone: "9111111111"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	decode(t, resp, &c)
	assert.Equal(t, "Anita Shah", c.Name)

	resp = a.do(t, http.MethodPut, "/api/customers/"+c.ID, dto.CustomerRequest{Name: "Anita R. Shah", Address: "Surat"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decode(t, resp, &c)
	assert.Equal(t, "Surat", c.Address)

	var list []dto.CustomerResponse
	resp = a.do(t, http.MethodGet, "/api/customers?q=anita&limit=5", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decode(t, resp, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "Anita R. Shah", list[0].Name)

	resp = a.do(t, http.MethodPost, "/api/customers", dto.CustomerRequest{Name: "   "})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

// ──────────────────────────────────────────────────────────────────────────────
// Settings y middlewares
// ──────────────────────────────────────────────────────────────────────────────

func TestSettings_ActualizacionParcial(t *testing.T) {
	a := buildTestApp(t)

	var s entity.Settings
	resp := a.do(t, http.MethodPut, "/api/settings", map[string]any{"invoice_prefix": "INV-", "number_width": 6})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decode(t, resp, &s)
	assert.Equal(t, "INV-", s.InvoicePrefix)
	assert.Equal(t, 6, s.NumberWidth)
	assert.Equal(t, "KMC Electrical", s.BusinessName, "los campos omitidos se conservan")

	var next dto.NextNumberResponse
	resp = a.do(t, http.MethodGet, "/api/invoices/next-number", nil)
	decode(t, resp, &next)
	assert.Equal(t, "INV-000001", next.Number)
}

func TestLoopbackOnly(t *testing.T) {
	f := fiber.New(fiber.Config{ProxyHeader: fiber.HeaderXForwardedFor})
	f.Use(apphttp.LoopbackOnly())
	f.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })

	for ip, want := range map[string]int{
		"127.0.0.1": fiber.StatusOK,
		"::1":       fiber.StatusOK,
		"10.0.0.5":  fiber.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(fiber.HeaderXForwardedFor, ip)
		resp, err := f.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, want, resp.StatusCode, ip)
	}
}
