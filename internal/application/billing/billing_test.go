package billing_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/kmc-invoice/internal/application/billing"
	"github.com/jhoicas/kmc-invoice/internal/application/dto"
	"github.com/jhoicas/kmc-invoice/internal/domain"
	"github.com/jhoicas/kmc-invoice/internal/domain/entity"
	"github.com/jhoicas/kmc-invoice/internal/domain/repository"
	"github.com/jhoicas/kmc-invoice/internal/infrastructure/sqlite"
)

// ── Helpers ──────────────────────────────────────────────────────────────────

type entorno struct {
	db        *sqlx.DB
	tx        billing.TxRunner
	allocator *billing.NumberAllocator
	customers *billing.CustomerUseCase
	invoices  *billing.InvoiceUseCase
	seq       repository.SequenceRepository
}

func ajustesPrueba() billing.StaticSettings {
	s := entity.DefaultSettings()
	s.TaxRate = decimal.RequireFromString("0.10")
	return billing.StaticSettings(s)
}

func nuevoEntorno(t *testing.T) *entorno {
	return nuevoEntornoCon(t, nil)
}

// nuevoEntornoCon permite envolver el TxRunner (para inyectar fallos).
func nuevoEntornoCon(t *testing.T, wrap func(billing.TxRunner) billing.TxRunner) *entorno {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "kmc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlite.Migrate(ctx, db))

	var tx billing.TxRunner = sqlite.NewTxRunner(db)
	if wrap != nil {
		tx = wrap(tx)
	}
	log := zerolog.Nop()
	seq := sqlite.NewSequenceRepository(db)
	customerRepo := sqlite.NewCustomerRepository(db)
	invoiceRepo := sqlite.NewInvoiceRepository(db)
	settings := ajustesPrueba()

	allocator := billing.NewNumberAllocator(tx, seq, settings, log)
	customers := billing.NewCustomerUseCase(tx, customerRepo, invoiceRepo, log)
	invoices := billing.NewInvoiceUseCase(tx, allocator, customers, invoiceRepo, customerRepo, settings, log)
	return &entorno{db: db, tx: tx, allocator: allocator, customers: customers, invoices: invoices, seq: seq}
}

func facturaEjemplo(nombre string) dto.SaveInvoiceRequest {
	return dto.SaveInvoiceRequest{
		Customer: &dto.CustomerRequest{Name: nombre, Phone: "9000000001"},
		Date:     "2024-03-15",
		Items: []dto.InvoiceItemRequest{
			{Description: "Widget", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.RequireFromString("50.00")},
			{Description: "Gadget", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("100.00")},
		},
	}
}

// ── Numeración ───────────────────────────────────────────────────────────────

func TestPeekNext_NoAvanzaElContador(t *testing.T) {
	env := nuevoEntorno(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		n, err := env.allocator.PeekNext(ctx)
		require.NoError(t, err)
		assert.Equal(t, "KMC-0001", n)
	}
	_, found, err := env.seq.Get(ctx, "KMC-")
	require.NoError(t, err)
	assert.False(t, found, "peek no debe crear el contador")
}

func TestCommitNext_SinHuecosYCreciente(t *testing.T) {
	env := nuevoEntorno(t)
	ctx := context.Background()

	var got []string
	for i := 0; i < 12; i++ {
		peek, err := env.allocator.PeekNext(ctx)
		require.NoError(t, err)
		n, err := env.allocator.CommitNext(ctx)
		require.NoError(t, err)
		assert.Equal(t, peek, n, "commit entrega lo que peek anunció")
		got = append(got, n)
	}
	assert.Equal(t, "KMC-0001", got[0])
	assert.Equal(t, "KMC-0012", got[11])

	last, _, err := env.seq.Get(ctx, "KMC-")
	require.NoError(t, err)
	assert.Equal(t, int64(12), last)
}

func TestCommitNext_ContadorCorruptoSeResiembra(t *testing.T) {
	env := nuevoEntorno(t)
	ctx := context.Background()

	_, err := env.invoices.Save(ctx, facturaEjemplo("Ramesh"))
	require.NoError(t, err)
	_, err = env.invoices.Save(ctx, facturaEjemplo("Ramesh"))
	require.NoError(t, err)

	_, err = env.db.Exec(`UPDATE invoice_sequences SET last = 'basura' WHERE prefix = 'KMC-'`)
	require.NoError(t, err)

	// Nunca reutiliza un número ya emitido
	n, err := env.allocator.PeekNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "KMC-0003", n)

	n, err = env.allocator.CommitNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "KMC-0003", n)
}

func TestCommitNext_ContadorBorradoConFacturas(t *testing.T) {
	env := nuevoEntorno(t)
	ctx := context.Background()

	_, err := env.invoices.Save(ctx, facturaEjemplo("Ramesh"))
	require.NoError(t, err)
	_, err = env.db.Exec(`DELETE FROM invoice_sequences`)
	require.NoError(t, err)

	n, err := env.allocator.CommitNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "KMC-0002", n)
}

// ── Guardar factura ──────────────────────────────────────────────────────────

func TestSave_EjemploReferencia(t *testing.T) {
	env := nuevoEntorno(t)
	ctx := context.Background()

	resp, err := env.invoices.Save(ctx, facturaEjemplo("Ramesh Patel"))
	require.NoError(t, err)

	assert.Equal(t, "KMC-0001", resp.Number)
	assert.Equal(t, "2024-03-15", resp.Date)
	assert.Equal(t, entity.InvoiceStatusSaved, resp.Status)
	assert.Equal(t, "200.00", resp.Subtotal.StringFixed(2))
	assert.Equal(t, "20.00", resp.Tax.StringFixed(2))
	assert.Equal(t, "220.00", resp.Total.StringFixed(2))
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "Widget", resp.Items[0].Description)
	assert.Equal(t, "100.00", resp.Items[0].Amount.StringFixed(2))

	next, err := env.invoices.NextNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, "KMC-0002", next.Number)

	got, err := env.invoices.Get(ctx, "KMC-0001")
	require.NoError(t, err)
	assert.Equal(t, "Ramesh Patel", got.Customer.Name)
	assert.Equal(t, "Gadget", got.Items[1].Description)
}

func TestSave_ReutilizaClienteExistente(t *testing.T) {
	env := nuevoEntorno(t)
	ctx := context.Background()

	a, err := env.invoices.Save(ctx, facturaEjemplo("Ramesh Patel"))
	require.NoError(t, err)
	b, err := env.invoices.Save(ctx, facturaEjemplo("ramesh patel"))
	require.NoError(t, err)
	assert.Equal(t, a.Customer.ID, b.Customer.ID)

	list, err := env.customers.List(ctx, dto.PageRequest{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSave_EntradaInvalida(t *testing.T) {
	env := nuevoEntorno(t)
	ctx := context.Background()

	tests := []struct {
		name string
		mod  func(*dto.SaveInvoiceRequest)
	}{
		{"sin líneas", func(r *dto.SaveInvoiceRequest) { r.Items = nil }},
		{"sin cliente", func(r *dto.SaveInvoiceRequest) { r.Customer = nil }},
		{"cantidad negativa", func(r *dto.SaveInvoiceRequest) { r.Items[0].Quantity = decimal.NewFromInt(-1) }},
		{"precio negativo", func(r *dto.SaveInvoiceRequest) { r.Items[1].UnitPrice = decimal.NewFromInt(-1) }},
		{"sin descripción", func(r *dto.SaveInvoiceRequest) { r.Items[0].Description = "  " }},
		{"fecha", func(r *dto.SaveInvoiceRequest) { r.Date = "15/03/2024" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := facturaEjemplo("Ramesh")
			tt.mod(&req)
			_, err := env.invoices.Save(ctx, req)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}

	// Ningún intento consumió número
	next, err := env.invoices.NextNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, "KMC-0001", next.Number)
}

// ajustesMutables permite cambiar prefijo y ancho entre guardados.
type ajustesMutables struct{ s entity.Settings }

func (a *ajustesMutables) Current() entity.Settings { return a.s.Normalize() }

func TestSave_NumeroRepetidoPorOtroPrefijo(t *testing.T) {
	env := nuevoEntorno(t)
	ctx := context.Background()

	aj := &ajustesMutables{s: entity.DefaultSettings()}
	aj.s.InvoicePrefix, aj.s.NumberWidth, aj.s.NumberStart = "A", 4, 10
	tx := sqlite.NewTxRunner(env.db)
	log := zerolog.Nop()
	allocator := billing.NewNumberAllocator(tx, env.seq, aj, log)
	invoices := billing.NewInvoiceUseCase(tx, allocator, env.customers,
		sqlite.NewInvoiceRepository(env.db), sqlite.NewCustomerRepository(env.db), aj, log)

	first, err := invoices.Save(ctx, facturaEjemplo("Ramesh"))
	require.NoError(t, err)
	assert.Equal(t, "A0010", first.Number)

	aj.s.InvoicePrefix, aj.s.NumberWidth = "A0", 3
	_, err = invoices.Save(ctx, facturaEjemplo("Ramesh"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDuplicate)
	assert.False(t, errors.Is(err, domain.ErrPersistence))
	assert.Contains(t, err.Error(), "A0010")

	// El intento fallido no consumió el consecutivo del prefijo nuevo
	next, err := invoices.NextNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, "A0010", next.Number)
}

func TestSave_ClienteInexistente(t *testing.T) {
	env := nuevoEntorno(t)
	req := facturaEjemplo("")
	req.Customer = nil
	req.CustomerID = "no-existe"

	_, err := env.invoices.Save(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

type lineasQueFallan struct {
	repository.InvoiceRepository
}

func (lineasQueFallan) CreateItem(context.Context, *entity.InvoiceItem) error {
	return errors.New("disco lleno")
}

type txConFallo struct {
	inner billing.TxRunner
}

func (r txConFallo) RunBilling(ctx context.Context, fn func(
	repository.CustomerRepository,
	repository.InvoiceRepository,
	repository.SequenceRepository,
) error) error {
	return r.inner.RunBilling(ctx, func(c repository.CustomerRepository, i repository.InvoiceRepository, s repository.SequenceRepository) error {
		return fn(c, lineasQueFallan{i}, s)
	})
}

// Si falla cualquier paso del guardado no queda ni contador, ni cabecera, ni cliente nuevo.
func TestSave_FalloEnLineas_NoDejaNadaGuardado(t *testing.T) {
	env := nuevoEntornoCon(t, func(inner billing.TxRunner) billing.TxRunner { return txConFallo{inner: inner} })
	ctx := context.Background()

	_, err := env.invoices.Save(ctx, facturaEjemplo("Ramesh"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPersistence)

	_, found, err := env.seq.Get(ctx, "KMC-")
	require.NoError(t, err)
	assert.False(t, found, "el contador no debe quedar incrementado")

	var invoices, customers int
	require.NoError(t, env.db.Get(&invoices, `SELECT COUNT(*) FROM invoices`))
	require.NoError(t, env.db.Get(&customers, `SELECT COUNT(*) FROM customers`))
	assert.Zero(t, invoices)
	assert.Zero(t, customers)

	next, err := env.invoices.NextNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, "KMC-0001", next.Number)
}

// ── Listado y borrado de facturas ────────────────────────────────────────────

func TestInvoiceList_YDelete(t *testing.T) {
	env := nuevoEntorno(t)
	ctx := context.Background()

	for _, name := range []string{"Ramesh", "Anita", "Ramesh"} {
		_, err := env.invoices.Save(ctx, facturaEjemplo(name))
		require.NoError(t, err)
	}

	list, err := env.invoices.List(ctx, dto.PageRequest{})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "KMC-0003", list[0].Number)

	list, err = env.invoices.List(ctx, dto.PageRequest{Query: "anita"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "KMC-0002", list[0].Number)

	require.NoError(t, env.invoices.Delete(ctx, "KMC-0002"))
	_, err = env.invoices.Get(ctx, "KMC-0002")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, env.invoices.Delete(ctx, "KMC-0002"), domain.ErrNotFound)

	var items int
	require.NoError(t, env.db.Get(&items, `SELECT COUNT(*) FROM invoice_items`))
	assert.Equal(t, 4, items)

	// El contador no retrocede al borrar
	next, err := env.invoices.NextNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, "KMC-0004", next.Number)
}

// ── Clientes ─────────────────────────────────────────────────────────────────

func TestCustomerDelete_SeguroVsForzado(t *testing.T) {
	env := nuevoEntorno(t)
	ctx := context.Background()

	saved, err := env.invoices.Save(ctx, facturaEjemplo("Ramesh"))
	require.NoError(t, err)
	_, err = env.invoices.Save(ctx, facturaEjemplo("Ramesh"))
	require.NoError(t, err)
	customerID := saved.Customer.ID

	// Borrado seguro: rechazado y sin cambios
	_, err = env.customers.Delete(ctx, customerID, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrHasDependents)
	assert.Contains(t, err.Error(), "2 factura(s)")

	_, err = env.customers.Get(ctx, customerID)
	require.NoError(t, err)

	// Borrado forzado: cliente, facturas y líneas
	res, err := env.customers.Delete(ctx, customerID, true)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Invoices)

	_, err = env.customers.Get(ctx, customerID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	var invoices, items int
	require.NoError(t, env.db.Get(&invoices, `SELECT COUNT(*) FROM invoices`))
	require.NoError(t, env.db.Get(&items, `SELECT COUNT(*) FROM invoice_items`))
	assert.Zero(t, invoices)
	assert.Zero(t, items)
}

func TestCustomerDelete_SinFacturas(t *testing.T) {
	env := nuevoEntorno(t)
	ctx := context.Background()

	c, err := env.customers.Create(ctx, dto.CustomerRequest{Name: "  Anita  "})
	require.NoError(t, err)
	assert.Equal(t, "Anita", c.Name)

	res, err := env.customers.Delete(ctx, c.ID, false)
	require.NoError(t, err)
	assert.Zero(t, res.Invoices)

	_, err = env.customers.Delete(ctx, c.ID, false)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCustomerCreateYUpdate(t *testing.T) {
	env := nuevoEntorno(t)
	ctx := context.Background()

	_, err := env.customers.Create(ctx, dto.CustomerRequest{Name: " "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	c, err := env.customers.Create(ctx, dto.CustomerRequest{Name: "Anita", Phone: "123"})
	require.NoError(t, err)

	upd, err := env.customers.Update(ctx, c.ID, dto.CustomerRequest{Name: "Anita Shah", Phone: "456", Address: "Relief Road"})
	require.NoError(t, err)
	assert.Equal(t, "Anita Shah", upd.Name)

	got, err := env.customers.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Relief Road", got.Address)

	_, err = env.customers.Update(ctx, "no-existe", dto.CustomerRequest{Name: "X"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ── PDF e impresión ──────────────────────────────────────────────────────────

type generadorFalso struct {
	err  error
	docs []billing.InvoiceDocument
}

func (g *generadorFalso) GenerateInvoicePDF(_ context.Context, doc billing.InvoiceDocument) ([]byte, error) {
	g.docs = append(g.docs, doc)
	if g.err != nil {
		return nil, g.err
	}
	return []byte("%PDF-1.3 " + doc.Invoice.Number), nil
}

type impresoraFalsa struct {
	printErr error
	printed  []string
	opened   []string
}

func (p *impresoraFalsa) Print(_ context.Context, path string) error {
	p.printed = append(p.printed, path)
	return p.printErr
}

func (p *impresoraFalsa) Open(_ context.Context, path string) error {
	p.opened = append(p.opened, path)
	return nil
}

func nuevoPDFUseCase(t *testing.T, env *entorno, gen billing.InvoicePDFGenerator, printer billing.Printer, dir string) *billing.PDFUseCase {
	t.Helper()
	return billing.NewPDFUseCase(env.invoices, sqlite.NewInvoiceRepository(env.db), gen, printer, dir, zerolog.Nop())
}

func TestExport_EscribeArchivoYMarcaImpresa(t *testing.T) {
	env := nuevoEntorno(t)
	ctx := context.Background()
	_, err := env.invoices.Save(ctx, facturaEjemplo("Ramesh"))
	require.NoError(t, err)

	gen := &generadorFalso{}
	dir := filepath.Join(t.TempDir(), "salida")
	uc := nuevoPDFUseCase(t, env, gen, nil, dir)

	path, err := uc.Export(ctx, "KMC-0001", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "KMC-0001_2024-03-15.pdf"), path)

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(body), "KMC-0001")

	require.Len(t, gen.docs, 1)
	assert.Equal(t, "Ramesh", gen.docs[0].Customer.Name)
	assert.Len(t, gen.docs[0].Items, 2)
	assert.Equal(t, "KMC Electrical", gen.docs[0].Settings.BusinessName)

	got, err := env.invoices.Get(ctx, "KMC-0001")
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusPrinted, got.Status)
}

func TestExport_NumeroConEspaciosMarcaImpresa(t *testing.T) {
	env := nuevoEntorno(t)
	ctx := context.Background()
	_, err := env.invoices.Save(ctx, facturaEjemplo("Ramesh"))
	require.NoError(t, err)

	dir := t.TempDir()
	uc := nuevoPDFUseCase(t, env, &generadorFalso{}, &impresoraFalsa{}, dir)

	resp, err := uc.Print(ctx, "  KMC-0001 ")
	require.NoError(t, err)
	assert.Equal(t, "KMC-0001", resp.Number)
	assert.Equal(t, filepath.Join(dir, "KMC-0001_2024-03-15.pdf"), resp.Path)

	got, err := env.invoices.Get(ctx, "KMC-0001")
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusPrinted, got.Status)
}

func TestRender_ErrorNoDeshaceElGuardado(t *testing.T) {
	env := nuevoEntorno(t)
	ctx := context.Background()
	_, err := env.invoices.Save(ctx, facturaEjemplo("Ramesh"))
	require.NoError(t, err)

	uc := nuevoPDFUseCase(t, env, &generadorFalso{err: domain.ErrUnrenderableText}, nil, t.TempDir())
	_, _, err = uc.Render(ctx, "KMC-0001")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRender)
	assert.ErrorIs(t, err, domain.ErrUnrenderableText)
	assert.False(t, errors.Is(err, domain.ErrPersistence))

	got, err := env.invoices.Get(ctx, "KMC-0001")
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusSaved, got.Status)
}

func TestRender_FacturaInexistente(t *testing.T) {
	env := nuevoEntorno(t)
	uc := nuevoPDFUseCase(t, env, &generadorFalso{}, nil, t.TempDir())
	_, _, err := uc.Render(context.Background(), "KMC-0404")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPrint_FallaImpresoraAbreElPDF(t *testing.T) {
	env := nuevoEntorno(t)
	ctx := context.Background()
	_, err := env.invoices.Save(ctx, facturaEjemplo("Ramesh"))
	require.NoError(t, err)

	printer := &impresoraFalsa{printErr: errors.New("sin impresora")}
	uc := nuevoPDFUseCase(t, env, &generadorFalso{}, printer, t.TempDir())

	resp, err := uc.Print(ctx, "KMC-0001")
	require.NoError(t, err, "la impresión nunca es fatal")
	assert.False(t, resp.Printed)
	assert.Len(t, printer.printed, 1)
	assert.Equal(t, printer.printed, printer.opened)
}

func TestPrint_OK(t *testing.T) {
	env := nuevoEntorno(t)
	ctx := context.Background()
	_, err := env.invoices.Save(ctx, facturaEjemplo("Ramesh"))
	require.NoError(t, err)

	printer := &impresoraFalsa{}
	uc := nuevoPDFUseCase(t, env, &generadorFalso{}, printer, t.TempDir())

	resp, err := uc.Print(ctx, "KMC-0001")
	require.NoError(t, err)
	assert.True(t, resp.Printed)
	assert.Empty(t, printer.opened)
}

func TestFileName(t *testing.T) {
	inv := &entity.Invoice{Number: "KMC/2024 01", Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)}
	assert.Equal(t, "KMC_2024_01_2024-01-02.pdf", billing.FileName(inv))
}
