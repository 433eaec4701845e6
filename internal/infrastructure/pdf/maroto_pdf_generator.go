// Package pdf genera la factura imprimible en una sola página A4.
//
// Layout de la página:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Logo │ Negocio + propietario + tel │ INVOICE       │
//	│  ─────────────────────────────────────────────────────────  │
//	│  BILL TO: cliente              │  Invoice No / Date          │
//	│  TABLA: Sl. | Description | Qty | Rate | Amount              │
//	│  TOTALES: Subtotal / Tax (r%) / Total + agradecimiento       │
//	│  FOOTER: permiso, PAN, cheques, móvil │ firma autorizada     │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	mimage "github.com/johnfercher/maroto/v2/pkg/components/image"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/border"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	appbilling "github.com/jhoicas/kmc-invoice/internal/application/billing"
	"github.com/jhoicas/kmc-invoice/internal/domain"
	"github.com/jhoicas/kmc-invoice/internal/domain/entity"
	"github.com/jhoicas/kmc-invoice/internal/domain/money"
)

var _ appbilling.InvoicePDFGenerator = (*MarotoPDFGenerator)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
	colorZebra   = &props.Color{Red: 242, Green: 245, Blue: 249}
	colorWarning = &props.Color{Red: 170, Green: 40, Blue: 30}
)

// ── Generator ─────────────────────────────────────────────────────────────────

// MarotoPDFGenerator implementa billing.InvoicePDFGenerator usando Maroto v2.
// No guarda estado entre llamadas.
type MarotoPDFGenerator struct {
	compression bool
	log         zerolog.Logger
}

// Option configura el generador.
type Option func(*MarotoPDFGenerator)

// WithCompression activa o desactiva la compresión de los streams del PDF (activa por defecto).
func WithCompression(on bool) Option {
	return func(g *MarotoPDFGenerator) { g.compression = on }
}

// WithLogger registra los fallbacks de fuentes y logo.
func WithLogger(log zerolog.Logger) Option {
	return func(g *MarotoPDFGenerator) { g.log = log }
}

// NewMarotoPDFGenerator construye el generador.
func NewMarotoPDFGenerator(opts ...Option) *MarotoPDFGenerator {
	g := &MarotoPDFGenerator{compression: true, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GenerateInvoicePDF genera el PDF y devuelve sus bytes.
// Un logo o una fuente que no se pueden usar se omiten; si el documento falla con la
// fuente personalizada se reintenta con Helvetica y sin logo.
func (g *MarotoPDFGenerator) GenerateInvoicePDF(ctx context.Context, doc appbilling.InvoiceDocument) ([]byte, error) {
	if doc.Invoice == nil || doc.Customer == nil {
		return nil, fmt.Errorf("%w: factura o cliente vacío", domain.ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := doc.Settings.Normalize()

	fonts, err := loadFonts(s.FontDir, s.FontFamily)
	if err != nil {
		g.log.Debug().Err(err).Msg("se usa la fuente incorporada")
	}
	lg, err := loadLogo(s.LogoPath)
	if err != nil {
		g.log.Debug().Err(err).Msg("logo omitido")
		lg = nil
	}

	v := buildView(s, doc)
	if fonts.builtin() {
		if err := checkEncodable(v.texts()...); err != nil {
			return nil, err
		}
	}

	out, err := g.render(s, v, fonts, lg)
	if err != nil && (!fonts.builtin() || lg != nil) {
		g.log.Warn().Err(err).Str("number", v.number).Msg("reintento con fuente incorporada y sin logo")
		if encErr := checkEncodable(v.texts()...); encErr != nil {
			return nil, errors.Join(err, encErr)
		}
		out, err = g.render(s, v, builtinFonts, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return out, nil
}

func (g *MarotoPDFGenerator) render(s entity.Settings, v view, fonts fontSet, lg *logo) ([]byte, error) {
	b := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(marginSide).WithRightMargin(marginSide).
		WithTopMargin(marginTop).WithBottomMargin(marginBottom).
		WithSequentialMode().
		WithCompression(g.compression).
		WithDefaultFont(&props.Font{Family: fonts.family, Size: maxFontSize}).
		WithTitle("Invoice "+v.number, true).
		WithAuthor(s.BusinessName, true).
		WithCreationDate(v.date)
	if !fonts.builtin() {
		b = b.WithCustomFonts(fonts.custom)
	}

	m := maroto.New(b.Build())
	m.AddRows(headerRow(v, lg))
	m.AddRows(line.NewRow(ruleHeight, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(partiesRow(v))
	m.AddRows(row.New(gapHeight))
	m.AddRows(tableHeaderRow())
	m.AddRows(tableRows(v)...)
	if spacer := ItemBudget - v.plan.Height(); spacer > 0.01 {
		m.AddRows(row.New(spacer))
	}
	m.AddRows(totalsRow(v))
	m.AddRows(footerRows(v)...)

	document, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return document.GetBytes(), nil
}

// ── Vista ─────────────────────────────────────────────────────────────────────

// view textos ya formateados de la factura.
type view struct {
	business      string
	owner         string
	phone         string
	permit        string
	pan           string
	chequeTo      string
	thankYou      string
	number        string
	dateText      string
	date          time.Time
	customerName  string
	customerLines []string
	notes         string
	items         []itemView
	plan          tablePlanView
	subtotal      string
	tax           string
	total         string
	taxLabel      string
}

type itemView struct {
	sl, description, qty, rate, amount string
}

type tablePlanView struct {
	TablePlan
	warning string
}

func buildView(s entity.Settings, doc appbilling.InvoiceDocument) view {
	inv, c := doc.Invoice, doc.Customer
	format := func(d decimal.Decimal) string { return money.Format(d, s.NumberGrouping, s.CurrencySymbol) }

	// Los totales se recalculan desde las líneas: son la fuente de verdad del documento.
	amounts := make([]decimal.Decimal, len(doc.Items))
	for i, it := range doc.Items {
		amounts[i] = money.LineAmount(it.Quantity, it.UnitPrice)
	}
	totals := money.ComputeTotals(amounts, inv.TaxRate)

	plan := PlanTable(len(doc.Items), ItemBudget)
	maxRunes := maxDescriptionRunes(plan.FontSize)
	items := make([]itemView, 0, plan.Shown)
	for i, it := range doc.Items[:plan.Shown] {
		items = append(items, itemView{
			sl:          strconv.Itoa(i + 1),
			description: truncate(it.Description, maxRunes),
			qty:         money.FormatQuantity(it.Quantity),
			rate:        format(it.UnitPrice),
			amount:      format(amounts[i]),
		})
	}
	pv := tablePlanView{TablePlan: plan}
	if plan.Warning {
		pv.warning = plan.WarningText(len(doc.Items))
	}

	var lines []string
	if c.Phone != "" {
		lines = append(lines, "Phone: "+c.Phone)
	}
	for _, l := range strings.Split(strings.ReplaceAll(c.Address, "\r", ""), "\n") {
		if l = strings.TrimSpace(l); l != "" && len(lines) < 3 {
			lines = append(lines, l)
		}
	}
	if c.TaxID != "" {
		lines = append(lines, "Tax ID: "+c.TaxID)
	}
	if len(lines) > 4 {
		lines = lines[:4]
	}

	return view{
		business:      s.BusinessName,
		owner:         s.Owner,
		phone:         s.Phone,
		permit:        s.Permit,
		pan:           s.PAN,
		chequeTo:      s.ChequeTo,
		thankYou:      s.ThankYou,
		number:        inv.Number,
		dateText:      inv.Date.Format("02-01-2006"),
		date:          inv.Date,
		customerName:  c.Name,
		customerLines: lines,
		notes:         truncate(inv.Notes, 90),
		items:         items,
		plan:          pv,
		subtotal:      format(totals.Subtotal),
		tax:           format(totals.Tax),
		total:         format(totals.Total),
		taxLabel:      "Tax (" + money.RatePercent(inv.TaxRate) + "%):",
	}
}

// texts todos los textos que se escriben en el documento.
func (v view) texts() []string {
	out := []string{
		v.business, v.owner, v.phone, v.permit, v.pan, v.chequeTo, v.thankYou,
		v.number, v.customerName, v.notes, v.subtotal, v.tax, v.total, v.plan.warning,
	}
	out = append(out, v.customerLines...)
	for _, it := range v.items {
		out = append(out, it.description, it.rate, it.amount)
	}
	return out
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: logo (izq), datos del negocio y la palabra INVOICE (der).
func headerRow(v view, lg *logo) core.Row {
	logoCol := col.New(3)
	if lg != nil {
		logoCol = col.New(3).Add(mimage.NewFromBytes(lg.data, lg.ext, props.Rect{
			Percent: 90, Center: true,
		}))
	}
	business := col.New(5).Add(
		text.New(v.business, props.Text{
			Style: fontstyle.Bold, Size: 14, Color: colorPrimary, Top: 2,
		}),
	)
	if v.owner != "" {
		business.Add(text.New(v.owner, props.Text{Size: 9, Top: 11}))
	}
	if v.phone != "" {
		business.Add(text.New("Mobile: "+v.phone, props.Text{Size: 9, Top: 16, Color: colorGray}))
	}

	return row.New(headerHeight).Add(
		logoCol,
		business,
		col.New(4).Add(
			text.New("INVOICE", props.Text{
				Style: fontstyle.Bold, Size: 22, Align: align.Right, Color: colorPrimary, Top: 4,
			}),
		),
	)
}

// partiesRow: cliente (izq) y número/fecha (der).
func partiesRow(v view) core.Row {
	bill := col.New(7).Add(
		text.New("BILL TO", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
		text.New(v.customerName, props.Text{Style: fontstyle.Bold, Size: 10, Top: 6}),
	)
	for i, l := range v.customerLines {
		bill.Add(text.New(l, props.Text{Size: 8, Top: 12 + float64(i)*4.5, Color: colorGray}))
	}

	return row.New(partiesHeight).Add(
		bill,
		col.New(5).Add(
			text.New("Invoice No: "+v.number, props.Text{
				Style: fontstyle.Bold, Size: 10, Align: align.Right, Top: 6,
			}),
			text.New("Date: "+v.dateText, props.Text{
				Size: 9, Align: align.Right, Top: 12,
			}),
		),
	)
}

// Columnas de la tabla sobre la grilla de 12.
const (
	colSl          = 1
	colDescription = 6
	colQty         = 1
	colRate        = 2
	colAmount      = 2
)

// tableHeaderRow: cabecera de la tabla con fondo azul.
func tableHeaderRow() core.Row {
	top := textTop(tableHeaderHeight, 8)
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorWhite, Top: top, Left: 1, Right: 1,
		}))
	}
	return row.New(tableHeaderHeight).Add(
		h("Sl.", colSl, align.Center),
		h("Description", colDescription, align.Left),
		h("Qty", colQty, align.Right),
		h("Rate", colRate, align.Right),
		h("Amount", colAmount, align.Right),
	).WithStyle(&props.Cell{BackgroundColor: colorPrimary})
}

// tableRows: una fila por línea impresa y, si aplica, la fila de aviso.
func tableRows(v view) []core.Row {
	p := v.plan
	top := textTop(p.RowHeight, p.FontSize)
	cell := func(s string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(s, props.Text{
			Size: p.FontSize, Align: a, Top: top, Left: 1, Right: 1,
		}))
	}

	rows := make([]core.Row, 0, p.Rows())
	for i, it := range v.items {
		r := row.New(p.RowHeight).Add(
			cell(it.sl, colSl, align.Center),
			cell(it.description, colDescription, align.Left),
			cell(it.qty, colQty, align.Right),
			cell(it.rate, colRate, align.Right),
			cell(it.amount, colAmount, align.Right),
		)
		if i%2 == 1 {
			r = r.WithStyle(&props.Cell{BackgroundColor: colorZebra})
		}
		rows = append(rows, r)
	}
	if p.Warning {
		rows = append(rows, row.New(p.RowHeight).Add(
			col.New(12).Add(text.New(p.warning, props.Text{
				Style: fontstyle.Italic, Size: p.FontSize, Align: align.Center,
				Color: colorWarning, Top: top,
			})),
		))
	}
	return rows
}

// totalsRow: agradecimiento y notas (izq), totales (der).
func totalsRow(v view) core.Row {
	label := func(s string, top float64) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2, Top: top})
	}
	value := func(s string, top float64) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1, Top: top})
	}

	left := col.New(6).WithStyle(&props.Cell{BorderType: border.Top, BorderColor: colorPrimary, BorderThickness: 0.3})
	if v.thankYou != "" {
		left.Add(text.New(v.thankYou, props.Text{Style: fontstyle.Italic, Size: 9, Top: 8, Color: colorPrimary}))
	}
	if v.notes != "" {
		left.Add(text.New("Notes: "+v.notes, props.Text{Size: 8, Top: 14, Color: colorGray}))
	}

	right := props.Cell{BorderType: border.Top, BorderColor: colorPrimary, BorderThickness: 0.3}
	return row.New(totalsHeight).Add(
		left,
		col.New(3).WithStyle(&right).Add(
			label("Subtotal:", 2),
			label(v.taxLabel, 8),
			text.New("Total:", props.Text{
				Style: fontstyle.Bold, Size: 11, Align: align.Right, Right: 2, Top: 15, Color: colorPrimary,
			}),
		),
		col.New(3).WithStyle(&right).Add(
			value(v.subtotal, 2),
			value(v.tax, 8),
			text.New(v.total, props.Text{
				Style: fontstyle.Bold, Size: 11, Align: align.Right, Right: 1, Top: 15, Color: colorPrimary,
			}),
		),
	)
}

// footerRows: datos legales del negocio y recuadro de firma.
func footerRows(v view) []core.Row {
	info := col.New(7)
	top := 3.0
	add := func(label, value string) {
		if value == "" {
			return
		}
		info.Add(text.New(label+value, props.Text{Size: 8, Top: top, Color: colorGray}))
		top += 5
	}
	add("Permit No: ", v.permit)
	add("PAN: ", v.pan)
	add("Cheques payable to: ", v.chequeTo)
	add("Mobile: ", v.phone)

	signature := col.New(5).WithStyle(&props.Cell{
		BorderType: border.Full, BorderColor: colorGray, BorderThickness: 0.3,
	}).Add(
		text.New("For "+v.business, props.Text{Size: 8, Align: align.Center, Top: 2}),
		text.New(v.owner, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Center, Top: 20}),
		text.New("Authorized Signatory", props.Text{Size: 8, Align: align.Center, Top: 26, Color: colorGray}),
	)

	return []core.Row{
		row.New(4),
		row.New(footerHeight-4).Add(info, signature),
	}
}
