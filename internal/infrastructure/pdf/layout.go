package pdf

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

// Medidas de la página A4 en mm. La suma de bloques fijos + presupuesto de la tabla
// + holgura es exactamente el alto útil, así el documento nunca pasa a una segunda página.
const (
	pageHeight   = 297.0
	marginTop    = 10.0
	marginBottom = 10.0
	marginSide   = 10.0
	usableHeight = pageHeight - marginTop - marginBottom

	headerHeight      = 26.0
	ruleHeight        = 3.0
	partiesHeight     = 30.0
	gapHeight         = 4.0
	tableHeaderHeight = 8.0
	totalsHeight      = 26.0
	footerHeight      = 34.0
	slackHeight       = 3.0

	fixedHeight = headerHeight + ruleHeight + partiesHeight + gapHeight +
		tableHeaderHeight + totalsHeight + footerHeight

	// ItemBudget alto disponible para las filas de la tabla.
	ItemBudget = usableHeight - fixedHeight - slackHeight

	// NominalRowHeight alto normal de una fila; MinRowHeight el mínimo al comprimir.
	NominalRowHeight = 7.0
	MinRowHeight     = 4.5

	maxFontSize = 9.0
	minFontSize = 6.0

	// Ancho de la columna de descripción (6 de 12 sobre 190 mm) menos márgenes internos.
	descriptionWidth = (210.0-2*marginSide)*6/12 - 2
	ptToMM           = 0.3528
)

// TablePlan decisión de maquetación de la tabla de líneas.
type TablePlan struct {
	RowHeight float64 // alto de cada fila (incluida la de aviso)
	FontSize  float64
	Shown     int // líneas impresas
	Hidden    int // líneas omitidas (solo si Warning)
	Warning   bool
}

// Rows cantidad de filas físicas que ocupa la tabla.
func (p TablePlan) Rows() int {
	if p.Warning {
		return p.Shown + 1
	}
	return p.Shown
}

// Height alto total que ocupa la tabla.
func (p TablePlan) Height() float64 {
	return float64(p.Rows()) * p.RowHeight
}

// PlanTable decide cómo entran n líneas en budget mm:
//  1. Si caben a alto nominal, se usan 7 mm.
//  2. Si no, se comprimen todas por igual hasta un mínimo de 4.5 mm.
//  3. Si ni así caben, se imprimen las que entran menos una y la última fila
//     avisa cuántas quedaron fuera. Los totales siempre cubren todas las líneas.
func PlanTable(n int, budget float64) TablePlan {
	if n <= 0 {
		return TablePlan{RowHeight: NominalRowHeight, FontSize: fontSizeFor(NominalRowHeight)}
	}
	if float64(n)*NominalRowHeight <= budget {
		return TablePlan{RowHeight: NominalRowHeight, FontSize: fontSizeFor(NominalRowHeight), Shown: n}
	}
	if float64(n)*MinRowHeight <= budget {
		h := math.Floor(budget/float64(n)*100) / 100
		if h < MinRowHeight {
			h = MinRowHeight
		}
		return TablePlan{RowHeight: h, FontSize: fontSizeFor(h), Shown: n}
	}
	capacity := int(math.Floor(budget / MinRowHeight))
	shown := capacity - 1
	if shown < 0 {
		shown = 0
	}
	return TablePlan{
		RowHeight: MinRowHeight,
		FontSize:  fontSizeFor(MinRowHeight),
		Shown:     shown,
		Hidden:    n - shown,
		Warning:   true,
	}
}

// WarningText texto de la fila de aviso.
func (p TablePlan) WarningText(total int) string {
	return fmt.Sprintf("+%d more item(s) not shown; totals include all %d items", p.Hidden, total)
}

// fontSizeFor tamaño de fuente (pt) que cabe en una fila de h mm.
func fontSizeFor(h float64) float64 {
	size := math.Floor(h * 1.15)
	return math.Min(maxFontSize, math.Max(minFontSize, size))
}

// textTop desplazamiento vertical para centrar texto de size pt en una fila de h mm.
func textTop(h, size float64) float64 {
	top := (h - size*ptToMM) / 2
	if top < 0 {
		return 0
	}
	return math.Round(top*100) / 100
}

// maxDescriptionRunes caracteres que entran en la columna de descripción a size pt.
// Aproximación con el ancho medio de un carácter de Helvetica (0.55 em).
func maxDescriptionRunes(size float64) int {
	return int(descriptionWidth / (size * ptToMM * 0.55))
}

// truncate corta s a max runas terminando en "…".
func truncate(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:max-1])) + "…"
}
