// Package money concentra el redondeo y el formato de importes de la factura.
// Todos los cálculos usan shopspring/decimal; nunca float64.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// Totals subtotal, impuesto y total de una factura.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Round redondea a 2 decimales con redondeo bancario (half-even).
func Round(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(2)
}

// NormalizeRate acepta la tasa como fracción (0.10) o como porcentaje (10).
// Valores mayores que 1 se interpretan como porcentaje.
func NormalizeRate(rate decimal.Decimal) decimal.Decimal {
	if rate.IsNegative() {
		return decimal.Zero
	}
	if rate.GreaterThan(one) {
		return rate.Div(hundred)
	}
	return rate
}

// LineAmount importe de una línea: cantidad × precio unitario, redondeado.
func LineAmount(qty, unitPrice decimal.Decimal) decimal.Decimal {
	return Round(qty.Mul(unitPrice))
}

// ComputeTotals suma los importes de línea y aplica la tasa de impuesto.
func ComputeTotals(amounts []decimal.Decimal, rate decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, a := range amounts {
		subtotal = subtotal.Add(a)
	}
	subtotal = Round(subtotal)
	tax := Round(subtotal.Mul(NormalizeRate(rate)))
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    Round(subtotal.Add(tax)),
	}
}

// RatePercent devuelve la tasa como porcentaje legible: 0.10 → "10", 0.125 → "12.5".
func RatePercent(rate decimal.Decimal) string {
	return NormalizeRate(rate).Mul(hundred).Round(2).String()
}

// Format formatea un importe con 2 decimales y separador de miles.
// grouping: "indian" agrupa 12,34,567.89; cualquier otro valor 1,234,567.89.
func Format(d decimal.Decimal, grouping, symbol string) string {
	s := Round(d).StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")
	out := groupDigits(intPart, grouping == "indian") + "." + frac
	if symbol != "" {
		out = symbol + out
	}
	if neg {
		out = "-" + out
	}
	return out
}

// FormatQuantity muestra la cantidad tal como se capturó, sin ceros finales.
// No redondea: el importe de la línea usa la cantidad completa.
func FormatQuantity(q decimal.Decimal) string {
	return q.String()
}

// groupDigits inserta comas de miles. Ej: "1234567" → "1,234,567" o "12,34,567".
func groupDigits(s string, indian bool) string {
	n := len(s)
	if n <= 3 {
		return s
	}
	head, tail := s[:n-3], s[n-3:]
	size := 3
	if indian {
		size = 2
	}
	var parts []string
	for len(head) > size {
		parts = append([]string{head[len(head)-size:]}, parts...)
		head = head[:len(head)-size]
	}
	parts = append([]string{head}, parts...)
	return strings.Join(parts, ",") + "," + tail
}
