package entity

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Agrupación de miles para importes.
const (
	GroupingInternational = "international" // 1,234,567.89
	GroupingIndian        = "indian"        // 12,34,567.89
)

// Settings datos del negocio y preferencias de numeración/impresión.
// Se trata como valor inmutable: quien lo necesita recibe una copia.
type Settings struct {
	BusinessName   string          `json:"business_name"`
	Owner          string          `json:"owner"`
	Phone          string          `json:"phone"`
	Permit         string          `json:"permit"`
	PAN            string          `json:"pan"`
	ChequeTo       string          `json:"cheque_to"`
	ThankYou       string          `json:"thank_you"`
	InvoicePrefix  string          `json:"invoice_prefix"`
	TaxRate        decimal.Decimal `json:"tax_rate"`
	LogoPath       string          `json:"logo_path"`
	FontDir        string          `json:"font_dir"`
	FontFamily     string          `json:"font_family"`
	CurrencySymbol string          `json:"currency_symbol"`
	NumberGrouping string          `json:"number_grouping"`
	NumberWidth    int             `json:"number_width"`
	NumberStart    int64           `json:"number_start"`
}

// DefaultSettings valores por defecto de cada campo reconocido.
func DefaultSettings() Settings {
	return Settings{
		BusinessName:   "KMC Electrical",
		Owner:          "SHAIKH MO.AJAZ",
		Phone:          "9998714499",
		Permit:         "G-GW-E-000025-NTC(W)2018",
		PAN:            "DTPPS1809N",
		ChequeTo:       "Shaikh Mo.Ajaz",
		ThankYou:       "Thank you for choosing KMC!",
		InvoicePrefix:  "KMC-",
		TaxRate:        decimal.Zero,
		FontFamily:     "NotoSans",
		NumberGrouping: GroupingInternational,
		NumberWidth:    4,
		NumberStart:    1,
	}
}

// Normalize completa con defaults los campos cuyo valor no es utilizable.
// Los textos del negocio vacíos se respetan (el usuario puede querer omitirlos).
func (s Settings) Normalize() Settings {
	def := DefaultSettings()
	if strings.TrimSpace(s.FontFamily) == "" {
		s.FontFamily = def.FontFamily
	}
	switch s.NumberGrouping {
	case GroupingInternational, GroupingIndian:
	default:
		s.NumberGrouping = def.NumberGrouping
	}
	if s.NumberWidth <= 0 || s.NumberWidth > 12 {
		s.NumberWidth = def.NumberWidth
	}
	if s.NumberStart <= 0 {
		s.NumberStart = def.NumberStart
	}
	if s.TaxRate.IsNegative() {
		s.TaxRate = decimal.Zero
	}
	return s
}
