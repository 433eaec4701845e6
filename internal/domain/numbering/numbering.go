// Package numbering arma los números de factura: prefijo + consecutivo con ceros a la izquierda.
package numbering

import "fmt"

// DefaultWidth ancho por defecto de la parte numérica (KMC-0001).
const DefaultWidth = 4

// Format concatena prefijo y consecutivo sin separador adicional.
// Un consecutivo más ancho que width se imprime completo.
func Format(prefix string, seq int64, width int) string {
	if width <= 0 {
		width = DefaultWidth
	}
	return fmt.Sprintf("%s%0*d", prefix, width, seq)
}
