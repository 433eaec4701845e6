package entity

// InvoiceSequence es el contador persistido por prefijo: último número emitido.
type InvoiceSequence struct {
	Prefix string
	Last   int64
}
