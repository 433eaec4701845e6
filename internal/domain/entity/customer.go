package entity

import "time"

// Customer representa un cliente (bloque "BILL TO" de la factura).
type Customer struct {
	ID        string
	Name      string
	Phone     string
	Address   string // puede tener varias líneas
	TaxID     string // PAN / GSTIN / permiso, opcional
	CreatedAt time.Time
	UpdatedAt time.Time
}
