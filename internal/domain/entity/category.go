package entity

import "time"

// Category categoría global de productos. Prefix (máx. 4 caracteres, único)
// encabeza los SKU generados, por ejemplo "GROC".
type Category struct {
	ID        string
	Name      string
	Prefix    string
	ParentID  string // vacío si es raíz
	CreatedAt time.Time
	UpdatedAt time.Time
}
