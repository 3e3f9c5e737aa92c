package entity

import "time"

// Product maestro de producto por tienda. El SKU es único por tienda y se
// genera con el formateador de identificadores cuando el cliente no lo envía.
type Product struct {
	ID          string
	StoreID     string
	CategoryID  string
	Name        string
	Description string
	SKU         string
	UnitMeasure string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
