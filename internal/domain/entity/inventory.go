package entity

import "time"

// Inventory representa el registro de stock de un producto (relación 1:1).
// Invariante: QuantityInStock - QuantityReserved >= 0 en todo momento.
// Solo el ledger de inventario muta este registro, siempre bajo bloqueo de fila.
type Inventory struct {
	ID               string
	ProductID        string
	QuantityInStock  int
	QuantityReserved int
	ReorderLevel     int
	ReorderQuantity  int
	LastRestockAt    *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Available devuelve la cantidad disponible (stock menos reservado).
func (i *Inventory) Available() int {
	return i.QuantityInStock - i.QuantityReserved
}

// NeedsReorder indica si la cantidad disponible llegó al punto de reorden.
func (i *Inventory) NeedsReorder() bool {
	return i.Available() <= i.ReorderLevel
}
