package repository

import (
	"context"

	"github.com/jhoicas/ordenes-api/internal/domain/entity"
)

// InventoryRow fila de inventario con los datos del producto asociado
// (resultado crudo del JOIN para listados).
type InventoryRow struct {
	Inventory   entity.Inventory
	ProductName string
	ProductSKU  string
}

// InventoryListFilter filtros para el listado de inventario.
type InventoryListFilter struct {
	ProductID string // vacío = todos
	LowStock  bool   // true = solo disponibles <= reorder_level
	Limit     int
	Offset    int
}

// InventoryRepository define el puerto de persistencia para Inventory (DIP).
// Las mutaciones de stock/reserva pasan siempre por el ledger, que obtiene la
// fila con GetByProductForUpdate dentro de una transacción.
type InventoryRepository interface {
	Create(ctx context.Context, inv *entity.Inventory) error
	GetByID(ctx context.Context, id string) (*entity.Inventory, error)
	GetByProduct(ctx context.Context, productID string) (*entity.Inventory, error)
	// GetByProductForUpdate bloquea la fila (SELECT FOR UPDATE) durante la
	// secuencia leer-verificar-escribir del ledger.
	GetByProductForUpdate(ctx context.Context, productID string) (*entity.Inventory, error)
	Update(ctx context.Context, inv *entity.Inventory) error
	List(ctx context.Context, filter InventoryListFilter) ([]InventoryRow, error)
	GetRowByID(ctx context.Context, id string) (*InventoryRow, error)
}
