package repository

import (
	"context"

	"github.com/jhoicas/ordenes-api/internal/domain/entity"
)

// OrderWithUser pedido con los datos de identidad del comprador (listado admin).
type OrderWithUser struct {
	Order        entity.Order
	UserEmail    string
	UserFullName string
}

// OrderListFilter filtros para listados de pedidos.
type OrderListFilter struct {
	UserID string             // vacío = todos (solo admin)
	Status entity.OrderStatus // vacío = todos
	Limit  int
	Offset int
}

// OrderRepository define el puerto de persistencia para Order y sus items.
// Los items se insertan junto con el pedido y nunca se modifican después.
type OrderRepository interface {
	// Create persiste el pedido y sus items. Debe invocarse dentro de una
	// transacción (repos atados a la tx vía TxRunner).
	Create(ctx context.Context, order *entity.Order) error
	GetByID(ctx context.Context, id string) (*entity.Order, error)
	// GetByIDForUpdate bloquea la fila del pedido para aplicar una transición
	// de estado sin carreras con el pipeline o con cancelaciones.
	GetByIDForUpdate(ctx context.Context, id string) (*entity.Order, error)
	// Update persiste estado, tracking_number, notes y updated_at.
	// Los items y el total no se tocan jamás.
	Update(ctx context.Context, order *entity.Order) error
	ListByUser(ctx context.Context, filter OrderListFilter) ([]*entity.Order, error)
	ListWithUser(ctx context.Context, filter OrderListFilter) ([]OrderWithUser, error)
}
