package order

import (
	"context"
	"time"

	"github.com/jhoicas/ordenes-api/internal/domain/entity"
	"github.com/jhoicas/ordenes-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD con los
// repositorios de pedidos e inventario atados a esa tx, para aplicar una
// transición de estado y sus efectos de inventario de forma atómica.
type TxRunner interface {
	RunOrder(ctx context.Context, fn func(
		orderRepo repository.OrderRepository,
		invRepo repository.InventoryRepository,
	) error) error
}

// Prioridades de la cola de tareas.
const (
	PriorityHigh    = "high"
	PriorityDefault = "default"
	PriorityLow     = "low"
)

// JobTypeProcessOrder tipo de trabajo para procesar un pedido recién creado.
const JobTypeProcessOrder = "process_order"

// Job mensaje encolado hacia el worker. La entrega es at-least-once: el mismo
// pedido puede llegar más de una vez y el pipeline debe tolerarlo.
type Job struct {
	Type       string    `json:"type"`
	OrderID    string    `json:"order_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Queue puerto de la cola de tareas (handoff fire-and-forget desde la request).
type Queue interface {
	Enqueue(ctx context.Context, job Job, priority string) error
}

// PaymentProcessor puerto del gateway de pago (simulado en esta aplicación).
// error nil significa pago aprobado.
type PaymentProcessor interface {
	Process(ctx context.Context, order *entity.Order) error
}

// AvailabilityReader lectura consultiva de disponibilidad para el pre-chequeo
// de creación de pedidos; lo implementa el caso de uso de inventario.
type AvailabilityReader interface {
	GetAvailability(ctx context.Context, productID string) (int, error)
}
