package order

import "github.com/jhoicas/ordenes-api/internal/domain/entity"

// InventoryEffect efecto obligatorio sobre el inventario al aplicar una transición.
type InventoryEffect int

const (
	EffectNone    InventoryEffect = iota // sin efecto (p. ej. shipped -> delivered)
	EffectReserve                        // reservar la cantidad de cada item
	EffectRelease                        // liberar la reserva de cada item
	EffectShip                           // descontar stock y reserva de cada item
)

// transitions tabla de transiciones legales y su efecto de inventario.
// Cualquier par ausente de la tabla es ilegal; delivered y cancelled son
// terminales (no aparecen como origen).
var transitions = map[entity.OrderStatus]map[entity.OrderStatus]InventoryEffect{
	entity.OrderStatusPending: {
		entity.OrderStatusProcessing: EffectReserve,
		entity.OrderStatusCancelled:  EffectRelease,
	},
	entity.OrderStatusProcessing: {
		entity.OrderStatusShipped:   EffectShip,
		entity.OrderStatusCancelled: EffectRelease,
	},
	entity.OrderStatusShipped: {
		entity.OrderStatusDelivered: EffectNone,
	},
}

// CanTransition indica si la transición from -> to está permitida.
func CanTransition(from, to entity.OrderStatus) bool {
	_, ok := transitions[from][to]
	return ok
}

// Effect devuelve el efecto de inventario de una transición legal.
// ok=false si la transición no está en la tabla; en ese caso no debe aplicarse
// ningún efecto ni mutarse el pedido.
func Effect(from, to entity.OrderStatus) (InventoryEffect, bool) {
	eff, ok := transitions[from][to]
	return eff, ok
}

// IsTerminal indica si el estado no admite ninguna transición de salida.
func IsTerminal(s entity.OrderStatus) bool {
	return len(transitions[s]) == 0
}

// Cancellable indica si un pedido puede cancelarse desde su estado actual.
func Cancellable(s entity.OrderStatus) bool {
	return CanTransition(s, entity.OrderStatusCancelled)
}
