package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus estado del ciclo de vida de un pedido.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Valid indica si el string corresponde a un estado conocido.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Order representa un pedido. OrderNumber es único e inmutable; TotalAmount se
// calcula una sola vez al crear el pedido a partir del snapshot de precios de
// los items y nunca se recalcula. Tras la creación, el pedido solo se modifica
// mediante transiciones de estado válidas.
type Order struct {
	ID              string
	OrderNumber     string
	UserID          string
	Status          OrderStatus
	TotalAmount     decimal.Decimal
	ShippingAddress string
	ShippingMethod  string
	TrackingNumber  string
	Notes           string
	Items           []OrderItem
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderItem línea de un pedido. UnitPrice es el precio del producto en el
// momento de la compra (snapshot histórico); inmutable una vez persistido.
type OrderItem struct {
	ID        string
	OrderID   string
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
	CreatedAt time.Time
}
