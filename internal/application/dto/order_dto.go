package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderItemRequest línea de un pedido nuevo.
type OrderItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

// CreateOrderRequest body para POST /api/orders.
type CreateOrderRequest struct {
	Items           []OrderItemRequest `json:"items" validate:"required,min=1"`
	ShippingAddress string             `json:"shipping_address" validate:"required"`
	ShippingMethod  string             `json:"shipping_method,omitempty"`
	Notes           string             `json:"notes,omitempty"`
}

// UpdateOrderStatusRequest body para PUT /api/orders/{id} (solo admin).
// tracking_number y notes solo se aplican junto a una transición válida.
type UpdateOrderStatusRequest struct {
	Status         string `json:"status" validate:"required"`
	TrackingNumber string `json:"tracking_number,omitempty"`
	Notes          string `json:"notes,omitempty"`
}

// OrderItemResponse línea de pedido con su snapshot de precio.
type OrderItemResponse struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// OrderResponse salida de un pedido.
type OrderResponse struct {
	ID              string              `json:"id"`
	OrderNumber     string              `json:"order_number"`
	UserID          string              `json:"user_id"`
	Status          string              `json:"status"`
	TotalAmount     decimal.Decimal     `json:"total_amount"`
	ShippingAddress string              `json:"shipping_address"`
	ShippingMethod  string              `json:"shipping_method,omitempty"`
	TrackingNumber  string              `json:"tracking_number,omitempty"`
	Notes           string              `json:"notes,omitempty"`
	Items           []OrderItemResponse `json:"items"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// OrderWithUserResponse pedido con identidad del comprador (listado admin).
type OrderWithUserResponse struct {
	OrderResponse
	UserEmail    string `json:"user_email"`
	UserFullName string `json:"user_full_name"`
}

// OrderListResponse listado paginado de pedidos.
type OrderListResponse struct {
	Orders []OrderResponse `json:"orders"`
	Page   PageResponse    `json:"page"`
}
