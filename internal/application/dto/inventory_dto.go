package dto

import "time"

// CreateInventoryRequest body para POST /api/inventory (solo admin).
type CreateInventoryRequest struct {
	ProductID       string `json:"product_id" validate:"required,uuid"`
	QuantityInStock int    `json:"quantity_in_stock" validate:"min=0"`
	ReorderLevel    int    `json:"reorder_level"`
	ReorderQuantity int    `json:"reorder_quantity"`
}

// UpdateInventoryRequest body para PUT /api/inventory/{id}. Solo los campos
// presentes se actualizan; las cantidades pasan por el ledger bajo bloqueo.
type UpdateInventoryRequest struct {
	QuantityInStock *int `json:"quantity_in_stock,omitempty"`
	ReorderLevel    *int `json:"reorder_level,omitempty"`
	ReorderQuantity *int `json:"reorder_quantity,omitempty"`
}

// AdjustStockRequest body para POST /api/inventory/{id}/adjust.
// Quantity positivo agrega stock, negativo lo descuenta.
type AdjustStockRequest struct {
	Quantity int    `json:"quantity" validate:"required"`
	Reason   string `json:"reason,omitempty"`
}

// InventoryResponse salida de un registro de inventario.
type InventoryResponse struct {
	ID                string     `json:"id"`
	ProductID         string     `json:"product_id"`
	QuantityInStock   int        `json:"quantity_in_stock"`
	QuantityReserved  int        `json:"quantity_reserved"`
	AvailableQuantity int        `json:"available_quantity"`
	ReorderLevel      int        `json:"reorder_level"`
	ReorderQuantity   int        `json:"reorder_quantity"`
	LastRestockAt     *time.Time `json:"last_restock_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// InventoryWithProductResponse inventario con los datos del producto (listados).
type InventoryWithProductResponse struct {
	InventoryResponse
	ProductName string `json:"product_name"`
	ProductSKU  string `json:"product_sku"`
}
