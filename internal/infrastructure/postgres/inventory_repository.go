package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/ordenes-api/internal/domain"
	"github.com/jhoicas/ordenes-api/internal/domain/entity"
	"github.com/jhoicas/ordenes-api/internal/domain/repository"
)

var _ repository.InventoryRepository = (*InventoryRepo)(nil)

// InventoryRepo implementación del puerto InventoryRepository sobre PostgreSQL
// (usable con pool o tx).
type InventoryRepo struct {
	q Querier
}

// NewInventoryRepository construye el adaptador de inventario. Pasar pool o tx (Querier).
func NewInventoryRepository(q Querier) *InventoryRepo {
	return &InventoryRepo{q: q}
}

const inventoryColumns = `id, product_id, quantity_in_stock, quantity_reserved,
	reorder_level, reorder_quantity, last_restock_at, created_at, updated_at`

// Create persiste un registro de inventario. Producto con registro existente
// devuelve ErrDuplicate (índice único sobre product_id).
func (r *InventoryRepo) Create(ctx context.Context, inv *entity.Inventory) error {
	query := `
		INSERT INTO inventory (` + inventoryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query,
		inv.ID, inv.ProductID, inv.QuantityInStock, inv.QuantityReserved,
		inv.ReorderLevel, inv.ReorderQuantity, inv.LastRestockAt,
		inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert inventory: %w", err)
	}
	return nil
}

// GetByID obtiene un registro por ID. Devuelve (nil, nil) si no existe.
func (r *InventoryRepo) GetByID(ctx context.Context, id string) (*entity.Inventory, error) {
	query := `SELECT ` + inventoryColumns + ` FROM inventory WHERE id = $1`
	return r.scanOne(r.q.QueryRow(ctx, query, id), "get inventory by id")
}

// GetByProduct obtiene el registro de un producto. Devuelve (nil, nil) si no existe.
func (r *InventoryRepo) GetByProduct(ctx context.Context, productID string) (*entity.Inventory, error) {
	query := `SELECT ` + inventoryColumns + ` FROM inventory WHERE product_id = $1`
	return r.scanOne(r.q.QueryRow(ctx, query, productID), "get inventory by product")
}

// GetByProductForUpdate obtiene el registro de un producto y bloquea la fila
// (SELECT FOR UPDATE). Solo tiene sentido dentro de una transacción.
func (r *InventoryRepo) GetByProductForUpdate(ctx context.Context, productID string) (*entity.Inventory, error) {
	query := `SELECT ` + inventoryColumns + ` FROM inventory WHERE product_id = $1 FOR UPDATE`
	return r.scanOne(r.q.QueryRow(ctx, query, productID), "get inventory for update")
}

// Update persiste el registro completo (cantidades, niveles de reorden, last_restock_at).
func (r *InventoryRepo) Update(ctx context.Context, inv *entity.Inventory) error {
	query := `
		UPDATE inventory
		SET quantity_in_stock = $2, quantity_reserved = $3, reorder_level = $4,
		    reorder_quantity = $5, last_restock_at = $6, updated_at = $7
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		inv.ID, inv.QuantityInStock, inv.QuantityReserved, inv.ReorderLevel,
		inv.ReorderQuantity, inv.LastRestockAt, inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update inventory: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List lista registros con los datos del producto (JOIN), con filtros opcionales.
func (r *InventoryRepo) List(ctx context.Context, filter repository.InventoryListFilter) ([]repository.InventoryRow, error) {
	query := `
		SELECT i.id, i.product_id, i.quantity_in_stock, i.quantity_reserved,
		       i.reorder_level, i.reorder_quantity, i.last_restock_at, i.created_at, i.updated_at,
		       p.name, p.sku
		FROM inventory i
		JOIN products p ON p.id = i.product_id`
	var (
		conds []string
		args  []any
	)
	if filter.ProductID != "" {
		args = append(args, filter.ProductID)
		conds = append(conds, fmt.Sprintf("i.product_id = $%d", len(args)))
	}
	if filter.LowStock {
		conds = append(conds, "i.quantity_in_stock - i.quantity_reserved <= i.reorder_level")
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY p.name"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	defer rows.Close()
	var list []repository.InventoryRow
	for rows.Next() {
		var row repository.InventoryRow
		inv := &row.Inventory
		if err := rows.Scan(
			&inv.ID, &inv.ProductID, &inv.QuantityInStock, &inv.QuantityReserved,
			&inv.ReorderLevel, &inv.ReorderQuantity, &inv.LastRestockAt, &inv.CreatedAt, &inv.UpdatedAt,
			&row.ProductName, &row.ProductSKU,
		); err != nil {
			return nil, fmt.Errorf("scan inventory row: %w", err)
		}
		list = append(list, row)
	}
	return list, rows.Err()
}

// GetRowByID obtiene un registro con los datos del producto. Devuelve (nil, nil) si no existe.
func (r *InventoryRepo) GetRowByID(ctx context.Context, id string) (*repository.InventoryRow, error) {
	query := `
		SELECT i.id, i.product_id, i.quantity_in_stock, i.quantity_reserved,
		       i.reorder_level, i.reorder_quantity, i.last_restock_at, i.created_at, i.updated_at,
		       p.name, p.sku
		FROM inventory i
		JOIN products p ON p.id = i.product_id
		WHERE i.id = $1`
	var row repository.InventoryRow
	inv := &row.Inventory
	err := r.q.QueryRow(ctx, query, id).Scan(
		&inv.ID, &inv.ProductID, &inv.QuantityInStock, &inv.QuantityReserved,
		&inv.ReorderLevel, &inv.ReorderQuantity, &inv.LastRestockAt, &inv.CreatedAt, &inv.UpdatedAt,
		&row.ProductName, &row.ProductSKU,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get inventory row: %w", err)
	}
	return &row, nil
}

func (r *InventoryRepo) scanOne(row pgx.Row, op string) (*entity.Inventory, error) {
	var inv entity.Inventory
	err := row.Scan(
		&inv.ID, &inv.ProductID, &inv.QuantityInStock, &inv.QuantityReserved,
		&inv.ReorderLevel, &inv.ReorderQuantity, &inv.LastRestockAt,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &inv, nil
}
