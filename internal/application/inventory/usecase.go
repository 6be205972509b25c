package inventory

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/ordenes-api/internal/application/dto"
	"github.com/jhoicas/ordenes-api/internal/domain"
	"github.com/jhoicas/ordenes-api/internal/domain/entity"
	"github.com/jhoicas/ordenes-api/internal/domain/repository"
	"github.com/jhoicas/ordenes-api/pkg/logger"
)

// UseCase expone las lecturas de inventario (con caché read-through) y el CRUD
// administrativo. Toda mutación de contadores delega en el ledger; este caso de
// uso jamás escribe stock por su cuenta.
type UseCase struct {
	invRepo     repository.InventoryRepository
	productRepo repository.ProductRepository
	ledger      *Ledger
	cache       Cache
	log         *logger.Logger
}

// NewUseCase construye el caso de uso de inventario.
func NewUseCase(
	invRepo repository.InventoryRepository,
	productRepo repository.ProductRepository,
	ledger *Ledger,
	cache Cache,
	log *logger.Logger,
) *UseCase {
	return &UseCase{
		invRepo:     invRepo,
		productRepo: productRepo,
		ledger:      ledger,
		cache:       cache,
		log:         log,
	}
}

// Create crea el registro de inventario de un producto (acción administrativa,
// una sola vez por producto). ErrNotFound si el producto no existe;
// ErrDuplicate si el producto ya tiene inventario.
func (uc *UseCase) Create(ctx context.Context, in dto.CreateInventoryRequest) (*dto.InventoryResponse, error) {
	if in.ProductID == "" || in.QuantityInStock < 0 {
		return nil, domain.ErrInvalidInput
	}
	product, err := uc.productRepo.GetByID(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}
	existing, err := uc.invRepo.GetByProduct(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicate
	}

	now := time.Now()
	inv := &entity.Inventory{
		ID:              uuid.New().String(),
		ProductID:       in.ProductID,
		QuantityInStock: in.QuantityInStock,
		ReorderLevel:    in.ReorderLevel,
		ReorderQuantity: in.ReorderQuantity,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	// Stock inicial cuenta como reposición
	if in.QuantityInStock > 0 {
		inv.LastRestockAt = &now
	}
	if err := uc.invRepo.Create(ctx, inv); err != nil {
		return nil, err
	}
	uc.ledger.Invalidate(ctx, in.ProductID)
	return toInventoryResponse(inv), nil
}

// Update actualiza campos administrativos del registro. Las cantidades pasan
// por el ledger bajo bloqueo de fila para no violar el invariante
// stock - reservado >= 0.
func (uc *UseCase) Update(ctx context.Context, inventoryID string, in dto.UpdateInventoryRequest) (*dto.InventoryResponse, error) {
	inv, err := uc.invRepo.GetByID(ctx, inventoryID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	if err := uc.ledger.UpdateRecord(ctx, inv.ProductID, in); err != nil {
		return nil, err
	}
	updated, err := uc.invRepo.GetByID(ctx, inventoryID)
	if err != nil {
		return nil, err
	}
	return toInventoryResponse(updated), nil
}

// Adjust aplica un delta al stock del registro (400 si quedaría negativo).
func (uc *UseCase) Adjust(ctx context.Context, inventoryID string, in dto.AdjustStockRequest) (*dto.InventoryResponse, error) {
	inv, err := uc.invRepo.GetByID(ctx, inventoryID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	if err := uc.ledger.AdjustStock(ctx, inv.ProductID, in.Quantity); err != nil {
		return nil, err
	}
	if in.Reason != "" {
		uc.log.Info().
			Str("inventory_id", inventoryID).
			Int("delta", in.Quantity).
			Str("reason", in.Reason).
			Msg("ajuste de stock")
	}
	updated, err := uc.invRepo.GetByID(ctx, inventoryID)
	if err != nil {
		return nil, err
	}
	return toInventoryResponse(updated), nil
}

// List devuelve el inventario con datos de producto. Solo la consulta por
// defecto (sin filtro de producto, sin offset y con el límite por defecto) se
// sirve desde caché: cachear un listado con otro límite bajo la misma clave
// serviría el número de filas equivocado a la siguiente consulta.
func (uc *UseCase) List(ctx context.Context, filter repository.InventoryListFilter) ([]dto.InventoryWithProductResponse, error) {
	cacheKey := ""
	ttl := InventoryTTL
	defaultQuery := filter.ProductID == "" && filter.Offset == 0 &&
		(filter.Limit == 0 || filter.Limit == DefaultListLimit)
	if defaultQuery {
		if filter.LowStock {
			cacheKey = CacheKeyLowStock
			ttl = LowStockTTL
		} else {
			cacheKey = CacheKeyList
		}
	}
	if cacheKey != "" {
		if raw, ok := uc.cache.Get(ctx, cacheKey); ok {
			var cached []dto.InventoryWithProductResponse
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
		}
	}

	rows, err := uc.invRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]dto.InventoryWithProductResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, toInventoryWithProduct(row))
	}
	if cacheKey != "" {
		if raw, err := json.Marshal(out); err == nil {
			uc.cache.Set(ctx, cacheKey, raw, ttl)
		}
	}
	return out, nil
}

// GetByID devuelve un registro de inventario por su ID (read-through).
func (uc *UseCase) GetByID(ctx context.Context, inventoryID string) (*dto.InventoryWithProductResponse, error) {
	key := CacheKeyRecord(inventoryID)
	if raw, ok := uc.cache.Get(ctx, key); ok {
		var cached dto.InventoryWithProductResponse
		if err := json.Unmarshal(raw, &cached); err == nil {
			return &cached, nil
		}
	}
	row, err := uc.invRepo.GetRowByID(ctx, inventoryID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, domain.ErrNotFound
	}
	out := toInventoryWithProduct(*row)
	if raw, err := json.Marshal(out); err == nil {
		uc.cache.Set(ctx, key, raw, InventoryTTL)
	}
	return &out, nil
}

// GetByProduct devuelve el inventario de un producto (read-through sobre inv:{id}).
func (uc *UseCase) GetByProduct(ctx context.Context, productID string) (*dto.InventoryResponse, error) {
	key := CacheKeyProduct(productID)
	if raw, ok := uc.cache.Get(ctx, key); ok {
		var cached dto.InventoryResponse
		if err := json.Unmarshal(raw, &cached); err == nil {
			return &cached, nil
		}
	}
	inv, err := uc.invRepo.GetByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	out := toInventoryResponse(inv)
	if raw, err := json.Marshal(out); err == nil {
		uc.cache.Set(ctx, key, raw, InventoryTTL)
	}
	return out, nil
}

// GetAvailability devuelve la cantidad disponible de un producto para el
// pre-chequeo de creación de pedidos. Es una lectura consultiva: puede venir
// de la caché y estar desfasada dentro del TTL; la decisión vinculante es
// siempre la re-verificación dentro de Reserve bajo bloqueo de fila.
func (uc *UseCase) GetAvailability(ctx context.Context, productID string) (int, error) {
	out, err := uc.GetByProduct(ctx, productID)
	if err != nil {
		return 0, err
	}
	return out.QuantityInStock - out.QuantityReserved, nil
}

// LowStock devuelve los registros con disponible <= reorder_level.
func (uc *UseCase) LowStock(ctx context.Context) ([]dto.InventoryWithProductResponse, error) {
	return uc.List(ctx, repository.InventoryListFilter{LowStock: true})
}

func toInventoryResponse(inv *entity.Inventory) *dto.InventoryResponse {
	if inv == nil {
		return nil
	}
	return &dto.InventoryResponse{
		ID:                inv.ID,
		ProductID:         inv.ProductID,
		QuantityInStock:   inv.QuantityInStock,
		QuantityReserved:  inv.QuantityReserved,
		AvailableQuantity: inv.Available(),
		ReorderLevel:      inv.ReorderLevel,
		ReorderQuantity:   inv.ReorderQuantity,
		LastRestockAt:     inv.LastRestockAt,
		CreatedAt:         inv.CreatedAt,
		UpdatedAt:         inv.UpdatedAt,
	}
}

func toInventoryWithProduct(row repository.InventoryRow) dto.InventoryWithProductResponse {
	return dto.InventoryWithProductResponse{
		InventoryResponse: *toInventoryResponse(&row.Inventory),
		ProductName:       row.ProductName,
		ProductSKU:        row.ProductSKU,
	}
}
