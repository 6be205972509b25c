package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/ordenes-api/internal/application/dto"
	"github.com/jhoicas/ordenes-api/internal/domain"
	"github.com/jhoicas/ordenes-api/internal/domain/repository"
	"github.com/jhoicas/ordenes-api/pkg/logger"
)

// Ledger es la autoridad única sobre los contadores de stock. Cada operación
// ejecuta una secuencia leer-verificar-escribir sobre un solo registro de
// inventario, bajo bloqueo de fila (SELECT FOR UPDATE) dentro de una
// transacción. Tras cada commit que muta contadores se invalidan las entradas
// de caché del producto afectado; la caché nunca decide nada.
type Ledger struct {
	txRunner TxRunner
	cache    Cache
	log      *logger.Logger
}

// NewLedger construye el ledger de inventario.
func NewLedger(txRunner TxRunner, cache Cache, log *logger.Logger) *Ledger {
	return &Ledger{txRunner: txRunner, cache: cache, log: log}
}

// Reserve incrementa la reserva del producto si hay disponibilidad
// (stock - reservado >= qty). Falla con ErrInsufficientStock sin efecto alguno
// si no alcanza, y con ErrNotFound si el registro no existe.
func (l *Ledger) Reserve(ctx context.Context, productID string, qty int) error {
	err := l.txRunner.Run(ctx, func(invRepo repository.InventoryRepository) error {
		return l.ReserveInTx(ctx, invRepo, productID, qty)
	})
	if err != nil {
		return err
	}
	l.Invalidate(ctx, productID)
	return nil
}

// Release libera qty unidades reservadas del producto, con tope en cero.
// Es idempotente frente a liberaciones dobles y es un no-op silencioso si el
// registro no existe o no tiene reservas: la compensación del pipeline depende
// de que liberar un item nunca reservado no tenga efectos secundarios.
func (l *Ledger) Release(ctx context.Context, productID string, qty int) error {
	err := l.txRunner.Run(ctx, func(invRepo repository.InventoryRepository) error {
		return l.ReleaseInTx(ctx, invRepo, productID, qty)
	})
	if err != nil {
		return err
	}
	l.Invalidate(ctx, productID)
	return nil
}

// AdjustStock aplica un delta al stock físico. Rechaza con ErrInvalidInput si
// el resultado quedaría negativo; un delta positivo actualiza last_restock_at.
func (l *Ledger) AdjustStock(ctx context.Context, productID string, delta int) error {
	err := l.txRunner.Run(ctx, func(invRepo repository.InventoryRepository) error {
		return l.AdjustStockInTx(ctx, invRepo, productID, delta)
	})
	if err != nil {
		return err
	}
	l.Invalidate(ctx, productID)
	return nil
}

// ShipOut convierte reserva en salida real: exige reservado >= qty y
// stock >= qty, y descuenta ambos contadores en la misma transacción.
func (l *Ledger) ShipOut(ctx context.Context, productID string, qty int) error {
	err := l.txRunner.Run(ctx, func(invRepo repository.InventoryRepository) error {
		return l.ShipOutInTx(ctx, invRepo, productID, qty)
	})
	if err != nil {
		return err
	}
	l.Invalidate(ctx, productID)
	return nil
}

// ReserveInTx ejecuta la reserva usando el repositorio de la transacción del
// caller (para transiciones de pedido que mutan pedido e inventario juntos).
// El caller es responsable de invalidar la caché tras el commit.
func (l *Ledger) ReserveInTx(ctx context.Context, invRepo repository.InventoryRepository, productID string, qty int) error {
	if qty <= 0 {
		return domain.ErrInvalidInput
	}
	inv, err := invRepo.GetByProductForUpdate(ctx, productID)
	if err != nil {
		return err
	}
	if inv == nil {
		return domain.ErrNotFound
	}
	if inv.Available() < qty {
		return domain.ErrInsufficientStock
	}
	inv.QuantityReserved += qty
	inv.UpdatedAt = time.Now()
	return invRepo.Update(ctx, inv)
}

// ReleaseInTx ejecuta la liberación usando el repositorio del caller.
func (l *Ledger) ReleaseInTx(ctx context.Context, invRepo repository.InventoryRepository, productID string, qty int) error {
	if qty <= 0 {
		return nil
	}
	inv, err := invRepo.GetByProductForUpdate(ctx, productID)
	if err != nil {
		return err
	}
	if inv == nil || inv.QuantityReserved == 0 {
		// nada que liberar; no es un error
		return nil
	}
	inv.QuantityReserved -= qty
	if inv.QuantityReserved < 0 {
		inv.QuantityReserved = 0
	}
	inv.UpdatedAt = time.Now()
	return invRepo.Update(ctx, inv)
}

// AdjustStockInTx ejecuta el ajuste usando el repositorio del caller.
func (l *Ledger) AdjustStockInTx(ctx context.Context, invRepo repository.InventoryRepository, productID string, delta int) error {
	inv, err := invRepo.GetByProductForUpdate(ctx, productID)
	if err != nil {
		return err
	}
	if inv == nil {
		return domain.ErrNotFound
	}
	if inv.QuantityInStock+delta < 0 {
		return domain.ErrInvalidInput
	}
	now := time.Now()
	inv.QuantityInStock += delta
	if delta > 0 {
		inv.LastRestockAt = &now
	}
	inv.UpdatedAt = now
	return invRepo.Update(ctx, inv)
}

// ShipOutInTx ejecuta la salida usando el repositorio del caller.
func (l *Ledger) ShipOutInTx(ctx context.Context, invRepo repository.InventoryRepository, productID string, qty int) error {
	if qty <= 0 {
		return domain.ErrInvalidInput
	}
	inv, err := invRepo.GetByProductForUpdate(ctx, productID)
	if err != nil {
		return err
	}
	if inv == nil {
		return domain.ErrNotFound
	}
	if inv.QuantityReserved < qty || inv.QuantityInStock < qty {
		return domain.ErrConflict
	}
	inv.QuantityInStock -= qty
	inv.QuantityReserved -= qty
	inv.UpdatedAt = time.Now()
	return invRepo.Update(ctx, inv)
}

// UpdateRecord actualiza campos administrativos del registro bajo el mismo
// bloqueo de fila que el resto de operaciones. Un nuevo quantity_in_stock por
// debajo de lo reservado violaría el invariante y se rechaza con ErrConflict;
// un incremento de stock actualiza last_restock_at.
func (l *Ledger) UpdateRecord(ctx context.Context, productID string, in dto.UpdateInventoryRequest) error {
	err := l.txRunner.Run(ctx, func(invRepo repository.InventoryRepository) error {
		inv, err := invRepo.GetByProductForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if inv == nil {
			return domain.ErrNotFound
		}
		now := time.Now()
		if in.QuantityInStock != nil {
			if *in.QuantityInStock < 0 {
				return domain.ErrInvalidInput
			}
			if *in.QuantityInStock < inv.QuantityReserved {
				return domain.ErrConflict
			}
			if *in.QuantityInStock > inv.QuantityInStock {
				inv.LastRestockAt = &now
			}
			inv.QuantityInStock = *in.QuantityInStock
		}
		if in.ReorderLevel != nil {
			inv.ReorderLevel = *in.ReorderLevel
		}
		if in.ReorderQuantity != nil {
			inv.ReorderQuantity = *in.ReorderQuantity
		}
		inv.UpdatedAt = now
		return invRepo.Update(ctx, inv)
	})
	if err != nil {
		return err
	}
	l.Invalidate(ctx, productID)
	return nil
}

// Invalidate borra las entradas de caché que podrían reflejar stock obsoleto
// de los productos indicados, más las colecciones (listado y low-stock).
func (l *Ledger) Invalidate(ctx context.Context, productIDs ...string) {
	keys := make([]string, 0, len(productIDs)+2)
	for _, id := range productIDs {
		keys = append(keys, CacheKeyProduct(id))
	}
	keys = append(keys, CacheKeyList, CacheKeyLowStock)
	l.cache.Delete(ctx, keys...)
}
