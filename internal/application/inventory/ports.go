package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/ordenes-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando un
// repositorio de inventario atado a esa tx. Garantiza atomicidad para las
// operaciones leer-verificar-escribir del ledger.
type TxRunner interface {
	Run(ctx context.Context, fn func(invRepo repository.InventoryRepository) error) error
}

// Cache puerto de la capa de caché de lectura (read-through, write-invalidate).
// La caché nunca es autoritativa: cualquier fallo del backend degrada a miss y
// jamás se propaga al caller. Por eso Get devuelve (nil, false) ante errores y
// Set/Delete no devuelven error.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, keys ...string)
}

// Claves y TTLs de caché de inventario.
const (
	cacheKeyPrefix   = "inv:"
	CacheKeyList     = "inv:all"
	CacheKeyLowStock = "inv:low_stock"

	InventoryTTL = 10 * time.Minute
	DefaultTTL   = 5 * time.Minute
	LowStockTTL  = 3 * time.Minute
)

// DefaultListLimit límite de página por defecto en los listados de inventario.
// Solo la consulta con este límite (o sin límite) se sirve desde caché: un
// listado con otro límite es una consulta distinta y no debe compartir entrada.
const DefaultListLimit = 50

// CacheKeyProduct devuelve la clave de caché del inventario de un producto.
func CacheKeyProduct(productID string) string {
	return cacheKeyPrefix + productID
}

// CacheKeyRecord devuelve la clave de caché de un registro de inventario por su ID.
func CacheKeyRecord(inventoryID string) string {
	return cacheKeyPrefix + "id:" + inventoryID
}
