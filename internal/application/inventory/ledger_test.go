package inventory_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/ordenes-api/internal/application/inventory"
	"github.com/jhoicas/ordenes-api/internal/domain"
	"github.com/jhoicas/ordenes-api/internal/domain/entity"
	"github.com/jhoicas/ordenes-api/pkg/logger"
)

const testProductID = "p-001"

func newTestLedger(stock, reserved int) (*inventory.Ledger, *memTxRunner, *spyCache) {
	runner := &memTxRunner{store: newMemStore(&entity.Inventory{
		ID:               "inv-001",
		ProductID:        testProductID,
		QuantityInStock:  stock,
		QuantityReserved: reserved,
		ReorderLevel:     2,
	})}
	cache := &spyCache{}
	return inventory.NewLedger(runner, cache, logger.Nop()), runner, cache
}

// Con K unidades y N > K reservas concurrentes de 1 unidad deben triunfar
// exactamente K; nunca más.
func TestLedger_ReservasConcurrentesNoSobrevenden(t *testing.T) {
	const stock, goroutines = 5, 8
	ledger, runner, _ := newTestLedger(stock, 0)

	var wg sync.WaitGroup
	errs := make([]error, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = ledger.Reserve(context.Background(), testProductID, 1)
		}(i)
	}
	wg.Wait()

	ok, insufficient := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case err == domain.ErrInsufficientStock:
			insufficient++
		default:
			t.Fatalf("error inesperado: %v", err)
		}
	}
	assert.Equal(t, stock, ok, "deben triunfar exactamente tantas reservas como stock")
	assert.Equal(t, goroutines-stock, insufficient)

	inv := runner.get(testProductID)
	assert.Equal(t, stock, inv.QuantityReserved)
	assert.Equal(t, stock, inv.QuantityInStock, "reservar no toca el stock físico")
	assert.Equal(t, 0, inv.Available())
}

// Tres reservas simultáneas compitiendo por la última unidad: exactamente una gana.
func TestLedger_UltimaUnidadLaGanaUnaSolaReserva(t *testing.T) {
	ledger, runner, _ := newTestLedger(3, 2) // disponible = 1

	var wg sync.WaitGroup
	errs := make([]error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = ledger.Reserve(context.Background(), testProductID, 1)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		} else {
			require.ErrorIs(t, err, domain.ErrInsufficientStock)
		}
	}
	assert.Equal(t, 1, ok, "solo una reserva puede ganar la última unidad")
	inv := runner.get(testProductID)
	assert.Equal(t, 0, inv.Available())
}

func TestLedger_ReservaInsuficienteSinEfectos(t *testing.T) {
	ledger, runner, _ := newTestLedger(2, 0)

	err := ledger.Reserve(context.Background(), testProductID, 3)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	inv := runner.get(testProductID)
	assert.Equal(t, 0, inv.QuantityReserved, "una reserva fallida no deja efectos parciales")
	assert.Equal(t, 2, inv.QuantityInStock)
}

func TestLedger_ReservaProductoInexistente(t *testing.T) {
	ledger, _, _ := newTestLedger(2, 0)
	err := ledger.Reserve(context.Background(), "no-existe", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLedger_ReservaCantidadInvalida(t *testing.T) {
	ledger, _, _ := newTestLedger(2, 0)
	assert.ErrorIs(t, ledger.Reserve(context.Background(), testProductID, 0), domain.ErrInvalidInput)
	assert.ErrorIs(t, ledger.Reserve(context.Background(), testProductID, -1), domain.ErrInvalidInput)
}

// Liberar dos veces lo mismo no puede dejar la reserva en negativo.
func TestLedger_DobleReleaseClampaEnCero(t *testing.T) {
	ledger, runner, _ := newTestLedger(5, 3)
	ctx := context.Background()

	require.NoError(t, ledger.Release(ctx, testProductID, 3))
	assert.Equal(t, 0, runner.get(testProductID).QuantityReserved)

	// segunda liberación del mismo pedido: no-op silencioso
	require.NoError(t, ledger.Release(ctx, testProductID, 3))
	inv := runner.get(testProductID)
	assert.Equal(t, 0, inv.QuantityReserved)
	assert.Equal(t, 5, inv.QuantityInStock)
}

func TestLedger_ReleaseSobreProductoInexistenteEsNoOp(t *testing.T) {
	ledger, _, _ := newTestLedger(5, 0)
	assert.NoError(t, ledger.Release(context.Background(), "no-existe", 2))
}

func TestLedger_ReleaseParcialYClamp(t *testing.T) {
	ledger, runner, _ := newTestLedger(5, 2)

	// liberar más de lo reservado clampa en cero en lugar de fallar
	require.NoError(t, ledger.Release(context.Background(), testProductID, 4))
	assert.Equal(t, 0, runner.get(testProductID).QuantityReserved)
}

func TestLedger_ShipOutDescuentaAmbosContadores(t *testing.T) {
	ledger, runner, _ := newTestLedger(5, 3)

	require.NoError(t, ledger.ShipOut(context.Background(), testProductID, 3))
	inv := runner.get(testProductID)
	assert.Equal(t, 2, inv.QuantityInStock)
	assert.Equal(t, 0, inv.QuantityReserved)
}

func TestLedger_ShipOutMasDeLoReservadoFalla(t *testing.T) {
	ledger, runner, _ := newTestLedger(5, 2)

	err := ledger.ShipOut(context.Background(), testProductID, 3)
	require.ErrorIs(t, err, domain.ErrConflict)

	inv := runner.get(testProductID)
	assert.Equal(t, 5, inv.QuantityInStock, "un envío rechazado no toca contadores")
	assert.Equal(t, 2, inv.QuantityReserved)
}

func TestLedger_AdjustStockNoPermiteNegativo(t *testing.T) {
	ledger, runner, _ := newTestLedger(2, 0)

	err := ledger.AdjustStock(context.Background(), testProductID, -3)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 2, runner.get(testProductID).QuantityInStock)
}

func TestLedger_AdjustStockPositivoMarcaRestock(t *testing.T) {
	ledger, runner, _ := newTestLedger(2, 0)

	require.NoError(t, ledger.AdjustStock(context.Background(), testProductID, 10))
	inv := runner.get(testProductID)
	assert.Equal(t, 12, inv.QuantityInStock)
	assert.NotNil(t, inv.LastRestockAt, "un ingreso de stock registra last_restock_at")
}

func TestLedger_AdjustStockNegativoDentroDelStock(t *testing.T) {
	ledger, runner, _ := newTestLedger(10, 0)

	require.NoError(t, ledger.AdjustStock(context.Background(), testProductID, -4))
	inv := runner.get(testProductID)
	assert.Equal(t, 6, inv.QuantityInStock)
	assert.Nil(t, inv.LastRestockAt, "un descuento no marca restock")
}

// Toda mutación que hace commit invalida las claves del producto y las colecciones.
func TestLedger_MutacionInvalidaCache(t *testing.T) {
	ledger, _, cache := newTestLedger(5, 0)

	require.NoError(t, ledger.Reserve(context.Background(), testProductID, 1))

	keys := cache.deletedKeys()
	assert.Contains(t, keys, inventory.CacheKeyProduct(testProductID))
	assert.Contains(t, keys, inventory.CacheKeyList)
	assert.Contains(t, keys, inventory.CacheKeyLowStock)
}

// Una mutación fallida no invalida nada: la caché sigue siendo consistente con
// la base, que no cambió.
func TestLedger_MutacionFallidaNoTocaCache(t *testing.T) {
	ledger, _, cache := newTestLedger(1, 0)

	require.Error(t, ledger.Reserve(context.Background(), testProductID, 5))
	assert.Empty(t, cache.deletedKeys())
}
