package order_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/ordenes-api/internal/application/dto"
	"github.com/jhoicas/ordenes-api/internal/application/inventory"
	"github.com/jhoicas/ordenes-api/internal/application/order"
	"github.com/jhoicas/ordenes-api/internal/domain"
	"github.com/jhoicas/ordenes-api/internal/domain/entity"
	"github.com/jhoicas/ordenes-api/pkg/logger"
)

// usecaseEnv arma el caso de uso de pedidos sobre los fakes en memoria.
type usecaseEnv struct {
	runner   *memRunner
	products *memProductRepo
	queue    *spyQueue
	uc       *order.UseCase
}

func newUsecaseEnv() *usecaseEnv {
	runner := &memRunner{state: newMemState()}
	products := &memProductRepo{products: make(map[string]*entity.Product)}
	queue := &spyQueue{}
	log := logger.Nop()
	ledger := inventory.NewLedger(runner, noopCache{}, log)
	uc := order.NewUseCase(
		&memOrderRepo{state: runner.state},
		products,
		&availabilityFromState{runner: runner},
		ledger,
		runner,
		queue,
		log,
	)
	return &usecaseEnv{runner: runner, products: products, queue: queue, uc: uc}
}

func (e *usecaseEnv) addProduct(id, price string) {
	e.products.products[id] = &entity.Product{
		ID:    id,
		SKU:   "SKU-" + id,
		Name:  "Producto " + id,
		Price: decimal.RequireFromString(price),
	}
}

func TestCreateOrder_CongelaPreciosYEncolaConPrioridadAlta(t *testing.T) {
	env := newUsecaseEnv()
	env.addProduct("p-1", "10.00")
	env.addProduct("p-2", "4.50")
	env.runner.state.addInventory("p-1", 10, 0)
	env.runner.state.addInventory("p-2", 10, 0)

	resp, err := env.uc.Create(context.Background(), "user-1", dto.CreateOrderRequest{
		Items: []dto.OrderItemRequest{
			{ProductID: "p-1", Quantity: 2},
			{ProductID: "p-2", Quantity: 3},
		},
		ShippingAddress: "Calle 10 #20-30",
	})
	require.NoError(t, err)

	// total = 2*10.00 + 3*4.50 = 33.50
	assert.True(t, resp.TotalAmount.Equal(decimal.RequireFromString("33.50")),
		"total incorrecto: %s", resp.TotalAmount)
	assert.Equal(t, string(entity.OrderStatusPending), resp.Status)
	assert.True(t, strings.HasPrefix(resp.OrderNumber, "ORD-"))
	require.Len(t, resp.Items, 2)
	assert.True(t, resp.Items[0].UnitPrice.Equal(decimal.RequireFromString("10.00")))

	// la creación NO reserva: la reserva la hace el pipeline
	inv := env.runner.getInventory("p-1")
	assert.Equal(t, 0, inv.QuantityReserved)

	jobs := env.queue.enqueued()
	require.Len(t, jobs, 1)
	assert.Equal(t, order.JobTypeProcessOrder, jobs[0].Type)
	assert.Equal(t, resp.ID, jobs[0].OrderID)
}

func TestCreateOrder_ProductoInexistenteRetornaNotFound(t *testing.T) {
	env := newUsecaseEnv()

	_, err := env.uc.Create(context.Background(), "user-1", dto.CreateOrderRequest{
		Items:           []dto.OrderItemRequest{{ProductID: "no-existe", Quantity: 1}},
		ShippingAddress: "Calle 10",
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, env.queue.enqueued())
}

func TestCreateOrder_ProductoSinInventarioEsInvalido(t *testing.T) {
	env := newUsecaseEnv()
	env.addProduct("p-1", "10.00") // producto en catálogo pero sin registro de inventario

	_, err := env.uc.Create(context.Background(), "user-1", dto.CreateOrderRequest{
		Items:           []dto.OrderItemRequest{{ProductID: "p-1", Quantity: 1}},
		ShippingAddress: "Calle 10",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCreateOrder_DisponibilidadInsuficienteRechaza(t *testing.T) {
	env := newUsecaseEnv()
	env.addProduct("p-1", "10.00")
	env.runner.state.addInventory("p-1", 5, 4) // disponible 1

	_, err := env.uc.Create(context.Background(), "user-1", dto.CreateOrderRequest{
		Items:           []dto.OrderItemRequest{{ProductID: "p-1", Quantity: 2}},
		ShippingAddress: "Calle 10",
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Empty(t, env.queue.enqueued())
}

func TestCreateOrder_SinItemsOSinDireccionEsInvalido(t *testing.T) {
	env := newUsecaseEnv()

	_, err := env.uc.Create(context.Background(), "user-1", dto.CreateOrderRequest{
		ShippingAddress: "Calle 10",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = env.uc.Create(context.Background(), "user-1", dto.CreateOrderRequest{
		Items: []dto.OrderItemRequest{{ProductID: "p-1", Quantity: 1}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCreateOrder_FalloDeColaNoPierdeElPedido(t *testing.T) {
	env := newUsecaseEnv()
	env.queue.failErr = errors.New("redis caído")
	env.addProduct("p-1", "10.00")
	env.runner.state.addInventory("p-1", 10, 0)

	resp, err := env.uc.Create(context.Background(), "user-1", dto.CreateOrderRequest{
		Items:           []dto.OrderItemRequest{{ProductID: "p-1", Quantity: 1}},
		ShippingAddress: "Calle 10",
	})
	require.NoError(t, err)

	// el pedido quedó persistido en pending aunque el encolado falló
	ord := env.runner.getOrder(resp.ID)
	require.NotNil(t, ord)
	assert.Equal(t, entity.OrderStatusPending, ord.Status)
}

func (e *usecaseEnv) seedOrder(id, userID string, status entity.OrderStatus, items ...entity.OrderItem) {
	now := time.Now()
	e.runner.state.orders[id] = &entity.Order{
		ID:          id,
		OrderNumber: "ORD-" + strings.ToUpper(id),
		UserID:      userID,
		Status:      status,
		TotalAmount: decimal.NewFromInt(50),
		Items:       items,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestUpdateStatus_PendingAProcessingReservaInventario(t *testing.T) {
	env := newUsecaseEnv()
	env.runner.state.addInventory("p-1", 10, 0)
	env.seedOrder("ord-1", "user-1", entity.OrderStatusPending, item("p-1", 3))

	resp, err := env.uc.UpdateStatus(context.Background(), "ord-1", dto.UpdateOrderStatusRequest{
		Status: "processing",
	})
	require.NoError(t, err)
	assert.Equal(t, "processing", resp.Status)

	inv := env.runner.getInventory("p-1")
	assert.Equal(t, 3, inv.QuantityReserved)
	assert.Equal(t, 10, inv.QuantityInStock)
}

func TestUpdateStatus_ProcessingAShippedDescuentaStock(t *testing.T) {
	env := newUsecaseEnv()
	env.runner.state.addInventory("p-1", 10, 3)
	env.seedOrder("ord-1", "user-1", entity.OrderStatusProcessing, item("p-1", 3))

	resp, err := env.uc.UpdateStatus(context.Background(), "ord-1", dto.UpdateOrderStatusRequest{
		Status:         "shipped",
		TrackingNumber: "TRK-123",
	})
	require.NoError(t, err)
	assert.Equal(t, "shipped", resp.Status)
	assert.Equal(t, "TRK-123", resp.TrackingNumber)

	inv := env.runner.getInventory("p-1")
	assert.Equal(t, 7, inv.QuantityInStock)
	assert.Equal(t, 0, inv.QuantityReserved)
}

func TestUpdateStatus_ShippedADeliveredNoTocaInventario(t *testing.T) {
	env := newUsecaseEnv()
	env.runner.state.addInventory("p-1", 7, 0)
	env.seedOrder("ord-1", "user-1", entity.OrderStatusShipped, item("p-1", 3))

	resp, err := env.uc.UpdateStatus(context.Background(), "ord-1", dto.UpdateOrderStatusRequest{
		Status: "delivered",
	})
	require.NoError(t, err)
	assert.Equal(t, "delivered", resp.Status)

	inv := env.runner.getInventory("p-1")
	assert.Equal(t, 7, inv.QuantityInStock)
	assert.Equal(t, 0, inv.QuantityReserved)
}

func TestUpdateStatus_ProcessingACancelledLiberaReservas(t *testing.T) {
	env := newUsecaseEnv()
	env.runner.state.addInventory("p-1", 10, 3)
	env.seedOrder("ord-1", "user-1", entity.OrderStatusProcessing, item("p-1", 3))

	resp, err := env.uc.UpdateStatus(context.Background(), "ord-1", dto.UpdateOrderStatusRequest{
		Status: "cancelled",
	})
	require.NoError(t, err)
	assert.Equal(t, "cancelled", resp.Status)

	inv := env.runner.getInventory("p-1")
	assert.Equal(t, 0, inv.QuantityReserved)
	assert.Equal(t, 10, inv.QuantityInStock)
}

func TestUpdateStatus_TransicionIlegalNoTieneEfectos(t *testing.T) {
	env := newUsecaseEnv()
	env.runner.state.addInventory("p-1", 10, 0)
	env.seedOrder("ord-1", "user-1", entity.OrderStatusDelivered, item("p-1", 3))

	_, err := env.uc.UpdateStatus(context.Background(), "ord-1", dto.UpdateOrderStatusRequest{
		Status: "processing",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	ord := env.runner.getOrder("ord-1")
	assert.Equal(t, entity.OrderStatusDelivered, ord.Status)
	inv := env.runner.getInventory("p-1")
	assert.Equal(t, 0, inv.QuantityReserved)
}

func TestUpdateStatus_SinStockParaReservarRevierteLaTransicion(t *testing.T) {
	env := newUsecaseEnv()
	env.runner.state.addInventory("p-1", 2, 0)
	env.seedOrder("ord-1", "user-1", entity.OrderStatusPending, item("p-1", 3))

	_, err := env.uc.UpdateStatus(context.Background(), "ord-1", dto.UpdateOrderStatusRequest{
		Status: "processing",
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	// rollback completo: el pedido sigue pending y nada quedó reservado
	ord := env.runner.getOrder("ord-1")
	assert.Equal(t, entity.OrderStatusPending, ord.Status)
	inv := env.runner.getInventory("p-1")
	assert.Equal(t, 0, inv.QuantityReserved)
}

func TestUpdateStatus_EstadoDesconocidoEsInvalido(t *testing.T) {
	env := newUsecaseEnv()
	env.seedOrder("ord-1", "user-1", entity.OrderStatusPending)

	_, err := env.uc.UpdateStatus(context.Background(), "ord-1", dto.UpdateOrderStatusRequest{
		Status: "archivado",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestUpdateStatus_PedidoInexistenteRetornaNotFound(t *testing.T) {
	env := newUsecaseEnv()

	_, err := env.uc.UpdateStatus(context.Background(), "no-existe", dto.UpdateOrderStatusRequest{
		Status: "processing",
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCancel_DuenoCancelaYRecuperaReservas(t *testing.T) {
	env := newUsecaseEnv()
	env.runner.state.addInventory("p-1", 10, 3)
	env.seedOrder("ord-1", "user-1", entity.OrderStatusProcessing, item("p-1", 3))

	err := env.uc.Cancel(context.Background(), "ord-1", "user-1", false)
	require.NoError(t, err)

	ord := env.runner.getOrder("ord-1")
	assert.Equal(t, entity.OrderStatusCancelled, ord.Status)
	inv := env.runner.getInventory("p-1")
	assert.Equal(t, 0, inv.QuantityReserved)
	assert.Equal(t, 10, inv.QuantityInStock)
}

func TestCancel_OtroUsuarioRecibeForbidden(t *testing.T) {
	env := newUsecaseEnv()
	env.runner.state.addInventory("p-1", 10, 3)
	env.seedOrder("ord-1", "user-1", entity.OrderStatusProcessing, item("p-1", 3))

	err := env.uc.Cancel(context.Background(), "ord-1", "user-2", false)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Equal(t, entity.OrderStatusProcessing, env.runner.getOrder("ord-1").Status)
}

func TestCancel_AdminPuedeCancelarPedidoAjeno(t *testing.T) {
	env := newUsecaseEnv()
	env.runner.state.addInventory("p-1", 10, 3)
	env.seedOrder("ord-1", "user-1", entity.OrderStatusProcessing, item("p-1", 3))

	err := env.uc.Cancel(context.Background(), "ord-1", "admin-1", true)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusCancelled, env.runner.getOrder("ord-1").Status)
}

func TestCancel_PedidoEnviadoNoEsCancelable(t *testing.T) {
	env := newUsecaseEnv()
	env.runner.state.addInventory("p-1", 7, 0)
	env.seedOrder("ord-1", "user-1", entity.OrderStatusShipped, item("p-1", 3))

	err := env.uc.Cancel(context.Background(), "ord-1", "user-1", false)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, entity.OrderStatusShipped, env.runner.getOrder("ord-1").Status)
}

func TestGetByID_UsuarioSoloVeSusPedidos(t *testing.T) {
	env := newUsecaseEnv()
	env.seedOrder("ord-1", "user-1", entity.OrderStatusPending)

	resp, err := env.uc.GetByID(context.Background(), "ord-1", "user-1", false)
	require.NoError(t, err)
	assert.Equal(t, "ord-1", resp.ID)

	_, err = env.uc.GetByID(context.Background(), "ord-1", "user-2", false)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	resp, err = env.uc.GetByID(context.Background(), "ord-1", "admin-1", true)
	require.NoError(t, err)
	assert.Equal(t, "ord-1", resp.ID)
}

func TestListOwn_FiltraPorUsuarioYEstado(t *testing.T) {
	env := newUsecaseEnv()
	env.seedOrder("ord-1", "user-1", entity.OrderStatusPending)
	env.seedOrder("ord-2", "user-1", entity.OrderStatusShipped)
	env.seedOrder("ord-3", "user-2", entity.OrderStatusPending)

	out, err := env.uc.ListOwn(context.Background(), "user-1", "", 50, 0)
	require.NoError(t, err)
	assert.Len(t, out.Orders, 2)

	out, err = env.uc.ListOwn(context.Background(), "user-1", "shipped", 50, 0)
	require.NoError(t, err)
	require.Len(t, out.Orders, 1)
	assert.Equal(t, "ord-2", out.Orders[0].ID)

	_, err = env.uc.ListOwn(context.Background(), "user-1", "archivado", 50, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestListAll_IncluyeIdentidadDelComprador(t *testing.T) {
	env := newUsecaseEnv()
	env.runner.state.users["user-1"] = &entity.User{
		ID: "user-1", Email: "ana@example.com", FullName: "Ana Gómez",
	}
	env.seedOrder("ord-1", "user-1", entity.OrderStatusPending)

	out, err := env.uc.ListAll(context.Background(), "", "", 50, 0)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "ana@example.com", out[0].UserEmail)
	assert.Equal(t, "Ana Gómez", out[0].UserFullName)
}
