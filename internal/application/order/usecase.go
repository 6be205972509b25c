package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/ordenes-api/internal/application/dto"
	"github.com/jhoicas/ordenes-api/internal/application/inventory"
	"github.com/jhoicas/ordenes-api/internal/domain"
	"github.com/jhoicas/ordenes-api/internal/domain/entity"
	domorder "github.com/jhoicas/ordenes-api/internal/domain/order"
	"github.com/jhoicas/ordenes-api/internal/domain/repository"
	"github.com/jhoicas/ordenes-api/pkg/logger"
)

// UseCase casos de uso de pedidos: creación con snapshot de precios, consultas,
// transiciones de estado (máquina de estados + efectos de inventario atómicos)
// y cancelación.
type UseCase struct {
	orderRepo    repository.OrderRepository
	productRepo  repository.ProductRepository
	availability AvailabilityReader
	ledger       *inventory.Ledger
	txRunner     TxRunner
	queue        Queue
	log          *logger.Logger
}

// NewUseCase construye el caso de uso de pedidos.
func NewUseCase(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	availability AvailabilityReader,
	ledger *inventory.Ledger,
	txRunner TxRunner,
	queue Queue,
	log *logger.Logger,
) *UseCase {
	return &UseCase{
		orderRepo:    orderRepo,
		productRepo:  productRepo,
		availability: availability,
		ledger:       ledger,
		txRunner:     txRunner,
		queue:        queue,
		log:          log,
	}
}

// newOrderNumber genera un número de pedido único tipo ORD-1A2B3C4D.
func newOrderNumber() string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "ORD-" + strings.ToUpper(hex[:8])
}

// Create crea un pedido en estado pending con items y total congelados, y
// encola el trabajo de procesamiento con prioridad alta. El chequeo de
// disponibilidad es consultivo (puede servirse de la caché); la reserva real
// la hace el pipeline bajo bloqueo de fila. La request nunca espera al pipeline.
func (uc *UseCase) Create(ctx context.Context, userID string, in dto.CreateOrderRequest) (*dto.OrderResponse, error) {
	if len(in.Items) == 0 || in.ShippingAddress == "" {
		return nil, domain.ErrInvalidInput
	}

	now := time.Now()
	total := decimal.Zero
	items := make([]entity.OrderItem, 0, len(in.Items))
	for _, it := range in.Items {
		if it.Quantity <= 0 {
			return nil, domain.ErrInvalidInput
		}
		product, err := uc.productRepo.GetByID(ctx, it.ProductID)
		if err != nil {
			return nil, err
		}
		if product == nil {
			return nil, fmt.Errorf("producto %s: %w", it.ProductID, domain.ErrNotFound)
		}

		available, err := uc.availability.GetAvailability(ctx, it.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// producto sin registro de inventario: pedido rechazado
				return nil, fmt.Errorf("producto %s sin inventario: %w", it.ProductID, domain.ErrInvalidInput)
			}
			return nil, err
		}
		if available < it.Quantity {
			return nil, domain.ErrInsufficientStock
		}

		total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		items = append(items, entity.OrderItem{
			ID:        uuid.New().String(),
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: product.Price, // snapshot del precio vigente
			CreatedAt: now,
		})
	}

	ord := &entity.Order{
		ID:              uuid.New().String(),
		OrderNumber:     newOrderNumber(),
		UserID:          userID,
		Status:          entity.OrderStatusPending,
		TotalAmount:     total,
		ShippingAddress: in.ShippingAddress,
		ShippingMethod:  in.ShippingMethod,
		Notes:           in.Notes,
		Items:           items,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for i := range ord.Items {
		ord.Items[i].OrderID = ord.ID
	}

	err := uc.txRunner.RunOrder(ctx, func(orderRepo repository.OrderRepository, _ repository.InventoryRepository) error {
		return orderRepo.Create(ctx, ord)
	})
	if err != nil {
		return nil, err
	}

	// Handoff asíncrono. Si la cola falla, el pedido ya está persistido en
	// pending; lo recoge el barrido de reconciliación.
	job := Job{Type: JobTypeProcessOrder, OrderID: ord.ID, EnqueuedAt: time.Now()}
	if err := uc.queue.Enqueue(ctx, job, PriorityHigh); err != nil {
		uc.log.Error().Err(err).Str("order_id", ord.ID).Msg("no se pudo encolar el pedido")
	}

	return toOrderResponse(ord), nil
}

// GetByID devuelve un pedido. Los usuarios solo ven los suyos; admin ve todos.
func (uc *UseCase) GetByID(ctx context.Context, orderID, requesterID string, isAdmin bool) (*dto.OrderResponse, error) {
	ord, err := uc.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if ord == nil {
		return nil, domain.ErrNotFound
	}
	if !isAdmin && ord.UserID != requesterID {
		return nil, domain.ErrForbidden
	}
	return toOrderResponse(ord), nil
}

// ListOwn lista los pedidos del usuario autenticado.
func (uc *UseCase) ListOwn(ctx context.Context, userID string, status string, limit, offset int) (*dto.OrderListResponse, error) {
	st := entity.OrderStatus(status)
	if status != "" && !st.Valid() {
		return nil, domain.ErrInvalidInput
	}
	orders, err := uc.orderRepo.ListByUser(ctx, repository.OrderListFilter{
		UserID: userID, Status: st, Limit: limit, Offset: offset,
	})
	if err != nil {
		return nil, err
	}
	out := &dto.OrderListResponse{
		Orders: make([]dto.OrderResponse, 0, len(orders)),
		Page:   dto.PageResponse{Limit: limit, Offset: offset},
	}
	for _, o := range orders {
		out.Orders = append(out.Orders, *toOrderResponse(o))
	}
	return out, nil
}

// ListAll lista todos los pedidos con identidad del comprador (solo admin).
func (uc *UseCase) ListAll(ctx context.Context, status, userID string, limit, offset int) ([]dto.OrderWithUserResponse, error) {
	st := entity.OrderStatus(status)
	if status != "" && !st.Valid() {
		return nil, domain.ErrInvalidInput
	}
	rows, err := uc.orderRepo.ListWithUser(ctx, repository.OrderListFilter{
		UserID: userID, Status: st, Limit: limit, Offset: offset,
	})
	if err != nil {
		return nil, err
	}
	out := make([]dto.OrderWithUserResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, dto.OrderWithUserResponse{
			OrderResponse: *toOrderResponse(&row.Order),
			UserEmail:     row.UserEmail,
			UserFullName:  row.UserFullName,
		})
	}
	return out, nil
}

// UpdateStatus aplica una transición de estado (solo admin). La transición y
// sus efectos de inventario se ejecutan en una sola transacción con el pedido
// bloqueado; cualquier transición fuera de la tabla se rechaza con
// ErrInvalidTransition sin tocar nada. tracking_number y notes solo se aplican
// junto a una transición válida.
func (uc *UseCase) UpdateStatus(ctx context.Context, orderID string, in dto.UpdateOrderStatusRequest) (*dto.OrderResponse, error) {
	newStatus := entity.OrderStatus(in.Status)
	if !newStatus.Valid() {
		return nil, domain.ErrInvalidInput
	}

	var updated *entity.Order
	var affected []string
	err := uc.txRunner.RunOrder(ctx, func(orderRepo repository.OrderRepository, invRepo repository.InventoryRepository) error {
		ord, err := orderRepo.GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if ord == nil {
			return domain.ErrNotFound
		}
		effect, ok := domorder.Effect(ord.Status, newStatus)
		if !ok {
			return domain.ErrInvalidTransition
		}

		for _, item := range ord.Items {
			var err error
			switch effect {
			case domorder.EffectReserve:
				err = uc.ledger.ReserveInTx(ctx, invRepo, item.ProductID, item.Quantity)
			case domorder.EffectRelease:
				err = uc.ledger.ReleaseInTx(ctx, invRepo, item.ProductID, item.Quantity)
			case domorder.EffectShip:
				err = uc.ledger.ShipOutInTx(ctx, invRepo, item.ProductID, item.Quantity)
			}
			if err != nil {
				return err
			}
			if effect != domorder.EffectNone {
				affected = append(affected, item.ProductID)
			}
		}

		ord.Status = newStatus
		if in.TrackingNumber != "" {
			ord.TrackingNumber = in.TrackingNumber
		}
		if in.Notes != "" {
			ord.Notes = appendNote(ord.Notes, in.Notes)
		}
		ord.UpdatedAt = time.Now()
		if err := orderRepo.Update(ctx, ord); err != nil {
			return err
		}
		updated = ord
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(affected) > 0 {
		uc.ledger.Invalidate(ctx, affected...)
	}
	return toOrderResponse(updated), nil
}

// Cancel cancela un pedido pending o processing liberando sus reservas en la
// misma transacción. Seguro frente a carreras con el pipeline: el pedido se
// bloquea y solo se honran transiciones de la tabla.
func (uc *UseCase) Cancel(ctx context.Context, orderID, requesterID string, isAdmin bool) error {
	var affected []string
	err := uc.txRunner.RunOrder(ctx, func(orderRepo repository.OrderRepository, invRepo repository.InventoryRepository) error {
		ord, err := orderRepo.GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if ord == nil {
			return domain.ErrNotFound
		}
		if !isAdmin && ord.UserID != requesterID {
			return domain.ErrForbidden
		}
		if !domorder.Cancellable(ord.Status) {
			return domain.ErrConflict
		}

		for _, item := range ord.Items {
			if err := uc.ledger.ReleaseInTx(ctx, invRepo, item.ProductID, item.Quantity); err != nil {
				return err
			}
			affected = append(affected, item.ProductID)
		}
		ord.Status = entity.OrderStatusCancelled
		ord.UpdatedAt = time.Now()
		return orderRepo.Update(ctx, ord)
	})
	if err != nil {
		return err
	}
	uc.ledger.Invalidate(ctx, affected...)
	return nil
}

// appendNote añade una nota preservando las anteriores.
func appendNote(existing, note string) string {
	if existing == "" {
		return note
	}
	return existing + "\n" + note
}

func toOrderResponse(o *entity.Order) *dto.OrderResponse {
	if o == nil {
		return nil
	}
	items := make([]dto.OrderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, dto.OrderItemResponse{
			ID:        it.ID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	return &dto.OrderResponse{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		UserID:          o.UserID,
		Status:          string(o.Status),
		TotalAmount:     o.TotalAmount,
		ShippingAddress: o.ShippingAddress,
		ShippingMethod:  o.ShippingMethod,
		TrackingNumber:  o.TrackingNumber,
		Notes:           o.Notes,
		Items:           items,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}
