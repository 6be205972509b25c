package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/ordenes-api/internal/application/inventory"
	"github.com/jhoicas/ordenes-api/internal/domain/entity"
	domorder "github.com/jhoicas/ordenes-api/internal/domain/order"
	"github.com/jhoicas/ordenes-api/internal/domain/repository"
	"github.com/jhoicas/ordenes-api/pkg/logger"
)

// Razones de cancelación registradas en las notas del pedido.
const (
	reasonInsufficientInventory = "Insufficient inventory"
	reasonPaymentFailed         = "Payment processing failed"
)

// errSkip señal interna: el pedido ya no está en pending (reentrega de la
// cola o carrera con una cancelación); el trabajo se descarta sin error.
var errSkip = errors.New("pedido ya procesado")

// Pipeline procesa un pedido recién creado de forma asíncrona:
// pending -> processing, reserva de stock por item vía el coordinador, pago
// simulado, y compensación (cancelar + liberar) ante cualquier fallo.
// El disparo es at-least-once: las reentregas son inocuas porque el primer
// paso descarta pedidos que ya no están en pending.
type Pipeline struct {
	orderRepo   repository.OrderRepository
	txRunner    TxRunner
	coordinator *inventory.ReservationCoordinator
	ledger      *inventory.Ledger
	payment     PaymentProcessor
	log         *logger.Logger
}

// NewPipeline construye el pipeline de procesamiento de pedidos.
func NewPipeline(
	orderRepo repository.OrderRepository,
	txRunner TxRunner,
	coordinator *inventory.ReservationCoordinator,
	ledger *inventory.Ledger,
	payment PaymentProcessor,
	log *logger.Logger,
) *Pipeline {
	return &Pipeline{
		orderRepo:   orderRepo,
		txRunner:    txRunner,
		coordinator: coordinator,
		ledger:      ledger,
		payment:     payment,
		log:         log,
	}
}

// ProcessOrder ejecuta el pipeline completo para un pedido. Nunca entra en
// pánico hacia el worker: cualquier fallo inesperado se recupera, dispara la
// compensación best-effort y se registra con el id del pedido.
func (p *Pipeline) ProcessOrder(ctx context.Context, orderID string) error {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().
				Str("order_id", orderID).
				Interface("panic", r).
				Msg("pánico procesando pedido; compensando")
			p.compensate(ctx, orderID, fmt.Sprintf("Processing error: %v", r))
		}
	}()

	log := p.log.With().Str("order_id", orderID).Logger()
	log.Info().Msg("procesando pedido")

	ord, err := p.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("cargar pedido %s: %w", orderID, err)
	}
	if ord == nil {
		log.Error().Msg("pedido no encontrado, se descarta el trabajo")
		return nil
	}
	if ord.Status != entity.OrderStatusPending {
		log.Info().Str("status", string(ord.Status)).Msg("pedido ya no está pending, se omite")
		return nil
	}

	// pending -> processing bajo bloqueo; una reentrega concurrente o una
	// cancelación del usuario hacen que este paso se omita limpiamente.
	if err := p.markProcessing(ctx, orderID); err != nil {
		if errors.Is(err, errSkip) {
			return nil
		}
		log.Error().Err(err).Msg("no se pudo pasar a processing; compensando")
		p.compensate(ctx, orderID, fmt.Sprintf("Processing error: %v", err))
		return nil
	}

	// Reserva item por item, en el orden del pedido. Al primer fallo se
	// detiene y se compensa todo el pedido (release con tope en cero, por lo
	// que liberar items nunca reservados es un no-op).
	// Una cancelación del usuario que entre justo después de markProcessing
	// libera cero reservas y no detiene este loop: esas reservas quedan
	// huérfanas hasta el barrido de reconciliación, igual que una caída del
	// worker entre markProcessing y la primera reserva.
	for _, item := range ord.Items {
		if err := p.coordinator.Reserve(ctx, item.ProductID, item.Quantity); err != nil {
			log.Error().Err(err).
				Str("product_id", item.ProductID).
				Int("qty", item.Quantity).
				Msg("no se pudo reservar inventario")
			p.compensate(ctx, orderID, reasonInsufficientInventory)
			return nil
		}
		log.Info().Str("product_id", item.ProductID).Int("qty", item.Quantity).Msg("inventario reservado")
	}

	if err := p.payment.Process(ctx, ord); err != nil {
		log.Warn().Err(err).Msg("pago rechazado; compensando")
		p.compensate(ctx, orderID, reasonPaymentFailed)
		return nil
	}

	// Pago aprobado: el pedido queda en processing; el envío es un paso
	// separado (transición processing -> shipped vía API).
	log.Info().Msg("pago procesado, pedido queda en processing")
	return nil
}

// markProcessing aplica pending -> processing con el pedido bloqueado.
func (p *Pipeline) markProcessing(ctx context.Context, orderID string) error {
	return p.txRunner.RunOrder(ctx, func(orderRepo repository.OrderRepository, _ repository.InventoryRepository) error {
		ord, err := orderRepo.GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if ord == nil || ord.Status != entity.OrderStatusPending {
			return errSkip
		}
		ord.Status = entity.OrderStatusProcessing
		ord.UpdatedAt = time.Now()
		return orderRepo.Update(ctx, ord)
	})
}

// compensate cancela el pedido y libera las reservas de todos sus items en una
// sola transacción. Si el pedido ya está en un estado desde el que no se puede
// cancelar (carrera con otra transición) no hace nada: solo se honran las
// transiciones de la tabla.
func (p *Pipeline) compensate(ctx context.Context, orderID, reason string) {
	var affected []string
	err := p.txRunner.RunOrder(ctx, func(orderRepo repository.OrderRepository, invRepo repository.InventoryRepository) error {
		ord, err := orderRepo.GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if ord == nil {
			p.log.Error().Str("order_id", orderID).Msg("pedido a compensar no existe")
			return nil
		}
		if !domorder.CanTransition(ord.Status, entity.OrderStatusCancelled) {
			p.log.Info().
				Str("order_id", orderID).
				Str("status", string(ord.Status)).
				Msg("pedido ya en estado terminal, compensación omitida")
			return nil
		}

		for _, item := range ord.Items {
			if err := p.ledger.ReleaseInTx(ctx, invRepo, item.ProductID, item.Quantity); err != nil {
				return err
			}
			affected = append(affected, item.ProductID)
		}
		ord.Status = entity.OrderStatusCancelled
		ord.Notes = appendNote(ord.Notes, "Cancelled due to: "+reason)
		ord.UpdatedAt = time.Now()
		return orderRepo.Update(ctx, ord)
	})
	if err != nil {
		// best-effort: se registra y el barrido de reconciliación lo retoma
		p.log.Error().Err(err).Str("order_id", orderID).Msg("compensación fallida")
		return
	}
	if len(affected) > 0 {
		p.ledger.Invalidate(ctx, affected...)
	}
	p.log.Info().Str("order_id", orderID).Str("reason", reason).Msg("pedido cancelado")
}

// HandleJob despacha un trabajo de la cola al paso correspondiente.
func (p *Pipeline) HandleJob(ctx context.Context, job Job) error {
	switch job.Type {
	case JobTypeProcessOrder:
		return p.ProcessOrder(ctx, job.OrderID)
	default:
		p.log.Warn().Str("type", job.Type).Msg("tipo de trabajo desconocido, descartado")
		return nil
	}
}
