package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/jhoicas/ordenes-api/internal/domain"
	"github.com/jhoicas/ordenes-api/pkg/logger"
)

// ReservationCoordinator envuelve Ledger.Reserve con reintentos acotados para
// absorber contención transitoria de la BD (deadlocks, serialization failures).
// Un fallo de regla de negocio (stock insuficiente, registro inexistente) se
// devuelve de inmediato, sin reintentar. La espera entre intentos es fija y
// solo bloquea al worker que llama.
type ReservationCoordinator struct {
	ledger     *Ledger
	maxRetries int
	retryDelay time.Duration
	log        *logger.Logger
}

// NewReservationCoordinator construye el coordinador. maxRetries es el número
// total de intentos (mínimo 1); retryDelay la espera fija entre ellos.
func NewReservationCoordinator(ledger *Ledger, maxRetries int, retryDelay time.Duration, log *logger.Logger) *ReservationCoordinator {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &ReservationCoordinator{
		ledger:     ledger,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		log:        log,
	}
}

// Reserve intenta reservar qty unidades del producto. Reintenta únicamente
// ante ErrTransientConflict; al agotar los intentos registra el agotamiento
// (distinto de un fallo de negocio, solo para observabilidad) y devuelve
// ErrTransientConflict: los callers lo tratan igual que "no se pudo reservar".
func (c *ReservationCoordinator) Reserve(ctx context.Context, productID string, qty int) error {
	for attempt := 1; ; attempt++ {
		err := c.ledger.Reserve(ctx, productID, qty)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrTransientConflict) {
			return err
		}
		if attempt >= c.maxRetries {
			c.log.Error().
				Str("product_id", productID).
				Int("qty", qty).
				Int("attempts", attempt).
				Msg("reserva: reintentos agotados por contención")
			return domain.ErrTransientConflict
		}
		c.log.Warn().
			Str("product_id", productID).
			Int("attempt", attempt).
			Int("max_retries", c.maxRetries).
			Msg("reserva: conflicto transitorio, reintentando")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.retryDelay):
		}
	}
}
