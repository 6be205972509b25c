package payment

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/jhoicas/ordenes-api/internal/application/order"
	"github.com/jhoicas/ordenes-api/internal/domain/entity"
	"github.com/jhoicas/ordenes-api/pkg/logger"
)

var _ order.PaymentProcessor = (*Simulator)(nil)

// ErrDeclined pago rechazado por la pasarela (simulada).
var ErrDeclined = errors.New("pago rechazado")

// Simulator pasarela de pagos simulada: espera un tiempo fijo y aprueba con
// una probabilidad configurable. Sirve para ejercitar el camino de
// compensación del pipeline sin una pasarela real.
type Simulator struct {
	successRate float64
	delay       time.Duration
	log         *logger.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulator construye la pasarela simulada. successRate en [0,1].
func NewSimulator(successRate float64, delay time.Duration, log *logger.Logger) *Simulator {
	return &Simulator{
		successRate: successRate,
		delay:       delay,
		log:         log,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Process simula el cobro del total del pedido.
func (s *Simulator) Process(ctx context.Context, ord *entity.Order) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.delay):
	}

	s.mu.Lock()
	roll := s.rng.Float64()
	s.mu.Unlock()

	if roll >= s.successRate {
		s.log.Warn().
			Str("order_id", ord.ID).
			Str("amount", ord.TotalAmount.String()).
			Msg("pago simulado rechazado")
		return ErrDeclined
	}
	s.log.Info().
		Str("order_id", ord.ID).
		Str("amount", ord.TotalAmount.String()).
		Msg("pago simulado aprobado")
	return nil
}
