package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/ordenes-api/internal/application/order"
	"github.com/jhoicas/ordenes-api/pkg/logger"
)

var _ order.Queue = (*Queue)(nil)

// Claves de las listas de trabajos, una por prioridad.
const (
	queueKeyPrefix = "queue:"
	popTimeout     = 5 * time.Second
)

func queueKey(priority string) string { return queueKeyPrefix + priority }

// Queue productor de trabajos sobre listas Redis (LPUSH por prioridad).
// A diferencia de la caché, los errores SÍ se propagan: perder un trabajo
// silenciosamente dejaría pedidos atascados en pending.
type Queue struct {
	client *redis.Client
}

// NewQueue construye el productor con un cliente ya configurado.
func NewQueue(client *redis.Client) *Queue {
	return &Queue{client: client}
}

// Enqueue serializa el trabajo y lo publica en la lista de su prioridad.
func (q *Queue) Enqueue(ctx context.Context, job order.Job, priority string) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("serializar trabajo: %w", err)
	}
	if err := q.client.LPush(ctx, queueKey(priority), payload).Err(); err != nil {
		return fmt.Errorf("encolar trabajo: %w", err)
	}
	return nil
}

// Consumer lee trabajos por prioridad (high antes que default antes que low)
// y los entrega a un handler. BRPOP con varias claves respeta el orden de las
// claves, lo que da la precedencia de prioridades gratis.
type Consumer struct {
	client *redis.Client
	log    *logger.Logger
}

// NewConsumer construye el consumidor con un cliente ya configurado.
func NewConsumer(client *redis.Client, log *logger.Logger) *Consumer {
	return &Consumer{client: client, log: log}
}

// Run consume trabajos hasta que el contexto se cancele. Un trabajo con
// payload corrupto se descarta con log; un error del handler se registra y el
// loop continúa (el trabajo no se reintenta: la entrega es at-least-once desde
// el productor, no desde el consumidor).
func (c *Consumer) Run(ctx context.Context, handle func(ctx context.Context, job order.Job) error) error {
	keys := []string{
		queueKey(order.PriorityHigh),
		queueKey(order.PriorityDefault),
		queueKey(order.PriorityLow),
	}
	for {
		res, err := c.client.BRPop(ctx, popTimeout, keys...).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				// timeout sin trabajos, volver a esperar
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Error().Err(err).Msg("error leyendo la cola, reintentando")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}
		// res = [clave, payload]
		if len(res) != 2 {
			continue
		}
		var job order.Job
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			c.log.Error().Err(err).Str("queue", res[0]).Msg("trabajo con payload inválido, descartado")
			continue
		}
		if err := handle(ctx, job); err != nil {
			c.log.Error().Err(err).Str("type", job.Type).Str("order_id", job.OrderID).Msg("handler de trabajo falló")
		}
	}
}
