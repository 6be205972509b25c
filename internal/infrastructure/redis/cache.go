package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/ordenes-api/internal/application/inventory"
	"github.com/jhoicas/ordenes-api/pkg/logger"
)

var _ inventory.Cache = (*Cache)(nil)

// Cache adaptador de caché sobre Redis. Nunca propaga errores: ante cualquier
// fallo se comporta como un miss (Get) o un no-op (Set/Delete) y lo registra,
// de modo que una caída de Redis degrada el servicio pero no lo rompe.
// La base de datos es siempre la fuente de verdad.
type Cache struct {
	client *redis.Client
	log    *logger.Logger
}

// NewCache construye el adaptador con un cliente ya configurado.
func NewCache(client *redis.Client, log *logger.Logger) *Cache {
	return &Cache{client: client, log: log}
}

// Get devuelve el valor de la clave y true si existe. Un error de Redis se
// trata como miss.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Str("key", key).Msg("cache get falló, se trata como miss")
		}
		return nil, false
	}
	return val, true
}

// Set guarda el valor con TTL. Los fallos solo se registran.
func (c *Cache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) {
	if err := c.client.Set(ctx, key, val, ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache set falló")
	}
}

// Delete elimina las claves indicadas. Los fallos solo se registran: una
// invalidación perdida se corrige sola cuando expira el TTL.
func (c *Cache) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn().Err(err).Strs("keys", keys).Msg("cache delete falló")
	}
}
