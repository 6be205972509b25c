package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jhoicas/ordenes-api/internal/application/inventory"
	"github.com/jhoicas/ordenes-api/internal/application/order"
	"github.com/jhoicas/ordenes-api/internal/infrastructure/payment"
	"github.com/jhoicas/ordenes-api/internal/infrastructure/postgres"
	infraredis "github.com/jhoicas/ordenes-api/internal/infrastructure/redis"
	"github.com/jhoicas/ordenes-api/pkg/config"
	"github.com/jhoicas/ordenes-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Msg("iniciando worker de pedidos")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	cacheClient := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.CacheDB,
	})
	defer cacheClient.Close()

	queueClient := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.QueueAddress(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.QueueDB,
	})
	defer queueClient.Close()
	if err := queueClient.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("Redis (cola) no disponible")
	}

	orderRepo := postgres.NewOrderRepository(pool)
	txRunner := postgres.NewTxRunner(pool)
	cache := infraredis.NewCache(cacheClient, log)

	ledger := inventory.NewLedger(txRunner, cache, log)
	coordinator := inventory.NewReservationCoordinator(ledger, cfg.Worker.MaxRetries, cfg.Worker.RetryDelay, log)
	gateway := payment.NewSimulator(cfg.Worker.PaymentSuccessRate, cfg.Worker.PaymentDelay, log)
	pipeline := order.NewPipeline(orderRepo, txRunner, coordinator, ledger, gateway, log)

	consumer := infraredis.NewConsumer(queueClient, log)
	log.Info().Msg("worker escuchando la cola de trabajos")
	if err := consumer.Run(ctx, pipeline.HandleJob); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("consumidor finalizado con error")
	}

	log.Info().Msg("worker detenido")
}
