package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/ordenes-api/internal/application/inventory"
	"github.com/jhoicas/ordenes-api/internal/application/order"
	"github.com/jhoicas/ordenes-api/internal/domain"
	"github.com/jhoicas/ordenes-api/internal/domain/repository"
)

// Ensure TxRunner implements inventory.TxRunner and order.TxRunner.
var _ inventory.TxRunner = (*TxRunner)(nil)
var _ order.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run inicia una transacción, ejecuta fn con el repo de inventario atado a la
// tx y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(invRepo repository.InventoryRepository) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(NewInventoryRepository(tx)); err != nil {
		return translateTxErr(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return translateTxErr(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

// RunOrder inicia una transacción con repos de pedidos e inventario (para
// transiciones de estado con efectos de stock).
func (r *TxRunner) RunOrder(ctx context.Context, fn func(
	orderRepo repository.OrderRepository,
	invRepo repository.InventoryRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(NewOrderRepository(tx), NewInventoryRepository(tx)); err != nil {
		return translateTxErr(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return translateTxErr(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

// translateTxErr convierte fallos de serialización y deadlocks en
// ErrTransientConflict para que el coordinador decida el reintento.
func translateTxErr(err error) error {
	if isTransientConflict(err) {
		return fmt.Errorf("%w: %v", domain.ErrTransientConflict, err)
	}
	return err
}
