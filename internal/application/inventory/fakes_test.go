package inventory_test

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/ordenes-api/internal/application/inventory"
	"github.com/jhoicas/ordenes-api/internal/domain/entity"
	"github.com/jhoicas/ordenes-api/internal/domain/repository"
)

// memStore inventario en memoria indexado por product_id. El mutex del runner
// emula el bloqueo de fila: cada "transacción" corre en exclusión mutua, igual
// que dos transacciones compitiendo por el mismo SELECT FOR UPDATE.
type memStore struct {
	byProduct map[string]*entity.Inventory
}

func newMemStore(records ...*entity.Inventory) *memStore {
	s := &memStore{byProduct: make(map[string]*entity.Inventory)}
	for _, r := range records {
		cp := *r
		s.byProduct[r.ProductID] = &cp
	}
	return s
}

func (s *memStore) snapshot() map[string]entity.Inventory {
	snap := make(map[string]entity.Inventory, len(s.byProduct))
	for k, v := range s.byProduct {
		snap[k] = *v
	}
	return snap
}

func (s *memStore) restore(snap map[string]entity.Inventory) {
	s.byProduct = make(map[string]*entity.Inventory, len(snap))
	for k, v := range snap {
		cp := v
		s.byProduct[k] = &cp
	}
}

// memInvRepo repositorio sobre memStore. Solo es seguro dentro del runner.
type memInvRepo struct {
	store *memStore
}

func (r *memInvRepo) Create(_ context.Context, inv *entity.Inventory) error {
	cp := *inv
	r.store.byProduct[inv.ProductID] = &cp
	return nil
}

func (r *memInvRepo) GetByID(_ context.Context, id string) (*entity.Inventory, error) {
	for _, inv := range r.store.byProduct {
		if inv.ID == id {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memInvRepo) GetByProduct(_ context.Context, productID string) (*entity.Inventory, error) {
	inv, ok := r.store.byProduct[productID]
	if !ok {
		return nil, nil
	}
	cp := *inv
	return &cp, nil
}

func (r *memInvRepo) GetByProductForUpdate(ctx context.Context, productID string) (*entity.Inventory, error) {
	return r.GetByProduct(ctx, productID)
}

func (r *memInvRepo) Update(_ context.Context, inv *entity.Inventory) error {
	cp := *inv
	r.store.byProduct[inv.ProductID] = &cp
	return nil
}

func (r *memInvRepo) List(_ context.Context, filter repository.InventoryListFilter) ([]repository.InventoryRow, error) {
	var rows []repository.InventoryRow
	for _, inv := range r.store.byProduct {
		rows = append(rows, repository.InventoryRow{Inventory: *inv})
	}
	if filter.Limit > 0 && len(rows) > filter.Limit {
		rows = rows[:filter.Limit]
	}
	return rows, nil
}

func (r *memInvRepo) GetRowByID(ctx context.Context, id string) (*repository.InventoryRow, error) {
	inv, err := r.GetByID(ctx, id)
	if err != nil || inv == nil {
		return nil, err
	}
	return &repository.InventoryRow{Inventory: *inv}, nil
}

// memTxRunner serializa transacciones con un mutex y revierte las mutaciones
// si el callback falla, emulando commit/rollback.
type memTxRunner struct {
	mu    sync.Mutex
	store *memStore

	// failWith, si está definido, falla los próximos failCount intentos antes
	// de ejecutar el callback (para simular contención transitoria).
	failWith  error
	failCount int
}

var _ inventory.TxRunner = (*memTxRunner)(nil)

func (r *memTxRunner) Run(_ context.Context, fn func(invRepo repository.InventoryRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failCount > 0 && r.failWith != nil {
		r.failCount--
		return r.failWith
	}

	snap := r.store.snapshot()
	if err := fn(&memInvRepo{store: r.store}); err != nil {
		r.store.restore(snap)
		return err
	}
	return nil
}

func (r *memTxRunner) get(productID string) entity.Inventory {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.store.byProduct[productID]
}

// spyCache registra las claves borradas; Get siempre es miss.
type spyCache struct {
	mu      sync.Mutex
	deleted []string
}

func (c *spyCache) Get(_ context.Context, _ string) ([]byte, bool) { return nil, false }

func (c *spyCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) {}

func (c *spyCache) Delete(_ context.Context, keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, keys...)
}

func (c *spyCache) deletedKeys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.deleted...)
}
