package order_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jhoicas/ordenes-api/internal/application/inventory"
	"github.com/jhoicas/ordenes-api/internal/application/order"
	"github.com/jhoicas/ordenes-api/internal/domain"
	"github.com/jhoicas/ordenes-api/internal/domain/entity"
	"github.com/jhoicas/ordenes-api/internal/domain/repository"
)

// memState estado en memoria compartido por pedidos e inventario. El mutex del
// runner serializa las "transacciones", emulando los bloqueos de fila.
type memState struct {
	orders    map[string]*entity.Order
	inventory map[string]*entity.Inventory // por product_id
	users     map[string]*entity.User
}

func newMemState() *memState {
	return &memState{
		orders:    make(map[string]*entity.Order),
		inventory: make(map[string]*entity.Inventory),
		users:     make(map[string]*entity.User),
	}
}

func (s *memState) addInventory(productID string, stock, reserved int) {
	s.inventory[productID] = &entity.Inventory{
		ID:               "inv-" + productID,
		ProductID:        productID,
		QuantityInStock:  stock,
		QuantityReserved: reserved,
	}
}

func cloneOrder(o *entity.Order) *entity.Order {
	cp := *o
	cp.Items = append([]entity.OrderItem(nil), o.Items...)
	return &cp
}

// memOrderRepo repositorio de pedidos sobre memState.
type memOrderRepo struct {
	state *memState
}

func (r *memOrderRepo) Create(_ context.Context, ord *entity.Order) error {
	r.state.orders[ord.ID] = cloneOrder(ord)
	return nil
}

func (r *memOrderRepo) GetByID(_ context.Context, id string) (*entity.Order, error) {
	ord, ok := r.state.orders[id]
	if !ok {
		return nil, nil
	}
	return cloneOrder(ord), nil
}

func (r *memOrderRepo) GetByIDForUpdate(ctx context.Context, id string) (*entity.Order, error) {
	return r.GetByID(ctx, id)
}

func (r *memOrderRepo) Update(_ context.Context, ord *entity.Order) error {
	existing, ok := r.state.orders[ord.ID]
	if !ok {
		return errors.New("pedido inexistente")
	}
	existing.Status = ord.Status
	existing.TrackingNumber = ord.TrackingNumber
	existing.Notes = ord.Notes
	existing.UpdatedAt = ord.UpdatedAt
	return nil
}

func (r *memOrderRepo) ListByUser(_ context.Context, filter repository.OrderListFilter) ([]*entity.Order, error) {
	var out []*entity.Order
	for _, o := range r.state.orders {
		if filter.UserID != "" && o.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		out = append(out, cloneOrder(o))
	}
	return out, nil
}

func (r *memOrderRepo) ListWithUser(ctx context.Context, filter repository.OrderListFilter) ([]repository.OrderWithUser, error) {
	orders, _ := r.ListByUser(ctx, filter)
	out := make([]repository.OrderWithUser, 0, len(orders))
	for _, o := range orders {
		row := repository.OrderWithUser{Order: *o}
		if u, ok := r.state.users[o.UserID]; ok {
			row.UserEmail = u.Email
			row.UserFullName = u.FullName
		}
		out = append(out, row)
	}
	return out, nil
}

// memInvRepo repositorio de inventario sobre memState.
type memInvRepo struct {
	state *memState
}

func (r *memInvRepo) Create(_ context.Context, inv *entity.Inventory) error {
	cp := *inv
	r.state.inventory[inv.ProductID] = &cp
	return nil
}

func (r *memInvRepo) GetByID(_ context.Context, id string) (*entity.Inventory, error) {
	for _, inv := range r.state.inventory {
		if inv.ID == id {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memInvRepo) GetByProduct(_ context.Context, productID string) (*entity.Inventory, error) {
	inv, ok := r.state.inventory[productID]
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
	r.state.inventory[inv.ProductID] = &cp
	return nil
}

func (r *memInvRepo) List(_ context.Context, _ repository.InventoryListFilter) ([]repository.InventoryRow, error) {
	return nil, nil
}

func (r *memInvRepo) GetRowByID(_ context.Context, _ string) (*repository.InventoryRow, error) {
	return nil, nil
}

// memRunner satisface order.TxRunner e inventory.TxRunner sobre el mismo
// estado, con un único mutex y rollback por snapshot.
type memRunner struct {
	mu    sync.Mutex
	state *memState
}

var _ order.TxRunner = (*memRunner)(nil)
var _ inventory.TxRunner = (*memRunner)(nil)

func (r *memRunner) snapshot() *memState {
	snap := newMemState()
	for k, v := range r.state.orders {
		snap.orders[k] = cloneOrder(v)
	}
	for k, v := range r.state.inventory {
		cp := *v
		snap.inventory[k] = &cp
	}
	for k, v := range r.state.users {
		cp := *v
		snap.users[k] = &cp
	}
	return snap
}

func (r *memRunner) restore(snap *memState) {
	r.state.orders = snap.orders
	r.state.inventory = snap.inventory
	r.state.users = snap.users
}

func (r *memRunner) Run(_ context.Context, fn func(invRepo repository.InventoryRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := r.snapshot()
	if err := fn(&memInvRepo{state: r.state}); err != nil {
		r.restore(snap)
		return err
	}
	return nil
}

func (r *memRunner) RunOrder(_ context.Context, fn func(
	orderRepo repository.OrderRepository,
	invRepo repository.InventoryRepository,
) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := r.snapshot()
	if err := fn(&memOrderRepo{state: r.state}, &memInvRepo{state: r.state}); err != nil {
		r.restore(snap)
		return err
	}
	return nil
}

func (r *memRunner) getOrder(id string) *entity.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneOrder(r.state.orders[id])
}

func (r *memRunner) getInventory(productID string) entity.Inventory {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.state.inventory[productID]
}

// memProductRepo catálogo fijo en memoria.
type memProductRepo struct {
	products map[string]*entity.Product
}

func (r *memProductRepo) Create(_ context.Context, p *entity.Product) error {
	r.products[p.ID] = p
	return nil
}

func (r *memProductRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *memProductRepo) GetBySKU(_ context.Context, sku string) (*entity.Product, error) {
	for _, p := range r.products {
		if p.SKU == sku {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memProductRepo) List(_ context.Context, _, _ int) ([]*entity.Product, error) {
	var out []*entity.Product
	for _, p := range r.products {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

// availabilityFromState lectura de disponibilidad directa sobre el estado.
type availabilityFromState struct {
	runner *memRunner
}

func (a *availabilityFromState) GetAvailability(_ context.Context, productID string) (int, error) {
	a.runner.mu.Lock()
	defer a.runner.mu.Unlock()
	inv, ok := a.runner.state.inventory[productID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return inv.Available(), nil
}

// spyQueue registra los trabajos encolados; puede forzarse a fallar.
type spyQueue struct {
	mu      sync.Mutex
	jobs    []order.Job
	failErr error
}

func (q *spyQueue) Enqueue(_ context.Context, job order.Job, _ string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.failErr != nil {
		return q.failErr
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *spyQueue) enqueued() []order.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]order.Job(nil), q.jobs...)
}

// stubPayment pasarela determinista para tests.
type stubPayment struct {
	err   error
	calls int
}

func (p *stubPayment) Process(_ context.Context, _ *entity.Order) error {
	p.calls++
	return p.err
}

// noopCache caché que nunca acierta ni guarda.
type noopCache struct{}

func (noopCache) Get(_ context.Context, _ string) ([]byte, bool) { return nil, false }

func (noopCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) {}

func (noopCache) Delete(_ context.Context, _ ...string) {}
