package procurement

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockdesk/stockdesk/internal/inventory"
	"github.com/stockdesk/stockdesk/internal/shared"
)

type memoryProcRepo struct {
	orders    map[int64]SupplierOrder
	products  map[int64]inventory.ProductSnapshot
	suppliers map[int64]string
	movements []inventory.Movement
	nextID    int64
}

type memoryProcTx struct {
	repo *memoryProcRepo
}

func newMemoryProcRepo() *memoryProcRepo {
	return &memoryProcRepo{
		orders: map[int64]SupplierOrder{},
		products: map[int64]inventory.ProductSnapshot{
			1: {ID: 1, Name: "Caneta", Quantity: 3, Price: decimal.RequireFromString("1.50"), PriceForSale: decimal.RequireFromString("3.00")},
			2: {ID: 2, Name: "Lápis antigo", Retired: true},
		},
		suppliers: map[int64]string{7: "Papelaria Central"},
	}
}

func (r *memoryProcRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	orders := make(map[int64]SupplierOrder, len(r.orders))
	for k, v := range r.orders {
		orders[k] = v
	}
	products := make(map[int64]inventory.ProductSnapshot, len(r.products))
	for k, v := range r.products {
		products[k] = v
	}
	movements := append([]inventory.Movement(nil), r.movements...)
	if err := fn(ctx, &memoryProcTx{repo: r}); err != nil {
		r.orders, r.products, r.movements = orders, products, movements
		return err
	}
	return nil
}

func (r *memoryProcRepo) Get(ctx context.Context, id int64) (SupplierOrder, error) {
	o, ok := r.orders[id]
	if !ok {
		return SupplierOrder{}, shared.NotFoundf("supplier order %d", id)
	}
	return o, nil
}

func (r *memoryProcRepo) List(ctx context.Context, filter ListFilter) ([]SupplierOrder, error) {
	out := []SupplierOrder{}
	for _, o := range r.orders {
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (tx *memoryProcTx) LockProduct(ctx context.Context, id int64) (inventory.ProductSnapshot, error) {
	p, ok := tx.repo.products[id]
	if !ok {
		return inventory.ProductSnapshot{}, shared.NotFoundf("product %d", id)
	}
	return p, nil
}

func (tx *memoryProcTx) AddQuantity(ctx context.Context, id int64, delta int) (int, error) {
	p := tx.repo.products[id]
	if p.Quantity+delta < 0 {
		return 0, shared.ErrInsufficientStock
	}
	p.Quantity += delta
	tx.repo.products[id] = p
	return p.Quantity, nil
}

func (tx *memoryProcTx) InsertMovement(ctx context.Context, m inventory.Movement) (inventory.Movement, error) {
	m.ID = int64(len(tx.repo.movements) + 1)
	tx.repo.movements = append(tx.repo.movements, m)
	return m, nil
}

func (tx *memoryProcTx) SupplierExists(ctx context.Context, id int64) (bool, error) {
	_, ok := tx.repo.suppliers[id]
	return ok, nil
}

func (tx *memoryProcTx) Insert(ctx context.Context, o SupplierOrder) (SupplierOrder, error) {
	tx.repo.nextID++
	o.ID = tx.repo.nextID
	o.Status = OrderPending
	o.SupplierName = tx.repo.suppliers[o.SupplierID]
	o.ProductName = tx.repo.products[o.ProductID].Name
	tx.repo.orders[o.ID] = o
	return o, nil
}

func (tx *memoryProcTx) GetForUpdate(ctx context.Context, id int64) (SupplierOrder, error) {
	return tx.repo.Get(ctx, id)
}

func (tx *memoryProcTx) MarkDelivered(ctx context.Context, id int64, at time.Time) error {
	o := tx.repo.orders[id]
	o.DeliveryDate = &at
	o.Status = OrderDelivered
	tx.repo.orders[id] = o
	return nil
}

func TestCreateAndDeliverOrder(t *testing.T) {
	repo := newMemoryProcRepo()
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, CreateOrderRequest{SupplierID: 7, ProductID: 1, Quantity: 10, OrderDate: "2024-03-01"})
	require.NoError(t, err)
	assert.Equal(t, OrderPending, order.Status)
	assert.Equal(t, "Papelaria Central", order.SupplierName)

	delivered, err := svc.Deliver(ctx, order.ID, DeliverRequest{DeliveryDate: "2024-03-05"})
	require.NoError(t, err)
	assert.Equal(t, OrderDelivered, delivered.Status)
	days, ok := delivered.LeadDays()
	require.True(t, ok)
	assert.Equal(t, 4, days)

	assert.Equal(t, 13, repo.products[1].Quantity)
	require.Len(t, repo.movements, 1)
	assert.Equal(t, 10, repo.movements[0].Delta)
	assert.Equal(t, inventory.RefSupplierOrder, repo.movements[0].Reference)
	assert.Equal(t, order.ID, repo.movements[0].ReferenceID)
}

func TestDeliverTwiceConflicts(t *testing.T) {
	repo := newMemoryProcRepo()
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()
	order, err := svc.CreateOrder(ctx, CreateOrderRequest{SupplierID: 7, ProductID: 1, Quantity: 2, OrderDate: "2024-03-01"})
	require.NoError(t, err)
	_, err = svc.Deliver(ctx, order.ID, DeliverRequest{DeliveryDate: "2024-03-02"})
	require.NoError(t, err)

	_, err = svc.Deliver(ctx, order.ID, DeliverRequest{DeliveryDate: "2024-03-03"})
	require.ErrorIs(t, err, shared.ErrConflict)
	assert.Equal(t, 5, repo.products[1].Quantity)
	assert.Len(t, repo.movements, 1)
}

func TestDeliverBeforeOrderDateRejected(t *testing.T) {
	repo := newMemoryProcRepo()
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()
	order, err := svc.CreateOrder(ctx, CreateOrderRequest{SupplierID: 7, ProductID: 1, Quantity: 2, OrderDate: "2024-03-10"})
	require.NoError(t, err)

	_, err = svc.Deliver(ctx, order.ID, DeliverRequest{DeliveryDate: "2024-03-01"})
	require.ErrorIs(t, err, shared.ErrValidation)
	assert.Equal(t, OrderPending, repo.orders[order.ID].Status)
	assert.Equal(t, 3, repo.products[1].Quantity)
}

func TestCreateOrderChecks(t *testing.T) {
	svc := NewService(newMemoryProcRepo(), nil, nil, nil)
	ctx := context.Background()

	_, err := svc.CreateOrder(ctx, CreateOrderRequest{SupplierID: 99, ProductID: 1, Quantity: 1, OrderDate: "2024-03-01"})
	require.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.CreateOrder(ctx, CreateOrderRequest{SupplierID: 7, ProductID: 2, Quantity: 1, OrderDate: "2024-03-01"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateOrder(ctx, CreateOrderRequest{SupplierID: 7, ProductID: 1, Quantity: 0, OrderDate: "2024-03-01"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateOrder(ctx, CreateOrderRequest{SupplierID: 7, ProductID: 1, Quantity: 1, OrderDate: "01/03/2024"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.List(ctx, ListFilter{Status: "lost"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

type failingCache struct{ calls int }

func (c *failingCache) Bump(ctx context.Context) error {
	c.calls++
	return errors.New("redis: connection refused")
}

func TestDeliverLogsCacheBumpFailure(t *testing.T) {
	var logs bytes.Buffer
	repo := newMemoryProcRepo()
	cache := &failingCache{}
	svc := NewService(repo, nil, cache, slog.New(slog.NewTextHandler(&logs, nil)))
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, CreateOrderRequest{SupplierID: 7, ProductID: 1, Quantity: 4, OrderDate: "2024-03-01"})
	require.NoError(t, err)
	delivered, err := svc.Deliver(ctx, order.ID, DeliverRequest{DeliveryDate: "2024-03-02"})
	require.NoError(t, err)
	assert.Equal(t, OrderDelivered, delivered.Status)
	assert.Equal(t, 7, repo.products[1].Quantity)
	assert.Equal(t, 1, cache.calls)
	assert.Contains(t, logs.String(), "bump indicator cache")
}
