package checkout

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/01moynul/storefront-golang/internal/idempotency"
	"github.com/01moynul/storefront-golang/internal/models"
	"github.com/01moynul/storefront-golang/internal/store"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// memStore applies a draft all-or-nothing under one lock, the same contract
// the MySQL transaction gives.
type memStore struct {
	mu     sync.Mutex
	stock  map[int64]int
	price  map[int64]float64
	nextID int64
	placed []models.OrderDraft
}

func newMemStore(stock map[int64]int) *memStore {
	price := make(map[int64]float64, len(stock))
	for id := range stock {
		price[id] = 10
	}
	return &memStore{stock: stock, price: price}
}

func (m *memStore) PlaceOrder(_ context.Context, d models.OrderDraft) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, l := range d.Lines {
		available, ok := m.stock[l.ProductID]
		if !ok {
			return nil, store.ErrNotFound
		}
		if available < l.Quantity {
			return nil, &store.InsufficientStockError{ProductID: l.ProductID, Requested: l.Quantity, Available: available}
		}
	}

	m.nextID++
	order := &models.Order{ID: m.nextID, UserID: d.UserID, Status: models.OrderStatusPending}
	for _, l := range d.Lines {
		m.stock[l.ProductID] -= l.Quantity
		pid := l.ProductID
		order.Items = append(order.Items, models.OrderItem{ProductID: &pid, Quantity: l.Quantity, Price: m.price[pid]})
		order.TotalAmount += m.price[pid] * float64(l.Quantity)
	}
	m.placed = append(m.placed, d)
	return order, nil
}

type users struct{}

func (users) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	if id == 404 {
		return nil, store.ErrNotFound
	}
	return &models.User{ID: id, Name: "Ana", Email: "ana@example.com"}, nil
}

// memGuard is an in-process idempotency guard.
type memGuard struct {
	mu       sync.Mutex
	keys     map[string]bool
	released []string
}

func (g *memGuard) Acquire(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.keys[key] {
		return idempotency.ErrDuplicate
	}
	g.keys[key] = true
	return nil
}

func (g *memGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.keys, key)
	g.released = append(g.released, key)
	return nil
}

func request(lines ...models.OrderLine) Request {
	return Request{
		UserID: 5,
		Items:  lines,
		ShippingAddress: models.ShippingAddress{
			FullName: "Ana", Street: "1 Main St", City: "Lisbon", PostalCode: "1000", Country: "PT",
		},
	}
}

func TestMergeLines(t *testing.T) {
	merged, err := MergeLines([]models.OrderLine{
		{ProductID: 3, Quantity: 1},
		{ProductID: 1, Quantity: 2},
		{ProductID: 3, Quantity: 4},
	})
	require.NoError(t, err)
	assert.Equal(t, []models.OrderLine{{ProductID: 3, Quantity: 5}, {ProductID: 1, Quantity: 2}}, merged)

	tests := []struct {
		name  string
		lines []models.OrderLine
	}{
		{"empty", nil},
		{"zero quantity", []models.OrderLine{{ProductID: 1, Quantity: 0}}},
		{"negative quantity", []models.OrderLine{{ProductID: 1, Quantity: -2}}},
		{"missing product", []models.OrderLine{{Quantity: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MergeLines(tt.lines)
			assert.ErrorIs(t, err, ErrInvalidOrder)
		})
	}
}

func TestPlaceOrderConcurrentLastUnits(t *testing.T) {
	mem := newMemStore(map[int64]int{1: 3})
	svc := NewService(mem, users{}, nil, zerolog.Nop())

	var ok, short atomic.Int32
	var g errgroup.Group
	for i := 0; i < 2; i++ {
		g.Go(func() error {
			_, err := svc.PlaceOrder(context.Background(), request(models.OrderLine{ProductID: 1, Quantity: 2}))
			var stockErr *store.InsufficientStockError
			switch {
			case err == nil:
				ok.Add(1)
			case errors.As(err, &stockErr):
				short.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(1), short.Load())
	assert.Equal(t, 1, mem.stock[1])
}

func TestPlaceOrderStockNeverNegative(t *testing.T) {
	mem := newMemStore(map[int64]int{1: 10, 2: 5})
	svc := NewService(mem, users{}, nil, zerolog.Nop())

	var g errgroup.Group
	for i := 0; i < 40; i++ {
		pid := int64(1 + i%2)
		g.Go(func() error {
			_, err := svc.PlaceOrder(context.Background(), request(models.OrderLine{ProductID: pid, Quantity: 1}))
			var stockErr *store.InsufficientStockError
			if err != nil && !errors.As(err, &stockErr) {
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 0, mem.stock[1])
	assert.Equal(t, 0, mem.stock[2])
	assert.Len(t, mem.placed, 15)
}

func TestPlaceOrderAllOrNothing(t *testing.T) {
	mem := newMemStore(map[int64]int{1: 5, 2: 1})
	svc := NewService(mem, users{}, nil, zerolog.Nop())

	_, err := svc.PlaceOrder(context.Background(), request(
		models.OrderLine{ProductID: 1, Quantity: 2},
		models.OrderLine{ProductID: 2, Quantity: 2},
	))

	var stockErr *store.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, int64(2), stockErr.ProductID)
	assert.Equal(t, 5, mem.stock[1], "first line must not be decremented")
	assert.Equal(t, 1, mem.stock[2])
}

func TestPlaceOrderDraft(t *testing.T) {
	mem := newMemStore(map[int64]int{1: 5})
	svc := NewService(mem, users{}, nil, zerolog.Nop())

	req := request(models.OrderLine{ProductID: 1, Quantity: 1}, models.OrderLine{ProductID: 1, Quantity: 1})
	req.CouponCode = "  save10 "
	_, err := svc.PlaceOrder(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, mem.placed, 1)
	d := mem.placed[0]
	assert.Equal(t, "ana@example.com", d.UserEmail)
	assert.Equal(t, "save10", d.CouponCode)
	assert.Equal(t, []models.OrderLine{{ProductID: 1, Quantity: 2}}, d.Lines)
}

func TestPlaceOrderUnknownUser(t *testing.T) {
	svc := NewService(newMemStore(map[int64]int{1: 5}), users{}, nil, zerolog.Nop())
	req := request(models.OrderLine{ProductID: 1, Quantity: 1})
	req.UserID = 404

	_, err := svc.PlaceOrder(context.Background(), req)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPlaceOrderIdempotency(t *testing.T) {
	mem := newMemStore(map[int64]int{1: 1})
	guard := &memGuard{keys: map[string]bool{}}
	svc := NewService(mem, users{}, guard, zerolog.Nop())

	t.Run("duplicate key is rejected", func(t *testing.T) {
		req := request(models.OrderLine{ProductID: 1, Quantity: 1})
		req.IdempotencyKey = "k1"

		_, err := svc.PlaceOrder(context.Background(), req)
		require.NoError(t, err)

		_, err = svc.PlaceOrder(context.Background(), req)
		assert.ErrorIs(t, err, idempotency.ErrDuplicate)
		assert.Len(t, mem.placed, 1)
	})

	t.Run("failed placement releases the key", func(t *testing.T) {
		req := request(models.OrderLine{ProductID: 1, Quantity: 1})
		req.IdempotencyKey = "k2"

		_, err := svc.PlaceOrder(context.Background(), req)
		var stockErr *store.InsufficientStockError
		require.True(t, errors.As(err, &stockErr))
		assert.Equal(t, []string{"5:k2"}, guard.released)
	})
}
