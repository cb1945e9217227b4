package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/linemk/clothing-shop/internal/domain/models"
	"github.com/linemk/clothing-shop/internal/lib/logger"
	"github.com/linemk/clothing-shop/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAddress = models.ShippingAddress{Address: "12 Hang Bac", City: "Hanoi", Phone: "0900000000"}

type orderFixture struct {
	users    *fakeUserRepo
	products *fakeProductRepo
	orders   *fakeOrderRepo
	carts    *fakeCartStore
	svc      service.OrderService
	user     *models.User
}

func newOrderFixture(t *testing.T, products ...*models.Product) *orderFixture {
	t.Helper()
	f := &orderFixture{
		users:    newFakeUserRepo(),
		products: newFakeProductRepo(products...),
		orders:   newFakeOrderRepo(),
		carts:    newFakeCartStore(),
	}
	user, err := f.users.CreateUser(context.Background(), &models.User{Name: "Lan", Email: "lan@example.com"})
	require.NoError(t, err)
	f.user = user
	f.svc = service.NewOrderService(logger.NewDiscard(), f.orders, f.users, f.products, f.carts, service.OrderSettings{
		ShippingFee: decimal.NewFromInt(10000),
	})
	return f
}

func line(price int64, qty int) models.OrderLine {
	return models.OrderLine{ProductID: uuid.New(), Name: "item", Price: decimal.NewFromInt(price), Size: "M", Quantity: qty}
}

func TestOrderService_CreateOrderTotalsAndClearsCart(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	f.carts.carts[f.user.ID] = models.Cart{"p": {"M": 1}}

	order, err := f.svc.CreateOrder(ctx, f.user.ID, []models.OrderLine{line(100000, 2)}, testAddress)
	require.NoError(t, err)

	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(210000)), "got %s", order.TotalAmount)
	assert.Equal(t, models.StatusPending, order.Status)
	assert.Equal(t, models.DefaultPaymentMethod, order.PaymentMethod)
	assert.Equal(t, "Lan", order.UserName)
	assert.NotEqual(t, uuid.Nil, order.Lines[0].ID)
	assert.NotContains(t, f.carts.carts, f.user.ID)
}

func TestOrderService_CreateOrderErrors(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateOrder(ctx, f.user.ID, nil, testAddress)
	assert.ErrorIs(t, err, service.ErrValidation)

	_, err = f.svc.CreateOrder(ctx, f.user.ID, []models.OrderLine{line(1, 1)}, models.ShippingAddress{Address: "x", City: "y"})
	assert.ErrorIs(t, err, service.ErrValidation)

	_, err = f.svc.CreateOrder(ctx, f.user.ID, []models.OrderLine{line(1, 0)}, testAddress)
	assert.ErrorIs(t, err, service.ErrValidation)

	_, err = f.svc.CreateOrder(ctx, uuid.New(), []models.OrderLine{line(1, 1)}, testAddress)
	assert.ErrorIs(t, err, service.ErrNotFound)

	assert.Empty(t, f.orders.orders)
}

func TestOrderService_CreateOrderSurvivesCartClearFailure(t *testing.T) {
	f := newOrderFixture(t)
	f.carts.deleteErr = errors.New("redis down")

	order, err := f.svc.CreateOrder(context.Background(), f.user.ID, []models.OrderLine{line(5000, 1)}, testAddress)
	require.NoError(t, err)
	assert.Contains(t, f.orders.orders, order.ID)
}

func TestOrderService_CheckoutSnapshotsCart(t *testing.T) {
	p := shirt()
	f := newOrderFixture(t, p)
	ctx := context.Background()
	f.carts.carts[f.user.ID] = models.Cart{
		p.ID.String():       {"M": 2, "S": 1},
		uuid.New().String(): {"L": 4}, // товара больше нет в каталоге
	}

	order, err := f.svc.Checkout(ctx, f.user.ID, testAddress, "cod")
	require.NoError(t, err)
	require.Len(t, order.Lines, 2)
	assert.Equal(t, "M", order.Lines[0].Size)
	assert.Equal(t, "S", order.Lines[1].Size)
	// 100000×2 + 100000×1 + доставка
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(310000)), "got %s", order.TotalAmount)
	assert.NotContains(t, f.carts.carts, f.user.ID)

	_, err = f.svc.Checkout(ctx, f.user.ID, testAddress, "")
	assert.ErrorIs(t, err, service.ErrValidation, "empty cart")

	_, err = f.svc.Checkout(ctx, f.user.ID, testAddress, "stripe")
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestOrderService_CheckoutKeepsItemsAddedDuringCheckout(t *testing.T) {
	p := shirt()
	f := newOrderFixture(t, p)
	ctx := context.Background()
	f.carts.carts[f.user.ID] = models.Cart{p.ID.String(): {"M": 2}}

	// запись в корзину между чтением снимка и очисткой
	var once bool
	f.products.onBatch = func() {
		if once {
			return
		}
		once = true
		_, err := f.carts.Update(ctx, f.user.ID, func(c models.Cart) error {
			c.Add(p.ID.String(), "S")
			c.Add(p.ID.String(), "M")
			return nil
		})
		require.NoError(t, err)
	}

	order, err := f.svc.Checkout(ctx, f.user.ID, testAddress, "")
	require.NoError(t, err)
	require.Len(t, order.Lines, 1)
	assert.Equal(t, 2, order.Lines[0].Quantity)

	left := f.carts.carts[f.user.ID]
	assert.Equal(t, models.Cart{p.ID.String(): {"S": 1, "M": 1}}, left)
}

func TestOrderService_CheckoutSurvivesCartClearFailure(t *testing.T) {
	p := shirt()
	f := newOrderFixture(t, p)
	f.carts.carts[f.user.ID] = models.Cart{p.ID.String(): {"M": 1}}
	f.carts.updateErr = errors.New("cart was modified concurrently")

	order, err := f.svc.Checkout(context.Background(), f.user.ID, testAddress, "")
	require.NoError(t, err)
	assert.Contains(t, f.orders.orders, order.ID)
}

func TestOrderService_ListOrdersScopes(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	other, err := f.users.CreateUser(ctx, &models.User{Name: "Minh", Email: "minh@example.com"})
	require.NoError(t, err)

	first, err := f.svc.CreateOrder(ctx, f.user.ID, []models.OrderLine{line(1000, 1)}, testAddress)
	require.NoError(t, err)
	f.orders.orders[first.ID].CreatedAt = time.Now().Add(-time.Hour)
	second, err := f.svc.CreateOrder(ctx, f.user.ID, []models.OrderLine{line(2000, 1)}, testAddress)
	require.NoError(t, err)
	f.orders.orders[second.ID].CreatedAt = time.Now()
	_, err = f.svc.CreateOrder(ctx, other.ID, []models.OrderLine{line(3000, 1)}, testAddress)
	require.NoError(t, err)

	mine, err := f.svc.ListOrders(ctx, service.ScopeMine(f.user.ID))
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID, "newest first")

	all, err := f.svc.ListOrders(ctx, service.ScopeAll())
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := f.svc.ListOrders(ctx, service.ScopeMine(uuid.New()))
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestOrderService_SetStatusUnconstrained(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order, err := f.svc.CreateOrder(ctx, f.user.ID, []models.OrderLine{line(1000, 1)}, testAddress)
	require.NoError(t, err)

	updated, err := f.svc.SetStatus(ctx, order.ID, "Delivered")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDelivered, updated.Status)

	updated, err = f.svc.SetStatus(ctx, order.ID, "pending")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, updated.Status)

	_, err = f.svc.SetStatus(ctx, order.ID, "Lost")
	assert.ErrorIs(t, err, service.ErrValidation)

	_, err = f.svc.SetStatus(ctx, uuid.New(), "Shipping")
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestOrderService_DeleteOrder(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order, err := f.svc.CreateOrder(ctx, f.user.ID, []models.OrderLine{line(1000, 1)}, testAddress)
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteOrder(ctx, order.ID))
	assert.ErrorIs(t, f.svc.DeleteOrder(ctx, order.ID), service.ErrNotFound)
}

func TestOrderService_RemoveLineRecomputesTotal(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order, err := f.orders.CreateOrder(ctx, &models.Order{
		UserID:      f.user.ID,
		Lines:       []models.OrderLine{{ID: uuid.New(), Price: decimal.NewFromInt(50000), Quantity: 1}, {ID: uuid.New(), Price: decimal.NewFromInt(30000), Quantity: 1}},
		TotalAmount: decimal.NewFromInt(80000),
	})
	require.NoError(t, err)

	updated, deleted, err := f.svc.RemoveLine(ctx, order.ID, order.Lines[0].ID)
	require.NoError(t, err)
	assert.False(t, deleted)
	require.Len(t, updated.Lines, 1)
	assert.True(t, updated.TotalAmount.Equal(decimal.NewFromInt(30000)))

	_, _, err = f.svc.RemoveLine(ctx, order.ID, uuid.New())
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, _, err = f.svc.RemoveLine(ctx, uuid.New(), uuid.New())
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestOrderService_RemoveLastLineDeletesOrder(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order, err := f.svc.CreateOrder(ctx, f.user.ID, []models.OrderLine{line(100000, 1)}, testAddress)
	require.NoError(t, err)

	updated, deleted, err := f.svc.RemoveLine(ctx, order.ID, order.Lines[0].ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Nil(t, updated)

	all, err := f.svc.ListOrders(ctx, service.ScopeAll())
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.ErrorIs(t, f.svc.DeleteOrder(ctx, order.ID), service.ErrNotFound)
}

func TestOrderService_RemoveLineRetriesOnConflict(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order, err := f.svc.CreateOrder(ctx, f.user.ID, []models.OrderLine{line(50000, 1), line(30000, 1)}, testAddress)
	require.NoError(t, err)

	// первая запись проигрывает гонку со сменой статуса
	raced := false
	f.orders.beforeWrite = func(id uuid.UUID) {
		if !raced {
			raced = true
			_, err := f.svc.SetStatus(ctx, id, "Shipping")
			require.NoError(t, err)
		}
	}

	updated, _, err := f.svc.RemoveLine(ctx, order.ID, order.Lines[1].ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusShipping, updated.Status, "concurrent status change is not lost")
	assert.True(t, updated.TotalAmount.Equal(decimal.NewFromInt(60000)))
}

func TestOrderService_RemoveLineGivesUpAfterRetries(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order, err := f.svc.CreateOrder(ctx, f.user.ID, []models.OrderLine{line(50000, 1), line(30000, 1)}, testAddress)
	require.NoError(t, err)

	f.orders.beforeWrite = func(id uuid.UUID) {
		f.orders.orders[id].Version++
	}

	_, _, err = f.svc.RemoveLine(ctx, order.ID, order.Lines[0].ID)
	assert.ErrorIs(t, err, service.ErrConflict)
}
