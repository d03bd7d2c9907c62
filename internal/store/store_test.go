package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"storefront/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Integration tests; they need a disposable Postgres database.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	url := os.Getenv("STOREFRONT_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("Integration test - requires database (set STOREFRONT_TEST_DATABASE_URL)")
	}

	store, err := NewStore(url, Options{MaxOpenConns: 5, MaxIdleConns: 1, ConnMaxLifetime: time.Minute})
	require.NoError(t, err)
	require.NoError(t, store.Migrate("up"))
	t.Cleanup(func() { store.Close() })
	return store
}

func seedSellerAndProduct(t *testing.T, s *Store, stock int) (*models.User, *models.Product) {
	t.Helper()
	ctx := context.Background()

	seller := &models.User{
		ID:        uuid.New(),
		Email:     uuid.NewString() + "@example.com",
		FirstName: "Sam",
		Role:      models.RoleSeller,
	}
	require.NoError(t, s.CreateUser(ctx, seller))

	product := &models.Product{
		ID:       uuid.New(),
		Name:     "Mug",
		Price:    decimal.RequireFromString("10.00"),
		Stock:    stock,
		SellerID: seller.ID,
	}
	require.NoError(t, s.CreateProduct(ctx, product))
	return seller, product
}

func TestUserEmailIsUnique(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := &models.User{ID: uuid.New(), Email: uuid.NewString() + "@example.com", Role: models.RoleCustomer}
	require.NoError(t, s.CreateUser(ctx, user))

	dup := &models.User{ID: uuid.New(), Email: user.Email, Role: models.RoleCustomer}
	err := s.CreateUser(ctx, dup)
	assert.True(t, errors.Is(err, models.ErrDuplicate))
}

func TestGetOrderLoadsItemsAndHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seller, product := seedSellerAndProduct(t, s, 5)
	address := &models.Address{ID: uuid.New(), UserID: seller.ID, FullName: "Sam", City: "Cairo"}
	require.NoError(t, s.CreateAddress(ctx, address))

	order := &models.Order{
		ID:                uuid.New(),
		OrderNumber:       "ORD-20240101-" + uuid.NewString()[:6],
		UserID:            seller.ID,
		Status:            models.OrderStatusPending,
		PaymentMethod:     models.PaymentMethodCashOnDelivery,
		Subtotal:          decimal.RequireFromString("20.00"),
		TotalPrice:        decimal.RequireFromString("20.00"),
		ShippingAddressID: address.ID,
	}

	err := s.InTx(ctx, func(tx models.Repository) error {
		if err := tx.CreateOrder(ctx, order); err != nil {
			return err
		}
		if err := tx.CreateOrderItems(ctx, []models.OrderItem{{
			ID: uuid.New(), OrderID: order.ID, ProductID: product.ID, ProductName: product.Name,
			Quantity: 2, UnitPrice: product.Price, SellerID: seller.ID,
		}}); err != nil {
			return err
		}
		return tx.AppendOrderHistory(ctx, &models.OrderStatusHistory{
			ID: uuid.New(), OrderID: order.ID, Status: models.OrderStatusPending,
		})
	})
	require.NoError(t, err)

	got, err := s.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	require.Len(t, got.History, 1)
	assert.True(t, got.TotalPrice.Equal(order.TotalPrice))

	bySeller, err := s.ListOrders(ctx, models.OrderFilter{SellerID: &seller.ID})
	require.NoError(t, err)
	require.NotEmpty(t, bySeller)
	assert.Equal(t, order.ID, bySeller[0].ID)
	assert.Len(t, bySeller[0].Items, 1)
}

func TestOrderHistoryStampedInInsertOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seller, _ := seedSellerAndProduct(t, s, 1)
	address := &models.Address{ID: uuid.New(), UserID: seller.ID, FullName: "Sam", City: "Cairo"}
	require.NoError(t, s.CreateAddress(ctx, address))

	order := &models.Order{
		ID:                uuid.New(),
		OrderNumber:       "ORD-20240101-" + uuid.NewString()[:6],
		UserID:            seller.ID,
		Status:            models.OrderStatusProcessing,
		PaymentMethod:     models.PaymentMethodCashOnDelivery,
		Subtotal:          decimal.RequireFromString("10.00"),
		TotalPrice:        decimal.RequireFromString("10.00"),
		ShippingAddressID: address.ID,
	}

	err := s.InTx(ctx, func(tx models.Repository) error {
		if err := tx.CreateOrder(ctx, order); err != nil {
			return err
		}
		for _, status := range []models.OrderStatus{models.OrderStatusPending, models.OrderStatusProcessing} {
			if err := tx.AppendOrderHistory(ctx, &models.OrderStatusHistory{
				ID: uuid.New(), OrderID: order.ID, Status: status,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	got, err := s.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, got.History, 2)
	assert.Equal(t, models.OrderStatusPending, got.History[0].Status)
	assert.Equal(t, models.OrderStatusProcessing, got.History[1].Status)
	for _, h := range got.History {
		assert.False(t, h.CreatedAt.IsZero())
	}
	assert.Less(t, got.History[0].Seq, got.History[1].Seq)
	assert.False(t, got.History[1].CreatedAt.Before(got.History[0].CreatedAt))
}

func TestInTxRollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, product := seedSellerAndProduct(t, s, 5)
	boom := errors.New("boom")

	err := s.InTx(ctx, func(tx models.Repository) error {
		p, err := tx.GetProductForUpdate(ctx, product.ID)
		if err != nil {
			return err
		}
		p.Stock = 0
		if err := tx.UpdateProductStocks(ctx, []*models.Product{p}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.GetProductByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Stock)
}

func TestDecrementCouponUsagesStopsAtZero(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	coupon := &models.Coupon{
		ID:           uuid.New(),
		Code:         "ONE" + uuid.NewString()[:4],
		Type:         models.CouponTypeFixedAmount,
		Value:        decimal.NewFromInt(5),
		ExpiresAt:    time.Now().Add(time.Hour),
		UsagesLeft:   1,
		TimesPerUser: 1,
		IsActive:     true,
	}
	require.NoError(t, s.CreateCoupon(ctx, coupon))

	require.NoError(t, s.DecrementCouponUsages(ctx, coupon.ID))
	assert.ErrorIs(t, s.DecrementCouponUsages(ctx, coupon.ID), models.ErrNotFound)
}
