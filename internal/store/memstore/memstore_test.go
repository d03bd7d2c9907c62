package memstore

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInTxRollsBackAllWrites(t *testing.T) {
	s := New()
	ctx := context.Background()

	product := &models.Product{ID: uuid.New(), Name: "Lamp", Price: decimal.NewFromInt(3), Stock: 4}
	require.NoError(t, s.CreateProduct(ctx, product))

	boom := errors.New("boom")
	err := s.InTx(ctx, func(tx models.Repository) error {
		p, err := tx.GetProductForUpdate(ctx, product.ID)
		require.NoError(t, err)
		p.Stock = 1
		require.NoError(t, tx.UpdateProductStocks(ctx, []*models.Product{p}))
		require.NoError(t, tx.CreateCategory(ctx, &models.Category{ID: uuid.New(), Name: "tmp"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.GetProductByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Stock)

	categories, err := s.ListCategories(ctx)
	require.NoError(t, err)
	assert.Empty(t, categories)
}

func TestNestedInTxJoinsOuter(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.InTx(ctx, func(tx models.Repository) error {
		return tx.InTx(ctx, func(inner models.Repository) error {
			return inner.CreateCategory(ctx, &models.Category{ID: uuid.New(), Name: "books"})
		})
	})
	require.NoError(t, err)

	categories, err := s.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, 1)
}

func TestUniqueConstraints(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, &models.User{ID: uuid.New(), Email: "a@example.com"}))
	err := s.CreateUser(ctx, &models.User{ID: uuid.New(), Email: "A@Example.com"})
	assert.ErrorIs(t, err, models.ErrDuplicate)

	userID, productID := uuid.New(), uuid.New()
	require.NoError(t, s.CreateReview(ctx, &models.Review{ID: uuid.New(), UserID: userID, ProductID: productID, Rating: 5}))
	err = s.CreateReview(ctx, &models.Review{ID: uuid.New(), UserID: userID, ProductID: productID, Rating: 1})
	assert.ErrorIs(t, err, models.ErrDuplicate)
}

func TestListProductsFiltersAndCounts(t *testing.T) {
	s := New()
	ctx := context.Background()
	seller := uuid.New()

	for i, name := range []string{"Red Mug", "Blue Mug", "Plate"} {
		stock := i
		require.NoError(t, s.CreateProduct(ctx, &models.Product{
			ID: uuid.New(), Name: name, Price: decimal.NewFromInt(int64(10 * (i + 1))), Stock: stock, SellerID: seller,
		}))
	}

	products, total, err := s.ListProducts(ctx, models.ProductFilter{Search: "mug"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, products, 2)

	products, total, err = s.ListProducts(ctx, models.ProductFilter{InStock: true, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, products, 1)
}

func TestCouponUsageCounters(t *testing.T) {
	s := New()
	ctx := context.Background()

	coupon := &models.Coupon{ID: uuid.New(), Code: "SAVE", UsagesLeft: 1}
	require.NoError(t, s.CreateCoupon(ctx, coupon))

	userID := uuid.New()
	require.NoError(t, s.IncrementCouponUsage(ctx, userID, coupon.ID))
	require.NoError(t, s.IncrementCouponUsage(ctx, userID, coupon.ID))

	usage, err := s.GetCouponUsage(ctx, userID, coupon.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, usage.TimesUsed)

	require.NoError(t, s.DecrementCouponUsages(ctx, coupon.ID))
	assert.ErrorIs(t, s.DecrementCouponUsages(ctx, coupon.ID), models.ErrNotFound)

	byCode, err := s.GetCouponByCode(ctx, "save")
	require.NoError(t, err)
	assert.Equal(t, 0, byCode.UsagesLeft)
}

func TestOrderHistoryIsStamped(t *testing.T) {
	s := New()
	ctx := context.Background()

	order := &models.Order{ID: uuid.New(), OrderNumber: "ORD-1", Status: models.OrderStatusProcessing}
	require.NoError(t, s.CreateOrder(ctx, order))

	first := &models.OrderStatusHistory{ID: uuid.New(), OrderID: order.ID, Status: models.OrderStatusPending}
	second := &models.OrderStatusHistory{ID: uuid.New(), OrderID: order.ID, Status: models.OrderStatusProcessing}
	require.NoError(t, s.AppendOrderHistory(ctx, first))
	require.NoError(t, s.AppendOrderHistory(ctx, second))
	assert.False(t, first.CreatedAt.IsZero())
	assert.Less(t, first.Seq, second.Seq)

	got, err := s.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, got.History, 2)
	assert.Equal(t, models.OrderStatusPending, got.History[0].Status)
	assert.Equal(t, models.OrderStatusProcessing, got.History[1].Status)
}
