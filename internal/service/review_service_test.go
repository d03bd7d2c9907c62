package service

import (
	"testing"

	"storefront/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// deliver buys product for buyer and walks the order to Delivered.
func deliver(t *testing.T, f *fixture, buyer *models.User, product *models.Product) {
	t.Helper()
	f.addToCart(buyer, product, 1)
	res := f.checkout(buyer, f.address(buyer), models.PaymentMethodCashOnDelivery)
	for _, st := range []string{"Shipped", "Delivered"} {
		_, err := f.orders.UpdateStatus(f.ctx, res.Order.ID, st, "")
		require.NoError(t, err)
	}
}

func TestAddReviewRequiresDeliveredPurchase(t *testing.T) {
	f := newFixture(t)
	svc := NewReviewService(f.repo)
	seller := f.user(models.RoleSeller)
	buyer := f.user(models.RoleCustomer)
	product := f.product(seller, "Mug", "10.00", 5)

	_, err := svc.AddReview(f.ctx, buyer.ID, product.ID, ReviewInput{Rating: 5})
	assert.ErrorIs(t, err, ErrReviewNotPurchased)

	_, err = svc.AddReview(f.ctx, buyer.ID, uuid.New(), ReviewInput{Rating: 5})
	assert.ErrorIs(t, err, ProductNotFound(uuid.Nil))

	deliver(t, f, buyer, product)

	_, err = svc.AddReview(f.ctx, buyer.ID, product.ID, ReviewInput{Rating: 6})
	assert.ErrorIs(t, err, ErrReviewInvalidRating)

	review, err := svc.AddReview(f.ctx, buyer.ID, product.ID, ReviewInput{Rating: 4, Comment: " solid "})
	require.NoError(t, err)
	assert.Equal(t, "solid", review.Comment)

	_, err = svc.AddReview(f.ctx, buyer.ID, product.ID, ReviewInput{Rating: 3})
	assert.ErrorIs(t, err, ErrReviewDuplicate)
}

func TestReviewEditingAndAverage(t *testing.T) {
	f := newFixture(t)
	svc := NewReviewService(f.repo)
	seller := f.user(models.RoleSeller)
	product := f.product(seller, "Mug", "10.00", 10)
	first := f.user(models.RoleCustomer)
	second := f.user(models.RoleCustomer)
	deliver(t, f, first, product)
	deliver(t, f, second, product)

	r1, err := svc.AddReview(f.ctx, first.ID, product.ID, ReviewInput{Rating: 5})
	require.NoError(t, err)
	_, err = svc.AddReview(f.ctx, second.ID, product.ID, ReviewInput{Rating: 2})
	require.NoError(t, err)

	list, err := svc.ListProductReviews(f.ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, list.Count)
	assert.Equal(t, "3.5", list.AverageRating.String())

	_, err = svc.UpdateReview(f.ctx, Actor{UserID: second.ID, Role: models.RoleCustomer}, r1.ID, ReviewInput{Rating: 1})
	assert.ErrorIs(t, err, ErrReviewForbidden)

	_, err = svc.UpdateReview(f.ctx, Actor{UserID: first.ID, Role: models.RoleCustomer}, r1.ID, ReviewInput{Rating: 3})
	require.NoError(t, err)

	admin := Actor{UserID: uuid.New(), Role: models.RoleAdmin}
	require.NoError(t, svc.DeleteReview(f.ctx, admin, r1.ID))

	list, err = svc.ListProductReviews(f.ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, "2", list.AverageRating.String())
}
