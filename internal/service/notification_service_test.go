package service

import (
	"errors"
	"testing"

	"storefront/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyOrderPlacedReachesBuyerAndSellers(t *testing.T) {
	f := newFixture(t)
	pusher := &recordingPusher{}
	mailer := &recordingMailer{}
	svc := NewNotificationService(f.repo, pusher, mailer)

	alice := f.user(models.RoleSeller)
	bob := f.user(models.RoleSeller)
	buyer := f.user(models.RoleCustomer)
	f.addToCart(buyer, f.product(alice, "Mug", "10.00", 5), 1)
	f.addToCart(buyer, f.product(alice, "Cup", "5.00", 5), 1)
	f.addToCart(buyer, f.product(bob, "Lamp", "30.00", 5), 1)
	f.checkout(buyer, f.address(buyer), models.PaymentMethodCashOnDelivery)
	require.Len(t, f.events.placed, 1)

	require.NoError(t, svc.NotifyOrderPlaced(f.ctx, f.events.placed[0]))

	for _, u := range []*models.User{buyer, alice, bob} {
		list, err := svc.List(f.ctx, u.ID, false)
		require.NoError(t, err)
		assert.Len(t, list, 1, "notifications for %s", u.LastName)
		assert.Equal(t, 1, pusher.count(u.ID))
	}

	sent := mailer.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, buyer.Email, sent[0].To)
	assert.Contains(t, sent[0].HTML, "Lamp")
}

func TestNotifyPendingOrderSkipsSellers(t *testing.T) {
	f := newFixture(t)
	svc := NewNotificationService(f.repo, &recordingPusher{}, &recordingMailer{})
	seller := f.user(models.RoleSeller)
	buyer := f.user(models.RoleCustomer)
	f.addToCart(buyer, f.product(seller, "Mug", "10.00", 5), 1)
	f.checkout(buyer, f.address(buyer), models.PaymentMethodPaymob)

	require.NoError(t, svc.NotifyOrderPlaced(f.ctx, f.events.placed[0]))

	count, err := svc.UnreadCount(f.ctx, seller.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestNotifyOrderStatusChanged(t *testing.T) {
	f := newFixture(t)
	mailer := &recordingMailer{}
	svc := NewNotificationService(f.repo, nil, mailer)
	seller := f.user(models.RoleSeller)
	buyer := f.user(models.RoleCustomer)
	f.addToCart(buyer, f.product(seller, "Mug", "10.00", 5), 1)
	res := f.checkout(buyer, f.address(buyer), models.PaymentMethodCashOnDelivery)

	_, err := f.orders.UpdateStatus(f.ctx, res.Order.ID, "Shipped", "Courier picked up")
	require.NoError(t, err)

	changes := f.events.statusChanges()
	require.Len(t, changes, 1)
	require.NoError(t, svc.NotifyOrderStatusChanged(f.ctx, changes[0]))

	buyerList, err := svc.List(f.ctx, buyer.ID, true)
	require.NoError(t, err)
	require.Len(t, buyerList, 1)
	assert.Contains(t, buyerList[0].Message, "Courier picked up")

	sellerCount, err := svc.UnreadCount(f.ctx, seller.ID)
	require.NoError(t, err)
	assert.Zero(t, sellerCount)

	require.Len(t, mailer.messages(), 1)
	assert.Contains(t, mailer.messages()[0].Subject, "Shipped")
}

func TestEmailFailureDoesNotFailNotification(t *testing.T) {
	f := newFixture(t)
	svc := NewNotificationService(f.repo, nil, &recordingMailer{err: errors.New("smtp down")})
	buyer := f.user(models.RoleCustomer)

	event := &models.OrderStatusChangedEvent{
		BaseEvent:   models.NewBaseEvent(models.EventTypeOrderStatusChanged),
		OrderID:     uuid.New(),
		OrderNumber: "ORD-20240101-ABCDEF",
		UserID:      buyer.ID,
		From:        models.OrderStatusShipped,
		To:          models.OrderStatusDelivered,
	}
	assert.NoError(t, svc.NotifyOrderStatusChanged(f.ctx, event))
}

func TestMarkRead(t *testing.T) {
	f := newFixture(t)
	svc := NewNotificationService(f.repo, nil, nil)
	user := f.user(models.RoleCustomer)
	other := f.user(models.RoleCustomer)

	first, err := svc.Notify(f.ctx, user.ID, models.NotificationAccount, "Welcome", "Hello", nil)
	require.NoError(t, err)
	_, err = svc.Notify(f.ctx, user.ID, models.NotificationAccount, "Tip", "Add an address", nil)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.MarkRead(f.ctx, other.ID, first.ID), ErrNotificationNotFound)
	require.NoError(t, svc.MarkRead(f.ctx, user.ID, first.ID))

	count, err := svc.UnreadCount(f.ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, svc.MarkAllRead(f.ctx, user.ID))
	unread, err := svc.List(f.ctx, user.ID, true)
	require.NoError(t, err)
	assert.Empty(t, unread)
}
