package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/locker"
	"storefront/internal/models"
	"storefront/internal/paymob"
	"storefront/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// OrderService handles checkout and the order lifecycle
type OrderService struct {
	repo        models.Repository
	coupons     *CouponService
	locker      locker.Locker
	payments    PaymentGateway
	events      EventPublisher
	shippingFee decimal.Decimal
	now         func() time.Time
	logger      *zap.Logger
}

// NewOrderService creates a new order service. payments may be nil when
// online payment is not configured.
func NewOrderService(
	repo models.Repository,
	coupons *CouponService,
	lk locker.Locker,
	payments PaymentGateway,
	events EventPublisher,
	shippingFee decimal.Decimal,
) *OrderService {
	return &OrderService{
		repo:        repo,
		coupons:     coupons,
		locker:      lk,
		payments:    payments,
		events:      events,
		shippingFee: shippingFee,
		now:         time.Now,
		logger:      util.GetLogger(),
	}
}

// CheckoutRequest represents a request to place the caller's cart
type CheckoutRequest struct {
	ShippingAddressID uuid.UUID `json:"shipping_address_id" binding:"required"`
	PaymentMethod     string    `json:"payment_method" binding:"required"`
}

// CheckoutResult represents the response after placing an order
type CheckoutResult struct {
	Order        *models.Order `json:"order"`
	ClientSecret string        `json:"client_secret,omitempty"`
	CheckoutURL  string        `json:"checkout_url,omitempty"`
}

// Checkout turns the user's cart into an order
func (s *OrderService) Checkout(ctx context.Context, userID uuid.UUID, req CheckoutRequest) (*CheckoutResult, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Checkout",
		attribute.String("user_id", userID.String()),
		attribute.String("payment_method", req.PaymentMethod),
	)
	defer span.End()

	method, ok := models.ParsePaymentMethod(req.PaymentMethod)
	if !ok {
		return nil, s.checkoutFailed("invalid_payment_method", ErrOrderInvalidPaymentMethod)
	}
	if method == models.PaymentMethodPaymob && s.payments == nil {
		return nil, s.checkoutFailed("payment_unavailable", ErrPaymentUnavailable)
	}

	cart, err := s.repo.GetCartByUserID(ctx, userID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, util.RecordError(span, fmt.Errorf("failed to load cart: %w", err))
	}
	if cart == nil || len(cart.Items) == 0 {
		return nil, s.checkoutFailed("cart_empty", ErrCartEmpty)
	}

	address, err := s.repo.GetAddressByID(ctx, req.ShippingAddressID)
	if errors.Is(err, models.ErrNotFound) || (err == nil && address.UserID != userID) {
		return nil, s.checkoutFailed("address_not_found", ErrAddressNotFound)
	}
	if err != nil {
		return nil, util.RecordError(span, fmt.Errorf("failed to load address: %w", err))
	}

	productIDs := make([]uuid.UUID, 0, len(cart.Items))
	for _, item := range cart.Items {
		productIDs = append(productIDs, item.ProductID)
	}
	release, err := s.lockProducts(ctx, productIDs)
	if err != nil {
		return nil, s.checkoutFailed("lock_timeout", err)
	}

	var order *models.Order
	err = s.repo.InTx(ctx, func(tx models.Repository) error {
		var txErr error
		order, txErr = s.placeOrder(ctx, tx, userID, address.ID, method)
		return txErr
	})
	release()
	if err != nil {
		s.logger.Warn("Checkout rejected",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return nil, s.checkoutFailed("rejected", err)
	}

	result := &CheckoutResult{Order: order}

	if method == models.PaymentMethodPaymob {
		intent, err := s.startPayment(ctx, order, address)
		if err != nil {
			s.logger.Error("Failed to create payment intent",
				zap.String("order_id", order.ID.String()),
				zap.Error(err))
			util.PaymentIntentFailuresTotal.Inc()
			if markErr := s.markPaymentFailed(ctx, order.ID, "Payment intent failed"); markErr != nil {
				s.logger.Error("Failed to mark order failed",
					zap.String("order_id", order.ID.String()),
					zap.Error(markErr))
			}
			return nil, s.checkoutFailed("payment_intent", ErrPaymentIntentFailed)
		}
		result.ClientSecret = intent.ClientSecret
		result.CheckoutURL = intent.CheckoutURL
	}

	event := &models.OrderPlacedEvent{
		BaseEvent:     models.NewBaseEvent(models.EventTypeOrderPlaced),
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		UserID:        order.UserID,
		Status:        order.Status,
		PaymentMethod: order.PaymentMethod,
		TotalPrice:    order.TotalPrice,
		Items:         models.ItemData(order.Items),
	}
	if err := s.events.PublishOrderPlaced(ctx, event); err != nil {
		s.logger.Error("Failed to publish order placed event",
			zap.String("order_id", order.ID.String()),
			zap.Error(err))
	}

	util.CheckoutsTotal.WithLabelValues(string(method)).Inc()
	s.logger.Info("Order placed",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("status", string(order.Status)),
		zap.String("total", order.TotalPrice.StringFixed(2)))

	return result, nil
}

// placeOrder runs inside the checkout unit of work with product locks held.
func (s *OrderService) placeOrder(ctx context.Context, tx models.Repository, userID, addressID uuid.UUID, method models.PaymentMethod) (*models.Order, error) {
	// Re-read under the lock; the cart may have changed since it was keyed.
	cart, err := tx.GetCartByUserID(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrCartEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if len(cart.Items) == 0 {
		return nil, ErrCartEmpty
	}

	now := s.now().UTC()
	order := &models.Order{
		ID:                uuid.New(),
		OrderNumber:       newOrderNumber(now),
		UserID:            userID,
		Status:            models.OrderStatusPending,
		PaymentMethod:     method,
		ShippingAddressID: addressID,
	}

	subtotal := decimal.Zero
	items := make([]models.OrderItem, 0, len(cart.Items))
	touched := make([]*models.Product, 0, len(cart.Items))
	for _, ci := range cart.Items {
		product, err := tx.GetProductForUpdate(ctx, ci.ProductID)
		if errors.Is(err, models.ErrNotFound) {
			return nil, ProductNotFound(ci.ProductID)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to lock product: %w", err)
		}
		if product.Stock < ci.Quantity {
			return nil, ProductInsufficientStock(product.Name, product.Stock)
		}

		item := models.OrderItem{
			ID:          uuid.New(),
			OrderID:     order.ID,
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    ci.Quantity,
			UnitPrice:   product.Price,
			SellerID:    product.SellerID,
		}
		items = append(items, item)
		subtotal = subtotal.Add(item.LineTotal())

		product.Stock -= ci.Quantity
		touched = append(touched, product)
	}

	var coupon *models.Coupon
	if cart.CouponID != nil {
		coupon, err = tx.GetCouponByID(ctx, *cart.CouponID)
		if errors.Is(err, models.ErrNotFound) {
			return nil, ErrCouponNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load coupon: %w", err)
		}
		if err := s.coupons.validate(ctx, tx, userID, coupon, subtotal); err != nil {
			return nil, err
		}
		order.CouponID = &coupon.ID
	}

	totals := ComputeTotals(subtotal, s.shippingFee, coupon)
	order.Subtotal = totals.Subtotal
	order.Discount = totals.Discount
	order.ShippingFee = totals.ShippingFee
	order.TotalPrice = totals.Total

	if err := tx.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	if err := tx.CreateOrderItems(ctx, items); err != nil {
		return nil, fmt.Errorf("failed to create order items: %w", err)
	}
	order.Items = items
	if err := appendHistory(ctx, tx, order, "Order placed"); err != nil {
		return nil, err
	}

	if method == models.PaymentMethodCashOnDelivery {
		if err := tx.UpdateProductStocks(ctx, touched); err != nil {
			return nil, fmt.Errorf("failed to update stock: %w", err)
		}
		order.Status = models.OrderStatusProcessing
		if err := tx.UpdateOrder(ctx, order); err != nil {
			return nil, fmt.Errorf("failed to update order: %w", err)
		}
		if err := appendHistory(ctx, tx, order, "Cash on delivery confirmed"); err != nil {
			return nil, err
		}
		if coupon != nil {
			if err := s.coupons.RecordUsage(ctx, tx, userID, coupon.ID); err != nil {
				return nil, err
			}
		}
		if err := tx.ClearCart(ctx, cart.ID); err != nil {
			return nil, fmt.Errorf("failed to clear cart: %w", err)
		}
	}

	return tx.GetOrderByID(ctx, order.ID)
}

func (s *OrderService) startPayment(ctx context.Context, order *models.Order, address *models.Address) (*paymob.Intent, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.startPayment")
	defer span.End()

	user, err := s.repo.GetUserByID(ctx, order.UserID)
	if err != nil {
		return nil, util.RecordError(span, fmt.Errorf("failed to load user: %w", err))
	}

	intent, err := s.payments.CreatePaymentIntent(ctx, paymob.IntentRequest{
		MerchantOrderID: order.ID.String(),
		Amount:          order.TotalPrice,
		Description:     "Order " + order.OrderNumber,
		Billing: paymob.BillingData{
			FirstName:   user.FirstName,
			LastName:    user.LastName,
			Email:       user.Email,
			PhoneNumber: address.Phone,
			Street:      address.Street,
			City:        address.City,
			State:       address.State,
			Country:     address.Country,
		},
	})
	if err != nil {
		return nil, util.RecordError(span, err)
	}
	return intent, nil
}

func (s *OrderService) markPaymentFailed(ctx context.Context, orderID uuid.UUID, note string) error {
	order, err := markOrderFailed(ctx, s.repo, orderID, note)
	if err != nil || order == nil {
		return err
	}
	util.OrderTransitionsTotal.WithLabelValues(string(models.OrderStatusPending), string(models.OrderStatusFailed)).Inc()
	publishStatusChanged(ctx, s.events, s.logger, order, models.OrderStatusPending, note)
	return nil
}

// markOrderFailed moves a pending order to Failed. It returns nil when the
// order already left Pending.
func markOrderFailed(ctx context.Context, repo models.Repository, orderID uuid.UUID, note string) (*models.Order, error) {
	var failed *models.Order
	err := repo.InTx(ctx, func(tx models.Repository) error {
		order, err := tx.GetOrderByID(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status != models.OrderStatusPending {
			return nil
		}
		order.Status = models.OrderStatusFailed
		if err := tx.UpdateOrder(ctx, order); err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}
		if err := appendHistory(ctx, tx, order, note); err != nil {
			return err
		}
		failed = order
		return nil
	})
	return failed, err
}

func (s *OrderService) checkoutFailed(reason string, err error) error {
	util.CheckoutFailuresTotal.WithLabelValues(reason).Inc()
	return err
}

func (s *OrderService) lockProducts(ctx context.Context, ids []uuid.UUID) (func(), error) {
	start := time.Now()
	release, err := s.locker.Lock(ctx, productLockKeys(sortedProductIDs(ids)))
	util.StockLockWait.Observe(time.Since(start).Seconds())
	if errors.Is(err, locker.ErrLockTimeout) {
		return nil, ErrOrderBusy
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock products: %w", err)
	}
	return release, nil
}

func appendHistory(ctx context.Context, tx models.OrderRepository, order *models.Order, note string) error {
	entry := &models.OrderStatusHistory{
		ID:      uuid.New(),
		OrderID: order.ID,
		Status:  order.Status,
		Note:    note,
	}
	if err := tx.AppendOrderHistory(ctx, entry); err != nil {
		return fmt.Errorf("failed to append order history: %w", err)
	}
	return nil
}

// GetOrder returns an order visible to the caller
func (s *OrderService) GetOrder(ctx context.Context, userID, orderID uuid.UUID, isAdmin bool) (*models.Order, error) {
	order, err := s.repo.GetOrderByID(ctx, orderID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if !isAdmin && order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *OrderService) ListUserOrders(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Order, error) {
	limit, offset = clampPage(limit, offset)
	return s.repo.ListOrders(ctx, models.OrderFilter{UserID: &userID, Limit: limit, Offset: offset})
}

func (s *OrderService) ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	filter.Limit, filter.Offset = clampPage(filter.Limit, filter.Offset)
	return s.repo.ListOrders(ctx, filter)
}

// ListSellerOrders returns orders containing the seller's products, with
// each order's items narrowed to that seller.
func (s *OrderService) ListSellerOrders(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]models.Order, error) {
	limit, offset = clampPage(limit, offset)
	orders, err := s.repo.ListOrders(ctx, models.OrderFilter{SellerID: &sellerID, Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	for i := range orders {
		own := orders[i].Items[:0:0]
		for _, item := range orders[i].Items {
			if item.SellerID == sellerID {
				own = append(own, item)
			}
		}
		orders[i].Items = own
	}
	return orders, nil
}

// UpdateStatus moves an order along the lifecycle (admin)
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, status, note string) (*models.Order, error) {
	next, ok := models.ParseOrderStatus(status)
	if !ok {
		return nil, ErrOrderInvalidStatus
	}
	return s.transition(ctx, orderID, next, note, nil)
}

// CancelOrder cancels the caller's pending or processing order
func (s *OrderService) CancelOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	check := func(o *models.Order) error {
		if o.UserID != userID {
			return ErrOrderNotFound
		}
		if o.Status != models.OrderStatusPending && o.Status != models.OrderStatusProcessing {
			return ErrOrderNotCancellable
		}
		return nil
	}
	return s.transition(ctx, orderID, models.OrderStatusCancelled, "Cancelled by customer", check)
}

func (s *OrderService) transition(ctx context.Context, orderID uuid.UUID, next models.OrderStatus, note string, check func(*models.Order) error) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.transition",
		attribute.String("order_id", orderID.String()),
		attribute.String("to", string(next)),
	)
	defer span.End()

	current, err := s.repo.GetOrderByID(ctx, orderID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, util.RecordError(span, fmt.Errorf("failed to get order: %w", err))
	}
	if check != nil {
		if err := check(current); err != nil {
			return nil, err
		}
	}

	// Stock is only held by processing orders.
	restock := next == models.OrderStatusCancelled && current.Status == models.OrderStatusProcessing
	if restock {
		ids := make([]uuid.UUID, 0, len(current.Items))
		for _, item := range current.Items {
			ids = append(ids, item.ProductID)
		}
		release, err := s.lockProducts(ctx, ids)
		if err != nil {
			return nil, err
		}
		defer release()
	}

	var (
		updated *models.Order
		from    models.OrderStatus
	)
	err = s.repo.InTx(ctx, func(tx models.Repository) error {
		order, err := tx.GetOrderByID(ctx, orderID)
		if err != nil {
			return err
		}
		from = order.Status
		if !from.CanTransitionTo(next) {
			return OrderInvalidTransition(from, next)
		}
		if from != current.Status {
			return OrderInvalidTransition(from, next)
		}

		if restock {
			if err := s.restoreStock(ctx, tx, order.Items); err != nil {
				return err
			}
		}

		order.Status = next
		if err := tx.UpdateOrder(ctx, order); err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}
		if note == "" {
			note = fmt.Sprintf("Status changed to %s", next)
		}
		if err := appendHistory(ctx, tx, order, note); err != nil {
			return err
		}

		updated, err = tx.GetOrderByID(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, util.RecordError(span, err)
	}

	util.OrderTransitionsTotal.WithLabelValues(string(from), string(next)).Inc()
	publishStatusChanged(ctx, s.events, s.logger, updated, from, note)

	s.logger.Info("Order status changed",
		zap.String("order_id", orderID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(next)))

	return updated, nil
}

func (s *OrderService) restoreStock(ctx context.Context, tx models.Repository, items []models.OrderItem) error {
	products := make([]*models.Product, 0, len(items))
	for _, item := range items {
		product, err := tx.GetProductForUpdate(ctx, item.ProductID)
		if errors.Is(err, models.ErrNotFound) {
			// removed from the catalog; nothing to return stock to
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to lock product: %w", err)
		}
		product.Stock += item.Quantity
		products = append(products, product)
	}
	if len(products) == 0 {
		return nil
	}
	if err := tx.UpdateProductStocks(ctx, products); err != nil {
		return fmt.Errorf("failed to restore stock: %w", err)
	}
	return nil
}

func publishStatusChanged(ctx context.Context, events EventPublisher, logger *zap.Logger, order *models.Order, from models.OrderStatus, note string) {
	event := &models.OrderStatusChangedEvent{
		BaseEvent:   models.NewBaseEvent(models.EventTypeOrderStatusChanged),
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		From:        from,
		To:          order.Status,
		Note:        note,
		Items:       models.ItemData(order.Items),
	}
	if err := events.PublishOrderStatusChanged(ctx, event); err != nil {
		logger.Error("Failed to publish order status event",
			zap.String("order_id", order.ID.String()),
			zap.Error(err))
	}
}
