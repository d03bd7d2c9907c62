package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"storefront/internal/apperr"
	"storefront/internal/locker"
	"storefront/internal/models"
	"storefront/internal/paymob"
	"storefront/internal/util"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// WebhookOutcome describes what a gateway callback did to its order.
type WebhookOutcome string

const (
	WebhookPaid          WebhookOutcome = "paid"
	WebhookPaymentFailed WebhookOutcome = "payment_failed"
	WebhookOutOfStock    WebhookOutcome = "out_of_stock"
	WebhookPending       WebhookOutcome = "pending"
	WebhookDuplicate     WebhookOutcome = "duplicate"
)

const idempotencyTTL = 24 * time.Hour

// errAlreadyHandled aborts a unit of work whose order left Pending meanwhile.
var errAlreadyHandled = errors.New("order already handled")

// PaymobWebhookService settles orders from Paymob transaction callbacks
type PaymobWebhookService struct {
	repo        models.Repository
	coupons     *CouponService
	locker      locker.Locker
	validator   SignatureValidator
	idempotency IdempotencyStore
	events      EventPublisher
	logger      *zap.Logger
}

// NewPaymobWebhookService creates the webhook handler. idempotency may be nil;
// the order status guard alone then rejects replays.
func NewPaymobWebhookService(
	repo models.Repository,
	coupons *CouponService,
	lk locker.Locker,
	validator SignatureValidator,
	idempotency IdempotencyStore,
	events EventPublisher,
) *PaymobWebhookService {
	return &PaymobWebhookService{
		repo:        repo,
		coupons:     coupons,
		locker:      lk,
		validator:   validator,
		idempotency: idempotency,
		events:      events,
		logger:      util.GetLogger(),
	}
}

// ProcessTransaction authenticates callback with hmac and applies it.
func (s *PaymobWebhookService) ProcessTransaction(ctx context.Context, callback *paymob.TransactionCallback, hmac string) (outcome WebhookOutcome, err error) {
	txn := callback.Obj
	ctx, span := util.StartSpan(ctx, "PaymobWebhookService.ProcessTransaction",
		attribute.Int64("transaction_id", txn.ID),
		attribute.String("merchant_order_id", txn.Order.MerchantOrderID),
	)
	defer span.End()
	defer func() {
		result := string(outcome)
		if err != nil {
			result = "error"
			if e, ok := apperr.From(err); ok {
				result = e.Code
			}
		}
		util.WebhooksTotal.WithLabelValues(result).Inc()
	}()

	if !s.validator.Validate(txn, hmac) {
		s.logger.Warn("Rejected Paymob callback with invalid signature",
			zap.Int64("transaction_id", txn.ID))
		return "", ErrPaymentInvalidSignature
	}

	orderID, err := uuid.Parse(txn.Order.MerchantOrderID)
	if err != nil {
		return "", ErrOrderNotFound
	}
	order, err := s.repo.GetOrderByID(ctx, orderID)
	if errors.Is(err, models.ErrNotFound) {
		return "", ErrOrderNotFound
	}
	if err != nil {
		return "", util.RecordError(span, fmt.Errorf("failed to get order: %w", err))
	}

	if order.Status != models.OrderStatusPending {
		s.logger.Info("Ignoring callback for settled order",
			zap.String("order_id", order.ID.String()),
			zap.String("status", string(order.Status)))
		return WebhookDuplicate, nil
	}
	if txn.Pending {
		return WebhookPending, nil
	}

	if s.idempotency != nil {
		key := "paymob:txn:" + strconv.FormatInt(txn.ID, 10)
		claimed, err := s.idempotency.ClaimIdempotencyKey(ctx, key, idempotencyTTL)
		if err != nil {
			return "", util.RecordError(span, fmt.Errorf("failed to claim idempotency key: %w", err))
		}
		if !claimed {
			return WebhookDuplicate, nil
		}
		defer func() {
			// a retry must be able to succeed after an infrastructure failure
			if err == nil {
				return
			}
			if _, ok := apperr.From(err); ok {
				return
			}
			if relErr := s.idempotency.ReleaseIdempotencyKey(context.Background(), key); relErr != nil {
				s.logger.Error("Failed to release idempotency key", zap.String("key", key), zap.Error(relErr))
			}
		}()
	}

	if !txn.Success {
		return s.failPayment(ctx, order, paymentFailureNote(txn))
	}
	return s.settle(ctx, order, txn)
}

func (s *PaymobWebhookService) settle(ctx context.Context, order *models.Order, txn paymob.Transaction) (WebhookOutcome, error) {
	if paymob.ToCents(order.TotalPrice) != txn.AmountCents {
		s.logger.Warn("Paymob amount differs from order total",
			zap.String("order_id", order.ID.String()),
			zap.Int64("amount_cents", txn.AmountCents),
			zap.String("total", order.TotalPrice.StringFixed(2)))
	}

	ids := make([]uuid.UUID, 0, len(order.Items))
	for _, item := range order.Items {
		ids = append(ids, item.ProductID)
	}
	start := time.Now()
	release, err := s.locker.Lock(ctx, productLockKeys(sortedProductIDs(ids)))
	util.StockLockWait.Observe(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("failed to lock products: %w", err)
	}
	defer release()

	reference := strconv.FormatInt(txn.ID, 10)
	note := "Payment received, transaction " + reference

	var paid *models.Order
	err = s.repo.InTx(ctx, func(tx models.Repository) error {
		current, err := tx.GetOrderByID(ctx, order.ID)
		if err != nil {
			return err
		}
		if current.Status != models.OrderStatusPending {
			return errAlreadyHandled
		}

		products := make([]*models.Product, 0, len(current.Items))
		for _, item := range current.Items {
			product, err := tx.GetProductForUpdate(ctx, item.ProductID)
			if errors.Is(err, models.ErrNotFound) {
				return ProductNotFound(item.ProductID)
			}
			if err != nil {
				return fmt.Errorf("failed to lock product: %w", err)
			}
			if product.Stock < item.Quantity {
				return ProductInsufficientStock(product.Name, product.Stock)
			}
			product.Stock -= item.Quantity
			products = append(products, product)
		}
		if err := tx.UpdateProductStocks(ctx, products); err != nil {
			return fmt.Errorf("failed to update stock: %w", err)
		}

		current.Status = models.OrderStatusProcessing
		current.PaymentReference = &reference
		if err := tx.UpdateOrder(ctx, current); err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}
		if err := appendHistory(ctx, tx, current, note); err != nil {
			return err
		}

		if current.CouponID != nil {
			err := s.coupons.RecordUsage(ctx, tx, current.UserID, *current.CouponID)
			if errors.Is(err, ErrCouponUsageLimitReached) {
				// already paid for; honour the discount
				s.logger.Warn("Coupon exhausted before payment settled",
					zap.String("order_id", current.ID.String()),
					zap.String("coupon_id", current.CouponID.String()))
			} else if err != nil {
				return err
			}
		}

		cart, err := tx.GetCartByUserID(ctx, current.UserID)
		switch {
		case errors.Is(err, models.ErrNotFound):
		case err != nil:
			return fmt.Errorf("failed to load cart: %w", err)
		default:
			if err := tx.ClearCart(ctx, cart.ID); err != nil {
				return fmt.Errorf("failed to clear cart: %w", err)
			}
		}

		paid = current
		return nil
	})

	if errors.Is(err, errAlreadyHandled) {
		return WebhookDuplicate, nil
	}
	if isStockShortfall(err) {
		s.logger.Warn("Paid order could not be fulfilled",
			zap.String("order_id", order.ID.String()),
			zap.Error(err))
		outcome, failErr := s.failPayment(ctx, order, "Paid but out of stock: "+describe(err))
		if failErr != nil {
			return "", failErr
		}
		if outcome == WebhookPaymentFailed {
			outcome = WebhookOutOfStock
		}
		return outcome, nil
	}
	if err != nil {
		return "", err
	}

	util.OrderTransitionsTotal.WithLabelValues(string(models.OrderStatusPending), string(models.OrderStatusProcessing)).Inc()
	publishStatusChanged(ctx, s.events, s.logger, paid, models.OrderStatusPending, note)

	s.logger.Info("Order paid",
		zap.String("order_id", order.ID.String()),
		zap.String("transaction_id", reference))
	return WebhookPaid, nil
}

func (s *PaymobWebhookService) failPayment(ctx context.Context, order *models.Order, note string) (WebhookOutcome, error) {
	failed, err := markOrderFailed(ctx, s.repo, order.ID, note)
	if err != nil {
		return "", fmt.Errorf("failed to mark order failed: %w", err)
	}
	if failed == nil {
		return WebhookDuplicate, nil
	}

	util.OrderTransitionsTotal.WithLabelValues(string(models.OrderStatusPending), string(models.OrderStatusFailed)).Inc()
	publishStatusChanged(ctx, s.events, s.logger, failed, models.OrderStatusPending, note)

	s.logger.Info("Order payment failed",
		zap.String("order_id", order.ID.String()),
		zap.String("note", note))
	return WebhookPaymentFailed, nil
}

func paymentFailureNote(txn paymob.Transaction) string {
	if txn.Data.Message != "" {
		return "Payment failed: " + txn.Data.Message
	}
	return "Payment failed"
}

func isStockShortfall(err error) bool {
	e, ok := apperr.From(err)
	return ok && (e.Code == "Product.InsufficientStock" || e.Code == "Product.NotFound")
}
