package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var hundred = decimal.NewFromInt(100)

// CouponService validates coupons and computes discounts. Validation never
// changes usage counters; RecordUsage does that inside the caller's unit of work.
type CouponService struct {
	repo   models.Repository
	now    func() time.Time
	logger *zap.Logger
}

func NewCouponService(repo models.Repository) *CouponService {
	return &CouponService{repo: repo, now: time.Now, logger: util.GetLogger()}
}

// Totals is the price breakdown of a cart or order.
type Totals struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	Discount    decimal.Decimal `json:"discount"`
	ShippingFee decimal.Decimal `json:"shipping_fee"`
	Total       decimal.Decimal `json:"total"`
}

// ComputeTotals applies coupon (may be nil) to subtotal and shipping.
func ComputeTotals(subtotal, shipping decimal.Decimal, coupon *models.Coupon) Totals {
	t := Totals{Subtotal: subtotal, Discount: decimal.Zero, ShippingFee: shipping}

	if coupon != nil {
		switch coupon.Type {
		case models.CouponTypeFixedAmount:
			t.Discount = decimal.Min(coupon.Value, subtotal)
		case models.CouponTypePercentage:
			d := subtotal.Mul(coupon.Value).Div(hundred).Round(2)
			if coupon.MaxDiscount.IsPositive() {
				d = decimal.Min(d, coupon.MaxDiscount)
			}
			t.Discount = d
		case models.CouponTypeFreeShipping:
			t.ShippingFee = decimal.Zero
		}
	}

	t.Total = t.Subtotal.Sub(t.Discount).Add(t.ShippingFee)
	return t
}

// Validate checks that userID may apply coupon to an order of subtotal.
func (s *CouponService) Validate(ctx context.Context, userID uuid.UUID, coupon *models.Coupon, subtotal decimal.Decimal) error {
	return s.validate(ctx, s.repo, userID, coupon, subtotal)
}

func (s *CouponService) validate(ctx context.Context, repo models.CouponRepository, userID uuid.UUID, coupon *models.Coupon, subtotal decimal.Decimal) error {
	if coupon == nil {
		return ErrCouponNotFound
	}
	if !coupon.IsActive {
		return ErrCouponInactive
	}
	if !s.now().Before(coupon.ExpiresAt) {
		return ErrCouponExpired
	}
	if coupon.UsagesLeft <= 0 {
		return ErrCouponUsageLimitReached
	}

	usage, err := repo.GetCouponUsage(ctx, userID, coupon.ID)
	switch {
	case errors.Is(err, models.ErrNotFound):
	case err != nil:
		return fmt.Errorf("failed to load coupon usage: %w", err)
	case coupon.TimesPerUser > 0 && usage.TimesUsed >= coupon.TimesPerUser:
		return ErrCouponUserLimitReached
	}

	if subtotal.LessThan(coupon.MinOrderAmount) {
		return CouponMinOrderNotMet(coupon.MinOrderAmount)
	}
	return nil
}

// ValidateCode looks the coupon up by code and validates it.
func (s *CouponService) ValidateCode(ctx context.Context, userID uuid.UUID, code string, subtotal decimal.Decimal) (*models.Coupon, error) {
	coupon, err := s.repo.GetCouponByCode(ctx, normalizeCode(code))
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrCouponNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load coupon: %w", err)
	}
	if err := s.Validate(ctx, userID, coupon, subtotal); err != nil {
		return nil, err
	}
	return coupon, nil
}

// RecordUsage counts one redemption by userID. It runs on the caller's
// transaction so a failed order leaves the counters untouched.
func (s *CouponService) RecordUsage(ctx context.Context, tx models.CouponRepository, userID, couponID uuid.UUID) error {
	if err := tx.DecrementCouponUsages(ctx, couponID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return ErrCouponUsageLimitReached
		}
		return fmt.Errorf("failed to decrement coupon usages: %w", err)
	}
	if err := tx.IncrementCouponUsage(ctx, userID, couponID); err != nil {
		return fmt.Errorf("failed to record coupon usage: %w", err)
	}
	return nil
}

// CouponInput is the admin-editable part of a coupon.
type CouponInput struct {
	Code           string          `json:"code" binding:"required,min=3,max=32"`
	Type           string          `json:"type" binding:"required"`
	Value          decimal.Decimal `json:"value"`
	MaxDiscount    decimal.Decimal `json:"max_discount"`
	MinOrderAmount decimal.Decimal `json:"min_order_amount"`
	ExpiresAt      time.Time       `json:"expires_at" binding:"required"`
	UsagesLeft     int             `json:"usages_left" binding:"min=0"`
	TimesPerUser   int             `json:"times_per_user" binding:"min=1"`
	IsActive       *bool           `json:"is_active"`
}

func (in CouponInput) apply(c *models.Coupon) error {
	ct, ok := models.ParseCouponType(in.Type)
	if !ok {
		return ErrCouponInvalid
	}
	if in.Value.IsNegative() || in.MaxDiscount.IsNegative() || in.MinOrderAmount.IsNegative() {
		return ErrCouponInvalid
	}
	if ct != models.CouponTypeFreeShipping && !in.Value.IsPositive() {
		return ErrCouponInvalid
	}
	if ct == models.CouponTypePercentage && in.Value.GreaterThan(hundred) {
		return ErrCouponInvalid
	}

	c.Code = normalizeCode(in.Code)
	c.Type = ct
	c.Value = in.Value
	c.MaxDiscount = in.MaxDiscount
	c.MinOrderAmount = in.MinOrderAmount
	c.ExpiresAt = in.ExpiresAt.UTC()
	c.UsagesLeft = in.UsagesLeft
	c.TimesPerUser = in.TimesPerUser
	if c.TimesPerUser < 1 {
		c.TimesPerUser = 1
	}
	c.IsActive = in.IsActive == nil || *in.IsActive
	return nil
}

func (s *CouponService) Create(ctx context.Context, in CouponInput) (*models.Coupon, error) {
	coupon := &models.Coupon{ID: uuid.New()}
	if err := in.apply(coupon); err != nil {
		return nil, err
	}

	if err := s.repo.CreateCoupon(ctx, coupon); err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			return nil, ErrCouponDuplicate
		}
		return nil, fmt.Errorf("failed to create coupon: %w", err)
	}

	s.logger.Info("Coupon created", zap.String("code", coupon.Code), zap.String("type", string(coupon.Type)))
	return coupon, nil
}

func (s *CouponService) Get(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	coupon, err := s.repo.GetCouponByID(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrCouponNotFound
	}
	return coupon, err
}

func (s *CouponService) List(ctx context.Context) ([]models.Coupon, error) {
	return s.repo.ListCoupons(ctx)
}

func (s *CouponService) Update(ctx context.Context, id uuid.UUID, in CouponInput) (*models.Coupon, error) {
	coupon, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := in.apply(coupon); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateCoupon(ctx, coupon); err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			return nil, ErrCouponDuplicate
		}
		return nil, fmt.Errorf("failed to update coupon: %w", err)
	}
	return coupon, nil
}

func (s *CouponService) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.repo.DeleteCoupon(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return ErrCouponNotFound
	}
	return err
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
