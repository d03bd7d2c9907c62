package store

import (
	"context"

	"storefront/internal/models"

	"github.com/google/uuid"
)

func (s *Store) CreateCoupon(ctx context.Context, coupon *models.Coupon) error {
	query := `
		INSERT INTO coupons (id, code, type, value, max_discount, min_order_amount, expires_at,
			usages_left, times_per_user, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at`

	return mapWriteError(s.get(ctx, &coupon.CreatedAt, query,
		coupon.ID, coupon.Code, coupon.Type, coupon.Value, coupon.MaxDiscount, coupon.MinOrderAmount,
		coupon.ExpiresAt, coupon.UsagesLeft, coupon.TimesPerUser, coupon.IsActive))
}

func (s *Store) GetCouponByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := s.get(ctx, &coupon, "SELECT * FROM coupons WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (s *Store) GetCouponByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := s.get(ctx, &coupon, "SELECT * FROM coupons WHERE code = UPPER($1)", code); err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (s *Store) ListCoupons(ctx context.Context) ([]models.Coupon, error) {
	var coupons []models.Coupon
	err := s.selectAll(ctx, &coupons, "SELECT * FROM coupons ORDER BY created_at DESC")
	return coupons, err
}

func (s *Store) UpdateCoupon(ctx context.Context, coupon *models.Coupon) error {
	return s.execOne(ctx, `
		UPDATE coupons SET code = $1, type = $2, value = $3, max_discount = $4, min_order_amount = $5,
			expires_at = $6, usages_left = $7, times_per_user = $8, is_active = $9
		WHERE id = $10`,
		coupon.Code, coupon.Type, coupon.Value, coupon.MaxDiscount, coupon.MinOrderAmount,
		coupon.ExpiresAt, coupon.UsagesLeft, coupon.TimesPerUser, coupon.IsActive, coupon.ID)
}

func (s *Store) DeleteCoupon(ctx context.Context, id uuid.UUID) error {
	return s.execOne(ctx, "DELETE FROM coupons WHERE id = $1", id)
}

func (s *Store) GetCouponUsage(ctx context.Context, userID, couponID uuid.UUID) (*models.CouponUsage, error) {
	var usage models.CouponUsage
	err := s.get(ctx, &usage,
		"SELECT * FROM coupon_usages WHERE user_id = $1 AND coupon_id = $2", userID, couponID)
	if err != nil {
		return nil, err
	}
	return &usage, nil
}

// IncrementCouponUsage upserts the per-user redemption counter
func (s *Store) IncrementCouponUsage(ctx context.Context, userID, couponID uuid.UUID) error {
	return s.exec(ctx, `
		INSERT INTO coupon_usages (id, user_id, coupon_id, times_used)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (user_id, coupon_id)
		DO UPDATE SET times_used = coupon_usages.times_used + 1, updated_at = NOW()`,
		uuid.New(), userID, couponID)
}

// DecrementCouponUsages consumes one global usage
func (s *Store) DecrementCouponUsages(ctx context.Context, couponID uuid.UUID) error {
	return s.execOne(ctx,
		"UPDATE coupons SET usages_left = usages_left - 1 WHERE id = $1 AND usages_left > 0", couponID)
}
