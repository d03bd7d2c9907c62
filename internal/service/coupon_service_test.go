package service

import (
	"testing"
	"time"

	"storefront/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeTotals(t *testing.T) {
	tests := []struct {
		name     string
		subtotal string
		shipping string
		coupon   *models.Coupon
		discount string
		fee      string
		total    string
	}{
		{"no coupon", "100", "15", nil, "0", "15", "115"},
		{"fixed", "100", "15", &models.Coupon{Type: models.CouponTypeFixedAmount, Value: dec("30")}, "30", "15", "85"},
		{"fixed capped at subtotal", "20", "15", &models.Coupon{Type: models.CouponTypeFixedAmount, Value: dec("50")}, "20", "15", "15"},
		{"percentage", "80", "0", &models.Coupon{Type: models.CouponTypePercentage, Value: dec("25")}, "20", "0", "60"},
		{"percentage rounded", "33.33", "0", &models.Coupon{Type: models.CouponTypePercentage, Value: dec("10")}, "3.33", "0", "30"},
		{"percentage capped", "1000", "0", &models.Coupon{Type: models.CouponTypePercentage, Value: dec("50"), MaxDiscount: dec("100")}, "100", "0", "900"},
		{"free shipping", "100", "15", &models.Coupon{Type: models.CouponTypeFreeShipping}, "0", "0", "100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeTotals(dec(tt.subtotal), dec(tt.shipping), tt.coupon)
			assert.True(t, dec(tt.discount).Equal(got.Discount), "discount %s", got.Discount)
			assert.True(t, dec(tt.fee).Equal(got.ShippingFee), "shipping %s", got.ShippingFee)
			assert.True(t, dec(tt.total).Equal(got.Total), "total %s", got.Total)
		})
	}
}

func TestCouponValidate(t *testing.T) {
	f := newFixture(t)
	user := f.user(models.RoleCustomer)

	tests := []struct {
		name     string
		mutate   func(c *models.Coupon)
		subtotal string
		want     error
	}{
		{"valid", nil, "50", nil},
		{"inactive", func(c *models.Coupon) { c.IsActive = false }, "50", ErrCouponInactive},
		{"expired", func(c *models.Coupon) { c.ExpiresAt = time.Now().Add(-time.Minute) }, "50", ErrCouponExpired},
		{"no usages left", func(c *models.Coupon) { c.UsagesLeft = 0 }, "50", ErrCouponUsageLimitReached},
		{"below minimum", func(c *models.Coupon) { c.MinOrderAmount = dec("100") }, "50", CouponMinOrderNotMet(decimal.Zero)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := f.coupon(tt.mutate)
			err := f.coupons.Validate(f.ctx, user.ID, c, dec(tt.subtotal))
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCouponPerUserLimit(t *testing.T) {
	f := newFixture(t)
	user := f.user(models.RoleCustomer)
	c := f.coupon(func(c *models.Coupon) { c.TimesPerUser = 2 })

	for i := 0; i < 2; i++ {
		require.NoError(t, f.coupons.Validate(f.ctx, user.ID, c, dec("10")))
		require.NoError(t, f.coupons.RecordUsage(f.ctx, f.repo, user.ID, c.ID))
	}

	assert.ErrorIs(t, f.coupons.Validate(f.ctx, user.ID, c, dec("10")), ErrCouponUserLimitReached)
	assert.NoError(t, f.coupons.Validate(f.ctx, uuid.New(), c, dec("10")))
}

func TestRecordUsageStopsAtZero(t *testing.T) {
	f := newFixture(t)
	c := f.coupon(func(c *models.Coupon) { c.UsagesLeft = 1 })

	require.NoError(t, f.coupons.RecordUsage(f.ctx, f.repo, uuid.New(), c.ID))
	assert.ErrorIs(t, f.coupons.RecordUsage(f.ctx, f.repo, uuid.New(), c.ID), ErrCouponUsageLimitReached)
}

func TestValidateCodeIsCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	c := f.coupon(func(c *models.Coupon) { c.Code = "WELCOME10" })

	got, err := f.coupons.ValidateCode(f.ctx, uuid.New(), "  welcome10 ", dec("10"))
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)

	_, err = f.coupons.ValidateCode(f.ctx, uuid.New(), "nope", dec("10"))
	assert.ErrorIs(t, err, ErrCouponNotFound)
}

func TestCouponAdminCRUD(t *testing.T) {
	f := newFixture(t)
	in := CouponInput{
		Code:         "summer",
		Type:         "percentage",
		Value:        dec("15"),
		ExpiresAt:    time.Now().Add(time.Hour),
		UsagesLeft:   10,
		TimesPerUser: 1,
	}

	created, err := f.coupons.Create(f.ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "SUMMER", created.Code)
	assert.Equal(t, models.CouponTypePercentage, created.Type)
	assert.True(t, created.IsActive)

	_, err = f.coupons.Create(f.ctx, in)
	assert.ErrorIs(t, err, ErrCouponDuplicate)

	in.Value = dec("150")
	_, err = f.coupons.Update(f.ctx, created.ID, in)
	assert.ErrorIs(t, err, ErrCouponInvalid)

	in.Type = "bogus"
	_, err = f.coupons.Create(f.ctx, in)
	assert.ErrorIs(t, err, ErrCouponInvalid)

	require.NoError(t, f.coupons.Delete(f.ctx, created.ID))
	_, err = f.coupons.Get(f.ctx, created.ID)
	assert.ErrorIs(t, err, ErrCouponNotFound)
}
