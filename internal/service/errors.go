package service

import (
	"fmt"

	"storefront/internal/apperr"
	"storefront/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrCartEmpty        = apperr.Validation("Cart.Empty", "Your cart is empty")
	ErrCartItemNotFound = apperr.NotFound("Cart.ItemNotFound", "The product is not in your cart")
	ErrInvalidQuantity  = apperr.Validation("Cart.InvalidQuantity", "Quantity must be at least 1")

	ErrAddressNotFound = apperr.NotFound("Address.NotFound", "Shipping address not found")

	ErrProductForbidden     = apperr.Forbidden("Product.Forbidden", "You can only manage your own products")
	ErrProductInvalid       = apperr.Validation("Product.Invalid", "Price must not be negative and stock must be at least 0")
	ErrProductImportInvalid = apperr.Validation("Product.ImportInvalid", "The file is not a product spreadsheet")
	ErrCategoryNotFound     = apperr.NotFound("Category.NotFound", "Category not found")
	ErrCategoryDuplicate    = apperr.Conflict("Category.Duplicate", "A category with this name already exists")

	ErrOrderNotFound             = apperr.NotFound("Order.NotFound", "Order not found")
	ErrOrderInvalidPaymentMethod = apperr.Validation("Order.InvalidPaymentMethod", "Payment method must be CashOnDelivery or Paymob")
	ErrOrderInvalidStatus        = apperr.Validation("Order.InvalidStatus", "Unknown order status")
	ErrOrderNotCancellable       = apperr.Conflict("Order.NotCancellable", "Only pending or processing orders can be cancelled")
	ErrOrderBusy                 = apperr.Conflict("Order.Busy", "These products are being updated by another order, please retry")

	ErrPaymentIntentFailed     = apperr.Failure("Payment.IntentFailed", "Could not start the online payment, please try again")
	ErrPaymentInvalidSignature = apperr.Unauthorized("Payment.InvalidSignature", "Invalid payment signature")
	ErrPaymentUnavailable      = apperr.Failure("Payment.Unavailable", "Online payment is not available")

	ErrCouponNotFound          = apperr.NotFound("Coupon.NotFound", "Coupon not found")
	ErrCouponInactive          = apperr.Validation("Coupon.Inactive", "This coupon is not active")
	ErrCouponExpired           = apperr.Validation("Coupon.Expired", "This coupon has expired")
	ErrCouponUsageLimitReached = apperr.Validation("Coupon.UsageLimitReached", "This coupon has no uses left")
	ErrCouponUserLimitReached  = apperr.Validation("Coupon.UserLimitReached", "You have already used this coupon the maximum number of times")
	ErrCouponDuplicate         = apperr.Conflict("Coupon.Duplicate", "A coupon with this code already exists")
	ErrCouponInvalid           = apperr.Validation("Coupon.Invalid", "Coupon definition is invalid")

	ErrReviewInvalidRating = apperr.Validation("Review.InvalidRating", "Rating must be between 1 and 5")
	ErrReviewNotPurchased  = apperr.Forbidden("Review.NotPurchased", "Only customers who received the product can review it")
	ErrReviewDuplicate     = apperr.Conflict("Review.Duplicate", "You have already reviewed this product")
	ErrReviewNotFound      = apperr.NotFound("Review.NotFound", "Review not found")
	ErrReviewForbidden     = apperr.Forbidden("Review.Forbidden", "You can only change your own reviews")

	ErrOtpInvalid = apperr.Validation("Otp.Invalid", "The code is invalid")
	ErrOtpExpired = apperr.Validation("Otp.Expired", "The code has expired")

	ErrUserNotFound        = apperr.NotFound("User.NotFound", "User not found")
	ErrUserEmailTaken      = apperr.Conflict("User.EmailTaken", "An account with this email already exists")
	ErrInvalidCredentials  = apperr.Unauthorized("User.InvalidCredentials", "Invalid email or password")
	ErrInvalidRefreshToken = apperr.Unauthorized("User.InvalidRefreshToken", "Session expired, please sign in again")
	ErrGoogleTokenInvalid  = apperr.Unauthorized("User.GoogleTokenInvalid", "Google sign-in failed")
	ErrUserInvalidRole     = apperr.Validation("User.InvalidRole", "Role must be Customer, Seller or Admin")

	ErrNotificationNotFound = apperr.NotFound("Notification.NotFound", "Notification not found")
)

func ProductNotFound(id uuid.UUID) *apperr.Error {
	return apperr.NotFound("Product.NotFound", fmt.Sprintf("Product %s not found", id))
}

func ProductInsufficientStock(name string, stock int) *apperr.Error {
	return apperr.Validation("Product.InsufficientStock",
		fmt.Sprintf("Insufficient stock for %s, only %d left", name, stock))
}

func CouponMinOrderNotMet(min decimal.Decimal) *apperr.Error {
	return apperr.Validation("Coupon.MinOrderNotMet",
		fmt.Sprintf("Order subtotal must be at least %s to use this coupon", min.StringFixed(2)))
}

func OrderInvalidTransition(from, to models.OrderStatus) *apperr.Error {
	return apperr.Conflict("Order.InvalidTransition",
		fmt.Sprintf("Cannot move order from %s to %s", from, to))
}
