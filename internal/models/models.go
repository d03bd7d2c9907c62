package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Role is the authorization role of a user
type Role string

const (
	RoleCustomer Role = "Customer"
	RoleSeller   Role = "Seller"
	RoleAdmin    Role = "Admin"
)

// User represents an account
type User struct {
	ID             uuid.UUID `db:"id" json:"id"`
	Email          string    `db:"email" json:"email"`
	PasswordHash   *string   `db:"password_hash" json:"-"`
	FirstName      string    `db:"first_name" json:"first_name"`
	LastName       string    `db:"last_name" json:"last_name"`
	PhoneNumber    string    `db:"phone_number" json:"phone_number"`
	Role           Role      `db:"role" json:"role"`
	GoogleSubject  *string   `db:"google_subject" json:"-"`
	EmailConfirmed bool      `db:"email_confirmed" json:"email_confirmed"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// RefreshToken is a stored (hashed) refresh token
type RefreshToken struct {
	ID        uuid.UUID  `db:"id"`
	UserID    uuid.UUID  `db:"user_id"`
	TokenHash string     `db:"token_hash"`
	ExpiresAt time.Time  `db:"expires_at"`
	RevokedAt *time.Time `db:"revoked_at"`
	CreatedAt time.Time  `db:"created_at"`
}

func (t *RefreshToken) Active(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

// Token purposes
const (
	TokenPurposePasswordReset = "password_reset"
)

// VerificationToken is a short-lived numeric one-time password
type VerificationToken struct {
	ID        uuid.UUID `db:"id"`
	UserID    uuid.UUID `db:"user_id"`
	Purpose   string    `db:"purpose"`
	Code      string    `db:"code"`
	Attempts  int       `db:"attempts"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

func (t *VerificationToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Category groups products
type Category struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Product represents a product in the catalog
type Product struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Description string          `db:"description" json:"description"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Stock       int             `db:"stock" json:"stock"`
	SellerID    uuid.UUID       `db:"seller_id" json:"seller_id"`
	CategoryID  *uuid.UUID      `db:"category_id" json:"category_id,omitempty"`
	ImageURL    string          `db:"image_url" json:"image_url"`
	IsDeleted   bool            `db:"is_deleted" json:"-"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// ProductFilter narrows product listings
type ProductFilter struct {
	CategoryID *uuid.UUID
	SellerID   *uuid.UUID
	Search     string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	InStock    bool
	Limit      int
	Offset     int
}

// Address is a shipping address owned by a user
type Address struct {
	ID         uuid.UUID `db:"id" json:"id"`
	UserID     uuid.UUID `db:"user_id" json:"user_id"`
	FullName   string    `db:"full_name" json:"full_name"`
	Phone      string    `db:"phone" json:"phone"`
	Street     string    `db:"street" json:"street"`
	City       string    `db:"city" json:"city"`
	State      string    `db:"state" json:"state"`
	Country    string    `db:"country" json:"country"`
	PostalCode string    `db:"postal_code" json:"postal_code"`
	IsDefault  bool      `db:"is_default" json:"is_default"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Cart is the single shopping cart of a user
type Cart struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	UserID    uuid.UUID  `db:"user_id" json:"user_id"`
	CouponID  *uuid.UUID `db:"coupon_id" json:"coupon_id,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
	Items     []CartItem `db:"-" json:"items"`
}

// CartItem is a product line in a cart
type CartItem struct {
	ID        uuid.UUID `db:"id" json:"id"`
	CartID    uuid.UUID `db:"cart_id" json:"cart_id"`
	ProductID uuid.UUID `db:"product_id" json:"product_id"`
	Quantity  int       `db:"quantity" json:"quantity"`
	AddedAt   time.Time `db:"added_at" json:"added_at"`
}

// OrderStatus is the lifecycle state of an order
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"
	OrderStatusFailed     OrderStatus = "Failed"
	OrderStatusCompleted  OrderStatus = "Completed"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled, OrderStatusFailed},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
	OrderStatusDelivered:  {OrderStatusCompleted},
}

// CanTransitionTo reports whether the order lifecycle allows moving to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func ParseOrderStatus(s string) (OrderStatus, bool) {
	for _, st := range []OrderStatus{
		OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered,
		OrderStatusCancelled, OrderStatusFailed, OrderStatusCompleted,
	} {
		if strings.EqualFold(string(st), s) {
			return st, true
		}
	}
	return "", false
}

// PaymentMethod selects how an order is paid
type PaymentMethod string

const (
	PaymentMethodCashOnDelivery PaymentMethod = "CashOnDelivery"
	PaymentMethodPaymob         PaymentMethod = "Paymob"
)

func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	switch {
	case strings.EqualFold(s, string(PaymentMethodCashOnDelivery)):
		return PaymentMethodCashOnDelivery, true
	case strings.EqualFold(s, string(PaymentMethodPaymob)):
		return PaymentMethodPaymob, true
	}
	return "", false
}

// Order represents a customer order
type Order struct {
	ID                uuid.UUID            `db:"id" json:"id"`
	OrderNumber       string               `db:"order_number" json:"order_number"`
	UserID            uuid.UUID            `db:"user_id" json:"user_id"`
	Status            OrderStatus          `db:"status" json:"status"`
	PaymentMethod     PaymentMethod        `db:"payment_method" json:"payment_method"`
	Subtotal          decimal.Decimal      `db:"subtotal" json:"subtotal"`
	Discount          decimal.Decimal      `db:"discount" json:"discount"`
	ShippingFee       decimal.Decimal      `db:"shipping_fee" json:"shipping_fee"`
	TotalPrice        decimal.Decimal      `db:"total_price" json:"total_price"`
	CouponID          *uuid.UUID           `db:"coupon_id" json:"coupon_id,omitempty"`
	ShippingAddressID uuid.UUID            `db:"shipping_address_id" json:"shipping_address_id"`
	PaymentReference  *string              `db:"payment_reference" json:"payment_reference,omitempty"`
	CreatedAt         time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time            `db:"updated_at" json:"updated_at"`
	Items             []OrderItem          `db:"-" json:"items"`
	History           []OrderStatusHistory `db:"-" json:"history"`
}

// OrderItem is a snapshot of a product line at order time
type OrderItem struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	OrderID     uuid.UUID       `db:"order_id" json:"order_id"`
	ProductID   uuid.UUID       `db:"product_id" json:"product_id"`
	ProductName string          `db:"product_name" json:"product_name"`
	Quantity    int             `db:"quantity" json:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unit_price"`
	SellerID    uuid.UUID       `db:"seller_id" json:"seller_id"`
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderStatusHistory is an append-only audit row
type OrderStatusHistory struct {
	ID        uuid.UUID   `db:"id" json:"id"`
	OrderID   uuid.UUID   `db:"order_id" json:"order_id"`
	Status    OrderStatus `db:"status" json:"status"`
	Note      string      `db:"note" json:"note,omitempty"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
	// Seq orders entries written within one transaction.
	Seq int64 `db:"seq" json:"-"`
}

// OrderFilter narrows order listings
type OrderFilter struct {
	UserID   *uuid.UUID
	SellerID *uuid.UUID
	Status   *OrderStatus
	Limit    int
	Offset   int
}

// CouponType selects how a coupon discounts
type CouponType string

const (
	CouponTypeFixedAmount  CouponType = "FixedAmount"
	CouponTypePercentage   CouponType = "Percentage"
	CouponTypeFreeShipping CouponType = "FreeShipping"
)

func ParseCouponType(s string) (CouponType, bool) {
	for _, ct := range []CouponType{CouponTypeFixedAmount, CouponTypePercentage, CouponTypeFreeShipping} {
		if strings.EqualFold(string(ct), s) {
			return ct, true
		}
	}
	return "", false
}

// Coupon defines a discount rule
type Coupon struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	Code           string          `db:"code" json:"code"`
	Type           CouponType      `db:"type" json:"type"`
	Value          decimal.Decimal `db:"value" json:"value"`
	MaxDiscount    decimal.Decimal `db:"max_discount" json:"max_discount"`
	MinOrderAmount decimal.Decimal `db:"min_order_amount" json:"min_order_amount"`
	ExpiresAt      time.Time       `db:"expires_at" json:"expires_at"`
	UsagesLeft     int             `db:"usages_left" json:"usages_left"`
	TimesPerUser   int             `db:"times_per_user" json:"times_per_user"`
	IsActive       bool            `db:"is_active" json:"is_active"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// CouponUsage counts redemptions of a coupon by a user
type CouponUsage struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	CouponID  uuid.UUID `db:"coupon_id" json:"coupon_id"`
	TimesUsed int       `db:"times_used" json:"times_used"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Review is a product rating left by a purchaser
type Review struct {
	ID        uuid.UUID `db:"id" json:"id"`
	ProductID uuid.UUID `db:"product_id" json:"product_id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Rating    int       `db:"rating" json:"rating"`
	Comment   string    `db:"comment" json:"comment"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Notification types
const (
	NotificationOrderPlaced   = "order_placed"
	NotificationOrderStatus   = "order_status"
	NotificationNewSellerSale = "new_sale"
	NotificationAccount       = "account"
)

// Notification is an in-app message for a user
type Notification struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	UserID    uuid.UUID  `db:"user_id" json:"user_id"`
	Type      string     `db:"type" json:"type"`
	Title     string     `db:"title" json:"title"`
	Message   string     `db:"message" json:"message"`
	OrderID   *uuid.UUID `db:"order_id" json:"order_id,omitempty"`
	IsRead    bool       `db:"is_read" json:"is_read"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}
