package models

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned by repositories when a row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate record")
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByGoogleSubject(ctx context.Context, subject string) (*User, error)
	UpdateUser(ctx context.Context, user *User) error
	ListUsers(ctx context.Context, limit, offset int) ([]User, error)
}

type TokenRepository interface {
	CreateRefreshToken(ctx context.Context, token *RefreshToken) error
	GetRefreshToken(ctx context.Context, tokenHash string) (*RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id uuid.UUID) error
	RevokeUserRefreshTokens(ctx context.Context, userID uuid.UUID) error

	CreateVerificationToken(ctx context.Context, token *VerificationToken) error
	GetVerificationToken(ctx context.Context, userID uuid.UUID, purpose string) (*VerificationToken, error)
	DeleteVerificationTokens(ctx context.Context, userID uuid.UUID, purpose string) error
	// IncrementVerificationAttempts counts a failed guess and returns the new total.
	IncrementVerificationAttempts(ctx context.Context, id uuid.UUID) (int, error)
}

type CategoryRepository interface {
	CreateCategory(ctx context.Context, category *Category) error
	GetCategoryByID(ctx context.Context, id uuid.UUID) (*Category, error)
	ListCategories(ctx context.Context) ([]Category, error)
	UpdateCategory(ctx context.Context, category *Category) error
	DeleteCategory(ctx context.Context, id uuid.UUID) error
}

type ProductRepository interface {
	CreateProduct(ctx context.Context, product *Product) error
	GetProductByID(ctx context.Context, id uuid.UUID) (*Product, error)
	// GetProductForUpdate reads a product and holds a row lock until the
	// surrounding transaction ends.
	GetProductForUpdate(ctx context.Context, id uuid.UUID) (*Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]Product, int, error)
	UpdateProduct(ctx context.Context, product *Product) error
	UpdateProductStocks(ctx context.Context, products []*Product) error
	SoftDeleteProduct(ctx context.Context, id uuid.UUID) error
}

type AddressRepository interface {
	CreateAddress(ctx context.Context, address *Address) error
	GetAddressByID(ctx context.Context, id uuid.UUID) (*Address, error)
	ListAddressesByUser(ctx context.Context, userID uuid.UUID) ([]Address, error)
	UpdateAddress(ctx context.Context, address *Address) error
	DeleteAddress(ctx context.Context, id uuid.UUID) error
	ClearDefaultAddress(ctx context.Context, userID uuid.UUID) error
}

type CartRepository interface {
	// GetCartByUserID returns the cart with its items.
	GetCartByUserID(ctx context.Context, userID uuid.UUID) (*Cart, error)
	CreateCart(ctx context.Context, cart *Cart) error
	UpsertCartItem(ctx context.Context, item *CartItem) error
	DeleteCartItem(ctx context.Context, cartID, productID uuid.UUID) error
	SetCartCoupon(ctx context.Context, cartID uuid.UUID, couponID *uuid.UUID) error
	// ClearCart removes all items and the applied coupon.
	ClearCart(ctx context.Context, cartID uuid.UUID) error
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *Order) error
	CreateOrderItems(ctx context.Context, items []OrderItem) error
	// AppendOrderHistory stamps entry.CreatedAt and entry.Seq.
	AppendOrderHistory(ctx context.Context, entry *OrderStatusHistory) error
	UpdateOrder(ctx context.Context, order *Order) error
	// GetOrderByID returns the order with items and history.
	GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]Order, error)
	HasPurchased(ctx context.Context, userID, productID uuid.UUID) (bool, error)
}

type CouponRepository interface {
	CreateCoupon(ctx context.Context, coupon *Coupon) error
	GetCouponByID(ctx context.Context, id uuid.UUID) (*Coupon, error)
	GetCouponByCode(ctx context.Context, code string) (*Coupon, error)
	ListCoupons(ctx context.Context) ([]Coupon, error)
	UpdateCoupon(ctx context.Context, coupon *Coupon) error
	DeleteCoupon(ctx context.Context, id uuid.UUID) error

	GetCouponUsage(ctx context.Context, userID, couponID uuid.UUID) (*CouponUsage, error)
	IncrementCouponUsage(ctx context.Context, userID, couponID uuid.UUID) error
	// DecrementCouponUsages consumes one global usage; ErrNotFound when none are left.
	DecrementCouponUsages(ctx context.Context, couponID uuid.UUID) error
}

type ReviewRepository interface {
	CreateReview(ctx context.Context, review *Review) error
	GetReviewByID(ctx context.Context, id uuid.UUID) (*Review, error)
	GetReviewByUserAndProduct(ctx context.Context, userID, productID uuid.UUID) (*Review, error)
	ListReviewsByProduct(ctx context.Context, productID uuid.UUID) ([]Review, error)
	UpdateReview(ctx context.Context, review *Review) error
	DeleteReview(ctx context.Context, id uuid.UUID) error
}

type NotificationRepository interface {
	CreateNotification(ctx context.Context, n *Notification) error
	ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]Notification, error)
	CountUnreadNotifications(ctx context.Context, userID uuid.UUID) (int, error)
	MarkNotificationRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) error
}

// Repository is the unit of work over every aggregate. InTx runs fn against a
// transaction-scoped Repository; fn's error rolls everything back.
type Repository interface {
	UserRepository
	TokenRepository
	CategoryRepository
	ProductRepository
	AddressRepository
	CartRepository
	OrderRepository
	CouponRepository
	ReviewRepository
	NotificationRepository

	InTx(ctx context.Context, fn func(tx Repository) error) error
}
