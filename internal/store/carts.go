package store

import (
	"context"

	"storefront/internal/models"

	"github.com/google/uuid"
)

// GetCartByUserID retrieves a user's cart and its items
func (s *Store) GetCartByUserID(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := s.get(ctx, &cart, "SELECT * FROM carts WHERE user_id = $1", userID); err != nil {
		return nil, err
	}

	if err := s.selectAll(ctx, &cart.Items,
		"SELECT * FROM cart_items WHERE cart_id = $1 ORDER BY added_at", cart.ID); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (s *Store) CreateCart(ctx context.Context, cart *models.Cart) error {
	query := `
		INSERT INTO carts (id, user_id, coupon_id)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at`

	return mapWriteError(s.get(ctx, cart, query, cart.ID, cart.UserID, cart.CouponID))
}

// UpsertCartItem inserts the line or overwrites its quantity
func (s *Store) UpsertCartItem(ctx context.Context, item *models.CartItem) error {
	query := `
		INSERT INTO cart_items (id, cart_id, product_id, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (cart_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity
		RETURNING id, added_at`

	if err := s.get(ctx, item, query, item.ID, item.CartID, item.ProductID, item.Quantity); err != nil {
		return err
	}
	return s.touchCart(ctx, item.CartID)
}

func (s *Store) DeleteCartItem(ctx context.Context, cartID, productID uuid.UUID) error {
	if err := s.execOne(ctx,
		"DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2", cartID, productID); err != nil {
		return err
	}
	return s.touchCart(ctx, cartID)
}

func (s *Store) SetCartCoupon(ctx context.Context, cartID uuid.UUID, couponID *uuid.UUID) error {
	return s.execOne(ctx,
		"UPDATE carts SET coupon_id = $1, updated_at = NOW() WHERE id = $2", couponID, cartID)
}

// ClearCart empties the cart and drops its coupon
func (s *Store) ClearCart(ctx context.Context, cartID uuid.UUID) error {
	if err := s.exec(ctx, "DELETE FROM cart_items WHERE cart_id = $1", cartID); err != nil {
		return err
	}
	return s.exec(ctx,
		"UPDATE carts SET coupon_id = NULL, updated_at = NOW() WHERE id = $1", cartID)
}

func (s *Store) touchCart(ctx context.Context, cartID uuid.UUID) error {
	return s.exec(ctx, "UPDATE carts SET updated_at = NOW() WHERE id = $1", cartID)
}
