package store

import (
	"context"
	"fmt"
	"strings"

	"storefront/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// CreateOrder inserts the order header
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (id, order_number, user_id, status, payment_method, subtotal, discount,
			shipping_fee, total_price, coupon_id, shipping_address_id, payment_reference)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at`

	return mapWriteError(s.get(ctx, order, query,
		order.ID, order.OrderNumber, order.UserID, order.Status, order.PaymentMethod,
		order.Subtotal, order.Discount, order.ShippingFee, order.TotalPrice,
		order.CouponID, order.ShippingAddressID, order.PaymentReference))
}

// CreateOrderItems bulk-inserts order item snapshots
func (s *Store) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	_, err := sqlx.NamedExecContext(ctx, s.q, `
		INSERT INTO order_items (id, order_id, product_id, product_name, quantity, unit_price, seller_id)
		VALUES (:id, :order_id, :product_id, :product_name, :quantity, :unit_price, :seller_id)`, items)
	return err
}

// AppendOrderHistory inserts a history entry. The store stamps CreatedAt and
// Seq; clock_timestamp keeps entries of one transaction distinct.
func (s *Store) AppendOrderHistory(ctx context.Context, entry *models.OrderStatusHistory) error {
	return mapWriteError(s.get(ctx, entry, `
		INSERT INTO order_status_history (id, order_id, status, note, created_at)
		VALUES ($1, $2, $3, $4, clock_timestamp())
		RETURNING seq, created_at`,
		entry.ID, entry.OrderID, entry.Status, entry.Note))
}

// UpdateOrder writes the mutable order fields
func (s *Store) UpdateOrder(ctx context.Context, order *models.Order) error {
	return s.execOne(ctx, `
		UPDATE orders SET status = $1, subtotal = $2, discount = $3, shipping_fee = $4,
			total_price = $5, coupon_id = $6, payment_reference = $7, updated_at = NOW()
		WHERE id = $8`,
		order.Status, order.Subtotal, order.Discount, order.ShippingFee,
		order.TotalPrice, order.CouponID, order.PaymentReference, order.ID)
}

// GetOrderByID retrieves an order with its items and history
func (s *Store) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := s.get(ctx, &order, "SELECT * FROM orders WHERE id = $1", id); err != nil {
		return nil, err
	}

	if err := s.selectAll(ctx, &order.Items,
		"SELECT * FROM order_items WHERE order_id = $1", id); err != nil {
		return nil, err
	}

	if err := s.selectAll(ctx, &order.History,
		"SELECT * FROM order_status_history WHERE order_id = $1 ORDER BY seq", id); err != nil {
		return nil, err
	}

	return &order, nil
}

// ListOrders retrieves orders matching the filter, newest first, with items
func (s *Store) ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	where := []string{"TRUE"}
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.UserID != nil {
		where = append(where, "o.user_id = "+arg(*filter.UserID))
	}
	if filter.SellerID != nil {
		where = append(where,
			"EXISTS (SELECT 1 FROM order_items oi WHERE oi.order_id = o.id AND oi.seller_id = "+arg(*filter.SellerID)+")")
	}
	if filter.Status != nil {
		where = append(where, "o.status = "+arg(*filter.Status))
	}

	query := "SELECT o.* FROM orders o WHERE " + strings.Join(where, " AND ") + " ORDER BY o.created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit) + " OFFSET " + arg(filter.Offset)
	}

	var orders []models.Order
	if err := s.selectAll(ctx, &orders, query, args...); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]uuid.UUID, len(orders))
	index := make(map[uuid.UUID]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	itemsQuery, itemsArgs, err := sqlx.In("SELECT * FROM order_items WHERE order_id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	itemsQuery = s.q.Rebind(itemsQuery)

	var items []models.OrderItem
	if err := s.selectAll(ctx, &items, itemsQuery, itemsArgs...); err != nil {
		return nil, err
	}
	for _, it := range items {
		i := index[it.OrderID]
		orders[i].Items = append(orders[i].Items, it)
	}

	return orders, nil
}

// HasPurchased reports whether the user has a delivered or completed order containing the product
func (s *Store) HasPurchased(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	var exists bool
	err := s.get(ctx, &exists, `
		SELECT EXISTS(
			SELECT 1 FROM orders o
			JOIN order_items oi ON oi.order_id = o.id
			WHERE o.user_id = $1 AND oi.product_id = $2 AND o.status IN ($3, $4)
		)`, userID, productID, models.OrderStatusDelivered, models.OrderStatusCompleted)
	return exists, err
}
