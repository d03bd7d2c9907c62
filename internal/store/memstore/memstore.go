// Package memstore is an in-memory models.Repository used by tests and by
// `storefront serve --memory` for local demos.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"storefront/internal/models"

	"github.com/google/uuid"
)

type state struct {
	users         map[uuid.UUID]models.User
	refreshTokens map[uuid.UUID]models.RefreshToken
	verifications map[uuid.UUID]models.VerificationToken
	categories    map[uuid.UUID]models.Category
	products      map[uuid.UUID]models.Product
	addresses     map[uuid.UUID]models.Address
	carts         map[uuid.UUID]models.Cart
	cartItems     map[uuid.UUID]models.CartItem
	orders        map[uuid.UUID]models.Order
	orderItems    []models.OrderItem
	history       []models.OrderStatusHistory
	coupons       map[uuid.UUID]models.Coupon
	couponUsages  map[uuid.UUID]models.CouponUsage
	reviews       map[uuid.UUID]models.Review
	notifications map[uuid.UUID]models.Notification
}

func newState() *state {
	return &state{
		users:         map[uuid.UUID]models.User{},
		refreshTokens: map[uuid.UUID]models.RefreshToken{},
		verifications: map[uuid.UUID]models.VerificationToken{},
		categories:    map[uuid.UUID]models.Category{},
		products:      map[uuid.UUID]models.Product{},
		addresses:     map[uuid.UUID]models.Address{},
		carts:         map[uuid.UUID]models.Cart{},
		cartItems:     map[uuid.UUID]models.CartItem{},
		orders:        map[uuid.UUID]models.Order{},
		coupons:       map[uuid.UUID]models.Coupon{},
		couponUsages:  map[uuid.UUID]models.CouponUsage{},
		reviews:       map[uuid.UUID]models.Review{},
		notifications: map[uuid.UUID]models.Notification{},
	}
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (st *state) clone() *state {
	return &state{
		users:         copyMap(st.users),
		refreshTokens: copyMap(st.refreshTokens),
		verifications: copyMap(st.verifications),
		categories:    copyMap(st.categories),
		products:      copyMap(st.products),
		addresses:     copyMap(st.addresses),
		carts:         copyMap(st.carts),
		cartItems:     copyMap(st.cartItems),
		orders:        copyMap(st.orders),
		orderItems:    append([]models.OrderItem(nil), st.orderItems...),
		history:       append([]models.OrderStatusHistory(nil), st.history...),
		coupons:       copyMap(st.coupons),
		couponUsages:  copyMap(st.couponUsages),
		reviews:       copyMap(st.reviews),
		notifications: copyMap(st.notifications),
	}
}

type db struct {
	// txMu serializes transactions with every other write
	txMu sync.Mutex
	mu   sync.RWMutex
	st   *state
}

// Store implements models.Repository in memory. Transactions are serialized
// and roll back by restoring a snapshot.
type Store struct {
	db   *db
	inTx bool
	now  func() time.Time
}

var _ models.Repository = (*Store)(nil)

func New() *Store {
	return &Store{db: &db{st: newState()}, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) InTx(ctx context.Context, fn func(tx models.Repository) error) error {
	if s.inTx {
		return fn(s)
	}

	s.db.txMu.Lock()
	defer s.db.txMu.Unlock()

	s.db.mu.RLock()
	snapshot := s.db.st.clone()
	s.db.mu.RUnlock()

	if err := fn(&Store{db: s.db, inTx: true, now: s.now}); err != nil {
		s.db.mu.Lock()
		s.db.st = snapshot
		s.db.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) read(fn func(st *state) error) error {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	return fn(s.db.st)
}

func (s *Store) write(fn func(st *state) error) error {
	if !s.inTx {
		s.db.txMu.Lock()
		defer s.db.txMu.Unlock()
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return fn(s.db.st)
}

func duplicate(what string) error {
	return fmt.Errorf("%w: %s", models.ErrDuplicate, what)
}

// Users

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	return s.write(func(st *state) error {
		for _, u := range st.users {
			if strings.EqualFold(u.Email, user.Email) {
				return duplicate("ux_users_email")
			}
			if user.GoogleSubject != nil && u.GoogleSubject != nil && *u.GoogleSubject == *user.GoogleSubject {
				return duplicate("ux_users_google_subject")
			}
		}
		if user.Role == "" {
			user.Role = models.RoleCustomer
		}
		user.CreatedAt = s.now()
		user.UpdatedAt = user.CreatedAt
		st.users[user.ID] = *user
		return nil
	})
}

func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var out models.User
	err := s.read(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return models.ErrNotFound
		}
		out = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) findUser(match func(u models.User) bool) (*models.User, error) {
	var out *models.User
	err := s.read(func(st *state) error {
		for _, u := range st.users {
			if match(u) {
				u := u
				out = &u
				return nil
			}
		}
		return models.ErrNotFound
	})
	return out, err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(func(u models.User) bool { return strings.EqualFold(u.Email, email) })
}

func (s *Store) GetUserByGoogleSubject(ctx context.Context, subject string) (*models.User, error) {
	return s.findUser(func(u models.User) bool { return u.GoogleSubject != nil && *u.GoogleSubject == subject })
}

func (s *Store) UpdateUser(ctx context.Context, user *models.User) error {
	return s.write(func(st *state) error {
		old, ok := st.users[user.ID]
		if !ok {
			return models.ErrNotFound
		}
		for id, u := range st.users {
			if id == user.ID {
				continue
			}
			if strings.EqualFold(u.Email, user.Email) {
				return duplicate("ux_users_email")
			}
			if user.GoogleSubject != nil && u.GoogleSubject != nil && *u.GoogleSubject == *user.GoogleSubject {
				return duplicate("ux_users_google_subject")
			}
		}
		user.CreatedAt = old.CreatedAt
		user.UpdatedAt = s.now()
		st.users[user.ID] = *user
		return nil
	})
}

func (s *Store) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	var out []models.User
	err := s.read(func(st *state) error {
		for _, u := range st.users {
			out = append(out, u)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, limit, offset), err
}

// Tokens

func (s *Store) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	return s.write(func(st *state) error {
		for _, t := range st.refreshTokens {
			if t.TokenHash == token.TokenHash {
				return duplicate("refresh_tokens_token_hash_key")
			}
		}
		token.CreatedAt = s.now()
		st.refreshTokens[token.ID] = *token
		return nil
	})
}

func (s *Store) GetRefreshToken(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	var out *models.RefreshToken
	err := s.read(func(st *state) error {
		for _, t := range st.refreshTokens {
			if t.TokenHash == tokenHash {
				t := t
				out = &t
				return nil
			}
		}
		return models.ErrNotFound
	})
	return out, err
}

func (s *Store) RevokeRefreshToken(ctx context.Context, id uuid.UUID) error {
	return s.write(func(st *state) error {
		if t, ok := st.refreshTokens[id]; ok && t.RevokedAt == nil {
			now := s.now()
			t.RevokedAt = &now
			st.refreshTokens[id] = t
		}
		return nil
	})
}

func (s *Store) RevokeUserRefreshTokens(ctx context.Context, userID uuid.UUID) error {
	return s.write(func(st *state) error {
		now := s.now()
		for id, t := range st.refreshTokens {
			if t.UserID == userID && t.RevokedAt == nil {
				t.RevokedAt = &now
				st.refreshTokens[id] = t
			}
		}
		return nil
	})
}

func (s *Store) CreateVerificationToken(ctx context.Context, token *models.VerificationToken) error {
	return s.write(func(st *state) error {
		token.CreatedAt = s.now()
		st.verifications[token.ID] = *token
		return nil
	})
}

func (s *Store) GetVerificationToken(ctx context.Context, userID uuid.UUID, purpose string) (*models.VerificationToken, error) {
	var out *models.VerificationToken
	err := s.read(func(st *state) error {
		for _, t := range st.verifications {
			if t.UserID != userID || t.Purpose != purpose {
				continue
			}
			if out == nil || t.CreatedAt.After(out.CreatedAt) {
				t := t
				out = &t
			}
		}
		if out == nil {
			return models.ErrNotFound
		}
		return nil
	})
	return out, err
}

func (s *Store) IncrementVerificationAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	var attempts int
	err := s.write(func(st *state) error {
		t, ok := st.verifications[id]
		if !ok {
			return models.ErrNotFound
		}
		t.Attempts++
		st.verifications[id] = t
		attempts = t.Attempts
		return nil
	})
	return attempts, err
}

func (s *Store) DeleteVerificationTokens(ctx context.Context, userID uuid.UUID, purpose string) error {
	return s.write(func(st *state) error {
		for id, t := range st.verifications {
			if t.UserID == userID && t.Purpose == purpose {
				delete(st.verifications, id)
			}
		}
		return nil
	})
}

// Categories

func (s *Store) CreateCategory(ctx context.Context, category *models.Category) error {
	return s.write(func(st *state) error {
		for _, c := range st.categories {
			if c.Name == category.Name {
				return duplicate("categories_name_key")
			}
		}
		category.CreatedAt = s.now()
		st.categories[category.ID] = *category
		return nil
	})
}

func (s *Store) GetCategoryByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var out models.Category
	err := s.read(func(st *state) error {
		c, ok := st.categories[id]
		if !ok {
			return models.ErrNotFound
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	err := s.read(func(st *state) error {
		for _, c := range st.categories {
			out = append(out, c)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

func (s *Store) UpdateCategory(ctx context.Context, category *models.Category) error {
	return s.write(func(st *state) error {
		old, ok := st.categories[category.ID]
		if !ok {
			return models.ErrNotFound
		}
		for id, c := range st.categories {
			if id != category.ID && c.Name == category.Name {
				return duplicate("categories_name_key")
			}
		}
		category.CreatedAt = old.CreatedAt
		st.categories[category.ID] = *category
		return nil
	})
}

func (s *Store) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return s.write(func(st *state) error {
		if _, ok := st.categories[id]; !ok {
			return models.ErrNotFound
		}
		delete(st.categories, id)
		for pid, p := range st.products {
			if p.CategoryID != nil && *p.CategoryID == id {
				p.CategoryID = nil
				st.products[pid] = p
			}
		}
		return nil
	})
}

// Products

func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	return s.write(func(st *state) error {
		product.CreatedAt = s.now()
		product.UpdatedAt = product.CreatedAt
		st.products[product.ID] = *product
		return nil
	})
}

func (s *Store) GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var out models.Product
	err := s.read(func(st *state) error {
		p, ok := st.products[id]
		if !ok || p.IsDeleted {
			return models.ErrNotFound
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetProductForUpdate is GetProductByID; transactions are already exclusive.
func (s *Store) GetProductForUpdate(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return s.GetProductByID(ctx, id)
}

func (s *Store) ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, int, error) {
	var out []models.Product
	search := strings.ToLower(filter.Search)
	err := s.read(func(st *state) error {
		for _, p := range st.products {
			if p.IsDeleted {
				continue
			}
			if filter.CategoryID != nil && (p.CategoryID == nil || *p.CategoryID != *filter.CategoryID) {
				continue
			}
			if filter.SellerID != nil && p.SellerID != *filter.SellerID {
				continue
			}
			if search != "" && !strings.Contains(strings.ToLower(p.Name), search) &&
				!strings.Contains(strings.ToLower(p.Description), search) {
				continue
			}
			if filter.MinPrice != nil && p.Price.LessThan(*filter.MinPrice) {
				continue
			}
			if filter.MaxPrice != nil && p.Price.GreaterThan(*filter.MaxPrice) {
				continue
			}
			if filter.InStock && p.Stock <= 0 {
				continue
			}
			out = append(out, p)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, filter.Limit, filter.Offset), len(out), nil
}

func (s *Store) UpdateProduct(ctx context.Context, product *models.Product) error {
	return s.write(func(st *state) error {
		old, ok := st.products[product.ID]
		if !ok || old.IsDeleted {
			return models.ErrNotFound
		}
		if product.Stock < 0 {
			return fmt.Errorf("stock check violated for product %s", product.ID)
		}
		old.Name = product.Name
		old.Description = product.Description
		old.Price = product.Price
		old.Stock = product.Stock
		old.CategoryID = product.CategoryID
		old.ImageURL = product.ImageURL
		old.UpdatedAt = s.now()
		st.products[product.ID] = old
		*product = old
		return nil
	})
}

func (s *Store) UpdateProductStocks(ctx context.Context, products []*models.Product) error {
	return s.write(func(st *state) error {
		for _, p := range products {
			if p.Stock < 0 {
				return fmt.Errorf("stock check violated for product %s", p.ID)
			}
		}
		for _, p := range products {
			old, ok := st.products[p.ID]
			if !ok {
				continue
			}
			old.Stock = p.Stock
			old.UpdatedAt = s.now()
			st.products[p.ID] = old
		}
		return nil
	})
}

func (s *Store) SoftDeleteProduct(ctx context.Context, id uuid.UUID) error {
	return s.write(func(st *state) error {
		p, ok := st.products[id]
		if !ok || p.IsDeleted {
			return models.ErrNotFound
		}
		p.IsDeleted = true
		p.UpdatedAt = s.now()
		st.products[id] = p
		return nil
	})
}

// Addresses

func (s *Store) CreateAddress(ctx context.Context, address *models.Address) error {
	return s.write(func(st *state) error {
		address.CreatedAt = s.now()
		st.addresses[address.ID] = *address
		return nil
	})
}

func (s *Store) GetAddressByID(ctx context.Context, id uuid.UUID) (*models.Address, error) {
	var out models.Address
	err := s.read(func(st *state) error {
		a, ok := st.addresses[id]
		if !ok {
			return models.ErrNotFound
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) ListAddressesByUser(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	var out []models.Address
	err := s.read(func(st *state) error {
		for _, a := range st.addresses {
			if a.UserID == userID {
				out = append(out, a)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsDefault != out[j].IsDefault {
			return out[i].IsDefault
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, err
}

func (s *Store) UpdateAddress(ctx context.Context, address *models.Address) error {
	return s.write(func(st *state) error {
		old, ok := st.addresses[address.ID]
		if !ok {
			return models.ErrNotFound
		}
		address.UserID = old.UserID
		address.CreatedAt = old.CreatedAt
		st.addresses[address.ID] = *address
		return nil
	})
}

func (s *Store) DeleteAddress(ctx context.Context, id uuid.UUID) error {
	return s.write(func(st *state) error {
		if _, ok := st.addresses[id]; !ok {
			return models.ErrNotFound
		}
		delete(st.addresses, id)
		return nil
	})
}

func (s *Store) ClearDefaultAddress(ctx context.Context, userID uuid.UUID) error {
	return s.write(func(st *state) error {
		for id, a := range st.addresses {
			if a.UserID == userID && a.IsDefault {
				a.IsDefault = false
				st.addresses[id] = a
			}
		}
		return nil
	})
}

// Carts

func (s *Store) GetCartByUserID(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var out *models.Cart
	err := s.read(func(st *state) error {
		for _, c := range st.carts {
			if c.UserID != userID {
				continue
			}
			c := c
			c.Items = nil
			for _, it := range st.cartItems {
				if it.CartID == c.ID {
					c.Items = append(c.Items, it)
				}
			}
			sort.Slice(c.Items, func(i, j int) bool { return c.Items[i].AddedAt.Before(c.Items[j].AddedAt) })
			out = &c
			return nil
		}
		return models.ErrNotFound
	})
	return out, err
}

func (s *Store) CreateCart(ctx context.Context, cart *models.Cart) error {
	return s.write(func(st *state) error {
		for _, c := range st.carts {
			if c.UserID == cart.UserID {
				return duplicate("carts_user_id_key")
			}
		}
		cart.CreatedAt = s.now()
		cart.UpdatedAt = cart.CreatedAt
		stored := *cart
		stored.Items = nil
		st.carts[cart.ID] = stored
		return nil
	})
}

func (s *Store) UpsertCartItem(ctx context.Context, item *models.CartItem) error {
	return s.write(func(st *state) error {
		if _, ok := st.carts[item.CartID]; !ok {
			return fmt.Errorf("cart %s does not exist", item.CartID)
		}
		for id, it := range st.cartItems {
			if it.CartID == item.CartID && it.ProductID == item.ProductID {
				it.Quantity = item.Quantity
				st.cartItems[id] = it
				*item = it
				return s.touchCart(st, item.CartID)
			}
		}
		item.AddedAt = s.now()
		st.cartItems[item.ID] = *item
		return s.touchCart(st, item.CartID)
	})
}

func (s *Store) DeleteCartItem(ctx context.Context, cartID, productID uuid.UUID) error {
	return s.write(func(st *state) error {
		for id, it := range st.cartItems {
			if it.CartID == cartID && it.ProductID == productID {
				delete(st.cartItems, id)
				return s.touchCart(st, cartID)
			}
		}
		return models.ErrNotFound
	})
}

func (s *Store) SetCartCoupon(ctx context.Context, cartID uuid.UUID, couponID *uuid.UUID) error {
	return s.write(func(st *state) error {
		c, ok := st.carts[cartID]
		if !ok {
			return models.ErrNotFound
		}
		c.CouponID = couponID
		c.UpdatedAt = s.now()
		st.carts[cartID] = c
		return nil
	})
}

func (s *Store) ClearCart(ctx context.Context, cartID uuid.UUID) error {
	return s.write(func(st *state) error {
		for id, it := range st.cartItems {
			if it.CartID == cartID {
				delete(st.cartItems, id)
			}
		}
		if c, ok := st.carts[cartID]; ok {
			c.CouponID = nil
			c.UpdatedAt = s.now()
			st.carts[cartID] = c
		}
		return nil
	})
}

func (s *Store) touchCart(st *state, cartID uuid.UUID) error {
	if c, ok := st.carts[cartID]; ok {
		c.UpdatedAt = s.now()
		st.carts[cartID] = c
	}
	return nil
}

// Orders

func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	return s.write(func(st *state) error {
		for _, o := range st.orders {
			if o.OrderNumber == order.OrderNumber {
				return duplicate("orders_order_number_key")
			}
		}
		order.CreatedAt = s.now()
		order.UpdatedAt = order.CreatedAt
		stored := *order
		stored.Items, stored.History = nil, nil
		st.orders[order.ID] = stored
		return nil
	})
}

func (s *Store) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	return s.write(func(st *state) error {
		for _, it := range items {
			if _, ok := st.orders[it.OrderID]; !ok {
				return fmt.Errorf("order %s does not exist", it.OrderID)
			}
		}
		st.orderItems = append(st.orderItems, items...)
		return nil
	})
}

func (s *Store) AppendOrderHistory(ctx context.Context, entry *models.OrderStatusHistory) error {
	return s.write(func(st *state) error {
		if _, ok := st.orders[entry.OrderID]; !ok {
			return fmt.Errorf("order %s does not exist", entry.OrderID)
		}
		entry.CreatedAt = s.now()
		entry.Seq = int64(len(st.history) + 1)
		st.history = append(st.history, *entry)
		return nil
	})
}

func (s *Store) UpdateOrder(ctx context.Context, order *models.Order) error {
	return s.write(func(st *state) error {
		old, ok := st.orders[order.ID]
		if !ok {
			return models.ErrNotFound
		}
		old.Status = order.Status
		old.Subtotal = order.Subtotal
		old.Discount = order.Discount
		old.ShippingFee = order.ShippingFee
		old.TotalPrice = order.TotalPrice
		old.CouponID = order.CouponID
		old.PaymentReference = order.PaymentReference
		old.UpdatedAt = s.now()
		st.orders[order.ID] = old
		order.UpdatedAt = old.UpdatedAt
		return nil
	})
}

func (st *state) itemsOf(orderID uuid.UUID) []models.OrderItem {
	var items []models.OrderItem
	for _, it := range st.orderItems {
		if it.OrderID == orderID {
			items = append(items, it)
		}
	}
	return items
}

func (s *Store) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var out models.Order
	err := s.read(func(st *state) error {
		o, ok := st.orders[id]
		if !ok {
			return models.ErrNotFound
		}
		o.Items = st.itemsOf(id)
		for _, h := range st.history {
			if h.OrderID == id {
				o.History = append(o.History, h)
			}
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	var out []models.Order
	err := s.read(func(st *state) error {
		for _, o := range st.orders {
			if filter.UserID != nil && o.UserID != *filter.UserID {
				continue
			}
			if filter.Status != nil && o.Status != *filter.Status {
				continue
			}
			o.Items = st.itemsOf(o.ID)
			if filter.SellerID != nil {
				sold := false
				for _, it := range o.Items {
					if it.SellerID == *filter.SellerID {
						sold = true
						break
					}
				}
				if !sold {
					continue
				}
			}
			out = append(out, o)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, filter.Limit, filter.Offset), err
}

func (s *Store) HasPurchased(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	var found bool
	err := s.read(func(st *state) error {
		for _, it := range st.orderItems {
			if it.ProductID != productID {
				continue
			}
			o := st.orders[it.OrderID]
			if o.UserID == userID &&
				(o.Status == models.OrderStatusDelivered || o.Status == models.OrderStatusCompleted) {
				found = true
				return nil
			}
		}
		return nil
	})
	return found, err
}

// Coupons

func (s *Store) CreateCoupon(ctx context.Context, coupon *models.Coupon) error {
	return s.write(func(st *state) error {
		for _, c := range st.coupons {
			if c.Code == coupon.Code {
				return duplicate("coupons_code_key")
			}
		}
		coupon.CreatedAt = s.now()
		st.coupons[coupon.ID] = *coupon
		return nil
	})
}

func (s *Store) GetCouponByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	var out models.Coupon
	err := s.read(func(st *state) error {
		c, ok := st.coupons[id]
		if !ok {
			return models.ErrNotFound
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) GetCouponByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var out *models.Coupon
	err := s.read(func(st *state) error {
		for _, c := range st.coupons {
			if c.Code == strings.ToUpper(code) {
				c := c
				out = &c
				return nil
			}
		}
		return models.ErrNotFound
	})
	return out, err
}

func (s *Store) ListCoupons(ctx context.Context) ([]models.Coupon, error) {
	var out []models.Coupon
	err := s.read(func(st *state) error {
		for _, c := range st.coupons {
			out = append(out, c)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, err
}

func (s *Store) UpdateCoupon(ctx context.Context, coupon *models.Coupon) error {
	return s.write(func(st *state) error {
		old, ok := st.coupons[coupon.ID]
		if !ok {
			return models.ErrNotFound
		}
		for id, c := range st.coupons {
			if id != coupon.ID && c.Code == coupon.Code {
				return duplicate("coupons_code_key")
			}
		}
		coupon.CreatedAt = old.CreatedAt
		st.coupons[coupon.ID] = *coupon
		return nil
	})
}

func (s *Store) DeleteCoupon(ctx context.Context, id uuid.UUID) error {
	return s.write(func(st *state) error {
		if _, ok := st.coupons[id]; !ok {
			return models.ErrNotFound
		}
		delete(st.coupons, id)
		for uid, u := range st.couponUsages {
			if u.CouponID == id {
				delete(st.couponUsages, uid)
			}
		}
		return nil
	})
}

func (s *Store) GetCouponUsage(ctx context.Context, userID, couponID uuid.UUID) (*models.CouponUsage, error) {
	var out *models.CouponUsage
	err := s.read(func(st *state) error {
		for _, u := range st.couponUsages {
			if u.UserID == userID && u.CouponID == couponID {
				u := u
				out = &u
				return nil
			}
		}
		return models.ErrNotFound
	})
	return out, err
}

func (s *Store) IncrementCouponUsage(ctx context.Context, userID, couponID uuid.UUID) error {
	return s.write(func(st *state) error {
		for id, u := range st.couponUsages {
			if u.UserID == userID && u.CouponID == couponID {
				u.TimesUsed++
				u.UpdatedAt = s.now()
				st.couponUsages[id] = u
				return nil
			}
		}
		id := uuid.New()
		st.couponUsages[id] = models.CouponUsage{
			ID: id, UserID: userID, CouponID: couponID, TimesUsed: 1, UpdatedAt: s.now(),
		}
		return nil
	})
}

func (s *Store) DecrementCouponUsages(ctx context.Context, couponID uuid.UUID) error {
	return s.write(func(st *state) error {
		c, ok := st.coupons[couponID]
		if !ok || c.UsagesLeft <= 0 {
			return models.ErrNotFound
		}
		c.UsagesLeft--
		st.coupons[couponID] = c
		return nil
	})
}

// Reviews

func (s *Store) CreateReview(ctx context.Context, review *models.Review) error {
	return s.write(func(st *state) error {
		for _, r := range st.reviews {
			if r.UserID == review.UserID && r.ProductID == review.ProductID {
				return duplicate("reviews_user_id_product_id_key")
			}
		}
		review.CreatedAt = s.now()
		review.UpdatedAt = review.CreatedAt
		st.reviews[review.ID] = *review
		return nil
	})
}

func (s *Store) GetReviewByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	var out models.Review
	err := s.read(func(st *state) error {
		r, ok := st.reviews[id]
		if !ok {
			return models.ErrNotFound
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) GetReviewByUserAndProduct(ctx context.Context, userID, productID uuid.UUID) (*models.Review, error) {
	var out *models.Review
	err := s.read(func(st *state) error {
		for _, r := range st.reviews {
			if r.UserID == userID && r.ProductID == productID {
				r := r
				out = &r
				return nil
			}
		}
		return models.ErrNotFound
	})
	return out, err
}

func (s *Store) ListReviewsByProduct(ctx context.Context, productID uuid.UUID) ([]models.Review, error) {
	var out []models.Review
	err := s.read(func(st *state) error {
		for _, r := range st.reviews {
			if r.ProductID == productID {
				out = append(out, r)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, err
}

func (s *Store) UpdateReview(ctx context.Context, review *models.Review) error {
	return s.write(func(st *state) error {
		old, ok := st.reviews[review.ID]
		if !ok {
			return models.ErrNotFound
		}
		old.Rating = review.Rating
		old.Comment = review.Comment
		old.UpdatedAt = s.now()
		st.reviews[review.ID] = old
		*review = old
		return nil
	})
}

func (s *Store) DeleteReview(ctx context.Context, id uuid.UUID) error {
	return s.write(func(st *state) error {
		if _, ok := st.reviews[id]; !ok {
			return models.ErrNotFound
		}
		delete(st.reviews, id)
		return nil
	})
}

// Notifications

func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	return s.write(func(st *state) error {
		n.CreatedAt = s.now()
		st.notifications[n.ID] = *n
		return nil
	})
}

func (s *Store) ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]models.Notification, error) {
	var out []models.Notification
	err := s.read(func(st *state) error {
		for _, n := range st.notifications {
			if n.UserID != userID || (unreadOnly && n.IsRead) {
				continue
			}
			out = append(out, n)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, 100, 0), err
}

func (s *Store) CountUnreadNotifications(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := s.read(func(st *state) error {
		for _, n := range st.notifications {
			if n.UserID == userID && !n.IsRead {
				count++
			}
		}
		return nil
	})
	return count, err
}

func (s *Store) MarkNotificationRead(ctx context.Context, id, userID uuid.UUID) error {
	return s.write(func(st *state) error {
		n, ok := st.notifications[id]
		if !ok || n.UserID != userID {
			return models.ErrNotFound
		}
		n.IsRead = true
		st.notifications[id] = n
		return nil
	})
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) error {
	return s.write(func(st *state) error {
		for id, n := range st.notifications {
			if n.UserID == userID && !n.IsRead {
				n.IsRead = true
				st.notifications[id] = n
			}
		}
		return nil
	})
}

func page[T any](items []T, limit, offset int) []T {
	if offset > len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
