package service

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CartService manages the single cart each user owns
type CartService struct {
	repo        models.Repository
	coupons     *CouponService
	shippingFee decimal.Decimal
	logger      *zap.Logger
}

func NewCartService(repo models.Repository, coupons *CouponService, shippingFee decimal.Decimal) *CartService {
	return &CartService{
		repo:        repo,
		coupons:     coupons,
		shippingFee: shippingFee,
		logger:      util.GetLogger(),
	}
}

// CartLine is a cart item joined with its live product
type CartLine struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	ImageURL  string          `json:"image_url"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Stock     int             `json:"stock"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type CartSummary struct {
	CartID      uuid.UUID  `json:"cart_id"`
	Items       []CartLine `json:"items"`
	CouponCode  string     `json:"coupon_code,omitempty"`
	CouponError string     `json:"coupon_error,omitempty"`
	Totals
}

// getOrCreateCart returns the user's cart, creating it on first access.
func (s *CartService) getOrCreateCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.GetCartByUserID(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	cart = &models.Cart{ID: uuid.New(), UserID: userID}
	if err := s.repo.CreateCart(ctx, cart); err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			// created concurrently
			return s.repo.GetCartByUserID(ctx, userID)
		}
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}
	return cart, nil
}

func (s *CartService) GetCart(ctx context.Context, userID uuid.UUID) (*CartSummary, error) {
	ctx, span := util.StartSpan(ctx, "CartService.GetCart")
	defer span.End()

	cart, err := s.getOrCreateCart(ctx, userID)
	if err != nil {
		return nil, util.RecordError(span, err)
	}
	return s.summarize(ctx, cart)
}

func (s *CartService) summarize(ctx context.Context, cart *models.Cart) (*CartSummary, error) {
	summary := &CartSummary{CartID: cart.ID, Items: make([]CartLine, 0, len(cart.Items))}

	subtotal := decimal.Zero
	for _, item := range cart.Items {
		product, err := s.repo.GetProductByID(ctx, item.ProductID)
		if errors.Is(err, models.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load product: %w", err)
		}

		line := CartLine{
			ProductID: product.ID,
			Name:      product.Name,
			ImageURL:  product.ImageURL,
			UnitPrice: product.Price,
			Quantity:  item.Quantity,
			Stock:     product.Stock,
			LineTotal: product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))),
		}
		subtotal = subtotal.Add(line.LineTotal)
		summary.Items = append(summary.Items, line)
	}

	var coupon *models.Coupon
	if cart.CouponID != nil {
		c, err := s.repo.GetCouponByID(ctx, *cart.CouponID)
		switch {
		case errors.Is(err, models.ErrNotFound):
			summary.CouponError = ErrCouponNotFound.Description
		case err != nil:
			return nil, fmt.Errorf("failed to load coupon: %w", err)
		default:
			summary.CouponCode = c.Code
			if verr := s.coupons.Validate(ctx, cart.UserID, c, subtotal); verr != nil {
				summary.CouponError = describe(verr)
			} else {
				coupon = c
			}
		}
	}

	summary.Totals = ComputeTotals(subtotal, s.shippingFee, coupon)
	return summary, nil
}

func (s *CartService) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*CartSummary, error) {
	ctx, span := util.StartSpan(ctx, "CartService.AddItem")
	defer span.End()

	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return nil, util.RecordError(span, err)
	}

	cart, err := s.getOrCreateCart(ctx, userID)
	if err != nil {
		return nil, util.RecordError(span, err)
	}

	total := quantity
	for _, item := range cart.Items {
		if item.ProductID == productID {
			total += item.Quantity
		}
	}
	if total > product.Stock {
		return nil, ProductInsufficientStock(product.Name, product.Stock)
	}

	if err := s.repo.UpsertCartItem(ctx, &models.CartItem{
		ID: uuid.New(), CartID: cart.ID, ProductID: productID, Quantity: total,
	}); err != nil {
		return nil, util.RecordError(span, fmt.Errorf("failed to save cart item: %w", err))
	}

	return s.GetCart(ctx, userID)
}

// UpdateItem sets the quantity of a line; 0 removes it.
func (s *CartService) UpdateItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*CartSummary, error) {
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	if quantity == 0 {
		return s.RemoveItem(ctx, userID, productID)
	}

	cart, err := s.getOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !cartHas(cart, productID) {
		return nil, ErrCartItemNotFound
	}

	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if quantity > product.Stock {
		return nil, ProductInsufficientStock(product.Name, product.Stock)
	}

	if err := s.repo.UpsertCartItem(ctx, &models.CartItem{
		ID: uuid.New(), CartID: cart.ID, ProductID: productID, Quantity: quantity,
	}); err != nil {
		return nil, fmt.Errorf("failed to save cart item: %w", err)
	}
	return s.GetCart(ctx, userID)
}

func (s *CartService) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*CartSummary, error) {
	cart, err := s.getOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	err = s.repo.DeleteCartItem(ctx, cart.ID, productID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrCartItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to remove cart item: %w", err)
	}
	return s.GetCart(ctx, userID)
}

func (s *CartService) Clear(ctx context.Context, userID uuid.UUID) (*CartSummary, error) {
	cart, err := s.getOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.ClearCart(ctx, cart.ID); err != nil {
		return nil, fmt.Errorf("failed to clear cart: %w", err)
	}
	return s.GetCart(ctx, userID)
}

// ApplyCoupon validates code against the current subtotal and attaches it.
func (s *CartService) ApplyCoupon(ctx context.Context, userID uuid.UUID, code string) (*CartSummary, error) {
	ctx, span := util.StartSpan(ctx, "CartService.ApplyCoupon")
	defer span.End()

	current, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, util.RecordError(span, err)
	}
	if len(current.Items) == 0 {
		return nil, ErrCartEmpty
	}

	coupon, err := s.coupons.ValidateCode(ctx, userID, code, current.Subtotal)
	if err != nil {
		return nil, util.RecordError(span, err)
	}

	if err := s.repo.SetCartCoupon(ctx, current.CartID, &coupon.ID); err != nil {
		return nil, util.RecordError(span, fmt.Errorf("failed to apply coupon: %w", err))
	}
	return s.GetCart(ctx, userID)
}

func (s *CartService) RemoveCoupon(ctx context.Context, userID uuid.UUID) (*CartSummary, error) {
	cart, err := s.getOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetCartCoupon(ctx, cart.ID, nil); err != nil {
		return nil, fmt.Errorf("failed to remove coupon: %w", err)
	}
	return s.GetCart(ctx, userID)
}

func (s *CartService) loadProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.GetProductByID(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ProductNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	return product, nil
}

func cartHas(cart *models.Cart, productID uuid.UUID) bool {
	for _, item := range cart.Items {
		if item.ProductID == productID {
			return true
		}
	}
	return false
}
