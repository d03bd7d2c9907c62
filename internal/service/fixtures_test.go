package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"storefront/internal/email"
	"storefront/internal/locker"
	"storefront/internal/models"
	"storefront/internal/paymob"
	"storefront/internal/store/memstore"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const testHMACSecret = "test-hmac-secret"

type recordingEvents struct {
	mu      sync.Mutex
	placed  []*models.OrderPlacedEvent
	changed []*models.OrderStatusChangedEvent
}

func (r *recordingEvents) PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.placed = append(r.placed, event)
	return nil
}

func (r *recordingEvents) PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changed = append(r.changed, event)
	return nil
}

func (r *recordingEvents) statusChanges() []*models.OrderStatusChangedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*models.OrderStatusChangedEvent(nil), r.changed...)
}

type fakeGateway struct {
	mu       sync.Mutex
	err      error
	requests []paymob.IntentRequest
}

func (g *fakeGateway) CreatePaymentIntent(ctx context.Context, req paymob.IntentRequest) (*paymob.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}
	return &paymob.Intent{
		ID:           "pi_" + req.MerchantOrderID,
		ClientSecret: "secret_" + req.MerchantOrderID,
		CheckoutURL:  "https://paymob.test/unifiedcheckout/?clientSecret=secret_" + req.MerchantOrderID,
	}, nil
}

type memoryIdempotency struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newMemoryIdempotency() *memoryIdempotency {
	return &memoryIdempotency{keys: make(map[string]bool)}
}

func (m *memoryIdempotency) ClaimIdempotencyKey(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *memoryIdempotency) ReleaseIdempotencyKey(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []email.Message
	err  error
}

func (m *recordingMailer) Send(ctx context.Context, msg email.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) messages() []email.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]email.Message(nil), m.sent...)
}

type recordingPusher struct {
	mu     sync.Mutex
	pushed map[uuid.UUID]int
}

func (p *recordingPusher) Push(userID uuid.UUID, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pushed == nil {
		p.pushed = make(map[uuid.UUID]int)
	}
	p.pushed[userID]++
}

func (p *recordingPusher) count(userID uuid.UUID) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pushed[userID]
}

type fixture struct {
	t        *testing.T
	ctx      context.Context
	repo     *memstore.Store
	events   *recordingEvents
	gateway  *fakeGateway
	signer   *paymob.HMACValidator
	idem     *memoryIdempotency
	coupons  *CouponService
	carts    *CartService
	orders   *OrderService
	webhooks *PaymobWebhookService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := memstore.New()
	events := &recordingEvents{}
	gateway := &fakeGateway{}
	signer := paymob.NewHMACValidator(testHMACSecret)
	idem := newMemoryIdempotency()
	lk := locker.NewLocal(2 * time.Second)

	coupons := NewCouponService(repo)
	return &fixture{
		t:        t,
		ctx:      context.Background(),
		repo:     repo,
		events:   events,
		gateway:  gateway,
		signer:   signer,
		idem:     idem,
		coupons:  coupons,
		carts:    NewCartService(repo, coupons, decimal.Zero),
		orders:   NewOrderService(repo, coupons, lk, gateway, events, decimal.Zero),
		webhooks: NewPaymobWebhookService(repo, coupons, lk, signer, idem, events),
	}
}

func (f *fixture) user(role models.Role) *models.User {
	f.t.Helper()
	u := &models.User{
		ID:        uuid.New(),
		Email:     uuid.NewString() + "@example.com",
		FirstName: "Test",
		LastName:  string(role),
		Role:      role,
	}
	require.NoError(f.t, f.repo.CreateUser(f.ctx, u))
	return u
}

func (f *fixture) product(seller *models.User, name, price string, stock int) *models.Product {
	f.t.Helper()
	p := &models.Product{
		ID:       uuid.New(),
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
		SellerID: seller.ID,
	}
	require.NoError(f.t, f.repo.CreateProduct(f.ctx, p))
	return p
}

func (f *fixture) address(u *models.User) *models.Address {
	f.t.Helper()
	a := &models.Address{
		ID:       uuid.New(),
		UserID:   u.ID,
		FullName: u.FullName(),
		Phone:    "+201000000000",
		Street:   "1 Nile St",
		City:     "Cairo",
		Country:  "EG",
	}
	require.NoError(f.t, f.repo.CreateAddress(f.ctx, a))
	return a
}

func (f *fixture) coupon(mutate func(c *models.Coupon)) *models.Coupon {
	f.t.Helper()
	c := &models.Coupon{
		ID:           uuid.New(),
		Code:         "SAVE" + uuid.NewString()[:4],
		Type:         models.CouponTypePercentage,
		Value:        decimal.NewFromInt(10),
		ExpiresAt:    time.Now().Add(24 * time.Hour),
		UsagesLeft:   5,
		TimesPerUser: 1,
		IsActive:     true,
	}
	c.Code = normalizeCode(c.Code)
	if mutate != nil {
		mutate(c)
	}
	require.NoError(f.t, f.repo.CreateCoupon(f.ctx, c))
	return c
}

func (f *fixture) addToCart(u *models.User, p *models.Product, qty int) {
	f.t.Helper()
	_, err := f.carts.AddItem(f.ctx, u.ID, p.ID, qty)
	require.NoError(f.t, err)
}

func (f *fixture) stock(p *models.Product) int {
	f.t.Helper()
	got, err := f.repo.GetProductByID(f.ctx, p.ID)
	require.NoError(f.t, err)
	return got.Stock
}

func (f *fixture) order(id uuid.UUID) *models.Order {
	f.t.Helper()
	o, err := f.repo.GetOrderByID(f.ctx, id)
	require.NoError(f.t, err)
	return o
}

func (f *fixture) cartLen(u *models.User) int {
	f.t.Helper()
	cart, err := f.repo.GetCartByUserID(f.ctx, u.ID)
	if errors.Is(err, models.ErrNotFound) {
		return 0
	}
	require.NoError(f.t, err)
	return len(cart.Items)
}

// checkout places the user's cart with method and requires success.
func (f *fixture) checkout(u *models.User, addr *models.Address, method models.PaymentMethod) *CheckoutResult {
	f.t.Helper()
	res, err := f.orders.Checkout(f.ctx, u.ID, CheckoutRequest{
		ShippingAddressID: addr.ID,
		PaymentMethod:     string(method),
	})
	require.NoError(f.t, err)
	return res
}

// callback builds a signed Paymob transaction for order.
func (f *fixture) callback(order *models.Order, txnID int64, success bool) (*paymob.TransactionCallback, string) {
	txn := paymob.Transaction{
		ID:            txnID,
		Success:       success,
		AmountCents:   paymob.ToCents(order.TotalPrice),
		Currency:      "EGP",
		CreatedAt:     "2024-06-13T10:00:00.000000",
		IntegrationID: 4567,
		Owner:         99,
		Order:         paymob.TransactionOrder{ID: 1234, MerchantOrderID: order.ID.String()},
		SourceData:    paymob.SourceData{Pan: "2346", Type: "card", SubType: "MasterCard"},
	}
	return &paymob.TransactionCallback{Type: "TRANSACTION", Obj: txn}, f.signer.Sign(txn)
}
