package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/internal/auth"
	"storefront/internal/broker"
	"storefront/internal/email"
	"storefront/internal/locker"
	"storefront/internal/models"
	"storefront/internal/paymob"
	"storefront/internal/realtime"
	"storefront/internal/service"
	"storefront/internal/store/memstore"
	"storefront/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const webhookSecret = "api-test-hmac"

type testServer struct {
	t      *testing.T
	router *gin.Engine
	repo   *memstore.Store
	tokens *auth.TokenManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := memstore.New()
	tokens := auth.NewTokenManager("api-test-secret", "storefront", 15*time.Minute)
	hub := realtime.NewHub(nil)
	lk := locker.NewLocal(2 * time.Second)

	notifications := service.NewNotificationService(repo, hub, nil)
	events := broker.NewEventPublisher(broker.NewInlinePublisher(worker.NewEventHandler(notifications)))
	coupons := service.NewCouponService(repo)
	authSvc := service.NewAuthService(repo, tokens, nil, 168*time.Hour)

	svc := Services{
		Auth:          authSvc,
		Otp:           service.NewOtpService(repo, authSvc, email.NewLogSender(), 10*time.Minute, 6),
		Addresses:     service.NewAddressService(repo),
		Products:      service.NewProductService(repo),
		Reviews:       service.NewReviewService(repo),
		Carts:         service.NewCartService(repo, coupons, decimal.Zero),
		Orders:        service.NewOrderService(repo, coupons, lk, nil, events, decimal.Zero),
		Coupons:       coupons,
		Notifications: notifications,
		Webhooks:      service.NewPaymobWebhookService(repo, coupons, lk, paymob.NewHMACValidator(webhookSecret), nil, events),
	}

	router := gin.New()
	NewHandler(svc, tokens, hub, Options{AllowedOrigins: []string{"http://localhost:3000"}}).SetupRoutes(router)
	return &testServer{t: t, router: router, repo: repo, tokens: tokens}
}

// user stores a user with role and returns a bearer token for it.
func (s *testServer) user(role models.Role) (*models.User, string) {
	s.t.Helper()
	u := &models.User{ID: uuid.New(), Email: uuid.NewString() + "@example.com", FirstName: "Test", Role: role}
	require.NoError(s.t, s.repo.CreateUser(context.Background(), u))
	token, _, err := s.tokens.IssueAccessToken(u)
	require.NoError(s.t, err)
	return u, token
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dst), w.Body.String())
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/ready", "", nil).Code)
}

func TestRegisterSetsCookiesAndAuthenticates(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/users/register", "", map[string]string{
		"email": "nour@example.com", "password": "correct horse", "first_name": "Nour",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	cookies := map[string]*http.Cookie{}
	for _, c := range w.Result().Cookies() {
		cookies[c.Name] = c
	}
	require.Contains(t, cookies, accessCookie)
	require.Contains(t, cookies, refreshCookie)
	assert.True(t, cookies[accessCookie].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[refreshCookie].SameSite)
	assert.Greater(t, cookies[refreshCookie].MaxAge, 6*24*3600)

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.AddCookie(cookies[accessCookie])
	me := httptest.NewRecorder()
	s.router.ServeHTTP(me, req)
	require.Equal(t, http.StatusOK, me.Code)

	var user models.User
	decode(t, me, &user)
	assert.Equal(t, "nour@example.com", user.Email)
}

func TestValidationErrorsListFields(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/users/register", "", map[string]string{"email": "nope", "password": "short"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body struct {
		Code   string            `json:"code"`
		Errors map[string]string `json:"errors"`
	}
	decode(t, w, &body)
	assert.Equal(t, "Request.Invalid", body.Code)
	assert.Contains(t, body.Errors, "Email")
	assert.Contains(t, body.Errors, "Password")
	assert.Contains(t, body.Errors, "FirstName")
}

func TestAuthAndRoleGuards(t *testing.T) {
	s := newTestServer(t)
	_, customer := s.user(models.RoleCustomer)

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/carts", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/carts", "garbage", nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/admin/orders", customer, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/api/products", customer, map[string]interface{}{
		"name": "Mug", "price": "10", "stock": 1,
	}).Code)
}

func TestCashOnDeliveryFlow(t *testing.T) {
	s := newTestServer(t)
	seller, sellerToken := s.user(models.RoleSeller)
	buyer, buyerToken := s.user(models.RoleCustomer)

	w := s.do(http.MethodPost, "/api/products", sellerToken, map[string]interface{}{
		"name": "Mug", "price": "12.50", "stock": 3,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var product models.Product
	decode(t, w, &product)
	assert.Equal(t, seller.ID, product.SellerID)

	w = s.do(http.MethodPost, "/api/carts/items", buyerToken, map[string]interface{}{
		"product_id": product.ID, "quantity": 2,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var cart service.CartSummary
	decode(t, w, &cart)
	assert.Equal(t, "25", cart.Total.String())

	w = s.do(http.MethodPost, "/api/addresses", buyerToken, map[string]interface{}{
		"full_name": "Nour Adel", "phone": "0100", "street": "1 Nile St", "city": "Cairo", "country": "EG",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var address models.Address
	decode(t, w, &address)

	w = s.do(http.MethodPost, "/api/orders/checkout", buyerToken, map[string]interface{}{
		"shipping_address_id": address.ID, "payment_method": "CashOnDelivery",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var result service.CheckoutResult
	decode(t, w, &result)
	assert.Equal(t, models.OrderStatusProcessing, result.Order.Status)
	assert.Equal(t, buyer.ID, result.Order.UserID)

	w = s.do(http.MethodGet, "/api/orders", buyerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var orders []models.Order
	decode(t, w, &orders)
	assert.Len(t, orders, 1)

	w = s.do(http.MethodGet, "/api/seller/orders", sellerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &orders)
	assert.Len(t, orders, 1)

	// notifications are delivered inline through the event handler
	w = s.do(http.MethodGet, "/api/notifications/unread-count", sellerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var unread struct {
		Unread int `json:"unread"`
	}
	decode(t, w, &unread)
	assert.Equal(t, 1, unread.Unread)

	_, otherToken := s.user(models.RoleCustomer)
	assert.Equal(t, http.StatusNotFound,
		s.do(http.MethodGet, "/api/orders/"+result.Order.ID.String(), otherToken, nil).Code)

	w = s.do(http.MethodPost, "/api/orders/checkout", buyerToken, map[string]interface{}{
		"shipping_address_id": address.ID, "payment_method": "CashOnDelivery",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/orders/checkout", buyerToken, map[string]interface{}{
		"shipping_address_id": address.ID, "payment_method": "Paymob",
	})
	assert.Equal(t, http.StatusBadGateway, w.Code, "no payment gateway configured")
}

func TestAdminStatusUpdate(t *testing.T) {
	s := newTestServer(t)
	_, adminToken := s.user(models.RoleAdmin)

	w := s.do(http.MethodPut, "/api/admin/orders/"+uuid.NewString()+"/status", adminToken, map[string]string{"status": "Shipped"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodPut, "/api/admin/orders/not-a-uuid/status", adminToken, map[string]string{"status": "Shipped"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaymobWebhookRejectsBadSignature(t *testing.T) {
	s := newTestServer(t)
	callback := paymob.TransactionCallback{
		Type: "TRANSACTION",
		Obj: paymob.Transaction{
			ID:       42,
			Success:  true,
			Currency: "EGP",
			Order:    paymob.TransactionOrder{ID: 1, MerchantOrderID: uuid.NewString()},
		},
	}

	w := s.do(http.MethodPost, "/api/paymob/webhook?hmac=deadbeef", "", callback)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	signature := paymob.NewHMACValidator(webhookSecret).Sign(callback.Obj)
	w = s.do(http.MethodPost, "/api/paymob/webhook?hmac="+signature, "", callback)
	assert.Equal(t, http.StatusNotFound, w.Code, "signed callback for an unknown order")
}
