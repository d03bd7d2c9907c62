package paymob

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"storefront/internal/util"

	dto "github.com/prometheus/client_model/go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTransaction() Transaction {
	return Transaction{
		ID:                  192036465,
		Pending:             false,
		AmountCents:         2000,
		Success:             true,
		IsAuth:              false,
		IsCapture:           false,
		IsStandalonePayment: true,
		IsVoided:            false,
		IsRefunded:          false,
		Is3DSecure:          true,
		IntegrationID:       4097558,
		CreatedAt:           "2024-06-13T11:33:44.592345",
		Currency:            "EGP",
		Owner:               302852,
		Order:               TransactionOrder{ID: 217503754, MerchantOrderID: "8f1f6a43-3a0e-4d52-8a4c-1c1b6a2d9b10"},
		SourceData:          SourceData{Pan: "2346", Type: "card", SubType: "MasterCard"},
	}
}

func TestConcatenateFollowsDocumentedOrder(t *testing.T) {
	got := Concatenate(sampleTransaction())

	want := "2000" + "2024-06-13T11:33:44.592345" + "EGP" + "false" + "false" + "192036465" + "4097558" +
		"true" + "false" + "false" + "false" + "true" + "false" + "217503754" + "302852" + "false" +
		"2346" + "MasterCard" + "card" + "true"
	assert.Equal(t, want, got)
}

func TestValidateAcceptsMatchingSignature(t *testing.T) {
	v := NewHMACValidator("shared-secret")
	tx := sampleTransaction()

	mac := hmac.New(sha512.New, []byte("shared-secret"))
	mac.Write([]byte(Concatenate(tx)))
	signature := hex.EncodeToString(mac.Sum(nil))

	assert.True(t, v.Validate(tx, signature))
	assert.True(t, v.Validate(tx, strings.ToUpper(signature)), "hex case is ignored")
}

func TestValidateRejectsTampering(t *testing.T) {
	v := NewHMACValidator("shared-secret")
	tx := sampleTransaction()
	signature := v.Sign(tx)

	tampered := tx
	tampered.AmountCents = 1
	assert.False(t, v.Validate(tampered, signature))

	flipped := tx
	flipped.Success = false
	assert.False(t, v.Validate(flipped, signature))

	assert.False(t, v.Validate(tx, ""))
	assert.False(t, NewHMACValidator("other").Validate(tx, signature))
}

func TestCallbackDecodesPaymobPayload(t *testing.T) {
	raw := `{"type":"TRANSACTION","obj":{"id":7,"pending":false,"amount_cents":1550,"success":true,
		"is_3d_secure":true,"integration_id":11,"created_at":"2024-01-01T00:00:00","currency":"EGP",
		"owner":3,"order":{"id":99,"merchant_order_id":"abc"},
		"source_data":{"pan":"1234","type":"card","sub_type":"Visa"}}}`

	var cb TransactionCallback
	require.NoError(t, json.Unmarshal([]byte(raw), &cb))
	assert.Equal(t, "TRANSACTION", cb.Type)
	assert.Equal(t, int64(1550), cb.Obj.AmountCents)
	assert.Equal(t, "abc", cb.Obj.Order.MerchantOrderID)
	assert.Equal(t, "Visa", cb.Obj.SourceData.SubType)
}

func TestCreatePaymentIntent(t *testing.T) {
	var got intentionBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/intention/", r.URL.Path)
		assert.Equal(t, "Token sk_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"pi_1","client_secret":"egy_csk_123"}`))
	}))
	defer srv.Close()

	client := NewClient(Config{
		BaseURL:        srv.URL + "/",
		SecretKey:      "sk_test",
		PublicKey:      "egy_pk_1",
		IntegrationIDs: []int{42},
		Currency:       "EGP",
	}, srv.Client())

	before := intentLatencySamples(t)
	intent, err := client.CreatePaymentIntent(context.Background(), IntentRequest{
		MerchantOrderID: "order-1",
		Amount:          decimal.RequireFromString("20.005"),
		Description:     "ORD-1",
		Billing:         BillingData{FirstName: "Mona", Email: "mona@example.com"},
	})
	require.NoError(t, err)

	assert.Equal(t, "egy_csk_123", intent.ClientSecret)
	assert.Equal(t, srv.URL+"/unifiedcheckout/?clientSecret=egy_csk_123&publicKey=egy_pk_1", intent.CheckoutURL)
	assert.Equal(t, int64(2001), got.Amount)
	assert.Equal(t, []int{42}, got.PaymentMethods)
	assert.Equal(t, "order-1", got.SpecialReference)
	assert.Equal(t, "NA", got.BillingData.City)
	assert.Equal(t, before+1, intentLatencySamples(t))
}

func intentLatencySamples(t *testing.T) uint64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, util.PaymentIntentLatency.Write(&m))
	return m.GetHistogram().GetSampleCount()
}

func TestCreatePaymentIntentSurfacesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":"bad"}`))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, SecretKey: "sk"}, srv.Client())
	_, err := client.CreatePaymentIntent(context.Background(), IntentRequest{Amount: decimal.NewFromInt(1)})
	assert.Error(t, err)
}
