package paymob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"storefront/internal/util"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type Config struct {
	BaseURL         string
	SecretKey       string
	PublicKey       string
	IntegrationIDs  []int
	Currency        string
	NotificationURL string
	RedirectionURL  string
}

// Client talks to the Paymob unified intention API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, httpClient: httpClient, logger: util.GetLogger()}
}

// ToCents converts a decimal amount to integer piasters, rounding half up.
func ToCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// CheckoutURL is where the buyer completes payment.
func (c *Client) CheckoutURL(clientSecret string) string {
	q := url.Values{}
	q.Set("publicKey", c.cfg.PublicKey)
	q.Set("clientSecret", clientSecret)
	return c.cfg.BaseURL + "/unifiedcheckout/?" + q.Encode()
}

// CreatePaymentIntent creates an intention and returns its client secret
func (c *Client) CreatePaymentIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	ctx, span := util.StartSpan(ctx, "PaymobClient.CreatePaymentIntent",
		attribute.String("merchant_order_id", req.MerchantOrderID))
	defer span.End()

	start := time.Now()
	defer func() { util.PaymentIntentLatency.Observe(time.Since(start).Seconds()) }()

	cents := ToCents(req.Amount)
	body := intentionBody{
		Amount:         cents,
		Currency:       c.cfg.Currency,
		PaymentMethods: c.cfg.IntegrationIDs,
		Items: []Item{{
			Name:        req.Description,
			AmountCents: cents,
			Description: req.Description,
			Quantity:    1,
		}},
		BillingData:      withBillingDefaults(req.Billing),
		SpecialReference: req.MerchantOrderID,
		NotificationURL:  c.cfg.NotificationURL,
		RedirectionURL:   c.cfg.RedirectionURL,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, util.RecordError(span, fmt.Errorf("failed to encode intention: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/intention/", bytes.NewReader(payload))
	if err != nil {
		return nil, util.RecordError(span, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Token "+c.cfg.SecretKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, util.RecordError(span, fmt.Errorf("failed to reach paymob: %w", err))
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("Paymob intention rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("merchant_order_id", req.MerchantOrderID),
			zap.ByteString("body", respBody))
		return nil, util.RecordError(span, fmt.Errorf("paymob API error (%d)", resp.StatusCode))
	}

	var out intentionResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, util.RecordError(span, fmt.Errorf("failed to parse paymob response: %w", err))
	}
	if out.ClientSecret == "" {
		return nil, util.RecordError(span, fmt.Errorf("paymob returned empty client secret"))
	}

	return &Intent{
		ID:           out.ID,
		ClientSecret: out.ClientSecret,
		CheckoutURL:  c.CheckoutURL(out.ClientSecret),
	}, nil
}

// Paymob rejects empty billing fields; "NA" is its documented placeholder.
func withBillingDefaults(b BillingData) BillingData {
	fields := []*string{
		&b.FirstName, &b.LastName, &b.Email, &b.PhoneNumber, &b.Street, &b.Building,
		&b.Floor, &b.Apartment, &b.City, &b.State, &b.Country,
	}
	for _, f := range fields {
		if strings.TrimSpace(*f) == "" {
			*f = "NA"
		}
	}
	return b
}
