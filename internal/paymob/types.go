package paymob

import "github.com/shopspring/decimal"

// BillingData is the customer block Paymob requires on every intention.
type BillingData struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Street      string `json:"street"`
	Building    string `json:"building"`
	Floor       string `json:"floor"`
	Apartment   string `json:"apartment"`
	City        string `json:"city"`
	State       string `json:"state"`
	Country     string `json:"country"`
}

type Item struct {
	Name        string `json:"name"`
	AmountCents int64  `json:"amount"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
}

// IntentRequest describes one payment intention for an order.
type IntentRequest struct {
	MerchantOrderID string
	Amount          decimal.Decimal
	Description     string
	Billing         BillingData
}

// Intent is the result of a successful intention call.
type Intent struct {
	ID           string
	ClientSecret string
	CheckoutURL  string
}

type intentionBody struct {
	Amount           int64       `json:"amount"`
	Currency         string      `json:"currency"`
	PaymentMethods   []int       `json:"payment_methods"`
	Items            []Item      `json:"items"`
	BillingData      BillingData `json:"billing_data"`
	SpecialReference string      `json:"special_reference"`
	NotificationURL  string      `json:"notification_url,omitempty"`
	RedirectionURL   string      `json:"redirection_url,omitempty"`
}

type intentionResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
}

// TransactionCallback is the body Paymob POSTs when a transaction is processed.
type TransactionCallback struct {
	Type string      `json:"type"`
	Obj  Transaction `json:"obj"`
}

type Transaction struct {
	ID                   int64            `json:"id"`
	Pending              bool             `json:"pending"`
	AmountCents          int64            `json:"amount_cents"`
	Success              bool             `json:"success"`
	IsAuth               bool             `json:"is_auth"`
	IsCapture            bool             `json:"is_capture"`
	IsStandalonePayment  bool             `json:"is_standalone_payment"`
	IsVoided             bool             `json:"is_voided"`
	IsRefunded           bool             `json:"is_refunded"`
	Is3DSecure           bool             `json:"is_3d_secure"`
	IntegrationID        int64            `json:"integration_id"`
	HasParentTransaction bool             `json:"has_parent_transaction"`
	ErrorOccured         bool             `json:"error_occured"`
	CreatedAt            string           `json:"created_at"`
	Currency             string           `json:"currency"`
	Owner                int64            `json:"owner"`
	Order                TransactionOrder `json:"order"`
	SourceData           SourceData       `json:"source_data"`
	Data                 TransactionData  `json:"data"`
}

type TransactionOrder struct {
	ID              int64  `json:"id"`
	MerchantOrderID string `json:"merchant_order_id"`
}

type SourceData struct {
	Pan     string `json:"pan"`
	Type    string `json:"type"`
	SubType string `json:"sub_type"`
}

type TransactionData struct {
	Message string `json:"message"`
}
