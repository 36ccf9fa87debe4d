package gateway

import "github.com/shopspring/decimal"

// Payment methods accepted at deposit initiation. Each maps to a distinct
// upstream integration channel; unconfigured channels fall back to card.
const (
	MethodCard   = "card"
	MethodWallet = "wallet"
	MethodKiosk  = "kiosk"
)

// Customer is the billing identity forwarded to the gateway. It comes
// from the session collaborator, already authenticated.
type Customer struct {
	Email       string
	DisplayName string
	Phone       string
}

// IntentionRequest starts an external payment.
type IntentionRequest struct {
	Amount        decimal.Decimal
	Currency      string
	CorrelationID string // our transaction number, quoted back in callbacks
	Customer      Customer
	Method        string
}

// IntentionResult carries the gateway-side id and the hosted checkout URL
// the customer is redirected to.
type IntentionResult struct {
	ExternalID  string
	CheckoutURL string
}

// StatusResult is the gateway's current truth about a transaction,
// used by the manual sync fallback.
type StatusResult struct {
	Success      bool
	Pending      bool
	AmountCents  int64
	ErrorMessage string
}

// RefundResult reports an upstream refund.
type RefundResult struct {
	Success  bool
	RefundID string
}

// Callback is a parsed webhook delivery. OrderReference holds the
// merchant-side correlation id the intention was created with.
type Callback struct {
	ExternalID     string
	OrderReference string
	Success        bool
	Pending        bool
	AmountCents    int64
	ErrorMessage   string

	// fields is the decoded payload object, kept for signature checks.
	fields map[string]interface{}
}

// Fields exposes the decoded payload object.
func (c *Callback) Fields() map[string]interface{} { return c.fields }

// toCents converts a decimal major-unit amount to the integer minor units
// the gateway wire format uses.
func toCents(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

