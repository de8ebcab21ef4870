package ports

import (
	"context"

	"github.com/shopspring/decimal"
)

// PaymentOutcome is the gateway status collapsed to what the lifecycle
// needs. Unknown codes are classified explicitly so the caller decides
// the fail-closed mapping instead of the adapter hiding it.
type PaymentOutcome int

const (
	OutcomeApproved PaymentOutcome = iota
	OutcomeRejected
	OutcomeUnknown
)

// PaymentOrder is a checkout created at the gateway for a request.
type PaymentOrder struct {
	Ref         string `json:"ref"`
	CheckoutURL string `json:"checkout_url"`
}

// PaymentGateway abstracts the PlusPagos integration: order creation,
// webhook signature verification and status-code classification.
type PaymentGateway interface {
	// CreateOrder registers a payment order for the request fee.
	CreateOrder(ctx context.Context, requestID int64, nroTramite string, amount decimal.Decimal) (PaymentOrder, error)

	// VerifySignature checks the HMAC signature of a webhook payload.
	// Treated as a boolean predicate; a false result means the payload
	// did not come from the gateway.
	VerifySignature(payload []byte, signature string) bool

	// ClassifyStatus maps a gateway status code to an outcome.
	ClassifyStatus(code int) PaymentOutcome
}
