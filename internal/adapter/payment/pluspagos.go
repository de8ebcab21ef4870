package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/certigo/certigo/internal/ports"
)

// Options configures the PlusPagos gateway adapter.
type Options struct {
	// Mode selects "sim" (local simulator) or "live".
	Mode         string
	HMACSecret   string
	MerchantGUID string
	APIURL       string
	CheckoutURL  string
}

type plusPagosGateway struct {
	opts Options
	log  *logrus.Logger
}

// New builds the PlusPagos adapter. Webhook signature verification and
// status classification behave identically in both modes; only order
// creation differs.
func New(opts Options, log *logrus.Logger) ports.PaymentGateway {
	if log == nil {
		log = logrus.New()
	}
	return &plusPagosGateway{opts: opts, log: log}
}

// CreateOrder registers the checkout. In sim mode the order exists only
// as a reference the local simulator echoes back through the webhook.
func (g *plusPagosGateway) CreateOrder(ctx context.Context, requestID int64, nroTramite string, amount decimal.Decimal) (ports.PaymentOrder, error) {
	if g.opts.Mode != "sim" {
		// Live checkout registration needs merchant onboarding first.
		return ports.PaymentOrder{}, fmt.Errorf("payment mode %q is not available", g.opts.Mode)
	}

	ref := "SIM-" + strings.ToUpper(uuid.New().String()[:8])
	order := ports.PaymentOrder{
		Ref:         ref,
		CheckoutURL: fmt.Sprintf("%s/checkout/%s?monto=%s", g.opts.APIURL, ref, amount.StringFixed(2)),
	}

	g.log.WithFields(logrus.Fields{
		"nro_tramite": nroTramite,
		"order_ref":   ref,
		"amount":      amount.StringFixed(2),
	}).Info("payment order registered")
	return order, nil
}

// VerifySignature checks the webhook body against its HMAC-SHA256
// signature in constant time.
func (g *plusPagosGateway) VerifySignature(payload []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(g.opts.HMACSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

// ClassifyStatus maps the gateway status code to an outcome. Code 0 is
// approval; the documented rejection codes map to rejected. Anything
// else is unknown and left to the caller to fail closed.
func (g *plusPagosGateway) ClassifyStatus(code int) ports.PaymentOutcome {
	switch code {
	case 0:
		return ports.OutcomeApproved
	case 4, 7, 8, 9, 11:
		return ports.OutcomeRejected
	default:
		g.log.WithField("status_code", code).Warn("unknown payment status code")
		return ports.OutcomeUnknown
	}
}
