package http

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/certigo/certigo/internal/ports"
	"github.com/certigo/certigo/internal/usecase"
)

// WebhookHandler receives the payment gateway notifications.
type WebhookHandler struct {
	lifecycle *usecase.Lifecycle
	gateway   ports.PaymentGateway
	log       *logrus.Logger
}

func NewWebhookHandler(lifecycle *usecase.Lifecycle, gateway ports.PaymentGateway, log *logrus.Logger) *WebhookHandler {
	if log == nil {
		log = logrus.New()
	}
	return &WebhookHandler{lifecycle: lifecycle, gateway: gateway, log: log}
}

func (h *WebhookHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/v1/webhooks/pluspagos", h.HandlePayment).Methods("POST")
}

type paymentWebhookBody struct {
	OrderRef   string          `json:"id_orden_pago"`
	StatusCode int             `json:"codigo_estado"`
	Amount     decimal.Decimal `json:"monto"`
}

// HandlePayment verifies the webhook signature, classifies the gateway
// status and applies the payment. Unknown status codes fail closed as
// rejections. Duplicates return 200 so the gateway stops retrying.
func (h *WebhookHandler) HandlePayment(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		BadRequest(w, "failed to read body")
		return
	}

	signature := r.Header.Get("X-Signature")
	if !h.gateway.VerifySignature(payload, signature) {
		h.log.Warn("payment webhook with invalid signature rejected")
		Unauthorized(w, "invalid signature")
		return
	}

	var body paymentWebhookBody
	if err := json.Unmarshal(payload, &body); err != nil {
		BadRequest(w, "invalid webhook body")
		return
	}
	if body.OrderRef == "" {
		BadRequest(w, "id_orden_pago is required")
		return
	}

	outcome := h.gateway.ClassifyStatus(body.StatusCode)
	if outcome == ports.OutcomeUnknown {
		h.log.WithFields(logrus.Fields{
			"order_ref":   body.OrderRef,
			"status_code": body.StatusCode,
		}).Warn("unknown payment status treated as rejection")
	}
	approved := outcome == ports.OutcomeApproved

	result, err := h.lifecycle.RecordPayment(r.Context(), body.OrderRef, approved, body.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	message := "payment applied"
	if !result.Applied {
		message = "duplicate notification absorbed"
	}
	Success(w, http.StatusOK, message, result)
}
