package http

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/certigo/certigo/internal/adapter/payment"
	"github.com/certigo/certigo/internal/domain"
	"github.com/certigo/certigo/internal/usecase"
)

const webhookSecret = "webhook-test-secret"

// fakeRequestRepo serves exactly one request, keyed by payment order ref.
type fakeRequestRepo struct {
	req     *domain.Request
	updated bool
}

func (f *fakeRequestRepo) Create(ctx context.Context, req *domain.Request, first *domain.StatusChange) error {
	return nil
}

func (f *fakeRequestRepo) FindByID(ctx context.Context, id int64) (*domain.Request, error) {
	return nil, domain.ErrRequestNotFound
}

func (f *fakeRequestRepo) FindByTramite(ctx context.Context, nroTramite string) (*domain.Request, error) {
	return nil, domain.ErrRequestNotFound
}

func (f *fakeRequestRepo) FindByPaymentOrder(ctx context.Context, ref string) (*domain.Request, error) {
	if f.req != nil && f.req.PaymentOrderRef != nil && *f.req.PaymentOrderRef == ref {
		return f.req, nil
	}
	return nil, domain.ErrRequestNotFound
}

func (f *fakeRequestRepo) FindByDownloadToken(ctx context.Context, token string) (*domain.Request, error) {
	if f.req != nil && f.req.DownloadToken != nil && *f.req.DownloadToken == token {
		return f.req, nil
	}
	return nil, domain.ErrRequestNotFound
}

func (f *fakeRequestRepo) Update(ctx context.Context, req *domain.Request, change *domain.StatusChange) error {
	f.updated = true
	req.Version++
	return nil
}

func (f *fakeRequestRepo) List(ctx context.Context, filter domain.RequestFilter) ([]*domain.Request, error) {
	return nil, nil
}

func (f *fakeRequestRepo) Count(ctx context.Context, filter domain.RequestFilter) (int, error) {
	return 0, nil
}

func (f *fakeRequestRepo) ListExpirable(ctx context.Context, status domain.Status, before time.Time) ([]*domain.Request, error) {
	return nil, nil
}

func newWebhookFixture(req *domain.Request) (*fakeRequestRepo, *mux.Router) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	repo := &fakeRequestRepo{req: req}
	gateway := payment.New(payment.Options{Mode: "sim", HMACSecret: webhookSecret}, log)
	lifecycle := usecase.NewLifecycle(repo, nil, nil, nil, nil, nil, gateway, nil, nil, log, usecase.LifecycleConfig{})

	router := mux.NewRouter()
	NewWebhookHandler(lifecycle, gateway, log).RegisterRoutes(router)
	return repo, router
}

func pendingWebhookRequest() *domain.Request {
	ref := "SIM-A1B2C3"
	return &domain.Request{
		ID:              7,
		NroTramite:      "CERT-20260215-0001",
		SubjectID:       "20304050",
		Email:           "ciudadano@example.com",
		JurisdictionID:  2,
		Status:          domain.StatusPending,
		PaymentOrderRef: &ref,
		Version:         1,
	}
}

func signWebhook(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func postWebhook(router *mux.Router, payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/pluspagos", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", signature)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandlePayment_Approved(t *testing.T) {
	record := pendingWebhookRequest()
	repo, router := newWebhookFixture(record)

	payload := []byte(`{"id_orden_pago":"SIM-A1B2C3","codigo_estado":0,"monto":"1500.00"}`)
	rec := postWebhook(router, payload, signWebhook(payload))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.StatusPaid, record.Status)
	assert.True(t, record.Amount.Equal(decimal.RequireFromString("1500.00")))
	assert.True(t, repo.updated)

	var envelope Envelope
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.True(t, envelope.Status)
	data := envelope.Data.(map[string]interface{})
	assert.Equal(t, true, data["applied"])
	assert.Equal(t, "PAID", data["status"])
}

func TestHandlePayment_InvalidSignature(t *testing.T) {
	record := pendingWebhookRequest()
	repo, router := newWebhookFixture(record)

	payload := []byte(`{"id_orden_pago":"SIM-A1B2C3","codigo_estado":0,"monto":"1500.00"}`)
	rec := postWebhook(router, payload, "deadbeef")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, domain.StatusPending, record.Status)
	assert.False(t, repo.updated)
}

func TestHandlePayment_DuplicateReturns200(t *testing.T) {
	record := pendingWebhookRequest()
	record.Status = domain.StatusPaid
	repo, router := newWebhookFixture(record)

	payload := []byte(`{"id_orden_pago":"SIM-A1B2C3","codigo_estado":0,"monto":"1500.00"}`)
	rec := postWebhook(router, payload, signWebhook(payload))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, repo.updated)

	var envelope Envelope
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	data := envelope.Data.(map[string]interface{})
	assert.Equal(t, false, data["applied"])
}

func TestHandlePayment_RejectedCodeExpiresRequest(t *testing.T) {
	record := pendingWebhookRequest()
	_, router := newWebhookFixture(record)

	payload := []byte(`{"id_orden_pago":"SIM-A1B2C3","codigo_estado":4,"monto":"0"}`)
	rec := postWebhook(router, payload, signWebhook(payload))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.StatusExpired, record.Status)
}

func TestHandlePayment_UnknownCodeFailsClosed(t *testing.T) {
	record := pendingWebhookRequest()
	_, router := newWebhookFixture(record)

	payload := []byte(`{"id_orden_pago":"SIM-A1B2C3","codigo_estado":99,"monto":"0"}`)
	rec := postWebhook(router, payload, signWebhook(payload))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.StatusExpired, record.Status)
}

func TestHandlePayment_UnknownOrder(t *testing.T) {
	record := pendingWebhookRequest()
	_, router := newWebhookFixture(record)

	payload := []byte(`{"id_orden_pago":"SIM-NADIE","codigo_estado":0,"monto":"1500.00"}`)
	rec := postWebhook(router, payload, signWebhook(payload))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, domain.StatusPending, record.Status)
}
