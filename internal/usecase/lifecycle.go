package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/certigo/certigo/internal/domain"
	"github.com/certigo/certigo/internal/metrics"
	"github.com/certigo/certigo/internal/ports"
	"github.com/certigo/certigo/pkg/token"
)

// LifecycleConfig carries the business parameters of the coordinator.
type LifecycleConfig struct {
	TramitePrefix         string
	FeeAmount             decimal.Decimal
	BaseURL               string
	PublishedValidityDays int
}

// Lifecycle is the sole entry point for every state-changing operation on
// a certificate request. It enforces transition validity against the
// single transition table, optimistic concurrency through the version
// precondition, webhook idempotency, and one audit entry per committed
// transition. Side effects (email) are dispatched after the write
// commits and never block or fail the transition.
type Lifecycle struct {
	requests      ports.RequestRepository
	history       ports.HistoryRepository
	jurisdictions ports.JurisdictionRepository
	seq           ports.TramiteSequence
	tokens        ports.TokenStore
	storage       ports.FileStorage
	gateway       ports.PaymentGateway
	mailer        ports.Mailer
	metrics       *metrics.Metrics
	log           *logrus.Logger
	cfg           LifecycleConfig

	now func() time.Time
}

// NewLifecycle wires the coordinator. mailer and metrics may be nil (test
// wiring); everything else is required.
func NewLifecycle(
	requests ports.RequestRepository,
	history ports.HistoryRepository,
	jurisdictions ports.JurisdictionRepository,
	seq ports.TramiteSequence,
	tokens ports.TokenStore,
	storage ports.FileStorage,
	gateway ports.PaymentGateway,
	mailer ports.Mailer,
	m *metrics.Metrics,
	log *logrus.Logger,
	cfg LifecycleConfig,
) *Lifecycle {
	if log == nil {
		log = logrus.New()
	}
	return &Lifecycle{
		requests:      requests,
		history:       history,
		jurisdictions: jurisdictions,
		seq:           seq,
		tokens:        tokens,
		storage:       storage,
		gateway:       gateway,
		mailer:        mailer,
		metrics:       m,
		log:           log,
		cfg:           cfg,
		now:           time.Now,
	}
}

// CreateRequest registers a new certificate request in PENDING, assigns
// the trámite number from the day-scoped sequence, writes the creation
// audit entry, issues the verification OTP and mails it to the citizen.
func (l *Lifecycle) CreateRequest(ctx context.Context, subjectID, email string, jurisdictionID int) (*domain.Request, error) {
	if err := domain.ValidateSubjectID(subjectID); err != nil {
		return nil, err
	}
	if err := domain.ValidateEmail(email); err != nil {
		return nil, err
	}

	jurisdiction, err := l.jurisdictions.FindByID(ctx, jurisdictionID)
	if err != nil {
		return nil, err
	}

	now := l.now()
	day := now.Format("20060102")
	seq, err := l.seq.Next(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate tramite sequence: %w", err)
	}
	nroTramite := fmt.Sprintf("%s-%s-%04d", l.cfg.TramitePrefix, day, seq)

	req := domain.NewRequest(nroTramite, subjectID, email, jurisdictionID, now)
	first := domain.NewStatusChange(0, nil, domain.StatusPending, nil, now)

	if err := l.requests.Create(ctx, req, first); err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	l.metrics.ObserveTransition("", string(domain.StatusPending))

	code, err := l.tokens.IssueOTP(ctx, req.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue verification code: %w", err)
	}

	l.sendAsync("otp", func(ctx context.Context) error {
		return l.mailer.SendOTP(ctx, email, nroTramite, code)
	})

	l.log.WithFields(logrus.Fields{
		"request_id":   req.ID,
		"nro_tramite":  nroTramite,
		"jurisdiction": jurisdiction.Name,
	}).Info("request created")

	return req, nil
}

// OTPSession is the result of a successful email verification.
type OTPSession struct {
	Token      string        `json:"token"`
	NroTramite string        `json:"nro_tramite"`
	Status     domain.Status `json:"status"`
}

// ValidateOTP checks the citizen's verification code and, when valid,
// issues the citizen session token. The three failure reasons surface as
// distinct errors so the caller can message the citizen correctly.
func (l *Lifecycle) ValidateOTP(ctx context.Context, requestID int64, code string) (*OTPSession, error) {
	req, err := l.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	result, err := l.tokens.ValidateOTP(ctx, requestID, code)
	if err != nil {
		return nil, fmt.Errorf("failed to validate verification code: %w", err)
	}
	switch result {
	case ports.OTPExpired:
		return nil, domain.ErrOTPExpired
	case ports.OTPExhausted:
		return nil, domain.ErrOTPExhausted
	case ports.OTPWrongCode:
		return nil, domain.ErrOTPIncorrect
	}

	sessionToken, err := l.tokens.IssueCitizenToken(ctx, req.NroTramite)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}

	l.log.WithFields(logrus.Fields{
		"request_id":  requestID,
		"nro_tramite": req.NroTramite,
	}).Info("otp validated")

	return &OTPSession{Token: sessionToken, NroTramite: req.NroTramite, Status: req.Status}, nil
}

// Custom errors for payment order creation.
var ErrPaymentOrderExists = domain.NewDomainError("a payment order already exists for this request")

// CreatePaymentOrder registers the fee checkout at the gateway and stores
// the order reference on the record. The reference is assigned at most
// once; it is the idempotency key for webhook processing. The caller's
// session must be bound to the request's trámite number.
func (l *Lifecycle) CreatePaymentOrder(ctx context.Context, requestID int64, nroTramite string) (ports.PaymentOrder, error) {
	req, err := l.requests.FindByID(ctx, requestID)
	if err != nil {
		return ports.PaymentOrder{}, err
	}
	if req.NroTramite != nroTramite {
		return ports.PaymentOrder{}, domain.ErrRequestNotFound
	}
	if req.Status != domain.StatusPending {
		return ports.PaymentOrder{}, domain.ErrInvalidState
	}
	if req.PaymentOrderRef != nil {
		return ports.PaymentOrder{}, ErrPaymentOrderExists
	}

	order, err := l.gateway.CreateOrder(ctx, req.ID, req.NroTramite, l.cfg.FeeAmount)
	if err != nil {
		return ports.PaymentOrder{}, fmt.Errorf("failed to create payment order: %w", err)
	}

	req.PaymentOrderRef = &order.Ref
	if err := l.requests.Update(ctx, req, nil); err != nil {
		if errors.Is(err, domain.ErrConcurrentModification) {
			l.metrics.ObserveWriteConflict()
		}
		return ports.PaymentOrder{}, err
	}

	l.log.WithFields(logrus.Fields{
		"request_id":  req.ID,
		"nro_tramite": req.NroTramite,
		"order_ref":   order.Ref,
	}).Info("payment order created")

	return order, nil
}

// PaymentResult reports whether a webhook was applied or absorbed as a
// duplicate.
type PaymentResult struct {
	Applied    bool          `json:"applied"`
	Status     domain.Status `json:"status"`
	NroTramite string        `json:"nro_tramite"`
}

// RecordPayment processes a payment webhook. If the record is no longer
// PENDING the call is an idempotent no-op returning a duplicate result:
// gateways redeliver, and the version check alone cannot distinguish a
// retry from a conflict. Approved payments move the record to PAID;
// rejected ones to EXPIRED. Both are automated transitions (no actor).
func (l *Lifecycle) RecordPayment(ctx context.Context, orderRef string, approved bool, amount decimal.Decimal) (PaymentResult, error) {
	start := l.now()
	req, err := l.requests.FindByPaymentOrder(ctx, orderRef)
	if err != nil {
		return PaymentResult{}, err
	}

	if req.Status != domain.StatusPending {
		l.log.WithFields(logrus.Fields{
			"order_ref": orderRef,
			"status":    req.Status,
		}).Warn("duplicate payment webhook absorbed")
		l.metrics.ObserveWebhookDuplicate()
		return PaymentResult{Applied: false, Status: req.Status, NroTramite: req.NroTramite}, nil
	}

	target := domain.StatusExpired
	if approved {
		target = domain.StatusPaid
	}
	if !domain.CanTransition(req.Status, target) {
		return PaymentResult{}, domain.ErrInvalidTransition
	}

	prev := req.Status
	now := l.now()
	req.Status = target
	if approved {
		req.Amount = &amount
		req.PaidAt = &now
	}

	change := domain.NewStatusChange(req.ID, &prev, target, nil, now)
	if err := l.requests.Update(ctx, req, change); err != nil {
		if errors.Is(err, domain.ErrConcurrentModification) {
			l.metrics.ObserveWriteConflict()
		}
		return PaymentResult{}, err
	}
	l.metrics.ObserveTransition(string(prev), string(target))
	l.metrics.ObserveTransitionDuration(start)

	email, nro := req.Email, req.NroTramite
	if approved {
		l.sendAsync("payment_confirmed", func(ctx context.Context) error {
			return l.mailer.SendPaymentConfirmed(ctx, email, nro)
		})
	} else {
		l.sendAsync("request_expired", func(ctx context.Context) error {
			return l.mailer.SendRequestExpired(ctx, email, nro)
		})
	}

	l.log.WithFields(logrus.Fields{
		"nro_tramite": nro,
		"order_ref":   orderRef,
		"approved":    approved,
	}).Info("payment webhook applied")

	return PaymentResult{Applied: true, Status: target, NroTramite: nro}, nil
}

// PublishCertificate stores the uploaded certificate and moves a PAID
// request to PUBLISHED. The upload is fatal: the transition never
// proceeds without a successfully stored file. Requires the acting
// operator's scope to cover the request's jurisdiction.
func (l *Lifecycle) PublishCertificate(ctx context.Context, requestID int64, content io.Reader, size int64, contentType string, actor *domain.Operator) (string, error) {
	start := l.now()
	req, err := l.requests.FindByID(ctx, requestID)
	if err != nil {
		return "", err
	}
	if req.Status != domain.StatusPaid {
		return "", domain.ErrInvalidState
	}
	if !actor.Scope().Allows(req.JurisdictionID) {
		return "", domain.ErrJurisdictionMismatch
	}

	ref, err := l.storage.Upload(ctx, req.ID, content, size, contentType)
	if err != nil {
		return "", fmt.Errorf("failed to store certificate: %w", err)
	}

	downloadToken, err := token.New64()
	if err != nil {
		return "", err
	}

	prev := req.Status
	now := l.now()
	req.Status = domain.StatusPublished
	req.CertificateRef = &ref
	req.DownloadToken = &downloadToken
	req.IssuedAt = &now

	change := domain.NewStatusChange(req.ID, &prev, domain.StatusPublished, &actor.ID, now)
	if err := l.requests.Update(ctx, req, change); err != nil {
		if errors.Is(err, domain.ErrConcurrentModification) {
			l.metrics.ObserveWriteConflict()
		}
		return "", err
	}
	l.metrics.ObserveTransition(string(prev), string(domain.StatusPublished))
	l.metrics.ObserveTransitionDuration(start)

	email, nro := req.Email, req.NroTramite
	downloadURL := l.cfg.BaseURL + "/api/v1/certificados/" + downloadToken
	validity := l.cfg.PublishedValidityDays
	l.sendAsync("certificate_ready", func(ctx context.Context) error {
		return l.mailer.SendCertificateReady(ctx, email, nro, downloadURL, validity)
	})

	l.log.WithFields(logrus.Fields{
		"nro_tramite": nro,
		"operator":    actor.Username,
	}).Info("certificate published")

	return downloadToken, nil
}

// RegenerateDownloadToken replaces the download token of a PUBLISHED or
// PUBLISHED_EXPIRED request. The previous token stops resolving once the
// row is written; the state does not change so no audit entry is added.
func (l *Lifecycle) RegenerateDownloadToken(ctx context.Context, requestID int64, actor *domain.Operator) (string, error) {
	req, err := l.requests.FindByID(ctx, requestID)
	if err != nil {
		return "", err
	}
	if req.Status != domain.StatusPublished && req.Status != domain.StatusPublishedExpired {
		return "", domain.ErrInvalidState
	}
	if !actor.Scope().Allows(req.JurisdictionID) {
		return "", domain.ErrJurisdictionMismatch
	}

	newToken, err := token.New64()
	if err != nil {
		return "", err
	}
	now := l.now()
	req.DownloadToken = &newToken
	req.IssuedAt = &now

	if err := l.requests.Update(ctx, req, nil); err != nil {
		if errors.Is(err, domain.ErrConcurrentModification) {
			l.metrics.ObserveWriteConflict()
		}
		return "", err
	}

	l.log.WithFields(logrus.Fields{
		"nro_tramite": req.NroTramite,
		"operator":    actor.Username,
	}).Info("download token regenerated")

	return newToken, nil
}

// ExpirePending moves a PENDING request past its payment window to
// EXPIRED. Used by the sweeper; actor is nil (automated).
func (l *Lifecycle) ExpirePending(ctx context.Context, req *domain.Request) error {
	if !domain.CanTransition(req.Status, domain.StatusExpired) {
		return domain.ErrInvalidTransition
	}

	prev := req.Status
	now := l.now()
	req.Status = domain.StatusExpired

	change := domain.NewStatusChange(req.ID, &prev, domain.StatusExpired, nil, now)
	if err := l.requests.Update(ctx, req, change); err != nil {
		if errors.Is(err, domain.ErrConcurrentModification) {
			l.metrics.ObserveWriteConflict()
		}
		return err
	}
	l.metrics.ObserveTransition(string(prev), string(domain.StatusExpired))

	email, nro := req.Email, req.NroTramite
	l.sendAsync("request_expired", func(ctx context.Context) error {
		return l.mailer.SendRequestExpired(ctx, email, nro)
	})

	l.log.WithField("nro_tramite", nro).Info("pending request expired")
	return nil
}

// ExpirePublished moves a PUBLISHED request past its validity window to
// PUBLISHED_EXPIRED. The caller (sweeper) removes the backing file first,
// best-effort; the transition proceeds regardless so a storage failure
// never leaves the record stuck serving a resource that should be gone.
// The download token stays persisted for audit but no longer resolves.
func (l *Lifecycle) ExpirePublished(ctx context.Context, req *domain.Request) error {
	if !domain.CanTransition(req.Status, domain.StatusPublishedExpired) {
		return domain.ErrInvalidTransition
	}

	prev := req.Status
	req.Status = domain.StatusPublishedExpired

	change := domain.NewStatusChange(req.ID, &prev, domain.StatusPublishedExpired, nil, l.now())
	if err := l.requests.Update(ctx, req, change); err != nil {
		if errors.Is(err, domain.ErrConcurrentModification) {
			l.metrics.ObserveWriteConflict()
		}
		return err
	}
	l.metrics.ObserveTransition(string(prev), string(domain.StatusPublishedExpired))

	l.log.WithField("nro_tramite", req.NroTramite).Info("published certificate expired")
	return nil
}

// StatusView is the citizen-facing projection of a request. DownloadLink
// is present only while the request is PUBLISHED.
type StatusView struct {
	NroTramite   string        `json:"nro_tramite"`
	Status       domain.Status `json:"status"`
	Jurisdiction string        `json:"jurisdiction"`
	CreatedAt    time.Time     `json:"created_at"`
	DownloadLink *string       `json:"download_link,omitempty"`
}

// GetStatus returns the citizen view of a request by trámite number.
func (l *Lifecycle) GetStatus(ctx context.Context, nroTramite string) (*StatusView, error) {
	req, err := l.requests.FindByTramite(ctx, nroTramite)
	if err != nil {
		return nil, err
	}

	jurisdictionName := ""
	if j, err := l.jurisdictions.FindByID(ctx, req.JurisdictionID); err == nil {
		jurisdictionName = j.Name
	}

	view := &StatusView{
		NroTramite:   req.NroTramite,
		Status:       req.Status,
		Jurisdiction: jurisdictionName,
		CreatedAt:    req.CreatedAt,
	}
	if req.Status == domain.StatusPublished && req.DownloadToken != nil {
		link := l.cfg.BaseURL + "/api/v1/certificados/" + *req.DownloadToken
		view.DownloadLink = &link
	}
	return view, nil
}

// DownloadCertificate resolves a download token and streams the PDF.
// Tokens resolve only while the request is PUBLISHED; after expiry the
// token stays on the record for audit but the file is gone.
func (l *Lifecycle) DownloadCertificate(ctx context.Context, downloadToken string) (io.ReadCloser, *domain.Request, error) {
	req, err := l.requests.FindByDownloadToken(ctx, downloadToken)
	if err != nil {
		return nil, nil, err
	}
	if req.Status != domain.StatusPublished || req.CertificateRef == nil {
		return nil, nil, domain.ErrRequestNotFound
	}

	rc, err := l.storage.Fetch(ctx, *req.CertificateRef)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch certificate: %w", err)
	}
	return rc, req, nil
}

// RequestPage is one page of the internal panel listing.
type RequestPage struct {
	Items  []*domain.Request `json:"items"`
	Total  int               `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}

// List returns requests visible to the given scope. A restricted scope
// always lists its own jurisdiction, regardless of the requested filter.
func (l *Lifecycle) List(ctx context.Context, scope domain.Scope, filter domain.RequestFilter) (*RequestPage, error) {
	if id, ok := scope.Jurisdiction(); ok {
		filter.JurisdictionID = &id
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	items, err := l.requests.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	total, err := l.requests.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count requests: %w", err)
	}

	return &RequestPage{Items: items, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

// GetRequest returns the full record for the internal panel. The scope
// must cover the request's jurisdiction.
func (l *Lifecycle) GetRequest(ctx context.Context, requestID int64, scope domain.Scope) (*domain.Request, error) {
	req, err := l.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !scope.Allows(req.JurisdictionID) {
		return nil, domain.ErrJurisdictionMismatch
	}
	return req, nil
}

// GetHistory returns the audit trail of a request, oldest entry first.
func (l *Lifecycle) GetHistory(ctx context.Context, requestID int64, scope domain.Scope) ([]*domain.StatusChange, error) {
	req, err := l.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !scope.Allows(req.JurisdictionID) {
		return nil, domain.ErrJurisdictionMismatch
	}
	return l.history.ListByRequest(ctx, requestID)
}

// sendAsync dispatches a notification after the owning write committed.
// Delivery failures are logged and never reach the caller.
func (l *Lifecycle) sendAsync(event string, fn func(context.Context) error) {
	if l.mailer == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := fn(ctx); err != nil {
			l.log.WithError(err).WithField("event", event).Warn("notification delivery failed")
		}
	}()
}
