package usecase

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/certigo/certigo/internal/domain"
	"github.com/certigo/certigo/internal/metrics"
	"github.com/certigo/certigo/internal/ports"
)

// SweepResult reports how many records one pass expired.
type SweepResult struct {
	PendingExpired   int `json:"pending_expired"`
	PublishedExpired int `json:"published_expired"`
}

// Sweeper drives time-based expirations through the lifecycle
// coordinator. It is stateless: each pass queries the store, so it is
// safe to run concurrently with citizen, webhook and operator traffic.
// A record that moved under its feet just fails the version check and is
// picked up (or not) on the next pass. One failing record never aborts
// the batch.
type Sweeper struct {
	lifecycle *Lifecycle
	requests  ports.RequestRepository
	storage   ports.FileStorage
	metrics   *metrics.Metrics
	log       *logrus.Logger

	pendingTimeout    time.Duration
	publishedValidity time.Duration

	now func() time.Time
}

// NewSweeper builds the sweeper. Timeouts are expressed in days to match
// the business configuration.
func NewSweeper(
	lifecycle *Lifecycle,
	requests ports.RequestRepository,
	storage ports.FileStorage,
	m *metrics.Metrics,
	log *logrus.Logger,
	pendingTimeoutDays, publishedValidityDays int,
) *Sweeper {
	if log == nil {
		log = logrus.New()
	}
	return &Sweeper{
		lifecycle:         lifecycle,
		requests:          requests,
		storage:           storage,
		metrics:           m,
		log:               log,
		pendingTimeout:    time.Duration(pendingTimeoutDays) * 24 * time.Hour,
		publishedValidity: time.Duration(publishedValidityDays) * 24 * time.Hour,
		now:               time.Now,
	}
}

// Run executes one sweep pass: PENDING records past the payment window
// move to EXPIRED, and PUBLISHED records past the validity window lose
// their backing file (best-effort) and move to PUBLISHED_EXPIRED. The
// loop checks ctx between records but never aborts mid-transition.
func (s *Sweeper) Run(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	now := s.now()

	pending, err := s.requests.ListExpirable(ctx, domain.StatusPending, now.Add(-s.pendingTimeout))
	if err != nil {
		return result, err
	}
	for _, req := range pending {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		if err := s.lifecycle.ExpirePending(ctx, req); err != nil {
			s.log.WithError(err).WithField("nro_tramite", req.NroTramite).Error("failed to expire pending request")
			continue
		}
		result.PendingExpired++
	}

	published, err := s.requests.ListExpirable(ctx, domain.StatusPublished, now.Add(-s.publishedValidity))
	if err != nil {
		return result, err
	}
	for _, req := range published {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		// File removal is best-effort: a storage failure must not leave
		// the record stuck PUBLISHED serving a certificate past validity.
		if req.CertificateRef != nil {
			if err := s.storage.Delete(ctx, *req.CertificateRef); err != nil {
				s.log.WithError(err).WithField("nro_tramite", req.NroTramite).Warn("failed to delete expired certificate file")
			}
		}
		if err := s.lifecycle.ExpirePublished(ctx, req); err != nil {
			s.log.WithError(err).WithField("nro_tramite", req.NroTramite).Error("failed to expire published certificate")
			continue
		}
		result.PublishedExpired++
	}

	s.metrics.ObserveSweepExpired("pending", result.PendingExpired)
	s.metrics.ObserveSweepExpired("published", result.PublishedExpired)

	s.log.WithFields(logrus.Fields{
		"pending_expired":   result.PendingExpired,
		"published_expired": result.PublishedExpired,
	}).Info("expiry sweep completed")

	return result, nil
}

// Start runs sweep passes on the given interval until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.Run(ctx); err != nil {
				s.log.WithError(err).Error("expiry sweep failed")
			}
		case <-ctx.Done():
			return
		}
	}
}
