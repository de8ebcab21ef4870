package ports

import (
	"context"
	"time"

	"github.com/certigo/certigo/internal/domain"
)

// RequestRepository defines the persistence contract for certificate
// requests. Update applies the optimistic-concurrency discipline: the
// write carries the in-memory Version as a precondition and fails with
// domain.ErrConcurrentModification when it is stale. When a StatusChange
// is passed, the row update and the audit insert commit in one
// transaction; neither exists without the other.
type RequestRepository interface {
	// Create persists a new request and its creation audit entry
	// atomically, assigning the storage id.
	Create(ctx context.Context, req *domain.Request, first *domain.StatusChange) error

	// FindByID retrieves a request by its internal id.
	FindByID(ctx context.Context, id int64) (*domain.Request, error)

	// FindByTramite retrieves a request by its public trámite number.
	FindByTramite(ctx context.Context, nroTramite string) (*domain.Request, error)

	// FindByPaymentOrder retrieves a request by its payment order ref.
	FindByPaymentOrder(ctx context.Context, ref string) (*domain.Request, error)

	// FindByDownloadToken retrieves a request by its download token.
	FindByDownloadToken(ctx context.Context, token string) (*domain.Request, error)

	// Update writes the request under the version precondition and, when
	// change is non-nil, appends the audit entry in the same transaction.
	// On success the in-memory Version is advanced.
	Update(ctx context.Context, req *domain.Request, change *domain.StatusChange) error

	// List retrieves requests matching the filter, newest first.
	List(ctx context.Context, filter domain.RequestFilter) ([]*domain.Request, error)

	// Count returns the number of requests matching the filter.
	Count(ctx context.Context, filter domain.RequestFilter) (int, error)

	// ListExpirable returns requests in the given status whose relevant
	// timestamp (creation for PENDING, issuance for PUBLISHED) predates
	// the cutoff.
	ListExpirable(ctx context.Context, status domain.Status, before time.Time) ([]*domain.Request, error)
}

// HistoryRepository reads the append-only audit trail. Writes happen only
// through RequestRepository so they share the mutation's transaction.
type HistoryRepository interface {
	// ListByRequest returns all audit entries for a request ordered by
	// timestamp, oldest first.
	ListByRequest(ctx context.Context, requestID int64) ([]*domain.StatusChange, error)
}

// JurisdictionRepository reads the fixed jurisdiction reference set.
type JurisdictionRepository interface {
	FindByID(ctx context.Context, id int) (*domain.Jurisdiction, error)
	List(ctx context.Context) ([]*domain.Jurisdiction, error)
}

// OperatorRepository persists internal users.
type OperatorRepository interface {
	Create(ctx context.Context, op *domain.Operator) error
	FindByID(ctx context.Context, id int64) (*domain.Operator, error)
	FindByUsername(ctx context.Context, username string) (*domain.Operator, error)
	List(ctx context.Context) ([]*domain.Operator, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

// TramiteSequence hands out the day-scoped sequential for trámite
// numbers. Next must be atomic under concurrent creation across
// instances; day is formatted YYYYMMDD.
type TramiteSequence interface {
	Next(ctx context.Context, day string) (int, error)
}
