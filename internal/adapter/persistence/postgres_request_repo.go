package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/certigo/certigo/internal/domain"
	"github.com/certigo/certigo/internal/ports"
)

const requestColumns = `
	id, nro_tramite, subject_id, email, jurisdiction_id, status,
	payment_order_ref, amount, paid_at, certificate_ref, download_token,
	issued_at, created_at, version
`

type requestRepository struct {
	db *sql.DB
}

func NewRequestRepository(db *sql.DB) ports.RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) Create(ctx context.Context, req *domain.Request, first *domain.StatusChange) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO request (nro_tramite, subject_id, email, jurisdiction_id, status, created_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err = tx.QueryRowContext(ctx, query,
		req.NroTramite,
		req.SubjectID,
		req.Email,
		req.JurisdictionID,
		req.Status,
		req.CreatedAt,
		req.Version,
	).Scan(&req.ID)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if first != nil {
		first.RequestID = req.ID
		if err := insertStatusChange(ctx, tx, first); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit request creation: %w", err)
	}
	return nil
}

// Update writes the full mutable column set under the version
// precondition. Zero rows affected means either a stale version or a
// missing row; a follow-up existence check tells them apart.
func (r *requestRepository) Update(ctx context.Context, req *domain.Request, change *domain.StatusChange) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE request
		SET status = $3,
		    payment_order_ref = $4,
		    amount = $5,
		    paid_at = $6,
		    certificate_ref = $7,
		    download_token = $8,
		    issued_at = $9,
		    version = version + 1
		WHERE id = $1 AND version = $2
	`
	result, err := tx.ExecContext(ctx, query,
		req.ID,
		req.Version,
		req.Status,
		nullString(req.PaymentOrderRef),
		nullDecimal(req.Amount),
		nullTime(req.PaidAt),
		nullString(req.CertificateRef),
		nullString(req.DownloadToken),
		nullTime(req.IssuedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to update request: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		var exists bool
		err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM request WHERE id = $1)`, req.ID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check request existence: %w", err)
		}
		if !exists {
			return domain.ErrRequestNotFound
		}
		return domain.ErrConcurrentModification
	}

	if change != nil {
		if err := insertStatusChange(ctx, tx, change); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit request update: %w", err)
	}

	req.Version++
	return nil
}

func insertStatusChange(ctx context.Context, tx *sql.Tx, change *domain.StatusChange) error {
	query := `
		INSERT INTO request_status_history (request_id, prev_status, new_status, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	var prev sql.NullString
	if change.PrevStatus != nil {
		prev = sql.NullString{String: string(*change.PrevStatus), Valid: true}
	}
	var actor sql.NullInt64
	if change.ActorID != nil {
		actor = sql.NullInt64{Int64: *change.ActorID, Valid: true}
	}
	err := tx.QueryRowContext(ctx, query,
		change.RequestID,
		prev,
		change.NewStatus,
		actor,
		change.CreatedAt,
	).Scan(&change.ID)
	if err != nil {
		return fmt.Errorf("failed to insert status history: %w", err)
	}
	return nil
}

func (r *requestRepository) FindByID(ctx context.Context, id int64) (*domain.Request, error) {
	return r.findBy(ctx, "id = $1", id)
}

func (r *requestRepository) FindByTramite(ctx context.Context, nroTramite string) (*domain.Request, error) {
	return r.findBy(ctx, "nro_tramite = $1", nroTramite)
}

func (r *requestRepository) FindByPaymentOrder(ctx context.Context, ref string) (*domain.Request, error) {
	return r.findBy(ctx, "payment_order_ref = $1", ref)
}

func (r *requestRepository) FindByDownloadToken(ctx context.Context, token string) (*domain.Request, error) {
	return r.findBy(ctx, "download_token = $1", token)
}

func (r *requestRepository) findBy(ctx context.Context, where string, arg interface{}) (*domain.Request, error) {
	query := fmt.Sprintf(`SELECT %s FROM request WHERE %s`, requestColumns, where)

	req, err := scanRequest(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to find request: %w", err)
	}
	return req, nil
}

func (r *requestRepository) List(ctx context.Context, filter domain.RequestFilter) ([]*domain.Request, error) {
	whereClause, args := buildRequestFilter(filter)
	argIndex := len(args) + 1

	query := fmt.Sprintf(`
		SELECT %s
		FROM request
		%s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, requestColumns, whereClause, argIndex, argIndex+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	var requests []*domain.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		requests = append(requests, req)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate requests: %w", err)
	}
	return requests, nil
}

func (r *requestRepository) Count(ctx context.Context, filter domain.RequestFilter) (int, error) {
	whereClause, args := buildRequestFilter(filter)

	var total int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM request %s`, whereClause)
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count requests: %w", err)
	}
	return total, nil
}

// ListExpirable keys the cutoff on created_at for PENDING records and
// issued_at for PUBLISHED ones.
func (r *requestRepository) ListExpirable(ctx context.Context, status domain.Status, before time.Time) ([]*domain.Request, error) {
	column := "created_at"
	if status == domain.StatusPublished {
		column = "issued_at"
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM request
		WHERE status = $1 AND %s < $2
		ORDER BY %s ASC
	`, requestColumns, column, column)

	rows, err := r.db.QueryContext(ctx, query, status, before)
	if err != nil {
		return nil, fmt.Errorf("failed to query expirable requests: %w", err)
	}
	defer rows.Close()

	var requests []*domain.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		requests = append(requests, req)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expirable requests: %w", err)
	}
	return requests, nil
}

func buildRequestFilter(filter domain.RequestFilter) (string, []interface{}) {
	whereClause := "WHERE 1=1"
	args := []interface{}{}
	argIndex := 1

	if filter.JurisdictionID != nil {
		whereClause += fmt.Sprintf(" AND jurisdiction_id = $%d", argIndex)
		args = append(args, *filter.JurisdictionID)
		argIndex++
	}
	if filter.Status != nil {
		whereClause += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, *filter.Status)
		argIndex++
	}
	if filter.SubjectID != nil {
		whereClause += fmt.Sprintf(" AND subject_id = $%d", argIndex)
		args = append(args, *filter.SubjectID)
		argIndex++
	}
	return whereClause, args
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRequest(row rowScanner) (*domain.Request, error) {
	var (
		req            domain.Request
		status         string
		paymentRef     sql.NullString
		amount         decimal.NullDecimal
		paidAt         sql.NullTime
		certificateRef sql.NullString
		downloadToken  sql.NullString
		issuedAt       sql.NullTime
	)

	err := row.Scan(
		&req.ID,
		&req.NroTramite,
		&req.SubjectID,
		&req.Email,
		&req.JurisdictionID,
		&status,
		&paymentRef,
		&amount,
		&paidAt,
		&certificateRef,
		&downloadToken,
		&issuedAt,
		&req.CreatedAt,
		&req.Version,
	)
	if err != nil {
		return nil, err
	}

	req.Status = domain.Status(status)
	if paymentRef.Valid {
		req.PaymentOrderRef = &paymentRef.String
	}
	if amount.Valid {
		req.Amount = &amount.Decimal
	}
	if paidAt.Valid {
		req.PaidAt = &paidAt.Time
	}
	if certificateRef.Valid {
		req.CertificateRef = &certificateRef.String
	}
	if downloadToken.Valid {
		req.DownloadToken = &downloadToken.String
	}
	if issuedAt.Valid {
		req.IssuedAt = &issuedAt.Time
	}
	return &req, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
