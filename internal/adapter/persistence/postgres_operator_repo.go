package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/certigo/certigo/internal/domain"
	"github.com/certigo/certigo/internal/ports"
)

type operatorRepository struct {
	db *sql.DB
}

func NewOperatorRepository(db *sql.DB) ports.OperatorRepository {
	return &operatorRepository{db: db}
}

func (r *operatorRepository) Create(ctx context.Context, op *domain.Operator) error {
	query := `
		INSERT INTO operator (username, password_hash, role, jurisdiction_id, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	var jurisdiction sql.NullInt64
	if op.JurisdictionID != nil {
		jurisdiction = sql.NullInt64{Int64: int64(*op.JurisdictionID), Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query,
		op.Username,
		op.PasswordHash,
		op.Role,
		jurisdiction,
		op.Active,
		op.CreatedAt,
	).Scan(&op.ID)
	if err != nil {
		var pqErr *pq.Error
		// 23505: unique_violation on the username index.
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return domain.ErrUsernameTaken
		}
		return fmt.Errorf("failed to create operator: %w", err)
	}
	return nil
}

func (r *operatorRepository) FindByID(ctx context.Context, id int64) (*domain.Operator, error) {
	return r.findBy(ctx, "id = $1", id)
}

func (r *operatorRepository) FindByUsername(ctx context.Context, username string) (*domain.Operator, error) {
	return r.findBy(ctx, "username = $1", username)
}

func (r *operatorRepository) findBy(ctx context.Context, where string, arg interface{}) (*domain.Operator, error) {
	query := fmt.Sprintf(`
		SELECT id, username, password_hash, role, jurisdiction_id, active, created_at
		FROM operator
		WHERE %s
	`, where)

	op, err := scanOperator(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOperatorNotFound
		}
		return nil, fmt.Errorf("failed to find operator: %w", err)
	}
	return op, nil
}

func (r *operatorRepository) List(ctx context.Context) ([]*domain.Operator, error) {
	query := `
		SELECT id, username, password_hash, role, jurisdiction_id, active, created_at
		FROM operator
		ORDER BY username
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query operators: %w", err)
	}
	defer rows.Close()

	var operators []*domain.Operator
	for rows.Next() {
		op, err := scanOperator(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan operator: %w", err)
		}
		operators = append(operators, op)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate operators: %w", err)
	}
	return operators, nil
}

func (r *operatorRepository) SetActive(ctx context.Context, id int64, active bool) error {
	query := `UPDATE operator SET active = $2 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, active)
	if err != nil {
		return fmt.Errorf("failed to update operator state: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrOperatorNotFound
	}
	return nil
}

func scanOperator(row rowScanner) (*domain.Operator, error) {
	var (
		op           domain.Operator
		jurisdiction sql.NullInt64
	)
	err := row.Scan(
		&op.ID,
		&op.Username,
		&op.PasswordHash,
		&op.Role,
		&jurisdiction,
		&op.Active,
		&op.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if jurisdiction.Valid {
		id := int(jurisdiction.Int64)
		op.JurisdictionID = &id
	}
	return &op, nil
}
