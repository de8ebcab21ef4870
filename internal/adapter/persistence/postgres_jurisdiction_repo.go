package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/certigo/certigo/internal/domain"
	"github.com/certigo/certigo/internal/ports"
)

type jurisdictionRepository struct {
	db *sql.DB
}

func NewJurisdictionRepository(db *sql.DB) ports.JurisdictionRepository {
	return &jurisdictionRepository{db: db}
}

func (r *jurisdictionRepository) FindByID(ctx context.Context, id int) (*domain.Jurisdiction, error) {
	query := `SELECT id, name, seat FROM jurisdiction WHERE id = $1`

	var j domain.Jurisdiction
	err := r.db.QueryRowContext(ctx, query, id).Scan(&j.ID, &j.Name, &j.Seat)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJurisdictionNotFound
		}
		return nil, fmt.Errorf("failed to find jurisdiction: %w", err)
	}
	return &j, nil
}

func (r *jurisdictionRepository) List(ctx context.Context) ([]*domain.Jurisdiction, error) {
	query := `SELECT id, name, seat FROM jurisdiction ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query jurisdictions: %w", err)
	}
	defer rows.Close()

	var jurisdictions []*domain.Jurisdiction
	for rows.Next() {
		var j domain.Jurisdiction
		if err := rows.Scan(&j.ID, &j.Name, &j.Seat); err != nil {
			return nil, fmt.Errorf("failed to scan jurisdiction: %w", err)
		}
		jurisdictions = append(jurisdictions, &j)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate jurisdictions: %w", err)
	}
	return jurisdictions, nil
}
