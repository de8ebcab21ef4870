package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/certigo/certigo/internal/domain"
	"github.com/certigo/certigo/internal/ports"
)

type historyRepository struct {
	db *sql.DB
}

func NewHistoryRepository(db *sql.DB) ports.HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) ListByRequest(ctx context.Context, requestID int64) ([]*domain.StatusChange, error) {
	query := `
		SELECT id, request_id, prev_status, new_status, actor_id, created_at
		FROM request_status_history
		WHERE request_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to query status history: %w", err)
	}
	defer rows.Close()

	var changes []*domain.StatusChange
	for rows.Next() {
		var (
			change domain.StatusChange
			prev   sql.NullString
			actor  sql.NullInt64
		)
		err := rows.Scan(
			&change.ID,
			&change.RequestID,
			&prev,
			&change.NewStatus,
			&actor,
			&change.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan status history: %w", err)
		}
		if prev.Valid {
			s := domain.Status(prev.String)
			change.PrevStatus = &s
		}
		if actor.Valid {
			change.ActorID = &actor.Int64
		}
		changes = append(changes, &change)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate status history: %w", err)
	}
	return changes, nil
}
