package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/certigo/certigo/internal/ports"
)

type tramiteSequence struct {
	db *sql.DB
}

func NewTramiteSequence(db *sql.DB) ports.TramiteSequence {
	return &tramiteSequence{db: db}
}

// Next allocates the next sequential for the given day. The upsert is
// atomic in Postgres, so concurrent creations across instances never
// observe the same value.
func (s *tramiteSequence) Next(ctx context.Context, day string) (int, error) {
	query := `
		INSERT INTO tramite_sequence (day, value)
		VALUES ($1, 1)
		ON CONFLICT (day) DO UPDATE SET value = tramite_sequence.value + 1
		RETURNING value
	`

	var value int
	if err := s.db.QueryRowContext(ctx, query, day).Scan(&value); err != nil {
		return 0, fmt.Errorf("failed to advance tramite sequence: %w", err)
	}
	return value, nil
}
