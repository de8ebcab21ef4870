package domain

import "time"

// StatusChange is one append-only audit entry. Exactly one is written per
// transition, including the creation entry (PrevStatus nil). ActorID is
// nil when the transition was automated (webhook, sweeper).
type StatusChange struct {
	ID         int64     `json:"id"`
	RequestID  int64     `json:"request_id"`
	PrevStatus *Status   `json:"prev_status,omitempty"`
	NewStatus  Status    `json:"new_status"`
	ActorID    *int64    `json:"actor_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewStatusChange builds an audit entry for a transition. prev is nil only
// for the creation entry; actor is nil for automated transitions.
func NewStatusChange(requestID int64, prev *Status, next Status, actor *int64, now time.Time) *StatusChange {
	return &StatusChange{
		RequestID:  requestID,
		PrevStatus: prev,
		NewStatus:  next,
		ActorID:    actor,
		CreatedAt:  now,
	}
}
