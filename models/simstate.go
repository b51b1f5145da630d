package models

import (
	"encoding/json"
	"time"
)

// SimState is an opaque JSON snapshot of a simulation owned by a single user
type SimState struct {
	ID            int64           `json:"id" db:"id"`
	OwnerID       int64           `json:"-" db:"owner_id"`
	OwnerUsername string          `json:"owner" db:"owner_username"`
	Name          string          `json:"name" db:"name"`
	Payload       json.RawMessage `json:"payload" db:"payload"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the SimState model
func (SimState) TableName() string {
	return "simstates"
}

// NewSimState creates a new SimState owned by the given user
func NewSimState(owner *User, name string, payload json.RawMessage, now time.Time) *SimState {
	return &SimState{
		OwnerID:       owner.ID,
		OwnerUsername: owner.Username,
		Name:          name,
		Payload:       payload,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// IsOwnedBy reports whether the state belongs to the given user ID
func (s *SimState) IsOwnedBy(userID int64) bool {
	return s.OwnerID == userID
}

// Touch advances UpdatedAt to now, or one microsecond past the previous
// value when the clock has not moved forward.
func (s *SimState) Touch(now time.Time) {
	s.UpdatedAt = NextTimestamp(s.UpdatedAt, now)
}

// NextTimestamp returns a timestamp strictly after prev, preferring now.
// Postgres stores microsecond precision, so now is truncated accordingly.
func NextTimestamp(prev, now time.Time) time.Time {
	now = now.UTC().Truncate(time.Microsecond)
	floor := prev.UTC().Truncate(time.Microsecond).Add(time.Microsecond)
	if now.Before(floor) {
		return floor
	}
	return now
}
