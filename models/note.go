package models

import (
	"time"
)

// Note is a short titled text readable by anyone and editable by superusers
type Note struct {
	ID        int64     `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Note model
func (Note) TableName() string {
	return "notes"
}

// NewNote creates a new Note instance
func NewNote(title, content string, now time.Time) *Note {
	return &Note{
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch advances UpdatedAt the same way SimState.Touch does
func (n *Note) Touch(now time.Time) {
	n.UpdatedAt = NextTimestamp(n.UpdatedAt, now)
}
