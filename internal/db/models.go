package db

import (
	"database/sql"
	"errors"
	"time"
)

// ErrNotFound is returned when a company does not exist
var ErrNotFound = errors.New("company not found")

// Company represents an account in the database
type Company struct {
	ID                  int64
	Name                string
	Category            string
	Notes               sql.NullString
	AssignedSalesperson sql.NullString
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// NoteChange is one entry of a company's notes history
type NoteChange struct {
	ID                  int64
	CompanyID           int64
	Notes               sql.NullString
	AssignedSalesperson sql.NullString
	ChangedAt           time.Time
}

// NotesText returns the notes or an empty string
func (c Company) NotesText() string {
	if c.Notes.Valid {
		return c.Notes.String
	}
	return ""
}

// SalespersonText returns the assigned salesperson or an empty string
func (c Company) SalespersonText() string {
	if c.AssignedSalesperson.Valid {
		return c.AssignedSalesperson.String
	}
	return ""
}

// NewNullString creates a sql.NullString from a string
func NewNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}
