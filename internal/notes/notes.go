// Package notes defines the contract for persisting a company's notes and
// assigned salesperson, and the backends that carry it.
package notes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// UpdateRequest is the body of a notes update for one company.
type UpdateRequest struct {
	Notes               string `json:"notes" validate:"max=10000"`
	AssignedSalesperson string `json:"assigned_salesperson" validate:"max=200"`
}

// Result is what the persistence endpoint answers. Error is only set
// when Success is false.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ErrTransport marks failures reaching the persistence endpoint.
var ErrTransport = errors.New("notes transport failure")

// AppError is a failure reported by the endpoint itself.
type AppError struct {
	Message string
}

func (e *AppError) Error() string {
	return e.Message
}

// Message returns the text shown to the user for a failed save.
func Message(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// Saver persists notes updates.
type Saver interface {
	// Name returns the backend identifier (e.g., "http", "local")
	Name() string

	// IsEnabled checks if the backend is configured and usable
	IsEnabled() bool

	// UpdateCompanyNotes sends one update keyed by company ID. Failures
	// are either wrapped ErrTransport or *AppError.
	UpdateCompanyNotes(ctx context.Context, companyID int64, req UpdateRequest) error
}

// Store is the storage a local backend writes through.
type Store interface {
	UpdateCompanyNotes(ctx context.Context, id int64, notes, salesperson string) error
}

// Options carries what backend factories may need.
type Options struct {
	Endpoint string
	Timeout  time.Duration
	Store    Store
	Logger   *slog.Logger
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field limits of the request.
func (r UpdateRequest) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validating notes update: %w", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s exceeds %s characters", jsonFieldName(fe.Field()), fe.Param()))
	}
	return &AppError{Message: strings.Join(msgs, "; ")}
}

func jsonFieldName(field string) string {
	switch field {
	case "Notes":
		return "notes"
	case "AssignedSalesperson":
		return "assigned_salesperson"
	}
	return strings.ToLower(field)
}
