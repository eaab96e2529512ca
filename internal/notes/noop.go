package notes

import "context"

// NoopBackend is used when no notes backend is configured
type NoopBackend struct{}

// Name returns the backend identifier
func (n *NoopBackend) Name() string {
	return "noop"
}

// IsEnabled always returns false for the noop backend
func (n *NoopBackend) IsEnabled() bool {
	return false
}

// UpdateCompanyNotes always fails
func (n *NoopBackend) UpdateCompanyNotes(ctx context.Context, companyID int64, req UpdateRequest) error {
	return &AppError{Message: "no notes backend configured"}
}

func init() {
	Register("noop", func(Options) Saver { return &NoopBackend{} })
}
