package notes

import (
	"context"
	"log/slog"
)

// LocalBackend writes updates straight into the local database. It is
// used when no endpoint is configured.
type LocalBackend struct {
	store  Store
	logger *slog.Logger
}

// NewLocalBackend creates a backend over store
func NewLocalBackend(store Store, logger *slog.Logger) *LocalBackend {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalBackend{store: store, logger: logger}
}

// Name returns the backend identifier
func (b *LocalBackend) Name() string {
	return "local"
}

// IsEnabled reports whether a store is attached
func (b *LocalBackend) IsEnabled() bool {
	return b.store != nil
}

// UpdateCompanyNotes validates req and writes it through the store. Store
// errors are reported the way the endpoint would report them.
func (b *LocalBackend) UpdateCompanyNotes(ctx context.Context, companyID int64, req UpdateRequest) error {
	if b.store == nil {
		return &AppError{Message: "no local database"}
	}
	if err := req.Validate(); err != nil {
		return err
	}
	if err := b.store.UpdateCompanyNotes(ctx, companyID, req.Notes, req.AssignedSalesperson); err != nil {
		b.logger.Error("local notes update failed", "company_id", companyID, "error", err)
		return &AppError{Message: err.Error()}
	}
	b.logger.Debug("local notes update", "company_id", companyID)
	return nil
}

func init() {
	Register("local", func(opts Options) Saver {
		return NewLocalBackend(opts.Store, opts.Logger)
	})
}
