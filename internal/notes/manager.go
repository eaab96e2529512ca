package notes

import (
	"context"
	"fmt"
)

// Manager handles backend selection and forwards saves to it
type Manager struct {
	backend Saver
}

// NewManager creates a manager with the named backend. If backendName is
// empty, the first enabled backend in order of preference is used.
func NewManager(backendName string, opts Options) (*Manager, error) {
	if backendName != "" {
		backend, err := CreateBackend(backendName, opts)
		if err != nil {
			return nil, fmt.Errorf("creating backend %s: %w", backendName, err)
		}
		return &Manager{backend: backend}, nil
	}

	for _, name := range []string{"http", "local"} {
		b, err := CreateBackend(name, opts)
		if err != nil {
			continue
		}
		if b.IsEnabled() {
			return &Manager{backend: b}, nil
		}
	}

	backend, err := CreateBackend("noop", opts)
	if err != nil {
		return nil, fmt.Errorf("creating noop backend: %w", err)
	}
	return &Manager{backend: backend}, nil
}

// Name returns the name of the current backend
func (m *Manager) Name() string {
	return m.backend.Name()
}

// IsEnabled returns whether the current backend is enabled
func (m *Manager) IsEnabled() bool {
	return m.backend.IsEnabled()
}

// UpdateCompanyNotes forwards to the current backend
func (m *Manager) UpdateCompanyNotes(ctx context.Context, companyID int64, req UpdateRequest) error {
	return m.backend.UpdateCompanyNotes(ctx, companyID, req)
}
