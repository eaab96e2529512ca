package notes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxResponseBytes = 1 << 20

// HTTPBackend posts updates to a remote persistence endpoint
type HTTPBackend struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// NewHTTPBackend creates a backend for endpoint, e.g. "http://localhost:8080".
func NewHTTPBackend(endpoint string, timeout time.Duration, logger *slog.Logger) *HTTPBackend {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPBackend{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// Name returns the backend identifier
func (b *HTTPBackend) Name() string {
	return "http"
}

// IsEnabled reports whether an endpoint is configured
func (b *HTTPBackend) IsEnabled() bool {
	return b.endpoint != ""
}

// URL returns the update URL for a company
func (b *HTTPBackend) URL(companyID int64) string {
	return b.endpoint + "/api/companies/" + strconv.FormatInt(companyID, 10) + "/notes"
}

// UpdateCompanyNotes sends one POST with a JSON body and decodes the Result.
// There is no retry.
func (b *HTTPBackend) UpdateCompanyNotes(ctx context.Context, companyID int64, req UpdateRequest) error {
	if !b.IsEnabled() {
		return fmt.Errorf("%w: no endpoint configured", ErrTransport)
	}
	if err := req.Validate(); err != nil {
		return err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encoding notes update: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.URL(companyID), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building notes request: %w", err)
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)

	resp, err := b.client.Do(httpReq)
	if err != nil {
		b.logger.Warn("notes request failed", "company_id", companyID, "request_id", requestID, "error", err)
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", ErrTransport, err)
	}

	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		b.logger.Warn("undecodable notes response", "company_id", companyID, "status", resp.StatusCode, "request_id", requestID)
		return fmt.Errorf("%w: unexpected response (%s)", ErrTransport, resp.Status)
	}

	if !result.Success {
		msg := result.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		b.logger.Info("notes update rejected", "company_id", companyID, "request_id", requestID, "error", msg)
		return &AppError{Message: msg}
	}

	b.logger.Debug("notes update saved", "company_id", companyID, "request_id", requestID)
	return nil
}

func init() {
	Register("http", func(opts Options) Saver {
		return NewHTTPBackend(opts.Endpoint, opts.Timeout, opts.Logger)
	})
}
