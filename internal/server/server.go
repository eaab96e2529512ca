// Package server exposes the company store over HTTP. It is the
// persistence endpoint the notes dialog talks to.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/pdxmph/companies-tui/internal/db"
	"github.com/pdxmph/companies-tui/internal/notes"
)

const maxBodyBytes = 64 << 10

// Store is the subset of the database the server needs.
type Store interface {
	ListCompanies(ctx context.Context) ([]db.Company, error)
	GetCompany(ctx context.Context, id int64) (*db.Company, error)
	UpdateCompanyNotes(ctx context.Context, id int64, notes, salesperson string) error
	DeleteCompany(ctx context.Context, id int64) error
}

// Config tunes the router.
type Config struct {
	// RateLimit is the number of notes updates allowed per client per minute.
	// Zero disables limiting.
	RateLimit int
}

// Handler serves the company API.
type Handler struct {
	logger *slog.Logger
	store  Store
}

// CompanyDTO is the JSON form of a company.
type CompanyDTO struct {
	ID                  int64     `json:"id"`
	Name                string    `json:"name"`
	Category            string    `json:"category"`
	Notes               string    `json:"notes"`
	AssignedSalesperson string    `json:"assigned_salesperson"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, store Store) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, store: store}
}

// NewRouter builds the chi router with middleware and routes mounted.
func NewRouter(logger *slog.Logger, store Store, cfg Config) http.Handler {
	h := NewHandler(logger, store)

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		ReferrerPolicy:     "no-referrer",
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(secureMiddleware.Handler)
	r.Use(h.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/companies", func(r chi.Router) {
		r.Get("/", h.ListCompanies)
		r.Get("/{id}", h.GetCompany)
		r.Group(func(r chi.Router) {
			if cfg.RateLimit > 0 {
				r.Use(httprate.Limit(cfg.RateLimit, time.Minute,
					httprate.WithKeyFuncs(clientKey),
					httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
						writeJSON(w, http.StatusTooManyRequests, notes.Result{Error: "too many updates, try again shortly"})
					}),
				))
			}
			r.Post("/{id}/notes", h.UpdateNotes)
			r.Delete("/{id}", h.DeleteCompany)
		})
	})

	return r
}

func clientKey(r *http.Request) (string, error) {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "ip:" + r.RemoteAddr, nil
	}
	return "ip:" + host, nil
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// ListCompanies returns every company.
func (h *Handler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.store.ListCompanies(r.Context())
	if err != nil {
		h.logger.Error("list companies failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load companies"})
		return
	}

	out := make([]CompanyDTO, 0, len(companies))
	for _, c := range companies {
		out = append(out, toDTO(c))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetCompany returns one company.
func (h *Handler) GetCompany(w http.ResponseWriter, r *http.Request) {
	id, ok := companyID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid company id"})
		return
	}

	company, err := h.store.GetCompany(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "company not found"})
		return
	}
	if err != nil {
		h.logger.Error("get company failed", "error", err, "id", id)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load company"})
		return
	}

	writeJSON(w, http.StatusOK, toDTO(*company))
}

// UpdateNotes replaces a company's notes and assigned salesperson. The
// reply is always a notes.Result.
func (h *Handler) UpdateNotes(w http.ResponseWriter, r *http.Request) {
	id, ok := companyID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, notes.Result{Error: "invalid company id"})
		return
	}

	var req notes.UpdateRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		h.logger.Warn("bad notes body", "error", err, "id", id)
		writeJSON(w, http.StatusBadRequest, notes.Result{Error: "invalid request body"})
		return
	}

	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, notes.Result{Error: notes.Message(err)})
		return
	}

	err := h.store.UpdateCompanyNotes(r.Context(), id, req.Notes, req.AssignedSalesperson)
	if errors.Is(err, db.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, notes.Result{Error: "company not found"})
		return
	}
	if err != nil {
		h.logger.Error("update notes failed", "error", err, "id", id)
		writeJSON(w, http.StatusInternalServerError, notes.Result{Error: err.Error()})
		return
	}

	h.logger.Info("notes updated", "id", id)
	writeJSON(w, http.StatusOK, notes.Result{Success: true})
}

// DeleteCompany removes a company together with its notes history.
func (h *Handler) DeleteCompany(w http.ResponseWriter, r *http.Request) {
	id, ok := companyID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, notes.Result{Error: "invalid company id"})
		return
	}

	err := h.store.DeleteCompany(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, notes.Result{Error: "company not found"})
		return
	}
	if err != nil {
		h.logger.Error("delete company failed", "error", err, "id", id)
		writeJSON(w, http.StatusInternalServerError, notes.Result{Error: "failed to delete company"})
		return
	}

	h.logger.Info("company deleted", "id", id)
	writeJSON(w, http.StatusOK, notes.Result{Success: true})
}

func companyID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func toDTO(c db.Company) CompanyDTO {
	return CompanyDTO{
		ID:                  c.ID,
		Name:                c.Name,
		Category:            c.Category,
		Notes:               c.NotesText(),
		AssignedSalesperson: c.SalespersonText(),
		UpdatedAt:           c.UpdatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
