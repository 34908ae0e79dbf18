package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/wadjakorntonsri/linkgate/pkg/core/domain"
	"github.com/wadjakorntonsri/linkgate/pkg/ports"
)

// Pinger is implemented by stores that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HTTPHandler struct {
	service  ports.LinkService
	validate *validator.Validate
	logger   *slog.Logger
	name     string
	baseURL  string
	pingers  []Pinger
}

func NewHTTPHandler(service ports.LinkService, logger *slog.Logger, baseURL string, pingers ...Pinger) *HTTPHandler {
	return &HTTPHandler{
		service:  service,
		validate: newValidator(),
		logger:   logger,
		name:     "linkgate",
		baseURL:  baseURL,
		pingers:  pingers,
	}
}

// VerifyPasswordRequest payload
type VerifyPasswordRequest struct {
	Slug     string `json:"slug" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// BulkDeleteRequest payload
type BulkDeleteRequest struct {
	Slugs []string `json:"slugs" validate:"required"`
}

// VerifyPassword checks a protected link's password and returns its URL.
func (h *HTTPHandler) VerifyPassword(w http.ResponseWriter, r *http.Request) {
	var req VerifyPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || h.validate.Struct(req) != nil {
		writeError(w, http.StatusBadRequest, "Missing slug or password")
		return
	}

	url, err := h.service.VerifyPassword(r.Context(), req.Slug, req.Password)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"url": url})
	case errors.Is(err, domain.ErrMissingFields):
		writeError(w, http.StatusBadRequest, "Missing slug or password")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "Link not found")
	case errors.Is(err, domain.ErrIncorrectPassword):
		writeError(w, http.StatusUnauthorized, "Incorrect password")
	default:
		h.logger.ErrorContext(r.Context(), "verify password failed", "slug", req.Slug, "err", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
	}
}

// Clicks returns click totals for ?ids=a,b,c.
func (h *HTTPHandler) Clicks(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("ids"))
	if raw == "" {
		writeJSON(w, http.StatusOK, map[string]int64{})
		return
	}

	writeJSON(w, http.StatusOK, h.service.ClickCounts(r.Context(), strings.Split(raw, ",")))
}

// BulkDelete removes the links named in {"slugs": [...]}.
func (h *HTTPHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req BulkDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || h.validate.Struct(req) != nil {
		req.Slugs = nil
	}

	err := h.service.BulkDelete(r.Context(), req.Slugs)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	case errors.Is(err, domain.ErrPreviewMode):
		writeError(w, http.StatusForbidden, "Preview mode cannot delete links.")
	case errors.Is(err, domain.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "Invalid request body. Expected an array of slugs.")
	default:
		h.logger.ErrorContext(r.Context(), "bulk delete failed", "count", len(req.Slugs), "err", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
	}
}

// Verify lets admin clients check their token.
func (h *HTTPHandler) Verify(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"name": h.name, "url": h.baseURL})
}

func (h *HTTPHandler) Health(w http.ResponseWriter, r *http.Request) {
	for _, p := range h.pingers {
		if err := p.Ping(r.Context()); err != nil {
			h.logger.ErrorContext(r.Context(), "health check failed", "err", err)
			writeError(w, http.StatusServiceUnavailable, "Service Unavailable")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
}
