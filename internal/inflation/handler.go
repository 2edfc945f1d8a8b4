package inflation

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/sigecon/sigecon/internal/platform/httpx"
	"github.com/sigecon/sigecon/internal/shared"
)

// Handler exposes the index series over JSON.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers inflation index routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/indices", h.list)
	r.Put("/indices/{period}", h.set)
	r.Delete("/indices/{period}", h.delete)
}

type indexRequest struct {
	Value float64 `json:"value" validate:"required,gt=0"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	indices, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list indices failed", "error", err)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"indices": indices})
}

func (h *Handler) set(w http.ResponseWriter, r *http.Request) {
	var req indexRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	idx, err := h.service.SetIndex(r.Context(), chi.URLParam(r, "period"), req.Value)
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrInvalidPeriodKey), errors.Is(err, ErrInvalidIndex):
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		default:
			h.logger.Error("set index failed", "error", err)
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		}
		return
	}
	httpx.JSON(w, http.StatusOK, idx)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteIndex(r.Context(), chi.URLParam(r, "period")); err != nil {
		if errors.Is(err, ErrIndexNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("delete index failed", "error", err)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
