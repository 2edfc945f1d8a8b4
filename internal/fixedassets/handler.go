package fixedassets

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/sigecon/sigecon/internal/platform/httpx"
	"github.com/sigecon/sigecon/internal/shared"
)

// Handler exposes the fixed-assets JSON API.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	sf       singleflight.Group
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers fixed-assets routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/assets", h.listAssets)
	r.Post("/assets", h.createAsset)
	r.Get("/assets/{id}", h.showAsset)
	r.Put("/assets/{id}", h.updateAsset)
	r.Delete("/assets/{id}", h.deleteAsset)

	r.Get("/assets/{id}/depreciation", h.depreciation)
	r.Get("/assets/{id}/schedule", h.schedule)
	r.Get("/assets/{id}/schedule/{year}", h.scheduleMonthly)
	r.Get("/assets/{id}/reconciliation", h.reconciliation)

	r.Post("/assets/{id}/sync/acquisition", h.syncAcquisition)
	r.Post("/assets/{id}/sync/payment", h.syncPayment)
	r.Post("/assets/{id}/sync/opening", h.syncOpening)
	r.Post("/assets/{id}/sync/amortization", h.syncAmortization)
	r.Post("/assets/{id}/sync/inflation", h.syncInflation)

	r.Get("/assets/{id}/events", h.listEvents)
	r.Post("/assets/{id}/events", h.createEvent)
	r.Put("/events/{id}", h.updateEvent)
	r.Delete("/events/{id}", h.deleteEvent)
	r.Post("/events/{id}/sync", h.syncEvent)
}

type assetRequest struct {
	Name               string           `json:"name" validate:"required"`
	Category           string           `json:"category"`
	Intangible         bool             `json:"intangible"`
	AccountID          int64            `json:"account_id" validate:"required"`
	ContraAccountID    int64            `json:"contra_account_id"`
	OriginType         string           `json:"origin_type" validate:"required,oneof=PURCHASE OPENING"`
	ServiceDate        string           `json:"service_date" validate:"required"`
	OriginalValue      float64          `json:"original_value" validate:"gte=0"`
	ResidualPct        float64          `json:"residual_pct" validate:"gte=0,lte=100"`
	Method             string           `json:"method" validate:"required,oneof=ANNUAL MONTHLY UNITS NONE"`
	LifeYears          int              `json:"life_years" validate:"gte=0"`
	LifeMonths         int              `json:"life_months" validate:"gte=0"`
	TotalUnits         float64          `json:"total_units" validate:"gte=0"`
	UnitsUsed          float64          `json:"units_used" validate:"gte=0"`
	Status             string           `json:"status"`
	DisposalDate       string           `json:"disposal_date"`
	DisposalValue      float64          `json:"disposal_value" validate:"gte=0"`
	AdjustsByInflation bool             `json:"adjusts_by_inflation"`
	Acquisition        *AcquisitionData `json:"acquisition"`
	Opening            *OpeningData     `json:"opening"`
	Notes              string           `json:"notes"`
}

func (req assetRequest) toAsset() (Asset, error) {
	serviceDate, err := shared.ParseDate(req.ServiceDate)
	if err != nil {
		return Asset{}, err
	}
	a := Asset{
		Name:               req.Name,
		Category:           req.Category,
		Intangible:         req.Intangible,
		AccountID:          req.AccountID,
		ContraAccountID:    req.ContraAccountID,
		OriginType:         OriginType(req.OriginType),
		ServiceDate:        serviceDate,
		OriginalValue:      req.OriginalValue,
		ResidualPct:        req.ResidualPct,
		Method:             Method(req.Method),
		LifeYears:          req.LifeYears,
		LifeMonths:         req.LifeMonths,
		TotalUnits:         req.TotalUnits,
		UnitsUsed:          req.UnitsUsed,
		Status:             Status(req.Status),
		DisposalValue:      req.DisposalValue,
		AdjustsByInflation: req.AdjustsByInflation,
		Acquisition:        req.Acquisition,
		Opening:            req.Opening,
		Notes:              req.Notes,
	}
	if req.DisposalDate != "" {
		d, err := shared.ParseDate(req.DisposalDate)
		if err != nil {
			return Asset{}, err
		}
		a.DisposalDate = &d
	}
	return a, nil
}

type eventRequest struct {
	Type             string  `json:"type" validate:"required,oneof=IMPROVEMENT DISPOSAL REVALUATION DAMAGE"`
	Date             string  `json:"date" validate:"required"`
	Amount           float64 `json:"amount"`
	CounterAccountID int64   `json:"counter_account_id"`
	Notes            string  `json:"notes"`
}

func (req eventRequest) toEvent() (Event, error) {
	date, err := shared.ParseDate(req.Date)
	if err != nil {
		return Event{}, err
	}
	return Event{
		Type:             EventType(req.Type),
		Date:             date,
		Amount:           req.Amount,
		CounterAccountID: req.CounterAccountID,
		Notes:            req.Notes,
	}, nil
}

func (h *Handler) listAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := h.service.ListAssets(r.Context())
	if err != nil {
		h.respondError(w, "list assets", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"assets": assets})
}

func (h *Handler) createAsset(w http.ResponseWriter, r *http.Request) {
	var req assetRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	a, err := req.toAsset()
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Date", err.Error())
		return
	}
	created, err := h.service.CreateAsset(r.Context(), a)
	if err != nil {
		h.respondError(w, "create asset", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) showAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := h.assetID(w, r)
	if !ok {
		return
	}
	a, err := h.service.GetAsset(r.Context(), id)
	if err != nil {
		h.respondError(w, "get asset", err)
		return
	}
	httpx.JSON(w, http.StatusOK, a)
}

func (h *Handler) updateAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := h.assetID(w, r)
	if !ok {
		return
	}
	var req assetRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	a, err := req.toAsset()
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Date", err.Error())
		return
	}
	a.ID = id
	updated, err := h.service.UpdateAsset(r.Context(), a)
	if err != nil {
		h.respondError(w, "update asset", err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := h.assetID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteAsset(r.Context(), id); err != nil {
		h.respondError(w, "delete asset", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// depreciation returns the consolidated calculation for ?year=YYYY or,
// with ?as_of=YYYY-MM-DD, the point-in-time figure.
func (h *Handler) depreciation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.assetID(w, r)
	if !ok {
		return
	}
	if asOf := r.URL.Query().Get("as_of"); asOf != "" {
		date, err := shared.ParseDate(asOf)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Date", err.Error())
			return
		}
		calc, err := h.service.DepreciationToDate(r.Context(), id, date)
		if err != nil {
			h.respondError(w, "depreciation to date", err)
			return
		}
		httpx.JSON(w, http.StatusOK, calc)
		return
	}
	year, ok := h.fiscalYear(w, r)
	if !ok {
		return
	}
	calc, err := h.service.DepreciationWithEvents(r.Context(), id, year)
	if err != nil {
		h.respondError(w, "depreciation", err)
		return
	}
	httpx.JSON(w, http.StatusOK, calc)
}

// schedule collapses concurrent requests for the same asset into one
// computation; the table is pure but walks the full life year by year.
func (h *Handler) schedule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.assetID(w, r)
	if !ok {
		return
	}
	rows, err, _ := h.sf.Do("schedule:"+id.String(), func() (any, error) {
		return h.service.Schedule(r.Context(), id)
	})
	if err != nil {
		h.respondError(w, "schedule", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"rows": rows})
}

func (h *Handler) scheduleMonthly(w http.ResponseWriter, r *http.Request) {
	id, ok := h.assetID(w, r)
	if !ok {
		return
	}
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Year", "year must be numeric")
		return
	}
	rows, err := h.service.ScheduleMonthly(r.Context(), id, year)
	if err != nil {
		h.respondError(w, "monthly schedule", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"rows": rows})
}

func (h *Handler) reconciliation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.assetID(w, r)
	if !ok {
		return
	}
	year, ok := h.fiscalYear(w, r)
	if !ok {
		return
	}
	rec, err := h.service.Reconciliation(r.Context(), id, year)
	if err != nil {
		h.respondError(w, "reconciliation", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) syncAcquisition(w http.ResponseWriter, r *http.Request) {
	id, ok := h.assetID(w, r)
	if !ok {
		return
	}
	result, err := h.service.SyncAcquisition(r.Context(), id)
	h.respondSync(w, "sync acquisition", result, err)
}

func (h *Handler) syncPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.assetID(w, r)
	if !ok {
		return
	}
	result, err := h.service.SyncPayment(r.Context(), id)
	h.respondSync(w, "sync payment", result, err)
}

func (h *Handler) syncOpening(w http.ResponseWriter, r *http.Request) {
	id, ok := h.assetID(w, r)
	if !ok {
		return
	}
	year, ok := h.fiscalYear(w, r)
	if !ok {
		return
	}
	result, err := h.service.SyncOpening(r.Context(), id, year)
	h.respondSync(w, "sync opening", result, err)
}

func (h *Handler) syncAmortization(w http.ResponseWriter, r *http.Request) {
	id, ok := h.assetID(w, r)
	if !ok {
		return
	}
	year, ok := h.fiscalYear(w, r)
	if !ok {
		return
	}
	var month time.Month
	if m := r.URL.Query().Get("month"); m != "" {
		n, err := strconv.Atoi(m)
		if err != nil || n < 1 || n > 12 {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Month", "month must be 1-12")
			return
		}
		month = time.Month(n)
	}
	result, err := h.service.SyncAmortization(r.Context(), id, year, month)
	h.respondSync(w, "sync amortization", result, err)
}

func (h *Handler) syncInflation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.assetID(w, r)
	if !ok {
		return
	}
	year, ok := h.fiscalYear(w, r)
	if !ok {
		return
	}
	result, err := h.service.SyncInflation(r.Context(), id, year)
	h.respondSync(w, "sync inflation", result, err)
}

func (h *Handler) listEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := h.assetID(w, r)
	if !ok {
		return
	}
	events, err := h.service.ListEvents(r.Context(), id)
	if err != nil {
		h.respondError(w, "list events", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"events": events})
}

func (h *Handler) createEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.assetID(w, r)
	if !ok {
		return
	}
	var req eventRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	ev, err := req.toEvent()
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Date", err.Error())
		return
	}
	ev.AssetID = id
	created, err := h.service.CreateEvent(r.Context(), ev)
	if err != nil {
		h.respondError(w, "create event", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) updateEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.eventID(w, r)
	if !ok {
		return
	}
	var req eventRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	ev, err := req.toEvent()
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Date", err.Error())
		return
	}
	ev.ID = id
	updated, err := h.service.UpdateEvent(r.Context(), ev)
	if err != nil {
		h.respondError(w, "update event", err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.eventID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteEvent(r.Context(), id); err != nil {
		h.respondError(w, "delete event", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) syncEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.eventID(w, r)
	if !ok {
		return
	}
	result, err := h.service.SyncEventEntry(r.Context(), id)
	h.respondSync(w, "sync event", result, err)
}

func (h *Handler) assetID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "asset ID must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) eventID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "event ID must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) fiscalYear(w http.ResponseWriter, r *http.Request) (int, bool) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year < 1900 || year > 9999 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Year", "year query parameter required")
		return 0, false
	}
	return year, true
}

func (h *Handler) respondSync(w http.ResponseWriter, op string, result SyncResult, err error) {
	if err != nil {
		h.respondError(w, op, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrAssetNotFound), errors.Is(err, ErrEventNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrEventLocked):
		httpx.Problem(w, http.StatusConflict, "Event Locked", err.Error())
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrMissingAssetAccount),
		errors.Is(err, ErrMissingContraAccount),
		errors.Is(err, ErrMissingCounterAccount):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrAccountResolution), errors.Is(err, ErrMissingIndices):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unresolvable", err.Error())
	default:
		h.logger.Error(op+" failed", "error", err)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
