package periods

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/qayd-erp/qayd-erp/internal/ledger"
	"github.com/qayd-erp/qayd-erp/internal/platform/httpx"
)

// Handler wires accounting period endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers period routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/periods", h.handleList)
	r.Post("/periods", h.handleCreate)
	r.Post("/periods/{id}/close", h.handleClose)
	r.Post("/periods/{id}/reopen", h.handleReopen)
	r.Post("/periods/refresh-current", h.handleRefreshCurrent)
}

type createPeriodRequest struct {
	Name      string `json:"name" validate:"required"`
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date" validate:"required"`
}

type periodResponse struct {
	ID        int64               `json:"id"`
	Name      string              `json:"name"`
	StartDate string              `json:"start_date"`
	EndDate   string              `json:"end_date"`
	Status    ledger.PeriodStatus `json:"status"`
	IsCurrent bool                `json:"is_current"`
}

func toPeriodResponse(p ledger.Period) periodResponse {
	return periodResponse{
		ID:        p.ID,
		Name:      p.Name,
		StartDate: p.StartDate.Format("2006-01-02"),
		EndDate:   p.EndDate.Format("2006-01-02"),
		Status:    p.Status,
		IsCurrent: p.IsCurrent,
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	periods, err := h.service.List(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]periodResponse, 0, len(periods))
	for _, p := range periods {
		out = append(out, toPeriodResponse(p))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createPeriodRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "start_date must be YYYY-MM-DD")
		return
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "end_date must be YYYY-MM-DD")
		return
	}
	period, err := h.service.Create(r.Context(), CreatePeriodInput{Name: req.Name, StartDate: start, EndDate: end})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toPeriodResponse(period))
}

func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Close)
}

func (h *Handler) handleReopen(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Reopen)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id int64) error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid period id")
		return
	}
	if err := fn(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRefreshCurrent(w http.ResponseWriter, r *http.Request) {
	updated, current, err := h.service.RefreshCurrentFlag(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	resp := struct {
		Updated int64           `json:"updated"`
		Current *periodResponse `json:"current,omitempty"`
	}{Updated: updated}
	if current != nil {
		p := toPeriodResponse(*current)
		resp.Current = &p
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrPeriodNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidPeriodRange), errors.Is(err, ErrInvalidTransition):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unprocessable", err.Error())
	default:
		h.logger.Error("periods handler", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
