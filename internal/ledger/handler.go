package ledger

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/qayd-erp/qayd-erp/internal/platform/httpx"
)

// Handler wires journal entry endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	gateway   *Gateway
	repo      *Repository
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, gateway *Gateway, repo *Repository) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		gateway:   gateway,
		repo:      repo,
		validator: validator.New(),
	}
}

// MountRoutes registers journal routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/journals", h.handleList)
	r.Post("/journals", h.handleCreateDraft)
	r.Get("/journals/{id}", h.handleGet)
	r.Post("/journals/{id}/post", h.handlePost)
	r.Post("/journals/{id}/unpost", h.handleUnpost)
	r.Post("/journals/{id}/cancel", h.handleCancel)
	r.Delete("/journals/{id}", h.handleDelete)
	r.Post("/journals/{id}/reverse", h.handleReverse)
	r.Post("/entries", h.handleCreateEntry)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	status := EntryStatus(r.URL.Query().Get("status"))
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 1000 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "limit must be between 1 and 1000")
			return
		}
		limit = n
	}
	entries, err := h.repo.ListEntries(r.Context(), status, limit)
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]entryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, toEntryResponse(entry))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.entryID(w, r)
	if !ok {
		return
	}
	var entry JournalEntry
	err := h.repo.WithTx(r.Context(), func(ctx context.Context, tx TxRepository) error {
		var err error
		entry, err = tx.GetEntryWithLines(ctx, id)
		return err
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toEntryResponse(entry))
}

func (h *Handler) handleCreateDraft(w http.ResponseWriter, r *http.Request) {
	var req createDraftRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	entry, err := h.service.CreateDraft(r.Context(), DraftInput{
		PeriodID:    req.PeriodID,
		Date:        date,
		Description: req.Description,
		EntryType:   req.EntryType,
		Category:    req.Category,
		Subcategory: req.Subcategory,
		ActorID:     actorID(r),
		Lines:       toLineInputs(req.Lines),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toEntryResponse(entry))
}

func (h *Handler) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var req createEntryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	source, err := ParseSource(req.SourceModule, req.SourceModel, req.SourceID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	entry, err := h.gateway.CreateJournalEntry(r.Context(), CreateEntryInput{
		Source:         source,
		Action:         req.Action,
		Date:           date,
		Description:    req.Description,
		EntryType:      req.EntryType,
		Category:       req.Category,
		Subcategory:    req.Subcategory,
		ActorID:        actorID(r),
		Lines:          toLineInputs(req.Lines),
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toEntryResponse(entry))
}

func (h *Handler) handlePost(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Post)
}

func (h *Handler) handleUnpost(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Unpost)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Cancel)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(context.Context, int64, int64) (JournalEntry, error)) {
	id, ok := h.entryID(w, r)
	if !ok {
		return
	}
	entry, err := fn(r.Context(), id, actorID(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toEntryResponse(entry))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.entryID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id, actorID(r)); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleReverse(w http.ResponseWriter, r *http.Request) {
	id, ok := h.entryID(w, r)
	if !ok {
		return
	}
	var req reverseEntryRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
			return
		}
	}
	input := ReverseInput{EntryID: id, ActorID: actorID(r), Description: req.Description}
	if req.Date != "" {
		date, err := parseDate(req.Date)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		input.Date = date
	}
	entry, err := h.gateway.ReverseEntry(r.Context(), input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toEntryResponse(entry))
}

func (h *Handler) entryID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid entry id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrEntryNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicateIdempotencyKey):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrEntryNotDeletable),
		errors.Is(err, ErrPeriodClosed),
		errors.Is(err, ErrNoOpenPeriod),
		errors.Is(err, ErrDateOutOfPeriod):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrUnbalanced),
		errors.Is(err, ErrTooFewLines),
		errors.Is(err, ErrLineBothSides),
		errors.Is(err, ErrLineEmpty),
		errors.Is(err, ErrLineNegative),
		errors.Is(err, ErrAccountNotFound),
		errors.Is(err, ErrAccountNotLeaf),
		errors.Is(err, ErrAccountInactive):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unprocessable", err.Error())
	default:
		h.logger.Error("journal handler", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// actorID reads the authenticated user id header set by the edge proxy.
func actorID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
	return id
}
