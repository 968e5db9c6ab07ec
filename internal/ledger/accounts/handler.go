package accounts

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/qayd-erp/qayd-erp/internal/ledger"
	"github.com/qayd-erp/qayd-erp/internal/platform/httpx"
)

// Handler wires chart of accounts endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	resolver  *PaymentAccountResolver
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, resolver *PaymentAccountResolver) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		resolver:  resolver,
		validator: validator.New(),
	}
}

// MountRoutes registers account routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/accounts", h.handleList)
	r.Post("/accounts", h.handleCreate)
	r.Get("/accounts/{code}", h.handleGet)
	r.Get("/accounts/{code}/balance", h.handleBalance)
	r.Post("/accounts/{code}/deactivate", h.handleDeactivate)
	r.Post("/partners/accounts", h.handleEnsurePartnerAccount)
	r.Get("/payment-methods/{method}/account", h.handleResolvePayment)
	r.Put("/payment-methods/{method}/account", h.handleSaveMapping)
	r.Delete("/payment-methods/{method}/account", h.handleDeleteMapping)
}

type createAccountRequest struct {
	Code               string                 `json:"code"`
	Name               string                 `json:"name" validate:"required"`
	TypeID             int64                  `json:"type_id"`
	Category           ledger.AccountCategory `json:"category" validate:"required,oneof=ASSET LIABILITY EQUITY REVENUE EXPENSE"`
	Nature             ledger.AccountNature   `json:"nature" validate:"required,oneof=DEBIT CREDIT"`
	ParentCode         string                 `json:"parent_code"`
	IsCashAccount      bool                   `json:"is_cash_account"`
	IsBankAccount      bool                   `json:"is_bank_account"`
	OpeningBalance     decimal.Decimal        `json:"opening_balance"`
	OpeningBalanceDate *time.Time             `json:"opening_balance_date"`
}

type ensurePartnerRequest struct {
	Kind string `json:"kind" validate:"required,oneof=customer supplier"`
	ID   int64  `json:"id" validate:"required"`
	Name string `json:"name" validate:"required"`
}

type saveMappingRequest struct {
	AccountCode string `json:"account_code" validate:"required"`
}

type accountResponse struct {
	ID             int64                  `json:"id"`
	Code           string                 `json:"code"`
	Name           string                 `json:"name"`
	Category       ledger.AccountCategory `json:"category"`
	Nature         ledger.AccountNature   `json:"nature"`
	ParentID       *int64                 `json:"parent_id,omitempty"`
	IsLeaf         bool                   `json:"is_leaf"`
	IsActive       bool                   `json:"is_active"`
	IsCashAccount  bool                   `json:"is_cash_account"`
	IsBankAccount  bool                   `json:"is_bank_account"`
	OpeningBalance decimal.Decimal        `json:"opening_balance"`
	PartnerKind    string                 `json:"partner_kind,omitempty"`
	PartnerID      *int64                 `json:"partner_id,omitempty"`
}

type balanceResponse struct {
	Code    string          `json:"code"`
	Balance decimal.Decimal `json:"balance"`
}

func toAccountResponse(a Account) accountResponse {
	return accountResponse{
		ID:             a.ID,
		Code:           a.Code,
		Name:           a.Name,
		Category:       a.Category,
		Nature:         a.Nature,
		ParentID:       a.ParentID,
		IsLeaf:         a.IsLeaf,
		IsActive:       a.IsActive,
		IsCashAccount:  a.IsCashAccount,
		IsBankAccount:  a.IsBankAccount,
		OpeningBalance: a.OpeningBalance,
		PartnerKind:    a.PartnerKind,
		PartnerID:      a.PartnerID,
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	accounts, err := h.service.List(r.Context(), activeOnly)
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	account, err := h.service.Get(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toAccountResponse(account))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	account, err := h.service.CreateAccount(r.Context(), CreateAccountInput{
		Code:               req.Code,
		Name:               req.Name,
		TypeID:             req.TypeID,
		Category:           req.Category,
		Nature:             req.Nature,
		ParentCode:         req.ParentCode,
		IsCashAccount:      req.IsCashAccount,
		IsBankAccount:      req.IsBankAccount,
		OpeningBalance:     req.OpeningBalance,
		OpeningBalanceDate: req.OpeningBalanceDate,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toAccountResponse(account))
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	opts := BalanceOptions{
		IncludeOpening: r.URL.Query().Get("include_opening") != "false",
		PostedOnly:     r.URL.Query().Get("posted_only") != "false",
	}
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		asOf, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "as_of must be YYYY-MM-DD")
			return
		}
		opts.AsOf = &asOf
	}
	balance, err := h.service.GetBalance(r.Context(), code, opts)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, balanceResponse{Code: code, Balance: balance})
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Deactivate(r.Context(), chi.URLParam(r, "code")); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleEnsurePartnerAccount(w http.ResponseWriter, r *http.Request) {
	var req ensurePartnerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	account, err := h.service.EnsureAccountFor(r.Context(), Partner{Kind: req.Kind, ID: req.ID, Name: req.Name})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toAccountResponse(account))
}

func (h *Handler) handleResolvePayment(w http.ResponseWriter, r *http.Request) {
	account, err := h.resolver.Resolve(r.Context(), chi.URLParam(r, "method"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toAccountResponse(account))
}

func (h *Handler) handleSaveMapping(w http.ResponseWriter, r *http.Request) {
	var req saveMappingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.resolver.SaveMapping(r.Context(), chi.URLParam(r, "method"), req.AccountCode); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeleteMapping(w http.ResponseWriter, r *http.Request) {
	if err := h.resolver.DeleteMapping(r.Context(), chi.URLParam(r, "method")); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrAccountNotFound), errors.Is(err, ErrMappingNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrCodeSpaceExhausted):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error("accounts handler", slog.Any("error", err))
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unprocessable", err.Error())
	}
}
