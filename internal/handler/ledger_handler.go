package handler

import (
	"context"
	"net/http"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/easygo/easygo-schools/internal/response"
	"github.com/easygo/easygo-schools/internal/service"
	"github.com/easygo/easygo-schools/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// LedgerHandler handles the chart of accounts and the general ledger.
type LedgerHandler struct {
	errorWriter
	ledgerService *service.LedgerService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerService *service.LedgerService, log zerolog.Logger) *LedgerHandler {
	return &LedgerHandler{
		errorWriter:   errorWriter{log: log.With().Str("component", "ledger_handler").Logger()},
		ledgerService: ledgerService,
	}
}

// ListAccounts godoc
// GET /api/v1/admin/accounts
func (h *LedgerHandler) ListAccounts(c *gin.Context) {
	var filter model.ListFilter
	if fields := validator.BindQuery(c, &filter); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	accounts, err := h.ledgerService.ListAccounts(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"accounts": accounts})
}

// GetAccount godoc
// GET /api/v1/admin/accounts/:id
func (h *LedgerHandler) GetAccount(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "account", h.ledgerService.GetAccount)
}

// CreateAccount godoc
// POST /api/v1/admin/accounts
func (h *LedgerHandler) CreateAccount(c *gin.Context) {
	var req model.SchoolAccountRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	account, err := h.ledgerService.CreateAccount(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"account": account})
}

// UpdateAccount godoc
// PUT /api/v1/admin/accounts/:id
func (h *LedgerHandler) UpdateAccount(c *gin.Context) {
	var req model.SchoolAccountRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	lifecycleAction(c, h.errorWriter, "account", func(ctx context.Context, id int) (*model.SchoolAccount, error) {
		return h.ledgerService.UpdateAccount(ctx, id, req)
	})
}

// DeleteAccount godoc
// DELETE /api/v1/admin/accounts/:id
func (h *LedgerHandler) DeleteAccount(c *gin.Context) {
	deleteByID(c, h.errorWriter, "account", h.ledgerService.DeleteAccount)
}

// AccountBalance godoc
// GET /api/v1/admin/accounts/:id/balance?from=&to=
func (h *LedgerHandler) AccountBalance(c *gin.Context) {
	var q struct {
		From *model.Date `form:"from"`
		To   *model.Date `form:"to"`
	}
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	lifecycleAction(c, h.errorWriter, "balance", func(ctx context.Context, id int) (*model.AccountBalance, error) {
		return h.ledgerService.AccountBalance(ctx, id, q.From, q.To)
	})
}

// AccountBudgetSummary godoc
// GET /api/v1/admin/accounts/:id/budget-summary
func (h *LedgerHandler) AccountBudgetSummary(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "budget_summary", h.ledgerService.BudgetSummary)
}

// TrialBalance godoc
// GET /api/v1/admin/ledger/trial-balance?from=&to=
func (h *LedgerHandler) TrialBalance(c *gin.Context) {
	var q periodQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	rows, err := h.ledgerService.TrialBalance(c.Request.Context(), *q.From, *q.To)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"trial_balance": rows})
}

// ListEntries godoc
// GET /api/v1/admin/ledger
func (h *LedgerHandler) ListEntries(c *gin.Context) {
	var filter model.LedgerFilter
	if fields := validator.BindQuery(c, &filter); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	entries, total, err := h.ledgerService.ListEntries(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"entries": entries},
		response.NewPagination(filter.Page, filter.PerPage, total))
}

// GetEntry godoc
// GET /api/v1/admin/ledger/:id
func (h *LedgerHandler) GetEntry(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "entry", h.ledgerService.GetEntry)
}

// PostJournal godoc
// POST /api/v1/admin/ledger
// Posts a manual journal entry on one side of an account.
func (h *LedgerHandler) PostJournal(c *gin.Context) {
	var req model.LedgerEntryRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	entry, err := h.ledgerService.PostJournal(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"entry": entry})
}

// CancelJournal godoc
// POST /api/v1/admin/ledger/:id/cancel
// Only manual entries can be cancelled here; voucher postings follow their
// voucher.
func (h *LedgerHandler) CancelJournal(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.ledgerService.CancelJournal(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "entry cancelled successfully"})
}
