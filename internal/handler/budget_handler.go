package handler

import (
	"context"
	"net/http"

	"github.com/easygo/easygo-schools/internal/middleware"
	"github.com/easygo/easygo-schools/internal/model"
	"github.com/easygo/easygo-schools/internal/response"
	"github.com/easygo/easygo-schools/internal/service"
	"github.com/easygo/easygo-schools/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// BudgetHandler handles budgets, budget lines and the expenses consuming them.
type BudgetHandler struct {
	errorWriter
	budgetService  *service.BudgetService
	expenseService *service.ExpenseService
}

// NewBudgetHandler creates a new BudgetHandler.
func NewBudgetHandler(budgetService *service.BudgetService, expenseService *service.ExpenseService, log zerolog.Logger) *BudgetHandler {
	return &BudgetHandler{
		errorWriter:    errorWriter{log: log.With().Str("component", "budget_handler").Logger()},
		budgetService:  budgetService,
		expenseService: expenseService,
	}
}

// ListBudgets godoc
// GET /api/v1/admin/budgets
func (h *BudgetHandler) ListBudgets(c *gin.Context) {
	var filter model.ListFilter
	if fields := validator.BindQuery(c, &filter); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	budgets, total, err := h.budgetService.List(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"budgets": budgets},
		response.NewPagination(filter.Page, filter.PerPage, total))
}

// GetBudget godoc
// GET /api/v1/admin/budgets/:id
func (h *BudgetHandler) GetBudget(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "budget", h.budgetService.Get)
}

// CreateBudget godoc
// POST /api/v1/admin/budgets
func (h *BudgetHandler) CreateBudget(c *gin.Context) {
	var req model.BudgetRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	budget, err := h.budgetService.Create(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	successWithWarnings(c, http.StatusCreated, gin.H{"budget": budget}, budget.Warnings)
}

// UpdateBudget godoc
// PUT /api/v1/admin/budgets/:id
func (h *BudgetHandler) UpdateBudget(c *gin.Context) {
	var req model.BudgetRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	budget, err := h.budgetService.Update(c.Request.Context(), id, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	successWithWarnings(c, http.StatusOK, gin.H{"budget": budget}, budget.Warnings)
}

// DeleteBudget godoc
// DELETE /api/v1/admin/budgets/:id
func (h *BudgetHandler) DeleteBudget(c *gin.Context) {
	deleteByID(c, h.errorWriter, "budget", h.budgetService.Delete)
}

// SubmitBudget godoc
// POST /api/v1/admin/budgets/:id/submit
func (h *BudgetHandler) SubmitBudget(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "budget", h.budgetService.Submit)
}

// ApproveBudget godoc
// POST /api/v1/admin/budgets/:id/approve
func (h *BudgetHandler) ApproveBudget(c *gin.Context) {
	actor := middleware.ActorID(c)
	lifecycleAction(c, h.errorWriter, "budget", func(ctx context.Context, id int) (*model.Budget, error) {
		return h.budgetService.Approve(ctx, id, actor)
	})
}

// CancelBudget godoc
// POST /api/v1/admin/budgets/:id/cancel
func (h *BudgetHandler) CancelBudget(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "budget", h.budgetService.Cancel)
}

// GetBudgetLine godoc
// GET /api/v1/admin/budget-lines/:id
func (h *BudgetHandler) GetBudgetLine(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "budget_line", h.budgetService.GetLine)
}

// BudgetLineAlerts godoc
// GET /api/v1/admin/budget-lines/:id/alerts
func (h *BudgetHandler) BudgetLineAlerts(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "alerts", h.budgetService.ListAlerts)
}

// BudgetLineRevisions godoc
// GET /api/v1/admin/budget-lines/:id/revisions
func (h *BudgetHandler) BudgetLineRevisions(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "revisions", h.budgetService.ListRevisions)
}

// CheckAvailability godoc
// GET /api/v1/admin/budget-lines/:id/availability?amount=
func (h *BudgetHandler) CheckAvailability(c *gin.Context) {
	var req model.AvailabilityRequest
	if fields := validator.BindQuery(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	lifecycleAction(c, h.errorWriter, "availability", func(ctx context.Context, id int) (*model.BudgetAvailability, error) {
		return h.budgetService.CheckAvailability(ctx, id, req.Amount)
	})
}

// ReallocateBudgetLine godoc
// POST /api/v1/admin/budget-lines/:id/reallocate
// Changes the line's allocation and logs a revision.
func (h *BudgetHandler) ReallocateBudgetLine(c *gin.Context) {
	var req model.ReallocateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	actor := middleware.ActorID(c)
	lifecycleAction(c, h.errorWriter, "budget_line", func(ctx context.Context, id int) (*model.BudgetLine, error) {
		return h.budgetService.Reallocate(ctx, id, req.NewAmount, req.Reason, actor)
	})
}

// RefreshBudgetLine godoc
// POST /api/v1/admin/budget-lines/:id/refresh
// Recomputes consumption from approved expenses and raises threshold alerts.
func (h *BudgetHandler) RefreshBudgetLine(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "budget_line", h.budgetService.UpdateConsumed)
}

// ListExpenses godoc
// GET /api/v1/admin/expenses
func (h *BudgetHandler) ListExpenses(c *gin.Context) {
	var filter model.ExpenseFilter
	if fields := validator.BindQuery(c, &filter); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	expenses, total, err := h.expenseService.List(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"expenses": expenses},
		response.NewPagination(filter.Page, filter.PerPage, total))
}

// GetExpense godoc
// GET /api/v1/admin/expenses/:id
func (h *BudgetHandler) GetExpense(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "expense", h.expenseService.Get)
}

// CreateExpense godoc
// POST /api/v1/admin/expenses
func (h *BudgetHandler) CreateExpense(c *gin.Context) {
	var req model.ExpenseEntryRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	expense, err := h.expenseService.Create(c.Request.Context(), req, middleware.ActorID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	successWithWarnings(c, http.StatusCreated, gin.H{"expense": expense}, expense.Warnings)
}

// UpdateExpense godoc
// PUT /api/v1/admin/expenses/:id
func (h *BudgetHandler) UpdateExpense(c *gin.Context) {
	var req model.ExpenseEntryRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	expense, err := h.expenseService.Update(c.Request.Context(), id, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	successWithWarnings(c, http.StatusOK, gin.H{"expense": expense}, expense.Warnings)
}

// DeleteExpense godoc
// DELETE /api/v1/admin/expenses/:id
func (h *BudgetHandler) DeleteExpense(c *gin.Context) {
	deleteByID(c, h.errorWriter, "expense", h.expenseService.Delete)
}

// SubmitExpense godoc
// POST /api/v1/admin/expenses/:id/submit
// Sends the expense for approval and notifies the approvers.
func (h *BudgetHandler) SubmitExpense(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "expense", h.expenseService.SubmitForApproval)
}

// ApproveExpense godoc
// POST /api/v1/admin/expenses/:id/approve
func (h *BudgetHandler) ApproveExpense(c *gin.Context) {
	actor := middleware.ActorID(c)
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	expense, err := h.expenseService.Approve(c.Request.Context(), id, actor)
	if err != nil {
		h.fail(c, err)
		return
	}
	successWithWarnings(c, http.StatusOK, gin.H{"expense": expense}, expense.Warnings)
}

// RejectExpense godoc
// POST /api/v1/admin/expenses/:id/reject
func (h *BudgetHandler) RejectExpense(c *gin.Context) {
	var req model.ReasonRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	lifecycleAction(c, h.errorWriter, "expense", func(ctx context.Context, id int) (*model.ExpenseEntry, error) {
		return h.expenseService.Reject(ctx, id, req.Reason)
	})
}

// PayExpense godoc
// POST /api/v1/admin/expenses/:id/pay
func (h *BudgetHandler) PayExpense(c *gin.Context) {
	var req model.MarkPaidRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	lifecycleAction(c, h.errorWriter, "expense", func(ctx context.Context, id int) (*model.ExpenseEntry, error) {
		return h.expenseService.MarkAsPaid(ctx, id, req.PaymentReference)
	})
}

// CancelExpense godoc
// POST /api/v1/admin/expenses/:id/cancel
func (h *BudgetHandler) CancelExpense(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "expense", h.expenseService.Cancel)
}
