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

// FeeHandler handles student fee bills and the payments settling them.
type FeeHandler struct {
	errorWriter
	billService    *service.FeeBillService
	paymentService *service.PaymentService
}

// NewFeeHandler creates a new FeeHandler.
func NewFeeHandler(billService *service.FeeBillService, paymentService *service.PaymentService, log zerolog.Logger) *FeeHandler {
	return &FeeHandler{
		errorWriter:    errorWriter{log: log.With().Str("component", "fee_handler").Logger()},
		billService:    billService,
		paymentService: paymentService,
	}
}

// ListBills godoc
// GET /api/v1/admin/fee-bills
func (h *FeeHandler) ListBills(c *gin.Context) {
	var filter model.FeeBillFilter
	if fields := validator.BindQuery(c, &filter); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	bills, total, err := h.billService.List(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"fee_bills": bills},
		response.NewPagination(filter.Page, filter.PerPage, total))
}

// GetBill godoc
// GET /api/v1/admin/fee-bills/:id
func (h *FeeHandler) GetBill(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "fee_bill", h.billService.Get)
}

// CreateBill godoc
// POST /api/v1/admin/fee-bills
// Drafts a bill. The total is the sum of the items and the due date defaults
// to the bill date plus the configured payment terms.
func (h *FeeHandler) CreateBill(c *gin.Context) {
	var req model.FeeBillRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	bill, err := h.billService.Create(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"fee_bill": bill})
}

// UpdateBill godoc
// PUT /api/v1/admin/fee-bills/:id
func (h *FeeHandler) UpdateBill(c *gin.Context) {
	var req model.FeeBillRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	lifecycleAction(c, h.errorWriter, "fee_bill", func(ctx context.Context, id int) (*model.FeeBill, error) {
		return h.billService.Update(ctx, id, req)
	})
}

// DeleteBill godoc
// DELETE /api/v1/admin/fee-bills/:id
func (h *FeeHandler) DeleteBill(c *gin.Context) {
	deleteByID(c, h.errorWriter, "fee bill", h.billService.Delete)
}

// SubmitBill godoc
// POST /api/v1/admin/fee-bills/:id/submit
// Posts the receivable to the ledger and notifies the guardian.
func (h *FeeHandler) SubmitBill(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "fee_bill", h.billService.Submit)
}

// CancelBill godoc
// POST /api/v1/admin/fee-bills/:id/cancel
func (h *FeeHandler) CancelBill(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "fee_bill", h.billService.Cancel)
}

// ListPayments godoc
// GET /api/v1/admin/payments
func (h *FeeHandler) ListPayments(c *gin.Context) {
	var filter model.ListFilter
	if fields := validator.BindQuery(c, &filter); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	payments, total, err := h.paymentService.List(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"payments": payments},
		response.NewPagination(filter.Page, filter.PerPage, total))
}

// PaymentHistory godoc
// GET /api/v1/admin/students/:id/payments
func (h *FeeHandler) PaymentHistory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	payments, err := h.paymentService.History(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"payments": payments})
}

// GetPayment godoc
// GET /api/v1/admin/payments/:id
func (h *FeeHandler) GetPayment(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "payment", h.paymentService.Get)
}

// CreatePayment godoc
// POST /api/v1/admin/payments
// Records a payment against a submitted bill. Paying more than the
// outstanding amount is accepted with a warning.
func (h *FeeHandler) CreatePayment(c *gin.Context) {
	var req model.PaymentEntryRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	payment, err := h.paymentService.Create(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	successWithWarnings(c, http.StatusCreated, gin.H{"payment": payment}, payment.Warnings)
}

// DeletePayment godoc
// DELETE /api/v1/admin/payments/:id
func (h *FeeHandler) DeletePayment(c *gin.Context) {
	deleteByID(c, h.errorWriter, "payment", h.paymentService.Delete)
}

// SubmitPayment godoc
// POST /api/v1/admin/payments/:id/submit
// Issues the receipt number, posts cash against the receivable and updates
// the bill's outstanding amount.
func (h *FeeHandler) SubmitPayment(c *gin.Context) {
	actor := middleware.ActorID(c)
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	payment, err := h.paymentService.Submit(c.Request.Context(), id, actor)
	if err != nil {
		h.fail(c, err)
		return
	}
	successWithWarnings(c, http.StatusOK, gin.H{"payment": payment}, payment.Warnings)
}

// VerifyPayment godoc
// POST /api/v1/admin/payments/:id/verify
func (h *FeeHandler) VerifyPayment(c *gin.Context) {
	actor := middleware.ActorID(c)
	lifecycleAction(c, h.errorWriter, "payment", func(ctx context.Context, id int) (*model.PaymentEntry, error) {
		return h.paymentService.Verify(ctx, id, actor)
	})
}

// RejectPayment godoc
// POST /api/v1/admin/payments/:id/reject
func (h *FeeHandler) RejectPayment(c *gin.Context) {
	var req model.ReasonRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	lifecycleAction(c, h.errorWriter, "payment", func(ctx context.Context, id int) (*model.PaymentEntry, error) {
		return h.paymentService.Reject(ctx, id, req.Reason)
	})
}

// CancelPayment godoc
// POST /api/v1/admin/payments/:id/cancel
func (h *FeeHandler) CancelPayment(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "payment", h.paymentService.Cancel)
}

// PaymentReceipt godoc
// GET /api/v1/admin/payments/:id/receipt
func (h *FeeHandler) PaymentReceipt(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "receipt", h.paymentService.Receipt)
}
