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

// TransferHandler handles student transfers and parent consents.
type TransferHandler struct {
	errorWriter
	transferService *service.TransferService
	consentService  *service.ConsentService
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(transferService *service.TransferService, consentService *service.ConsentService, log zerolog.Logger) *TransferHandler {
	return &TransferHandler{
		errorWriter:     errorWriter{log: log.With().Str("component", "transfer_handler").Logger()},
		transferService: transferService,
		consentService:  consentService,
	}
}

// ListTransfers godoc
// GET /api/v1/admin/transfers
func (h *TransferHandler) ListTransfers(c *gin.Context) {
	var filter model.ListFilter
	if fields := validator.BindQuery(c, &filter); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	transfers, total, err := h.transferService.List(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"transfers": transfers},
		response.NewPagination(filter.Page, filter.PerPage, total))
}

// GetTransfer godoc
// GET /api/v1/admin/transfers/:id
func (h *TransferHandler) GetTransfer(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "transfer", h.transferService.Get)
}

// CreateTransfer godoc
// POST /api/v1/admin/transfers
// Drafts a transfer; the source class is taken from the student's record.
func (h *TransferHandler) CreateTransfer(c *gin.Context) {
	var req model.StudentTransferRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	transfer, err := h.transferService.Create(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"transfer": transfer})
}

// SubmitTransfer godoc
// POST /api/v1/admin/transfers/:id/submit
func (h *TransferHandler) SubmitTransfer(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "transfer", h.transferService.Submit)
}

// ApproveTransfer godoc
// POST /api/v1/admin/transfers/:id/approve
func (h *TransferHandler) ApproveTransfer(c *gin.Context) {
	actor := middleware.ActorID(c)
	lifecycleAction(c, h.errorWriter, "transfer", func(ctx context.Context, id int) (*model.StudentTransfer, error) {
		return h.transferService.Approve(ctx, id, actor)
	})
}

// RejectTransfer godoc
// POST /api/v1/admin/transfers/:id/reject
func (h *TransferHandler) RejectTransfer(c *gin.Context) {
	var req model.ReasonRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	lifecycleAction(c, h.errorWriter, "transfer", func(ctx context.Context, id int) (*model.StudentTransfer, error) {
		return h.transferService.Reject(ctx, id, req.Reason)
	})
}

// CompleteTransfer godoc
// POST /api/v1/admin/transfers/:id/complete
// Applies an approved transfer to the student record.
func (h *TransferHandler) CompleteTransfer(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "transfer", h.transferService.Complete)
}

// CancelTransfer godoc
// POST /api/v1/admin/transfers/:id/cancel
func (h *TransferHandler) CancelTransfer(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "transfer", h.transferService.Cancel)
}

// ListStudentConsents godoc
// GET /api/v1/admin/students/:id/consents
func (h *TransferHandler) ListStudentConsents(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	consents, err := h.consentService.ListByStudent(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"consents": consents})
}

// ExpiringConsents godoc
// GET /api/v1/admin/consents/expiring
func (h *TransferHandler) ExpiringConsents(c *gin.Context) {
	consents, err := h.consentService.Expiring(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"consents": consents})
}

// GetConsent godoc
// GET /api/v1/admin/consents/:id
func (h *TransferHandler) GetConsent(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "consent", h.consentService.Get)
}

// CreateConsent godoc
// POST /api/v1/admin/consents
func (h *TransferHandler) CreateConsent(c *gin.Context) {
	var req model.ParentConsentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	consent, err := h.consentService.Create(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"consent": consent})
}

// UpdateConsent godoc
// PUT /api/v1/admin/consents/:id
func (h *TransferHandler) UpdateConsent(c *gin.Context) {
	var req model.ParentConsentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	lifecycleAction(c, h.errorWriter, "consent", func(ctx context.Context, id int) (*model.ParentConsent, error) {
		return h.consentService.Update(ctx, id, req)
	})
}

// RevokeConsent godoc
// POST /api/v1/admin/consents/:id/revoke
func (h *TransferHandler) RevokeConsent(c *gin.Context) {
	var req model.ReasonRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	lifecycleAction(c, h.errorWriter, "consent", func(ctx context.Context, id int) (*model.ParentConsent, error) {
		return h.consentService.Revoke(ctx, id, req.Reason)
	})
}
