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

// CommunicationHandler handles the outbound communication log.
type CommunicationHandler struct {
	errorWriter
	communicationService *service.CommunicationService
}

// NewCommunicationHandler creates a new CommunicationHandler.
func NewCommunicationHandler(communicationService *service.CommunicationService, log zerolog.Logger) *CommunicationHandler {
	return &CommunicationHandler{
		errorWriter:          errorWriter{log: log.With().Str("component", "communication_handler").Logger()},
		communicationService: communicationService,
	}
}

// ListCommunications godoc
// GET /api/v1/admin/communications?reference_type=&reference_id=
func (h *CommunicationHandler) ListCommunications(c *gin.Context) {
	var filter model.ListFilter
	if fields := validator.BindQuery(c, &filter); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	referenceID, ok := queryID(c, "reference_id")
	if !ok {
		return
	}
	logs, total, err := h.communicationService.List(c.Request.Context(), filter, c.Query("reference_type"), referenceID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"communications": logs},
		response.NewPagination(filter.Page, filter.PerPage, total))
}

// GetCommunication godoc
// GET /api/v1/admin/communications/:id
func (h *CommunicationHandler) GetCommunication(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "communication", h.communicationService.Get)
}

// CreateCommunication godoc
// POST /api/v1/admin/communications
func (h *CommunicationHandler) CreateCommunication(c *gin.Context) {
	var req model.CommunicationRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	log, err := h.communicationService.Create(c.Request.Context(), req, middleware.ActorID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"communication": log})
}

// UpdateCommunication godoc
// PUT /api/v1/admin/communications/:id
func (h *CommunicationHandler) UpdateCommunication(c *gin.Context) {
	var req model.CommunicationRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	lifecycleAction(c, h.errorWriter, "communication", func(ctx context.Context, id int) (*model.CommunicationLog, error) {
		return h.communicationService.Update(ctx, id, req)
	})
}

// DeleteCommunication godoc
// DELETE /api/v1/admin/communications/:id
func (h *CommunicationHandler) DeleteCommunication(c *gin.Context) {
	deleteByID(c, h.errorWriter, "communication", h.communicationService.Delete)
}

// SendCommunication godoc
// POST /api/v1/admin/communications/:id/send
// Email goes through the mailer; other channels are marked sent directly.
func (h *CommunicationHandler) SendCommunication(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "communication", h.communicationService.Send)
}

// MarkSent godoc
// POST /api/v1/admin/communications/:id/sent
func (h *CommunicationHandler) MarkSent(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "communication", h.communicationService.MarkAsSent)
}

// MarkDelivered godoc
// POST /api/v1/admin/communications/:id/delivered
func (h *CommunicationHandler) MarkDelivered(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "communication", h.communicationService.MarkAsDelivered)
}

// MarkRead godoc
// POST /api/v1/admin/communications/:id/read
func (h *CommunicationHandler) MarkRead(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "communication", h.communicationService.MarkAsRead)
}

// MarkFailed godoc
// POST /api/v1/admin/communications/:id/failed
func (h *CommunicationHandler) MarkFailed(c *gin.Context) {
	var req model.FailureRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	lifecycleAction(c, h.errorWriter, "communication", func(ctx context.Context, id int) (*model.CommunicationLog, error) {
		return h.communicationService.MarkAsFailed(ctx, id, req.Error)
	})
}

// RetryCommunication godoc
// POST /api/v1/admin/communications/:id/retry
// Resends a failed communication until the retry limit is reached.
func (h *CommunicationHandler) RetryCommunication(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "communication", h.communicationService.Retry)
}
