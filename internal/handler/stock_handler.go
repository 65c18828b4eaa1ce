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

// StockHandler handles the school inventory.
type StockHandler struct {
	errorWriter
	stockService *service.StockService
}

// NewStockHandler creates a new StockHandler.
func NewStockHandler(stockService *service.StockService, log zerolog.Logger) *StockHandler {
	return &StockHandler{
		errorWriter:  errorWriter{log: log.With().Str("component", "stock_handler").Logger()},
		stockService: stockService,
	}
}

// ListItems godoc
// GET /api/v1/admin/stock/items?warehouse=
func (h *StockHandler) ListItems(c *gin.Context) {
	var filter model.ListFilter
	if fields := validator.BindQuery(c, &filter); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	items, total, err := h.stockService.ListItems(c.Request.Context(), filter, c.Query("warehouse"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"items": items},
		response.NewPagination(filter.Page, filter.PerPage, total))
}

// ReorderList godoc
// GET /api/v1/admin/stock/reorder
// Lists active items at or below their reorder level.
func (h *StockHandler) ReorderList(c *gin.Context) {
	items, err := h.stockService.ReorderList(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"items": items})
}

// GetItem godoc
// GET /api/v1/admin/stock/items/:id
func (h *StockHandler) GetItem(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "item", h.stockService.GetItem)
}

// CreateItem godoc
// POST /api/v1/admin/stock/items
func (h *StockHandler) CreateItem(c *gin.Context) {
	var req model.StockItemRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	item, err := h.stockService.CreateItem(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"item": item})
}

// UpdateItem godoc
// PUT /api/v1/admin/stock/items/:id
func (h *StockHandler) UpdateItem(c *gin.Context) {
	var req model.StockItemRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	lifecycleAction(c, h.errorWriter, "item", func(ctx context.Context, id int) (*model.StockItem, error) {
		return h.stockService.UpdateItem(ctx, id, req)
	})
}

// DeleteItem godoc
// DELETE /api/v1/admin/stock/items/:id
func (h *StockHandler) DeleteItem(c *gin.Context) {
	deleteByID(c, h.errorWriter, "item", h.stockService.DeleteItem)
}

// ListEntries godoc
// GET /api/v1/admin/stock/entries?purpose=
func (h *StockHandler) ListEntries(c *gin.Context) {
	var filter model.ListFilter
	if fields := validator.BindQuery(c, &filter); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	entries, total, err := h.stockService.ListEntries(c.Request.Context(), filter, c.Query("purpose"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"entries": entries},
		response.NewPagination(filter.Page, filter.PerPage, total))
}

// GetEntry godoc
// GET /api/v1/admin/stock/entries/:id
func (h *StockHandler) GetEntry(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "entry", h.stockService.GetEntry)
}

// CreateEntry godoc
// POST /api/v1/admin/stock/entries
func (h *StockHandler) CreateEntry(c *gin.Context) {
	var req model.StockEntryRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	entry, err := h.stockService.CreateEntry(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"entry": entry})
}

// DeleteEntry godoc
// DELETE /api/v1/admin/stock/entries/:id
func (h *StockHandler) DeleteEntry(c *gin.Context) {
	deleteByID(c, h.errorWriter, "entry", h.stockService.DeleteEntry)
}

// SubmitEntry godoc
// POST /api/v1/admin/stock/entries/:id/submit
// Applies the movement to item quantities; issues beyond the available
// quantity are refused with INSUFFICIENT_STOCK.
func (h *StockHandler) SubmitEntry(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "entry", h.stockService.SubmitEntry)
}

// CancelEntry godoc
// POST /api/v1/admin/stock/entries/:id/cancel
func (h *StockHandler) CancelEntry(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "entry", h.stockService.CancelEntry)
}
