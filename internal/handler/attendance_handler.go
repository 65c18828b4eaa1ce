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

// periodQuery is the from/to window of summary endpoints.
type periodQuery struct {
	From *model.Date `form:"from" binding:"required"`
	To   *model.Date `form:"to" binding:"required"`
}

// AttendanceHandler handles daily student attendance.
type AttendanceHandler struct {
	errorWriter
	attendanceService *service.AttendanceService
}

// NewAttendanceHandler creates a new AttendanceHandler.
func NewAttendanceHandler(attendanceService *service.AttendanceService, log zerolog.Logger) *AttendanceHandler {
	return &AttendanceHandler{
		errorWriter:       errorWriter{log: log.With().Str("component", "attendance_handler").Logger()},
		attendanceService: attendanceService,
	}
}

// ListAttendance godoc
// GET /api/v1/admin/attendance
func (h *AttendanceHandler) ListAttendance(c *gin.Context) {
	var filter model.AttendanceFilter
	if fields := validator.BindQuery(c, &filter); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	marks, total, err := h.attendanceService.List(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"attendance": marks},
		response.NewPagination(filter.Page, filter.PerPage, total))
}

// AttendanceSummary godoc
// GET /api/v1/admin/attendance/summary?from=&to=&school_class_id=
func (h *AttendanceHandler) AttendanceSummary(c *gin.Context) {
	var q periodQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	classID, ok := queryID(c, "school_class_id")
	if !ok {
		return
	}
	summary, err := h.attendanceService.Summary(c.Request.Context(), classID, *q.From, *q.To)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"summary": summary})
}

// GetAttendance godoc
// GET /api/v1/admin/attendance/:id
func (h *AttendanceHandler) GetAttendance(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "attendance", h.attendanceService.Get)
}

// MarkAttendance godoc
// POST /api/v1/admin/attendance
// Records one student's status for a day. The mark is published on the live
// attendance feed.
func (h *AttendanceHandler) MarkAttendance(c *gin.Context) {
	var req model.StudentAttendanceRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	mark, err := h.attendanceService.Mark(c.Request.Context(), req, middleware.ActorID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"attendance": mark})
}

// BulkMarkAttendance godoc
// POST /api/v1/admin/attendance/bulk
// Marks a whole class for one date, replacing marks already taken that day.
func (h *AttendanceHandler) BulkMarkAttendance(c *gin.Context) {
	var req model.BulkAttendanceRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	marks, err := h.attendanceService.BulkMark(c.Request.Context(), req, middleware.ActorID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"attendance": marks, "count": len(marks)})
}

// UpdateAttendance godoc
// PUT /api/v1/admin/attendance/:id
func (h *AttendanceHandler) UpdateAttendance(c *gin.Context) {
	var req model.StudentAttendanceRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	actor := middleware.ActorID(c)
	lifecycleAction(c, h.errorWriter, "attendance", func(ctx context.Context, id int) (*model.StudentAttendance, error) {
		return h.attendanceService.Update(ctx, id, req, actor)
	})
}

// DeleteAttendance godoc
// DELETE /api/v1/admin/attendance/:id
func (h *AttendanceHandler) DeleteAttendance(c *gin.Context) {
	deleteByID(c, h.errorWriter, "attendance", h.attendanceService.Delete)
}
