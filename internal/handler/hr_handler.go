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

// HRHandler handles employees, staff attendance and salary slips.
type HRHandler struct {
	errorWriter
	employeeService   *service.EmployeeService
	hrAttendance      *service.HRAttendanceService
	salarySlipService *service.SalarySlipService
}

// NewHRHandler creates a new HRHandler.
func NewHRHandler(
	employeeService *service.EmployeeService,
	hrAttendance *service.HRAttendanceService,
	salarySlipService *service.SalarySlipService,
	log zerolog.Logger,
) *HRHandler {
	return &HRHandler{
		errorWriter:       errorWriter{log: log.With().Str("component", "hr_handler").Logger()},
		employeeService:   employeeService,
		hrAttendance:      hrAttendance,
		salarySlipService: salarySlipService,
	}
}

// ListEmployees godoc
// GET /api/v1/admin/employees
func (h *HRHandler) ListEmployees(c *gin.Context) {
	var filter model.ListFilter
	if fields := validator.BindQuery(c, &filter); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	employees, total, err := h.employeeService.List(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"employees": employees},
		response.NewPagination(filter.Page, filter.PerPage, total))
}

// GetEmployee godoc
// GET /api/v1/admin/employees/:id
func (h *HRHandler) GetEmployee(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "employee", h.employeeService.GetByID)
}

// CreateEmployee godoc
// POST /api/v1/admin/employees
func (h *HRHandler) CreateEmployee(c *gin.Context) {
	var req model.EmployeeRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	employee, err := h.employeeService.Create(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"employee": employee})
}

// UpdateEmployee godoc
// PUT /api/v1/admin/employees/:id
func (h *HRHandler) UpdateEmployee(c *gin.Context) {
	var req model.EmployeeRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	lifecycleAction(c, h.errorWriter, "employee", func(ctx context.Context, id int) (*model.Employee, error) {
		return h.employeeService.Update(ctx, id, req)
	})
}

// DeleteEmployee godoc
// DELETE /api/v1/admin/employees/:id
func (h *HRHandler) DeleteEmployee(c *gin.Context) {
	deleteByID(c, h.errorWriter, "employee", h.employeeService.Delete)
}

// ListHRAttendance godoc
// GET /api/v1/admin/hr-attendance?employee_id=&from=&to=
func (h *HRHandler) ListHRAttendance(c *gin.Context) {
	var q struct {
		model.ListFilter
		EmployeeID *int        `form:"employee_id"`
		From       *model.Date `form:"from"`
		To         *model.Date `form:"to"`
	}
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	rows, total, err := h.hrAttendance.List(c.Request.Context(), q.ListFilter, q.EmployeeID, q.From, q.To)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"attendance": rows},
		response.NewPagination(q.Page, q.PerPage, total))
}

// HRAttendanceSummary godoc
// GET /api/v1/admin/hr-attendance/summary?from=&to=&employee_id=
func (h *HRHandler) HRAttendanceSummary(c *gin.Context) {
	var q periodQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	employeeID, ok := queryID(c, "employee_id")
	if !ok {
		return
	}
	summary, err := h.hrAttendance.Summary(c.Request.Context(), employeeID, *q.From, *q.To)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"summary": summary})
}

// GetHRAttendance godoc
// GET /api/v1/admin/hr-attendance/:id
func (h *HRHandler) GetHRAttendance(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "attendance", h.hrAttendance.Get)
}

// MarkHRAttendance godoc
// POST /api/v1/admin/hr-attendance
// Records an employee's day; working hours and late arrival are derived from
// the in and out times.
func (h *HRHandler) MarkHRAttendance(c *gin.Context) {
	var req model.HRAttendanceRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	row, err := h.hrAttendance.Mark(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"attendance": row})
}

// BulkMarkHRAttendance godoc
// POST /api/v1/admin/hr-attendance/bulk
func (h *HRHandler) BulkMarkHRAttendance(c *gin.Context) {
	var req model.BulkHRAttendanceRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	rows, err := h.hrAttendance.BulkMark(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"attendance": rows, "count": len(rows)})
}

// UpdateHRAttendance godoc
// PUT /api/v1/admin/hr-attendance/:id
func (h *HRHandler) UpdateHRAttendance(c *gin.Context) {
	var req model.HRAttendanceRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	lifecycleAction(c, h.errorWriter, "attendance", func(ctx context.Context, id int) (*model.HRAttendance, error) {
		return h.hrAttendance.Update(ctx, id, req)
	})
}

// DeleteHRAttendance godoc
// DELETE /api/v1/admin/hr-attendance/:id
func (h *HRHandler) DeleteHRAttendance(c *gin.Context) {
	deleteByID(c, h.errorWriter, "attendance", h.hrAttendance.Delete)
}

// ApproveHRAttendance godoc
// POST /api/v1/admin/hr-attendance/:id/approve
func (h *HRHandler) ApproveHRAttendance(c *gin.Context) {
	actor := middleware.ActorID(c)
	lifecycleAction(c, h.errorWriter, "attendance", func(ctx context.Context, id int) (*model.HRAttendance, error) {
		return h.hrAttendance.Approve(ctx, id, actor)
	})
}

// RejectHRAttendance godoc
// POST /api/v1/admin/hr-attendance/:id/reject
func (h *HRHandler) RejectHRAttendance(c *gin.Context) {
	var req model.ReasonRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	actor := middleware.ActorID(c)
	lifecycleAction(c, h.errorWriter, "attendance", func(ctx context.Context, id int) (*model.HRAttendance, error) {
		return h.hrAttendance.Reject(ctx, id, req.Reason, actor)
	})
}

// ListSalarySlips godoc
// GET /api/v1/admin/salary-slips?employee_id=
func (h *HRHandler) ListSalarySlips(c *gin.Context) {
	var filter model.ListFilter
	if fields := validator.BindQuery(c, &filter); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	employeeID, ok := queryID(c, "employee_id")
	if !ok {
		return
	}
	slips, total, err := h.salarySlipService.List(c.Request.Context(), filter, employeeID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"salary_slips": slips},
		response.NewPagination(filter.Page, filter.PerPage, total))
}

// GetSalarySlip godoc
// GET /api/v1/admin/salary-slips/:id
func (h *HRHandler) GetSalarySlip(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "salary_slip", h.salarySlipService.Get)
}

// CreateSalarySlip godoc
// POST /api/v1/admin/salary-slips
// Drafts a slip for a period; working and payment days come from HR
// attendance.
func (h *HRHandler) CreateSalarySlip(c *gin.Context) {
	var req model.SalarySlipRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	slip, err := h.salarySlipService.Create(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	successWithWarnings(c, http.StatusCreated, gin.H{"salary_slip": slip}, slip.Warnings)
}

// UpdateSalarySlip godoc
// PUT /api/v1/admin/salary-slips/:id
func (h *HRHandler) UpdateSalarySlip(c *gin.Context) {
	var req model.SalarySlipRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	slip, err := h.salarySlipService.Update(c.Request.Context(), id, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	successWithWarnings(c, http.StatusOK, gin.H{"salary_slip": slip}, slip.Warnings)
}

// DeleteSalarySlip godoc
// DELETE /api/v1/admin/salary-slips/:id
func (h *HRHandler) DeleteSalarySlip(c *gin.Context) {
	deleteByID(c, h.errorWriter, "salary slip", h.salarySlipService.Delete)
}

// SubmitSalarySlip godoc
// POST /api/v1/admin/salary-slips/:id/submit
// Posts the salary expense and mails the slip to the employee.
func (h *HRHandler) SubmitSalarySlip(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "salary_slip", h.salarySlipService.Submit)
}

// CancelSalarySlip godoc
// POST /api/v1/admin/salary-slips/:id/cancel
func (h *HRHandler) CancelSalarySlip(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "salary_slip", h.salarySlipService.Cancel)
}
