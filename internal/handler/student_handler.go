package handler

import (
	"net/http"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/easygo/easygo-schools/internal/response"
	"github.com/easygo/easygo-schools/internal/service"
	"github.com/easygo/easygo-schools/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// StudentHandler handles student and guardian records.
type StudentHandler struct {
	errorWriter
	studentService *service.StudentService
}

// NewStudentHandler creates a new StudentHandler.
func NewStudentHandler(studentService *service.StudentService, log zerolog.Logger) *StudentHandler {
	return &StudentHandler{
		errorWriter:    errorWriter{log: log.With().Str("component", "student_handler").Logger()},
		studentService: studentService,
	}
}

// ListStudents godoc
// GET /api/v1/admin/students
// Lists students with pagination, optionally filtered by school_class_id,
// status and a search on names and MASSAR code.
func (h *StudentHandler) ListStudents(c *gin.Context) {
	var filter model.StudentFilter
	if fields := validator.BindQuery(c, &filter); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	students, total, err := h.studentService.List(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"students": students},
		response.NewPagination(filter.Page, filter.PerPage, total))
}

// GetStudent godoc
// GET /api/v1/admin/students/:id
func (h *StudentHandler) GetStudent(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	student, err := h.studentService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"student": student})
}

// GetStudentByMassar godoc
// GET /api/v1/admin/students/massar/:code
func (h *StudentHandler) GetStudentByMassar(c *gin.Context) {
	student, err := h.studentService.GetByMassar(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"student": student})
}

// CreateStudent godoc
// POST /api/v1/admin/students
// Enrolls a student. Age and enrollment-date anomalies come back as warnings.
func (h *StudentHandler) CreateStudent(c *gin.Context) {
	var req model.StudentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	student, err := h.studentService.Create(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	successWithWarnings(c, http.StatusCreated, gin.H{"student": student}, student.Warnings)
}

// UpdateStudent godoc
// PUT /api/v1/admin/students/:id
func (h *StudentHandler) UpdateStudent(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req model.StudentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	student, err := h.studentService.Update(c.Request.Context(), id, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	successWithWarnings(c, http.StatusOK, gin.H{"student": student}, student.Warnings)
}

// DeleteStudent godoc
// DELETE /api/v1/admin/students/:id
func (h *StudentHandler) DeleteStudent(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.studentService.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "student deleted successfully"})
}

// StudentGuardians godoc
// GET /api/v1/admin/students/:id/guardians
func (h *StudentHandler) StudentGuardians(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	guardians, err := h.studentService.Guardians(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"guardians": guardians})
}

// ListGuardians godoc
// GET /api/v1/admin/guardians
func (h *StudentHandler) ListGuardians(c *gin.Context) {
	var filter model.ListFilter
	if fields := validator.BindQuery(c, &filter); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	guardians, total, err := h.studentService.ListGuardians(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"guardians": guardians},
		response.NewPagination(filter.Page, filter.PerPage, total))
}

// GetGuardian godoc
// GET /api/v1/admin/guardians/:id
func (h *StudentHandler) GetGuardian(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	guardian, err := h.studentService.GetGuardian(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"guardian": guardian})
}

// CreateGuardian godoc
// POST /api/v1/admin/guardians
func (h *StudentHandler) CreateGuardian(c *gin.Context) {
	var req model.GuardianRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	guardian, err := h.studentService.CreateGuardian(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"guardian": guardian})
}

// UpdateGuardian godoc
// PUT /api/v1/admin/guardians/:id
func (h *StudentHandler) UpdateGuardian(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req model.GuardianRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	guardian, err := h.studentService.UpdateGuardian(c.Request.Context(), id, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"guardian": guardian})
}

// DeleteGuardian godoc
// DELETE /api/v1/admin/guardians/:id
func (h *StudentHandler) DeleteGuardian(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.studentService.DeleteGuardian(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "guardian deleted successfully"})
}
