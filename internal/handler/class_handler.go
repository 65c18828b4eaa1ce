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

// ClassHandler handles the academic calendar, classes and course schedules.
type ClassHandler struct {
	errorWriter
	academicService *service.AcademicService
	classService    *service.ClassService
	scheduleService *service.ScheduleService
}

// NewClassHandler creates a new ClassHandler.
func NewClassHandler(
	academicService *service.AcademicService,
	classService *service.ClassService,
	scheduleService *service.ScheduleService,
	log zerolog.Logger,
) *ClassHandler {
	return &ClassHandler{
		errorWriter:     errorWriter{log: log.With().Str("component", "class_handler").Logger()},
		academicService: academicService,
		classService:    classService,
		scheduleService: scheduleService,
	}
}

// ListAcademicYears godoc
// GET /api/v1/admin/academic-years
func (h *ClassHandler) ListAcademicYears(c *gin.Context) {
	years, err := h.academicService.ListYears(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"academic_years": years})
}

// CurrentAcademicYear godoc
// GET /api/v1/admin/academic-years/current
func (h *ClassHandler) CurrentAcademicYear(c *gin.Context) {
	year, err := h.academicService.DefaultYear(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"academic_year": year})
}

// CreateAcademicYear godoc
// POST /api/v1/admin/academic-years
func (h *ClassHandler) CreateAcademicYear(c *gin.Context) {
	var req model.AcademicYearRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	year, err := h.academicService.CreateYear(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"academic_year": year})
}

// UpdateAcademicYear godoc
// PUT /api/v1/admin/academic-years/:id
func (h *ClassHandler) UpdateAcademicYear(c *gin.Context) {
	var req model.AcademicYearRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	lifecycleAction(c, h.errorWriter, "academic_year", func(ctx context.Context, id int) (*model.AcademicYear, error) {
		return h.academicService.UpdateYear(ctx, id, req)
	})
}

// DeleteAcademicYear godoc
// DELETE /api/v1/admin/academic-years/:id
func (h *ClassHandler) DeleteAcademicYear(c *gin.Context) {
	deleteByID(c, h.errorWriter, "academic year", h.academicService.DeleteYear)
}

// ListTerms godoc
// GET /api/v1/admin/academic-years/:id/terms
func (h *ClassHandler) ListTerms(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	terms, err := h.academicService.ListTerms(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"terms": terms})
}

// CreateTerm godoc
// POST /api/v1/admin/terms
func (h *ClassHandler) CreateTerm(c *gin.Context) {
	var req model.AcademicTermRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	term, err := h.academicService.CreateTerm(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"term": term})
}

// UpdateTerm godoc
// PUT /api/v1/admin/terms/:id
func (h *ClassHandler) UpdateTerm(c *gin.Context) {
	var req model.AcademicTermRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	lifecycleAction(c, h.errorWriter, "term", func(ctx context.Context, id int) (*model.AcademicTerm, error) {
		return h.academicService.UpdateTerm(ctx, id, req)
	})
}

// DeleteTerm godoc
// DELETE /api/v1/admin/terms/:id
func (h *ClassHandler) DeleteTerm(c *gin.Context) {
	deleteByID(c, h.errorWriter, "term", h.academicService.DeleteTerm)
}

// ListClasses godoc
// GET /api/v1/admin/classes
// Lists classes, optionally restricted to one academic_year_id.
func (h *ClassHandler) ListClasses(c *gin.Context) {
	yearID, ok := queryID(c, "academic_year_id")
	if !ok {
		return
	}
	classes, err := h.classService.List(c.Request.Context(), yearID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"classes": classes})
}

// GetClass godoc
// GET /api/v1/admin/classes/:id
func (h *ClassHandler) GetClass(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "class", h.classService.GetByID)
}

// CreateClass godoc
// POST /api/v1/admin/classes
func (h *ClassHandler) CreateClass(c *gin.Context) {
	var req model.SchoolClassRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	class, err := h.classService.Create(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"class": class})
}

// UpdateClass godoc
// PUT /api/v1/admin/classes/:id
func (h *ClassHandler) UpdateClass(c *gin.Context) {
	var req model.SchoolClassRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	lifecycleAction(c, h.errorWriter, "class", func(ctx context.Context, id int) (*model.SchoolClass, error) {
		return h.classService.Update(ctx, id, req)
	})
}

// DeleteClass godoc
// DELETE /api/v1/admin/classes/:id
func (h *ClassHandler) DeleteClass(c *gin.Context) {
	deleteByID(c, h.errorWriter, "class", h.classService.Delete)
}

// ClassTimetable godoc
// GET /api/v1/admin/classes/:id/timetable
func (h *ClassHandler) ClassTimetable(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "timetable", h.scheduleService.ClassTimetable)
}

// InstructorTimetable godoc
// GET /api/v1/admin/employees/:id/timetable
func (h *ClassHandler) InstructorTimetable(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "timetable", h.scheduleService.InstructorTimetable)
}

// GetSchedule godoc
// GET /api/v1/admin/schedules/:id
func (h *ClassHandler) GetSchedule(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "schedule", h.scheduleService.Get)
}

// CreateSchedule godoc
// POST /api/v1/admin/schedules
// Adds a weekly slot; overlapping slots for the class or the instructor are
// refused with SCHEDULE_CONFLICT.
func (h *ClassHandler) CreateSchedule(c *gin.Context) {
	var req model.CourseScheduleRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	schedule, err := h.scheduleService.Create(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"schedule": schedule})
}

// UpdateSchedule godoc
// PUT /api/v1/admin/schedules/:id
func (h *ClassHandler) UpdateSchedule(c *gin.Context) {
	var req model.CourseScheduleRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	lifecycleAction(c, h.errorWriter, "schedule", func(ctx context.Context, id int) (*model.CourseSchedule, error) {
		return h.scheduleService.Update(ctx, id, req)
	})
}

// DeleteSchedule godoc
// DELETE /api/v1/admin/schedules/:id
func (h *ClassHandler) DeleteSchedule(c *gin.Context) {
	deleteByID(c, h.errorWriter, "schedule", h.scheduleService.Delete)
}
