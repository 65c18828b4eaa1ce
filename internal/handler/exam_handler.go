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

// ExamHandler handles exam scheduling, grades and report cards.
type ExamHandler struct {
	errorWriter
	examService  *service.ExamService
	gradeService *service.GradeService
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(examService *service.ExamService, gradeService *service.GradeService, log zerolog.Logger) *ExamHandler {
	return &ExamHandler{
		errorWriter:  errorWriter{log: log.With().Str("component", "exam_handler").Logger()},
		examService:  examService,
		gradeService: gradeService,
	}
}

// ListExams godoc
// GET /api/v1/admin/exams
func (h *ExamHandler) ListExams(c *gin.Context) {
	var filter model.ListFilter
	if fields := validator.BindQuery(c, &filter); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	classID, ok := queryID(c, "school_class_id")
	if !ok {
		return
	}

	exams, total, err := h.examService.List(c.Request.Context(), filter, classID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"exams": exams},
		response.NewPagination(filter.Page, filter.PerPage, total))
}

// GetExam godoc
// GET /api/v1/admin/exams/:id
func (h *ExamHandler) GetExam(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "exam", h.examService.GetByID)
}

// CreateExam godoc
// POST /api/v1/admin/exams
// Schedules an exam for a class; room and class clashes are refused.
func (h *ExamHandler) CreateExam(c *gin.Context) {
	var req model.ExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	exam, err := h.examService.Create(c.Request.Context(), req, middleware.ActorID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"exam": exam})
}

// UpdateExam godoc
// PUT /api/v1/admin/exams/:id
func (h *ExamHandler) UpdateExam(c *gin.Context) {
	var req model.ExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	lifecycleAction(c, h.errorWriter, "exam", func(ctx context.Context, id int) (*model.Exam, error) {
		return h.examService.Update(ctx, id, req)
	})
}

// DeleteExam godoc
// DELETE /api/v1/admin/exams/:id
func (h *ExamHandler) DeleteExam(c *gin.Context) {
	deleteByID(c, h.errorWriter, "exam", h.examService.Delete)
}

// SubmitExam godoc
// POST /api/v1/admin/exams/:id/submit
func (h *ExamHandler) SubmitExam(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "exam", h.examService.Submit)
}

// StartExam godoc
// POST /api/v1/admin/exams/:id/start
func (h *ExamHandler) StartExam(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "exam", h.examService.Start)
}

// CompleteExam godoc
// POST /api/v1/admin/exams/:id/complete
func (h *ExamHandler) CompleteExam(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "exam", h.examService.Complete)
}

// CancelExam godoc
// POST /api/v1/admin/exams/:id/cancel
func (h *ExamHandler) CancelExam(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "exam", h.examService.Cancel)
}

// ListGrades godoc
// GET /api/v1/admin/grades
func (h *ExamHandler) ListGrades(c *gin.Context) {
	var filter model.GradeFilter
	if fields := validator.BindQuery(c, &filter); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	grades, total, err := h.gradeService.List(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"grades": grades},
		response.NewPagination(filter.Page, filter.PerPage, total))
}

// GetGrade godoc
// GET /api/v1/admin/grades/:id
func (h *ExamHandler) GetGrade(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "grade", h.gradeService.Get)
}

// CreateGrade godoc
// POST /api/v1/admin/grades
// Records a mark; percentage and letter grade are derived from the score.
func (h *ExamHandler) CreateGrade(c *gin.Context) {
	var req model.GradeRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	grade, err := h.gradeService.Create(c.Request.Context(), req, middleware.ActorID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"grade": grade})
}

// UpdateGrade godoc
// PUT /api/v1/admin/grades/:id
func (h *ExamHandler) UpdateGrade(c *gin.Context) {
	var req model.GradeRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	lifecycleAction(c, h.errorWriter, "grade", func(ctx context.Context, id int) (*model.Grade, error) {
		return h.gradeService.Update(ctx, id, req)
	})
}

// DeleteGrade godoc
// DELETE /api/v1/admin/grades/:id
func (h *ExamHandler) DeleteGrade(c *gin.Context) {
	deleteByID(c, h.errorWriter, "grade", h.gradeService.Delete)
}

// PublishGrade godoc
// POST /api/v1/admin/grades/:id/publish
func (h *ExamHandler) PublishGrade(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "grade", h.gradeService.Publish)
}

// ReportCard godoc
// GET /api/v1/admin/students/:id/report-card?term_id=
func (h *ExamHandler) ReportCard(c *gin.Context) {
	termID, ok := queryID(c, "term_id")
	if !ok {
		return
	}
	lifecycleAction(c, h.errorWriter, "report_card", func(ctx context.Context, id int) (*model.ReportCard, error) {
		return h.gradeService.ReportCard(ctx, id, termID)
	})
}
