package handler

import (
	"bytes"
	"context"
	"net/http"

	"github.com/easygo/easygo-schools/internal/export"
	"github.com/easygo/easygo-schools/internal/model"
	"github.com/easygo/easygo-schools/internal/response"
	"github.com/easygo/easygo-schools/internal/service"
	"github.com/easygo/easygo-schools/internal/validator"
	"github.com/easygo/easygo-schools/internal/worker"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type reportRunner interface {
	Names() []string
	Run(ctx context.Context, name string, filter model.ReportFilter) (*model.Report, error)
}

type jobRunner interface {
	Jobs(ctx context.Context) []worker.JobInfo
	Run(ctx context.Context, name string) (*worker.JobRun, error)
}

// ReportHandler handles reports, their spreadsheet export and on-demand runs
// of the scheduled jobs.
type ReportHandler struct {
	errorWriter
	reports reportRunner
	jobs    jobRunner
	clock   service.Clock
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reports reportRunner, jobs jobRunner, clock service.Clock, log zerolog.Logger) *ReportHandler {
	return &ReportHandler{
		errorWriter: errorWriter{log: log.With().Str("component", "report_handler").Logger()},
		reports:     reports,
		jobs:        jobs,
		clock:       clock,
	}
}

// ListReports godoc
// GET /api/v1/admin/reports
func (h *ReportHandler) ListReports(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"reports": h.reports.Names()})
}

// RunReport godoc
// GET /api/v1/admin/reports/:name?format=json|xlsx
// Runs a report with the filters given in the query string. With
// format=xlsx the result is downloaded as a spreadsheet.
func (h *ReportHandler) RunReport(c *gin.Context) {
	var filter model.ReportFilter
	if fields := validator.BindQuery(c, &filter); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	format := c.DefaultQuery("format", "json")
	if format != "json" && format != "xlsx" {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"format": "must be one of: json xlsx"})
		return
	}

	rep, err := h.reports.Run(c.Request.Context(), c.Param("name"), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	if format == "json" {
		response.Success(c, http.StatusOK, rep)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, rep); err != nil {
		h.fail(c, err)
		return
	}
	name := export.FileName(rep, model.DateOf(h.clock()))
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, export.ContentTypeXLSX, buf.Bytes())
}

// ListJobs godoc
// GET /api/v1/admin/jobs
// Lists the scheduled jobs with their cron schedule and last run.
func (h *ReportHandler) ListJobs(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"jobs": h.jobs.Jobs(c.Request.Context())})
}

// RunJob godoc
// POST /api/v1/admin/jobs/:name/run
// Runs a job now. A job already running elsewhere answers 409; a job that
// ran and failed answers 200 with the error recorded in the run.
func (h *ReportHandler) RunJob(c *gin.Context) {
	run, err := h.jobs.Run(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"run": run})
}
