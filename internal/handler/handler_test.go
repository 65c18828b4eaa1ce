package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/easygo/easygo-schools/internal/config"
	"github.com/easygo/easygo-schools/internal/export"
	"github.com/easygo/easygo-schools/internal/model"
	"github.com/easygo/easygo-schools/internal/repository"
	"github.com/easygo/easygo-schools/internal/response"
	"github.com/easygo/easygo-schools/internal/service"
	"github.com/easygo/easygo-schools/internal/worker"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Data     json.RawMessage     `json:"data"`
	Error    *response.ErrorBody `json:"error"`
	Warnings []string            `json:"warnings"`
}

func serve(t *testing.T, r *gin.Engine, method, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	var env envelope
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func TestErrorWriter_Mapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   response.ErrCode
	}{
		{"field validation", &service.ValidationError{Field: "due_date", Message: "must not be before posting date"}, http.StatusUnprocessableEntity, response.ErrValidation},
		{"not found", fmt.Errorf("get student: %w", repository.ErrNotFound), http.StatusNotFound, response.ErrNotFound},
		{"duplicate massar", repository.ErrDuplicateMassar, http.StatusConflict, response.ErrConflict},
		{"referenced", repository.ErrReferenced, http.StatusConflict, response.ErrDependencyExists},
		{"submitted document", service.ErrNotEditable, http.StatusConflict, response.ErrNotEditable},
		{"state", fmt.Errorf("%w: bill is cancelled", service.ErrInvalidState), http.StatusConflict, response.ErrInvalidState},
		{"capacity", service.ErrCapacityExceeded, http.StatusConflict, response.ErrCapacityExceeded},
		{"unknown report", service.ErrUnknownReport, http.StatusNotFound, response.ErrUnknownReport},
		{"job running", worker.ErrJobRunning, http.StatusConflict, response.ErrJobRunning},
		{"credentials", service.ErrInvalidCredentials, http.StatusUnauthorized, response.ErrInvalidCredentials},
		{"unexpected", assert.AnError, http.StatusInternalServerError, response.ErrInternal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := errorWriter{log: zerolog.Nop()}
			r := gin.New()
			r.GET("/", func(c *gin.Context) { w.fail(c, tc.err) })

			rec, env := serve(t, r, http.MethodGet, "/")
			assert.Equal(t, tc.status, rec.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, tc.code, env.Error.Code)
		})
	}
}

func TestErrorWriter_HidesInternalDetail(t *testing.T) {
	w := errorWriter{log: zerolog.Nop()}
	r := gin.New()
	r.GET("/", func(c *gin.Context) { w.fail(c, fmt.Errorf("pq: password authentication failed")) })

	rec, env := serve(t, r, http.MethodGet, "/")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, env.Error.Detail)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestLifecycleHelpers(t *testing.T) {
	w := errorWriter{log: zerolog.Nop()}
	r := gin.New()
	r.POST("/bills/:id/submit", func(c *gin.Context) {
		lifecycleAction(c, w, "fee_bill", func(_ context.Context, id int) (*model.FeeBill, error) {
			if id == 404 {
				return nil, repository.ErrNotFound
			}
			return &model.FeeBill{ID: id, Status: model.FeeBillUnpaid}, nil
		})
	})
	r.DELETE("/bills/:id", func(c *gin.Context) {
		deleteByID(c, w, "Fee bill", func(context.Context, int) error { return nil })
	})

	rec, env := serve(t, r, http.MethodPost, "/bills/12/submit")
	require.Equal(t, http.StatusOK, rec.Code)
	var data struct {
		Bill model.FeeBill `json:"fee_bill"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, 12, data.Bill.ID)
	assert.Equal(t, model.FeeBillUnpaid, data.Bill.Status)

	rec, _ = serve(t, r, http.MethodPost, "/bills/404/submit")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env = serve(t, r, http.MethodPost, "/bills/abc/submit")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, response.ErrInvalidID, env.Error.Code)

	rec, env = serve(t, r, http.MethodDelete, "/bills/0")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = serve(t, r, http.MethodDelete, "/bills/3")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), "Fee bill deleted successfully")
}

func TestQueryID(t *testing.T) {
	r := gin.New()
	r.GET("/", func(c *gin.Context) {
		id, ok := queryID(c, "school_class_id")
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": id})
	})

	rec, _ := serve(t, r, http.MethodGet, "/")
	assert.JSONEq(t, `{"data":null}`, rec.Body.String())

	rec, _ = serve(t, r, http.MethodGet, "/?school_class_id=4")
	assert.JSONEq(t, `{"data":4}`, rec.Body.String())

	rec, env := serve(t, r, http.MethodGet, "/?school_class_id=-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "must be a positive integer", env.Error.Fields["school_class_id"])
}

func TestSuccessWithWarnings(t *testing.T) {
	r := gin.New()
	r.GET("/quiet", func(c *gin.Context) { successWithWarnings(c, http.StatusCreated, gin.H{"ok": true}, nil) })
	r.GET("/loud", func(c *gin.Context) {
		successWithWarnings(c, http.StatusCreated, gin.H{"ok": true}, []string{"guardian has no email"})
	})

	_, env := serve(t, r, http.MethodGet, "/quiet")
	assert.Empty(t, env.Warnings)
	_, env = serve(t, r, http.MethodGet, "/loud")
	assert.Equal(t, []string{"guardian has no email"}, env.Warnings)
}

type stubReports struct {
	filter model.ReportFilter
}

func (s *stubReports) Names() []string { return []string{service.ReportFeeCollection} }

func (s *stubReports) Run(_ context.Context, name string, filter model.ReportFilter) (*model.Report, error) {
	if name != service.ReportFeeCollection {
		return nil, service.ErrUnknownReport
	}
	s.filter = filter
	return &model.Report{
		Name:    name,
		Title:   "Fee Collection Summary",
		Columns: []model.ReportColumn{{Field: "fee_type", Label: "Fee Type"}, {Field: "collected", Label: "Collected"}},
		Rows:    []map[string]interface{}{{"fee_type": "Scolarité", "collected": 1200.0}},
	}, nil
}

type stubJobs struct{}

func (stubJobs) Jobs(context.Context) []worker.JobInfo {
	return []worker.JobInfo{{Name: "fee-reminders", Schedule: "0 7 * * *"}}
}

func (stubJobs) Run(_ context.Context, name string) (*worker.JobRun, error) {
	if name != "fee-reminders" {
		return nil, worker.ErrJobNotFound
	}
	return &worker.JobRun{Job: name, Trigger: "manual"}, nil
}

func newReportRouter(reports *stubReports) *gin.Engine {
	clock := func() time.Time { return time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC) }
	h := NewReportHandler(reports, stubJobs{}, clock, zerolog.Nop())
	r := gin.New()
	r.GET("/reports", h.ListReports)
	r.GET("/reports/:name", h.RunReport)
	r.GET("/jobs", h.ListJobs)
	r.POST("/jobs/:name/run", h.RunJob)
	return r
}

func TestReportHandler_JSONAndFilters(t *testing.T) {
	reports := &stubReports{}
	r := newReportRouter(reports)

	rec, env := serve(t, r, http.MethodGet, "/reports/fee-collection?from=2025-09-01&school_class_id=3")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), "Fee Collection Summary")
	require.NotNil(t, reports.filter.From)
	assert.Equal(t, "2025-09-01", reports.filter.From.String())
	require.NotNil(t, reports.filter.SchoolClassID)
	assert.Equal(t, 3, *reports.filter.SchoolClassID)

	rec, env = serve(t, r, http.MethodGet, "/reports/fee-collection?format=pdf")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Error.Fields, "format")

	rec, _ = serve(t, r, http.MethodGet, "/reports/unknown")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReportHandler_XLSX(t *testing.T) {
	r := newReportRouter(&stubReports{})

	rec, _ := serve(t, r, http.MethodGet, "/reports/fee-collection?format=xlsx")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.ContentTypeXLSX, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="fee-collection_20251103.xlsx"`, rec.Header().Get("Content-Disposition"))

	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer f.Close()
	assert.NotEmpty(t, f.GetSheetList())
}

func TestReportHandler_Jobs(t *testing.T) {
	r := newReportRouter(&stubReports{})

	rec, env := serve(t, r, http.MethodGet, "/jobs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), "fee-reminders")

	rec, _ = serve(t, r, http.MethodPost, "/jobs/fee-reminders/run")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = serve(t, r, http.MethodPost, "/jobs/nope/run")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, response.ErrUnknownJob, env.Error.Code)
}

type fixedQueues map[string]int64

func (q fixedQueues) LLen(_ context.Context, key string) *redis.IntCmd {
	return redis.NewIntResult(q[key], nil)
}

func TestSystemMetrics_ReportsMailQueueLengths(t *testing.T) {
	h := NewSystemHandler(fixedQueues{
		config.WorkerKey.MailOutboxQueue:     4,
		config.WorkerKey.MailDeadLetterQueue: 1,
	}, nil, zerolog.Nop())
	r := gin.New()
	r.GET("/metrics", h.SystemMetricsSSE)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil).WithContext(ctx))

	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	body := w.Body.String()
	require.True(t, strings.HasPrefix(body, "data: "))
	var m systemMetrics
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(body, "data: "))), &m))
	assert.Equal(t, int64(4), m.MailOutbox)
	assert.Equal(t, int64(1), m.MailDeadLetter)
}
