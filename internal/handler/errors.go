package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/easygo/easygo-schools/internal/repository"
	"github.com/easygo/easygo-schools/internal/response"
	"github.com/easygo/easygo-schools/internal/service"
	"github.com/easygo/easygo-schools/internal/worker"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// errorWriter turns service and repository errors into API responses.
// Unexpected errors are logged with the request id and answered with a
// generic 500.
type errorWriter struct {
	log zerolog.Logger
}

func (w errorWriter) fail(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		if verr.Field != "" {
			response.FailWithFields(c, http.StatusUnprocessableEntity, response.ErrValidation,
				map[string]string{verr.Field: verr.Message})
			return
		}
		response.FailWithDetail(c, http.StatusUnprocessableEntity, response.ErrValidation, verr.Message)
	case errors.Is(err, repository.ErrNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case repository.IsDuplicate(err):
		response.FailWithDetail(c, http.StatusConflict, response.ErrConflict, err.Error())
	case errors.Is(err, repository.ErrReferenced):
		response.Fail(c, http.StatusConflict, response.ErrDependencyExists)
	case errors.Is(err, repository.ErrReferenceNotFound):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrReferenceNotFound)
	case errors.Is(err, service.ErrNotEditable):
		response.Fail(c, http.StatusConflict, response.ErrNotEditable)
	case errors.Is(err, service.ErrInvalidState):
		response.FailWithDetail(c, http.StatusConflict, response.ErrInvalidState, err.Error())
	case errors.Is(err, service.ErrScheduleConflict):
		response.FailWithDetail(c, http.StatusConflict, response.ErrScheduleConflict, err.Error())
	case errors.Is(err, service.ErrInsufficientStock):
		response.FailWithDetail(c, http.StatusConflict, response.ErrInsufficientStock, err.Error())
	case errors.Is(err, service.ErrCapacityExceeded):
		response.FailWithDetail(c, http.StatusConflict, response.ErrCapacityExceeded, err.Error())
	case errors.Is(err, service.ErrRetryExhausted):
		response.Fail(c, http.StatusConflict, response.ErrRetryExhausted)
	case errors.Is(err, service.ErrUnknownReport):
		response.Fail(c, http.StatusNotFound, response.ErrUnknownReport)
	case errors.Is(err, worker.ErrJobNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrUnknownJob)
	case errors.Is(err, worker.ErrJobRunning):
		response.Fail(c, http.StatusConflict, response.ErrJobRunning)
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
	case errors.Is(err, service.ErrTooManyAttempts):
		response.Fail(c, http.StatusTooManyRequests, response.ErrRateLimitExceeded)
	case errors.Is(err, service.ErrUnsupportedFileType):
		response.FailWithDetail(c, http.StatusBadRequest, response.ErrUnsupportedFile, err.Error())
	case errors.Is(err, service.ErrFileTooLarge):
		response.FailWithDetail(c, http.StatusBadRequest, response.ErrFileTooLarge, err.Error())
	default:
		reqID, _ := c.Get(response.ContextKeyRequestID)
		w.log.Error().Err(err).
			Interface("request_id", reqID).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg("Request failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// paramID parses the :id route parameter, answering 400 when it is not a
// positive integer.
func paramID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id < 1 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return id, true
}

// queryID parses an optional integer query parameter.
func queryID(c *gin.Context, name string) (*int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{name: "must be a positive integer"})
		return nil, false
	}
	return &id, true
}

// successWithWarnings answers with the document and, when the service raised
// non-blocking warnings, lists them in the envelope.
func successWithWarnings(c *gin.Context, status int, data interface{}, warnings []string) {
	if len(warnings) > 0 {
		response.SuccessWithWarnings(c, status, data, warnings)
		return
	}
	response.Success(c, status, data)
}

// lifecycleAction runs a document transition addressed by :id and answers
// with the updated document under key.
func lifecycleAction[T any](c *gin.Context, w errorWriter, key string, fn func(ctx context.Context, id int) (T, error)) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	doc, err := fn(c.Request.Context(), id)
	if err != nil {
		w.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{key: doc})
}

// deleteByID removes the record addressed by :id.
func deleteByID(c *gin.Context, w errorWriter, what string, fn func(ctx context.Context, id int) error) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := fn(c.Request.Context(), id); err != nil {
		w.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": what + " deleted successfully"})
}
