package logger

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/easygo/easygo-schools/internal/response"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_LevelFallback(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "chatty", "json")
	log.Debug().Msg("hidden")
	log.Info().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"app":"easygo-schools"`)
}

func TestAccessLog(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	log := New(&buf, "info", "json")

	r := gin.New()
	r.Use(response.RequestIDMiddleware(), AccessLog(log))
	r.GET("/api/v1/admin/students/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/students/42", nil)
	req.Header.Set(response.HeaderRequestID, "0f8d8a3e-5b7c-4c1e-9d2a-6e4b3c2a1f00")
	r.ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "http", line["component"])
	assert.Equal(t, "/api/v1/admin/students/:id", line["route"])
	assert.Equal(t, float64(404), line["status"])
	assert.Equal(t, "0f8d8a3e-5b7c-4c1e-9d2a-6e4b3c2a1f00", line["request_id"])
}
