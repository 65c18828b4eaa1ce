package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampPage(t *testing.T) {
	cases := []struct {
		page, perPage         int
		wantPage, wantPerPage int
	}{
		{0, 0, 1, 10},
		{3, 25, 3, 25},
		{-2, 500, 1, 100},
	}
	for _, tc := range cases {
		p, pp := ClampPage(tc.page, tc.perPage)
		assert.Equal(t, tc.wantPage, p)
		assert.Equal(t, tc.wantPerPage, pp)
	}
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(2, 10, 31)
	assert.Equal(t, 4, p.TotalPages)
	assert.Equal(t, 31, p.TotalItems)

	empty := NewPagination(1, 10, 0)
	assert.Equal(t, 0, empty.TotalPages)
}

func serve(handler gin.HandlerFunc, reqID string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", handler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if reqID != "" {
		req.Header.Set(HeaderRequestID, reqID)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestFailWithFields_Envelope(t *testing.T) {
	w := serve(func(c *gin.Context) {
		FailWithFields(c, http.StatusBadRequest, ErrValidation, map[string]string{"massar_code": "required"})
	}, "")

	require.Equal(t, http.StatusBadRequest, w.Code)
	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	assert.Equal(t, ErrValidation, body.Error.Code)
	assert.Equal(t, GetMessage(ErrValidation), body.Error.Message)
	assert.Equal(t, "required", body.Error.Fields["massar_code"])
	assert.NotEmpty(t, body.Metadata.RequestID)
	assert.Equal(t, w.Header().Get(HeaderRequestID), body.Metadata.RequestID)
}

func TestRequestID_ReusesValidHeader(t *testing.T) {
	const id = "3f1c2a6e-8b4d-4a7e-9c1f-0d2e3b4a5c6d"
	w := serve(func(c *gin.Context) {
		Success(c, http.StatusOK, gin.H{"id": RequestID(c)})
	}, id)

	assert.Equal(t, id, w.Header().Get(HeaderRequestID))
	var body struct {
		Data     map[string]string `json:"data"`
		Metadata Metadata          `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, id, body.Data["id"])
	assert.Equal(t, id, body.Metadata.RequestID)
}

func TestRequestID_ReplacesGarbage(t *testing.T) {
	w := serve(func(c *gin.Context) { Success(c, http.StatusOK, nil) }, "not-a-uuid")
	assert.NotEqual(t, "not-a-uuid", w.Header().Get(HeaderRequestID))
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
}

func TestSuccessWithWarnings(t *testing.T) {
	w := serve(func(c *gin.Context) {
		SuccessWithWarnings(c, http.StatusCreated, gin.H{"ok": true}, []string{"class is nearly full"})
	}, "")

	require.Equal(t, http.StatusCreated, w.Code)
	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Nil(t, body.Error)
	assert.Equal(t, []string{"class is nearly full"}, body.Warnings)
}
