package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMassarCode(t *testing.T) {
	assert.True(t, IsMassarCode("12345678901"))
	assert.False(t, IsMassarCode("1234567890"))
	assert.False(t, IsMassarCode("1234567890A"))
	assert.False(t, IsMassarCode(""))
}

func TestIsEmail(t *testing.T) {
	assert.True(t, IsEmail("parent@example.ma"))
	assert.True(t, IsEmail("  parent@example.ma "))
	assert.False(t, IsEmail("parent@"))
	assert.False(t, IsEmail("not an email"))
}

type enrolPayload struct {
	Code  string `json:"massar_code" binding:"required,massar"`
	Email string `json:"guardian_email" binding:"omitempty,schoolemail"`
	Name  string `json:"name" binding:"required"`
}

func bindBody(t *testing.T, body string) map[string]string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	Setup()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	var p enrolPayload
	return Bind(c, &p)
}

func TestBind_CustomTags(t *testing.T) {
	fields := bindBody(t, `{"massar_code":"123","guardian_email":"x@","name":""}`)
	require.NotNil(t, fields)
	assert.Equal(t, "massar_code must be an 11-digit MASSAR code", fields["massar_code"])
	assert.Equal(t, "guardian_email must be a valid email address", fields["guardian_email"])
	assert.Contains(t, fields, "name")
}

func TestBind_Valid(t *testing.T) {
	assert.Nil(t, bindBody(t, `{"massar_code":"12345678901","name":"Salma"}`))
}

func TestBind_MalformedJSON(t *testing.T) {
	fields := bindBody(t, `{"massar_code":`)
	require.NotNil(t, fields)
	assert.Contains(t, fields, "detail")
}

func TestBindQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	Setup()

	type filter struct {
		Page int `form:"page" binding:"omitempty,gte=1"`
	}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?page=0", nil)

	var f filter
	assert.Nil(t, BindQuery(c, &f))

	c.Request = httptest.NewRequest(http.MethodGet, "/?page=abc", nil)
	assert.NotNil(t, BindQuery(c, &f))
}
