package handler

import (
	"net/http"

	"github.com/easygo/easygo-schools/internal/middleware"
	"github.com/easygo/easygo-schools/internal/model"
	"github.com/easygo/easygo-schools/internal/response"
	"github.com/easygo/easygo-schools/internal/service"
	"github.com/easygo/easygo-schools/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// AuthHandler handles staff authentication endpoints.
type AuthHandler struct {
	errorWriter
	authService *service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		errorWriter: errorWriter{log: log.With().Str("component", "auth_handler").Logger()},
		authService: authService,
	}
}

// AdminLogin godoc
// POST /api/v1/auth/login
// Authenticates a staff member and returns a JWT carrying their permissions.
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req model.AdminLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// GetAdminProfile godoc
// GET /api/v1/auth/me
// Returns the profile of the currently authenticated staff member.
func (h *AuthHandler) GetAdminProfile(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	res, err := h.authService.Me(c.Request.Context(), claims.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"admin":       res.Admin,
		"permissions": res.Permissions,
	})
}
