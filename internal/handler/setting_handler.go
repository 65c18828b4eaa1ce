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

// SettingHandler handles the school profile and its logo.
type SettingHandler struct {
	errorWriter
	settingService *service.SettingService
	mediaService   *service.MediaService
}

// NewSettingHandler creates a new SettingHandler.
func NewSettingHandler(settingService *service.SettingService, mediaService *service.MediaService, log zerolog.Logger) *SettingHandler {
	return &SettingHandler{
		errorWriter:    errorWriter{log: log.With().Str("component", "setting_handler").Logger()},
		settingService: settingService,
		mediaService:   mediaService,
	}
}

// GetAllSettings godoc
// GET /api/v1/admin/settings
func (h *SettingHandler) GetAllSettings(c *gin.Context) {
	settings, err := h.settingService.GetAll(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"settings": settings})
}

// UpdateSettings godoc
// PUT /api/v1/admin/settings
func (h *SettingHandler) UpdateSettings(c *gin.Context) {
	var req model.UpdateSettingsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	settings, err := h.settingService.Update(c.Request.Context(), req.Settings, middleware.ActorID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"settings": settings})
}

// GetPublicSettings godoc
// GET /api/v1/public/settings
func (h *SettingHandler) GetPublicSettings(c *gin.Context) {
	settings, err := h.settingService.Public(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, settings)
}

// UploadLogo godoc
// POST /api/v1/admin/settings/logo
// Stores the uploaded image and points logo_url at it. The previous logo
// file is removed once the setting is saved.
func (h *SettingHandler) UploadLogo(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	defer file.Close()

	ctx := c.Request.Context()
	previous, _ := h.settingService.Get(ctx, model.SettingLogoURL)

	url, err := h.mediaService.SaveImage(file, header.Size, "logos")
	if err != nil {
		h.fail(c, err)
		return
	}

	settings, err := h.settingService.Update(ctx, map[string]string{model.SettingLogoURL: url}, middleware.ActorID(c))
	if err != nil {
		_ = h.mediaService.Remove(url)
		h.fail(c, err)
		return
	}
	if previous != "" && previous != url {
		if err := h.mediaService.Remove(previous); err != nil {
			h.log.Warn().Err(err).Str("url", previous).Msg("Failed to remove previous logo")
		}
	}

	response.Success(c, http.StatusOK, gin.H{"url": url, "settings": settings})
}
