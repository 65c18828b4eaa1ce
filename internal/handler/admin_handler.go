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

// AdminHandler handles staff accounts and the roles granting permissions.
type AdminHandler struct {
	errorWriter
	adminService *service.AdminService
	roleService  *service.AdminRoleService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(adminService *service.AdminService, roleService *service.AdminRoleService, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		errorWriter:  errorWriter{log: log.With().Str("component", "admin_handler").Logger()},
		adminService: adminService,
		roleService:  roleService,
	}
}

// ListAdmins godoc
// GET /api/v1/admin/users?role_id=
func (h *AdminHandler) ListAdmins(c *gin.Context) {
	var filter model.ListFilter
	if fields := validator.BindQuery(c, &filter); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	roleID, ok := queryID(c, "role_id")
	if !ok {
		return
	}
	var role int
	if roleID != nil {
		role = *roleID
	}

	admins, total, err := h.adminService.List(c.Request.Context(), filter, role)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"admins": admins},
		response.NewPagination(filter.Page, filter.PerPage, total))
}

// GetAdmin godoc
// GET /api/v1/admin/users/:id
func (h *AdminHandler) GetAdmin(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "admin", h.adminService.GetByID)
}

// CreateAdmin godoc
// POST /api/v1/admin/users
func (h *AdminHandler) CreateAdmin(c *gin.Context) {
	var req model.CreateAdminRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	admin, err := h.adminService.Create(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"admin": admin})
}

// UpdateAdmin godoc
// PUT /api/v1/admin/users/:id
// An empty password keeps the current one. Staff cannot deactivate
// themselves.
func (h *AdminHandler) UpdateAdmin(c *gin.Context) {
	var req model.UpdateAdminRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	actor := actorOrZero(c)
	lifecycleAction(c, h.errorWriter, "admin", func(ctx context.Context, id int) (*model.Admin, error) {
		return h.adminService.Update(ctx, id, req, actor)
	})
}

// DeleteAdmin godoc
// DELETE /api/v1/admin/users/:id
func (h *AdminHandler) DeleteAdmin(c *gin.Context) {
	actor := actorOrZero(c)
	deleteByID(c, h.errorWriter, "admin", func(ctx context.Context, id int) error {
		return h.adminService.Delete(ctx, id, actor)
	})
}

// ListRoles godoc
// GET /api/v1/admin/roles
func (h *AdminHandler) ListRoles(c *gin.Context) {
	roles, err := h.roleService.ListRoles(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"roles": roles})
}

// GetPermissions godoc
// GET /api/v1/admin/roles/permissions
func (h *AdminHandler) GetPermissions(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"permissions": h.roleService.GetAllPermissions()})
}

// GetRole godoc
// GET /api/v1/admin/roles/:id
func (h *AdminHandler) GetRole(c *gin.Context) {
	lifecycleAction(c, h.errorWriter, "role", h.roleService.GetRoleByID)
}

// CreateRole godoc
// POST /api/v1/admin/roles
func (h *AdminHandler) CreateRole(c *gin.Context) {
	var req model.RoleRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	role, err := h.roleService.CreateRole(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"role": role})
}

// UpdateRole godoc
// PUT /api/v1/admin/roles/:id
func (h *AdminHandler) UpdateRole(c *gin.Context) {
	var req model.RoleRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	lifecycleAction(c, h.errorWriter, "role", func(ctx context.Context, id int) (*model.RoleWithPermissions, error) {
		return h.roleService.UpdateRole(ctx, id, req)
	})
}

// DeleteRole godoc
// DELETE /api/v1/admin/roles/:id
func (h *AdminHandler) DeleteRole(c *gin.Context) {
	deleteByID(c, h.errorWriter, "role", h.roleService.DeleteRole)
}

func actorOrZero(c *gin.Context) int {
	if id := middleware.ActorID(c); id != nil {
		return *id
	}
	return 0
}
