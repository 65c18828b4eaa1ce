package service

import (
	"context"
	"strings"

	"github.com/easygo/easygo-schools/internal/model"
)

type roleStore interface {
	GetRoleByID(ctx context.Context, id int) (*model.RoleWithPermissions, error)
	ListRolesWithPermissions(ctx context.Context) ([]model.RoleWithPermissions, error)
	CreateRole(ctx context.Context, name string) (int, error)
	UpdateRole(ctx context.Context, id int, name string) error
	DeleteRole(ctx context.Context, id int) error
	DeleteAllPermissionsFromRole(ctx context.Context, roleID int) error
	AssignPermissionsToRole(ctx context.Context, roleID int, permissionCodes []string) error
	SyncPermissions(ctx context.Context, codes []string, roleID int) (int, error)
}

// AdminRoleService handles business logic for admin roles.
type AdminRoleService struct {
	roles roleStore
	tx    Transactor
}

// NewAdminRoleService creates a new AdminRoleService.
func NewAdminRoleService(roles roleStore, tx Transactor) *AdminRoleService {
	return &AdminRoleService{roles: roles, tx: tx}
}

// ListRoles retrieves all roles with their permissions.
func (s *AdminRoleService) ListRoles(ctx context.Context) ([]model.RoleWithPermissions, error) {
	return s.roles.ListRolesWithPermissions(ctx)
}

// GetRoleByID retrieves a specific role and its permissions.
func (s *AdminRoleService) GetRoleByID(ctx context.Context, id int) (*model.RoleWithPermissions, error) {
	return s.roles.GetRoleByID(ctx, id)
}

func checkPermissionCodes(codes []string) error {
	known := make(map[string]bool, len(model.AllPermissions))
	for _, p := range model.AllPermissions {
		known[string(p)] = true
	}
	for _, c := range codes {
		if !known[c] {
			return invalid("permissions", "unknown permission %q", c)
		}
	}
	return nil
}

// CreateRole creates a role and assigns its permissions in one transaction.
func (s *AdminRoleService) CreateRole(ctx context.Context, req model.RoleRequest) (*model.RoleWithPermissions, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name", "cannot be empty")
	}
	if err := checkPermissionCodes(req.Permissions); err != nil {
		return nil, err
	}

	var id int
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if id, err = s.roles.CreateRole(ctx, name); err != nil {
			return err
		}
		if len(req.Permissions) == 0 {
			return nil
		}
		return s.roles.AssignPermissionsToRole(ctx, id, req.Permissions)
	})
	if err != nil {
		return nil, err
	}
	return s.GetRoleByID(ctx, id)
}

// UpdateRole renames a role and replaces its permissions.
func (s *AdminRoleService) UpdateRole(ctx context.Context, id int, req model.RoleRequest) (*model.RoleWithPermissions, error) {
	if model.IsLockedRole(id) {
		return nil, stateError("the super admin role cannot be modified")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name", "cannot be empty")
	}
	if err := checkPermissionCodes(req.Permissions); err != nil {
		return nil, err
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.roles.UpdateRole(ctx, id, name); err != nil {
			return err
		}
		if err := s.roles.DeleteAllPermissionsFromRole(ctx, id); err != nil {
			return err
		}
		if len(req.Permissions) == 0 {
			return nil
		}
		return s.roles.AssignPermissionsToRole(ctx, id, req.Permissions)
	})
	if err != nil {
		return nil, err
	}
	return s.GetRoleByID(ctx, id)
}

// DeleteRole deletes a role. Roles still assigned to users are refused by
// the foreign key.
func (s *AdminRoleService) DeleteRole(ctx context.Context, id int) error {
	if model.IsLockedRole(id) {
		return stateError("the super admin role cannot be deleted")
	}
	return s.roles.DeleteRole(ctx, id)
}

// SyncSuperAdmin grants every known permission to the super admin role and
// returns how many permission codes were new.
func (s *AdminRoleService) SyncSuperAdmin(ctx context.Context) (int, error) {
	return s.roles.SyncPermissions(ctx, s.GetAllPermissions(), model.SuperAdminRoleID)
}

// GetAllPermissions retrieves all available system permission codes.
func (s *AdminRoleService) GetAllPermissions() []string {
	perms := make([]string, len(model.AllPermissions))
	for i, p := range model.AllPermissions {
		perms[i] = string(p)
	}
	return perms
}
