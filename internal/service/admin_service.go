package service

import (
	"context"
	"strings"

	"github.com/easygo/easygo-schools/internal/model"
)

type adminStore interface {
	GetByID(ctx context.Context, id int) (*model.Admin, error)
	GetByEmail(ctx context.Context, email string) (*model.Admin, error)
	ListPaginated(ctx context.Context, filter model.ListFilter, roleID int) ([]model.Admin, int, error)
	Create(ctx context.Context, a *model.Admin) error
	Update(ctx context.Context, a *model.Admin) error
	Delete(ctx context.Context, id int) error
}

type passwordHasher interface {
	HashPassword(password string) (string, error)
}

// AdminService manages staff user accounts.
type AdminService struct {
	admins adminStore
	roles  permissionLookup
	hasher passwordHasher
}

// NewAdminService creates a new AdminService.
func NewAdminService(admins adminStore, roles permissionLookup, hasher passwordHasher) *AdminService {
	return &AdminService{admins: admins, roles: roles, hasher: hasher}
}

// GetByEmail retrieves an admin by email.
func (s *AdminService) GetByEmail(ctx context.Context, email string) (*model.Admin, error) {
	return s.admins.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

// GetByID retrieves an admin by ID.
func (s *AdminService) GetByID(ctx context.Context, id int) (*model.Admin, error) {
	return s.admins.GetByID(ctx, id)
}

// GetPermissions retrieves permission codes for an admin's role.
func (s *AdminService) GetPermissions(ctx context.Context, roleID int) ([]string, error) {
	return s.roles.GetPermissionsByRoleID(ctx, roleID)
}

// List retrieves staff users, optionally for one role.
func (s *AdminService) List(ctx context.Context, filter model.ListFilter, roleID int) ([]model.Admin, int, error) {
	return s.admins.ListPaginated(ctx, filter, roleID)
}

// Create registers a staff user with a hashed password.
func (s *AdminService) Create(ctx context.Context, req model.CreateAdminRequest) (*model.Admin, error) {
	hash, err := s.hasher.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	a := &model.Admin{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hash,
		RoleID:       req.RoleID,
		EmployeeID:   req.EmployeeID,
		IsActive:     true,
	}
	if err := s.admins.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Update edits a staff user. An empty password keeps the current hash.
func (s *AdminService) Update(ctx context.Context, id int, req model.UpdateAdminRequest, actorID int) (*model.Admin, error) {
	a, err := s.admins.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	a.Email = strings.ToLower(strings.TrimSpace(req.Email))
	a.Name = strings.TrimSpace(req.Name)
	a.RoleID = req.RoleID
	a.EmployeeID = req.EmployeeID
	if req.IsActive != nil {
		if !*req.IsActive && id == actorID {
			return nil, invalid("is_active", "you cannot deactivate your own account")
		}
		a.IsActive = *req.IsActive
	}
	if req.Password != "" {
		if a.PasswordHash, err = s.hasher.HashPassword(req.Password); err != nil {
			return nil, err
		}
	}
	if err := s.admins.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Delete removes a staff user other than the caller.
func (s *AdminService) Delete(ctx context.Context, id, actorID int) error {
	if id == actorID {
		return invalid("id", "you cannot delete your own account")
	}
	return s.admins.Delete(ctx, id)
}
