package model

import "time"

// SuperAdminRoleID is the seeded role that always holds every permission.
const SuperAdminRoleID = 1

// IsLockedRole reports whether a role is managed by the system. Locked
// roles keep their name and permissions and cannot be deleted.
func IsLockedRole(id int) bool { return id == SuperAdminRoleID }

// Role is a staff profile such as Direction, Comptable or Enseignant.
type Role struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// RoleWithPermissions is a role as shown on the role management screen.
type RoleWithPermissions struct {
	*Role
	Locked      bool     `json:"locked"`
	StaffCount  int      `json:"staff_count"`
	Permissions []string `json:"permissions"`
}

// RoleRequest is the payload for creating or updating a role.
type RoleRequest struct {
	Name        string   `json:"name" binding:"required,min=2,max=100"`
	Permissions []string `json:"permissions" binding:"dive,required"`
}
