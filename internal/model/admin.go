package model

import "time"

// Admin is a staff user of the back office. It may be linked to an
// employee record (teachers marking attendance, bursars posting payments).
type Admin struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	RoleID       int       `json:"role_id"`
	RoleName     string    `json:"role_name,omitempty"`
	EmployeeID   *int      `json:"employee_id,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AdminLoginRequest is the payload for staff authentication.
type AdminLoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// AdminLoginResponse is returned after successful login.
type AdminLoginResponse struct {
	Token       string   `json:"token"`
	Admin       Admin    `json:"admin"`
	Permissions []string `json:"permissions"`
}

// CreateAdminRequest is the payload for creating a staff user.
type CreateAdminRequest struct {
	Email      string `json:"email" binding:"required,email,max=255"`
	Name       string `json:"name" binding:"required,min=3,max=150"`
	Password   string `json:"password" binding:"required,min=8,max=128"`
	RoleID     int    `json:"role_id" binding:"required,gt=0"`
	EmployeeID *int   `json:"employee_id"`
}

// UpdateAdminRequest is the payload for editing a staff user. An empty
// password keeps the current one.
type UpdateAdminRequest struct {
	Email      string `json:"email" binding:"required,email,max=255"`
	Name       string `json:"name" binding:"required,min=3,max=150"`
	Password   string `json:"password" binding:"omitempty,min=8,max=128"`
	RoleID     int    `json:"role_id" binding:"required,gt=0"`
	EmployeeID *int   `json:"employee_id"`
	IsActive   *bool  `json:"is_active"`
}
