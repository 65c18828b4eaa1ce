package model

import "time"

// StudentStatus is the enrollment state of a student.
type StudentStatus string

const (
	StudentActive      StudentStatus = "Active"
	StudentTransferred StudentStatus = "Transferred"
	StudentWithdrawn   StudentStatus = "Withdrawn"
	StudentGraduated   StudentStatus = "Graduated"
)

// Valid reports whether s is a known status.
func (s StudentStatus) Valid() bool {
	switch s {
	case StudentActive, StudentTransferred, StudentWithdrawn, StudentGraduated:
		return true
	}
	return false
}

// Guardian is a parent or legal tutor of one or more students.
type Guardian struct {
	ID        int       `json:"id"`
	FullName  string    `json:"full_name"`
	Relation  string    `json:"relation"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CIN       string    `json:"cin,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GuardianRequest is the payload for creating or updating a guardian.
type GuardianRequest struct {
	FullName string `json:"full_name" binding:"required,max=150"`
	Relation string `json:"relation" binding:"required,oneof=Father Mother Tutor Other"`
	Email    string `json:"email" binding:"omitempty,schoolemail"`
	Phone    string `json:"phone" binding:"omitempty,max=30"`
	CIN      string `json:"cin" binding:"omitempty,max=20"`
	Address  string `json:"address" binding:"omitempty,max=255"`
}

// Student is an enrolled pupil identified nationally by a MASSAR code.
type Student struct {
	ID             int           `json:"id"`
	MassarCode     string        `json:"massar_code"`
	FirstName      string        `json:"first_name"`
	LastName       string        `json:"last_name"`
	FirstNameAr    string        `json:"first_name_ar,omitempty"`
	LastNameAr     string        `json:"last_name_ar,omitempty"`
	Gender         string        `json:"gender"`
	DateOfBirth    Date          `json:"date_of_birth"`
	SchoolClassID  *int          `json:"school_class_id,omitempty"`
	ClassName      string        `json:"class_name,omitempty"`
	GuardianID     *int          `json:"guardian_id,omitempty"`
	GuardianEmail  string        `json:"guardian_email,omitempty"`
	Status         StudentStatus `json:"status"`
	EnrollmentDate Date          `json:"enrollment_date"`
	Age            int           `json:"age"`
	Warnings       []string      `json:"-"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// FullName returns "First Last".
func (s *Student) FullName() string {
	return s.FirstName + " " + s.LastName
}

// StudentRequest is the payload for creating or updating a student.
type StudentRequest struct {
	MassarCode     string        `json:"massar_code" binding:"required,massar"`
	FirstName      string        `json:"first_name" binding:"required,max=100"`
	LastName       string        `json:"last_name" binding:"required,max=100"`
	FirstNameAr    string        `json:"first_name_ar" binding:"omitempty,max=100"`
	LastNameAr     string        `json:"last_name_ar" binding:"omitempty,max=100"`
	Gender         string        `json:"gender" binding:"required,oneof=M F"`
	DateOfBirth    Date          `json:"date_of_birth"`
	SchoolClassID  *int          `json:"school_class_id"`
	GuardianID     *int          `json:"guardian_id"`
	GuardianEmail  string        `json:"guardian_email" binding:"omitempty,schoolemail"`
	Status         StudentStatus `json:"status" binding:"omitempty,oneof=Active Transferred Withdrawn Graduated"`
	EnrollmentDate Date          `json:"enrollment_date"`
}

// StudentFilter narrows student listings.
type StudentFilter struct {
	ListFilter
	SchoolClassID *int `form:"school_class_id"`
}
