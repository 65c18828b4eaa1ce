package model

import "time"

// AcademicYear is a school year (e.g. "2025-2026").
type AcademicYear struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	StartDate Date      `json:"start_date"`
	EndDate   Date      `json:"end_date"`
	IsDefault bool      `json:"is_default"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AcademicYearRequest is the payload for creating or updating an academic year.
type AcademicYearRequest struct {
	Name      string `json:"name" binding:"required,max=50"`
	StartDate Date   `json:"start_date"`
	EndDate   Date   `json:"end_date"`
	IsDefault bool   `json:"is_default"`
	IsActive  *bool  `json:"is_active"`
}

// AcademicTerm is a term/semester within an academic year.
type AcademicTerm struct {
	ID                   int       `json:"id"`
	AcademicYearID       int       `json:"academic_year_id"`
	Name                 string    `json:"name"`
	StartDate            Date      `json:"start_date"`
	EndDate              Date      `json:"end_date"`
	GradeSubmissionStart *Date     `json:"grade_submission_start,omitempty"`
	GradeSubmissionEnd   *Date     `json:"grade_submission_end,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// AcademicTermRequest is the payload for creating or updating a term.
type AcademicTermRequest struct {
	AcademicYearID       int    `json:"academic_year_id" binding:"required,gt=0"`
	Name                 string `json:"name" binding:"required,max=50"`
	StartDate            Date   `json:"start_date"`
	EndDate              Date   `json:"end_date"`
	GradeSubmissionStart *Date  `json:"grade_submission_start"`
	GradeSubmissionEnd   *Date  `json:"grade_submission_end"`
}

// SchoolClass is a group of students following the same timetable.
type SchoolClass struct {
	ID               int       `json:"id"`
	Name             string    `json:"name"`
	Level            string    `json:"level"`
	AcademicYearID   int       `json:"academic_year_id"`
	Capacity         int       `json:"capacity"`
	CurrentStudents  int       `json:"current_students"`
	ClassTeacherID   *int      `json:"class_teacher_id,omitempty"`
	ClassTeacherName string    `json:"class_teacher_name,omitempty"`
	WeeklyHours      float64   `json:"weekly_hours"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// SchoolClassRequest is the payload for creating or updating a class.
type SchoolClassRequest struct {
	Name           string `json:"name" binding:"required,max=100"`
	Level          string `json:"level" binding:"required,max=50"`
	AcademicYearID int    `json:"academic_year_id" binding:"required,gt=0"`
	Capacity       int    `json:"capacity" binding:"required,gt=0,lte=200"`
	ClassTeacherID *int   `json:"class_teacher_id"`
	IsActive       *bool  `json:"is_active"`
}
