package model

import "time"

// Weekdays in timetable order.
var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// CourseSchedule is a recurring weekly slot of a subject for a class.
type CourseSchedule struct {
	ID              int       `json:"id"`
	SchoolClassID   int       `json:"school_class_id"`
	ClassName       string    `json:"class_name,omitempty"`
	Subject         string    `json:"subject"`
	InstructorID    int       `json:"instructor_id"`
	InstructorName  string    `json:"instructor_name,omitempty"`
	Room            string    `json:"room,omitempty"`
	DayOfWeek       string    `json:"day_of_week"`
	StartTime       string    `json:"start_time"`
	EndTime         string    `json:"end_time"`
	DurationMinutes int       `json:"duration_minutes"`
	AcademicYearID  int       `json:"academic_year_id"`
	EffectiveFrom   Date      `json:"effective_from"`
	EffectiveTo     Date      `json:"effective_to"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// CourseScheduleRequest is the payload for creating or updating a slot.
type CourseScheduleRequest struct {
	SchoolClassID  int    `json:"school_class_id" binding:"required,gt=0"`
	Subject        string `json:"subject" binding:"required,max=100"`
	InstructorID   int    `json:"instructor_id" binding:"required,gt=0"`
	Room           string `json:"room" binding:"omitempty,max=50"`
	DayOfWeek      string `json:"day_of_week" binding:"required,oneof=Monday Tuesday Wednesday Thursday Friday Saturday Sunday"`
	StartTime      string `json:"start_time" binding:"required,datetime=15:04"`
	EndTime        string `json:"end_time" binding:"required,datetime=15:04"`
	AcademicYearID int    `json:"academic_year_id" binding:"required,gt=0"`
	EffectiveFrom  Date   `json:"effective_from"`
	EffectiveTo    Date   `json:"effective_to"`
	IsActive       *bool  `json:"is_active"`
}

// ScheduleConflictQuery selects schedules that may collide with a slot.
type ScheduleConflictQuery struct {
	ExcludeID      int
	DayOfWeek      string
	AcademicYearID int
	InstructorID   *int
	SchoolClassID  *int
	Room           string
}

// Timetable is a week of schedules grouped by day, Monday first.
type Timetable struct {
	Days []TimetableDay `json:"days"`
}

// TimetableDay holds the ordered slots of one weekday.
type TimetableDay struct {
	Day   string           `json:"day"`
	Slots []CourseSchedule `json:"slots"`
}
