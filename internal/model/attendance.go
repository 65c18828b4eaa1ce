package model

import "time"

// AttendanceStatus is the presence state recorded for a student on a day.
type AttendanceStatus string

const (
	AttendancePresent         AttendanceStatus = "Present"
	AttendanceAbsent          AttendanceStatus = "Absent"
	AttendanceLate            AttendanceStatus = "Late"
	AttendanceExcused         AttendanceStatus = "Excused"
	AttendanceAbsentJustified AttendanceStatus = "Absent Justifié"
)

// StudentAttendance is the daily presence record of a student.
type StudentAttendance struct {
	ID             int              `json:"id"`
	StudentID      int              `json:"student_id"`
	StudentName    string           `json:"student_name,omitempty"`
	SchoolClassID  int              `json:"school_class_id"`
	AttendanceDate Date             `json:"attendance_date"`
	Status         AttendanceStatus `json:"status"`
	IsJustified    bool             `json:"is_justified"`
	Justification  string           `json:"justification,omitempty"`
	ArrivalTime    string           `json:"arrival_time,omitempty"`
	MarkedBy       *int             `json:"marked_by,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// StudentAttendanceRequest is the payload for marking one student.
type StudentAttendanceRequest struct {
	StudentID      int              `json:"student_id" binding:"required,gt=0"`
	AttendanceDate Date             `json:"attendance_date"`
	Status         AttendanceStatus `json:"status" binding:"required,oneof=Present Absent Late Excused"`
	IsJustified    bool             `json:"is_justified"`
	Justification  string           `json:"justification" binding:"omitempty,max=1000"`
	ArrivalTime    string           `json:"arrival_time" binding:"omitempty,datetime=15:04"`
}

// BulkAttendanceRequest marks a whole class on one date.
type BulkAttendanceRequest struct {
	SchoolClassID  int                        `json:"school_class_id" binding:"required,gt=0"`
	AttendanceDate Date                       `json:"attendance_date"`
	Entries        []StudentAttendanceRequest `json:"entries" binding:"required,min=1,dive"`
}

// AttendanceFilter narrows attendance listings.
type AttendanceFilter struct {
	ListFilter
	SchoolClassID *int  `form:"school_class_id"`
	StudentID     *int  `form:"student_id"`
	From          *Date `form:"from"`
	To            *Date `form:"to"`
}

// AttendanceSummary counts statuses for a class over a period.
type AttendanceSummary struct {
	SchoolClassID  int     `json:"school_class_id"`
	ClassName      string  `json:"class_name"`
	TotalMarks     int     `json:"total_marks"`
	Present        int     `json:"present"`
	Absent         int     `json:"absent"`
	Late           int     `json:"late"`
	Excused        int     `json:"excused"`
	AttendanceRate float64 `json:"attendance_rate"`
}

// AttendanceEvent is published on the live attendance feed.
type AttendanceEvent struct {
	Event          string           `json:"event"`
	AttendanceID   int              `json:"attendance_id"`
	StudentID      int              `json:"student_id"`
	StudentName    string           `json:"student_name"`
	SchoolClassID  int              `json:"school_class_id"`
	AttendanceDate Date             `json:"attendance_date"`
	Status         AttendanceStatus `json:"status"`
	At             time.Time        `json:"at"`
}

// ClassReminder is a class missing today's attendance, with its teacher.
type ClassReminder struct {
	SchoolClassID int    `json:"school_class_id"`
	ClassName     string `json:"class_name"`
	TeacherName   string `json:"teacher_name"`
	TeacherEmail  string `json:"teacher_email"`
}

// LateArrival is a student marked late today, with the guardian contact.
type LateArrival struct {
	StudentID     int    `json:"student_id"`
	StudentName   string `json:"student_name"`
	ClassName     string `json:"class_name"`
	ArrivalTime   string `json:"arrival_time"`
	GuardianEmail string `json:"guardian_email"`
}

// AbsenceStreak is a student absent repeatedly over the last few days.
type AbsenceStreak struct {
	StudentID     int    `json:"student_id"`
	StudentName   string `json:"student_name"`
	ClassName     string `json:"class_name"`
	Absences      int    `json:"absences"`
	GuardianEmail string `json:"guardian_email"`
}

// WeeklyAttendance is one student's marks over a week, with the class
// teacher and guardian contacts.
type WeeklyAttendance struct {
	SchoolClassID int    `json:"school_class_id"`
	ClassName     string `json:"class_name"`
	TeacherName   string `json:"teacher_name"`
	TeacherEmail  string `json:"teacher_email"`
	StudentID     int    `json:"student_id"`
	StudentName   string `json:"student_name"`
	GuardianEmail string `json:"guardian_email"`
	Total         int    `json:"total"`
	Present       int    `json:"present"`
	Absent        int    `json:"absent"`
	Late          int    `json:"late"`
}

// Rate is the share of marks counted as attended, Late included.
func (w WeeklyAttendance) Rate() float64 {
	if w.Total == 0 {
		return 0
	}
	return float64(w.Present+w.Late) * 100 / float64(w.Total)
}
