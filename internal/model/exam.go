package model

import "time"

// ExamStatus is the lifecycle state of an exam.
type ExamStatus string

const (
	ExamDraft     ExamStatus = "Draft"
	ExamScheduled ExamStatus = "Scheduled"
	ExamOngoing   ExamStatus = "Ongoing"
	ExamCompleted ExamStatus = "Completed"
	ExamCancelled ExamStatus = "Cancelled"
)

// Exam is a scheduled assessment of a class in a subject.
type Exam struct {
	ID              int        `json:"id"`
	ExamName        string     `json:"exam_name"`
	Subject         string     `json:"subject"`
	SchoolClassID   int        `json:"school_class_id"`
	AcademicTermID  *int       `json:"academic_term_id,omitempty"`
	ExamDate        Date       `json:"exam_date"`
	StartTime       string     `json:"start_time"`
	EndTime         string     `json:"end_time"`
	DurationMinutes int        `json:"duration_minutes"`
	Room            string     `json:"room,omitempty"`
	MaxMarks        float64    `json:"max_marks"`
	PassingMarks    float64    `json:"passing_marks"`
	Status          ExamStatus `json:"status"`
	DocStatus       DocStatus  `json:"docstatus"`
	CreatedBy       *int       `json:"created_by,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ExamRequest is the payload for drafting an exam.
type ExamRequest struct {
	ExamName       string  `json:"exam_name" binding:"required,max=150"`
	Subject        string  `json:"subject" binding:"required,max=100"`
	SchoolClassID  int     `json:"school_class_id" binding:"required,gt=0"`
	AcademicTermID *int    `json:"academic_term_id"`
	ExamDate       Date    `json:"exam_date"`
	StartTime      string  `json:"start_time" binding:"required,datetime=15:04"`
	EndTime        string  `json:"end_time" binding:"required,datetime=15:04"`
	Room           string  `json:"room" binding:"omitempty,max=50"`
	MaxMarks       float64 `json:"max_marks"`
	PassingMarks   float64 `json:"passing_marks"`
}

// Grade is the mark of a student in an assessment.
type Grade struct {
	ID             int       `json:"id"`
	StudentID      int       `json:"student_id"`
	StudentName    string    `json:"student_name,omitempty"`
	ExamID         *int      `json:"exam_id,omitempty"`
	AcademicTermID *int      `json:"academic_term_id,omitempty"`
	Subject        string    `json:"subject"`
	Assessment     string    `json:"assessment"`
	AssessmentDate Date      `json:"assessment_date"`
	Grade          float64   `json:"grade"`
	MaxGrade       float64   `json:"max_grade"`
	Percentage     float64   `json:"percentage"`
	LetterGrade    string    `json:"letter_grade"`
	GradePoints    float64   `json:"grade_points"`
	IsPublished    bool      `json:"is_published"`
	Remarks        string    `json:"remarks,omitempty"`
	GradedBy       *int      `json:"graded_by,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// GradeRequest is the payload for recording a grade.
type GradeRequest struct {
	StudentID      int     `json:"student_id" binding:"required,gt=0"`
	ExamID         *int    `json:"exam_id"`
	AcademicTermID *int    `json:"academic_term_id"`
	Subject        string  `json:"subject" binding:"required,max=100"`
	Assessment     string  `json:"assessment" binding:"required,max=100"`
	AssessmentDate Date    `json:"assessment_date"`
	Grade          float64 `json:"grade"`
	MaxGrade       float64 `json:"max_grade"`
	Remarks        string  `json:"remarks" binding:"omitempty,max=1000"`
}

// GradeFilter narrows grade listings.
type GradeFilter struct {
	ListFilter
	StudentID *int   `form:"student_id"`
	ExamID    *int   `form:"exam_id"`
	Subject   string `form:"subject"`
}

// ReportCardLine averages a student's grades in one subject.
type ReportCardLine struct {
	Subject        string  `json:"subject"`
	Assessments    int     `json:"assessments"`
	AveragePercent float64 `json:"average_percentage"`
	LetterGrade    string  `json:"letter_grade"`
	GradePoints    float64 `json:"grade_points"`
}

// ReportCard is the per-subject summary of a student's published grades.
type ReportCard struct {
	StudentID   int              `json:"student_id"`
	StudentName string           `json:"student_name"`
	Lines       []ReportCardLine `json:"lines"`
	OverallGPA  float64          `json:"overall_gpa"`
}
