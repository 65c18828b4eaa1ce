package model

import "time"

// EmployeeStatus is the employment state of a staff member.
type EmployeeStatus string

const (
	EmployeeActive   EmployeeStatus = "Active"
	EmployeeInactive EmployeeStatus = "Inactive"
	EmployeeLeft     EmployeeStatus = "Left"
)

// Employee is a teacher or administrative staff member.
type Employee struct {
	ID            int            `json:"id"`
	EmployeeID    string         `json:"employee_id"`
	FirstName     string         `json:"first_name"`
	LastName      string         `json:"last_name"`
	Email         string         `json:"email"`
	Phone         string         `json:"phone,omitempty"`
	CIN           string         `json:"cin,omitempty"`
	Gender        string         `json:"gender,omitempty"`
	DateOfBirth   Date           `json:"date_of_birth"`
	DateOfJoining Date           `json:"date_of_joining"`
	Designation   string         `json:"designation"`
	Department    string         `json:"department,omitempty"`
	ReportsTo     *int           `json:"reports_to,omitempty"`
	Status        EmployeeStatus `json:"status"`
	BasicSalary   float64        `json:"basic_salary"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// FullName returns "First Last".
func (e *Employee) FullName() string {
	return e.FirstName + " " + e.LastName
}

// EmployeeRequest is the payload for creating or updating an employee.
type EmployeeRequest struct {
	EmployeeID    string         `json:"employee_id" binding:"required,max=30"`
	FirstName     string         `json:"first_name" binding:"required,max=100"`
	LastName      string         `json:"last_name" binding:"required,max=100"`
	Email         string         `json:"email" binding:"required,schoolemail"`
	Phone         string         `json:"phone" binding:"omitempty,max=30"`
	CIN           string         `json:"cin" binding:"omitempty,max=20"`
	Gender        string         `json:"gender" binding:"omitempty,oneof=M F"`
	DateOfBirth   Date           `json:"date_of_birth"`
	DateOfJoining Date           `json:"date_of_joining"`
	Designation   string         `json:"designation" binding:"required,max=100"`
	Department    string         `json:"department" binding:"omitempty,max=100"`
	ReportsTo     *int           `json:"reports_to"`
	Status        EmployeeStatus `json:"status" binding:"omitempty,oneof=Active Inactive Left"`
	BasicSalary   float64        `json:"basic_salary" binding:"gte=0"`
}

// HRAttendanceStatus is the presence state of an employee on a day.
type HRAttendanceStatus string

const (
	HRPresent      HRAttendanceStatus = "Present"
	HRAbsent       HRAttendanceStatus = "Absent"
	HRHalfDay      HRAttendanceStatus = "Half Day"
	HROnLeave      HRAttendanceStatus = "On Leave"
	HRWorkFromHome HRAttendanceStatus = "Work From Home"
)

// Approval states of an HR attendance record.
const (
	HRApprovalOpen     = "Open"
	HRApprovalApproved = "Approved"
	HRApprovalRejected = "Rejected"
)

// HRAttendance is the daily presence record of an employee.
type HRAttendance struct {
	ID             int                `json:"id"`
	EmployeeID     int                `json:"employee_id"`
	EmployeeName   string             `json:"employee_name,omitempty"`
	AttendanceDate Date               `json:"attendance_date"`
	Status         HRAttendanceStatus `json:"status"`
	InTime         string             `json:"in_time,omitempty"`
	OutTime        string             `json:"out_time,omitempty"`
	WorkingHours   float64            `json:"working_hours"`
	LateEntry      bool               `json:"late_entry"`
	EarlyExit      bool               `json:"early_exit"`
	ApprovalStatus string             `json:"approval_status"`
	ApprovedBy     *int               `json:"approved_by,omitempty"`
	Remarks        string             `json:"remarks,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// HRAttendanceRequest is the payload for marking one employee.
type HRAttendanceRequest struct {
	EmployeeID     int                `json:"employee_id" binding:"required,gt=0"`
	AttendanceDate Date               `json:"attendance_date"`
	Status         HRAttendanceStatus `json:"status" binding:"required,oneof=Present Absent 'Half Day' 'On Leave' 'Work From Home'"`
	InTime         string             `json:"in_time" binding:"omitempty,datetime=15:04"`
	OutTime        string             `json:"out_time" binding:"omitempty,datetime=15:04"`
	Remarks        string             `json:"remarks" binding:"omitempty,max=1000"`
}

// BulkHRAttendanceRequest marks several employees on one date.
type BulkHRAttendanceRequest struct {
	AttendanceDate Date                  `json:"attendance_date"`
	Entries        []HRAttendanceRequest `json:"entries" binding:"required,min=1,dive"`
}

// HRAttendanceSummary counts employee statuses for a period.
type HRAttendanceSummary struct {
	EmployeeID   *int    `json:"employee_id,omitempty"`
	From         Date    `json:"from"`
	To           Date    `json:"to"`
	Present      int     `json:"present"`
	Absent       int     `json:"absent"`
	HalfDay      int     `json:"half_day"`
	OnLeave      int     `json:"on_leave"`
	WorkFromHome int     `json:"work_from_home"`
	LateEntries  int     `json:"late_entries"`
	TotalHours   float64 `json:"total_hours"`
}

// SalaryComponent is one earning or deduction line of a salary slip.
type SalaryComponent struct {
	Component string  `json:"component" binding:"required,max=100"`
	Amount    float64 `json:"amount" binding:"gte=0"`
}

// SalarySlip is the monthly pay statement of an employee.
type SalarySlip struct {
	ID              int               `json:"id"`
	EmployeeID      int               `json:"employee_id"`
	EmployeeName    string            `json:"employee_name,omitempty"`
	PeriodStart     Date              `json:"period_start"`
	PeriodEnd       Date              `json:"period_end"`
	BasicSalary     float64           `json:"basic_salary"`
	Earnings        []SalaryComponent `json:"earnings"`
	Deductions      []SalaryComponent `json:"deductions"`
	GrossSalary     float64           `json:"gross_salary"`
	TotalDeductions float64           `json:"total_deductions"`
	NetSalary       float64           `json:"net_salary"`
	WorkingDays     int               `json:"working_days"`
	PresentDays     float64           `json:"present_days"`
	Status          string            `json:"status"`
	DocStatus       DocStatus         `json:"docstatus"`
	Warnings        []string          `json:"warnings,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// SalarySlipRequest is the payload for drafting a salary slip.
type SalarySlipRequest struct {
	EmployeeID  int               `json:"employee_id" binding:"required,gt=0"`
	PeriodStart Date              `json:"period_start"`
	PeriodEnd   Date              `json:"period_end"`
	BasicSalary *float64          `json:"basic_salary" binding:"omitempty,gte=0"`
	Earnings    []SalaryComponent `json:"earnings" binding:"dive"`
	Deductions  []SalaryComponent `json:"deductions" binding:"dive"`
}

// PayrollIssue is one finding of the monthly payroll check.
type PayrollIssue struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}
