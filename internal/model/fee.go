package model

import "time"

// FeeBillStatus is the payment state of a fee bill.
type FeeBillStatus string

const (
	FeeBillDraft         FeeBillStatus = "Draft"
	FeeBillUnpaid        FeeBillStatus = "Unpaid"
	FeeBillPartiallyPaid FeeBillStatus = "Partially Paid"
	FeeBillPaid          FeeBillStatus = "Paid"
	FeeBillOverdue       FeeBillStatus = "Overdue"
	FeeBillCancelled     FeeBillStatus = "Cancelled"
)

// FeeItem is one billed component (tuition, transport, canteen...).
type FeeItem struct {
	ID          int     `json:"id,omitempty"`
	FeeType     string  `json:"fee_type" binding:"required,max=100"`
	Description string  `json:"description,omitempty" binding:"omitempty,max=255"`
	Amount      float64 `json:"amount" binding:"gte=0"`
}

// FeeBill invoices a student for one or more fee items.
type FeeBill struct {
	ID                int           `json:"id"`
	StudentID         int           `json:"student_id"`
	StudentName       string        `json:"student_name"`
	MassarCode        string        `json:"massar_code,omitempty"`
	SchoolClassID     *int          `json:"school_class_id,omitempty"`
	AcademicYearID    *int          `json:"academic_year_id,omitempty"`
	PostingDate       Date          `json:"posting_date"`
	DueDate           Date          `json:"due_date"`
	Items             []FeeItem     `json:"items"`
	TotalAmount       float64       `json:"total_amount"`
	PaidAmount        float64       `json:"paid_amount"`
	OutstandingAmount float64       `json:"outstanding_amount"`
	Currency          string        `json:"currency"`
	Status            FeeBillStatus `json:"status"`
	DocStatus         DocStatus     `json:"docstatus"`
	Remarks           string        `json:"remarks,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// FeeBillRequest is the payload for drafting or editing a fee bill.
type FeeBillRequest struct {
	StudentID      int       `json:"student_id" binding:"required,gt=0"`
	AcademicYearID *int      `json:"academic_year_id"`
	PostingDate    Date      `json:"posting_date"`
	DueDate        Date      `json:"due_date"`
	Items          []FeeItem `json:"items" binding:"dive"`
	Currency       string    `json:"currency" binding:"omitempty,len=3"`
	Remarks        string    `json:"remarks" binding:"omitempty,max=1000"`
}

// FeeBillFilter narrows fee bill listings.
type FeeBillFilter struct {
	ListFilter
	StudentID     *int `form:"student_id"`
	SchoolClassID *int `form:"school_class_id"`
}

// FeeReminder is a bill selected by the weekly reminder job.
type FeeReminder struct {
	FeeBillID         int     `json:"fee_bill_id"`
	StudentName       string  `json:"student_name"`
	GuardianEmail     string  `json:"guardian_email"`
	DueDate           Date    `json:"due_date"`
	OutstandingAmount float64 `json:"outstanding_amount"`
	Currency          string  `json:"currency"`
}
