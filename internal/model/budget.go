package model

import "time"

// BudgetStatus is the workflow state of a budget.
type BudgetStatus string

const (
	BudgetDraft           BudgetStatus = "Draft"
	BudgetPendingApproval BudgetStatus = "Pending Approval"
	BudgetActive          BudgetStatus = "Active"
	BudgetClosed          BudgetStatus = "Closed"
	BudgetCancelled       BudgetStatus = "Cancelled"
)

// Budget allocates money to a cost center for a period, split in lines.
type Budget struct {
	ID               int          `json:"id"`
	BudgetName       string       `json:"budget_name"`
	CostCenter       string       `json:"cost_center"`
	AcademicYearID   *int         `json:"academic_year_id,omitempty"`
	StartDate        Date         `json:"start_date"`
	EndDate          Date         `json:"end_date"`
	TotalAmount      float64      `json:"total_amount"`
	ApprovalRequired bool         `json:"approval_required"`
	Status           BudgetStatus `json:"status"`
	DocStatus        DocStatus    `json:"docstatus"`
	ApprovedBy       *int         `json:"approved_by,omitempty"`
	ApprovedAt       *time.Time   `json:"approved_at,omitempty"`
	Lines            []BudgetLine `json:"lines"`
	Warnings         []string     `json:"warnings,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// BudgetRequest is the payload for drafting a budget with its lines.
type BudgetRequest struct {
	BudgetName       string              `json:"budget_name" binding:"required,max=150"`
	CostCenter       string              `json:"cost_center" binding:"required,max=100"`
	AcademicYearID   *int                `json:"academic_year_id"`
	StartDate        Date                `json:"start_date"`
	EndDate          Date                `json:"end_date"`
	TotalAmount      float64             `json:"total_amount"`
	ApprovalRequired bool                `json:"approval_required"`
	Lines            []BudgetLineRequest `json:"lines" binding:"dive"`
}

// BudgetLineStatus reflects the consumption of a line.
type BudgetLineStatus string

const (
	BudgetLineActive    BudgetLineStatus = "Active"
	BudgetLineInactive  BudgetLineStatus = "Inactive"
	BudgetLineExhausted BudgetLineStatus = "Exhausted"
	BudgetLineOverspent BudgetLineStatus = "Overspent"
)

// BudgetLine is the allocation of part of a budget to an expense account.
type BudgetLine struct {
	ID                  int              `json:"id"`
	BudgetID            int              `json:"budget_id"`
	AccountID           int              `json:"account_id"`
	AccountName         string           `json:"account_name,omitempty"`
	Description         string           `json:"description,omitempty"`
	StartDate           Date             `json:"start_date"`
	EndDate             Date             `json:"end_date"`
	AllocatedAmount     float64          `json:"allocated_amount"`
	ConsumedAmount      float64          `json:"consumed_amount"`
	RemainingAmount     float64          `json:"remaining_amount"`
	PercentageConsumed  float64          `json:"percentage_consumed"`
	AllowOverspend      bool             `json:"allow_overspend"`
	OverspendLimit      float64          `json:"overspend_limit"`
	Status              BudgetLineStatus `json:"status"`
	IsActive            bool             `json:"is_active"`
	BudgetManagerEmail  string           `json:"budget_manager_email,omitempty"`
	LastAlertPercentage float64          `json:"-"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

// BudgetLineRequest is the payload for one line of a budget.
type BudgetLineRequest struct {
	AccountID          int     `json:"account_id" binding:"required,gt=0"`
	Description        string  `json:"description" binding:"omitempty,max=255"`
	StartDate          Date    `json:"start_date"`
	EndDate            Date    `json:"end_date"`
	AllocatedAmount    float64 `json:"allocated_amount"`
	AllowOverspend     bool    `json:"allow_overspend"`
	OverspendLimit     float64 `json:"overspend_limit"`
	BudgetManagerEmail string  `json:"budget_manager_email" binding:"omitempty,schoolemail"`
}

// AlertLevel grades how close a budget line is to exhaustion.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "Info"
	AlertWarning  AlertLevel = "Warning"
	AlertCritical AlertLevel = "Critical"
)

// BudgetAlert is raised when a line crosses a consumption threshold.
type BudgetAlert struct {
	ID           int        `json:"id"`
	BudgetLineID int        `json:"budget_line_id"`
	Level        AlertLevel `json:"level"`
	Percentage   float64    `json:"percentage"`
	Message      string     `json:"message"`
	IsResolved   bool       `json:"is_resolved"`
	CreatedAt    time.Time  `json:"created_at"`
}

// BudgetAvailability answers "can this line absorb this amount?".
type BudgetAvailability struct {
	Available       bool    `json:"available"`
	AvailableAmount float64 `json:"available_amount"`
	RequestedAmount float64 `json:"requested_amount"`
	Shortage        float64 `json:"shortage"`
}

// BudgetLineRevision logs a reallocation of a budget line.
type BudgetLineRevision struct {
	ID           int       `json:"id"`
	BudgetLineID int       `json:"budget_line_id"`
	OldAmount    float64   `json:"old_amount"`
	NewAmount    float64   `json:"new_amount"`
	Reason       string    `json:"reason"`
	RevisedBy    *int      `json:"revised_by,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ReallocateRequest is the payload for changing a line's allocation.
type ReallocateRequest struct {
	NewAmount float64 `json:"new_amount" binding:"required"`
	Reason    string  `json:"reason" binding:"required,max=1000"`
}

// AvailabilityRequest asks whether a line can absorb an amount.
type AvailabilityRequest struct {
	Amount float64 `json:"amount" form:"amount" binding:"required,gt=0"`
}
