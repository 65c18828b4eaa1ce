package model

import "time"

// TransferType says what happens to the student once a transfer completes.
type TransferType string

const (
	TransferInternal   TransferType = "Internal"
	TransferExternal   TransferType = "External"
	TransferWithdrawal TransferType = "Withdrawal"
	TransferGraduation TransferType = "Graduation"
)

// TransferStatus is the workflow state of a student transfer.
type TransferStatus string

const (
	TransferDraft           TransferStatus = "Draft"
	TransferPendingApproval TransferStatus = "Pending Approval"
	TransferApproved        TransferStatus = "Approved"
	TransferRejected        TransferStatus = "Rejected"
	TransferCompleted       TransferStatus = "Completed"
	TransferCancelled       TransferStatus = "Cancelled"
)

// StudentTransfer moves a student between classes or out of the school.
type StudentTransfer struct {
	ID              int            `json:"id"`
	StudentID       int            `json:"student_id"`
	StudentName     string         `json:"student_name,omitempty"`
	TransferType    TransferType   `json:"transfer_type"`
	FromClassID     *int           `json:"from_class_id,omitempty"`
	ToClassID       *int           `json:"to_class_id,omitempty"`
	ToSchool        string         `json:"to_school,omitempty"`
	TransferDate    Date           `json:"transfer_date"`
	Reason          string         `json:"reason"`
	Status          TransferStatus `json:"status"`
	DocStatus       DocStatus      `json:"docstatus"`
	ApprovedBy      *int           `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time     `json:"approved_at,omitempty"`
	RejectionReason string         `json:"rejection_reason,omitempty"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// StudentTransferRequest is the payload for drafting a transfer.
type StudentTransferRequest struct {
	StudentID    int          `json:"student_id" binding:"required,gt=0"`
	TransferType TransferType `json:"transfer_type" binding:"required,oneof=Internal External Withdrawal Graduation"`
	ToClassID    *int         `json:"to_class_id"`
	ToSchool     string       `json:"to_school" binding:"omitempty,max=200"`
	TransferDate Date         `json:"transfer_date"`
	Reason       string       `json:"reason" binding:"required,max=1000"`
}
