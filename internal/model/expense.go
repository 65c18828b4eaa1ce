package model

import "time"

// ExpenseStatus is the approval workflow state of an expense.
type ExpenseStatus string

const (
	ExpenseDraft           ExpenseStatus = "Draft"
	ExpensePendingApproval ExpenseStatus = "Pending Approval"
	ExpenseApproved        ExpenseStatus = "Approved"
	ExpenseRejected        ExpenseStatus = "Rejected"
	ExpensePaid            ExpenseStatus = "Paid"
	ExpenseCancelled       ExpenseStatus = "Cancelled"
)

// ExpensePaymentStatus tracks settlement with the supplier.
type ExpensePaymentStatus string

const (
	ExpenseUnpaid  ExpensePaymentStatus = "Unpaid"
	ExpenseSettled ExpensePaymentStatus = "Paid"
)

// ExpenseEntry is money spent against a budget line.
type ExpenseEntry struct {
	ID               int                  `json:"id"`
	BudgetLineID     *int                 `json:"budget_line_id,omitempty"`
	AccountID        int                  `json:"account_id"`
	ExpenseDate      Date                 `json:"expense_date"`
	Amount           float64              `json:"amount"`
	Description      string               `json:"description"`
	Supplier         string               `json:"supplier,omitempty"`
	InvoiceNo        string               `json:"invoice_no,omitempty"`
	Status           ExpenseStatus        `json:"status"`
	PaymentStatus    ExpensePaymentStatus `json:"payment_status"`
	RequestedBy      *int                 `json:"requested_by,omitempty"`
	ApprovalDate     *Date                `json:"approval_date,omitempty"`
	ApprovedBy       *int                 `json:"approved_by,omitempty"`
	RejectionReason  string               `json:"rejection_reason,omitempty"`
	PaidDate         *Date                `json:"paid_date,omitempty"`
	PaymentReference string               `json:"payment_reference,omitempty"`
	DocStatus        DocStatus            `json:"docstatus"`
	Warnings         []string             `json:"warnings,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

// ExpenseEntryRequest is the payload for drafting an expense.
type ExpenseEntryRequest struct {
	BudgetLineID *int    `json:"budget_line_id"`
	AccountID    int     `json:"account_id" binding:"required,gt=0"`
	ExpenseDate  Date    `json:"expense_date"`
	Amount       float64 `json:"amount" binding:"required"`
	Description  string  `json:"description" binding:"required,max=1000"`
	Supplier     string  `json:"supplier" binding:"omitempty,max=150"`
	InvoiceNo    string  `json:"invoice_no" binding:"omitempty,max=100"`
}

// MarkPaidRequest settles an approved expense.
type MarkPaidRequest struct {
	PaymentReference string `json:"payment_reference" binding:"omitempty,max=100"`
}

// ExpenseFilter narrows expense listings.
type ExpenseFilter struct {
	ListFilter
	BudgetLineID *int `form:"budget_line_id"`
}
