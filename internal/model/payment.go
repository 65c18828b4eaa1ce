package model

import "time"

// PaymentStatus is the verification state of a payment entry.
type PaymentStatus string

const (
	PaymentDraft     PaymentStatus = "Draft"
	PaymentVerified  PaymentStatus = "Verified"
	PaymentFailed    PaymentStatus = "Failed"
	PaymentCancelled PaymentStatus = "Cancelled"
)

// Modes of payment accepted by the school cashier.
const (
	ModeCash         = "Cash"
	ModeCheque       = "Cheque"
	ModeBankTransfer = "Bank Transfer"
	ModeCard         = "Card"
	ModeOnline       = "Online"
)

// PaymentEntry records money received against a fee bill.
type PaymentEntry struct {
	ID              int           `json:"id"`
	FeeBillID       int           `json:"fee_bill_id"`
	StudentID       int           `json:"student_id"`
	StudentName     string        `json:"student_name,omitempty"`
	PaymentDate     Date          `json:"payment_date"`
	PaidAmount      float64       `json:"paid_amount"`
	Currency        string        `json:"currency"`
	ExchangeRate    float64       `json:"exchange_rate"`
	BaseAmount      float64       `json:"base_amount"`
	ModeOfPayment   string        `json:"mode_of_payment"`
	ReferenceNo     string        `json:"reference_no,omitempty"`
	Status          PaymentStatus `json:"status"`
	DocStatus       DocStatus     `json:"docstatus"`
	ReceiptNo       string        `json:"receipt_no,omitempty"`
	VerifiedBy      *int          `json:"verified_by,omitempty"`
	VerifiedAt      *time.Time    `json:"verified_at,omitempty"`
	RejectionReason string        `json:"rejection_reason,omitempty"`
	Remarks         string        `json:"remarks,omitempty"`
	Warnings        []string      `json:"warnings,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// PaymentEntryRequest is the payload for drafting a payment.
type PaymentEntryRequest struct {
	FeeBillID     int     `json:"fee_bill_id" binding:"required,gt=0"`
	PaymentDate   Date    `json:"payment_date"`
	PaidAmount    float64 `json:"paid_amount" binding:"required"`
	Currency      string  `json:"currency" binding:"omitempty,len=3"`
	ExchangeRate  float64 `json:"exchange_rate" binding:"omitempty,gt=0"`
	ModeOfPayment string  `json:"mode_of_payment" binding:"required,oneof=Cash Cheque 'Bank Transfer' Card Online"`
	ReferenceNo   string  `json:"reference_no" binding:"omitempty,max=100"`
	Remarks       string  `json:"remarks" binding:"omitempty,max=1000"`
}

// PaymentReceipt is the printable acknowledgement of a verified payment.
type PaymentReceipt struct {
	ReceiptNo         string  `json:"receipt_no"`
	PaymentID         int     `json:"payment_id"`
	StudentName       string  `json:"student_name"`
	MassarCode        string  `json:"massar_code"`
	FeeBillID         int     `json:"fee_bill_id"`
	PaymentDate       Date    `json:"payment_date"`
	PaidAmount        float64 `json:"paid_amount"`
	Currency          string  `json:"currency"`
	ModeOfPayment     string  `json:"mode_of_payment"`
	ReferenceNo       string  `json:"reference_no,omitempty"`
	BillTotal         float64 `json:"bill_total"`
	OutstandingAmount float64 `json:"outstanding_amount"`
	SchoolName        string  `json:"school_name"`
}
