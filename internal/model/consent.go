package model

import "time"

// ConsentStatus is the state of a parent consent.
type ConsentStatus string

const (
	ConsentPending  ConsentStatus = "Pending"
	ConsentApproved ConsentStatus = "Approved"
	ConsentExpired  ConsentStatus = "Expired"
	ConsentRevoked  ConsentStatus = "Revoked"
)

// ParentConsent records a guardian's authorization for an activity
// (photos, field trips, medical care...).
type ParentConsent struct {
	ID               int           `json:"id"`
	StudentID        int           `json:"student_id"`
	GuardianID       int           `json:"guardian_id"`
	ConsentType      string        `json:"consent_type"`
	Description      string        `json:"description,omitempty"`
	ConsentGiven     bool          `json:"consent_given"`
	ConsentDate      Date          `json:"consent_date"`
	SignatureDate    *Date         `json:"signature_date,omitempty"`
	ExpiryDate       Date          `json:"expiry_date"`
	Status           ConsentStatus `json:"status"`
	Remarks          string        `json:"remarks,omitempty"`
	RevokedAt        *time.Time    `json:"revoked_at,omitempty"`
	RevocationReason string        `json:"revocation_reason,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// ParentConsentRequest is the payload for recording a consent.
type ParentConsentRequest struct {
	StudentID     int    `json:"student_id" binding:"required,gt=0"`
	GuardianID    int    `json:"guardian_id" binding:"required,gt=0"`
	ConsentType   string `json:"consent_type" binding:"required,max=100"`
	Description   string `json:"description" binding:"omitempty,max=1000"`
	ConsentGiven  bool   `json:"consent_given"`
	ConsentDate   Date   `json:"consent_date"`
	SignatureDate *Date  `json:"signature_date"`
	ExpiryDate    Date   `json:"expiry_date"`
	Remarks       string `json:"remarks" binding:"omitempty,max=1000"`
}

// ReasonRequest carries a free-text reason for reject/revoke style actions.
type ReasonRequest struct {
	Reason string `json:"reason" binding:"required,max=1000"`
}
