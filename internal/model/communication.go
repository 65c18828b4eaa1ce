package model

import "time"

// CommunicationStatus is the delivery state of a communication.
type CommunicationStatus string

const (
	CommDraft     CommunicationStatus = "Draft"
	CommSent      CommunicationStatus = "Sent"
	CommDelivered CommunicationStatus = "Delivered"
	CommRead      CommunicationStatus = "Read"
	CommFailed    CommunicationStatus = "Failed"
)

// Channels a communication can travel through.
const (
	ChannelEmail        = "Email"
	ChannelSMS          = "SMS"
	ChannelNotification = "Notification"
)

// CommunicationLog records a message sent (or to be sent) to families or staff.
type CommunicationLog struct {
	ID            int                 `json:"id"`
	Subject       string              `json:"subject"`
	Message       string              `json:"message"`
	Channel       string              `json:"channel"`
	Recipients    []string            `json:"recipients"`
	ReferenceType string              `json:"reference_type,omitempty"`
	ReferenceID   *int                `json:"reference_id,omitempty"`
	Status        CommunicationStatus `json:"status"`
	SentAt        *time.Time          `json:"sent_at,omitempty"`
	DeliveredAt   *time.Time          `json:"delivered_at,omitempty"`
	ReadAt        *time.Time          `json:"read_at,omitempty"`
	ErrorMessage  string              `json:"error_message,omitempty"`
	RetryCount    int                 `json:"retry_count"`
	CreatedBy     *int                `json:"created_by,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// CommunicationRequest is the payload for drafting a communication.
type CommunicationRequest struct {
	Subject       string   `json:"subject" binding:"required,max=255"`
	Message       string   `json:"message" binding:"required"`
	Channel       string   `json:"channel" binding:"required,oneof=Email SMS Notification"`
	Recipients    []string `json:"recipients" binding:"required,min=1"`
	ReferenceType string   `json:"reference_type" binding:"omitempty,max=50"`
	ReferenceID   *int     `json:"reference_id"`
}

// FailureRequest carries the delivery error of a communication.
type FailureRequest struct {
	Error string `json:"error" binding:"required,max=2000"`
}
