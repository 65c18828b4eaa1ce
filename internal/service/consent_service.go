package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/easygo/easygo-schools/internal/notify"
)

type consentStore interface {
	GetByID(ctx context.Context, id int) (*model.ParentConsent, error)
	ListByStudent(ctx context.Context, studentID int) ([]model.ParentConsent, error)
	Create(ctx context.Context, c *model.ParentConsent) error
	Save(ctx context.Context, c *model.ParentConsent) error
	ListExpiring(ctx context.Context, from, to model.Date) ([]model.ParentConsent, error)
	ExpireLapsed(ctx context.Context, today model.Date) (int64, error)
}

const (
	consentValidityDays = 365
	consentReminderDays = 30
)

// ConsentService records parent consents.
type ConsentService struct {
	consents  consentStore
	students  studentReader
	guardians guardianStore
	notes     *Notifications
	clock     Clock
}

// NewConsentService creates a new ConsentService.
func NewConsentService(consents consentStore, students studentReader, guardians guardianStore, notes *Notifications, clock Clock) *ConsentService {
	return &ConsentService{consents: consents, students: students, guardians: guardians, notes: notes, clock: clock}
}

// ConsentStatus derives the status of a consent on a given day.
func ConsentStatus(c *model.ParentConsent, today model.Date) model.ConsentStatus {
	switch {
	case c.Status == model.ConsentRevoked:
		return model.ConsentRevoked
	case !c.ExpiryDate.IsZero() && c.ExpiryDate.Before(today):
		return model.ConsentExpired
	case c.ConsentGiven && c.SignatureDate != nil:
		return model.ConsentApproved
	default:
		return model.ConsentPending
	}
}

func (s *ConsentService) Get(ctx context.Context, id int) (*model.ParentConsent, error) {
	return s.consents.GetByID(ctx, id)
}

func (s *ConsentService) ListByStudent(ctx context.Context, studentID int) ([]model.ParentConsent, error) {
	return s.consents.ListByStudent(ctx, studentID)
}

func (s *ConsentService) validate(ctx context.Context, c *model.ParentConsent) (*model.Student, error) {
	today := s.clock.today()
	if c.ConsentDate.IsZero() {
		c.ConsentDate = today
	}
	if c.ConsentDate.After(today) {
		return nil, invalid("consent_date", "cannot be in the future")
	}
	if c.ConsentGiven && c.SignatureDate == nil {
		return nil, invalid("signature_date", "is required when consent is given")
	}
	if c.ExpiryDate.IsZero() {
		c.ExpiryDate = c.ConsentDate.AddDays(consentValidityDays)
	}
	if !c.ExpiryDate.After(c.ConsentDate) {
		return nil, invalid("expiry_date", "must be after the consent date")
	}

	st, err := s.students.GetByID(ctx, c.StudentID)
	if err != nil {
		return nil, err
	}
	if st.GuardianID == nil || *st.GuardianID != c.GuardianID {
		return nil, invalid("guardian_id", "guardian %d is not the guardian of student %s", c.GuardianID, st.MassarCode)
	}
	c.Status = ConsentStatus(c, today)
	return st, nil
}

func applyConsent(c *model.ParentConsent, req model.ParentConsentRequest) {
	c.StudentID = req.StudentID
	c.GuardianID = req.GuardianID
	c.ConsentType = strings.TrimSpace(req.ConsentType)
	c.Description = req.Description
	c.ConsentGiven = req.ConsentGiven
	c.ConsentDate = req.ConsentDate
	c.SignatureDate = req.SignatureDate
	c.ExpiryDate = req.ExpiryDate
	c.Remarks = req.Remarks
}

// Create records a consent and confirms it to the guardian once approved.
func (s *ConsentService) Create(ctx context.Context, req model.ParentConsentRequest) (*model.ParentConsent, error) {
	c := &model.ParentConsent{}
	applyConsent(c, req)
	st, err := s.validate(ctx, c)
	if err != nil {
		return nil, err
	}
	if err := s.consents.Create(ctx, c); err != nil {
		return nil, err
	}
	if c.Status == model.ConsentApproved {
		s.confirm(ctx, c, st)
	}
	return c, nil
}

// Update modifies a consent that has not been revoked.
func (s *ConsentService) Update(ctx context.Context, id int, req model.ParentConsentRequest) (*model.ParentConsent, error) {
	c, err := s.consents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status == model.ConsentRevoked {
		return nil, stateError("consent %d has been revoked", c.ID)
	}
	before := c.Status
	applyConsent(c, req)
	st, err := s.validate(ctx, c)
	if err != nil {
		return nil, err
	}
	if err := s.consents.Save(ctx, c); err != nil {
		return nil, err
	}
	if before != model.ConsentApproved && c.Status == model.ConsentApproved {
		s.confirm(ctx, c, st)
	}
	return c, nil
}

func (s *ConsentService) confirm(ctx context.Context, c *model.ParentConsent, st *model.Student) {
	to := st.GuardianEmail
	if g, err := s.guardians.GetByID(ctx, c.GuardianID); err == nil && g.Email != "" {
		to = g.Email
	}
	s.notes.Send(ctx, notify.Message{
		To:            []string{to},
		Template:      notify.TplConsentApproved,
		ReferenceType: "Parent Consent",
		ReferenceID:   c.ID,
		Data: map[string]interface{}{
			"ConsentType": c.ConsentType,
			"StudentName": st.FullName(),
			"ExpiryDate":  c.ExpiryDate,
		},
	})
}

// Revoke withdraws a consent and notifies the guardian.
func (s *ConsentService) Revoke(ctx context.Context, id int, reason string) (*model.ParentConsent, error) {
	c, err := s.consents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status == model.ConsentRevoked {
		return nil, stateError("consent %d is already revoked", c.ID)
	}
	reason = strings.TrimSpace(reason)
	now := s.clock()
	note := fmt.Sprintf("Revoked on %s: %s", model.DateOf(now), reason)
	if c.Remarks != "" {
		c.Remarks += "\n" + note
	} else {
		c.Remarks = note
	}
	c.ConsentGiven = false
	c.Status = model.ConsentRevoked
	c.RevokedAt = timePtr(now)
	c.RevocationReason = reason
	if err := s.consents.Save(ctx, c); err != nil {
		return nil, err
	}

	if st, err := s.students.GetByID(ctx, c.StudentID); err == nil {
		to := st.GuardianEmail
		if g, err := s.guardians.GetByID(ctx, c.GuardianID); err == nil && g.Email != "" {
			to = g.Email
		}
		s.notes.Send(ctx, notify.Message{
			To:            []string{to},
			Template:      notify.TplConsentRevoked,
			ReferenceType: "Parent Consent",
			ReferenceID:   c.ID,
			Data: map[string]interface{}{
				"ConsentType": c.ConsentType,
				"StudentName": st.FullName(),
				"Reason":      reason,
			},
		})
	}
	return c, nil
}

// Expiring lists approved consents expiring within the reminder window.
func (s *ConsentService) Expiring(ctx context.Context) ([]model.ParentConsent, error) {
	today := s.clock.today()
	return s.consents.ListExpiring(ctx, today, today.AddDays(consentReminderDays))
}

// ExpireLapsed flags consents past their expiry date as Expired.
func (s *ConsentService) ExpireLapsed(ctx context.Context) (int64, error) {
	return s.consents.ExpireLapsed(ctx, s.clock.today())
}
