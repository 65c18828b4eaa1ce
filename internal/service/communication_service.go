package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/easygo/easygo-schools/internal/notify"
	"github.com/easygo/easygo-schools/internal/validator"
)

type communicationStore interface {
	GetByID(ctx context.Context, id int) (*model.CommunicationLog, error)
	ListPaginated(ctx context.Context, filter model.ListFilter, referenceType string, referenceID *int) ([]model.CommunicationLog, int, error)
	Create(ctx context.Context, c *model.CommunicationLog) error
	Save(ctx context.Context, c *model.CommunicationLog) error
	Delete(ctx context.Context, id int) error
}

// CommunicationService manages logged messages and their delivery states.
type CommunicationService struct {
	logs       communicationStore
	notifier   notify.Notifier
	clock      Clock
	maxRetries int
}

// NewCommunicationService creates a new CommunicationService.
func NewCommunicationService(logs communicationStore, notifier notify.Notifier, clock Clock, maxRetries int) *CommunicationService {
	return &CommunicationService{logs: logs, notifier: notifier, clock: clock, maxRetries: maxRetries}
}

// allowedFrom lists the states each transition may start from.
var allowedFrom = map[model.CommunicationStatus][]model.CommunicationStatus{
	model.CommSent:      {model.CommDraft},
	model.CommDelivered: {model.CommSent},
	model.CommRead:      {model.CommSent, model.CommDelivered},
	model.CommFailed:    {model.CommDraft, model.CommSent},
	model.CommDraft:     {model.CommFailed},
}

// Transition moves c to status `to`, stamping the matching timestamp.
func Transition(c *model.CommunicationLog, to model.CommunicationStatus, clock Clock) error {
	ok := false
	for _, from := range allowedFrom[to] {
		if c.Status == from {
			ok = true
			break
		}
	}
	if !ok {
		return stateError("communication %d cannot go from %s to %s", c.ID, c.Status, to)
	}
	now := clock()
	switch to {
	case model.CommSent:
		c.SentAt = &now
		c.ErrorMessage = ""
	case model.CommDelivered:
		c.DeliveredAt = &now
	case model.CommRead:
		c.ReadAt = &now
	}
	c.Status = to
	return nil
}

func (s *CommunicationService) Get(ctx context.Context, id int) (*model.CommunicationLog, error) {
	return s.logs.GetByID(ctx, id)
}

func (s *CommunicationService) List(ctx context.Context, filter model.ListFilter, referenceType string, referenceID *int) ([]model.CommunicationLog, int, error) {
	return s.logs.ListPaginated(ctx, filter, referenceType, referenceID)
}

// ValidateRecipients trims recipients and checks email addresses on the
// Email channel.
func ValidateRecipients(c *model.CommunicationLog) error {
	out := make([]string, 0, len(c.Recipients))
	for _, r := range c.Recipients {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if c.Channel == model.ChannelEmail && !validator.IsEmail(r) {
			return invalid("recipients", "%q is not a valid email address", r)
		}
		out = append(out, r)
	}
	if len(out) == 0 {
		return invalid("recipients", "at least one recipient is required")
	}
	c.Recipients = out
	return nil
}

func applyCommunication(c *model.CommunicationLog, req model.CommunicationRequest) {
	c.Subject = strings.TrimSpace(req.Subject)
	c.Message = req.Message
	c.Channel = req.Channel
	c.Recipients = req.Recipients
	c.ReferenceType = strings.TrimSpace(req.ReferenceType)
	c.ReferenceID = req.ReferenceID
}

// Create drafts a communication.
func (s *CommunicationService) Create(ctx context.Context, req model.CommunicationRequest, createdBy *int) (*model.CommunicationLog, error) {
	c := &model.CommunicationLog{Status: model.CommDraft, CreatedBy: createdBy}
	applyCommunication(c, req)
	if err := ValidateRecipients(c); err != nil {
		return nil, err
	}
	if err := s.logs.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Update edits a draft.
func (s *CommunicationService) Update(ctx context.Context, id int, req model.CommunicationRequest) (*model.CommunicationLog, error) {
	c, err := s.logs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status != model.CommDraft {
		return nil, ErrNotEditable
	}
	applyCommunication(c, req)
	if err := ValidateRecipients(c); err != nil {
		return nil, err
	}
	if err := s.logs.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CommunicationService) Delete(ctx context.Context, id int) error {
	c, err := s.logs.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if c.Status != model.CommDraft && c.Status != model.CommFailed {
		return ErrNotEditable
	}
	return s.logs.Delete(ctx, id)
}

// Send dispatches a draft. Email goes through the notifier; the other
// channels are recorded as sent. A delivery error leaves the record Failed
// with the error message rather than failing the call.
func (s *CommunicationService) Send(ctx context.Context, id int) (*model.CommunicationLog, error) {
	c, err := s.logs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.dispatch(ctx, c)
}

func (s *CommunicationService) dispatch(ctx context.Context, c *model.CommunicationLog) (*model.CommunicationLog, error) {
	if c.Status != model.CommDraft {
		return nil, stateError("only draft communications can be sent, this one is %s", c.Status)
	}
	var sendErr error
	if c.Channel == model.ChannelEmail {
		msg := notify.Message{
			To:            c.Recipients,
			Subject:       c.Subject,
			Body:          c.Message,
			ReferenceType: c.ReferenceType,
			ReferenceID:   derefInt(c.ReferenceID),
		}
		sendErr = s.notifier.Send(ctx, msg)
	}
	if sendErr != nil {
		if err := Transition(c, model.CommFailed, s.clock); err != nil {
			return nil, err
		}
		c.ErrorMessage = sendErr.Error()
	} else if err := Transition(c, model.CommSent, s.clock); err != nil {
		return nil, err
	}
	if err := s.logs.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CommunicationService) move(ctx context.Context, id int, to model.CommunicationStatus) (*model.CommunicationLog, error) {
	c, err := s.logs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Transition(c, to, s.clock); err != nil {
		return nil, err
	}
	if err := s.logs.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// MarkAsSent records a draft as sent without dispatching it.
func (s *CommunicationService) MarkAsSent(ctx context.Context, id int) (*model.CommunicationLog, error) {
	return s.move(ctx, id, model.CommSent)
}

func (s *CommunicationService) MarkAsDelivered(ctx context.Context, id int) (*model.CommunicationLog, error) {
	return s.move(ctx, id, model.CommDelivered)
}

func (s *CommunicationService) MarkAsRead(ctx context.Context, id int) (*model.CommunicationLog, error) {
	return s.move(ctx, id, model.CommRead)
}

// MarkAsFailed records a delivery error.
func (s *CommunicationService) MarkAsFailed(ctx context.Context, id int, reason string) (*model.CommunicationLog, error) {
	c, err := s.logs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Transition(c, model.CommFailed, s.clock); err != nil {
		return nil, err
	}
	c.ErrorMessage = strings.TrimSpace(reason)
	if err := s.logs.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Retry resets a failed communication to draft and sends it again.
func (s *CommunicationService) Retry(ctx context.Context, id int) (*model.CommunicationLog, error) {
	c, err := s.logs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status != model.CommFailed {
		return nil, stateError("only failed communications can be retried, this one is %s", c.Status)
	}
	if c.RetryCount >= s.maxRetries {
		return nil, fmt.Errorf("%w: communication %d was retried %d times", ErrRetryExhausted, c.ID, c.RetryCount)
	}
	if err := Transition(c, model.CommDraft, s.clock); err != nil {
		return nil, err
	}
	c.RetryCount++
	return s.dispatch(ctx, c)
}
