package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/easygo/easygo-schools/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCommunications struct {
	byID map[int]*model.CommunicationLog
}

func newFakeCommunications() *fakeCommunications {
	return &fakeCommunications{byID: map[int]*model.CommunicationLog{}}
}

func (f *fakeCommunications) GetByID(_ context.Context, id int) (*model.CommunicationLog, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCommunications) ListPaginated(context.Context, model.ListFilter, string, *int) ([]model.CommunicationLog, int, error) {
	return nil, 0, nil
}

func (f *fakeCommunications) Create(_ context.Context, c *model.CommunicationLog) error {
	c.ID = len(f.byID) + 1
	cp := *c
	f.byID[c.ID] = &cp
	return nil
}

func (f *fakeCommunications) Save(_ context.Context, c *model.CommunicationLog) error {
	cp := *c
	f.byID[c.ID] = &cp
	return nil
}

func (f *fakeCommunications) Delete(_ context.Context, id int) error {
	delete(f.byID, id)
	return nil
}

func newCommunicationFixture() (*CommunicationService, *fakeCommunications, *recordingNotifier) {
	logs := newFakeCommunications()
	notifier := &recordingNotifier{}
	return NewCommunicationService(logs, notifier, fixedClock(2025, time.October, 13), 2), logs, notifier
}

func parentsMeeting(channel string, recipients ...string) model.CommunicationRequest {
	return model.CommunicationRequest{
		Subject:    " Réunion parents-professeurs ",
		Message:    "La réunion aura lieu samedi à 10h.",
		Channel:    channel,
		Recipients: recipients,
	}
}

func TestTransition(t *testing.T) {
	clock := fixedClock(2025, time.October, 13)
	tests := []struct {
		from model.CommunicationStatus
		to   model.CommunicationStatus
		ok   bool
	}{
		{model.CommDraft, model.CommSent, true},
		{model.CommSent, model.CommDelivered, true},
		{model.CommSent, model.CommRead, true},
		{model.CommDelivered, model.CommRead, true},
		{model.CommDraft, model.CommFailed, true},
		{model.CommSent, model.CommFailed, true},
		{model.CommFailed, model.CommDraft, true},
		{model.CommDraft, model.CommDelivered, false},
		{model.CommRead, model.CommSent, false},
		{model.CommDelivered, model.CommFailed, false},
		{model.CommSent, model.CommDraft, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			c := &model.CommunicationLog{Status: tt.from}
			err := Transition(c, tt.to, clock)
			if !tt.ok {
				assert.ErrorIs(t, err, ErrInvalidState)
				assert.Equal(t, tt.from, c.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, c.Status)
		})
	}
}

func TestTransition_Timestamps(t *testing.T) {
	clock := fixedClock(2025, time.October, 13)
	c := &model.CommunicationLog{Status: model.CommDraft, ErrorMessage: "old"}

	require.NoError(t, Transition(c, model.CommSent, clock))
	require.NotNil(t, c.SentAt)
	assert.Equal(t, clock(), *c.SentAt)
	assert.Empty(t, c.ErrorMessage)

	require.NoError(t, Transition(c, model.CommDelivered, clock))
	assert.NotNil(t, c.DeliveredAt)
	require.NoError(t, Transition(c, model.CommRead, clock))
	assert.NotNil(t, c.ReadAt)
}

func TestValidateRecipients(t *testing.T) {
	c := &model.CommunicationLog{Channel: model.ChannelEmail, Recipients: []string{" a@example.ma ", "", "b@example.ma"}}
	require.NoError(t, ValidateRecipients(c))
	assert.Equal(t, []string{"a@example.ma", "b@example.ma"}, c.Recipients)

	c = &model.CommunicationLog{Channel: model.ChannelEmail, Recipients: []string{"0612345678"}}
	assert.Error(t, ValidateRecipients(c))

	c = &model.CommunicationLog{Channel: model.ChannelSMS, Recipients: []string{"0612345678"}}
	assert.NoError(t, ValidateRecipients(c))

	c = &model.CommunicationLog{Channel: model.ChannelSMS, Recipients: []string{"  "}}
	var verr *ValidationError
	require.ErrorAs(t, ValidateRecipients(c), &verr)
	assert.Equal(t, "recipients", verr.Field)
}

func TestCommunication_SendEmail(t *testing.T) {
	svc, logs, notifier := newCommunicationFixture()
	ctx := context.Background()

	c, err := svc.Create(ctx, parentsMeeting(model.ChannelEmail, "karim@example.ma"), nil)
	require.NoError(t, err)
	assert.Equal(t, "Réunion parents-professeurs", c.Subject)
	assert.Equal(t, model.CommDraft, c.Status)

	c, err = svc.Send(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CommSent, c.Status)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "La réunion aura lieu samedi à 10h.", notifier.sent[0].Body)
	assert.Equal(t, model.CommSent, logs.byID[c.ID].Status)

	_, err = svc.Send(ctx, c.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = svc.Update(ctx, c.ID, parentsMeeting(model.ChannelEmail, "karim@example.ma"))
	assert.ErrorIs(t, err, ErrNotEditable)
	assert.ErrorIs(t, svc.Delete(ctx, c.ID), ErrNotEditable)
}

func TestCommunication_SendOtherChannels(t *testing.T) {
	svc, _, notifier := newCommunicationFixture()
	ctx := context.Background()

	c, err := svc.Create(ctx, parentsMeeting(model.ChannelSMS, "0612345678"), nil)
	require.NoError(t, err)
	c, err = svc.Send(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CommSent, c.Status)
	assert.Empty(t, notifier.sent)
}

func TestCommunication_FailureAndRetry(t *testing.T) {
	svc, logs, notifier := newCommunicationFixture()
	ctx := context.Background()
	notifier.err = errors.New("smtp: connection refused")

	c, err := svc.Create(ctx, parentsMeeting(model.ChannelEmail, "karim@example.ma"), nil)
	require.NoError(t, err)

	c, err = svc.Send(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CommFailed, c.Status)
	assert.Equal(t, "smtp: connection refused", logs.byID[c.ID].ErrorMessage)

	c, err = svc.Retry(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CommFailed, c.Status)
	assert.Equal(t, 1, c.RetryCount)

	notifier.err = nil
	c, err = svc.Retry(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CommSent, c.Status)
	assert.Equal(t, 2, c.RetryCount)
	assert.Empty(t, c.ErrorMessage)

	_, err = svc.Retry(ctx, c.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCommunication_RetryExhausted(t *testing.T) {
	svc, logs, notifier := newCommunicationFixture()
	ctx := context.Background()
	notifier.err = errors.New("mailbox full")

	c, err := svc.Create(ctx, parentsMeeting(model.ChannelEmail, "karim@example.ma"), nil)
	require.NoError(t, err)
	_, err = svc.Send(ctx, c.ID)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err = svc.Retry(ctx, c.ID)
		require.NoError(t, err)
	}

	_, err = svc.Retry(ctx, c.ID)
	assert.ErrorIs(t, err, ErrRetryExhausted)
	assert.Equal(t, 2, logs.byID[c.ID].RetryCount)
	assert.NoError(t, svc.Delete(ctx, c.ID))
}

func TestCommunication_ManualMarks(t *testing.T) {
	svc, _, _ := newCommunicationFixture()
	ctx := context.Background()

	c, err := svc.Create(ctx, parentsMeeting(model.ChannelNotification, "parents-6A"), nil)
	require.NoError(t, err)

	_, err = svc.MarkAsDelivered(ctx, c.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = svc.MarkAsSent(ctx, c.ID)
	require.NoError(t, err)
	_, err = svc.MarkAsDelivered(ctx, c.ID)
	require.NoError(t, err)
	c, err = svc.MarkAsRead(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CommRead, c.Status)

	_, err = svc.MarkAsFailed(ctx, c.ID, "bounced")
	assert.ErrorIs(t, err, ErrInvalidState)

	other, err := svc.Create(ctx, parentsMeeting(model.ChannelNotification, "parents-6B"), nil)
	require.NoError(t, err)
	other, err = svc.MarkAsFailed(ctx, other.ID, "  passerelle indisponible ")
	require.NoError(t, err)
	assert.Equal(t, "passerelle indisponible", other.ErrorMessage)
}
