package service

import (
	"context"
	"testing"
	"time"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/easygo/easygo-schools/internal/notify"
	"github.com/easygo/easygo-schools/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConsents struct {
	byID map[int]*model.ParentConsent
}

func (f *fakeConsents) GetByID(_ context.Context, id int) (*model.ParentConsent, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeConsents) ListByStudent(_ context.Context, studentID int) ([]model.ParentConsent, error) {
	var out []model.ParentConsent
	for _, c := range f.byID {
		if c.StudentID == studentID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeConsents) Create(_ context.Context, c *model.ParentConsent) error {
	c.ID = len(f.byID) + 1
	cp := *c
	f.byID[c.ID] = &cp
	return nil
}

func (f *fakeConsents) Save(_ context.Context, c *model.ParentConsent) error {
	cp := *c
	f.byID[c.ID] = &cp
	return nil
}

func (f *fakeConsents) ListExpiring(_ context.Context, from, to model.Date) ([]model.ParentConsent, error) {
	var out []model.ParentConsent
	for _, c := range f.byID {
		if c.Status == model.ConsentApproved && !c.ExpiryDate.Before(from) && !c.ExpiryDate.After(to) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeConsents) ExpireLapsed(_ context.Context, today model.Date) (int64, error) {
	var n int64
	for _, c := range f.byID {
		if c.Status != model.ConsentRevoked && c.Status != model.ConsentExpired && c.ExpiryDate.Before(today) {
			c.Status = model.ConsentExpired
			n++
		}
	}
	return n, nil
}

type consentFixture struct {
	svc      *ConsentService
	consents *fakeConsents
	notifier *recordingNotifier
}

func newConsentFixture(clock Clock) *consentFixture {
	students := newFakeStudents(model.Student{
		ID: 1, MassarCode: "12345678901", FirstName: "Salma", LastName: "Idrissi",
		GuardianID: intPtr(1), GuardianEmail: "old@example.ma", Status: model.StudentActive,
	})
	guardians := &fakeGuardians{byID: map[int]*model.Guardian{
		1: {ID: 1, FullName: "Karim Idrissi", Email: "karim@example.ma"},
		2: {ID: 2, FullName: "Autre parent", Email: "autre@example.ma"},
	}}
	consents := &fakeConsents{byID: map[int]*model.ParentConsent{}}
	notifier := &recordingNotifier{}
	svc := NewConsentService(consents, students, guardians, newTestNotifications(notifier, clock), clock)
	return &consentFixture{svc: svc, consents: consents, notifier: notifier}
}

func signedTripConsent() model.ParentConsentRequest {
	return model.ParentConsentRequest{
		StudentID:     1,
		GuardianID:    1,
		ConsentType:   "Sortie scolaire",
		Description:   "Visite du musée Mohammed VI",
		ConsentGiven:  true,
		SignatureDate: datePtr(model.NewDate(2025, time.October, 1)),
	}
}

func TestConsentStatus(t *testing.T) {
	today := model.NewDate(2025, time.October, 1)
	signed := datePtr(today)
	tests := []struct {
		name string
		c    model.ParentConsent
		want model.ConsentStatus
	}{
		{"revoked wins", model.ParentConsent{Status: model.ConsentRevoked, ConsentGiven: true, SignatureDate: signed}, model.ConsentRevoked},
		{"expired", model.ParentConsent{ConsentGiven: true, SignatureDate: signed, ExpiryDate: today.AddDays(-1)}, model.ConsentExpired},
		{"expires today is still valid", model.ParentConsent{ConsentGiven: true, SignatureDate: signed, ExpiryDate: today}, model.ConsentApproved},
		{"unsigned", model.ParentConsent{ConsentGiven: true, ExpiryDate: today.AddDays(10)}, model.ConsentPending},
		{"not given", model.ParentConsent{ExpiryDate: today.AddDays(10)}, model.ConsentPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConsentStatus(&tt.c, today))
		})
	}
}

func TestConsent_CreateApproved(t *testing.T) {
	f := newConsentFixture(fixedClock(2025, time.October, 1))
	c, err := f.svc.Create(context.Background(), signedTripConsent())
	require.NoError(t, err)

	assert.Equal(t, model.ConsentApproved, c.Status)
	assert.Equal(t, model.NewDate(2025, time.October, 1), c.ConsentDate)
	assert.Equal(t, model.NewDate(2026, time.October, 1), c.ExpiryDate)
	assert.Equal(t, []string{notify.TplConsentApproved}, f.notifier.templates())
	assert.Equal(t, []string{"karim@example.ma"}, f.notifier.sent[0].To)
}

func TestConsent_CreateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.ParentConsentRequest)
		field  string
	}{
		{"future consent date", func(r *model.ParentConsentRequest) { r.ConsentDate = model.NewDate(2025, time.October, 2) }, "consent_date"},
		{"given without signature", func(r *model.ParentConsentRequest) { r.SignatureDate = nil }, "signature_date"},
		{"expiry before consent", func(r *model.ParentConsentRequest) { r.ExpiryDate = model.NewDate(2025, time.September, 1) }, "expiry_date"},
		{"wrong guardian", func(r *model.ParentConsentRequest) { r.GuardianID = 2 }, "guardian_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newConsentFixture(fixedClock(2025, time.October, 1))
			req := signedTripConsent()
			tt.mutate(&req)
			_, err := f.svc.Create(context.Background(), req)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestConsent_PendingThenSigned(t *testing.T) {
	f := newConsentFixture(fixedClock(2025, time.October, 1))
	ctx := context.Background()

	req := signedTripConsent()
	req.ConsentGiven, req.SignatureDate = false, nil
	c, err := f.svc.Create(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, model.ConsentPending, c.Status)
	assert.Empty(t, f.notifier.sent)

	c, err = f.svc.Update(ctx, c.ID, signedTripConsent())
	require.NoError(t, err)
	assert.Equal(t, model.ConsentApproved, c.Status)
	assert.Len(t, f.notifier.sent, 1)

	_, err = f.svc.Update(ctx, c.ID, signedTripConsent())
	require.NoError(t, err)
	assert.Len(t, f.notifier.sent, 1)
}

func TestConsent_Revoke(t *testing.T) {
	f := newConsentFixture(fixedClock(2025, time.October, 1))
	ctx := context.Background()

	req := signedTripConsent()
	req.Remarks = "Signé au secrétariat"
	c, err := f.svc.Create(ctx, req)
	require.NoError(t, err)

	c, err = f.svc.Revoke(ctx, c.ID, " changement d'avis ")
	require.NoError(t, err)
	assert.Equal(t, model.ConsentRevoked, c.Status)
	assert.False(t, c.ConsentGiven)
	assert.Equal(t, "changement d'avis", c.RevocationReason)
	assert.Equal(t, "Signé au secrétariat\nRevoked on 2025-10-01: changement d'avis", c.Remarks)
	assert.Equal(t, notify.TplConsentRevoked, f.notifier.sent[1].Template)

	_, err = f.svc.Revoke(ctx, c.ID, "again")
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = f.svc.Update(ctx, c.ID, signedTripConsent())
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestConsent_ExpiringAndLapsed(t *testing.T) {
	f := newConsentFixture(fixedClock(2025, time.October, 1))
	ctx := context.Background()

	soon := signedTripConsent()
	soon.ExpiryDate = model.NewDate(2025, time.October, 20)
	_, err := f.svc.Create(ctx, soon)
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, signedTripConsent())
	require.NoError(t, err)

	expiring, err := f.svc.Expiring(ctx)
	require.NoError(t, err)
	require.Len(t, expiring, 1)
	assert.Equal(t, model.NewDate(2025, time.October, 20), expiring[0].ExpiryDate)

	later := newConsentFixture(fixedClock(2025, time.October, 21))
	later.consents.byID = f.consents.byID
	n, err := later.svc.ExpireLapsed(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
