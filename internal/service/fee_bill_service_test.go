package service

import (
	"context"
	"testing"
	"time"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/easygo/easygo-schools/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type feeBillFixture struct {
	svc      *FeeBillService
	bills    *fakeFeeBills
	accounts *fakeAccounts
	ledger   *fakeLedger
	notifier *recordingNotifier
}

func newFeeBillFixture() *feeBillFixture {
	clock := fixedClock(2025, time.October, 1)
	ledger, accounts, entries := newTestLedger(clock)
	notifier := &recordingNotifier{}
	bills := newFakeFeeBills()
	students := newFakeStudents(model.Student{
		ID: 1, MassarCode: "12345678901", FirstName: "Salma", LastName: "Idrissi",
		GuardianEmail: "parent@example.ma", Status: model.StudentActive,
	})
	svc := NewFeeBillService(bills, students, ledger, &fakeTx{}, newTestNotifications(notifier, clock), clock, "MAD", 30)
	return &feeBillFixture{svc: svc, bills: bills, accounts: accounts, ledger: entries, notifier: notifier}
}

func tuitionAndTransport() model.FeeBillRequest {
	return model.FeeBillRequest{
		StudentID: 1,
		Items: []model.FeeItem{
			{FeeType: "Tuition", Amount: 5000},
			{FeeType: "Transport", Amount: 800},
		},
	}
}

func TestFeeBillTotals(t *testing.T) {
	f := newFeeBillFixture()
	ctx := context.Background()

	b, err := f.svc.Create(ctx, tuitionAndTransport())
	require.NoError(t, err)
	assert.Equal(t, 5800.0, b.TotalAmount)
	assert.Equal(t, 5800.0, b.OutstandingAmount)
	assert.Equal(t, model.FeeBillDraft, b.Status)
	assert.Equal(t, "MAD", b.Currency)
	assert.Equal(t, "Salma Idrissi", b.StudentName)
	assert.Equal(t, model.NewDate(2025, time.October, 1), b.PostingDate)
}

func TestFeeBillSubmit(t *testing.T) {
	f := newFeeBillFixture()
	ctx := context.Background()

	b, err := f.svc.Create(ctx, tuitionAndTransport())
	require.NoError(t, err)

	b, err = f.svc.Submit(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocSubmitted, b.DocStatus)
	assert.Equal(t, model.FeeBillUnpaid, b.Status)
	assert.Equal(t, model.NewDate(2025, time.October, 31), b.DueDate)

	assert.Equal(t, 5800.0, f.accounts.balanceOf(model.AccountNameFeesReceivable))
	assert.Equal(t, -5800.0, f.accounts.balanceOf(model.AccountNameFeeIncome))
	assert.Len(t, f.ledger.rows, 2)
	assert.Equal(t, []string{notify.TplFeeBill}, f.notifier.templates())

	_, err = f.svc.Submit(ctx, b.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestFeeBillSubmitRejectsBadItems(t *testing.T) {
	f := newFeeBillFixture()
	ctx := context.Background()

	req := tuitionAndTransport()
	req.Items = nil
	b, err := f.svc.Create(ctx, req)
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, b.ID)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "items", verr.Field)
	assert.Empty(t, f.ledger.rows)
}

func TestFeeBillDueDateBeforePosting(t *testing.T) {
	f := newFeeBillFixture()
	req := tuitionAndTransport()
	req.PostingDate = model.NewDate(2025, time.October, 10)
	req.DueDate = model.NewDate(2025, time.October, 5)

	_, err := f.svc.Create(context.Background(), req)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "due_date", verr.Field)
}

func TestFeeBillEditAfterSubmit(t *testing.T) {
	f := newFeeBillFixture()
	ctx := context.Background()

	b, err := f.svc.Create(ctx, tuitionAndTransport())
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, b.ID)
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, b.ID, tuitionAndTransport())
	assert.ErrorIs(t, err, ErrNotEditable)
	assert.ErrorIs(t, f.svc.Delete(ctx, b.ID), ErrNotEditable)
}

func TestFeeBillCancel(t *testing.T) {
	t.Run("reverses the receivable", func(t *testing.T) {
		f := newFeeBillFixture()
		ctx := context.Background()
		b, err := f.svc.Create(ctx, tuitionAndTransport())
		require.NoError(t, err)
		_, err = f.svc.Submit(ctx, b.ID)
		require.NoError(t, err)

		b, err = f.svc.Cancel(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, model.FeeBillCancelled, b.Status)
		assert.Equal(t, 0.0, f.accounts.balanceOf(model.AccountNameFeesReceivable))
	})

	t.Run("refused with submitted payments", func(t *testing.T) {
		f := newFeeBillFixture()
		ctx := context.Background()
		b, err := f.svc.Create(ctx, tuitionAndTransport())
		require.NoError(t, err)
		_, err = f.svc.Submit(ctx, b.ID)
		require.NoError(t, err)
		f.bills.payments = 1

		_, err = f.svc.Cancel(ctx, b.ID)
		assert.ErrorIs(t, err, ErrInvalidState)
	})
}

type stubDefaults struct {
	terms    int
	currency string
}

func (s stubDefaults) PaymentTerms(context.Context, int) int   { return s.terms }
func (s stubDefaults) Currency(context.Context, string) string    { return s.currency }

func TestFeeBillUsesSchoolDefaults(t *testing.T) {
	f := newFeeBillFixture()
	f.svc.WithDefaults(stubDefaults{terms: 15, currency: "EUR"})
	ctx := context.Background()

	b, err := f.svc.Create(ctx, tuitionAndTransport())
	require.NoError(t, err)
	assert.Equal(t, "EUR", b.Currency)

	b, err = f.svc.Submit(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.NewDate(2025, time.October, 16), b.DueDate)
}

func TestFeeBillRefreshOverdue(t *testing.T) {
	f := newFeeBillFixture()
	past := model.NewDate(2025, time.September, 15)
	f.bills.byID[1] = &model.FeeBill{ID: 1, DocStatus: model.DocSubmitted, Status: model.FeeBillUnpaid,
		TotalAmount: 1000, OutstandingAmount: 1000, DueDate: past}
	f.bills.byID[2] = &model.FeeBill{ID: 2, DocStatus: model.DocSubmitted, Status: model.FeeBillPartiallyPaid,
		TotalAmount: 1000, PaidAmount: 400, OutstandingAmount: 600, DueDate: past}
	f.bills.byID[3] = &model.FeeBill{ID: 3, DocStatus: model.DocSubmitted, Status: model.FeeBillUnpaid,
		TotalAmount: 1000, OutstandingAmount: 1000, DueDate: model.NewDate(2025, time.October, 20)}

	n, err := f.svc.RefreshOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, model.FeeBillOverdue, f.bills.byID[1].Status)
	assert.Equal(t, model.FeeBillPartiallyPaid, f.bills.byID[2].Status)
	assert.Equal(t, model.FeeBillPartiallyPaid, FeeBillStatus(f.bills.byID[2], model.NewDate(2025, time.October, 1)))
	assert.Equal(t, model.FeeBillUnpaid, f.bills.byID[3].Status)
}

func TestFeeBillStatus(t *testing.T) {
	today := model.NewDate(2025, time.November, 15)
	tests := []struct {
		name string
		bill model.FeeBill
		want model.FeeBillStatus
	}{
		{"draft", model.FeeBill{DocStatus: model.DocDraft, OutstandingAmount: 100}, model.FeeBillDraft},
		{"cancelled", model.FeeBill{DocStatus: model.DocCancelled}, model.FeeBillCancelled},
		{"paid", model.FeeBill{DocStatus: model.DocSubmitted, PaidAmount: 100}, model.FeeBillPaid},
		{"partial", model.FeeBill{DocStatus: model.DocSubmitted, PaidAmount: 40, OutstandingAmount: 60}, model.FeeBillPartiallyPaid},
		{"overdue", model.FeeBill{DocStatus: model.DocSubmitted, OutstandingAmount: 60, DueDate: model.NewDate(2025, time.November, 1)}, model.FeeBillOverdue},
		{"unpaid", model.FeeBill{DocStatus: model.DocSubmitted, OutstandingAmount: 60, DueDate: today}, model.FeeBillUnpaid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FeeBillStatus(&tt.bill, today))
		})
	}
}
