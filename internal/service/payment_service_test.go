package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/easygo/easygo-schools/internal/notify"
	"github.com/easygo/easygo-schools/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePayments serves plain reads from stale when set, like a reader that
// raced a concurrent transaction. Locked reads always see the latest row.
type fakePayments struct {
	byID  map[int]*model.PaymentEntry
	stale map[int]model.PaymentEntry
	seq   map[int]int
}

func newFakePayments() *fakePayments {
	return &fakePayments{byID: map[int]*model.PaymentEntry{}, stale: map[int]model.PaymentEntry{}, seq: map[int]int{}}
}

func (f *fakePayments) GetByID(_ context.Context, id int) (*model.PaymentEntry, error) {
	if p, ok := f.stale[id]; ok {
		return &p, nil
	}
	p, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePayments) GetForUpdate(ctx context.Context, id int) (*model.PaymentEntry, error) {
	if err := requireTx(ctx); err != nil {
		return nil, err
	}
	p, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePayments) ListPaginated(context.Context, model.ListFilter) ([]model.PaymentEntry, int, error) {
	return nil, 0, nil
}

func (f *fakePayments) ListByStudent(_ context.Context, studentID int) ([]model.PaymentEntry, error) {
	var out []model.PaymentEntry
	for _, p := range f.byID {
		if p.StudentID == studentID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePayments) Create(_ context.Context, p *model.PaymentEntry) error {
	p.ID = len(f.byID) + 1
	cp := *p
	f.byID[p.ID] = &cp
	return nil
}

func (f *fakePayments) Save(_ context.Context, p *model.PaymentEntry) error {
	cp := *p
	f.byID[p.ID] = &cp
	return nil
}

func (f *fakePayments) Delete(_ context.Context, id int) error {
	delete(f.byID, id)
	return nil
}

func (f *fakePayments) NextReceiptSeq(_ context.Context, year int) (int, error) {
	f.seq[year]++
	return f.seq[year], nil
}

type paymentFixture struct {
	svc      *PaymentService
	payments *fakePayments
	bills    *fakeFeeBills
	accounts *fakeAccounts
	notifier *recordingNotifier
	billID   int
}

// newPaymentFixture submits a 5800 MAD bill for student 1.
func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()
	f := newFeeBillFixture()
	b, err := f.svc.Create(context.Background(), tuitionAndTransport())
	require.NoError(t, err)
	_, err = f.svc.Submit(context.Background(), b.ID)
	require.NoError(t, err)

	clock := fixedClock(2025, time.October, 1)
	ledger := NewLedgerService(f.accounts, f.ledger, &fakeTx{}, clock, "MAD")
	notifier := &recordingNotifier{}
	students := newFakeStudents(model.Student{
		ID: 1, MassarCode: "12345678901", FirstName: "Salma", LastName: "Idrissi",
		GuardianEmail: "parent@example.ma", Status: model.StudentActive,
	})
	payments := newFakePayments()
	svc := NewPaymentService(payments, f.bills, students, ledger, &fakeTx{},
		newTestNotifications(notifier, clock), clock, "MAD", "Groupe Scolaire Al Amal")
	return &paymentFixture{svc: svc, payments: payments, bills: f.bills, accounts: f.accounts, notifier: notifier, billID: b.ID}
}

func TestPaymentPartialThenFull(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	p, err := f.svc.Create(ctx, model.PaymentEntryRequest{FeeBillID: f.billID, PaidAmount: 2000, ModeOfPayment: model.ModeCash})
	require.NoError(t, err)
	assert.Empty(t, p.Warnings)
	assert.Equal(t, 2000.0, p.BaseAmount)

	p, err = f.svc.Submit(ctx, p.ID, intPtr(7))
	require.NoError(t, err)
	assert.Equal(t, model.PaymentVerified, p.Status)
	assert.Regexp(t, regexp.MustCompile(`^RCP-2025-00001-[0-9a-f]{6}$`), p.ReceiptNo)

	bill, _ := f.bills.GetByID(ctx, f.billID)
	assert.Equal(t, 2000.0, bill.PaidAmount)
	assert.Equal(t, 3800.0, bill.OutstandingAmount)
	assert.Equal(t, model.FeeBillPartiallyPaid, bill.Status)
	assert.Equal(t, 2000.0, f.accounts.balanceOf(model.AccountNameCash))
	assert.Equal(t, 3800.0, f.accounts.balanceOf(model.AccountNameFeesReceivable))
	assert.Equal(t, []string{notify.TplPaymentReceipt}, f.notifier.templates())

	p, err = f.svc.Create(ctx, model.PaymentEntryRequest{FeeBillID: f.billID, PaidAmount: 3800, ModeOfPayment: model.ModeCash})
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, p.ID, nil)
	require.NoError(t, err)

	bill, _ = f.bills.GetByID(ctx, f.billID)
	assert.Equal(t, model.FeeBillPaid, bill.Status)
	assert.Equal(t, 0.0, bill.OutstandingAmount)
}

func TestPaymentAboveOutstandingWarns(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	p, err := f.svc.Create(ctx, model.PaymentEntryRequest{FeeBillID: f.billID, PaidAmount: 6000, ModeOfPayment: model.ModeCash})
	require.NoError(t, err)
	require.Len(t, p.Warnings, 1)
	assert.Contains(t, p.Warnings[0], "exceeds the outstanding amount 5800.00")

	p, err = f.svc.Submit(ctx, p.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentVerified, p.Status)

	bill, _ := f.bills.GetByID(ctx, f.billID)
	assert.Equal(t, 0.0, bill.OutstandingAmount)
	assert.Equal(t, model.FeeBillPaid, bill.Status)
}

func TestPaymentValidation(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		req   model.PaymentEntryRequest
		field string
	}{
		{"zero amount", model.PaymentEntryRequest{PaidAmount: 0, ModeOfPayment: model.ModeCash}, "paid_amount"},
		{"future date", model.PaymentEntryRequest{PaidAmount: 10, ModeOfPayment: model.ModeCash, PaymentDate: model.NewDate(2025, time.October, 2)}, "payment_date"},
		{"cheque without reference", model.PaymentEntryRequest{PaidAmount: 10, ModeOfPayment: model.ModeCheque}, "reference_no"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.FeeBillID = f.billID
			_, err := f.svc.Create(ctx, tt.req)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestPaymentCancelRestoresOutstanding(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	p, err := f.svc.Create(ctx, model.PaymentEntryRequest{FeeBillID: f.billID, PaidAmount: 1000, ModeOfPayment: model.ModeCash})
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, p.ID, nil)
	require.NoError(t, err)

	p, err = f.svc.Cancel(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentCancelled, p.Status)

	bill, _ := f.bills.GetByID(ctx, f.billID)
	assert.Equal(t, 5800.0, bill.OutstandingAmount)
	assert.Equal(t, model.FeeBillUnpaid, bill.Status)
	assert.Equal(t, 0.0, f.accounts.balanceOf(model.AccountNameCash))

	_, err = f.svc.Receipt(ctx, p.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestPaymentReceipt(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	p, err := f.svc.Create(ctx, model.PaymentEntryRequest{FeeBillID: f.billID, PaidAmount: 800, ModeOfPayment: model.ModeBankTransfer, ReferenceNo: "VIR-1"})
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, p.ID, nil)
	require.NoError(t, err)

	r, err := f.svc.Receipt(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "12345678901", r.MassarCode)
	assert.Equal(t, 5800.0, r.BillTotal)
	assert.Equal(t, 5000.0, r.OutstandingAmount)
	assert.Equal(t, "Groupe Scolaire Al Amal", r.SchoolName)
}

func TestPaymentTransitionsReadTheLockedRow(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	p, err := f.svc.Create(ctx, model.PaymentEntryRequest{FeeBillID: f.billID, PaidAmount: 1000, ModeOfPayment: model.ModeCash})
	require.NoError(t, err)
	draft := *f.payments.byID[p.ID]

	_, err = f.svc.Submit(ctx, p.ID, nil)
	require.NoError(t, err)

	// A second submit that read the payment before the first committed.
	f.payments.stale[p.ID] = draft
	_, err = f.svc.Submit(ctx, p.ID, nil)
	assert.ErrorIs(t, err, ErrInvalidState)

	bill, _ := f.bills.GetByID(ctx, f.billID)
	assert.Equal(t, 1000.0, bill.PaidAmount)
	assert.Equal(t, 1000.0, f.accounts.balanceOf(model.AccountNameCash))

	delete(f.payments.stale, p.ID)
	submitted := *f.payments.byID[p.ID]
	_, err = f.svc.Cancel(ctx, p.ID)
	require.NoError(t, err)

	f.payments.stale[p.ID] = submitted
	_, err = f.svc.Cancel(ctx, p.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	bill, _ = f.bills.GetByID(ctx, f.billID)
	assert.Equal(t, 0.0, bill.PaidAmount)
	assert.Equal(t, 5800.0, bill.OutstandingAmount)

	_, err = f.svc.Reject(ctx, p.ID, "doublon")
	assert.ErrorIs(t, err, ErrInvalidState)
}
