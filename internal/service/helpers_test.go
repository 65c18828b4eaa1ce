package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/easygo/easygo-schools/internal/notify"
	"github.com/easygo/easygo-schools/internal/repository"
	"github.com/rs/zerolog"
)

func fixedClock(y int, m time.Month, d int) Clock {
	return func() time.Time { return time.Date(y, m, d, 9, 0, 0, 0, time.UTC) }
}

type fakeTx struct{ calls int }

type inTxKey struct{}

func (f *fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(context.WithValue(ctx, inTxKey{}, true))
}

var errLockOutsideTx = errors.New("row lock requested outside a transaction")

// requireTx mirrors SELECT ... FOR UPDATE, which only holds inside a
// transaction.
func requireTx(ctx context.Context) error {
	if ctx.Value(inTxKey{}) == nil {
		return errLockOutsideTx
	}
	return nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (r *recordingNotifier) Send(_ context.Context, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func (r *recordingNotifier) templates() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.sent))
	for i, m := range r.sent {
		out[i] = m.Template
	}
	return out
}

func newTestNotifications(n notify.Notifier, clock Clock) *Notifications {
	return NewNotifications(n, nil, clock, zerolog.Nop())
}

// ─── Students ───────────────────────────────────────────────────────────

type fakeStudents struct {
	byID map[int]*model.Student
}

func newFakeStudents(students ...model.Student) *fakeStudents {
	f := &fakeStudents{byID: map[int]*model.Student{}}
	for i := range students {
		st := students[i]
		f.byID[st.ID] = &st
	}
	return f
}

func (f *fakeStudents) GetByID(_ context.Context, id int) (*model.Student, error) {
	st, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *st
	return &cp, nil
}

func (f *fakeStudents) ListByClass(_ context.Context, classID int) ([]model.Student, error) {
	var out []model.Student
	for _, st := range f.byID {
		if st.SchoolClassID != nil && *st.SchoolClassID == classID {
			out = append(out, *st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ─── Ledger ─────────────────────────────────────────────────────────────

type fakeAccounts struct {
	byID    map[int]*model.SchoolAccount
	entries *fakeLedger
}

func (f *fakeAccounts) GetByID(_ context.Context, id int) (*model.SchoolAccount, error) {
	a, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAccounts) GetByName(_ context.Context, name string) (*model.SchoolAccount, error) {
	for _, a := range f.byID {
		if a.AccountName == name {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeAccounts) List(context.Context, model.ListFilter) ([]model.SchoolAccount, error) {
	out := make([]model.SchoolAccount, 0, len(f.byID))
	for _, a := range f.byID {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeAccounts) Create(_ context.Context, a *model.SchoolAccount) error {
	a.ID = len(f.byID) + 1
	cp := *a
	f.byID[a.ID] = &cp
	return nil
}

func (f *fakeAccounts) Update(_ context.Context, a *model.SchoolAccount) error {
	if _, ok := f.byID[a.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *a
	f.byID[a.ID] = &cp
	return nil
}

func (f *fakeAccounts) Delete(_ context.Context, id int) error {
	delete(f.byID, id)
	return nil
}

func (f *fakeAccounts) ParentOf(_ context.Context, id int) (*int, error) {
	a, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return a.ParentAccountID, nil
}

func (f *fakeAccounts) RecomputeBalance(_ context.Context, id int) (float64, error) {
	a, ok := f.byID[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	bal := a.OpeningBalance
	for _, e := range f.entries.rows {
		if e.AccountID == id && e.DocStatus == model.DocSubmitted {
			bal += e.Debit - e.Credit
		}
	}
	a.CurrentBalance = model.RoundMoney(bal)
	return a.CurrentBalance, nil
}

func (f *fakeAccounts) BudgetSummary(_ context.Context, id int) (*model.AccountBudgetSummary, error) {
	return &model.AccountBudgetSummary{AccountID: id}, nil
}

type fakeLedger struct {
	rows []model.LedgerEntry
}

func (f *fakeLedger) GetByID(_ context.Context, id int) (*model.LedgerEntry, error) {
	for i := range f.rows {
		if f.rows[i].ID == id {
			cp := f.rows[i]
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeLedger) ListPaginated(context.Context, model.LedgerFilter) ([]model.LedgerEntry, int, error) {
	return f.rows, len(f.rows), nil
}

func (f *fakeLedger) ListByVoucher(_ context.Context, voucherType string, voucherID int) ([]model.LedgerEntry, error) {
	var out []model.LedgerEntry
	for _, e := range f.rows {
		if e.VoucherType == voucherType && e.VoucherID != nil && *e.VoucherID == voucherID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeLedger) LastBalance(_ context.Context, accountID int, asOf model.Date) (float64, bool, error) {
	var last *model.LedgerEntry
	for i := range f.rows {
		e := &f.rows[i]
		if e.AccountID != accountID || e.DocStatus != model.DocSubmitted || e.PostingDate.After(asOf) {
			continue
		}
		if last == nil || !e.PostingDate.Before(last.PostingDate) {
			last = e
		}
	}
	if last == nil {
		return 0, false, nil
	}
	return last.Balance, true, nil
}

func (f *fakeLedger) Create(_ context.Context, e *model.LedgerEntry) error {
	e.ID = len(f.rows) + 1
	f.rows = append(f.rows, *e)
	return nil
}

func (f *fakeLedger) SetDocStatus(_ context.Context, id int, status model.DocStatus) error {
	for i := range f.rows {
		if f.rows[i].ID == id {
			f.rows[i].DocStatus = status
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeLedger) Totals(_ context.Context, accountID int, from, to *model.Date) (float64, float64, error) {
	var dr, cr float64
	for _, e := range f.rows {
		if from != nil && e.PostingDate.Before(*from) || to != nil && e.PostingDate.After(*to) {
			continue
		}
		if e.AccountID == accountID && e.DocStatus == model.DocSubmitted {
			dr += e.Debit
			cr += e.Credit
		}
	}
	return dr, cr, nil
}

func (f *fakeLedger) MovementBefore(_ context.Context, accountID int, d model.Date) (float64, error) {
	var m float64
	for _, e := range f.rows {
		if e.AccountID == accountID && e.DocStatus == model.DocSubmitted && e.PostingDate.Before(d) {
			m += e.Debit - e.Credit
		}
	}
	return m, nil
}

func (f *fakeLedger) TrialBalance(context.Context, model.Date, model.Date) ([]model.AccountBalance, error) {
	return nil, nil
}

// newTestLedger seeds the accounts the postings rely on.
func newTestLedger(clock Clock) (*LedgerService, *fakeAccounts, *fakeLedger) {
	entries := &fakeLedger{}
	accounts := &fakeAccounts{byID: map[int]*model.SchoolAccount{}, entries: entries}
	for i, a := range []model.SchoolAccount{
		{AccountName: model.AccountNameFeesReceivable, AccountType: model.AccountReceivable},
		{AccountName: model.AccountNameFeeIncome, AccountType: model.AccountIncome},
		{AccountName: model.AccountNameCash, AccountType: model.AccountCash},
		{AccountName: model.AccountNameSalariesExpense, AccountType: model.AccountExpense},
		{AccountName: model.AccountNameSalariesPayable, AccountType: model.AccountPayable},
		{AccountName: model.AccountNameAccountsPayable, AccountType: model.AccountPayable},
		{AccountName: "Assets", AccountType: model.AccountAsset, IsGroup: true},
	} {
		a.ID = i + 1
		a.IsActive = true
		a.Currency = "MAD"
		cp := a
		accounts.byID[a.ID] = &cp
	}
	return NewLedgerService(accounts, entries, &fakeTx{}, clock, "MAD"), accounts, entries
}

func (f *fakeAccounts) balanceOf(name string) float64 {
	for _, a := range f.byID {
		if a.AccountName == name {
			return a.CurrentBalance
		}
	}
	return 0
}

// ─── Fee bills ──────────────────────────────────────────────────────────

type fakeFeeBills struct {
	byID     map[int]*model.FeeBill
	payments int
}

func newFakeFeeBills() *fakeFeeBills {
	return &fakeFeeBills{byID: map[int]*model.FeeBill{}}
}

func (f *fakeFeeBills) GetByID(_ context.Context, id int) (*model.FeeBill, error) {
	b, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *b
	cp.Items = append([]model.FeeItem(nil), b.Items...)
	return &cp, nil
}

func (f *fakeFeeBills) GetForUpdate(ctx context.Context, id int) (*model.FeeBill, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeFeeBills) ListPaginated(context.Context, model.FeeBillFilter) ([]model.FeeBill, int, error) {
	var out []model.FeeBill
	for _, b := range f.byID {
		out = append(out, *b)
	}
	return out, len(out), nil
}

func (f *fakeFeeBills) Create(_ context.Context, b *model.FeeBill) error {
	b.ID = len(f.byID) + 1
	cp := *b
	f.byID[b.ID] = &cp
	return nil
}

func (f *fakeFeeBills) Update(_ context.Context, b *model.FeeBill) error {
	cp := *b
	f.byID[b.ID] = &cp
	return nil
}

func (f *fakeFeeBills) SaveAmounts(_ context.Context, b *model.FeeBill) error {
	cp := *b
	f.byID[b.ID] = &cp
	return nil
}

func (f *fakeFeeBills) Delete(_ context.Context, id int) error {
	delete(f.byID, id)
	return nil
}

func (f *fakeFeeBills) CountSubmittedPayments(context.Context, int) (int, error) {
	return f.payments, nil
}

func (f *fakeFeeBills) MarkOverdue(_ context.Context, today model.Date) (int64, error) {
	var n int64
	for _, b := range f.byID {
		if b.DocStatus == model.DocSubmitted && b.Status == model.FeeBillUnpaid && b.PaidAmount == 0 &&
			b.OutstandingAmount > 0 && b.DueDate.Before(today) {
			b.Status = model.FeeBillOverdue
			n++
		}
	}
	return n, nil
}
