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

type fakeSlips struct {
	byID map[int]*model.SalarySlip
}

func (f *fakeSlips) GetByID(_ context.Context, id int) (*model.SalarySlip, error) {
	sl, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *sl
	return &cp, nil
}

func (f *fakeSlips) ListPaginated(context.Context, model.ListFilter, *int) ([]model.SalarySlip, int, error) {
	return nil, 0, nil
}

func (f *fakeSlips) Create(_ context.Context, sl *model.SalarySlip) error {
	sl.ID = len(f.byID) + 1
	cp := *sl
	f.byID[sl.ID] = &cp
	return nil
}

func (f *fakeSlips) Save(_ context.Context, sl *model.SalarySlip) error {
	cp := *sl
	f.byID[sl.ID] = &cp
	return nil
}

func (f *fakeSlips) Delete(_ context.Context, id int) error {
	delete(f.byID, id)
	return nil
}

type fixedPresence float64

func (p fixedPresence) CountPresentDays(context.Context, int, model.Date, model.Date) (float64, error) {
	return float64(p), nil
}

type slipFixture struct {
	svc      *SalarySlipService
	accounts *fakeAccounts
	notifier *recordingNotifier
}

func newSlipFixture() *slipFixture {
	clock := fixedClock(2025, time.December, 1)
	ledger, accounts, _ := newTestLedger(clock)
	notifier := &recordingNotifier{}
	employees := &fakeEmployees{byID: map[int]*model.Employee{
		1: {ID: 1, EmployeeID: "EMP-001", FirstName: "Youssef", LastName: "Alaoui",
			Email: "y.alaoui@example.ma", Status: model.EmployeeActive, BasicSalary: 8000},
		2: {ID: 2, EmployeeID: "EMP-002", FirstName: "Nadia", LastName: "Berrada", Status: model.EmployeeInactive},
	}}
	svc := NewSalarySlipService(&fakeSlips{byID: map[int]*model.SalarySlip{}}, employees, fixedPresence(18.5),
		ledger, &fakeTx{}, newTestNotifications(notifier, clock), clock, "MAD")
	return &slipFixture{svc: svc, accounts: accounts, notifier: notifier}
}

func novemberSlip() model.SalarySlipRequest {
	return model.SalarySlipRequest{
		EmployeeID:  1,
		PeriodStart: model.NewDate(2025, time.November, 1),
		PeriodEnd:   model.NewDate(2025, time.November, 30),
		Earnings:    []model.SalaryComponent{{Component: "Prime de transport", Amount: 500}},
		Deductions: []model.SalaryComponent{
			{Component: "CNSS", Amount: 358.08},
			{Component: "AMO", Amount: 191.3},
		},
	}
}

func TestWorkingDaysBetween(t *testing.T) {
	tests := []struct {
		name     string
		from, to model.Date
		want     int
	}{
		{"november 2025", model.NewDate(2025, time.November, 1), model.NewDate(2025, time.November, 30), 20},
		{"october 2025", model.NewDate(2025, time.October, 1), model.NewDate(2025, time.October, 31), 23},
		{"single saturday", model.NewDate(2025, time.November, 1), model.NewDate(2025, time.November, 1), 0},
		{"single monday", model.NewDate(2025, time.November, 3), model.NewDate(2025, time.November, 3), 1},
		{"reversed", model.NewDate(2025, time.November, 30), model.NewDate(2025, time.November, 1), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WorkingDaysBetween(tt.from, tt.to))
		})
	}
}

func TestComputeSlip(t *testing.T) {
	sl := &model.SalarySlip{
		BasicSalary: 8000,
		Earnings:    []model.SalaryComponent{{Amount: 500}, {Amount: 250.5}},
		Deductions:  []model.SalaryComponent{{Amount: 1000}},
	}
	ComputeSlip(sl)
	assert.Equal(t, 8750.5, sl.GrossSalary)
	assert.Equal(t, 1000.0, sl.TotalDeductions)
	assert.Equal(t, 7750.5, sl.NetSalary)
	assert.Empty(t, sl.Warnings)

	sl.Deductions = []model.SalaryComponent{{Amount: 9000}}
	ComputeSlip(sl)
	assert.Equal(t, -249.5, sl.NetSalary)
	require.Len(t, sl.Warnings, 1)
	assert.Contains(t, sl.Warnings[0], "-249.50")
}

func TestSalarySlip_Create(t *testing.T) {
	f := newSlipFixture()
	sl, err := f.svc.Create(context.Background(), novemberSlip())
	require.NoError(t, err)

	assert.Equal(t, "Youssef Alaoui", sl.EmployeeName)
	assert.Equal(t, 8000.0, sl.BasicSalary)
	assert.Equal(t, 8500.0, sl.GrossSalary)
	assert.Equal(t, 549.38, sl.TotalDeductions)
	assert.Equal(t, 7950.62, sl.NetSalary)
	assert.Equal(t, 20, sl.WorkingDays)
	assert.Equal(t, 18.5, sl.PresentDays)
	assert.Equal(t, SlipDraft, sl.Status)

	override := 9000.0
	req := novemberSlip()
	req.BasicSalary = &override
	sl, err = f.svc.Update(context.Background(), sl.ID, req)
	require.NoError(t, err)
	assert.Equal(t, 9500.0, sl.GrossSalary)
}

func TestSalarySlip_CreateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.SalarySlipRequest)
		field  string
	}{
		{"missing start", func(r *model.SalarySlipRequest) { r.PeriodStart = model.Date{} }, "period_start"},
		{"end before start", func(r *model.SalarySlipRequest) { r.PeriodEnd = model.NewDate(2025, time.October, 31) }, "period_end"},
		{"inactive employee", func(r *model.SalarySlipRequest) { r.EmployeeID = 2 }, "employee_id"},
		{"negative earning", func(r *model.SalarySlipRequest) { r.Earnings[0].Amount = -1 }, "earnings"},
		{"negative deduction", func(r *model.SalarySlipRequest) { r.Deductions[1].Amount = -1 }, "deductions"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSlipFixture()
			req := novemberSlip()
			tt.mutate(&req)
			_, err := f.svc.Create(context.Background(), req)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestSalarySlip_SubmitAndCancel(t *testing.T) {
	f := newSlipFixture()
	ctx := context.Background()
	sl, err := f.svc.Create(ctx, novemberSlip())
	require.NoError(t, err)

	sl, err = f.svc.Submit(ctx, sl.ID)
	require.NoError(t, err)
	assert.Equal(t, SlipSubmitted, sl.Status)
	assert.Equal(t, 8500.0, f.accounts.balanceOf(model.AccountNameSalariesExpense))
	assert.Equal(t, -8500.0, f.accounts.balanceOf(model.AccountNameSalariesPayable))
	assert.Equal(t, []string{notify.TplSalarySlip}, f.notifier.templates())
	assert.Equal(t, []string{"y.alaoui@example.ma"}, f.notifier.sent[0].To)

	_, err = f.svc.Submit(ctx, sl.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = f.svc.Update(ctx, sl.ID, novemberSlip())
	assert.ErrorIs(t, err, ErrNotEditable)
	assert.ErrorIs(t, f.svc.Delete(ctx, sl.ID), ErrNotEditable)

	sl, err = f.svc.Cancel(ctx, sl.ID)
	require.NoError(t, err)
	assert.Equal(t, SlipCancelled, sl.Status)
	assert.Equal(t, 0.0, f.accounts.balanceOf(model.AccountNameSalariesExpense))
	assert.Equal(t, 0.0, f.accounts.balanceOf(model.AccountNameSalariesPayable))

	_, err = f.svc.Cancel(ctx, sl.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}
