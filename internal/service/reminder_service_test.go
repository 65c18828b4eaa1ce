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

type fakeReminderSources struct {
	upcomingTo model.Date

	streaks    []model.AbsenceStreak
	streakFrom model.Date
	streakMin  int
	weekly     []model.WeeklyAttendance
	weekFrom   model.Date
	weekTo     model.Date
	burning    []model.BudgetLine
	burnPct    float64
	missing    []model.Employee
	slips      []model.SalarySlip
	payFrom    model.Date
	payTo      model.Date
}

func (f *fakeReminderSources) ListWithoutAttendance(context.Context, model.Date) ([]model.ClassReminder, error) {
	return []model.ClassReminder{
		{SchoolClassID: 1, ClassName: "5AP-A", TeacherName: "Youssef Alaoui", TeacherEmail: "y.alaoui@example.ma"},
		{SchoolClassID: 2, ClassName: "5AP-B"},
	}, nil
}

func (f *fakeReminderSources) ListLateArrivals(context.Context, model.Date) ([]model.LateArrival, error) {
	return []model.LateArrival{
		{StudentID: 1, StudentName: "Salma Idrissi", ClassName: "5AP-A", ArrivalTime: "08:20", GuardianEmail: "parent@example.ma"},
	}, nil
}

func (f *fakeReminderSources) ListOverdueReminders(context.Context, model.Date) ([]model.FeeReminder, error) {
	return []model.FeeReminder{
		{FeeBillID: 4, StudentName: "Adam Tazi", GuardianEmail: "tazi@example.ma", DueDate: model.NewDate(2025, time.October, 31), OutstandingAmount: 1200, Currency: "MAD"},
		{FeeBillID: 5, StudentName: "Rim Fassi"},
	}, nil
}

func (f *fakeReminderSources) ListUpcomingReminders(_ context.Context, _, to model.Date) ([]model.FeeReminder, error) {
	f.upcomingTo = to
	return []model.FeeReminder{
		{FeeBillID: 6, StudentName: "Salma Idrissi", GuardianEmail: "parent@example.ma", DueDate: to, OutstandingAmount: 5800, Currency: "MAD"},
	}, nil
}

func (f *fakeReminderSources) ListAbsenceStreaks(_ context.Context, from, _ model.Date, minAbsences int) ([]model.AbsenceStreak, error) {
	f.streakFrom, f.streakMin = from, minAbsences
	return f.streaks, nil
}

func (f *fakeReminderSources) ListWeeklyAttendance(_ context.Context, from, to model.Date) ([]model.WeeklyAttendance, error) {
	f.weekFrom, f.weekTo = from, to
	return f.weekly, nil
}

func (f *fakeReminderSources) ListBurning(_ context.Context, pct float64) ([]model.BudgetLine, error) {
	f.burnPct = pct
	return f.burning, nil
}

func (f *fakeReminderSources) ListActiveWithoutSlip(_ context.Context, from, to model.Date) ([]model.Employee, error) {
	f.payFrom, f.payTo = from, to
	return f.missing, nil
}

func (f *fakeReminderSources) ListSubmittedInPeriod(context.Context, model.Date, model.Date) ([]model.SalarySlip, error) {
	return f.slips, nil
}

type fakeReorder []model.StockItem

func (f fakeReorder) ListReorder(context.Context) ([]model.StockItem, error) {
	return f, nil
}

func newReminderFixture(items fakeReorder) (*ReminderService, *fakeReminderSources, *recordingNotifier) {
	clock := fixedClock(2025, time.November, 12)
	src := &fakeReminderSources{}
	notifier := &recordingNotifier{}
	svc := NewReminderService(ReminderSources{
		Classes:    src,
		Attendance: src,
		Fees:       src,
		Stock:      items,
		Budgets:    src,
		Employees:  src,
		Slips:      src,
	}, NewApprovers(nil, []string{"direction@example.ma"}), ReminderContacts{
		Inventory: "magasin@example.ma",
		Education: "vie-scolaire@example.ma",
		Budget:    "budget@example.ma",
	}, newTestNotifications(notifier, clock), clock)
	return svc, src, notifier
}

func TestReminder_AttendanceSkipsClassesWithoutTeacherEmail(t *testing.T) {
	svc, _, notifier := newReminderFixture(nil)
	n, err := svc.AttendanceReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, notify.TplAttendanceReminder, notifier.sent[0].Template)
	assert.Equal(t, "2025-11-12", notifier.sent[0].Data["Date"])
}

func TestReminder_LateArrivals(t *testing.T) {
	svc, _, notifier := newReminderFixture(nil)
	n, err := svc.LateArrivalNotices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"parent@example.ma"}, notifier.sent[0].To)
}

func TestReminder_FeeReminders(t *testing.T) {
	svc, src, notifier := newReminderFixture(nil)
	n, err := svc.FeeReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, model.NewDate(2025, time.November, 19), src.upcomingTo)
	assert.Equal(t, []string{notify.TplFeeOverdue, notify.TplFeeUpcoming}, notifier.templates())
}

func TestReminder_ReorderReport(t *testing.T) {
	svc, _, notifier := newReminderFixture(nil)
	n, err := svc.ReorderReport(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, notifier.sent)

	svc, _, notifier = newReminderFixture(fakeReorder{
		{ItemCode: "RAM-A4", ItemName: "Rame A4", Warehouse: "Magasin", ActualQty: 30, Unit: "Rame", ReorderLevel: 40},
	})
	n, err = svc.ReorderReport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, []string{"direction@example.ma", "magasin@example.ma"}, notifier.sent[0].To)
	assert.Contains(t, notifier.sent[0].Body, "RAM-A4 Rame A4 (Magasin)")
}

func TestReminder_AttendanceAnomalies(t *testing.T) {
	svc, src, notifier := newReminderFixture(nil)
	n, err := svc.AttendanceAnomalies(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, notifier.sent)
	assert.Equal(t, model.NewDate(2025, time.November, 10), src.streakFrom)
	assert.Equal(t, 3, src.streakMin)

	src.streaks = []model.AbsenceStreak{
		{StudentID: 1, StudentName: "Salma Idrissi", ClassName: "5AP-A", Absences: 3, GuardianEmail: "parent@example.ma"},
		{StudentID: 2, StudentName: "Adam Tazi", ClassName: "5AP-B", Absences: 3},
	}
	n, err = svc.AttendanceAnomalies(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{notify.TplAbsenceStreak, notify.TplAbsenceStreaks}, notifier.templates())
	assert.Equal(t, []string{"parent@example.ma"}, notifier.sent[0].To)
	assert.Equal(t, []string{"direction@example.ma", "vie-scolaire@example.ma"}, notifier.sent[1].To)
	assert.Contains(t, notifier.sent[1].Body, "Adam Tazi (5AP-B) : 3 absences")
}

func TestReminder_AttendanceSummaries(t *testing.T) {
	svc, src, notifier := newReminderFixture(nil)
	src.weekly = []model.WeeklyAttendance{
		{SchoolClassID: 1, ClassName: "5AP-A", TeacherName: "Youssef Alaoui", TeacherEmail: "y.alaoui@example.ma",
			StudentID: 1, StudentName: "Salma Idrissi", GuardianEmail: "parent@example.ma", Total: 5, Present: 3, Absent: 1, Late: 1},
		{SchoolClassID: 1, ClassName: "5AP-A", TeacherName: "Youssef Alaoui", TeacherEmail: "y.alaoui@example.ma",
			StudentID: 3, StudentName: "Rim Fassi", GuardianEmail: "fassi@example.ma", Total: 5, Present: 5},
		{SchoolClassID: 2, ClassName: "5AP-B", StudentID: 2, StudentName: "Adam Tazi", Total: 5, Present: 3, Absent: 2},
	}

	n, err := svc.AttendanceSummaries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, model.NewDate(2025, time.November, 5), src.weekFrom)
	assert.Equal(t, model.NewDate(2025, time.November, 11), src.weekTo)
	assert.Equal(t, []string{notify.TplWeeklyClass, notify.TplWeeklyStudent}, notifier.templates())

	teacher := notifier.sent[0]
	assert.Equal(t, []string{"y.alaoui@example.ma"}, teacher.To)
	assert.Contains(t, teacher.Body, "Salma Idrissi : 3 présent(s), 1 absence(s), 1 retard(s), 80.0%")
	assert.Contains(t, teacher.Body, "Rim Fassi : 5 présent(s)")

	guardian := notifier.sent[1]
	assert.Equal(t, []string{"parent@example.ma"}, guardian.To)
	assert.Equal(t, 80.0, guardian.Data["Rate"])
}

func TestReminder_BudgetBurnRate(t *testing.T) {
	svc, src, notifier := newReminderFixture(nil)
	n, err := svc.BudgetBurnRate(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, notifier.sent)
	assert.Equal(t, 80.0, src.burnPct)

	src.burning = []model.BudgetLine{
		{ID: 1, AccountName: "Fournitures", AllocatedAmount: 10000, ConsumedAmount: 9000, PercentageConsumed: 90, BudgetManagerEmail: "k.bennani@example.ma"},
		{ID: 2, AccountName: "Transport", AllocatedAmount: 5000, ConsumedAmount: 4500, PercentageConsumed: 90},
		{ID: 3, AccountName: "Cantine", AllocatedAmount: 20000, ConsumedAmount: 17000, PercentageConsumed: 85, BudgetManagerEmail: "k.bennani@example.ma"},
	}
	n, err = svc.BudgetBurnRate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, notifier.sent, 2)

	approvers := notifier.sent[0]
	assert.Equal(t, []string{"direction@example.ma", "budget@example.ma"}, approvers.To)
	assert.Contains(t, approvers.Body, "Transport : 90.0% consommé (4500.00 / 5000.00)")

	manager := notifier.sent[1]
	assert.Equal(t, []string{"k.bennani@example.ma"}, manager.To)
	assert.Len(t, manager.Data["Lines"], 2)
	assert.Contains(t, manager.Subject, "80.0%")
}

func TestReminder_PayrollChecks(t *testing.T) {
	svc, src, notifier := newReminderFixture(nil)
	n, err := svc.PayrollChecks(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, notifier.sent)
	assert.Equal(t, model.NewDate(2025, time.October, 1), src.payFrom)
	assert.Equal(t, model.NewDate(2025, time.October, 31), src.payTo)

	src.missing = []model.Employee{{FirstName: "Nadia", LastName: "Berrada"}}
	src.slips = []model.SalarySlip{
		{EmployeeName: "Youssef Alaoui", GrossSalary: 9000, NetSalary: 7800},
		{EmployeeName: "Karim Bennani", GrossSalary: 1200, NetSalary: -300},
		{EmployeeName: "Omar Chraibi", GrossSalary: 75000, NetSalary: 60000},
	}
	n, err = svc.PayrollChecks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, notifier.sent, 1)

	msg := notifier.sent[0]
	assert.Equal(t, notify.TplPayrollCheck, msg.Template)
	assert.Equal(t, []string{"direction@example.ma"}, msg.To)
	assert.Contains(t, msg.Subject, "2025-10")
	assert.Contains(t, msg.Body, "Bulletins validés : 3. Salariés actifs sans bulletin : 1.")
	assert.Contains(t, msg.Body, "Missing salary slip : Nadia Berrada")
	assert.Contains(t, msg.Body, "Zero or negative net pay : Karim Bennani: -300.00")
	assert.Contains(t, msg.Body, "Unusually high gross pay : Omar Chraibi: 75000.00")
}

func TestPreviousMonthAcrossYearBoundary(t *testing.T) {
	from, to := previousMonth(model.NewDate(2026, time.January, 1))
	assert.Equal(t, model.NewDate(2025, time.December, 1), from)
	assert.Equal(t, model.NewDate(2025, time.December, 31), to)
}
