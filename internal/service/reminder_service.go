package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/easygo/easygo-schools/internal/notify"
)

type classReminderSource interface {
	ListWithoutAttendance(ctx context.Context, date model.Date) ([]model.ClassReminder, error)
}

type attendanceReminderSource interface {
	ListLateArrivals(ctx context.Context, date model.Date) ([]model.LateArrival, error)
	ListAbsenceStreaks(ctx context.Context, from, to model.Date, minAbsences int) ([]model.AbsenceStreak, error)
	ListWeeklyAttendance(ctx context.Context, from, to model.Date) ([]model.WeeklyAttendance, error)
}

type feeReminderSource interface {
	ListOverdueReminders(ctx context.Context, today model.Date) ([]model.FeeReminder, error)
	ListUpcomingReminders(ctx context.Context, from, to model.Date) ([]model.FeeReminder, error)
}

type reorderSource interface {
	ListReorder(ctx context.Context) ([]model.StockItem, error)
}

type burnRateSource interface {
	ListBurning(ctx context.Context, pct float64) ([]model.BudgetLine, error)
}

type missingSlipSource interface {
	ListActiveWithoutSlip(ctx context.Context, from, to model.Date) ([]model.Employee, error)
}

type submittedSlipSource interface {
	ListSubmittedInPeriod(ctx context.Context, from, to model.Date) ([]model.SalarySlip, error)
}

const (
	// upcomingFeeWindow is how far ahead unpaid bills get a courtesy reminder.
	upcomingFeeWindow = 7
	// absenceWindow days back from today, today included, are scanned for
	// repeated absences.
	absenceWindow    = 3
	absenceThreshold = 3
	burnRateAlertPct = 80
	// payrollHighGross flags slips whose gross looks like a typo.
	payrollHighGross = 50000
)

// Payroll issue kinds.
const (
	PayrollMissingSlip = "Missing salary slip"
	PayrollNonPositive = "Zero or negative net pay"
	PayrollHighGross   = "Unusually high gross pay"
)

// ReminderSources groups the stores the scheduled reminders read from.
type ReminderSources struct {
	Classes    classReminderSource
	Attendance attendanceReminderSource
	Fees       feeReminderSource
	Stock      reorderSource
	Budgets    burnRateSource
	Employees  missingSlipSource
	Slips      submittedSlipSource
}

// ReminderContacts are the configured mailboxes copied on job reports in
// addition to staff holding the matching permission.
type ReminderContacts struct {
	Inventory string
	Education string
	Budget    string
}

// ReminderService sends the periodic reminders and checks of the daily,
// weekly and monthly jobs.
type ReminderService struct {
	src       ReminderSources
	approvers *Approvers
	contacts  ReminderContacts
	notes     *Notifications
	clock     Clock
}

// NewReminderService creates a new ReminderService.
func NewReminderService(src ReminderSources, approvers *Approvers, contacts ReminderContacts, notes *Notifications, clock Clock) *ReminderService {
	return &ReminderService{
		src:       src,
		approvers: approvers,
		contacts:  contacts,
		notes:     notes,
		clock:     clock,
	}
}

// AttendanceReminders asks class teachers to take today's roll call when
// their class has no mark yet. It returns the number of reminders sent.
func (s *ReminderService) AttendanceReminders(ctx context.Context) (int, error) {
	today := s.clock.today()
	classes, err := s.src.Classes.ListWithoutAttendance(ctx, today)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, c := range classes {
		if c.TeacherEmail == "" {
			continue
		}
		s.notes.Send(ctx, notify.Message{
			To:            []string{c.TeacherEmail},
			Template:      notify.TplAttendanceReminder,
			ReferenceType: "School Class",
			ReferenceID:   c.SchoolClassID,
			Data: map[string]interface{}{
				"TeacherName": c.TeacherName,
				"ClassName":   c.ClassName,
				"Date":        today.String(),
			},
		})
		sent++
	}
	return sent, nil
}

// LateArrivalNotices tells guardians their child arrived late today.
func (s *ReminderService) LateArrivalNotices(ctx context.Context) (int, error) {
	arrivals, err := s.src.Attendance.ListLateArrivals(ctx, s.clock.today())
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, la := range arrivals {
		if la.GuardianEmail == "" {
			continue
		}
		s.notes.Send(ctx, notify.Message{
			To:            []string{la.GuardianEmail},
			Template:      notify.TplLateArrivals,
			ReferenceType: "Student",
			ReferenceID:   la.StudentID,
			Data: map[string]interface{}{
				"StudentName": la.StudentName,
				"ClassName":   la.ClassName,
				"ArrivalTime": la.ArrivalTime,
			},
		})
		sent++
	}
	return sent, nil
}

// FeeReminders reminds guardians of overdue bills and of unpaid bills
// falling due within a week.
func (s *ReminderService) FeeReminders(ctx context.Context) (int, error) {
	today := s.clock.today()
	overdue, err := s.src.Fees.ListOverdueReminders(ctx, today)
	if err != nil {
		return 0, err
	}
	upcoming, err := s.src.Fees.ListUpcomingReminders(ctx, today, today.AddDays(upcomingFeeWindow))
	if err != nil {
		return 0, err
	}
	return s.sendFeeReminders(ctx, overdue, notify.TplFeeOverdue) +
		s.sendFeeReminders(ctx, upcoming, notify.TplFeeUpcoming), nil
}

func (s *ReminderService) sendFeeReminders(ctx context.Context, rows []model.FeeReminder, tpl string) int {
	sent := 0
	for _, r := range rows {
		if r.GuardianEmail == "" {
			continue
		}
		s.notes.Send(ctx, notify.Message{
			To:            []string{r.GuardianEmail},
			Template:      tpl,
			ReferenceType: "Fee Bill",
			ReferenceID:   r.FeeBillID,
			Data: map[string]interface{}{
				"BillID":      r.FeeBillID,
				"StudentName": r.StudentName,
				"DueDate":     r.DueDate.String(),
				"Outstanding": r.OutstandingAmount,
				"Currency":    r.Currency,
			},
		})
		sent++
	}
	return sent
}

// ReorderReport mails the list of items at or below their reorder level.
// Nothing is sent when stock is healthy.
func (s *ReminderService) ReorderReport(ctx context.Context) (int, error) {
	items, err := s.src.Stock.ListReorder(ctx)
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, nil
	}
	s.notes.Send(ctx, notify.Message{
		To:            s.approvers.For(ctx, model.PermissionInventoryWrite, s.contacts.Inventory),
		Template:      notify.TplReorderReport,
		ReferenceType: "Stock Item",
		Data:          map[string]interface{}{"Items": items},
	})
	return len(items), nil
}

// AttendanceAnomalies flags students absent at least three times over the
// last three days. Guardians get a personal notice and the school office a
// digest. It returns the number of students flagged.
func (s *ReminderService) AttendanceAnomalies(ctx context.Context) (int, error) {
	today := s.clock.today()
	from := today.AddDays(1 - absenceWindow)
	streaks, err := s.src.Attendance.ListAbsenceStreaks(ctx, from, today, absenceThreshold)
	if err != nil {
		return 0, err
	}
	if len(streaks) == 0 {
		return 0, nil
	}
	for _, st := range streaks {
		if st.GuardianEmail == "" {
			continue
		}
		s.notes.Send(ctx, notify.Message{
			To:            []string{st.GuardianEmail},
			Template:      notify.TplAbsenceStreak,
			ReferenceType: "Student",
			ReferenceID:   st.StudentID,
			Data: map[string]interface{}{
				"StudentName": st.StudentName,
				"Absences":    st.Absences,
				"From":        from.String(),
				"To":          today.String(),
			},
		})
	}
	s.notes.Send(ctx, notify.Message{
		To:            s.approvers.For(ctx, model.PermissionStudentsWrite, s.contacts.Education),
		Template:      notify.TplAbsenceStreaks,
		ReferenceType: "Student",
		Data: map[string]interface{}{
			"Students":  streaks,
			"Threshold": absenceThreshold,
			"From":      from.String(),
			"To":        today.String(),
		},
	})
	return len(streaks), nil
}

// AttendanceSummaries sends the attendance of the past seven days to each
// class teacher, and to guardians whose child missed at least one day.
// It returns the number of messages sent.
func (s *ReminderService) AttendanceSummaries(ctx context.Context) (int, error) {
	today := s.clock.today()
	from, to := today.AddDays(-7), today.AddDays(-1)
	rows, err := s.src.Attendance.ListWeeklyAttendance(ctx, from, to)
	if err != nil {
		return 0, err
	}

	var classIDs []int
	byClass := make(map[int][]model.WeeklyAttendance)
	for _, w := range rows {
		if _, ok := byClass[w.SchoolClassID]; !ok {
			classIDs = append(classIDs, w.SchoolClassID)
		}
		byClass[w.SchoolClassID] = append(byClass[w.SchoolClassID], w)
	}

	sent := 0
	for _, id := range classIDs {
		students := byClass[id]
		head := students[0]
		if head.TeacherEmail != "" {
			s.notes.Send(ctx, notify.Message{
				To:            []string{head.TeacherEmail},
				Template:      notify.TplWeeklyClass,
				ReferenceType: "School Class",
				ReferenceID:   id,
				Data: map[string]interface{}{
					"TeacherName": head.TeacherName,
					"ClassName":   head.ClassName,
					"From":        from.String(),
					"To":          to.String(),
					"Students":    students,
				},
			})
			sent++
		}
		for _, w := range students {
			if w.Absent == 0 || w.GuardianEmail == "" {
				continue
			}
			s.notes.Send(ctx, notify.Message{
				To:            []string{w.GuardianEmail},
				Template:      notify.TplWeeklyStudent,
				ReferenceType: "Student",
				ReferenceID:   w.StudentID,
				Data: map[string]interface{}{
					"StudentName": w.StudentName,
					"From":        from.String(),
					"To":          to.String(),
					"Present":     w.Present,
					"Absent":      w.Absent,
					"Late":        w.Late,
					"Rate":        w.Rate(),
				},
			})
			sent++
		}
	}
	return sent, nil
}

// BudgetBurnRate mails the active budget lines consumed beyond 80% to their
// budget manager. Lines without one go to budget approvers. It returns the
// number of lines reported.
func (s *ReminderService) BudgetBurnRate(ctx context.Context) (int, error) {
	lines, err := s.src.Budgets.ListBurning(ctx, burnRateAlertPct)
	if err != nil {
		return 0, err
	}
	if len(lines) == 0 {
		return 0, nil
	}

	byManager := make(map[string][]model.BudgetLine)
	for _, l := range lines {
		byManager[l.BudgetManagerEmail] = append(byManager[l.BudgetManagerEmail], l)
	}
	managers := make([]string, 0, len(byManager))
	for m := range byManager {
		managers = append(managers, m)
	}
	sort.Strings(managers)

	for _, m := range managers {
		to := []string{m}
		if m == "" {
			to = s.approvers.For(ctx, model.PermissionBudgetsApprove, s.contacts.Budget)
		}
		s.notes.Send(ctx, notify.Message{
			To:            to,
			Template:      notify.TplBudgetBurn,
			ReferenceType: "Budget Line",
			Data: map[string]interface{}{
				"Threshold": float64(burnRateAlertPct),
				"Lines":     byManager[m],
			},
		})
	}
	return len(lines), nil
}

// PayrollChecks reviews the previous month's payroll: active employees
// without a slip, submitted slips with a zero or negative net, and
// unusually high gross pay. The report goes to HR staff whenever there is
// something to say. It returns the number of issues found.
func (s *ReminderService) PayrollChecks(ctx context.Context) (int, error) {
	from, to := previousMonth(s.clock.today())
	missing, err := s.src.Employees.ListActiveWithoutSlip(ctx, from, to)
	if err != nil {
		return 0, err
	}
	slips, err := s.src.Slips.ListSubmittedInPeriod(ctx, from, to)
	if err != nil {
		return 0, err
	}

	issues := payrollIssues(missing, slips)
	if len(issues) == 0 && len(slips) == 0 {
		return 0, nil
	}
	s.notes.Send(ctx, notify.Message{
		To:            s.approvers.For(ctx, model.PermissionHRWrite),
		Template:      notify.TplPayrollCheck,
		ReferenceType: "Salary Slip",
		Data: map[string]interface{}{
			"Period":  from.Format("2006-01"),
			"Slips":   len(slips),
			"Missing": len(missing),
			"Issues":  issues,
		},
	})
	return len(issues), nil
}

func payrollIssues(missing []model.Employee, slips []model.SalarySlip) []model.PayrollIssue {
	var issues []model.PayrollIssue
	for _, e := range missing {
		issues = append(issues, model.PayrollIssue{Kind: PayrollMissingSlip, Detail: e.FullName()})
	}
	for _, sl := range slips {
		switch {
		case sl.NetSalary <= 0:
			issues = append(issues, model.PayrollIssue{Kind: PayrollNonPositive, Detail: fmt.Sprintf("%s: %.2f", sl.EmployeeName, sl.NetSalary)})
		case sl.GrossSalary > payrollHighGross:
			issues = append(issues, model.PayrollIssue{Kind: PayrollHighGross, Detail: fmt.Sprintf("%s: %.2f", sl.EmployeeName, sl.GrossSalary)})
		}
	}
	return issues
}

// previousMonth returns the first and last day of the month before d.
func previousMonth(d model.Date) (model.Date, model.Date) {
	first := model.NewDate(d.Year(), d.Month(), 1)
	return model.DateOf(first.AddDate(0, -1, 0)), first.AddDays(-1)
}
