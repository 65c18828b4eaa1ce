package worker

import (
	"context"

	"github.com/rs/zerolog"
)

type reminderSender interface {
	AttendanceReminders(ctx context.Context) (int, error)
	LateArrivalNotices(ctx context.Context) (int, error)
	FeeReminders(ctx context.Context) (int, error)
	ReorderReport(ctx context.Context) (int, error)
	AttendanceAnomalies(ctx context.Context) (int, error)
	AttendanceSummaries(ctx context.Context) (int, error)
	BudgetBurnRate(ctx context.Context) (int, error)
	PayrollChecks(ctx context.Context) (int, error)
}

type overdueRefresher interface {
	RefreshOverdue(ctx context.Context) (int64, error)
}

type consentExpirer interface {
	ExpireLapsed(ctx context.Context) (int64, error)
}

// Job names.
const (
	JobDaily               = "daily"
	JobWeekly              = "weekly"
	JobMonthly             = "monthly"
	JobAttendanceReminders = "attendance-reminders"
	JobLateArrivals        = "late-arrivals"
	JobMarkOverdueBills    = "mark-overdue-bills"
	JobExpireConsents      = "expire-consents"
	JobFeeReminders        = "fee-reminders"
	JobReorderReport       = "reorder-report"
	JobAttendanceAnomalies = "attendance-anomalies"
	JobAttendanceSummaries = "attendance-summaries"
	JobBudgetBurnRate      = "budget-burn-rate"
	JobPayrollChecks       = "payroll-checks"
)

// SchoolJobs builds the daily, weekly and monthly job groups.
func SchoolJobs(reminders reminderSender, bills overdueRefresher, consents consentExpirer, log zerolog.Logger) (daily, weekly, monthly *Group) {
	log = log.With().Str("component", "jobs").Logger()

	daily = NewGroup(JobDaily, "Daily school routine",
		NewTask(JobAttendanceReminders, "Remind class teachers who have not taken today's roll call", reminders.AttendanceReminders, log),
		NewTask(JobLateArrivals, "Tell guardians about today's late arrivals", reminders.LateArrivalNotices, log),
		NewTask(JobMarkOverdueBills, "Flag submitted fee bills past their due date as Overdue", count64(bills.RefreshOverdue), log),
		NewTask(JobExpireConsents, "Flag parent consents past their expiry date as Expired", count64(consents.ExpireLapsed), log),
		NewTask(JobAttendanceAnomalies, "Report students absent three times or more over the last three days", reminders.AttendanceAnomalies, log),
	)
	weekly = NewGroup(JobWeekly, "Weekly school routine",
		NewTask(JobFeeReminders, "Remind guardians of overdue and upcoming fee bills", reminders.FeeReminders, log),
		NewTask(JobReorderReport, "Send the list of stock items to reorder", reminders.ReorderReport, log),
		NewTask(JobAttendanceSummaries, "Send last week's attendance to class teachers and guardians of absent students", reminders.AttendanceSummaries, log),
		NewTask(JobBudgetBurnRate, "Warn budget managers about lines consumed beyond 80%", reminders.BudgetBurnRate, log),
	)
	monthly = NewGroup(JobMonthly, "Monthly school routine",
		NewTask(JobPayrollChecks, "Check last month's payroll for missing or suspicious salary slips", reminders.PayrollChecks, log),
	)
	return daily, weekly, monthly
}

func count64(fn func(ctx context.Context) (int64, error)) func(ctx context.Context) (int, error) {
	return func(ctx context.Context) (int, error) {
		n, err := fn(ctx)
		return int(n), err
	}
}
