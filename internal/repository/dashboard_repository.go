package repository

import (
	"context"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DashboardRepository handles admin dashboard data access.
type DashboardRepository struct {
	pool *pgxpool.Pool
}

// NewDashboardRepository creates a new DashboardRepository.
func NewDashboardRepository(pool *pgxpool.Pool) *DashboardRepository {
	return &DashboardRepository{pool: pool}
}

// GetCounters retrieves the headline metrics for the dashboard in one round trip.
func (r *DashboardRepository) GetCounters(ctx context.Context, today model.Date) (*model.DashboardCounters, error) {
	monthStart := model.NewDate(today.Year(), today.Month(), 1)
	d := &model.DashboardCounters{}
	err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT
			(SELECT COUNT(*) FROM students WHERE status = 'Active'),
			(SELECT COUNT(*) FROM employees WHERE status = 'Active'),
			(SELECT COUNT(*) FROM school_classes WHERE is_active),
			(SELECT COALESCE(SUM(outstanding_amount), 0)::float8 FROM fee_bills WHERE docstatus = 1),
			(SELECT COUNT(*) FROM fee_bills WHERE docstatus = 1 AND status = 'Overdue'),
			(SELECT COALESCE(SUM(base_amount), 0)::float8 FROM payment_entries
			   WHERE docstatus = 1 AND payment_date BETWEEN $1 AND $2),
			(SELECT COALESCE(ROUND(100.0 * COUNT(*) FILTER (WHERE status IN ('Present', 'Late')) / NULLIF(COUNT(*), 0), 2), 0)::float8
			   FROM student_attendance WHERE attendance_date = $2),
			(SELECT COUNT(*) FROM student_transfers WHERE status = 'Pending Approval')
			 + (SELECT COUNT(*) FROM expense_entries WHERE status = 'Pending Approval')
			 + (SELECT COUNT(*) FROM budgets WHERE status = 'Pending Approval'),
			(SELECT COUNT(*) FROM stock_items WHERE is_active AND actual_qty <= reorder_level)`,
		monthStart, today,
	).Scan(&d.ActiveStudents, &d.ActiveEmployees, &d.ActiveClasses, &d.OutstandingFees, &d.OverdueBills,
		&d.CollectedThisMonth, &d.TodayAttendanceRate, &d.PendingApprovals, &d.ItemsToReorder)
	if err != nil {
		return nil, err
	}
	return d, nil
}
