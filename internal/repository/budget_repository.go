package repository

import (
	"context"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BudgetRepository handles budgets, budget lines, their alerts and revisions.
type BudgetRepository struct {
	pool *pgxpool.Pool
}

// NewBudgetRepository creates a new BudgetRepository.
func NewBudgetRepository(pool *pgxpool.Pool) *BudgetRepository {
	return &BudgetRepository{pool: pool}
}

func (r *BudgetRepository) db(ctx context.Context) DBTX { return conn(ctx, r.pool) }

const budgetColumns = `id, budget_name, cost_center, academic_year_id, start_date, end_date, total_amount,
	approval_required, status, docstatus, approved_by, approved_at, created_at, updated_at`

func scanBudget(row scanner, b *model.Budget) error {
	return row.Scan(&b.ID, &b.BudgetName, &b.CostCenter, &b.AcademicYearID, &b.StartDate, &b.EndDate, &b.TotalAmount,
		&b.ApprovalRequired, &b.Status, &b.DocStatus, &b.ApprovedBy, &b.ApprovedAt, &b.CreatedAt, &b.UpdatedAt)
}

// GetByID retrieves a budget with its lines.
func (r *BudgetRepository) GetByID(ctx context.Context, id int) (*model.Budget, error) {
	b := &model.Budget{}
	if err := scanBudget(r.db(ctx).QueryRow(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE id = $1`, id), b); err != nil {
		return nil, mapError(err, nil)
	}
	lines, err := r.ListLines(ctx, id)
	if err != nil {
		return nil, err
	}
	b.Lines = lines
	return b, nil
}

// ListPaginated retrieves budgets without their lines.
func (r *BudgetRepository) ListPaginated(ctx context.Context, filter model.ListFilter) ([]model.Budget, int, error) {
	var f filterBuilder
	if filter.Status != "" {
		f.add("status = ?", filter.Status)
	}
	if filter.Search != "" {
		f.add("(budget_name ILIKE ? OR cost_center ILIKE ?)", like(filter.Search))
	}

	var total int
	if err := r.db(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM budgets`+f.where(), f.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	suffix, args := f.page(filter.Limit(), filter.Offset())
	rows, err := r.db(ctx).Query(ctx, `SELECT `+budgetColumns+` FROM budgets`+f.where()+` ORDER BY start_date DESC, id DESC`+suffix, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	budgets := []model.Budget{}
	for rows.Next() {
		var b model.Budget
		if err := scanBudget(rows, &b); err != nil {
			return nil, 0, err
		}
		budgets = append(budgets, b)
	}
	return budgets, total, rows.Err()
}

// Create inserts a budget and its lines.
func (r *BudgetRepository) Create(ctx context.Context, b *model.Budget) error {
	err := r.db(ctx).QueryRow(ctx,
		`INSERT INTO budgets (budget_name, cost_center, academic_year_id, start_date, end_date, total_amount,
		 approval_required, status, docstatus)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at, updated_at`,
		b.BudgetName, b.CostCenter, b.AcademicYearID, b.StartDate, b.EndDate, b.TotalAmount,
		b.ApprovalRequired, b.Status, b.DocStatus,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return mapError(err, nil)
	}
	for i := range b.Lines {
		b.Lines[i].BudgetID = b.ID
		if err := r.CreateLine(ctx, &b.Lines[i]); err != nil {
			return err
		}
	}
	return nil
}

// Update rewrites a draft budget header and replaces its lines.
func (r *BudgetRepository) Update(ctx context.Context, b *model.Budget) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE budgets SET budget_name = $1, cost_center = $2, academic_year_id = $3, start_date = $4, end_date = $5,
		 total_amount = $6, approval_required = $7, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $8 AND docstatus = 0`,
		b.BudgetName, b.CostCenter, b.AcademicYearID, b.StartDate, b.EndDate,
		b.TotalAmount, b.ApprovalRequired, b.ID,
	)
	if err := affected(tag, err); err != nil {
		return err
	}
	if _, err := r.db(ctx).Exec(ctx, `DELETE FROM budget_lines WHERE budget_id = $1`, b.ID); err != nil {
		return mapError(err, nil)
	}
	for i := range b.Lines {
		b.Lines[i].BudgetID = b.ID
		if err := r.CreateLine(ctx, &b.Lines[i]); err != nil {
			return err
		}
	}
	return nil
}

// SaveStatus persists the workflow columns of a budget.
func (r *BudgetRepository) SaveStatus(ctx context.Context, b *model.Budget) error {
	return affected(r.db(ctx).Exec(ctx,
		`UPDATE budgets SET status = $1, docstatus = $2, approved_by = $3, approved_at = $4, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $5`,
		b.Status, b.DocStatus, b.ApprovedBy, b.ApprovedAt, b.ID,
	))
}

// Delete removes a draft budget.
func (r *BudgetRepository) Delete(ctx context.Context, id int) error {
	return affected(r.db(ctx).Exec(ctx, `DELETE FROM budgets WHERE id = $1 AND docstatus = 0`, id))
}

// FindOverlapping returns the names of other non-cancelled budgets of the
// same cost center whose period intersects [start, end].
func (r *BudgetRepository) FindOverlapping(ctx context.Context, excludeID int, costCenter string, start, end model.Date) ([]string, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT budget_name FROM budgets
		 WHERE id <> $1 AND cost_center = $2 AND docstatus <> 2
		   AND start_date <= $4 AND end_date >= $3
		 ORDER BY start_date`, excludeID, costCenter, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

const lineSelect = `SELECT bl.id, bl.budget_id, bl.account_id, a.account_name, bl.description, bl.start_date, bl.end_date,
	bl.allocated_amount, bl.consumed_amount, bl.remaining_amount, bl.percentage_consumed, bl.allow_overspend,
	bl.overspend_limit, bl.status, bl.is_active, bl.budget_manager_email,
	COALESCE((SELECT MAX(al.percentage) FROM budget_alerts al WHERE al.budget_line_id = bl.id AND NOT al.is_resolved), 0),
	bl.created_at, bl.updated_at
	FROM budget_lines bl
	JOIN school_accounts a ON a.id = bl.account_id`

func scanLine(row scanner, l *model.BudgetLine) error {
	return row.Scan(&l.ID, &l.BudgetID, &l.AccountID, &l.AccountName, &l.Description, &l.StartDate, &l.EndDate,
		&l.AllocatedAmount, &l.ConsumedAmount, &l.RemainingAmount, &l.PercentageConsumed, &l.AllowOverspend,
		&l.OverspendLimit, &l.Status, &l.IsActive, &l.BudgetManagerEmail, &l.LastAlertPercentage,
		&l.CreatedAt, &l.UpdatedAt)
}

// GetLine retrieves a budget line.
func (r *BudgetRepository) GetLine(ctx context.Context, id int) (*model.BudgetLine, error) {
	l := &model.BudgetLine{}
	if err := scanLine(r.db(ctx).QueryRow(ctx, lineSelect+` WHERE bl.id = $1`, id), l); err != nil {
		return nil, mapError(err, nil)
	}
	return l, nil
}

// ListLines returns the lines of a budget.
func (r *BudgetRepository) ListLines(ctx context.Context, budgetID int) ([]model.BudgetLine, error) {
	return r.queryLines(ctx, lineSelect+` WHERE bl.budget_id = $1 ORDER BY bl.id`, budgetID)
}

// ListLinesForReport returns lines of submitted budgets, optionally of one budget.
func (r *BudgetRepository) ListLinesForReport(ctx context.Context, budgetID *int) ([]model.BudgetLine, error) {
	var f filterBuilder
	f.addRaw("bl.budget_id IN (SELECT id FROM budgets WHERE docstatus = 1)")
	if budgetID != nil {
		f.add("bl.budget_id = ?", *budgetID)
	}
	return r.queryLines(ctx, lineSelect+f.where()+` ORDER BY bl.budget_id, a.account_name`, f.args...)
}

func (r *BudgetRepository) queryLines(ctx context.Context, sql string, args ...interface{}) ([]model.BudgetLine, error) {
	rows, err := r.db(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := []model.BudgetLine{}
	for rows.Next() {
		var l model.BudgetLine
		if err := scanLine(rows, &l); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// CreateLine inserts a budget line.
func (r *BudgetRepository) CreateLine(ctx context.Context, l *model.BudgetLine) error {
	err := r.db(ctx).QueryRow(ctx,
		`INSERT INTO budget_lines (budget_id, account_id, description, start_date, end_date, allocated_amount,
		 consumed_amount, remaining_amount, percentage_consumed, allow_overspend, overspend_limit, status, is_active,
		 budget_manager_email)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 RETURNING id, created_at, updated_at`,
		l.BudgetID, l.AccountID, l.Description, l.StartDate, l.EndDate, l.AllocatedAmount,
		l.ConsumedAmount, l.RemainingAmount, l.PercentageConsumed, l.AllowOverspend, l.OverspendLimit, l.Status, l.IsActive,
		l.BudgetManagerEmail,
	).Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
	return mapError(err, nil)
}

// SaveLine persists the computed columns of a budget line.
func (r *BudgetRepository) SaveLine(ctx context.Context, l *model.BudgetLine) error {
	return affected(r.db(ctx).Exec(ctx,
		`UPDATE budget_lines SET allocated_amount = $1, consumed_amount = $2, remaining_amount = $3,
		 percentage_consumed = $4, status = $5, is_active = $6, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $7`,
		l.AllocatedAmount, l.ConsumedAmount, l.RemainingAmount, l.PercentageConsumed, l.Status, l.IsActive, l.ID,
	))
}

// SumSubmittedExpenses totals submitted expenses charged to a line.
func (r *BudgetRepository) SumSubmittedExpenses(ctx context.Context, lineID int) (float64, error) {
	var sum float64
	err := r.db(ctx).QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM expense_entries WHERE budget_line_id = $1 AND docstatus = 1`, lineID,
	).Scan(&sum)
	return sum, err
}

// HasOpenAlert reports whether an unresolved alert of the level exists.
func (r *BudgetRepository) HasOpenAlert(ctx context.Context, lineID int, level model.AlertLevel) (bool, error) {
	var exists bool
	err := r.db(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM budget_alerts WHERE budget_line_id = $1 AND level = $2 AND NOT is_resolved)`,
		lineID, level,
	).Scan(&exists)
	return exists, err
}

// CreateAlert inserts a budget alert.
func (r *BudgetRepository) CreateAlert(ctx context.Context, a *model.BudgetAlert) error {
	err := r.db(ctx).QueryRow(ctx,
		`INSERT INTO budget_alerts (budget_line_id, level, percentage, message)
		 VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
		a.BudgetLineID, a.Level, a.Percentage, a.Message,
	).Scan(&a.ID, &a.CreatedAt)
	return mapError(err, nil)
}

// ResolveAlertsBelow closes open alerts raised above the current percentage,
// as happens after a reallocation or an expense cancellation.
func (r *BudgetRepository) ResolveAlertsBelow(ctx context.Context, lineID int, pct float64) error {
	_, err := r.db(ctx).Exec(ctx,
		`UPDATE budget_alerts SET is_resolved = TRUE WHERE budget_line_id = $1 AND NOT is_resolved AND percentage > $2`,
		lineID, pct)
	return err
}

// ListAlerts returns the alerts of a line, newest first.
func (r *BudgetRepository) ListAlerts(ctx context.Context, lineID int) ([]model.BudgetAlert, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT id, budget_line_id, level, percentage, message, is_resolved, created_at
		 FROM budget_alerts WHERE budget_line_id = $1 ORDER BY created_at DESC, id DESC`, lineID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	alerts := []model.BudgetAlert{}
	for rows.Next() {
		var a model.BudgetAlert
		if err := rows.Scan(&a.ID, &a.BudgetLineID, &a.Level, &a.Percentage, &a.Message, &a.IsResolved, &a.CreatedAt); err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// CreateRevision logs a reallocation.
func (r *BudgetRepository) CreateRevision(ctx context.Context, rev *model.BudgetLineRevision) error {
	err := r.db(ctx).QueryRow(ctx,
		`INSERT INTO budget_line_revisions (budget_line_id, old_amount, new_amount, reason, revised_by)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`,
		rev.BudgetLineID, rev.OldAmount, rev.NewAmount, rev.Reason, rev.RevisedBy,
	).Scan(&rev.ID, &rev.CreatedAt)
	return mapError(err, nil)
}

// ListRevisions returns the reallocations of a line, newest first.
func (r *BudgetRepository) ListRevisions(ctx context.Context, lineID int) ([]model.BudgetLineRevision, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT id, budget_line_id, old_amount, new_amount, reason, revised_by, created_at
		 FROM budget_line_revisions WHERE budget_line_id = $1 ORDER BY created_at DESC, id DESC`, lineID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	revs := []model.BudgetLineRevision{}
	for rows.Next() {
		var rev model.BudgetLineRevision
		if err := rows.Scan(&rev.ID, &rev.BudgetLineID, &rev.OldAmount, &rev.NewAmount, &rev.Reason, &rev.RevisedBy, &rev.CreatedAt); err != nil {
			return nil, err
		}
		revs = append(revs, rev)
	}
	return revs, rows.Err()
}

// ListBurning returns active lines of active budgets consumed beyond pct
// percent of their allocation.
func (r *BudgetRepository) ListBurning(ctx context.Context, pct float64) ([]model.BudgetLine, error) {
	return r.queryLines(ctx, lineSelect+`
		JOIN budgets b ON b.id = bl.budget_id
		WHERE b.status = 'Active' AND bl.is_active AND bl.allocated_amount > 0
		  AND bl.consumed_amount * 100 > bl.allocated_amount * $1
		ORDER BY bl.percentage_consumed DESC, bl.id`, pct)
}
