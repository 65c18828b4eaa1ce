package repository

import (
	"context"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SalarySlipRepository handles salary slip data access. Earnings and
// deductions are stored as JSONB arrays.
type SalarySlipRepository struct {
	pool *pgxpool.Pool
}

// NewSalarySlipRepository creates a new SalarySlipRepository.
func NewSalarySlipRepository(pool *pgxpool.Pool) *SalarySlipRepository {
	return &SalarySlipRepository{pool: pool}
}

func (r *SalarySlipRepository) db(ctx context.Context) DBTX { return conn(ctx, r.pool) }

const slipSelect = `SELECT ss.id, ss.employee_id, e.first_name || ' ' || e.last_name, ss.period_start, ss.period_end,
	ss.basic_salary, ss.earnings, ss.deductions, ss.gross_salary, ss.total_deductions, ss.net_salary, ss.working_days,
	ss.present_days, ss.status, ss.docstatus, ss.created_at, ss.updated_at
	FROM salary_slips ss
	JOIN employees e ON e.id = ss.employee_id`

func scanSlip(row scanner, s *model.SalarySlip) error {
	return row.Scan(&s.ID, &s.EmployeeID, &s.EmployeeName, &s.PeriodStart, &s.PeriodEnd,
		&s.BasicSalary, &s.Earnings, &s.Deductions, &s.GrossSalary, &s.TotalDeductions, &s.NetSalary, &s.WorkingDays,
		&s.PresentDays, &s.Status, &s.DocStatus, &s.CreatedAt, &s.UpdatedAt)
}

// GetByID retrieves a salary slip.
func (r *SalarySlipRepository) GetByID(ctx context.Context, id int) (*model.SalarySlip, error) {
	s := &model.SalarySlip{}
	if err := scanSlip(r.db(ctx).QueryRow(ctx, slipSelect+` WHERE ss.id = $1`, id), s); err != nil {
		return nil, mapError(err, nil)
	}
	return s, nil
}

// ListPaginated retrieves salary slips, newest period first.
func (r *SalarySlipRepository) ListPaginated(ctx context.Context, filter model.ListFilter, employeeID *int) ([]model.SalarySlip, int, error) {
	var f filterBuilder
	if employeeID != nil {
		f.add("ss.employee_id = ?", *employeeID)
	}
	if filter.Status != "" {
		f.add("ss.status = ?", filter.Status)
	}

	var total int
	if err := r.db(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM salary_slips ss`+f.where(), f.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	suffix, args := f.page(filter.Limit(), filter.Offset())
	rows, err := r.db(ctx).Query(ctx, slipSelect+f.where()+` ORDER BY ss.period_start DESC, ss.id DESC`+suffix, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	slips := []model.SalarySlip{}
	for rows.Next() {
		var s model.SalarySlip
		if err := scanSlip(rows, &s); err != nil {
			return nil, 0, err
		}
		slips = append(slips, s)
	}
	return slips, total, rows.Err()
}

// Create inserts a draft salary slip.
func (r *SalarySlipRepository) Create(ctx context.Context, s *model.SalarySlip) error {
	err := r.db(ctx).QueryRow(ctx,
		`INSERT INTO salary_slips (employee_id, period_start, period_end, basic_salary, earnings, deductions,
		 gross_salary, total_deductions, net_salary, working_days, present_days, status, docstatus)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING id, created_at, updated_at`,
		s.EmployeeID, s.PeriodStart, s.PeriodEnd, s.BasicSalary, s.Earnings, s.Deductions,
		s.GrossSalary, s.TotalDeductions, s.NetSalary, s.WorkingDays, s.PresentDays, s.Status, s.DocStatus,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	return mapError(err, nil)
}

// Save persists every mutable column of a salary slip.
func (r *SalarySlipRepository) Save(ctx context.Context, s *model.SalarySlip) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE salary_slips SET period_start = $1, period_end = $2, basic_salary = $3, earnings = $4, deductions = $5,
		 gross_salary = $6, total_deductions = $7, net_salary = $8, working_days = $9, present_days = $10,
		 status = $11, docstatus = $12, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $13`,
		s.PeriodStart, s.PeriodEnd, s.BasicSalary, s.Earnings, s.Deductions,
		s.GrossSalary, s.TotalDeductions, s.NetSalary, s.WorkingDays, s.PresentDays,
		s.Status, s.DocStatus, s.ID,
	)
	if err != nil {
		return mapError(err, nil)
	}
	return affected(tag, nil)
}

// Delete removes a draft salary slip.
func (r *SalarySlipRepository) Delete(ctx context.Context, id int) error {
	return affected(r.db(ctx).Exec(ctx, `DELETE FROM salary_slips WHERE id = $1 AND docstatus = 0`, id))
}

// ListSubmittedInPeriod returns the submitted slips whose period lies
// within from and to.
func (r *SalarySlipRepository) ListSubmittedInPeriod(ctx context.Context, from, to model.Date) ([]model.SalarySlip, error) {
	rows, err := r.db(ctx).Query(ctx, slipSelect+`
		WHERE ss.docstatus = 1 AND ss.period_start >= $1 AND ss.period_end <= $2
		ORDER BY e.last_name, e.first_name`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.SalarySlip
	for rows.Next() {
		var s model.SalarySlip
		if err := scanSlip(rows, &s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
