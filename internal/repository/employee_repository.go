package repository

import (
	"context"
	"errors"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrDuplicateEmployeeID = errors.New("employee with this employee id already exists")

// EmployeeRepository handles employee data access.
type EmployeeRepository struct {
	pool *pgxpool.Pool
}

// NewEmployeeRepository creates a new EmployeeRepository.
func NewEmployeeRepository(pool *pgxpool.Pool) *EmployeeRepository {
	return &EmployeeRepository{pool: pool}
}

func (r *EmployeeRepository) db(ctx context.Context) DBTX { return conn(ctx, r.pool) }

const employeeColumns = `id, employee_id, first_name, last_name, email, phone, cin, gender, date_of_birth,
	date_of_joining, designation, department, reports_to, status, basic_salary, created_at, updated_at`

func scanEmployee(row scanner, e *model.Employee) error {
	return row.Scan(&e.ID, &e.EmployeeID, &e.FirstName, &e.LastName, &e.Email, &e.Phone, &e.CIN, &e.Gender, &e.DateOfBirth,
		&e.DateOfJoining, &e.Designation, &e.Department, &e.ReportsTo, &e.Status, &e.BasicSalary, &e.CreatedAt, &e.UpdatedAt)
}

// GetByID retrieves an employee.
func (r *EmployeeRepository) GetByID(ctx context.Context, id int) (*model.Employee, error) {
	e := &model.Employee{}
	if err := scanEmployee(r.db(ctx).QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = $1`, id), e); err != nil {
		return nil, mapError(err, nil)
	}
	return e, nil
}

// ListPaginated retrieves employees, optionally by status or search.
func (r *EmployeeRepository) ListPaginated(ctx context.Context, filter model.ListFilter) ([]model.Employee, int, error) {
	var f filterBuilder
	if filter.Status != "" {
		f.add("status = ?", filter.Status)
	}
	if filter.Search != "" {
		f.add("(first_name ILIKE ? OR last_name ILIKE ? OR employee_id ILIKE ? OR email ILIKE ?)", like(filter.Search))
	}

	var total int
	if err := r.db(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM employees`+f.where(), f.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	suffix, args := f.page(filter.Limit(), filter.Offset())
	rows, err := r.db(ctx).Query(ctx,
		`SELECT `+employeeColumns+` FROM employees`+f.where()+` ORDER BY last_name, first_name`+suffix, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	employees := []model.Employee{}
	for rows.Next() {
		var e model.Employee
		if err := scanEmployee(rows, &e); err != nil {
			return nil, 0, err
		}
		employees = append(employees, e)
	}
	return employees, total, rows.Err()
}

// ReportsToOf returns the manager id of an employee, nil at the top.
func (r *EmployeeRepository) ReportsToOf(ctx context.Context, id int) (*int, error) {
	var manager *int
	if err := r.db(ctx).QueryRow(ctx, `SELECT reports_to FROM employees WHERE id = $1`, id).Scan(&manager); err != nil {
		return nil, mapError(err, nil)
	}
	return manager, nil
}

// Create inserts an employee.
func (r *EmployeeRepository) Create(ctx context.Context, e *model.Employee) error {
	err := r.db(ctx).QueryRow(ctx,
		`INSERT INTO employees (employee_id, first_name, last_name, email, phone, cin, gender, date_of_birth,
		 date_of_joining, designation, department, reports_to, status, basic_salary)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 RETURNING id, created_at, updated_at`,
		e.EmployeeID, e.FirstName, e.LastName, e.Email, e.Phone, e.CIN, e.Gender, e.DateOfBirth,
		e.DateOfJoining, e.Designation, e.Department, e.ReportsTo, e.Status, e.BasicSalary,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	return mapError(err, ErrDuplicateEmployeeID)
}

// Update modifies an employee.
func (r *EmployeeRepository) Update(ctx context.Context, e *model.Employee) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE employees SET employee_id = $1, first_name = $2, last_name = $3, email = $4, phone = $5, cin = $6,
		 gender = $7, date_of_birth = $8, date_of_joining = $9, designation = $10, department = $11, reports_to = $12,
		 status = $13, basic_salary = $14, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $15`,
		e.EmployeeID, e.FirstName, e.LastName, e.Email, e.Phone, e.CIN,
		e.Gender, e.DateOfBirth, e.DateOfJoining, e.Designation, e.Department, e.ReportsTo,
		e.Status, e.BasicSalary, e.ID,
	)
	if err != nil {
		return mapError(err, ErrDuplicateEmployeeID)
	}
	return affected(tag, nil)
}

// Delete removes an employee.
func (r *EmployeeRepository) Delete(ctx context.Context, id int) error {
	return affected(r.db(ctx).Exec(ctx, `DELETE FROM employees WHERE id = $1`, id))
}

// ListActiveWithoutSlip returns active employees who joined by to and have
// no salary slip, draft or submitted, overlapping from and to.
func (r *EmployeeRepository) ListActiveWithoutSlip(ctx context.Context, from, to model.Date) ([]model.Employee, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT `+employeeColumns+` FROM employees e
		 WHERE e.status = 'Active' AND e.date_of_joining <= $2
		   AND NOT EXISTS (SELECT 1 FROM salary_slips ss
		     WHERE ss.employee_id = e.id AND ss.docstatus <> 2
		       AND ss.period_start <= $2 AND ss.period_end >= $1)
		 ORDER BY e.last_name, e.first_name`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Employee
	for rows.Next() {
		var e model.Employee
		if err := scanEmployee(rows, &e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
