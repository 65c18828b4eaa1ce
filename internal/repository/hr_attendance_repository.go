package repository

import (
	"context"
	"errors"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrDuplicateHRAttendance = errors.New("attendance already marked for this employee on this date")

// HRAttendanceRepository handles employee attendance data access.
type HRAttendanceRepository struct {
	pool *pgxpool.Pool
}

// NewHRAttendanceRepository creates a new HRAttendanceRepository.
func NewHRAttendanceRepository(pool *pgxpool.Pool) *HRAttendanceRepository {
	return &HRAttendanceRepository{pool: pool}
}

func (r *HRAttendanceRepository) db(ctx context.Context) DBTX { return conn(ctx, r.pool) }

const hrAttendanceSelect = `SELECT h.id, h.employee_id, e.first_name || ' ' || e.last_name, h.attendance_date, h.status,
	COALESCE(to_char(h.in_time, 'HH24:MI'), ''), COALESCE(to_char(h.out_time, 'HH24:MI'), ''), h.working_hours,
	h.late_entry, h.early_exit, h.approval_status, h.approved_by, h.remarks, h.created_at, h.updated_at
	FROM hr_attendance h
	JOIN employees e ON e.id = h.employee_id`

func scanHRAttendance(row scanner, h *model.HRAttendance) error {
	return row.Scan(&h.ID, &h.EmployeeID, &h.EmployeeName, &h.AttendanceDate, &h.Status,
		&h.InTime, &h.OutTime, &h.WorkingHours,
		&h.LateEntry, &h.EarlyExit, &h.ApprovalStatus, &h.ApprovedBy, &h.Remarks, &h.CreatedAt, &h.UpdatedAt)
}

// GetByID retrieves an HR attendance record.
func (r *HRAttendanceRepository) GetByID(ctx context.Context, id int) (*model.HRAttendance, error) {
	h := &model.HRAttendance{}
	if err := scanHRAttendance(r.db(ctx).QueryRow(ctx, hrAttendanceSelect+` WHERE h.id = $1`, id), h); err != nil {
		return nil, mapError(err, nil)
	}
	return h, nil
}

// ListPaginated retrieves HR attendance records.
func (r *HRAttendanceRepository) ListPaginated(ctx context.Context, filter model.ListFilter, employeeID *int, from, to *model.Date) ([]model.HRAttendance, int, error) {
	var f filterBuilder
	if employeeID != nil {
		f.add("h.employee_id = ?", *employeeID)
	}
	if from != nil {
		f.add("h.attendance_date >= ?", *from)
	}
	if to != nil {
		f.add("h.attendance_date <= ?", *to)
	}
	if filter.Status != "" {
		f.add("h.status = ?", filter.Status)
	}

	var total int
	if err := r.db(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM hr_attendance h`+f.where(), f.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	suffix, args := f.page(filter.Limit(), filter.Offset())
	rows, err := r.db(ctx).Query(ctx,
		hrAttendanceSelect+f.where()+` ORDER BY h.attendance_date DESC, e.last_name`+suffix, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	records := []model.HRAttendance{}
	for rows.Next() {
		var h model.HRAttendance
		if err := scanHRAttendance(rows, &h); err != nil {
			return nil, 0, err
		}
		records = append(records, h)
	}
	return records, total, rows.Err()
}

// Exists reports whether another record exists for the employee and date.
func (r *HRAttendanceRepository) Exists(ctx context.Context, excludeID, employeeID int, date model.Date) (bool, error) {
	var exists bool
	err := r.db(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM hr_attendance WHERE id <> $1 AND employee_id = $2 AND attendance_date = $3)`,
		excludeID, employeeID, date,
	).Scan(&exists)
	return exists, err
}

// Create inserts an HR attendance record.
func (r *HRAttendanceRepository) Create(ctx context.Context, h *model.HRAttendance) error {
	err := r.db(ctx).QueryRow(ctx,
		`INSERT INTO hr_attendance (employee_id, attendance_date, status, in_time, out_time, working_hours,
		 late_entry, early_exit, approval_status, remarks)
		 VALUES ($1, $2, $3, NULLIF($4, '')::time, NULLIF($5, '')::time, $6, $7, $8, $9, $10)
		 RETURNING id, created_at, updated_at`,
		h.EmployeeID, h.AttendanceDate, h.Status, h.InTime, h.OutTime, h.WorkingHours,
		h.LateEntry, h.EarlyExit, h.ApprovalStatus, h.Remarks,
	).Scan(&h.ID, &h.CreatedAt, &h.UpdatedAt)
	return mapError(err, ErrDuplicateHRAttendance)
}

// Save persists every mutable column of an HR attendance record.
func (r *HRAttendanceRepository) Save(ctx context.Context, h *model.HRAttendance) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE hr_attendance SET status = $1, in_time = NULLIF($2, '')::time, out_time = NULLIF($3, '')::time,
		 working_hours = $4, late_entry = $5, early_exit = $6, approval_status = $7, approved_by = $8, remarks = $9,
		 updated_at = CURRENT_TIMESTAMP
		 WHERE id = $10`,
		h.Status, h.InTime, h.OutTime,
		h.WorkingHours, h.LateEntry, h.EarlyExit, h.ApprovalStatus, h.ApprovedBy, h.Remarks, h.ID,
	)
	if err != nil {
		return mapError(err, ErrDuplicateHRAttendance)
	}
	return affected(tag, nil)
}

// Delete removes an HR attendance record.
func (r *HRAttendanceRepository) Delete(ctx context.Context, id int) error {
	return affected(r.db(ctx).Exec(ctx, `DELETE FROM hr_attendance WHERE id = $1`, id))
}

// Summary counts statuses over a period, for one employee or everyone.
func (r *HRAttendanceRepository) Summary(ctx context.Context, employeeID *int, from, to model.Date) (*model.HRAttendanceSummary, error) {
	var f filterBuilder
	f.add("attendance_date >= ?", from)
	f.add("attendance_date <= ?", to)
	if employeeID != nil {
		f.add("employee_id = ?", *employeeID)
	}
	s := &model.HRAttendanceSummary{EmployeeID: employeeID, From: from, To: to}
	err := r.db(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FILTER (WHERE status = 'Present'),
		   COUNT(*) FILTER (WHERE status = 'Absent'),
		   COUNT(*) FILTER (WHERE status = 'Half Day'),
		   COUNT(*) FILTER (WHERE status = 'On Leave'),
		   COUNT(*) FILTER (WHERE status = 'Work From Home'),
		   COUNT(*) FILTER (WHERE late_entry),
		   COALESCE(SUM(working_hours), 0)
		 FROM hr_attendance`+f.where(), f.args...,
	).Scan(&s.Present, &s.Absent, &s.HalfDay, &s.OnLeave, &s.WorkFromHome, &s.LateEntries, &s.TotalHours)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// CountPresentDays counts worked days in a period, a half day counting 0.5.
func (r *HRAttendanceRepository) CountPresentDays(ctx context.Context, employeeID int, from, to model.Date) (float64, error) {
	var days float64
	err := r.db(ctx).QueryRow(ctx,
		`SELECT COALESCE(SUM(CASE WHEN status IN ('Present', 'Work From Home') THEN 1.0
		                          WHEN status = 'Half Day' THEN 0.5 ELSE 0 END), 0)::float8
		 FROM hr_attendance
		 WHERE employee_id = $1 AND attendance_date BETWEEN $2 AND $3 AND approval_status <> 'Rejected'`,
		employeeID, from, to,
	).Scan(&days)
	return days, err
}
