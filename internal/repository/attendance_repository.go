package repository

import (
	"context"
	"errors"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrDuplicateAttendance = errors.New("attendance already marked for this student on this date")

// AttendanceRepository handles student attendance data access.
type AttendanceRepository struct {
	pool *pgxpool.Pool
}

// NewAttendanceRepository creates a new AttendanceRepository.
func NewAttendanceRepository(pool *pgxpool.Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

func (r *AttendanceRepository) db(ctx context.Context) DBTX { return conn(ctx, r.pool) }

const attendanceSelect = `SELECT a.id, a.student_id, s.first_name || ' ' || s.last_name, a.school_class_id,
	a.attendance_date, a.status, a.is_justified, a.justification, COALESCE(to_char(a.arrival_time, 'HH24:MI'), ''),
	a.marked_by, a.created_at, a.updated_at
	FROM student_attendance a
	JOIN students s ON s.id = a.student_id`

func scanAttendance(row scanner, a *model.StudentAttendance) error {
	return row.Scan(&a.ID, &a.StudentID, &a.StudentName, &a.SchoolClassID,
		&a.AttendanceDate, &a.Status, &a.IsJustified, &a.Justification, &a.ArrivalTime,
		&a.MarkedBy, &a.CreatedAt, &a.UpdatedAt)
}

// GetByID retrieves an attendance record.
func (r *AttendanceRepository) GetByID(ctx context.Context, id int) (*model.StudentAttendance, error) {
	a := &model.StudentAttendance{}
	if err := scanAttendance(r.db(ctx).QueryRow(ctx, attendanceSelect+` WHERE a.id = $1`, id), a); err != nil {
		return nil, mapError(err, nil)
	}
	return a, nil
}

// ListPaginated retrieves attendance records matching the filter.
func (r *AttendanceRepository) ListPaginated(ctx context.Context, filter model.AttendanceFilter) ([]model.StudentAttendance, int, error) {
	var f filterBuilder
	if filter.SchoolClassID != nil {
		f.add("a.school_class_id = ?", *filter.SchoolClassID)
	}
	if filter.StudentID != nil {
		f.add("a.student_id = ?", *filter.StudentID)
	}
	if filter.From != nil {
		f.add("a.attendance_date >= ?", *filter.From)
	}
	if filter.To != nil {
		f.add("a.attendance_date <= ?", *filter.To)
	}
	if filter.Status != "" {
		f.add("a.status = ?", filter.Status)
	}

	var total int
	if err := r.db(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM student_attendance a`+f.where(), f.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	suffix, args := f.page(filter.Limit(), filter.Offset())
	rows, err := r.db(ctx).Query(ctx,
		attendanceSelect+f.where()+` ORDER BY a.attendance_date DESC, s.last_name, s.first_name`+suffix, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	records := []model.StudentAttendance{}
	for rows.Next() {
		var a model.StudentAttendance
		if err := scanAttendance(rows, &a); err != nil {
			return nil, 0, err
		}
		records = append(records, a)
	}
	return records, total, rows.Err()
}

// ExistsForDate reports whether another record exists for the student and date.
func (r *AttendanceRepository) ExistsForDate(ctx context.Context, excludeID, studentID int, date model.Date) (bool, error) {
	var exists bool
	err := r.db(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM student_attendance WHERE id <> $1 AND student_id = $2 AND attendance_date = $3)`,
		excludeID, studentID, date,
	).Scan(&exists)
	return exists, err
}

// GetForDate returns the record of a student on a date.
func (r *AttendanceRepository) GetForDate(ctx context.Context, studentID int, date model.Date) (*model.StudentAttendance, error) {
	a := &model.StudentAttendance{}
	err := scanAttendance(r.db(ctx).QueryRow(ctx,
		attendanceSelect+` WHERE a.student_id = $1 AND a.attendance_date = $2`, studentID, date), a)
	if err != nil {
		return nil, mapError(err, nil)
	}
	return a, nil
}

// Create inserts an attendance record.
func (r *AttendanceRepository) Create(ctx context.Context, a *model.StudentAttendance) error {
	err := r.db(ctx).QueryRow(ctx,
		`INSERT INTO student_attendance (student_id, school_class_id, attendance_date, status, is_justified,
		 justification, arrival_time, marked_by)
		 VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, '')::time, $8)
		 RETURNING id, created_at, updated_at`,
		a.StudentID, a.SchoolClassID, a.AttendanceDate, a.Status, a.IsJustified,
		a.Justification, a.ArrivalTime, a.MarkedBy,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	return mapError(err, ErrDuplicateAttendance)
}

// Update modifies an attendance record.
func (r *AttendanceRepository) Update(ctx context.Context, a *model.StudentAttendance) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE student_attendance SET status = $1, is_justified = $2, justification = $3,
		 arrival_time = NULLIF($4, '')::time, marked_by = $5, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $6`,
		a.Status, a.IsJustified, a.Justification, a.ArrivalTime, a.MarkedBy, a.ID,
	)
	if err != nil {
		return mapError(err, ErrDuplicateAttendance)
	}
	return affected(tag, nil)
}

// Delete removes an attendance record.
func (r *AttendanceRepository) Delete(ctx context.Context, id int) error {
	return affected(r.db(ctx).Exec(ctx, `DELETE FROM student_attendance WHERE id = $1`, id))
}

// Summary counts statuses per class over a period. Excused covers both
// Excused and Absent Justifié marks.
func (r *AttendanceRepository) Summary(ctx context.Context, classID *int, from, to model.Date) ([]model.AttendanceSummary, error) {
	var f filterBuilder
	f.add("a.attendance_date >= ?", from)
	f.add("a.attendance_date <= ?", to)
	if classID != nil {
		f.add("a.school_class_id = ?", *classID)
	}
	rows, err := r.db(ctx).Query(ctx,
		`SELECT c.id, c.name, COUNT(*),
		   COUNT(*) FILTER (WHERE a.status = 'Present'),
		   COUNT(*) FILTER (WHERE a.status = 'Absent'),
		   COUNT(*) FILTER (WHERE a.status = 'Late'),
		   COUNT(*) FILTER (WHERE a.status IN ('Excused', 'Absent Justifié'))
		 FROM student_attendance a
		 JOIN school_classes c ON c.id = a.school_class_id`+f.where()+`
		 GROUP BY c.id, c.name
		 ORDER BY c.name`, f.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.AttendanceSummary{}
	for rows.Next() {
		var s model.AttendanceSummary
		if err := rows.Scan(&s.SchoolClassID, &s.ClassName, &s.TotalMarks, &s.Present, &s.Absent, &s.Late, &s.Excused); err != nil {
			return nil, err
		}
		if s.TotalMarks > 0 {
			s.AttendanceRate = model.RoundMoney(float64(s.Present+s.Late) / float64(s.TotalMarks) * 100)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListLateArrivals returns the students marked Late on a date.
func (r *AttendanceRepository) ListLateArrivals(ctx context.Context, date model.Date) ([]model.LateArrival, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT s.id, s.first_name || ' ' || s.last_name, c.name, COALESCE(to_char(a.arrival_time, 'HH24:MI'), ''),
		   COALESCE(NULLIF(s.guardian_email, ''), g.email, '')
		 FROM student_attendance a
		 JOIN students s ON s.id = a.student_id
		 JOIN school_classes c ON c.id = a.school_class_id
		 LEFT JOIN guardians g ON g.id = s.guardian_id
		 WHERE a.attendance_date = $1 AND a.status = 'Late'
		 ORDER BY c.name, s.last_name`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.LateArrival
	for rows.Next() {
		var la model.LateArrival
		if err := rows.Scan(&la.StudentID, &la.StudentName, &la.ClassName, &la.ArrivalTime, &la.GuardianEmail); err != nil {
			return nil, err
		}
		out = append(out, la)
	}
	return out, rows.Err()
}

// ListAbsenceStreaks returns active students with at least minAbsences Absent marks
// between from and to.
func (r *AttendanceRepository) ListAbsenceStreaks(ctx context.Context, from, to model.Date, minAbsences int) ([]model.AbsenceStreak, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT s.id, s.first_name || ' ' || s.last_name, COALESCE(c.name, ''), COUNT(*),
		   COALESCE(NULLIF(s.guardian_email, ''), g.email, '')
		 FROM student_attendance a
		 JOIN students s ON s.id = a.student_id
		 LEFT JOIN school_classes c ON c.id = s.school_class_id
		 LEFT JOIN guardians g ON g.id = s.guardian_id
		 WHERE a.status = 'Absent' AND a.attendance_date BETWEEN $1 AND $2 AND s.status = 'Active'
		 GROUP BY s.id, s.first_name, s.last_name, c.name, s.guardian_email, g.email
		 HAVING COUNT(*) >= $3
		 ORDER BY COUNT(*) DESC, s.last_name`, from, to, minAbsences)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AbsenceStreak
	for rows.Next() {
		var a model.AbsenceStreak
		if err := rows.Scan(&a.StudentID, &a.StudentName, &a.ClassName, &a.Absences, &a.GuardianEmail); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListWeeklyAttendance counts each student's marks between from and to,
// grouped by active class.
func (r *AttendanceRepository) ListWeeklyAttendance(ctx context.Context, from, to model.Date) ([]model.WeeklyAttendance, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT c.id, c.name, COALESCE(e.first_name || ' ' || e.last_name, ''), COALESCE(e.email, ''),
		   s.id, s.first_name || ' ' || s.last_name, COALESCE(NULLIF(s.guardian_email, ''), g.email, ''),
		   COUNT(*),
		   COUNT(*) FILTER (WHERE a.status = 'Present'),
		   COUNT(*) FILTER (WHERE a.status = 'Absent'),
		   COUNT(*) FILTER (WHERE a.status = 'Late')
		 FROM student_attendance a
		 JOIN students s ON s.id = a.student_id
		 JOIN school_classes c ON c.id = a.school_class_id
		 LEFT JOIN employees e ON e.id = c.class_teacher_id
		 LEFT JOIN guardians g ON g.id = s.guardian_id
		 WHERE c.is_active AND a.attendance_date BETWEEN $1 AND $2
		 GROUP BY c.id, c.name, e.first_name, e.last_name, e.email, s.id, s.first_name, s.last_name, s.guardian_email, g.email
		 ORDER BY c.name, s.last_name, s.first_name`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.WeeklyAttendance
	for rows.Next() {
		var w model.WeeklyAttendance
		if err := rows.Scan(&w.SchoolClassID, &w.ClassName, &w.TeacherName, &w.TeacherEmail,
			&w.StudentID, &w.StudentName, &w.GuardianEmail, &w.Total, &w.Present, &w.Absent, &w.Late); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
