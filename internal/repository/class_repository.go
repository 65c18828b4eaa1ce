package repository

import (
	"context"
	"errors"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrDuplicateClass = errors.New("class with this name already exists for the academic year")

// ClassRepository handles class data access.
type ClassRepository struct {
	pool *pgxpool.Pool
}

// NewClassRepository creates a new ClassRepository.
func NewClassRepository(pool *pgxpool.Pool) *ClassRepository {
	return &ClassRepository{pool: pool}
}

func (r *ClassRepository) db(ctx context.Context) DBTX { return conn(ctx, r.pool) }

const classSelect = `SELECT c.id, c.name, c.level, c.academic_year_id, c.capacity, c.current_students,
	c.class_teacher_id, COALESCE(e.first_name || ' ' || e.last_name, ''), c.weekly_hours, c.is_active,
	c.created_at, c.updated_at
	FROM school_classes c
	LEFT JOIN employees e ON e.id = c.class_teacher_id`

func scanClass(row scanner, c *model.SchoolClass) error {
	return row.Scan(&c.ID, &c.Name, &c.Level, &c.AcademicYearID, &c.Capacity, &c.CurrentStudents,
		&c.ClassTeacherID, &c.ClassTeacherName, &c.WeeklyHours, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
}

// GetByID retrieves a class by its ID.
func (r *ClassRepository) GetByID(ctx context.Context, id int) (*model.SchoolClass, error) {
	c := &model.SchoolClass{}
	if err := scanClass(r.db(ctx).QueryRow(ctx, classSelect+` WHERE c.id = $1`, id), c); err != nil {
		return nil, mapError(err, nil)
	}
	return c, nil
}

// List retrieves classes, optionally restricted to one academic year.
func (r *ClassRepository) List(ctx context.Context, yearID *int) ([]model.SchoolClass, error) {
	var f filterBuilder
	if yearID != nil {
		f.add("c.academic_year_id = ?", *yearID)
	}
	rows, err := r.db(ctx).Query(ctx, classSelect+f.where()+` ORDER BY c.level, c.name`, f.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	classes := []model.SchoolClass{}
	for rows.Next() {
		var c model.SchoolClass
		if err := scanClass(rows, &c); err != nil {
			return nil, err
		}
		classes = append(classes, c)
	}
	return classes, rows.Err()
}

// Create inserts a new class.
func (r *ClassRepository) Create(ctx context.Context, c *model.SchoolClass) error {
	err := r.db(ctx).QueryRow(ctx,
		`INSERT INTO school_classes (name, level, academic_year_id, capacity, class_teacher_id, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		c.Name, c.Level, c.AcademicYearID, c.Capacity, c.ClassTeacherID, c.IsActive,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	return mapError(err, ErrDuplicateClass)
}

// Update modifies an existing class.
func (r *ClassRepository) Update(ctx context.Context, c *model.SchoolClass) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE school_classes SET name = $1, level = $2, academic_year_id = $3, capacity = $4,
		 class_teacher_id = $5, is_active = $6, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $7`,
		c.Name, c.Level, c.AcademicYearID, c.Capacity, c.ClassTeacherID, c.IsActive, c.ID,
	)
	if err != nil {
		return mapError(err, ErrDuplicateClass)
	}
	return affected(tag, nil)
}

// Delete removes a class by its ID.
func (r *ClassRepository) Delete(ctx context.Context, id int) error {
	return affected(r.db(ctx).Exec(ctx, `DELETE FROM school_classes WHERE id = $1`, id))
}

// CountActiveStudents counts the active students enrolled in a class.
func (r *ClassRepository) CountActiveStudents(ctx context.Context, classID int) (int, error) {
	var n int
	err := r.db(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM students WHERE school_class_id = $1 AND status = 'Active'`, classID,
	).Scan(&n)
	return n, err
}

// SetCurrentStudents stores the cached enrollment count.
func (r *ClassRepository) SetCurrentStudents(ctx context.Context, classID, n int) error {
	_, err := r.db(ctx).Exec(ctx,
		`UPDATE school_classes SET current_students = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`, n, classID)
	return err
}

// SetWeeklyHours stores the scheduled teaching hours of a class.
func (r *ClassRepository) SetWeeklyHours(ctx context.Context, classID int, hours float64) error {
	_, err := r.db(ctx).Exec(ctx,
		`UPDATE school_classes SET weekly_hours = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`, hours, classID)
	return err
}

// ListWithoutAttendance returns active classes that have students but no
// attendance recorded on the given date.
func (r *ClassRepository) ListWithoutAttendance(ctx context.Context, date model.Date) ([]model.ClassReminder, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT c.id, c.name, COALESCE(e.email, ''), COALESCE(e.first_name || ' ' || e.last_name, '')
		 FROM school_classes c
		 LEFT JOIN employees e ON e.id = c.class_teacher_id
		 WHERE c.is_active
		   AND EXISTS (SELECT 1 FROM students s WHERE s.school_class_id = c.id AND s.status = 'Active')
		   AND NOT EXISTS (SELECT 1 FROM student_attendance a WHERE a.school_class_id = c.id AND a.attendance_date = $1)
		 ORDER BY c.name`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ClassReminder
	for rows.Next() {
		var cr model.ClassReminder
		if err := rows.Scan(&cr.SchoolClassID, &cr.ClassName, &cr.TeacherEmail, &cr.TeacherName); err != nil {
			return nil, err
		}
		out = append(out, cr)
	}
	return out, rows.Err()
}
