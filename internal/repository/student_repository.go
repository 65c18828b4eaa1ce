package repository

import (
	"context"
	"errors"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrDuplicateMassar = errors.New("student with this MASSAR code already exists")

// StudentRepository handles student data access.
type StudentRepository struct {
	pool *pgxpool.Pool
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

func (r *StudentRepository) db(ctx context.Context) DBTX { return conn(ctx, r.pool) }

const studentSelect = `SELECT s.id, s.massar_code, s.first_name, s.last_name, s.first_name_ar, s.last_name_ar,
	s.gender, s.date_of_birth, s.school_class_id, COALESCE(c.name, ''), s.guardian_id,
	COALESCE(NULLIF(s.guardian_email, ''), g.email, ''), s.status, s.enrollment_date, s.created_at, s.updated_at
	FROM students s
	LEFT JOIN school_classes c ON c.id = s.school_class_id
	LEFT JOIN guardians g ON g.id = s.guardian_id`

func scanStudent(row scanner, s *model.Student) error {
	return row.Scan(&s.ID, &s.MassarCode, &s.FirstName, &s.LastName, &s.FirstNameAr, &s.LastNameAr,
		&s.Gender, &s.DateOfBirth, &s.SchoolClassID, &s.ClassName, &s.GuardianID,
		&s.GuardianEmail, &s.Status, &s.EnrollmentDate, &s.CreatedAt, &s.UpdatedAt)
}

// GetByID retrieves a student by ID.
func (r *StudentRepository) GetByID(ctx context.Context, id int) (*model.Student, error) {
	s := &model.Student{}
	if err := scanStudent(r.db(ctx).QueryRow(ctx, studentSelect+` WHERE s.id = $1`, id), s); err != nil {
		return nil, mapError(err, nil)
	}
	return s, nil
}

// GetByMassar retrieves a student by their unique MASSAR code.
func (r *StudentRepository) GetByMassar(ctx context.Context, code string) (*model.Student, error) {
	s := &model.Student{}
	if err := scanStudent(r.db(ctx).QueryRow(ctx, studentSelect+` WHERE s.massar_code = $1`, code), s); err != nil {
		return nil, mapError(err, nil)
	}
	return s, nil
}

// ListPaginated retrieves students matching the filter.
func (r *StudentRepository) ListPaginated(ctx context.Context, filter model.StudentFilter) ([]model.Student, int, error) {
	var f filterBuilder
	if filter.SchoolClassID != nil {
		f.add("s.school_class_id = ?", *filter.SchoolClassID)
	}
	if filter.Status != "" {
		f.add("s.status = ?", filter.Status)
	}
	if filter.Search != "" {
		f.add("(s.first_name ILIKE ? OR s.last_name ILIKE ? OR s.massar_code ILIKE ?)", like(filter.Search))
	}

	var total int
	if err := r.db(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM students s`+f.where(), f.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	suffix, args := f.page(filter.Limit(), filter.Offset())
	rows, err := r.db(ctx).Query(ctx, studentSelect+f.where()+` ORDER BY s.last_name, s.first_name`+suffix, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	students := []model.Student{}
	for rows.Next() {
		var s model.Student
		if err := scanStudent(rows, &s); err != nil {
			return nil, 0, err
		}
		students = append(students, s)
	}
	return students, total, rows.Err()
}

// ListByClass returns the active students of a class.
func (r *StudentRepository) ListByClass(ctx context.Context, classID int) ([]model.Student, error) {
	rows, err := r.db(ctx).Query(ctx,
		studentSelect+` WHERE s.school_class_id = $1 AND s.status = 'Active' ORDER BY s.last_name, s.first_name`, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	students := []model.Student{}
	for rows.Next() {
		var s model.Student
		if err := scanStudent(rows, &s); err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

// Create inserts a new student.
func (r *StudentRepository) Create(ctx context.Context, s *model.Student) error {
	err := r.db(ctx).QueryRow(ctx,
		`INSERT INTO students (massar_code, first_name, last_name, first_name_ar, last_name_ar, gender, date_of_birth,
		 school_class_id, guardian_id, guardian_email, status, enrollment_date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id, created_at, updated_at`,
		s.MassarCode, s.FirstName, s.LastName, s.FirstNameAr, s.LastNameAr, s.Gender, s.DateOfBirth,
		s.SchoolClassID, s.GuardianID, s.GuardianEmail, s.Status, s.EnrollmentDate,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	return mapError(err, ErrDuplicateMassar)
}

// Update modifies a student's details.
func (r *StudentRepository) Update(ctx context.Context, s *model.Student) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE students SET massar_code = $1, first_name = $2, last_name = $3, first_name_ar = $4, last_name_ar = $5,
		 gender = $6, date_of_birth = $7, school_class_id = $8, guardian_id = $9, guardian_email = $10,
		 status = $11, enrollment_date = $12, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $13`,
		s.MassarCode, s.FirstName, s.LastName, s.FirstNameAr, s.LastNameAr, s.Gender, s.DateOfBirth,
		s.SchoolClassID, s.GuardianID, s.GuardianEmail, s.Status, s.EnrollmentDate, s.ID,
	)
	if err != nil {
		return mapError(err, ErrDuplicateMassar)
	}
	return affected(tag, nil)
}

// SetPlacement changes a student's class and status, as done when a
// transfer completes.
func (r *StudentRepository) SetPlacement(ctx context.Context, id int, classID *int, status model.StudentStatus) error {
	return affected(r.db(ctx).Exec(ctx,
		`UPDATE students SET school_class_id = $1, status = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $3`,
		classID, status, id))
}

// Delete removes a student by ID.
func (r *StudentRepository) Delete(ctx context.Context, id int) error {
	return affected(r.db(ctx).Exec(ctx, `DELETE FROM students WHERE id = $1`, id))
}
