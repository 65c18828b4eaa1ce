package repository

import (
	"context"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExamRepository handles exam data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

func (r *ExamRepository) db(ctx context.Context) DBTX { return conn(ctx, r.pool) }

const examColumns = `id, exam_name, subject, school_class_id, academic_term_id, exam_date,
	to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'), duration_minutes, room, max_marks, passing_marks,
	status, docstatus, created_by, created_at, updated_at`

func scanExam(row scanner, e *model.Exam) error {
	return row.Scan(&e.ID, &e.ExamName, &e.Subject, &e.SchoolClassID, &e.AcademicTermID, &e.ExamDate,
		&e.StartTime, &e.EndTime, &e.DurationMinutes, &e.Room, &e.MaxMarks, &e.PassingMarks,
		&e.Status, &e.DocStatus, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
}

// GetByID retrieves an exam.
func (r *ExamRepository) GetByID(ctx context.Context, id int) (*model.Exam, error) {
	e := &model.Exam{}
	if err := scanExam(r.db(ctx).QueryRow(ctx, `SELECT `+examColumns+` FROM exams WHERE id = $1`, id), e); err != nil {
		return nil, mapError(err, nil)
	}
	return e, nil
}

// ListPaginated retrieves exams, newest first.
func (r *ExamRepository) ListPaginated(ctx context.Context, filter model.ListFilter, classID *int) ([]model.Exam, int, error) {
	var f filterBuilder
	if classID != nil {
		f.add("school_class_id = ?", *classID)
	}
	if filter.Status != "" {
		f.add("status = ?", filter.Status)
	}
	if filter.Search != "" {
		f.add("(exam_name ILIKE ? OR subject ILIKE ?)", like(filter.Search))
	}

	var total int
	if err := r.db(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM exams`+f.where(), f.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	suffix, args := f.page(filter.Limit(), filter.Offset())
	rows, err := r.db(ctx).Query(ctx,
		`SELECT `+examColumns+` FROM exams`+f.where()+` ORDER BY exam_date DESC, start_time`+suffix, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	exams := []model.Exam{}
	for rows.Next() {
		var e model.Exam
		if err := scanExam(rows, &e); err != nil {
			return nil, 0, err
		}
		exams = append(exams, e)
	}
	return exams, total, rows.Err()
}

// Create inserts a draft exam.
func (r *ExamRepository) Create(ctx context.Context, e *model.Exam) error {
	err := r.db(ctx).QueryRow(ctx,
		`INSERT INTO exams (exam_name, subject, school_class_id, academic_term_id, exam_date, start_time, end_time,
		 duration_minutes, room, max_marks, passing_marks, status, docstatus, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6::time, $7::time, $8, $9, $10, $11, $12, $13, $14)
		 RETURNING id, created_at, updated_at`,
		e.ExamName, e.Subject, e.SchoolClassID, e.AcademicTermID, e.ExamDate, e.StartTime, e.EndTime,
		e.DurationMinutes, e.Room, e.MaxMarks, e.PassingMarks, e.Status, e.DocStatus, e.CreatedBy,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	return mapError(err, nil)
}

// Save persists every mutable column of an exam.
func (r *ExamRepository) Save(ctx context.Context, e *model.Exam) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE exams SET exam_name = $1, subject = $2, school_class_id = $3, academic_term_id = $4, exam_date = $5,
		 start_time = $6::time, end_time = $7::time, duration_minutes = $8, room = $9, max_marks = $10,
		 passing_marks = $11, status = $12, docstatus = $13, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $14`,
		e.ExamName, e.Subject, e.SchoolClassID, e.AcademicTermID, e.ExamDate,
		e.StartTime, e.EndTime, e.DurationMinutes, e.Room, e.MaxMarks,
		e.PassingMarks, e.Status, e.DocStatus, e.ID,
	)
	if err != nil {
		return mapError(err, nil)
	}
	return affected(tag, nil)
}

// Delete removes a draft exam.
func (r *ExamRepository) Delete(ctx context.Context, id int) error {
	return affected(r.db(ctx).Exec(ctx, `DELETE FROM exams WHERE id = $1 AND docstatus = 0`, id))
}
