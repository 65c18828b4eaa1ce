package repository

import (
	"context"
	"errors"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrDuplicateGrade = errors.New("grade already recorded for this student, subject, assessment and date")

// GradeRepository handles grade data access.
type GradeRepository struct {
	pool *pgxpool.Pool
}

// NewGradeRepository creates a new GradeRepository.
func NewGradeRepository(pool *pgxpool.Pool) *GradeRepository {
	return &GradeRepository{pool: pool}
}

func (r *GradeRepository) db(ctx context.Context) DBTX { return conn(ctx, r.pool) }

const gradeSelect = `SELECT g.id, g.student_id, s.first_name || ' ' || s.last_name, g.exam_id, g.academic_term_id,
	g.subject, g.assessment, g.assessment_date, g.grade, g.max_grade, g.percentage, g.letter_grade, g.grade_points,
	g.is_published, g.remarks, g.graded_by, g.created_at, g.updated_at
	FROM grades g
	JOIN students s ON s.id = g.student_id`

func scanGrade(row scanner, g *model.Grade) error {
	return row.Scan(&g.ID, &g.StudentID, &g.StudentName, &g.ExamID, &g.AcademicTermID,
		&g.Subject, &g.Assessment, &g.AssessmentDate, &g.Grade, &g.MaxGrade, &g.Percentage, &g.LetterGrade, &g.GradePoints,
		&g.IsPublished, &g.Remarks, &g.GradedBy, &g.CreatedAt, &g.UpdatedAt)
}

// GetByID retrieves a grade.
func (r *GradeRepository) GetByID(ctx context.Context, id int) (*model.Grade, error) {
	g := &model.Grade{}
	if err := scanGrade(r.db(ctx).QueryRow(ctx, gradeSelect+` WHERE g.id = $1`, id), g); err != nil {
		return nil, mapError(err, nil)
	}
	return g, nil
}

// ListPaginated retrieves grades matching the filter.
func (r *GradeRepository) ListPaginated(ctx context.Context, filter model.GradeFilter) ([]model.Grade, int, error) {
	var f filterBuilder
	if filter.StudentID != nil {
		f.add("g.student_id = ?", *filter.StudentID)
	}
	if filter.ExamID != nil {
		f.add("g.exam_id = ?", *filter.ExamID)
	}
	if filter.Subject != "" {
		f.add("g.subject = ?", filter.Subject)
	}

	var total int
	if err := r.db(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM grades g`+f.where(), f.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	suffix, args := f.page(filter.Limit(), filter.Offset())
	rows, err := r.db(ctx).Query(ctx, gradeSelect+f.where()+` ORDER BY g.assessment_date DESC, g.id DESC`+suffix, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	grades := []model.Grade{}
	for rows.Next() {
		var g model.Grade
		if err := scanGrade(rows, &g); err != nil {
			return nil, 0, err
		}
		grades = append(grades, g)
	}
	return grades, total, rows.Err()
}

// ListPublishedForStudent returns a student's published grades by subject.
func (r *GradeRepository) ListPublishedForStudent(ctx context.Context, studentID int, termID *int) ([]model.Grade, error) {
	var f filterBuilder
	f.add("g.student_id = ?", studentID)
	f.addRaw("g.is_published")
	if termID != nil {
		f.add("g.academic_term_id = ?", *termID)
	}
	rows, err := r.db(ctx).Query(ctx, gradeSelect+f.where()+` ORDER BY g.subject, g.assessment_date`, f.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	grades := []model.Grade{}
	for rows.Next() {
		var g model.Grade
		if err := scanGrade(rows, &g); err != nil {
			return nil, err
		}
		grades = append(grades, g)
	}
	return grades, rows.Err()
}

// Exists reports whether another grade has the same natural key.
func (r *GradeRepository) Exists(ctx context.Context, excludeID, studentID int, subject, assessment string, date model.Date) (bool, error) {
	var exists bool
	err := r.db(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM grades WHERE id <> $1 AND student_id = $2 AND subject = $3
		 AND assessment = $4 AND assessment_date = $5)`,
		excludeID, studentID, subject, assessment, date,
	).Scan(&exists)
	return exists, err
}

// Create inserts a grade.
func (r *GradeRepository) Create(ctx context.Context, g *model.Grade) error {
	err := r.db(ctx).QueryRow(ctx,
		`INSERT INTO grades (student_id, exam_id, academic_term_id, subject, assessment, assessment_date, grade, max_grade,
		 percentage, letter_grade, grade_points, is_published, remarks, graded_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 RETURNING id, created_at, updated_at`,
		g.StudentID, g.ExamID, g.AcademicTermID, g.Subject, g.Assessment, g.AssessmentDate, g.Grade, g.MaxGrade,
		g.Percentage, g.LetterGrade, g.GradePoints, g.IsPublished, g.Remarks, g.GradedBy,
	).Scan(&g.ID, &g.CreatedAt, &g.UpdatedAt)
	return mapError(err, ErrDuplicateGrade)
}

// Save persists every mutable column of a grade.
func (r *GradeRepository) Save(ctx context.Context, g *model.Grade) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE grades SET exam_id = $1, academic_term_id = $2, subject = $3, assessment = $4, assessment_date = $5,
		 grade = $6, max_grade = $7, percentage = $8, letter_grade = $9, grade_points = $10, is_published = $11,
		 remarks = $12, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $13`,
		g.ExamID, g.AcademicTermID, g.Subject, g.Assessment, g.AssessmentDate,
		g.Grade, g.MaxGrade, g.Percentage, g.LetterGrade, g.GradePoints, g.IsPublished,
		g.Remarks, g.ID,
	)
	if err != nil {
		return mapError(err, ErrDuplicateGrade)
	}
	return affected(tag, nil)
}

// Delete removes a grade.
func (r *GradeRepository) Delete(ctx context.Context, id int) error {
	return affected(r.db(ctx).Exec(ctx, `DELETE FROM grades WHERE id = $1`, id))
}
