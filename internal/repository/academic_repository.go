package repository

import (
	"context"
	"errors"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrDuplicateAcademicYear = errors.New("academic year with this name already exists")

// AcademicRepository handles academic year and term data access.
type AcademicRepository struct {
	pool *pgxpool.Pool
}

// NewAcademicRepository creates a new AcademicRepository.
func NewAcademicRepository(pool *pgxpool.Pool) *AcademicRepository {
	return &AcademicRepository{pool: pool}
}

func (r *AcademicRepository) db(ctx context.Context) DBTX { return conn(ctx, r.pool) }

const yearColumns = `id, name, start_date, end_date, is_default, is_active, created_at, updated_at`

func scanYear(row scanner, y *model.AcademicYear) error {
	return row.Scan(&y.ID, &y.Name, &y.StartDate, &y.EndDate, &y.IsDefault, &y.IsActive, &y.CreatedAt, &y.UpdatedAt)
}

// GetYear retrieves an academic year by ID.
func (r *AcademicRepository) GetYear(ctx context.Context, id int) (*model.AcademicYear, error) {
	y := &model.AcademicYear{}
	err := scanYear(r.db(ctx).QueryRow(ctx, `SELECT `+yearColumns+` FROM academic_years WHERE id = $1`, id), y)
	if err != nil {
		return nil, mapError(err, nil)
	}
	return y, nil
}

// GetDefaultYear returns the year flagged as default.
func (r *AcademicRepository) GetDefaultYear(ctx context.Context) (*model.AcademicYear, error) {
	y := &model.AcademicYear{}
	err := scanYear(r.db(ctx).QueryRow(ctx, `SELECT `+yearColumns+` FROM academic_years WHERE is_default`), y)
	if err != nil {
		return nil, mapError(err, nil)
	}
	return y, nil
}

// ListYears returns every academic year, most recent first.
func (r *AcademicRepository) ListYears(ctx context.Context) ([]model.AcademicYear, error) {
	rows, err := r.db(ctx).Query(ctx, `SELECT `+yearColumns+` FROM academic_years ORDER BY start_date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	years := []model.AcademicYear{}
	for rows.Next() {
		var y model.AcademicYear
		if err := scanYear(rows, &y); err != nil {
			return nil, err
		}
		years = append(years, y)
	}
	return years, rows.Err()
}

// CreateYear inserts a new academic year.
func (r *AcademicRepository) CreateYear(ctx context.Context, y *model.AcademicYear) error {
	err := r.db(ctx).QueryRow(ctx,
		`INSERT INTO academic_years (name, start_date, end_date, is_default, is_active)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		y.Name, y.StartDate, y.EndDate, y.IsDefault, y.IsActive,
	).Scan(&y.ID, &y.CreatedAt, &y.UpdatedAt)
	return mapError(err, ErrDuplicateAcademicYear)
}

// UpdateYear modifies an academic year.
func (r *AcademicRepository) UpdateYear(ctx context.Context, y *model.AcademicYear) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE academic_years SET name = $1, start_date = $2, end_date = $3, is_default = $4, is_active = $5,
		 updated_at = CURRENT_TIMESTAMP WHERE id = $6`,
		y.Name, y.StartDate, y.EndDate, y.IsDefault, y.IsActive, y.ID,
	)
	if err != nil {
		return mapError(err, ErrDuplicateAcademicYear)
	}
	return affected(tag, nil)
}

// ClearDefault unsets the default flag on every year except keepID.
func (r *AcademicRepository) ClearDefault(ctx context.Context, keepID int) error {
	_, err := r.db(ctx).Exec(ctx,
		`UPDATE academic_years SET is_default = FALSE, updated_at = CURRENT_TIMESTAMP WHERE is_default AND id <> $1`, keepID)
	return err
}

// DeleteYear removes an academic year.
func (r *AcademicRepository) DeleteYear(ctx context.Context, id int) error {
	return affected(r.db(ctx).Exec(ctx, `DELETE FROM academic_years WHERE id = $1`, id))
}

const termColumns = `id, academic_year_id, name, start_date, end_date, grade_submission_start, grade_submission_end, created_at, updated_at`

func scanTerm(row scanner, t *model.AcademicTerm) error {
	return row.Scan(&t.ID, &t.AcademicYearID, &t.Name, &t.StartDate, &t.EndDate,
		&t.GradeSubmissionStart, &t.GradeSubmissionEnd, &t.CreatedAt, &t.UpdatedAt)
}

// GetTerm retrieves a term by ID.
func (r *AcademicRepository) GetTerm(ctx context.Context, id int) (*model.AcademicTerm, error) {
	t := &model.AcademicTerm{}
	if err := scanTerm(r.db(ctx).QueryRow(ctx, `SELECT `+termColumns+` FROM academic_terms WHERE id = $1`, id), t); err != nil {
		return nil, mapError(err, nil)
	}
	return t, nil
}

// ListTerms returns the terms of a year in chronological order.
func (r *AcademicRepository) ListTerms(ctx context.Context, yearID int) ([]model.AcademicTerm, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT `+termColumns+` FROM academic_terms WHERE academic_year_id = $1 ORDER BY start_date`, yearID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	terms := []model.AcademicTerm{}
	for rows.Next() {
		var t model.AcademicTerm
		if err := scanTerm(rows, &t); err != nil {
			return nil, err
		}
		terms = append(terms, t)
	}
	return terms, rows.Err()
}

// CreateTerm inserts a new term.
func (r *AcademicRepository) CreateTerm(ctx context.Context, t *model.AcademicTerm) error {
	err := r.db(ctx).QueryRow(ctx,
		`INSERT INTO academic_terms (academic_year_id, name, start_date, end_date, grade_submission_start, grade_submission_end)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		t.AcademicYearID, t.Name, t.StartDate, t.EndDate, t.GradeSubmissionStart, t.GradeSubmissionEnd,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	return mapError(err, nil)
}

// UpdateTerm modifies a term.
func (r *AcademicRepository) UpdateTerm(ctx context.Context, t *model.AcademicTerm) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE academic_terms SET academic_year_id = $1, name = $2, start_date = $3, end_date = $4,
		 grade_submission_start = $5, grade_submission_end = $6, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $7`,
		t.AcademicYearID, t.Name, t.StartDate, t.EndDate, t.GradeSubmissionStart, t.GradeSubmissionEnd, t.ID,
	)
	if err != nil {
		return mapError(err, nil)
	}
	return affected(tag, nil)
}

// DeleteTerm removes a term.
func (r *AcademicRepository) DeleteTerm(ctx context.Context, id int) error {
	return affected(r.db(ctx).Exec(ctx, `DELETE FROM academic_terms WHERE id = $1`, id))
}
