package repository

import (
	"context"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FeeCollectionRow is one fee type × class line of the fee collection report.
type FeeCollectionRow struct {
	FeeType         string
	ClassName       string
	TotalBilled     float64
	TotalCollected  float64
	Outstanding     float64
	StudentCount    int
	PaidStudents    int
	PendingStudents int
}

// ReportRepository runs the aggregate queries behind reports that no
// single-entity repository owns.
type ReportRepository struct {
	pool *pgxpool.Pool
}

// NewReportRepository creates a new ReportRepository.
func NewReportRepository(pool *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{pool: pool}
}

// FeeCollection aggregates submitted fee bills by fee type and class. A
// bill's payments are spread over its items pro rata to their amounts.
func (r *ReportRepository) FeeCollection(ctx context.Context, filter model.ReportFilter) ([]FeeCollectionRow, error) {
	var f filterBuilder
	f.addRaw("fb.docstatus = 1")
	if filter.From != nil {
		f.add("fb.posting_date >= ?", *filter.From)
	}
	if filter.To != nil {
		f.add("fb.posting_date <= ?", *filter.To)
	}
	if filter.SchoolClassID != nil {
		f.add("fb.school_class_id = ?", *filter.SchoolClassID)
	}
	if filter.AcademicYearID != nil {
		f.add("fb.academic_year_id = ?", *filter.AcademicYearID)
	}
	if filter.FeeType != "" {
		f.add("fi.fee_type = ?", filter.FeeType)
	}

	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT fi.fee_type, COALESCE(c.name, ''),
		   SUM(fi.amount)::float8,
		   COALESCE(SUM(fi.amount * fb.paid_amount / NULLIF(fb.total_amount, 0)), 0)::float8,
		   COALESCE(SUM(fi.amount * fb.outstanding_amount / NULLIF(fb.total_amount, 0)), 0)::float8,
		   COUNT(DISTINCT fb.student_id),
		   COUNT(DISTINCT fb.student_id) FILTER (WHERE fb.status = 'Paid'),
		   COUNT(DISTINCT fb.student_id) FILTER (WHERE fb.status IN ('Unpaid', 'Partially Paid', 'Overdue'))
		 FROM fee_bills fb
		 JOIN fee_items fi ON fi.fee_bill_id = fb.id
		 LEFT JOIN school_classes c ON c.id = fb.school_class_id`+f.where()+`
		 GROUP BY fi.fee_type, c.name
		 ORDER BY fi.fee_type, c.name`, f.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []FeeCollectionRow{}
	for rows.Next() {
		var row FeeCollectionRow
		if err := rows.Scan(&row.FeeType, &row.ClassName, &row.TotalBilled, &row.TotalCollected, &row.Outstanding,
			&row.StudentCount, &row.PaidStudents, &row.PendingStudents); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
