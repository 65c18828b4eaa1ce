package repository

import (
	"context"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FeeBillRepository handles fee bill and fee item data access.
type FeeBillRepository struct {
	pool *pgxpool.Pool
}

// NewFeeBillRepository creates a new FeeBillRepository.
func NewFeeBillRepository(pool *pgxpool.Pool) *FeeBillRepository {
	return &FeeBillRepository{pool: pool}
}

func (r *FeeBillRepository) db(ctx context.Context) DBTX { return conn(ctx, r.pool) }

const feeBillSelect = `SELECT b.id, b.student_id, b.student_name, s.massar_code, b.school_class_id, b.academic_year_id,
	b.posting_date, b.due_date, b.total_amount, b.paid_amount, b.outstanding_amount, b.currency,
	b.status, b.docstatus, b.remarks, b.created_at, b.updated_at
	FROM fee_bills b
	JOIN students s ON s.id = b.student_id`

func scanFeeBill(row scanner, b *model.FeeBill) error {
	return row.Scan(&b.ID, &b.StudentID, &b.StudentName, &b.MassarCode, &b.SchoolClassID, &b.AcademicYearID,
		&b.PostingDate, &b.DueDate, &b.TotalAmount, &b.PaidAmount, &b.OutstandingAmount, &b.Currency,
		&b.Status, &b.DocStatus, &b.Remarks, &b.CreatedAt, &b.UpdatedAt)
}

// GetByID retrieves a fee bill with its items.
func (r *FeeBillRepository) GetByID(ctx context.Context, id int) (*model.FeeBill, error) {
	b := &model.FeeBill{}
	if err := scanFeeBill(r.db(ctx).QueryRow(ctx, feeBillSelect+` WHERE b.id = $1`, id), b); err != nil {
		return nil, mapError(err, nil)
	}
	items, err := r.listItems(ctx, id)
	if err != nil {
		return nil, err
	}
	b.Items = items
	return b, nil
}

// GetForUpdate retrieves a fee bill and locks its row until the
// surrounding transaction ends.
func (r *FeeBillRepository) GetForUpdate(ctx context.Context, id int) (*model.FeeBill, error) {
	b := &model.FeeBill{}
	if err := scanFeeBill(r.db(ctx).QueryRow(ctx, feeBillSelect+` WHERE b.id = $1 FOR UPDATE OF b`, id), b); err != nil {
		return nil, mapError(err, nil)
	}
	return b, nil
}

func (r *FeeBillRepository) listItems(ctx context.Context, billID int) ([]model.FeeItem, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT id, fee_type, description, amount FROM fee_items WHERE fee_bill_id = $1 ORDER BY idx, id`, billID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []model.FeeItem{}
	for rows.Next() {
		var it model.FeeItem
		if err := rows.Scan(&it.ID, &it.FeeType, &it.Description, &it.Amount); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ListPaginated retrieves fee bills matching the filter, without items.
func (r *FeeBillRepository) ListPaginated(ctx context.Context, filter model.FeeBillFilter) ([]model.FeeBill, int, error) {
	var f filterBuilder
	if filter.StudentID != nil {
		f.add("b.student_id = ?", *filter.StudentID)
	}
	if filter.SchoolClassID != nil {
		f.add("b.school_class_id = ?", *filter.SchoolClassID)
	}
	if filter.Status != "" {
		f.add("b.status = ?", filter.Status)
	}
	if filter.Search != "" {
		f.add("(b.student_name ILIKE ? OR s.massar_code ILIKE ?)", like(filter.Search))
	}

	var total int
	if err := r.db(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM fee_bills b JOIN students s ON s.id = b.student_id`+f.where(), f.args...,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	suffix, args := f.page(filter.Limit(), filter.Offset())
	rows, err := r.db(ctx).Query(ctx, feeBillSelect+f.where()+` ORDER BY b.posting_date DESC, b.id DESC`+suffix, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	bills := []model.FeeBill{}
	for rows.Next() {
		var b model.FeeBill
		if err := scanFeeBill(rows, &b); err != nil {
			return nil, 0, err
		}
		bills = append(bills, b)
	}
	return bills, total, rows.Err()
}

// Create inserts a fee bill and its items.
func (r *FeeBillRepository) Create(ctx context.Context, b *model.FeeBill) error {
	err := r.db(ctx).QueryRow(ctx,
		`INSERT INTO fee_bills (student_id, student_name, school_class_id, academic_year_id, posting_date, due_date,
		 total_amount, paid_amount, outstanding_amount, currency, status, docstatus, remarks)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING id, created_at, updated_at`,
		b.StudentID, b.StudentName, b.SchoolClassID, b.AcademicYearID, b.PostingDate, b.DueDate,
		b.TotalAmount, b.PaidAmount, b.OutstandingAmount, b.Currency, b.Status, b.DocStatus, b.Remarks,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return mapError(err, nil)
	}
	return r.insertItems(ctx, b)
}

// Update rewrites a draft fee bill and replaces its items.
func (r *FeeBillRepository) Update(ctx context.Context, b *model.FeeBill) error {
	if err := r.SaveAmounts(ctx, b); err != nil {
		return err
	}
	_, err := r.db(ctx).Exec(ctx,
		`UPDATE fee_bills SET student_id = $1, student_name = $2, school_class_id = $3, academic_year_id = $4,
		 posting_date = $5, due_date = $6, currency = $7, remarks = $8 WHERE id = $9`,
		b.StudentID, b.StudentName, b.SchoolClassID, b.AcademicYearID,
		b.PostingDate, b.DueDate, b.Currency, b.Remarks, b.ID,
	)
	if err != nil {
		return mapError(err, nil)
	}
	if _, err := r.db(ctx).Exec(ctx, `DELETE FROM fee_items WHERE fee_bill_id = $1`, b.ID); err != nil {
		return err
	}
	return r.insertItems(ctx, b)
}

func (r *FeeBillRepository) insertItems(ctx context.Context, b *model.FeeBill) error {
	for i := range b.Items {
		it := &b.Items[i]
		err := r.db(ctx).QueryRow(ctx,
			`INSERT INTO fee_items (fee_bill_id, fee_type, description, amount, idx)
			 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			b.ID, it.FeeType, it.Description, it.Amount, i,
		).Scan(&it.ID)
		if err != nil {
			return mapError(err, nil)
		}
	}
	return nil
}

// SaveAmounts persists the computed amounts and lifecycle columns.
func (r *FeeBillRepository) SaveAmounts(ctx context.Context, b *model.FeeBill) error {
	return affected(r.db(ctx).Exec(ctx,
		`UPDATE fee_bills SET due_date = $1, total_amount = $2, paid_amount = $3, outstanding_amount = $4,
		 status = $5, docstatus = $6, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $7`,
		b.DueDate, b.TotalAmount, b.PaidAmount, b.OutstandingAmount, b.Status, b.DocStatus, b.ID,
	))
}

// Delete removes a draft fee bill.
func (r *FeeBillRepository) Delete(ctx context.Context, id int) error {
	return affected(r.db(ctx).Exec(ctx, `DELETE FROM fee_bills WHERE id = $1 AND docstatus = 0`, id))
}

// CountSubmittedPayments counts verified payments against a bill.
func (r *FeeBillRepository) CountSubmittedPayments(ctx context.Context, billID int) (int, error) {
	var n int
	err := r.db(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM payment_entries WHERE fee_bill_id = $1 AND docstatus = 1`, billID,
	).Scan(&n)
	return n, err
}

// MarkOverdue flags submitted bills due before today as Overdue. Bills with
// a payment stay Partially Paid.
func (r *FeeBillRepository) MarkOverdue(ctx context.Context, today model.Date) (int64, error) {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE fee_bills SET status = 'Overdue', updated_at = CURRENT_TIMESTAMP
		 WHERE docstatus = 1 AND status = 'Unpaid' AND paid_amount = 0
		   AND outstanding_amount > 0 AND due_date < $1`, today)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListOverdueReminders returns submitted bills past due with money owed.
func (r *FeeBillRepository) ListOverdueReminders(ctx context.Context, today model.Date) ([]model.FeeReminder, error) {
	return r.listReminders(ctx,
		`b.status IN ('Unpaid', 'Partially Paid', 'Overdue') AND b.due_date < $1`, today)
}

// ListUpcomingReminders returns unpaid bills due within [from, to].
func (r *FeeBillRepository) ListUpcomingReminders(ctx context.Context, from, to model.Date) ([]model.FeeReminder, error) {
	return r.listReminders(ctx, `b.status = 'Unpaid' AND b.due_date BETWEEN $1 AND $2`, from, to)
}

func (r *FeeBillRepository) listReminders(ctx context.Context, cond string, args ...interface{}) ([]model.FeeReminder, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT b.id, b.student_name, COALESCE(NULLIF(s.guardian_email, ''), g.email, ''), b.due_date,
		 b.outstanding_amount, b.currency
		 FROM fee_bills b
		 JOIN students s ON s.id = b.student_id
		 LEFT JOIN guardians g ON g.id = s.guardian_id
		 WHERE b.docstatus = 1 AND b.outstanding_amount > 0 AND `+cond+`
		 ORDER BY b.due_date, b.id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.FeeReminder
	for rows.Next() {
		var fr model.FeeReminder
		if err := rows.Scan(&fr.FeeBillID, &fr.StudentName, &fr.GuardianEmail, &fr.DueDate,
			&fr.OutstandingAmount, &fr.Currency); err != nil {
			return nil, err
		}
		out = append(out, fr)
	}
	return out, rows.Err()
}
