package repository

import (
	"context"
	"errors"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrDuplicateReceipt = errors.New("receipt number already issued")

// PaymentRepository handles payment entry data access.
type PaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository creates a new PaymentRepository.
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

func (r *PaymentRepository) db(ctx context.Context) DBTX { return conn(ctx, r.pool) }

const paymentSelect = `SELECT p.id, p.fee_bill_id, p.student_id, s.first_name || ' ' || s.last_name, p.payment_date,
	p.paid_amount, p.currency, p.exchange_rate, p.base_amount, p.mode_of_payment, p.reference_no, p.status,
	p.docstatus, p.receipt_no, p.verified_by, p.verified_at, p.rejection_reason, p.remarks, p.created_at, p.updated_at
	FROM payment_entries p
	JOIN students s ON s.id = p.student_id`

func scanPayment(row scanner, p *model.PaymentEntry) error {
	return row.Scan(&p.ID, &p.FeeBillID, &p.StudentID, &p.StudentName, &p.PaymentDate,
		&p.PaidAmount, &p.Currency, &p.ExchangeRate, &p.BaseAmount, &p.ModeOfPayment, &p.ReferenceNo, &p.Status,
		&p.DocStatus, &p.ReceiptNo, &p.VerifiedBy, &p.VerifiedAt, &p.RejectionReason, &p.Remarks, &p.CreatedAt, &p.UpdatedAt)
}

// GetByID retrieves a payment entry.
func (r *PaymentRepository) GetByID(ctx context.Context, id int) (*model.PaymentEntry, error) {
	p := &model.PaymentEntry{}
	if err := scanPayment(r.db(ctx).QueryRow(ctx, paymentSelect+` WHERE p.id = $1`, id), p); err != nil {
		return nil, mapError(err, nil)
	}
	return p, nil
}

// GetForUpdate retrieves a payment entry and locks it for the transaction.
func (r *PaymentRepository) GetForUpdate(ctx context.Context, id int) (*model.PaymentEntry, error) {
	p := &model.PaymentEntry{}
	if err := scanPayment(r.db(ctx).QueryRow(ctx, paymentSelect+` WHERE p.id = $1 FOR UPDATE OF p`, id), p); err != nil {
		return nil, mapError(err, nil)
	}
	return p, nil
}

// ListPaginated retrieves payments, optionally filtered by status or search.
func (r *PaymentRepository) ListPaginated(ctx context.Context, filter model.ListFilter) ([]model.PaymentEntry, int, error) {
	var f filterBuilder
	if filter.Status != "" {
		f.add("p.status = ?", filter.Status)
	}
	if filter.Search != "" {
		f.add("(s.first_name ILIKE ? OR s.last_name ILIKE ? OR p.receipt_no ILIKE ? OR p.reference_no ILIKE ?)", like(filter.Search))
	}

	var total int
	if err := r.db(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM payment_entries p JOIN students s ON s.id = p.student_id`+f.where(), f.args...,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	suffix, args := f.page(filter.Limit(), filter.Offset())
	rows, err := r.db(ctx).Query(ctx, paymentSelect+f.where()+` ORDER BY p.payment_date DESC, p.id DESC`+suffix, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	payments := []model.PaymentEntry{}
	for rows.Next() {
		var p model.PaymentEntry
		if err := scanPayment(rows, &p); err != nil {
			return nil, 0, err
		}
		payments = append(payments, p)
	}
	return payments, total, rows.Err()
}

// ListByStudent returns every payment of a student, newest first.
func (r *PaymentRepository) ListByStudent(ctx context.Context, studentID int) ([]model.PaymentEntry, error) {
	rows, err := r.db(ctx).Query(ctx, paymentSelect+` WHERE p.student_id = $1 ORDER BY p.payment_date DESC, p.id DESC`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := []model.PaymentEntry{}
	for rows.Next() {
		var p model.PaymentEntry
		if err := scanPayment(rows, &p); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// Create inserts a draft payment entry.
func (r *PaymentRepository) Create(ctx context.Context, p *model.PaymentEntry) error {
	err := r.db(ctx).QueryRow(ctx,
		`INSERT INTO payment_entries (fee_bill_id, student_id, payment_date, paid_amount, currency, exchange_rate,
		 base_amount, mode_of_payment, reference_no, status, docstatus, remarks)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id, created_at, updated_at`,
		p.FeeBillID, p.StudentID, p.PaymentDate, p.PaidAmount, p.Currency, p.ExchangeRate,
		p.BaseAmount, p.ModeOfPayment, p.ReferenceNo, p.Status, p.DocStatus, p.Remarks,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	return mapError(err, nil)
}

// Save persists every mutable column of a payment entry.
func (r *PaymentRepository) Save(ctx context.Context, p *model.PaymentEntry) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE payment_entries SET payment_date = $1, paid_amount = $2, currency = $3, exchange_rate = $4,
		 base_amount = $5, mode_of_payment = $6, reference_no = $7, status = $8, docstatus = $9,
		 receipt_no = $10, verified_by = $11, verified_at = $12, rejection_reason = $13, remarks = $14,
		 updated_at = CURRENT_TIMESTAMP
		 WHERE id = $15`,
		p.PaymentDate, p.PaidAmount, p.Currency, p.ExchangeRate,
		p.BaseAmount, p.ModeOfPayment, p.ReferenceNo, p.Status, p.DocStatus,
		p.ReceiptNo, p.VerifiedBy, p.VerifiedAt, p.RejectionReason, p.Remarks, p.ID,
	)
	if err != nil {
		return mapError(err, ErrDuplicateReceipt)
	}
	return affected(tag, nil)
}

// Delete removes a draft payment entry.
func (r *PaymentRepository) Delete(ctx context.Context, id int) error {
	return affected(r.db(ctx).Exec(ctx, `DELETE FROM payment_entries WHERE id = $1 AND docstatus = 0`, id))
}

// NextReceiptSeq returns the number of receipts already issued in a year,
// plus one.
func (r *PaymentRepository) NextReceiptSeq(ctx context.Context, year int) (int, error) {
	var n int
	err := r.db(ctx).QueryRow(ctx,
		`SELECT COUNT(*) + 1 FROM payment_entries WHERE receipt_no <> '' AND EXTRACT(YEAR FROM payment_date) = $1`, year,
	).Scan(&n)
	return n, err
}
