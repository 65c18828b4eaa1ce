package repository

import (
	"context"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExpenseRepository handles expense entry data access.
type ExpenseRepository struct {
	pool *pgxpool.Pool
}

// NewExpenseRepository creates a new ExpenseRepository.
func NewExpenseRepository(pool *pgxpool.Pool) *ExpenseRepository {
	return &ExpenseRepository{pool: pool}
}

func (r *ExpenseRepository) db(ctx context.Context) DBTX { return conn(ctx, r.pool) }

const expenseColumns = `id, budget_line_id, account_id, expense_date, amount, description, supplier, invoice_no, status,
	payment_status, requested_by, approval_date, approved_by, rejection_reason, paid_date, payment_reference,
	docstatus, created_at, updated_at`

func scanExpense(row scanner, e *model.ExpenseEntry) error {
	return row.Scan(&e.ID, &e.BudgetLineID, &e.AccountID, &e.ExpenseDate, &e.Amount, &e.Description, &e.Supplier, &e.InvoiceNo, &e.Status,
		&e.PaymentStatus, &e.RequestedBy, &e.ApprovalDate, &e.ApprovedBy, &e.RejectionReason, &e.PaidDate, &e.PaymentReference,
		&e.DocStatus, &e.CreatedAt, &e.UpdatedAt)
}

// GetByID retrieves an expense entry.
func (r *ExpenseRepository) GetByID(ctx context.Context, id int) (*model.ExpenseEntry, error) {
	e := &model.ExpenseEntry{}
	if err := scanExpense(r.db(ctx).QueryRow(ctx, `SELECT `+expenseColumns+` FROM expense_entries WHERE id = $1`, id), e); err != nil {
		return nil, mapError(err, nil)
	}
	return e, nil
}

// GetForUpdate retrieves an expense entry and locks it for the transaction.
func (r *ExpenseRepository) GetForUpdate(ctx context.Context, id int) (*model.ExpenseEntry, error) {
	e := &model.ExpenseEntry{}
	if err := scanExpense(r.db(ctx).QueryRow(ctx, `SELECT `+expenseColumns+` FROM expense_entries WHERE id = $1 FOR UPDATE`, id), e); err != nil {
		return nil, mapError(err, nil)
	}
	return e, nil
}

// ListPaginated retrieves expenses matching the filter.
func (r *ExpenseRepository) ListPaginated(ctx context.Context, filter model.ExpenseFilter) ([]model.ExpenseEntry, int, error) {
	var f filterBuilder
	if filter.BudgetLineID != nil {
		f.add("budget_line_id = ?", *filter.BudgetLineID)
	}
	if filter.Status != "" {
		f.add("status = ?", filter.Status)
	}
	if filter.Search != "" {
		f.add("(description ILIKE ? OR supplier ILIKE ? OR invoice_no ILIKE ?)", like(filter.Search))
	}

	var total int
	if err := r.db(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM expense_entries`+f.where(), f.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	suffix, args := f.page(filter.Limit(), filter.Offset())
	rows, err := r.db(ctx).Query(ctx,
		`SELECT `+expenseColumns+` FROM expense_entries`+f.where()+` ORDER BY expense_date DESC, id DESC`+suffix, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	expenses := []model.ExpenseEntry{}
	for rows.Next() {
		var e model.ExpenseEntry
		if err := scanExpense(rows, &e); err != nil {
			return nil, 0, err
		}
		expenses = append(expenses, e)
	}
	return expenses, total, rows.Err()
}

// Create inserts a draft expense.
func (r *ExpenseRepository) Create(ctx context.Context, e *model.ExpenseEntry) error {
	err := r.db(ctx).QueryRow(ctx,
		`INSERT INTO expense_entries (budget_line_id, account_id, expense_date, amount, description, supplier, invoice_no,
		 status, payment_status, requested_by, docstatus)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, created_at, updated_at`,
		e.BudgetLineID, e.AccountID, e.ExpenseDate, e.Amount, e.Description, e.Supplier, e.InvoiceNo,
		e.Status, e.PaymentStatus, e.RequestedBy, e.DocStatus,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	return mapError(err, nil)
}

// Save persists every mutable column of an expense.
func (r *ExpenseRepository) Save(ctx context.Context, e *model.ExpenseEntry) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE expense_entries SET budget_line_id = $1, account_id = $2, expense_date = $3, amount = $4,
		 description = $5, supplier = $6, invoice_no = $7, status = $8, payment_status = $9, approval_date = $10,
		 approved_by = $11, rejection_reason = $12, paid_date = $13, payment_reference = $14, docstatus = $15,
		 updated_at = CURRENT_TIMESTAMP
		 WHERE id = $16`,
		e.BudgetLineID, e.AccountID, e.ExpenseDate, e.Amount,
		e.Description, e.Supplier, e.InvoiceNo, e.Status, e.PaymentStatus, e.ApprovalDate,
		e.ApprovedBy, e.RejectionReason, e.PaidDate, e.PaymentReference, e.DocStatus, e.ID,
	)
	if err != nil {
		return mapError(err, nil)
	}
	return affected(tag, nil)
}

// Delete removes a draft expense.
func (r *ExpenseRepository) Delete(ctx context.Context, id int) error {
	return affected(r.db(ctx).Exec(ctx, `DELETE FROM expense_entries WHERE id = $1 AND docstatus = 0`, id))
}
