package repository

import (
	"context"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TransferRepository handles student transfer data access.
type TransferRepository struct {
	pool *pgxpool.Pool
}

// NewTransferRepository creates a new TransferRepository.
func NewTransferRepository(pool *pgxpool.Pool) *TransferRepository {
	return &TransferRepository{pool: pool}
}

func (r *TransferRepository) db(ctx context.Context) DBTX { return conn(ctx, r.pool) }

const transferSelect = `SELECT t.id, t.student_id, s.first_name || ' ' || s.last_name, t.transfer_type,
	t.from_class_id, t.to_class_id, t.to_school, t.transfer_date, t.reason, t.status, t.docstatus,
	t.approved_by, t.approved_at, t.rejection_reason, t.completed_at, t.created_at, t.updated_at
	FROM student_transfers t
	JOIN students s ON s.id = t.student_id`

func scanTransfer(row scanner, t *model.StudentTransfer) error {
	return row.Scan(&t.ID, &t.StudentID, &t.StudentName, &t.TransferType,
		&t.FromClassID, &t.ToClassID, &t.ToSchool, &t.TransferDate, &t.Reason, &t.Status, &t.DocStatus,
		&t.ApprovedBy, &t.ApprovedAt, &t.RejectionReason, &t.CompletedAt, &t.CreatedAt, &t.UpdatedAt)
}

// GetByID retrieves a transfer by ID.
func (r *TransferRepository) GetByID(ctx context.Context, id int) (*model.StudentTransfer, error) {
	t := &model.StudentTransfer{}
	if err := scanTransfer(r.db(ctx).QueryRow(ctx, transferSelect+` WHERE t.id = $1`, id), t); err != nil {
		return nil, mapError(err, nil)
	}
	return t, nil
}

// ListPaginated retrieves transfers, optionally by status.
func (r *TransferRepository) ListPaginated(ctx context.Context, filter model.ListFilter) ([]model.StudentTransfer, int, error) {
	var f filterBuilder
	if filter.Status != "" {
		f.add("t.status = ?", filter.Status)
	}
	if filter.Search != "" {
		f.add("(s.first_name ILIKE ? OR s.last_name ILIKE ?)", like(filter.Search))
	}

	var total int
	if err := r.db(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM student_transfers t JOIN students s ON s.id = t.student_id`+f.where(), f.args...,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	suffix, args := f.page(filter.Limit(), filter.Offset())
	rows, err := r.db(ctx).Query(ctx, transferSelect+f.where()+` ORDER BY t.transfer_date DESC, t.id DESC`+suffix, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	transfers := []model.StudentTransfer{}
	for rows.Next() {
		var t model.StudentTransfer
		if err := scanTransfer(rows, &t); err != nil {
			return nil, 0, err
		}
		transfers = append(transfers, t)
	}
	return transfers, total, rows.Err()
}

// Create inserts a draft transfer.
func (r *TransferRepository) Create(ctx context.Context, t *model.StudentTransfer) error {
	err := r.db(ctx).QueryRow(ctx,
		`INSERT INTO student_transfers (student_id, transfer_type, from_class_id, to_class_id, to_school,
		 transfer_date, reason, status, docstatus)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at, updated_at`,
		t.StudentID, t.TransferType, t.FromClassID, t.ToClassID, t.ToSchool,
		t.TransferDate, t.Reason, t.Status, t.DocStatus,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	return mapError(err, nil)
}

// Save persists every mutable column of a transfer.
func (r *TransferRepository) Save(ctx context.Context, t *model.StudentTransfer) error {
	return affected(r.db(ctx).Exec(ctx,
		`UPDATE student_transfers SET transfer_type = $1, to_class_id = $2, to_school = $3, transfer_date = $4,
		 reason = $5, status = $6, docstatus = $7, approved_by = $8, approved_at = $9, rejection_reason = $10,
		 completed_at = $11, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $12`,
		t.TransferType, t.ToClassID, t.ToSchool, t.TransferDate,
		t.Reason, t.Status, t.DocStatus, t.ApprovedBy, t.ApprovedAt, t.RejectionReason,
		t.CompletedAt, t.ID,
	))
}
