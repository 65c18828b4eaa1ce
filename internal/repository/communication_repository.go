package repository

import (
	"context"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CommunicationRepository handles communication log data access.
type CommunicationRepository struct {
	pool *pgxpool.Pool
}

// NewCommunicationRepository creates a new CommunicationRepository.
func NewCommunicationRepository(pool *pgxpool.Pool) *CommunicationRepository {
	return &CommunicationRepository{pool: pool}
}

func (r *CommunicationRepository) db(ctx context.Context) DBTX { return conn(ctx, r.pool) }

const commColumns = `id, subject, message, channel, recipients, reference_type, reference_id, status, sent_at,
	delivered_at, read_at, error_message, retry_count, created_by, created_at, updated_at`

func scanComm(row scanner, c *model.CommunicationLog) error {
	return row.Scan(&c.ID, &c.Subject, &c.Message, &c.Channel, &c.Recipients, &c.ReferenceType, &c.ReferenceID, &c.Status, &c.SentAt,
		&c.DeliveredAt, &c.ReadAt, &c.ErrorMessage, &c.RetryCount, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
}

// GetByID retrieves a communication log.
func (r *CommunicationRepository) GetByID(ctx context.Context, id int) (*model.CommunicationLog, error) {
	c := &model.CommunicationLog{}
	if err := scanComm(r.db(ctx).QueryRow(ctx, `SELECT `+commColumns+` FROM communication_logs WHERE id = $1`, id), c); err != nil {
		return nil, mapError(err, nil)
	}
	return c, nil
}

// ListPaginated retrieves communications, newest first.
func (r *CommunicationRepository) ListPaginated(ctx context.Context, filter model.ListFilter, referenceType string, referenceID *int) ([]model.CommunicationLog, int, error) {
	var f filterBuilder
	if filter.Status != "" {
		f.add("status = ?", filter.Status)
	}
	if referenceType != "" {
		f.add("reference_type = ?", referenceType)
	}
	if referenceID != nil {
		f.add("reference_id = ?", *referenceID)
	}
	if filter.Search != "" {
		f.add("(subject ILIKE ? OR array_to_string(recipients, ',') ILIKE ?)", like(filter.Search))
	}

	var total int
	if err := r.db(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM communication_logs`+f.where(), f.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	suffix, args := f.page(filter.Limit(), filter.Offset())
	rows, err := r.db(ctx).Query(ctx,
		`SELECT `+commColumns+` FROM communication_logs`+f.where()+` ORDER BY created_at DESC, id DESC`+suffix, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	logs := []model.CommunicationLog{}
	for rows.Next() {
		var c model.CommunicationLog
		if err := scanComm(rows, &c); err != nil {
			return nil, 0, err
		}
		logs = append(logs, c)
	}
	return logs, total, rows.Err()
}

// Create inserts a communication log.
func (r *CommunicationRepository) Create(ctx context.Context, c *model.CommunicationLog) error {
	err := r.db(ctx).QueryRow(ctx,
		`INSERT INTO communication_logs (subject, message, channel, recipients, reference_type, reference_id, status,
		 sent_at, error_message, retry_count, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, created_at, updated_at`,
		c.Subject, c.Message, c.Channel, c.Recipients, c.ReferenceType, c.ReferenceID, c.Status,
		c.SentAt, c.ErrorMessage, c.RetryCount, c.CreatedBy,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	return mapError(err, nil)
}

// Save persists the delivery columns of a communication log.
func (r *CommunicationRepository) Save(ctx context.Context, c *model.CommunicationLog) error {
	return affected(r.db(ctx).Exec(ctx,
		`UPDATE communication_logs SET status = $1, sent_at = $2, delivered_at = $3, read_at = $4, error_message = $5,
		 retry_count = $6, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $7`,
		c.Status, c.SentAt, c.DeliveredAt, c.ReadAt, c.ErrorMessage, c.RetryCount, c.ID,
	))
}

// Delete removes a communication log.
func (r *CommunicationRepository) Delete(ctx context.Context, id int) error {
	return affected(r.db(ctx).Exec(ctx, `DELETE FROM communication_logs WHERE id = $1`, id))
}
