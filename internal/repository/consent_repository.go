package repository

import (
	"context"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ConsentRepository handles parent consent data access.
type ConsentRepository struct {
	pool *pgxpool.Pool
}

// NewConsentRepository creates a new ConsentRepository.
func NewConsentRepository(pool *pgxpool.Pool) *ConsentRepository {
	return &ConsentRepository{pool: pool}
}

func (r *ConsentRepository) db(ctx context.Context) DBTX { return conn(ctx, r.pool) }

const consentColumns = `id, student_id, guardian_id, consent_type, description, consent_given, consent_date,
	signature_date, expiry_date, status, remarks, revoked_at, revocation_reason, created_at, updated_at`

func scanConsent(row scanner, c *model.ParentConsent) error {
	return row.Scan(&c.ID, &c.StudentID, &c.GuardianID, &c.ConsentType, &c.Description, &c.ConsentGiven, &c.ConsentDate,
		&c.SignatureDate, &c.ExpiryDate, &c.Status, &c.Remarks, &c.RevokedAt, &c.RevocationReason, &c.CreatedAt, &c.UpdatedAt)
}

// GetByID retrieves a consent by ID.
func (r *ConsentRepository) GetByID(ctx context.Context, id int) (*model.ParentConsent, error) {
	c := &model.ParentConsent{}
	if err := scanConsent(r.db(ctx).QueryRow(ctx, `SELECT `+consentColumns+` FROM parent_consents WHERE id = $1`, id), c); err != nil {
		return nil, mapError(err, nil)
	}
	return c, nil
}

// ListByStudent returns a student's consents, newest first.
func (r *ConsentRepository) ListByStudent(ctx context.Context, studentID int) ([]model.ParentConsent, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT `+consentColumns+` FROM parent_consents WHERE student_id = $1 ORDER BY consent_date DESC, id DESC`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectConsents(rows)
}

func collectConsents(rows interface {
	scanner
	Next() bool
	Err() error
}) ([]model.ParentConsent, error) {
	consents := []model.ParentConsent{}
	for rows.Next() {
		var c model.ParentConsent
		if err := scanConsent(rows, &c); err != nil {
			return nil, err
		}
		consents = append(consents, c)
	}
	return consents, rows.Err()
}

// Create inserts a consent.
func (r *ConsentRepository) Create(ctx context.Context, c *model.ParentConsent) error {
	err := r.db(ctx).QueryRow(ctx,
		`INSERT INTO parent_consents (student_id, guardian_id, consent_type, description, consent_given, consent_date,
		 signature_date, expiry_date, status, remarks)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, created_at, updated_at`,
		c.StudentID, c.GuardianID, c.ConsentType, c.Description, c.ConsentGiven, c.ConsentDate,
		c.SignatureDate, c.ExpiryDate, c.Status, c.Remarks,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	return mapError(err, nil)
}

// Save persists every mutable column of a consent.
func (r *ConsentRepository) Save(ctx context.Context, c *model.ParentConsent) error {
	return affected(r.db(ctx).Exec(ctx,
		`UPDATE parent_consents SET consent_type = $1, description = $2, consent_given = $3, consent_date = $4,
		 signature_date = $5, expiry_date = $6, status = $7, remarks = $8, revoked_at = $9, revocation_reason = $10,
		 updated_at = CURRENT_TIMESTAMP
		 WHERE id = $11`,
		c.ConsentType, c.Description, c.ConsentGiven, c.ConsentDate,
		c.SignatureDate, c.ExpiryDate, c.Status, c.Remarks, c.RevokedAt, c.RevocationReason, c.ID,
	))
}

// ListExpiring returns approved consents whose expiry date falls within
// [from, to].
func (r *ConsentRepository) ListExpiring(ctx context.Context, from, to model.Date) ([]model.ParentConsent, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT `+consentColumns+` FROM parent_consents
		 WHERE status = 'Approved' AND expiry_date BETWEEN $1 AND $2
		 ORDER BY expiry_date`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectConsents(rows)
}

// ExpireLapsed flags every non-revoked consent past its expiry date as
// Expired and returns how many changed.
func (r *ConsentRepository) ExpireLapsed(ctx context.Context, today model.Date) (int64, error) {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE parent_consents SET status = 'Expired', updated_at = CURRENT_TIMESTAMP
		 WHERE expiry_date < $1 AND status IN ('Pending', 'Approved')`, today)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
