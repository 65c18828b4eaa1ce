package repository

import (
	"context"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GuardianRepository handles guardian data access.
type GuardianRepository struct {
	pool *pgxpool.Pool
}

// NewGuardianRepository creates a new GuardianRepository.
func NewGuardianRepository(pool *pgxpool.Pool) *GuardianRepository {
	return &GuardianRepository{pool: pool}
}

func (r *GuardianRepository) db(ctx context.Context) DBTX { return conn(ctx, r.pool) }

const guardianColumns = `id, full_name, relation, email, phone, cin, address, created_at, updated_at`

func scanGuardian(row scanner, g *model.Guardian) error {
	return row.Scan(&g.ID, &g.FullName, &g.Relation, &g.Email, &g.Phone, &g.CIN, &g.Address, &g.CreatedAt, &g.UpdatedAt)
}

// GetByID retrieves a guardian by ID.
func (r *GuardianRepository) GetByID(ctx context.Context, id int) (*model.Guardian, error) {
	g := &model.Guardian{}
	if err := scanGuardian(r.db(ctx).QueryRow(ctx, `SELECT `+guardianColumns+` FROM guardians WHERE id = $1`, id), g); err != nil {
		return nil, mapError(err, nil)
	}
	return g, nil
}

// ListPaginated retrieves guardians, optionally searching by name, email or phone.
func (r *GuardianRepository) ListPaginated(ctx context.Context, filter model.ListFilter) ([]model.Guardian, int, error) {
	var f filterBuilder
	if filter.Search != "" {
		f.add("(full_name ILIKE ? OR email ILIKE ? OR phone ILIKE ?)", like(filter.Search))
	}

	var total int
	if err := r.db(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM guardians`+f.where(), f.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	suffix, args := f.page(filter.Limit(), filter.Offset())
	rows, err := r.db(ctx).Query(ctx, `SELECT `+guardianColumns+` FROM guardians`+f.where()+` ORDER BY full_name`+suffix, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	guardians := []model.Guardian{}
	for rows.Next() {
		var g model.Guardian
		if err := scanGuardian(rows, &g); err != nil {
			return nil, 0, err
		}
		guardians = append(guardians, g)
	}
	return guardians, total, rows.Err()
}

// Create inserts a new guardian.
func (r *GuardianRepository) Create(ctx context.Context, g *model.Guardian) error {
	err := r.db(ctx).QueryRow(ctx,
		`INSERT INTO guardians (full_name, relation, email, phone, cin, address)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		g.FullName, g.Relation, g.Email, g.Phone, g.CIN, g.Address,
	).Scan(&g.ID, &g.CreatedAt, &g.UpdatedAt)
	return mapError(err, nil)
}

// Update modifies a guardian.
func (r *GuardianRepository) Update(ctx context.Context, g *model.Guardian) error {
	return affected(r.db(ctx).Exec(ctx,
		`UPDATE guardians SET full_name = $1, relation = $2, email = $3, phone = $4, cin = $5, address = $6,
		 updated_at = CURRENT_TIMESTAMP WHERE id = $7`,
		g.FullName, g.Relation, g.Email, g.Phone, g.CIN, g.Address, g.ID,
	))
}

// Delete removes a guardian.
func (r *GuardianRepository) Delete(ctx context.Context, id int) error {
	return affected(r.db(ctx).Exec(ctx, `DELETE FROM guardians WHERE id = $1`, id))
}
