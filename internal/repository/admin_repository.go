package repository

import (
	"context"
	"errors"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrDuplicateEmail = errors.New("email already registered")

// AdminRepository handles staff user data access.
type AdminRepository struct {
	pool *pgxpool.Pool
}

// NewAdminRepository creates a new AdminRepository.
func NewAdminRepository(pool *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{pool: pool}
}

func (r *AdminRepository) db(ctx context.Context) DBTX { return conn(ctx, r.pool) }

const adminSelect = `SELECT a.id, a.email, a.name, a.password_hash, a.role_id, r.name, a.employee_id, a.is_active,
	a.created_at, a.updated_at
	FROM admins a JOIN roles r ON a.role_id = r.id`

func scanAdmin(row scanner, a *model.Admin) error {
	return row.Scan(&a.ID, &a.Email, &a.Name, &a.PasswordHash, &a.RoleID, &a.RoleName, &a.EmployeeID, &a.IsActive,
		&a.CreatedAt, &a.UpdatedAt)
}

// GetByID retrieves an admin by ID.
func (r *AdminRepository) GetByID(ctx context.Context, id int) (*model.Admin, error) {
	a := &model.Admin{}
	if err := scanAdmin(r.db(ctx).QueryRow(ctx, adminSelect+` WHERE a.id = $1`, id), a); err != nil {
		return nil, mapError(err, nil)
	}
	return a, nil
}

// GetByEmail retrieves an admin by their unique email.
func (r *AdminRepository) GetByEmail(ctx context.Context, email string) (*model.Admin, error) {
	a := &model.Admin{}
	if err := scanAdmin(r.db(ctx).QueryRow(ctx, adminSelect+` WHERE a.email = $1`, email), a); err != nil {
		return nil, mapError(err, nil)
	}
	return a, nil
}

// ListPaginated retrieves admins, optionally of one role.
func (r *AdminRepository) ListPaginated(ctx context.Context, filter model.ListFilter, roleID int) ([]model.Admin, int, error) {
	var f filterBuilder
	if roleID > 0 {
		f.add("a.role_id = ?", roleID)
	}
	if filter.Search != "" {
		f.add("(a.name ILIKE ? OR a.email ILIKE ?)", like(filter.Search))
	}

	var total int
	if err := r.db(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM admins a`+f.where(), f.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	suffix, args := f.page(filter.Limit(), filter.Offset())
	rows, err := r.db(ctx).Query(ctx, adminSelect+f.where()+` ORDER BY a.created_at DESC`+suffix, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	admins := []model.Admin{}
	for rows.Next() {
		var a model.Admin
		if err := scanAdmin(rows, &a); err != nil {
			return nil, 0, err
		}
		admins = append(admins, a)
	}
	return admins, total, rows.Err()
}

// Create inserts a new admin.
func (r *AdminRepository) Create(ctx context.Context, a *model.Admin) error {
	err := r.db(ctx).QueryRow(ctx,
		`INSERT INTO admins (email, name, password_hash, role_id, employee_id, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		a.Email, a.Name, a.PasswordHash, a.RoleID, a.EmployeeID, a.IsActive,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	return mapError(err, ErrDuplicateEmail)
}

// Update modifies an admin. PasswordHash is written as given.
func (r *AdminRepository) Update(ctx context.Context, a *model.Admin) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE admins SET email = $1, name = $2, password_hash = $3, role_id = $4, employee_id = $5, is_active = $6,
		 updated_at = CURRENT_TIMESTAMP
		 WHERE id = $7`,
		a.Email, a.Name, a.PasswordHash, a.RoleID, a.EmployeeID, a.IsActive, a.ID,
	)
	if err != nil {
		return mapError(err, ErrDuplicateEmail)
	}
	return affected(tag, nil)
}

// Delete removes an admin.
func (r *AdminRepository) Delete(ctx context.Context, id int) error {
	return affected(r.db(ctx).Exec(ctx, `DELETE FROM admins WHERE id = $1`, id))
}

// EmailsWithPermission returns the emails of active staff whose role grants
// the permission. Used to address approval requests.
func (r *AdminRepository) EmailsWithPermission(ctx context.Context, code string) ([]string, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT DISTINCT a.email
		 FROM admins a
		 JOIN role_permissions rp ON rp.role_id = a.role_id
		 JOIN permissions p ON p.id = rp.permission_id
		 WHERE a.is_active AND p.code = $1
		 ORDER BY a.email`, code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	emails := []string{}
	for rows.Next() {
		var e string
		if err := rows.Scan(&e); err != nil {
			return nil, err
		}
		emails = append(emails, e)
	}
	return emails, rows.Err()
}
