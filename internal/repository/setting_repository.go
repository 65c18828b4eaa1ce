package repository

import (
	"context"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SettingRepository struct {
	pool *pgxpool.Pool
}

func NewSettingRepository(pool *pgxpool.Pool) *SettingRepository {
	return &SettingRepository{pool: pool}
}

func (r *SettingRepository) GetAll(ctx context.Context) ([]model.SchoolSetting, error) {
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT key, value, updated_by, updated_at FROM school_settings ORDER BY key ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var settings []model.SchoolSetting
	for rows.Next() {
		var s model.SchoolSetting
		if err := rows.Scan(&s.Key, &s.Value, &s.UpdatedBy, &s.UpdatedAt); err != nil {
			return nil, err
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

func (r *SettingRepository) GetByKey(ctx context.Context, key string) (*model.SchoolSetting, error) {
	s := &model.SchoolSetting{}
	err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT key, value, updated_by, updated_at FROM school_settings WHERE key = $1`, key).
		Scan(&s.Key, &s.Value, &s.UpdatedBy, &s.UpdatedAt)
	if err != nil {
		return nil, mapError(err, nil)
	}
	return s, nil
}

func (r *SettingRepository) Upsert(ctx context.Context, key, value string, updatedBy *int) error {
	_, err := conn(ctx, r.pool).Exec(ctx,
		`INSERT INTO school_settings (key, value, updated_by, updated_at) VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_by = EXCLUDED.updated_by, updated_at = NOW()`,
		key, value, updatedBy)
	return mapError(err, nil)
}
