package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/easygo/easygo-schools/internal/config"
	"github.com/easygo/easygo-schools/internal/model"
	"github.com/easygo/easygo-schools/internal/repository"
	"github.com/easygo/easygo-schools/internal/validator"
	"github.com/rs/zerolog"
)

type settingStore interface {
	GetAll(ctx context.Context) ([]model.SchoolSetting, error)
	GetByKey(ctx context.Context, key string) (*model.SchoolSetting, error)
	Upsert(ctx context.Context, key, value string, updatedBy *int) error
}

type settingsCache interface {
	jsonCache
	Delete(ctx context.Context, keys ...string) error
	DeletePattern(ctx context.Context, pattern string) error
}

const settingsTTL = 10 * time.Minute

// SettingService manages the school profile and finance defaults.
type SettingService struct {
	settings settingStore
	tx       Transactor
	cache    settingsCache
	log      zerolog.Logger
}

// NewSettingService creates a new SettingService. cache may be nil.
func NewSettingService(settings settingStore, tx Transactor, cache settingsCache, log zerolog.Logger) *SettingService {
	return &SettingService{
		settings: settings,
		tx:       tx,
		cache:    cache,
		log:      log.With().Str("component", "setting_service").Logger(),
	}
}

// ValidateSettings checks every value against the rules of its key.
func ValidateSettings(values map[string]string) error {
	known := make(map[string]bool, len(model.SettingKeys))
	for _, k := range model.SettingKeys {
		known[k] = true
	}
	for key, raw := range values {
		if !known[key] {
			return invalid(key, "unknown setting")
		}
		v := strings.TrimSpace(raw)
		switch key {
		case model.SettingSchoolName:
			if v == "" {
				return invalid(key, "cannot be empty")
			}
		case model.SettingMassarCode:
			if v != "" && !validator.IsMassarCode(v) {
				return invalid(key, "must be an 11-digit MASSAR code")
			}
		case model.SettingEmail:
			if v != "" && !validator.IsEmail(v) {
				return invalid(key, "must be a valid email address")
			}
		case model.SettingDefaultCurrency:
			if len(v) != 3 {
				return invalid(key, "must be a 3-letter currency code")
			}
		case model.SettingDefaultPaymentTerms:
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				return invalid(key, "must be at least 1 day")
			}
		case model.SettingLateFeePercentage:
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || f < 0 || f > 100 {
				return invalid(key, "must be between 0 and 100")
			}
		}
	}
	return nil
}

// GetAll returns every setting as a key/value map.
func (s *SettingService) GetAll(ctx context.Context) (map[string]string, error) {
	key := config.CacheKey.SettingsKey()
	if s.cache != nil {
		var cached map[string]string
		hit, err := s.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			s.log.Warn().Err(err).Msg("settings cache read failed")
		}
		if hit {
			return cached, nil
		}
	}

	list, err := s.settings.GetAll(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to get all settings")
		return nil, err
	}
	out := make(map[string]string, len(list))
	for _, st := range list {
		out[st.Key] = st.Value
	}
	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, out, settingsTTL); err != nil {
			s.log.Warn().Err(err).Msg("settings cache write failed")
		}
	}
	return out, nil
}

// Public returns the subset of settings shown on unauthenticated pages.
func (s *SettingService) Public(ctx context.Context) (map[string]string, error) {
	all, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(model.PublicSettingKeys))
	for _, k := range model.PublicSettingKeys {
		if v, ok := all[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

// Get returns one setting, or "" when it was never set.
func (s *SettingService) Get(ctx context.Context, key string) (string, error) {
	st, err := s.settings.GetByKey(ctx, key)
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return st.Value, nil
}

// Update validates and stores values in one transaction, then drops the
// cached settings and reports.
func (s *SettingService) Update(ctx context.Context, values map[string]string, actorID *int) (map[string]string, error) {
	if err := ValidateSettings(values); err != nil {
		return nil, err
	}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		for key, value := range values {
			v := strings.TrimSpace(value)
			if key == model.SettingDefaultCurrency {
				v = strings.ToUpper(v)
			}
			if err := s.settings.Upsert(ctx, key, v, actorID); err != nil {
				s.log.Error().Err(err).Str("key", key).Msg("failed to update setting")
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return s.GetAll(ctx)
}

func (s *SettingService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, config.CacheKey.SettingsKey(), config.CacheKey.DashboardKey()); err != nil {
		s.log.Warn().Err(err).Msg("settings cache invalidation failed")
	}
	if err := s.cache.DeletePattern(ctx, config.CacheKey.ReportPattern("*")); err != nil {
		s.log.Warn().Err(err).Msg("report cache invalidation failed")
	}
}

// PaymentTerms returns the configured payment terms in days, or fallback.
func (s *SettingService) PaymentTerms(ctx context.Context, fallback int) int {
	v, err := s.Get(ctx, model.SettingDefaultPaymentTerms)
	if err != nil {
		s.log.Warn().Err(err).Msg("payment terms lookup failed")
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

// Currency returns the configured default currency, or fallback.
func (s *SettingService) Currency(ctx context.Context, fallback string) string {
	v, err := s.Get(ctx, model.SettingDefaultCurrency)
	if err != nil || len(v) != 3 {
		return fallback
	}
	return v
}
