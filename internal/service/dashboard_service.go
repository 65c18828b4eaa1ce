package service

import (
	"context"
	"time"

	"github.com/easygo/easygo-schools/internal/config"
	"github.com/easygo/easygo-schools/internal/model"
	"github.com/rs/zerolog"
)

type dashboardStore interface {
	GetCounters(ctx context.Context, today model.Date) (*model.DashboardCounters, error)
}

type jsonCache interface {
	GetJSON(ctx context.Context, key string, dst interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error
}

const dashboardTTL = time.Minute

// DashboardService serves the back-office home page counters.
type DashboardService struct {
	repo  dashboardStore
	cache jsonCache
	clock Clock
	log   zerolog.Logger
}

// NewDashboardService creates a new DashboardService. cache may be nil.
func NewDashboardService(repo dashboardStore, cache jsonCache, clock Clock, log zerolog.Logger) *DashboardService {
	return &DashboardService{repo: repo, cache: cache, clock: clock, log: log.With().Str("component", "dashboard").Logger()}
}

// GetCounters returns the headline numbers, cached for a minute.
func (s *DashboardService) GetCounters(ctx context.Context) (*model.DashboardCounters, error) {
	key := config.CacheKey.DashboardKey()
	if s.cache != nil {
		var cached model.DashboardCounters
		hit, err := s.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			s.log.Warn().Err(err).Msg("Dashboard cache read failed")
		}
		if hit {
			return &cached, nil
		}
	}

	d, err := s.repo.GetCounters(ctx, s.clock.today())
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, d, dashboardTTL); err != nil {
			s.log.Warn().Err(err).Msg("Dashboard cache write failed")
		}
	}
	return d, nil
}
