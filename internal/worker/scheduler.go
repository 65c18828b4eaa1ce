package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/easygo/easygo-schools/internal/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler errors.
var (
	ErrJobNotFound = errors.New("job not found")
	ErrJobRunning  = errors.New("job is already running")
)

// JobRun summarizes one execution of a job.
type JobRun struct {
	Job        string    `json:"job"`
	Trigger    string    `json:"trigger"`
	StartedAt  time.Time `json:"started_at"`
	DurationMs int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
}

// JobInfo describes a registered job.
type JobInfo struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Schedule    string  `json:"schedule,omitempty"`
	LastRun     *JobRun `json:"last_run,omitempty"`
}

// JobLock keeps two processes from running the same job at once and
// remembers each job's last run.
type JobLock interface {
	Acquire(ctx context.Context, job string, ttl time.Duration) (release func(), ok bool, err error)
	RecordRun(ctx context.Context, run JobRun) error
	LastRun(ctx context.Context, job string) (*JobRun, error)
}

// Scheduler runs jobs on cron expressions and on demand.
type Scheduler struct {
	cron    *cron.Cron
	lock    JobLock
	lockTTL time.Duration
	log     zerolog.Logger

	mu        sync.RWMutex
	jobs      map[string]Job
	schedules map[string]string
	baseCtx   context.Context
	cancel    context.CancelFunc
}

// NewScheduler creates a Scheduler evaluating cron expressions in loc.
func NewScheduler(loc *time.Location, lock JobLock, log zerolog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:      cron.New(cron.WithLocation(loc)),
		lock:      lock,
		lockTTL:   30 * time.Minute,
		log:       log.With().Str("component", "scheduler").Logger(),
		jobs:      map[string]Job{},
		schedules: map[string]string{},
		baseCtx:   ctx,
		cancel:    cancel,
	}
}

// Register makes a job runnable on demand. Members of a group are
// registered too.
func (s *Scheduler) Register(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.register(job)
}

func (s *Scheduler) register(job Job) {
	s.jobs[job.Name()] = job
	if g, ok := job.(*Group); ok {
		for _, j := range g.Jobs() {
			s.register(j)
		}
	}
}

// Schedule registers a job and runs it on spec.
func (s *Scheduler) Schedule(spec string, job Job) error {
	name := job.Name()
	if _, err := s.cron.AddFunc(spec, func() {
		if _, err := s.run(s.baseCtx, name, "cron"); err != nil && !errors.Is(err, ErrJobRunning) {
			s.log.Error().Err(err).Str("job", name).Msg("Scheduled run failed")
		}
	}); err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}

	s.mu.Lock()
	s.register(job)
	s.schedules[name] = spec
	s.mu.Unlock()

	s.log.Info().Str("job", name).Str("spec", spec).Msg("Job scheduled")
	return nil
}

// Start begins firing scheduled jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("entries", len(s.cron.Entries())).Msg("Scheduler started")
}

// Stop stops firing jobs, cancels running ones and waits for them or ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop().Done()
	s.cancel()
	select {
	case <-done:
		s.log.Info().Msg("Scheduler stopped")
	case <-ctx.Done():
		s.log.Warn().Msg("Scheduler stop timed out")
	}
}

// Run executes a job now, outside its schedule.
func (s *Scheduler) Run(ctx context.Context, name string) (*JobRun, error) {
	return s.run(ctx, name, "manual")
}

func (s *Scheduler) run(ctx context.Context, name, trigger string) (*JobRun, error) {
	s.mu.RLock()
	job, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	release, acquired, err := s.lock.Acquire(ctx, name, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", name, err)
	}
	if !acquired {
		return nil, fmt.Errorf("%w: %s", ErrJobRunning, name)
	}
	defer release()

	run := JobRun{Job: name, Trigger: trigger, StartedAt: time.Now()}
	jobErr := job.Run(ctx)
	run.DurationMs = time.Since(run.StartedAt).Milliseconds()

	logEvent := s.log.Info()
	if jobErr != nil {
		run.Error = jobErr.Error()
		logEvent = s.log.Error().Err(jobErr)
	}
	logEvent.Str("job", name).Str("trigger", trigger).Int64("duration_ms", run.DurationMs).Msg("Job run")

	if err := s.lock.RecordRun(ctx, run); err != nil {
		s.log.Warn().Err(err).Str("job", name).Msg("Job run not recorded")
	}
	return &run, nil
}

// Jobs lists the registered jobs with their last run.
func (s *Scheduler) Jobs(ctx context.Context) []JobInfo {
	s.mu.RLock()
	out := make([]JobInfo, 0, len(s.jobs))
	for name, j := range s.jobs {
		out = append(out, JobInfo{Name: name, Description: j.Description(), Schedule: s.schedules[name]})
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	for i := range out {
		last, err := s.lock.LastRun(ctx, out[i].Name)
		if err != nil {
			s.log.Warn().Err(err).Str("job", out[i].Name).Msg("Last run lookup failed")
			continue
		}
		out[i].LastRun = last
	}
	return out
}

// RedisJobLock implements JobLock with SET NX keys.
type RedisJobLock struct {
	rdb *redis.Client
}

// NewRedisJobLock creates a RedisJobLock.
func NewRedisJobLock(rdb *redis.Client) *RedisJobLock {
	return &RedisJobLock{rdb: rdb}
}

func (l *RedisJobLock) Acquire(ctx context.Context, job string, ttl time.Duration) (func(), bool, error) {
	key := config.CacheKey.JobLockKey(job)
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil || !ok {
		return func() {}, false, err
	}
	release := func() {
		// Only delete the lock if it is still ours.
		bg := context.Background()
		if v, err := l.rdb.Get(bg, key).Result(); err == nil && v == token {
			l.rdb.Del(bg, key)
		}
	}
	return release, true, nil
}

func (l *RedisJobLock) RecordRun(ctx context.Context, run JobRun) error {
	raw, err := json.Marshal(run)
	if err != nil {
		return err
	}
	return l.rdb.Set(ctx, config.CacheKey.JobLastRunKey(run.Job), raw, 0).Err()
}

func (l *RedisJobLock) LastRun(ctx context.Context, job string) (*JobRun, error) {
	raw, err := l.rdb.Get(ctx, config.CacheKey.JobLastRunKey(job)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var run JobRun
	if err := json.Unmarshal(raw, &run); err != nil {
		return nil, err
	}
	return &run, nil
}
