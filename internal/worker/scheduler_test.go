package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryLock struct {
	mu    sync.Mutex
	held  map[string]bool
	runs  map[string]JobRun
	calls int
}

func newMemoryLock() *memoryLock {
	return &memoryLock{held: map[string]bool{}, runs: map[string]JobRun{}}
}

func (l *memoryLock) Acquire(_ context.Context, job string, _ time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.held[job] {
		return func() {}, false, nil
	}
	l.held[job] = true
	return func() {
		l.mu.Lock()
		delete(l.held, job)
		l.mu.Unlock()
	}, true, nil
}

func (l *memoryLock) RecordRun(_ context.Context, run JobRun) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.runs[run.Job] = run
	return nil
}

func (l *memoryLock) LastRun(_ context.Context, job string) (*JobRun, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	run, ok := l.runs[job]
	if !ok {
		return nil, nil
	}
	return &run, nil
}

type countingSchool struct {
	calls    []string
	failFees bool
}

func (c *countingSchool) AttendanceReminders(context.Context) (int, error) {
	c.calls = append(c.calls, JobAttendanceReminders)
	return 2, nil
}

func (c *countingSchool) LateArrivalNotices(context.Context) (int, error) {
	c.calls = append(c.calls, JobLateArrivals)
	return 1, nil
}

func (c *countingSchool) FeeReminders(context.Context) (int, error) {
	c.calls = append(c.calls, JobFeeReminders)
	if c.failFees {
		return 0, errors.New("database unavailable")
	}
	return 3, nil
}

func (c *countingSchool) ReorderReport(context.Context) (int, error) {
	c.calls = append(c.calls, JobReorderReport)
	return 0, nil
}

func (c *countingSchool) AttendanceAnomalies(context.Context) (int, error) {
	c.calls = append(c.calls, JobAttendanceAnomalies)
	return 1, nil
}

func (c *countingSchool) AttendanceSummaries(context.Context) (int, error) {
	c.calls = append(c.calls, JobAttendanceSummaries)
	return 12, nil
}

func (c *countingSchool) BudgetBurnRate(context.Context) (int, error) {
	c.calls = append(c.calls, JobBudgetBurnRate)
	return 2, nil
}

func (c *countingSchool) PayrollChecks(context.Context) (int, error) {
	c.calls = append(c.calls, JobPayrollChecks)
	return 0, nil
}

func (c *countingSchool) RefreshOverdue(context.Context) (int64, error) {
	c.calls = append(c.calls, JobMarkOverdueBills)
	return 4, nil
}

func (c *countingSchool) ExpireLapsed(context.Context) (int64, error) {
	c.calls = append(c.calls, JobExpireConsents)
	return 0, nil
}

func newTestScheduler(t *testing.T) (*Scheduler, *countingSchool, *memoryLock) {
	t.Helper()
	school := &countingSchool{}
	lock := newMemoryLock()
	s := NewScheduler(time.UTC, lock, zerolog.Nop())
	daily, weekly, monthly := SchoolJobs(school, school, school, zerolog.Nop())
	require.NoError(t, s.Schedule("0 7 * * *", daily))
	require.NoError(t, s.Schedule("0 8 * * 1", weekly))
	require.NoError(t, s.Schedule("0 6 1 * *", monthly))
	return s, school, lock
}

func TestScheduler_RunsDailyGroupInOrder(t *testing.T) {
	s, school, lock := newTestScheduler(t)

	run, err := s.Run(context.Background(), JobDaily)
	require.NoError(t, err)
	assert.Empty(t, run.Error)
	assert.Equal(t, "manual", run.Trigger)
	assert.Equal(t, []string{JobAttendanceReminders, JobLateArrivals, JobMarkOverdueBills, JobExpireConsents, JobAttendanceAnomalies}, school.calls)
	assert.Contains(t, lock.runs, JobDaily)
	assert.Empty(t, lock.held)
}

func TestScheduler_GroupKeepsGoingAfterFailure(t *testing.T) {
	s, school, _ := newTestScheduler(t)
	school.failFees = true

	run, err := s.Run(context.Background(), JobWeekly)
	require.NoError(t, err)
	assert.Contains(t, run.Error, "fee-reminders: database unavailable")
	assert.Equal(t, []string{JobFeeReminders, JobReorderReport, JobAttendanceSummaries, JobBudgetBurnRate}, school.calls)
}

func TestScheduler_RunsSingleMember(t *testing.T) {
	s, school, _ := newTestScheduler(t)
	_, err := s.Run(context.Background(), JobExpireConsents)
	require.NoError(t, err)
	assert.Equal(t, []string{JobExpireConsents}, school.calls)
}

func TestScheduler_RefusesOverlapAndUnknownJobs(t *testing.T) {
	s, school, lock := newTestScheduler(t)
	lock.held[JobDaily] = true

	_, err := s.Run(context.Background(), JobDaily)
	assert.ErrorIs(t, err, ErrJobRunning)
	assert.Empty(t, school.calls)

	_, err = s.Run(context.Background(), "asset-rollup")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestScheduler_RejectsBadSpec(t *testing.T) {
	s := NewScheduler(time.UTC, newMemoryLock(), zerolog.Nop())
	err := s.Schedule("every morning", NewGroup("x", "x"))
	assert.Error(t, err)
}

func TestScheduler_JobsListing(t *testing.T) {
	s, _, _ := newTestScheduler(t)
	_, err := s.Run(context.Background(), JobWeekly)
	require.NoError(t, err)

	jobs := s.Jobs(context.Background())
	require.Len(t, jobs, 13)
	byName := map[string]JobInfo{}
	for _, j := range jobs {
		byName[j.Name] = j
	}
	assert.Equal(t, "0 7 * * *", byName[JobDaily].Schedule)
	assert.Empty(t, byName[JobFeeReminders].Schedule)
	require.NotNil(t, byName[JobWeekly].LastRun)
	assert.Nil(t, byName[JobDaily].LastRun)
	assert.Equal(t, "0 6 1 * *", byName[JobMonthly].Schedule)
}

func TestScheduler_MonthlyGroupRunsPayrollChecks(t *testing.T) {
	s, school, lock := newTestScheduler(t)

	run, err := s.Run(context.Background(), JobMonthly)
	require.NoError(t, err)
	assert.Empty(t, run.Error)
	assert.Equal(t, []string{JobPayrollChecks}, school.calls)
	assert.Contains(t, lock.runs, JobMonthly)
}
