package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ReportKey returns the cache key for a rendered report keyed by its filter hash
func (r *CacheKeyStruct) ReportKey(report, filterHash string) string {
	return fmt.Sprintf("report:%s:%s", report, filterHash)
}

// ReportPattern matches every cached variant of a report
func (r *CacheKeyStruct) ReportPattern(report string) string {
	return fmt.Sprintf("report:%s:*", report)
}

// DashboardKey returns the cache key for the dashboard counters
func (r *CacheKeyStruct) DashboardKey() string {
	return "dashboard:counters"
}

// SettingsKey returns the cache key for the school settings map
func (r *CacheKeyStruct) SettingsKey() string {
	return "settings:school"
}

// LoginAttemptsKey returns the cache key counting failed logins for an email
func (r *CacheKeyStruct) LoginAttemptsKey(email string) string {
	return fmt.Sprintf("login_attempts:%s", email)
}

// RateLimitKey returns the counter key for one client within one window of a limited route group
func (r *CacheKeyStruct) RateLimitKey(scope, client string, window int64) string {
	return fmt.Sprintf("ratelimit:%s:%s:%d", scope, client, window)
}

// JobLockKey returns the lock key preventing overlapping runs of a scheduled job
func (r *CacheKeyStruct) JobLockKey(job string) string {
	return fmt.Sprintf("job:%s:lock", job)
}

// JobLastRunKey returns the key storing the last run summary of a scheduled job
func (r *CacheKeyStruct) JobLastRunKey(job string) string {
	return fmt.Sprintf("job:%s:last_run", job)
}

// ClassAttendanceChannel returns the Redis PubSub channel for a class's live attendance feed
func (r *CacheKeyStruct) ClassAttendanceChannel(classID int) string {
	return fmt.Sprintf("attendance:class:%d", classID)
}

// AttendanceChannelPattern matches every class attendance channel
func (r *CacheKeyStruct) AttendanceChannelPattern() string {
	return "attendance:class:*"
}

var CacheKey = NewCacheKeyStruct()
