package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Background job intervals
const (
	SchedulerInterval    = 1 * time.Minute
	MonitorInterval      = 1 * time.Hour
	RetentionJobInterval = 24 * time.Hour
)

// Scheduler retry policy: a schedule is paused after this many consecutive
// failed trigger attempts.
const ScheduleMaxFailures = 3

// Retention windows for pruned tables
const (
	ExecutionLogRetention = 90 * 24 * time.Hour
	NotificationRetention = 30 * 24 * time.Hour
)

// Daily spending limits are evaluated over a trailing window of requested
// amounts, not a calendar day.
const DailyLimitWindow = 24 * time.Hour

// Default rate limiting
const DefaultRateLimitPerMin = 100
