// Package constants defines application-wide constants for timeouts, limits, and durations.
package constants

import "time"

// Conversation lifecycle constants
const (
	// StalenessThreshold is how long an ACTIVE conversation may go
	// without a heartbeat or message before the sweep demotes it
	StalenessThreshold = 5 * time.Minute

	// SweepInterval is how often the liveness monitor runs
	SweepInterval = 1 * time.Minute

	// AgentPresenceTTL is how long an agent stays online without a
	// presence refresh
	AgentPresenceTTL = 5 * time.Minute
)

// Client polling reference intervals. Enforced nowhere server-side;
// documented here so the widget and console stay in step.
const (
	MessageSyncInterval  = 3 * time.Second
	HeartbeatInterval    = 30 * time.Second
	QueueRefreshInterval = 30 * time.Second
)

// Time-related constants
const (
	// DefaultTimeout is the default timeout for most operations
	DefaultTimeout = 30 * time.Second

	// GracefulShutdownTimeout is the timeout for graceful server shutdown
	GracefulShutdownTimeout = 30 * time.Second
)

// JWT-related constants
const (
	// AccessTokenExpiry is the default access token lifetime
	AccessTokenExpiry = 15 * time.Minute
)

// Database connection constants
const (
	// MaxConnLifetime is the maximum lifetime of a database connection
	MaxConnLifetime = 1 * time.Hour

	// MaxConnIdleTime is the maximum idle time for a database connection
	MaxConnIdleTime = 30 * time.Minute

	// HealthCheckPeriod is the interval between database health checks
	HealthCheckPeriod = 1 * time.Minute
)

// Listing limits
const (
	// DefaultQueueLimit is the default page size for queue views
	DefaultQueueLimit = 50

	// MaxQueueLimit caps queue view page size
	MaxQueueLimit = 100
)
