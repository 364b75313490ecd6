package utils

import "time"

// =============================================================================
// Timeout Constants
// =============================================================================

const (
	// DefaultRequestTimeout bounds one forecast request, all keys included
	DefaultRequestTimeout = 60 * time.Second

	// PublishTimeout bounds publication of one run's result events
	PublishTimeout = 5 * time.Second

	// ShutdownTimeout is how long in-flight requests get on SIGTERM
	ShutdownTimeout = 15 * time.Second
)

// =============================================================================
// Request Limits
// =============================================================================

const (
	// MaxSeriesPerRequest caps the number of (metric, group) keys in one request
	MaxSeriesPerRequest = 1000

	// MaxHorizon caps the number of quarters forecast per key
	MaxHorizon = 40

	// MaxTrials caps Monte Carlo trials per key
	MaxTrials = 100000
)

// Version is reported by the health endpoint and the CLI
const Version = "1.0.0"
