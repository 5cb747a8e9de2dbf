package orchestrator

import "time"

// Config bounds the orchestrator's worker pool, cancellation deadline,
// crash-recovery staleness threshold, and progress-report throttling.
// Mirrors the like-named fields of pkg/config.OrchestratorConfig.
type Config struct {
	WorkerPoolSize     int
	CancelDeadline     time.Duration
	StalenessThreshold time.Duration
	ProgressThrottle   time.Duration
}

// DefaultConfig matches spec.md §4.5's stated defaults.
func DefaultConfig() Config {
	return Config{
		WorkerPoolSize:     4,
		CancelDeadline:     30 * time.Second,
		StalenessThreshold: 15 * time.Minute,
		ProgressThrottle:   time.Second,
	}
}
