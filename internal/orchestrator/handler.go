package orchestrator

import (
	"context"

	"dispatch/internal/domain"
)

// ReportFunc lets a running handler publish incremental progress. The
// orchestrator throttles the events it actually emits to
// Config.ProgressThrottle; handlers should still call report at least
// every 10 seconds per spec.md §4.5 so liveness is observable even when
// throttled.
type ReportFunc func(progress float64, note string)

// Handler runs one job kind's work. It must check ctx for cancellation at
// its checkpoints and return promptly once ctx is done, per the
// cooperative-cancellation contract. resultHandle is opaque to the
// orchestrator and is stored verbatim on success.
type Handler func(ctx context.Context, targetKey string, input []byte, report ReportFunc) (resultHandle string, err error)

// KindSpec registers one job kind's handler and its per-kind concurrency
// cap (0 means unbounded, limited only by the shared worker pool).
type KindSpec struct {
	Kind          domain.JobKind
	Handler       Handler
	MaxConcurrent int
}
