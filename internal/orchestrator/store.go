package orchestrator

import (
	"context"

	"dispatch/internal/domain"
)

// Store persists jobs. SaveJob writes the job as given; it does not compare
// domain.Job.Version against the stored job.
type Store interface {
	CreateJob(ctx context.Context, job *domain.Job) error
	GetJob(ctx context.Context, id string) (*domain.Job, error)
	SaveJob(ctx context.Context, job *domain.Job) error
	ListRunningJobs(ctx context.Context) ([]*domain.Job, error)
}

// Bus publishes job lifecycle events. internal/eventbus.Broker implements
// this; tests use a recording fake.
type Bus interface {
	Publish(ctx context.Context, room domain.Room, event domain.Event) error
}
