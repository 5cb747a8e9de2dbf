package storage

import (
	"context"

	"dispatch/internal/domain"
	"dispatch/pkg/database"
)

// OrchestratorStore is the Postgres-backed orchestrator.Store. Jobs don't
// need transactional boundaries beyond a single statement: the
// orchestrator already serializes every state change for a given job
// through its own in-process scheduler lock.
type OrchestratorStore struct {
	db database.DB
}

// NewOrchestratorStore wraps a connection pool for use by
// internal/orchestrator.
func NewOrchestratorStore(db database.DB) *OrchestratorStore {
	return &OrchestratorStore{db: db}
}

func (s *OrchestratorStore) CreateJob(ctx context.Context, job *domain.Job) error {
	return createJob(ctx, s.db, job)
}

func (s *OrchestratorStore) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	return getJob(ctx, s.db, id)
}

func (s *OrchestratorStore) SaveJob(ctx context.Context, job *domain.Job) error {
	return saveJob(ctx, s.db, job)
}

func (s *OrchestratorStore) ListRunningJobs(ctx context.Context) ([]*domain.Job, error) {
	return listRunningJobs(ctx, s.db)
}
