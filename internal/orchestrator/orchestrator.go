// Package orchestrator runs long-running work asynchronously from the
// request path: a fixed worker pool dequeues jobs FIFO, respecting
// per-kind concurrency caps, persists progress, supports cooperative
// cancellation, and recovers jobs orphaned by a process crash.
package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"dispatch/internal/domain"
	"dispatch/pkg/apperror"
)

type activeJob struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// targetKey identifies one (job kind, target) pair. Only one job per
// targetKey may run at a time, regardless of the kind's own concurrency
// cap — e.g. two OptimizeDay jobs for the same operating date must never
// run simultaneously even if MaxConcurrent for that kind is higher.
type targetKey struct {
	kind domain.JobKind
	key  string
}

// Orchestrator is one process's job scheduler. Submit is safe to call
// concurrently with Start having already run.
type Orchestrator struct {
	cfg   Config
	store Store
	bus   Bus
	log   *slog.Logger

	handlers map[domain.JobKind]Handler
	kindCaps map[domain.JobKind]int

	mu            sync.Mutex
	cond          *sync.Cond
	pending       []*domain.Job
	kindRunning   map[domain.JobKind]int
	targetRunning map[targetKey]int
	slotsUsed     int
	active        map[string]*activeJob

	stopCh chan struct{}
	wg     sync.WaitGroup
	closed atomic.Bool
}

// New constructs an orchestrator. Call RegisterHandler for every job kind
// before Start.
func New(cfg Config, store Store, bus Bus, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	o := &Orchestrator{
		cfg:           cfg,
		store:         store,
		bus:           bus,
		log:           log,
		handlers:      map[domain.JobKind]Handler{},
		kindCaps:      map[domain.JobKind]int{},
		kindRunning:   map[domain.JobKind]int{},
		targetRunning: map[targetKey]int{},
		active:        map[string]*activeJob{},
		stopCh:        make(chan struct{}),
	}
	o.cond = sync.NewCond(&o.mu)
	return o
}

// RegisterHandler wires a job kind's work function and concurrency cap.
func (o *Orchestrator) RegisterHandler(spec KindSpec) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.handlers[spec.Kind] = spec.Handler
	o.kindCaps[spec.Kind] = spec.MaxConcurrent
}

// Start recovers any job left Running by a prior crash, then launches the
// worker pool's scheduler loop.
func (o *Orchestrator) Start(ctx context.Context) error {
	if err := o.recoverOrphans(ctx); err != nil {
		return err
	}
	o.wg.Add(1)
	go o.schedulerLoop(ctx)
	return nil
}

func (o *Orchestrator) recoverOrphans(ctx context.Context) error {
	running, err := o.store.ListRunningJobs(ctx)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, job := range running {
		last := job.CreatedAt
		if job.LastProgressAt != nil {
			last = *job.LastProgressAt
		} else if job.StartedAt != nil {
			last = *job.StartedAt
		}
		if now.Sub(last) <= o.cfg.StalenessThreshold {
			continue
		}
		job.Status = domain.JobFailed
		job.ErrorMessage = "orphaned"
		finishedAt := now
		job.FinishedAt = &finishedAt
		job.Version++
		if err := o.store.SaveJob(ctx, job); err != nil {
			return err
		}
		o.publish(ctx, job, domain.EventJobCompleted)
	}
	return nil
}

// Submit persists a new queued job and enqueues it for the scheduler.
func (o *Orchestrator) Submit(ctx context.Context, kind domain.JobKind, targetKey, submitter string, input []byte, id string) (*domain.Job, error) {
	o.mu.Lock()
	if _, ok := o.handlers[kind]; !ok {
		o.mu.Unlock()
		return nil, apperror.NewWithField(apperror.CodeValidation, "no handler registered for job kind", "kind")
	}
	o.mu.Unlock()

	job := &domain.Job{
		ID:        id,
		Kind:      kind,
		TargetKey: targetKey,
		Submitter: submitter,
		Status:    domain.JobQueued,
		Input:     input,
		CreatedAt: time.Now(),
		Version:   1,
	}
	if err := o.store.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	o.mu.Lock()
	o.pending = append(o.pending, job)
	o.cond.Signal()
	o.mu.Unlock()
	return job, nil
}

// Cancel requests cooperative cancellation of a queued or running job.
// A queued job is cancelled immediately. A running job is signaled and
// given Config.CancelDeadline to observe it and stop; if it does not, the
// job is recorded failed{cancel_timeout} and its eventual result discarded.
func (o *Orchestrator) Cancel(ctx context.Context, jobID string) error {
	o.mu.Lock()
	for i, job := range o.pending {
		if job.ID == jobID {
			o.pending = append(o.pending[:i], o.pending[i+1:]...)
			o.mu.Unlock()
			job.Status = domain.JobCancelled
			now := time.Now()
			job.FinishedAt = &now
			job.Version++
			if err := o.store.SaveJob(ctx, job); err != nil {
				return err
			}
			o.publish(ctx, job, domain.EventJobCompleted)
			return nil
		}
	}
	aj, ok := o.active[jobID]
	o.mu.Unlock()
	if !ok {
		return apperror.NewWithField(apperror.CodeValidation, "job is not queued or running", "job_id")
	}

	aj.cancel()
	select {
	case <-aj.done:
		return nil
	case <-time.After(o.cfg.CancelDeadline):
		job, err := o.store.GetJob(ctx, jobID)
		if err != nil {
			return err
		}
		if job.Status.IsTerminal() {
			return nil
		}
		job.Status = domain.JobFailed
		job.ErrorMessage = "cancel_timeout"
		now := time.Now()
		job.FinishedAt = &now
		job.Version++
		if err := o.store.SaveJob(ctx, job); err != nil {
			return err
		}
		o.publish(ctx, job, domain.EventJobCompleted)
		return apperror.New(apperror.CodeCancelled, "job did not observe cancellation within the cancel deadline")
	}
}

func (o *Orchestrator) schedulerLoop(parent context.Context) {
	defer o.wg.Done()
	for {
		o.mu.Lock()
		for {
			if o.closed.Load() && len(o.pending) == 0 {
				o.mu.Unlock()
				return
			}
			idx := o.nextRunnableLocked()
			if idx >= 0 {
				job := o.pending[idx]
				o.pending = append(o.pending[:idx], o.pending[idx+1:]...)
				o.kindRunning[job.Kind]++
				o.targetRunning[targetKey{job.Kind, job.TargetKey}]++
				o.slotsUsed++
				o.mu.Unlock()
				o.wg.Add(1)
				go o.runJob(parent, job)
				break
			}
			o.cond.Wait()
		}
	}
}

// nextRunnableLocked returns the index of the first pending job whose
// kind still has room under its cap, whose (kind, target key) pair isn't
// already running, and whose pool slot is available. Caller holds o.mu.
func (o *Orchestrator) nextRunnableLocked() int {
	if o.slotsUsed >= o.cfg.WorkerPoolSize {
		return -1
	}
	for i, job := range o.pending {
		if o.targetRunning[targetKey{job.Kind, job.TargetKey}] > 0 {
			continue
		}
		limit := o.kindCaps[job.Kind]
		if limit <= 0 || o.kindRunning[job.Kind] < limit {
			return i
		}
	}
	return -1
}

func (o *Orchestrator) runJob(parent context.Context, job *domain.Job) {
	defer o.wg.Done()

	ctx, cancel := context.WithCancel(parent)
	aj := &activeJob{cancel: cancel, done: make(chan struct{})}
	o.mu.Lock()
	o.active[job.ID] = aj
	o.mu.Unlock()
	// Order matters: the slot must be released and the scheduler signaled
	// in the same critical section, or a waiting scheduler can miss the
	// wakeup between the two steps.
	defer func() {
		close(aj.done)
		o.mu.Lock()
		delete(o.active, job.ID)
		o.kindRunning[job.Kind]--
		tk := targetKey{job.Kind, job.TargetKey}
		o.targetRunning[tk]--
		if o.targetRunning[tk] <= 0 {
			delete(o.targetRunning, tk)
		}
		o.slotsUsed--
		o.cond.Signal()
		o.mu.Unlock()
	}()
	defer cancel()

	now := time.Now()
	job.Status = domain.JobRunning
	job.StartedAt = &now
	job.LastProgressAt = &now
	job.Version++
	if err := o.store.SaveJob(parent, job); err != nil {
		o.log.Error("failed to persist job transition to running", "job_id", job.ID, "error", err)
		return
	}
	o.publish(parent, job, domain.EventJobProgress)

	handler := o.handlerFor(job.Kind)
	var lastEmit time.Time
	report := func(progress float64, note string) {
		at := time.Now()
		job.Progress = progress
		job.ProgressNote = note
		job.LastProgressAt = &at
		if at.Sub(lastEmit) < o.cfg.ProgressThrottle {
			return
		}
		lastEmit = at
		o.publish(parent, job, domain.EventJobProgress)
	}

	resultHandle, err := handler(ctx, job.TargetKey, job.Input, report)

	if stored, getErr := o.store.GetJob(parent, job.ID); getErr == nil && stored.Status.IsTerminal() {
		return
	}

	finishedAt := time.Now()
	job.FinishedAt = &finishedAt
	job.Version++

	switch {
	case err == nil:
		job.Status = domain.JobSucceeded
		job.ResultHandle = resultHandle
	case ctx.Err() != nil:
		job.Status = domain.JobCancelled
	default:
		job.Status = domain.JobFailed
		job.ErrorMessage = err.Error()
	}

	if saveErr := o.store.SaveJob(parent, job); saveErr != nil {
		o.log.Error("failed to persist job completion", "job_id", job.ID, "error", saveErr)
		return
	}
	o.publish(parent, job, domain.EventJobCompleted)
}

func (o *Orchestrator) handlerFor(kind domain.JobKind) Handler {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.handlers[kind]
}

func (o *Orchestrator) publish(ctx context.Context, job *domain.Job, kind domain.EventKind) {
	event := domain.Event{
		EventID:    job.ID + ":" + string(job.Status) + ":" + string(kind),
		Kind:       kind,
		Payload:    job,
		OccurredAt: time.Now(),
	}
	_ = o.bus.Publish(ctx, domain.RoomRoutes, event)
	if job.Kind == domain.JobBatchPredict {
		_ = o.bus.Publish(ctx, domain.RoomPredictions, event)
	}
}

// Shutdown stops accepting scheduling loop iterations once pending work
// drains, and waits for in-flight jobs to finish or ctx to expire first.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.closed.Store(true)
	o.mu.Lock()
	o.cond.Broadcast()
	o.mu.Unlock()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return apperror.Wrap(ctx.Err(), apperror.CodeCancelled, "shutdown deadline exceeded waiting for in-flight jobs")
	}
}
