package vrp

import (
	"context"
	"sync"

	"dispatch/pkg/apperror"
)

// pool is a channel-based semaphore bounding concurrent solves, grounded on
// services/solver-svc/internal/algorithms/solver.go's SolverPool: a buffered
// channel of empty structs stands in for available solve slots, Acquire
// blocks on a send (or ctx cancellation), Release drains one slot.
type pool struct {
	slots chan struct{}
}

func newPool(maxConcurrent int) *pool {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &pool{slots: make(chan struct{}, maxConcurrent)}
}

func (p *pool) Acquire(ctx context.Context) error {
	select {
	case p.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return apperror.Wrap(ctx.Err(), apperror.CodeCancelled, "solve request cancelled while waiting for a free worker")
	}
}

func (p *pool) Release() {
	<-p.slots
}

// shutdownGate gates new solve admission and tracks in-flight solves so a
// graceful Shutdown can drain them, grounded on
// services/solver-svc/internal/service/solver.go's trackRequest/Shutdown
// shell (shutdownCh + sync.Once + sync.WaitGroup).
type shutdownGate struct {
	mu         sync.Mutex
	shutdownCh chan struct{}
	closeOnce  sync.Once
	wg         sync.WaitGroup
	inFlight   int
}

func newShutdownGate() *shutdownGate {
	return &shutdownGate{shutdownCh: make(chan struct{})}
}

func (g *shutdownGate) track() (func(), error) {
	select {
	case <-g.shutdownCh:
		return nil, apperror.New(apperror.CodeCancelled, "solver is shutting down, not accepting new solves")
	default:
	}
	g.wg.Add(1)
	g.mu.Lock()
	g.inFlight++
	g.mu.Unlock()
	return func() {
		g.mu.Lock()
		g.inFlight--
		g.mu.Unlock()
		g.wg.Done()
	}, nil
}

func (g *shutdownGate) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inFlight
}

// Shutdown stops accepting new solves and waits for in-flight ones to
// finish, or for ctx to expire first.
func (g *shutdownGate) Shutdown(ctx context.Context) error {
	g.closeOnce.Do(func() { close(g.shutdownCh) })

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return apperror.Wrap(ctx.Err(), apperror.CodeCancelled, "shutdown deadline exceeded waiting for in-flight solves")
	}
}
