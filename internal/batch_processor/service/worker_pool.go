package service

import (
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"
)

// CandidatePool fans candidate work out across a bounded ants pool. The
// orchestrator submits one task per candidate and waits for the whole batch
// before rolling counters up.
type CandidatePool struct {
	pool   *ants.Pool
	logger *slog.Logger
}

type CandidatePoolConfig struct {
	Size int
}

func NewCandidatePool(config CandidatePoolConfig, logger *slog.Logger) (*CandidatePool, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &CandidatePool{
		pool:   pool,
		logger: logger,
	}, nil
}

// Submit schedules one candidate task and ties it to the wait group. When
// the pool rejects the task (released or overloaded) the task runs inline
// on the caller's goroutine; a batch never loses candidates to pool errors.
func (p *CandidatePool) Submit(wg *sync.WaitGroup, task func()) {
	wg.Add(1)
	wrapped := func() {
		defer wg.Done()
		task()
	}

	if err := p.pool.Submit(wrapped); err != nil {
		p.logger.Warn("Worker pool rejected task, running inline", "error", err)
		wrapped()
	}
}

// Shutdown gracefully shuts down the worker pool.
func (p *CandidatePool) Shutdown() {
	p.logger.Info("Shutting down worker pool", "running_workers", p.pool.Running())
	p.pool.Release()
}

// Running returns the number of running workers in the pool.
func (p *CandidatePool) Running() int {
	return p.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (p *CandidatePool) Capacity() int {
	return p.pool.Cap()
}
