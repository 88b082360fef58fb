package extraction

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"recall-backend/internal/domain"
)

// Scheduler decides how background work runs. The production scheduler
// spawns goroutines; tests substitute a synchronous one.
type Scheduler interface {
	Schedule(task func())
}

// GoScheduler runs each task on its own goroutine, tracked so shutdown can
// wait for in-flight extractions.
type GoScheduler struct {
	wg sync.WaitGroup
}

var _ Scheduler = (*GoScheduler)(nil)

// NewGoScheduler creates the goroutine-backed scheduler.
func NewGoScheduler() *GoScheduler {
	return &GoScheduler{}
}

func (s *GoScheduler) Schedule(task func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		task()
	}()
}

// Wait blocks until all scheduled tasks have finished.
func (s *GoScheduler) Wait() {
	s.wg.Wait()
}

// SyncScheduler runs tasks inline; used in tests.
type SyncScheduler struct{}

var _ Scheduler = SyncScheduler{}

func (SyncScheduler) Schedule(task func()) { task() }

// Dispatcher runs the extraction pipeline off the request path. A
// dispatched run is isolated from its originating request: it keeps the
// request's values but not its cancellation, and a panic inside the
// pipeline or the completion callback is recovered and logged instead of
// taking the process down.
type Dispatcher struct {
	pipeline  *Pipeline
	scheduler Scheduler
	logger    *zap.Logger
}

// NewDispatcher creates a background extraction dispatcher.
func NewDispatcher(pipeline *Pipeline, scheduler Scheduler, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		pipeline:  pipeline,
		scheduler: scheduler,
		logger:    logger,
	}
}

// Enqueue schedules an extraction run for the entry. onComplete is invoked
// only when the pipeline succeeds; failures are logged and dropped.
func (d *Dispatcher) Enqueue(ctx context.Context, entry domain.Entity, metadata map[string]interface{}, onComplete func(context.Context, *Result)) {
	// The request context is about to be cancelled when the handler returns.
	detached := context.WithoutCancel(ctx)

	d.scheduler.Schedule(func() {
		d.runSafe(detached, entry, metadata, onComplete)
	})
}

func (d *Dispatcher) runSafe(ctx context.Context, entry domain.Entity, metadata map[string]interface{}, onComplete func(context.Context, *Result)) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Background extraction panicked",
				zap.String("entry_id", entry.ID),
				zap.Any("panic", r))
		}
	}()

	result, err := d.pipeline.Run(ctx, entry, metadata)
	if err != nil {
		d.logger.Error("Background extraction failed",
			zap.String("entry_id", entry.ID),
			zap.Error(err))
		return
	}
	if onComplete != nil {
		onComplete(ctx, result)
	}
}
