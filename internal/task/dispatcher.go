// Package task turns incoming browser requests into tracked executions:
// it assigns task ids, runs the agent on a bounded worker pool, and keeps
// the registry's view of each task current.
package task

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/browseruse/internal/browseragent"
	"github.com/BaSui01/browseruse/internal/metrics"
	"github.com/BaSui01/browseruse/internal/pool"
	"github.com/BaSui01/browseruse/internal/registry"
	"github.com/BaSui01/browseruse/types"
)

// Dispatcher owns task execution for the HTTP layer.
type Dispatcher struct {
	runner          browseragent.Runner
	store           registry.Store
	pool            *pool.WorkerPool
	collector       *metrics.Collector
	conversationDir string
	logger          *zap.Logger
}

// New creates a dispatcher. collector may be nil to disable metrics.
func New(runner browseragent.Runner, store registry.Store, p *pool.WorkerPool, collector *metrics.Collector, conversationDir string, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		runner:          runner,
		store:           store,
		pool:            p,
		collector:       collector,
		conversationDir: conversationDir,
		logger:          logger.With(zap.String("component", "dispatcher")),
	}
}

// RunSync executes the task on the caller's goroutine and returns the
// result directly. Sync runs are not registered in the task registry.
func (d *Dispatcher) RunSync(ctx context.Context, req browseragent.Request) (string, error) {
	return d.execute(ctx, "sync", req)
}

// Dispatch queues the task for background execution and returns its id.
// The pending record is visible in the registry before this returns, so
// a status poll racing the response never sees a missing task.
func (d *Dispatcher) Dispatch(ctx context.Context, req browseragent.Request) (string, error) {
	id := "task_" + uuid.NewString()
	if d.conversationDir != "" {
		req.ConversationPath = filepath.Join(d.conversationDir, id+".json")
	}

	// The background run must not die with the HTTP request, but keeps
	// its values for log correlation.
	runCtx := context.WithoutCancel(ctx)

	// The worker holds on the gate until the pending record is written.
	ready := make(chan struct{})
	err := d.pool.Submit(runCtx, func(taskCtx context.Context) {
		<-ready
		d.runBackground(taskCtx, id, req)
	})
	if err != nil {
		close(ready)
		if d.collector != nil {
			d.collector.RecordTaskRejected()
		}
		if errors.Is(err, pool.ErrQueueFull) {
			return "", types.NewError(types.ErrTaskQueueFull, "too many concurrent tasks").
				WithHTTPStatus(503).WithRetryable(true)
		}
		return "", types.NewError(types.ErrServiceUnavailable, "task executor is shut down").
			WithHTTPStatus(503).WithCause(err)
	}

	rec := types.TaskRecord{TaskID: id, Status: types.TaskPending, Timestamp: time.Now().Unix()}
	if serr := d.store.Record(ctx, rec); serr != nil {
		// The task still runs; its terminal record will retry the write.
		d.logger.Error("failed to record pending task", zap.String("task_id", id), zap.Error(serr))
	}
	close(ready)

	d.logger.Info("task dispatched", zap.String("task_id", id), zap.String("model", req.Model))
	return id, nil
}

// Status looks up the record for a task id.
func (d *Dispatcher) Status(ctx context.Context, id string) (types.TaskRecord, error) {
	rec, err := d.store.Lookup(ctx, id)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return types.TaskRecord{}, types.NewNotFoundError("Task not found")
		}
		return types.TaskRecord{}, types.NewError(types.ErrInternalError, "task lookup failed").
			WithHTTPStatus(500).WithCause(err)
	}
	return rec, nil
}

func (d *Dispatcher) runBackground(ctx context.Context, id string, req browseragent.Request) {
	result, err := d.execute(ctx, "async", req)

	rec := types.TaskRecord{TaskID: id, Timestamp: time.Now().Unix()}
	if err != nil {
		rec.Status = types.TaskError
		rec.Error = err.Error()
		d.logger.Warn("task failed", zap.String("task_id", id), zap.Error(err))
	} else {
		rec.Status = types.TaskCompleted
		rec.Result = result
		d.logger.Info("task completed", zap.String("task_id", id))
	}

	if serr := d.store.Record(ctx, rec); serr != nil {
		d.logger.Error("failed to record task result", zap.String("task_id", id), zap.Error(serr))
	}
}

func (d *Dispatcher) execute(ctx context.Context, mode string, req browseragent.Request) (string, error) {
	model := req.Model
	if model == "" {
		model = "default"
	}

	if d.collector != nil {
		d.collector.RecordTaskStarted(mode)
	}
	start := time.Now()

	result, err := d.runner.Run(ctx, req)

	status := "completed"
	if err != nil {
		status = "error"
	}
	if d.collector != nil {
		d.collector.RecordTaskFinished(mode, status)
		d.collector.RecordAgentRun(model, status, time.Since(start))
	}
	return result, err
}
