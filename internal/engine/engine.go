package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/divitsinghall/Vortex/internal/model"
	"github.com/divitsinghall/Vortex/internal/runner"
	"github.com/divitsinghall/Vortex/internal/sandbox"
)

// ExecutionTopic derives the unique event-bus topic for one invocation.
func ExecutionTopic(executionID string) string {
	return "exec:" + executionID
}

// FunctionTopic derives the subscriber-facing topic for a function. Stream
// subscribers attach here; concurrent invocations of the same function all
// publish to it alongside their own execution topics.
func FunctionTopic(functionID string) string {
	return "logs:" + functionID
}

// Engine is the per-invocation coordinator: it admits work through the
// worker pool, binds each execution to a deadline and a pair of bus
// topics, drives the configured runner, and releases every resource on
// every exit path.
type Engine struct {
	pool           *WorkerPool
	bus            Bus
	runner         runner.Runner
	logger         *slog.Logger
	defaultTimeout time.Duration

	// inflight counts running executions per function so the shared
	// function topic closes only when the last one finishes.
	mu       sync.Mutex
	inflight map[string]int
}

// New creates an engine. defaultTimeout caps every execution; a tighter
// caller deadline wins.
func New(pool *WorkerPool, bus Bus, r runner.Runner, logger *slog.Logger, defaultTimeout time.Duration) *Engine {
	workerPoolCapacity.Set(float64(pool.Capacity()))
	return &Engine{
		pool:           pool,
		bus:            bus,
		runner:         r,
		logger:         logger,
		defaultTimeout: defaultTimeout,
		inflight:       make(map[string]int),
	}
}

// Bus returns the engine's event bus for gateway subscription.
func (e *Engine) Bus() Bus {
	return e.bus
}

// Pool returns the engine's worker pool for health reporting.
func (e *Engine) Pool() *WorkerPool {
	return e.pool
}

// Execute runs one invocation of the given function to completion. It
// fails fast with CapacityExceeded when the pool is saturated; otherwise
// it returns the complete result or a classified error, with worker slot
// and topics released on every path.
func (e *Engine) Execute(ctx context.Context, functionID, source string) (*model.Execution, error) {
	slot, err := e.pool.TryAcquire()
	if err != nil {
		e.logger.Warn("execution rejected, worker pool full", "function_id", functionID)
		executionsTotal.WithLabelValues("capacity_exceeded").Inc()
		return nil, err
	}
	workerPoolInUse.Set(float64(e.pool.InUse()))
	defer func() {
		slot.Release()
		workerPoolInUse.Set(float64(e.pool.InUse()))
	}()

	executionsInFlight.Inc()
	defer executionsInFlight.Dec()

	executionID := model.NewExecutionID()
	execTopic := ExecutionTopic(executionID)
	funcTopic := FunctionTopic(functionID)

	e.openTopics(functionID, execTopic, funcTopic)
	defer e.closeTopics(functionID, execTopic, funcTopic)

	// The child deadline is the tighter of the default per-execution
	// timeout and any deadline the caller brought.
	execCtx, cancel := context.WithTimeout(ctx, e.defaultTimeout)
	defer cancel()

	sink := sandbox.SinkFunc(func(ev model.LogEvent) {
		e.bus.Publish(execTopic, ev)
		e.bus.Publish(funcTopic, ev)
	})

	e.logger.Info("execution started",
		"execution_id", executionID,
		"function_id", functionID,
	)

	res, runErr := e.runner.Execute(execCtx, runner.Spec{
		ExecutionID: executionID,
		FunctionID:  functionID,
		Source:      source,
		Topic:       execTopic,
		Sink:        sink,
	})

	if res != nil && !e.runner.Streams() {
		// The realization could not stream live; deliver the batch before
		// the topics close so attached subscribers still see every event.
		for _, ev := range res.Logs {
			sink.Append(ev)
		}
	}

	if runErr != nil {
		kind := model.KindOf(runErr)
		e.logger.Warn("execution failed",
			"execution_id", executionID,
			"function_id", functionID,
			"kind", string(kind),
			"error", runErr,
		)
		executionsTotal.WithLabelValues(string(kind)).Inc()
		return e.partialExecution(executionID, functionID, res), runErr
	}

	executionsTotal.WithLabelValues("ok").Inc()
	executionDuration.Observe(res.Elapsed.Seconds())
	e.logger.Info("execution completed",
		"execution_id", executionID,
		"function_id", functionID,
		"duration_ms", res.Elapsed.Milliseconds(),
		"log_events", len(res.Logs),
	)

	return &model.Execution{
		ID:         executionID,
		FunctionID: functionID,
		Return:     res.Return,
		Logs:       res.Logs,
		Elapsed:    res.Elapsed,
	}, nil
}

// partialExecution preserves whatever the runner recovered on a failure
// path, so callers can still inspect the flushed log batch.
func (e *Engine) partialExecution(executionID, functionID string, res *sandbox.Result) *model.Execution {
	if res == nil {
		return nil
	}
	return &model.Execution{
		ID:         executionID,
		FunctionID: functionID,
		Return:     res.Return,
		Logs:       res.Logs,
		Elapsed:    res.Elapsed,
	}
}

// openTopics activates the execution topic and, for the first concurrent
// invocation of a function, its shared function topic.
func (e *Engine) openTopics(functionID, execTopic, funcTopic string) {
	e.mu.Lock()
	e.inflight[functionID]++
	e.mu.Unlock()

	e.bus.Open(execTopic)
	e.bus.Open(funcTopic)
}

// closeTopics tears down the execution topic and closes the function topic
// once its last in-flight invocation finishes.
func (e *Engine) closeTopics(functionID, execTopic, funcTopic string) {
	e.bus.Close(execTopic)

	e.mu.Lock()
	e.inflight[functionID]--
	last := e.inflight[functionID] <= 0
	if last {
		delete(e.inflight, functionID)
	}
	e.mu.Unlock()

	if last {
		e.bus.Close(funcTopic)
	}
}
