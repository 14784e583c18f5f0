package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dop251/goja"

	"github.com/divitsinghall/Vortex/internal/model"
)

// scriptName is the resource name reported in stack traces and compile
// errors for user code.
const scriptName = "function.js"

// EventSink receives log events as the script emits them, out-of-band from
// the final batch.
type EventSink interface {
	Append(ev model.LogEvent)
}

// SinkFunc adapts a function to the EventSink interface.
type SinkFunc func(ev model.LogEvent)

// Append calls f.
func (f SinkFunc) Append(ev model.LogEvent) { f(ev) }

// Result is the outcome of one script run. On failure the partial log
// batch is still populated with everything emitted before the failure.
type Result struct {
	Return  model.ReturnValue
	Logs    []model.LogEvent
	Elapsed time.Duration
}

// Runtime runs exactly one script to completion in a fresh isolated VM.
// A Runtime is single-use: construct one per invocation and discard it.
// It is not safe for concurrent use.
type Runtime struct {
	vm   *goja.Runtime
	loop *eventLoop
	sink EventSink
	now  func() time.Time

	stringify goja.Callable

	logs []model.LogEvent
	seq  int

	retSet bool
	retVal goja.Value
}

// New creates a Runtime with a fresh heap and the fixed capability surface
// installed. sink may be nil, in which case events accumulate only in the
// final batch.
func New(sink EventSink) *Runtime {
	r := &Runtime{
		vm:   goja.New(),
		loop: newEventLoop(),
		sink: sink,
		now:  time.Now,
	}
	r.bootstrap()
	return r
}

// wrapSource wraps user code in an async IIFE so that top-level await and
// top-level return both work, and routes the IIFE's settled value into the
// explicit return slot.
func wrapSource(src string) string {
	return "(async () => {\n" + src + "\n})().then((v) => { if (v !== undefined) __vortex_capture(v); });"
}

// Run compiles and executes source, driving the event loop until the
// script and every timer it scheduled have finished, the deadline carried
// by ctx elapses, or ctx is cancelled. The returned Result always carries
// the log events published up to that point.
func (r *Runtime) Run(ctx context.Context, source string) (*Result, error) {
	prog, err := goja.Compile(scriptName, wrapSource(source), false)
	if err != nil {
		return r.partial(0), model.Errorf(model.KindCompileError, "%v", err)
	}

	start := time.Now()

	// Interrupt the VM when the context ends so tight loops in user code
	// cannot outlive the deadline.
	watch := make(chan struct{})
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		select {
		case <-ctx.Done():
			r.vm.Interrupt(ctx.Err())
		case <-watch:
		}
	}()

	var promise *goja.Promise
	r.loop.push(func() error {
		v, err := r.vm.RunProgram(prog)
		if err != nil {
			return err
		}
		if p, ok := v.Export().(*goja.Promise); ok {
			promise = p
		}
		return nil
	})

	runErr := r.loop.run(ctx)
	elapsed := time.Since(start)

	// Disarm the watcher before touching the VM again: return-value
	// serialization below must not race a deadline interrupt.
	close(watch)
	<-watchDone
	r.vm.ClearInterrupt()

	if runErr != nil {
		return r.partial(elapsed), r.classify(ctx, runErr)
	}

	if promise != nil {
		switch promise.State() {
		case goja.PromiseStateRejected:
			return r.partial(elapsed), model.Errorf(model.KindRuntimeError,
				"uncaught error: %s", promise.Result().String())
		case goja.PromiseStatePending:
			// The loop ran dry with the script still suspended: something
			// awaited a promise nothing can ever resolve.
			return r.partial(elapsed), model.NewError(model.KindRuntimeError,
				"script did not settle: event loop exhausted with pending promise")
		}
	}

	ret, err := r.collectReturn()
	if err != nil {
		return r.partial(elapsed), err
	}

	return &Result{Return: ret, Logs: r.logs, Elapsed: elapsed}, nil
}

// partial builds a Result for a failure path, carrying the log batch.
func (r *Runtime) partial(elapsed time.Duration) *Result {
	return &Result{Return: model.Empty(), Logs: r.logs, Elapsed: elapsed}
}

// classify maps a loop error onto the closed error kind enumeration.
func (r *Runtime) classify(ctx context.Context, err error) error {
	var intr *goja.InterruptedError
	if errors.As(err, &intr) || ctx.Err() != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return model.NewError(model.KindTimeout, "execution deadline elapsed")
		}
		return model.NewError(model.KindAborted, "execution aborted")
	}

	var ex *goja.Exception
	if errors.As(err, &ex) {
		return model.Errorf(model.KindRuntimeError, "uncaught error: %s", ex.Value().String())
	}
	return model.Errorf(model.KindRuntimeError, "%v", err)
}

// collectReturn serializes the recorded return value. The VM's own
// JSON.stringify is used so object key order matches what the script
// would observe; values it cannot represent (cycles, functions) fail the
// execution.
func (r *Runtime) collectReturn() (model.ReturnValue, error) {
	if !r.retSet || r.retVal == nil || goja.IsUndefined(r.retVal) {
		return model.Empty(), nil
	}
	if goja.IsNull(r.retVal) {
		return model.Value(json.RawMessage("null")), nil
	}

	s, err := r.stringify(goja.Undefined(), r.retVal)
	if err != nil || s == nil || goja.IsUndefined(s) {
		return model.ReturnValue{}, model.NewError(model.KindRuntimeError, "unserializable return value")
	}
	return model.Value(json.RawMessage(s.String())), nil
}
