// Package runner defines the sandbox realization interface consumed by the
// engine. Two interchangeable realizations exist: an in-process isolate
// (fresh VM heap per invocation) and an out-of-process worker binary.
package runner

import (
	"context"

	"github.com/divitsinghall/Vortex/internal/sandbox"
)

// Spec describes one execution to be performed by a runner.
type Spec struct {
	ExecutionID string
	FunctionID  string
	Source      string

	// Topic is the execution's unique event-bus topic, for runners whose
	// sandbox streams to an external broker itself.
	Topic string

	// Sink receives log events live during execution when the runner
	// supports it. May be nil.
	Sink sandbox.EventSink
}

// Runner executes one script under the deadline and cancellation carried
// by ctx. On script failure the returned result is still populated with
// the partial log batch when one could be recovered.
type Runner interface {
	Execute(ctx context.Context, spec Spec) (*sandbox.Result, error)

	// Streams reports whether log events reach subscribers live during
	// execution. When false, the engine republishes the final batch at
	// completion so stream subscribers still observe every event.
	Streams() bool
}
