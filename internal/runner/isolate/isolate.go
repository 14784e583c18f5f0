// Package isolate is the in-process sandbox realization: one fresh VM heap
// per invocation, disposed when the run completes, so no state survives
// between executions.
package isolate

import (
	"context"

	"github.com/divitsinghall/Vortex/internal/runner"
	"github.com/divitsinghall/Vortex/internal/sandbox"
)

// Runner executes scripts on in-process sandbox runtimes.
type Runner struct{}

// New creates an isolate runner.
func New() *Runner {
	return &Runner{}
}

// Execute runs the script in a fresh sandbox runtime tied to ctx.
func (r *Runner) Execute(ctx context.Context, spec runner.Spec) (*sandbox.Result, error) {
	return sandbox.New(spec.Sink).Run(ctx, spec.Source)
}

// Streams reports that log events fire the sink as they are emitted.
func (r *Runner) Streams() bool {
	return true
}
